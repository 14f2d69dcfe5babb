// chartd runs the headless chart pipeline: it backfills the candle store
// from SQLite, streams live bars from the websocket feed, keeps indicator
// instances reconciled, renders frames, and mirrors bars + indicator values
// to Redis.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"chartcore/config"
	"chartcore/internal/chart"
	"chartcore/internal/feed"
	"chartcore/internal/history"
	"chartcore/internal/logger"
	"chartcore/internal/metrics"
	"chartcore/internal/model"
	"chartcore/internal/notify"
	"chartcore/internal/publish"
	"chartcore/internal/reconcile"
	"chartcore/internal/registry"
	"chartcore/internal/ringbuf"
	"chartcore/internal/store"
)

const defaultLayout = "default"

func main() {
	cfg := config.Load()
	logg := logger.Init("chartd", logger.ParseLevel(cfg.LogLevel))
	logg.Info("starting", slog.String("symbol", cfg.Symbol), slog.Int("timeframe", cfg.Timeframe))

	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- History (SQLite) ----
	os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755)
	hist, err := history.New(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("[chartd] history init failed: %v", err)
	}
	defer hist.Close()
	health.SetSQLiteOK(true)
	hist.OnCommit = func(n int, d time.Duration) {
		prom.SQLiteWriteDur.Observe(d.Seconds())
	}

	// ---- Redis publisher (optional) ----
	pub, err := publish.New(publish.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}, logg)
	if err != nil {
		logg.Warn("redis unavailable, continuing without publishing", slog.Any("error", err))
		health.SetRedisConnected(false)
	} else {
		health.SetRedisConnected(true)
		pub.OnPublish = func(d time.Duration, err error) {
			if err == nil {
				prom.RedisPublishDur.Observe(d.Seconds())
			}
		}
	}

	if pub != nil {
		health.StartLivenessChecker(ctx, pub.Client(), hist.DB(), 10*time.Second)
	} else {
		health.StartLivenessChecker(ctx, nil, hist.DB(), 10*time.Second)
	}

	// ---- Chart core ----
	st := store.New()
	rec := reconcile.New(st, logg)
	rec.OnCompute = func(typ registry.Type, d time.Duration, err error) {
		prom.ComputeDur.WithLabelValues(string(typ)).Observe(d.Seconds())
		if err != nil {
			prom.ComputeErrors.Inc()
		}
	}
	rec.OnInstances = func(n int) {
		prom.ActiveInstances.Set(float64(n))
	}
	eng := chart.New(st, rec, logg)
	sched := chart.NewTimerScheduler(16 * time.Millisecond)
	eng.SetScheduler(sched)
	eng.Mount(chart.NewRaster(cfg.ChartWidth, cfg.ChartHeight))
	eng.OnRender = func(d time.Duration) {
		prom.FramesTotal.Inc()
		prom.RenderDur.Observe(d.Seconds())
	}
	eng.Start()

	// ---- Backfill ----
	loadStart := time.Now()
	candles, err := hist.LoadCandles(cfg.Symbol, cfg.Timeframe, cfg.BackfillLimit)
	prom.SQLiteLoadDur.Observe(time.Since(loadStart).Seconds())
	if err != nil {
		logg.Warn("backfill load failed", slog.Any("error", err))
	} else if len(candles) > 0 {
		eng.SetData(candles)
		logg.Info("backfilled candle store", slog.Int("bars", len(candles)))
	}

	// ---- Restore saved indicator layout ----
	if blob, err := hist.LoadLayout(defaultLayout); err == nil && blob != nil {
		if err := rec.RestoreLayout(blob); err != nil {
			logg.Warn("layout restore failed", slog.Any("error", err))
		} else {
			logg.Info("restored indicator layout", slog.Int("instances", len(rec.Instances())))
		}
	}

	// ---- Persistence and publish consumers (off the chart loop) ----
	histCh := make(chan model.BarEvent, 5000)
	go hist.Run(ctx, histCh)

	var pubCh chan model.BarEvent
	if pub != nil {
		pubCh = make(chan model.BarEvent, 5000)
		go pub.Run(ctx, pubCh)
	}

	// ---- Live feed ----
	ring := ringbuf.New(cfg.RingSize)
	fc := feed.New(feed.Config{
		URL:        cfg.FeedURL,
		APIKey:     cfg.FeedAPIKey,
		ClientCode: cfg.FeedClientCode,
		TOTPSecret: cfg.FeedTOTPSecret,
		Symbol:     cfg.Symbol,
		Timeframe:  cfg.Timeframe,
	}, ring, logg)
	fc.OnConnect = func() { health.SetFeedConnected(true) }
	fc.OnDisconnect = func() { health.SetFeedConnected(false) }
	fc.OnReconnect = func() { prom.FeedReconnects.Inc() }
	fc.OnOverflow = func() { prom.RingOverflow.Inc() }
	go func() {
		if err := fc.Run(ctx); err != nil {
			logg.Error("feed stopped", slog.Any("error", err))
		}
	}()

	// ---- Staleness alerting ----
	var notifier notify.Notifier = notify.NewLogNotifier()
	if cfg.WebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.WebhookURL)
	}
	watcher := notify.NewStalenessWatcher(
		fc.LastEventAt, notifier,
		time.Duration(cfg.StaleAfterSec)*time.Second, 10*time.Second)
	go watcher.Run(ctx)

	// ---- Event loop: the only goroutine that touches store and engine ----
	// Scheduled frames are drained here too, so rendering happens on the
	// same goroutine as the mutations it reads.
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		ticker := time.NewTicker(5 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case fn := <-sched.Frames:
				fn()
			case <-ticker.C:
				for {
					ev, ok := ring.Pop()
					if !ok {
						break
					}
					if ev.Symbol != cfg.Symbol || ev.Timeframe != cfg.Timeframe {
						continue
					}
					if !applyEvent(st, prom, ev) {
						continue
					}
					health.SetLastBarTime(time.Now())
					prom.BarLag.Set(float64(time.Now().Unix() - ev.Payload.Time))

					select {
					case histCh <- ev:
					default:
					}
					if pubCh != nil {
						select {
						case pubCh <- ev:
						default:
						}
						if ev.Kind == model.BarConfirmed {
							pub.PublishIndicators(ctx, collectIndicatorUpdates(rec, cfg, &ev))
						}
					}
				}
			}
		}
	}()

	logg.Info("pipeline ready",
		slog.String("feed", cfg.FeedURL),
		slog.String("metrics", cfg.MetricsAddr),
		slog.String("sqlite", cfg.SQLitePath))

	// ---- Wait for shutdown ----
	<-sigCh
	logg.Info("shutdown signal received")
	cancel()
	<-loopDone
	eng.Stop()

	// Persist the indicator layout for the next run.
	if blob, err := rec.Layout(); err == nil {
		if err := hist.SaveLayout(defaultLayout, blob); err != nil {
			logg.Warn("layout save failed", slog.Any("error", err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Stop(shutdownCtx)
	if pub != nil {
		pub.Close()
	}
	logg.Info("shutdown complete")
}

// applyEvent routes one feed event into the store: a newer bucket appends,
// the current forming bucket merges (and confirms in place when the feed
// declares it final), anything older is rejected.
func applyEvent(st *store.CandleStore, prom *metrics.Metrics, ev model.BarEvent) bool {
	last, ok := st.Last()
	switch {
	case !ok || ev.Payload.Time > last.Time:
		if err := st.Append(ev.Payload); err != nil {
			prom.BarsRejected.Inc()
			return false
		}
	case ev.Payload.Time == last.Time && last.State == model.Forming:
		u := store.EmptyUpdate()
		u.Open = ev.Payload.Open
		u.High = ev.Payload.High
		u.Low = ev.Payload.Low
		u.Close = ev.Payload.Close
		u.Volume = ev.Payload.Volume
		if err := st.UpdateLast(u); err != nil {
			prom.BarsRejected.Inc()
			return false
		}
		if ev.Kind == model.BarConfirmed {
			st.ConfirmLast()
		}
	default:
		prom.BarsRejected.Inc()
		return false
	}
	prom.BarsIngested.WithLabelValues(ev.Kind.String()).Inc()
	return true
}

// collectIndicatorUpdates snapshots every instance's latest defined values
// for publishing at bar close.
func collectIndicatorUpdates(rec *reconcile.Reconciler, cfg *config.Config, ev *model.BarEvent) []publish.IndicatorUpdate {
	var ups []publish.IndicatorUpdate
	for _, in := range rec.Instances() {
		out := in.Output()
		if out == nil {
			continue
		}
		series := out.Series()
		if len(series) == 0 {
			continue
		}
		vals := make(map[string]float64, len(series))
		for _, s := range series {
			if n := len(s.Points); n > 0 && s.Points[n-1].Defined() {
				vals[s.Name] = s.Points[n-1].Value
			}
		}
		if len(vals) == 0 {
			continue
		}
		ups = append(ups, publish.IndicatorUpdate{
			InstanceID: in.ID,
			Type:       string(in.Type),
			Symbol:     cfg.Symbol,
			Timeframe:  cfg.Timeframe,
			Time:       ev.Payload.Time,
			Values:     vals,
			Final:      true,
		})
	}
	return ups
}
