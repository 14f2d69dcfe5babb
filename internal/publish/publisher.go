// Package publish mirrors the chart's bar stream and indicator values to
// Redis so downstream consumers (dashboards, alerting) can follow the same
// series the chart renders.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"chartcore/internal/model"
)

const (
	defaultLatestTTL = 30 * time.Minute

	breakerMaxFailures  = 5
	breakerResetTimeout = 10 * time.Second
)

// Config configures the publisher.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Publisher writes bars and indicator values to Redis streams and pubsub.
// Writes go through a circuit breaker so a Redis outage degrades to dropped
// publishes instead of a stalled chart loop.
type Publisher struct {
	client  *goredis.Client
	breaker *Breaker
	log     *slog.Logger

	// OnPublish reports publish latency for metrics. Optional.
	OnPublish func(d time.Duration, err error)
}

// Client returns the underlying Redis client for health checks.
func (p *Publisher) Client() *goredis.Client { return p.client }

// New creates a Publisher and pings the server.
func New(cfg Config, log *slog.Logger) (*Publisher, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("publish: redis ping: %w", err)
	}

	p := &Publisher{
		client:  client,
		breaker: newBreaker(breakerMaxFailures, breakerResetTimeout),
		log:     log.With(slog.String("component", "publish")),
	}
	p.breaker.OnStateChange = func(from, to State) {
		p.log.Warn("redis circuit breaker transition",
			slog.String("from", from.String()), slog.String("to", to.String()))
	}
	p.log.Info("redis connected", slog.String("addr", cfg.Addr))
	return p, nil
}

// Run consumes bar events and publishes each one. Blocks until ctx is
// cancelled or evCh is closed.
func (p *Publisher) Run(ctx context.Context, evCh <-chan model.BarEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-evCh:
			if !ok {
				return
			}
			p.PublishBar(ctx, ev)
		}
	}
}

// PublishBar writes one bar event. Forming bars go out over pubsub only;
// confirmed bars also land in the trimmed stream and the latest-value key.
func (p *Publisher) PublishBar(ctx context.Context, ev model.BarEvent) {
	jsonData := string(ev.Payload.JSON())
	channel := barChannel(ev.Symbol, ev.Timeframe)

	start := time.Now()
	err := p.breaker.Execute(func() error {
		if ev.Kind == model.BarForming {
			return p.client.Publish(ctx, channel, jsonData).Err()
		}

		pipe := p.client.Pipeline()
		pipe.XAdd(ctx, &goredis.XAddArgs{
			Stream: barStream(ev.Symbol, ev.Timeframe),
			MaxLen: streamMaxLen(ev.Timeframe),
			Approx: true,
			Values: map[string]interface{}{"data": jsonData},
		})
		pipe.Set(ctx, barLatestKey(ev.Symbol, ev.Timeframe), jsonData, defaultLatestTTL)
		pipe.Publish(ctx, channel, jsonData)
		_, err := pipe.Exec(ctx)
		return err
	})
	if p.OnPublish != nil {
		p.OnPublish(time.Since(start), err)
	}
	if err != nil && err != ErrBreakerOpen {
		p.log.Warn("bar publish failed", slog.String("key", ev.Key()), slog.Any("error", err))
	}
}

// IndicatorUpdate is one indicator instance's values at a bar close.
type IndicatorUpdate struct {
	InstanceID string             `json:"instance_id"`
	Type       string             `json:"type"`
	Symbol     string             `json:"symbol"`
	Timeframe  int                `json:"timeframe"`
	Time       int64              `json:"time"`
	Values     map[string]float64 `json:"values"`
	Final      bool               `json:"final"`
}

// PublishIndicators writes a batch of indicator updates in one pipeline.
// Non-final updates are pubsub-only, matching PublishBar's split.
func (p *Publisher) PublishIndicators(ctx context.Context, updates []IndicatorUpdate) {
	if len(updates) == 0 {
		return
	}

	start := time.Now()
	err := p.breaker.Execute(func() error {
		pipe := p.client.Pipeline()
		for i := range updates {
			u := &updates[i]
			data, err := json.Marshal(u)
			if err != nil {
				continue
			}
			jsonData := string(data)
			channel := indChannel(u.Type, u.Symbol, u.Timeframe)

			if !u.Final {
				pipe.Publish(ctx, channel, jsonData)
				continue
			}
			pipe.XAdd(ctx, &goredis.XAddArgs{
				Stream: indStream(u.Type, u.Symbol, u.Timeframe),
				MaxLen: streamMaxLen(u.Timeframe),
				Approx: true,
				Values: map[string]interface{}{"data": jsonData},
			})
			pipe.Set(ctx, indLatestKey(u.Type, u.Symbol, u.Timeframe), jsonData, defaultLatestTTL)
			pipe.Publish(ctx, channel, jsonData)
		}
		_, err := pipe.Exec(ctx)
		return err
	})
	if p.OnPublish != nil {
		p.OnPublish(time.Since(start), err)
	}
	if err != nil && err != ErrBreakerOpen {
		p.log.Warn("indicator publish failed", slog.Int("count", len(updates)), slog.Any("error", err))
	}
}

// Close closes the Redis client.
func (p *Publisher) Close() error {
	return p.client.Close()
}

// streamMaxLen keeps ~3h of bars per stream, floor 200.
func streamMaxLen(tf int) int64 {
	if tf <= 0 {
		return 200
	}
	n := int64(10800/tf) + 100
	if n < 200 {
		n = 200
	}
	return n
}

func barStream(symbol string, tf int) string {
	return "bars:" + symbol + ":" + strconv.Itoa(tf) + "s"
}

func barLatestKey(symbol string, tf int) string {
	return "bars:" + symbol + ":" + strconv.Itoa(tf) + "s:latest"
}

func barChannel(symbol string, tf int) string {
	return "pub:bar:" + strconv.Itoa(tf) + "s:" + symbol
}

func indStream(typ, symbol string, tf int) string {
	return "ind:" + typ + ":" + symbol + ":" + strconv.Itoa(tf) + "s"
}

func indLatestKey(typ, symbol string, tf int) string {
	return "ind:" + typ + ":" + symbol + ":" + strconv.Itoa(tf) + "s:latest"
}

func indChannel(typ, symbol string, tf int) string {
	return "pub:ind:" + typ + ":" + strconv.Itoa(tf) + "s:" + symbol
}
