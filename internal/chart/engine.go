package chart

import (
	"log/slog"
	"math"
	"time"

	"chartcore/internal/model"
	"chartcore/internal/reconcile"
	"chartcore/internal/scale"
	"chartcore/internal/store"
)

// PointerState is the engine's interaction state.
type PointerState int

const (
	Idle PointerState = iota
	Panning
	Hovering
)

func (s PointerState) String() string {
	switch s {
	case Panning:
		return "PANNING"
	case Hovering:
		return "HOVERING"
	}
	return "IDLE"
}

// Tooltip is the hit-test result surfaced to hover consumers: the candle
// under the pointer plus every visible indicator's values at that index.
// Values maps instance id → output series name → value; undefined (NaN)
// points are omitted.
type Tooltip struct {
	Index  int
	Candle model.Candle
	Values map[string]map[string]float64
}

// HoverFunc receives tooltip updates while the pointer hovers the chart.
type HoverFunc func(Tooltip)

// FrameScheduler abstracts the environment's animation-frame mechanism.
// Request schedules fn for the next frame and returns a cancel func.
type FrameScheduler interface {
	Request(fn func()) (cancel func())
}

// immediateScheduler runs frames synchronously — the default, matching the
// single-threaded pipeline where a data event renders within the same turn.
type immediateScheduler struct{}

func (immediateScheduler) Request(fn func()) func() {
	fn()
	return func() {}
}

// TimerScheduler coalesces frames onto a timer tick. The tick never runs
// the frame itself: the callback is queued on Frames and executed by the
// goroutine that owns the engine, so rendering stays on the mutating
// goroutine. One scheduler serves one engine.
type TimerScheduler struct {
	Interval time.Duration
	Frames   chan func()
}

// NewTimerScheduler creates a scheduler with a single-slot frame queue.
func NewTimerScheduler(interval time.Duration) TimerScheduler {
	return TimerScheduler{Interval: interval, Frames: make(chan func(), 1)}
}

func (s TimerScheduler) Request(fn func()) func() {
	t := time.AfterFunc(s.Interval, func() {
		select {
		case s.Frames <- fn:
		default:
			// A frame is already queued. The engine hands the same callback
			// to every request, so the queued one covers this tick.
		}
	})
	// Cancel stops an unfired timer. A callback already queued runs later
	// on the owner goroutine, where renderFrame's running/surface guards
	// make it a no-op.
	return func() { t.Stop() }
}

// Engine drives rendering of one candle series and its indicators.
//
// Pan sign convention: dragging the pointer left (negative Δx) slides the
// window toward newer bars (startIndex grows); dragging right reveals
// history. See TestPan_DragRightRevealsHistory.
type Engine struct {
	store *store.CandleStore
	rec   *reconcile.Reconciler
	log   *slog.Logger

	surface Surface
	window  model.Window
	state   PointerState

	panAnchorX     float64
	panAnchorStart float64

	hoverFns []HoverFunc

	sched        FrameScheduler
	running      bool
	framePending bool
	cancelFrame  func()

	// PricePadding is the fraction of the visible price range added above
	// and below when building the price scale.
	PricePadding float64

	// OnRender reports frame durations for metrics. Optional.
	OnRender func(d time.Duration)

	// Style in effect; defaults from DefaultTheme.
	Theme Theme
}

// New creates an engine bound to a store and reconciler. The engine
// subscribes to store changes and re-renders on every mutation.
func New(st *store.CandleStore, rec *reconcile.Reconciler, log *slog.Logger) *Engine {
	e := &Engine{
		store:        st,
		rec:          rec,
		log:          log,
		window:       model.Window{StartIndex: 0, VisibleCount: 100},
		sched:        immediateScheduler{},
		PricePadding: 0.05,
		Theme:        DefaultTheme,
	}
	st.Subscribe(e.onStoreChange)
	rec.OnRemove = func(string) { e.Invalidate() }
	return e
}

// SetScheduler replaces the frame scheduler (timer-driven in production,
// immediate in tests).
func (e *Engine) SetScheduler(s FrameScheduler) {
	e.sched = s
}

// Mount attaches the draw surface. Rendering is a no-op until mounted.
func (e *Engine) Mount(s Surface) {
	e.surface = s
	e.Invalidate()
}

// Resize recreates the raster at the new pixel size and re-renders. The
// logical visible window is untouched. Non-raster surfaces are assumed to
// resize themselves; the engine just re-renders.
func (e *Engine) Resize(w, h int) {
	if _, ok := e.surface.(*Raster); ok {
		e.surface = NewRaster(w, h)
	}
	e.Invalidate()
}

// SetData replaces the whole series (timeframe switch) and snaps the
// window to the latest bars.
func (e *Engine) SetData(candles []model.Candle) {
	e.store.ReplaceAll(candles)
	e.scrollToEnd()
}

// SetVisibleWindow pans/zooms programmatically.
func (e *Engine) SetVisibleWindow(w model.Window) {
	e.window = w.Clamp(e.store.Len())
	e.rec.SetView(e.window)
	e.Invalidate()
}

// VisibleWindow returns the current window.
func (e *Engine) VisibleWindow() model.Window {
	return e.window
}

// State returns the interaction state.
func (e *Engine) State() PointerState { return e.state }

// OnHover registers a tooltip consumer.
func (e *Engine) OnHover(fn HoverFunc) {
	e.hoverFns = append(e.hoverFns, fn)
}

// Start begins the render loop. Idempotent: starting a running engine is a
// no-op.
func (e *Engine) Start() {
	if e.running {
		return
	}
	e.running = true
	e.Invalidate()
}

// Stop halts the loop and cancels any in-flight scheduled frame so a
// disposed surface is never rendered into.
func (e *Engine) Stop() {
	e.running = false
	if e.cancelFrame != nil {
		e.cancelFrame()
		e.cancelFrame = nil
	}
	e.framePending = false
}

// Invalidate schedules a render for the next frame. Repeated invalidations
// coalesce into one pending frame.
func (e *Engine) Invalidate() {
	if !e.running || e.surface == nil || e.framePending {
		return
	}
	e.framePending = true
	e.cancelFrame = e.sched.Request(e.renderFrame)
}

func (e *Engine) renderFrame() {
	e.framePending = false
	e.cancelFrame = nil
	if !e.running || e.surface == nil {
		return
	}
	started := time.Now()
	e.render()
	if e.OnRender != nil {
		e.OnRender(time.Since(started))
	}
}

// ── Pointer interaction ──────────────────────────────────────

// PointerDown enters PANNING, capturing the pixel position and window
// origin the drag is measured against.
func (e *Engine) PointerDown(x, y float64) {
	e.state = Panning
	e.panAnchorX = x
	e.panAnchorStart = e.window.StartIndex
}

// PointerMove pans while a button is held, otherwise hovers and performs
// hit-testing.
func (e *Engine) PointerMove(x, y float64) {
	if e.state == Panning {
		bw := e.timeScale().BarWidth()
		if bw > 0 {
			dx := x - e.panAnchorX
			w := e.window
			w.StartIndex = e.panAnchorStart - dx/bw
			e.window = w.Clamp(e.store.Len())
			e.rec.SetView(e.window)
			e.Invalidate()
		}
		return
	}
	e.state = Hovering
	if tip, ok := e.HitTest(x); ok {
		for _, fn := range e.hoverFns {
			fn(tip)
		}
	}
}

// PointerUp returns to IDLE.
func (e *Engine) PointerUp() {
	e.state = Idle
}

// Zoom scales the visible count by factor (>1 zooms out), keeping the bar
// under anchorX fixed on screen.
func (e *Engine) Zoom(factor, anchorX float64) {
	if factor <= 0 {
		return
	}
	ts := e.timeScale()
	anchorIdx := ts.PixelsToIndex(anchorX)

	count := int(math.Round(float64(e.window.VisibleCount) * factor))
	if count < 1 {
		count = 1
	}
	w, _ := e.surfaceSize()
	ns := scale.NewTime(0, count, float64(w))
	// Solve for the start index that keeps anchorIdx at anchorX.
	bw := ns.BarWidth()
	start := anchorIdx - (anchorX-bw/2)/bw

	e.window = model.Window{StartIndex: start, VisibleCount: count}.Clamp(e.store.Len())
	e.rec.SetView(e.window)
	e.Invalidate()
}

// HitTest maps a pixel x to the nearest candle and gathers indicator
// values at that index for tooltip display.
func (e *Engine) HitTest(x float64) (Tooltip, bool) {
	n := e.store.Len()
	if n == 0 {
		return Tooltip{}, false
	}
	idx := int(math.Round(e.timeScale().PixelsToIndex(x)))
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}

	tip := Tooltip{
		Index:  idx,
		Candle: e.store.All()[idx],
		Values: make(map[string]map[string]float64),
	}
	for _, in := range e.rec.Instances() {
		out := in.Output()
		if out == nil || !in.Visible {
			continue
		}
		for _, s := range out.Series() {
			if idx >= len(s.Points) || !s.Points[idx].Defined() {
				continue
			}
			if tip.Values[in.ID] == nil {
				tip.Values[in.ID] = make(map[string]float64)
			}
			tip.Values[in.ID][s.Name] = s.Points[idx].Value
		}
	}
	return tip, true
}

// ── internals ────────────────────────────────────────────────

func (e *Engine) onStoreChange(ch store.Change) {
	if ch.Kind == store.ChangeAppend && e.followingTail() {
		w := e.window
		w.StartIndex++
		e.window = w.Clamp(e.store.Len())
	}
	e.rec.SetView(e.window)
	e.Invalidate()
}

// followingTail reports whether the window's right edge covered the last
// candle before an append, i.e. the user is watching live data.
func (e *Engine) followingTail() bool {
	lo := e.window.StartIndex
	return lo+float64(e.window.VisibleCount) >= float64(e.store.Len()-1)
}

func (e *Engine) scrollToEnd() {
	n := e.store.Len()
	start := float64(n - e.window.VisibleCount)
	if start < 0 {
		start = 0
	}
	e.window = model.Window{StartIndex: start, VisibleCount: e.window.VisibleCount}.Clamp(n)
	e.rec.SetView(e.window)
	e.Invalidate()
}

func (e *Engine) surfaceSize() (int, int) {
	if e.surface == nil {
		return 1, 1
	}
	return e.surface.Size()
}

func (e *Engine) timeScale() scale.Time {
	w, _ := e.surfaceSize()
	return scale.NewTime(e.window.StartIndex, e.window.VisibleCount, float64(w))
}
