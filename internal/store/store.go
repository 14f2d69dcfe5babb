// Package store provides the CandleStore: the single mutable source of truth
// for one bar series, feeding both the renderer and the indicator reconciler.
//
// The store is designed for single-goroutine usage — all mutation and
// notification happen synchronously on the caller's goroutine, so no locks
// are needed. Mutations either fully apply or leave the store unchanged.
package store

import (
	"errors"
	"fmt"
	"math"

	"chartcore/internal/model"
)

var (
	// ErrOutOfOrder is returned by Append when the incoming candle's time is
	// not strictly greater than the current last candle's.
	ErrOutOfOrder = errors.New("store: append out of order")
	// ErrEmpty is returned by UpdateLast on an empty store.
	ErrEmpty = errors.New("store: empty")
	// ErrNotForming is returned by UpdateLast when the last candle is
	// already confirmed.
	ErrNotForming = errors.New("store: last candle not forming")
)

// ChangeKind identifies the mutation that triggered a notification.
type ChangeKind int

const (
	ChangeAppend ChangeKind = iota
	ChangeUpdateLast
	ChangeConfirmLast
	ChangeReplaceAll
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeAppend:
		return "append"
	case ChangeUpdateLast:
		return "update_last"
	case ChangeConfirmLast:
		return "confirm_last"
	case ChangeReplaceAll:
		return "replace_all"
	}
	return "unknown"
}

// Change describes one store mutation. Index is the affected candle index
// (-1 for ReplaceAll).
type Change struct {
	Kind  ChangeKind
	Index int
}

// Listener receives exactly one Change per mutating call.
type Listener func(Change)

// BarUpdate carries a partial forming-bar mutation. NaN fields are absent
// and leave the existing value untouched.
type BarUpdate struct {
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// EmptyUpdate returns a BarUpdate with every field absent. Set only the
// fields the tick actually carried.
func EmptyUpdate() BarUpdate {
	nan := math.NaN()
	return BarUpdate{Open: nan, High: nan, Low: nan, Close: nan, Volume: nan}
}

// CandleStore holds one ordered bar series. Time is strictly increasing;
// only the last candle may be forming.
type CandleStore struct {
	candles   []model.Candle
	listeners []Listener
}

// New creates an empty store.
func New() *CandleStore {
	return &CandleStore{}
}

// Subscribe registers a listener invoked synchronously after every mutation.
func (s *CandleStore) Subscribe(fn Listener) {
	s.listeners = append(s.listeners, fn)
}

// Len returns the number of candles.
func (s *CandleStore) Len() int {
	return len(s.candles)
}

// All returns the backing candle slice. Callers must treat it as read-only;
// the store swaps or appends, never mutates shared elements mid-read.
func (s *CandleStore) All() []model.Candle {
	return s.candles
}

// Last returns the most recent candle, if any.
func (s *CandleStore) Last() (model.Candle, bool) {
	if len(s.candles) == 0 {
		return model.Candle{}, false
	}
	return s.candles[len(s.candles)-1], true
}

// Append adds a new bar. The candle's time must be strictly greater than the
// current last candle's time — an equal or earlier time is an out-of-order
// event and is rejected with the store unchanged. If the previous last
// candle was still forming it transitions to confirmed.
func (s *CandleStore) Append(c model.Candle) error {
	if n := len(s.candles); n > 0 {
		last := &s.candles[n-1]
		if c.Time <= last.Time {
			return fmt.Errorf("%w: have %d, got %d", ErrOutOfOrder, last.Time, c.Time)
		}
		if last.State == model.Forming {
			last.State = model.Confirmed
		}
	}
	s.candles = append(s.candles, c)
	s.notify(Change{Kind: ChangeAppend, Index: len(s.candles) - 1})
	return nil
}

// UpdateLast merges a partial update into the forming last bar. High and low
// are re-derived so the bar always spans every price it has seen:
// high = max(existing high, incoming high or close), low analogously.
// Errors if the store is empty or the last bar is already confirmed; the
// store is left unchanged in both cases. Subscribers are notified once per
// call regardless of how many fields changed.
func (s *CandleStore) UpdateLast(u BarUpdate) error {
	n := len(s.candles)
	if n == 0 {
		return ErrEmpty
	}
	last := &s.candles[n-1]
	if last.State != model.Forming {
		return fmt.Errorf("%w: state=%s", ErrNotForming, last.State)
	}

	if !math.IsNaN(u.Open) {
		last.Open = u.Open
	}
	if !math.IsNaN(u.Close) {
		last.Close = u.Close
	}
	if !math.IsNaN(u.Volume) {
		last.Volume = u.Volume
	}

	hi := u.High
	if math.IsNaN(hi) {
		hi = u.Close
	}
	if !math.IsNaN(hi) && hi > last.High {
		last.High = hi
	}
	lo := u.Low
	if math.IsNaN(lo) {
		lo = u.Close
	}
	if !math.IsNaN(lo) && lo < last.Low {
		last.Low = lo
	}

	s.notify(Change{Kind: ChangeUpdateLast, Index: n - 1})
	return nil
}

// ConfirmLast finalizes the forming last bar in place. Used when the feed
// declares the current bucket closed without opening the next one; the bar
// is immutable afterwards.
func (s *CandleStore) ConfirmLast() error {
	n := len(s.candles)
	if n == 0 {
		return ErrEmpty
	}
	last := &s.candles[n-1]
	if last.State != model.Forming {
		return fmt.Errorf("%w: state=%s", ErrNotForming, last.State)
	}
	last.State = model.Confirmed
	s.notify(Change{Kind: ChangeConfirmLast, Index: n - 1})
	return nil
}

// ReplaceAll swaps the entire series (timeframe switch, backfill seed).
// The input must already be time-sorted: the store trusts the order and does
// not re-sort — silently re-sorting would hide upstream ordering bugs.
func (s *CandleStore) ReplaceAll(candles []model.Candle) {
	s.candles = candles
	s.notify(Change{Kind: ChangeReplaceAll, Index: -1})
}

// VisibleSlice returns the candles covered by the window, clamped to the
// series bounds. The returned slice aliases the store's backing array.
func (s *CandleStore) VisibleSlice(w model.Window) []model.Candle {
	lo, hi := w.Bounds(len(s.candles))
	return s.candles[lo:hi]
}

func (s *CandleStore) notify(ch Change) {
	for _, fn := range s.listeners {
		fn(ch)
	}
}
