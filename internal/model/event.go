package model

import (
	"encoding/json"
	"strconv"
)

// BarEventKind distinguishes the two bar-stream event types delivered by the
// upstream data source.
type BarEventKind int

const (
	// BarForming updates the in-progress bar for the current bucket.
	BarForming BarEventKind = iota
	// BarConfirmed finalizes the previous bucket and opens a new bar.
	BarConfirmed
)

func (k BarEventKind) String() string {
	if k == BarForming {
		return "forming"
	}
	return "confirmed"
}

// BarEvent is one message from the bar stream: a forming-bar mutation or a
// confirmed new bar for a symbol + timeframe.
type BarEvent struct {
	Kind      BarEventKind `json:"kind"`
	Symbol    string       `json:"symbol"`
	Timeframe int          `json:"timeframe"` // seconds
	Payload   Candle       `json:"payload"`
}

// Key returns "symbol:timeframe" identifying the target series.
func (e *BarEvent) Key() string {
	return e.Symbol + ":" + strconv.Itoa(e.Timeframe)
}

// JSON returns the JSON-encoded event.
func (e *BarEvent) JSON() []byte {
	b, _ := json.Marshal(e)
	return b
}
