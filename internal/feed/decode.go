package feed

import (
	"encoding/json"
	"fmt"

	"chartcore/internal/model"
)

// wireFrame is one JSON message from the bar stream.
//
//	{"type":"bar","symbol":"BTCUSDT","timeframe":60,
//	 "time":1700000000,"open":1,"high":2,"low":0.5,"close":1.5,
//	 "volume":12.3,"final":false}
//
// Non-"bar" frames (heartbeats, subscription acks) are control messages.
type wireFrame struct {
	Type      string  `json:"type"`
	Symbol    string  `json:"symbol"`
	Timeframe int     `json:"timeframe"`
	Time      int64   `json:"time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	Final     bool    `json:"final"`
}

// decodeFrame parses a raw message. ok is false for control frames the
// caller should ignore.
func decodeFrame(raw []byte) (model.BarEvent, bool, error) {
	var f wireFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return model.BarEvent{}, false, fmt.Errorf("feed: decode frame: %w", err)
	}
	if f.Type != "bar" {
		return model.BarEvent{}, false, nil
	}
	if f.Symbol == "" {
		return model.BarEvent{}, false, fmt.Errorf("feed: bar frame missing symbol")
	}
	if f.Timeframe <= 0 {
		return model.BarEvent{}, false, fmt.Errorf("feed: bar frame bad timeframe %d", f.Timeframe)
	}

	kind := model.BarForming
	state := model.Forming
	if f.Final {
		kind = model.BarConfirmed
		state = model.Confirmed
	}
	return model.BarEvent{
		Kind:      kind,
		Symbol:    f.Symbol,
		Timeframe: f.Timeframe,
		Payload: model.Candle{
			Time:   f.Time,
			Open:   f.Open,
			High:   f.High,
			Low:    f.Low,
			Close:  f.Close,
			Volume: f.Volume,
			State:  state,
		},
	}, true, nil
}
