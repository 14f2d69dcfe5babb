package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"chartcore/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "candles.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func confirmed(sym string, tf int, ts int64, c float64) model.BarEvent {
	return model.BarEvent{
		Kind:      model.BarConfirmed,
		Symbol:    sym,
		Timeframe: tf,
		Payload:   model.Candle{Time: ts, Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 10, State: model.Confirmed},
	}
}

func TestRun_PersistsConfirmedOnly(t *testing.T) {
	s := openTestStore(t)

	ch := make(chan model.BarEvent, 8)
	ch <- confirmed("BTCUSDT", 60, 60, 100)
	ch <- confirmed("BTCUSDT", 60, 120, 101)
	forming := confirmed("BTCUSDT", 60, 180, 102)
	forming.Kind = model.BarForming
	ch <- forming
	close(ch)

	s.Run(context.Background(), ch)

	got, err := s.LoadCandles("BTCUSDT", 60, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("loaded %d candles, want 2 (forming bars must not persist)", len(got))
	}
	if got[0].Time != 60 || got[1].Time != 120 {
		t.Errorf("order = %d, %d, want ascending 60, 120", got[0].Time, got[1].Time)
	}
	for _, c := range got {
		if c.State != model.Historical {
			t.Errorf("loaded candle state = %v, want HISTORICAL", c.State)
		}
	}
}

func TestRun_UpsertsByTimestamp(t *testing.T) {
	s := openTestStore(t)

	ch := make(chan model.BarEvent, 4)
	ch <- confirmed("ETHUSDT", 60, 60, 100)
	ch <- confirmed("ETHUSDT", 60, 60, 200) // replay of the same bucket
	close(ch)
	s.Run(context.Background(), ch)

	got, _ := s.LoadCandles("ETHUSDT", 60, 0)
	if len(got) != 1 {
		t.Fatalf("loaded %d candles, want 1 after upsert", len(got))
	}
	if got[0].Close != 200 {
		t.Errorf("close = %v, want the replayed value 200", got[0].Close)
	}
}

func TestLoadCandles_LimitKeepsNewest(t *testing.T) {
	s := openTestStore(t)

	ch := make(chan model.BarEvent, 16)
	for i := int64(1); i <= 10; i++ {
		ch <- confirmed("BTCUSDT", 60, i*60, float64(i))
	}
	close(ch)
	s.Run(context.Background(), ch)

	got, err := s.LoadCandles("BTCUSDT", 60, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("loaded %d, want 3", len(got))
	}
	if got[0].Time != 480 || got[2].Time != 600 {
		t.Errorf("window = [%d..%d], want newest three ascending [480..600]", got[0].Time, got[2].Time)
	}
}

func TestLastTimestamp(t *testing.T) {
	s := openTestStore(t)

	ts, err := s.LastTimestamp("BTCUSDT", 60)
	if err != nil || ts != 0 {
		t.Fatalf("empty store: ts=%d err=%v, want 0, nil", ts, err)
	}

	ch := make(chan model.BarEvent, 4)
	ch <- confirmed("BTCUSDT", 60, 60, 1)
	ch <- confirmed("BTCUSDT", 60, 300, 2)
	ch <- confirmed("BTCUSDT", 300, 900, 3) // other timeframe
	close(ch)
	s.Run(context.Background(), ch)

	ts, err = s.LastTimestamp("BTCUSDT", 60)
	if err != nil {
		t.Fatal(err)
	}
	if ts != 300 {
		t.Errorf("last ts = %d, want 300", ts)
	}
}

func TestRun_FlushOnTimer(t *testing.T) {
	s := openTestStore(t)

	ch := make(chan model.BarEvent, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, ch)
		close(done)
	}()

	ch <- confirmed("BTCUSDT", 60, 60, 1)

	// Below batch size, so only the timer can flush it.
	deadline := time.After(5 * time.Second)
	for {
		got, err := s.LoadCandles("BTCUSDT", 60, 0)
		if err == nil && len(got) == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timer flush never happened")
		case <-time.After(20 * time.Millisecond):
		}
	}

	cancel()
	<-done
}

func TestLayout_RoundTrip(t *testing.T) {
	s := openTestStore(t)

	if data, err := s.LoadLayout("default"); err != nil || data != nil {
		t.Fatalf("missing layout: data=%q err=%v, want nil, nil", data, err)
	}

	blob := []byte(`[{"type":"SMA","params":{"period":20}}]`)
	if err := s.SaveLayout("default", blob); err != nil {
		t.Fatal(err)
	}
	got, err := s.LoadLayout("default")
	if err != nil || string(got) != string(blob) {
		t.Fatalf("round trip: %q, %v", got, err)
	}

	// Upsert replaces.
	if err := s.SaveLayout("default", []byte(`[]`)); err != nil {
		t.Fatal(err)
	}
	got, _ = s.LoadLayout("default")
	if string(got) != "[]" {
		t.Errorf("after upsert: %q, want []", got)
	}
}
