package feed

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pquerna/otp/totp"

	"chartcore/internal/model"
	"chartcore/internal/ringbuf"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestDecodeFrame_FormingAndFinal(t *testing.T) {
	raw := []byte(`{"type":"bar","symbol":"BTCUSDT","timeframe":60,"time":1700000000,"open":1,"high":2,"low":0.5,"close":1.5,"volume":12.5,"final":false}`)
	ev, ok, err := decodeFrame(raw)
	if err != nil || !ok {
		t.Fatalf("decode: ok=%v err=%v", ok, err)
	}
	if ev.Kind != model.BarForming {
		t.Errorf("kind = %v, want forming", ev.Kind)
	}
	if ev.Payload.State != model.Forming {
		t.Errorf("state = %v, want FORMING", ev.Payload.State)
	}
	if ev.Payload.Close != 1.5 || ev.Payload.Volume != 12.5 {
		t.Errorf("payload = %+v", ev.Payload)
	}

	raw = []byte(`{"type":"bar","symbol":"BTCUSDT","timeframe":60,"time":1700000060,"open":1,"high":2,"low":0.5,"close":1.5,"volume":1,"final":true}`)
	ev, ok, _ = decodeFrame(raw)
	if !ok || ev.Kind != model.BarConfirmed || ev.Payload.State != model.Confirmed {
		t.Errorf("final frame: kind=%v state=%v", ev.Kind, ev.Payload.State)
	}
}

func TestDecodeFrame_ControlAndMalformed(t *testing.T) {
	if _, ok, err := decodeFrame([]byte(`{"type":"ack","symbol":"X"}`)); ok || err != nil {
		t.Errorf("control frame: ok=%v err=%v, want skipped", ok, err)
	}
	if _, _, err := decodeFrame([]byte(`not json`)); err == nil {
		t.Error("garbage must error")
	}
	if _, _, err := decodeFrame([]byte(`{"type":"bar","timeframe":60}`)); err == nil {
		t.Error("bar without symbol must error")
	}
	if _, _, err := decodeFrame([]byte(`{"type":"bar","symbol":"X","timeframe":0}`)); err == nil {
		t.Error("bar with zero timeframe must error")
	}
}

// Spins up a websocket server that checks auth headers, acks the
// subscription and streams two bars, then verifies the client pushed both
// into the ring.
func TestClient_StreamsIntoRing(t *testing.T) {
	secret := "JBSWY3DPEHPK3PXP"
	upgrader := websocket.Upgrader{}

	gotSub := make(chan map[string]any, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "k1" {
			t.Errorf("missing api key header")
		}
		code := r.Header.Get("x-totp")
		if !totp.Validate(code, secret) {
			t.Errorf("totp %q did not validate", code)
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		var sub map[string]any
		if err := conn.ReadJSON(&sub); err != nil {
			t.Errorf("read subscribe: %v", err)
			return
		}
		gotSub <- sub

		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ack"}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"bar","symbol":"BTCUSDT","timeframe":60,"time":60,"open":1,"high":2,"low":1,"close":2,"volume":5,"final":false}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"bar","symbol":"BTCUSDT","timeframe":60,"time":60,"open":1,"high":3,"low":1,"close":3,"volume":9,"final":true}`))

		// Hold the connection until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ring := ringbuf.New(16)
	c := New(Config{
		URL:         "ws" + strings.TrimPrefix(srv.URL, "http"),
		APIKey:      "k1",
		TOTPSecret:  secret,
		Symbol:      "BTCUSDT",
		Timeframe:   60,
		MaxAttempts: 1,
	}, ring, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	select {
	case sub := <-gotSub:
		if sub["symbol"] != "BTCUSDT" {
			t.Errorf("subscribe symbol = %v", sub["symbol"])
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no subscription received")
	}

	deadline := time.After(5 * time.Second)
	var events []model.BarEvent
	for len(events) < 2 {
		if ev, ok := ring.Pop(); ok {
			events = append(events, ev)
			continue
		}
		select {
		case <-deadline:
			t.Fatalf("only %d events arrived", len(events))
		case <-time.After(time.Millisecond):
		}
	}

	if events[0].Kind != model.BarForming || events[1].Kind != model.BarConfirmed {
		t.Errorf("kinds = %v, %v", events[0].Kind, events[1].Kind)
	}
	if c.LastEventAt().IsZero() {
		t.Error("LastEventAt not recorded")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
