package publish

import (
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func failN(b *Breaker, n int) {
	for i := 0; i < n; i++ {
		b.Execute(func() error { return errBoom })
	}
}

func TestBreaker_StartsClosed(t *testing.T) {
	b := newBreaker(3, 100*time.Millisecond)
	if got := b.CurrentState(); got != StateClosed {
		t.Errorf("state = %v, want closed", got)
	}
}

func TestBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	b := newBreaker(3, 100*time.Millisecond)
	failN(b, 3)
	if got := b.CurrentState(); got != StateOpen {
		t.Fatalf("state = %v, want open", got)
	}

	// Inside the cooldown every call is rejected without running.
	ran := false
	err := b.Execute(func() error { ran = true; return nil })
	if err != ErrBreakerOpen {
		t.Errorf("err = %v, want ErrBreakerOpen", err)
	}
	if ran {
		t.Error("rejected call still ran")
	}
}

func TestBreaker_ProbeSuccessCloses(t *testing.T) {
	b := newBreaker(2, 50*time.Millisecond)
	failN(b, 2)
	if b.CurrentState() != StateOpen {
		t.Fatal("breaker did not trip")
	}

	time.Sleep(60 * time.Millisecond)
	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("probe err = %v", err)
	}
	if got := b.CurrentState(); got != StateClosed {
		t.Errorf("state after probe = %v, want closed", got)
	}
}

func TestBreaker_ProbeFailureReopens(t *testing.T) {
	b := newBreaker(2, 50*time.Millisecond)
	failN(b, 2)

	time.Sleep(60 * time.Millisecond)
	failN(b, 1)
	if got := b.CurrentState(); got != StateOpen {
		t.Errorf("state after failed probe = %v, want open", got)
	}
}

func TestBreaker_SuccessResetsFailureRun(t *testing.T) {
	b := newBreaker(3, 100*time.Millisecond)
	failN(b, 2)
	b.Execute(func() error { return nil })
	failN(b, 2)
	if got := b.CurrentState(); got != StateClosed {
		t.Errorf("state = %v, want closed (run broken by success)", got)
	}
}

func TestBreaker_StateChangeCallback(t *testing.T) {
	var transitions []State
	b := newBreaker(1, 50*time.Millisecond)
	b.OnStateChange = func(from, to State) {
		transitions = append(transitions, to)
	}

	failN(b, 1)
	if len(transitions) != 1 || transitions[0] != StateOpen {
		t.Fatalf("transitions = %v, want [open]", transitions)
	}

	time.Sleep(60 * time.Millisecond)
	b.Execute(func() error { return nil })
	want := []State{StateOpen, StateHalfOpen, StateClosed}
	if len(transitions) != 3 || transitions[1] != want[1] || transitions[2] != want[2] {
		t.Errorf("transitions = %v, want %v", transitions, want)
	}
}

func TestKeyFormats(t *testing.T) {
	if got := barStream("BTCUSDT", 60); got != "bars:BTCUSDT:60s" {
		t.Errorf("barStream = %q", got)
	}
	if got := barLatestKey("BTCUSDT", 60); got != "bars:BTCUSDT:60s:latest" {
		t.Errorf("barLatestKey = %q", got)
	}
	if got := barChannel("BTCUSDT", 300); got != "pub:bar:300s:BTCUSDT" {
		t.Errorf("barChannel = %q", got)
	}
	if got := indChannel("SMA", "BTCUSDT", 60); got != "pub:ind:SMA:60s:BTCUSDT" {
		t.Errorf("indChannel = %q", got)
	}
	if got := indStream("RSI", "ETHUSDT", 300); got != "ind:RSI:ETHUSDT:300s" {
		t.Errorf("indStream = %q", got)
	}
}

func TestStreamMaxLen(t *testing.T) {
	cases := []struct {
		tf   int
		want int64
	}{
		{1, 10900},
		{60, 280},
		{300, 200}, // floor
		{0, 200},   // guard
	}
	for _, tc := range cases {
		if got := streamMaxLen(tc.tf); got != tc.want {
			t.Errorf("streamMaxLen(%d) = %d, want %d", tc.tf, got, tc.want)
		}
	}
}
