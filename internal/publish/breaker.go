package publish

import (
	"errors"
	"sync"
	"time"
)

// ErrBreakerOpen is returned while the breaker is rejecting calls.
var ErrBreakerOpen = errors.New("publish: breaker open")

// State is the breaker's position.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// Breaker trips after a run of consecutive failures and rejects calls for a
// cooldown period. The first call after the cooldown runs as a probe: success
// closes the breaker, failure reopens it for another cooldown.
type Breaker struct {
	trip     int
	cooldown time.Duration

	mu       sync.Mutex
	state    State
	failures int
	lastFail time.Time

	// OnStateChange is called on every transition. Optional.
	OnStateChange func(from, to State)
}

func newBreaker(trip int, cooldown time.Duration) *Breaker {
	return &Breaker{trip: trip, cooldown: cooldown}
}

// Execute runs fn unless the breaker is open inside its cooldown, in which
// case it returns ErrBreakerOpen without calling fn.
func (b *Breaker) Execute(fn func() error) error {
	if err := b.allow(); err != nil {
		return err
	}
	err := fn()
	b.record(err)
	return err
}

// CurrentState reports the breaker's position.
func (b *Breaker) CurrentState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen {
		if time.Since(b.lastFail) <= b.cooldown {
			return ErrBreakerOpen
		}
		b.shift(StateHalfOpen)
	}
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		if b.state == StateHalfOpen {
			b.shift(StateClosed)
		}
		b.failures = 0
		return
	}
	b.failures++
	b.lastFail = time.Now()
	if b.state == StateHalfOpen || b.failures >= b.trip {
		b.shift(StateOpen)
	}
}

func (b *Breaker) shift(to State) {
	from := b.state
	b.state = to
	if to == StateClosed {
		b.failures = 0
	}
	if b.OnStateChange != nil {
		b.OnStateChange(from, to)
	}
}
