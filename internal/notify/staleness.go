package notify

import (
	"context"
	"fmt"
	"time"
)

// StalenessWatcher polls a last-event clock and raises one alert when the
// feed goes quiet past the threshold, and one more when it recovers.
type StalenessWatcher struct {
	lastEvent func() time.Time
	notifier  Notifier
	threshold time.Duration
	interval  time.Duration

	stale bool
}

// NewStalenessWatcher creates a watcher over lastEvent (e.g. the feed
// client's LastEventAt).
func NewStalenessWatcher(lastEvent func() time.Time, n Notifier, threshold, interval time.Duration) *StalenessWatcher {
	return &StalenessWatcher{
		lastEvent: lastEvent,
		notifier:  n,
		threshold: threshold,
		interval:  interval,
	}
}

// Run polls until ctx is cancelled.
func (w *StalenessWatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.check(ctx, time.Now())
		}
	}
}

// check evaluates one tick. Exposed for tests; Run is the production path.
func (w *StalenessWatcher) check(ctx context.Context, now time.Time) {
	last := w.lastEvent()
	if last.IsZero() {
		// No data yet; stay quiet until the first event arrives.
		return
	}
	age := now.Sub(last)

	switch {
	case age > w.threshold && !w.stale:
		w.stale = true
		w.notifier.Send(ctx, Alert{
			Level:   AlertCritical,
			Title:   "bar feed stale",
			Message: fmt.Sprintf("no bar events for %s (threshold %s)", age.Round(time.Second), w.threshold),
		})
	case age <= w.threshold && w.stale:
		w.stale = false
		w.notifier.Send(ctx, Alert{
			Level:   AlertInfo,
			Title:   "bar feed recovered",
			Message: fmt.Sprintf("bar events flowing again, last event %s ago", age.Round(time.Second)),
		})
	}
}
