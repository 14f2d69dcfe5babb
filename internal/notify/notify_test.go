package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type recordingNotifier struct {
	alerts []Alert
}

func (r *recordingNotifier) Send(ctx context.Context, a Alert) error {
	r.alerts = append(r.alerts, a)
	return nil
}

func TestWebhookNotifier_PostsJSON(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %s", ct)
		}
		json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	err := n.Send(context.Background(), Alert{Level: AlertWarning, Title: "t", Message: "m"})
	if err != nil {
		t.Fatal(err)
	}
	if got["level"] != "WARNING" || got["title"] != "t" || got["message"] != "m" {
		t.Errorf("payload = %v", got)
	}
	if _, ok := got["ts"]; !ok {
		t.Error("payload missing ts")
	}
}

func TestWebhookNotifier_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	if err := n.Send(context.Background(), Alert{}); err == nil {
		t.Error("expected error on 502")
	}
}

func TestStalenessWatcher_AlertOnceAndRecover(t *testing.T) {
	rec := &recordingNotifier{}
	last := time.Now()
	w := NewStalenessWatcher(func() time.Time { return last }, rec, 30*time.Second, time.Second)
	ctx := context.Background()

	now := last.Add(10 * time.Second)
	w.check(ctx, now)
	if len(rec.alerts) != 0 {
		t.Fatalf("fresh feed raised %d alerts", len(rec.alerts))
	}

	// Cross the threshold: exactly one critical alert, repeated checks stay quiet.
	now = last.Add(45 * time.Second)
	w.check(ctx, now)
	w.check(ctx, now.Add(time.Second))
	if len(rec.alerts) != 1 || rec.alerts[0].Level != AlertCritical {
		t.Fatalf("alerts = %+v, want one CRITICAL", rec.alerts)
	}

	// Feed resumes: one recovery alert.
	last = now.Add(2 * time.Second)
	w.check(ctx, now.Add(3*time.Second))
	if len(rec.alerts) != 2 || rec.alerts[1].Level != AlertInfo {
		t.Fatalf("alerts = %+v, want recovery INFO", rec.alerts)
	}
}

func TestStalenessWatcher_QuietBeforeFirstEvent(t *testing.T) {
	rec := &recordingNotifier{}
	w := NewStalenessWatcher(func() time.Time { return time.Time{} }, rec, time.Second, time.Second)
	w.check(context.Background(), time.Now())
	if len(rec.alerts) != 0 {
		t.Errorf("zero-clock check raised alerts: %+v", rec.alerts)
	}
}
