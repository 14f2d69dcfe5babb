package reconcile

import (
	"testing"

	"chartcore/internal/model"
	"chartcore/internal/registry"
	"chartcore/internal/store"
)

func TestLayout_RoundTrip(t *testing.T) {
	st := store.New()
	st.ReplaceAll([]model.Candle{bar(0, 10), bar(60, 12), bar(120, 14)})
	r := New(st, testLogger())

	a, _ := r.AddIndicator(registry.SMA, map[string]any{"period": 2}, "#ff0000")
	b, _ := r.AddIndicator(registry.RSI, nil, "#00ff00")
	b.Visible = false
	_ = a

	blob, err := r.Layout()
	if err != nil {
		t.Fatal(err)
	}

	r2 := New(st, testLogger())
	if err := r2.RestoreLayout(blob); err != nil {
		t.Fatal(err)
	}
	got := r2.Instances()
	if len(got) != 2 {
		t.Fatalf("restored %d instances, want 2", len(got))
	}
	if got[0].Type != registry.SMA || got[1].Type != registry.RSI {
		t.Errorf("types = %s, %s", got[0].Type, got[1].Type)
	}
	if got[0].Color != "#ff0000" {
		t.Errorf("color = %s", got[0].Color)
	}
	if got[1].Visible {
		t.Error("hidden instance restored as visible")
	}
	// Restored instances compute immediately, like any added indicator.
	if got[0].Output() == nil {
		t.Error("restored instance has no output")
	}
}

func TestRestoreLayout_SkipsBadEntries(t *testing.T) {
	r := New(store.New(), testLogger())
	blob := []byte(`[{"type":"BOGUS","visible":true},{"type":"EMA","visible":true}]`)
	if err := r.RestoreLayout(blob); err != nil {
		t.Fatal(err)
	}
	got := r.Instances()
	if len(got) != 1 || got[0].Type != registry.EMA {
		t.Fatalf("instances = %+v, want just the EMA", got)
	}

	if err := r.RestoreLayout([]byte(`{not json`)); err == nil {
		t.Error("malformed layout must error")
	}
}
