package reconcile

import (
	"encoding/json"
	"fmt"

	"chartcore/internal/registry"
)

// LayoutEntry is one indicator's persisted configuration.
type LayoutEntry struct {
	Type    string         `json:"type"`
	Params  map[string]any `json:"params,omitempty"`
	Color   string         `json:"color,omitempty"`
	Visible bool           `json:"visible"`
}

// Layout serializes the active instances, in add order, for persistence.
// Instance ids are not stored; a restore mints fresh ones.
func (r *Reconciler) Layout() ([]byte, error) {
	entries := make([]LayoutEntry, 0, len(r.instances))
	for _, in := range r.instances {
		entries = append(entries, LayoutEntry{
			Type:    string(in.Type),
			Params:  in.Params,
			Color:   in.Color,
			Visible: in.Visible,
		})
	}
	return json.Marshal(entries)
}

// RestoreLayout adds every indicator from a serialized layout. Entries that
// no longer validate (unknown type, renamed param) are skipped with a
// warning instead of failing the whole restore.
func (r *Reconciler) RestoreLayout(data []byte) error {
	var entries []LayoutEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("reconcile: decode layout: %w", err)
	}
	for _, e := range entries {
		in, err := r.AddIndicator(registry.Type(e.Type), e.Params, e.Color)
		if err != nil {
			r.log.Warn("skipping unrestorable layout entry",
				"type", e.Type, "err", err)
			continue
		}
		in.Visible = e.Visible
	}
	return nil
}
