// Package reconcile keeps every active indicator instance's output series
// consistent with the candle store. It subscribes to store changes and
// recomputes each instance's outputs, swapping them in atomically so a
// consumer never observes a partially-updated instance.
//
// Single-goroutine, like the rest of the pipeline: store notification,
// recompute, and output swap all run synchronously on the mutating caller's
// goroutine.
package reconcile

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"chartcore/internal/indicator"
	"chartcore/internal/model"
	"chartcore/internal/registry"
	"chartcore/internal/store"
)

// ErrNoInstance is returned for operations on an unknown instance id.
var ErrNoInstance = errors.New("reconcile: no such indicator instance")

// Instance is one live indicator: its identity, configuration, and the
// most recently reconciled outputs.
type Instance struct {
	ID      string
	Type    registry.Type
	Desc    registry.Descriptor
	Params  registry.Params
	Color   string
	Visible bool

	output  indicator.Output
	lastErr error
}

// Output returns the instance's current reconciled output, or nil when the
// last computation failed (the instance renders as absent, not as an error).
func (in *Instance) Output() indicator.Output {
	if in.lastErr != nil {
		return nil
	}
	return in.output
}

// Err returns the last computation error, if any.
func (in *Instance) Err() error { return in.lastErr }

// Reconciler owns indicator computation for one candle store.
type Reconciler struct {
	store *store.CandleStore
	log   *slog.Logger

	view      model.Window
	instances []*Instance
	byID      map[string]*Instance

	// OnRemove is called when an instance is removed so the renderer can
	// drop its drawable series. Optional.
	OnRemove func(id string)
	// OnCompute reports each computation for metrics. Optional.
	OnCompute func(typ registry.Type, d time.Duration, err error)
	// OnInstances reports the active instance count after every add or
	// remove. Optional.
	OnInstances func(n int)
}

// New creates a reconciler subscribed to the store.
func New(st *store.CandleStore, log *slog.Logger) *Reconciler {
	r := &Reconciler{
		store: st,
		log:   log,
		byID:  make(map[string]*Instance),
		view:  model.Window{StartIndex: 0, VisibleCount: 1},
	}
	st.Subscribe(r.onStoreChange)
	return r
}

// AddIndicator validates the type and params against the registry, creates
// an instance, and computes its outputs immediately — the caller never sees
// an empty frame for a freshly added indicator.
func (r *Reconciler) AddIndicator(typ registry.Type, params map[string]any, color string) (*Instance, error) {
	desc, err := registry.Lookup(typ)
	if err != nil {
		return nil, err
	}
	resolved, err := desc.Resolve(params)
	if err != nil {
		return nil, err
	}
	in := &Instance{
		ID:      uuid.NewString(),
		Type:    typ,
		Desc:    desc,
		Params:  resolved,
		Color:   color,
		Visible: true,
	}
	r.compute(in)
	r.instances = append(r.instances, in)
	r.byID[in.ID] = in
	if r.OnInstances != nil {
		r.OnInstances(len(r.instances))
	}
	return in, nil
}

// RemoveIndicator discards an instance and its outputs.
func (r *Reconciler) RemoveIndicator(id string) error {
	in, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoInstance, id)
	}
	delete(r.byID, id)
	for i := range r.instances {
		if r.instances[i] == in {
			r.instances = append(r.instances[:i], r.instances[i+1:]...)
			break
		}
	}
	if r.OnRemove != nil {
		r.OnRemove(id)
	}
	if r.OnInstances != nil {
		r.OnInstances(len(r.instances))
	}
	return nil
}

// UpdateParams re-resolves an instance's params and recomputes synchronously.
func (r *Reconciler) UpdateParams(id string, params map[string]any) error {
	in, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoInstance, id)
	}
	resolved, err := in.Desc.Resolve(params)
	if err != nil {
		return err
	}
	in.Params = resolved
	r.compute(in)
	return nil
}

// Outputs returns the reconciled output for an instance id.
func (r *Reconciler) Outputs(id string) (indicator.Output, error) {
	in, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoInstance, id)
	}
	return in.Output(), nil
}

// Instances returns the active instances in add order.
func (r *Reconciler) Instances() []*Instance {
	out := make([]*Instance, len(r.instances))
	copy(out, r.instances)
	return out
}

// SetView updates the visible window and recomputes the instances whose
// output depends on it (visible-range profiles).
func (r *Reconciler) SetView(w model.Window) {
	r.view = w.Clamp(r.store.Len())
	for _, in := range r.instances {
		if in.Desc.Hint == registry.HintProfile {
			r.compute(in)
		}
	}
}

// onStoreChange recomputes every instance from the full candle array.
// Full recomputation is the correctness baseline; an incremental path would
// have to be output-identical to this.
func (r *Reconciler) onStoreChange(store.Change) {
	for _, in := range r.instances {
		r.compute(in)
	}
}

// compute runs one instance's calculator and swaps the output in whole.
// A failed computation clears the output — the rest of the chart is
// unaffected.
func (r *Reconciler) compute(in *Instance) {
	started := time.Now()
	out, err := indicator.Compute(in.Type, r.store.All(), in.Params, r.view)
	if r.OnCompute != nil {
		r.OnCompute(in.Type, time.Since(started), err)
	}
	if err != nil {
		in.lastErr = err
		in.output = nil
		r.log.Warn("indicator computation failed",
			slog.String("id", in.ID), slog.String("type", string(in.Type)), slog.Any("err", err))
		return
	}
	in.lastErr = nil
	in.output = out
}
