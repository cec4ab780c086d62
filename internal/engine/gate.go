package engine

import (
	"sync"

	appLog "blockcal/internal/log"
	"blockcal/internal/model"
)

// Gate tracks the two independent asynchronous completions that must both
// happen before the calendar surface may be initialized: loading of the
// surface's own resources and the initial data fetch. Whichever finishes
// last triggers initialization; repeated marks are no-ops, so initialization
// runs exactly once per session regardless of arrival order.
//
// A resource-load failure pins the gate in a terminal degraded state: the
// surface is never initialized and the failure is only logged.
type Gate struct {
	mu sync.Mutex

	resourcesLoaded bool
	dataLoaded      bool
	failed          bool
	initialized     bool

	widget    Widget
	callbacks Callbacks
	snapshot  func() []model.Event
}

// NewGate builds a gate that will initialize widget with the collection
// returned by snapshot at the moment both completions have arrived.
func NewGate(widget Widget, cb Callbacks, snapshot func() []model.Event) *Gate {
	return &Gate{
		widget:    widget,
		callbacks: cb,
		snapshot:  snapshot,
	}
}

// MarkResourcesLoaded records that the surface's resources finished loading.
// Idempotent.
func (g *Gate) MarkResourcesLoaded() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.resourcesLoaded {
		return
	}
	g.resourcesLoaded = true
	appLog.Debug("gate: resources loaded")
	g.attemptInitialize()
}

// MarkDataLoaded records that the initial data fetch completed. Idempotent.
func (g *Gate) MarkDataLoaded() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.dataLoaded {
		return
	}
	g.dataLoaded = true
	appLog.Debug("gate: data loaded")
	g.attemptInitialize()
}

// MarkResourcesFailed records a resource-load failure. The gate never
// becomes ready afterwards; the calendar stays uninitialized for the rest of
// the session.
func (g *Gate) MarkResourcesFailed(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failed {
		return
	}
	g.failed = true
	appLog.Error("gate: resource load failed, calendar will not initialize", err)
}

// Ready reports whether both completions have arrived.
func (g *Gate) Ready() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.resourcesLoaded && g.dataLoaded && !g.failed
}

// Initialized reports whether the surface was set up this session.
func (g *Gate) Initialized() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.initialized
}

// attemptInitialize runs widget setup iff both completions arrived, nothing
// failed, and setup has not already run. Callers hold g.mu.
func (g *Gate) attemptInitialize() {
	if g.initialized || g.failed {
		return
	}
	if !g.resourcesLoaded || !g.dataLoaded {
		return
	}
	g.initialized = true
	events := g.snapshot()
	appLog.Info("gate: initializing calendar", "event_count", len(events))
	g.widget.Initialize(events, g.callbacks)
}
