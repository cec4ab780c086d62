// Package widget provides the in-process calendar surface that backs the
// embedded web UI: it keeps the rendered-view list the /calendar page polls.
package widget

import (
	"sync"
	"time"

	"blockcal/internal/engine"
	appLog "blockcal/internal/log"
	"blockcal/internal/model"
)

// ViewState implements engine.Widget by tracking what is currently drawn.
// The web layer serves this list to the browser page, which repaints on
// change; gesture callbacks arrive back through the HTTP API.
type ViewState struct {
	mu          sync.RWMutex
	initialized bool
	drawn       []model.Event
	callbacks   engine.Callbacks
}

// New returns an empty, uninitialized surface.
func New() *ViewState {
	return &ViewState{}
}

// Initialize implements engine.Widget.
func (v *ViewState) Initialize(events []model.Event, cb engine.Callbacks) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.initialized = true
	v.callbacks = cb
	v.drawn = cloneEvents(events)
	appLog.Info("calendar surface initialized", "event_count", len(events))
}

// RenderAll implements engine.Widget (clear-then-render).
func (v *ViewState) RenderAll(events []model.Event) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.drawn = cloneEvents(events)
}

// RenderOne implements engine.Widget.
func (v *ViewState) RenderOne(ev model.Event) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.drawn = append(v.drawn, ev)
}

// UpdateOne implements engine.Widget.
func (v *ViewState) UpdateOne(ev model.Event) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.drawn {
		if v.drawn[i].ID == ev.ID {
			v.drawn[i] = ev
			return
		}
	}
}

// RemoveOne implements engine.Widget.
func (v *ViewState) RemoveOne(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.drawn {
		if v.drawn[i].ID == id {
			v.drawn = append(v.drawn[:i], v.drawn[i+1:]...)
			return
		}
	}
}

// LookupByID implements engine.Widget.
func (v *ViewState) LookupByID(id string) (model.Event, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, ev := range v.drawn {
		if ev.ID == id {
			return ev, true
		}
	}
	return model.Event{}, false
}

// EmitRangeSelect invokes the range-select gesture callback the gate wired
// in. Returns false before initialization or when no callback is set.
func (v *ViewState) EmitRangeSelect(start, end time.Time) bool {
	cb, ok := v.gestureCallbacks()
	if !ok || cb.OnRangeSelect == nil {
		return false
	}
	cb.OnRangeSelect(start, end)
	return true
}

// EmitEventClick invokes the event-click gesture callback.
func (v *ViewState) EmitEventClick(ev model.Event) bool {
	cb, ok := v.gestureCallbacks()
	if !ok || cb.OnEventClick == nil {
		return false
	}
	cb.OnEventClick(ev)
	return true
}

// EmitEventDrop invokes the drag-drop gesture callback with the moved event.
func (v *ViewState) EmitEventDrop(ev model.Event) bool {
	cb, ok := v.gestureCallbacks()
	if !ok || cb.OnEventDrop == nil {
		return false
	}
	cb.OnEventDrop(ev)
	return true
}

// EmitEventResize invokes the resize gesture callback with the resized event.
func (v *ViewState) EmitEventResize(ev model.Event) bool {
	cb, ok := v.gestureCallbacks()
	if !ok || cb.OnEventResize == nil {
		return false
	}
	cb.OnEventResize(ev)
	return true
}

func (v *ViewState) gestureCallbacks() (engine.Callbacks, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if !v.initialized {
		return engine.Callbacks{}, false
	}
	return v.callbacks, true
}

// Initialized reports whether the gate has set the surface up. The /calendar
// page uses this to flip its data-ready attribute.
func (v *ViewState) Initialized() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.initialized
}

// Drawn returns a copy of the currently drawn events.
func (v *ViewState) Drawn() []model.Event {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return cloneEvents(v.drawn)
}

func cloneEvents(in []model.Event) []model.Event {
	out := make([]model.Event, len(in))
	copy(out, in)
	return out
}

var _ engine.Widget = (*ViewState)(nil)
