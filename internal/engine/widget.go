// Package engine keeps a client-side mirror of a remote event collection
// consistent with a calendar surface: readiness gating, cached CRUD against
// the store, the edit session, and the derived hours aggregation.
package engine

import (
	"time"

	"blockcal/internal/model"
)

// Callbacks are the gesture entry points the calendar surface emits. Each
// one leads into edit-session opening logic in the host.
type Callbacks struct {
	OnRangeSelect func(start, end time.Time)
	OnEventClick  func(ev model.Event)
	OnEventDrop   func(ev model.Event)
	OnEventResize func(ev model.Event)
}

// Widget abstracts the calendar surface so the engine never holds a
// globally-mutable rendering object. Implementations render in the local
// zone by convention; all events handed over carry absolute instants.
type Widget interface {
	// Initialize sets up the surface with the initial collection. Called
	// exactly once per session, by the readiness gate.
	Initialize(events []model.Event, cb Callbacks)

	// RenderAll replaces everything drawn with the given collection.
	RenderAll(events []model.Event)

	// RenderOne draws one newly created event.
	RenderOne(ev model.Event)

	// UpdateOne patches the visual counterpart of an already drawn event.
	UpdateOne(ev model.Event)

	// RemoveOne erases the visual counterpart of the given id.
	RemoveOne(id string)

	// LookupByID finds the drawn event for an id, if any.
	LookupByID(id string) (model.Event, bool)
}

// Severity classifies user notifications.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityError Severity = "error"
)

// Notifier is the confirmation/toast surface. Confirm blocks until the user
// answers; Notify is fire-and-forget.
type Notifier interface {
	Confirm(message string) bool
	Notify(message string, severity Severity)
}
