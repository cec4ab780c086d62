package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"blockcal/internal/clock"
	appLog "blockcal/internal/log"
	"blockcal/internal/model"
	"blockcal/internal/store"
)

// ErrUnknownEvent signals a precondition failure: a mutation referenced an
// id absent from the cache. This is a programming error in the host, not a
// store failure, so it is returned rather than converted to a notification.
var ErrUnknownEvent = errors.New("unknown event id")

// Coordinator orchestrates create/update/delete against the remote store,
// applies the confirmed change to the cache and the calendar surface, and
// re-fetches afterwards so concurrent server-side changes are eventually
// reflected. Store failures are converted into notifications here and never
// reach the widget adapter or the gate.
type Coordinator struct {
	store    store.Store
	cache    *Cache
	gate     *Gate
	widget   Widget
	notifier Notifier
	norm     *clock.Normalizer

	// mutateMu serializes user-initiated mutations: a mutation's
	// success/failure handling runs to completion before the next one is
	// accepted.
	mutateMu sync.Mutex
}

// NewCoordinator wires the coordinator. The gate is marked data-loaded by
// the first successful Load.
func NewCoordinator(st store.Store, cache *Cache, gate *Gate, widget Widget, notifier Notifier, norm *clock.Normalizer) *Coordinator {
	return &Coordinator{
		store:    st,
		cache:    cache,
		gate:     gate,
		widget:   widget,
		notifier: notifier,
		norm:     norm,
	}
}

// Cache exposes the mirror for read-only snapshot access.
func (c *Coordinator) Cache() *Cache { return c.cache }

// Load fetches the full collection and replaces the cache wholesale. Before
// the gate is ready it marks data loaded (triggering initialization when
// resources already arrived); afterwards it clears and re-renders the full
// surface. On failure the cache is cleared, the user notified, and the
// surface left as it was.
func (c *Coordinator) Load(ctx context.Context) {
	events, err := c.fetchAll(ctx)
	if err != nil {
		c.cache.Clear()
		appLog.Error("event load failed", err)
		c.notifier.Notify("failed to load events: "+err.Error(), SeverityError)
		return
	}

	c.cache.ReplaceAll(events)
	appLog.Info("event collection loaded", "event_count", len(events))

	if !c.gate.Ready() {
		c.gate.MarkDataLoaded()
		return
	}
	c.widget.RenderAll(c.cache.Snapshot())
}

// Refresh re-issues the underlying data query. This is the system's only
// consistency-repair mechanism; there is no push-based invalidation.
//
// Mutations run it inline before returning, still under mutateMu: the caller
// observes the reconciled collection, and the next mutation's precondition
// check runs against post-refresh state rather than racing a pending
// background fetch.
func (c *Coordinator) Refresh(ctx context.Context) {
	c.Load(ctx)
}

// Create sends the draft to the store, appends the confirmed event (with its
// assigned id) to the cache, draws it, and refreshes. On failure nothing is
// applied.
func (c *Coordinator) Create(ctx context.Context, draft model.Event) (model.Event, error) {
	c.mutateMu.Lock()
	defer c.mutateMu.Unlock()

	if err := draft.Validate(); err != nil {
		return model.Event{}, err
	}

	id, err := c.store.Create(ctx, c.norm.EncodeRecord(draft))
	if err != nil {
		appLog.Error("event create failed", err, "title", draft.Title)
		c.notifier.Notify("failed to create event: "+err.Error(), SeverityError)
		return model.Event{}, err
	}

	created := draft
	created.ID = id
	c.cache.Append(created)
	c.widget.RenderOne(created)
	appLog.Info("event created", "id", id, "title", created.Title)

	c.Refresh(ctx)
	return created, nil
}

// Update requires id to be cached, sends the draft to the store, replaces
// the cached record's mutable fields in place, patches the drawn
// counterpart, and refreshes. On failure the cache is unchanged.
func (c *Coordinator) Update(ctx context.Context, id string, draft model.Event) error {
	c.mutateMu.Lock()
	defer c.mutateMu.Unlock()

	if !c.cache.Has(id) {
		return fmt.Errorf("update precondition failed for %q: %w", id, ErrUnknownEvent)
	}
	if err := draft.Validate(); err != nil {
		return err
	}

	if err := c.store.Update(ctx, id, c.norm.EncodeRecord(draft)); err != nil {
		appLog.Error("event update failed", err, "id", id)
		c.notifier.Notify("failed to update event: "+err.Error(), SeverityError)
		return err
	}

	updated := draft
	updated.ID = id
	c.cache.Replace(updated)
	if _, ok := c.widget.LookupByID(id); ok {
		c.widget.UpdateOne(updated)
	}
	appLog.Info("event updated", "id", id, "title", updated.Title)

	c.Refresh(ctx)
	return nil
}

// Remove requires id to be cached and the notifier to confirm, then deletes
// the event from the store, removes it from the cache and the surface, and
// refreshes. A declined confirmation is a no-op; on failure the cache is
// unchanged.
func (c *Coordinator) Remove(ctx context.Context, id string) error {
	c.mutateMu.Lock()
	defer c.mutateMu.Unlock()

	if !c.cache.Has(id) {
		return fmt.Errorf("remove precondition failed for %q: %w", id, ErrUnknownEvent)
	}
	if !c.notifier.Confirm("delete this event?") {
		appLog.Info("event delete declined", "id", id)
		return nil
	}

	if err := c.store.Delete(ctx, id); err != nil {
		appLog.Error("event delete failed", err, "id", id)
		c.notifier.Notify("failed to delete event: "+err.Error(), SeverityError)
		return err
	}

	c.cache.Remove(id)
	c.widget.RemoveOne(id)
	appLog.Info("event deleted", "id", id)

	c.Refresh(ctx)
	return nil
}

// fetchAll pulls the full collection and normalizes it into events.
// Records that fail to decode are skipped with a log, keeping the rest.
func (c *Coordinator) fetchAll(ctx context.Context) ([]model.Event, error) {
	stored, err := c.store.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	events := make([]model.Event, 0, len(stored))
	for _, st := range stored {
		ev, err := c.norm.DecodeRecord(st.ID, st.Record)
		if err != nil {
			appLog.Warn("skipping undecodable event record", "id", st.ID, "err", err)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}
