package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"blockcal/internal/clock"
	"blockcal/internal/model"
	"blockcal/internal/store"
)

// fakeStore is an in-memory store.Store with injectable failures.
type fakeStore struct {
	mu     sync.Mutex
	events []store.Stored
	nextID int

	failFetch  error
	failCreate error
	failUpdate error
	failDelete error
}

func newFakeStore() *fakeStore {
	return &fakeStore{}
}

func (f *fakeStore) FetchAll(_ context.Context) ([]store.Stored, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFetch != nil {
		return nil, f.failFetch
	}
	out := make([]store.Stored, len(f.events))
	copy(out, f.events)
	return out, nil
}

func (f *fakeStore) Create(_ context.Context, rec model.EventRecord) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil {
		return "", f.failCreate
	}
	f.nextID++
	id := fmt.Sprintf("%d", f.nextID+41) // first assigned id is "42"
	f.events = append(f.events, store.Stored{ID: id, Record: rec})
	return id, nil
}

func (f *fakeStore) Update(_ context.Context, id string, rec model.EventRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdate != nil {
		return f.failUpdate
	}
	for i := range f.events {
		if f.events[i].ID == id {
			f.events[i].Record = rec
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete != nil {
		return f.failDelete
	}
	for i := range f.events {
		if f.events[i].ID == id {
			f.events = append(f.events[:i], f.events[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

// fakeWidget records every adapter call.
type fakeWidget struct {
	mu          sync.Mutex
	initCount   int
	initEvents  []model.Event
	callbacks   Callbacks
	renderAlls  int
	renderOnes  []model.Event
	updateOnes  []model.Event
	removeOnes  []string
	lastRenders []model.Event
}

func (w *fakeWidget) Initialize(events []model.Event, cb Callbacks) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.initCount++
	w.initEvents = events
	w.callbacks = cb
	w.lastRenders = events
}

func (w *fakeWidget) RenderAll(events []model.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.renderAlls++
	w.lastRenders = events
}

func (w *fakeWidget) RenderOne(ev model.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.renderOnes = append(w.renderOnes, ev)
	w.lastRenders = append(w.lastRenders, ev)
}

func (w *fakeWidget) UpdateOne(ev model.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.updateOnes = append(w.updateOnes, ev)
}

func (w *fakeWidget) RemoveOne(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.removeOnes = append(w.removeOnes, id)
}

func (w *fakeWidget) LookupByID(id string) (model.Event, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, ev := range w.lastRenders {
		if ev.ID == id {
			return ev, true
		}
	}
	return model.Event{}, false
}

// fakeNotifier records notifications and answers confirmations with a
// preset response.
type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
	answer   bool
}

func (n *fakeNotifier) Confirm(string) bool {
	return n.answer
}

func (n *fakeNotifier) Notify(message string, _ Severity) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

// harness bundles a fully wired engine over fakes, with the gate already
// opened so mutations render immediately.
type harness struct {
	store    *fakeStore
	widget   *fakeWidget
	notifier *fakeNotifier
	cache    *Cache
	gate     *Gate
	coord    *Coordinator
	norm     *clock.Normalizer
}

func newHarness(ready bool) *harness {
	h := &harness{
		store:    newFakeStore(),
		widget:   &fakeWidget{},
		notifier: &fakeNotifier{answer: true},
		cache:    NewCache(),
		norm:     clock.FixedNormalizer("TST", 9*time.Hour),
	}
	h.gate = NewGate(h.widget, Callbacks{}, h.cache.Snapshot)
	h.coord = NewCoordinator(h.store, h.cache, h.gate, h.widget, h.notifier, h.norm)
	if ready {
		h.gate.MarkResourcesLoaded()
		h.gate.MarkDataLoaded()
	}
	return h
}

// at builds a deterministic absolute instant on whole seconds so record
// round trips are exact.
func at(hour, min int) time.Time {
	return time.Date(2024, 6, 24, hour, min, 0, 0, time.UTC)
}

// storedBlock builds a store record the way the engine would persist it,
// so load round trips are exact.
func storedBlock(id, title string, startHour, endHour int) store.Stored {
	n := clock.FixedNormalizer("TST", 9*time.Hour)
	ev := model.Event{ID: id, Title: title}.WithTimes(at(startHour, 0), at(endHour, 0))
	return store.Stored{ID: id, Record: n.EncodeRecord(ev)}
}

// eventNamed builds a two-hour cached event for tests.
func eventNamed(id, title string) model.Event {
	return model.Event{ID: id, Title: title}.WithTimes(at(9, 0), at(11, 0))
}

var errStore = errors.New("store says no")
