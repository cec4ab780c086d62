package engine

import (
	"context"
	"sync"
	"time"

	"blockcal/internal/clock"
	"blockcal/internal/model"
)

// EditSession is the value snapshot of the single active edit interaction.
// An empty SelectedID means create mode; otherwise the session targets that
// cached event. Draft is a copy, never an alias of a cache entry.
type EditSession struct {
	SelectedID string
	Draft      model.Event
	Open       bool
}

// Session holds the currently active edit session. Opening a new session
// while one is open discards the previous draft wholesale; there is no
// merging.
type Session struct {
	mu   sync.Mutex
	cur  EditSession
	norm *clock.Normalizer
}

// NewSession returns a closed session holder.
func NewSession(norm *clock.Normalizer) *Session {
	return &Session{norm: norm}
}

// OpenForRange starts a create-mode session for the selected time range.
// The draft title defaults to the ISO date of the range's local start.
func (s *Session) OpenForRange(start, end time.Time) EditSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	draft := model.Event{
		Title: clock.DateTitle(s.norm.ToLocal(start)),
	}.WithTimes(start, end)
	s.cur = EditSession{Draft: draft, Open: true}
	return s.cur
}

// OpenForEvent starts an update-mode session targeting the given cached
// event. The draft is a copy; edits do not touch the cache until committed.
func (s *Session) OpenForEvent(ev model.Event) EditSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = EditSession{SelectedID: ev.ID, Draft: ev, Open: true}
	return s.cur
}

// SetTitle edits the open draft's title.
func (s *Session) SetTitle(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cur.Open {
		return
	}
	s.cur.Draft.Title = title
}

// SetTimes edits the open draft's range, recomputing the derived duration.
func (s *Session) SetTimes(start, end time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cur.Open {
		return
	}
	s.cur.Draft = s.cur.Draft.WithTimes(start, end)
}

// Current returns the session snapshot.
func (s *Session) Current() EditSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// Close discards the session.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = EditSession{}
}

// Commit sends the draft through the coordinator: create when no event is
// selected, update otherwise. The session closes on success and stays open
// with the draft intact on failure so the user can retry or cancel.
func (s *Session) Commit(ctx context.Context, c *Coordinator) error {
	s.mu.Lock()
	cur := s.cur
	s.mu.Unlock()

	if !cur.Open {
		return nil
	}

	var err error
	if cur.SelectedID == "" {
		_, err = c.Create(ctx, cur.Draft)
	} else {
		err = c.Update(ctx, cur.SelectedID, cur.Draft)
	}
	if err != nil {
		return err
	}
	s.Close()
	return nil
}
