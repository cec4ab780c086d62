package sqlitestore

import (
	"context"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"blockcal/internal/clock"
	appLog "blockcal/internal/log"
	"blockcal/internal/model"
)

const defaultSeedCount = 10

// SeedSpec describes recurring time blocks to pre-populate an empty store
// with. Rule is an RFC 5545 RRULE string such as
// "FREQ=WEEKLY;BYDAY=MO,TU,WE,TH,FR". Hours is the block length; Title, when
// empty, defaults to each occurrence's ISO date the same way a fresh draft
// would.
type SeedSpec struct {
	Rule  string
	Title string
	Hours float64
	Count int
}

// Seed expands the spec's recurrence rule into concrete blocks and inserts
// them. It is a no-op on a non-empty store so restarts do not duplicate
// blocks. Returns the number of inserted events.
func (s *Store) Seed(ctx context.Context, spec SeedSpec) (int, error) {
	if spec.Rule == "" {
		return 0, fmt.Errorf("seed rule is required")
	}
	if spec.Hours <= 0 {
		return 0, fmt.Errorf("seed hours must be positive")
	}
	if spec.Count <= 0 {
		spec.Count = defaultSeedCount
	}

	var existing int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&existing); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	if existing > 0 {
		appLog.Debug("seed skipped, store not empty", "event_count", existing)
		return 0, nil
	}

	r, err := rrule.StrToRRule(spec.Rule)
	if err != nil {
		return 0, fmt.Errorf("parse seed rule %q: %w", spec.Rule, err)
	}

	// Anchor occurrences at 09:00 today; the rule then selects which days
	// actually get a block.
	now := time.Now()
	anchor := time.Date(now.Year(), now.Month(), now.Day(), 9, 0, 0, 0, time.UTC)
	r.DTStart(anchor)

	times := r.Between(anchor, anchor.AddDate(1, 0, 0), true)
	if len(times) > spec.Count {
		times = times[:spec.Count]
	}

	inserted := 0
	for _, start := range times {
		end := start.Add(time.Duration(spec.Hours * float64(time.Hour)))
		title := spec.Title
		if title == "" {
			title = clock.DateTitle(start)
		}
		rec := model.EventRecord{
			Title: title,
			Start: model.FormatWireTime(start),
			End:   model.FormatWireTime(end),
			Hours: model.RoundHours(end.Sub(start)),
		}
		if _, err := s.Create(ctx, rec); err != nil {
			return inserted, fmt.Errorf("insert seed block: %w", err)
		}
		inserted++
	}

	appLog.Info("seeded local store", "rule", spec.Rule, "inserted", inserted)
	return inserted, nil
}
