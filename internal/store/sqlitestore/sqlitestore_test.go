package sqlitestore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"blockcal/internal/model"
	"blockcal/internal/store"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func record(title, start, end string, hours float64) model.EventRecord {
	return model.EventRecord{Title: title, Start: start, End: end, Hours: hours}
}

func TestCRUDRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.Create(ctx, record("standup", "2024-06-24T09:00:00", "2024-06-24T11:00:00", 2))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id == "" {
		t.Fatal("empty id assigned")
	}

	all, err := s.FetchAll(ctx)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(all) != 1 || all[0].ID != id || all[0].Record.Title != "standup" {
		t.Fatalf("FetchAll = %+v", all)
	}

	if err := s.Update(ctx, id, record("retro", "2024-06-24T13:00:00", "2024-06-24T14:30:00", 1.5)); err != nil {
		t.Fatalf("Update: %v", err)
	}
	all, _ = s.FetchAll(ctx)
	if all[0].Record.Title != "retro" || all[0].Record.Hours != 1.5 {
		t.Fatalf("after update = %+v", all[0].Record)
	}

	if err := s.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	all, _ = s.FetchAll(ctx)
	if len(all) != 0 {
		t.Fatalf("after delete = %+v", all)
	}
}

func TestFetchAllOrdersByStart(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, record("later", "2024-06-25T09:00:00", "2024-06-25T10:00:00", 1)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.Create(ctx, record("earlier", "2024-06-24T09:00:00", "2024-06-24T10:00:00", 1)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	all, err := s.FetchAll(ctx)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(all) != 2 || all[0].Record.Title != "earlier" || all[1].Record.Title != "later" {
		t.Fatalf("order = %+v", all)
	}
}

func TestMutationsOnUnknownID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.Update(ctx, "missing", record("x", "2024-06-24T09:00:00", "2024-06-24T10:00:00", 1))
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Update err = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Delete err = %v, want ErrNotFound", err)
	}
}

func TestCreateRejectsInvalidRange(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Create(context.Background(), record("x", "2024-06-24T10:00:00", "2024-06-24T09:00:00", 1))
	if err == nil {
		t.Fatal("Create accepted end before start")
	}
	_, err = s.Create(context.Background(), record("x", "not-a-time", "2024-06-24T09:00:00", 1))
	if err == nil {
		t.Fatal("Create accepted unparseable start")
	}
}

func TestSeedExpandsRuleOnce(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	spec := SeedSpec{Rule: "FREQ=DAILY", Hours: 2, Count: 5}
	inserted, err := s.Seed(ctx, spec)
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if inserted != 5 {
		t.Fatalf("inserted = %d, want 5", inserted)
	}

	all, err := s.FetchAll(ctx)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("stored = %d, want 5", len(all))
	}
	for _, st := range all {
		if st.Record.Hours != 2 {
			t.Fatalf("seeded hours = %v, want 2", st.Record.Hours)
		}
		if st.Record.Title == "" {
			t.Fatal("seeded title empty, want ISO date default")
		}
	}

	// Seeding a non-empty store is a no-op.
	again, err := s.Seed(ctx, spec)
	if err != nil {
		t.Fatalf("second Seed: %v", err)
	}
	if again != 0 {
		t.Fatalf("second seed inserted %d, want 0", again)
	}
}

func TestSeedRejectsBadSpec(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Seed(context.Background(), SeedSpec{Rule: "", Hours: 1}); err == nil {
		t.Fatal("Seed accepted empty rule")
	}
	if _, err := s.Seed(context.Background(), SeedSpec{Rule: "FREQ=DAILY", Hours: 0}); err == nil {
		t.Fatal("Seed accepted non-positive hours")
	}
	if _, err := s.Seed(context.Background(), SeedSpec{Rule: "FREQ=NOPE", Hours: 1}); err == nil {
		t.Fatal("Seed accepted unparseable rule")
	}
}
