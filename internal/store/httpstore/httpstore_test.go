package httpstore

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"blockcal/internal/model"
	"blockcal/internal/store"
)

func record(title string) model.EventRecord {
	return model.EventRecord{
		Title: title,
		Start: "2024-06-24T09:00:00",
		End:   "2024-06-24T11:00:00",
		Hours: 2,
	}
}

func TestFetchAllConditional(t *testing.T) {
	var fetches atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/events" || r.Method != http.MethodGet {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		fetches.Add(1)
		w.Header().Set("ETag", `"v1"`)
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"id": "7", "title": "standup", "start": "2024-06-24T09:00:00", "end": "2024-06-24T11:00:00", "hours": 2},
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	first, err := c.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("first FetchAll: %v", err)
	}
	if len(first) != 1 || first[0].ID != "7" || first[0].Record.Title != "standup" {
		t.Fatalf("first = %+v", first)
	}

	second, err := c.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("second FetchAll: %v", err)
	}
	if len(second) != 1 || second[0].ID != "7" {
		t.Fatalf("second = %+v", second)
	}
	if fetches.Load() != 1 {
		t.Fatalf("server served %d full fetches, want 1 (second should hit 304)", fetches.Load())
	}
}

func TestFetchErrorPropagatesAfterMutation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Header().Set("ETag", `"v1"`)
			_ = json.NewEncoder(w).Encode([]map[string]any{
				{"id": "1", "title": "standup", "start": "2024-06-24T09:00:00", "end": "2024-06-24T11:00:00", "hours": 2},
			})
		case http.MethodPost:
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"2"}`))
		}
	}))

	c := New(srv.URL)
	if _, err := c.FetchAll(context.Background()); err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if _, err := c.Create(context.Background(), record("retro")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// The store is now ahead of the last fetched collection. A failed fetch
	// must surface as an error, not as the stale pre-mutation collection.
	srv.Close()
	got, err := c.FetchAll(context.Background())
	if err == nil {
		t.Fatalf("FetchAll after network failure = %+v with nil error, want error", got)
	}
}

func TestCreateReturnsAssignedID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/events" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var rec model.EventRecord
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if rec.Title != "standup" {
			t.Errorf("title = %q", rec.Title)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"42"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	id, err := c.Create(context.Background(), record("standup"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id != "42" {
		t.Fatalf("id = %q, want 42", id)
	}
}

func TestUpdateAndDeleteNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL)
	if err := c.Update(context.Background(), "nope", record("x")); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Update err = %v, want ErrNotFound", err)
	}
	if err := c.Delete(context.Background(), "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Delete err = %v, want ErrNotFound", err)
	}
}

func TestMutationSurfacesServerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"title too long"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Create(context.Background(), record("x"))
	if err == nil || err.Error() != "title too long" {
		t.Fatalf("err = %v, want the server-provided message", err)
	}
}

func TestDeletePathEscapesID(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(srv.URL)
	if err := c.Delete(context.Background(), "a/b"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if gotPath != "/events/a%2Fb" {
		t.Fatalf("path = %q", gotPath)
	}
}
