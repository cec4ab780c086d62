// Package web exposes the engine over HTTP: the events API the embedded
// calendar page drives, the aggregation summary, and the iCalendar feed.
package web

import (
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"strings"

	"blockcal/internal/clock"
	"blockcal/internal/config"
	"blockcal/internal/engine"
	"blockcal/internal/ical"
	appLog "blockcal/internal/log"
	"blockcal/internal/model"
	"blockcal/internal/widget"
)

// Server provides the HTTP API and the embedded calendar page.
type Server struct {
	cfg      *config.Config
	coord    *engine.Coordinator
	session  *engine.Session
	surface  *widget.ViewState
	notifier *widget.LogNotifier
	norm     *clock.Normalizer
	mux      *http.ServeMux
}

//go:embed all:static
var embeddedStatic embed.FS

// NewServer constructs the server around an already wired engine.
func NewServer(cfg *config.Config, coord *engine.Coordinator, session *engine.Session, surface *widget.ViewState, notifier *widget.LogNotifier, norm *clock.Normalizer) *Server {
	s := &Server{
		cfg:      cfg,
		coord:    coord,
		session:  session,
		surface:  surface,
		notifier: notifier,
		norm:     norm,
		mux:      http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the http.Handler, wrapped with basic auth when configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /api/events", s.handleListEvents)
	s.mux.HandleFunc("POST /api/events", s.handleCreateEvent)
	s.mux.HandleFunc("PUT /api/events/{id}", s.handleUpdateEvent)
	s.mux.HandleFunc("DELETE /api/events/{id}", s.handleDeleteEvent)
	s.mux.HandleFunc("POST /api/events/{id}/move", s.handleMoveEvent)
	s.mux.HandleFunc("POST /api/events/{id}/resize", s.handleResizeEvent)

	s.mux.HandleFunc("POST /api/session/range", s.handleSessionRange)
	s.mux.HandleFunc("POST /api/session/event", s.handleSessionEvent)
	s.mux.HandleFunc("PATCH /api/session", s.handleSessionPatch)
	s.mux.HandleFunc("POST /api/session/commit", s.handleSessionCommit)
	s.mux.HandleFunc("DELETE /api/session", s.handleSessionClose)

	s.mux.HandleFunc("GET /api/summary", s.handleSummary)
	s.mux.HandleFunc("GET /api/view", s.handleView)
	s.mux.HandleFunc("GET /api/notices", s.handleNotices)
	s.mux.HandleFunc("GET /calendar.ics", s.handleICS)

	// Everything else is the embedded calendar page.
	s.mux.Handle("/", s.staticFileServer())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// eventDTO is the JSON shape of one event: times in the naive local wire
// representation the page edits in.
type eventDTO struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Start string  `json:"start"`
	End   string  `json:"end"`
	Hours float64 `json:"hours"`
}

func (s *Server) toDTO(ev model.Event) eventDTO {
	rec := s.norm.EncodeRecord(ev)
	return eventDTO{ID: ev.ID, Title: rec.Title, Start: rec.Start, End: rec.End, Hours: rec.Hours}
}

func (s *Server) toDTOs(events []model.Event) []eventDTO {
	out := make([]eventDTO, 0, len(events))
	for _, ev := range events {
		out = append(out, s.toDTO(ev))
	}
	return out
}

func (s *Server) handleListEvents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.toDTOs(s.coord.Cache().Snapshot()))
}

// eventWriteRequest is the body of the direct create/update endpoints:
// title plus a naive local time range. Hours are derived, never accepted.
type eventWriteRequest struct {
	Title string `json:"title"`
	Start string `json:"start"`
	End   string `json:"end"`
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req eventWriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	draft, err := s.norm.DecodeRecord("", model.EventRecord{Title: req.Title, Start: req.Start, End: req.End})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := s.coord.Create(r.Context(), draft)
	if err != nil {
		writeError(w, statusForMutation(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, s.toDTO(created))
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req eventWriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	draft, err := s.norm.DecodeRecord(id, model.EventRecord{Title: req.Title, Start: req.Start, End: req.End})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.coord.Update(r.Context(), id, draft); err != nil {
		writeError(w, statusForMutation(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.toDTO(draft))
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.coord.Remove(r.Context(), id); err != nil {
		writeError(w, statusForMutation(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// rangeRequest carries a naive local time range from the page.
type rangeRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// handleMoveEvent relays a drag-drop gesture: the drawn event moved to a new
// range.
func (s *Server) handleMoveEvent(w http.ResponseWriter, r *http.Request) {
	s.relayRangeGesture(w, r, s.surface.EmitEventDrop)
}

// handleResizeEvent relays a resize gesture.
func (s *Server) handleResizeEvent(w http.ResponseWriter, r *http.Request) {
	s.relayRangeGesture(w, r, s.surface.EmitEventResize)
}

func (s *Server) relayRangeGesture(w http.ResponseWriter, r *http.Request, emit func(model.Event) bool) {
	id := r.PathValue("id")
	ev, ok := s.surface.LookupByID(id)
	if !ok {
		writeError(w, http.StatusNotFound, "event not drawn")
		return
	}

	var req rangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	parsed, err := s.norm.DecodeRecord(id, model.EventRecord{Title: ev.Title, Start: req.Start, End: req.End})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !emit(parsed) {
		writeError(w, http.StatusConflict, "calendar not initialized")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSessionRange relays a range-select gesture, opening a create-mode
// edit session.
func (s *Server) handleSessionRange(w http.ResponseWriter, r *http.Request) {
	var req rangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ev, err := s.norm.DecodeRecord("", model.EventRecord{Start: req.Start, End: req.End})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.surface.EmitRangeSelect(ev.Start, ev.End) {
		writeError(w, http.StatusConflict, "calendar not initialized")
		return
	}
	s.writeSession(w)
}

// handleSessionEvent relays an event-click gesture, opening an update-mode
// edit session for a cached event.
func (s *Server) handleSessionEvent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ev, ok := s.coord.Cache().Get(req.ID)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown event id")
		return
	}
	if !s.surface.EmitEventClick(ev) {
		writeError(w, http.StatusConflict, "calendar not initialized")
		return
	}
	s.writeSession(w)
}

// handleSessionPatch edits the open draft.
func (s *Server) handleSessionPatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title *string `json:"title"`
		Start *string `json:"start"`
		End   *string `json:"end"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !s.session.Current().Open {
		writeError(w, http.StatusConflict, "no open edit session")
		return
	}
	if req.Title != nil {
		s.session.SetTitle(*req.Title)
	}
	if req.Start != nil || req.End != nil {
		cur := s.session.Current().Draft
		rec := s.norm.EncodeRecord(cur)
		if req.Start != nil {
			rec.Start = *req.Start
		}
		if req.End != nil {
			rec.End = *req.End
		}
		ev, err := s.norm.DecodeRecord("", rec)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.session.SetTimes(ev.Start, ev.End)
	}
	s.writeSession(w)
}

func (s *Server) handleSessionCommit(w http.ResponseWriter, r *http.Request) {
	if !s.session.Current().Open {
		writeError(w, http.StatusConflict, "no open edit session")
		return
	}
	if err := s.session.Commit(r.Context(), s.coord); err != nil {
		writeError(w, statusForMutation(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSessionClose(w http.ResponseWriter, _ *http.Request) {
	s.session.Close()
	w.WriteHeader(http.StatusNoContent)
}

// sessionDTO mirrors the edit session for the page's dialog.
type sessionDTO struct {
	Open       bool     `json:"open"`
	SelectedID string   `json:"selected_id,omitempty"`
	Draft      eventDTO `json:"draft"`
}

func (s *Server) writeSession(w http.ResponseWriter) {
	cur := s.session.Current()
	writeJSON(w, http.StatusOK, sessionDTO{
		Open:       cur.Open,
		SelectedID: cur.SelectedID,
		Draft:      s.toDTO(cur.Draft),
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	weeks := engine.Aggregate(s.coord.Cache().Snapshot(), s.norm)
	writeJSON(w, http.StatusOK, weeks)
}

// viewResponse is what the calendar page polls: the drawn collection and
// whether the surface finished initializing.
type viewResponse struct {
	Ready  bool       `json:"ready"`
	Events []eventDTO `json:"events"`
}

func (s *Server) handleView(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, viewResponse{
		Ready:  s.surface.Initialized(),
		Events: s.toDTOs(s.surface.Drawn()),
	})
}

func (s *Server) handleNotices(w http.ResponseWriter, _ *http.Request) {
	notices := s.notifier.Drain()
	if notices == nil {
		notices = []widget.Notice{}
	}
	writeJSON(w, http.StatusOK, notices)
}

func (s *Server) handleICS(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(ical.Export(s.coord.Cache().Snapshot())))
}

// statusForMutation maps coordinator errors onto HTTP statuses. Precondition
// failures (unknown id) are client errors; everything else surfaces as a
// bad gateway since the remote store rejected or failed the call.
func statusForMutation(err error) int {
	if errors.Is(err, engine.ErrUnknownEvent) {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="blockcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// staticFileServer serves the embedded calendar page.
func (s *Server) staticFileServer() http.Handler {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		appLog.Error("failed to initialize embedded static filesystem", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "calendar page not available", http.StatusServiceUnavailable)
		})
	}

	fileServer := http.FileServer(http.FS(sub))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// API paths never fall through to the page.
		if r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
