package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/human-compiler/internal/artifacts"
	"github.com/kalambet/human-compiler/internal/interview"
	"github.com/kalambet/human-compiler/internal/plugin"
	"github.com/kalambet/human-compiler/internal/profile"
	"github.com/kalambet/human-compiler/internal/skills"
	"github.com/kalambet/human-compiler/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// maxArtifactBodySize bounds transcripts and artifacts, which can be long.
const maxArtifactBodySize = 10 << 20 // 10MB

const defaultHistoryLimit = 50

// Deps holds what the HTTP and MCP surfaces operate on.
type Deps struct {
	Machine   *interview.Machine
	Recorder  *artifacts.Recorder
	Journal   *storage.Store    // optional; history is unavailable when nil
	Generator *plugin.Generator // optional; generate_plugin errors when nil
	Token     string
}

// NewHandler returns the profile HTTP API. /health is always open; every
// other route requires the bearer token when one is configured.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Get("/profiles", handleListProfiles(deps))
		r.Post("/profiles", handleCreateProfile(deps))
		r.Route("/profiles/{name}", func(r chi.Router) {
			r.Get("/", handleGetProfile(deps))
			r.Get("/status", handleStatus(deps))
			r.Put("/phases/{phase}", handleMergePhase(deps))
			r.Post("/phases/{phase}/complete", handleCompletePhase(deps))
			r.Put("/phases/{phase}/transcript", handlePhaseText(deps.Recorder.RecordTranscript))
			r.Put("/phases/{phase}/summary", handlePhaseText(deps.Recorder.RecordSummary))
			r.Post("/artifacts", handleArtifact(deps))
			r.Post("/finalize", handleFinalize(deps))
			r.Get("/skills", handleSkills(deps))
			r.Get("/history", handleHistory(deps))
		})
		r.Get("/events/{id}", handleGetEvent(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleListProfiles(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := deps.Machine.Overview()
		if err != nil {
			writeError(w, "list profiles", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"profiles": list})
	}
}

func handleCreateProfile(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Name == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "name is required")
			return
		}

		p, err := deps.Machine.Init(req.Name)
		if err != nil {
			writeError(w, "init", err)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	}
}

func handleGetProfile(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := deps.Machine.Load(chi.URLParam(r, "name"))
		if err != nil {
			writeError(w, "load", err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func handleStatus(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := deps.Machine.Status(chi.URLParam(r, "name"))
		if err != nil {
			writeError(w, "status", err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

func handleMergePhase(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		phase, ok := phaseParam(w, r)
		if !ok {
			return
		}
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "reading body: %v", err)
			return
		}
		data, err := profile.ParsePhaseData(body)
		if err != nil {
			writeError(w, "update-phase", err)
			return
		}

		p, err := deps.Machine.MergePhaseData(chi.URLParam(r, "name"), phase, data)
		if err != nil {
			writeError(w, "update-phase", err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func handleCompletePhase(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		phase, ok := phaseParam(w, r)
		if !ok {
			return
		}
		p, err := deps.Machine.CompletePhase(chi.URLParam(r, "name"), phase)
		if err != nil {
			writeError(w, "mark-complete", err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func handlePhaseText(record func(name string, phase int, text string) (string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		phase, ok := phaseParam(w, r)
		if !ok {
			return
		}
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxArtifactBodySize))
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "reading body: %v", err)
			return
		}

		path, err := record(chi.URLParam(r, "name"), phase, string(body))
		if err != nil {
			writeError(w, "save", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"path": path})
	}
}

func handleArtifact(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxArtifactBodySize)
		defer r.Body.Close()

		var a artifacts.Artifact
		if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if a.Title == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "title is required")
			return
		}

		path, err := deps.Recorder.RecordArtifact(chi.URLParam(r, "name"), a)
		if err != nil {
			writeError(w, "save-artifact", err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"path": path})
	}
}

func handleFinalize(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := deps.Machine.Finalize(chi.URLParam(r, "name"))
		if err != nil {
			writeError(w, "finalize", err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func handleSkills(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := deps.Machine.Load(chi.URLParam(r, "name"))
		if err != nil {
			writeError(w, "skills", err)
			return
		}
		derived := skills.Derive(p)
		if derived == nil {
			derived = []skills.Skill{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"skills": derived})
	}
}

type eventView struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Phase     int    `json:"phase,omitempty"`
	Detail    string `json:"detail,omitempty"`
	CreatedAt string `json:"created_at"`
}

func handleHistory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Journal == nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "journal is disabled")
			return
		}

		limit := defaultHistoryLimit
		if l := r.URL.Query().Get("limit"); l != "" {
			if n, err := strconv.Atoi(l); err == nil && n > 0 {
				limit = n
			}
		}

		slug := profile.Slugify(chi.URLParam(r, "name"))
		events, err := deps.Journal.ListEvents(slug, limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list events: %v", err)
			return
		}

		views := make([]eventView, 0, len(events))
		for _, e := range events {
			views = append(views, newEventView(e))
		}
		writeJSON(w, http.StatusOK, map[string]any{"profile": slug, "events": views})
	}
}

func handleGetEvent(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Journal == nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "journal is disabled")
			return
		}

		id := chi.URLParam(r, "id")
		e, err := deps.Journal.GetEvent(id)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			httpError(w, http.StatusNotFound, "not_found_error", "event %s not found", id)
			return
		case err != nil:
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get event: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"profile": e.Profile, "event": newEventView(e)})
	}
}

func newEventView(e storage.Event) eventView {
	return eventView{
		ID:        e.ID,
		Kind:      string(e.Kind),
		Phase:     e.Phase,
		Detail:    e.Detail,
		CreatedAt: e.CreatedAt.Format(time.RFC3339Nano),
	}
}

func phaseParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "phase")
	n, err := strconv.Atoi(raw)
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "phase must be a number, got %q", raw)
		return 0, false
	}
	if err := profile.ValidatePhase(n); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
		return 0, false
	}
	return n, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("writing response", "error", err)
	}
}

// writeError maps the profile error taxonomy onto HTTP status codes.
func writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, profile.ErrNotFound):
		httpError(w, http.StatusNotFound, "not_found_error", "%s: %v", op, err)
	case errors.Is(err, profile.ErrInvalidArgument):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%s: %v", op, err)
	case errors.Is(err, profile.ErrAlreadyExists), errors.Is(err, profile.ErrLocked):
		httpError(w, http.StatusConflict, "conflict_error", "%s: %v", op, err)
	default:
		slog.Error("request failed", "op", op, "error", err)
		httpError(w, http.StatusInternalServerError, "api_error", "%s: %v", op, err)
	}
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
