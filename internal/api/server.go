package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Twirlie/discordbot/internal/activity"
	"github.com/Twirlie/discordbot/internal/eventbus"
	"github.com/Twirlie/discordbot/internal/replay"
	"github.com/Twirlie/discordbot/internal/state"
)

const maxFeedLimit = 1000

type Server struct {
	Bus       *eventbus.Bus
	Store     *state.Store
	Recorder  *activity.Recorder
	Replay    *replay.Coordinator
	Logger    *slog.Logger
	StartedAt time.Time
	Info      DiagnosticsInfo
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/feed", s.handleFeed)
	mux.HandleFunc("/api/feed/subscribe", s.handleFeedSubscribe)
	mux.HandleFunc("/api/diagnostics", s.handleDiagnostics)
	mux.HandleFunc("/ws/feed", s.handleFeedWS)

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "time": time.Now().UTC()})
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		writeError(w, http.StatusInternalServerError, errNotFound("feed store"))
		return
	}
	switch r.Method {
	case http.MethodGet:
		limit := parseInt(r.URL.Query().Get("limit"), 50)
		if limit > maxFeedLimit {
			limit = maxFeedLimit
		}
		items, err := s.Store.LoadRecent(r.Context(), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if items == nil {
			items = []eventbus.Event{}
		}
		writeJSON(w, http.StatusOK, items)
	case http.MethodPost:
		if s.Recorder == nil {
			writeError(w, http.StatusInternalServerError, errNotFound("recorder"))
			return
		}
		var input eventbus.EventInput
		if err := decodeJSON(r.Body, &input); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		evt, err := s.Recorder.Record(r.Context(), input)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, eventbus.ErrInvalidEvent) {
				status = http.StatusBadRequest
			}
			writeError(w, status, err)
			return
		}
		writeJSON(w, http.StatusCreated, evt)
	default:
		writeMethodNotAllowed(w)
	}
}

func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func decodeJSON(body io.Reader, dest any) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

type notFoundError struct {
	msg string
}

func (e notFoundError) Error() string { return e.msg }

func errNotFound(target string) error {
	return notFoundError{msg: target + " not found"}
}
