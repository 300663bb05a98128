package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/Twirlie/discordbot/internal/metrics"
)

type DiagnosticsInfo struct {
	HTTPAddr      string `json:"http_addr"`
	DataDir       string `json:"data_dir"`
	DBPath        string `json:"db_path"`
	WebDir        string `json:"web_dir"`
	QueueCapacity int    `json:"queue_capacity"`
	ReplayMax     int    `json:"replay_max"`
	ReplayDelay   string `json:"replay_delay"`
}

type DiagnosticsResponse struct {
	Time          time.Time        `json:"time"`
	StartedAt     time.Time        `json:"started_at"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	GoVersion     string           `json:"go_version"`
	Info          DiagnosticsInfo  `json:"info"`
	EventBus      map[string]any   `json:"eventbus"`
	Store         map[string]any   `json:"store"`
	Metrics       map[string]int64 `json:"metrics"`
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	now := time.Now().UTC()
	started := s.StartedAt
	if started.IsZero() {
		started = now
	}
	resp := DiagnosticsResponse{
		Time:          now,
		StartedAt:     started,
		UptimeSeconds: int64(now.Sub(started).Seconds()),
		GoVersion:     runtime.Version(),
		Info:          s.Info,
		EventBus:      map[string]any{},
		Store:         map[string]any{},
		Metrics:       metrics.Snapshot(),
	}
	if s.Bus != nil {
		resp.EventBus["subscribers"] = s.Bus.SubscriberCount()
		resp.EventBus["published"] = s.Bus.Published()
		resp.EventBus["dropped"] = s.Bus.Dropped()
		resp.EventBus["queue_capacity"] = s.Bus.QueueCapacity()
	}
	if s.Store != nil {
		if n, err := s.Store.Count(r.Context()); err == nil {
			resp.Store["items"] = n
		} else {
			resp.Store["error"] = err.Error()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
