package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/coder/websocket"

	"github.com/Twirlie/discordbot/internal/eventbus"
	"github.com/Twirlie/discordbot/internal/session"
)

func (s *Server) replayer() session.Replayer {
	if s.Replay == nil {
		return nil
	}
	return s.Replay
}

func (s *Server) handleFeedWS(w http.ResponseWriter, r *http.Request) {
	if s.Bus == nil {
		writeError(w, http.StatusInternalServerError, errNotFound("event bus"))
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.logger().Warn("websocket accept failed", "err", err)
		return
	}
	defer conn.CloseNow()

	sess := session.New(conn, s.Bus, s.replayer(), s.logger())
	if err := sess.Run(r.Context()); err != nil {
		_ = conn.Close(websocket.StatusInternalError, "stream error")
		return
	}
	_ = conn.Close(websocket.StatusNormalClosure, "done")
}

// handleFeedSubscribe streams the feed as server-sent events for clients that
// cannot hold a websocket. ?recent=N sends a catch-up batch first.
func (s *Server) handleFeedSubscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	if s.Bus == nil {
		writeError(w, http.StatusInternalServerError, errNotFound("event bus"))
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errNotFound("streaming support"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	_, _ = w.Write([]byte(":ok\n\n"))
	flusher.Flush()

	ctx := r.Context()
	sub := s.Bus.Attach()
	defer sub.Close()

	recent := parseInt(r.URL.Query().Get("recent"), 0)
	if recent > s.Bus.QueueCapacity() {
		recent = s.Bus.QueueCapacity()
	}
	if recent > 0 && s.Replay != nil {
		go func() {
			sub.Deliver(s.Replay.Replay(ctx, int64(recent))...)
		}()
	}

	_ = streamSSE(ctx, sub, w, flusher)
}

func streamSSE(ctx context.Context, sub *eventbus.Subscription, w io.Writer, flusher http.Flusher) error {
	for {
		evt, err := sub.Next(ctx)
		if err != nil {
			if errors.Is(err, eventbus.ErrClosed) {
				return nil
			}
			return err
		}
		payload, err := json.Marshal(evt)
		if err != nil {
			return err
		}
		if _, err := w.Write([]byte("data: ")); err != nil {
			return err
		}
		if _, err := w.Write(payload); err != nil {
			return err
		}
		if _, err := w.Write([]byte("\n\n")); err != nil {
			return err
		}
		flusher.Flush()
	}
}
