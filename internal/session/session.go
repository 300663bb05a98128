// Package session runs one feed subscriber over a message connection: live
// bus events go out, catch-up requests come in.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/coder/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/Twirlie/discordbot/internal/eventbus"
	"github.com/Twirlie/discordbot/internal/metrics"
)

// Conn is the message-level view of a websocket connection.
type Conn interface {
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
	Write(ctx context.Context, msgType websocket.MessageType, data []byte) error
}

type Replayer interface {
	Replay(ctx context.Context, count int64) []eventbus.Event
}

type Session struct {
	conn   Conn
	bus    *eventbus.Bus
	replay Replayer
	logger *slog.Logger

	sub *eventbus.Subscription
}

func New(conn Conn, bus *eventbus.Bus, replay Replayer, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{conn: conn, bus: bus, replay: replay, logger: logger}
}

// Run attaches to the bus and serves the connection until the client closes,
// an I/O error occurs, the bus shuts down or ctx is cancelled. Both directions
// stop before Run returns and the subscription is detached exactly once.
// A clean end returns nil.
func (s *Session) Run(ctx context.Context) error {
	if s.bus == nil {
		return errors.New("session: no event bus")
	}
	s.sub = s.bus.Attach()
	defer s.sub.Close()

	logger := s.logger.With("subscriber", s.sub.ID())
	s.logger = logger
	metrics.SessionOpened()
	defer metrics.SessionClosed()
	logger.Info("feed session opened")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return s.outbound(gctx)
	})
	g.Go(func() error {
		defer cancel()
		return s.inbound(gctx)
	})

	err := g.Wait()
	if err != nil {
		logger.Warn("feed session ended", "err", err, "dropped", s.sub.Dropped())
	} else {
		logger.Info("feed session closed", "dropped", s.sub.Dropped())
	}
	return err
}

func (s *Session) outbound(ctx context.Context) error {
	for {
		evt, err := s.sub.Next(ctx)
		if err != nil {
			if errors.Is(err, eventbus.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		payload, err := json.Marshal(evt)
		if err != nil {
			s.logger.Error("encode feed item", "item_uuid", evt.ID, "err", err)
			continue
		}
		if err := s.conn.Write(ctx, websocket.MessageText, payload); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("write feed item: %w", err)
		}
	}
}

func (s *Session) inbound(ctx context.Context) error {
	for {
		msgType, data, err := s.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read control message: %w", err)
		}
		if msgType != websocket.MessageText {
			s.logger.Debug("ignoring binary message", "bytes", len(data))
			continue
		}
		s.handleControl(ctx, data)
	}
}

func (s *Session) handleControl(ctx context.Context, data []byte) {
	ctrl, err := ParseControl(data)
	if err != nil {
		metrics.IncControlMalformed()
		s.logger.Warn("ignoring malformed control message", "err", err)
		return
	}
	count, ok := ctrl.ReplayCount()
	if !ok {
		s.logger.Debug("ignoring control message", "action", ctrl.Action())
		return
	}
	if s.replay == nil {
		return
	}
	// A batch larger than the queue would evict its own oldest items.
	if limit := int64(s.bus.QueueCapacity()); count > limit {
		s.logger.Debug("clamping replay to queue capacity", "requested", count, "capacity", limit)
		count = limit
	}
	events := s.replay.Replay(ctx, count)
	if len(events) == 0 {
		return
	}
	s.logger.Info("sending recent items", "requested", count, "sent", len(events))
	s.sub.Deliver(events...)
}
