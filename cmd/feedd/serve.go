package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Twirlie/discordbot/internal/activity"
	"github.com/Twirlie/discordbot/internal/api"
	"github.com/Twirlie/discordbot/internal/config"
	"github.com/Twirlie/discordbot/internal/eventbus"
	"github.com/Twirlie/discordbot/internal/logging"
	"github.com/Twirlie/discordbot/internal/replay"
	"github.com/Twirlie/discordbot/internal/state"
	"github.com/Twirlie/discordbot/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the feed HTTP and websocket server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, closeLog, err := logging.Setup(logging.Config{Level: cfg.LogLevel, File: cfg.LogFile, Compress: true})
	if err != nil {
		return err
	}
	defer closeLog()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	logger.Info("setting up the database", "path", cfg.DBPath)
	db, err := state.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	store := state.NewStore(db)
	bus := eventbus.MustInstall(eventbus.NewBus(eventbus.Config{QueueCapacity: cfg.QueueCapacity}))
	defer bus.Close()

	replayMax := cfg.ReplayMax
	if replayMax <= 0 {
		replayMax = replay.DefaultMaxCount
	}
	if replayMax > bus.QueueCapacity() {
		logger.Warn("replay_max exceeds queue_capacity, clamping", "replay_max", replayMax, "queue_capacity", bus.QueueCapacity())
		replayMax = bus.QueueCapacity()
	}

	apiServer := &api.Server{
		Bus:       bus,
		Store:     store,
		Recorder:  activity.NewRecorder(store, bus, logger),
		Replay:    replay.NewCoordinator(store, replayMax, cfg.ReplayDelay, logger),
		Logger:    logger,
		StartedAt: time.Now().UTC(),
		Info: api.DiagnosticsInfo{
			HTTPAddr:      cfg.HTTPAddr,
			DataDir:       cfg.DataDir,
			DBPath:        cfg.DBPath,
			WebDir:        cfg.WebDir,
			QueueCapacity: bus.QueueCapacity(),
			ReplayMax:     replayMax,
			ReplayDelay:   cfg.ReplayDelay.String(),
		},
	}
	webServer := &web.Server{Dir: cfg.WebDir}
	apiHandler := apiServer.Handler()

	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.Handle("/ws/", apiHandler)
	mux.Handle("/", webServer.Handler())

	listener, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	serverCtx, serverCancel := context.WithCancel(context.Background())
	defer serverCancel()
	httpServer := &http.Server{
		Handler:           loggingMiddleware(logger, mux),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return serverCtx
		},
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("feedd listening", "addr", listener.Addr().String())
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	// Closing the bus ends every feed session; cancelling the base context
	// unblocks their reads.
	bus.Close()
	serverCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Warn("server shutdown error", "err", err)
	}
	_ = httpServer.Close()
	return nil
}

func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"user_agent", r.UserAgent(),
			"duration", time.Since(start),
		)
	})
}
