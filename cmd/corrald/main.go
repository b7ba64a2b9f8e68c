package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docker/docker/client"

	"corral/internal/api"
	"corral/internal/backend"
	"corral/internal/bus"
	"corral/internal/cluster"
	"corral/internal/config"
	"corral/internal/events"
	"corral/internal/lifecycle"
	"corral/internal/metrics"
	"corral/internal/store"
)

func main() {
	configPath := flag.String("config", "./corral.yaml", "path to config file")
	flag.Parse()

	bootstrap := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootstrap.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)
	logger.Info("config loaded", "listen", cfg.Listen, "version", cfg.Version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Docker client for the stack probe and the node-manager backend.
	docker, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		logger.Error("failed to create docker client", "error", err)
		os.Exit(1)
	}
	defer docker.Close()

	// Message bus for the batch backend and event publishing.
	busClient, err := bus.Connect(cfg.Bus, "corrald", logger)
	if err != nil {
		logger.Error("failed to connect to bus", "error", err)
		os.Exit(1)
	}
	defer busClient.Close()

	if err := bus.ProvisionStreams(ctx, busClient.JetStream()); err != nil {
		logger.Warn("stream provisioning failed (continuing without)", "error", err)
	}

	// Status store: Postgres when configured, in-process otherwise.
	var fleetStore store.FleetStore
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		if err := store.EnsureSchema(ctx, pg.Pool()); err != nil {
			logger.Error("failed to ensure schema", "error", err)
			os.Exit(1)
		}
		fleetStore = pg
		logger.Info("using postgres status store")
	} else {
		fleetStore = store.NewMemoryStore()
		logger.Info("using in-memory status store")
	}
	defer fleetStore.Close()

	emitter := events.NewEmitter(logger)
	metrics.RegisterEventHandler(emitter)

	// Mirror lifecycle events onto the bus.
	emitter.OnEvent(func(ev events.Event) {
		subject := ""
		switch ev.Type {
		case events.FleetStartRequested:
			subject = bus.FleetSubject(bus.SubjectFleetStartRequested, ev.Cluster)
		case events.FleetStopRequested:
			subject = bus.FleetSubject(bus.SubjectFleetStopRequested, ev.Cluster)
		case events.FleetStatusChanged:
			subject = bus.FleetSubject(bus.SubjectFleetStatusChanged, ev.Cluster)
		default:
			return
		}
		if err := busClient.PublishEvent(subject, ev.Type, ev); err != nil {
			logger.Warn("failed to publish event", "subject", subject, "error", err)
		}
	})

	registry := cluster.NewRegistry(logger)
	stack := cluster.NewDockerStack(docker, logger)
	gate := cluster.NewGate(cfg.Version)

	adapters := []backend.Adapter{
		backend.NewNodeManager(docker, logger),
		backend.NewBatch(busClient, "corrald", cfg.BackendTimeout, logger),
	}

	coordinator := lifecycle.New(stack, gate, registry, adapters, fleetStore, emitter, lifecycle.Options{
		BackendTimeout:  cfg.BackendTimeout,
		StatusTTL:       cfg.StatusTTL,
		ConflictRetries: cfg.ConflictRetries,
	}, logger)

	apiServer := api.NewServer(coordinator, registry, cfg.AuthToken, logger)

	srv := &http.Server{
		Addr:         cfg.Listen,
		Handler:      apiServer.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
