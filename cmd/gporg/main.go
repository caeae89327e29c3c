package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/khoward/photos-g-org/internal/api"
	"github.com/khoward/photos-g-org/internal/config"
	"github.com/khoward/photos-g-org/internal/event"
	"github.com/khoward/photos-g-org/internal/keyring"
	"github.com/khoward/photos-g-org/internal/logging"
	"github.com/khoward/photos-g-org/internal/organize"
	"github.com/khoward/photos-g-org/internal/photos"
	"github.com/khoward/photos-g-org/internal/settings"
	"github.com/khoward/photos-g-org/internal/version"
	"github.com/khoward/photos-g-org/internal/watcher"
)

func main() {
	// Handle subcommands before starting the server
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "rotate-key":
			if err := rotateKey(); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("GP_CONFIG_PATH"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Set up structured logging via the logging Manager
	logManager, logger := logging.NewManager(logging.Config{
		Level:    cfg.Logging.Level,
		Format:   cfg.Logging.Format,
		FilePath: cfg.Logging.FilePath,
	})
	defer logManager.Close() //nolint:errcheck
	slog.SetDefault(logger)

	// Settings store and API key
	store := settings.NewStore(cfg.Settings.Dir)
	keys := keyring.New(store.APIKey(), store)
	apiKey, err := keys.GetOrCreate()
	if err != nil {
		return fmt.Errorf("initializing API key: %w", err)
	}

	// Remote library access
	authenticator := photos.NewAuthenticator(store.CredentialsPath, store.TokenPath(), logger)
	libraryFactory := func(ctx context.Context) (api.Library, error) {
		httpClient, err := authenticator.Client(ctx)
		if err != nil {
			return nil, err
		}
		return photos.New(httpClient, logger), nil
	}

	// Job tracker
	tracker := organize.NewTracker(organize.Options{
		Workers:   cfg.Organize.Workers,
		BatchSize: cfg.Organize.BatchSize,
	}, logger)

	// Event bus with audit-log subscribers
	eventBus := event.NewBus(logger, 64)
	go eventBus.Start()
	defer eventBus.Stop()
	subscribeAuditLog(eventBus, logger)
	tracker.SetEventBus(eventBus)

	logger.Info("starting gporg",
		slog.String("version", version.Version),
		slog.String("commit", version.Commit),
	)

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Re-read credentials when the settings files change on disk
	watcherService := watcher.NewService(store.Dir(), authenticator, eventBus, logger)
	go watcherService.Start(ctx)

	router := api.NewRouter(api.RouterDeps{
		Settings: store,
		Keyring:  keys,
		Tracker:  tracker,
		Library:  libraryFactory,
		EventBus: eventBus,
		Logger:   logger,
	})

	addr := cfg.ListenAddr()
	srv := &http.Server{
		Addr:         addr,
		Handler:      router.Handler(ctx),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", slog.String("addr", addr))
		fmt.Printf("API key: %s\n", apiKey)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// subscribeAuditLog records security- and job-relevant events in the log.
func subscribeAuditLog(bus *event.Bus, logger *slog.Logger) {
	audit := logger.With(slog.String("component", "audit"))
	for _, t := range []event.Type{
		event.OrganizeStarted, event.OrganizeCompleted,
		event.CredentialsChanged, event.KeyRotated,
	} {
		bus.Subscribe(t, func(e event.Event) {
			audit.Info(string(e.Type), slog.Any("data", e.Data))
		})
	}
}

// rotateKey generates a new API key and prints it. This is an offline
// operation intended for recovery when the key is lost.
func rotateKey() error {
	cfg, err := config.Load(os.Getenv("GP_CONFIG_PATH"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store := settings.NewStore(cfg.Settings.Dir)
	keys := keyring.New(store.APIKey(), store)
	key, err := keys.Rotate()
	if err != nil {
		return fmt.Errorf("rotating API key: %w", err)
	}

	fmt.Println("API key rotated successfully.")
	fmt.Printf("New key: %s\n", key)
	return nil
}
