package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/example/smart-scheduler/internal/application"
	"github.com/example/smart-scheduler/internal/config"
	httptransport "github.com/example/smart-scheduler/internal/http"
	"github.com/example/smart-scheduler/internal/logging"
	"github.com/example/smart-scheduler/internal/persistence/sqlite"
	"github.com/example/smart-scheduler/internal/slotting"
)

var version = "dev" // set by the linker

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// Cobra already printed the error.
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:     "scheduler",
		Short:   "Smart meeting scheduler for multi-participant availability.",
		Version: version,
		Long: `scheduler finds meeting slots that fit every participant's working
hours, busy calendar, and idle-buffer preferences, ranks them, and manages the
resulting events through their proposed, confirmed, cancelled, and completed
lifecycle.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default scheduler.yaml in the working directory)")

	cmd.AddCommand(newServeCmd(&cfgFile))
	cmd.AddCommand(newMigrateCmd(&cfgFile))

	return cmd
}

func newServeCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the scheduling API server.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(*cfgFile)
		},
	}
}

func newMigrateCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations and exit.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgFile)
			if err != nil {
				return err
			}
			pool, err := sqlite.Open(cfg.SQLiteDSN)
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}
			defer pool.Close()
			if err := pool.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("apply migrations: %w", err)
			}
			return nil
		},
	}
}

func runServe(cfgFile string) error {
	logger := logging.New(os.Stdout, slog.LevelInfo)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	pool, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := pool.Migrate(context.Background()); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	idGenerator := uuid.NewString
	now := time.Now

	participantRepo := newParticipantRepositoryAdapter(sqlite.NewParticipantRepository(pool))
	busyStore := newBusyStoreAdapter(sqlite.NewParticipantRepository(pool))
	eventRepo := newEventRepositoryAdapter(sqlite.NewEventRepository(pool))

	cache := application.NewFreeTimeCache(cfg.CacheTTL, 0, nil)
	generator := slotting.NewGenerator(cfg.SlotStep(), cfg.MaxCandidates)
	scorer := slotting.NewScorer(cfg.Weights.ScoringWeights())
	publisher := application.LogPublisher{Logger: logger}

	participantService := application.NewParticipantService(participantRepo, busyStore, cache, idGenerator, now, logger)
	slotService := application.NewSlotService(participantRepo, busyStore, eventRepo, generator, scorer, cache, logger)
	eventService := application.NewEventService(eventRepo, participantRepo, busyStore, publisher, cache, idGenerator, now, cfg.ConfirmRetries, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Slots:        httptransport.NewSlotHandler(slotService, logger),
		Events:       httptransport.NewEventHandler(eventService, logger),
		Participants: httptransport.NewParticipantHandler(participantService, slotService, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("scheduler API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
