// Command tieringd runs the tiering engine: it migrates files between hot,
// warm, and cold storage tiers based on access patterns and tier capacity
// pressure.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openendpoint/tieringd/internal/auditlog"
	"github.com/openendpoint/tieringd/internal/config"
	"github.com/openendpoint/tieringd/internal/health"
	"github.com/openendpoint/tieringd/internal/logging"
	"github.com/openendpoint/tieringd/internal/store"
	"github.com/openendpoint/tieringd/internal/store/pebblestore"
	"github.com/openendpoint/tieringd/internal/tiering"
	"github.com/openendpoint/tieringd/internal/wsevents"
)

var (
	cfgFile string
	env     string

	version = "dev"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tieringd",
		Short: "Background tiering engine for hot/warm/cold storage pools",
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file")
	root.PersistentFlags().StringVar(&env, "env", "development", "logging environment: development or production")

	root.AddCommand(newRunCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the tieringd version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(version)
			return nil
		},
	}
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the tiering engine supervisor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, env)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	st, err := pebblestore.Open(cfg.MetadataPath)
	if err != nil {
		return fmt.Errorf("open metadata store: %w", err)
	}

	var ledger *auditlog.Ledger
	if cfg.AuditLogPath != "" {
		ledger, err = auditlog.Open(cfg.AuditLogPath)
		if err != nil {
			return fmt.Errorf("open audit ledger: %w", err)
		}
		defer ledger.Close()
	}

	roots := tiering.NewTierRoots(cfg.PoolRoot)

	hub := wsevents.NewHub()
	checker := health.NewChecker()

	moveQueue := tiering.NewQueue("move", 1024, logger)
	retryQueue := tiering.NewQueue("retry", 1024, logger)
	registerHealthChecks(checker, roots, st, moveQueue, retryQueue)

	engineCfg := tiering.EngineConfig{
		TierCapacityThresholdPct: cfg.TierCapacityThreshold,
		AccessTimeThresholdSec:   cfg.AccessTimeThresholdSec,
		AccessCountThreshold:     cfg.AccessCountThreshold,
		DryRun:                   cfg.DryRun,
	}
	decision := tiering.NewDecisionEngine(engineCfg, roots, st, moveQueue, logger)
	retryDrain := tiering.NewRetryQueueDrainer(retryQueue, moveQueue, logger)

	onSuccess := func(req tiering.MoveRequest) {
		broadcastAndRecord(hub, ledger, logger, req, auditlog.OutcomeSucceeded, nil)
	}
	onFailure := func(req tiering.MoveRequest, migrateErr error) {
		outcome := auditlog.OutcomeRetried
		if req.Retries >= 3 {
			outcome = auditlog.OutcomePermanentFailed
		}
		broadcastAndRecord(hub, ledger, logger, req, outcome, migrateErr)
		retryDrain.HandleFailure(req, migrateErr)
	}

	pool := tiering.NewMigrationWorkerPool(cfg.IOThreads, moveQueue, roots, tiering.NewCopier(), st, logger, onSuccess, onFailure)
	maint := tiering.NewMaintenanceReconciler(
		time.Duration(cfg.MaintenanceIntervalSec)*time.Second,
		time.Hour,
		roots, st, logger,
	)

	sup := tiering.NewSupervisor(decision, pool, retryDrain, maint, st,
		time.Duration(cfg.TieringIntervalSec)*time.Second, logger)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", checker.HTTPHandler())
	mux.HandleFunc("/ws/events", func(w http.ResponseWriter, r *http.Request) {
		if err := hub.ServeHTTP(w, r, uuid.New().String()); err != nil {
			logger.Debug("websocket client closed", zap.Error(err))
		}
	})
	httpServer := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("tieringd starting",
		zap.String("pool_root", cfg.PoolRoot),
		zap.Bool("dry_run", cfg.DryRun))

	runErr := sup.Run(sigCtx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	httpServer.Shutdown(shutdownCtx)

	return runErr
}

func registerHealthChecks(checker *health.Checker, roots tiering.TierRoots, st store.Store, moveQueue, retryQueue *tiering.Queue) {
	// Each tier root must exist and be a directory; the Metadata Store must
	// answer a lookup without error (an open, unclosed database); neither
	// queue should be sitting at capacity.
	for name, root := range map[string]string{"hot": roots.Hot, "warm": roots.Warm, "cold": roots.Cold} {
		root := root
		checker.RegisterCheck("tier-root-"+name, func(context.Context) error {
			info, err := os.Stat(root)
			if err != nil {
				return err
			}
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", root)
			}
			return nil
		})
	}

	checker.RegisterCheck("metadata-store", func(ctx context.Context) error {
		_, _, err := st.Get(ctx, "__healthcheck__")
		return err
	})

	checker.RegisterCheck("move-queue", func(context.Context) error {
		if moveQueue.Len() >= 1024 {
			return fmt.Errorf("move queue at capacity")
		}
		return nil
	})
	checker.RegisterCheck("retry-queue", func(context.Context) error {
		if retryQueue.Len() >= 1024 {
			return fmt.Errorf("retry queue at capacity")
		}
		return nil
	})
}

func broadcastAndRecord(hub *wsevents.Hub, ledger *auditlog.Ledger, logger *zap.Logger, req tiering.MoveRequest, outcome auditlog.Outcome, migrateErr error) {
	entry := auditlog.Entry{
		RelativePath: req.RelativePath,
		SourceTier:   string(req.SourceTier),
		TargetTier:   string(req.TargetTier),
		Retries:      req.Retries,
		Outcome:      outcome,
	}
	if migrateErr != nil {
		entry.Error = migrateErr.Error()
	}

	if ledger != nil {
		if err := ledger.Record(entry); err != nil {
			logger.Warn("audit record failed", zap.Error(err))
		}
	}

	hub.Broadcast([]byte(fmt.Sprintf(`{"path":%q,"tier_pair":%q,"outcome":%q}`, req.RelativePath, req.TierPair(), outcome)))
}
