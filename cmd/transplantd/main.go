package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/config"
	v1 "github.com/dmehra2102/prod-golang-projects/transplantflow/internal/handler/v1"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/repository"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/seed"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/service"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/store"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/pkg/database"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/pkg/logger"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/pkg/objectstore"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/pkg/textgen"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/pkg/tracer"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "transplantd",
		Short:         "Living-donor kidney transplant evaluation service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var withSeed bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(withSeed)
		},
	}
	cmd.Flags().BoolVar(&withSeed, "seed", false, "Load demo data into an empty store before serving")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the postgres schemas, tables and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			if cfg.Store.Driver != config.StoreDriverPostgres {
				return fmt.Errorf("migrate requires STORE_DRIVER=%s", config.StoreDriverPostgres)
			}
			db, err := database.Connect(cfg.Database, log)
			if err != nil {
				return err
			}
			return database.Migrate(db, log)
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load demo patients, a pair and workflow progress into the configured store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			if cfg.Store.Driver == config.StoreDriverMemory {
				log.Warn("seeding the memory store is lost on exit; use serve --seed instead")
			}

			ctx := context.Background()
			a, err := build(ctx, cfg, log, prometheus.NewRegistry())
			if err != nil {
				return err
			}
			defer a.audit.Shutdown()

			_, err = seed.Run(ctx, a.services.Patients, a.services.Pairs, a.services.Workflows, log)
			return err
		},
	}
}

func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	log, err := logger.New(cfg.Log, cfg.App)
	if err != nil {
		return nil, nil, fmt.Errorf("initialising logger: %w", err)
	}
	return cfg, log, nil
}

type app struct {
	services v1.Services
	metrics  *metrics.Collector
	audit    *service.AuditService
}

// build wires storage, collaborators and services for the configured drivers.
func build(ctx context.Context, cfg *config.Config, log *zap.Logger, reg prometheus.Registerer) (*app, error) {
	m := metrics.NewCollector(cfg.App.Name, reg)

	var (
		docs      store.Store
		auditRepo service.AuditRepository
		db        *gorm.DB
	)
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		var err error
		db, err = database.Connect(cfg.Database, log)
		if err != nil {
			return nil, err
		}
		docs = store.NewPostgresStore(db)
		auditRepo = repository.NewGormAuditRepository(db)
	default:
		docs = store.NewMemoryStore()
		auditRepo = repository.NewMemoryAuditRepository()
	}
	docs = store.Instrument(docs, m)

	var reports service.ReportStore
	switch cfg.ObjectStore.Driver {
	case config.ObjectStoreDriverMinio:
		ms, err := objectstore.NewMinioStore(ctx, cfg.ObjectStore, log)
		if err != nil {
			return nil, err
		}
		reports = ms
	default:
		reports = objectstore.NewMemoryStore()
	}

	var generator service.TextGenerator
	if cfg.TextGen.Enabled() {
		tg, err := textgen.New(ctx, cfg.TextGen, log)
		if err != nil {
			return nil, err
		}
		generator = tg
	} else {
		log.Info("text generation disabled, no API key configured")
	}

	patients := repository.NewPatientRepository(docs)
	pairs := repository.NewPairRepository(docs)
	workflows := repository.NewWorkflowRepository(docs)
	clock := service.Clock(service.SystemClock)

	audit := service.NewAuditService(auditRepo, m, log)
	pairSync := service.NewPairSynchronizer(pairs, workflows, audit, m, log, clock)
	wf := service.NewWorkflowService(patients, workflows, pairSync, audit, m, log, clock)

	return &app{
		metrics: m,
		audit:   audit,
		services: v1.Services{
			Patients:  service.NewPatientService(patients, wf, audit, m, log, clock),
			Pairs:     service.NewPairService(pairs, patients, audit, m, log, clock),
			Workflows: wf,
			Advisory:  service.NewAdvisoryService(generator, reports, patients, pairs, wf, audit, m, log, clock),
			Dashboard: service.NewDashboardService(patients, pairs, workflows),
			Audit:     audit,
		},
	}, nil
}

func runServer(withSeed bool) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	ctx := context.Background()

	tp, err := tracer.Init(ctx, cfg.Tracing, cfg.App.Version)
	if err != nil {
		return fmt.Errorf("initialising tracer: %w", err)
	}
	defer tracer.Shutdown(tp, log)

	a, err := build(ctx, cfg, log, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	defer a.audit.Shutdown()

	if withSeed {
		if _, err := seed.Run(ctx, a.services.Patients, a.services.Pairs, a.services.Workflows, log); err != nil {
			return fmt.Errorf("seeding: %w", err)
		}
	}

	router := v1.NewRouter(cfg, a.services, a.metrics, log)
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      v1.WithCORS(router, cfg.CORS),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("store", cfg.Store.Driver),
			zap.Bool("text_generation", cfg.TextGen.Enabled()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		log.Info("shutting down server", zap.String("signal", sig.String()))
	}

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Info("server stopped")
	return nil
}
