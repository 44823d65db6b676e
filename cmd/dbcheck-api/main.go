package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dbcheck/internal/check"
	"dbcheck/internal/config"
	"dbcheck/internal/db"
	"dbcheck/internal/health"
	"dbcheck/internal/httpapi"
	"dbcheck/internal/logging"
	"dbcheck/internal/monitor"
	"dbcheck/internal/observability"
	"dbcheck/internal/probe"
	"dbcheck/internal/profile"
	"dbcheck/internal/resultlog"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := logging.New("dbcheck-api")
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("loading config: %v", err)
	}

	metrics := observability.NewMetrics(nil)

	registry, err := probe.DefaultRegistry(cfg.MSSQL.Encrypt)
	if err != nil {
		logger.Fatalf("building adapter registry: %v", err)
	}
	mssqlAdapters, err := registry.Order(cfg.MSSQL.Adapters...)
	if err != nil {
		logger.Fatalf("MSSQL_ADAPTERS: %v", err)
	}

	var (
		sqlDB          *sql.DB
		store          httpapi.Store
		primaryAdapter probe.Adapter
		primary        profile.Profile
		recorders      []monitor.MetricsRecorder
		ready          func(context.Context) error
	)
	if cfg.PGDSN == "" {
		logger.Warn("PG_DSN not set; primary database endpoints disabled")
	} else {
		primary, err = profile.FromPostgresDSN(cfg.PGDSN, profile.DefaultTimeout)
		if err != nil {
			logger.Fatalf("PG_DSN: %v", err)
		}
		var queries *db.Queries
		sqlDB, queries, err = db.Open(ctx, cfg.PGDSN, db.DefaultPool)
		if err != nil {
			logger.Fatalf("opening db: %v", err)
		}
		defer sqlDB.Close()
		store = queries
		primaryAdapter = probe.NewPool("pool", sqlDB)
		recorders = append(recorders, monitor.NewConnectionLog(queries))
		ready = health.Ready(sqlDB)
	}

	var publisher check.Publisher = resultlog.Noop{}
	if cfg.Redis.Addr != "" {
		redisPub := resultlog.NewRedisPublisher(cfg.Redis).WithObserver(metrics.RecordPublish)
		defer redisPub.Close()
		publisher = redisPub
	}

	orchestrator := check.New(logger, check.WithRecorder(metrics), check.WithPublisher(publisher))
	policies := check.StandardPolicies(cfg.MSSQL.Enabled, mssqlAdapters, primaryAdapter)

	var availability monitor.AvailabilityProvider
	if cfg.MonitorInterval > 0 {
		samples := monitor.NewInMemoryMetrics()
		availability = samples
		recorders = append(recorders, samples, monitor.NewPrometheusMetrics(metrics))
		sched := monitor.NewScheduler(orchestrator, monitor.NewMultiMetrics(recorders...), logger,
			monitor.Config{Interval: cfg.MonitorInterval},
			monitor.ServiceTargets(logger, cfg.MSSQL, primary, policies, primaryAdapter != nil))
		go sched.Run(ctx)
	}

	observability.Start(ctx, cfg.MetricsAddr, logger, metrics.Registry(), ready)

	api := httpapi.NewServer(httpapi.Deps{
		Log:          logger,
		Checker:      orchestrator,
		Policies:     policies,
		Primary:      primary,
		MSSQL:        cfg.MSSQL,
		Store:        store,
		Availability: availability,
		Ready:        ready,
		AdminToken:   cfg.AdminToken,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("dbcheck-api listening", "addr", cfg.HTTPAddr, "mssql_enabled", cfg.MSSQL.Enabled, "adapters", cfg.MSSQL.Adapters)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Println("shutting down dbcheck-api")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = srv.Shutdown(shutdownCtx)

	_ = os.Stdout.Sync()
}
