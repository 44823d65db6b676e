package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dbcheck/internal/check"
	"dbcheck/internal/config"
	"dbcheck/internal/db"
	"dbcheck/internal/health"
	"dbcheck/internal/logging"
	"dbcheck/internal/monitor"
	"dbcheck/internal/observability"
	"dbcheck/internal/probe"
	"dbcheck/internal/profile"
	"dbcheck/internal/resultlog"
)

// dbcheck-monitor runs the background checks without serving the API.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.New("dbcheck-monitor")
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("loading config: %v", err)
	}

	registry, err := probe.DefaultRegistry(cfg.MSSQL.Encrypt)
	if err != nil {
		logger.Fatalf("building adapter registry: %v", err)
	}
	mssqlAdapters, err := registry.Order(cfg.MSSQL.Adapters...)
	if err != nil {
		logger.Fatalf("MSSQL_ADAPTERS: %v", err)
	}

	if cfg.PGDSN == "" {
		logger.Fatalf("PG_DSN is required")
	}
	primary, err := profile.FromPostgresDSN(cfg.PGDSN, profile.DefaultTimeout)
	if err != nil {
		logger.Fatalf("PG_DSN: %v", err)
	}
	sqlDB, queries, err := db.Open(ctx, cfg.PGDSN, db.DefaultPool)
	if err != nil {
		logger.Fatalf("opening db: %v", err)
	}

	metrics := observability.NewMetrics(nil)
	// Keep clear of dbcheck-api's default listener when both run on one host.
	metricsAddr := cfg.MetricsAddr
	if os.Getenv("METRICS_ADDR") == "" {
		metricsAddr = ":9092"
	}
	observability.Start(ctx, metricsAddr, logger, metrics.Registry(), health.Ready(sqlDB))

	var publisher check.Publisher = resultlog.Noop{}
	if cfg.Redis.Addr != "" {
		redisPub := resultlog.NewRedisPublisher(cfg.Redis).WithObserver(metrics.RecordPublish)
		defer redisPub.Close()
		publisher = redisPub
	}

	orchestrator := check.New(logger, check.WithRecorder(metrics), check.WithPublisher(publisher))
	policies := check.StandardPolicies(cfg.MSSQL.Enabled, mssqlAdapters, probe.NewPool("pool", sqlDB))

	interval := cfg.MonitorInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	recorders := monitor.NewMultiMetrics(
		monitor.NewPrometheusMetrics(metrics),
		monitor.NewConnectionLog(queries),
	)
	sched := monitor.NewScheduler(orchestrator, recorders, logger, monitor.Config{Interval: interval},
		monitor.ServiceTargets(logger, cfg.MSSQL, primary, policies, true))

	logger.Info("dbcheck-monitor started", "interval", interval, "mssql_enabled", cfg.MSSQL.Enabled)
	sched.Run(ctx)

	if err := sqlDB.Close(); err != nil {
		logger.Printf("closing db: %v", err)
	}
}
