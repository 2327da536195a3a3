package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/grand-nerud/backoffice/internal/app"
	"github.com/grand-nerud/backoffice/internal/audit"
	jobmetrics "github.com/grand-nerud/backoffice/internal/jobs"
	"github.com/grand-nerud/backoffice/internal/platform/db"
	"github.com/grand-nerud/backoffice/jobs"
)

func main() {
	if app.InTestMode() {
		log.Print("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Printf("load config: %v", err)
		os.Exit(1)
	}

	logger, err := app.NewLogger(cfg)
	if err != nil {
		log.Printf("init logger: %v", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.Named("worker")

	mongoClient, database, err := db.New(ctx, cfg.MongoURI, cfg.MongoDB, cfg.MongoTimeout)
	if err != nil {
		logger.Error("connect mongo", zap.Error(err))
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(mongoClient, cfg.AppShutdownTimeout); err != nil {
			logger.Warn("mongo disconnect", zap.Error(err))
		}
	}()

	metrics := jobmetrics.NewMetrics(prometheus.DefaultRegisterer)
	auditJob := jobs.NewAuditJob(audit.NewService(audit.NewRepository(database, logger)), logger, metrics)

	purgeTask, err := jobs.NewAuditPurgeTask(cfg.AuditRetention)
	if err != nil {
		logger.Error("build purge task", zap.Error(err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskAuditRecord, Handler: auditJob.HandleRecord},
			{Type: jobs.TaskAuditPurge, Handler: auditJob.HandlePurge},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.AuditPurgeCron, Task: purgeTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", zap.Error(err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", zap.Error(err))
		os.Exit(1)
	}
}
