package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"management-web/internal/config"
	"management-web/internal/database"
	"management-web/internal/utils"
	"management-web/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	appLog := utils.NewLogger(cfg.LogLevel, cfg.LogFormat)
	workerLog := appLog.WithField("service", "worker")

	if err := os.MkdirAll(cfg.ExportPath, 0o755); err != nil {
		workerLog.WithError(err).Fatal("Failed to create export directory")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewMySQL(ctx, cfg)
	if err != nil {
		workerLog.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	redisClient, err := database.NewRedis(ctx, cfg)
	if err != nil {
		workerLog.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisClient.Close()

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.AsynqRedisAddr,
			Password: cfg.AsynqRedisPassword,
			DB:       cfg.AsynqRedisDB,
		},
		asynq.Config{
			Concurrency: cfg.WorkerConcurrency,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			// A running import gets its full timeout to finish before the worker exits.
			ShutdownTimeout: cfg.ImportTimeout,
			Logger:          workerLog,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				workerLog.WithError(err).WithField("task", task.Type()).Error("Task failed")
			}),
		},
	)

	mux := asynq.NewServeMux()
	worker.RegisterHandlers(mux, db, redisClient, cfg, appLog)

	workerLog.WithField("concurrency", cfg.WorkerConcurrency).Info("Worker starting")
	if err := srv.Start(mux); err != nil {
		workerLog.WithError(err).Fatal("Failed to start worker")
	}

	<-ctx.Done()
	workerLog.Info("Shutting down")
	srv.Shutdown()
}
