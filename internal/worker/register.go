package worker

import (
	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"management-web/internal/config"
	"management-web/internal/service"
)

func RegisterHandlers(mux *asynq.ServeMux, db *sqlx.DB, redis *redis.Client, cfg *config.Config, log logrus.FieldLogger) {
	importService := service.NewImportService(db, redis, nil, cfg, log)
	mux.Handle(service.TypeImportRun, NewImportTaskHandler(importService, log))
}
