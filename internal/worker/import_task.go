package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"management-web/internal/reconcile"
	"management-web/internal/service"
)

// JobRunner runs a queued import job.
type JobRunner interface {
	RunJob(ctx context.Context, code string) (*reconcile.BatchReport, error)
}

type ImportTaskHandler struct {
	runner JobRunner
	log    logrus.FieldLogger
}

func NewImportTaskHandler(runner JobRunner, log logrus.FieldLogger) *ImportTaskHandler {
	return &ImportTaskHandler{runner: runner, log: log}
}

func (h *ImportTaskHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload service.ImportTaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w: %w", err, asynq.SkipRetry)
	}
	if payload.JobCode == "" {
		return fmt.Errorf("import task without job code: %w", asynq.SkipRetry)
	}

	log := h.log.WithField("job_code", payload.JobCode)
	log.Info("Starting import job")

	report, err := h.runner.RunJob(ctx, payload.JobCode)
	switch {
	case errors.Is(err, service.ErrJobFinished):
		// Redelivered task for a job that already ran
		log.WithError(err).Info("Skipping import job")
		return nil
	case err != nil:
		return err
	}

	log.WithFields(logrus.Fields{
		"inserted": report.Inserted,
		"updated":  report.Updated,
		"failed":   len(report.Failures),
	}).Info("Import job finished")
	return nil
}
