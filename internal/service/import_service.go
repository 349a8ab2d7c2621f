package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"management-web/internal/config"
	"management-web/internal/entities"
	"management-web/internal/models"
	"management-web/internal/reconcile"
	"management-web/internal/repository"
)

// TypeImportRun is the asynq task type of a queued import.
const TypeImportRun = "import:run"

var (
	ErrUnknownEntity = errors.New("unknown import entity")
	ErrQueueDisabled = errors.New("background job processing is not available")
	ErrJobFinished   = errors.New("import job already finished")
)

// ImportTaskPayload is the body of an import:run task.
type ImportTaskPayload struct {
	JobCode string `json:"job_code"`
}

// JobStore persists import jobs.
type JobStore interface {
	Create(job *models.ImportJob) error
	GetByCode(code string) (*models.ImportJob, error)
	List(limit, offset int, userID int) ([]models.ImportJob, int64, error)
	UpdateStatus(code, status, errorMessage string) error
	Finish(job *models.ImportJob) error
}

// Enqueuer is the part of *asynq.Client the service needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// StoreFactory builds the storage adapter of an entity.
type StoreFactory func(e entities.Entity) reconcile.Store

// ImportRequest describes one uploaded workbook.
type ImportRequest struct {
	Entity   string
	UserID   int
	Filename string
	FilePath string
	Async    bool
	DryRun   bool // plan against stored records without writing or recording a job
}

// ImportResult is what a synchronous import returns. Report is nil when the
// job was queued and Job is nil for a dry run.
type ImportResult struct {
	Job    *models.ImportJob      `json:"job"`
	Report *reconcile.BatchReport `json:"report,omitempty"`
	Queued bool                   `json:"queued"`
	DryRun bool                   `json:"dry_run,omitempty"`
}

type ImportService struct {
	jobs   JobStore
	excel  *ExcelService
	stores StoreFactory
	redis  *redis.Client
	queue  Enqueuer
	cfg    *config.Config
	log    logrus.FieldLogger
}

// NewImportService wires the service against MySQL. redisClient and queue may be nil.
func NewImportService(db *sqlx.DB, redisClient *redis.Client, queue Enqueuer, cfg *config.Config, log logrus.FieldLogger) *ImportService {
	stores := func(e entities.Entity) reconcile.Store {
		return repository.NewTableStore(db, e.Table, e.KeyFields, e.Columns())
	}
	return NewImportServiceWith(repository.NewImportJobRepository(db), stores, redisClient, queue, cfg, log)
}

func NewImportServiceWith(jobs JobStore, stores StoreFactory, redisClient *redis.Client, queue Enqueuer, cfg *config.Config, log logrus.FieldLogger) *ImportService {
	return &ImportService{
		jobs:   jobs,
		excel:  NewExcelService(),
		stores: stores,
		redis:  redisClient,
		queue:  queue,
		cfg:    cfg,
		log:    log,
	}
}

// Submit reads the workbook and either reconciles it right away or, for
// async requests and sheets above the configured threshold, queues it.
func (s *ImportService) Submit(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	entity, ok := entities.Lookup(req.Entity)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, req.Entity)
	}

	sheet, err := s.excel.ReadRows(req.FilePath, entity.Specs)
	if err != nil {
		return nil, err
	}

	if req.DryRun {
		report, err := s.preview(ctx, req, entity, sheet)
		if err != nil {
			return nil, err
		}
		return &ImportResult{Report: report, DryRun: true}, nil
	}

	job := &models.ImportJob{
		JobCode:   newJobCode(),
		Entity:    entity.Name,
		UserID:    req.UserID,
		Filename:  req.Filename,
		FilePath:  req.FilePath,
		TotalRows: len(sheet.Rows),
		Status:    models.JobStatusPending,
	}
	if err := s.jobs.Create(job); err != nil {
		return nil, fmt.Errorf("failed to create import job: %w", err)
	}

	if req.Async || (s.cfg.ImportAsyncThreshold > 0 && len(sheet.Rows) > s.cfg.ImportAsyncThreshold) {
		if err := s.enqueue(ctx, job); err != nil {
			return nil, err
		}
		return &ImportResult{Job: job, Queued: true}, nil
	}

	report, err := s.run(ctx, job, entity, sheet)
	if err != nil {
		return &ImportResult{Job: job}, err
	}
	return &ImportResult{Job: job, Report: report}, nil
}

// preview plans the sheet against the stored records. Lookups are real,
// writes are dropped and no job is recorded.
func (s *ImportService) preview(ctx context.Context, req ImportRequest, entity entities.Entity, sheet *Sheet) (*reconcile.BatchReport, error) {
	log := s.log.WithFields(logrus.Fields{
		"entity":  entity.Name,
		"user_id": req.UserID,
		"dry_run": true,
	})
	if s.cfg.ImportTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ImportTimeout)
		defer cancel()
	}

	engine := reconcile.New(NewPreviewStore(s.stores(entity)),
		reconcile.WithConcurrency(s.cfg.ImportConcurrency),
		reconcile.WithDuplicatePolicy(s.cfg.DuplicatePolicy()),
		reconcile.WithLogger(log),
	)
	stamped := entity.WithFixed("created_by", strconv.Itoa(req.UserID))
	report, err := engine.Run(ctx, stamped.Batch(sheet.Rows))
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"inserted": report.Inserted,
		"updated":  report.Updated,
		"failed":   len(report.Failures),
	}).Info("Import previewed")
	return report, nil
}

func (s *ImportService) enqueue(ctx context.Context, job *models.ImportJob) error {
	if s.queue == nil {
		_ = s.jobs.UpdateStatus(job.JobCode, models.JobStatusFailed, ErrQueueDisabled.Error())
		return ErrQueueDisabled
	}

	payload, err := json.Marshal(ImportTaskPayload{JobCode: job.JobCode})
	if err != nil {
		return err
	}
	task := asynq.NewTask(TypeImportRun, payload)
	info, err := s.queue.EnqueueContext(ctx, task, asynq.MaxRetry(0), asynq.Timeout(s.cfg.ImportTimeout))
	if err != nil {
		_ = s.jobs.UpdateStatus(job.JobCode, models.JobStatusFailed, err.Error())
		return fmt.Errorf("failed to queue import task: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"job_code": job.JobCode,
		"task_id":  info.ID,
		"rows":     job.TotalRows,
	}).Info("Import queued")
	s.setProgress(ctx, job, models.JobStatusPending, 0, job.TotalRows)
	return nil
}

// RunJob reconciles a queued job. Finished jobs are skipped.
func (s *ImportService) RunJob(ctx context.Context, code string) (*reconcile.BatchReport, error) {
	job, err := s.jobs.GetByCode(code)
	if err != nil {
		return nil, fmt.Errorf("failed to get import job %s: %w", code, err)
	}
	if job.Finished() || job.Status == models.JobStatusProcessing {
		return nil, fmt.Errorf("%w: %s is %s", ErrJobFinished, code, job.Status)
	}

	entity, ok := entities.Lookup(job.Entity)
	if !ok {
		_ = s.jobs.UpdateStatus(code, models.JobStatusFailed, ErrUnknownEntity.Error())
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, job.Entity)
	}

	sheet, err := s.excel.ReadRows(job.FilePath, entity.Specs)
	if err != nil {
		_ = s.jobs.UpdateStatus(code, models.JobStatusFailed, err.Error())
		return nil, err
	}
	return s.run(ctx, job, entity, sheet)
}

func (s *ImportService) run(ctx context.Context, job *models.ImportJob, entity entities.Entity, sheet *Sheet) (*reconcile.BatchReport, error) {
	log := s.log.WithFields(logrus.Fields{
		"job_code": job.JobCode,
		"entity":   entity.Name,
		"user_id":  job.UserID,
	})

	if err := s.jobs.UpdateStatus(job.JobCode, models.JobStatusProcessing, ""); err != nil {
		log.WithError(err).Warn("Failed to mark import job as processing")
	}
	job.Status = models.JobStatusProcessing

	if s.cfg.ImportTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ImportTimeout)
		defer cancel()
	}

	stamped := entity.WithFixed("created_by", strconv.Itoa(job.UserID))
	engine := reconcile.New(s.stores(entity),
		reconcile.WithConcurrency(s.cfg.ImportConcurrency),
		reconcile.WithDuplicatePolicy(s.cfg.DuplicatePolicy()),
		reconcile.WithLogger(log),
		reconcile.WithProgress(s.progressFunc(ctx, job)),
	)

	report, err := engine.Run(ctx, stamped.Batch(sheet.Rows))
	if err != nil {
		job.Status = models.JobStatusFailed
		job.ErrorMessage = err.Error()
		if ferr := s.jobs.Finish(job); ferr != nil {
			log.WithError(ferr).Error("Failed to store failed import job")
		}
		s.setProgress(ctx, job, job.Status, 0, job.TotalRows)
		return nil, err
	}

	job.TotalRows = report.Total
	job.InsertedRows = report.Inserted
	job.UpdatedRows = report.Updated
	job.FailedRows = len(report.Failures)
	job.Status = jobStatus(report)
	if report.Canceled {
		job.ErrorMessage = "import interrupted before every row was processed"
	}

	if len(report.Failures) > 0 {
		name := fmt.Sprintf("import_errors_%s_%s.xlsx", job.JobCode, time.Now().Format("20060102_150405"))
		if err := s.excel.GenerateErrorReport(sheet, report, filepath.Join(s.cfg.ExportPath, name)); err != nil {
			log.WithError(err).Warn("Failed to generate import error report")
		} else {
			job.ErrorReport = name
		}
	}

	if raw, err := json.Marshal(report); err == nil {
		job.Report = string(raw)
	}
	if err := s.jobs.Finish(job); err != nil {
		log.WithError(err).Error("Failed to store import job result")
	}
	s.setProgress(context.WithoutCancel(ctx), job, job.Status, report.Succeeded()+len(report.Failures), report.Total)

	return report, nil
}

func jobStatus(report *reconcile.BatchReport) string {
	if report.Canceled {
		return models.JobStatusCanceled
	}
	switch report.Outcome() {
	case reconcile.OutcomeSuccess:
		return models.JobStatusCompleted
	case reconcile.OutcomePartial:
		return models.JobStatusPartial
	default:
		return models.JobStatusFailed
	}
}

func (s *ImportService) GetJob(code string) (*models.ImportJob, error) {
	return s.jobs.GetByCode(code)
}

func (s *ImportService) ListJobs(limit, offset int, userID int) ([]models.ImportJob, int64, error) {
	return s.jobs.List(limit, offset, userID)
}

// JobReport decodes the stored report of a finished job.
func (s *ImportService) JobReport(job *models.ImportJob) (*reconcile.BatchReport, error) {
	if job.Report == "" {
		return nil, nil
	}
	var report reconcile.BatchReport
	if err := json.Unmarshal([]byte(job.Report), &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// Progress returns the live progress of a job, falling back to the stored job row.
func (s *ImportService) Progress(ctx context.Context, code string) (*models.ImportProgress, error) {
	if s.redis != nil {
		raw, err := s.redis.Get(ctx, progressKey(code)).Result()
		if err == nil {
			var p models.ImportProgress
			if json.Unmarshal([]byte(raw), &p) == nil {
				return &p, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.log.WithError(err).WithField("job_code", code).Warn("Failed to read import progress")
		}
	}

	job, err := s.jobs.GetByCode(code)
	if err != nil {
		return nil, err
	}
	done := 0
	if job.Finished() {
		done = job.TotalRows
	}
	return newProgress(job, job.Status, done, job.TotalRows), nil
}

func (s *ImportService) progressFunc(ctx context.Context, job *models.ImportJob) reconcile.ProgressFunc {
	if s.redis == nil {
		return nil
	}
	lastPercent := -1
	return func(done, total int) {
		p := percent(done, total)
		if p == lastPercent {
			return
		}
		lastPercent = p
		s.setProgress(ctx, job, models.JobStatusProcessing, done, total)
	}
}

func (s *ImportService) setProgress(ctx context.Context, job *models.ImportJob, status string, done, total int) {
	if s.redis == nil {
		return
	}
	raw, err := json.Marshal(newProgress(job, status, done, total))
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, progressKey(job.JobCode), raw, s.cfg.ProgressTTL).Err(); err != nil {
		s.log.WithError(err).WithField("job_code", job.JobCode).Warn("Failed to write import progress")
	}
}

func newProgress(job *models.ImportJob, status string, done, total int) *models.ImportProgress {
	return &models.ImportProgress{
		JobCode: job.JobCode,
		Status:  status,
		Done:    done,
		Total:   total,
		Percent: percent(done, total),
	}
}

func percent(done, total int) int {
	if total <= 0 {
		return 100
	}
	return done * 100 / total
}

func progressKey(code string) string {
	return fmt.Sprintf("import:progress:%s", code)
}

func newJobCode() string {
	return fmt.Sprintf("IMPORT-%s", uuid.New().String()[:8])
}
