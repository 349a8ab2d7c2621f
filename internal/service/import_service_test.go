package service

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"management-web/internal/config"
	"management-web/internal/entities"
	"management-web/internal/models"
	"management-web/internal/reconcile"
)

type fakeJobs struct {
	mu   sync.Mutex
	jobs map[string]*models.ImportJob
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{jobs: map[string]*models.ImportJob{}}
}

func (f *fakeJobs) Create(job *models.ImportJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job.ID = len(f.jobs) + 1
	cp := *job
	f.jobs[job.JobCode] = &cp
	return nil
}

func (f *fakeJobs) GetByCode(code string) (*models.ImportJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[code]
	if !ok {
		return nil, errors.New("sql: no rows in result set")
	}
	cp := *job
	return &cp, nil
}

func (f *fakeJobs) List(limit, offset int, userID int) ([]models.ImportJob, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ImportJob
	for _, j := range f.jobs {
		if userID == 0 || j.UserID == userID {
			out = append(out, *j)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeJobs) UpdateStatus(code, status, errorMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if job, ok := f.jobs[code]; ok {
		job.Status = status
		job.ErrorMessage = errorMessage
	}
	return nil
}

func (f *fakeJobs) Finish(job *models.ImportJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *job
	f.jobs[job.JobCode] = &cp
	return nil
}

type fakeQueue struct {
	tasks []*asynq.Task
	err   error
}

func (q *fakeQueue) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Type: task.Type()}, nil
}

type recordStore struct {
	mu        sync.Mutex
	keyFields []string
	rows      []reconcile.Record
}

func (s *recordStore) LookupExisting(_ context.Context, keys []reconcile.BusinessKey) ([]reconcile.ExistingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := map[string]bool{}
	for _, k := range keys {
		want[k.Encode()] = true
	}
	var out []reconcile.ExistingRecord
	for i, r := range s.rows {
		k := reconcile.KeyFor(r, s.keyFields)
		if want[k.Encode()] {
			out = append(out, reconcile.ExistingRecord{ID: int64(i + 1), Key: k})
		}
	}
	return out, nil
}

func (s *recordStore) Create(_ context.Context, r reconcile.Record) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, r.Clone())
	return int64(len(s.rows)), nil
}

func (s *recordStore) Update(_ context.Context, id int64, r reconcile.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range r {
		s.rows[id-1][k] = v
	}
	return nil
}

type importFixture struct {
	svc   *ImportService
	jobs  *fakeJobs
	queue *fakeQueue
	store *recordStore
	cfg   *config.Config
	dir   string
}

func newImportFixture(t *testing.T, threshold int) *importFixture {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		ExportPath:            dir,
		ImportConcurrency:     2,
		ImportDuplicatePolicy: "update",
		ImportAsyncThreshold:  threshold,
		ImportTimeout:         time.Minute,
		ProgressTTL:           time.Hour,
	}
	fx := &importFixture{jobs: newFakeJobs(), queue: &fakeQueue{}, cfg: cfg, dir: dir}
	fx.store = &recordStore{keyFields: []string{"group_code"}}
	logger, _ := test.NewNullLogger()
	stores := func(entities.Entity) reconcile.Store { return fx.store }
	fx.svc = NewImportServiceWith(fx.jobs, stores, nil, fx.queue, cfg, logger)
	return fx
}

func writeTicketGroups(t *testing.T, dir string, rows ...[]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Ticket type", "Group code", "Group name", "Monthly quota"}))
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	path := filepath.Join(dir, "ticket_groups.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestSubmitReconcilesSynchronously(t *testing.T) {
	fx := newImportFixture(t, 0)
	path := writeTicketGroups(t, fx.dir,
		[]interface{}{"Overtime", "OT", "Overtime requests", 10},
		[]interface{}{"Leave", "LV", "", 4},
		[]interface{}{"Leave", "LV2", "Leave requests", 4},
	)

	res, err := fx.svc.Submit(context.Background(), ImportRequest{
		Entity: "ticket-groups", UserID: 7, Filename: "groups.xlsx", FilePath: path,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Report)
	assert.False(t, res.Queued)

	assert.Equal(t, 2, res.Report.Inserted)
	assert.Equal(t, []reconcile.Failure{{RowNumber: 3, Error: "Group name is required"}}, res.Report.Failures)

	job, err := fx.jobs.GetByCode(res.Job.JobCode)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPartial, job.Status)
	assert.Equal(t, 2, job.InsertedRows)
	assert.Equal(t, 1, job.FailedRows)
	require.NotEmpty(t, job.ErrorReport)
	assert.FileExists(t, filepath.Join(fx.dir, job.ErrorReport))

	stored, err := fx.svc.JobReport(job)
	require.NoError(t, err)
	assert.Equal(t, res.Report.Failures, stored.Failures)

	require.Len(t, fx.store.rows, 2)
	assert.Equal(t, "7", fx.store.rows[0]["created_by"])
}

func TestSubmitStampsUploaderOverSheetValue(t *testing.T) {
	fx := newImportFixture(t, 0)
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Ticket type", "Group code", "Group name", "Created by"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"Overtime", "OT", "Overtime requests", "99"}))
	path := filepath.Join(fx.dir, "claimed.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	res, err := fx.svc.Submit(context.Background(), ImportRequest{
		Entity: "ticket-groups", UserID: 7, Filename: "claimed.xlsx", FilePath: path,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Report.Inserted)

	require.Len(t, fx.store.rows, 1)
	assert.Equal(t, "7", fx.store.rows[0]["created_by"])
}

func TestSubmitDryRunWritesNothing(t *testing.T) {
	fx := newImportFixture(t, 0)
	fx.store.rows = []reconcile.Record{{"group_code": "OT", "group_name": "Old name", "created_by": "3"}}
	path := writeTicketGroups(t, fx.dir,
		[]interface{}{"Overtime", "OT", "Overtime requests", 10},
		[]interface{}{"Leave", "LV", "Leave requests", 4},
		[]interface{}{"Leave", "", "No code", 4},
	)

	res, err := fx.svc.Submit(context.Background(), ImportRequest{
		Entity: "ticket-groups", UserID: 7, Filename: "groups.xlsx", FilePath: path, DryRun: true,
	})
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.Nil(t, res.Job)
	assert.Equal(t, 1, res.Report.Inserted)
	assert.Equal(t, 1, res.Report.Updated)
	assert.Len(t, res.Report.Failures, 1)

	require.Len(t, fx.store.rows, 1)
	assert.Equal(t, "Old name", fx.store.rows[0]["group_name"])
	assert.Empty(t, fx.jobs.jobs)
	assert.Empty(t, fx.queue.tasks)
}

func TestSubmitTwiceUpdates(t *testing.T) {
	fx := newImportFixture(t, 0)
	path := writeTicketGroups(t, fx.dir, []interface{}{"Overtime", "OT", "Overtime requests", 10})

	req := ImportRequest{Entity: "ticket-groups", UserID: 7, Filename: "groups.xlsx", FilePath: path}
	_, err := fx.svc.Submit(context.Background(), req)
	require.NoError(t, err)

	req.UserID = 9
	res, err := fx.svc.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Report.Updated)
	assert.Equal(t, models.JobStatusCompleted, res.Job.Status)

	require.Len(t, fx.store.rows, 1)
	assert.Equal(t, "7", fx.store.rows[0]["created_by"], "creator is kept on update")
}

func TestSubmitUnknownEntity(t *testing.T) {
	fx := newImportFixture(t, 0)
	_, err := fx.svc.Submit(context.Background(), ImportRequest{Entity: "invoices"})
	assert.ErrorIs(t, err, ErrUnknownEntity)
}

func TestSubmitInvalidWorkbook(t *testing.T) {
	fx := newImportFixture(t, 0)
	_, err := fx.svc.Submit(context.Background(), ImportRequest{Entity: "ticket-groups", FilePath: filepath.Join(fx.dir, "missing.xlsx")})
	assert.ErrorIs(t, err, ErrInvalidWorkbook)
	assert.Empty(t, fx.jobs.jobs)
}

func TestSubmitQueuesLargeSheets(t *testing.T) {
	fx := newImportFixture(t, 1)
	path := writeTicketGroups(t, fx.dir,
		[]interface{}{"Overtime", "OT", "Overtime requests", 10},
		[]interface{}{"Leave", "LV", "Leave requests", 4},
	)

	res, err := fx.svc.Submit(context.Background(), ImportRequest{Entity: "ticket-groups", UserID: 3, FilePath: path})
	require.NoError(t, err)
	assert.True(t, res.Queued)
	assert.Nil(t, res.Report)
	assert.Empty(t, fx.store.rows)

	require.Len(t, fx.queue.tasks, 1)
	assert.Equal(t, TypeImportRun, fx.queue.tasks[0].Type())
	var payload ImportTaskPayload
	require.NoError(t, json.Unmarshal(fx.queue.tasks[0].Payload(), &payload))
	assert.Equal(t, res.Job.JobCode, payload.JobCode)

	report, err := fx.svc.RunJob(context.Background(), payload.JobCode)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Inserted)

	job, _ := fx.jobs.GetByCode(payload.JobCode)
	assert.Equal(t, models.JobStatusCompleted, job.Status)

	_, err = fx.svc.RunJob(context.Background(), payload.JobCode)
	assert.ErrorIs(t, err, ErrJobFinished)
}

func TestSubmitAsyncWithoutQueue(t *testing.T) {
	fx := newImportFixture(t, 0)
	logger, _ := test.NewNullLogger()
	svc := NewImportServiceWith(fx.jobs, func(entities.Entity) reconcile.Store { return fx.store }, nil, nil, fx.cfg, logger)
	path := writeTicketGroups(t, fx.dir, []interface{}{"Overtime", "OT", "Overtime requests", 10})

	_, err := svc.Submit(context.Background(), ImportRequest{Entity: "ticket-groups", FilePath: path, Async: true})
	assert.ErrorIs(t, err, ErrQueueDisabled)
	for _, job := range fx.jobs.jobs {
		assert.Equal(t, models.JobStatusFailed, job.Status)
	}
}

func TestProgressFallsBackToJob(t *testing.T) {
	fx := newImportFixture(t, 0)
	path := writeTicketGroups(t, fx.dir, []interface{}{"Overtime", "OT", "Overtime requests", 10})

	res, err := fx.svc.Submit(context.Background(), ImportRequest{Entity: "ticket-groups", FilePath: path})
	require.NoError(t, err)

	p, err := fx.svc.Progress(context.Background(), res.Job.JobCode)
	require.NoError(t, err)
	assert.Equal(t, models.ImportProgress{JobCode: res.Job.JobCode, Status: models.JobStatusCompleted, Done: 1, Total: 1, Percent: 100}, *p)
}

func TestJobStatus(t *testing.T) {
	assert.Equal(t, models.JobStatusCompleted, jobStatus(&reconcile.BatchReport{Inserted: 1}))
	assert.Equal(t, models.JobStatusPartial, jobStatus(&reconcile.BatchReport{Inserted: 1, Failures: []reconcile.Failure{{RowNumber: 2}}}))
	assert.Equal(t, models.JobStatusFailed, jobStatus(&reconcile.BatchReport{Failures: []reconcile.Failure{{RowNumber: 2}}}))
	assert.Equal(t, models.JobStatusCanceled, jobStatus(&reconcile.BatchReport{Inserted: 1, Canceled: true}))
}
