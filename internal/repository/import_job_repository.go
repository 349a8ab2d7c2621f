package repository

import (
	"management-web/internal/models"

	"github.com/jmoiron/sqlx"
)

type ImportJobRepository struct {
	db *sqlx.DB
}

func NewImportJobRepository(db *sqlx.DB) *ImportJobRepository {
	return &ImportJobRepository{db: db}
}

func (r *ImportJobRepository) Create(job *models.ImportJob) error {
	query := `INSERT INTO import_jobs (job_code, entity, user_id, filename, file_path,
	          total_rows, status, created_at, updated_at) VALUES (:job_code, :entity, :user_id,
	          :filename, :file_path, :total_rows, :status, NOW(), NOW())`
	result, err := r.db.NamedExec(query, job)
	if err != nil {
		return err
	}
	id, _ := result.LastInsertId()
	job.ID = int(id)
	return nil
}

func (r *ImportJobRepository) GetByCode(code string) (*models.ImportJob, error) {
	var job models.ImportJob
	query := "SELECT * FROM import_jobs WHERE job_code = ? LIMIT 1"
	err := r.db.Get(&job, query, code)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// List returns the newest jobs first. userID 0 lists every user's jobs.
func (r *ImportJobRepository) List(limit, offset int, userID int) ([]models.ImportJob, int64, error) {
	jobs := []models.ImportJob{}
	var total int64

	whereClause := ""
	args := []interface{}{}
	if userID > 0 {
		whereClause = "WHERE user_id = ?"
		args = append(args, userID)
	}

	countQuery := "SELECT COUNT(*) FROM import_jobs " + whereClause
	if err := r.db.Get(&total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	query := "SELECT * FROM import_jobs " + whereClause + " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)
	if err := r.db.Select(&jobs, query, args...); err != nil {
		return nil, 0, err
	}

	return jobs, total, nil
}

func (r *ImportJobRepository) UpdateStatus(code, status, errorMessage string) error {
	query := "UPDATE import_jobs SET status = ?, error_message = ?, updated_at = NOW() WHERE job_code = ?"
	_, err := r.db.Exec(query, status, errorMessage, code)
	return err
}

// Finish stores the counters, report and final status of a job.
func (r *ImportJobRepository) Finish(job *models.ImportJob) error {
	query := `UPDATE import_jobs SET total_rows = :total_rows, inserted_rows = :inserted_rows,
	          updated_rows = :updated_rows, failed_rows = :failed_rows, status = :status,
	          error_message = :error_message, error_report = :error_report, report = :report,
	          updated_at = NOW() WHERE job_code = :job_code`
	_, err := r.db.NamedExec(query, job)
	return err
}
