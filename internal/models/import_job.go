package models

import "time"

const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusPartial    = "partial"
	JobStatusFailed     = "failed"
	JobStatusCanceled   = "canceled"
)

// ImportJob tracks one uploaded workbook through reconciliation.
type ImportJob struct {
	ID           int       `db:"id" json:"id"`
	JobCode      string    `db:"job_code" json:"job_code"`
	Entity       string    `db:"entity" json:"entity"`
	UserID       int       `db:"user_id" json:"user_id"`
	Filename     string    `db:"filename" json:"filename"`
	FilePath     string    `db:"file_path" json:"-"`
	TotalRows    int       `db:"total_rows" json:"total_rows"`
	InsertedRows int       `db:"inserted_rows" json:"inserted_rows"`
	UpdatedRows  int       `db:"updated_rows" json:"updated_rows"`
	FailedRows   int       `db:"failed_rows" json:"failed_rows"`
	Status       string    `db:"status" json:"status"`
	ErrorMessage string    `db:"error_message" json:"error_message,omitempty"`
	ErrorReport  string    `db:"error_report" json:"error_report,omitempty"`
	Report       string    `db:"report" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Finished reports whether the job reached a terminal status.
func (j *ImportJob) Finished() bool {
	switch j.Status {
	case JobStatusCompleted, JobStatusPartial, JobStatusFailed, JobStatusCanceled:
		return true
	}
	return false
}

// ImportProgress is the live progress snapshot kept in Redis.
type ImportProgress struct {
	JobCode string `json:"job_code"`
	Status  string `json:"status"`
	Done    int    `json:"done"`
	Total   int    `json:"total"`
	Percent int    `json:"percent"`
}
