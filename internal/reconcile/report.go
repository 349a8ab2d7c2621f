package reconcile

import (
	"encoding/json"
	"fmt"
	"sort"
)

// RowStatus is the terminal state of a row.
type RowStatus int

const (
	StatusInserted RowStatus = iota + 1
	StatusUpdated
	StatusFailed
)

func (s RowStatus) String() string {
	switch s {
	case StatusInserted:
		return "INSERTED"
	case StatusUpdated:
		return "UPDATED"
	case StatusFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("RowStatus(%d)", int(s))
	}
}

func (s RowStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// RowOutcome is the result of one input row.
type RowOutcome struct {
	RowNumber int       `json:"row_number"`
	Status    RowStatus `json:"status"`
	ID        int64     `json:"id,omitempty"`
	Message   string    `json:"error,omitempty"`
	Err       error     `json:"-"`
}

func failed(row int, err error) RowOutcome {
	return RowOutcome{RowNumber: row, Status: StatusFailed, Message: err.Error(), Err: err}
}

// Failure is one failed row in the report.
type Failure struct {
	RowNumber int    `json:"row_number"`
	Error     string `json:"error"`
}

// Outcome classifies a whole batch.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomePartial
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomePartial:
		return "partial"
	case OutcomeFailure:
		return "failure"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// BatchReport is what a run hands back to the caller.
type BatchReport struct {
	Total      int            `json:"total"`
	Inserted   int            `json:"inserted"`
	Updated    int            `json:"updated"`
	Failures   []Failure      `json:"failures"`
	Duplicates []DuplicateRow `json:"duplicates,omitempty"`
	Outcomes   []RowOutcome   `json:"-"`
	Canceled   bool           `json:"canceled,omitempty"`
}

// Succeeded is the number of inserted plus updated rows.
func (r *BatchReport) Succeeded() int {
	return r.Inserted + r.Updated
}

// Outcome reports full success, partial success or full failure. A batch
// without rows counts as a success.
func (r *BatchReport) Outcome() Outcome {
	switch {
	case len(r.Failures) == 0:
		return OutcomeSuccess
	case r.Succeeded() > 0:
		return OutcomePartial
	default:
		return OutcomeFailure
	}
}

// Aggregate folds outcomes into a report, ordered by row number.
func Aggregate(total int, outcomes []RowOutcome) *BatchReport {
	sorted := make([]RowOutcome, len(outcomes))
	copy(sorted, outcomes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RowNumber < sorted[j].RowNumber
	})

	report := &BatchReport{Total: total, Failures: []Failure{}, Outcomes: sorted}
	for _, o := range sorted {
		switch o.Status {
		case StatusInserted:
			report.Inserted++
		case StatusUpdated:
			report.Updated++
		case StatusFailed:
			report.Failures = append(report.Failures, Failure{RowNumber: o.RowNumber, Error: o.Message})
		}
	}
	return report
}
