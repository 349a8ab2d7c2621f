package reconcile

import (
	"fmt"
	"strings"
)

// DuplicatePolicy decides what happens to a row whose key was already planned
// as CREATE earlier in the same batch.
type DuplicatePolicy int

const (
	// DuplicateUpdate plans the later row as an UPDATE of the record the
	// earlier row creates.
	DuplicateUpdate DuplicatePolicy = iota
	// DuplicateReject fails the later row with a *KeyConflictError.
	DuplicateReject
)

func (p DuplicatePolicy) String() string {
	switch p {
	case DuplicateUpdate:
		return "update"
	case DuplicateReject:
		return "reject"
	default:
		return fmt.Sprintf("DuplicatePolicy(%d)", int(p))
	}
}

// ParseDuplicatePolicy accepts "update" or "reject".
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "update":
		return DuplicateUpdate, nil
	case "reject":
		return DuplicateReject, nil
	}
	return 0, fmt.Errorf("unknown duplicate policy %q", s)
}

// Plan is the ordered output of the planner.
type Plan struct {
	Operations []PlannedOperation
	Rejected   []RowOutcome
}

// Planner turns mapped rows into operations. It is single-writer: the set of
// keys created in this batch is only touched from Plan.
type Planner struct {
	Policy     DuplicatePolicy
	CreateOnly []string
}

// Plan walks rows in order. existing must be the fully materialized lookup result.
func (p Planner) Plan(rows []MappedRow, existing map[string]ExistingRecord) Plan {
	created := make(map[string]int, len(rows)) // encoded key -> creating row
	plan := Plan{Operations: make([]PlannedOperation, 0, len(rows))}

	for _, row := range rows {
		op := PlannedOperation{
			RowNumber: row.Number,
			Key:       row.Key,
			Payload:   row.Record,
		}

		if row.Key.IsZero() {
			op.Kind = OpCreate
			plan.Operations = append(plan.Operations, op)
			continue
		}

		enc := row.Key.Encode()
		if rec, ok := existing[enc]; ok {
			op.Kind = OpUpdate
			op.TargetID = rec.ID
			op.Payload = row.Record.Without(p.CreateOnly...)
			plan.Operations = append(plan.Operations, op)
			continue
		}

		if firstRow, ok := created[enc]; ok {
			if p.Policy == DuplicateReject {
				err := &KeyConflictError{Row: row.Number, Key: row.Key, FirstRow: firstRow}
				plan.Rejected = append(plan.Rejected, failed(row.Number, err))
				continue
			}
			op.Kind = OpUpdate
			op.DependsOn = firstRow
			op.Payload = row.Record.Without(p.CreateOnly...)
			plan.Operations = append(plan.Operations, op)
			continue
		}

		op.Kind = OpCreate
		created[enc] = row.Number
		plan.Operations = append(plan.Operations, op)
	}
	return plan
}
