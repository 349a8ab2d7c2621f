// Package reconcile turns a batch of spreadsheet rows into create/update calls
// against persisted records and reports the outcome of every row.
//
// A run goes through fixed stages: rows are mapped and validated independently,
// the distinct business keys are resolved against storage in one lookup, a
// sequential planner decides CREATE or UPDATE per row, and an executor applies
// the plan with bounded concurrency. Row failures never abort the batch; only a
// failed lookup does, and it happens before any write.
package reconcile

import (
	"context"
	"fmt"
	"sort"
)

// Cell is an untyped spreadsheet value: string, a numeric kind, bool, time.Time or nil.
type Cell = any

// RawRow is one spreadsheet row keyed by column header. Number is the 1-indexed
// row number shown to the user.
type RawRow struct {
	Number int
	Cells  map[string]Cell
}

// Record is a typed payload keyed by target field name.
type Record map[string]any

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Without returns a copy of r lacking the given fields.
func (r Record) Without(fields ...string) Record {
	out := r.Clone()
	for _, f := range fields {
		delete(out, f)
	}
	return out
}

// Fields returns the field names of r in sorted order.
func (r Record) Fields() []string {
	names := make([]string, 0, len(r))
	for k := range r {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// FieldSpec declares how one target field is read from a raw row.
type FieldSpec struct {
	Name     string
	Label    string
	Columns  []string // header synonyms, first non-empty match wins
	Required bool
	Coerce   Coercion
	Default  Cell // used when the cell is absent, before coercion
}

// Kind returns the semantic type declared by the field's coercion.
func (s FieldSpec) Kind() Kind {
	return s.Coerce.Kind
}

func (s FieldSpec) label() string {
	if s.Label != "" {
		return s.Label
	}
	return s.Name
}

// MappedRow is a typed record that passed mapping and validation.
type MappedRow struct {
	Number      int
	Record      Record
	Key         BusinessKey
	Duplicate   bool
	DuplicateOf int
}

// ExistingRecord is a persisted entity matched by business key.
type ExistingRecord struct {
	ID  int64
	Key BusinessKey
}

// Store is the storage adapter the engine writes through.
type Store interface {
	// LookupExisting returns the persisted records matching any of keys. It is
	// called at most once per batch.
	LookupExisting(ctx context.Context, keys []BusinessKey) ([]ExistingRecord, error)
	Create(ctx context.Context, payload Record) (int64, error)
	Update(ctx context.Context, id int64, payload Record) error
}

// OpKind is the kind of a planned operation.
type OpKind int

const (
	OpCreate OpKind = iota
	OpUpdate
)

func (k OpKind) String() string {
	switch k {
	case OpCreate:
		return "CREATE"
	case OpUpdate:
		return "UPDATE"
	default:
		return fmt.Sprintf("OpKind(%d)", int(k))
	}
}

// PlannedOperation is consumed exactly once by the executor.
type PlannedOperation struct {
	RowNumber int
	Kind      OpKind
	TargetID  int64 // UPDATE against a stored record
	DependsOn int   // UPDATE against the record created by this row in the same batch
	Key       BusinessKey
	Payload   Record
}

// Batch is everything one engine run needs besides the store.
type Batch struct {
	Rows       []RawRow
	Specs      []FieldSpec
	KeyFields  []string
	Validator  Validator
	CreateOnly []string // fields written on CREATE but never overwritten by UPDATE
}
