package reconcile

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// Engine runs batches against one Store.
type Engine struct {
	store       Store
	concurrency int
	policy      DuplicatePolicy
	log         logrus.FieldLogger
	progress    ProgressFunc
}

// Option configures an Engine.
type Option func(*Engine)

// WithConcurrency bounds the number of storage calls in flight.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithDuplicatePolicy sets how same-batch duplicates are planned.
func WithDuplicatePolicy(p DuplicatePolicy) Option {
	return func(e *Engine) { e.policy = p }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithProgress registers a callback invoked after each executed operation.
// Calls are serialized.
func WithProgress(fn ProgressFunc) Option {
	return func(e *Engine) { e.progress = fn }
}

func New(store Store, opts ...Option) *Engine {
	silent := logrus.New()
	silent.SetOutput(io.Discard)

	e := &Engine{
		store:       store,
		concurrency: DefaultConcurrency,
		policy:      DuplicateUpdate,
		log:         silent,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run reconciles one batch. The returned error is non-nil only when the
// batch could not be attempted at all (bad key declaration or failed lookup);
// in that case nothing was written. Row level failures are in the report.
func (e *Engine) Run(ctx context.Context, b Batch) (*BatchReport, error) {
	if n := len(b.KeyFields); n == 0 || n > MaxKeyFields {
		return nil, fmt.Errorf("business key must have 1 to %d fields, got %d", MaxKeyFields, n)
	}

	log := e.log.WithFields(logrus.Fields{
		"rows":       len(b.Rows),
		"key_fields": b.KeyFields,
	})

	var early []RowOutcome
	mapped := make([]MappedRow, 0, len(b.Rows))
	for _, row := range b.Rows {
		record, err := MapRow(row, b.Specs)
		if err != nil {
			early = append(early, failed(row.Number, err))
			continue
		}
		if err := ValidateRow(row.Number, record, b.Validator); err != nil {
			early = append(early, failed(row.Number, err))
			continue
		}
		mapped = append(mapped, MappedRow{
			Number: row.Number,
			Record: record,
			Key:    KeyFor(record, b.KeyFields),
		})
	}

	duplicates := FlagDuplicates(mapped)

	existing, err := Resolve(ctx, e.store, mapped)
	if err != nil {
		log.WithError(err).Error("Existing record lookup failed, batch aborted")
		return nil, err
	}

	plan := Planner{Policy: e.policy, CreateOnly: b.CreateOnly}.Plan(mapped, existing)
	log.WithFields(logrus.Fields{
		"invalid":  len(early),
		"matched":  len(existing),
		"planned":  len(plan.Operations),
		"rejected": len(plan.Rejected),
	}).Debug("Batch planned")

	executed := Executor{
		Store:       e.store,
		Concurrency: e.concurrency,
		Progress:    e.progress,
	}.Execute(ctx, plan.Operations)

	outcomes := make([]RowOutcome, 0, len(early)+len(plan.Rejected)+len(executed))
	outcomes = append(outcomes, early...)
	outcomes = append(outcomes, plan.Rejected...)
	outcomes = append(outcomes, executed...)

	report := Aggregate(len(b.Rows), outcomes)
	report.Duplicates = duplicates
	report.Canceled = ctx.Err() != nil || len(executed) < len(plan.Operations)

	entry := log.WithFields(logrus.Fields{
		"inserted": report.Inserted,
		"updated":  report.Updated,
		"failed":   len(report.Failures),
		"outcome":  report.Outcome().String(),
	})
	if report.Canceled {
		entry.WithError(ctx.Err()).Warn("Batch canceled before all operations ran")
	} else {
		entry.Info("Batch reconciled")
	}
	return report, nil
}
