package reconcile

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency keeps storage calls gentle on rate limited backends.
const DefaultConcurrency = 4

// ProgressFunc is told how many operations reached a terminal state.
type ProgressFunc func(done, total int)

// Executor applies a plan through a Store.
//
// Operations sharing a business key run in plan order inside one task, so an
// UPDATE of a record created earlier in the batch always sees its id. Distinct
// keys run concurrently, at most Concurrency at a time. Once ctx is done no new
// operation starts; calls already in flight complete, since store calls get a
// context that keeps ctx's values but not its cancellation.
type Executor struct {
	Store       Store
	Concurrency int
	Progress    ProgressFunc
}

// Execute returns one outcome per operation that reached a terminal state, in plan order.
func (e Executor) Execute(ctx context.Context, ops []PlannedOperation) []RowOutcome {
	limit := e.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	slots := make([]*RowOutcome, len(ops))
	tracker := &progress{fn: e.Progress, total: len(ops)}

	// Row failures are recorded in slots, never returned, so siblings keep running.
	var g errgroup.Group
	g.SetLimit(limit)
	for _, chain := range chains(ops) {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			e.runChain(ctx, ops, chain, slots, tracker)
			return nil
		})
	}
	_ = g.Wait()

	outcomes := make([]RowOutcome, 0, len(ops))
	for _, s := range slots {
		if s != nil {
			outcomes = append(outcomes, *s)
		}
	}
	return outcomes
}

func (e Executor) runChain(ctx context.Context, ops []PlannedOperation, chain []int, slots []*RowOutcome, tracker *progress) {
	created := make(map[int]int64, 1) // creating row -> new id
	writeCtx := context.WithoutCancel(ctx)

	for _, pos := range chain {
		if ctx.Err() != nil {
			return
		}
		op := ops[pos]
		var outcome RowOutcome

		switch {
		case op.Kind == OpCreate:
			id, err := e.create(writeCtx, op.Payload)
			if err != nil {
				outcome = failed(op.RowNumber, &StorageError{Row: op.RowNumber, Op: OpCreate, Err: err})
				break
			}
			created[op.RowNumber] = id
			outcome = RowOutcome{RowNumber: op.RowNumber, Status: StatusInserted, ID: id}

		case op.DependsOn != 0:
			id, ok := created[op.DependsOn]
			if !ok {
				outcome = failed(op.RowNumber, &KeyConflictError{
					Row:      op.RowNumber,
					Key:      op.Key,
					FirstRow: op.DependsOn,
					Reason:   fmt.Sprintf("duplicate key %s: row %d was not created, nothing to update", op.Key, op.DependsOn),
				})
				break
			}
			outcome = e.update(writeCtx, op, id)

		default:
			outcome = e.update(writeCtx, op, op.TargetID)
		}

		slots[pos] = &outcome
		tracker.step()
	}
}

func (e Executor) update(ctx context.Context, op PlannedOperation, id int64) RowOutcome {
	if err := e.call(func() error { return e.Store.Update(ctx, id, op.Payload) }); err != nil {
		return failed(op.RowNumber, &StorageError{Row: op.RowNumber, Op: OpUpdate, Err: err})
	}
	return RowOutcome{RowNumber: op.RowNumber, Status: StatusUpdated, ID: id}
}

func (e Executor) create(ctx context.Context, payload Record) (int64, error) {
	var id int64
	err := e.call(func() error {
		var err error
		id, err = e.Store.Create(ctx, payload)
		return err
	})
	return id, err
}

// call turns a panicking adapter into a row failure.
func (e Executor) call(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("storage adapter panic: %v", r)
		}
	}()
	return fn()
}

// chains groups plan positions by key, preserving plan order within and across groups.
func chains(ops []PlannedOperation) [][]int {
	index := make(map[string]int, len(ops))
	var out [][]int
	for pos, op := range ops {
		if op.Key.IsZero() {
			out = append(out, []int{pos})
			continue
		}
		enc := op.Key.Encode()
		if i, ok := index[enc]; ok {
			out[i] = append(out[i], pos)
			continue
		}
		index[enc] = len(out)
		out = append(out, []int{pos})
	}
	return out
}

type progress struct {
	mu    sync.Mutex
	fn    ProgressFunc
	done  int
	total int
}

func (p *progress) step() {
	if p.fn == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	p.fn(p.done, p.total)
}
