package reconcile

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createOp(row int, code string) PlannedOperation {
	rec := Record{"code": code}
	return PlannedOperation{RowNumber: row, Kind: OpCreate, Key: KeyFor(rec, []string{"code"}), Payload: rec}
}

func dependentOp(row, dependsOn int, code string, extra Record) PlannedOperation {
	rec := Record{"code": code}
	for k, v := range extra {
		rec[k] = v
	}
	return PlannedOperation{RowNumber: row, Kind: OpUpdate, DependsOn: dependsOn, Key: KeyFor(rec, []string{"code"}), Payload: rec}
}

func TestExecutorDependentUpdateUsesCreatedID(t *testing.T) {
	store := newMemStore("code")
	ops := []PlannedOperation{
		createOp(2, "A1"),
		dependentOp(3, 2, "A1", Record{"qty": 7}),
	}

	outcomes := Executor{Store: store}.Execute(context.Background(), ops)

	require.Len(t, outcomes, 2)
	assert.Equal(t, StatusInserted, outcomes[0].Status)
	assert.Equal(t, StatusUpdated, outcomes[1].Status)
	assert.Equal(t, outcomes[0].ID, outcomes[1].ID)
	assert.Equal(t, 7, store.get(outcomes[0].ID)["qty"])
}

func TestExecutorFailedCreateFailsDependants(t *testing.T) {
	store := newMemStore("code")
	store.failOn = func(op OpKind, p Record) error {
		if op == OpCreate && p["code"] == "A1" {
			return errors.New("connection reset")
		}
		return nil
	}
	ops := []PlannedOperation{
		createOp(2, "A1"),
		createOp(3, "B1"),
		dependentOp(4, 2, "A1", nil),
	}

	outcomes := Executor{Store: store}.Execute(context.Background(), ops)

	require.Len(t, outcomes, 3)
	assert.Equal(t, StatusFailed, outcomes[0].Status)
	assert.True(t, errors.Is(outcomes[0].Err, ErrStorage))
	assert.Equal(t, "connection reset", outcomes[0].Message)

	assert.Equal(t, StatusInserted, outcomes[1].Status)

	assert.Equal(t, StatusFailed, outcomes[2].Status)
	assert.True(t, errors.Is(outcomes[2].Err, ErrKeyConflict))
	assert.Equal(t, int32(0), store.updates.Load())
}

func TestExecutorRecoversPanics(t *testing.T) {
	store := newMemStore("code")
	store.failOn = func(op OpKind, p Record) error {
		if p["code"] == "boom" {
			panic("nil map")
		}
		return nil
	}

	outcomes := Executor{Store: store}.Execute(context.Background(), []PlannedOperation{
		createOp(2, "boom"),
		createOp(3, "ok"),
	})

	require.Len(t, outcomes, 2)
	assert.Equal(t, StatusFailed, outcomes[0].Status)
	assert.Contains(t, outcomes[0].Message, "nil map")
	assert.Equal(t, StatusInserted, outcomes[1].Status)
}

func TestExecutorRespectsConcurrencyLimit(t *testing.T) {
	store := newMemStore("code")
	store.delay = 5 * time.Millisecond

	var ops []PlannedOperation
	for i := 0; i < 24; i++ {
		ops = append(ops, createOp(i+2, fmt.Sprintf("K%02d", i)))
	}

	outcomes := Executor{Store: store, Concurrency: 3}.Execute(context.Background(), ops)

	assert.Len(t, outcomes, 24)
	assert.LessOrEqual(t, store.maxFlight.Load(), int32(3))
	assert.Equal(t, 24, store.count())
}

func TestExecutorOutcomesFollowPlanOrder(t *testing.T) {
	store := newMemStore("code")
	var ops []PlannedOperation
	for i := 0; i < 10; i++ {
		ops = append(ops, createOp(i+2, fmt.Sprintf("K%d", i)))
	}

	outcomes := Executor{Store: store, Concurrency: 8}.Execute(context.Background(), ops)

	require.Len(t, outcomes, 10)
	for i, o := range outcomes {
		assert.Equal(t, i+2, o.RowNumber)
	}
}

func TestExecutorStopsAfterCancel(t *testing.T) {
	store := newMemStore("code")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store.onCall = cancel

	var ops []PlannedOperation
	for i := 0; i < 5; i++ {
		ops = append(ops, createOp(i+2, fmt.Sprintf("K%d", i)))
	}

	outcomes := Executor{Store: store, Concurrency: 1}.Execute(ctx, ops)

	require.Len(t, outcomes, 1)
	assert.Equal(t, StatusInserted, outcomes[0].Status)
	assert.Equal(t, 1, store.count())
}

func TestExecutorLetsInFlightWriteFinish(t *testing.T) {
	store := newMemStore("code")
	store.honorCtx = true
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store.onCall = cancel

	outcomes := Executor{Store: store, Concurrency: 1}.Execute(ctx, []PlannedOperation{
		createOp(2, "A1"),
		createOp(3, "B1"),
	})

	require.Len(t, outcomes, 1)
	assert.Equal(t, StatusInserted, outcomes[0].Status)
	assert.NoError(t, outcomes[0].Err)
	assert.Equal(t, 1, store.count())
}

func TestExecutorReportsProgress(t *testing.T) {
	store := newMemStore("code")
	var seen []int
	progress := func(done, total int) {
		assert.Equal(t, 3, total)
		seen = append(seen, done)
	}

	Executor{Store: store, Progress: progress}.Execute(context.Background(), []PlannedOperation{
		createOp(2, "a"), createOp(3, "b"), createOp(4, "c"),
	})

	assert.Equal(t, []int{1, 2, 3}, seen)
}

func TestChainsGroupByKey(t *testing.T) {
	ops := []PlannedOperation{
		createOp(2, "a"),
		createOp(3, ""),
		createOp(4, "b"),
		dependentOp(5, 2, "A", nil),
		createOp(6, ""),
	}
	assert.Equal(t, [][]int{{0, 3}, {1}, {2}, {4}}, chains(ops))
}
