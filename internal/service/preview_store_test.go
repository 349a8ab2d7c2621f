package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"management-web/internal/reconcile"
)

func TestPreviewStoreDropsWrites(t *testing.T) {
	inner := &recordStore{keyFields: []string{"group_code"}, rows: []reconcile.Record{{"group_code": "OT"}}}
	s := NewPreviewStore(inner)

	a, err := s.Create(context.Background(), reconcile.Record{"group_code": "LV"})
	require.NoError(t, err)
	b, _ := s.Create(context.Background(), reconcile.Record{"group_code": "SL"})
	assert.Equal(t, int64(-1), a)
	assert.Equal(t, int64(-2), b)
	assert.NoError(t, s.Update(context.Background(), 1, reconcile.Record{"group_code": "XX"}))

	found, err := s.LookupExisting(context.Background(), []reconcile.BusinessKey{
		reconcile.KeyFor(reconcile.Record{"group_code": "OT"}, inner.keyFields),
	})
	require.NoError(t, err)
	assert.Len(t, found, 1)
	assert.Equal(t, []reconcile.Record{{"group_code": "OT"}}, inner.rows)
}
