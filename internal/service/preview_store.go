package service

import (
	"context"
	"sync/atomic"

	"management-web/internal/reconcile"
)

// PreviewStore reads through to the wrapped store and drops every write.
// Created records get negative ids so they never collide with stored ones.
type PreviewStore struct {
	reconcile.Store
	next atomic.Int64
}

func NewPreviewStore(store reconcile.Store) *PreviewStore {
	return &PreviewStore{Store: store}
}

func (s *PreviewStore) Create(_ context.Context, _ reconcile.Record) (int64, error) {
	return -s.next.Add(1), nil
}

func (s *PreviewStore) Update(_ context.Context, _ int64, _ reconcile.Record) error {
	return nil
}
