package reconcile

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// memStore is an in-memory Store with a unique index on the business key.
type memStore struct {
	mu        sync.Mutex
	keyFields []string
	records   map[int64]Record
	nextID    int64

	lookups   atomic.Int32
	creates   atomic.Int32
	updates   atomic.Int32
	inFlight  atomic.Int32
	maxFlight atomic.Int32

	lookupErr error
	delay     time.Duration
	failOn    func(op OpKind, payload Record) error
	onCall    func()
	// honorCtx fails calls whose context is done, like a database driver.
	honorCtx bool
}

func newMemStore(keyFields ...string) *memStore {
	return &memStore{keyFields: keyFields, records: map[int64]Record{}}
}

func (s *memStore) seed(r Record) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.records[s.nextID] = r.Clone()
	return s.nextID
}

func (s *memStore) get(id int64) Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[id]
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *memStore) LookupExisting(_ context.Context, keys []BusinessKey) ([]ExistingRecord, error) {
	s.lookups.Add(1)
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	want := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		want[k.Encode()] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ExistingRecord
	for id, r := range s.records {
		key := KeyFor(r, s.keyFields)
		if _, ok := want[key.Encode()]; ok {
			out = append(out, ExistingRecord{ID: id, Key: key})
		}
	}
	return out, nil
}

func (s *memStore) enter() func() {
	n := s.inFlight.Add(1)
	for {
		max := s.maxFlight.Load()
		if n <= max || s.maxFlight.CompareAndSwap(max, n) {
			break
		}
	}
	if s.onCall != nil {
		s.onCall()
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return func() { s.inFlight.Add(-1) }
}

func (s *memStore) Create(ctx context.Context, payload Record) (int64, error) {
	defer s.enter()()
	s.creates.Add(1)
	if s.honorCtx && ctx.Err() != nil {
		return 0, ctx.Err()
	}
	if s.failOn != nil {
		if err := s.failOn(OpCreate, payload); err != nil {
			return 0, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	enc := KeyFor(payload, s.keyFields)
	if !enc.IsZero() {
		for _, r := range s.records {
			if KeyFor(r, s.keyFields).Encode() == enc.Encode() {
				return 0, errors.New("duplicate entry for unique key")
			}
		}
	}
	s.nextID++
	s.records[s.nextID] = payload.Clone()
	return s.nextID, nil
}

func (s *memStore) Update(ctx context.Context, id int64, payload Record) error {
	defer s.enter()()
	s.updates.Add(1)
	if s.honorCtx && ctx.Err() != nil {
		return ctx.Err()
	}
	if s.failOn != nil {
		if err := s.failOn(OpUpdate, payload); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.records[id]
	if !ok {
		return errors.New("record not found")
	}
	for k, v := range payload {
		current[k] = v
	}
	return nil
}
