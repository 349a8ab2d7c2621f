package reconcile

import (
	"context"
)

// DistinctKeys returns the non-zero keys of rows in first-seen order.
func DistinctKeys(rows []MappedRow) []BusinessKey {
	seen := make(map[string]struct{}, len(rows))
	keys := make([]BusinessKey, 0, len(rows))
	for _, r := range rows {
		if r.Key.IsZero() {
			continue
		}
		enc := r.Key.Encode()
		if _, ok := seen[enc]; ok {
			continue
		}
		seen[enc] = struct{}{}
		keys = append(keys, r.Key)
	}
	return keys
}

// Resolve performs the single batched lookup for rows and returns the matches
// indexed by encoded key. It must complete before planning starts.
func Resolve(ctx context.Context, store Store, rows []MappedRow) (map[string]ExistingRecord, error) {
	keys := DistinctKeys(rows)
	existing := make(map[string]ExistingRecord, len(keys))
	if len(keys) == 0 {
		return existing, nil
	}

	records, err := store.LookupExisting(ctx, keys)
	if err != nil {
		return nil, &LookupError{Keys: len(keys), Err: err}
	}
	for _, rec := range records {
		enc := rec.Key.Encode()
		// Storage may hold duplicates of a key; the first one returned wins.
		if _, ok := existing[enc]; ok {
			continue
		}
		existing[enc] = rec
	}
	return existing, nil
}
