package reconcile

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// MaxKeyFields bounds the width of a composite business key.
const MaxKeyFields = 4

// BusinessKey is the normalized projection of a record's key fields, in declared order.
type BusinessKey []string

const keySeparator = "\x1f"

// Encode returns a string usable as a map key; equal keys encode identically.
func (k BusinessKey) Encode() string {
	return strings.Join(k, keySeparator)
}

func (k BusinessKey) String() string {
	return "(" + strings.Join(k, ", ") + ")"
}

// IsZero reports whether every part of the key is empty. Such rows identify nothing.
func (k BusinessKey) IsZero() bool {
	for _, p := range k {
		if p != "" {
			return false
		}
	}
	return true
}

// KeyFor projects record onto fields. Storage adapters must build the keys of
// the records they return with this same function.
func KeyFor(record map[string]any, fields []string) BusinessKey {
	key := make(BusinessKey, len(fields))
	for i, f := range fields {
		key[i] = KeyPart(record[f])
	}
	return key
}

// KeyPart renders and normalizes a single key value.
func KeyPart(v any) string {
	text, ok := coerceText(v)
	if !ok || text == nil {
		return ""
	}
	return normalize(text.(string))
}

// normalize trims, composes and case folds s.
func normalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return cases.Fold().String(norm.NFC.String(s))
}

// DuplicateRow marks a row sharing its key with an earlier row of the same batch.
type DuplicateRow struct {
	RowNumber int    `json:"row_number"`
	FirstRow  int    `json:"first_row"`
	Key       string `json:"key"`
}

// FlagDuplicates marks rows whose key already appeared earlier in rows. It is
// informational only; the planner decides what happens to such rows.
func FlagDuplicates(rows []MappedRow) []DuplicateRow {
	first := make(map[string]int, len(rows))
	var dups []DuplicateRow
	for i := range rows {
		if rows[i].Key.IsZero() {
			continue
		}
		enc := rows[i].Key.Encode()
		if n, ok := first[enc]; ok {
			rows[i].Duplicate = true
			rows[i].DuplicateOf = n
			dups = append(dups, DuplicateRow{RowNumber: rows[i].Number, FirstRow: n, Key: rows[i].Key.String()})
			continue
		}
		first[enc] = rows[i].Number
	}
	return dups
}
