package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"management-web/internal/reconcile"
)

// ErrDuplicateEntry is returned when an insert violates a unique index.
var ErrDuplicateEntry = errors.New("duplicate entry")

const mysqlDuplicateEntry = 1062

// lookupChunk keeps the placeholder count of one lookup query well below MySQL's limit.
const lookupChunk = 1000

// TableStore persists reconciled records of one entity table. Only declared
// columns are ever written; anything else in a payload is ignored.
type TableStore struct {
	db        *sqlx.DB
	table     string
	keyFields []string
	columns   map[string]struct{}
}

func NewTableStore(db *sqlx.DB, table string, keyFields, columns []string) *TableStore {
	allowed := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		allowed[c] = struct{}{}
	}
	return &TableStore{db: db, table: table, keyFields: keyFields, columns: allowed}
}

// LookupExisting fetches the id and key columns of every row matching keys.
// Keys are matched through the column collation; the engine re-keys results
// with reconcile.KeyFor so loose SQL matches are harmless.
func (s *TableStore) LookupExisting(ctx context.Context, keys []reconcile.BusinessKey) ([]reconcile.ExistingRecord, error) {
	var out []reconcile.ExistingRecord
	for start := 0; start < len(keys); start += lookupChunk {
		end := start + lookupChunk
		if end > len(keys) {
			end = len(keys)
		}
		query, args, err := s.lookupQuery(keys[start:end])
		if err != nil {
			return nil, err
		}
		records, err := s.scanKeys(ctx, query, args)
		if err != nil {
			return nil, err
		}
		out = append(out, records...)
	}
	return out, nil
}

func (s *TableStore) lookupQuery(keys []reconcile.BusinessKey) (string, []interface{}, error) {
	selectCols := make([]string, len(s.keyFields))
	matchCols := make([]string, len(s.keyFields))
	for i, f := range s.keyFields {
		selectCols[i] = quote(f)
		matchCols[i] = fmt.Sprintf("COALESCE(%s, '')", quote(f))
	}
	base := fmt.Sprintf("SELECT id, %s FROM %s WHERE ", strings.Join(selectCols, ", "), quote(s.table))

	if len(s.keyFields) == 1 {
		values := make([]string, len(keys))
		for i, k := range keys {
			values[i] = k[0]
		}
		query, args, err := sqlx.In(base+matchCols[0]+" IN (?)", values)
		if err != nil {
			return "", nil, err
		}
		return s.db.Rebind(query), args, nil
	}

	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(s.keyFields)), ", ") + ")"
	tuples := make([]string, len(keys))
	args := make([]interface{}, 0, len(keys)*len(s.keyFields))
	for i, k := range keys {
		tuples[i] = tuple
		for _, part := range k {
			args = append(args, part)
		}
	}
	query := base + "(" + strings.Join(matchCols, ", ") + ") IN (" + strings.Join(tuples, ", ") + ")"
	return s.db.Rebind(query), args, nil
}

func (s *TableStore) scanKeys(ctx context.Context, query string, args []interface{}) ([]reconcile.ExistingRecord, error) {
	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []reconcile.ExistingRecord
	for rows.Next() {
		row := map[string]interface{}{}
		if err := rows.MapScan(row); err != nil {
			return nil, err
		}
		for k, v := range row {
			row[k] = scanned(v)
		}
		id, ok := toInt64(row["id"])
		if !ok {
			return nil, fmt.Errorf("%s: unexpected id %v", s.table, row["id"])
		}
		out = append(out, reconcile.ExistingRecord{ID: id, Key: reconcile.KeyFor(row, s.keyFields)})
	}
	return out, rows.Err()
}

// Create inserts payload. Absent optional values are left out so the column
// default applies.
func (s *TableStore) Create(ctx context.Context, payload reconcile.Record) (int64, error) {
	cols, args := s.assignments(payload, true)
	if len(cols) == 0 {
		return 0, fmt.Errorf("%s: nothing to insert", s.table)
	}

	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quote(c)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s, created_at, updated_at) VALUES (%s, NOW(), NOW())",
		quote(s.table),
		strings.Join(quoted, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "),
	)

	result, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return 0, translate(err)
	}
	return result.LastInsertId()
}

// Update overwrites the declared columns in payload; absent optional values
// clear the stored one.
func (s *TableStore) Update(ctx context.Context, id int64, payload reconcile.Record) error {
	cols, args := s.assignments(payload, false)
	if len(cols) == 0 {
		return nil
	}

	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = quote(c) + " = ?"
	}
	query := fmt.Sprintf("UPDATE %s SET %s, updated_at = NOW() WHERE id = ?", quote(s.table), strings.Join(sets, ", "))
	args = append(args, id)

	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...); err != nil {
		return translate(err)
	}
	return nil
}

// assignments returns the declared columns present in payload, sorted, with
// their values. Key columns never hold NULL: an absent key part is stored as
// the empty string, which is how reconcile.KeyFor reads it back.
func (s *TableStore) assignments(payload reconcile.Record, skipNil bool) ([]string, []interface{}) {
	cols := make([]string, 0, len(payload))
	args := make(map[string]interface{}, len(payload))
	for name, v := range payload {
		if _, ok := s.columns[name]; !ok {
			continue
		}
		if v == nil {
			switch {
			case s.isKey(name):
				v = ""
			case skipNil:
				continue
			}
		}
		cols = append(cols, name)
		args[name] = v
	}
	sort.Strings(cols)

	values := make([]interface{}, len(cols))
	for i, c := range cols {
		values[i] = args[c]
	}
	return cols, values
}

func (s *TableStore) isKey(name string) bool {
	for _, k := range s.keyFields {
		if k == name {
			return true
		}
	}
	return false
}

func translate(err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		return fmt.Errorf("%w: %s", ErrDuplicateEntry, myErr.Message)
	}
	return err
}

func quote(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

func scanned(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int:
		return int64(n), true
	case uint64:
		return int64(n), true
	case string:
		var id int64
		_, err := fmt.Sscan(n, &id)
		return id, err == nil
	}
	return 0, false
}
