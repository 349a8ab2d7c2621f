package reconcile

import (
	"fmt"
)

// MapRow applies specs to one raw row. All field problems of the row are
// collected into a single *MappingError; the row is never partially mapped.
func MapRow(row RawRow, specs []FieldSpec) (Record, error) {
	cells := indexCells(row.Cells)
	record := make(Record, len(specs))
	var problems []string

	for _, spec := range specs {
		raw, found := lookupCell(cells, spec)
		if !found || isEmpty(raw) {
			raw = spec.Default
		}

		value, ok := spec.Coerce.Apply(raw)
		if !ok {
			problems = append(problems, fmt.Sprintf("%s must be %s (got %q)", spec.label(), spec.Coerce.Expect, fmt.Sprint(raw)))
			continue
		}
		if value == nil && spec.Required {
			problems = append(problems, fmt.Sprintf("%s is required", spec.label()))
			continue
		}
		record[spec.Name] = value
	}

	if len(problems) > 0 {
		return nil, &MappingError{Row: row.Number, Problems: problems}
	}
	return record, nil
}

func indexCells(cells map[string]Cell) map[string]Cell {
	index := make(map[string]Cell, len(cells))
	for header, v := range cells {
		h := normalize(header)
		// Keep the first non-empty value when two headers normalize alike.
		if prev, ok := index[h]; ok && !isEmpty(prev) {
			continue
		}
		index[h] = v
	}
	return index
}

func lookupCell(cells map[string]Cell, spec FieldSpec) (Cell, bool) {
	columns := spec.Columns
	if len(columns) == 0 {
		columns = []string{spec.Name}
	}
	var fallback Cell
	found := false
	for _, col := range columns {
		v, ok := cells[normalize(col)]
		if !ok {
			continue
		}
		if !isEmpty(v) {
			return v, true
		}
		fallback, found = v, true
	}
	return fallback, found
}
