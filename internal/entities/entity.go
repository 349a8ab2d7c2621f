// Package entities declares the spreadsheet importable business entities:
// which columns they read, how cells are coerced, which fields identify a
// record and which table stores it.
package entities

import (
	"sort"

	"management-web/internal/reconcile"
)

// Entity is a declarative import definition.
type Entity struct {
	Name       string
	Title      string
	Table      string
	Specs      []reconcile.FieldSpec
	KeyFields  []string
	CreateOnly []string
	Validator  reconcile.Validator
	Samples    []map[string]any // example rows keyed by header, used in templates
}

// Headers returns the template header of every field, in declared order.
func (e Entity) Headers() []string {
	headers := make([]string, len(e.Specs))
	for i, s := range e.Specs {
		headers[i] = header(s)
	}
	return headers
}

// Spec returns the field spec named name.
func (e Entity) Spec(name string) (reconcile.FieldSpec, bool) {
	for _, s := range e.Specs {
		if s.Name == name {
			return s, true
		}
	}
	return reconcile.FieldSpec{}, false
}

// WithDefault returns a copy of e whose field name falls back to value when
// the sheet leaves it empty. Used to stamp the uploader on created records.
func (e Entity) WithDefault(name string, value any) Entity {
	specs := make([]reconcile.FieldSpec, len(e.Specs))
	copy(specs, e.Specs)
	for i := range specs {
		if specs[i].Name == name {
			specs[i].Default = value
		}
	}
	e.Specs = specs
	return e
}

// WithFixed returns a copy of e whose field name always maps to value,
// whatever the sheet holds. Used to stamp the uploader so a sheet cannot
// claim records on someone else's behalf.
func (e Entity) WithFixed(name string, value any) Entity {
	specs := make([]reconcile.FieldSpec, len(e.Specs))
	copy(specs, e.Specs)
	for i := range specs {
		if specs[i].Name != name {
			continue
		}
		coerce := specs[i].Coerce
		specs[i].Default = value
		specs[i].Coerce = reconcile.Coercion{
			Kind:   coerce.Kind,
			Expect: coerce.Expect,
			Fn:     func(reconcile.Cell) (any, bool) { return coerce.Apply(value) },
		}
	}
	e.Specs = specs
	return e
}

// Batch binds rows to this entity's declarations.
func (e Entity) Batch(rows []reconcile.RawRow) reconcile.Batch {
	return reconcile.Batch{
		Rows:       rows,
		Specs:      e.Specs,
		KeyFields:  e.KeyFields,
		Validator:  e.Validator,
		CreateOnly: e.CreateOnly,
	}
}

// Columns returns the storage columns written by imports: every field name.
func (e Entity) Columns() []string {
	cols := make([]string, len(e.Specs))
	for i, s := range e.Specs {
		cols[i] = s.Name
	}
	return cols
}

func header(s reconcile.FieldSpec) string {
	if s.Label != "" {
		return s.Label
	}
	if len(s.Columns) > 0 {
		return s.Columns[0]
	}
	return s.Name
}

var registry = map[string]Entity{}

func register(e Entity) {
	if _, dup := registry[e.Name]; dup {
		panic("entities: duplicate entity " + e.Name)
	}
	registry[e.Name] = e
}

// Lookup finds an entity by name.
func Lookup(name string) (Entity, bool) {
	e, ok := registry[name]
	return e, ok
}

// All returns every entity sorted by name.
func All() []Entity {
	out := make([]Entity, 0, len(registry))
	for _, e := range registry {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the sorted entity names.
func Names() []string {
	all := All()
	names := make([]string, len(all))
	for i, e := range all {
		names[i] = e.Name
	}
	return names
}
