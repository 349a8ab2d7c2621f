package reconcile

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind is the semantic type of a field.
type Kind int

const (
	KindText Kind = iota
	KindNumber
	KindDate
	KindTriState
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	case KindTriState:
		return "tri-state"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Coercion converts a cell into a typed value without failing hard. Fn returns
// ok=false for invalid input; a nil value with ok=true means the cell is absent.
type Coercion struct {
	Kind   Kind
	Expect string // completes "<label> must be ..." in error messages
	Fn     func(Cell) (any, bool)
}

// Apply runs the coercion. A zero Coercion behaves like Text.
func (c Coercion) Apply(v Cell) (any, bool) {
	if c.Fn == nil {
		return coerceText(v)
	}
	return c.Fn(v)
}

const dateLayout = "2006-01-02"

var dateLayouts = []string{
	dateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Default tri-state labels used across the business modules.
const (
	Yes = "Có"
	No  = "Không"
)

// Text trims strings and renders other kinds in their canonical text form.
func Text() Coercion {
	return Coercion{Kind: KindText, Expect: "text", Fn: coerceText}
}

func coerceText(v Cell) (any, bool) {
	if isEmpty(v) {
		return nil, true
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), true
	case bool:
		return strconv.FormatBool(val), true
	case time.Time:
		return val.Format(dateLayout), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), true
	}
	if f, ok := numeric(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64), true
	}
	return strings.TrimSpace(fmt.Sprint(v)), true
}

type numberRules struct {
	nonNegative bool
	integer     bool
	min, max    *float64
}

// NumberOption narrows what Number accepts.
type NumberOption func(*numberRules)

// NonNegative rejects values below zero.
func NonNegative() NumberOption {
	return func(r *numberRules) { r.nonNegative = true }
}

// Integer rejects fractional values; accepted values are returned as int64.
func Integer() NumberOption {
	return func(r *numberRules) { r.integer = true }
}

// Min rejects values below min.
func Min(min float64) NumberOption {
	return func(r *numberRules) { r.min = &min }
}

// Max rejects values above max.
func Max(max float64) NumberOption {
	return func(r *numberRules) { r.max = &max }
}

// Number accepts numeric kinds and numeric strings. Thousand separators are
// stripped and a lone "-" counts as absent. Violations are invalid, never clamped.
func Number(opts ...NumberOption) Coercion {
	var rules numberRules
	for _, opt := range opts {
		opt(&rules)
	}
	return Coercion{
		Kind:   KindNumber,
		Expect: rules.describe(),
		Fn: func(v Cell) (any, bool) {
			return rules.coerce(v)
		},
	}
}

func (r numberRules) describe() string {
	var desc string
	switch {
	case r.integer && r.nonNegative:
		desc = "a non-negative integer"
	case r.integer:
		desc = "an integer"
	case r.nonNegative:
		desc = "a non-negative number"
	default:
		desc = "a number"
	}
	switch {
	case r.min != nil && r.max != nil:
		desc += fmt.Sprintf(" between %s and %s", fmtNum(*r.min), fmtNum(*r.max))
	case r.min != nil:
		desc += fmt.Sprintf(" of at least %s", fmtNum(*r.min))
	case r.max != nil:
		desc += fmt.Sprintf(" of at most %s", fmtNum(*r.max))
	}
	return desc
}

func (r numberRules) coerce(v Cell) (any, bool) {
	if isEmpty(v) {
		return nil, true
	}
	f, ok := numeric(v)
	if !ok {
		s, isStr := v.(string)
		if !isStr {
			return nil, false
		}
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
		if s == "-" {
			return nil, true
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, false
		}
		f = parsed
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	if r.nonNegative && f < 0 {
		return nil, false
	}
	if r.min != nil && f < *r.min {
		return nil, false
	}
	if r.max != nil && f > *r.max {
		return nil, false
	}
	if r.integer {
		if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
			return nil, false
		}
		return int64(f), true
	}
	return f, true
}

// Date accepts time.Time values and ISO formatted strings. Results are dates at
// midnight UTC.
func Date() Coercion {
	return Coercion{Kind: KindDate, Expect: "a date (YYYY-MM-DD)", Fn: coerceDate}
}

func coerceDate(v Cell) (any, bool) {
	if isEmpty(v) {
		return nil, true
	}
	switch val := v.(type) {
	case time.Time:
		return truncateDate(val), true
	case *time.Time:
		if val == nil {
			return nil, true
		}
		return truncateDate(*val), true
	case string:
		s := strings.TrimSpace(val)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return truncateDate(t), true
			}
		}
	}
	return nil, false
}

func truncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TriState maps boolean-like cells onto two labels. true, "true", "1", 1 and the
// affirmative label become affirmative; an absent cell becomes nil when nullable
// and negative otherwise; anything else becomes negative.
func TriState(affirmative, negative string, nullable bool) Coercion {
	return Coercion{
		Kind:   KindTriState,
		Expect: fmt.Sprintf("%s or %s", affirmative, negative),
		Fn: func(v Cell) (any, bool) {
			if isEmpty(v) {
				if nullable {
					return nil, true
				}
				return negative, true
			}
			if isAffirmative(v, affirmative) {
				return affirmative, true
			}
			return negative, true
		},
	}
}

// YesNo is TriState with the default labels.
func YesNo(nullable bool) Coercion {
	return TriState(Yes, No, nullable)
}

func isAffirmative(v Cell, label string) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		s := strings.TrimSpace(val)
		return strings.EqualFold(s, "true") || s == "1" || strings.EqualFold(s, label)
	}
	if f, ok := numeric(v); ok {
		return f == 1
	}
	return false
}

func isEmpty(v Cell) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case *time.Time:
		return val == nil
	}
	return false
}

func numeric(v Cell) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	}
	return 0, false
}

func fmtNum(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
