package reconcile

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Validator applies business rules to a mapped record and returns the problems found.
type Validator interface {
	Validate(Record) []string
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(Record) []string

func (f ValidatorFunc) Validate(r Record) []string {
	return f(r)
}

// Validators runs every validator and concatenates their problems.
func Validators(vs ...Validator) Validator {
	return ValidatorFunc(func(r Record) []string {
		var problems []string
		for _, v := range vs {
			if v == nil {
				continue
			}
			problems = append(problems, v.Validate(r)...)
		}
		return problems
	})
}

// ValidateRow runs v against a mapped record, wrapping problems in a *ValidationError.
func ValidateRow(number int, record Record, v Validator) error {
	if v == nil {
		return nil
	}
	if problems := v.Validate(record); len(problems) > 0 {
		return &ValidationError{Row: number, Problems: problems}
	}
	return nil
}

// RequiredWhen requires field whenever whenField holds whenValue.
func RequiredWhen(field, label, whenField string, whenValue any) Validator {
	return ValidatorFunc(func(r Record) []string {
		if !valueEquals(r[whenField], whenValue) {
			return nil
		}
		if isEmpty(r[field]) {
			return []string{fmt.Sprintf("%s is required when %s is %v", label, whenField, whenValue)}
		}
		return nil
	})
}

// OneOf restricts a text field to an enumeration. Absent values pass.
func OneOf(field, label string, allowed ...string) Validator {
	return ValidatorFunc(func(r Record) []string {
		v, ok := r[field].(string)
		if !ok || v == "" {
			return nil
		}
		for _, a := range allowed {
			if strings.EqualFold(v, a) {
				return nil
			}
		}
		return []string{fmt.Sprintf("%s must be one of: %s", label, strings.Join(allowed, ", "))}
	})
}

// Range bounds a numeric field. Absent values pass.
func Range(field, label string, min, max float64) Validator {
	return ValidatorFunc(func(r Record) []string {
		f, ok := numeric(r[field])
		if !ok {
			return nil
		}
		if f < min || f > max {
			return []string{fmt.Sprintf("%s must be between %s and %s", label, fmtNum(min), fmtNum(max))}
		}
		return nil
	})
}

// MaxLength bounds the rune count of a text field.
func MaxLength(field, label string, n int) Validator {
	return ValidatorFunc(func(r Record) []string {
		v, ok := r[field].(string)
		if !ok {
			return nil
		}
		if utf8.RuneCountInString(v) > n {
			return []string{fmt.Sprintf("%s cannot exceed %d characters", label, n)}
		}
		return nil
	})
}

func valueEquals(a, b any) bool {
	if fa, ok := numeric(a); ok {
		if fb, ok := numeric(b); ok {
			return fa == fb
		}
	}
	return a == b
}
