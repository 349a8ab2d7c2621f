package reconcile

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	day := time.Date(2024, 3, 9, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   Cell
		want any
	}{
		{"trims", "  abc ", "abc"},
		{"blank is absent", "   ", nil},
		{"nil is absent", nil, nil},
		{"float without trailing zeros", 12.50, "12.5"},
		{"whole float", float64(7), "7"},
		{"int", 42, "42"},
		{"bool", true, "true"},
		{"date", day, "2024-03-09"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Text().Apply(tt.in)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNumber(t *testing.T) {
	tests := []struct {
		name   string
		c      Coercion
		in     Cell
		want   any
		wantOK bool
	}{
		{"numeric string", Number(), "5", 5.0, true},
		{"thousand separators", Number(), "1,250.5", 1250.5, true},
		{"negative allowed", Number(), "-3", -3.0, true},
		{"lone dash is absent", Number(), "-", nil, true},
		{"empty is absent", Number(), "", nil, true},
		{"garbage", Number(), "abc", nil, false},
		{"NaN", Number(), math.NaN(), nil, false},
		{"Inf string", Number(), "Inf", nil, false},
		{"non-negative rejects", Number(NonNegative()), -1, nil, false},
		{"integer returns int64", Number(Integer()), "12", int64(12), true},
		{"integer rejects fraction", Number(Integer()), 1.5, nil, false},
		{"min", Number(Min(1)), 0, nil, false},
		{"max", Number(Max(12)), "13", nil, false},
		{"within bounds", Number(Integer(), Min(1), Max(12)), 12.0, int64(12), true},
		{"bool is invalid", Number(), true, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.c.Apply(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNumberDescribe(t *testing.T) {
	assert.Equal(t, "a number", Number().Expect)
	assert.Equal(t, "a non-negative integer", Number(NonNegative(), Integer()).Expect)
	assert.Equal(t, "an integer between 1 and 12", Number(Integer(), Min(1), Max(12)).Expect)
	assert.Equal(t, "a non-negative number of at most 100", Number(NonNegative(), Max(100)).Expect)
}

func TestDate(t *testing.T) {
	want := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	for _, in := range []Cell{
		"2024-01-31",
		" 2024-01-31 ",
		"2024-01-31T10:20:30Z",
		"2024-01-31 10:20:30",
		time.Date(2024, 1, 31, 23, 59, 0, 0, time.UTC),
	} {
		got, ok := Date().Apply(in)
		assert.True(t, ok, "%v", in)
		assert.Equal(t, want, got, "%v", in)
	}

	got, ok := Date().Apply("")
	assert.True(t, ok)
	assert.Nil(t, got)

	for _, in := range []Cell{"31/01/2024", "yesterday", 45322.0, true} {
		_, ok := Date().Apply(in)
		assert.False(t, ok, "%v", in)
	}
}

func TestYesNo(t *testing.T) {
	tests := []struct {
		name     string
		nullable bool
		in       Cell
		want     any
	}{
		{"bool true", false, true, Yes},
		{"string true", false, "TRUE", Yes},
		{"string one", false, "1", Yes},
		{"int one", false, 1, Yes},
		{"float one", false, 1.0, Yes},
		{"label", false, "có", Yes},
		{"bool false", false, false, No},
		{"zero", false, 0, No},
		{"other text", false, "maybe", No},
		{"absent non-null", false, nil, No},
		{"blank non-null", false, "  ", No},
		{"absent nullable", true, nil, nil},
		{"nullable keeps value", true, "1", Yes},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := YesNo(tt.nullable).Apply(tt.in)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTriStateCustomLabels(t *testing.T) {
	c := TriState("Yes", "No", false)
	got, _ := c.Apply("yes")
	assert.Equal(t, "Yes", got)
	got, _ = c.Apply("no")
	assert.Equal(t, "No", got)
	assert.Equal(t, KindTriState, c.Kind)
}

func TestZeroCoercionIsText(t *testing.T) {
	got, ok := Coercion{}.Apply(" x ")
	assert.True(t, ok)
	assert.Equal(t, "x", got)
}
