package reconcile

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidators(t *testing.T) {
	v := Validators(
		RequiredWhen("note", "Resolution note", "resolved", Yes),
		OneOf("category", "Category", "billing", "delivery"),
		Range("month", "Month", 1, 12),
		MaxLength("code", "Code", 4),
		nil,
	)

	tests := []struct {
		name string
		rec  Record
		want []string
	}{
		{
			name: "valid",
			rec:  Record{"resolved": Yes, "note": "refunded", "category": "Billing", "month": int64(3), "code": "AB"},
		},
		{
			name: "absent values pass",
			rec:  Record{"resolved": nil},
		},
		{
			name: "every rule fails",
			rec:  Record{"resolved": Yes, "note": " ", "category": "other", "month": int64(13), "code": "ABCDE"},
			want: []string{
				"Resolution note is required when resolved is Có",
				"Category must be one of: billing, delivery",
				"Month must be between 1 and 12",
				"Code cannot exceed 4 characters",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, v.Validate(tt.rec))
		})
	}
}

func TestValidateRow(t *testing.T) {
	assert.NoError(t, ValidateRow(1, Record{}, nil))

	err := ValidateRow(7, Record{"month": 0.0}, Range("month", "Month", 1, 12))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, 7, ve.Row)
	assert.Equal(t, "Month must be between 1 and 12", err.Error())
}

func TestRequiredWhenComparesNumbers(t *testing.T) {
	v := RequiredWhen("reason", "Reason", "hours", 8)
	assert.Len(t, v.Validate(Record{"hours": int64(8)}), 1)
	assert.Empty(t, v.Validate(Record{"hours": 4.0}))
}
