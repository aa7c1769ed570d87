package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "filer/pkg/domain-errors"
)

// TestParseFilingID_Invariants validates the parsing invariant:
// "filing identifiers must be positive integers"
func TestParseFilingID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseFilingID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasKind(err, dErrors.KindFatal))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseFilingID("not-a-number")
		require.Error(t, err)
		assert.True(t, dErrors.HasKind(err, dErrors.KindFatal))
	})

	t.Run("rejects zero and negative values", func(t *testing.T) {
		for _, input := range []string{"0", "-12"} {
			_, err := ParseFilingID(input)
			require.Error(t, err, input)
			assert.True(t, dErrors.HasKind(err, dErrors.KindFatal))
		}
	})

	t.Run("accepts padded positive integer", func(t *testing.T) {
		id, err := ParseFilingID(" 12345 ")
		require.NoError(t, err)
		assert.Equal(t, FilingID(12345), id)
		assert.Equal(t, "12345", id.String())
	})
}

func TestFilingID_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    FilingID
		wantErr bool
	}{
		{name: "number", input: `42`, want: 42},
		{name: "numeric string", input: `"42"`, want: 42},
		{name: "fractional number", input: `4.2`, wantErr: true},
		{name: "object", input: `{"id": 1}`, wantErr: true},
		{name: "empty string", input: `""`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id FilingID
			err := json.Unmarshal([]byte(tt.input), &id)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}
