package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil slice", input: nil, expected: nil},
		{name: "empty slice", input: []string{}, expected: []string{}},
		{name: "keeps order", input: []string{"Acme", "ACME Ltd."}, expected: []string{"Acme", "ACME Ltd."}},
		{name: "drops repeats after trimming", input: []string{" Acme ", "Acme", "", "  "}, expected: []string{"Acme"}},
		{name: "case sensitive", input: []string{"acme", "Acme"}, expected: []string{"acme", "Acme"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, SplitList(" a:9092, b:9092 ,a:9092", ","))
	assert.Nil(t, SplitList(" , ", ","))
	assert.Nil(t, SplitList("", ","))
}
