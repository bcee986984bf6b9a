package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "empty", input: "", expected: nil},
		{name: "only separators and spaces", input: " , ,, ", expected: nil},
		{name: "single element", input: "kafka:9092", expected: []string{"kafka:9092"}},
		{name: "trims whitespace", input: " a , b ", expected: []string{"a", "b"}},
		{name: "drops repeats keeping first", input: "b,a,b,a", expected: []string{"b", "a"}},
		{name: "case sensitive", input: "Host,host", expected: []string{"Host", "host"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitList(tt.input, ","))
		})
	}
}
