// Package strings provides string list helpers for configuration parsing.
package strings

import (
	"strings"
)

// SplitList splits val on sep, trims each element and drops empty and
// repeated entries. Order of first appearance is preserved.
//
// Example:
//
//	SplitList(" kafka-1:9092, ,kafka-2:9092,kafka-1:9092", ",")
//	// Returns: []string{"kafka-1:9092", "kafka-2:9092"}
func SplitList(val, sep string) []string {
	if strings.TrimSpace(val) == "" {
		return nil
	}

	parts := strings.Split(val, sep)
	seen := make(map[string]struct{}, len(parts))
	var out []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, ok := seen[part]; ok {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return out
}
