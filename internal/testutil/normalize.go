package testutil

import (
	"path/filepath"
	"sort"
	"strings"
)

// Placeholder names a value that changes between runs and the token that replaces it.
type Placeholder struct {
	Value string
	Token string
}

// Normalize replaces run-specific values such as temp paths with stable
// tokens so command output can be compared against golden files. Longer
// values are replaced first so a path never leaves a partial match behind.
// Windows separators are folded to forward slashes.
func Normalize(out string, placeholders ...Placeholder) string {
	sorted := make([]Placeholder, 0, len(placeholders))
	for _, p := range placeholders {
		if p.Value != "" {
			sorted = append(sorted, p)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Value) > len(sorted[j].Value)
	})

	for _, p := range sorted {
		out = strings.ReplaceAll(out, p.Value, p.Token)
		if slashed := filepath.ToSlash(p.Value); slashed != p.Value {
			out = strings.ReplaceAll(out, slashed, p.Token)
		}
	}
	return strings.ReplaceAll(out, "\r\n", "\n")
}
