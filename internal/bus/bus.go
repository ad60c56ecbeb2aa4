// Package bus expands and collapses bracketed range notation on net names.
//
//	"d[0:2]"       -> d[0], d[1], d[2]
//	"a[1-2]b[3:4]" -> a[1]b[3], a[1]b[4], a[2]b[3], a[2]b[4]
//
// Ranges may be written low-to-high or high-to-low; both expand in ascending order.
package bus

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"nqs/internal/errors"
)

// DefaultMaxExpansion caps the names a single pattern may expand to.
const DefaultMaxExpansion = 10000

var (
	rangePattern = regexp.MustCompile(`\[(\d+)[:-](\d+)\]`)
	indexPattern = regexp.MustCompile(`\[(\d+)\]`)
)

// HasNotation reports whether name contains at least one range.
func HasNotation(name string) bool {
	return rangePattern.MatchString(name)
}

// ExpandLimit expands every range in pattern, failing with an EXPANSION_LIMIT
// error once more than max names would be produced. A non-positive max yields
// no names. A range bound that does not fit in an int is a PATTERN_INVALID error.
func ExpandLimit(pattern string, max int) ([]string, error) {
	if max <= 0 {
		return []string{}, nil
	}
	return expand(pattern, max)
}

func expand(pattern string, max int) ([]string, error) {
	if pattern == "" || !HasNotation(pattern) {
		return []string{pattern}, nil
	}

	var (
		out   []string
		count int
	)
	var walk func(cur string) error
	walk = func(cur string) error {
		loc := rangePattern.FindStringSubmatchIndex(cur)
		if loc == nil {
			count++
			if count > max {
				return errors.ExpansionLimitError(pattern, max)
			}
			out = append(out, cur)
			return nil
		}

		lo, hi, err := rangeBounds(cur[loc[2]:loc[3]], cur[loc[4]:loc[5]])
		if err != nil {
			return errors.PatternError(pattern, err)
		}
		if lo > hi {
			lo, hi = hi, lo
		}
		prefix, suffix := cur[:loc[0]], cur[loc[1]:]
		for i := lo; i <= hi; i++ {
			if err := walk(prefix + "[" + strconv.Itoa(i) + "]" + suffix); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(pattern); err != nil {
		return nil, err
	}
	return out, nil
}

func rangeBounds(a, b string) (int, int, error) {
	lo, err := strconv.Atoi(a)
	if err != nil {
		return 0, 0, err
	}
	hi, err := strconv.Atoi(b)
	if err != nil {
		return 0, 0, err
	}
	return lo, hi, nil
}

// Collapse is the inverse of ExpandLimit: it folds names sharing one bracket skeleton
// into a single pattern. It returns false when names differ in skeleton, when an
// index dimension has gaps, or when the names do not cover the full Cartesian
// product of their index ranges. Names are compared case-insensitively.
func Collapse(names []string) (string, bool) {
	if len(names) == 0 {
		return "", false
	}

	normalized := make([]string, len(names))
	for i, n := range names {
		normalized[i] = strings.ToLower(n)
	}
	if len(normalized) == 1 {
		return normalized[0], true
	}

	var (
		skeleton string
		indices  = make([][]int, len(normalized))
	)
	for i, name := range normalized {
		idx, ok := extractIndices(name)
		if !ok {
			return "", false
		}
		indices[i] = idx

		s := rangePattern.ReplaceAllString(name, "[]")
		s = indexPattern.ReplaceAllString(s, "[]")
		if i == 0 {
			skeleton = s
		} else if s != skeleton {
			return "", false
		}
	}

	unique := make(map[string]struct{}, len(normalized))
	for _, n := range normalized {
		unique[n] = struct{}{}
	}

	if len(indices[0]) == 0 {
		if len(unique) == 1 {
			return normalized[0], true
		}
		return "", false
	}

	dims := len(indices[0])
	for _, idx := range indices {
		if len(idx) != dims {
			return "", false
		}
	}

	result := skeleton
	expected := 1
	for d := 0; d < dims; d++ {
		seen := make(map[int]struct{})
		for _, idx := range indices {
			seen[idx[d]] = struct{}{}
		}
		values := make([]int, 0, len(seen))
		for v := range seen {
			values = append(values, v)
		}
		sort.Ints(values)

		lo, hi := values[0], values[len(values)-1]
		if hi-lo+1 != len(values) {
			return "", false
		}
		expected *= len(values)

		dim := "[" + strconv.Itoa(lo) + "]"
		if lo != hi {
			dim = "[" + strconv.Itoa(lo) + ":" + strconv.Itoa(hi) + "]"
		}
		result = strings.Replace(result, "[]", dim, 1)
	}

	if expected != len(unique) {
		return "", false
	}
	return result, true
}

// extractIndices returns the bracketed integers of name. When ranges are present
// both range endpoints count as indices and bare [i] indices are ignored.
// It returns false when an index does not fit in an int.
func extractIndices(name string) ([]int, bool) {
	var out []int
	if ranges := rangePattern.FindAllStringSubmatch(name, -1); len(ranges) > 0 {
		for _, m := range ranges {
			lo, hi, err := rangeBounds(m[1], m[2])
			if err != nil {
				return nil, false
			}
			out = append(out, lo, hi)
		}
		return out, true
	}
	for _, m := range indexPattern.FindAllStringSubmatch(name, -1) {
		v, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, false
		}
		out = append(out, v)
	}
	return out, true
}
