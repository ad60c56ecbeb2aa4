package output

import (
	"math"
	"strconv"
)

const floatScale = 1e6

// RoundFloat rounds f to at most 6 decimal places.
func RoundFloat(f float64) float64 {
	return math.Round(f*floatScale) / floatScale
}

// FormatFloat prints f rounded to 6 decimal places without trailing zeros.
func FormatFloat(f float64) string {
	s := strconv.FormatFloat(RoundFloat(f), 'f', -1, 64)
	if s == "-0" {
		return "0"
	}
	return s
}
