package output

import (
	"math"
	"strconv"
	"strings"
)

const floatPrecision = 6

// RoundFloat rounds f to at most six decimal places.
func RoundFloat(f float64) float64 {
	multiplier := math.Pow(10, floatPrecision)
	return math.Round(f*multiplier) / multiplier
}

// FormatFloat formats f rounded to six decimal places without trailing zeros,
// e.g. 12.5 for 12.500000 and 40 for 40.0.
func FormatFloat(f float64) string {
	str := strconv.FormatFloat(RoundFloat(f), 'f', floatPrecision, 64)
	str = strings.TrimRight(str, "0")
	str = strings.TrimRight(str, ".")
	if str == "-0" {
		return "0"
	}
	return str
}
