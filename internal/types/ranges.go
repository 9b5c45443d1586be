package types

import (
	"regexp"
	"strconv"
)

// The same grammar is enforced by the generated size_low/size_high and
// founded_year columns in the companies table.
var (
	sizeRangeRe   = regexp.MustCompile(`^\s*(\d{1,9})\s*(?:(\+)|-\s*(\d{1,9}))?\s*$`)
	foundedYearRe = regexp.MustCompile(`^\s*(\d{1,9})\s*$`)
)

// SizeRange is a parsed employee-size descriptor.
type SizeRange struct {
	Low     int
	High    int
	Bounded bool // false for "200+" and bare "200"
}

// ParseSizeRange parses "<low>-<high>", "<low>+" or "<low>".
func ParseSizeRange(s string) (SizeRange, bool) {
	m := sizeRangeRe.FindStringSubmatch(s)
	if m == nil {
		return SizeRange{}, false
	}
	low, err := strconv.Atoi(m[1])
	if err != nil {
		return SizeRange{}, false
	}
	r := SizeRange{Low: low}
	if m[3] != "" {
		high, err := strconv.Atoi(m[3])
		if err != nil {
			return SizeRange{}, false
		}
		r.High = high
		r.Bounded = true
	}
	return r, true
}

// Contains reports low <= n and, when bounded, n <= high.
func (r SizeRange) Contains(n int) bool {
	if r.Low > n {
		return false
	}
	return !r.Bounded || n <= r.High
}

// ParseFoundedYear casts a stored founded value to an integer year.
func ParseFoundedYear(s string) (int, bool) {
	m := foundedYearRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	y, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return y, true
}
