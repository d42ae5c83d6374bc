// Package years parses and validates the year and limit arguments of the
// scrape command.
package years

import (
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

var (
	// ErrInvalidYear is returned for a year outside the supported window or
	// one that is not a number.
	ErrInvalidYear = errors.New("invalid year")

	// ErrInvalidLimit is returned for a per-year limit outside [1, max].
	ErrInvalidLimit = errors.New("invalid limit")

	// ErrInvalidRange is returned for a range whose start is after its end.
	ErrInvalidRange = errors.New("invalid year range")
)

// Parse expands an expression such as "2018,2020-2022" into a sorted,
// de-duplicated list of years. It does not check bounds; see Validate.
func Parse(expr string) ([]int, error) {
	seen := make(map[int]bool)
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if lo, hi, ok := strings.Cut(part, "-"); ok {
			start, err := atoi(lo)
			if err != nil {
				return nil, err
			}
			end, err := atoi(hi)
			if err != nil {
				return nil, err
			}
			if start > end {
				return nil, eris.Wrapf(ErrInvalidRange, "%d-%d", start, end)
			}
			for y := start; y <= end; y++ {
				seen[y] = true
			}
			continue
		}

		y, err := atoi(part)
		if err != nil {
			return nil, err
		}
		seen[y] = true
	}

	if len(seen) == 0 {
		return nil, eris.Wrapf(ErrInvalidYear, "no years in %q", expr)
	}

	out := make([]int, 0, len(seen))
	for y := range seen {
		out = append(out, y)
	}
	sort.Ints(out)
	return out, nil
}

// Validate checks that every year lies within [minYear, maxYear].
func Validate(ys []int, minYear, maxYear int) error {
	for _, y := range ys {
		if y < minYear || y > maxYear {
			return eris.Wrapf(ErrInvalidYear, "%d is outside %d-%d", y, minYear, maxYear)
		}
	}
	return nil
}

// ValidateLimit checks that n lies within [1, maxLimit].
func ValidateLimit(n, maxLimit int) error {
	if n < 1 || n > maxLimit {
		return eris.Wrapf(ErrInvalidLimit, "%d is outside 1-%d", n, maxLimit)
	}
	return nil
}

// Sparse reports whether a year predates reliable listing coverage, so a
// short result set is expected rather than a scrape problem.
func Sparse(year int) bool {
	return year < 1985
}

func atoi(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, eris.Wrapf(ErrInvalidYear, "%q is not a year", s)
	}
	return n, nil
}
