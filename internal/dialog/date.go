// ABOUTME: Payment date normalization for the dialogue's date step
// ABOUTME: Accepts D.M.YY-style variants and canonicalizes to DD.MM.YYYY

package dialog

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrDateFormat is returned when the input does not have the shape of a
// date at all (wrong number of parts, year not 4 digits after expansion).
var ErrDateFormat = errors.New("unrecognized date format")

// ErrDateInvalid is returned when the input is shaped like a date but does
// not name a real calendar day.
var ErrDateInvalid = errors.New("impossible calendar date")

// dateSplitRe matches the accepted part delimiters. Splitting keeps empty
// parts, so "01..2023" still counts three parts and fails validation, not
// format detection.
var dateSplitRe = regexp.MustCompile(`[.,/]`)

// NormalizeDate parses a user-typed payment date and returns the canonical
// DD.MM.YYYY string used for sheet matching.
//
// Accepted inputs split on ".", "," or "/" into day, month, year. Day and
// month are left-padded to two digits; a two-digit year gets a "20" prefix
// and must end up exactly four digits. The result must name a real calendar
// day, so 31.02.2024 is rejected even though every component is in range.
func NormalizeDate(input string) (string, error) {
	parts := dateSplitRe.Split(strings.TrimSpace(input), -1)
	if len(parts) != 3 {
		return "", ErrDateFormat
	}

	day := padTwo(parts[0])
	month := padTwo(parts[1])
	year := parts[2]

	if len(year) == 2 {
		year = "20" + year
	}
	if len(year) != 4 {
		return "", ErrDateFormat
	}

	d, errD := strconv.Atoi(day)
	m, errM := strconv.Atoi(month)
	y, errY := strconv.Atoi(year)
	if errD != nil || errM != nil || errY != nil {
		return "", ErrDateInvalid
	}

	if d < 1 || d > 31 || m < 1 || m > 12 {
		return "", ErrDateInvalid
	}

	// A nonexistent day rolls over when constructed (31.02 becomes 02.03
	// or 03.03), so requiring the components to echo back catches it.
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || t.Month() != time.Month(m) || t.Year() != y {
		return "", ErrDateInvalid
	}

	return fmt.Sprintf("%02d.%02d.%04d", d, m, y), nil
}

// padTwo left-pads a single-character part to two characters.
func padTwo(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
