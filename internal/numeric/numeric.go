/*

Parsing of user-typed numeric strings. Range bounds arrive from forms in
either pt-BR ("1.234,56") or en-US ("1,234.56") convention; whichever
separator occurs last in the string is the decimal separator, the other one
is grouping and gets stripped.

*/

package numeric

import (
	"errors"
	"strconv"
	"strings"
)

// ErrNotANumber indicates the input is empty or cannot be parsed as a number.
var ErrNotANumber = errors.New("not a number")

// ParseLocaleNumber parses a numeric string that may use dot or comma as
// the decimal separator. It never panics; malformed input returns
// ErrNotANumber so validation can surface it per field.
func ParseLocaleNumber(input string) (float64, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, ErrNotANumber
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma > lastDot:
		// Comma is the decimal separator, dots are grouping.
		// "1.234,56" -> "1234.56"
		s = strings.ReplaceAll(s, ".", "")
		before := strings.ReplaceAll(s[:strings.LastIndex(s, ",")], ",", "")
		s = before + "." + s[strings.LastIndex(s, ",")+1:]
	case lastDot > lastComma && lastComma >= 0:
		// Dot is the decimal separator, commas are grouping.
		// "1,234.56" -> "1234.56"
		s = strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		// Only commas present: treat the single comma as a decimal point.
		s = strings.Replace(s, ",", ".", 1)
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrNotANumber
	}
	return value, nil
}
