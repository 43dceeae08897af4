package util

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

var numberPattern = regexp.MustCompile(`[-+]?[0-9]*\.?[0-9]+(?:[eE][-+]?[0-9]+)?`)

// ErrUnparsableValue marks a cell with no extractable numeric content.
var ErrUnparsableValue = errors.New("unparsable value")

type ParsedValue struct {
	Magnitude float64
	Unit      string
}

// ParseCellValue extracts the first numeric substring (sign, digits,
// optional decimal point, optional exponent) from a raw cell. The unit
// token is everything after the matched number, trimmed; empty when the
// number ends the cell. Comma decimal separators are not supported.
func ParseCellValue(input string) (ParsedValue, error) {
	value := strings.TrimSpace(input)
	loc := numberPattern.FindStringIndex(value)
	if loc == nil {
		return ParsedValue{}, ErrUnparsableValue
	}

	magnitude, err := strconv.ParseFloat(value[loc[0]:loc[1]], 64)
	if err != nil {
		return ParsedValue{}, ErrUnparsableValue
	}

	return ParsedValue{
		Magnitude: magnitude,
		Unit:      strings.TrimSpace(value[loc[1]:]),
	}, nil
}
