package util

import (
	"regexp"
	"strings"
)

var (
	reSpaces      = regexp.MustCompile(`\s+`)
	reNonKeyChars = regexp.MustCompile(`[^a-z0-9_]+`)
	reUnderscores = regexp.MustCompile(`_+`)
)

func NormalizeSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

// SlugKey lowercases a label and collapses every run of non-alphanumeric
// characters into a single underscore. Every input maps to some key, so a
// column is never refused for lack of a recognized name.
func SlugKey(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	s = reNonKeyChars.ReplaceAllString(s, "_")
	s = reUnderscores.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

func StringPtr(v string) *string { return &v }

func FloatPtr(v float64) *float64 { return &v }
