package parse

import (
	"strings"

	"golang.org/x/text/cases"
)

// Fold returns the case-folded form of s for case-insensitive comparison.
func Fold(s string) string {
	// A Caser is stateful, so one is built per call.
	return cases.Fold().String(s)
}

// ContainsFold reports whether needle occurs in s, ignoring case.
func ContainsFold(s, needle string) bool {
	return strings.Contains(Fold(s), Fold(needle))
}

// EqualFold reports whether a and b are equal, ignoring case.
func EqualFold(a, b string) bool {
	return Fold(a) == Fold(b)
}
