package sanitizer

import "strings"

// CollapseSpaces trims s and folds every run of Unicode whitespace into one space.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeName is used for coach and user names, which are lookup keys.
func NormalizeName(name string) string {
	return CollapseSpaces(name)
}
