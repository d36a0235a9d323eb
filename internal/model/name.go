package model

import "strings"

// NameKey is the lookup key for trade names: trimmed and lower-cased, so
// "Jaggery " and "jaggery" resolve to the same stock item.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
