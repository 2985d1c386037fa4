// Package schema builds candidate schemas from column profiles and
// reconciles them against live tables.
package schema

import (
	"fmt"
	"regexp"
	"strings"
)

// nonAlnum matches every run of characters that cannot appear in a
// sanitized identifier.
var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// sanitizeIdentifier lowercases, collapses non-alphanumeric runs to single
// underscores, and trims underscores from both ends. Keywords need no
// special handling because identifiers are always quoted when SQL is built.
func sanitizeIdentifier(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = nonAlnum.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// SanitizeColumn converts a raw header cell into a sanitized column name.
// ordinal is the 1-based column position used when nothing survives
// sanitization.
func SanitizeColumn(raw string, ordinal int) string {
	s := sanitizeIdentifier(raw)
	if s == "" {
		return fmt.Sprintf("col_%d", ordinal)
	}
	if startsWithDigit(s) {
		return "col_" + s
	}
	return s
}

// SanitizeTable converts a raw table name, typically a file base name, into
// a sanitized table name. Returns the empty string when nothing survives
// sanitization; callers treat that as a configuration error.
func SanitizeTable(raw string) string {
	s := sanitizeIdentifier(raw)
	if s == "" {
		return ""
	}
	if startsWithDigit(s) {
		return "tbl_" + s
	}
	return s
}

func startsWithDigit(s string) bool {
	return s[0] >= '0' && s[0] <= '9'
}
