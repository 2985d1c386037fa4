package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vvka-141/tabsync/pkg/tabsync"
)

// BuildOptions adjust how a candidate schema is assembled.
type BuildOptions struct {
	// SurrogateKey names the synthetic primary-key column planned on table
	// creation. Empty disables it.
	SurrogateKey string

	// KeyColumns are the configured upsert keys, in their raw spelling.
	// They are sanitized the same way column names are.
	KeyColumns []string

	// TypeOverrides pins column names to declared types, replacing the
	// inferred type. Keys may be raw or sanitized spellings.
	TypeOverrides map[string]tabsync.ColumnType
}

// Build combines per-column profiles into a CandidateSchema. Column names
// are sanitized in file order, overrides are applied, and the result is
// validated for case-insensitive uniqueness. Returned warnings belong in the
// run summary.
func Build(schemaNS, table string, profiles []tabsync.ColumnProfile, opts BuildOptions) (*tabsync.CandidateSchema, []string, error) {
	var warnings []string

	columns := make([]tabsync.Column, 0, len(profiles))
	firstOrdinal := make(map[string]int, len(profiles))
	var collisions []string

	overrides := normalizeOverrides(opts.TypeOverrides)
	usedOverrides := make(map[string]bool, len(overrides))

	for i, p := range profiles {
		name := SanitizeColumn(p.Name, i+1)

		if prev, dup := firstOrdinal[name]; dup {
			collisions = append(collisions, fmt.Sprintf("%q (column %d) and %q (column %d) both sanitize to %q",
				profiles[prev-1].Name, prev, p.Name, i+1, name))
			continue
		}
		firstOrdinal[name] = i + 1

		colType := p.Type
		if override, ok := overrides[name]; ok {
			colType = override
			usedOverrides[name] = true
		}

		columns = append(columns, tabsync.Column{
			Name:     name,
			Type:     colType,
			Nullable: p.Nullable,
		})
	}

	if len(collisions) > 0 {
		return nil, nil, fmt.Errorf("duplicate column names after sanitization: %s: %w",
			strings.Join(collisions, "; "), tabsync.ErrSchemaConflict)
	}

	unused := make([]string, 0, len(overrides))
	for name := range overrides {
		if !usedOverrides[name] {
			unused = append(unused, name)
		}
	}
	sort.Strings(unused)
	for _, name := range unused {
		warnings = append(warnings, fmt.Sprintf("type override for %q matches no file column", name))
	}

	surrogate := opts.SurrogateKey
	if surrogate != "" {
		if _, taken := firstOrdinal[strings.ToLower(surrogate)]; taken {
			warnings = append(warnings, fmt.Sprintf(
				"file column %q collides with the surrogate key; the table is created without a surrogate",
				surrogate))
			surrogate = ""
		}
	}

	keys, err := sanitizeKeys(opts.KeyColumns)
	if err != nil {
		return nil, nil, err
	}

	return &tabsync.CandidateSchema{
		Schema:       schemaNS,
		Table:        table,
		Columns:      columns,
		SurrogateKey: surrogate,
		KeyColumns:   keys,
	}, warnings, nil
}

// normalizeOverrides rewrites override keys to their sanitized spelling so
// that raw header names and sanitized names both match.
func normalizeOverrides(raw map[string]tabsync.ColumnType) map[string]tabsync.ColumnType {
	if len(raw) == 0 {
		return nil
	}
	m := make(map[string]tabsync.ColumnType, len(raw))
	for k, t := range raw {
		name := sanitizeIdentifier(k)
		if name == "" {
			continue
		}
		if startsWithDigit(name) {
			name = "col_" + name
		}
		m[name] = t
	}
	return m
}

// sanitizeKeys normalizes configured key columns to their sanitized
// spelling, dropping duplicates while preserving order.
func sanitizeKeys(raw []string) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, k := range raw {
		name := sanitizeIdentifier(k)
		if name == "" {
			return nil, fmt.Errorf("key column %q is empty after sanitization: %w", k, tabsync.ErrConfiguration)
		}
		if startsWithDigit(name) {
			name = "col_" + name
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		keys = append(keys, name)
	}
	return keys, nil
}
