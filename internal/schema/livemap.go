package schema

import (
	"strings"

	"github.com/vvka-141/tabsync/pkg/tabsync"
)

// MapPostgresType maps an information_schema data_type onto the inference
// ladder. The boolean result is false for types the loader does not manage
// (json, bytea, arrays, user-defined types); reconciling against such a
// column is a schema conflict when the file references it.
func MapPostgresType(dataType string) (tabsync.ColumnType, bool) {
	switch strings.ToLower(strings.TrimSpace(dataType)) {
	case "character varying", "character", "text":
		return tabsync.TypeText, true
	case "smallint", "integer", "bigint":
		return tabsync.TypeInteger, true
	case "numeric", "real", "double precision":
		return tabsync.TypeDecimal, true
	case "boolean":
		return tabsync.TypeBoolean, true
	case "date":
		return tabsync.TypeDate, true
	case "timestamp without time zone", "timestamp with time zone":
		return tabsync.TypeTimestamp, true
	default:
		return tabsync.TypeText, false
	}
}
