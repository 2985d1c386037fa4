package services

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/vvka-141/tabsync/pkg/tabsync"
)

// SQL for metadata reads and the statements the executor issues.
// Centralizing SQL here keeps it out of the orchestration code. Identifiers
// are always quoted via pgx.Identifier so sanitized names can never collide
// with keywords or smuggle in syntax; values always travel as parameters.

const (
	// queryTableExists checks table presence in the target schema.
	// Parameters: $1 schema, $2 table.
	queryTableExists = `
		SELECT EXISTS (
			SELECT 1
			FROM information_schema.tables
			WHERE table_schema = $1
			  AND table_name = $2
		)
	`

	// queryLiveColumns reads the live column definitions in ordinal order.
	// Parameters: $1 schema, $2 table.
	queryLiveColumns = `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = $1
		  AND table_name = $2
		ORDER BY ordinal_position
	`
)

func quoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func quoteIdents(names []string) []string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quoteIdent(n)
	}
	return quoted
}

func qualifiedTable(schema, table string) string {
	return pgx.Identifier{schema, table}.Sanitize()
}

// buildCreateTable renders CREATE TABLE from the candidate schema. The
// surrogate key leads, file columns follow in file order, and configured key
// columns get a UNIQUE constraint so later upserts have an arbiter.
func buildCreateTable(c *tabsync.CandidateSchema) string {
	defs := make([]string, 0, len(c.Columns)+2)

	if c.SurrogateKey != "" {
		defs = append(defs, fmt.Sprintf("%s BIGSERIAL PRIMARY KEY", quoteIdent(c.SurrogateKey)))
	}
	for _, col := range c.Columns {
		def := fmt.Sprintf("%s %s", quoteIdent(col.Name), col.Type.PostgresType())
		if !col.Nullable {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	if len(c.KeyColumns) > 0 {
		defs = append(defs, fmt.Sprintf("UNIQUE (%s)", strings.Join(quoteIdents(c.KeyColumns), ", ")))
	}

	return fmt.Sprintf("CREATE TABLE %s (%s)", qualifiedTable(c.Schema, c.Table), strings.Join(defs, ", "))
}

func buildDropTable(schema, table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", qualifiedTable(schema, table))
}

// buildAddColumn renders ADD COLUMN. Added columns are always nullable:
// existing rows could not satisfy NOT NULL.
func buildAddColumn(schema, table string, col tabsync.Column) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s",
		qualifiedTable(schema, table), quoteIdent(col.Name), col.Type.PostgresType())
}

// buildWidenColumn renders the type alter. The USING cast is always present:
// PostgreSQL requires it for text targets and ignores the redundancy where an
// implicit cast exists.
func buildWidenColumn(schema, table string, col tabsync.Column) string {
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s USING %s::%s",
		qualifiedTable(schema, table), quoteIdent(col.Name), col.Type.PostgresType(),
		quoteIdent(col.Name), col.Type.PostgresType())
}

func buildRelaxNull(schema, table string, col tabsync.Column) string {
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP NOT NULL",
		qualifiedTable(schema, table), quoteIdent(col.Name))
}

func buildDeleteAll(schema, table string) string {
	return fmt.Sprintf("DELETE FROM %s", qualifiedTable(schema, table))
}

// buildInsert renders the parameterized INSERT covering the candidate columns
// in file order. The surrogate key is omitted; its sequence fills it.
func buildInsert(schema, table string, columns []string) string {
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		qualifiedTable(schema, table),
		strings.Join(quoteIdents(columns), ", "),
		strings.Join(placeholders, ", "))
}

// buildUpsert renders INSERT ... ON CONFLICT over the key columns. Non-key
// columns update from EXCLUDED; when every column is a key the conflict
// action degrades to DO NOTHING.
func buildUpsert(schema, table string, columns, keys []string) string {
	insert := buildInsert(schema, table, columns)

	keySet := make(map[string]bool, len(keys))
	for _, k := range keys {
		keySet[strings.ToLower(k)] = true
	}

	var updates []string
	for _, col := range columns {
		if keySet[strings.ToLower(col)] {
			continue
		}
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", quoteIdent(col), quoteIdent(col)))
	}

	conflict := strings.Join(quoteIdents(keys), ", ")
	if len(updates) == 0 {
		return fmt.Sprintf("%s ON CONFLICT (%s) DO NOTHING", insert, conflict)
	}
	return fmt.Sprintf("%s ON CONFLICT (%s) DO UPDATE SET %s", insert, conflict, strings.Join(updates, ", "))
}
