package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/vvka-141/tabsync/pkg/tabsync"
)

// Renderer writes load summaries and schema previews to a single writer.
// The zero value is not usable; construct with NewRenderer or
// NewPlainRenderer.
type Renderer struct {
	out    io.Writer
	styled bool
}

// NewRenderer returns a renderer that styles its output when the process is
// attached to a terminal.
func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{out: out, styled: IsInteractive()}
}

// NewPlainRenderer returns a renderer that always writes plain lines.
func NewPlainRenderer(out io.Writer) *Renderer {
	return &Renderer{out: out}
}

// LoadSummary writes the post-run summary for a load result.
func (r *Renderer) LoadSummary(result *tabsync.LoadResult) {
	if result == nil {
		return
	}
	if r.styled {
		r.styledSummary(result)
		return
	}
	r.plainSummary(result)
}

func (r *Renderer) plainSummary(result *tabsync.LoadResult) {
	fmt.Fprintf(r.out, "load %s: %d rows read, %d written in %d batch(es)\n",
		statusText(result.Status), result.RowsRead, result.RowsWritten, result.Batches)
	fmt.Fprintf(r.out, "target: %s.%s.%s (mode %s)\n",
		result.Database, result.Schema, result.Table, result.Mode)
	if len(result.StructuralOps) > 0 {
		fmt.Fprintf(r.out, "structure: %s\n", strings.Join(result.StructuralOps, "; "))
	}
	if result.Fingerprint != "" {
		fmt.Fprintf(r.out, "fingerprint: %s\n", result.Fingerprint)
	}
	fmt.Fprintf(r.out, "elapsed: %s\n", result.Elapsed.Round(time.Millisecond))
	for _, w := range result.Warnings {
		fmt.Fprintf(r.out, "WARNING: %s\n", w)
	}
}

func (r *Renderer) styledSummary(result *tabsync.LoadResult) {
	fmt.Fprintln(r.out, statusBanner(result.Status))

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)
	t.AppendRow(table.Row{"Source", result.SourcePath})
	t.AppendRow(table.Row{"Target", fmt.Sprintf("%s.%s.%s", result.Database, result.Schema, result.Table)})
	t.AppendRow(table.Row{"Mode", result.Mode.String()})
	t.AppendRow(table.Row{"Rows", fmt.Sprintf("%d read / %d written", result.RowsRead, result.RowsWritten)})
	t.AppendRow(table.Row{"Batches", result.Batches})
	if len(result.StructuralOps) > 0 {
		t.AppendRow(table.Row{"Structure", strings.Join(result.StructuralOps, "\n")})
	}
	if result.Fingerprint != "" {
		t.AppendRow(table.Row{"Fingerprint", shortFingerprint(result.Fingerprint)})
	}
	t.AppendRow(table.Row{"Elapsed", result.Elapsed.Round(time.Millisecond).String()})
	t.Render()

	for _, w := range result.Warnings {
		fmt.Fprintln(r.out, WarningStyle.Render("WARNING: "+w))
	}
}

// SchemaPreview writes the table structure a load would create from the
// profiled source, without touching a database. Columns and profiles are in
// file order; the profile slice supplies the observation counts.
func (r *Renderer) SchemaPreview(schema *tabsync.CandidateSchema, profiles []tabsync.ColumnProfile, format tabsync.FileFormat, rows int64) {
	if schema == nil {
		return
	}
	if r.styled {
		r.styledPreview(schema, profiles, format, rows)
		return
	}
	r.plainPreview(schema, profiles, format, rows)
}

func (r *Renderer) plainPreview(schema *tabsync.CandidateSchema, profiles []tabsync.ColumnProfile, format tabsync.FileFormat, rows int64) {
	fmt.Fprintf(r.out, "%s.%s (%s, %d data rows)\n", schema.Schema, schema.Table, format, rows)
	if schema.SurrogateKey != "" {
		fmt.Fprintf(r.out, "  %s bigserial primary key\n", schema.SurrogateKey)
	}
	for i, col := range schema.Columns {
		line := fmt.Sprintf("  %s %s", col.Name, col.Type)
		if !col.Nullable {
			line += " not null"
		}
		if i < len(profiles) {
			line += fmt.Sprintf(" (%d values)", profiles[i].Values)
		}
		fmt.Fprintln(r.out, line)
	}
	if len(schema.KeyColumns) > 0 {
		fmt.Fprintf(r.out, "key columns: %s\n", strings.Join(schema.KeyColumns, ", "))
	}
}

func (r *Renderer) styledPreview(schema *tabsync.CandidateSchema, profiles []tabsync.ColumnProfile, format tabsync.FileFormat, rows int64) {
	title := TitleStyle.Render(fmt.Sprintf("%s.%s", schema.Schema, schema.Table))
	detail := MutedStyle.Render(fmt.Sprintf("  %s, %d data rows", format, rows))
	fmt.Fprintln(r.out, title+detail)

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Column", "Inferred", "PostgreSQL", "Nullable", "Values"})
	if schema.SurrogateKey != "" {
		t.AppendRow(table.Row{schema.SurrogateKey, "", "BIGSERIAL PRIMARY KEY", "NO", ""})
	}
	for i, col := range schema.Columns {
		nullable := "NO"
		if col.Nullable {
			nullable = "YES"
		}
		values := ""
		if i < len(profiles) {
			values = fmt.Sprintf("%d", profiles[i].Values)
		}
		t.AppendRow(table.Row{col.Name, col.Type.String(), col.Type.PostgresType(), nullable, values})
	}
	t.Render()

	if len(schema.KeyColumns) > 0 {
		fmt.Fprintln(r.out, MutedStyle.Render("key columns: "+strings.Join(schema.KeyColumns, ", ")))
	}
}

func statusBanner(status tabsync.LoadStatus) string {
	switch status {
	case tabsync.StatusSuccess:
		return SuccessStyle.Render(SymbolCheck + " load succeeded")
	case tabsync.StatusPartial:
		return WarningStyle.Render(SymbolWarning + " load partially applied")
	default:
		return ErrorStyle.Render(SymbolCross + " load failed")
	}
}

func statusText(status tabsync.LoadStatus) string {
	switch status {
	case tabsync.StatusSuccess:
		return "succeeded"
	case tabsync.StatusPartial:
		return "partially applied"
	default:
		return "failed"
	}
}

// shortFingerprint abbreviates a SHA-256 hex digest for table display. The
// plain summary keeps the full digest for scripting.
func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
