package tabsync

// FileFormat identifies how a source file is parsed.
type FileFormat int

const (
	// FormatDelimited covers .csv, .tsv, and .txt files.
	FormatDelimited FileFormat = iota

	// FormatSpreadsheet covers .xlsx, .xlsm, .xltx, and .xltm workbooks.
	FormatSpreadsheet
)

// String returns a human-readable format name.
func (f FileFormat) String() string {
	switch f {
	case FormatDelimited:
		return "delimited"
	case FormatSpreadsheet:
		return "spreadsheet"
	default:
		return "unknown"
	}
}

// RowSource streams the rows of one tabular file. A source is consumed once;
// the loader opens the file twice (profiling pass, then loading pass).
//
// Implementations are not safe for concurrent use.
type RowSource interface {
	// Header returns the column names from the first row, in file order,
	// unsanitized.
	Header() []string

	// Next returns the next data row. Cells are raw strings; short rows are
	// padded with empty cells to the header width. Returns io.EOF when the
	// file is exhausted.
	Next() ([]string, error)

	// Close releases the underlying file. Idempotent.
	Close() error
}

// SourceOpener opens the configured source file. Each call yields a fresh
// stream positioned at the first data row.
type SourceOpener interface {
	// Open opens the file and reads its header.
	Open() (RowSource, error)

	// Format reports the detected file format.
	Format() FileFormat
}
