// Package source reads tabular files into header-plus-rows streams.
//
// Two physical formats are supported: delimiter-separated text (CSV, TSV and
// plain text) and Excel workbooks. Both are exposed through the same
// tabsync.RowSource interface so that profiling and loading never care where
// the rows came from. Sources are streamed where the format allows it; a load
// opens the file twice (once to profile, once to insert) rather than holding
// the rows in memory.
package source

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/vvka-141/tabsync/pkg/tabsync"
)

// Options adjust how a file is opened.
type Options struct {
	// Delimiter forces the field separator for delimited files. When zero
	// the separator is detected from the first line.
	Delimiter rune

	// Sheet selects the worksheet of a spreadsheet by name. When empty the
	// first sheet is used.
	Sheet string
}

// Opener opens one tabular file, possibly repeatedly.
type Opener struct {
	fsys   FileSystem
	path   string
	format tabsync.FileFormat
	opts   Options
}

// NewOpener validates that path exists and is a regular file of a supported
// format, and returns an opener for it.
func NewOpener(fsys FileSystem, path string, opts Options) (*Opener, error) {
	info, err := fsys.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", tabsync.ErrFileRead, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory, not a file", tabsync.ErrFileRead, path)
	}

	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	return &Opener{fsys: fsys, path: path, format: format, opts: opts}, nil
}

// Format returns the detected file format.
func (o *Opener) Format() tabsync.FileFormat {
	return o.format
}

// Open opens the file and reads its header. Each call yields an independent
// source positioned at the first data row.
func (o *Opener) Open() (tabsync.RowSource, error) {
	switch o.format {
	case tabsync.FormatSpreadsheet:
		return openSheet(o.fsys, o.path, o.opts.Sheet)
	default:
		return openDelimited(o.fsys, o.path, o.opts.Delimiter)
	}
}

// DetectFormat maps a file extension to its format. Unknown extensions are
// rejected rather than guessed: loading a file into a database is not the
// place for content sniffing.
func DetectFormat(path string) (tabsync.FileFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv", ".txt":
		return tabsync.FormatDelimited, nil
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return tabsync.FormatSpreadsheet, nil
	default:
		return 0, fmt.Errorf("%w: unsupported file extension %q (supported: .csv, .tsv, .txt, .xlsx, .xlsm, .xltx, .xltm)",
			tabsync.ErrFileRead, filepath.Ext(path))
	}
}

// Verify interface compliance at compile time
var _ tabsync.SourceOpener = (*Opener)(nil)
