package source

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/vvka-141/tabsync/pkg/tabsync"
)

// sheetSource streams rows from one worksheet of an Excel workbook.
type sheetSource struct {
	wb     *excelize.File
	rows   *excelize.Rows
	header []string
	rowNum int64
	closed bool
}

func openSheet(fsys FileSystem, path, sheet string) (tabsync.RowSource, error) {
	rc, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", tabsync.ErrFileRead, err)
	}

	wb, err := excelize.OpenReader(rc)
	// OpenReader buffers the whole workbook, so the handle is done either way.
	rc.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: opening workbook %s: %w", tabsync.ErrFileRead, path, err)
	}

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		wb.Close()
		return nil, fmt.Errorf("%w: workbook %s has no sheets", tabsync.ErrFileRead, path)
	}

	if sheet == "" {
		sheet = sheets[0]
	} else {
		resolved, ok := resolveSheet(sheets, sheet)
		if !ok {
			wb.Close()
			return nil, fmt.Errorf("%w: workbook %s has no sheet %q (sheets: %s)",
				tabsync.ErrFileRead, path, sheet, strings.Join(sheets, ", "))
		}
		sheet = resolved
	}

	rows, err := wb.Rows(sheet)
	if err != nil {
		wb.Close()
		return nil, fmt.Errorf("%w: reading sheet %q of %s: %w", tabsync.ErrFileRead, sheet, path, err)
	}

	if !rows.Next() {
		rows.Close()
		wb.Close()
		return nil, fmt.Errorf("%w: sheet %q of %s is empty", tabsync.ErrFileRead, sheet, path)
	}
	header, err := rows.Columns()
	if err != nil {
		rows.Close()
		wb.Close()
		return nil, fmt.Errorf("%w: reading header of sheet %q: %w", tabsync.ErrFileRead, sheet, err)
	}
	if len(header) == 0 {
		rows.Close()
		wb.Close()
		return nil, fmt.Errorf("%w: sheet %q of %s has an empty header row", tabsync.ErrFileRead, sheet, path)
	}

	return &sheetSource{wb: wb, rows: rows, header: header}, nil
}

// resolveSheet matches a requested sheet name case-insensitively and returns
// the canonical name stored in the workbook.
func resolveSheet(sheets []string, want string) (string, bool) {
	for _, s := range sheets {
		if strings.EqualFold(s, want) {
			return s, true
		}
	}
	return "", false
}

func (s *sheetSource) Header() []string {
	return s.header
}

func (s *sheetSource) Next() ([]string, error) {
	for s.rows.Next() {
		record, err := s.rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", tabsync.ErrFileRead, err)
		}
		// Workbooks carry formatted-but-empty trailing rows; skip rows with
		// no content at all, matching how blank lines read in CSV.
		if allEmpty(record) {
			continue
		}
		s.rowNum++
		if len(record) > len(s.header) {
			return nil, fmt.Errorf("%w: data row %d has %d cells but the header has %d",
				tabsync.ErrFileRead, s.rowNum, len(record), len(s.header))
		}
		if len(record) < len(s.header) {
			padded := make([]string, len(s.header))
			copy(padded, record)
			record = padded
		}
		return record, nil
	}
	return nil, io.EOF
}

func allEmpty(record []string) bool {
	for _, cell := range record {
		if cell != "" {
			return false
		}
	}
	return true
}

func (s *sheetSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	rowsErr := s.rows.Close()
	wbErr := s.wb.Close()
	if rowsErr != nil {
		return rowsErr
	}
	return wbErr
}
