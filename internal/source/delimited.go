package source

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/vvka-141/tabsync/pkg/tabsync"
)

// detectSampleSize bounds how much of the first line delimiter detection
// inspects.
const detectSampleSize = 4096

// delimiterCandidates are tried in priority order; ties go to the earlier
// candidate.
var delimiterCandidates = []byte{',', '\t', ';', '|'}

// delimitedSource streams rows from a delimiter-separated text file.
type delimitedSource struct {
	rc     io.ReadCloser
	reader *csv.Reader
	header []string
	rowNum int64
	closed bool
}

func openDelimited(fsys FileSystem, path string, delimiter rune) (tabsync.RowSource, error) {
	rc, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", tabsync.ErrFileRead, err)
	}

	br := bufio.NewReader(rc)
	skipBOM(br)

	if delimiter == 0 {
		if strings.EqualFold(filepath.Ext(path), ".tsv") {
			delimiter = '\t'
		} else {
			sample, _ := br.Peek(detectSampleSize)
			delimiter = DetectDelimiter(sample)
		}
	}

	reader := csv.NewReader(br)
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		rc.Close()
		return nil, fmt.Errorf("%w: %s is empty", tabsync.ErrFileRead, path)
	}
	if err != nil {
		rc.Close()
		return nil, fmt.Errorf("%w: reading header of %s: %w", tabsync.ErrFileRead, path, err)
	}

	return &delimitedSource{rc: rc, reader: reader, header: header}, nil
}

func (s *delimitedSource) Header() []string {
	return s.header
}

func (s *delimitedSource) Next() ([]string, error) {
	record, err := s.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", tabsync.ErrFileRead, err)
	}
	s.rowNum++
	if len(record) > len(s.header) {
		return nil, fmt.Errorf("%w: data row %d has %d fields but the header has %d",
			tabsync.ErrFileRead, s.rowNum, len(record), len(s.header))
	}
	if len(record) < len(s.header) {
		padded := make([]string, len(s.header))
		copy(padded, record)
		record = padded
	}
	return record, nil
}

func (s *delimitedSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.rc.Close()
}

// skipBOM discards a UTF-8 byte order mark if the stream starts with one.
// Spreadsheet exports on Windows commonly prepend it, and it would otherwise
// end up glued to the first header name.
func skipBOM(br *bufio.Reader) {
	bom, _ := br.Peek(3)
	if len(bom) == 3 && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		br.Discard(3)
	}
}

// DetectDelimiter picks the candidate separator occurring most often in the
// first line of the sample, counting only occurrences outside double quotes.
// When no candidate occurs the file is treated as single-column CSV.
func DetectDelimiter(sample []byte) rune {
	counts := make([]int, len(delimiterCandidates))
	inQuotes := false
scan:
	for _, b := range sample {
		switch {
		case b == '"':
			inQuotes = !inQuotes
		case b == '\n' && !inQuotes:
			break scan
		case !inQuotes:
			for i, c := range delimiterCandidates {
				if b == c {
					counts[i]++
				}
			}
		}
	}

	best := 0
	for i := 1; i < len(counts); i++ {
		if counts[i] > counts[best] {
			best = i
		}
	}
	return rune(delimiterCandidates[best])
}
