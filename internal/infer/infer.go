// Package infer derives column types from the values a source file contains.
//
// Each column starts with every type on the precedence ladder viable
// (integer, decimal, boolean, date, timestamp, text) and loses a type the
// first time a value fails to parse as it. After the full scan the column's
// type is the narrowest type still viable; text never loses viability.
//
// Values are loaded into PostgreSQL as raw strings and coerced by the server,
// so every grammar here accepts a strict subset of what the server accepts
// for the mapped column type. A value that profiles as date must load into a
// DATE column without error. This rules out spellings Go could parse but the
// server rejects (named zone abbreviations, year-first dotted dates) and
// spellings the server could parse but Go normalizes differently.
package infer

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/vvka-141/tabsync/pkg/tabsync"
)

const (
	// minYear and maxYear bound accepted date years. Values outside the range
	// are almost always serial numbers or identifiers, not dates.
	minYear = 1900
	maxYear = 2100
)

// decimalRegex validates plain and scientific numeric literals.
// No Inf/NaN spellings and no grouping separators: the raw value must be
// server-acceptable NUMERIC input.
var decimalRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// leadingZeroRegex matches all-digit values with a redundant leading zero,
// the shape of zero-padded identifiers.
var leadingZeroRegex = regexp.MustCompile(`^0\d+$`)

// dateLayouts are the accepted date-only spellings. Slashed and dashed
// numeric forms read month-first, matching the server's default MDY ordering.
// Year-first dotted forms are excluded: the server reads YYYY.DDD as year
// plus day-of-year.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"1/2/2006", "01/02/2006",
	"1-2-2006", "01-02-2006",
	"1.2.2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	"20060102",
}

// timestampLayouts are the accepted datetime spellings.
var timestampLayouts = buildTimestampLayouts()

func buildTimestampLayouts() []string {
	times := []string{"15:04:05.999999999", "15:04"}

	var layouts []string
	for _, d := range dateLayouts {
		for _, t := range times {
			layouts = append(layouts, d+" "+t)
		}
	}
	// The T separator and zone suffixes are ISO spellings; the server only
	// reliably accepts them against an ISO date.
	for _, t := range times {
		layouts = append(layouts, "2006-01-02T"+t)
	}
	for _, sep := range []string{" ", "T"} {
		for _, t := range times {
			layouts = append(layouts, "2006-01-02"+sep+t+"Z07:00")
			layouts = append(layouts, "2006-01-02"+sep+t+"-0700")
		}
	}
	return layouts
}

// IsBlank reports whether a cell value is blank after trimming. Blank values
// load as NULL and never influence a column's type.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// numTypes is the size of the precedence ladder.
const numTypes = int(tabsync.TypeText) + 1

// ladder is the precedence order checked when a profile resolves.
var ladder = [numTypes]tabsync.ColumnType{
	tabsync.TypeInteger,
	tabsync.TypeDecimal,
	tabsync.TypeBoolean,
	tabsync.TypeDate,
	tabsync.TypeTimestamp,
	tabsync.TypeText,
}

// parsesAs reports whether a trimmed, non-blank value belongs to the value
// grammar of the given type.
func parsesAs(t tabsync.ColumnType, s string) bool {
	switch t {
	case tabsync.TypeInteger:
		return isInteger(s)
	case tabsync.TypeDecimal:
		return isDecimal(s)
	case tabsync.TypeBoolean:
		return isBoolean(s)
	case tabsync.TypeDate:
		return isDate(s)
	case tabsync.TypeTimestamp:
		return isTimestamp(s)
	default:
		return true
	}
}

func isInteger(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

func isDecimal(s string) bool {
	return decimalRegex.MatchString(s)
}

func isBoolean(s string) bool {
	switch strings.ToLower(s) {
	case "true", "t", "yes", "y", "1", "false", "f", "no", "n", "0":
		return true
	default:
		return false
	}
}

func isDate(s string) bool {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return yearInRange(t)
		}
	}
	return false
}

func isTimestamp(s string) bool {
	if isDate(s) {
		return true
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return yearInRange(t)
		}
	}
	return false
}

func yearInRange(t time.Time) bool {
	return t.Year() >= minYear && t.Year() <= maxYear
}

// Options adjust how profiles resolve.
type Options struct {
	// PreserveLeadingZeros forces any column containing a zero-padded
	// all-digit value to resolve as text, keeping identifiers intact.
	PreserveLeadingZeros bool
}

// columnState tracks one column's surviving types across the scan.
type columnState struct {
	name        string
	viable      [numTypes]bool
	values      int64
	blanks      int64
	leadingZero bool
}

func newColumnState(name string) *columnState {
	st := &columnState{name: name}
	for i := range st.viable {
		st.viable[i] = true
	}
	return st
}

func (st *columnState) observe(raw string) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		st.blanks++
		return
	}
	st.values++

	if leadingZeroRegex.MatchString(trimmed) {
		st.leadingZero = true
	}

	// Text stays viable unconditionally; everything narrower is retested.
	for i, t := range ladder[:len(ladder)-1] {
		if st.viable[i] && !parsesAs(t, trimmed) {
			st.viable[i] = false
		}
	}
}

func (st *columnState) resolve(opts Options) tabsync.ColumnType {
	if st.values == 0 {
		return tabsync.TypeText
	}
	if opts.PreserveLeadingZeros && st.leadingZero {
		return tabsync.TypeText
	}
	for i, t := range ladder {
		if st.viable[i] {
			return t
		}
	}
	return tabsync.TypeText
}

// Profiler accumulates column profiles over a full scan of the source rows.
// Feed every data row to Observe, then read the result from Profiles.
//
// Not safe for concurrent use.
type Profiler struct {
	cols []*columnState
	rows int64
	opts Options
}

// NewProfiler creates a profiler for the given header row. Header cells are
// kept raw; sanitization happens later in schema building.
func NewProfiler(header []string, opts Options) *Profiler {
	cols := make([]*columnState, len(header))
	for i, name := range header {
		cols[i] = newColumnState(name)
	}
	return &Profiler{cols: cols, opts: opts}
}

// Observe folds one data row into the profiles. Rows shorter than the header
// count the missing cells as blanks; cells beyond the header are ignored.
func (p *Profiler) Observe(row []string) {
	p.rows++
	for i, col := range p.cols {
		if i < len(row) {
			col.observe(row[i])
		} else {
			col.blanks++
		}
	}
}

// Rows returns the number of data rows observed.
func (p *Profiler) Rows() int64 {
	return p.rows
}

// Profiles resolves and returns the per-column profiles in header order.
func (p *Profiler) Profiles() []tabsync.ColumnProfile {
	profiles := make([]tabsync.ColumnProfile, len(p.cols))
	for i, col := range p.cols {
		profiles[i] = tabsync.ColumnProfile{
			Name:     col.name,
			Type:     col.resolve(p.opts),
			Nullable: col.blanks > 0,
			Values:   col.values,
			Blanks:   col.blanks,
		}
	}
	return profiles
}
