// package models defines the data model for the record ingestion and export pipelines
package models

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/avasiliev/kartoteka/internal/shared"
)

// DateLayout is the canonical rendering of record dates in exported artifacts.
const DateLayout = "2006-01-02"

// FieldCount is the number of `;`-separated fields in a valid source row.
const FieldCount = 6

// Record is one persisted entity built from a validated source row.
//
// ID is assigned by the store on insert and never changes afterwards. The five
// text attributes are plain strings: an absent value is the empty string.
type Record struct {
	ID        int64
	Date      time.Time
	FirstName string
	LastName  string
	SurName   string
	City      string
	Country   string
}

// Fields returns the text attributes in source-column order.
func (r Record) Fields() [5]string {
	return [5]string{r.FirstName, r.LastName, r.SurName, r.City, r.Country}
}

// DateString renders the record date as yyyy-MM-dd.
func (r Record) DateString() string {
	return r.Date.Format(DateLayout)
}

// Validate checks record invariants: a non-zero date and digit-free text attributes.
func (r Record) Validate() error {
	if r.Date.IsZero() {
		return fmt.Errorf("%w: record date is not set", shared.ErrInvalidArgument)
	}
	for _, field := range r.Fields() {
		if containsDigit(field) {
			return fmt.Errorf("%w: text attribute %q contains a digit", shared.ErrInvalidArgument, field)
		}
	}
	return nil
}

// RejectReason classifies why a source row was not turned into a Record.
type RejectReason int

const (
	RejectNone        RejectReason = iota // row accepted
	RejectColumnCount                     // row did not split into exactly six fields
	RejectDate                            // field 0 did not parse as a date
	RejectText                            // a text field contained a digit
)

func (r RejectReason) String() string {
	switch r {
	case RejectNone:
		return "accepted"
	case RejectColumnCount:
		return "column_count"
	case RejectDate:
		return "invalid_date"
	case RejectText:
		return "invalid_text"
	default:
		return ""
	}
}

// ParseRow builds a Record from one split source row.
//
// The date field is tried against each layout in order. Rows are rejected, not
// repaired: a reason other than RejectNone means the row contributes nothing.
func ParseRow(fields []string, layouts []string) (Record, RejectReason) {
	if len(fields) != FieldCount {
		return Record{}, RejectColumnCount
	}

	var date time.Time
	parsed := false
	raw := strings.TrimSpace(fields[0])
	for _, layout := range layouts {
		if d, err := time.Parse(layout, raw); err == nil {
			date = d
			parsed = true
			break
		}
	}
	if !parsed {
		return Record{}, RejectDate
	}

	for _, field := range fields[1:] {
		if containsDigit(field) {
			return Record{}, RejectText
		}
	}

	return Record{
		Date:      date,
		FirstName: fields[1],
		LastName:  fields[2],
		SurName:   fields[3],
		City:      fields[4],
		Country:   fields[5],
	}, RejectNone
}

func containsDigit(s string) bool {
	return strings.ContainsFunc(s, unicode.IsDigit)
}

// ImportOutcome summarizes one ingestion run.
//
// Rejected rows are counted once under their first matching reason. A run with
// zero imported records is still a successful run.
type ImportOutcome struct {
	TotalLines     int // lines seen in the pre-scan pass
	Imported       int // records committed to the store
	SkippedColumns int // rows rejected for a column-count mismatch
	InvalidDates   int // rows rejected for an unparsable date field
	InvalidTexts   int // rows rejected for a digit in a text field
}

// HasInvalidDates reports whether at least one row was rejected for its date field.
func (o ImportOutcome) HasInvalidDates() bool { return o.InvalidDates > 0 }

// HasInvalidTexts reports whether at least one row was rejected for a digit-bearing text field.
func (o ImportOutcome) HasInvalidTexts() bool { return o.InvalidTexts > 0 }

// Rejected returns the total number of rows skipped across all reasons.
func (o ImportOutcome) Rejected() int {
	return o.SkippedColumns + o.InvalidDates + o.InvalidTexts
}

func (o ImportOutcome) String() string {
	return fmt.Sprintf("imported %d of %d lines (skipped: %d column-count, %d date, %d text)",
		o.Imported, o.TotalLines, o.SkippedColumns, o.InvalidDates, o.InvalidTexts)
}

// Filter selects a subset of stored records. Zero values match everything.
type Filter struct {
	DateFrom *time.Time // inclusive lower bound on Date
	DateTo   *time.Time // inclusive upper bound on Date
	Name     string     // substring match against FirstName, LastName and SurName
	City     string     // exact match
	Country  string     // exact match
}

// Validate rejects predicates the pipelines refuse to run, currently an
// inverted date range. Callers must validate before handing a Filter to the
// store or an export job.
func (f Filter) Validate() error {
	if f.DateFrom != nil && f.DateTo != nil && f.DateFrom.After(*f.DateTo) {
		return fmt.Errorf("%w: date range starts after it ends (%s > %s)",
			shared.ErrInvalidFilter, f.DateFrom.Format(DateLayout), f.DateTo.Format(DateLayout))
	}
	return nil
}

// Format selects the export artifact type.
type Format int

const (
	FormatWorkbook Format = iota + 1 // spreadsheet workbook (.xlsx)
	FormatDocument                   // hierarchical markup document (.xml)
)

func (f Format) String() string {
	switch f {
	case FormatWorkbook:
		return "xlsx"
	case FormatDocument:
		return "xml"
	default:
		return ""
	}
}

// ParseFormat maps a CLI flag value onto a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "xlsx", "workbook", "spreadsheet":
		return FormatWorkbook, nil
	case "xml", "document":
		return FormatDocument, nil
	default:
		return 0, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, s)
	}
}

// ExportJob describes one export run. It exists only for the duration of a
// single Export call.
type ExportJob struct {
	ID     string // run identifier for log correlation
	Filter Filter
	Format Format
	Path   string // final destination; the writer targets Path+".tmp" until publish
}

// NewExportJob builds an ExportJob with a fresh run identifier.
func NewExportJob(filter Filter, format Format, path string) ExportJob {
	return ExportJob{
		ID:     shared.GenerateID(),
		Filter: filter,
		Format: format,
		Path:   path,
	}
}

// Validate checks the job is runnable: a destination path, a known format and
// a valid filter.
func (j ExportJob) Validate() error {
	if j.Path == "" {
		return fmt.Errorf("%w: export destination path", shared.ErrMissingArgument)
	}
	if j.Format != FormatWorkbook && j.Format != FormatDocument {
		return fmt.Errorf("%w: export format not set", shared.ErrInvalidArgument)
	}
	return j.Filter.Validate()
}
