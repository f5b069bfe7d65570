// package formatter provides streaming writers that serialize record result sets to export artifacts (XLSX workbook, XML document)
package formatter

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"

	"github.com/avasiliev/kartoteka/internal/models"
	"github.com/avasiliev/kartoteka/internal/shared"
	"github.com/xuri/excelize/v2"
)

// DefaultLabels are the column labels used when the configuration provides none.
var DefaultLabels = []string{"Date", "FirstName", "LastName", "SurName", "City", "Country"}

// RecordWriter serializes records one at a time to a target file.
//
// Implementations hold the format-specific state (current sheet, open
// elements); the caller owns ordering, batching, progress and cancellation.
// Close must be called exactly once and flushes the artifact to disk.
type RecordWriter interface {
	Add(record models.Record) error
	Close() error
}

// NewRecordWriter creates the writer for the given format, targeting path.
// labels must hold six column names; nil selects DefaultLabels.
func NewRecordWriter(format models.Format, path string, labels []string, sheetRows int) (RecordWriter, error) {
	if len(labels) != models.FieldCount {
		labels = DefaultLabels
	}

	switch format {
	case models.FormatWorkbook:
		return newWorkbookWriter(path, labels, sheetRows)
	case models.FormatDocument:
		return newDocumentWriter(path)
	default:
		return nil, fmt.Errorf("%w: no writer for format %d", shared.ErrInvalidArgument, format)
	}
}

// Publish atomically promotes the finished temp artifact to the destination
// path. A rename never leaves the destination partially written.
func Publish(tmp, dest string) error {
	if err := os.Rename(tmp, dest); err != nil {
		return shared.ClassifyPathError(err)
	}
	return nil
}

// Discard removes a temp artifact, tolerating one that was never created.
func Discard(tmp string) {
	_ = os.Remove(tmp)
}

// workbookWriter streams records into an XLSX workbook, starting a fresh
// sheet whenever the current one reaches its data-row cap.
type workbookWriter struct {
	file      *excelize.File
	stream    *excelize.StreamWriter
	labels    []string
	sheetRows int
	path      string
	sheets    int // sheets created so far
	inSheet   int // data rows written to the current sheet
}

func newWorkbookWriter(path string, labels []string, sheetRows int) (*workbookWriter, error) {
	w := &workbookWriter{
		file:      excelize.NewFile(),
		labels:    labels,
		sheetRows: sheetRows,
		path:      path,
	}

	if err := w.file.SetSheetName("Sheet1", w.sheetName(1)); err != nil {
		w.file.Close()
		return nil, fmt.Errorf("failed to name first sheet: %w", err)
	}
	if err := w.openSheet(w.sheetName(1)); err != nil {
		w.file.Close()
		return nil, err
	}
	w.sheets = 1

	return w, nil
}

// sheetName returns "Records" for the first sheet, "Records_N" afterwards.
func (w *workbookWriter) sheetName(n int) string {
	if n == 1 {
		return "Records"
	}
	return fmt.Sprintf("Records_%d", n)
}

// openSheet attaches a stream writer to the named sheet and writes its header row.
func (w *workbookWriter) openSheet(name string) error {
	stream, err := w.file.NewStreamWriter(name)
	if err != nil {
		return fmt.Errorf("failed to open stream writer for sheet %s: %w", name, err)
	}

	header := make([]any, len(w.labels))
	for i, label := range w.labels {
		header[i] = excelize.Cell{Value: label}
	}
	if err := stream.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}

	w.stream = stream
	w.inSheet = 0
	return nil
}

// rollSheet flushes the full sheet and starts the next one.
func (w *workbookWriter) rollSheet() error {
	if err := w.stream.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet %d: %w", w.sheets, err)
	}

	name := w.sheetName(w.sheets + 1)
	if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", name, err)
	}
	if err := w.openSheet(name); err != nil {
		return err
	}

	w.sheets++
	return nil
}

func (w *workbookWriter) Add(record models.Record) error {
	if w.inSheet >= w.sheetRows {
		if err := w.rollSheet(); err != nil {
			return err
		}
	}

	// Row 1 is the header, data starts at row 2.
	cell, err := excelize.CoordinatesToCellName(1, w.inSheet+2)
	if err != nil {
		return fmt.Errorf("failed to compute cell name: %w", err)
	}

	row := []any{
		excelize.Cell{Value: record.DateString()},
		excelize.Cell{Value: record.FirstName},
		excelize.Cell{Value: record.LastName},
		excelize.Cell{Value: record.SurName},
		excelize.Cell{Value: record.City},
		excelize.Cell{Value: record.Country},
	}
	if err := w.stream.SetRow(cell, row); err != nil {
		return fmt.Errorf("failed to write data row: %w", err)
	}

	w.inSheet++
	return nil
}

func (w *workbookWriter) Close() error {
	defer w.file.Close()

	if err := w.stream.Flush(); err != nil {
		return fmt.Errorf("failed to flush workbook stream: %w", err)
	}
	if err := w.file.SaveAs(w.path); err != nil {
		return shared.ClassifyPathError(err)
	}
	return nil
}

// xmlRecord is the serialized form of one record in the document export.
// The id attribute is a 1-based running sequence in output order, not the
// store identifier.
type xmlRecord struct {
	XMLName   xml.Name `xml:"Record"`
	ID        int64    `xml:"id,attr"`
	Date      string   `xml:"Date"`
	FirstName string   `xml:"FirstName"`
	LastName  string   `xml:"LastName"`
	SurName   string   `xml:"SurName"`
	City      string   `xml:"City"`
	Country   string   `xml:"Country"`
}

// documentWriter streams records as child elements of one root element,
// element at a time, without building a document tree.
type documentWriter struct {
	file    *os.File
	encoder *xml.Encoder
	root    xml.StartElement
	seq     int64
}

func newDocumentWriter(path string) (*documentWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, shared.ClassifyPathError(err)
	}

	if _, err := io.WriteString(file, xml.Header); err != nil {
		file.Close()
		return nil, shared.ClassifyPathError(err)
	}

	encoder := xml.NewEncoder(file)
	encoder.Indent("", "  ")

	root := xml.StartElement{Name: xml.Name{Local: "Records"}}
	if err := encoder.EncodeToken(root); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to open root element: %w", err)
	}

	return &documentWriter{file: file, encoder: encoder, root: root}, nil
}

func (w *documentWriter) Add(record models.Record) error {
	w.seq++
	element := xmlRecord{
		ID:        w.seq,
		Date:      record.DateString(),
		FirstName: record.FirstName,
		LastName:  record.LastName,
		SurName:   record.SurName,
		City:      record.City,
		Country:   record.Country,
	}

	if err := w.encoder.Encode(element); err != nil {
		return fmt.Errorf("failed to encode record element: %w", err)
	}
	return nil
}

func (w *documentWriter) Close() error {
	defer w.file.Close()

	if err := w.encoder.EncodeToken(w.root.End()); err != nil {
		return fmt.Errorf("failed to close root element: %w", err)
	}
	if err := w.encoder.Flush(); err != nil {
		return fmt.Errorf("failed to flush document: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return shared.ClassifyPathError(err)
	}
	return nil
}
