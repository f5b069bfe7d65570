package tasks

import "fmt"

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display. For
// import phases Step is a truncated percentage out of Total=100; for export
// phases Step is the running row count out of the known filtered total.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int64  // Current position within the phase
	Total   int64  // End position of the phase
	Message string // Human-readable message for display
}

// Operation phase enumeration
type Phase int

const (
	CountLines Phase = iota
	ParseRows
	Commit
	CountRecords
	WriteRows
	Publish
)

func (p Phase) String() string {
	switch p {
	case CountLines:
		return "count_lines"
	case ParseRows:
		return "parse_rows"
	case Commit:
		return "commit"
	case CountRecords:
		return "count_records"
	case WriteRows:
		return "write_rows"
	case Publish:
		return "publish"
	default:
		return ""
	}
}

// Terminal reports whether this update is the last one of a successful run.
func (u ProgressUpdate) Terminal() bool {
	return u.Phase == Commit || u.Phase == Publish
}

func countLinesUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CountLines,
		Step:    0,
		Total:   100,
		Message: fmt.Sprintf("Source file has %d lines", total),
	}
}

func parseRowsUpdate(processed, total int) ProgressUpdate {
	percent := int64(100)
	if total > 0 {
		percent = int64(processed * 100 / total)
	}
	return ProgressUpdate{
		Phase:   ParseRows,
		Step:    percent,
		Total:   100,
		Message: fmt.Sprintf("Parsed %d/%d lines (%d%%)", processed, total, percent),
	}
}

func commitUpdate(imported int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Commit,
		Step:    100,
		Total:   100,
		Message: fmt.Sprintf("Committed %d records", imported),
	}
}

func countRecordsUpdate(total int64) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CountRecords,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Exporting %d records", total),
	}
}

func writeRowsUpdate(written, total int64) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteRows,
		Step:    written,
		Total:   total,
		Message: fmt.Sprintf("Wrote %d/%d rows", written, total),
	}
}

func publishUpdate(path string, total int64) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Publish,
		Step:    total,
		Total:   total,
		Message: fmt.Sprintf("Export written to %s", path),
	}
}
