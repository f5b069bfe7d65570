package tasks

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/avasiliev/kartoteka/internal/formatter"
	"github.com/avasiliev/kartoteka/internal/models"
	"github.com/avasiliev/kartoteka/internal/repositories"
	"github.com/avasiliev/kartoteka/internal/shared"
	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

// sourceDelimiter separates fields in an import source row.
const sourceDelimiter = ';'

// progressPerSecond caps how often throttled (non-terminal) updates reach the
// sink, keeping reporting off the row loop's critical path.
const progressPerSecond = 30

// TransferEngine defines the two pipeline operations.
type TransferEngine interface {
	// Import streams a `;`-delimited headerless source file into the store
	// under one transaction and returns per-reason rejection counts.
	Import(ctx context.Context, progress chan<- ProgressUpdate, path string) (*models.ImportOutcome, error)

	// Export streams the filtered result set into the job's target format and
	// atomically replaces the destination on success.
	Export(ctx context.Context, progress chan<- ProgressUpdate, job models.ExportJob) error
}

// RecordEngine implements TransferEngine over a RecordRepository.
type RecordEngine struct {
	repo      *repositories.RecordRepository
	importCfg shared.ImportConfig
	exportCfg shared.ExportConfig
	logger    *log.Logger
	limiter   *rate.Limiter
}

// NewRecordEngine creates a RecordEngine, applying defaults for any tuning
// values the configuration leaves unset.
func NewRecordEngine(repo *repositories.RecordRepository, config *shared.Config, logger *log.Logger) *RecordEngine {
	if config == nil {
		config = shared.DefaultConfig()
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	importCfg := config.Import
	if importCfg.BatchSize < 1 {
		importCfg.BatchSize = 10000
	}
	if importCfg.ProgressRows < 1 {
		importCfg.ProgressRows = 1000
	}
	if len(importCfg.DateLayouts) == 0 {
		importCfg.DateLayouts = []string{models.DateLayout}
	}

	exportCfg := config.Export
	if exportCfg.SheetRows < 1 {
		exportCfg.SheetRows = 1000000
	}
	if exportCfg.ProgressRows < 1 {
		exportCfg.ProgressRows = 1000
	}

	return &RecordEngine{
		repo:      repo,
		importCfg: importCfg,
		exportCfg: exportCfg,
		logger:    logger,
		limiter:   rate.NewLimiter(rate.Limit(progressPerSecond), progressPerSecond),
	}
}

// asPipelineError folds context cancellation surfaced by the store or the
// filesystem into the canceled outcome, so callers see one canceled state
// regardless of which suspension point observed it first.
func asPipelineError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", shared.ErrCanceled, err)
	}
	return err
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *RecordEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// sendThrottled drops intermediate updates beyond the configured rate.
// Terminal updates must go through sendProgress directly.
func (e *RecordEngine) sendThrottled(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if !e.limiter.Allow() {
		return
	}
	e.sendProgress(progress, update)
}

// Import streams the source file at path into the store.
//
// The file is verified and measured before the transaction opens. Malformed
// rows are counted and skipped, never fatal; only I/O failure or cancellation
// aborts the run, and then with a full rollback.
func (e *RecordEngine) Import(ctx context.Context, progress chan<- ProgressUpdate, path string) (*models.ImportOutcome, error) {
	logger := e.logger.With("path", path)

	info, err := os.Stat(path)
	if err != nil {
		return nil, shared.ClassifyPathError(err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", shared.ErrFileAccess, path)
	}

	total, err := countLines(path)
	if err != nil {
		return nil, shared.ClassifyPathError(err)
	}
	e.sendProgress(progress, countLinesUpdate(total))
	logger.Debug("source measured", "lines", total)

	tx, err := e.repo.Begin(ctx)
	if err != nil {
		return nil, asPipelineError(err)
	}
	defer tx.Rollback()

	file, err := os.Open(path)
	if err != nil {
		return nil, shared.ClassifyPathError(err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = sourceDelimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	outcome := &models.ImportOutcome{TotalLines: total}
	buffer := newRecordBuffer(e.importCfg.BatchSize, tx.AddRange)
	processed := 0

	for {
		if ctx.Err() != nil {
			logger.Warn("import canceled, rolling back", "lines", processed)
			return nil, fmt.Errorf("%w: import interrupted after %d lines", shared.ErrCanceled, processed)
		}

		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		processed++
		if err != nil {
			// Reader-level malformation (stray quotes and the like) is a
			// per-row reject; anything else is an I/O failure and fatal.
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				outcome.SkippedColumns++
				continue
			}
			return nil, shared.ClassifyPathError(err)
		}

		record, reason := models.ParseRow(fields, e.importCfg.DateLayouts)
		switch reason {
		case models.RejectColumnCount:
			outcome.SkippedColumns++
		case models.RejectDate:
			outcome.InvalidDates++
		case models.RejectText:
			outcome.InvalidTexts++
		default:
			if err := buffer.Add(record); err != nil {
				return nil, err
			}
			outcome.Imported++
		}

		if processed%e.importCfg.ProgressRows == 0 {
			e.sendThrottled(progress, parseRowsUpdate(processed, total))
		}
	}

	if err := buffer.Flush(); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, asPipelineError(err)
	}

	e.sendProgress(progress, commitUpdate(outcome.Imported))
	logger.Info("import complete", "outcome", outcome.String())
	return outcome, nil
}

// Export streams the job's filtered result set into a temp artifact and
// atomically renames it over the destination. The destination is never
// touched on any failure or cancellation path.
func (e *RecordEngine) Export(ctx context.Context, progress chan<- ProgressUpdate, job models.ExportJob) error {
	if err := job.Validate(); err != nil {
		return err
	}
	logger := e.logger.With("job", job.ID, "format", job.Format.String(), "path", job.Path)

	total, err := e.repo.Count(ctx, job.Filter)
	if err != nil {
		return asPipelineError(err)
	}
	if total == 0 {
		return fmt.Errorf("%w: nothing to export", shared.ErrNoData)
	}
	e.sendProgress(progress, countRecordsUpdate(total))
	logger.Debug("export started", "records", total)

	tmp := job.Path + ".tmp"
	writer, err := formatter.NewRecordWriter(job.Format, tmp, e.exportCfg.Labels, e.exportCfg.SheetRows)
	if err != nil {
		return err
	}

	var written int64
	streamErr := e.repo.Stream(ctx, job.Filter, func(record models.Record) error {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: export interrupted after %d rows", shared.ErrCanceled, written)
		}
		if err := writer.Add(record); err != nil {
			return err
		}
		written++
		if written%int64(e.exportCfg.ProgressRows) == 0 {
			e.sendThrottled(progress, writeRowsUpdate(written, total))
		}
		return nil
	})
	if streamErr != nil {
		writer.Close()
		formatter.Discard(tmp)
		streamErr = asPipelineError(streamErr)
		logger.Warn("export aborted, temp artifact discarded", "rows", written, "error", streamErr)
		return streamErr
	}

	if err := writer.Close(); err != nil {
		formatter.Discard(tmp)
		return err
	}

	e.sendProgress(progress, writeRowsUpdate(written, total))

	if err := formatter.Publish(tmp, job.Path); err != nil {
		formatter.Discard(tmp)
		return err
	}

	e.sendProgress(progress, publishUpdate(job.Path, total))
	logger.Info("export complete", "rows", written)
	return nil
}

// countLines measures the source in one sequential pass so parsing can report
// percentage progress. A trailing line without a newline still counts.
func countLines(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	count := 0
	trailing := false
	buf := make([]byte, 256*1024)

	for {
		n, err := file.Read(buf)
		if n > 0 {
			count += bytes.Count(buf[:n], []byte{'\n'})
			trailing = buf[n-1] != '\n'
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}
	}

	if trailing {
		count++
	}
	return count, nil
}
