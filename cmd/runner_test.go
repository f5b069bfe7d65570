package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/avasiliev/kartoteka/internal/models"
	"github.com/avasiliev/kartoteka/internal/shared"
	"github.com/avasiliev/kartoteka/internal/tasks"
	ktesting "github.com/avasiliev/kartoteka/internal/testing"
)

// fakeEngine is a test double for [tasks.TransferEngine]
type fakeEngine struct {
	importOutcome *models.ImportOutcome
	importErr     error
	exportErr     error
	gotPath       string
	gotJob        models.ExportJob
}

func (f *fakeEngine) Import(ctx context.Context, progress chan<- tasks.ProgressUpdate, path string) (*models.ImportOutcome, error) {
	f.gotPath = path
	if progress != nil {
		progress <- tasks.ProgressUpdate{Message: "working"}
	}
	return f.importOutcome, f.importErr
}

func (f *fakeEngine) Export(ctx context.Context, progress chan<- tasks.ProgressUpdate, job models.ExportJob) error {
	f.gotJob = job
	return f.exportErr
}

func newTestApp(engine tasks.TransferEngine, output io.Writer) *cli.Command {
	runner := NewRunner(RunnerOpts{
		Engine: engine,
		Output: output,
		Logger: shared.NewLogger(io.Discard),
	})
	return &cli.Command{Name: "kartoteka", Commands: runner.register()}
}

func TestWritePlain(t *testing.T) {
	t.Run("FailedWriteReturnsError", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &ktesting.FWriter{}, Logger: shared.NewLogger(io.Discard)})
		if err := runner.writePlain("hello"); err == nil {
			t.Error("expected an error from a failing writer")
		}
		if err := runner.writePlainln("hello"); err == nil {
			t.Error("expected an error from a failing writer")
		}
	})
}

func TestDrainProgress(t *testing.T) {
	t.Run("EchoesMessages", func(t *testing.T) {
		var out bytes.Buffer
		runner := NewRunner(RunnerOpts{Output: &out, Logger: shared.NewLogger(io.Discard)})

		progress := make(chan tasks.ProgressUpdate, 4)
		stop := runner.drainProgress(progress)
		progress <- tasks.ProgressUpdate{Message: "first"}
		progress <- tasks.ProgressUpdate{Message: "second"}
		stop()

		if !strings.Contains(out.String(), "first") || !strings.Contains(out.String(), "second") {
			t.Errorf("messages not echoed: %q", out.String())
		}
	})

	t.Run("SurvivesWriteFailures", func(t *testing.T) {
		var out bytes.Buffer
		limited := ktesting.NewLimitedWriter(1, 0, &out)
		runner := NewRunner(RunnerOpts{Output: &limited, Logger: shared.NewLogger(io.Discard)})

		progress := make(chan tasks.ProgressUpdate, 4)
		stop := runner.drainProgress(progress)
		for i := 0; i < 3; i++ {
			progress <- tasks.ProgressUpdate{Message: "tick"}
		}
		stop()
	})
}

func TestImportCommand(t *testing.T) {
	t.Run("ReportsOutcome", func(t *testing.T) {
		engine := &fakeEngine{importOutcome: &models.ImportOutcome{TotalLines: 5, Imported: 4, InvalidDates: 1}}
		var out bytes.Buffer
		app := newTestApp(engine, &out)

		if err := app.Run(context.Background(), []string{"kartoteka", "import", "people.csv"}); err != nil {
			t.Fatalf("command failed: %v", err)
		}

		if engine.gotPath != "people.csv" {
			t.Errorf("expected path people.csv, got %q", engine.gotPath)
		}
		if !strings.Contains(out.String(), "Import finished") {
			t.Errorf("missing summary in output: %q", out.String())
		}
		if !strings.Contains(out.String(), "unparsable dates") {
			t.Errorf("missing date warning in output: %q", out.String())
		}
	})

	t.Run("MissingArgument", func(t *testing.T) {
		app := newTestApp(&fakeEngine{}, io.Discard)
		err := app.Run(context.Background(), []string{"kartoteka", "import"})
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("CanceledIsNotAFailure", func(t *testing.T) {
		engine := &fakeEngine{importErr: fmt.Errorf("%w: stopped", shared.ErrCanceled)}
		var out bytes.Buffer
		app := newTestApp(engine, &out)

		if err := app.Run(context.Background(), []string{"kartoteka", "import", "people.csv"}); err != nil {
			t.Fatalf("cancellation should not surface as a command error: %v", err)
		}
		if !strings.Contains(out.String(), "canceled") {
			t.Errorf("missing canceled notice in output: %q", out.String())
		}
	})

	t.Run("FailurePropagates", func(t *testing.T) {
		engine := &fakeEngine{importErr: fmt.Errorf("%w: gone", shared.ErrFileAccess)}
		app := newTestApp(engine, io.Discard)

		err := app.Run(context.Background(), []string{"kartoteka", "import", "people.csv"})
		if !errors.Is(err, shared.ErrFileAccess) {
			t.Errorf("expected ErrFileAccess, got %v", err)
		}
	})
}

func TestExportCommand(t *testing.T) {
	t.Run("BuildsJobFromFlags", func(t *testing.T) {
		engine := &fakeEngine{}
		var out bytes.Buffer
		app := newTestApp(engine, &out)

		args := []string{"kartoteka", "export", "--format", "xml", "--from", "2023-01-01", "--country", "France", "out.xml"}
		if err := app.Run(context.Background(), args); err != nil {
			t.Fatalf("command failed: %v", err)
		}

		job := engine.gotJob
		if job.Format != models.FormatDocument {
			t.Errorf("expected document format, got %v", job.Format)
		}
		if job.Path != "out.xml" {
			t.Errorf("expected destination out.xml, got %q", job.Path)
		}
		if job.Filter.Country != "France" || job.Filter.DateFrom == nil {
			t.Errorf("filter flags not mapped: %+v", job.Filter)
		}
		if job.ID == "" {
			t.Error("job should carry a run identifier")
		}
		if !strings.Contains(out.String(), "Export finished") {
			t.Errorf("missing summary in output: %q", out.String())
		}
	})

	t.Run("BadDateFlag", func(t *testing.T) {
		app := newTestApp(&fakeEngine{}, io.Discard)
		err := app.Run(context.Background(), []string{"kartoteka", "export", "--from", "01.01.2023", "out.xlsx"})
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("InvertedRangeRejected", func(t *testing.T) {
		engine := &fakeEngine{}
		app := newTestApp(engine, io.Discard)

		args := []string{"kartoteka", "export", "--from", "2023-06-01", "--to", "2023-01-01", "out.xlsx"}
		err := app.Run(context.Background(), args)
		if !errors.Is(err, shared.ErrInvalidFilter) {
			t.Errorf("expected ErrInvalidFilter, got %v", err)
		}
		if engine.gotJob.ID != "" {
			t.Error("engine must not be invoked for an invalid filter")
		}
	})

	t.Run("NoDataPropagates", func(t *testing.T) {
		engine := &fakeEngine{exportErr: fmt.Errorf("%w: nothing to export", shared.ErrNoData)}
		app := newTestApp(engine, io.Discard)

		err := app.Run(context.Background(), []string{"kartoteka", "export", "out.xlsx"})
		if !errors.Is(err, shared.ErrNoData) {
			t.Errorf("expected ErrNoData, got %v", err)
		}
	})
}
