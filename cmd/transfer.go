package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/avasiliev/kartoteka/internal/models"
	"github.com/avasiliev/kartoteka/internal/shared"
	"github.com/avasiliev/kartoteka/internal/tasks"
)

// Import runs the ingestion pipeline against the file argument.
//
// SIGINT cancels the run cooperatively; the engine rolls the transaction back
// and nothing from the run is committed.
func (r *Runner) Import(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("file")
	if path == "" {
		return fmt.Errorf("%w: source file path", shared.ErrMissingArgument)
	}
	if err := r.bootstrap(cmd.String("config")); err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	progress := make(chan tasks.ProgressUpdate, 16)
	wait := r.drainProgress(progress)

	outcome, err := r.engine.Import(runCtx, progress, path)
	wait()

	if err != nil {
		if errors.Is(err, shared.ErrCanceled) {
			r.writePlainln("Import canceled; no records from this run were committed.")
			return nil
		}
		return err
	}

	r.writePlainln("Import finished: %s", outcome)
	if outcome.HasInvalidDates() {
		r.writePlain("Some rows had unparsable dates and were skipped.\n")
	}
	if outcome.HasInvalidTexts() {
		r.writePlain("Some rows had digits in text fields and were skipped.\n")
	}
	return nil
}

// Export runs the export pipeline toward the destination argument.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	dest := cmd.StringArg("destination")
	if dest == "" {
		return fmt.Errorf("%w: export destination path", shared.ErrMissingArgument)
	}
	if err := r.bootstrap(cmd.String("config")); err != nil {
		return err
	}

	job, err := jobFromFlags(cmd, dest)
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	progress := make(chan tasks.ProgressUpdate, 16)
	wait := r.drainProgress(progress)

	err = r.engine.Export(runCtx, progress, job)
	wait()

	if err != nil {
		if errors.Is(err, shared.ErrCanceled) {
			r.writePlainln("Export canceled; destination file untouched.")
			return nil
		}
		return err
	}

	r.writePlainln("Export finished: %s", dest)
	return nil
}

// jobFromFlags builds a validated ExportJob from the command's filter and
// format flags.
func jobFromFlags(cmd *cli.Command, dest string) (models.ExportJob, error) {
	format, err := models.ParseFormat(cmd.String("format"))
	if err != nil {
		return models.ExportJob{}, err
	}

	filter, err := filterFromFlags(cmd)
	if err != nil {
		return models.ExportJob{}, err
	}

	job := models.NewExportJob(filter, format, dest)
	return job, job.Validate()
}

// filterFromFlags translates filter flags into a models.Filter.
func filterFromFlags(cmd *cli.Command) (models.Filter, error) {
	filter := models.Filter{
		Name:    cmd.String("name"),
		City:    cmd.String("city"),
		Country: cmd.String("country"),
	}

	if raw := cmd.String("from"); raw != "" {
		from, err := time.Parse(models.DateLayout, raw)
		if err != nil {
			return models.Filter{}, fmt.Errorf("%w: --from %q is not yyyy-MM-dd", shared.ErrInvalidArgument, raw)
		}
		filter.DateFrom = &from
	}
	if raw := cmd.String("to"); raw != "" {
		to, err := time.Parse(models.DateLayout, raw)
		if err != nil {
			return models.Filter{}, fmt.Errorf("%w: --to %q is not yyyy-MM-dd", shared.ErrInvalidArgument, raw)
		}
		filter.DateTo = &to
	}

	return filter, filter.Validate()
}
