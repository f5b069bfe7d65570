package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/avasiliev/kartoteka/internal/shared"
	"github.com/avasiliev/kartoteka/internal/tasks"
	"github.com/avasiliev/kartoteka/internal/ui"
)

// TUIImport runs the ingestion pipeline behind an interactive progress view.
func (r *Runner) TUIImport(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("file")
	if path == "" {
		return fmt.Errorf("%w: source file path", shared.ErrMissingArgument)
	}
	if err := r.bootstrap(cmd.String("config")); err != nil {
		return err
	}

	return r.runTUI(ctx, "Importing "+path, func(runCtx context.Context, progress chan<- tasks.ProgressUpdate) (string, error) {
		outcome, err := r.engine.Import(runCtx, progress, path)
		if err != nil {
			return "", err
		}
		return outcome.String(), nil
	})
}

// TUIExport runs the export pipeline behind an interactive progress view.
func (r *Runner) TUIExport(ctx context.Context, cmd *cli.Command) error {
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

	return r.runTUI(ctx, "Exporting to "+dest, func(runCtx context.Context, progress chan<- tasks.ProgressUpdate) (string, error) {
		if err := r.engine.Export(runCtx, progress, job); err != nil {
			return "", err
		}
		return "written to " + dest, nil
	})
}

// runTUI executes one pipeline run on a goroutine and renders its progress
// channel with a bubbletea program until the run finishes or is canceled.
func (r *Runner) runTUI(ctx context.Context, title string, run func(context.Context, chan<- tasks.ProgressUpdate) (string, error)) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/kartoteka-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)
	if r.repo != nil {
		r.engine = tasks.NewRecordEngine(r.repo, r.config, fileLogger)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	progress := make(chan tasks.ProgressUpdate, 64)
	done := make(chan ui.RunResult, 1)

	go func() {
		summary, err := run(runCtx, progress)
		close(progress)
		done <- ui.RunResult{Summary: summary, Err: err}
	}()

	model := ui.NewModel(title, progress, done, cancel)
	p := tea.NewProgram(model)

	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("error running TUI: %v", err)
	}

	if m, ok := final.(ui.Model); ok {
		if result := m.Result(); result != nil && result.Err != nil {
			return result.Err
		}
	}
	return nil
}
