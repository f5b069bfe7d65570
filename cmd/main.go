package main

import (
	"context"
	"errors"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/avasiliev/kartoteka/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)

	runner := NewRunner(RunnerOpts{Logger: logger})
	defer runner.Close()

	app := &cli.Command{
		Name:     "kartoteka",
		Usage:    "Import delimited record files into SQLite and export filtered sets to XLSX/XML",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		switch {
		case errors.Is(err, shared.ErrNoData):
			logger.Warn("nothing to export", "error", err)
			os.Exit(1)
		case errors.Is(err, shared.ErrCanceled):
			logger.Warn("canceled", "error", err)
			os.Exit(1)
		default:
			logger.Fatalf("application error: %v", err)
		}
	}
}
