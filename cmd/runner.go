package main

import (
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/avasiliev/kartoteka/internal/repositories"
	"github.com/avasiliev/kartoteka/internal/shared"
	"github.com/avasiliev/kartoteka/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config *shared.Config
	db     *sql.DB
	repo   *repositories.RecordRepository
	engine tasks.TransferEngine
	logger *log.Logger
	output io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *shared.Config
	Engine tasks.TransferEngine
	Logger *log.Logger
	Output io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config: opts.Config,
		engine: opts.Engine,
		logger: opts.Logger,
		output: opts.Output,
	}
}

// SetLogger swaps the runner's logger, used when a TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, importCommand, exportCommand, recordsCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// bootstrap loads configuration and opens the database on first use.
// A Runner constructed with an injected engine (tests) skips all of it.
func (r *Runner) bootstrap(configPath string) error {
	if r.engine != nil {
		return nil
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		loaded, err := shared.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		config = loaded
	}
	r.config = config

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return err
	}
	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return err
	}

	r.db = db
	r.repo = repositories.NewRecordRepository(db)
	r.engine = tasks.NewRecordEngine(r.repo, config, r.logger)
	return nil
}

// Close releases the database connection if bootstrap opened one.
func (r *Runner) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// drainProgress consumes engine updates on a goroutine, echoing messages to
// the output writer. The returned stop function must be called after the
// engine returns; it closes the channel and waits for the drain to finish.
func (r *Runner) drainProgress(progress chan tasks.ProgressUpdate) (stop func()) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.writePlain("\r\033[K%s", update.Message)
		}
	}()

	return func() {
		close(progress)
		<-done
		r.writePlain("\n")
	}
}
