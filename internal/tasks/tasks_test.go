package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/avasiliev/kartoteka/internal/models"
	"github.com/avasiliev/kartoteka/internal/repositories"
	"github.com/avasiliev/kartoteka/internal/shared"
	ktesting "github.com/avasiliev/kartoteka/internal/testing"
)

// newTestEngine creates an engine over an in-memory store with small batch
// and progress intervals so tests exercise flush and reporting paths.
func newTestEngine(t *testing.T) (*RecordEngine, *repositories.RecordRepository, *sql.DB) {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	shared.ConfigureDatabase(db, 1, 1)

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	config := shared.DefaultConfig()
	config.Import.BatchSize = 5
	config.Import.ProgressRows = 3
	config.Export.ProgressRows = 3
	config.Export.SheetRows = 1000

	repo := repositories.NewRecordRepository(db)
	return NewRecordEngine(repo, config, shared.NewLogger(nil)), repo, db
}

// steppedContext reports cancellation after a fixed number of Err polls,
// pinning the cancellation point to an exact row offset.
type steppedContext struct {
	context.Context
	mu    sync.Mutex
	polls int
	limit int
}

func cancelAfter(polls int) *steppedContext {
	return &steppedContext{Context: context.Background(), limit: polls}
}

func (c *steppedContext) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.polls++
	if c.polls > c.limit {
		return context.Canceled
	}
	return nil
}

func validLines(n int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("2023-01-%02d;Name;Sur;Pat;City;Country", 1+i%28)
	}
	return lines
}

func TestImport(t *testing.T) {
	t.Run("ValidFile", func(t *testing.T) {
		engine, repo, _ := newTestEngine(t)
		path := ktesting.WriteFixture(t, "valid.csv", validLines(12)...)

		outcome, err := engine.Import(context.Background(), nil, path)
		if err != nil {
			t.Fatalf("import failed: %v", err)
		}

		if outcome.Imported != 12 || outcome.Rejected() != 0 {
			t.Errorf("unexpected outcome: %+v", outcome)
		}
		if outcome.TotalLines != 12 {
			t.Errorf("expected 12 total lines, got %d", outcome.TotalLines)
		}

		count, _ := repo.Count(context.Background(), models.Filter{})
		if count != 12 {
			t.Errorf("expected 12 stored records, got %d", count)
		}
	})

	t.Run("MalformedRowsAreCountedNotFatal", func(t *testing.T) {
		engine, repo, _ := newTestEngine(t)
		path := ktesting.WriteFixture(t, "mixed.csv",
			"2023-01-01;Alice;Sur;Pat;Paris;France",
			"too;few;fields",
			"not-a-date;Bob;Sur;Pat;Lyon;France",
			"2023-01-01;J0hn;Doe;X;Paris;France",
			"2023-01-02;Carol;Sur;Pat;Berlin;Germany",
		)

		outcome, err := engine.Import(context.Background(), nil, path)
		if err != nil {
			t.Fatalf("import failed: %v", err)
		}

		if outcome.Imported != 2 {
			t.Errorf("expected 2 imported, got %d", outcome.Imported)
		}
		if outcome.SkippedColumns != 1 {
			t.Errorf("expected 1 column-count reject, got %d", outcome.SkippedColumns)
		}
		if !outcome.HasInvalidDates() || outcome.InvalidDates != 1 {
			t.Errorf("expected 1 date reject, got %d", outcome.InvalidDates)
		}
		if !outcome.HasInvalidTexts() || outcome.InvalidTexts != 1 {
			t.Errorf("expected 1 text reject, got %d", outcome.InvalidTexts)
		}
		if outcome.Imported+outcome.Rejected() > outcome.TotalLines {
			t.Error("accounted rows exceed total lines")
		}

		// The well-formed rows around the rejects still committed.
		var names []string
		repo.Stream(context.Background(), models.Filter{}, func(r models.Record) error {
			names = append(names, r.FirstName)
			return nil
		})
		if len(names) != 2 || names[0] != "Alice" || names[1] != "Carol" {
			t.Errorf("expected [Alice Carol], got %v", names)
		}
	})

	t.Run("MissingFile", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)

		_, err := engine.Import(context.Background(), nil, "/nonexistent/input.csv")
		if !errors.Is(err, shared.ErrFileAccess) {
			t.Errorf("expected ErrFileAccess, got %v", err)
		}
	})

	t.Run("EmptyFileCommitsEmptyRun", func(t *testing.T) {
		engine, repo, _ := newTestEngine(t)
		path := ktesting.WriteFixture(t, "empty.csv")

		outcome, err := engine.Import(context.Background(), nil, path)
		if err != nil {
			t.Fatalf("empty import should succeed: %v", err)
		}
		if outcome.Imported != 0 || outcome.Rejected() != 0 {
			t.Errorf("expected all-zero outcome, got %+v", outcome)
		}

		count, _ := repo.Count(context.Background(), models.Filter{})
		if count != 0 {
			t.Errorf("expected empty store, got %d", count)
		}
	})

	t.Run("CancellationRollsBackEverything", func(t *testing.T) {
		engine, repo, _ := newTestEngine(t)
		// 20 valid rows with batch size 5: by row 13 two batches have already
		// been flushed to the transaction.
		path := ktesting.WriteFixture(t, "cancel.csv", validLines(20)...)

		_, err := engine.Import(cancelAfter(13), nil, path)
		if !errors.Is(err, shared.ErrCanceled) {
			t.Fatalf("expected ErrCanceled, got %v", err)
		}

		count, _ := repo.Count(context.Background(), models.Filter{})
		if count != 0 {
			t.Errorf("cancellation must leave the store unchanged, found %d records", count)
		}
	})

	t.Run("PreCanceledContext", func(t *testing.T) {
		engine, repo, _ := newTestEngine(t)
		path := ktesting.WriteFixture(t, "precancel.csv", validLines(3)...)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := engine.Import(ctx, nil, path)
		if !errors.Is(err, shared.ErrCanceled) {
			t.Fatalf("expected ErrCanceled, got %v", err)
		}

		count, _ := repo.Count(context.Background(), models.Filter{})
		if count != 0 {
			t.Errorf("expected empty store, got %d", count)
		}
	})

	t.Run("TwoRunsYieldDisjointIDRanges", func(t *testing.T) {
		engine, repo, _ := newTestEngine(t)
		path := ktesting.WriteFixture(t, "rerun.csv", validLines(6)...)

		for range 2 {
			if _, err := engine.Import(context.Background(), nil, path); err != nil {
				t.Fatalf("import failed: %v", err)
			}
		}

		var ids []int64
		repo.Stream(context.Background(), models.Filter{}, func(r models.Record) error {
			ids = append(ids, r.ID)
			return nil
		})

		if len(ids) != 12 {
			t.Fatalf("expected 12 records, got %d", len(ids))
		}
		for i := 1; i < len(ids); i++ {
			if ids[i] <= ids[i-1] {
				t.Fatalf("ids overlap or reorder across runs: %v", ids)
			}
		}
	})

	t.Run("ProgressReachesTerminalUpdate", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)
		path := ktesting.WriteFixture(t, "progress.csv", validLines(10)...)

		progress := make(chan ProgressUpdate, 64)
		if _, err := engine.Import(context.Background(), progress, path); err != nil {
			t.Fatalf("import failed: %v", err)
		}
		close(progress)

		var last ProgressUpdate
		seen := 0
		for update := range progress {
			last = update
			seen++
		}
		if seen == 0 {
			t.Fatal("expected at least one progress update")
		}
		if !last.Terminal() || last.Phase != Commit {
			t.Errorf("expected final update to be the commit, got %+v", last)
		}
		if last.Step != 100 {
			t.Errorf("expected 100%% on completion, got %d", last.Step)
		}
	})
}

func TestCountLines(t *testing.T) {
	t.Run("TrailingNewline", func(t *testing.T) {
		path := ktesting.WriteFixture(t, "three.txt", "a", "b", "c")
		n, err := countLines(path)
		if err != nil || n != 3 {
			t.Errorf("expected 3 lines, got %d (%v)", n, err)
		}
	})

	t.Run("NoTrailingNewline", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "flat.txt")
		if err := os.WriteFile(path, []byte("a\nb\nc"), 0644); err != nil {
			t.Fatal(err)
		}
		n, err := countLines(path)
		if err != nil || n != 3 {
			t.Errorf("expected 3 lines, got %d (%v)", n, err)
		}
	})
}
