package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/avasiliev/kartoteka/internal/models"
)

// insertChunkSize keeps a multi-row INSERT under SQLite's default host
// parameter limit (999 variables; 6 bound columns per row).
const insertChunkSize = 140

const recordColumns = "id, date, first_name, last_name, sur_name, city, country"

// RecordRepository provides transactional batch writes and filtered, ordered,
// streamable reads over the records table.
type RecordRepository struct {
	db *sql.DB
}

// NewRecordRepository creates a new RecordRepository with the given database connection
func NewRecordRepository(db *sql.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// RecordTx is one write transaction. All rows added through it become visible
// together on Commit, or not at all on Rollback.
type RecordTx struct {
	tx *sql.Tx
}

// Begin opens a write transaction for one ingestion run.
func (r *RecordRepository) Begin(ctx context.Context) (*RecordTx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &RecordTx{tx: tx}, nil
}

// AddRange inserts a batch of records within the transaction, preserving
// slice order. IDs are assigned by the store and are monotonically increasing
// in insert order.
func (t *RecordTx) AddRange(records []models.Record) error {
	for start := 0; start < len(records); start += insertChunkSize {
		end := min(start+insertChunkSize, len(records))
		if err := t.insertChunk(records[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (t *RecordTx) insertChunk(records []models.Record) error {
	if len(records) == 0 {
		return nil
	}

	var query strings.Builder
	query.WriteString("INSERT INTO records (date, first_name, last_name, sur_name, city, country) VALUES ")

	args := make([]any, 0, len(records)*6)
	for i, record := range records {
		if i > 0 {
			query.WriteString(", ")
		}
		query.WriteString("(?, ?, ?, ?, ?, ?)")
		args = append(args,
			record.DateString(),
			record.FirstName,
			record.LastName,
			record.SurName,
			record.City,
			record.Country,
		)
	}

	if _, err := t.tx.Exec(query.String(), args...); err != nil {
		return fmt.Errorf("failed to insert record batch: %w", err)
	}
	return nil
}

// Commit makes the run's rows durable.
func (t *RecordTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback discards every row added during the run. Safe to call after Commit.
func (t *RecordTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return fmt.Errorf("failed to roll back transaction: %w", err)
	}
	return nil
}

// buildWhere translates a Filter into a WHERE clause and its arguments.
func buildWhere(filter models.Filter) (string, []any) {
	var clauses []string
	var args []any

	if filter.DateFrom != nil {
		clauses = append(clauses, "date >= ?")
		args = append(args, filter.DateFrom.Format(models.DateLayout))
	}
	if filter.DateTo != nil {
		clauses = append(clauses, "date <= ?")
		args = append(args, filter.DateTo.Format(models.DateLayout))
	}
	if filter.Name != "" {
		clauses = append(clauses, "(first_name LIKE ? OR last_name LIKE ? OR sur_name LIKE ?)")
		pattern := "%" + filter.Name + "%"
		args = append(args, pattern, pattern, pattern)
	}
	if filter.City != "" {
		clauses = append(clauses, "city = ?")
		args = append(args, filter.City)
	}
	if filter.Country != "" {
		clauses = append(clauses, "country = ?")
		args = append(args, filter.Country)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// Count returns the number of records matching the filter.
func (r *RecordRepository) Count(ctx context.Context, filter models.Filter) (int64, error) {
	where, args := buildWhere(filter)

	var count int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records"+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

// Stream reads the filtered result set in ascending id order, invoking fn once
// per record. The result set is never materialized; an error from fn aborts
// the scan and is returned unchanged.
func (r *RecordRepository) Stream(ctx context.Context, filter models.Filter, fn func(models.Record) error) error {
	where, args := buildWhere(filter)

	rows, err := r.db.QueryContext(ctx, "SELECT "+recordColumns+" FROM records"+where+" ORDER BY id ASC", args...)
	if err != nil {
		return fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return err
		}
		if err := fn(record); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate records: %w", err)
	}
	return nil
}

// List returns one page of the filtered result set in ascending id order.
func (r *RecordRepository) List(ctx context.Context, filter models.Filter, limit, offset int) ([]models.Record, error) {
	where, args := buildWhere(filter)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, "SELECT "+recordColumns+" FROM records"+where+" ORDER BY id ASC LIMIT ? OFFSET ?", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []models.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return records, nil
}

// DeleteAll removes every record and returns the number deleted.
func (r *RecordRepository) DeleteAll(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM records")
	if err != nil {
		return 0, fmt.Errorf("failed to delete records: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return deleted, nil
}

func scanRecord(rows *sql.Rows) (models.Record, error) {
	var record models.Record
	var date string

	if err := rows.Scan(&record.ID, &date, &record.FirstName, &record.LastName, &record.SurName, &record.City, &record.Country); err != nil {
		return models.Record{}, fmt.Errorf("failed to scan record: %w", err)
	}

	parsed, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return models.Record{}, fmt.Errorf("failed to parse stored date %q: %w", date, err)
	}
	record.Date = parsed

	return record, nil
}
