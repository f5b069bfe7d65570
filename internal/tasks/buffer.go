package tasks

import "github.com/avasiliev/kartoteka/internal/models"

// recordBuffer accumulates records and hands them to a flush function in
// fixed-size batches, bounding peak memory independent of input size.
type recordBuffer struct {
	records []models.Record
	size    int
	flush   func([]models.Record) error
}

func newRecordBuffer(size int, flush func([]models.Record) error) *recordBuffer {
	return &recordBuffer{
		records: make([]models.Record, 0, size),
		size:    size,
		flush:   flush,
	}
}

// Add buffers one record, flushing when the batch threshold is reached.
func (b *recordBuffer) Add(record models.Record) error {
	b.records = append(b.records, record)
	if len(b.records) >= b.size {
		return b.Flush()
	}
	return nil
}

// Flush hands any buffered records to the flush function and resets the
// buffer, keeping its capacity. Flushing an empty buffer is a no-op.
func (b *recordBuffer) Flush() error {
	if len(b.records) == 0 {
		return nil
	}
	if err := b.flush(b.records); err != nil {
		return err
	}
	b.records = b.records[:0]
	return nil
}
