// Package repositories implements the persistence layer over SQLite.
//
// [RecordRepository] exposes the two contracts the pipelines rely on: a write
// transaction ([RecordRepository.Begin]) whose batches commit together or not
// at all, and filtered, id-ordered reads ([RecordRepository.Count],
// [RecordRepository.Stream], [RecordRepository.List]) that never materialize
// the full result set.
package repositories
