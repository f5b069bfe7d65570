// Package models holds the value types shared by the ingestion and export
// pipelines: [Record] (one imported entity), [ImportOutcome] (per-run
// rejection accounting), [Filter] (attribute predicate over the store) and
// [ExportJob] (a single export run description).
//
// The package owns row-level validation policy: a valid row has exactly six
// `;`-separated fields, a parseable date in field 0, and no digit characters
// in the five text fields.
package models
