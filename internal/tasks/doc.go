// Package tasks implements the two long-running pipelines: batch ingestion of
// delimited source files into the record store, and streaming export of
// filtered result sets to workbook or document artifacts.
//
// The core abstraction is [TransferEngine], implemented by [RecordEngine].
// Both operations stream row by row under bounded memory, poll their context
// for cooperative cancellation at row granularity, and emit [ProgressUpdate]
// values over a channel with non-blocking sends so reporting can never stall
// the pipeline. An import either commits every valid row of the run or, on
// cancellation or failure, none of them. An export writes only to a temporary
// artifact until a final atomic rename publishes it.
package tasks
