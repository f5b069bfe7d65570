// Package ui implements a terminal progress view using bubbletea's Elm architecture.
//
// The [Model] renders one long-running pipeline operation (import or export):
// a spinner and progress bar fed by the engine's ProgressUpdate channel, then
// a final success or failure line. The run itself executes in the caller's
// goroutine; the view only observes its channels and can cancel it via the
// run's context (q / ctrl+c).
package ui
