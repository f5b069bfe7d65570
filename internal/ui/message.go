package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/avasiliev/kartoteka/internal/tasks"
)

// RunResult is what the pipeline goroutine reports when it finishes.
type RunResult struct {
	Summary string // one-line outcome description for display
	Err     error  // nil on success
}

// progressMsg carries one engine update into the Elm loop.
type progressMsg tasks.ProgressUpdate

// doneMsg signals the pipeline goroutine returned.
type doneMsg RunResult

// waitForProgress re-arms the subscription to the engine's update channel.
func waitForProgress(updates <-chan tasks.ProgressUpdate) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-updates
		if !ok {
			return nil
		}
		return progressMsg(update)
	}
}

// waitForDone blocks on the run's completion channel.
func waitForDone(done <-chan RunResult) tea.Cmd {
	return func() tea.Msg {
		return doneMsg(<-done)
	}
}
