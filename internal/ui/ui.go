package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/avasiliev/kartoteka/internal/tasks"
)

// Model renders one pipeline run: spinner + progress bar while updates
// arrive, then a terminal success/failure line.
type Model struct {
	title   string
	updates <-chan tasks.ProgressUpdate
	done    <-chan RunResult
	cancel  context.CancelFunc

	spin     spinner.Model
	bar      progress.Model
	last     tasks.ProgressUpdate
	result   *RunResult
	quitting bool
}

// NewModel creates a progress view for a run whose updates and completion
// arrive on the given channels. cancel is invoked when the user quits early.
func NewModel(title string, updates <-chan tasks.ProgressUpdate, done <-chan RunResult, cancel context.CancelFunc) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return Model{
		title:   title,
		updates: updates,
		done:    done,
		cancel:  cancel,
		spin:    s,
		bar:     progress.New(progress.WithDefaultGradient()),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, waitForProgress(m.updates), waitForDone(m.done))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.result == nil {
				m.cancel()
				m.quitting = true
				return m, nil // wait for doneMsg so cleanup finishes first
			}
			return m, tea.Quit
		}
		return m, nil

	case progressMsg:
		m.last = tasks.ProgressUpdate(msg)
		return m, waitForProgress(m.updates)

	case doneMsg:
		result := RunResult(msg)
		m.result = &result
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd
	}

	return m, nil
}

func (m Model) View() string {
	view := styles.title.Render(m.title) + "\n"

	if m.result != nil {
		if m.result.Err != nil {
			return view + styles.err.Render(fmt.Sprintf("✗ %v", m.result.Err)) + "\n"
		}
		return view + styles.ok.Render("✓ "+m.result.Summary) + "\n"
	}

	ratio := 0.0
	if m.last.Total > 0 {
		ratio = float64(m.last.Step) / float64(m.last.Total)
	}

	view += fmt.Sprintf("%s %s\n%s\n", m.spin.View(), m.last.Message, m.bar.ViewAs(ratio))
	if m.quitting {
		view += styles.err.Render("canceling...") + "\n"
	} else {
		view += styles.help.Render("press q to cancel") + "\n"
	}
	return view
}

// Result returns the run's outcome once the program has finished.
func (m Model) Result() *RunResult {
	return m.result
}
