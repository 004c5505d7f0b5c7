// Package tui is the interactive results view.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/curious-containers/cc-jupyter-cli/internal/alerts"
	"github.com/curious-containers/cc-jupyter-cli/internal/constants"
	"github.com/curious-containers/cc-jupyter-cli/internal/polling"
	"github.com/curious-containers/cc-jupyter-cli/internal/view"
)

const (
	minTableHeight = 3
	chromeHeight   = 9
)

// Actions are the engine operations bound to keys.
type Actions interface {
	Enter(ctx context.Context) error
	Refresh(ctx context.Context) error
	Cancel(ctx context.Context, notebookID string) error
	Download(ctx context.Context, notebookID string, saver polling.Saver) (string, error)
	Leave()
}

// AlertSource is the alert list shown above the table.
type AlertSource interface {
	Active() []alerts.Alert
	DismissAll() int
}

type actionDoneMsg struct {
	status string
	err    error
}

// Model is the bubbletea model of the results view.
type Model struct {
	ctx     context.Context
	actions Actions
	alerts  AlertSource
	saver   polling.Saver

	table   table.Model
	spinner spinner.Model
	help    help.Model

	rows        []view.ResultRow
	loading     bool
	status      string
	downloading string
	quitting    bool
}

// NewModel creates the results view. saver receives downloads.
func NewModel(ctx context.Context, actions Actions, source AlertSource, saver polling.Saver) Model {
	columns := []table.Column{
		{Title: "Notebook", Width: 28},
		{Title: "Status", Width: 12},
		{Title: "Executed", Width: 20},
		{Title: "ID", Width: 36},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	s := table.DefaultStyles()
	s.Header = view.HeaderStyle.BorderStyle(lipgloss.NormalBorder()).BorderBottom(true)
	s.Selected = s.Selected.Bold(true)
	t.SetStyles(s)

	spin := spinner.New()
	spin.Spinner = spinner.MiniDot

	return Model{
		ctx:     ctx,
		actions: actions,
		alerts:  source,
		saver:   saver,
		table:   t,
		spinner: spin,
		help:    help.New(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.run(func(ctx context.Context) (string, error) {
		return "", m.actions.Enter(ctx)
	}))
}

// run executes an engine action outside the event loop.
func (m Model) run(fn func(ctx context.Context) (string, error)) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		status, err := fn(ctx)
		return actionDoneMsg{status: status, err: err}
	}
}

func (m Model) selected() (view.ResultRow, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.rows) {
		return view.ResultRow{}, false
	}
	return m.rows[i], true
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		h := msg.Height - chromeHeight
		if h < minTableHeight {
			h = minTableHeight
		}
		m.table.SetHeight(h)
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case clearMsg:
		m.rows = nil
		m.table.SetRows(nil)
		return m, nil

	case loadingMsg:
		m.loading = bool(msg)
		return m, nil

	case renderMsg:
		m.rows = view.ResultRows(msg, nil)
		tableRows := make([]table.Row, len(m.rows))
		for i, r := range m.rows {
			tableRows[i] = table.Row{r.Filename, string(r.Status), r.ExecutedAt, r.NotebookID}
		}
		m.table.SetRows(tableRows)
		if n := len(tableRows); n > 0 && m.table.Cursor() >= n {
			m.table.SetCursor(n - 1)
		}
		return m, nil

	case alertMsg:
		return m, nil

	case downloadMsg:
		if msg.notebookID == m.downloading {
			m.status = downloadStatus(m.rowName(msg.notebookID), msg.current, msg.total)
		}
		return m, nil

	case actionDoneMsg:
		// Failures are reported through the alert list.
		m.downloading = ""
		m.status = ""
		if msg.err == nil {
			m.status = msg.status
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			m.actions.Leave()
			return m, tea.Quit

		case key.Matches(msg, keys.Refresh):
			m.status = ""
			return m, m.run(func(ctx context.Context) (string, error) {
				return "", m.actions.Refresh(ctx)
			})

		case key.Matches(msg, keys.Cancel):
			row, ok := m.selected()
			if !ok {
				return m, nil
			}
			if !row.CanCancel {
				m.status = "Only processing jobs can be cancelled."
				return m, nil
			}
			m.status = "Cancelling " + row.Filename + "..."
			id := row.NotebookID
			return m, m.run(func(ctx context.Context) (string, error) {
				return "Cancelled " + row.Filename, m.actions.Cancel(ctx, id)
			})

		case key.Matches(msg, keys.Download):
			row, ok := m.selected()
			if !ok {
				return m, nil
			}
			if !row.CanDownload {
				m.status = "Only successful jobs can be downloaded."
				return m, nil
			}
			m.status = "Downloading " + row.Filename + "..."
			m.downloading = row.NotebookID
			id, saver := row.NotebookID, m.saver
			return m, m.run(func(ctx context.Context) (string, error) {
				loc, err := m.actions.Download(ctx, id, saver)
				return "Saved " + loc, err
			})

		case key.Matches(msg, keys.Dismiss):
			m.alerts.DismissAll()
			return m, nil

		case key.Matches(msg, keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) rowName(notebookID string) string {
	for _, r := range m.rows {
		if r.NotebookID == notebookID {
			return r.Filename
		}
	}
	return notebookID
}

// downloadStatus formats download progress. total <= 0 means unknown.
func downloadStatus(name string, current, total int64) string {
	if total > 0 {
		return fmt.Sprintf("Downloading %s... %d%%", name, current*100/total)
	}
	return fmt.Sprintf("Downloading %s... %.1f KiB", name, float64(current)/1024)
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(view.TitleStyle.Render("cc-jupyter results"))
	b.WriteString("\n\n")

	if active := m.alerts.Active(); len(active) > 0 {
		if len(active) > constants.AlertsVisible {
			active = active[len(active)-constants.AlertsVisible:]
		}
		b.WriteString(view.Alerts(active))
		b.WriteString("\n")
	}

	if len(m.rows) == 0 && !m.loading {
		b.WriteString(view.MutedStyle.Render("No jobs submitted yet."))
		b.WriteString("\n")
	} else {
		b.WriteString(m.table.View())
		b.WriteString("\n")
	}

	if row, ok := m.selected(); ok && row.DebugInfo != "" {
		b.WriteString(view.LabelStyle.Render("debug: "))
		b.WriteString(row.DebugInfo)
		b.WriteString("\n")
	}

	switch {
	case m.loading:
		fmt.Fprintf(&b, "%s Loading results...\n", m.spinner.View())
	case m.status != "":
		b.WriteString(m.status)
		b.WriteString("\n")
	default:
		b.WriteString("\n")
	}

	b.WriteString(m.help.View(keys))
	return b.String()
}
