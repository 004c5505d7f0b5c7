package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/curious-containers/cc-jupyter-cli/internal/alerts"
	"github.com/curious-containers/cc-jupyter-cli/internal/models"
)

// TimeFormat is used for execution times.
const TimeFormat = "2006-01-02 15:04:05"

// ResultRow is the display form of one result entry.
type ResultRow struct {
	NotebookID  string
	Filename    string
	Status      models.ProcessStatus
	ExecutedAt  string
	DebugInfo   string
	CanDownload bool
	CanCancel   bool
}

// ResultRows projects results in server order. Download is offered only for
// successful jobs, cancel only for processing ones.
func ResultRows(results []models.ResultEntry, loc *time.Location) []ResultRow {
	if loc == nil {
		loc = time.Local
	}
	rows := make([]ResultRow, len(results))
	for i, r := range results {
		rows[i] = ResultRow{
			NotebookID:  r.NotebookID,
			Filename:    r.NotebookFilename,
			Status:      r.ProcessStatus,
			ExecutedAt:  r.ExecutedAt().In(loc).Format(TimeFormat),
			DebugInfo:   r.DebugInfo,
			CanDownload: r.ProcessStatus == models.StatusSuccess,
			CanCancel:   r.ProcessStatus == models.StatusProcessing,
		}
	}
	return rows
}

// Actions lists the actions available for a row.
func (r ResultRow) Actions() string {
	switch {
	case r.CanDownload:
		return "download"
	case r.CanCancel:
		return "cancel"
	default:
		return ""
	}
}

// Results renders rows as a table.
func Results(rows []ResultRow) string {
	if len(rows) == 0 {
		return MutedStyle.Render("No jobs submitted yet.") + "\n"
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(LabelStyle).
		Headers("NOTEBOOK", "STATUS", "EXECUTED", "ID", "ACTIONS").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return HeaderStyle
			}
			if col == 1 && row >= 0 && row < len(rows) {
				return StatusStyle(rows[row].Status).Padding(0, 1)
			}
			return CellStyle
		})
	for _, r := range rows {
		t.Row(r.Filename, string(r.Status), r.ExecutedAt, r.NotebookID, r.Actions())
	}

	var b strings.Builder
	b.WriteString(t.Render())
	b.WriteString("\n")
	for _, r := range rows {
		if r.DebugInfo != "" {
			fmt.Fprintf(&b, "%s %s\n", StatusStyle(r.Status).Render(r.Filename+":"), r.DebugInfo)
		}
	}
	return b.String()
}

// Alerts renders active alerts, newest last.
func Alerts(list []alerts.Alert) string {
	var b strings.Builder
	for _, a := range list {
		if a.Dismissed {
			continue
		}
		label := AlertStyle(a.Level).Render(fmt.Sprintf("[%s]", strings.ToUpper(string(a.Level))))
		fmt.Fprintf(&b, "%s %s\n", label, a.Message)
	}
	return b.String()
}
