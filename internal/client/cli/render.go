package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"go-todo-web/internal/models"
)

type styles struct {
	title   lipgloss.Style
	done    lipgloss.Style
	pending lipgloss.Style
	muted   lipgloss.Style
	err     lipgloss.Style
	ok      lipgloss.Style
}

// newStyles binds the palette to w so colour is dropped when w is not a
// terminal.
func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title:   r.NewStyle().Bold(true),
		done:    r.NewStyle().Foreground(lipgloss.Color("2")),
		pending: r.NewStyle().Foreground(lipgloss.Color("3")),
		muted:   r.NewStyle().Faint(true),
		err:     r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		ok:      r.NewStyle().Foreground(lipgloss.Color("2")),
	}
}

func (s styles) mark(t models.Task) string {
	if t.Completed {
		return s.done.Render("[x]")
	}
	return s.pending.Render("[ ]")
}

func relTime(t, now time.Time) string {
	return humanize.RelTime(t, now, "ago", "from now")
}

// taskLine renders one row of the task list.
func (s styles) taskLine(t models.Task, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%4d. %s %s", t.ID, s.mark(t), t.Title)
	if t.DueDate != nil {
		b.WriteString(s.muted.Render("  due " + t.DueDate.String()))
	}
	b.WriteString(s.muted.Render("  updated " + relTime(t.UpdatedAt, now)))
	return b.String()
}

// taskDetail renders the detail screen of one task.
func (s styles) taskDetail(t models.Task, now time.Time) string {
	status := s.pending.Render("pending")
	if t.Completed {
		status = s.done.Render("completed")
	}
	desc := "-"
	if t.Description != nil && *t.Description != "" {
		desc = *t.Description
	}
	due := "-"
	if t.DueDate != nil {
		due = t.DueDate.String()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", s.title.Render(fmt.Sprintf("#%d %s", t.ID, t.Title)))
	fmt.Fprintf(&b, "Status:      %s\n", status)
	fmt.Fprintf(&b, "Description: %s\n", desc)
	fmt.Fprintf(&b, "Due:         %s\n", due)
	fmt.Fprintf(&b, "Created:     %s (%s)\n", t.CreatedAt.Local().Format("2006-01-02 15:04"), relTime(t.CreatedAt, now))
	fmt.Fprintf(&b, "Updated:     %s (%s)", t.UpdatedAt.Local().Format("2006-01-02 15:04"), relTime(t.UpdatedAt, now))
	return b.String()
}
