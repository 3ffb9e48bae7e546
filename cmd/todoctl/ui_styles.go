package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"gin-gonic-todos/internal/store"
	"gin-gonic-todos/internal/todo"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	mutedStyle   = lipgloss.NewStyle().Faint(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	doneStyle    = lipgloss.NewStyle().Faint(true).Strikethrough(true)

	boxChecked   = "☑"
	boxUnchecked = "☐"
)

func ok(w io.Writer, msg string) {
	fmt.Fprintln(w, successStyle.Render("✔ "+msg))
}

func fail(w io.Writer, msg string) {
	fmt.Fprintln(w, errorStyle.Render("✖ "+msg))
}

// failStore prints the store's message followed by the cause.
func failStore(w io.Writer, s *store.Store, err error) {
	msg := s.Err()
	if msg == "" {
		msg = "request failed"
	}
	fail(w, msg+": "+err.Error())
}

func panel(w io.Writer, lines []string) {
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(0, 1)
	fmt.Fprintln(w, border.Render(strings.Join(lines, "\n")))
}

func renderList(w io.Writer, todos []todo.Todo) {
	if len(todos) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("nothing to do"))
		return
	}

	done := 0
	lines := make([]string, 0, len(todos)+1)
	for i, t := range todos {
		box, title := boxUnchecked, pendingStyle.Render(t.Title)
		if t.Completed {
			done++
			box, title = boxChecked, doneStyle.Render(t.Title)
		}
		lines = append(lines, fmt.Sprintf("%2d %s %s %s", i+1, box, title, mutedStyle.Render(shortID(t.ID))))
	}
	lines = append(lines, mutedStyle.Render(fmt.Sprintf("%d/%d done", done, len(todos))))
	panel(w, lines)
}

func renderTodo(w io.Writer, t todo.Todo) {
	status := pendingStyle.Render("pending")
	if t.Completed {
		status = successStyle.Render("done")
	}
	panel(w, []string{
		titleStyle.Render(t.Title),
		"id:      " + t.ID,
		"status:  " + status,
		"created: " + t.CreatedAt.Local().Format(time.RFC3339),
		"updated: " + t.UpdatedAt.Local().Format(time.RFC3339),
	})
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
