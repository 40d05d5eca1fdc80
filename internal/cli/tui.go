package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/jstackviz/jstackviz/pkg/dump"
)

// List styles
var (
	listDimStyle = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// ThreadListModel - Interactive thread browser
// =============================================================================

// threadRow is one precomputed row of the browser.
type threadRow struct {
	thread     *dump.Thread
	deadlocked bool
}

// ThreadListModel is the bubbletea model for browsing parsed threads.
type ThreadListModel struct {
	Rows   []threadRow
	Cursor int
	Height int
	Offset int
}

// NewThreadListModel creates a thread browser over the parsed report.
// Deadlocked threads are flagged so the view can highlight them.
func NewThreadListModel(threads []*dump.Thread, deadlocked map[*dump.Thread]bool) ThreadListModel {
	rows := make([]threadRow, len(threads))
	for i, t := range threads {
		rows[i] = threadRow{thread: t, deadlocked: deadlocked[t]}
	}
	return ThreadListModel{
		Rows:   rows,
		Cursor: 0,
		Height: 15,
		Offset: 0,
	}
}

func (m ThreadListModel) Init() tea.Cmd {
	return nil
}

func (m ThreadListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc", "enter":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Rows)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 6
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m ThreadListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Threads"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  q quit"))
	b.WriteString("\n\n")

	end := m.Offset + m.Height
	if end > len(m.Rows) {
		end = len(m.Rows)
	}

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		r := m.Rows[i]

		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}

		mark := ""
		if r.deadlocked {
			mark = "⚠"
		}

		rows = append(rows, []string{
			cursor,
			r.thread.Name,
			r.thread.State.String(),
			lockSummary(r.thread.Held),
			waitSummary(r.thread.Waits),
			mark,
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Thread", "State", "Holds", "Waiting on", "").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}

			actualIdx := m.Offset + row
			if actualIdx >= len(m.Rows) {
				return lipgloss.NewStyle()
			}
			r := m.Rows[actualIdx]
			isCurrent := actualIdx == m.Cursor

			base := lipgloss.NewStyle()
			if r.deadlocked {
				base = base.Foreground(colorRed)
			} else if col == 3 || col == 4 {
				base = base.Foreground(colorDim)
			}
			if isCurrent {
				return base.Bold(true)
			}
			return base
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Rows))))

	return b.String()
}

// =============================================================================
// Helpers
// =============================================================================

// lockSummary renders a thread's held locks as a short comma list.
func lockSummary(held []dump.LockID) string {
	if len(held) == 0 {
		return "—"
	}
	labels := make([]string, len(held))
	for i, l := range held {
		labels[i] = l.Label()
	}
	return strings.Join(labels, ", ")
}

// waitSummary renders the locks a thread is trying to acquire. Notify-waits
// are shown with a "wait:" prefix to keep them apart from contention.
func waitSummary(waits []dump.Wait) string {
	if len(waits) == 0 {
		return "—"
	}
	labels := make([]string, len(waits))
	for i, w := range waits {
		label := w.Lock.Label()
		if w.Kind == dump.WaitNotify {
			label = "wait: " + label
		}
		labels[i] = label
	}
	return strings.Join(labels, ", ")
}
