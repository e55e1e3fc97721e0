package ui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"gemini-chat/internal/chat"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

func (m *Model) resize() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	left, right := m.paneWidths()
	bodyHeight := m.bodyHeight()

	m.list.SetSize(left-4, bodyHeight-2)
	m.viewport.Width = right - 4
	m.viewport.Height = bodyHeight - 2

	inputWidth := max(m.width-8, 10)
	m.prompt.Width = inputWidth - len(m.prompt.Prompt)
	m.image.Width = inputWidth - len(m.image.Prompt)
}

// bodyHeight leaves room for the status line, the bordered input box and
// the footer.
func (m Model) bodyHeight() int {
	inputLines := 1
	if m.mode == chat.ModeImage {
		inputLines = 2
	}
	return max(m.height-1-(inputLines+2)-1, 8)
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Starting..."
	}

	left, right := m.paneWidths()
	bodyHeight := m.bodyHeight()
	leftPane := panelStyle(m.focus == focusBookmarks).Width(left - 2).Height(bodyHeight - 2).Render(m.list.View())
	rightPane := panelStyle(m.focus == focusConversation).Width(right - 2).Height(bodyHeight - 2).Render(m.viewport.View())
	body := lipgloss.JoinHorizontal(lipgloss.Top, leftPane, rightPane)

	return lipgloss.JoinVertical(lipgloss.Left,
		m.statusLine(),
		body,
		m.inputView(),
		m.footer(),
	)
}

func (m Model) inputView() string {
	lines := make([]string, 0, 2)
	if m.mode == chat.ModeImage {
		lines = append(lines, m.image.View())
	}
	lines = append(lines, m.prompt.View())
	active := m.focus == focusPrompt || m.focus == focusImage
	return panelStyle(active).Width(m.width - 2).Render(strings.Join(lines, "\n"))
}

func (m Model) footer() string {
	text := m.prompt.Value()
	counter := mutedStyle.Render(chat.CounterLabel(text))
	if utf8.RuneCountInString(text) > chat.TokenWarnChars {
		counter = warnStyle.Render(chat.CounterLabel(text) + " long prompt")
	}

	line := counter + "  " + m.help.View(m.keys)
	if m.searchMode {
		line = m.search.View() + "  " + line
	}
	return ansi.Truncate(line, m.width, "…")
}

func (m Model) statusLine() string {
	parts := []string{
		"model=" + m.session.Settings().Model,
		"mode=" + m.mode.String(),
		fmt.Sprintf("messages=%d", m.store.Len()),
	}
	if m.pending {
		parts = append(parts, m.spinner.View()+" waiting for Gemini")
	}
	if m.viewing != nil {
		parts = append(parts, "[bookmark]")
	}
	if m.searchQuery != "" || m.searchMode {
		switch n := m.matches.Count(); {
		case strings.TrimSpace(m.searchQuery) == "":
			parts = append(parts, "[search]")
		case n > 0:
			parts = append(parts, fmt.Sprintf("[match %d/%d]", m.matchIndex+1, n))
		default:
			parts = append(parts, "[match 0]")
		}
	}
	if s := strings.TrimSpace(m.status); s != "" {
		parts = append(parts, s)
	}
	line := strings.Join(parts, "  ")
	return statusStyle.Render(ansi.Truncate(line, max(m.width-2, 10), "…"))
}

func (m Model) paneWidths() (int, int) {
	left := m.width / 4
	if left < 24 {
		left = 24
	}
	if left > m.width-40 {
		left = m.width - 40
	}
	if left < 16 {
		left = 16
	}
	right := max(m.width-left, 20)
	return left, right
}

func shorten(s string, n int) string {
	return ansi.Truncate(strings.TrimSpace(s), n, "...")
}

var (
	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("24")).
			Padding(0, 1)
	searchMatchStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("16")).
				Background(lipgloss.Color("220"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true)
)

func panelStyle(active bool) lipgloss.Style {
	color := lipgloss.Color("240")
	if active {
		color = lipgloss.Color("39")
	}
	return lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), true).
		BorderForeground(color).
		Padding(0, 1)
}
