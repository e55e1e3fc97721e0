package ui

import (
	"strings"
	"time"

	"gemini-chat/internal/format"
	"gemini-chat/internal/highlight"
	"gemini-chat/internal/history"
	"gemini-chat/internal/logger"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
)

const (
	greeting       = "Hello! I'm your AI assistant powered by Gemini. How can I help you today?"
	maxRenderChars = 500_000
)

// renderCmd snapshots the conversation now and renders it off the event loop.
// Only the newest render is applied.
func (m *Model) renderCmd() tea.Cmd {
	m.renderNonce++
	nonce := m.renderNonce
	md := m.markdown()
	style := m.cfg.UI.Style
	wrap := max(m.viewport.Width-2, 20)
	return func() tea.Msg {
		return renderMsg{rendered: renderMarkdown(md, style, wrap), nonce: nonce}
	}
}

func (m *Model) markdown() string {
	if m.viewing != nil {
		return "## Bookmark\n\n_saved " + displayTime(m.viewing.Timestamp) + "_\n\n" + format.PlainText(m.viewing.Content) + "\n"
	}
	return conversationMarkdown(m.store.Messages(), m.store.IsBookmarked, m.pendingText, m.pending)
}

func conversationMarkdown(msgs []history.Message, bookmarked func(string) bool, pendingText string, pending bool) string {
	if len(msgs) == 0 && !pending {
		return "_" + greeting + "_\n"
	}

	var b strings.Builder
	for _, msg := range msgs {
		if msg.Role == history.RoleUser {
			b.WriteString("### You\n\n")
		} else {
			b.WriteString("### Gemini")
			if bookmarked != nil && bookmarked(msg.Content) {
				b.WriteString(" ★")
			}
			b.WriteString("\n\n")
		}
		b.WriteString(displayText(msg))
		b.WriteString("\n\n")
	}
	if pending {
		b.WriteString("### You\n\n")
		b.WriteString(pendingText)
		b.WriteString("\n\n_Thinking..._\n")
	}
	return b.String()
}

func renderMarkdown(md, style string, wrap int) string {
	if len(md) > maxRenderChars {
		return md
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		logger.L.Warn("markdown renderer unavailable", "style", style, "error", err)
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		logger.L.Warn("markdown render failed", "error", err)
		return md
	}
	return out
}

func (m *Model) applyRendered() {
	content := m.rendered
	if query := strings.TrimSpace(m.searchQuery); query != "" {
		m.matches = highlight.Mark(m.rendered, query, func(s string) string {
			return searchMatchStyle.Render(s)
		})
		content = m.matches.Text
	} else {
		m.matches = highlight.Matches{}
	}
	m.matchIndex = 0

	m.viewport.SetContent(content)
	switch {
	case m.matches.Count() > 0:
		m.jumpToMatch(0)
	case m.viewing != nil:
		m.viewport.GotoTop()
	default:
		m.viewport.GotoBottom()
	}
}

// displayText is the markdown shown for msg. Replies saved without their raw
// text fall back to the plain form of the stored fragment.
func displayText(msg history.Message) string {
	if msg.Role == history.RoleAssistant && msg.Raw == "" {
		return format.PlainText(msg.Content)
	}
	return msg.Text()
}

func displayTime(ts string) string {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("2006-01-02 15:04")
}
