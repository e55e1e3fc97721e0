package ui

import (
	"context"
	"strings"
	"time"

	"gemini-chat/internal/chat"
	"gemini-chat/internal/clipboard"
	"gemini-chat/internal/config"
	"gemini-chat/internal/format"
	"gemini-chat/internal/highlight"
	"gemini-chat/internal/history"
	"gemini-chat/internal/logger"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	requestTimeout = 90 * time.Second
	copyTimeout    = 3 * time.Second
)

type focusArea int

const (
	focusPrompt focusArea = iota
	focusImage
	focusConversation
	focusBookmarks
)

type Model struct {
	cfg      config.AppConfig
	session  *chat.Session
	store    *history.Store
	sink     history.Downloader
	renderer history.Renderer
	clip     clipboard.Sink

	list     list.Model
	viewport viewport.Model
	help     help.Model
	spinner  spinner.Model
	prompt   textinput.Model
	image    textinput.Model
	search   textinput.Model
	keys     keyMap

	width  int
	height int

	focus       focusArea
	mode        chat.Mode
	pending     bool
	pendingText string
	confirming  bool
	searchMode  bool
	searchQuery string
	viewing     *history.Bookmark

	rendered    string
	renderNonce int
	matches     highlight.Matches
	matchIndex  int

	status string
	err    error
}

type replyMsg struct {
	reply chat.Reply
	err   error
}
type exportMsg struct {
	notice string
	path   string
	err    error
}
type noticeMsg struct {
	notice string
	err    error
}
type renderMsg struct {
	rendered string
	nonce    int
}

type bookmarkItem struct {
	b history.Bookmark
}

func (i bookmarkItem) Title() string {
	text := format.PlainText(i.b.Content)
	first, _, _ := strings.Cut(text, "\n")
	return shorten(first, 40)
}

func (i bookmarkItem) Description() string {
	return displayTime(i.b.Timestamp)
}

func (i bookmarkItem) FilterValue() string {
	return strings.ToLower(format.PlainText(i.b.Content))
}

func NewModel(cfg config.AppConfig, session *chat.Session, sink history.Downloader, renderer history.Renderer, clip clipboard.Sink) Model {
	if strings.TrimSpace(cfg.UI.Style) == "" {
		cfg.UI.Style = config.DefaultGlamourStyle
	}

	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 30, 20)
	l.Title = "Bookmarks"
	l.SetShowFilter(false)
	l.SetFilteringEnabled(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()

	vp := viewport.New(60, 20)

	h := help.New()
	h.ShowAll = false

	sp := spinner.New()
	sp.Spinner = spinner.Points

	prompt := textinput.New()
	prompt.Placeholder = "Ask Gemini anything..."
	prompt.Prompt = "> "
	prompt.CharLimit = 0
	prompt.Focus()

	img := textinput.New()
	img.Placeholder = "Path to an image file"
	img.Prompt = "image: "
	img.CharLimit = 1024

	search := textinput.New()
	search.Placeholder = "Search conversation..."
	search.Prompt = "/ "
	search.CharLimit = 256

	m := Model{
		cfg:      cfg,
		session:  session,
		store:    session.Store(),
		sink:     sink,
		renderer: renderer,
		clip:     clip,
		list:     l,
		viewport: vp,
		help:     h,
		spinner:  sp,
		prompt:   prompt,
		image:    img,
		search:   search,
		keys:     defaultKeys(),
		focus:    focusPrompt,
	}
	m.refreshBookmarks()
	if strings.TrimSpace(session.Settings().APIKey) == "" {
		m.status = chat.NoticeMissingAPIKey
	}
	return m
}

// WithStatus returns m showing s in the status line.
func (m Model) WithStatus(s string) Model {
	m.status = s
	return m
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) submitCmd(p chat.Prompt) tea.Cmd {
	session := m.session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		reply, err := session.Submit(ctx, p)
		return replyMsg{reply: reply, err: err}
	}
}

func (m Model) exportCmd() tea.Cmd {
	store, sink, renderer := m.store, m.sink, m.renderer
	return func() tea.Msg {
		notice, err := store.Export(sink, renderer)
		if err != nil {
			logger.L.Error("export failed", "error", err)
			return exportMsg{err: err}
		}
		out := exportMsg{notice: notice}
		if notice == history.NoticeExported {
			if p, ok := sink.(interface{ LastPath() string }); ok {
				out.path = p.LastPath()
			}
		}
		return out
	}
}

func (m Model) copyReplyCmd() tea.Cmd {
	last, ok := m.store.LastReply()
	if !ok {
		return noticeCmd(chat.NoticeNothingToCopy)
	}
	return m.copyCmd(displayText(last))
}

func (m Model) copyCodeCmd() tea.Cmd {
	last, ok := m.store.LastReply()
	if !ok {
		return noticeCmd(chat.NoticeNoCodeToCopy)
	}
	blocks := format.ExtractCodeBlocks(last.Text())
	if len(blocks) == 0 {
		return noticeCmd(chat.NoticeNoCodeToCopy)
	}
	return m.copyCmd(blocks[len(blocks)-1].Code)
}

func (m Model) copyCmd(text string) tea.Cmd {
	clip := m.clip
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), copyTimeout)
		defer cancel()
		if err := clip.Copy(ctx, text); err != nil {
			logger.L.Warn("copy failed", "error", err)
			return noticeMsg{err: err}
		}
		return noticeMsg{notice: chat.NoticeCopied}
	}
}

func noticeCmd(s string) tea.Cmd {
	return func() tea.Msg { return noticeMsg{notice: s} }
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		cmds = append(cmds, m.renderCmd())

	case replyMsg:
		m.pending = false
		m.pendingText = ""
		m.err = msg.err
		if msg.err != nil {
			m.status = chat.Notice(msg.err)
		} else {
			m.status = ""
		}
		cmds = append(cmds, m.renderCmd())

	case exportMsg:
		switch {
		case msg.err != nil:
			m.err = msg.err
			m.status = "Export failed: " + msg.err.Error()
		case msg.path != "":
			m.status = msg.notice + ": " + msg.path
		default:
			m.status = msg.notice
		}

	case noticeMsg:
		if msg.err != nil {
			m.err = msg.err
			m.status = chat.NoticeCopyFailed
		} else {
			m.status = msg.notice
		}

	case renderMsg:
		if msg.nonce != m.renderNonce {
			break
		}
		m.rendered = msg.rendered
		m.applyRendered()

	case spinner.TickMsg:
		if m.pending {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.KeyMsg:
		return m.handleKey(msg)

	default:
		var cmd tea.Cmd
		switch m.focus {
		case focusPrompt:
			m.prompt, cmd = m.prompt.Update(msg)
		case focusImage:
			m.image, cmd = m.image.Update(msg)
		}
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirming {
		return m.answerClear(msg)
	}
	if m.searchMode {
		return m.updateSearch(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Tab):
		cmd := m.cycleFocus()
		return m, cmd
	case key.Matches(msg, m.keys.Mode):
		cmd := m.toggleMode()
		return m, cmd
	case key.Matches(msg, m.keys.Bookmark):
		m.bookmarkLastReply()
		cmd := m.renderCmd()
		return m, cmd
	case key.Matches(msg, m.keys.CopyReply):
		return m, m.copyReplyCmd()
	case key.Matches(msg, m.keys.CopyCode):
		return m, m.copyCodeCmd()
	case key.Matches(msg, m.keys.Export):
		return m, m.exportCmd()
	case key.Matches(msg, m.keys.Clear):
		m.confirming = true
		m.status = history.ClearQuestion + " (y/n)"
		return m, nil
	case key.Matches(msg, m.keys.Esc):
		switch {
		case m.viewing != nil:
			m.viewing = nil
			cmd := m.renderCmd()
			return m, cmd
		case m.searchQuery != "":
			m.searchQuery = ""
			m.search.SetValue("")
			m.applyRendered()
			return m, nil
		}
	}

	switch m.focus {
	case focusPrompt, focusImage:
		if key.Matches(msg, m.keys.Submit) {
			return m.submit()
		}
		var cmd tea.Cmd
		if m.focus == focusPrompt {
			m.prompt, cmd = m.prompt.Update(msg)
		} else {
			m.image, cmd = m.image.Update(msg)
		}
		return m, cmd
	case focusConversation:
		return m.updateConversation(msg)
	default:
		return m.updateBookmarks(msg)
	}
}

// submit checks the prompt locally so rejected input never shows a pending
// turn, then hands it to the session in the background.
func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.pending {
		return m, nil
	}
	p := chat.Prompt{Mode: m.mode, Text: m.prompt.Value(), ImagePath: m.image.Value()}
	if strings.TrimSpace(m.session.Settings().APIKey) == "" {
		m.status = chat.NoticeMissingAPIKey
		return m, nil
	}
	if err := p.Validate(); err != nil {
		m.status = chat.Notice(err)
		return m, nil
	}

	m.pending = true
	m.pendingText = strings.TrimSpace(p.Text)
	m.viewing = nil
	m.status = ""
	m.err = nil
	m.prompt.SetValue("")
	m.image.SetValue("")
	render := m.renderCmd()
	return m, tea.Batch(render, m.submitCmd(p), m.spinner.Tick)
}

func (m Model) answerClear(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var answer bool
	switch strings.ToLower(msg.String()) {
	case "y":
		answer = true
	case "n", "esc":
	default:
		return m, nil
	}
	m.confirming = false

	cleared, err := m.store.Clear(func(string) bool { return answer })
	switch {
	case err != nil:
		m.err = err
		m.status = "Clear failed: " + err.Error()
	case cleared:
		m.status = history.NoticeCleared
	default:
		m.status = ""
	}
	if !cleared {
		return m, nil
	}
	m.viewing = nil
	cmd := m.renderCmd()
	return m, cmd
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.searchMode = false
		m.searchQuery = ""
		m.search.SetValue("")
		m.search.Blur()
		m.applyRendered()
		return m, nil
	case "enter":
		m.searchMode = false
		m.search.Blur()
		m.searchQuery = strings.TrimSpace(m.search.Value())
		m.applyRendered()
		return m, nil
	}

	before := strings.TrimSpace(m.search.Value())
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if after := strings.TrimSpace(m.search.Value()); after != before {
		m.searchQuery = after
		m.applyRendered()
	}
	return m, cmd
}

func (m Model) updateConversation(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.search.SetValue(m.searchQuery)
		m.search.CursorEnd()
		cmd := m.search.Focus()
		return m, cmd
	case key.Matches(msg, m.keys.NextMatch):
		m.jumpToMatch(1)
		return m, nil
	case key.Matches(msg, m.keys.PrevMatch):
		m.jumpToMatch(-1)
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) updateBookmarks(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	item, selected := m.list.SelectedItem().(bookmarkItem)
	switch {
	case key.Matches(msg, m.keys.Open):
		if !selected {
			return m, nil
		}
		b := item.b
		m.viewing = &b
		cmd := m.renderCmd()
		return m, cmd
	case key.Matches(msg, m.keys.Remove):
		if !selected {
			return m, nil
		}
		if _, err := m.store.ToggleBookmark(item.b.Content); err != nil {
			m.err = err
			m.status = "Bookmark not saved: " + err.Error()
		} else {
			m.status = history.NoticeUnbookmarked
		}
		m.refreshBookmarks()
		if m.viewing != nil && m.viewing.Content == item.b.Content {
			m.viewing = nil
		}
		cmd := m.renderCmd()
		return m, cmd
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) bookmarkLastReply() {
	last, ok := m.store.LastReply()
	if !ok {
		m.status = chat.NoticeNothingToStore
		return
	}
	added, err := m.store.ToggleBookmark(last.Content)
	switch {
	case err != nil:
		m.err = err
		m.status = "Bookmark not saved: " + err.Error()
	case added:
		m.status = history.NoticeBookmarked
	default:
		m.status = history.NoticeUnbookmarked
	}
	m.refreshBookmarks()
}

// refreshBookmarks lists the newest bookmark first.
func (m *Model) refreshBookmarks() {
	marks := m.store.Bookmarks()
	items := make([]list.Item, 0, len(marks))
	for i := len(marks) - 1; i >= 0; i-- {
		items = append(items, bookmarkItem{b: marks[i]})
	}
	m.list.SetItems(items)
}

func (m *Model) cycleFocus() tea.Cmd {
	next := m.focus + 1
	if next == focusImage && m.mode != chat.ModeImage {
		next++
	}
	if next > focusBookmarks {
		next = focusPrompt
	}
	return m.setFocus(next)
}

func (m *Model) setFocus(f focusArea) tea.Cmd {
	m.focus = f
	m.prompt.Blur()
	m.image.Blur()
	switch f {
	case focusPrompt:
		return m.prompt.Focus()
	case focusImage:
		return m.image.Focus()
	}
	return nil
}

func (m *Model) toggleMode() tea.Cmd {
	var cmd tea.Cmd
	if m.mode == chat.ModeText {
		m.mode = chat.ModeImage
		m.prompt.Placeholder = "Ask about the image..."
		cmd = m.setFocus(focusImage)
	} else {
		m.mode = chat.ModeText
		m.prompt.Placeholder = "Ask Gemini anything..."
		m.image.SetValue("")
		if m.focus == focusImage {
			cmd = m.setFocus(focusPrompt)
		}
	}
	m.status = "Mode: " + m.mode.String()
	m.resize()
	return cmd
}

func (m *Model) jumpToMatch(delta int) {
	n := m.matches.Count()
	if n == 0 {
		if m.searchQuery != "" {
			m.status = "No search matches in conversation"
		}
		return
	}
	m.matchIndex = ((m.matchIndex+delta)%n + n) % n
	line, _ := m.matches.Line(m.matchIndex)
	m.viewport.SetYOffset(m.clampViewportOffset(line))
}

func (m *Model) clampViewportOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	maxOffset := max(m.viewport.TotalLineCount()-m.viewport.Height, 0)
	if offset > maxOffset {
		return maxOffset
	}
	return offset
}
