// Package history keeps the conversation log and the bookmark list, writing
// both through to a key-value store on every mutation.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"gemini-chat/internal/kv"
	"gemini-chat/internal/logger"
)

const (
	HistoryKey   = "conversation-history"
	BookmarksKey = "bookmarked-responses"
	MaxMessages  = 100

	ClearQuestion  = "Are you sure you want to clear the conversation history?"
	WelcomeMessage = "Conversation history cleared. Hello! I'm your AI assistant powered by Gemini. How can I help you today?"

	NoticeNothingToExport = "No conversation to export"
	NoticeExported        = "Conversation exported successfully"
	NoticeCleared         = "Conversation history cleared"
	NoticeBookmarked      = "Response bookmarked!"
	NoticeUnbookmarked    = "Response removed from bookmarks"
)

var (
	ErrCorruptHistory   = errors.New("stored conversation history is corrupt")
	ErrCorruptBookmarks = errors.New("stored bookmarks are corrupt")
)

// Confirmer is asked before destructive operations.
type Confirmer func(question string) bool

type Downloader interface {
	Download(filename, content, mimeType string) error
}

type Artifact struct {
	Filename string
	Content  string
	MimeType string
}

type Renderer interface {
	Render(messages []Message, now time.Time) Artifact
}

// Store is safe for use from the UI loop and background commands at once.
type Store struct {
	mu        sync.Mutex
	kv        kv.Store
	now       func() time.Time
	capacity  int
	messages  []Message
	bookmarks []Bookmark
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithCapacity(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.capacity = n
		}
	}
}

func New(store kv.Store, opts ...Option) *Store {
	s := &Store{kv: store, now: time.Now, capacity: MaxMessages}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory state with what is persisted. Corrupt blobs are
// removed and reported; the store is left usable and empty for that part.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error

	msgs, err := loadList[Message](s.kv, HistoryKey, ErrCorruptHistory)
	if err != nil {
		errs = append(errs, err)
	}
	if len(msgs) > s.capacity {
		msgs = msgs[len(msgs)-s.capacity:]
	}
	s.messages = msgs

	marks, err := loadList[Bookmark](s.kv, BookmarksKey, ErrCorruptBookmarks)
	if err != nil {
		errs = append(errs, err)
	}
	s.bookmarks = marks

	return errors.Join(errs...)
}

func loadList[T any](store kv.Store, key string, corrupt error) ([]T, error) {
	raw, ok, err := store.Get(key)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var out []T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		logger.L.Warn("discarding corrupt stored data", "key", key, "error", err)
		if rmErr := store.Remove(key); rmErr != nil {
			return nil, errors.Join(fmt.Errorf("%w: %v", corrupt, err), fmt.Errorf("remove %s: %w", key, rmErr))
		}
		return nil, fmt.Errorf("%w: %v", corrupt, err)
	}
	return out, nil
}

// Append adds msg at the end, drops the oldest entries beyond capacity and
// persists the whole log. A failed write leaves the log as it was.
func (s *Store) Append(msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(msg)
}

func (s *Store) appendLocked(msg Message) error {
	prev := s.messages
	s.messages = append(s.messages, msg)
	if len(s.messages) > s.capacity {
		s.messages = append([]Message(nil), s.messages[len(s.messages)-s.capacity:]...)
	}
	if err := s.saveMessages(); err != nil {
		s.messages = prev
		return err
	}
	return nil
}

// Record stamps a new message with the store clock and appends it.
func (s *Store) Record(role Role, content, raw string) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordLocked(role, content, raw)
}

func (s *Store) recordLocked(role Role, content, raw string) (Message, error) {
	msg := Message{Role: role, Content: content, Timestamp: stamp(s.now())}
	if raw != content {
		msg.Raw = raw
	}
	return msg, s.appendLocked(msg)
}

// Export hands a rendered transcript to d. An empty log produces no artifact
// and only a notice.
func (s *Store) Export(d Downloader, r Renderer) (string, error) {
	msgs := s.Messages()
	if len(msgs) == 0 {
		return NoticeNothingToExport, nil
	}
	a := r.Render(msgs, s.now())
	if err := d.Download(a.Filename, a.Content, a.MimeType); err != nil {
		return "", fmt.Errorf("download %s: %w", a.Filename, err)
	}
	return NoticeExported, nil
}

// Clear empties the log when confirm agrees, then seeds the welcome reply.
func (s *Store) Clear(confirm Confirmer) (bool, error) {
	if confirm == nil || !confirm(ClearQuestion) {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Remove(HistoryKey); err != nil {
		return false, fmt.Errorf("remove history: %w", err)
	}
	s.messages = nil
	if _, err := s.recordLocked(RoleAssistant, WelcomeMessage, WelcomeMessage); err != nil {
		return true, err
	}
	return true, nil
}

// ToggleBookmark adds content when absent, otherwise removes the first entry
// with exactly that content. It reports whether content is now bookmarked.
func (s *Store) ToggleBookmark(content string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.bookmarks
	added := true
	if idx := s.bookmarkIndex(content); idx >= 0 {
		s.bookmarks = append(s.bookmarks[:idx:idx], s.bookmarks[idx+1:]...)
		added = false
	} else {
		s.bookmarks = append(s.bookmarks, Bookmark{Content: content, Timestamp: stamp(s.now())})
	}
	if err := s.save(BookmarksKey, s.bookmarks); err != nil {
		s.bookmarks = prev
		return !added, err
	}
	return added, nil
}

func (s *Store) IsBookmarked(content string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookmarkIndex(content) >= 0
}

func (s *Store) bookmarkIndex(content string) int {
	for i, b := range s.bookmarks {
		if b.Content == content {
			return i
		}
	}
	return -1
}

func (s *Store) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

func (s *Store) Bookmarks() []Bookmark {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Bookmark(nil), s.bookmarks...)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// LastReply returns the most recent assistant message.
func (s *Store) LastReply() (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Role == RoleAssistant {
			return s.messages[i], true
		}
	}
	return Message{}, false
}

func (s *Store) State() State {
	return State{Messages: s.Messages(), Bookmarks: s.Bookmarks()}
}

func (s *Store) saveMessages() error {
	return s.save(HistoryKey, s.messages)
}

func (s *Store) save(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if string(data) == "null" {
		data = []byte("[]")
	}
	if err := s.kv.Set(key, string(data)); err != nil {
		return fmt.Errorf("persist %s: %w", key, err)
	}
	return nil
}
