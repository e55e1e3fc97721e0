package history

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn. Content is what the conversation view
// shows: the formatted fragment for replies, the prompt text for user turns.
// Raw keeps the unformatted reply when it differs from Content.
type Message struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
	Raw       string `json:"raw,omitempty"`
}

// Text returns the unformatted form of the message.
func (m Message) Text() string {
	if m.Raw != "" {
		return m.Raw
	}
	return m.Content
}

type Bookmark struct {
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type State struct {
	Messages  []Message
	Bookmarks []Bookmark
}

func stamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
