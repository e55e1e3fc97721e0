// Package chat runs one prompt/reply exchange: validation, the model call,
// formatting and recording both turns in history.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gemini-chat/internal/format"
	"gemini-chat/internal/history"
	"gemini-chat/internal/llm"
	"gemini-chat/internal/logger"

	"github.com/google/uuid"
)

var (
	ErrMissingAPIKey = errors.New("missing api key")
	ErrRequestFailed = errors.New("request failed")
)

const (
	NoticeMissingAPIKey  = "Please add your Gemini API key in the settings to use this feature."
	NoticeRequestFailed  = "Sorry, there was an error processing your request. Please try again later."
	NoticeEmptyPrompt    = "Please enter a prompt"
	NoticeEmptyImageAsk  = "Please enter a prompt for the image"
	NoticeMissingImage   = "Please upload an image"
	NoticeAPIKeyAdded    = "Your Gemini API key has been added to the settings. You can start using the assistant right away!"
	NoticeCopied         = "Copied to clipboard!"
	NoticeCopyFailed     = "Failed to copy text"
	NoticeNothingToCopy  = "No response to copy"
	NoticeNoCodeToCopy   = "No code block in the last response"
	NoticeNothingToStore = "No response to bookmark"
)

// Notice maps a Submit error to the single message shown to the user.
func Notice(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingAPIKey):
		return NoticeMissingAPIKey
	case errors.Is(err, ErrEmptyPrompt):
		return NoticeEmptyPrompt
	case errors.Is(err, ErrEmptyImageAsk):
		return NoticeEmptyImageAsk
	case errors.Is(err, ErrMissingImage):
		return NoticeMissingImage
	default:
		return NoticeRequestFailed
	}
}

type Generator interface {
	Generate(ctx context.Context, text string, img *llm.Image) (string, error)
}

type Reply struct {
	User      history.Message
	Assistant history.Message
}

type Session struct {
	gen      Generator
	store    *history.Store
	settings Settings
	readFile func(string) ([]byte, error)
}

type SessionOption func(*Session)

// WithReadFile replaces os.ReadFile for image prompts.
func WithReadFile(fn func(string) ([]byte, error)) SessionOption {
	return func(s *Session) { s.readFile = fn }
}

func NewSession(gen Generator, store *history.Store, settings Settings, opts ...SessionOption) *Session {
	s := &Session{gen: gen, store: store, settings: settings}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) Store() *history.Store { return s.store }

func (s *Session) Settings() Settings { return s.settings }

// Submit records the prompt, asks the model and records the formatted reply.
// Rejected input changes nothing. A failed request leaves only the user turn
// in history and is not retried.
func (s *Session) Submit(ctx context.Context, p Prompt) (Reply, error) {
	if strings.TrimSpace(s.settings.APIKey) == "" {
		return Reply{}, ErrMissingAPIKey
	}
	if err := p.Validate(); err != nil {
		return Reply{}, err
	}
	img, err := p.loadImage(s.readFile)
	if err != nil {
		return Reply{}, err
	}

	requestID := uuid.NewString()
	log := logger.L.With("request_id", requestID, "mode", p.Mode.String())

	text := strings.TrimSpace(p.Text)
	var out Reply
	out.User, err = s.store.Record(history.RoleUser, text, text)
	if err != nil {
		log.Warn("user turn not persisted", "error", err)
	}

	log.Info("prompt submitted", "chars", len(text), "model", s.settings.Model)
	raw, err := s.gen.Generate(ctx, text, img)
	if err != nil {
		log.Error("generate failed", "error", err)
		return out, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}

	out.Assistant, err = s.store.Record(history.RoleAssistant, format.Format(raw), raw)
	if err != nil {
		log.Warn("reply not persisted", "error", err)
	}
	log.Info("reply recorded", "chars", len(raw))
	return out, nil
}
