package chat

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"gemini-chat/internal/llm"
)

type Mode int

const (
	ModeText Mode = iota
	ModeImage
)

func (m Mode) String() string {
	if m == ModeImage {
		return "image"
	}
	return "text"
}

var (
	ErrEmptyPrompt   = errors.New("empty prompt")
	ErrEmptyImageAsk = errors.New("empty image prompt")
	ErrMissingImage  = errors.New("missing image")
)

type Prompt struct {
	Mode      Mode
	Text      string
	ImagePath string
}

// Validate rejects input that must never reach the API.
func (p Prompt) Validate() error {
	text := strings.TrimSpace(p.Text)
	if p.Mode == ModeImage {
		if text == "" {
			return ErrEmptyImageAsk
		}
		if strings.TrimSpace(p.ImagePath) == "" {
			return ErrMissingImage
		}
		return nil
	}
	if text == "" {
		return ErrEmptyPrompt
	}
	return nil
}

func (p Prompt) loadImage(readFile func(string) ([]byte, error)) (*llm.Image, error) {
	if p.Mode != ModeImage {
		return nil, nil
	}
	if readFile == nil {
		readFile = os.ReadFile
	}
	data, err := readFile(strings.TrimSpace(p.ImagePath))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingImage, err)
	}
	return &llm.Image{Data: data}, nil
}

const TokenWarnChars = 8000

// EstimateTokens uses the rough four-characters-per-token rule for English.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 2) / 4
}

func CounterLabel(text string) string {
	return fmt.Sprintf("%d characters (~ %d tokens)", utf8.RuneCountInString(text), EstimateTokens(text))
}
