package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gemini-chat/internal/config"

	"github.com/sashabaranov/go-openai"
)

var ErrEmptyResponse = errors.New("model returned no text")

// NewClient creates an OpenAI-protocol client aimed at Gemini's compatible
// endpoint.
func NewClient(cfg config.LLMConfig) *openai.Client {
	c := openai.DefaultConfig(cfg.APIKey)
	c.BaseURL = cfg.BaseURL
	return openai.NewClientWithConfig(c)
}

type Image struct {
	Data     []byte
	MimeType string
}

// DataURI encodes the image inline; the mime type is sniffed when unset.
func (img Image) DataURI() string {
	mt := img.MimeType
	if mt == "" {
		mt = http.DetectContentType(img.Data)
	}
	return "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

type Gemini struct {
	client Client
	model  string
}

func NewGemini(client Client, model string) *Gemini {
	return &Gemini{client: client, model: model}
}

func (g *Gemini) Model() string { return g.model }

// Generate sends a single user turn, optionally with an inline image, and
// returns the first candidate's text.
func (g *Gemini) Generate(ctx context.Context, text string, img *Image) (string, error) {
	msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if img == nil {
		msg.Content = text
	} else {
		msg.MultiContent = []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: text},
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    img.DataURI(),
					Detail: openai.ImageURLDetailAuto,
				},
			},
		}
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    g.model,
		Messages: []openai.ChatCompletionMessage{msg},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("gemini api (status %d): %s: %w", apiErr.HTTPStatusCode, apiErr.Message, err)
		}
		return "", fmt.Errorf("gemini request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	out := resp.Choices[0].Message.Content
	if strings.TrimSpace(out) == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}
