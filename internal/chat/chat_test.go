package chat

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gemini-chat/internal/config"
	"gemini-chat/internal/history"
	"gemini-chat/internal/kv"
	"gemini-chat/internal/llm"

	"github.com/stretchr/testify/require"
)

type fakeGen struct {
	texts []string
	imgs  []*llm.Image
	out   string
	err   error
}

func (f *fakeGen) Generate(ctx context.Context, text string, img *llm.Image) (string, error) {
	f.texts = append(f.texts, text)
	f.imgs = append(f.imgs, img)
	return f.out, f.err
}

func newSession(t *testing.T, gen Generator, opts ...SessionOption) (*Session, *history.Store) {
	t.Helper()
	store := history.New(kv.NewMemory())
	require.NoError(t, store.Load())
	return NewSession(gen, store, Settings{APIKey: "k", Model: "gemini-1.5-flash"}, opts...), store
}

func TestSubmitRecordsBothTurns(t *testing.T) {
	gen := &fakeGen{out: "Use **bold** here"}
	s, store := newSession(t, gen)

	reply, err := s.Submit(context.Background(), Prompt{Text: "  hello  "})
	require.NoError(t, err)
	require.Equal(t, []string{"hello"}, gen.texts)
	require.Nil(t, gen.imgs[0])

	msgs := store.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, history.RoleUser, msgs[0].Role)
	require.Equal(t, "hello", msgs[0].Content)
	require.Empty(t, msgs[0].Raw)

	require.Equal(t, history.RoleAssistant, msgs[1].Role)
	require.Equal(t, "<p>Use <strong>bold</strong> here</p>", msgs[1].Content)
	require.Equal(t, "Use **bold** here", msgs[1].Raw)
	require.Equal(t, msgs[1], reply.Assistant)
}

func TestSubmitRejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name string
		p    Prompt
		want error
	}{
		{"blank text", Prompt{Text: "   "}, ErrEmptyPrompt},
		{"image without text", Prompt{Mode: ModeImage, ImagePath: "cat.png"}, ErrEmptyImageAsk},
		{"image without file", Prompt{Mode: ModeImage, Text: "what is it"}, ErrMissingImage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gen := &fakeGen{out: "x"}
			s, store := newSession(t, gen)
			_, err := s.Submit(context.Background(), tc.p)
			require.ErrorIs(t, err, tc.want)
			require.Empty(t, gen.texts)
			require.Zero(t, store.Len())
		})
	}
}

func TestSubmitWithoutAPIKey(t *testing.T) {
	gen := &fakeGen{out: "x"}
	store := history.New(kv.NewMemory())
	s := NewSession(gen, store, Settings{})

	_, err := s.Submit(context.Background(), Prompt{Text: "hi"})
	require.ErrorIs(t, err, ErrMissingAPIKey)
	require.Equal(t, NoticeMissingAPIKey, Notice(err))
	require.Empty(t, gen.texts)
	require.Zero(t, store.Len())
}

func TestSubmitFailureKeepsOnlyUserTurn(t *testing.T) {
	cause := errors.New("status 500")
	gen := &fakeGen{err: cause}
	s, store := newSession(t, gen)

	reply, err := s.Submit(context.Background(), Prompt{Text: "hi"})
	require.ErrorIs(t, err, ErrRequestFailed)
	require.ErrorIs(t, err, cause)
	require.Equal(t, NoticeRequestFailed, Notice(err))
	require.Equal(t, "hi", reply.User.Content)
	require.Len(t, gen.texts, 1)

	msgs := store.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, history.RoleUser, msgs[0].Role)
}

func TestSubmitImagePrompt(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n")
	gen := &fakeGen{out: "a cat"}
	s, _ := newSession(t, gen, WithReadFile(func(path string) ([]byte, error) {
		require.Equal(t, "cat.png", path)
		return png, nil
	}))

	_, err := s.Submit(context.Background(), Prompt{Mode: ModeImage, Text: "what is it", ImagePath: " cat.png "})
	require.NoError(t, err)
	require.NotNil(t, gen.imgs[0])
	require.Equal(t, png, gen.imgs[0].Data)
}

func TestSubmitUnreadableImage(t *testing.T) {
	gen := &fakeGen{out: "x"}
	s, store := newSession(t, gen, WithReadFile(func(string) ([]byte, error) {
		return nil, os.ErrNotExist
	}))

	_, err := s.Submit(context.Background(), Prompt{Mode: ModeImage, Text: "what", ImagePath: "gone.png"})
	require.ErrorIs(t, err, ErrMissingImage)
	require.Equal(t, NoticeMissingImage, Notice(err))
	require.Empty(t, gen.texts)
	require.Zero(t, store.Len())
}

func TestCounterLabel(t *testing.T) {
	require.Equal(t, "0 characters (~ 0 tokens)", CounterLabel(""))
	require.Equal(t, "5 characters (~ 1 tokens)", CounterLabel("hello"))
	require.Equal(t, "6 characters (~ 2 tokens)", CounterLabel("héllo!"))
	require.Equal(t, 2000, EstimateTokens(strings.Repeat("a", TokenWarnChars)))
}

func TestResolveSettings(t *testing.T) {
	store := kv.NewMemory()

	s, added, err := ResolveSettings(store, Settings{APIKey: "cfg-key"})
	require.NoError(t, err)
	require.True(t, added)
	require.Equal(t, "cfg-key", s.APIKey)

	saved, ok, err := store.Get(APIKeyKey)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "cfg-key", saved)

	s, added, err = ResolveSettings(store, Settings{Model: "gemini-1.5-pro"})
	require.NoError(t, err)
	require.False(t, added)
	require.Equal(t, Settings{APIKey: "cfg-key", Model: "gemini-1.5-pro"}, s)

	s, _, err = ResolveSettings(store, Settings{})
	require.NoError(t, err)
	require.Equal(t, "gemini-1.5-pro", s.Model)
}

func TestResolveSettingsWithoutKey(t *testing.T) {
	s, added, err := ResolveSettings(kv.NewMemory(), Settings{})
	require.NoError(t, err)
	require.False(t, added)
	require.Empty(t, s.APIKey)
}

func TestSavedModelSurvivesStartupWithoutConfiguredModel(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("GEMINI_CHAT_HOME", filepath.Join(home, "data"))
	t.Setenv("GEMINI_CHAT_LLM_MODEL", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("CONFIG_PATH", "")

	store := kv.NewMemory()
	require.NoError(t, store.Set(ModelKey, "gemini-1.5-pro"))

	cfg, err := config.Parse(nil)
	require.NoError(t, err)

	s, _, err := ResolveSettings(store, Settings{APIKey: cfg.LLM.APIKey, Model: cfg.LLM.Model})
	require.NoError(t, err)
	require.Equal(t, "gemini-1.5-pro", s.Model)

	saved, _, err := store.Get(ModelKey)
	require.NoError(t, err)
	require.Equal(t, "gemini-1.5-pro", saved)

	cfg, err = config.Parse([]string{"--model", "gemini-2.0-flash"})
	require.NoError(t, err)
	s, _, err = ResolveSettings(store, Settings{Model: cfg.LLM.Model})
	require.NoError(t, err)
	require.Equal(t, "gemini-2.0-flash", s.Model)
}
