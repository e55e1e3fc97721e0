package export

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gemini-chat/internal/format"
	"gemini-chat/internal/history"
)

const transcriptTitle = "Gemini AI Conversation"

// DirSink saves downloads as files in a directory.
type DirSink struct {
	dir      string
	lastPath string
}

func NewDirSink(overrideDir string) (*DirSink, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve cwd: %w", err)
	}
	dir := strings.TrimSpace(overrideDir)
	switch {
	case dir == "":
		dir = filepath.Join(cwd, "exports")
	case !filepath.IsAbs(dir):
		dir = filepath.Join(cwd, dir)
	}
	return &DirSink{dir: dir}, nil
}

func (d *DirSink) Dir() string { return d.dir }

// LastPath is the file written by the most recent Download.
func (d *DirSink) LastPath() string { return d.lastPath }

func (d *DirSink) Download(filename, content, mimeType string) error {
	name := safeFileName(filename)
	if filepath.Ext(name) == "" {
		if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
			name += exts[0]
		}
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	path, err := uniquePath(filepath.Join(d.dir, name))
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	d.lastPath = path
	return nil
}

// uniquePath appends -1, -2, ... before the extension until the name is free.
func uniquePath(path string) (string, error) {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	candidate := path
	for n := 1; ; n++ {
		_, err := os.Stat(candidate)
		if errors.Is(err, os.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", candidate, err)
		}
		candidate = base + "-" + strconv.Itoa(n) + ext
	}
}

func FileName(now time.Time, ext string) string {
	return "gemini-conversation-" + now.UTC().Format("2006-01-02") + ext
}

type Text struct{}

func (Text) Render(messages []history.Message, now time.Time) history.Artifact {
	return history.Artifact{
		Filename: FileName(now, ".txt"),
		Content:  BuildTranscript(messages),
		MimeType: "text/plain",
	}
}

// RendererFor maps the export.format config value to a renderer.
func RendererFor(name string) history.Renderer {
	if strings.EqualFold(strings.TrimSpace(name), "html") {
		return HTML{}
	}
	return Text{}
}

func BuildTranscript(messages []history.Message) string {
	var b strings.Builder
	b.WriteString("# " + transcriptTitle + "\n\n")
	for _, m := range messages {
		b.WriteString("## " + roleLabel(m.Role) + ":\n")
		b.WriteString(plainContent(m) + "\n\n")
	}
	return b.String()
}

func roleLabel(role history.Role) string {
	if role == history.RoleUser {
		return "You"
	}
	return "AI"
}

func plainContent(m history.Message) string {
	if m.Role == history.RoleUser || m.Raw != "" {
		return strings.TrimSpace(m.Text())
	}
	return format.PlainText(m.Content)
}

func safeFileName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "conversation"
	}
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", " ", "_")
	return replacer.Replace(s)
}
