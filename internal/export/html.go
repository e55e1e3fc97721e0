package export

import (
	"bytes"
	"html/template"
	"time"

	"gemini-chat/internal/format"
	"gemini-chat/internal/history"
	"gemini-chat/internal/logger"
)

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 860px; margin: 2rem auto; color: #1e293b; }
.turn { border: 1px solid #cbd5e1; border-radius: 8px; padding: 1rem; margin: 1rem 0; }
.turn.user { background: #ecfeff; }
.code-block { background: #0f172a; color: #e2e8f0; border-radius: 6px; margin: .5rem 0; }
.code-header { display: flex; justify-content: space-between; padding: .25rem .75rem; font-size: .8rem; }
.code-content { margin: 0; padding: .75rem; overflow-x: auto; }
time { color: #64748b; font-size: .8rem; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p>Exported {{.Exported}}</p>
{{range .Turns}}<section class="turn {{.Class}}">
<h2>{{.Label}}</h2>
<time>{{.Timestamp}}</time>
{{if .Fragment}}<div class="content">{{.Fragment}}</div>{{else}}<div class="content"><p>{{.Text}}</p></div>{{end}}
</section>
{{end}}</body>
</html>
`))

type htmlTurn struct {
	Class     string
	Label     string
	Timestamp string
	Text      string
	Fragment  template.HTML
}

type HTML struct{}

// Render builds a standalone page. User text goes through template escaping;
// reply fragments are re-sanitized before being trusted as markup.
func (HTML) Render(messages []history.Message, now time.Time) history.Artifact {
	turns := make([]htmlTurn, 0, len(messages))
	for _, m := range messages {
		t := htmlTurn{
			Class:     string(m.Role),
			Label:     roleLabel(m.Role),
			Timestamp: m.Timestamp,
		}
		if m.Role == history.RoleUser {
			t.Text = m.Content
		} else {
			t.Fragment = template.HTML(format.Sanitize(m.Content))
		}
		turns = append(turns, t)
	}

	var buf bytes.Buffer
	err := pageTmpl.Execute(&buf, struct {
		Title    string
		Exported string
		Turns    []htmlTurn
	}{
		Title:    transcriptTitle,
		Exported: now.UTC().Format(time.RFC3339),
		Turns:    turns,
	})
	if err != nil {
		logger.L.Warn("html export failed; falling back to text", "error", err)
		return Text{}.Render(messages, now)
	}

	return history.Artifact{
		Filename: FileName(now, ".html"),
		Content:  buf.String(),
		MimeType: "text/html",
	}
}
