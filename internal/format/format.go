// Package format turns model replies written in light markdown into a
// display fragment whose only markup is the small set of tags produced here.
//
// The rules are regex substitutions applied in a fixed order, not a parser:
// nested or unbalanced emphasis renders best effort.
package format

import (
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// DefaultCodeLabel names a code block that has no language tag.
const DefaultCodeLabel = "code"

var (
	fenceRe       = regexp.MustCompile("(?s)```(.*?)```")
	boldRe        = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicRe      = regexp.MustCompile(`\*(.*?)\*`)
	listItemRe    = regexp.MustCompile(`^- (.*)$`)
	blankLineRe   = regexp.MustCompile(`\n[ \t\r]*\n`)
	placeholderRe = regexp.MustCompile("^\x00([0-9]+)\x00$")
	classRe       = regexp.MustCompile(`^(code-block|code-header|code-language|copy-button|code-content)$`)
)

var policy = fragmentPolicy()

// fragmentPolicy admits exactly the markup Format emits.
func fragmentPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("strong", "em", "ul", "li", "p", "div", "span", "button", "pre", "code")
	p.AllowAttrs("class").Matching(classRe).OnElements("div", "span", "button", "pre")
	return p
}

// Sanitize re-applies the fragment allowlist to markup from elsewhere, such as
// a history entry loaded from disk.
func Sanitize(fragment string) string {
	return policy.Sanitize(fragment)
}

// Format renders a raw reply as a sanitized display fragment.
func Format(raw string) string {
	if raw == "" {
		return ""
	}
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\x00", "")
	text = html.EscapeString(text)

	var blocks []string
	text = fenceRe.ReplaceAllStringFunc(text, func(match string) string {
		body := fenceRe.FindStringSubmatch(match)[1]
		lang, code := splitLanguage(body)
		blocks = append(blocks, codeContainer(lang, code))
		return "\x00" + strconv.Itoa(len(blocks)-1) + "\x00"
	})

	text = boldRe.ReplaceAllString(text, "<strong>$1</strong>")
	text = italicRe.ReplaceAllString(text, "<em>$1</em>")
	text = layoutBlocks(text, blocks)

	return policy.Sanitize(text)
}

// splitLanguage treats a non-empty first line without any whitespace as the
// language tag. A line with stray spaces around the word stays in the body.
func splitLanguage(body string) (string, string) {
	first, rest, found := strings.Cut(body, "\n")
	if first != "" && !strings.ContainsAny(first, " \t\r\v\f") {
		if !found {
			rest = ""
		}
		return first, strings.Trim(rest, "\n")
	}
	return "", strings.Trim(body, "\n")
}

func codeContainer(lang, code string) string {
	if lang == "" {
		lang = DefaultCodeLabel
	}
	var b strings.Builder
	b.WriteString(`<div class="code-block"><div class="code-header">`)
	b.WriteString(`<span class="code-language">` + lang + `</span>`)
	b.WriteString(`<button class="copy-button">Copy</button></div>`)
	b.WriteString(`<pre class="code-content"><code>` + code + `</code></pre></div>`)
	return b.String()
}

func layoutBlocks(text string, blocks []string) string {
	out := make([]string, 0, 8)
	for _, chunk := range blankLineRe.Split(text, -1) {
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		out = append(out, layoutChunk(chunk, blocks)...)
	}
	joined := strings.Join(out, "\n")
	if len(blocks) == 0 {
		return joined
	}
	// Inline fences that shared a line with prose are still placeholders here.
	return inlinePlaceholderRe.ReplaceAllStringFunc(joined, func(m string) string {
		return blockAt(blocks, m)
	})
}

var inlinePlaceholderRe = regexp.MustCompile("\x00[0-9]+\x00")

func layoutChunk(chunk string, blocks []string) []string {
	var (
		parts []string
		para  []string
		items []string
	)
	flushPara := func() {
		if len(para) > 0 {
			parts = append(parts, "<p>"+strings.Join(para, "\n")+"</p>")
			para = nil
		}
	}
	flushList := func() {
		if len(items) > 0 {
			parts = append(parts, "<ul>"+strings.Join(items, "")+"</ul>")
			items = nil
		}
	}

	for _, line := range strings.Split(chunk, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			continue
		case placeholderRe.MatchString(trimmed):
			flushPara()
			flushList()
			parts = append(parts, blockAt(blocks, trimmed))
		case listItemRe.MatchString(line):
			flushPara()
			items = append(items, listItemRe.ReplaceAllString(line, "<li>$1</li>"))
		default:
			flushList()
			para = append(para, line)
		}
	}
	flushPara()
	flushList()
	return parts
}

func blockAt(blocks []string, placeholder string) string {
	idx, err := strconv.Atoi(strings.Trim(placeholder, "\x00"))
	if err != nil || idx < 0 || idx >= len(blocks) {
		return ""
	}
	return blocks[idx]
}
