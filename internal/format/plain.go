package format

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	codeHeaderRe = regexp.MustCompile(`(?s)<div class="code-header">.*?</div>`)
	extraBlankRe = regexp.MustCompile(`\n{3,}`)
	stripPolicy  = bluemonday.StrictPolicy()
)

// PlainText drops all markup from a formatted fragment, keeping list and
// paragraph breaks, for clipboard and text transcripts.
func PlainText(fragment string) string {
	if fragment == "" {
		return ""
	}
	s := codeHeaderRe.ReplaceAllString(fragment, "")
	s = strings.NewReplacer(
		"<li>", "- ",
		"</li>", "\n",
		"</p>", "\n\n",
		"</ul>", "\n",
		"</pre>", "\n\n",
	).Replace(s)
	s = html.UnescapeString(stripPolicy.Sanitize(s))
	s = extraBlankRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// CodeBlock is one fenced block of a raw reply.
type CodeBlock struct {
	Language string
	Code     string
}

// ExtractCodeBlocks returns the fenced blocks of an unformatted reply, with the
// same language detection Format uses.
func ExtractCodeBlocks(raw string) []CodeBlock {
	matches := fenceRe.FindAllStringSubmatch(strings.ReplaceAll(raw, "\r\n", "\n"), -1)
	out := make([]CodeBlock, 0, len(matches))
	for _, m := range matches {
		lang, code := splitLanguage(m[1])
		if lang == "" {
			lang = DefaultCodeLabel
		}
		out = append(out, CodeBlock{Language: lang, Code: code})
	}
	return out
}
