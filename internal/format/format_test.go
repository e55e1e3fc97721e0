package format

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatEmpty(t *testing.T) {
	require.Equal(t, "", Format(""))
}

func TestFormatBold(t *testing.T) {
	out := Format("**bold**")
	require.Contains(t, out, "<strong>bold</strong>")
}

func TestFormatItalic(t *testing.T) {
	out := Format("an *italic* word")
	require.Contains(t, out, "<em>italic</em>")
	require.NotContains(t, out, "*")
}

func TestFormatCodeBlockWithLanguage(t *testing.T) {
	out := Format("```python\nprint(1)\n```")

	require.Contains(t, out, `<span class="code-language">python</span>`)
	require.Contains(t, out, "<code>print(1)</code>")
	require.Contains(t, out, `class="copy-button"`)
	require.NotContains(t, out, "```")
	require.NotContains(t, out, "python\nprint")
}

func TestFormatCodeBlockWithoutLanguage(t *testing.T) {
	out := Format("```\nls -la\n```")
	require.Contains(t, out, `<span class="code-language">code</span>`)
	require.Contains(t, out, "<code>ls -la</code>")
}

func TestFormatCodeBlockFirstLineWithSpaceIsBody(t *testing.T) {
	out := Format("```echo hi\n```")
	require.Contains(t, out, `<span class="code-language">code</span>`)
	require.Contains(t, out, "<code>echo hi</code>")
}

func TestFormatCodeBlockPaddedLanguageLineIsBody(t *testing.T) {
	for _, in := range []string{"```python \nprint(1)\n```", "``` python\nprint(1)\n```"} {
		out := Format(in)
		require.Contains(t, out, `<span class="code-language">code</span>`, in)
		require.NotContains(t, out, `<span class="code-language">python</span>`, in)
		require.Contains(t, out, "print(1)</code>", in)
		require.Contains(t, out, "python", in)
	}

	blocks := ExtractCodeBlocks("```python \nprint(1)\n```")
	require.Len(t, blocks, 1)
	require.Equal(t, DefaultCodeLabel, blocks[0].Language)
	require.Equal(t, "python \nprint(1)", blocks[0].Code)
}

func TestFormatCodeBodyIsNotEmphasized(t *testing.T) {
	out := Format("```go\nx := a**b**c\n```")
	require.NotContains(t, out, "<strong>")
	require.Contains(t, out, "a**b**c")
}

func TestFormatListItemsWrappedTogether(t *testing.T) {
	out := Format("Items:\n- one\n- two\n\nafter")

	require.Contains(t, out, "<p>Items:</p>")
	require.Contains(t, out, "<ul><li>one</li><li>two</li></ul>")
	require.Contains(t, out, "<p>after</p>")
	require.Equal(t, 1, strings.Count(out, "<ul>"))
}

func TestFormatSeparateListsStaySeparate(t *testing.T) {
	out := Format("- a\n\nmiddle\n\n- b")
	require.Equal(t, 2, strings.Count(out, "<ul>"))
}

func TestFormatParagraphs(t *testing.T) {
	out := Format("first\n\nsecond line\nstill second")
	require.Equal(t, "<p>first</p>\n<p>second line\nstill second</p>", out)
}

func TestFormatEscapesMarkupInProse(t *testing.T) {
	out := Format(`<script>alert("x")</script> **hi**`)
	require.NotContains(t, out, "<script>")
	require.Contains(t, out, "&lt;script&gt;")
	require.Contains(t, out, "<strong>hi</strong>")
}

func TestFormatEscapesLanguageLabel(t *testing.T) {
	out := Format("```<img/src=x/onerror=alert(1)>\ncode here\n```")
	require.NotContains(t, out, "<img")
	require.Contains(t, out, "&lt;img")
}

func TestFormatUnbalancedMarkersDoNotPanic(t *testing.T) {
	require.NotPanics(t, func() {
		_ = Format("**open *half ``` dangling")
		_ = Format("```")
		_ = Format("\x000\x00")
	})
}

func TestSanitizeDropsForeignMarkup(t *testing.T) {
	out := Sanitize(`<p onclick="x()">ok</p><script>bad()</script><a href="http://x">l</a>`)
	require.Equal(t, "<p>ok</p>l", out)
}

func TestPlainText(t *testing.T) {
	frag := Format("Say **hi**:\n- one\n- two\n\n```sh\necho &\n```")
	plain := PlainText(frag)

	require.Contains(t, plain, "Say hi:")
	require.Contains(t, plain, "- one\n- two")
	require.Contains(t, plain, "echo &")
	require.NotContains(t, plain, "<")
	require.NotContains(t, plain, "Copy")
}

func TestExtractCodeBlocks(t *testing.T) {
	blocks := ExtractCodeBlocks("a\n```python\nprint(1)\n```\nb\n```\nplain\n```")
	require.Equal(t, []CodeBlock{
		{Language: "python", Code: "print(1)"},
		{Language: "code", Code: "plain"},
	}, blocks)
}
