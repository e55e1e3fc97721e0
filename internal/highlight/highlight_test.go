package highlight

import (
	"strings"
	"testing"
)

func brackets(s string) string { return "[[" + s + "]]" }

func TestMarkIgnoresCase(t *testing.T) {
	res := Mark("You: Hello there\nAI: hello, HELLO\n", "hello", brackets)

	if res.Count() != 3 {
		t.Fatalf("expected 3 matches, got %d", res.Count())
	}
	want := []int{0, 1, 1}
	for i, l := range want {
		if res.Lines[i] != l {
			t.Fatalf("unexpected lines: %#v", res.Lines)
		}
	}
	if !strings.Contains(res.Text, "[[Hello]]") || !strings.Contains(res.Text, "[[HELLO]]") {
		t.Fatalf("wrapper not applied: %q", res.Text)
	}
	if !strings.HasSuffix(res.Text, "\n") {
		t.Fatalf("trailing newline lost: %q", res.Text)
	}
}

func TestMarkKeepsEscapeSequences(t *testing.T) {
	res := Mark("a \x1b[1;35mgemini\x1b[0m b", "Gemini", brackets)
	if res.Count() != 1 {
		t.Fatalf("expected 1 match, got %d", res.Count())
	}
	if !strings.Contains(res.Text, "\x1b[1;35m[[gemini]]\x1b[0m") {
		t.Fatalf("escape sequence disturbed: %q", res.Text)
	}
}

func TestMarkDoesNotSpanEscapes(t *testing.T) {
	res := Mark("ge\x1b[31mmi\x1b[0mni", "gemini", brackets)
	if res.Count() != 0 {
		t.Fatalf("expected no match across escapes, got %d", res.Count())
	}
}

func TestMarkQuotesQuery(t *testing.T) {
	res := Mark("call f(x) or f.x", "f(x)", brackets)
	if res.Count() != 1 || !strings.Contains(res.Text, "[[f(x)]]") {
		t.Fatalf("query not treated literally: %q", res.Text)
	}
}

func TestMarkBlankQuery(t *testing.T) {
	res := Mark("text", "  ", brackets)
	if res.Text != "text" || res.Count() != 0 {
		t.Fatalf("blank query changed output: %#v", res)
	}
}

func TestLineWraps(t *testing.T) {
	m := Matches{Lines: []int{2, 5, 9}}
	cases := map[int]int{0: 2, 2: 9, 3: 2, -1: 9, -4: 9}
	for i, want := range cases {
		got, ok := m.Line(i)
		if !ok || got != want {
			t.Fatalf("Line(%d) = %d, %t; want %d", i, got, ok, want)
		}
	}
	if _, ok := (Matches{}).Line(0); ok {
		t.Fatalf("empty matches reported a line")
	}
}
