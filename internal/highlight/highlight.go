// Package highlight marks search hits in terminal-rendered text.
package highlight

import (
	"regexp"
	"strings"
)

var ansiCSI = regexp.MustCompile(`\x1b\[[0-?]*[ -/]*[@-~]`)

// Matches describes where a query was found. Lines holds the zero-based
// line of every hit, so a line with two hits appears twice.
type Matches struct {
	Text  string
	Lines []int
}

func (m Matches) Count() int { return len(m.Lines) }

// Line returns the line of hit i, wrapping around in both directions.
func (m Matches) Line(i int) (int, bool) {
	if len(m.Lines) == 0 {
		return 0, false
	}
	i %= len(m.Lines)
	if i < 0 {
		i += len(m.Lines)
	}
	return m.Lines[i], true
}

// Mark wraps every case-insensitive occurrence of query in rendered. Escape
// sequences are copied through untouched and a hit never spans one.
func Mark(rendered, query string, wrap func(string) string) Matches {
	query = strings.TrimSpace(query)
	if query == "" {
		return Matches{Text: rendered}
	}
	if wrap == nil {
		wrap = func(s string) string { return s }
	}
	re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(query))

	var (
		out   strings.Builder
		lines []int
	)
	for n, line := range strings.Split(rendered, "\n") {
		if n > 0 {
			out.WriteByte('\n')
		}
		hits := markLine(&out, line, re, wrap)
		for ; hits > 0; hits-- {
			lines = append(lines, n)
		}
	}
	return Matches{Text: out.String(), Lines: lines}
}

func markLine(out *strings.Builder, line string, re *regexp.Regexp, wrap func(string) string) int {
	hits := 0
	pos := 0
	for _, esc := range ansiCSI.FindAllStringIndex(line, -1) {
		hits += markPlain(out, line[pos:esc[0]], re, wrap)
		out.WriteString(line[esc[0]:esc[1]])
		pos = esc[1]
	}
	return hits + markPlain(out, line[pos:], re, wrap)
}

func markPlain(out *strings.Builder, s string, re *regexp.Regexp, wrap func(string) string) int {
	locs := re.FindAllStringIndex(s, -1)
	prev := 0
	for _, loc := range locs {
		out.WriteString(s[prev:loc[0]])
		out.WriteString(wrap(s[loc[0]:loc[1]]))
		prev = loc[1]
	}
	out.WriteString(s[prev:])
	return len(locs)
}
