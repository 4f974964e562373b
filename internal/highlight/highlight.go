// Package highlight marks search matches inside rendered terminal text
// without disturbing the escape sequences around them.
package highlight

import (
	"regexp"
	"strings"
)

// CSI styling plus OSC strings (glamour emits OSC 8 hyperlinks for links).
var escapeSeq = regexp.MustCompile(`\x1b\[[0-?]*[ -/]*[@-~]|\x1b\][^\x07\x1b]*(?:\x07|\x1b\\)`)

type Result struct {
	Text      string
	Count     int
	LineIndex []int
}

// ApplyANSI wraps every case-insensitive occurrence of query in input with
// wrap. Matches never span an escape sequence.
func ApplyANSI(input, query string, wrap func(string) string) Result {
	query = normalizeQuery(query)
	if query == "" {
		return Result{Text: input}
	}
	if wrap == nil {
		wrap = func(s string) string { return s }
	}

	var out strings.Builder
	res := Result{}
	for lineNo, line := range strings.Split(input, "\n") {
		if lineNo > 0 {
			out.WriteByte('\n')
		}
		n := markLine(&out, line, query, wrap)
		if n > 0 {
			res.LineIndex = append(res.LineIndex, lineNo)
			res.Count += n
		}
	}
	res.Text = out.String()
	return res
}

func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(q), " ")
}

func markLine(out *strings.Builder, line, query string, wrap func(string) string) int {
	total := 0
	pos := 0
	for _, idx := range escapeSeq.FindAllStringIndex(line, -1) {
		total += markPlain(out, line[pos:idx[0]], query, wrap)
		out.WriteString(line[idx[0]:idx[1]])
		pos = idx[1]
	}
	return total + markPlain(out, line[pos:], query, wrap)
}

func markPlain(out *strings.Builder, s, query string, wrap func(string) string) int {
	if s == "" {
		return 0
	}
	lower := strings.ToLower(s)
	q := strings.ToLower(query)
	// Lowercasing can change byte lengths for some runes; fall back to no
	// marking rather than slicing at the wrong offsets.
	if len(lower) != len(s) || len(q) != len(query) {
		out.WriteString(s)
		return 0
	}

	count := 0
	start := 0
	for {
		rel := strings.Index(lower[start:], q)
		if rel < 0 {
			out.WriteString(s[start:])
			return count
		}
		idx := start + rel
		end := idx + len(q)
		out.WriteString(s[start:idx])
		out.WriteString(wrap(s[idx:end]))
		count++
		start = end
	}
}
