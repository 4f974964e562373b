package transcript

import (
	"strconv"
	"strings"

	"safe-traveller/internal/chat"

	"github.com/charmbracelet/x/ansi"
)

const maxLineLen = 8000

// Markdown renders the conversation for clipboard copy.
func Markdown(msgs []chat.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		content := strings.TrimSpace(m.Text)
		if content == "" {
			continue
		}
		switch m.Origin {
		case chat.OriginUser:
			b.WriteString("## You\n\n")
		default:
			b.WriteString("## Assistant\n\n")
		}
		b.WriteString(content + "\n\n")
	}
	return strings.TrimSpace(b.String()) + "\n"
}

func LastReply(msgs []chat.Message) (string, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Origin == chat.OriginAssistant && strings.TrimSpace(msgs[i].Text) != "" {
			return msgs[i].Text, true
		}
	}
	return "", false
}

// ForDisplay strips inline base64 images and clamps very long lines before
// a reply is handed to the markdown renderer.
func ForDisplay(s string) string {
	s = stripEmbeddedImageData(s)
	return clampLongLines(s, maxLineLen)
}

// Preview collapses whitespace and cuts s to n terminal cells.
func Preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if ansi.StringWidth(s) <= n {
		return s
	}
	if n <= 3 {
		return ansi.Truncate(s, n, "")
	}
	return ansi.Truncate(s, n, "...")
}

func stripEmbeddedImageData(s string) string {
	var b strings.Builder
	pos := 0
	for {
		i := strings.Index(s[pos:], "data:image/")
		if i < 0 {
			b.WriteString(s[pos:])
			break
		}
		start := pos + i
		b.WriteString(s[pos:start])

		rest := s[start:]
		markerIdx := strings.Index(rest, ";base64,")
		if markerIdx < 0 {
			b.WriteString("data:image/")
			pos = start + len("data:image/")
			continue
		}

		payloadStart := start + markerIdx + len(";base64,")
		j := payloadStart
		for j < len(s) && isBase64Byte(s[j]) {
			j++
		}

		b.WriteString("[image omitted: ")
		b.WriteString(strconv.Itoa(j - payloadStart))
		b.WriteString(" base64 chars]")
		pos = j
	}
	return b.String()
}

func isBase64Byte(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z':
		return true
	case c >= 'a' && c <= 'z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '+' || c == '/' || c == '=' || c == '\n' || c == '\r':
		return true
	default:
		return false
	}
}

func clampLongLines(s string, max int) string {
	if max <= 0 || len(s) == 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if len(line) <= max {
			continue
		}
		head := line[:max/2]
		tail := line[len(line)-max/2:]
		lines[i] = head + "... [line truncated " + strconv.Itoa(len(line)-max) + " chars] ..." + tail
	}
	return strings.Join(lines, "\n")
}
