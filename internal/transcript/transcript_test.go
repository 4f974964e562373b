package transcript

import (
	"strings"
	"testing"
	"unicode/utf8"

	"safe-traveller/internal/chat"

	"github.com/charmbracelet/x/ansi"
)

func TestMarkdownKeepsOrderAndSkipsBlank(t *testing.T) {
	msgs := []chat.Message{
		{Origin: chat.OriginUser, Text: "Is tap water safe in Lima?"},
		{Origin: chat.OriginAssistant, Text: "  "},
		{Origin: chat.OriginAssistant, Text: "Drink bottled water."},
	}
	out := Markdown(msgs)
	want := "## You\n\nIs tap water safe in Lima?\n\n## Assistant\n\nDrink bottled water.\n"
	if out != want {
		t.Fatalf("unexpected markdown:\n%q\nwant\n%q", out, want)
	}
}

func TestLastReply(t *testing.T) {
	if _, ok := LastReply(nil); ok {
		t.Fatalf("expected no reply in empty transcript")
	}
	msgs := []chat.Message{
		{Origin: chat.OriginAssistant, Text: "first"},
		{Origin: chat.OriginUser, Text: "q"},
		{Origin: chat.OriginAssistant, Text: "second"},
		{Origin: chat.OriginUser, Text: "q2"},
	}
	got, ok := LastReply(msgs)
	if !ok || got != "second" {
		t.Fatalf("expected second, got %q (%t)", got, ok)
	}
}

func TestForDisplayStripsImagesAndLongLines(t *testing.T) {
	in := "map: data:image/png;base64,QUJDRA== done\n" + strings.Repeat("x", maxLineLen+10)
	out := ForDisplay(in)
	if strings.Contains(out, "QUJDRA") {
		t.Fatalf("expected image payload removed: %q", out[:60])
	}
	if !strings.Contains(out, "[image omitted: 8 base64 chars]") {
		t.Fatalf("expected omission marker, got %q", out[:80])
	}
	if !strings.Contains(out, "[line truncated 10 chars]") {
		t.Fatalf("expected long line truncated")
	}
}

func TestPreview(t *testing.T) {
	if got := Preview("a   b\n c", 10); got != "a b c" {
		t.Fatalf("unexpected preview %q", got)
	}
	if got := Preview("abcdefghij", 6); got != "abc..." {
		t.Fatalf("unexpected truncated preview %q", got)
	}
}

func TestPreviewKeepsRunesWhole(t *testing.T) {
	cases := []struct {
		name string
		in   string
		n    int
	}{
		{name: "accented", in: strings.Repeat("á", 60), n: 10},
		{name: "wide", in: "東京駅から新宿駅まで電車で行けますか", n: 9},
		{name: "tiny", in: "ñandú ñandú", n: 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Preview(tc.in, tc.n)
			if !utf8.ValidString(got) {
				t.Fatalf("preview split a rune: %q", got)
			}
			if w := ansi.StringWidth(got); w > tc.n {
				t.Fatalf("preview width %d exceeds %d: %q", w, tc.n, got)
			}
			if tc.n > 3 && !strings.HasSuffix(got, "...") {
				t.Fatalf("expected ellipsis, got %q", got)
			}
		})
	}
	if got := Preview(strings.Repeat("á", 60), 80); got != strings.Repeat("á", 60) {
		t.Fatalf("short non-ascii text must not be cut: %q", got)
	}
}
