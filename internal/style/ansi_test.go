package style

import "testing"

func TestStripTerminal(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "plain text", "plain text"},
		{"newlines and tabs kept", "a\tb\nc", "a\tb\nc"},
		{"sgr colors", "\x1b[31mred text\x1b[0m", "red text"},
		{"combined sgr", "\x1b[1;32;40mbold green\x1b[0m normal", "bold green normal"},
		{"cursor movement", "\x1b[2J\x1b[Hclear screen", "clear screen"},
		{"osc with bell", "\x1b]0;window title\x07text", "text"},
		{"osc with st", "\x1b]0;title\x1b\\text", "text"},
		{"carriage returns", "line1\r\nline2\r", "line1\nline2"},
		{"charset selection", "\x1b(Btext\x1b)0more", "textmore"},
		{"private and keypad modes", "\x1b[?1h\x1b=\x1b[?2004htext\x1b[?2004l\x1b>", "text"},
		{"screen title", "\x1bkmake\x1b\\hello", "hello"},
		{"backspace", "e\becho", "echo"},
		{"other control bytes", "a\x00b\x1fc\x7f", "abc"},
		{"utf-8 untouched", "λ → ✓", "λ → ✓"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripTerminal(tt.input); got != tt.expected {
				t.Errorf("StripTerminal() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestRenderStripsTerminalEscapes(t *testing.T) {
	got := Render("@(green)\x1b[1mok\x1b[0m")
	want := `<span style="color: #51cf66">ok</span>`
	if got != want {
		t.Fatalf("Render() = %q, want %q", got, want)
	}
}
