package style

import "regexp"

// terminalEscapes matches the escape sequences a terminal-oriented library
// might emit: CSI (colors, cursor movement), OSC/DCS/PM/APC strings, the
// screen title form, charset and keypad selection, and any other two-byte
// escape.
var terminalEscapes = regexp.MustCompile(
	`\x1b\[[0-?]*[ -/]*[@-~]` +
		`|\x1b\].*?(?:\x07|\x1b\\)` +
		`|\x1b[P^_k].*?\x1b\\` +
		`|\x1b[()][0-9A-Za-z]` +
		`|\x1b.`)

// StripTerminal removes terminal escape sequences and control bytes from s,
// keeping newlines and tabs. A backspace erases the byte before it.
func StripTerminal(s string) string {
	if !hasControl(s) {
		return s
	}
	s = terminalEscapes.ReplaceAllString(s, "")

	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch ch := s[i]; {
		case ch == '\b':
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		case ch == '\n' || ch == '\t':
			out = append(out, ch)
		case ch < 0x20 || ch == 0x7f:
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}

func hasControl(s string) bool {
	for i := 0; i < len(s); i++ {
		if ch := s[i]; (ch < 0x20 && ch != '\n' && ch != '\t') || ch == 0x7f {
			return true
		}
	}
	return false
}
