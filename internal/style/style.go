// Package style turns inline style directives of the form
// "@(red, bold)text" into HTML spans.
package style

import "strings"

const (
	directiveOpen = "@("
	preOpen       = `<pre style="font-family: 'Courier New', monospace; margin: 0; display: inline;">`
	preClose      = "</pre>"
)

var attributes = map[string]string{
	"black":       "color: #000000",
	"red":         "color: #ff6b6b",
	"green":       "color: #51cf66",
	"yellow":      "color: #ffd43b",
	"blue":        "color: #339af0",
	"magenta":     "color: #e599f7",
	"cyan":        "color: #22d3ee",
	"white":       "color: #ffffff",
	"gray":        "color: #adb5bd",
	"grey":        "color: #adb5bd",
	"orange":      "color: #ff922b",
	"purple":      "color: #9775fa",
	"pink":        "color: #f783ac",
	"bright_cyan": "color: #00ffff",

	"bold":      "font-weight: bold",
	"italic":    "font-style: italic",
	"underline": "text-decoration: underline",
	"strike":    "text-decoration: line-through",

	"bg-black":   "background-color: #000000",
	"bg-red":     "background-color: #ff6b6b",
	"bg-green":   "background-color: #51cf66",
	"bg-yellow":  "background-color: #ffd43b",
	"bg-blue":    "background-color: #339af0",
	"bg-magenta": "background-color: #e599f7",
	"bg-cyan":    "background-color: #22d3ee",
	"bg-white":   "background-color: #ffffff",
	"bg-gray":    "background-color: #adb5bd",
	"bg-grey":    "background-color: #adb5bd",
}

type directive struct {
	start int // index of "@("
	end   int // index just past ")"
	names string
}

// Render resolves every directive in markup. Content after a directive runs
// to the next directive or the end of the string. Unknown names, including
// "reset", add no styling but keep the content.
func Render(markup string) string {
	markup = StripTerminal(markup)
	d, ok := next(markup, 0)
	if !ok {
		return preserve(markup)
	}

	var b strings.Builder
	b.Grow(len(markup) + 32)
	b.WriteString(markup[:d.start])
	for ok {
		var n directive
		n, ok = next(markup, d.end)
		stop := len(markup)
		if ok {
			stop = n.start
		}
		writeStyled(&b, d.names, markup[d.end:stop])
		d = n
	}
	return preserve(b.String())
}

func next(s string, from int) (directive, bool) {
	i := strings.Index(s[from:], directiveOpen)
	if i < 0 {
		return directive{}, false
	}
	start := from + i
	j := strings.IndexByte(s[start+len(directiveOpen):], ')')
	if j < 0 {
		return directive{}, false
	}
	namesEnd := start + len(directiveOpen) + j
	return directive{
		start: start,
		end:   namesEnd + 1,
		names: s[start+len(directiveOpen) : namesEnd],
	}, true
}

func writeStyled(b *strings.Builder, names, content string) {
	var css []string
	for _, name := range strings.Split(names, ",") {
		if attr, ok := attributes[strings.TrimSpace(name)]; ok {
			css = append(css, attr)
		}
	}
	if len(css) == 0 {
		b.WriteString(content)
		return
	}
	b.WriteString(`<span style="`)
	b.WriteString(strings.Join(css, "; "))
	b.WriteString(`">`)
	b.WriteString(content)
	b.WriteString("</span>")
}

// preserve wraps structured multi-line text in a monospace block.
func preserve(text string) string {
	if strings.HasPrefix(text, preOpen) {
		return text
	}
	if strings.Contains(text, "\n") && strings.ContainsAny(text, "{[") {
		return preOpen + text + preClose
	}
	return text
}
