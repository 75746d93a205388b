package session

import "strings"

// Wire prefixes understood by the browser renderer.
const (
	prefixInput        = "INPUT_REQUEST:"
	prefixLatexDisplay = "LATEX_DISPLAY:"
	prefixLatexInline  = "LATEX_INLINE:"
)

// Kind says how the browser renders a line.
type Kind int

const (
	// KindText is rendered as HTML.
	KindText Kind = iota
	// KindInput is a prompt with an input box for request ID.
	KindInput
	// KindLatexDisplay is typeset as display math.
	KindLatexDisplay
	// KindLatexInline is typeset as inline math.
	KindLatexInline
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindLatexDisplay:
		return "latex_display"
	case KindLatexInline:
		return "latex_inline"
	default:
		return "text"
	}
}

// Line is one output entry. It is kept tagged in memory and only turned
// into the sentinel string form when it crosses the HTTP boundary.
type Line struct {
	Kind Kind
	ID   string
	Body string
}

func (l Line) String() string {
	switch l.Kind {
	case KindInput:
		return prefixInput + l.ID + ":" + l.Body
	case KindLatexDisplay:
		return prefixLatexDisplay + l.Body
	case KindLatexInline:
		return prefixLatexInline + l.Body
	default:
		return l.Body
	}
}

// ParseLine is the inverse of Line.String.
func ParseLine(s string) Line {
	switch {
	case strings.HasPrefix(s, prefixInput):
		rest := strings.TrimPrefix(s, prefixInput)
		id, prompt, ok := strings.Cut(rest, ":")
		if !ok {
			return Line{Kind: KindText, Body: s}
		}
		return Line{Kind: KindInput, ID: id, Body: prompt}
	case strings.HasPrefix(s, prefixLatexDisplay):
		return Line{Kind: KindLatexDisplay, Body: strings.TrimPrefix(s, prefixLatexDisplay)}
	case strings.HasPrefix(s, prefixLatexInline):
		return Line{Kind: KindLatexInline, Body: strings.TrimPrefix(s, prefixLatexInline)}
	default:
		return Line{Kind: KindText, Body: s}
	}
}
