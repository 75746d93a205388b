// Package console is the program-facing side of the bridge: printing styled
// text and math to the page and reading typed values from it.
//
//	c.Println("@(green, bold)Hello")
//	age := console.Read[int](c, "Your age:")
//	c.Latex(`\frac{a}{b}`)
package console

import (
	"context"
	"fmt"
	"strings"

	"github.com/user/webconsole/internal/session"
	"github.com/user/webconsole/internal/style"
)

// Renderer turns style markup into display HTML.
type Renderer interface {
	Render(markup string) string
}

// Console writes into one session. It is safe for concurrent use, though
// programs normally drive it from a single goroutine.
type Console struct {
	ctx         context.Context
	state       *session.State
	renderer    Renderer
	maxAttempts int
}

type Option func(*Console)

// WithRenderer replaces the default uncached renderer.
func WithRenderer(r Renderer) Option {
	return func(c *Console) {
		if r != nil {
			c.renderer = r
		}
	}
}

// WithMaxAttempts bounds the re-prompt loop of Read. Zero means unbounded.
func WithMaxAttempts(n int) Option {
	return func(c *Console) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// New returns a console bound to state. Blocking reads give up and return
// zero values once ctx is done.
func New(ctx context.Context, state *session.State, opts ...Option) *Console {
	c := &Console{
		ctx:      ctx,
		state:    state,
		renderer: renderFunc(style.Render),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Context is done when the bridge is shutting down.
func (c *Console) Context() context.Context {
	return c.ctx
}

// Print renders markup and appends it to the current line.
func (c *Console) Print(markup string) {
	c.state.AppendToLast(c.renderer.Render(markup))
}

// Println renders markup and appends it as a new line.
func (c *Console) Println(markup string) {
	c.state.AppendLine(c.renderer.Render(markup) + "<br>")
}

func (c *Console) Printf(format string, args ...any) {
	c.Print(fmt.Sprintf(format, args...))
}

func (c *Console) Printlnf(format string, args ...any) {
	c.Println(fmt.Sprintf(format, args...))
}

// Latex shows tex in display mode when it holds an environment or a
// bracketed block, inline otherwise.
func (c *Console) Latex(tex string) {
	c.state.AppendLatex(tex, isDisplayMath(tex))
}

func (c *Console) LatexDisplay(tex string) {
	c.state.AppendLatex(tex, true)
}

func (c *Console) LatexInline(tex string) {
	c.state.AppendLatex(tex, false)
}

func isDisplayMath(tex string) bool {
	return strings.Contains(tex, `\begin{`) || strings.Contains(tex, `\[`)
}

// ask issues one request and waits for its raw answer.
func (c *Console) ask(prompt string, tag session.TypeTag) string {
	id := c.state.CreateRequest(prompt, tag)
	return c.state.Await(c.ctx, id)
}

type renderFunc func(string) string

func (f renderFunc) Render(markup string) string { return f(markup) }
