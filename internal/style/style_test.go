package style

import (
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "plain", "plain"},
		{"bold", "@(bold)hi", `<span style="font-weight: bold">hi</span>`},
		{"unknown", "@(unknownstyle)hi", "hi"},
		{"empty list", "@()hi", "hi"},
		{"combined", "@(red, bold)Error:", `<span style="color: #ff6b6b; font-weight: bold">Error:</span>`},
		{"mixed known and unknown", "@(nope, underline)x", `<span style="text-decoration: underline">x</span>`},
		{
			"leading text and reset",
			"Status: @(green)OK@(reset), done",
			`Status: <span style="color: #51cf66">OK</span>, done`,
		},
		{"background", "@(white, bg-red) CRITICAL ", `<span style="color: #ffffff; background-color: #ff6b6b"> CRITICAL </span>`},
		{"stray at sign", "mail me @ home", "mail me @ home"},
		{"unterminated directive", "@(red oops", "@(red oops"},
		{"email inside content", "@(blue)a@b.c", `<span style="color: #339af0">a@b.c</span>`},
		{"grey alias", "@(grey)x", `<span style="color: #adb5bd">x</span>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Render(tt.in); got != tt.want {
				t.Fatalf("Render(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRenderPreservesStructuredBlocks(t *testing.T) {
	in := "[1, 2]\n[3, 4]"
	got := Render(in)
	if !strings.HasPrefix(got, "<pre") || !strings.Contains(got, in) {
		t.Fatalf("Render(%q) = %q, want a <pre> block", in, got)
	}

	if got := Render("line one\nline two"); got != "line one\nline two" {
		t.Fatalf("plain multi-line text was wrapped: %q", got)
	}
}

func TestRenderIsIdempotent(t *testing.T) {
	inputs := []string{
		"@(red, bold)Error:@(reset) Something went wrong!",
		"{a: 1}\n{b: 2}",
		"@(cyan){\n  x\n}",
		"nothing here",
	}
	for _, in := range inputs {
		once := Render(in)
		if twice := Render(once); twice != once {
			t.Fatalf("Render not idempotent for %q:\n once=%q\ntwice=%q", in, once, twice)
		}
	}
}

func TestCacheMatchesRender(t *testing.T) {
	c, err := NewCache(1 << 20)
	if err != nil {
		t.Fatalf("NewCache() error = %v", err)
	}
	defer c.Close()

	in := "@(yellow)warn@(reset) text"
	first := c.Render(in)
	c.Wait()
	second := c.Render(in)
	if first != Render(in) || second != first {
		t.Fatalf("cache render mismatch: %q, %q, want %q", first, second, Render(in))
	}

	var nilCache *Cache
	if got := nilCache.Render("@(bold)x"); got != Render("@(bold)x") {
		t.Fatalf("nil cache Render = %q", got)
	}
}
