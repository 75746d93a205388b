package console

import (
	"encoding"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/user/webconsole/internal/session"
)

// Char is a single Unicode character read from the page.
type Char rune

func (c Char) String() string { return string(rune(c)) }

// Value lists the types Read can parse.
type Value interface {
	int | int8 | int16 | int32 | int64 |
		uint | uint8 | uint16 | uint32 | uint64 |
		float32 | float64 | bool | string | Char
}

// ErrTooManyAttempts is returned by ReadN when every attempt failed to parse.
var ErrTooManyAttempts = errors.New("too many invalid answers")

// ParseError reports an answer that could not be read as the requested type.
type ParseError struct {
	Input string
	Tag   session.TypeTag
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot read %q as %s: %v", e.Input, e.Tag, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// TagFor returns the validation tag the page uses for T. Integer tags
// carry the width of T so the page rejects what parsing would.
func TagFor[T Value]() session.TypeTag {
	var zero T
	switch any(zero).(type) {
	case int:
		return session.IntegerTag(true, strconv.IntSize)
	case int8:
		return session.IntegerTag(true, 8)
	case int16:
		return session.IntegerTag(true, 16)
	case int32:
		return session.IntegerTag(true, 32)
	case int64:
		return session.IntegerTag(true, 64)
	case uint:
		return session.IntegerTag(false, strconv.IntSize)
	case uint8:
		return session.IntegerTag(false, 8)
	case uint16:
		return session.IntegerTag(false, 16)
	case uint32:
		return session.IntegerTag(false, 32)
	case uint64:
		return session.IntegerTag(false, 64)
	case float32, float64:
		return session.TagFloat
	case bool:
		return session.TagBool
	case Char:
		return session.TagChar
	default:
		return session.TagText
	}
}

// Read prompts until the answer parses as T. Without WithMaxAttempts the
// loop is unbounded; the page validates answers before submitting them, so
// retries are rare. Read returns the zero value when the bridge shuts down.
func Read[T Value](c *Console, prompt string) T {
	if c.maxAttempts > 0 {
		v, _ := ReadN[T](c, prompt, c.maxAttempts)
		return v
	}
	for {
		v, err := TryRead[T](c, prompt)
		if err == nil {
			return v
		}
		if c.ctx.Err() != nil {
			var zero T
			return zero
		}
	}
}

// ReadN is Read with at most maxAttempts prompts.
func ReadN[T Value](c *Console, prompt string, maxAttempts int) (T, error) {
	var zero T
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		v, err := TryRead[T](c, prompt)
		if err == nil {
			return v, nil
		}
		if ctxErr := c.ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
		lastErr = err
	}
	return zero, fmt.Errorf("%w: %w", ErrTooManyAttempts, lastErr)
}

// TryRead prompts once and returns a *ParseError if the answer does not
// parse.
func TryRead[T Value](c *Console, prompt string) (T, error) {
	tag := TagFor[T]()
	raw := c.ask(prompt, tag)
	v, err := parse[T](raw)
	if err != nil {
		return v, &ParseError{Input: raw, Tag: tag, Err: err}
	}
	return v, nil
}

// ReadString prompts once; any answer is valid.
func ReadString(c *Console, prompt string) string {
	return c.ask(prompt, session.TagText)
}

// ReadText reads any type that knows how to decode itself, such as
// netip.Addr or time.Time. The page accepts any text, so the server side
// re-prompts until decoding succeeds.
func ReadText[T any, PT interface {
	*T
	encoding.TextUnmarshaler
}](c *Console, prompt string) T {
	for {
		v, err := TryReadText[T, PT](c, prompt)
		if err == nil || c.ctx.Err() != nil {
			return v
		}
	}
}

func TryReadText[T any, PT interface {
	*T
	encoding.TextUnmarshaler
}](c *Console, prompt string) (T, error) {
	var v T
	raw := c.ask(prompt, session.TagText)
	if err := PT(&v).UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		var zero T
		return zero, &ParseError{Input: raw, Tag: session.TagText, Err: err}
	}
	return v, nil
}

func parse[T Value](raw string) (T, error) {
	var zero T
	s := strings.TrimSpace(raw)

	var v any
	var err error
	switch any(zero).(type) {
	case int:
		v, err = parseSigned(s, strconv.IntSize, func(n int64) any { return int(n) })
	case int8:
		v, err = parseSigned(s, 8, func(n int64) any { return int8(n) })
	case int16:
		v, err = parseSigned(s, 16, func(n int64) any { return int16(n) })
	case int32:
		v, err = parseSigned(s, 32, func(n int64) any { return int32(n) })
	case int64:
		v, err = parseSigned(s, 64, func(n int64) any { return n })
	case uint:
		v, err = parseUnsigned(s, strconv.IntSize, func(n uint64) any { return uint(n) })
	case uint8:
		v, err = parseUnsigned(s, 8, func(n uint64) any { return uint8(n) })
	case uint16:
		v, err = parseUnsigned(s, 16, func(n uint64) any { return uint16(n) })
	case uint32:
		v, err = parseUnsigned(s, 32, func(n uint64) any { return uint32(n) })
	case uint64:
		v, err = parseUnsigned(s, 64, func(n uint64) any { return n })
	case float32:
		var f float64
		f, err = parseFloat(s, 32)
		v = float32(f)
	case float64:
		v, err = parseFloat(s, 64)
	case bool:
		v, err = parseBool(s)
	case Char:
		v, err = parseChar(s)
	default:
		// string keeps the untrimmed answer
		v = raw
	}
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

func parseSigned(s string, bits int, conv func(int64) any) (any, error) {
	n, err := strconv.ParseInt(s, 10, bits)
	if err != nil {
		return nil, err
	}
	return conv(n), nil
}

func parseUnsigned(s string, bits int, conv func(uint64) any) (any, error) {
	n, err := strconv.ParseUint(s, 10, bits)
	if err != nil {
		return nil, err
	}
	return conv(n), nil
}

// parseFloat saturates out-of-range values to ±Inf or zero instead of
// failing, matching what the page accepts.
func parseFloat(s string, bits int) (float64, error) {
	f, err := strconv.ParseFloat(s, bits)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, err
	}
	return f, nil
}

func parseBool(s string) (bool, error) {
	switch {
	case strings.EqualFold(s, "true"):
		return true, nil
	case strings.EqualFold(s, "false"):
		return false, nil
	}
	return false, fmt.Errorf("provided string was not 'true' or 'false'")
}

func parseChar(s string) (Char, error) {
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("expected exactly one character, got %d", utf8.RuneCountInString(s))
	}
	r, _ := utf8.DecodeRuneInString(s)
	return Char(r), nil
}
