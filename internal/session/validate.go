package session

import (
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"
)

// TypeTag names the kind of value an input request expects. Integer tags
// may carry the target width, as in "integer:u8" or "integer:i32"; the bare
// "integer" tag means a signed 64-bit value.
type TypeTag string

const (
	TagInteger TypeTag = "integer"
	TagFloat   TypeTag = "float"
	TagBool    TypeTag = "bool"
	TagChar    TypeTag = "char"
	TagText    TypeTag = "text"
)

// IntegerTag returns the integer tag for a signed or unsigned type of the
// given bit size.
func IntegerTag(signed bool, bits int) TypeTag {
	sign := "u"
	if signed {
		sign = "i"
	}
	return TagInteger + TypeTag(":"+sign+strconv.Itoa(bits))
}

// Base drops the width suffix of an integer tag.
func (t TypeTag) Base() TypeTag {
	base, _, _ := strings.Cut(string(t), ":")
	return TypeTag(base)
}

// intWidth reports the signedness and bit size an integer tag asks for.
func (t TypeTag) intWidth() (signed bool, bits int) {
	_, width, ok := strings.Cut(string(t), ":")
	if !ok || len(width) < 2 || (width[0] != 'i' && width[0] != 'u') {
		return true, 64
	}
	n, err := strconv.Atoi(width[1:])
	if err != nil || n <= 0 || n > 64 {
		return true, 64
	}
	return width[0] == 'i', n
}

type ValidationError struct {
	Tag     TypeTag
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validate reports whether value can be read as tag. Text and unknown tags
// accept anything.
func Validate(value string, tag TypeTag) error {
	v := strings.TrimSpace(value)
	switch tag.Base() {
	case TagInteger:
		if v == "" {
			return &ValidationError{Tag: tag, Message: "cannot parse integer from empty string"}
		}
		if msg := checkInteger(v, tag); msg != "" {
			return &ValidationError{Tag: tag, Message: msg}
		}
	case TagFloat:
		if v == "" {
			return &ValidationError{Tag: tag, Message: "cannot parse float from empty string"}
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil && !errors.Is(err, strconv.ErrRange) {
			return &ValidationError{Tag: tag, Message: "invalid float literal"}
		}
	case TagBool:
		if !strings.EqualFold(v, "true") && !strings.EqualFold(v, "false") {
			return &ValidationError{Tag: tag, Message: "provided string was not 'true' or 'false'"}
		}
	case TagChar:
		switch utf8.RuneCountInString(v) {
		case 0:
			return &ValidationError{Tag: tag, Message: "cannot parse char from empty string"}
		case 1:
		default:
			return &ValidationError{Tag: tag, Message: "too many characters in string"}
		}
	}
	return nil
}

func checkInteger(v string, tag TypeTag) string {
	signed, bits := tag.intWidth()
	var err error
	if signed {
		_, err = strconv.ParseInt(v, 10, bits)
	} else {
		_, err = strconv.ParseUint(v, 10, bits)
	}
	switch {
	case err == nil:
		return ""
	case !errors.Is(err, strconv.ErrRange):
		return "invalid digit found in string"
	case strings.HasPrefix(v, "-"):
		return "number too small to fit in target type"
	default:
		return "number too large to fit in target type"
	}
}
