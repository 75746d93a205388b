package session

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		value   string
		tag     TypeTag
		wantErr string
	}{
		{"42", TagInteger, ""},
		{" -7 ", TagInteger, ""},
		{"abc", TagInteger, "invalid digit found in string"},
		{"", TagInteger, "cannot parse integer from empty string"},
		{"99999999999999999999", TagInteger, "number too large to fit in target type"},
		{"-99999999999999999999", TagInteger, "number too small to fit in target type"},
		{"255", IntegerTag(false, 8), ""},
		{"300", IntegerTag(false, 8), "number too large to fit in target type"},
		{"-5", IntegerTag(false, 8), "invalid digit found in string"},
		{"-5", IntegerTag(false, 64), "invalid digit found in string"},
		{"-128", IntegerTag(true, 8), ""},
		{"-129", IntegerTag(true, 8), "number too small to fit in target type"},
		{"2147483648", IntegerTag(true, 32), "number too large to fit in target type"},
		{"18446744073709551615", IntegerTag(false, 64), ""},
		{"3.14", TagFloat, ""},
		{"1e3", TagFloat, ""},
		{"1e400", TagFloat, ""},
		{"pi", TagFloat, "invalid float literal"},
		{"true", TagBool, ""},
		{"TRUE", TagBool, ""},
		{"False", TagBool, ""},
		{"yes", TagBool, "provided string was not 'true' or 'false'"},
		{"x", TagChar, ""},
		{"é", TagChar, ""},
		{"xy", TagChar, "too many characters in string"},
		{"  ", TagChar, "cannot parse char from empty string"},
		{"anything", TagText, ""},
		{"", TagText, ""},
		{"whatever", TypeTag("ipaddr"), ""},
	}

	for _, tt := range tests {
		err := Validate(tt.value, tt.tag)
		if tt.wantErr == "" {
			if err != nil {
				t.Errorf("Validate(%q, %s) error = %v, want nil", tt.value, tt.tag, err)
			}
			continue
		}
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("Validate(%q, %s) error = %v, want *ValidationError", tt.value, tt.tag, err)
			continue
		}
		if verr.Error() != tt.wantErr || verr.Tag != tt.tag {
			t.Errorf("Validate(%q, %s) = %q (%s), want %q", tt.value, tt.tag, verr.Error(), verr.Tag, tt.wantErr)
		}
	}
}

func TestTypeTagBase(t *testing.T) {
	tests := []struct {
		tag  TypeTag
		want TypeTag
	}{
		{IntegerTag(false, 8), TagInteger},
		{IntegerTag(true, 64), TagInteger},
		{TagInteger, TagInteger},
		{TagFloat, TagFloat},
	}
	for _, tt := range tests {
		if got := tt.tag.Base(); got != tt.want {
			t.Errorf("%q.Base() = %q, want %q", tt.tag, got, tt.want)
		}
	}
	if got := IntegerTag(false, 16); got != "integer:u16" {
		t.Errorf("IntegerTag(false, 16) = %q", got)
	}
}
