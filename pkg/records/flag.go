package records

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Flag is a boolean that accepts the representations seen across the local
// store and the remote API: 0/1, true/false, and their quoted forms.
type Flag bool

// ParseFlag normalizes a textual flag value.
func ParseFlag(s string) (Flag, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "t", "yes":
		return true, nil
	case "0", "false", "f", "no", "":
		return false, nil
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n != 0, nil
	}
	return false, fmt.Errorf("invalid flag value %q", s)
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = false
		return nil
	}
	v, err := ParseFlag(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// MarshalJSON implements json.Marshaler.
func (f Flag) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatBool(bool(f))), nil
}

// Int returns the 0/1 storage form.
func (f Flag) Int() int {
	if f {
		return 1
	}
	return 0
}
