package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Quantity decodes a whole-number count sent either as a JSON number or a
// numeric string. Fractions and non-numeric text are rejected.
type Quantity int

// UnmarshalJSON implements json.Unmarshaler.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*q = 0
		return nil
	}

	text := string(trimmed)
	if trimmed[0] == '"' {
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			*q = 0
			return nil
		}
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return fmt.Errorf("quantity %q is not a number", text)
	}
	if f != float64(int64(f)) {
		return fmt.Errorf("quantity %q must be a whole number", text)
	}
	*q = Quantity(int64(f))
	return nil
}

// ImageRef accepts either a single image URL or a list of URLs and keeps the
// first one.
type ImageRef string

// UnmarshalJSON implements json.Unmarshaler.
func (i *ImageRef) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*i = ""
		return nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*i = ImageRef(strings.TrimSpace(s))
		return nil
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return err
		}
		*i = ""
		if len(list) == 0 {
			return nil
		}
		return i.UnmarshalJSON(list[0])
	case '{':
		var obj struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return err
		}
		*i = ImageRef(strings.TrimSpace(obj.URL))
		return nil
	default:
		return fmt.Errorf("unsupported image value %s", string(trimmed))
	}
}

// FlexString decodes strings, numbers and booleans into their text form.
// Checkout forms post phone numbers and sizes as either.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		return fmt.Errorf("expected text, got %s", string(trimmed))
	}
	*f = FlexString(trimmed)
	return nil
}

// FlexBool decodes booleans sent as JSON booleans or "true"/"false" strings.
type FlexBool bool

// UnmarshalJSON implements json.Unmarshaler.
func (b *FlexBool) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*b = false
		return nil
	}
	text := string(trimmed)
	if trimmed[0] == '"' {
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return err
		}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		*b = false
		return nil
	}
	parsed, err := strconv.ParseBool(text)
	if err != nil {
		return fmt.Errorf("invalid boolean %q", text)
	}
	*b = FlexBool(parsed)
	return nil
}
