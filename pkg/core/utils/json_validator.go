package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
)

// DecodeModelJSON decodes a model reply that must consist of exactly one JSON
// object into schema, then checks required fields with ValidateRequired.
// A single wrapping markdown code fence is tolerated; prose before or after
// the object is not.
func DecodeModelJSON(raw string, schema interface{}) error {
	body := StripCodeFence(raw)
	if body == "" {
		return errors.New("JSON_EMPTY_RESPONSE: model returned no content")
	}
	if !strings.HasPrefix(body, "{") || !strings.HasSuffix(body, "}") {
		return fmt.Errorf("JSON_NOT_OBJECT: reply is not a bare JSON object: %s", Truncate(body, 120))
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	if err := dec.Decode(schema); err != nil {
		return fmt.Errorf("JSON_STRUCTURAL_ERROR: %v", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("JSON_TRAILING_DATA: unexpected content after the JSON object")
	}

	return ValidateRequired(schema)
}

// ValidateRequired implements the "Instructor" pattern: the Go struct is the
// source of truth for model output. Every field must be non-zero unless its
// json tag carries omitempty; strings made only of whitespace count as zero.
func ValidateRequired(schema interface{}) error {
	v := reflect.ValueOf(schema)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag := sf.Tag.Get("json")
		if tag == "-" || strings.Contains(tag, ",omitempty") {
			continue
		}
		name := strings.Split(tag, ",")[0]
		if name == "" {
			name = sf.Name
		}

		field := v.Field(i)
		missing := field.IsZero()
		if field.Kind() == reflect.String && strings.TrimSpace(field.String()) == "" {
			missing = true
		}
		if missing {
			return fmt.Errorf("JSON_SCHEMA_VIOLATION: Required field '%s' is missing or empty", name)
		}
	}
	return nil
}

// Truncate shortens s to at most n runes for log and error messages.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
