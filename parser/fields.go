package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	errEmptyPayload = errors.New("payload is empty")
	errNotObject    = errors.New("payload must be a JSON object")
	errMalformed    = errors.New("malformed payload")
)

// object is a decoded JSON object whose values are still raw
type object map[string]json.RawMessage

func decodeObject(payload json.RawMessage) (object, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, errEmptyPayload
	}
	if trimmed[0] != '{' {
		// well formed JSON of another kind is reported as such
		var v interface{}
		if err := codec.Unmarshal(trimmed, &v); err != nil {
			return nil, fmt.Errorf("%w: %s", errMalformed, err)
		}
		return nil, errNotObject
	}
	var o object
	if err := codec.Unmarshal(trimmed, &o); err != nil {
		return nil, fmt.Errorf("%w: %s", errMalformed, err)
	}
	return o, nil
}

func (o object) has(key string) bool {
	_, ok := o[key]
	return ok
}

func (o object) null(key string) bool {
	return bytes.Equal(bytes.TrimSpace(o[key]), []byte("null"))
}

// str reads a non-empty string field
func (o object) str(key string) (string, error) {
	if !o.has(key) || o.null(key) {
		return "", fmt.Errorf("missing field: %s", key)
	}
	var s string
	if err := codec.Unmarshal(o[key], &s); err != nil {
		return "", fmt.Errorf("field %s must be a string", key)
	}
	if s == "" {
		return "", fmt.Errorf("field %s must not be empty", key)
	}
	return s, nil
}

// text reads a non-empty scalar field, numbers are kept in their JSON spelling
func (o object) text(key string) (string, error) {
	if !o.has(key) || o.null(key) {
		return "", fmt.Errorf("missing field: %s", key)
	}
	raw := bytes.TrimSpace(o[key])
	var s string
	if err := codec.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return "", fmt.Errorf("field %s must not be empty", key)
		}
		return s, nil
	}
	if _, err := strconv.ParseFloat(string(raw), 64); err == nil {
		return string(raw), nil
	}
	return "", fmt.Errorf("field %s must be a string or a number", key)
}

// num reads a numeric field
func (o object) num(key string) (float64, error) {
	if !o.has(key) || o.null(key) {
		return 0, fmt.Errorf("missing field: %s", key)
	}
	var f float64
	if err := codec.Unmarshal(o[key], &f); err != nil {
		return 0, fmt.Errorf("field %s must be a number", key)
	}
	return f, nil
}

// optStr reads a string field, returning "" when it is absent or malformed
func (o object) optStr(key string) string {
	s, err := o.str(key)
	if err != nil {
		return ""
	}
	return s
}

// optNum reads a numeric field, returning nil when it is absent or malformed
func (o object) optNum(key string) *float64 {
	f, err := o.num(key)
	if err != nil {
		return nil
	}
	return &f
}

// optRaw returns the raw value of a field, nil when absent
func (o object) optRaw(key string) json.RawMessage {
	if !o.has(key) {
		return nil
	}
	return o[key]
}
