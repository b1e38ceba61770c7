package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// unwrapList finds the array in a response that may be a bare array or an
// object wrapping it under one of keys. Nested paths use a dot, e.g.
// "data.machines".
func unwrapList(body []byte, keys ...string) (json.RawMessage, error) {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		return body, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	for _, key := range keys {
		if v, ok := lookupPath(obj, key); ok && isArray(v) {
			return v, nil
		}
	}
	return json.RawMessage("[]"), nil
}

// unwrapObject returns the object under "data" when present, else body.
func unwrapObject(body []byte) json.RawMessage {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return body
	}
	if v, ok := obj["data"]; ok {
		v = bytes.TrimSpace(v)
		if len(v) > 0 && v[0] == '{' {
			return v
		}
	}
	return body
}

func lookupPath(obj map[string]json.RawMessage, path string) (json.RawMessage, bool) {
	head, rest, nested := strings.Cut(path, ".")
	v, ok := obj[head]
	if !ok {
		return nil, false
	}
	if !nested {
		return v, true
	}
	var inner map[string]json.RawMessage
	if err := json.Unmarshal(v, &inner); err != nil {
		return nil, false
	}
	return lookupPath(inner, rest)
}

func isArray(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	return len(v) > 0 && v[0] == '['
}

// messageFrom extracts the "message" field of an error body, if any.
func messageFrom(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}
