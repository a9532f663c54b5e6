package expect

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind discriminates expectations.
type Kind string

const (
	// KindText matches against the first textual content item.
	KindText Kind = "text"
	// KindJSON parses the textual content as JSON and optionally checks a field.
	KindJSON Kind = "json"
	// KindObject requires a structured payload with the given keys.
	KindObject Kind = "object"
	// KindAny passes unless the reply signals an error.
	KindAny Kind = "any"
)

// Known reports whether k is one of the supported kinds.
func (k Kind) Known() bool {
	switch k {
	case KindText, KindJSON, KindObject, KindAny:
		return true
	}
	return false
}

// Expectation is a declarative rule judging a tool reply.
type Expectation struct {
	// Type selects the matching rule.
	Type Kind `yaml:"type" json:"type"`
	// Contains requires a substring match when set.
	Contains *string `yaml:"contains,omitempty" json:"contains,omitempty"`
	// Equals requires an exact match when set. Non-string values are compared
	// by their JSON encoding.
	Equals any `yaml:"equals,omitempty" json:"equals,omitempty"`
	// Field is a dot-separated path into a JSON payload (kind json).
	Field string `yaml:"field,omitempty" json:"field,omitempty"`
	// Keys must all be present in the structured payload (kind object).
	Keys []string `yaml:"keys,omitempty" json:"keys,omitempty"`
}

// Validate checks the expectation is well formed.
func (e *Expectation) Validate() error {
	if e == nil {
		return nil
	}
	if !e.Type.Known() {
		return fmt.Errorf("unknown expectation type %q", e.Type)
	}
	if e.Field != "" && e.Type != KindJSON {
		return fmt.Errorf("field is only supported for expectation type %q", KindJSON)
	}
	if len(e.Keys) > 0 && e.Type != KindObject {
		return fmt.Errorf("keys are only supported for expectation type %q", KindObject)
	}
	return nil
}

// Content is one item of a tool result.
type Content struct {
	Type     string  `json:"type,omitempty"`
	Text     *string `json:"text,omitempty"`
	Data     string  `json:"data,omitempty"`
	MimeType string  `json:"mimeType,omitempty"`
}

// Reply is the result of a tools/call request.
type Reply struct {
	Content           []Content `json:"content"`
	IsError           bool      `json:"isError,omitempty"`
	StructuredContent any       `json:"structuredContent,omitempty"`
}

// ParseReply decodes a tools/call result object. Numbers inside structured
// content are kept as json.Number so large integers survive exactly.
func ParseReply(raw json.RawMessage) (*Reply, error) {
	var reply Reply
	if err := decodeJSON([]byte(raw), &reply); err != nil {
		return nil, fmt.Errorf("failed to decode tool result: %w", err)
	}
	return &reply, nil
}

// decodeJSON decodes a single JSON document, keeping numbers as json.Number.
func decodeJSON(data []byte, out any) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(out); err != nil {
		return err
	}
	if decoder.More() {
		return fmt.Errorf("unexpected data after JSON document")
	}
	return nil
}

// TextReply builds a reply with a single text item.
func TextReply(text string, isError bool) *Reply {
	return &Reply{
		Content: []Content{{Type: "text", Text: &text}},
		IsError: isError,
	}
}

// FirstText returns the first textual content item.
func (r *Reply) FirstText() (string, bool) {
	if r == nil {
		return "", false
	}
	for _, c := range r.Content {
		if c.Text == nil {
			continue
		}
		if c.Type == "" || c.Type == "text" {
			return *c.Text, true
		}
	}
	return "", false
}
