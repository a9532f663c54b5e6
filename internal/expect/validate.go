// Package expect judges tool replies against declarative expectations.
//
// Validation is a pure function. A reply flagged as an error never passes,
// whatever the expectation says, and an unknown expectation kind fails closed.
package expect

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Result is the outcome of a validation with a human-readable reason on failure.
type Result struct {
	Passed bool
	Reason string
}

func pass() Result {
	return Result{Passed: true}
}

func fail(format string, args ...any) Result {
	return Result{Reason: fmt.Sprintf(format, args...)}
}

// Passes reports whether reply satisfies exp.
func Passes(reply *Reply, exp *Expectation) bool {
	return Validate(reply, exp).Passed
}

// Validate judges reply against exp. A nil expectation accepts any
// non-error reply.
func Validate(reply *Reply, exp *Expectation) Result {
	if reply == nil {
		return fail("no reply")
	}
	if reply.IsError {
		text, _ := reply.FirstText()
		return fail("tool reported an error: %s", text)
	}
	if exp == nil {
		return pass()
	}

	switch exp.Type {
	case KindText:
		return validateText(reply, exp)
	case KindJSON:
		return validateJSON(reply, exp)
	case KindObject:
		return validateObject(reply, exp)
	case KindAny:
		return pass()
	default:
		return fail("unknown expectation type %q", exp.Type)
	}
}

func validateText(reply *Reply, exp *Expectation) Result {
	text, ok := reply.FirstText()
	if !ok {
		return fail("reply has no text content")
	}
	if exp.Contains == nil && exp.Equals == nil && text == "" {
		return fail("reply text is empty")
	}
	return match(text, exp)
}

func validateJSON(reply *Reply, exp *Expectation) Result {
	var doc any
	if text, ok := reply.FirstText(); ok {
		if err := decodeJSON([]byte(text), &doc); err != nil {
			return fail("reply text is not JSON: %v", err)
		}
	} else if reply.StructuredContent != nil {
		doc = reply.StructuredContent
	} else {
		return fail("reply has no JSON content")
	}

	if exp.Field == "" {
		if exp.Contains == nil && exp.Equals == nil {
			return pass()
		}
		return match(stringify(doc), exp)
	}

	value, ok := Lookup(doc, exp.Field)
	if !ok {
		return fail("field %q not found", exp.Field)
	}
	if exp.Contains == nil && exp.Equals == nil {
		return pass()
	}
	return match(stringify(value), exp)
}

func validateObject(reply *Reply, exp *Expectation) Result {
	if reply.StructuredContent == nil {
		return fail("reply has no structured content")
	}
	if len(exp.Keys) == 0 {
		return pass()
	}
	obj, ok := reply.StructuredContent.(map[string]any)
	if !ok {
		return fail("structured content is not an object")
	}
	for _, key := range exp.Keys {
		if _, exists := obj[key]; !exists {
			return fail("structured content is missing key %q", key)
		}
	}
	return pass()
}

// match applies the contains/equals rules to an extracted value.
func match(actual string, exp *Expectation) Result {
	if exp.Contains != nil && !strings.Contains(actual, *exp.Contains) {
		return fail("%q does not contain %q", truncate(actual), *exp.Contains)
	}
	if exp.Equals != nil {
		want := stringify(exp.Equals)
		if actual != want {
			return fail("%q does not equal %q", truncate(actual), want)
		}
	}
	return pass()
}

// Lookup resolves a dot-separated path. Numeric segments index arrays.
func Lookup(doc any, path string) (any, bool) {
	current := doc
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return "null"
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return formatNumber(val)
	}
	data, err := json.Marshal(normalize(v))
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// formatNumber renders integers digit for digit and other numbers the way a
// float64 would print, so "1.0" and 1 compare equal.
func formatNumber(n json.Number) string {
	if !strings.ContainsAny(n.String(), ".eE") {
		return n.String()
	}
	f, err := n.Float64()
	if err != nil {
		return n.String()
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// normalize converts map[interface{}]interface{} values, which YAML decoding
// can produce, into JSON-encodable maps.
func normalize(v any) any {
	switch val := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = normalize(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	}
	return v
}

func truncate(s string) string {
	return runewidth.Truncate(s, 120, "...")
}
