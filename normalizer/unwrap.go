package normalizer

import "strings"

// Unwrap resolves one layer of indirection before classification. It
// handles the n8n agent envelope [{"output": ...}] (and the same object
// without the array), as well as bare strings that may carry fenced or
// inline JSON. Only depth 0 unwraps; deeper calls return value unchanged so
// self-referential payloads cannot loop.
func Unwrap(value any, depth int) any {
	if depth > 0 {
		return value
	}
	switch v := value.(type) {
	case string:
		return resolveOutput(v)
	case []any:
		if len(v) == 1 {
			if obj, ok := v[0].(map[string]any); ok {
				if out, ok := outputOf(obj, false); ok {
					return out
				}
			}
		}
	case map[string]any:
		if out, ok := outputOf(v, true); ok {
			return out
		}
	}
	return value
}

// outputOf resolves the "output" field of an envelope object. With exclusive
// set, the object must not carry any other field.
func outputOf(obj map[string]any, exclusive bool) (any, bool) {
	raw, ok := obj["output"]
	if !ok || (exclusive && len(obj) != 1) {
		return nil, false
	}
	switch out := raw.(type) {
	case string:
		return resolveOutput(out), true
	case map[string]any, []any:
		return out, true
	}
	return nil, false
}

// resolveOutput tries fenced JSON, then inline JSON, then gives the string
// back as is.
func resolveOutput(s string) any {
	if block, ok := ExtractFencedBlock(s); ok {
		if v, ok := TryParseJSON(block); ok {
			return v
		}
	}
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		if v, ok := TryParseJSON(trimmed); ok {
			return v
		}
	}
	return s
}
