package normalizer

import (
	"encoding/json"
	"strings"
)

// contentKeys are the payload keys that mark an object as structured content.
var contentKeys = []string{
	"pillarContent",
	"supportContent",
	"supportPages",
	"socialMediaPosts",
	"socialMedia",
	"socialPosts",
	"emailSeries",
	"email",
	"emailCampaign",
	"reasoning",
}

// Classify tags an already decoded JSON value. Empty is checked first, then
// Error, then Structured; everything else is raw text.
func Classify(value any) Kind {
	if isEmpty(value) {
		return KindEmpty
	}
	if isErrorShaped(value) {
		return KindError
	}
	if isStructured(value) {
		return KindStructured
	}
	return KindRawText
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	}
	return false
}

func isErrorShaped(value any) bool {
	switch v := value.(type) {
	case string:
		return strings.Contains(strings.ToLower(v), "error in workflow")
	case map[string]any:
		return isErrorObject(v)
	case []any:
		if len(v) > 0 {
			if obj, ok := v[0].(map[string]any); ok {
				return isErrorObject(obj)
			}
		}
	}
	return false
}

func isErrorObject(obj map[string]any) bool {
	if truthy(obj["error"]) {
		return true
	}
	if msg, ok := obj["message"].(string); ok {
		return strings.Contains(strings.ToLower(msg), "error")
	}
	return false
}

func isStructured(value any) bool {
	switch v := value.(type) {
	case map[string]any:
		return hasContentKey(v)
	case []any:
		if len(v) > 0 {
			if obj, ok := v[0].(map[string]any); ok {
				return hasContentKey(obj)
			}
		}
	}
	return false
}

func hasContentKey(obj map[string]any) bool {
	for _, k := range contentKeys {
		if _, ok := obj[k]; ok {
			return true
		}
	}
	return false
}

// truthy follows JavaScript truthiness for decoded JSON values.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	case float64:
		return t != 0
	}
	return true
}

// errorMessage pulls a human readable message out of an error-shaped value.
func errorMessage(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case []any:
		if len(v) > 0 {
			return errorMessage(v[0])
		}
	case map[string]any:
		switch e := v["error"].(type) {
		case string:
			if e != "" {
				return e
			}
		case map[string]any:
			if msg, ok := e["message"].(string); ok && msg != "" {
				return msg
			}
		}
		if msg, ok := v["message"].(string); ok {
			return msg
		}
	}
	return "unknown error"
}
