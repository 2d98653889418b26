package normalizer

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
)

var cleanupReplacer = strings.NewReplacer(`\n`, "", `\"`, `"`)

// TryParseJSON decodes text as JSON. When the direct decode fails it applies
// one lossy cleanup pass for over-escaped output of some n8n nodes: literal
// \n sequences are dropped, \" becomes ", and any remaining backslash is
// doubled. The cleanup can corrupt legitimately escaped content; it is a last
// resort only.
func TryParseJSON(text string) (any, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, false
	}
	if v, err := decode(text); err == nil {
		return v, true
	}

	cleaned := cleanupReplacer.Replace(text)
	cleaned = strings.ReplaceAll(cleaned, `\`, `\\`)
	if v, err := decode(cleaned); err == nil {
		return v, true
	}
	return nil, false
}

// decode keeps numbers as json.Number so large integers survive unchanged.
func decode(text string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after JSON value")
	}
	return v, nil
}
