// Package normalizer turns loosely shaped webhook responses from n8n agent
// workflows (and other AI backends) into canonical content bundles.
package normalizer

import (
	"fmt"
	"strings"
)

// Kind classifies a normalized payload.
type Kind int

const (
	// KindRawText is a payload that could not be classified as structured
	// content. It is shown to the user as literal text.
	KindRawText Kind = iota
	KindStructured
	KindEmpty
	KindError
)

var kindNames = map[Kind]string{
	KindRawText:    "raw_text",
	KindStructured: "structured",
	KindEmpty:      "empty",
	KindError:      "error",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(b)))
	for kind, name := range kindNames {
		if name == s {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown kind %q", s)
}

// EmailMessage is one mail of an email series.
type EmailMessage struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// ContentBundle is the canonical content unit. All sequence fields are
// non-nil once a bundle leaves this package.
type ContentBundle struct {
	TopicArea        string         `json:"topicArea"`
	Title            string         `json:"title"`
	PillarContent    []string       `json:"pillarContent"`
	SupportContent   []string       `json:"supportContent"`
	MetaTags         []string       `json:"metaTags"`
	SocialMediaPosts []string       `json:"socialMediaPosts"`
	EmailSeries      []EmailMessage `json:"emailSeries"`
	Reasoning        map[string]any `json:"reasoning"`
}

// Present reports whether at least one content sequence is non-empty.
func (b ContentBundle) Present() bool {
	return len(b.PillarContent) > 0 ||
		len(b.SupportContent) > 0 ||
		len(b.MetaTags) > 0 ||
		len(b.SocialMediaPosts) > 0 ||
		len(b.EmailSeries) > 0
}

// Text flattens the bundle into plain text, section by section.
func (b ContentBundle) Text() string {
	var parts []string
	parts = append(parts, b.PillarContent...)
	parts = append(parts, b.SupportContent...)
	parts = append(parts, b.SocialMediaPosts...)
	for _, e := range b.EmailSeries {
		if e.Subject != "" {
			parts = append(parts, e.Subject+"\n\n"+e.Body)
		} else {
			parts = append(parts, e.Body)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}

func (b *ContentBundle) fillDefaults() {
	if b.PillarContent == nil {
		b.PillarContent = []string{}
	}
	if b.SupportContent == nil {
		b.SupportContent = []string{}
	}
	if b.MetaTags == nil {
		b.MetaTags = []string{}
	}
	if b.SocialMediaPosts == nil {
		b.SocialMediaPosts = []string{}
	}
	if b.EmailSeries == nil {
		b.EmailSeries = []EmailMessage{}
	}
	if b.Reasoning == nil {
		b.Reasoning = map[string]any{}
	}
}

// Context carries caller-side defaults for bundles that do not name
// themselves.
type Context struct {
	TopicArea string `json:"topicArea"`
	Title     string `json:"title"`
}

// Result is the outcome of one Normalize call. It is never mutated after
// Normalize returns.
type Result struct {
	Kind         Kind            `json:"kind"`
	Bundles      []ContentBundle `json:"bundles"`
	Title        string          `json:"title"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
	RawText      string          `json:"rawText"`
}

// Canonical returns a copy of b with every sequence and the reasoning map
// non-nil, so it serializes the same way as a bundle produced by Normalize.
func Canonical(b ContentBundle) ContentBundle {
	b.fillDefaults()
	return b
}
