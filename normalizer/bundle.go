package normalizer

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	blankLine     = regexp.MustCompile(`\r?\n[ \t]*\r?\n`)
	subjectPrefix = regexp.MustCompile(`(?i)^(\s*subject\s*:\s*)+`)
)

// ToBundle maps a payload object onto the canonical bundle. Field aliases are
// tried in order and the first present one wins. Missing fields become empty
// sequences. The title falls back to the resolved topic area last, which
// keeps a second pass over a serialized bundle stable.
func ToBundle(obj map[string]any, ctx Context) ContentBundle {
	b := ContentBundle{
		PillarContent:    toStrings(obj["pillarContent"]),
		SupportContent:   toStrings(first(obj, "supportContent", "supportPages")),
		MetaTags:         toTags(obj["metaTags"]),
		SocialMediaPosts: toStrings(first(obj, "socialMediaPosts", "socialMedia", "socialPosts")),
		EmailSeries:      toEmails(first(obj, "emailSeries", "email", "emailCampaign")),
		Reasoning:        toReasoning(obj["reasoning"]),
	}

	b.TopicArea = stringField(obj, "topicArea")
	if b.TopicArea == "" {
		b.TopicArea = ctx.TopicArea
	}
	b.Title = stringField(obj, "title")
	if b.Title == "" {
		b.Title = stringField(obj, "topicArea")
	}
	if b.Title == "" {
		b.Title = ctx.Title
	}
	if b.Title == "" {
		b.Title = b.TopicArea
	}

	b.fillDefaults()
	return b
}

func first(obj map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return strings.TrimSpace(s)
}

// toStrings materializes a string, an array, or a {content|text|title} object
// as a sequence of non-blank strings.
func toStrings(v any) []string {
	out := []string{}
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if s, ok := itemText(item); ok {
				out = append(out, s)
			}
		}
	default:
		if s, ok := itemText(t); ok {
			out = append(out, s)
		}
	}
	return out
}

func itemText(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		if strings.TrimSpace(t) == "" {
			return "", false
		}
		return t, true
	case map[string]any:
		for _, k := range []string{"content", "text", "title"} {
			if s, ok := t[k].(string); ok && strings.TrimSpace(s) != "" {
				return s, true
			}
		}
		if len(t) == 0 {
			return "", false
		}
		raw, err := json.Marshal(t)
		if err != nil {
			return "", false
		}
		return string(raw), true
	case nil:
		return "", false
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return "", false
	}
	return string(raw), true
}

func toTags(v any) []string {
	if s, ok := v.(string); ok {
		tags := []string{}
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				tags = append(tags, part)
			}
		}
		return tags
	}
	return toStrings(v)
}

func toEmails(v any) []EmailMessage {
	out := []EmailMessage{}
	items, ok := v.([]any)
	if !ok {
		items = []any{v}
	}
	for _, item := range items {
		if msg, ok := toEmail(item); ok {
			out = append(out, msg)
		}
	}
	return out
}

func toEmail(v any) (EmailMessage, bool) {
	switch t := v.(type) {
	case string:
		return splitEmail(t)
	case map[string]any:
		msg := EmailMessage{
			Subject: stripSubject(stringField(t, "subject")),
			Body:    stringField(t, "body"),
		}
		if msg.Body == "" {
			msg.Body = stringField(t, "content")
		}
		if msg.Subject == "" && msg.Body == "" {
			return EmailMessage{}, false
		}
		return msg, true
	}
	return EmailMessage{}, false
}

// splitEmail splits a plain-text email on its first blank line into subject
// and body.
func splitEmail(s string) (EmailMessage, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return EmailMessage{}, false
	}
	if loc := blankLine.FindStringIndex(s); loc != nil {
		return EmailMessage{
			Subject: stripSubject(strings.TrimSpace(s[:loc[0]])),
			Body:    strings.TrimSpace(s[loc[1]:]),
		}, true
	}
	if subjectPrefix.MatchString(s) {
		line, rest, _ := strings.Cut(s, "\n")
		return EmailMessage{
			Subject: stripSubject(strings.TrimSpace(line)),
			Body:    strings.TrimSpace(rest),
		}, true
	}
	return EmailMessage{Body: s}, true
}

func stripSubject(s string) string {
	return strings.TrimSpace(subjectPrefix.ReplaceAllString(s, ""))
}

func toReasoning(v any) map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return t
	case string:
		if strings.TrimSpace(t) != "" {
			return map[string]any{"summary": t}
		}
	}
	return map[string]any{}
}
