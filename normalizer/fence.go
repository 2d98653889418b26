package normalizer

import (
	"regexp"
	"strings"
)

var (
	jsonFence = regexp.MustCompile("(?is)```json(.*?)```")
	anyFence  = regexp.MustCompile("(?s)```(.*?)```")
)

// ExtractFencedBlock returns the trimmed body of the first ```json block, or
// of the first untagged ``` block when no json-tagged block exists. The
// content is not parsed.
func ExtractFencedBlock(text string) (string, bool) {
	if m := jsonFence.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	if m := anyFence.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	return "", false
}
