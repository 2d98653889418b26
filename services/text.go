package services

import (
	"regexp"
	"strings"
	"unicode"

	"content-hub/normalizer"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	ligatures = strings.NewReplacer(
		"ﬁ", "fi",
		"ﬂ", "fl",
		"ﬀ", "ff",
		"ﬃ", "ffi",
		"ﬄ", "ffl",
		"ﬆ", "st",
	)
	horizontalSpace = regexp.MustCompile("[\t\f\v\u00a0 ]+")
	manyNewlines    = regexp.MustCompile(`\n{3,}`)
)

// searchText baut den flachen Text eines Bundles für Suche und Vorschau:
// NFC, ohne Ligaturen, Leerraum zusammengefasst.
func searchText(b normalizer.ContentBundle) string {
	s := ligatures.Replace(b.Text())
	s, _, _ = transform.String(norm.NFC, s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = horizontalSpace.ReplaceAllString(s, " ")
	s = manyNewlines.ReplaceAllString(s, "\n\n")

	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimFunc(lines[i], unicode.IsSpace)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
