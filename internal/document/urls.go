package document

import (
	"strings"

	"mvdan.cc/xurls/v2"
)

//nolint:gochecknoglobals // compiled once, read-only
var httpURLRe = xurls.Strict()

// findURLs returns every http(s) URL in text, in order of appearance.
func findURLs(text string) []string {
	var urls []string
	for _, u := range httpURLRe.FindAllString(text, -1) {
		lower := strings.ToLower(u)
		if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
			urls = append(urls, u)
		}
	}

	return urls
}

// SoleURL reports whether text consists of exactly one http(s) URL and
// nothing else.
func SoleURL(text string) (string, bool) {
	text = strings.TrimSpace(text)

	urls := findURLs(text)
	if len(urls) != 1 || urls[0] != text {
		return "", false
	}

	return urls[0], true
}
