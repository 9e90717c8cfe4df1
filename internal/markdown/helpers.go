package markdown

import "strings"

// Taken from https://core.telegram.org/bots/api#markdownv2-style.
const mdV2SpecialChars = `\_*[](){}#|!+-=~>.` + "`"

//nolint:gochecknoglobals // read-only lookup table
var mdV2Lookup = mdV2SpecialCharLookup()

// EscapeV2 escapes every MarkdownV2 special character of input.
func EscapeV2(input string) string {
	charsToEscape := 0

	for i := range len(input) {
		if mdV2Lookup[input[i]] {
			charsToEscape++
		}
	}
	if charsToEscape == 0 {
		return input
	}

	var b strings.Builder
	b.Grow(len(input) + charsToEscape)

	for i := range len(input) {
		c := input[i]
		if mdV2Lookup[c] {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}

	return b.String()
}

// EscapedLen is len(EscapeV2(input)) without building the string.
func EscapedLen(input string) int {
	n := len(input)
	for i := range len(input) {
		if mdV2Lookup[input[i]] {
			n++
		}
	}

	return n
}

func Bold(input string) string {
	return "*" + EscapeV2(input) + "*"
}

func Italic(input string) string {
	return "_" + EscapeV2(input) + "_"
}

func mdV2SpecialCharLookup() [256]bool {
	var m [256]bool
	for _, c := range []byte(mdV2SpecialChars) {
		m[c] = true
	}
	return m
}
