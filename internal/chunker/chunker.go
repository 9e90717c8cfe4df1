// Package chunker splits documents into bounded, sentence-aligned chunks.
package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultMaxChunkSize is the chunk bound in characters used when none is configured.
	DefaultMaxChunkSize = 2048

	sentenceDelimiter = ". "
)

// Split greedily packs whole sentences into chunks of at most maxChunkSize
// characters. A sentence longer than the bound becomes a chunk of its own.
// Sentence text is kept as written; whitespace is trimmed only at chunk
// edges, so input that fits the bound comes back as the trimmed input.
// maxChunkSize <= 0 disables the bound.
func Split(text string, maxChunkSize int) []string {
	sentences := Sentences(text)
	if len(sentences) == 0 {
		return nil
	}

	chunks := make([]string, 0, 1)

	var current strings.Builder
	currentLen := 0

	for _, sentence := range sentences {
		sentenceLen := utf8.RuneCountInString(sentence)

		if currentLen > 0 && maxChunkSize > 0 && currentLen+1+sentenceLen > maxChunkSize {
			chunks = append(chunks, strings.TrimRightFunc(current.String(), unicode.IsSpace))
			current.Reset()
			currentLen = 0
		}

		if currentLen == 0 {
			sentence = strings.TrimLeftFunc(sentence, unicode.IsSpace)
			sentenceLen = utf8.RuneCountInString(sentence)
		} else {
			current.WriteByte(' ')
			currentLen++
		}

		current.WriteString(sentence)
		currentLen += sentenceLen
	}

	if currentLen > 0 {
		chunks = append(chunks, strings.TrimRightFunc(current.String(), unicode.IsSpace))
	}

	return chunks
}

// Sentences splits the trimmed text on ". " and restores the period consumed
// by each delimiter. Pieces are not trimmed, so joining the result with a
// single space reproduces the trimmed text.
func Sentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	parts := strings.Split(text, sentenceDelimiter)
	for i := range len(parts) - 1 {
		parts[i] += "."
	}

	return parts
}
