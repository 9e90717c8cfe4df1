package domain

import "time"

// Source names the channel a document arrived through.
type Source string

const (
	SourceText     Source = "text"
	SourceFile     Source = "file"
	SourceURL      Source = "url"
	SourceTelegram Source = "telegram"
)

type Document struct {
	Title  string
	Source Source
	// Origin is the file name or URL the text was taken from, if any.
	Origin string
	Text   string
}

type Summary struct {
	ID           string
	Source       Source
	Origin       string
	Title        string
	InputChars   int
	ChunkCount   int
	ReduceRounds int
	Text         string
	Duration     time.Duration
	CreatedAt    time.Time
}
