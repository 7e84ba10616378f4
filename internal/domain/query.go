package domain

import "strings"

// DefaultMood is the tone used when a query does not name one.
const DefaultMood = "supportive"

// Query is a single question asked of the corpus.
type Query struct {
	Question string
	Mood     string
}

// NewQuery builds a Query, falling back to DefaultMood for a blank mood.
func NewQuery(question, mood string) Query {
	if strings.TrimSpace(mood) == "" {
		mood = DefaultMood
	}
	return Query{Question: question, Mood: mood}
}

// Answer is the generated reply together with the chunks it was grounded on.
type Answer struct {
	Text    string
	Sources []ScoredChunk
}
