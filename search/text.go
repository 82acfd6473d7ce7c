package search

import "strings"

const wordPunctuation = ".,!?;:'\"-()[]{}"

// stopWords are excluded when matching query words against chunk text.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true,
}

// tokenizeAndFilter lowercases text, strips surrounding punctuation, and
// drops stop words.
func tokenizeAndFilter(text string) []string {
	var tokens []string
	for _, field := range strings.Fields(text) {
		token := strings.ToLower(strings.Trim(field, wordPunctuation))
		if token == "" || stopWords[token] {
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}

// containsAllQueryWords reports whether every significant query word appears
// in the chunk text. An all-stop-word query matches nothing.
func containsAllQueryWords(chunkText, query string) bool {
	queryTokens := tokenizeAndFilter(query)
	if len(queryTokens) == 0 {
		return false
	}

	seen := make(map[string]bool)
	for _, token := range tokenizeAndFilter(chunkText) {
		seen[token] = true
	}
	for _, token := range queryTokens {
		if !seen[token] {
			return false
		}
	}
	return true
}
