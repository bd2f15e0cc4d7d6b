// Package tokenizer turns post titles into index terms. Titles split on the
// single space character, each raw token is checked for relevance markers,
// and the index term is the token with every non-letter rune removed.
package tokenizer

import (
	"strings"
	"unicode"
)

// Token is one space-delimited piece of a title.
type Token struct {
	Raw    string
	Term   string
	Marker bool
}

// Split breaks a title on ' ' only. Repeated spaces produce empty tokens,
// which normalise to nothing and are dropped by the indexer.
func Split(title string) []string {
	return strings.Split(title, " ")
}

// Normalize keeps only the letters of tok, preserving case.
func Normalize(tok string) string {
	var b strings.Builder
	b.Grow(len(tok))
	for _, r := range tok {
		if unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// HasMarker reports whether the lower-cased raw token contains any marker.
func HasMarker(tok string, markers []string) bool {
	if len(markers) == 0 {
		return false
	}
	lower := strings.ToLower(tok)
	for _, m := range markers {
		if m != "" && strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// Tokenize returns every token of title with its normalised term and marker
// flag. Tokens whose term is empty are kept so callers still see markers on
// pure-emoji tokens.
func Tokenize(title string, markers []string) []Token {
	parts := Split(title)
	tokens := make([]Token, 0, len(parts))
	for _, raw := range parts {
		tokens = append(tokens, Token{
			Raw:    raw,
			Term:   Normalize(raw),
			Marker: HasMarker(raw, markers),
		})
	}
	return tokens
}
