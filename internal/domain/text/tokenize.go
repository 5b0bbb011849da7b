package text

import (
	"regexp"
	"strings"
)

var (
	wordRe      = regexp.MustCompile(`\b[a-z']+\b`)
	alphaRe     = regexp.MustCompile(`[a-z']+`)
	bareWordRe  = regexp.MustCompile(`\b[a-z]+\b`)
	leadWordRe  = regexp.MustCompile(`^[A-Za-z']+`)
	apostropheR = regexp.MustCompile(`'+`)
)

// Tokenize lowercases the text and extracts word tokens, keeping internal
// apostrophes ("don't" stays one token).
func Tokenize(text string) []string {
	return wordRe.FindAllString(strings.ToLower(text), -1)
}

// TokenizeAlpha extracts lowercase tokens with apostrophes stripped, the
// normalization used for dictionary lookups ("don't" becomes "dont").
func TokenizeAlpha(text string) []string {
	raw := alphaRe.FindAllString(strings.ToLower(text), -1)
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		t = apostropheR.ReplaceAllString(t, "")
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// TypeCount returns the number of distinct tokens.
func TypeCount(tokens []string) int {
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		seen[t] = struct{}{}
	}
	return len(seen)
}

// SplitSentences breaks text after terminal punctuation followed by
// whitespace, and on newlines. Empty fragments are dropped.
func SplitSentences(text string) []string {
	var out []string
	var cur strings.Builder
	flush := func() {
		s := strings.TrimSpace(cur.String())
		if s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\n' {
			flush()
			continue
		}
		cur.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if i+1 < len(runes) && (runes[i+1] == ' ' || runes[i+1] == '\t') {
				flush()
			}
		}
	}
	flush()
	return out
}
