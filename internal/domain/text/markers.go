package text

import (
	"regexp"
	"strings"
)

var linkingWords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"and", "but", "or", "so", "yet", "for", "nor",
		"because", "since", "as", "due to", "as a result", "therefore", "thus", "hence", "consequently",
		"although", "though", "even though", "whereas", "while", "however", "nevertheless", "nonetheless",
		"on the other hand", "in contrast", "alternatively", "instead",
		"in addition", "furthermore", "moreover", "also", "besides", "not only that", "as well as",
		"indeed", "in fact", "especially", "significantly", "particularly", "above all", "notably",
		"for example", "for instance", "such as", "like", "including", "to illustrate",
		"then", "after that", "before that", "meanwhile", "subsequently", "eventually",
		"at the same time", "finally", "firstly", "secondly", "thirdly", "next", "lastly", "ultimately",
	} {
		linkingWords[w] = struct{}{}
	}
}

var discourseMarkers = []string{
	"you know", "i mean", "like", "well", "actually", "basically", "anyway",
	"to be honest", "frankly", "seriously", "believe me", "i suppose", "i guess",
	"first of all", "secondly", "finally", "to begin with", "in conclusion",
	"on the one hand", "on the other hand", "next", "then", "after that",
	"eventually", "at the same time", "meanwhile", "in the meantime",
	"in fact", "as a matter of fact", "indeed", "certainly", "definitely",
}

var filledPauses = []string{
	"um", "uh", "er", "ah", "eh", "hmm", "mm", "umm", "uhh", "ehm",
	"uh-huh", "mm-hmm", "mhm", "huh", "ugh", "tsk",
}

var nonAlphaSpaceRe = regexp.MustCompile(`[^a-z\s]`)
var spaceRunRe = regexp.MustCompile(`\s+`)

// MarkerCounts are cohesion signals counted over a transcript. Linking is the
// number of distinct linking words among the tokens; Discourse and Filled
// count distinct phrases present anywhere in the text.
type MarkerCounts struct {
	Linking   int
	Discourse int
	Filled    int
}

// CountMarkers scans the transcript for linking words, spoken discourse
// markers and filled pauses. Multi-word markers tolerate flexible spacing.
func CountMarkers(transcript string) MarkerCounts {
	tokens := Tokenize(transcript)
	joined := strings.Join(tokens, " ")
	cleaned := strings.ToLower(transcript)
	cleaned = nonAlphaSpaceRe.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(spaceRunRe.ReplaceAllString(cleaned, " "))

	var counts MarkerCounts
	seen := make(map[string]struct{})
	for _, t := range tokens {
		if _, ok := linkingWords[t]; ok {
			seen[t] = struct{}{}
		}
	}
	counts.Linking = len(seen)

	for _, m := range discourseMarkers {
		if phraseRegex(m).MatchString(cleaned) {
			counts.Discourse++
		}
	}
	for _, f := range filledPauses {
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(f) + `\b`)
		if re.MatchString(joined) {
			counts.Filled++
		}
	}
	return counts
}

func phraseRegex(phrase string) *regexp.Regexp {
	parts := strings.Fields(phrase)
	return regexp.MustCompile(`(?i)\b` + strings.Join(parts, `\s+`) + `\b`)
}
