package text

import (
	"math"
	"regexp"
	"strings"
)

func toSet(words ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}

var (
	vowels           = toSet("a", "e", "i", "o", "u")
	singularSubjects = toSet("he", "she", "it")
	pluralSubjects   = toSet("they", "we")

	bareVerbs = toSet(
		"go", "make", "do", "say", "eat", "play", "run", "walk", "need", "want", "have", "take",
		"get", "see", "know", "think", "come", "give", "use", "find", "tell", "ask", "work",
		"seem", "feel", "try", "leave", "call", "write", "read", "bring", "begin", "keep",
		"hold", "hear", "meet", "show", "help", "talk", "turn", "follow", "start", "live",
		"believe", "watch", "learn", "change", "lead", "understand", "happen", "develop",
		"speak", "spend", "teach", "require", "lose", "become", "reach")

	singularVerbs = toSet(
		"goes", "makes", "does", "says", "eats", "plays", "runs", "walks", "needs", "wants",
		"has", "takes", "gets", "sees", "knows", "thinks", "comes", "gives", "uses", "finds",
		"tells", "asks", "works", "seems", "feels", "tries", "leaves", "calls", "writes",
		"reads", "brings", "begins", "keeps", "holds", "hears", "meets", "shows", "helps",
		"talks", "turns", "follows", "starts", "lives", "believes", "watches", "learns",
		"changes", "leads", "understands", "happens", "develops", "speaks", "spends",
		"teaches", "requires", "loses", "becomes", "reaches")

	articles     = toSet("a", "an", "the")
	prepositions = toSet("in", "on", "at", "to", "for", "with", "from", "by", "about", "of")
	commonNouns  = toSet(
		"book", "car", "house", "dog", "cat", "person", "thing", "way", "time", "day", "year",
		"place", "problem", "question", "student", "teacher", "university", "course",
		"computer", "phone", "idea", "experience", "opportunity", "challenge")

	negatives = toSet(
		"no", "not", "never", "nothing", "nobody", "none", "neither", "nowhere",
		"hardly", "scarcely", "barely")

	modals       = toSet("will", "would", "can", "could", "should", "must", "may", "might")
	comparatives = toSet("better", "worse", "more", "less", "greater", "smaller", "bigger", "faster", "slower")

	terminalRe     = regexp.MustCompile(`[.!?]$`)
	multiSpaceRe   = regexp.MustCompile(` {2,}`)
	anExceptionRe  = regexp.MustCompile(`^uni|^euro|^u[bcdfghjklmnpqrstvwxyz]`)
	hourRe         = regexp.MustCompile(`^hour`)
	yourMisuseRe   = regexp.MustCompile(`(?i)\byour\s+(is|are|was|were|have|has)\b`)
	theirMisuseRe  = regexp.MustCompile(`(?i)\btheir\s+(is|are|was|were|have|has)\b`)
	itsMisuseRe    = regexp.MustCompile(`(?i)\bits\s+(is|are|was|were|have|has)\b`)
	ingSuffixRe    = regexp.MustCompile(`ing$`)
	edSuffixRe     = regexp.MustCompile(`ed$`)
	startsLowerRe  = regexp.MustCompile(`^[a-z]`)
	allCapsShortRe = regexp.MustCompile(`^[A-Z]{2,}$`)
)

// CountGrammarErrors applies a rule battery over the transcript: sentence
// mechanics, agreement, article use, double negatives, modal complements and
// common confusions. The total is capped relative to transcript length so a
// long recording is not over-penalized.
func CountGrammarErrors(transcript string) int {
	if strings.TrimSpace(transcript) == "" {
		return 0
	}
	errors := 0

	for _, s := range SplitSentences(transcript) {
		first := leadWordRe.FindString(s)
		if startsLowerRe.MatchString(first) && !allCapsShortRe.MatchString(first) {
			errors++
		}
		if !terminalRe.MatchString(s) {
			errors++
		}
	}

	words := Tokenize(transcript)

	for i := 1; i < len(words); i++ {
		if words[i] == words[i-1] {
			errors++
		}
	}

	errors += len(multiSpaceRe.FindAllString(transcript, -1))

	for i := 0; i+1 < len(words); i++ {
		w, next := words[i], words[i+1]
		first := ""
		if next != "" {
			first = next[:1]
		}
		if w == "a" {
			if _, vowel := vowels[first]; vowel && !anExceptionRe.MatchString(next) {
				errors++
			}
		}
		if w == "an" {
			if _, vowel := vowels[first]; !vowel && !hourRe.MatchString(next) {
				errors++
			}
		}
	}

	for i := 0; i+1 < len(words); i++ {
		subj, verb := words[i], words[i+1]
		if _, ok := singularSubjects[subj]; ok {
			if _, bare := bareVerbs[verb]; bare {
				errors++
			}
		}
		if _, ok := pluralSubjects[subj]; ok {
			if _, sing := singularVerbs[verb]; sing {
				errors++
			}
		}
		if subj == "i" && verb != "was" {
			if _, sing := singularVerbs[verb]; sing {
				errors++
			}
		}
	}

	for _, re := range []*regexp.Regexp{yourMisuseRe, theirMisuseRe, itsMisuseRe} {
		if re.MatchString(transcript) {
			errors++
		}
	}

	for i := 1; i < len(words); i++ {
		_, prep := prepositions[words[i-1]]
		_, noun := commonNouns[words[i]]
		if prep && noun {
			hasArticle := false
			if i >= 2 {
				_, hasArticle = articles[words[i-2]]
			}
			if !hasArticle {
				errors++
			}
		}
	}

	for i := 0; i+3 < len(words); i++ {
		neg := 0
		for _, w := range words[i : i+4] {
			if _, ok := negatives[w]; ok {
				neg++
			}
		}
		if neg >= 2 {
			errors++
		}
	}

	for i := 0; i+1 < len(words); i++ {
		if _, ok := modals[words[i]]; !ok {
			continue
		}
		next := words[i+1]
		_, bare := bareVerbs[next]
		if ingSuffixRe.MatchString(next) || (edSuffixRe.MatchString(next) && !bare) {
			errors++
		}
	}

	for i := 0; i+1 < len(words); i++ {
		if (words[i] == "more" || words[i] == "less") &&
			(words[i+1] == "than" || words[i+1] == "then") {
			errors++
		}
	}

	for i := 0; i+1 < len(words); i++ {
		if _, ok := comparatives[words[i]]; ok && words[i+1] == "then" {
			errors++
		}
	}

	limit := int(math.Round(float64(len(words)) * 0.15))
	if limit < 5 {
		limit = 5
	}
	if errors > limit {
		return limit
	}
	return errors
}
