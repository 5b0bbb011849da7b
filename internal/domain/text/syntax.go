package text

import "regexp"

var sentenceWordRe = regexp.MustCompile(`(?i)\b[a-z']+\b`)

// SynonymVariations approximates lexical variety as the distinct token count.
// A full lemmatizer would collapse inflections first; distinct surface forms
// are the agreed proxy when no tagger is available.
func SynonymVariations(transcript string) int {
	return TypeCount(Tokenize(transcript))
}

// TreeDepth is a syntactic complexity proxy built from sentence lengths.
type TreeDepth struct {
	Avg float64
	Max float64
}

// TreeDepthProxy measures average and maximum words per sentence.
func TreeDepthProxy(transcript string) TreeDepth {
	sents := SplitSentences(transcript)
	if len(sents) == 0 {
		return TreeDepth{}
	}
	var sum float64
	var max float64
	for _, s := range sents {
		n := float64(len(sentenceWordRe.FindAllString(s, -1)))
		sum += n
		if n > max {
			max = n
		}
	}
	return TreeDepth{Avg: sum / float64(len(sents)), Max: max}
}
