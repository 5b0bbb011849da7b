package text

import "strings"

var validBigrams = toSet(
	"for example", "in fact", "of course", "such as", "in particular",
	"as well", "due to", "in general", "this means", "this suggests",
	"in conclusion", "as shown", "in short", "in turn", "on average",
	"as expected", "more importantly", "in summary", "at least", "most likely",
	"less than", "more than", "according to", "as noted", "for instance",
	"so that", "such that", "even though", "as a", "on top", "as mentioned",
	"from which", "in contrast", "in addition", "in response", "as discussed",
	"by contrast", "to ensure", "with regard", "with respect", "as stated",
	"in brief", "on purpose", "in effect", "in excess", "in theory",
	"at best", "at worst", "it seems", "it appears",
	"for this", "in spite", "in line", "by using", "on behalf",
	"in favor", "by means", "at times", "among others", "to conclude",
	"on occasion", "it means", "for comparison", "with this",
	"in context", "over time", "in reference", "in depth",
	"in support", "to illustrate", "to emphasize", "for emphasis", "under consideration",
	"above all", "as follows", "more precisely", "more clearly",
	"in reality", "as previously", "at present", "in practice",
	"by definition", "without doubt",
	"beyond that", "more generally", "from there", "with caution", "as required",
	"in hindsight", "at large")

var validTrigrams = toSet(
	"as a result", "on the other", "in terms of", "as well as",
	"one of the", "in order to", "the end of", "the fact that",
	"on the basis", "at the same", "at the end", "in the case",
	"the rest of", "in addition to", "the purpose of", "the use of",
	"the development of", "with respect to", "as a consequence",
	"in the process", "as part of", "due to the", "the nature of",
	"it is important", "it is necessary", "it should be", "the number of",
	"there is a", "there are a", "from the point", "in the context",
	"in the light", "on the part", "at the beginning", "it is possible",
	"it is clear", "it is evident", "according to the", "with regard to")

var validFourgrams = toSet(
	"as a result of", "at the end of", "in the case of", "as can be seen",
	"in the context of", "on the basis of", "at the same time",
	"in terms of the", "in the process of", "with the help of",
	"as a part of", "as shown in figure", "it is important to",
	"in relation to the", "this is due to", "the role of the",
	"as illustrated in figure", "in this study we", "the results of the",
	"it is necessary to", "there is a need", "at the beginning of",
	"one of the most", "from the point of", "with respect to the")

// BundleCounts reports academic lexical bundles found in a transcript,
// counting every occurrence against the curated whitelists.
type BundleCounts struct {
	Bigrams   int
	Trigrams  int
	Fourgrams int

	BigramMatches   []string
	TrigramMatches  []string
	FourgramMatches []string
}

// CountBundles slides bigram, trigram and fourgram windows over the token
// stream and records whitelist hits.
func CountBundles(transcript string) BundleCounts {
	tokens := bareWordRe.FindAllString(strings.ToLower(transcript), -1)

	var bc BundleCounts
	for i := range tokens {
		if i+1 < len(tokens) {
			b := tokens[i] + " " + tokens[i+1]
			if _, ok := validBigrams[b]; ok {
				bc.BigramMatches = append(bc.BigramMatches, b)
			}
		}
		if i+2 < len(tokens) {
			t := tokens[i] + " " + tokens[i+1] + " " + tokens[i+2]
			if _, ok := validTrigrams[t]; ok {
				bc.TrigramMatches = append(bc.TrigramMatches, t)
			}
		}
		if i+3 < len(tokens) {
			f := tokens[i] + " " + tokens[i+1] + " " + tokens[i+2] + " " + tokens[i+3]
			if _, ok := validFourgrams[f]; ok {
				bc.FourgramMatches = append(bc.FourgramMatches, f)
			}
		}
	}
	bc.Bigrams = len(bc.BigramMatches)
	bc.Trigrams = len(bc.TrigramMatches)
	bc.Fourgrams = len(bc.FourgramMatches)
	return bc
}
