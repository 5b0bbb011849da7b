package scoring

import "ispeak-server-go/internal/domain/features"

type cefrBucket struct {
	max   float64
	label string
}

var cefrBuckets = []cefrBucket{
	{0.5, "A1"},
	{1.5, "A2"},
	{2.5, "B1"},
	{3.5, "B2"},
	{4.5, "C1"},
}

// CEFRLabel maps a model index onto the CEFR band. Values beyond the last
// boundary are C2; negatives land in A1.
func CEFRLabel(index float64) string {
	for _, b := range cefrBuckets {
		if index <= b.max {
			return b.label
		}
	}
	return "C2"
}

// CEFRInputSpec is the input layout of the CEFR model: the seven construct
// scores in their fixed order, not the 40 raw features.
func CEFRInputSpec() []string {
	out := make([]string, len(features.ConstructOrder))
	copy(out, features.ConstructOrder)
	return out
}
