package features

import (
	"math"

	"ispeak-server-go/internal/platform/errors"
)

// Feature names. "Durasi (s)" keeps its original spelling: the trained models
// know the features by these exact strings.
const (
	Duration          = "Durasi (s)"
	MFCCPercent       = "MFCC (%)"
	SemanticCoherence = "Semantic Coherence (%)"
	PauseFreq         = "Pause Freq"
	TokenCount        = "Token Count"
	TypeCount         = "Type Count"
	TTR               = "TTR"
	PitchRange        = "Pitch Range (Hz)"
	ArticulationRate  = "Articulation Rate"
	MLR               = "MLR"
	MeanPitch         = "Mean Pitch"
	StdevPitch        = "Stdev Pitch"
	MeanEnergy        = "Mean Energy"
	StdevEnergy       = "Stdev Energy"
	NumProminences    = "Num Prominences"
	ProminenceMean    = "Prominence Dist Mean"
	ProminenceStd     = "Prominence Dist Std"
	WPM               = "WPM"
	WPS               = "WPS"
	TotalWords        = "Total Words"
	LinkingCount      = "Linking Count"
	DiscourseCount    = "Discourse Count"
	FilledPauses      = "Filled Pauses"
	LongPauseSec      = "Long Pause (s)"
	TopicSimilarity   = "Topic Similarity (%)"
	GrammarErrors     = "Grammar Errors"
	IdiomsFound       = "Idioms Found"
	CEFRA1            = "CEFR A1"
	CEFRA2            = "CEFR A2"
	CEFRB1            = "CEFR B1"
	CEFRB2            = "CEFR B2"
	CEFRC1            = "CEFR C1"
	CEFRC2            = "CEFR C2"
	CEFRUnknown       = "CEFR UNKNOWN"
	BigramCount       = "Bigram Count"
	TrigramCount      = "Trigram Count"
	FourgramCount     = "Fourgram Count"
	SynonymVariations = "Synonym Variations"
	AvgTreeDepth      = "Avg Tree Depth"
	MaxTreeDepth      = "Max Tree Depth"
)

// canonicalOrder is the feature-vector contract. The classifiers were trained
// against exactly this ordering; never reorder or rename entries.
var canonicalOrder = []string{
	Duration,
	MFCCPercent,
	SemanticCoherence,
	PauseFreq,
	TokenCount,
	TypeCount,
	TTR,
	PitchRange,
	ArticulationRate,
	MLR,
	MeanPitch,
	StdevPitch,
	MeanEnergy,
	StdevEnergy,
	NumProminences,
	ProminenceMean,
	ProminenceStd,
	WPM,
	WPS,
	TotalWords,
	LinkingCount,
	DiscourseCount,
	FilledPauses,
	LongPauseSec,
	TopicSimilarity,
	GrammarErrors,
	IdiomsFound,
	CEFRA1,
	CEFRA2,
	CEFRB1,
	CEFRB2,
	CEFRC1,
	CEFRC2,
	CEFRUnknown,
	BigramCount,
	TrigramCount,
	FourgramCount,
	SynonymVariations,
	AvgTreeDepth,
	MaxTreeDepth,
}

// subconstructs maps each scored construct to the ordered feature subset its
// model consumes.
var subconstructs = map[string][]string{
	"Fluency": {
		TotalWords,
		WPM,
		WPS,
		FilledPauses,
		MLR,
		PauseFreq,
		Duration,
	},
	"Pronunciation": {ArticulationRate, PitchRange, MFCCPercent},
	"Prosody": {
		MeanPitch,
		StdevPitch,
		MeanEnergy,
		StdevEnergy,
		NumProminences,
		ProminenceMean,
		ProminenceStd,
	},
	"Coherence and Cohesion": {
		SemanticCoherence,
		DiscourseCount,
		LinkingCount,
	},
	"Topic Relevance": {TopicSimilarity},
	"Complexity": {
		IdiomsFound,
		BigramCount,
		TrigramCount,
		FourgramCount,
		SynonymVariations,
		CEFRA1,
		CEFRA2,
		CEFRB1,
		CEFRB2,
		CEFRC1,
		CEFRC2,
		CEFRUnknown,
		AvgTreeDepth,
		MaxTreeDepth,
		TokenCount,
		TypeCount,
		TTR,
	},
	"Accuracy": {GrammarErrors},
}

// ConstructOrder is the fixed ordering of the seven subconstructs, which is
// also the input layout of the CEFR model.
var ConstructOrder = []string{
	"Fluency",
	"Pronunciation",
	"Prosody",
	"Coherence and Cohesion",
	"Topic Relevance",
	"Complexity",
	"Accuracy",
}

// Names returns the canonical 40-feature order.
func Names() []string {
	out := make([]string, len(canonicalOrder))
	copy(out, canonicalOrder)
	return out
}

// Record maps every canonical feature name to a value. Construct it with
// NewRecord so the full key set is always present; failed sub-computations
// stay at their zero default.
type Record map[string]float64

func NewRecord() Record {
	r := make(Record, len(canonicalOrder))
	for _, name := range canonicalOrder {
		r[name] = 0
	}
	return r
}

// FromMap builds a Record from an arbitrary name→value map, keeping only
// canonical keys and defaulting the rest to 0. Non-finite values become 0.
func FromMap(m map[string]float64) Record {
	r := NewRecord()
	for _, name := range canonicalOrder {
		if v, ok := m[name]; ok {
			r[name] = safe(v)
		}
	}
	return r
}

// Set writes a canonical feature. Unknown names are ignored so a component
// can never widen the contract by accident.
func (r Record) Set(name string, v float64) {
	if _, ok := r[name]; ok {
		r[name] = safe(v)
	}
}

// Vector projects the record into the canonical order.
func (r Record) Vector() []float64 {
	out := make([]float64, len(canonicalOrder))
	for i, name := range canonicalOrder {
		out[i] = safe(r[name])
	}
	return out
}

// SubconstructNames returns the ordered feature list a construct's model was
// trained against. "CEFR" is deliberately not accepted here: the CEFR model
// consumes the seven sub-scores (see scoring.CEFRInputSpec), not raw features.
func SubconstructNames(name string) ([]string, error) {
	fnames, ok := subconstructs[name]
	if !ok {
		return nil, errors.New(errors.KindScoring, "subvector", "unknown subconstruct: "+name)
	}
	out := make([]string, len(fnames))
	copy(out, fnames)
	return out, nil
}

// SubconstructVector slices the record into the ordered sub-vector for name.
func SubconstructVector(r Record, name string) ([]float64, error) {
	fnames, ok := subconstructs[name]
	if !ok {
		return nil, errors.New(errors.KindScoring, "subvector", "unknown subconstruct: "+name)
	}
	out := make([]float64, len(fnames))
	for i, fname := range fnames {
		out[i] = safe(r[fname])
	}
	return out, nil
}

func safe(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
