package features

import (
	"math"
	"reflect"
	"testing"
)

func TestNewRecordHasExactlyCanonicalKeys(t *testing.T) {
	r := NewRecord()
	names := Names()

	if len(r) != 40 || len(names) != 40 {
		t.Fatalf("record has %d keys, canonical list has %d, expected 40 each", len(r), len(names))
	}
	for _, name := range names {
		if _, ok := r[name]; !ok {
			t.Errorf("missing canonical feature %q", name)
		}
	}
}

func TestVectorOrderIsStable(t *testing.T) {
	r := NewRecord()
	r.Set(Duration, 3.0)
	r.Set(MFCCPercent, 55)
	r.Set(MaxTreeDepth, 12)

	v := r.Vector()
	if len(v) != 40 {
		t.Fatalf("vector length = %d, expected 40", len(v))
	}
	if v[0] != 3.0 {
		t.Errorf("v[0] = %v, expected Durasi (s) = 3.0", v[0])
	}
	if v[1] != 55 {
		t.Errorf("v[1] = %v, expected MFCC (%%) = 55", v[1])
	}
	if v[39] != 12 {
		t.Errorf("v[39] = %v, expected Max Tree Depth = 12", v[39])
	}
}

func TestSetIgnoresUnknownAndNonFinite(t *testing.T) {
	r := NewRecord()
	r.Set("Not A Feature", 99)
	if len(r) != 40 {
		t.Errorf("unknown key widened the record to %d entries", len(r))
	}

	r.Set(WPM, math.NaN())
	if r[WPM] != 0 {
		t.Errorf("NaN should default to 0, got %v", r[WPM])
	}
	r.Set(WPS, math.Inf(1))
	if r[WPS] != 0 {
		t.Errorf("+Inf should default to 0, got %v", r[WPS])
	}
}

func TestSubconstructVectorLengthsAndDeterminism(t *testing.T) {
	lengths := map[string]int{
		"Fluency":                7,
		"Pronunciation":          3,
		"Prosody":                7,
		"Coherence and Cohesion": 3,
		"Topic Relevance":        1,
		"Complexity":             17,
		"Accuracy":               1,
	}

	r := NewRecord()
	r.Set(TotalWords, 42)
	r.Set(GrammarErrors, 3)

	for name, want := range lengths {
		v1, err := SubconstructVector(r, name)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if len(v1) != want {
			t.Errorf("%s: length = %d, expected %d", name, len(v1), want)
		}
		v2, _ := SubconstructVector(r, name)
		if !reflect.DeepEqual(v1, v2) {
			t.Errorf("%s: repeated projection differs", name)
		}
	}

	if v, _ := SubconstructVector(r, "Accuracy"); v[0] != 3 {
		t.Errorf("Accuracy vector = %v, expected [3]", v)
	}
}

func TestSubconstructVectorUnknownName(t *testing.T) {
	r := NewRecord()
	if _, err := SubconstructVector(r, "Eloquence"); err == nil {
		t.Error("expected error for unknown subconstruct")
	}
	// "CEFR" must not alias the full feature vector.
	if _, err := SubconstructNames("CEFR"); err == nil {
		t.Error("CEFR must not be a routable subconstruct")
	}
}

func TestFromMapDefaultsMissingToZero(t *testing.T) {
	r := FromMap(map[string]float64{
		Duration:  2.5,
		"ignored": 7,
	})
	if r[Duration] != 2.5 {
		t.Errorf("Duration = %v, expected 2.5", r[Duration])
	}
	if r[WPM] != 0 {
		t.Errorf("WPM = %v, expected 0 default", r[WPM])
	}
	if len(r) != 40 {
		t.Errorf("record has %d keys, expected 40", len(r))
	}
}
