package scoring

import (
	"math"
	"strconv"
)

// RawResult is the closed set of shapes a classifier may hand back. The
// union replaces duck-typed inspection: adapters decode into exactly one of
// these and Normalize handles each case.
type RawResult interface {
	isRawResult()
}

// Numeric is a plain scalar prediction.
type Numeric float64

// ScoreWrapped is a prediction delivered as {"score": n}.
type ScoreWrapped struct {
	Score float64
}

// ValueWrapped is a prediction delivered as {"value": n}.
type ValueWrapped struct {
	Value float64
}

// Probabilities is a class-probability vector; the predicted class is the
// argmax index.
type Probabilities []float64

// Invalid covers anything a model returned that fits none of the known
// shapes; it normalizes via best-effort coercion.
type Invalid struct {
	Raw any
}

func (Numeric) isRawResult()       {}
func (ScoreWrapped) isRawResult()  {}
func (ValueWrapped) isRawResult()  {}
func (Probabilities) isRawResult() {}
func (Invalid) isRawResult()       {}

// Normalize collapses a raw model output to one finite float64.
func Normalize(raw RawResult) float64 {
	switch v := raw.(type) {
	case Numeric:
		return finite(float64(v))
	case ScoreWrapped:
		return finite(v.Score)
	case ValueWrapped:
		return finite(v.Value)
	case Probabilities:
		if len(v) == 0 {
			return 0
		}
		bestIdx := 0
		bestVal := math.Inf(-1)
		for i, p := range v {
			if !math.IsNaN(p) && !math.IsInf(p, 0) && p > bestVal {
				bestVal = p
				bestIdx = i
			}
		}
		return float64(bestIdx)
	case Invalid:
		return coerce(v.Raw)
	default:
		return 0
	}
}

// DecodeRaw classifies a JSON-decoded value into the union. Used by
// adapters that receive predictions over the wire.
func DecodeRaw(v any) RawResult {
	switch t := v.(type) {
	case float64:
		return Numeric(t)
	case int:
		return Numeric(float64(t))
	case map[string]any:
		if s, ok := numberField(t, "score"); ok {
			return ScoreWrapped{Score: s}
		}
		if s, ok := numberField(t, "value"); ok {
			return ValueWrapped{Value: s}
		}
		return Invalid{Raw: v}
	case []any:
		probs := make(Probabilities, 0, len(t))
		for _, e := range t {
			f, ok := e.(float64)
			if !ok {
				return Invalid{Raw: v}
			}
			probs = append(probs, f)
		}
		if len(probs) == 0 {
			return Invalid{Raw: v}
		}
		return probs
	default:
		return Invalid{Raw: v}
	}
}

func numberField(m map[string]any, key string) (float64, bool) {
	f, ok := m[key].(float64)
	return f, ok
}

func coerce(v any) float64 {
	switch t := v.(type) {
	case float64:
		return finite(t)
	case int:
		return float64(t)
	case string:
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return finite(f)
		}
		return 0
	default:
		return 0
	}
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Scaler standardizes a model input vector with training-time statistics.
// A scaler whose lengths do not match the vector passes it through, and a
// zero scale leaves that component unchanged.
type Scaler struct {
	Mean  []float64
	Scale []float64
}

func (s Scaler) Apply(vec []float64) []float64 {
	if len(s.Mean) != len(vec) || len(s.Scale) != len(vec) {
		return vec
	}
	out := make([]float64, len(vec))
	for i, v := range vec {
		if s.Scale[i] != 0 {
			out[i] = (v - s.Mean[i]) / s.Scale[i]
		} else {
			out[i] = v
		}
	}
	return out
}

// ScalerSet holds per-model scalers keyed by construct name. Missing
// entries act as identity.
type ScalerSet map[string]Scaler

func (ss ScalerSet) Apply(name string, vec []float64) []float64 {
	if ss == nil {
		return vec
	}
	sc, ok := ss[name]
	if !ok {
		return vec
	}
	return sc.Apply(vec)
}
