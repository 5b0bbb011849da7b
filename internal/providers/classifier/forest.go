package classifier

import (
	"context"
	"os"

	"github.com/bytedance/sonic"

	"ispeak-server-go/internal/domain/scoring"
	"ispeak-server-go/internal/platform/errors"
)

// treeModel is one decision tree in exported array form: node i branches on
// Feature[i] against Threshold[i], leaves carry Feature[i] == -2 and the
// class votes in Value[i].
type treeModel struct {
	Feature   []int       `json:"feature"`
	Threshold []float64   `json:"threshold"`
	Left      []int       `json:"left"`
	Right     []int       `json:"right"`
	Value     [][]float64 `json:"value"`
}

// Forest is a random-forest classifier exported to JSON. Prediction averages
// the leaf vectors of all trees; a single-output forest yields a scalar,
// a multi-output one a probability vector.
type Forest struct {
	NFeatures int         `json:"n_features"`
	Trees     []treeModel `json:"trees"`
}

// LoadForest reads and validates a forest file.
func LoadForest(path string) (*Forest, error) {
	const op = "classifier.load"
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.KindScoring, op, "read model file", err)
	}
	var f Forest
	if err := sonic.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(errors.KindScoring, op, "parse model file", err)
	}
	if len(f.Trees) == 0 {
		return nil, errors.New(errors.KindScoring, op, "model has no trees: "+path)
	}
	for _, t := range f.Trees {
		n := len(t.Feature)
		if len(t.Threshold) != n || len(t.Left) != n || len(t.Right) != n || len(t.Value) != n {
			return nil, errors.New(errors.KindScoring, op, "inconsistent tree arrays: "+path)
		}
	}
	return &f, nil
}

// Predict walks every tree and averages the leaf outputs.
func (f *Forest) Predict(ctx context.Context, vector []float64) (scoring.RawResult, error) {
	if f.NFeatures > 0 && len(vector) != f.NFeatures {
		return nil, errors.New(errors.KindScoring, "classifier.predict", "input vector length mismatch")
	}

	var acc []float64
	for _, t := range f.Trees {
		leaf := t.walk(vector)
		if acc == nil {
			acc = make([]float64, len(leaf))
		}
		if len(leaf) != len(acc) {
			return nil, errors.New(errors.KindScoring, "classifier.predict", "trees disagree on output width")
		}
		for i, v := range leaf {
			acc[i] += v
		}
	}
	for i := range acc {
		acc[i] /= float64(len(f.Trees))
	}

	if len(acc) == 1 {
		return scoring.Numeric(acc[0]), nil
	}
	return scoring.Probabilities(acc), nil
}

func (t *treeModel) walk(vector []float64) []float64 {
	node := 0
	for {
		if node < 0 || node >= len(t.Feature) {
			return []float64{0}
		}
		feat := t.Feature[node]
		if feat < 0 {
			return t.Value[node]
		}
		var x float64
		if feat < len(vector) {
			x = vector[feat]
		}
		if x <= t.Threshold[node] {
			node = t.Left[node]
		} else {
			node = t.Right[node]
		}
	}
}
