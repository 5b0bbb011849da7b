package scoring

import (
	"context"

	"ispeak-server-go/internal/domain/features"
	"ispeak-server-go/internal/platform/errors"
	"ispeak-server-go/internal/platform/logging"
)

// CEFRModelName keys the aggregate model in a ModelSet, alongside the seven
// construct models.
const CEFRModelName = "CEFR"

// Classifier is a single trained model.
type Classifier interface {
	Predict(ctx context.Context, vector []float64) (RawResult, error)
}

// ModelSet resolves classifiers by construct name (or CEFRModelName).
type ModelSet interface {
	Model(name string) (Classifier, error)
}

// Result is a scored assessment. Labels carries the per-construct band names
// for display; the numeric subscores stay authoritative. A construct whose
// model failed is absent from Subscores, labelled "Error", and explained in
// Errors; a failed CEFR model sets CEFR to "Error".
type Result struct {
	CEFR      string             `json:"score_cefr"`
	CEFRIndex float64            `json:"cefr_index"`
	Subscores map[string]float64 `json:"subscores"`
	Labels    map[string]string  `json:"labels"`
	Errors    map[string]string  `json:"errors,omitempty"`
}

// Complete reports whether every model produced a score. Persistence paths
// that insert full rows only should check this before writing.
func (r *Result) Complete() bool {
	return len(r.Errors) == 0
}

// Service routes feature records through the construct models and the CEFR
// aggregator.
type Service struct {
	models  ModelSet
	scalers ScalerSet
	logger  *logging.Logger
}

func NewService(models ModelSet, scalers ScalerSet, logger *logging.Logger) *Service {
	return &Service{models: models, scalers: scalers, logger: logger}
}

// Score runs the seven construct models over their feature sub-vectors, then
// feeds the ordered sub-scores to the CEFR model. A model that fails to
// resolve or predict degrades that construct alone: its label becomes
// "Error", the failure is recorded in Errors, and the remaining constructs
// keep scoring. An errored construct contributes 0 to the CEFR input vector.
// Only a structural fault (an unknown subconstruct) aborts the whole call.
func (s *Service) Score(ctx context.Context, rec features.Record) (*Result, error) {
	subscores := make(map[string]float64, len(features.ConstructOrder))
	labels := make(map[string]string, len(features.ConstructOrder))
	scoreErrs := make(map[string]string)

	for _, name := range features.ConstructOrder {
		vec, err := features.SubconstructVector(rec, name)
		if err != nil {
			return nil, err
		}
		vec = s.scalers.Apply(name, vec)

		raw, err := s.predict(ctx, name, vec)
		if err != nil {
			scoreErrs[name] = err.Error()
			labels[name] = "Error"
			s.logger.WarnTag("SCORE", "%s degraded: %v", name, err)
			continue
		}
		v := Normalize(raw)
		subscores[name] = v
		labels[name] = CEFRLabel(v)
	}

	cefrVec := make([]float64, 0, len(features.ConstructOrder))
	for _, name := range features.ConstructOrder {
		cefrVec = append(cefrVec, subscores[name])
	}
	cefrVec = s.scalers.Apply(CEFRModelName, cefrVec)

	res := &Result{
		Subscores: subscores,
		Labels:    labels,
	}
	raw, err := s.predict(ctx, CEFRModelName, cefrVec)
	if err != nil {
		scoreErrs[CEFRModelName] = err.Error()
		res.CEFR = "Error"
		s.logger.WarnTag("SCORE", "CEFR degraded: %v", err)
	} else {
		idx := Normalize(raw)
		res.CEFRIndex = idx
		res.CEFR = CEFRLabel(idx)
	}
	if len(scoreErrs) > 0 {
		res.Errors = scoreErrs
	}

	s.logger.InfoTag("SCORE", "scored record: cefr=%s index=%.2f errors=%d",
		res.CEFR, res.CEFRIndex, len(scoreErrs))
	return res, nil
}

func (s *Service) predict(ctx context.Context, name string, vec []float64) (RawResult, error) {
	const op = "score"

	model, err := s.models.Model(name)
	if err != nil {
		return nil, errors.Wrap(errors.KindScoring, op, "resolve model "+name, err)
	}
	raw, err := model.Predict(ctx, vec)
	if err != nil {
		return nil, errors.Wrap(errors.KindScoring, op, "predict "+name, err)
	}
	return raw, nil
}
