package classifier

import (
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"

	"ispeak-server-go/internal/domain/scoring"
	"ispeak-server-go/internal/platform/config"
	"ispeak-server-go/internal/platform/errors"
	"ispeak-server-go/internal/platform/logging"
)

// modelFiles maps construct names to their exported model files, matching
// the filenames produced by the training pipeline.
var modelFiles = map[string]string{
	"Fluency":                "Fluency_rf_model.json",
	"Pronunciation":          "Pronunciation_rf_model.json",
	"Prosody":                "Prosody_rf_model.json",
	"Coherence and Cohesion": "Coherence_and_Cohesion_rf_model.json",
	"Topic Relevance":        "Topic_Relevance_rf_model.json",
	"Complexity":             "Complexity_rf_model.json",
	"Accuracy":               "Accuracy_rf_model.json",
	scoring.CEFRModelName:    "CEFR_rf_model.json",
}

// Registry lazily loads classifiers by name and caches them for the life of
// the process. Concurrent first loads of the same model are collapsed.
type Registry struct {
	modelDir string
	logger   *logging.Logger

	mu     sync.RWMutex
	models map[string]scoring.Classifier
	group  singleflight.Group
}

// NewRegistry builds the configured model set. Only the local forest backend
// loads lazily from disk; the HTTP backend resolves immediately.
func NewRegistry(cfg config.ClassifierConfig, logger *logging.Logger) (scoring.ModelSet, error) {
	switch cfg.Type {
	case "forest", "":
		return &Registry{
			modelDir: cfg.ModelDir,
			logger:   logger,
			models:   make(map[string]scoring.Classifier),
		}, nil
	case "http":
		if cfg.BaseURL == "" {
			return nil, errors.New(errors.KindScoring, "classifier.new", "http classifier requires url")
		}
		return newHTTPModelSet(cfg.BaseURL, logger), nil
	default:
		return nil, errors.New(errors.KindScoring, "classifier.new", "unknown classifier provider: "+cfg.Type)
	}
}

// Model resolves a classifier by construct name.
func (r *Registry) Model(name string) (scoring.Classifier, error) {
	r.mu.RLock()
	if m, ok := r.models[name]; ok {
		r.mu.RUnlock()
		return m, nil
	}
	r.mu.RUnlock()

	file, ok := modelFiles[name]
	if !ok {
		return nil, errors.New(errors.KindScoring, "classifier.model", "unknown model: "+name)
	}

	v, err, _ := r.group.Do(name, func() (any, error) {
		forest, err := LoadForest(filepath.Join(r.modelDir, file))
		if err != nil {
			return nil, err
		}
		r.logger.InfoTag("SCORE", "loaded model %s (%d trees)", name, len(forest.Trees))

		r.mu.Lock()
		r.models[name] = forest
		r.mu.Unlock()
		return forest, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(scoring.Classifier), nil
}
