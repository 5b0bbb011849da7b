package embedding

import (
	"context"

	"ispeak-server-go/internal/platform/config"
	"ispeak-server-go/internal/platform/errors"
	"ispeak-server-go/internal/platform/logging"
	openaiembed "ispeak-server-go/internal/providers/embedding/openai"
)

// Provider mirrors semantic.Embedder so the factory result plugs straight
// into the coherence analyzer.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// New builds the configured embedding provider.
func New(cfg config.EmbeddingConfig, logger *logging.Logger) (Provider, error) {
	switch cfg.Type {
	case "openai", "":
		if cfg.APIKey == "" {
			return nil, errors.New(errors.KindProvider, "embedding.new", "openai embeddings require an api key")
		}
		return openaiembed.New(openaiembed.Config{
			Model:   cfg.Model,
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
		}, logger), nil
	default:
		return nil, errors.New(errors.KindProvider, "embedding.new", "unknown embedding provider: "+cfg.Type)
	}
}
