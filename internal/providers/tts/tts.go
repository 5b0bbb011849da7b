package tts

import (
	"context"

	"ispeak-server-go/internal/platform/config"
	"ispeak-server-go/internal/platform/errors"
	"ispeak-server-go/internal/platform/logging"
	"ispeak-server-go/internal/providers/tts/edge"
)

// Provider renders text to encoded audio bytes.
type Provider interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// New builds the configured TTS provider.
func New(cfg config.TTSConfig, logger *logging.Logger) (Provider, error) {
	switch cfg.Type {
	case "edge", "":
		return edge.New(edge.Config{
			Voice:     cfg.Voice,
			OutputDir: cfg.OutputDir,
		}, logger), nil
	default:
		return nil, errors.New(errors.KindProvider, "tts.new", "unknown tts provider: "+cfg.Type)
	}
}
