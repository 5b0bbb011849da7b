package asr

import (
	"context"

	"ispeak-server-go/internal/platform/config"
	"ispeak-server-go/internal/platform/errors"
	"ispeak-server-go/internal/platform/logging"
	"ispeak-server-go/internal/providers/asr/whisper"
)

// Segment is a timed span of recognized speech.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcription is recognized text plus segment timing when the backend
// provides it.
type Transcription struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments,omitempty"`
}

// Provider turns encoded audio into a transcription.
type Provider interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (*Transcription, error)
}

// New builds the configured ASR provider. ASR is optional: assessments can
// run on caller-supplied transcripts alone.
func New(cfg config.ASRConfig, logger *logging.Logger) (Provider, error) {
	switch cfg.Type {
	case "whisper", "":
		if cfg.APIKey == "" {
			return nil, errors.New(errors.KindProvider, "asr.new", "whisper requires an api key")
		}
		w := whisper.New(whisper.Config{
			Model:   cfg.Model,
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
		}, logger)
		return &whisperProvider{inner: w}, nil
	default:
		return nil, errors.New(errors.KindProvider, "asr.new", "unknown asr provider: "+cfg.Type)
	}
}

type whisperProvider struct {
	inner *whisper.Client
}

func (p *whisperProvider) Transcribe(ctx context.Context, audio []byte, filename string) (*Transcription, error) {
	res, err := p.inner.Transcribe(ctx, audio, filename)
	if err != nil {
		return nil, err
	}
	out := &Transcription{Text: res.Text}
	for _, s := range res.Segments {
		out.Segments = append(out.Segments, Segment{Start: s.Start, End: s.End, Text: s.Text})
	}
	return out, nil
}
