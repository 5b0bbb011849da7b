package whisper

import (
	"bytes"
	"context"
	"time"

	"github.com/sashabaranov/go-openai"

	"ispeak-server-go/internal/platform/errors"
	"ispeak-server-go/internal/platform/logging"
)

// Segment mirrors the verbose transcription timing.
type Segment struct {
	Start float64
	End   float64
	Text  string
}

type Result struct {
	Text     string
	Segments []Segment
}

type Config struct {
	Model   string
	APIKey  string
	BaseURL string
}

// Client transcribes audio through the OpenAI Whisper endpoint.
type Client struct {
	api    *openai.Client
	model  string
	logger *logging.Logger
}

func New(cfg Config, logger *logging.Logger) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.Whisper1
	}
	return &Client{
		api:    openai.NewClientWithConfig(clientCfg),
		model:  model,
		logger: logger,
	}
}

// Transcribe requests a verbose transcription so segment timings come back
// with the text.
func (c *Client) Transcribe(ctx context.Context, audio []byte, filename string) (*Result, error) {
	const op = "asr.whisper"
	if len(audio) == 0 {
		return nil, errors.New(errors.KindProvider, op, "empty audio payload")
	}
	if filename == "" {
		filename = "recording.wav"
	}

	start := time.Now()
	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.model,
		FilePath: filename,
		Reader:   bytes.NewReader(audio),
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, errors.Wrap(errors.KindProvider, op, "transcription request", err)
	}
	c.logger.DebugTag("ASR", "transcribed %d bytes in %v", len(audio), time.Since(start))

	res := &Result{Text: resp.Text}
	for _, s := range resp.Segments {
		res.Segments = append(res.Segments, Segment{
			Start: s.Start,
			End:   s.End,
			Text:  s.Text,
		})
	}
	return res, nil
}
