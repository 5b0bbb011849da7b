package openai

import (
	"context"
	"time"

	"github.com/sashabaranov/go-openai"

	"ispeak-server-go/internal/platform/errors"
	"ispeak-server-go/internal/platform/logging"
)

type Config struct {
	Model   string
	APIKey  string
	BaseURL string
}

// Client produces sentence embeddings through the OpenAI embeddings API.
type Client struct {
	api    *openai.Client
	model  openai.EmbeddingModel
	logger *logging.Logger
}

func New(cfg Config, logger *logging.Logger) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := openai.EmbeddingModel(cfg.Model)
	if cfg.Model == "" {
		model = openai.SmallEmbedding3
	}
	return &Client{
		api:    openai.NewClientWithConfig(clientCfg),
		model:  model,
		logger: logger,
	}
}

// Embed returns one vector per input text, in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	const op = "embedding.openai"
	if len(texts) == 0 {
		return nil, nil
	}

	start := time.Now()
	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: c.model,
	})
	if err != nil {
		return nil, errors.Wrap(errors.KindProvider, op, "embeddings request", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, errors.New(errors.KindProvider, op, "embedding count mismatch")
	}
	c.logger.DebugTag("EMBED", "embedded %d texts in %v", len(texts), time.Since(start))

	out := make([][]float64, len(resp.Data))
	for _, d := range resp.Data {
		vec := make([]float64, len(d.Embedding))
		for i, f := range d.Embedding {
			vec[i] = float64(f)
		}
		out[d.Index] = vec
	}
	return out, nil
}
