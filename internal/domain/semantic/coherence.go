package semantic

import (
	"context"

	"ispeak-server-go/internal/domain/text"
	"ispeak-server-go/internal/platform/errors"
	"ispeak-server-go/internal/utils"
)

// Embedder turns texts into dense vectors. Implementations are expected to
// mean-pool and normalize so cosine similarity is meaningful.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Analyzer computes embedding-based coherence and topic-relevance scores.
type Analyzer struct {
	embedder     Embedder
	maxSentences int
}

func NewAnalyzer(embedder Embedder, maxSentences int) *Analyzer {
	return &Analyzer{embedder: embedder, maxSentences: maxSentences}
}

// Coherence is the mean cosine similarity of adjacent sentences, as a
// percentage. Transcripts with fewer than two sentences score 0; an
// embedding failure also scores 0 and surfaces the error for the caller's
// warning channel.
func (a *Analyzer) Coherence(ctx context.Context, transcript string) (float64, error) {
	if a == nil || a.embedder == nil {
		return 0, errors.New(errors.KindProvider, "coherence", "no embedder configured")
	}

	sents := text.SplitSentences(transcript)
	if a.maxSentences > 0 && len(sents) > a.maxSentences {
		sents = sents[:a.maxSentences]
	}
	if len(sents) < 2 {
		return 0, nil
	}

	vecs, err := a.embedder.Embed(ctx, sents)
	if err != nil {
		return 0, errors.Wrap(errors.KindProvider, "coherence", "embed sentences", err)
	}
	if len(vecs) != len(sents) {
		return 0, errors.New(errors.KindProvider, "coherence", "embedding count mismatch")
	}

	var sum float64
	for i := 0; i+1 < len(vecs); i++ {
		sum += utils.Cosine(vecs[i], vecs[i+1])
	}
	return sum / float64(len(vecs)-1) * 100, nil
}

// TopicSimilarity compares the whole transcript against a reference topic
// prompt, as a percentage. Either side empty scores 0.
func (a *Analyzer) TopicSimilarity(ctx context.Context, transcript, reference string) (float64, error) {
	if a == nil || a.embedder == nil {
		return 0, errors.New(errors.KindProvider, "topic", "no embedder configured")
	}
	if transcript == "" || reference == "" {
		return 0, nil
	}

	vecs, err := a.embedder.Embed(ctx, []string{transcript, reference})
	if err != nil {
		return 0, errors.Wrap(errors.KindProvider, "topic", "embed transcript and reference", err)
	}
	if len(vecs) != 2 {
		return 0, errors.New(errors.KindProvider, "topic", "embedding count mismatch")
	}
	return utils.Cosine(vecs[0], vecs[1]) * 100, nil
}
