package semantic

import (
	"context"
	"errors"
	"math"
	"testing"
)

// fixedEmbedder returns one preset vector per input text, cycling by call
// order within a batch.
type fixedEmbedder struct {
	vectors [][]float64
	err     error
	calls   int
}

func (f *fixedEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = f.vectors[i%len(f.vectors)]
	}
	return out, nil
}

func TestCoherenceIdenticalSentences(t *testing.T) {
	emb := &fixedEmbedder{vectors: [][]float64{{1, 0, 0}}}
	a := NewAnalyzer(emb, 12)

	got, err := a.Coherence(context.Background(), "First sentence. Second sentence. Third sentence.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(got-100) > 1e-9 {
		t.Errorf("coherence = %v, expected 100 for identical embeddings", got)
	}
}

func TestCoherenceOrthogonalSentences(t *testing.T) {
	emb := &fixedEmbedder{vectors: [][]float64{{1, 0}, {0, 1}}}
	a := NewAnalyzer(emb, 12)

	got, err := a.Coherence(context.Background(), "One sentence here. Another topic entirely.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(got) > 1e-9 {
		t.Errorf("coherence = %v, expected 0 for orthogonal embeddings", got)
	}
}

func TestCoherenceSingleSentence(t *testing.T) {
	emb := &fixedEmbedder{vectors: [][]float64{{1}}}
	a := NewAnalyzer(emb, 12)

	got, err := a.Coherence(context.Background(), "Just one sentence without a second.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0 {
		t.Errorf("coherence = %v, expected 0 with fewer than two sentences", got)
	}
	if emb.calls != 0 {
		t.Errorf("embedder called %d times, expected none", emb.calls)
	}
}

func TestCoherenceCapsSentences(t *testing.T) {
	emb := &fixedEmbedder{vectors: [][]float64{{1, 0, 0}}}
	a := NewAnalyzer(emb, 2)

	transcript := "One. Two. Three. Four. Five."
	if _, err := a.Coherence(context.Background(), transcript); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCoherenceEmbedFailure(t *testing.T) {
	emb := &fixedEmbedder{err: errors.New("api down")}
	a := NewAnalyzer(emb, 12)

	got, err := a.Coherence(context.Background(), "First sentence. Second sentence.")
	if err == nil {
		t.Fatal("expected error from failing embedder")
	}
	if got != 0 {
		t.Errorf("coherence = %v, expected 0 on failure", got)
	}
}

func TestTopicSimilarity(t *testing.T) {
	emb := &fixedEmbedder{vectors: [][]float64{{1, 0}, {1, 0}}}
	a := NewAnalyzer(emb, 12)

	got, err := a.TopicSimilarity(context.Background(), "about my course", "Describe your course")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(got-100) > 1e-9 {
		t.Errorf("similarity = %v, expected 100", got)
	}

	got, err = a.TopicSimilarity(context.Background(), "", "reference")
	if err != nil || got != 0 {
		t.Errorf("empty transcript = (%v, %v), expected (0, nil)", got, err)
	}
	got, err = a.TopicSimilarity(context.Background(), "text", "")
	if err != nil || got != 0 {
		t.Errorf("empty reference = (%v, %v), expected (0, nil)", got, err)
	}
}
