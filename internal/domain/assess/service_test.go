package assess

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"ispeak-server-go/internal/domain/features"
	"ispeak-server-go/internal/domain/semantic"
	"ispeak-server-go/internal/domain/text"
	"ispeak-server-go/internal/platform/config"
	"ispeak-server-go/internal/platform/errors"
)

const testRate = 16000

func toneWAV(t *testing.T, freq float64, seconds float64) []byte {
	t.Helper()
	n := int(seconds * testRate)
	pcm := make([]int16, n)
	for i := range pcm {
		v := 0.5 * math.Sin(2*math.Pi*freq*float64(i)/testRate)
		pcm[i] = int16(v * 32767)
	}

	var data bytes.Buffer
	binary.Write(&data, binary.LittleEndian, pcm)

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+data.Len()))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint32(testRate))
	binary.Write(&buf, binary.LittleEndian, uint32(testRate*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(data.Len()))
	buf.Write(data.Bytes())
	return buf.Bytes()
}

type fixedEmbedder struct {
	vec []float64
}

func (f *fixedEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, nil
}

type stubASR struct {
	text  string
	segs  []Segment
	calls int
}

func (s *stubASR) Transcribe(_ context.Context, _ []byte, _ string) (string, []Segment, error) {
	s.calls++
	return s.text, s.segs, nil
}

type recordBus struct {
	mu     sync.Mutex
	topics []string
}

func (b *recordBus) Publish(topic string, _ ...interface{}) {
	b.mu.Lock()
	b.topics = append(b.topics, topic)
	b.mu.Unlock()
}

func (b *recordBus) seen(topic string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range b.topics {
		if t == topic {
			return true
		}
	}
	return false
}

func testDatasets(t *testing.T) *text.Datasets {
	t.Helper()
	dir := t.TempDir()
	cefr := filepath.Join(dir, "cefr.csv")
	idioms := filepath.Join(dir, "idioms.csv")
	if err := os.WriteFile(cefr, []byte("headword,CEFR\nfruit,A1\nmarket,A2\nbasically,B2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(idioms, []byte("idiom\na good day\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return text.NewDatasets(cefr, idioms)
}

func testService(t *testing.T, deps Deps) *Service {
	t.Helper()
	cfg := config.Default()
	return NewService(cfg.Pipeline, cfg.Assess, deps)
}

const testTranscript = "I went to the market and then I bought some fresh fruit. It was basically a good day."

func TestAssessToneRecording(t *testing.T) {
	bus := &recordBus{}
	svc := testService(t, Deps{
		Semantic: semantic.NewAnalyzer(&fixedEmbedder{vec: []float64{1, 0, 0}}, 12),
		Datasets: testDatasets(t),
		Bus:      bus,
	})

	out, err := svc.Assess(context.Background(), Request{
		Audio:          toneWAV(t, 150, 3.0),
		Transcript:     testTranscript,
		ReferenceTopic: "daily life",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.RecordingID == "" {
		t.Error("expected a generated recording id")
	}
	if math.Abs(out.Duration-3.0) > 0.01 {
		t.Errorf("duration = %v, expected ~3.0", out.Duration)
	}
	if out.Warnings != nil {
		t.Errorf("unexpected warnings: %v", out.Warnings)
	}
	if !bus.seen(TopicStarted) || !bus.seen(TopicCompleted) {
		t.Errorf("missing lifecycle events, got %v", bus.topics)
	}

	rec := out.Features
	checks := map[string]float64{
		features.TotalWords:        18,
		features.TokenCount:        18,
		features.TypeCount:         17,
		features.PauseFreq:         0,
		features.LongPauseSec:      0,
		features.GrammarErrors:     0,
		features.MLR:               18,
		features.WPS:               6,
		features.WPM:               360,
		features.CEFRA1:            1,
		features.CEFRA2:            1,
		features.CEFRB2:            1,
		features.CEFRUnknown:       14,
		features.IdiomsFound:       1,
		features.SemanticCoherence: 100,
		features.TopicSimilarity:   100,
	}
	for name, want := range checks {
		if got := rec[name]; math.Abs(got-want) > 1e-6 {
			t.Errorf("%s = %v, expected %v", name, got, want)
		}
	}

	if got := rec[features.TTR]; math.Abs(got-17.0/18.0) > 1e-9 {
		t.Errorf("TTR = %v, expected %v", got, 17.0/18.0)
	}
	if got := rec[features.MeanPitch]; got < 145 || got > 155 {
		t.Errorf("mean pitch = %v, expected near 150", got)
	}
	if got := rec[features.ArticulationRate]; got < 5 || got > 8 {
		t.Errorf("articulation rate = %v, expected 18 words over the voiced span", got)
	}
	if got := rec[features.MFCCPercent]; got < 0 || got > 100 {
		t.Errorf("mfcc percent = %v, expected within [0,100]", got)
	}
	if len(out.Extras.Idioms) != 1 || out.Extras.Idioms[0] != "a good day" {
		t.Errorf("idiom extras = %v", out.Extras.Idioms)
	}
	if out.Extras.WordLevels["fruit"] != "A1" {
		t.Errorf("word levels = %v", out.Extras.WordLevels)
	}
}

func TestAssessRequiresAudio(t *testing.T) {
	svc := testService(t, Deps{Datasets: testDatasets(t)})
	_, err := svc.Assess(context.Background(), Request{Transcript: "hello there."})
	if !errors.IsKind(err, errors.KindAudio) {
		t.Errorf("expected audio error, got %v", err)
	}
}

func TestAssessRejectsGarbageAudio(t *testing.T) {
	svc := testService(t, Deps{Datasets: testDatasets(t)})
	_, err := svc.Assess(context.Background(), Request{
		Audio:      []byte("definitely not audio"),
		Transcript: "hello there.",
	})
	if !errors.IsKind(err, errors.KindAudio) {
		t.Errorf("expected audio error, got %v", err)
	}
}

func TestAssessRequiresTranscript(t *testing.T) {
	svc := testService(t, Deps{Datasets: testDatasets(t)})
	_, err := svc.Assess(context.Background(), Request{Audio: toneWAV(t, 150, 1.0)})
	if !errors.IsKind(err, errors.KindText) {
		t.Errorf("expected text error, got %v", err)
	}
}

func TestAssessUsesASRWhenEnabled(t *testing.T) {
	stub := &stubASR{text: testTranscript}
	svc := testService(t, Deps{ASR: stub, Datasets: testDatasets(t)})

	out, err := svc.Assess(context.Background(), Request{
		Audio:  toneWAV(t, 150, 1.0),
		UseASR: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stub.calls != 1 {
		t.Errorf("asr calls = %d, expected 1", stub.calls)
	}
	if out.Transcript != testTranscript {
		t.Errorf("transcript = %q", out.Transcript)
	}
}

func TestAssessUsesASRSegmentsForRates(t *testing.T) {
	stub := &stubASR{
		text: testTranscript,
		segs: []Segment{{Start: 0, End: 1.0}, {Start: 1.5, End: 2.5}},
	}
	svc := testService(t, Deps{Datasets: testDatasets(t), ASR: stub})

	out, err := svc.Assess(context.Background(), Request{
		Audio:  toneWAV(t, 150, 3.0),
		UseASR: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 18 words over 2.0s of segment time across 2 segments.
	if got := out.Features[features.ArticulationRate]; math.Abs(got-9) > 1e-9 {
		t.Errorf("ArticulationRate = %v, expected 9", got)
	}
	if got := out.Features[features.MLR]; math.Abs(got-9) > 1e-9 {
		t.Errorf("MLR = %v, expected 9", got)
	}
}

func TestAssessWarnsOnShortAudio(t *testing.T) {
	svc := testService(t, Deps{Datasets: testDatasets(t)})
	out, err := svc.Assess(context.Background(), Request{
		Audio:      toneWAV(t, 150, 0.3),
		Transcript: "hello there.",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := out.Warnings["audio"]; !ok {
		t.Errorf("expected short-audio warning, got %v", out.Warnings)
	}
}

func TestAssessDegradesWithoutEmbedder(t *testing.T) {
	svc := testService(t, Deps{Datasets: testDatasets(t)})
	out, err := svc.Assess(context.Background(), Request{
		Audio:          toneWAV(t, 150, 1.0),
		Transcript:     testTranscript,
		ReferenceTopic: "daily life",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := out.Warnings["coherence"]; !ok {
		t.Errorf("expected coherence warning, got %v", out.Warnings)
	}
	if _, ok := out.Warnings["topic"]; !ok {
		t.Errorf("expected topic warning, got %v", out.Warnings)
	}
	if out.Features[features.SemanticCoherence] != 0 {
		t.Errorf("coherence = %v, expected 0", out.Features[features.SemanticCoherence])
	}
}

func TestAssessBatchKeepsOrder(t *testing.T) {
	svc := testService(t, Deps{Datasets: testDatasets(t)})
	reqs := []Request{
		{Audio: toneWAV(t, 150, 1.0), Transcript: "hello there."},
		{Transcript: "no audio at all."},
		{Audio: toneWAV(t, 200, 1.0), Transcript: "hello again."},
	}

	results, errs := svc.AssessBatch(context.Background(), reqs)
	if len(results) != 3 || len(errs) != 3 {
		t.Fatalf("got %d results, %d errors", len(results), len(errs))
	}
	if results[0] == nil || errs[0] != nil {
		t.Errorf("item 0: result=%v err=%v", results[0], errs[0])
	}
	if results[1] != nil || !errors.IsKind(errs[1], errors.KindAudio) {
		t.Errorf("item 1: result=%v err=%v", results[1], errs[1])
	}
	if results[2] == nil || errs[2] != nil {
		t.Errorf("item 2: result=%v err=%v", results[2], errs[2])
	}
}
