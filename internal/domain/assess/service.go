package assess

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"ispeak-server-go/internal/domain/audio"
	"ispeak-server-go/internal/domain/audio/dsp"
	"ispeak-server-go/internal/domain/audio/timbre"
	"ispeak-server-go/internal/domain/features"
	"ispeak-server-go/internal/domain/semantic"
	"ispeak-server-go/internal/domain/text"
	"ispeak-server-go/internal/platform/config"
	"ispeak-server-go/internal/platform/errors"
	"ispeak-server-go/internal/platform/logging"
)

// Event topics published around each assessment.
const (
	TopicStarted   = "assess.started"
	TopicDegraded  = "assess.degraded"
	TopicCompleted = "assess.completed"
)

// Segment is a speech span with timestamps, as reported by the transcriber.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Transcriber produces a transcript from encoded audio, with segment timing
// when the backend reports it. Optional: when absent, callers must supply the
// transcript themselves.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, []Segment, error)
}

// EventPublisher is the slice of the event bus the service needs.
type EventPublisher interface {
	Publish(topic string, args ...interface{})
}

// Request is one recording to assess. Audio is required. Transcript is
// required unless a transcriber is configured and UseASR is set.
type Request struct {
	RecordingID    string
	Audio          []byte
	Filename       string
	Transcript     string
	ReferenceTopic string
	UseASR         bool
}

// Extras carries the matched items behind the numeric counts, for display.
type Extras struct {
	Idioms          []string          `json:"idioms"`
	BigramMatches   []string          `json:"bigram_matches"`
	TrigramMatches  []string          `json:"trigram_matches"`
	FourgramMatches []string          `json:"fourgram_matches"`
	WordLevels      map[string]string `json:"word_levels"`
}

// Assessment is the extracted feature record plus everything a caller needs
// to present or persist it. Warnings lists the subsystems that degraded to
// zero-valued features instead of failing the run.
type Assessment struct {
	RecordingID string            `json:"recording_id"`
	Duration    float64           `json:"duration"`
	Transcript  string            `json:"transcript"`
	Features    features.Record   `json:"features"`
	Extras      Extras            `json:"extras"`
	Warnings    map[string]string `json:"warnings,omitempty"`
}

// Service runs the full feature-extraction pipeline: audio decode, energy and
// pitch analysis, transcript analysis, and the provider-backed semantic and
// spectral comparisons.
type Service struct {
	pipe     config.PipelineConfig
	refTopic string
	batch    int

	asr      Transcriber
	comparer *timbre.Comparator
	semantic *semantic.Analyzer
	datasets *text.Datasets
	bus      EventPublisher
	logger   *logging.Logger
}

// Deps bundles the service collaborators. ASR, the timbre comparator, the
// semantic analyzer and the event bus may each be nil; the matching features
// then degrade with a warning.
type Deps struct {
	ASR      Transcriber
	Comparer *timbre.Comparator
	Semantic *semantic.Analyzer
	Datasets *text.Datasets
	Bus      EventPublisher
	Logger   *logging.Logger
}

func NewService(pipe config.PipelineConfig, acfg config.AssessConfig, deps Deps) *Service {
	batch := acfg.BatchConcurrency
	if batch < 1 {
		batch = 1
	}
	return &Service{
		pipe:     pipe,
		refTopic: acfg.ReferenceTopic,
		batch:    batch,
		asr:      deps.ASR,
		comparer: deps.Comparer,
		semantic: deps.Semantic,
		datasets: deps.Datasets,
		bus:      deps.Bus,
		logger:   deps.Logger,
	}
}

func (s *Service) publish(topic string, args ...interface{}) {
	if s.bus != nil {
		s.bus.Publish(topic, args...)
	}
}

// Assess extracts the full feature record for one recording. Undecodable
// audio and a missing transcript are hard errors; every provider-backed
// feature degrades to zero with an entry in Warnings instead.
func (s *Service) Assess(ctx context.Context, req Request) (*Assessment, error) {
	const op = "assess"

	id := req.RecordingID
	if id == "" {
		id = uuid.NewString()
	}
	s.publish(TopicStarted, id)

	if len(req.Audio) == 0 {
		return nil, errors.New(errors.KindAudio, op, "no audio provided")
	}
	clip, err := audio.Decode(req.Audio)
	if err != nil {
		return nil, errors.Wrap(errors.KindAudio, op, "decode recording", err)
	}
	duration := clip.Duration()

	out := &Assessment{
		RecordingID: id,
		Duration:    duration,
		Features:    features.NewRecord(),
		Warnings:    make(map[string]string),
	}
	var warnMu sync.Mutex
	warn := func(key, msg string) {
		warnMu.Lock()
		out.Warnings[key] = msg
		warnMu.Unlock()
		s.publish(TopicDegraded, id, key)
		s.logger.WarnTag("ASSESS", "%s degraded for %s: %s", key, id, msg)
	}

	if duration < s.pipe.ShortAudioSec {
		warn("audio", fmt.Sprintf("audio too short (%.2fs)", duration))
	}

	transcript := strings.TrimSpace(req.Transcript)
	var asrSegs []Segment
	if transcript == "" && req.UseASR && s.asr != nil {
		transcript, asrSegs, err = s.asr.Transcribe(ctx, req.Audio, req.Filename)
		if err != nil {
			warn("asr", err.Error())
		}
		transcript = strings.TrimSpace(transcript)
	}
	if transcript == "" {
		return nil, errors.New(errors.KindText, op, "transcript required")
	}
	out.Transcript = transcript

	refTopic := req.ReferenceTopic
	if refTopic == "" {
		refTopic = s.refTopic
	}

	rec := out.Features
	rec.Set(features.Duration, duration)

	// Transcript features are cheap; run them up front on this goroutine.
	s.textFeatures(rec, out, transcript, warn)

	// Each goroutine fills its own result; the shared record is only touched
	// after the group settles.
	var (
		signal    map[string]float64
		spectral  float64
		coherence float64
		topicSim  float64
	)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		signal = s.signalFeatures(clip, duration, transcript, asrSegs)
		return nil
	})
	g.Go(func() error {
		spectral = s.spectralFeature(gctx, clip, transcript, warn)
		return nil
	})
	g.Go(func() error {
		score, err := s.coherence(gctx, transcript)
		if err != nil {
			warn("coherence", err.Error())
		}
		coherence = score
		return nil
	})
	g.Go(func() error {
		score, err := s.topicSimilarity(gctx, transcript, refTopic)
		if err != nil {
			warn("topic", err.Error())
		}
		topicSim = score
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for name, v := range signal {
		rec.Set(name, v)
	}
	rec.Set(features.MFCCPercent, spectral)
	rec.Set(features.SemanticCoherence, coherence)
	rec.Set(features.TopicSimilarity, topicSim)

	if len(out.Warnings) == 0 {
		out.Warnings = nil
	}
	s.publish(TopicCompleted, id)
	s.logger.InfoTag("ASSESS", "extracted %s: dur=%.2fs words=%.0f warnings=%d",
		id, duration, rec[features.TotalWords], len(out.Warnings))
	return out, nil
}

// AssessBatch runs requests with bounded concurrency. The result slice is
// index-aligned with the input; a failed item carries its error and a nil
// assessment rather than aborting the batch.
func (s *Service) AssessBatch(ctx context.Context, reqs []Request) ([]*Assessment, []error) {
	results := make([]*Assessment, len(reqs))
	errs := make([]error, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batch)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			results[i], errs[i] = s.Assess(gctx, req)
			return nil
		})
	}
	g.Wait()
	return results, errs
}

// signalFeatures computes every feature derived from the waveform alone.
func (s *Service) signalFeatures(clip *audio.Clip, duration float64, transcript string, asrSegs []Segment) map[string]float64 {
	p := s.pipe
	out := make(map[string]float64, 16)

	es := dsp.NewEnergySeries(clip.Samples, clip.SampleRate, p.FrameSize, p.PauseHop)
	out[features.MeanEnergy], out[features.StdevEnergy] = es.Stats()

	out[features.PauseFreq] = float64(dsp.DBPauseCount(es, p.TopDb, p.MinLongPauseSec))
	out[features.LongPauseSec] = dsp.LongPauseDuration(es, p.EnergyThreshold, p.MinPauseMs)

	pitch := dsp.AnalyzePitch(clip.Samples, clip.SampleRate, dsp.PitchParams{
		FrameSize:      p.FrameSize,
		Hop:            p.PauseHop,
		FloorHz:        p.PitchFloorHz,
		CeilHz:         p.PitchCeilHz,
		RangeFloorHz:   p.RangeFloorHz,
		RangeCeilHz:    p.RangeCeilHz,
		ConfidenceGate: p.VoicingGate,
		EnergyGate:     p.EnergyThreshold,
	})
	out[features.MeanPitch] = pitch.Mean
	out[features.StdevPitch] = pitch.Stdev
	out[features.PitchRange] = pitch.Range

	// Prominences run on a denser contour than the pause analysis.
	dense := dsp.NewEnergySeries(clip.Samples, clip.SampleRate, p.FrameSize, p.ProminenceHop)
	prom := dsp.FindProminences(dense, p.ProminenceK)
	out[features.NumProminences] = float64(prom.Count)
	out[features.ProminenceMean] = prom.DistMean
	out[features.ProminenceStd] = prom.DistStdev

	s.rateFeatures(out, es, duration, transcript, asrSegs)
	return out
}

// rateFeatures computes the speech-rate features. Segment boundaries come
// from the transcriber timestamps when present, otherwise from the
// energy-threshold segmentation; a clip with no detectable segments counts
// as one segment spanning the whole recording. Distributing words
// proportionally to segment duration stands in for per-word timestamps, so
// the mean run length collapses to words over segment count.
func (s *Service) rateFeatures(out map[string]float64, es *dsp.EnergySeries, duration float64, transcript string, asrSegs []Segment) {
	p := s.pipe
	totalWords := float64(len(text.Tokenize(transcript)))

	var durs []float64
	for _, seg := range asrSegs {
		if d := seg.End - seg.Start; d > 0 {
			durs = append(durs, d)
		}
	}
	if len(durs) == 0 {
		for _, seg := range dsp.SpeechSegments(es, duration, p.EnergyThreshold, p.MinPauseMs, p.MinSegmentMs) {
			if d := seg.Duration(); d > 0 {
				durs = append(durs, d)
			}
		}
	}
	if len(durs) == 0 && duration > 0 {
		durs = []float64{duration}
	}

	var totalSegDur float64
	for _, d := range durs {
		totalSegDur += d
	}
	if totalSegDur > 0 {
		out[features.ArticulationRate] = totalWords / totalSegDur
	}

	segCount := len(durs)
	if segCount < 1 {
		segCount = 1
	}
	out[features.MLR] = totalWords / float64(segCount)

	var wps float64
	if duration > 0 {
		wps = totalWords / duration
	}
	out[features.WPS] = wps
	out[features.WPM] = wps * 60
}

// spectralFeature computes MFCC (%). The synthesized-reference comparison
// wins when it works; otherwise the intrinsic percentile scaling stands in.
func (s *Service) spectralFeature(ctx context.Context, clip *audio.Clip, transcript string, warn func(key, msg string)) float64 {
	p := s.pipe
	if score := s.comparer.Compare(ctx, clip, transcript); score != nil {
		return *score
	}
	if s.comparer != nil {
		warn("tts", "reference comparison unavailable, using intrinsic spectral score")
	}
	return dsp.MFCCRobustPercent(
		clip.Samples, clip.SampleRate, p.FrameSize, p.PauseHop, p.MFCCCoefficients, p.EnergyThreshold)
}

// textFeatures fills everything derived from the transcript text and the
// word datasets.
func (s *Service) textFeatures(rec features.Record, out *Assessment, transcript string, warn func(key, msg string)) {
	tokens := text.Tokenize(transcript)
	totalWords := float64(len(tokens))
	typeCount := float64(text.TypeCount(tokens))

	rec.Set(features.TotalWords, totalWords)
	rec.Set(features.TokenCount, totalWords)
	rec.Set(features.TypeCount, typeCount)
	if totalWords > 0 {
		rec.Set(features.TTR, typeCount/totalWords)
	}

	markers := text.CountMarkers(transcript)
	rec.Set(features.LinkingCount, float64(markers.Linking))
	rec.Set(features.DiscourseCount, float64(markers.Discourse))
	rec.Set(features.FilledPauses, float64(markers.Filled))

	rec.Set(features.GrammarErrors, float64(text.CountGrammarErrors(transcript)))

	bundles := text.CountBundles(transcript)
	rec.Set(features.BigramCount, float64(bundles.Bigrams))
	rec.Set(features.TrigramCount, float64(bundles.Trigrams))
	rec.Set(features.FourgramCount, float64(bundles.Fourgrams))
	out.Extras.BigramMatches = bundles.BigramMatches
	out.Extras.TrigramMatches = bundles.TrigramMatches
	out.Extras.FourgramMatches = bundles.FourgramMatches

	rec.Set(features.SynonymVariations, float64(text.SynonymVariations(transcript)))
	td := text.TreeDepthProxy(transcript)
	rec.Set(features.AvgTreeDepth, td.Avg)
	rec.Set(features.MaxTreeDepth, td.Max)

	if s.datasets == nil {
		warn("datasets", "word datasets not configured")
		return
	}

	if dict, err := s.datasets.CEFRDict(); err != nil {
		warn("cefr", err.Error())
	} else {
		levels := text.WordLevels(transcript, dict)
		dist := text.CEFRDistribution(levels)
		rec.Set(features.CEFRA1, float64(dist["A1"]))
		rec.Set(features.CEFRA2, float64(dist["A2"]))
		rec.Set(features.CEFRB1, float64(dist["B1"]))
		rec.Set(features.CEFRB2, float64(dist["B2"]))
		rec.Set(features.CEFRC1, float64(dist["C1"]))
		rec.Set(features.CEFRC2, float64(dist["C2"]))
		rec.Set(features.CEFRUnknown, float64(dist["UNKNOWN"]))
		out.Extras.WordLevels = levels
	}

	if idioms, err := s.datasets.Idioms(); err != nil {
		warn("idioms", err.Error())
	} else {
		found := text.FindIdioms(transcript, idioms)
		rec.Set(features.IdiomsFound, float64(len(found)))
		out.Extras.Idioms = found
	}
}

func (s *Service) coherence(ctx context.Context, transcript string) (float64, error) {
	if s.semantic == nil {
		return 0, errors.New(errors.KindProvider, "assess", "no semantic analyzer configured")
	}
	return s.semantic.Coherence(ctx, transcript)
}

func (s *Service) topicSimilarity(ctx context.Context, transcript, reference string) (float64, error) {
	if reference == "" {
		return 0, nil
	}
	if s.semantic == nil {
		return 0, errors.New(errors.KindProvider, "assess", "no semantic analyzer configured")
	}
	return s.semantic.TopicSimilarity(ctx, transcript, reference)
}
