package timbre

import (
	"context"

	"ispeak-server-go/internal/domain/audio"
	"ispeak-server-go/internal/domain/audio/dsp"
	"ispeak-server-go/internal/platform/logging"
	"ispeak-server-go/internal/utils"
)

// Synthesizer renders text to encoded audio. The comparator uses it to build
// a reference rendition of the speaker's transcript.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Comparator scores how closely a recording's spectral envelope tracks a
// synthesized reference of the same words.
type Comparator struct {
	tts          Synthesizer
	maxChars     int
	frameSize    int
	hop          int
	coefficients int
	logger       *logging.Logger
}

func NewComparator(tts Synthesizer, maxChars, frameSize, hop, coefficients int, logger *logging.Logger) *Comparator {
	return &Comparator{
		tts:          tts,
		maxChars:     maxChars,
		frameSize:    frameSize,
		hop:          hop,
		coefficients: coefficients,
		logger:       logger,
	}
}

// Compare returns a 0..100 similarity, or nil when the reference path fails
// for any reason. Callers fall back to the intrinsic spectral score on nil;
// this stage must never fail an assessment.
func (c *Comparator) Compare(ctx context.Context, clip *audio.Clip, transcript string) *float64 {
	if c == nil || c.tts == nil || clip == nil || transcript == "" {
		return nil
	}

	// Truncate on rune boundaries: a byte slice could split a multi-byte
	// character right before it goes to the synthesizer.
	text := transcript
	if c.maxChars > 0 {
		if runes := []rune(text); len(runes) > c.maxChars {
			text = string(runes[:c.maxChars])
		}
	}

	encoded, err := c.tts.Synthesize(ctx, text)
	if err != nil || len(encoded) == 0 {
		c.logger.WarnTag("TTS", "reference synthesis failed: %v", err)
		return nil
	}

	ref, err := audio.Decode(encoded)
	if err != nil {
		c.logger.WarnTag("TTS", "reference decode failed: %v", err)
		return nil
	}

	maxDur := clip.Duration()
	if ref.Duration() < maxDur {
		maxDur = ref.Duration()
	}

	a := dsp.MFCCMatrix(clip.Samples, clip.SampleRate, c.frameSize, c.hop, c.coefficients, maxDur)
	b := dsp.MFCCMatrix(ref.Samples, ref.SampleRate, c.frameSize, c.hop, c.coefficients, maxDur)
	if len(a) == 0 || len(b) == 0 {
		return nil
	}

	a = utils.StandardizeColumns(a)
	b = utils.StandardizeColumns(b)

	rows := len(a)
	if len(b) > rows {
		rows = len(b)
	}
	a = utils.PadRows(a, rows, c.coefficients)
	b = utils.PadRows(b, rows, c.coefficients)

	score := utils.Cosine(utils.Flatten2D(a), utils.Flatten2D(b)) * 100
	return &score
}
