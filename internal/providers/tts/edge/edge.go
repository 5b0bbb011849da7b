package edge

import (
	"context"
	"crypto/sha1"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/wujunwei928/edge-tts-go/edge_tts"

	"ispeak-server-go/internal/platform/errors"
	"ispeak-server-go/internal/platform/logging"
)

// Provider synthesizes speech through the Microsoft Edge neural voices and
// returns MP3 audio. Repeated texts are served from a small in-memory cache
// since the reference comparator often re-synthesizes identical transcripts.
type Provider struct {
	voice     string
	outputDir string
	logger    *logging.Logger

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	audio   []byte
	created time.Time
}

const (
	cacheMaxEntries = 256
	cacheTTL        = 30 * time.Minute
)

type Config struct {
	Voice     string
	OutputDir string
}

func New(cfg Config, logger *logging.Logger) *Provider {
	voice := cfg.Voice
	if voice == "" {
		voice = "en-US-AriaNeural"
	}
	return &Provider{
		voice:     voice,
		outputDir: cfg.OutputDir,
		logger:    logger,
		cache:     make(map[string]cacheEntry),
	}
}

// Synthesize renders text with the configured voice.
func (p *Provider) Synthesize(ctx context.Context, text string) ([]byte, error) {
	const op = "tts.edge"
	if text == "" {
		return nil, errors.New(errors.KindProvider, op, "text cannot be empty")
	}

	if audio := p.fromCache(text); audio != nil {
		p.logger.DebugTag("TTS", "cache hit for %d chars", len(text))
		return audio, nil
	}

	communicate, err := edge_tts.NewCommunicate(text, edge_tts.SetVoice(p.voice))
	if err != nil {
		return nil, errors.Wrap(errors.KindProvider, op, "create communicator", err)
	}

	start := time.Now()
	audio, err := communicate.Stream()
	if err != nil {
		return nil, errors.Wrap(errors.KindProvider, op, "synthesis failed", err)
	}
	p.logger.DebugTag("TTS", "synthesized %d bytes in %v", len(audio), time.Since(start))

	p.store(text, audio)
	p.keepCopy(text, audio)
	return audio, nil
}

// keepCopy writes fresh renditions under the configured output directory so
// reference audio can be inspected later. Best-effort: failures only log.
func (p *Provider) keepCopy(text string, audio []byte) {
	if p.outputDir == "" {
		return
	}
	if err := os.MkdirAll(p.outputDir, 0o755); err != nil {
		p.logger.WarnTag("TTS", "create output dir: %v", err)
		return
	}
	name := fmt.Sprintf("%x.mp3", sha1.Sum([]byte(text)))
	if err := os.WriteFile(filepath.Join(p.outputDir, name), audio, 0o644); err != nil {
		p.logger.WarnTag("TTS", "write rendition copy: %v", err)
	}
}

// SynthesizeToFile keeps a copy of the rendition on disk for inspection.
func (p *Provider) SynthesizeToFile(ctx context.Context, text, path string) error {
	audio, err := p.Synthesize(ctx, text)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		return errors.Wrap(errors.KindProvider, "tts.edge", "write audio file", err)
	}
	return nil
}

func (p *Provider) fromCache(text string) []byte {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if e, ok := p.cache[text]; ok && time.Since(e.created) < cacheTTL {
		return e.audio
	}
	return nil
}

func (p *Provider) store(text string, audio []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.cache) >= cacheMaxEntries {
		var oldestKey string
		var oldestAt time.Time
		for k, e := range p.cache {
			if oldestKey == "" || e.created.Before(oldestAt) {
				oldestKey = k
				oldestAt = e.created
			}
		}
		delete(p.cache, oldestKey)
	}
	p.cache[text] = cacheEntry{audio: audio, created: time.Now()}
}
