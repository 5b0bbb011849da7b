package config

import "time"

// Default returns the baseline configuration. The scaler entries are the
// approximate training-time statistics carried over from the model pipeline;
// deployments with exact statistics should override them.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			IP:        "0.0.0.0",
			Port:      8080,
			StaticDir: "web",
		},
		Log: LogConfig{
			Level: "info",
			Dir:   "logs",
			File:  "server.log",
		},
		Storage: StorageConfig{
			Dir:  "data",
			File: "ispeak.db",
		},
		Cache: CacheConfig{
			Type: "memory",
			TTL:  24 * time.Hour,
		},
		Pipeline: PipelineConfig{
			FrameSize:        2048,
			PauseHop:         1024,
			ProminenceHop:    512,
			EnergyThreshold:  0.01,
			MinPauseMs:       300,
			MinSegmentMs:     200,
			TopDb:            30,
			MinLongPauseSec:  0.5,
			ProminenceK:      1.0,
			PitchFloorHz:     75,
			PitchCeilHz:      500,
			RangeFloorHz:     50,
			RangeCeilHz:      400,
			VoicingGate:      0.3,
			MFCCCoefficients: 13,
			ShortAudioSec:    0.8,
			CoherenceMaxSent: 12,
		},
		Providers: ProvidersConfig{
			TTS: TTSConfig{
				Type:      "edge",
				Voice:     "en-US-AriaNeural",
				OutputDir: "data/tts",
				MaxChars:  180,
			},
			ASR: ASRConfig{
				Enabled: false,
				Type:    "whisper",
				Model:   "whisper-1",
			},
			Embedding: EmbeddingConfig{
				Type:  "openai",
				Model: "text-embedding-3-small",
			},
			Classifier: ClassifierConfig{
				Type:     "forest",
				ModelDir: "data/models",
			},
		},
		Scoring: ScoringConfig{
			Scalers: map[string]ScalerConfig{
				"Fluency": {
					Mean:  []float64{100, 120, 2.0, 5, 10, 50, 60},
					Scale: []float64{60, 40, 0.8, 5, 6, 40, 40},
				},
				"Pronunciation": {
					Mean:  []float64{2.5, 100, 60},
					Scale: []float64{1.0, 60, 20},
				},
				"Complexity": {
					Mean:  []float64{0.5, 2, 1, 0.5, 30, 20, 20, 20, 20, 10, 5, 5, 12, 25, 120, 80, 0.6},
					Scale: []float64{1.0, 3, 2, 1.0, 15, 15, 15, 15, 15, 10, 7, 8, 6, 10, 60, 40, 0.15},
				},
			},
		},
		Assess: AssessConfig{
			BatchConcurrency: 2,
			CefrDictPath:     "data/English_CEFR_Words.csv",
			IdiomsPath:       "data/idioms_english.csv",
		},
	}
}
