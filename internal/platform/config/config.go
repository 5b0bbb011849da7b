package config

import "time"

type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Storage   StorageConfig   `yaml:"storage" mapstructure:"storage"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Providers ProvidersConfig `yaml:"providers" mapstructure:"providers"`
	Scoring   ScoringConfig   `yaml:"scoring" mapstructure:"scoring"`
	Assess    AssessConfig    `yaml:"assess" mapstructure:"assess"`
}

type ServerConfig struct {
	IP        string `yaml:"ip" mapstructure:"ip"`
	Port      int    `yaml:"port" mapstructure:"port"`
	StaticDir string `yaml:"static_dir" mapstructure:"static_dir"`
}

type LogConfig struct {
	Level string `yaml:"log_level" mapstructure:"log_level"`
	Dir   string `yaml:"log_dir" mapstructure:"log_dir"`
	File  string `yaml:"log_file" mapstructure:"log_file"`
}

type StorageConfig struct {
	Dir  string `yaml:"dir" mapstructure:"dir"`
	File string `yaml:"file" mapstructure:"file"`
}

type CacheConfig struct {
	Type  string           `yaml:"type" mapstructure:"type"`
	TTL   time.Duration    `yaml:"ttl" mapstructure:"ttl"`
	Redis RedisCacheConfig `yaml:"redis,omitempty" mapstructure:"redis"`
}

type RedisCacheConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Username string `yaml:"username,omitempty" mapstructure:"username"`
	Password string `yaml:"password,omitempty" mapstructure:"password"`
	DB       int    `yaml:"db,omitempty" mapstructure:"db"`
	Prefix   string `yaml:"prefix,omitempty" mapstructure:"prefix"`
}

// PipelineConfig carries the signal-analysis parameters. The defaults mirror
// the values the classifiers were trained against; changing them changes
// feature semantics, so overrides are for experiments only.
type PipelineConfig struct {
	FrameSize        int     `yaml:"frame_size" mapstructure:"frame_size"`
	PauseHop         int     `yaml:"pause_hop" mapstructure:"pause_hop"`
	ProminenceHop    int     `yaml:"prominence_hop" mapstructure:"prominence_hop"`
	EnergyThreshold  float64 `yaml:"energy_threshold" mapstructure:"energy_threshold"`
	MinPauseMs       int     `yaml:"min_pause_ms" mapstructure:"min_pause_ms"`
	MinSegmentMs     int     `yaml:"min_segment_ms" mapstructure:"min_segment_ms"`
	TopDb            float64 `yaml:"top_db" mapstructure:"top_db"`
	MinLongPauseSec  float64 `yaml:"min_long_pause_sec" mapstructure:"min_long_pause_sec"`
	ProminenceK      float64 `yaml:"prominence_k" mapstructure:"prominence_k"`
	PitchFloorHz     float64 `yaml:"pitch_floor_hz" mapstructure:"pitch_floor_hz"`
	PitchCeilHz      float64 `yaml:"pitch_ceil_hz" mapstructure:"pitch_ceil_hz"`
	RangeFloorHz     float64 `yaml:"range_floor_hz" mapstructure:"range_floor_hz"`
	RangeCeilHz      float64 `yaml:"range_ceil_hz" mapstructure:"range_ceil_hz"`
	VoicingGate      float64 `yaml:"voicing_gate" mapstructure:"voicing_gate"`
	MFCCCoefficients int     `yaml:"mfcc_coefficients" mapstructure:"mfcc_coefficients"`
	ShortAudioSec    float64 `yaml:"short_audio_sec" mapstructure:"short_audio_sec"`
	CoherenceMaxSent int     `yaml:"coherence_max_sentences" mapstructure:"coherence_max_sentences"`
}

type ProvidersConfig struct {
	TTS        TTSConfig        `yaml:"tts" mapstructure:"tts"`
	ASR        ASRConfig        `yaml:"asr" mapstructure:"asr"`
	Embedding  EmbeddingConfig  `yaml:"embedding" mapstructure:"embedding"`
	Classifier ClassifierConfig `yaml:"classifier" mapstructure:"classifier"`
}

type TTSConfig struct {
	Type      string `yaml:"type" mapstructure:"type"`
	Voice     string `yaml:"voice" mapstructure:"voice"`
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
	MaxChars  int    `yaml:"max_chars" mapstructure:"max_chars"`
}

type ASRConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Type    string `yaml:"type" mapstructure:"type"`
	Model   string `yaml:"model" mapstructure:"model"`
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL string `yaml:"url,omitempty" mapstructure:"url"`
}

type EmbeddingConfig struct {
	Type    string `yaml:"type" mapstructure:"type"`
	Model   string `yaml:"model" mapstructure:"model"`
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL string `yaml:"url,omitempty" mapstructure:"url"`
}

type ClassifierConfig struct {
	Type     string `yaml:"type" mapstructure:"type"`
	ModelDir string `yaml:"model_dir" mapstructure:"model_dir"`
	BaseURL  string `yaml:"url,omitempty" mapstructure:"url"`
}

// ScalerConfig holds a per-model (mean, scale) standardization pair. Length
// must match the model's input vector; empty means pass-through.
type ScalerConfig struct {
	Mean  []float64 `yaml:"mean" mapstructure:"mean"`
	Scale []float64 `yaml:"scale" mapstructure:"scale"`
}

type ScoringConfig struct {
	Scalers map[string]ScalerConfig `yaml:"scalers" mapstructure:"scalers"`
}

type AssessConfig struct {
	ReferenceTopic   string `yaml:"reference_topic" mapstructure:"reference_topic"`
	BatchConcurrency int    `yaml:"batch_concurrency" mapstructure:"batch_concurrency"`
	CefrDictPath     string `yaml:"cefr_dict_path" mapstructure:"cefr_dict_path"`
	IdiomsPath       string `yaml:"idioms_path" mapstructure:"idioms_path"`
}
