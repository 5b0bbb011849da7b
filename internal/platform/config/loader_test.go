package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Pipeline.FrameSize != 2048 {
		t.Errorf("FrameSize = %d, expected 2048", cfg.Pipeline.FrameSize)
	}
	if cfg.Pipeline.PauseHop != 1024 || cfg.Pipeline.ProminenceHop != 512 {
		t.Errorf("hops = (%d,%d), expected (1024,512)",
			cfg.Pipeline.PauseHop, cfg.Pipeline.ProminenceHop)
	}
	if cfg.Pipeline.EnergyThreshold != 0.01 {
		t.Errorf("EnergyThreshold = %v, expected 0.01", cfg.Pipeline.EnergyThreshold)
	}

	// Scaler lengths must match the subconstruct vector lengths they scale.
	lengths := map[string]int{
		"Fluency":       7,
		"Pronunciation": 3,
		"Complexity":    17,
	}
	for name, want := range lengths {
		sc, ok := cfg.Scoring.Scalers[name]
		if !ok {
			t.Fatalf("missing default scaler for %s", name)
		}
		if len(sc.Mean) != want || len(sc.Scale) != want {
			t.Errorf("%s scaler lengths = (%d,%d), expected %d",
				name, len(sc.Mean), len(sc.Scale), want)
		}
	}
}

func TestLoaderMissingFileUsesDefaults(t *testing.T) {
	loader := NewLoader().WithDotEnv(false).WithPath(filepath.Join(t.TempDir(), "absent.yaml"))

	res, err := loader.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Config.Server.Port != 8080 {
		t.Errorf("Port = %d, expected default 8080", res.Config.Server.Port)
	}
}

func TestLoaderOverridesFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 9000
pipeline:
  prominence_k: 0.5
assess:
  reference_topic: "Describe your favourite course."
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := NewLoader().WithDotEnv(false).WithPath(path).Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg := res.Config
	if cfg.Server.Port != 9000 {
		t.Errorf("Port = %d, expected 9000", cfg.Server.Port)
	}
	if cfg.Pipeline.ProminenceK != 0.5 {
		t.Errorf("ProminenceK = %v, expected 0.5", cfg.Pipeline.ProminenceK)
	}
	if cfg.Assess.ReferenceTopic == "" {
		t.Error("ReferenceTopic should be set from file")
	}
	// untouched sections keep defaults
	if cfg.Pipeline.FrameSize != 2048 {
		t.Errorf("FrameSize = %d, expected default 2048", cfg.Pipeline.FrameSize)
	}
}

func TestLoaderEnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	res, err := NewLoader().WithDotEnv(false).WithPath(filepath.Join(t.TempDir(), "absent.yaml")).Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Config.Providers.Embedding.APIKey != "sk-test" {
		t.Errorf("Embedding APIKey = %q, expected env value", res.Config.Providers.Embedding.APIKey)
	}
	if res.Config.Providers.ASR.APIKey != "sk-test" {
		t.Errorf("ASR APIKey = %q, expected env value", res.Config.Providers.ASR.APIKey)
	}
}
