package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	platformerrors "ispeak-server-go/internal/platform/errors"
)

func TestSmokeLoadConfigAndLogger(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf("log:\n  log_dir: %q\n", filepath.Join(dir, "logs"))
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ISPEAK_CONFIG", cfgPath)

	config, logger, err := loadConfigAndLogger()
	if err != nil {
		t.Fatalf("loadConfigAndLogger failed: %v", err)
	}
	if config == nil {
		t.Fatal("config is nil")
	}
	if logger == nil {
		t.Fatal("logger is nil")
	}
	logger.Close()
}

func TestInitGraphOrder(t *testing.T) {
	steps := InitGraph()
	want := []string{
		"config:load",
		"logging:init-provider",
		"storage:init-database",
		"cache:init-store",
		"datasets:load",
		"providers:init",
		"scoring:init-service",
		"assess:init-service",
	}
	if len(steps) != len(want) {
		t.Fatalf("unexpected step count: got %d want %d", len(steps), len(want))
	}

	seen := make(map[string]struct{}, len(steps))
	for i, step := range steps {
		if step.ID != want[i] {
			t.Errorf("step %d = %s, want %s", i, step.ID, want[i])
		}
		for _, dep := range step.DependsOn {
			if _, ok := seen[dep]; !ok {
				t.Errorf("step %s depends on %s which is not declared earlier", step.ID, dep)
			}
		}
		seen[step.ID] = struct{}{}
	}
}

func TestExecuteInitStepsRejectsMissingDependency(t *testing.T) {
	steps := []initStep{
		{
			ID:        "b",
			DependsOn: []string{"a"},
			Execute:   func(context.Context, *appState) error { return nil },
		},
	}
	err := executeInitSteps(context.Background(), steps, &appState{})
	if err == nil {
		t.Fatal("expected dependency error")
	}
	if !platformerrors.IsKind(err, platformerrors.KindBootstrap) {
		t.Errorf("kind = %v, want bootstrap", platformerrors.KindOf(err))
	}
}

func TestExecuteInitStepsWrapsStepFailure(t *testing.T) {
	steps := []initStep{
		{
			ID:   "boom",
			Kind: platformerrors.KindStorage,
			Execute: func(context.Context, *appState) error {
				return fmt.Errorf("disk on fire")
			},
		},
	}
	err := executeInitSteps(context.Background(), steps, &appState{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !platformerrors.IsKind(err, platformerrors.KindStorage) {
		t.Errorf("kind = %v, want storage", platformerrors.KindOf(err))
	}
}
