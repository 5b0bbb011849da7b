package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"ispeak-server-go/internal/domain/assess"
	"ispeak-server-go/internal/domain/audio/timbre"
	"ispeak-server-go/internal/domain/cache"
	"ispeak-server-go/internal/domain/eventbus"
	"ispeak-server-go/internal/domain/scoring"
	"ispeak-server-go/internal/domain/semantic"
	"ispeak-server-go/internal/domain/text"
	platformconfig "ispeak-server-go/internal/platform/config"
	platformerrors "ispeak-server-go/internal/platform/errors"
	platformlogging "ispeak-server-go/internal/platform/logging"
	platformstorage "ispeak-server-go/internal/platform/storage"
	"ispeak-server-go/internal/providers/asr"
	"ispeak-server-go/internal/providers/classifier"
	"ispeak-server-go/internal/providers/embedding"
	"ispeak-server-go/internal/providers/tts"
	httptransport "ispeak-server-go/internal/transport/http"
)

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	config     *platformconfig.Config
	configPath string
	logger     *platformlogging.Logger

	store      *platformstorage.Store
	cacheStore cache.Store
	datasets   *text.Datasets

	comparer *timbre.Comparator
	analyzer *semantic.Analyzer
	asr      assess.Transcriber
	tts      tts.Provider

	scoringSvc *scoring.Service
	assessSvc  *assess.Service
}

// Run drives the whole service lifecycle: configuration, dependency
// initialisation, the HTTP server and graceful shutdown.
func Run(ctx context.Context) error {
	state := &appState{}

	steps := InitGraph()
	if err := executeInitSteps(ctx, steps, state); err != nil {
		return err
	}

	config := state.config
	logger := state.logger
	if config == nil || logger == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"bootstrap state validation",
			"config/logger not initialised",
		)
	}

	logBootstrapGraph(steps, logger)

	defer func() {
		if state.cacheStore != nil {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := state.cacheStore.Close(closeCtx); err != nil {
				logger.WarnTag("CACHE", "cache did not close cleanly: %v", err)
			}
		}
		if state.store != nil {
			if err := state.store.Close(); err != nil {
				logger.WarnTag("DB", "database did not close cleanly: %v", err)
			}
		}
		eventbus.Shutdown()
	}()

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCtx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(rootCtx)

	if _, err := startHTTPServer(state, group, groupCtx); err != nil {
		cancel()
		return err
	}

	if err := waitForShutdown(signalCtx, cancel, logger, group); err != nil {
		return err
	}

	logger.InfoTag("BOOT", "server shut down cleanly")
	logger.Close()
	return nil
}

func logBootstrapGraph(steps []initStep, logger *platformlogging.Logger) {
	if logger == nil {
		return
	}
	logger.InfoTag("BOOT", "initialisation order:")
	for _, step := range steps {
		logger.InfoTag("BOOT", "  %s", step.Title)
	}
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"execute init steps",
			"nil bootstrap state",
		)
	}

	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.KindBootstrap,
					step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep),
				)
			}
		}
		if step.Execute == nil {
			return platformerrors.New(
				platformerrors.KindBootstrap,
				step.ID,
				"missing execute function",
			)
		}
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.Error
			if errors.As(err, &typed) {
				return err
			}

			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

// InitGraph lists the initialisation steps in dependency order. The order is
// explicit rather than topologically sorted; executeInitSteps only verifies it.
func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init-provider",
			Title:     "Initialise logging provider",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initLoggingStep,
		},
		{
			ID:        "storage:init-database",
			Title:     "Initialise database",
			DependsOn: []string{"config:load", "logging:init-provider"},
			Kind:      platformerrors.KindStorage,
			Execute:   initDatabaseStep,
		},
		{
			ID:        "cache:init-store",
			Title:     "Initialise result cache",
			DependsOn: []string{"config:load", "logging:init-provider"},
			Kind:      platformerrors.KindStorage,
			Execute:   initCacheStep,
		},
		{
			ID:        "datasets:load",
			Title:     "Load lexical datasets",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindText,
			Execute:   loadDatasetsStep,
		},
		{
			ID:        "providers:init",
			Title:     "Initialise providers",
			DependsOn: []string{"config:load", "logging:init-provider"},
			Kind:      platformerrors.KindProvider,
			Execute:   initProvidersStep,
		},
		{
			ID:        "scoring:init-service",
			Title:     "Initialise scoring service",
			DependsOn: []string{"providers:init"},
			Kind:      platformerrors.KindScoring,
			Execute:   initScoringStep,
		},
		{
			ID:        "assess:init-service",
			Title:     "Initialise assessment service",
			DependsOn: []string{"providers:init", "datasets:load"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initAssessStep,
		},
	}
}

func loadConfigStep(_ context.Context, state *appState) error {
	result, err := platformconfig.NewLoader().Load()
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindConfig, "config:load", "failed to load configuration", err)
	}
	state.config = result.Config
	state.configPath = result.Path
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	if state == nil || state.config == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"logging:init-provider",
			"config not loaded",
		)
	}

	logger, err := platformlogging.New(platformlogging.Config{
		Level:    state.config.Log.Level,
		Dir:      state.config.Log.Dir,
		Filename: state.config.Log.File,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "logging:init-provider", "failed to initialise logging", err)
	}

	state.logger = logger
	logger.InfoTag("BOOT", "logging ready [%s] %s", state.config.Log.Level, state.configPath)
	return nil
}

func initDatabaseStep(_ context.Context, state *appState) error {
	store, err := platformstorage.Open(state.config.Storage, state.logger)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "storage:init-database", "failed to open database", err)
	}
	state.store = store
	return nil
}

func initCacheStep(_ context.Context, state *appState) error {
	cacheStore, err := cache.New(state.config.Cache)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "cache:init-store", "failed to initialise cache", err)
	}
	state.cacheStore = cacheStore
	return nil
}

func loadDatasetsStep(_ context.Context, state *appState) error {
	state.datasets = text.NewDatasets(
		state.config.Assess.CefrDictPath,
		state.config.Assess.IdiomsPath,
	)
	return nil
}

// asrAdapter narrows the ASR provider to the transcript-only interface the
// assessment service consumes.
type asrAdapter struct {
	inner asr.Provider
}

func (a asrAdapter) Transcribe(ctx context.Context, audio []byte, filename string) (string, []assess.Segment, error) {
	res, err := a.inner.Transcribe(ctx, audio, filename)
	if err != nil {
		return "", nil, err
	}
	segs := make([]assess.Segment, 0, len(res.Segments))
	for _, seg := range res.Segments {
		segs = append(segs, assess.Segment{Start: seg.Start, End: seg.End})
	}
	return res.Text, segs, nil
}

// initProvidersStep wires the external providers. TTS, embeddings and ASR are
// optional at runtime: a misconfigured provider logs a warning and the matching
// features degrade, while the classifier backend is required for scoring.
func initProvidersStep(_ context.Context, state *appState) error {
	cfg := state.config
	logger := state.logger

	ttsProvider, err := tts.New(cfg.Providers.TTS, logger)
	if err != nil {
		logger.WarnTag("TTS", "tts provider unavailable, pronunciation falls back to robust mfcc: %v", err)
	} else {
		state.tts = ttsProvider
		state.comparer = timbre.NewComparator(
			ttsProvider,
			cfg.Providers.TTS.MaxChars,
			cfg.Pipeline.FrameSize,
			cfg.Pipeline.PauseHop,
			cfg.Pipeline.MFCCCoefficients,
			logger,
		)
	}

	embedder, err := embedding.New(cfg.Providers.Embedding, logger)
	if err != nil {
		logger.WarnTag("EMBED", "embedding provider unavailable, coherence and topic features degrade: %v", err)
	} else {
		state.analyzer = semantic.NewAnalyzer(embedder, cfg.Pipeline.CoherenceMaxSent)
	}

	if cfg.Providers.ASR.Enabled {
		asrProvider, err := asr.New(cfg.Providers.ASR, logger)
		if err != nil {
			logger.WarnTag("ASSESS", "asr provider unavailable, assessments need caller transcripts: %v", err)
		} else {
			state.asr = asrAdapter{inner: asrProvider}
		}
	}

	return nil
}

func initScoringStep(_ context.Context, state *appState) error {
	models, err := classifier.NewRegistry(state.config.Providers.Classifier, state.logger)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindScoring, "scoring:init-service", "failed to initialise classifier registry", err)
	}

	state.scoringSvc = scoring.NewService(models, buildScalers(state.config.Scoring.Scalers), state.logger)
	return nil
}

func buildScalers(configs map[string]platformconfig.ScalerConfig) scoring.ScalerSet {
	set := make(scoring.ScalerSet, len(configs))
	for name, sc := range configs {
		set[name] = scoring.Scaler{Mean: sc.Mean, Scale: sc.Scale}
	}
	return set
}

// subscribePipelineEvents attaches debug-level observers to the assessment
// lifecycle topics. The pipeline already logs its own warnings; these trace
// the event flow itself.
func subscribePipelineEvents(bus *eventbus.AsyncEventBus, logger *platformlogging.Logger) {
	_ = bus.Subscribe(assess.TopicStarted, func(id string) {
		logger.DebugTag("ASSESS", "event: %s started", id)
	})
	_ = bus.Subscribe(assess.TopicDegraded, func(id, key string) {
		logger.DebugTag("ASSESS", "event: %s degraded (%s)", id, key)
	})
	_ = bus.Subscribe(assess.TopicCompleted, func(id string) {
		logger.DebugTag("ASSESS", "event: %s completed", id)
	})
}

func initAssessStep(_ context.Context, state *appState) error {
	bus := eventbus.GetAsync()
	subscribePipelineEvents(bus, state.logger)

	state.assessSvc = assess.NewService(state.config.Pipeline, state.config.Assess, assess.Deps{
		ASR:      state.asr,
		Comparer: state.comparer,
		Semantic: state.analyzer,
		Datasets: state.datasets,
		Bus:      bus,
		Logger:   state.logger,
	})
	return nil
}

func startHTTPServer(state *appState, g *errgroup.Group, groupCtx context.Context) (*http.Server, error) {
	config := state.config
	logger := state.logger

	staticRoot := config.Server.StaticDir
	if staticRoot != "" {
		if _, err := os.Stat(staticRoot); err != nil {
			staticRoot = ""
		}
	}

	router := httptransport.Build(httptransport.Options{
		Config:     config,
		Logger:     logger,
		StaticRoot: staticRoot,
	})

	svc := httptransport.NewService(
		state.assessSvc,
		state.scoringSvc,
		state.store,
		state.cacheStore,
		state.datasets,
		state.analyzer,
		state.tts,
		logger,
	)
	svc.RegisterRoutes(router)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", config.Server.IP, config.Server.Port),
		Handler: router.Engine,
	}

	g.Go(func() error {
		logger.InfoTag("HTTP", "listening on http://%s", httpServer.Addr)

		go func() {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.ErrorTag("HTTP", "http server shutdown failed: %v", err)
			} else {
				logger.InfoTag("HTTP", "http server shut down gracefully")
			}
		}()

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorTag("HTTP", "http server failed: %v", err)
			return err
		}
		return nil
	})

	return httpServer, nil
}

func waitForShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	logger *platformlogging.Logger,
	g *errgroup.Group,
) error {
	<-ctx.Done()
	logger.InfoTag("BOOT", "received signal %v, cleaning up", context.Cause(ctx))

	cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.ErrorTag("BOOT", "error during shutdown: %v", err)
			return err
		}
		logger.InfoTag("BOOT", "all services stopped")
	case <-time.After(15 * time.Second):
		logger.ErrorTag("BOOT", "shutdown timed out, forcing exit")
		return errors.New("shutdown timed out")
	}
	return nil
}

// loadConfigAndLogger runs the first two init steps; used by the smoke test.
func loadConfigAndLogger() (*platformconfig.Config, *platformlogging.Logger, error) {
	state := &appState{}

	steps := InitGraph()[:2]
	if err := executeInitSteps(context.Background(), steps, state); err != nil {
		return nil, nil, err
	}

	return state.config, state.logger, nil
}
