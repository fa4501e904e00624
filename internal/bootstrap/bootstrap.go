package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/writing-assistant/internal/config"
	"github.com/kirillkom/writing-assistant/internal/core/domain"
	"github.com/kirillkom/writing-assistant/internal/core/ports"
	"github.com/kirillkom/writing-assistant/internal/core/usecase"
	"github.com/kirillkom/writing-assistant/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/writing-assistant/internal/infrastructure/llm/openai"
	"github.com/kirillkom/writing-assistant/internal/infrastructure/queue/nats"
	"github.com/kirillkom/writing-assistant/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/writing-assistant/internal/infrastructure/resilience"
	"github.com/kirillkom/writing-assistant/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/writing-assistant/internal/infrastructure/suggestion"
	"github.com/kirillkom/writing-assistant/internal/observability/metrics"
)

type Options struct {
	// Service labels metrics and logs.
	Service string
	// Registerer receives suggestion pipeline metrics. Nil disables them.
	Registerer prometheus.Registerer
	// WithoutQueue skips the NATS connection even when a URL is configured.
	WithoutQueue bool
}

type App struct {
	Config config.Config
	Logger *slog.Logger

	Suggestions ports.SuggestionService
	Sessions    *usecase.SessionManager
	// Analyses is nil unless the snapshot backend is postgres.
	Analyses *usecase.SnapshotAnalysisUseCase
	// Queue is nil when NATS is disabled.
	Queue ports.MessageQueue

	closers []func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg, Logger: logger}

	mode, ok := domain.ParseWritingMode(cfg.WritingMode)
	if !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "bootstrap", fmt.Errorf("unknown writing mode %q", cfg.WritingMode))
	}

	completer, err := newCompleter(cfg)
	if err != nil {
		return nil, err
	}
	executor := resilience.NewExecutor(resilience.Config{
		MaxRetries:      cfg.MaxRetries,
		RetryBaseDelay:  cfg.RetryBaseDelay,
		RetryMaxBackoff: cfg.RetryMaxBackoff,
		AttemptTimeout:  cfg.RequestTimeout,
		RateLimitRPS:    cfg.LLMRateLimit,
		BreakerEnabled:  cfg.BreakerEnabled,
	})
	temperature := cfg.LLMTemperature
	app.Suggestions = suggestion.New(completer, executor, suggestion.Options{
		MaxTokens:   cfg.LLMMaxTokens,
		Temperature: &temperature,
	})

	var (
		store        ports.SnapshotStore
		analysisRepo ports.AnalysisRepository
	)
	switch strings.ToLower(strings.TrimSpace(cfg.SnapshotBackend)) {
	case "postgres":
		db, err := openPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, func() { _ = db.Close() })
		store = postgres.NewSnapshotRepository(db)
		analysisRepo = postgres.NewAnalysisRepository(db)
	case "file":
		fileStore, err := localfs.New(cfg.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("init snapshot storage: %w", err)
		}
		store = fileStore
	case "none", "":
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "bootstrap", fmt.Errorf("unknown snapshot backend %q", cfg.SnapshotBackend))
	}

	if cfg.NATSURL != "" && !opts.WithoutQueue {
		queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig()),
		})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		app.closers = append(app.closers, queue.Close)
		app.Queue = queue
	}

	var observer ports.PipelineObserver
	if opts.Registerer != nil {
		observer = metrics.NewSuggestionMetrics(opts.Service, opts.Registerer)
	}

	app.Sessions = usecase.NewSessionManager(usecase.SessionDeps{
		Service:  app.Suggestions,
		Store:    store,
		Queue:    app.Queue,
		Observer: observer,
		Logger:   logger,
	}, sessionConfig(cfg, mode))
	app.closers = append(app.closers, app.Sessions.CloseAll)

	if analysisRepo != nil {
		app.Analyses = usecase.NewSnapshotAnalysisUseCase(app.Suggestions, analysisRepo, cfg.MinTextLength, logger)
	}

	logger.Info("bootstrap_ready",
		"llm_provider", cfg.LLMProvider,
		"snapshot_backend", cfg.SnapshotBackend,
		"queue", app.Queue != nil,
		"mode", string(mode),
	)
	return app, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func newCompleter(cfg config.Config) (ports.TextCompleter, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.LLMProvider)) {
	case "ollama", "":
		return ollama.New(cfg.OllamaURL, cfg.OllamaModel), nil
	case "openai":
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			return nil, domain.WrapError(domain.ErrInvalidInput, "bootstrap", fmt.Errorf("OPENAI_API_KEY is required for the openai provider"))
		}
		return openai.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel), nil
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "bootstrap", fmt.Errorf("unknown llm provider %q", cfg.LLMProvider))
	}
}

func openPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := postgres.OpenDB(dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return db, nil
}

func sessionConfig(cfg config.Config, mode domain.WritingMode) usecase.SessionConfig {
	out := usecase.DefaultSessionConfig()
	out.Pipeline = usecase.PipelineConfig{
		Mode:          mode,
		DebounceDelay: cfg.DebounceDelay,
		MinTextLength: cfg.MinTextLength,
		AutoFetch:     cfg.AutoFetch,
		MaxTokens:     cfg.LLMMaxTokens,
	}
	if cfg.AnalysisDelay > 0 {
		out.AnalysisDelay = cfg.AnalysisDelay
	}
	if cfg.SaveDelay > 0 {
		out.SaveDelay = cfg.SaveDelay
	}
	return out
}
