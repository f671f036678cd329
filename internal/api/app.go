package api

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/solvehelper/internal/appreciation"
	"github.com/felixgeelhaar/solvehelper/internal/auth"
	"github.com/felixgeelhaar/solvehelper/internal/cache"
	"github.com/felixgeelhaar/solvehelper/internal/catalog"
	"github.com/felixgeelhaar/solvehelper/internal/chat"
	"github.com/felixgeelhaar/solvehelper/internal/config"
	"github.com/felixgeelhaar/solvehelper/internal/domain"
	"github.com/felixgeelhaar/solvehelper/internal/hint"
	"github.com/felixgeelhaar/solvehelper/internal/ingest"
	"github.com/felixgeelhaar/solvehelper/internal/judge"
	"github.com/felixgeelhaar/solvehelper/internal/llm"
	"github.com/felixgeelhaar/solvehelper/internal/practice"
	"github.com/felixgeelhaar/solvehelper/internal/progress"
	"github.com/felixgeelhaar/solvehelper/internal/quota"
	"github.com/felixgeelhaar/solvehelper/internal/recommend"
	"github.com/felixgeelhaar/solvehelper/internal/storage/postgres"
)

// Infra holds the connections the application is built on
type Infra struct {
	Config  *config.Config
	DB      *postgres.DB
	Cache   cache.Cache
	Limiter quota.Limiter
	LLM     llm.Provider
	Judge   *judge.Client
	Pages   *judge.Scraper
	// Checks are readiness probes by name, e.g. "database" and "redis".
	Checks map[string]func(context.Context) error
}

// App holds all application services
type App struct {
	Config    *config.Config
	Tokens    *auth.TokenIssuer
	Auth      *auth.Service
	Catalog   *catalog.Service
	Hints     *hint.Service
	Chat      *chat.Service
	Practice  *practice.Service
	Recommend *recommend.Service
	Progress  *progress.Service
	Pipeline  *ingest.Pipeline
	checks    map[string]func(context.Context) error
}

// NewApp wires the services over the given infrastructure
func NewApp(in Infra) *App {
	cfg := in.Config
	users := postgres.NewUserStore(in.DB)
	problems := postgres.NewProblemStore(in.DB)
	contests := postgres.NewContestStore(in.DB)
	solved := postgres.NewSolvedStore(in.DB)
	metrics := postgres.NewProgressStore(in.DB)
	sessions := postgres.NewPracticeStore(in.DB)

	app := &App{Config: cfg, checks: in.Checks}

	app.Tokens = auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	app.Auth = auth.NewService(users, app.Tokens)

	app.Catalog = catalog.NewService(problems, contests, in.Pages, in.Cache)

	meter := quota.NewMeter(in.Limiter, users, metrics)
	app.Hints = hint.NewService(app.Catalog, problems, meter, in.LLM, cfg.HintCount)
	app.Chat = chat.NewService(postgres.NewChatStore(in.DB), app.Catalog, meter, in.LLM, chat.Config{
		TokenThreshold: cfg.SummaryThreshold,
		KeepRecent:     cfg.KeepRecent,
	})

	app.Practice = practice.NewService(practice.Deps{
		Store:       sessions,
		Solved:      solved,
		Problems:    problems,
		Hints:       app.Hints,
		Users:       users,
		Submissions: in.Judge,
		Praise:      appreciation.NewService(),
	}, domain.EvenHintSchedule(cfg.HintCount))

	app.Recommend = recommend.NewService(problems, solved, users)

	app.Pipeline = &ingest.Pipeline{
		Source:       in.Judge,
		Pages:        in.Pages,
		ProblemStore: problems,
		ContestStore: contests,
		SolvedStore:  solved,
		RatingStore:  metrics,
		Cache:        in.Cache,
		Pause:        cfg.JudgePause,
	}

	app.Progress = progress.NewService(progress.Deps{
		Users:    users,
		Profiles: in.Pages,
		Importer: app.Pipeline,
		Solved:   solved,
		Problems: problems,
		Metrics:  metrics,
		Practice: sessions,
	})

	return app
}

// NewLLM registers the configured providers and returns the default one
// wrapped with retries, circuit breaking and rate limiting.
func NewLLM(cfg *config.Config) (*llm.Registry, llm.Provider, error) {
	registry := llm.NewRegistry()
	if err := initLLMProviders(registry, cfg); err != nil {
		return nil, nil, fmt.Errorf("init LLM providers: %w", err)
	}
	provider, err := registry.Default()
	if err != nil {
		return nil, nil, err
	}
	slog.Info("LLM provider ready", "provider", registry.DefaultName(), "available", registry.List())
	return registry, llm.NewResilientProvider(provider, llm.DefaultResilientConfig()), nil
}

const defaultOllamaModel = "llama3.2:latest"

// initLLMProviders sets up LLM providers based on configuration
func initLLMProviders(registry *llm.Registry, cfg *config.Config) error {
	ollama := func(model string) llm.Provider {
		return llm.NewOllamaProvider(llm.OllamaConfig{BaseURL: cfg.OllamaURL, Model: model})
	}

	switch cfg.LLMProvider {
	case "claude":
		registry.Register("claude", llm.NewClaudeProvider(llm.ClaudeConfig{
			APIKey: cfg.LLMAPIKey,
			Model:  cfg.LLMModel,
		}))
		return registry.SetDefault("claude")

	case "openai":
		registry.Register("openai", llm.NewOpenAIProvider(llm.OpenAIConfig{
			APIKey: cfg.LLMAPIKey,
			Model:  cfg.LLMModel,
		}))
		return registry.SetDefault("openai")

	case "ollama":
		model := cfg.LLMModel
		if model == "" || model == config.Default().LLMModel {
			model = defaultOllamaModel
		}
		registry.Register("ollama", ollama(model))
		return registry.SetDefault("ollama")

	default:
		// With an API key, the model name picks Claude or OpenAI. Ollama is
		// always registered for local development.
		if cfg.LLMAPIKey != "" {
			if cfg.LLMModel == "" || cfg.LLMModel == config.Default().LLMModel {
				registry.Register("claude", llm.NewClaudeProvider(llm.ClaudeConfig{
					APIKey: cfg.LLMAPIKey,
					Model:  config.Default().LLMModel,
				}))
				if err := registry.SetDefault("claude"); err != nil {
					return err
				}
			} else {
				registry.Register("openai", llm.NewOpenAIProvider(llm.OpenAIConfig{
					APIKey: cfg.LLMAPIKey,
					Model:  cfg.LLMModel,
				}))
				if err := registry.SetDefault("openai"); err != nil {
					return err
				}
			}
		}
		registry.Register("ollama", ollama(defaultOllamaModel))
		if registry.DefaultName() == "" {
			return registry.SetDefault("ollama")
		}
		return nil
	}
}
