package main

import (
	"context"
	"fmt"

	"github.com/orihero/aish-sub002/internal/api"
	"github.com/orihero/aish-sub002/internal/api/handler"
	"github.com/orihero/aish-sub002/internal/config"
	"github.com/orihero/aish-sub002/internal/domain"
	"github.com/orihero/aish-sub002/internal/llm"
	"github.com/orihero/aish-sub002/internal/llm/anthropic"
	"github.com/orihero/aish-sub002/internal/llm/gemini"
	"github.com/orihero/aish-sub002/internal/llm/ollama"
	"github.com/orihero/aish-sub002/internal/llm/openai"
	"github.com/orihero/aish-sub002/internal/repository/mongo"
	"github.com/orihero/aish-sub002/internal/repository/postgres"
	"github.com/orihero/aish-sub002/internal/repository/redis"
	"github.com/orihero/aish-sub002/internal/repository/sqlite"
	"github.com/orihero/aish-sub002/internal/security"
	"github.com/orihero/aish-sub002/internal/service"
	"github.com/rs/zerolog/log"
)

// store is the selected persistence backend
type store struct {
	chats        domain.ChatRepository
	applications domain.ApplicationRepository
	close        func()
}

func openStore(ctx context.Context, cfg *config.Config) (*store, error) {
	switch cfg.Storage.Driver {
	case "mongo":
		client, err := mongo.NewClient(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		chats := mongo.NewChatRepository(client.Database())
		if err := chats.EnsureIndexes(ctx); err != nil {
			client.Close(context.Background())
			return nil, err
		}
		return &store{
			chats:        chats,
			applications: mongo.NewApplicationRepository(client.Database()),
			close:        func() { client.Close(context.Background()) },
		}, nil

	case "postgres":
		if err := postgres.RunMigrations(cfg.Database.DSN(), cfg.Database.MigrationsURL); err != nil {
			return nil, err
		}
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		return &store{
			chats:        postgres.NewChatRepository(db.Pool),
			applications: postgres.NewApplicationRepository(db.Pool),
			close:        db.Close,
		}, nil

	case "sqlite":
		db, err := sqlite.Open(ctx, cfg.SQLite)
		if err != nil {
			return nil, err
		}
		return &store{
			chats:        sqlite.NewChatRepository(db),
			applications: sqlite.NewApplicationRepository(db),
			close:        func() { db.Close() },
		}, nil
	}
	return nil, fmt.Errorf("unsupported storage driver: %q", cfg.Storage.Driver)
}

// wire builds the service graph. Without Redis the lock is process-local and
// requests are not rate limited.
func wire(ctx context.Context, cfg *config.Config, st *store) (api.Dependencies, func(), error) {
	cleanup := func() {}
	ready := map[string]handler.Pinger{"store": st.chats}

	var (
		locker       service.Locker = service.NewLocalLocker()
		applications                = st.applications
		rateLimiter  *redis.RateLimiter
	)

	if cfg.Redis.Enabled {
		client, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return api.Dependencies{}, cleanup, err
		}
		cleanup = func() { client.Close() }

		locker = redis.NewLocker(client)
		applications = redis.NewBundleCache(client, st.applications)
		rateLimiter = redis.NewRateLimiter(client, cfg.Security.RateLimit.RequestsPerMinute, cfg.Security.RateLimit.Burst)
		ready["redis"] = client
	} else {
		log.Warn().Msg("Redis disabled: using in-process locks, rate limiting off")
	}

	llmRouter := newLLMRouter(cfg)
	if len(llmRouter.ListProviders()) == 0 {
		log.Warn().Msg("No LLM provider configured; screening calls will fail")
	}

	var window *llm.Window
	if cfg.Screening.ContextWindowTokens > 0 {
		window = llm.NewWindow(llm.NewTokenizer(), cfg.Screening.ContextWindowTokens, domain.SeedMessageCount)
	}

	screening := service.NewScreeningService(st.chats, applications, llmRouter, locker, window, service.ScreeningOptions{
		Threshold:      cfg.Screening.Threshold,
		RequestTimeout: cfg.LLM.RequestTimeout,
		LockTTL:        cfg.Screening.LockTTL,
		Start:          callSite(cfg.Screening.Start),
		Continuation:   callSite(cfg.Screening.Continuation),
		Evaluation:     callSite(cfg.Screening.Evaluation),
	})

	deps := api.Dependencies{
		Chats:      screening,
		LLMRouter:  llmRouter,
		JWTManager: security.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AccessTokenTTL),
		Ready:      ready,
	}
	// a nil *RateLimiter must not become a non-nil interface
	if rateLimiter != nil {
		deps.RateLimiter = rateLimiter
	}
	return deps, cleanup, nil
}

func newLLMRouter(cfg *config.Config) *llm.Router {
	llmRouter := llm.NewRouter(cfg.LLM.DefaultProvider)
	timeout := cfg.LLM.RequestTimeout

	log.Info().Msgf("Initializing LLM providers. Default: %s", cfg.LLM.DefaultProvider)

	if cfg.LLM.OpenAI.APIKey != "" {
		llmRouter.RegisterProvider(openai.NewProvider(cfg.LLM.OpenAI.APIKey, cfg.LLM.OpenAI.BaseURL, cfg.LLM.OpenAI.Model, timeout))
	}
	if cfg.LLM.Anthropic.APIKey != "" {
		llmRouter.RegisterProvider(anthropic.NewProvider(cfg.LLM.Anthropic.APIKey, cfg.LLM.Anthropic.BaseURL, cfg.LLM.Anthropic.Model, timeout))
	}
	if cfg.LLM.Ollama.Host != "" {
		log.Info().Str("host", cfg.LLM.Ollama.Host).Msg("Registering Ollama provider")
		llmRouter.RegisterProvider(ollama.NewProvider(cfg.LLM.Ollama.Host, cfg.LLM.Ollama.DefaultModel, timeout))
	}
	if cfg.LLM.Gemini.APIKey != "" {
		llmRouter.RegisterProvider(gemini.NewProvider(cfg.LLM.Gemini))
	}

	return llmRouter
}

func callSite(c config.CallSiteConfig) service.CallSite {
	return service.CallSite{
		Provider:    c.Provider,
		Model:       c.Model,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
	}
}
