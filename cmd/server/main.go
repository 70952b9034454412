package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/suraksha-edu/suraksha/internal/account"
	"github.com/suraksha-edu/suraksha/internal/activity"
	"github.com/suraksha-edu/suraksha/internal/ai"
	"github.com/suraksha-edu/suraksha/internal/assistant"
	"github.com/suraksha-edu/suraksha/internal/catalog"
	"github.com/suraksha-edu/suraksha/internal/dashboard"
	"github.com/suraksha-edu/suraksha/internal/httpapi"
	"github.com/suraksha-edu/suraksha/internal/platform/cache"
	"github.com/suraksha-edu/suraksha/internal/platform/config"
	"github.com/suraksha-edu/suraksha/internal/platform/database"
	"github.com/suraksha-edu/suraksha/internal/platform/sqlite"
	"github.com/suraksha-edu/suraksha/internal/progress"
	"github.com/suraksha-edu/suraksha/internal/quiz"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg.Log.Level, cfg.Log.Format))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.close()

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      a.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting",
			"addr", srv.Addr,
			"store", cfg.Store.Backend,
			"cache", cfg.Cache.URL != "",
			"assistant", a.assistant,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// newLogger builds the process logger. Unknown levels fall back to info.
func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// app is the wired service graph plus the resources to release on exit.
type app struct {
	handler   http.Handler
	assistant bool
	closers   []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// storage groups the backend-specific stores.
type storage struct {
	progress progress.Store
	results  quiz.ResultSink
	events   activity.Logger
	check    httpapi.Checker
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}
	fail := func(err error) (*app, error) {
		a.close()
		return nil, err
	}

	catOpts := []catalog.Option{
		catalog.WithPassingThreshold(cfg.Quiz.PassingThreshold),
		catalog.WithTimeLimit(cfg.Quiz.TimeLimit),
	}
	var (
		cat *catalog.Catalog
		err error
	)
	if cfg.CatalogPath != "" {
		cat, err = catalog.Load(cfg.CatalogPath, catOpts...)
	} else {
		cat, err = catalog.Default(catOpts...)
	}
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	slog.Info("catalog loaded", "sections", len(cat.Sections()), "items", cat.TotalItems(), "banks", len(cat.Banks()))

	st, err := openStorage(ctx, cfg, a)
	if err != nil {
		return fail(err)
	}

	checks := map[string]httpapi.Checker{}
	if st.check != nil {
		checks[cfg.Store.Backend] = st.check
	}

	progressStore := st.progress
	var budget ai.BudgetChecker = ai.NewInMemoryBudget(cfg.Assistant.DailyTokenBudget)
	if cfg.Cache.URL != "" {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			return fail(fmt.Errorf("connecting to cache: %w", err))
		}
		a.closers = append(a.closers, func() { _ = c.Close() })
		checks["cache"] = c.HealthCheck
		progressStore = progress.NewCachedStore(progressStore, c.Client, cfg.Cache.TTL)
		budget = ai.NewRedisBudget(c.Client, cfg.Assistant.DailyTokenBudget)
	}

	var trackerOpts []progress.TrackerOption
	if cfg.Progress.StrictUnlock {
		trackerOpts = append(trackerOpts, progress.WithUnlockCheck(cat))
	}
	registry := progress.NewRegistry(progressStore, trackerOpts...)

	quizzes := quiz.NewManager(quiz.Deps{
		Catalog: cat,
		Sink:    st.results,
		Events:  st.events,
	})
	a.closers = append(a.closers, quizzes.Close)

	accounts := account.NewService(account.NewMemoryStore(),
		account.WithSessionTTL(cfg.Auth.SessionTTL),
		account.WithBcryptCost(cfg.Auth.BcryptCost),
	)

	var helper *assistant.Assistant
	if router := newAIRouter(cfg); router.HasProvider() {
		helper = assistant.New(assistant.Config{
			Router:        router,
			Budget:        budget,
			HistoryLength: cfg.Assistant.HistoryLength,
		})
		a.assistant = true
		slog.Info("assistant enabled", "providers", router.Names())
	}

	a.handler = httpapi.New(httpapi.Deps{
		Catalog:   cat,
		Progress:  registry,
		Quizzes:   quizzes,
		Dashboard: dashboard.New(cat, progressStore, st.results, accounts),
		Accounts:  accounts,
		Assistant: helper,
		Events:    st.events,
		Checks:    checks,
	})
	return a, nil
}

// openStorage opens the configured backend and registers its closer on a.
func openStorage(ctx context.Context, cfg *config.Config, a *app) (storage, error) {
	switch cfg.Store.Backend {
	case "postgres":
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return storage{}, fmt.Errorf("connecting to database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		if err := db.Migrate(ctx); err != nil {
			return storage{}, fmt.Errorf("migrating database: %w", err)
		}
		ps, err := progress.NewPostgresStore(db.Pool)
		if err != nil {
			return storage{}, err
		}
		rs, err := quiz.NewPostgresResultSink(db.Pool)
		if err != nil {
			return storage{}, err
		}
		return storage{progress: ps, results: rs, events: activity.NewPostgresLogger(db.Pool), check: db.HealthCheck}, nil

	case "sqlite":
		db, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return storage{}, err
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		ps, err := progress.NewSQLiteStore(db)
		if err != nil {
			return storage{}, err
		}
		rs, err := quiz.NewSQLiteResultSink(db)
		if err != nil {
			return storage{}, err
		}
		return storage{progress: ps, results: rs, events: activity.NewSQLiteLogger(db), check: db.PingContext}, nil

	default:
		return storage{
			progress: progress.NewMemoryStore(),
			results:  quiz.NewMemoryResultSink(),
			events:   activity.NewMemoryLogger(),
		}, nil
	}
}

// newAIRouter registers providers cheapest first.
func newAIRouter(cfg *config.Config) *ai.Router {
	router := ai.NewRouter()
	if cfg.AI.DeepSeek.APIKey != "" {
		router.Register("deepseek", ai.NewDeepSeekProvider(cfg.AI.DeepSeek.APIKey))
	}
	if cfg.AI.OpenRouter.APIKey != "" {
		router.Register("openrouter", ai.NewOpenRouterProvider(cfg.AI.OpenRouter.APIKey))
	}
	if cfg.AI.OpenAI.APIKey != "" {
		router.Register("openai", ai.NewOpenAIProvider(cfg.AI.OpenAI.APIKey))
	}
	if cfg.AI.Ollama.Enabled {
		router.Register("ollama", ai.NewOllamaProvider(cfg.AI.Ollama.URL))
	}
	return router
}
