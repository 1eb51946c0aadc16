package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kiranshivaraju/mockinterview/internal/ai"
	"github.com/kiranshivaraju/mockinterview/internal/api"
	"github.com/kiranshivaraju/mockinterview/internal/api/handler"
	mw "github.com/kiranshivaraju/mockinterview/internal/api/middleware"
	"github.com/kiranshivaraju/mockinterview/internal/auth"
	"github.com/kiranshivaraju/mockinterview/internal/cache"
	"github.com/kiranshivaraju/mockinterview/internal/config"
	"github.com/kiranshivaraju/mockinterview/internal/interview"
	"github.com/kiranshivaraju/mockinterview/internal/speech"
	"github.com/kiranshivaraju/mockinterview/internal/store"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides MOCKINTERVIEW_PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	// 1. Load config, fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if servePort > 0 {
		cfg.Server.Port = servePort
	}
	logger := newLogger(cfg.Server.LogLevel)
	logger.Info("config loaded",
		"ai_provider", cfg.AI.Provider,
		"speech_provider", cfg.Speech.Provider,
		"env", cfg.Server.Env,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	logger.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsDir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	logger.Info("redis connected")

	// 5. Create AI provider and speech engine
	provider, err := ai.NewProvider(ctx, cfg.AI)
	if err != nil {
		return fmt.Errorf("create AI provider: %w", err)
	}
	logger.Info("AI provider initialized", "provider", provider.Name())

	if err := os.MkdirAll(cfg.Speech.AudioDir, 0o755); err != nil {
		return fmt.Errorf("create audio dir: %w", err)
	}
	engine, err := speech.New(ctx, cfg.Speech, cfg.AI.Gemini.APIKey)
	if err != nil {
		return fmt.Errorf("create speech engine: %w", err)
	}
	logger.Info("speech engine initialized", "provider", cfg.Speech.Provider)

	// 6. Build services
	pgStore := store.NewPostgresStore(pool)

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)
	authSvc := auth.NewService(pgStore, tokens, auth.NewPasswordHasher(cfg.Auth.BcryptCost), logger)

	interviews := interview.NewService(interview.Deps{
		Repo:        pgStore,
		Locker:      redisCache,
		Audio:       redisCache,
		Questions:   ai.NewQuestionGenerator(provider, cfg.AI.InferenceTimeout, logger),
		Evaluator:   ai.NewEvaluator(provider, cfg.AI.InferenceTimeout, logger),
		Summarizer:  ai.NewSummarizer(provider, cfg.AI.InferenceTimeout, logger),
		Transcriber: engine,
		Synthesizer: engine,
		Logger:      logger,
	}, interview.Options{
		QuestionCount: cfg.Interview.QuestionCount,
		Difficulty:    cfg.Interview.Difficulty,
		LockTTL:       cfg.Interview.LockTTL,
		LockWait:      cfg.Interview.LockWait,
		AudioTTL:      cfg.Speech.AudioTTL,
	})

	// 7. Build router with dependencies
	router := api.NewRouter(newDependencies(cfg, pgStore, redisCache, authSvc, interviews))

	// 8. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,

		// evaluation and summary calls run inside the request
		WriteTimeout: cfg.AI.InferenceTimeout + 60*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}

// newDependencies wires handlers and middleware onto the services.
func newDependencies(cfg *config.Config, s store.Store, c cache.Cache, authSvc *auth.Service, rounds handler.RoundService) api.Dependencies {
	cookies := handler.CookieConfig{
		Secure:     cfg.Auth.SecureCookies,
		AccessTTL:  cfg.Auth.AccessTTL,
		RefreshTTL: cfg.Auth.RefreshTTL,
	}

	return api.Dependencies{
		Auth:      mw.NewAuth(authSvc),
		RateLimit: mw.NewRateLimit(c, cfg.Interview.RequestsPerMinute),
		AudioDir:  cfg.Speech.AudioDir,

		HealthHandler: handler.NewHealthHandler(s, c),

		RegisterHandler: handler.NewRegisterHandler(authSvc),
		LoginHandler:    handler.NewLoginHandler(authSvc, cookies),
		RefreshHandler:  handler.NewRefreshHandler(authSvc, cookies),
		MeHandler:       handler.NewMeHandler(authSvc),
		LogoutHandler:   handler.NewLogoutHandler(authSvc, cookies),

		UploadResumeHandler: handler.NewUploadResumeHandler(s),
		GetResumeHandler:    handler.NewGetResumeHandler(s),

		StartRoundHandler:    handler.NewStartRoundHandler(rounds),
		QuestionAudioHandler: handler.NewQuestionAudioHandler(rounds),
		SubmitAnswerHandler:  handler.NewSubmitAnswerHandler(rounds),
		EndRoundHandler:      handler.NewEndRoundHandler(rounds),
		SummaryHandler:       handler.NewSummaryHandler(rounds),
		StatusHandler:        handler.NewStatusHandler(rounds),
	}
}
