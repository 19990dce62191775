package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/opsdesk/reportgen/internal/core"
	errx "github.com/opsdesk/reportgen/internal/core/error"
	"github.com/opsdesk/reportgen/internal/report/model"
	"github.com/opsdesk/reportgen/internal/report/pipeline"
	"github.com/opsdesk/reportgen/internal/report/pipeline/generation"
	"github.com/opsdesk/reportgen/internal/report/pipeline/session"
	"github.com/opsdesk/reportgen/internal/report/repo"
	"github.com/opsdesk/reportgen/internal/server"
	logx "github.com/opsdesk/reportgen/pkg/logger"
	pkgredis "github.com/opsdesk/reportgen/pkg/redis"
	"github.com/opsdesk/reportgen/pkg/secrets"
)

// AppConfig defines all configurable parameters of the report service,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`

	// Infrastructure
	Redis pkgredis.Config

	// LLM provider. GEMINI_API_KEY is resolved by resolveAPIKey.
	BaseURL     string `envconfig:"GEMINI_BASE_URL"`
	SecretsFile string `envconfig:"SECRETS_FILE" default:".secrets/secrets.toml"`

	Generation model.GenerationConfig
	Session    model.SessionConfig
	Image      model.ImageConfig
}

const apiKeyName = "GEMINI_API_KEY"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envErr := godotenv.Load(".env")

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		logx.Init()
		logx.Fatal().Err(err).Msg("Failed to process environment config")
	}
	logx.Init(logx.LoggerOpts{Environment: core.ParseEnvironment(cfg.Environment)})
	if envErr != nil {
		logx.Warn().Err(envErr).Msg("Could not load .env file")
	}

	apiKey, err := resolveAPIKey(cfg)
	if err != nil {
		logx.Fatal().Err(err).Msg("Refusing to start: configuration error")
	}

	results, closeStore, err := newResultRepository(ctx, cfg)
	if err != nil {
		logx.Fatal().Err(err).Str("store", cfg.Session.Store).Msg("Failed to initialise session store")
	}
	defer closeStore()

	router, err := generation.NewGeminiRouter(ctx, generation.GeminiConfig{
		APIKey:     apiKey,
		BaseURL:    cfg.BaseURL,
		Generation: cfg.Generation,
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to create generation client")
	}

	runner, err := pipeline.Build(ctx, pipeline.Config{
		Client:   router,
		Sessions: session.NewManager(results),
		Timeout:  cfg.Generation.Timeout,
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to build report pipeline")
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.SetupRouter(server.NewHandler(runner, cfg.Image.MaxUploadBytes)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logx.Info().
			Str("addr", cfg.HTTPAddr).
			Str("model", cfg.Generation.Model).
			Str("store", cfg.Session.Store).
			Msg("Report service listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	logx.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Generation.Timeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logx.Error().Err(err).Msg("Graceful shutdown failed")
	}
}

// resolveAPIKey reads the credential from the environment first, then from
// the secret store file.
func resolveAPIKey(cfg AppConfig) (string, error) {
	key, ok, err := secrets.Resolve(apiKeyName, func() (*secrets.Store, error) {
		return secrets.Load(cfg.SecretsFile)
	})
	if err != nil {
		return "", errx.New(errx.KindConfiguration, err, http.StatusInternalServerError, "시크릿 파일을 읽을 수 없습니다: "+cfg.SecretsFile)
	}
	if !ok {
		return "", errx.Configuration("GEMINI_API_KEY가 설정되어 있지 않습니다. 환경변수 또는 시크릿 파일로 설정하세요.")
	}
	return key, nil
}

func newResultRepository(ctx context.Context, cfg AppConfig) (model.ResultRepository, func(), error) {
	switch cfg.Session.Store {
	case model.SessionStoreRedis:
		rdb, err := cfg.Redis.New(ctx)
		if err != nil {
			return nil, nil, err
		}
		logx.Info().Msg("Connected to Redis successfully")
		return repo.NewRedisResultRepository(rdb, cfg.Session.TTL), func() { _ = rdb.Close() }, nil
	case model.SessionStoreMemory, "":
		return repo.NewMemoryResultRepository(cfg.Session.TTL), func() {}, nil
	default:
		return nil, nil, errx.Configuration("SESSION_STORE must be memory or redis, got " + cfg.Session.Store)
	}
}
