package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"github.com/spigell/fitscore/internal/ai"
	"github.com/spigell/fitscore/internal/ai/gemini"
	"github.com/spigell/fitscore/internal/crm"
	"github.com/spigell/fitscore/internal/crmapi"
	"github.com/spigell/fitscore/internal/logger"
	"github.com/spigell/fitscore/internal/metrics"
	"github.com/spigell/fitscore/internal/scoring"
	"github.com/spigell/fitscore/internal/secrets"
	"github.com/spigell/fitscore/internal/store"
	"go.uber.org/zap"
)

const (
	backendAPI      = "api"
	backendPostgres = "postgres"
	backendFile     = "file"
)

// application holds the wired components shared by every command.
type application struct {
	config  *Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	records crm.Records
	scorer  *scoring.FitScorer
	matcher *scoring.PersonaMatcher

	closers []func() error
}

// newApplication builds the logger and loads the config before wiring the components.
// Extra logger output paths replace stdout.
func newApplication(ctx context.Context, outputPaths ...string) (*application, error) {
	log, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"), outputPaths...)
	if err != nil {
		return nil, fmt.Errorf("creating a logger: %w", err)
	}

	config, err := getConfig()
	if err != nil {
		return nil, fmt.Errorf("getting a config: %w", err)
	}

	return buildApplication(ctx, config, log, nil)
}

// buildApplication wires records, provider and scorers. A nil completer selects the
// configured provider.
func buildApplication(ctx context.Context, config *Config, log *zap.Logger, completer ai.Completer) (*application, error) {
	if config == nil || config.AI == nil || config.AI.Gemini == nil || config.Store == nil {
		return nil, errors.New("config is incomplete")
	}

	a := &application{
		config:  config,
		logger:  log,
		metrics: metrics.New(),
	}

	records, err := a.newRecords(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.records = records

	if completer == nil {
		completer, err = newCompleter(config.AI, log)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	a.scorer = scoring.NewFitScorer(records, completer, log, scoring.FitConfig{
		Model:        config.AI.Gemini.Model,
		MaxLogLength: config.AI.Gemini.MaxLogLength,
		Metrics:      a.metrics,
	})
	a.matcher = scoring.NewPersonaMatcher(records, log, a.metrics)

	log.Debug("application wired",
		zap.String("version", buildVersion()),
		zap.String("store_backend", config.Store.Backend),
		zap.Bool("redis_cache", config.Store.Redis != nil && config.Store.Redis.Addr != ""),
		zap.String("ai_model", config.AI.Gemini.Model),
	)

	return a, nil
}

func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("closing resource", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

func (a *application) newRecords(ctx context.Context) (crm.Records, error) {
	cfg := a.config.Store

	var records crm.Records
	switch backend := strings.ToLower(strings.TrimSpace(cfg.Backend)); backend {
	case backendAPI:
		if cfg.API == nil || strings.TrimSpace(cfg.API.URL) == "" {
			return nil, errors.New("store.api.url is required for the api backend")
		}
		token, err := secrets.Load(secrets.Source{
			Name:    "crm api token",
			File:    cfg.API.TokenFile,
			FileEnv: "CRM_API_TOKEN_FILE",
			Env:     "CRM_API_TOKEN",
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set store.api.token-file or CRM_API_TOKEN_FILE)", err)
		}
		client := crmapi.New(a.logger, cfg.API.URL, token)
		if cfg.API.UserAgent != "" {
			client.UserAgent = cfg.API.UserAgent
		}
		records = client

	case backendPostgres:
		if cfg.Postgres == nil || strings.TrimSpace(cfg.Postgres.DSN) == "" {
			return nil, errors.New("store.postgres.dsn is required for the postgres backend")
		}
		pg, err := store.OpenPostgres(ctx, cfg.Postgres.DSN, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pg.Close)
		records = pg

	case backendFile:
		if cfg.File == nil || strings.TrimSpace(cfg.File.Path) == "" {
			return nil, errors.New("store.file.path is required for the file backend")
		}
		f, err := store.LoadFile(cfg.File.Path)
		if err != nil {
			return nil, err
		}
		records = f

	default:
		return nil, fmt.Errorf("unsupported store backend: %q", cfg.Backend)
	}

	if cfg.Redis == nil || strings.TrimSpace(cfg.Redis.Addr) == "" {
		return records, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	a.closers = append(a.closers, client.Close)

	if err := client.Ping(ctx).Err(); err != nil {
		a.logger.Warn("redis is unreachable, cache reads will fall through", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}

	return store.NewCache(records, client, cfg.Redis.TTL, a.logger), nil
}

// newCompleter returns a provider that resolves its API key on first use.
func newCompleter(cfg *AIConfig, log *zap.Logger) (ai.Completer, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != gemini.ProviderName {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	key := func() (string, error) {
		return secrets.Load(secrets.Source{
			Name:    "gemini api key",
			Value:   cfg.Gemini.APIKey,
			File:    cfg.Gemini.APIKeyFile,
			FileEnv: "GEMINI_API_KEY_FILE",
			Env:     "GEMINI_API_KEY",
		})
	}

	return gemini.NewLazy(key, cfg.Gemini.Model, log, cfg.Gemini.MaxLogLength), nil
}

func (a *application) lister() (crm.ContactLister, error) {
	lister, ok := a.records.(crm.ContactLister)
	if !ok {
		return nil, fmt.Errorf("store backend %q cannot list contacts", a.config.Store.Backend)
	}
	return lister, nil
}
