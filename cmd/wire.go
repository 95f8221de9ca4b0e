package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/bnema/oneiro/internal/adapters/assistant/openai"
	"github.com/bnema/oneiro/internal/adapters/render/transcript"
	boltrepo "github.com/bnema/oneiro/internal/adapters/repo/bolt"
	sqliterepo "github.com/bnema/oneiro/internal/adapters/repo/sqlite"
	tomlrepo "github.com/bnema/oneiro/internal/adapters/repo/toml"
	chainstore "github.com/bnema/oneiro/internal/adapters/secrets/chain"
	filestore "github.com/bnema/oneiro/internal/adapters/secrets/file"
	"github.com/bnema/oneiro/internal/application"
	"github.com/bnema/oneiro/internal/config"
	"github.com/bnema/oneiro/internal/domain"
	"github.com/bnema/oneiro/internal/logging"
	"github.com/bnema/oneiro/internal/ports"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

type app struct {
	cfg          config.Config
	logger       zerolog.Logger
	registry     *application.SessionRegistry
	synchronizer *application.Synchronizer
	profiles     *tomlrepo.ProfileRepository
	secretStore  ports.SecretStore
	online       bool

	renderSession func(domain.Session, transcript.RenderOptions) (string, error)
	renderRecords func([]domain.Record, transcript.RenderOptions) (string, error)
	now           func() time.Time

	closers []func() error
}

func wireApp() (*app, error) {
	cfg, err := config.Load(viper.New())
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(os.Stderr, cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:           cfg,
		logger:        logger,
		renderSession: transcript.Render,
		renderRecords: transcript.RenderRecords,
		now:           time.Now,
	}

	repo, err := a.openDreamRepository()
	if err != nil {
		a.close()
		return nil, fmt.Errorf("wire dream repository: %w", err)
	}

	profileCfg := viper.New()
	profileCfg.Set("profiles.path", cfg.ProfilesPath)
	a.profiles, err = tomlrepo.NewProfileRepository(profileCfg)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("wire profile repository: %w", err)
	}

	a.secretStore, err = newSecretStore(cfg)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("wire secret store: %w", err)
	}

	assistant := a.resolveAssistant(context.Background())
	a.online = assistant != nil

	clock := ports.SystemClock{}
	a.synchronizer = application.NewSynchronizer(repo, clock, logger)
	a.registry = application.NewSessionRegistry(application.SessionDeps{
		Assistant:    assistant,
		Profiles:     a.profiles,
		Synchronizer: a.synchronizer,
		Clock:        clock,
		Logger:       logger,
		Config:       sessionConfig(cfg.Session),
	})

	return a, nil
}

func (a *app) openDreamRepository() (ports.DreamRepository, error) {
	switch a.cfg.Store.Driver {
	case config.DriverSQLite:
		repo, err := sqliterepo.Open(a.cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, repo.Close)
		return repo, nil
	case config.DriverBolt:
		repo, err := boltrepo.Open(a.cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, repo.Close)
		return repo, nil
	default:
		storeCfg := viper.New()
		storeCfg.Set("store.path", a.cfg.Store.Path)
		return tomlrepo.NewRepository(storeCfg)
	}
}

func newSecretStore(cfg config.Config) (ports.SecretStore, error) {
	root := filestore.DefaultRoot(cfg.Dir)
	if cfg.Secrets.Backend == config.SecretsFile {
		return filestore.NewStore(root), nil
	}
	return chainstore.NewPassFirstWithFileFallback(root)
}

// resolveAssistant returns nil when the remote service cannot be used, which
// makes every session run on local content.
func (a *app) resolveAssistant(ctx context.Context) ports.Assistant {
	if !a.cfg.Assistant.HasAssistant() {
		a.logger.Debug().Msg("no assistant id configured")
		return nil
	}

	apiKey := a.cfg.Assistant.APIKey
	if apiKey == "" {
		value, err := a.secretStore.Get(ctx, a.cfg.Assistant.APIKeyRef)
		if err != nil {
			if errors.Is(err, domain.ErrSecretNotFound) {
				a.logger.Info().Str("ref", a.cfg.Assistant.APIKeyRef).Msg("no api key stored")
			} else {
				a.logger.Warn().Err(err).Msg("load api key")
			}
			return nil
		}
		apiKey = value
	}

	client, err := openai.NewClient(openai.Config{
		BaseURL:        a.cfg.Assistant.BaseURL,
		APIKey:         apiKey,
		AssistantID:    a.cfg.Assistant.AssistantID,
		RequestTimeout: a.cfg.Assistant.RequestTimeout,
	}, http.DefaultClient)
	if err != nil {
		a.logger.Warn().Err(err).Msg("assistant client not created")
		return nil
	}
	return client
}

func sessionConfig(cfg config.SessionConfig) application.SessionConfig {
	retry := application.DefaultRetryPolicy()
	retry.MaxAttempts = cfg.RetryAttempts
	retry.BaseDelay = cfg.RetryBaseDelay

	return application.SessionConfig{
		Poll: application.PollPolicy{
			MaxAttempts: cfg.PollAttempts,
			Interval:    cfg.PollInterval,
		},
		Retry:         retry,
		FallbackAfter: cfg.FallbackAfter,
		IdleTTL:       cfg.IdleTTL,
	}
}

func (a *app) close() {
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			a.logger.Warn().Err(err).Msg("close store")
		}
	}
	a.closers = nil
}
