package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/pagetrans/internal/cli"
	"horse.fit/pagetrans/internal/config"
	"horse.fit/pagetrans/internal/db"
	"horse.fit/pagetrans/internal/engine"
	"horse.fit/pagetrans/internal/logging"
	"horse.fit/pagetrans/internal/overlay"
	"horse.fit/pagetrans/internal/selector"
	"horse.fit/pagetrans/internal/settings"
	"horse.fit/pagetrans/internal/translation"
)

// runtime is everything a command needs after config is loaded. pool is nil
// when DATABASE_URL is unset.
type runtime struct {
	cfg      *config.Config
	logger   zerolog.Logger
	pool     *db.Pool
	store    settings.Store
	registry *translation.Registry
	client   *translation.Client
}

func (r *runtime) Close() {
	if r.pool != nil {
		_ = r.pool.Close()
	}
}

// recorder returns the run recorder, or nil without a database.
func (r *runtime) recorder() engine.RunRecorder {
	if r.pool == nil {
		return nil
	}
	return engine.NewDBRecorder(r.pool)
}

// loadRuntime reads env and config and connects to the database when one is
// configured. Logs go to logOut so commands can keep stdout for results.
func loadRuntime(ctx context.Context, envLoader *cli.EnvLoader, logOut io.Writer, requireDB bool) (*runtime, error) {
	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if requireDB && !cfg.HasDatabase() {
		return nil, fmt.Errorf("DATABASE_URL is required for this command")
	}

	logger, err := logging.NewWithWriter(logOut, cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	rt := &runtime{
		cfg:    cfg,
		logger: logger,
		store:  settings.NewMemoryStore(),
	}

	if cfg.HasDatabase() {
		dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		pool, err := db.NewPool(dbCtx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		rt.pool = pool
		rt.store = settings.NewDBStore(pool)
	}

	rt.registry = translation.NewRegistryFromConfig(translation.ProviderConfig{
		Default:   cfg.TranslationProvider,
		Endpoint:  cfg.TranslationEndpoint,
		Model:     cfg.TranslationModel,
		GoogleURL: cfg.GoogleTranslateURL,
	})
	provider, err := rt.registry.Provider(cfg.TranslationProvider)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.client = translation.NewClient(provider, translation.NewCache(), translation.ClientOptions{
		RequestsPerSecond: cfg.ProviderRPS,
		Burst:             cfg.ProviderBurst,
		Timeout:           cfg.ProviderTimeout,
	}, logger)

	return rt, nil
}

// engineOptions maps config onto per-document engine defaults.
func (r *runtime) engineOptions(targetLang string) engine.Options {
	preset := r.cfg.Batching()
	return engine.Options{
		Mode:       overlay.Mode(r.cfg.Mode()),
		TargetLang: targetLang,
		Selector: selector.Options{
			MinLen: r.cfg.MinTextLen,
			MaxLen: r.cfg.MaxTextLen,
		},
		BatchSize:          preset.BatchSize,
		BatchDelay:         preset.Delay,
		MaxConcurrent:      r.cfg.BatchMaxActive,
		SkipTargetLanguage: r.cfg.SkipTargetLang,
		HoverHideDelay:     r.cfg.HoverHideDelay,
		PanelPadding:       r.cfg.PanelPadding,
		Settings:           r.store,
		Recorder:           r.recorder(),
	}
}

// lastTargetLang is the saved target language, or the configured default.
func (r *runtime) lastTargetLang(ctx context.Context) string {
	lang, err := settings.LastTargetLang(ctx, r.store, r.cfg.DefaultTargetLang)
	if err != nil {
		r.logger.Warn().Err(err).Msg("load last target language failed")
	}
	return lang
}
