package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8090"`

	DatabaseURL string `envconfig:"DATABASE_URL" default:""`
	DBMinConns  int32  `envconfig:"DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"4"`

	OverlayMode    string        `envconfig:"OVERLAY_MODE" default:"hover"`
	BatchSize      int           `envconfig:"BATCH_SIZE" default:"0"`
	BatchDelay     time.Duration `envconfig:"BATCH_DELAY" default:"-1ns"`
	BatchMaxActive int           `envconfig:"BATCH_CONCURRENCY" default:"0"`
	MinTextLen     int           `envconfig:"MIN_TEXT_LEN" default:"4"`
	MaxTextLen     int           `envconfig:"MAX_TEXT_LEN" default:"499"`
	HoverHideDelay time.Duration `envconfig:"HOVER_HIDE_DELAY" default:"150ms"`
	PanelPadding   float64       `envconfig:"PANEL_PADDING" default:"20"`
	SkipTargetLang bool          `envconfig:"SKIP_TARGET_LANGUAGE" default:"false"`

	DefaultTargetLang   string        `envconfig:"DEFAULT_TARGET_LANG" default:"zh"`
	TranslationProvider string        `envconfig:"TRANSLATION_PROVIDER" default:"google"`
	TranslationEndpoint string        `envconfig:"TRANSLATION_ENDPOINT" default:""`
	TranslationModel    string        `envconfig:"TRANSLATION_MODEL" default:""`
	GoogleTranslateURL  string        `envconfig:"GOOGLE_TRANSLATE_URL" default:""`
	ProviderRPS         float64       `envconfig:"PROVIDER_RPS" default:"20"`
	ProviderBurst       int           `envconfig:"PROVIDER_BURST" default:"20"`
	ProviderTimeout     time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"30s"`

	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
}

// ModePreset holds batching defaults for one overlay mode.
type ModePreset struct {
	BatchSize int
	Delay     time.Duration
}

// Presets mirror the two page-translation variants: hover paces its batches,
// inline fires them back to back.
var Presets = map[string]ModePreset{
	"hover":  {BatchSize: 15, Delay: 100 * time.Millisecond},
	"inline": {BatchSize: 10, Delay: 0},
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	mode := strings.ToLower(strings.TrimSpace(c.OverlayMode))
	if _, ok := Presets[mode]; !ok {
		return fmt.Errorf("OVERLAY_MODE must be hover or inline, got %q", c.OverlayMode)
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) cannot exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("BATCH_SIZE must be >= 0")
	}
	if c.BatchMaxActive < 0 {
		return fmt.Errorf("BATCH_CONCURRENCY must be >= 0")
	}
	if c.MinTextLen < 1 {
		return fmt.Errorf("MIN_TEXT_LEN must be >= 1")
	}
	if c.MaxTextLen < c.MinTextLen {
		return fmt.Errorf("MAX_TEXT_LEN (%d) cannot be below MIN_TEXT_LEN (%d)", c.MaxTextLen, c.MinTextLen)
	}
	if c.HoverHideDelay <= 0 {
		return fmt.Errorf("HOVER_HIDE_DELAY must be > 0")
	}
	if c.PanelPadding < 0 {
		return fmt.Errorf("PANEL_PADDING must be >= 0")
	}
	if strings.TrimSpace(c.DefaultTargetLang) == "" {
		return fmt.Errorf("DEFAULT_TARGET_LANG is required")
	}
	if c.ProviderRPS <= 0 {
		return fmt.Errorf("PROVIDER_RPS must be > 0")
	}
	if c.ProviderBurst < 1 {
		return fmt.Errorf("PROVIDER_BURST must be >= 1")
	}
	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT must be > 0")
	}
	return nil
}

// Mode returns the normalised overlay mode.
func (c *Config) Mode() string {
	return strings.ToLower(strings.TrimSpace(c.OverlayMode))
}

// Batching resolves batch size and pacing delay, falling back to the mode preset.
func (c *Config) Batching() ModePreset {
	preset := Presets[c.Mode()]
	if c.BatchSize > 0 {
		preset.BatchSize = c.BatchSize
	}
	if c.BatchDelay >= 0 {
		preset.Delay = c.BatchDelay
	}
	return preset
}

// HasDatabase reports whether settings and run history go to postgres.
func (c *Config) HasDatabase() bool {
	return c != nil && strings.TrimSpace(c.DatabaseURL) != ""
}

func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil {
		return nil
	}

	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		if _, exists := seen[origin]; exists {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	return origins
}
