// Package config loads fit-agent settings from a YAML file, FIT_AGENT_*
// environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/jonathan/fit-agent/internal/breaker"
	"github.com/jonathan/fit-agent/internal/calibration"
	"github.com/jonathan/fit-agent/internal/search"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "FIT_AGENT"

// DefaultName is the config file looked up in the working directory when no
// path is given.
const DefaultName = "fit-agent"

// Config is the full application configuration.
type Config struct {
	Server      ServerConfig              `mapstructure:"server"`
	Log         LogConfig                 `mapstructure:"log"`
	LLM         LLMConfig                 `mapstructure:"llm"`
	Search      SearchConfig              `mapstructure:"search"`
	Fetch       FetchConfig               `mapstructure:"fetch"`
	Cache       CacheConfig               `mapstructure:"cache"`
	Breakers    map[string]breaker.Config `mapstructure:"breakers" validate:"dive"`
	Pipeline    PipelineConfig            `mapstructure:"pipeline"`
	Calibration calibration.Policy        `mapstructure:"calibration"`
	Profile     ProfileConfig             `mapstructure:"profile"`
	Auth        AuthConfig                `mapstructure:"auth"`
	RateLimit   RateLimitConfig           `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port" validate:"gte=1,lte=65535"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type LogConfig struct {
	JSON  bool `mapstructure:"json"`
	Debug bool `mapstructure:"debug"`
}

type LLMConfig struct {
	Provider      string            `mapstructure:"provider" validate:"oneof=gemini genai"`
	APIKey        string            `mapstructure:"api_key"`
	MaxConcurrent int64             `mapstructure:"max_concurrent" validate:"gte=1"`
	Models        map[string]string `mapstructure:"models"`
	Temperature   float32           `mapstructure:"temperature" validate:"gte=0,lte=2"`
}

type SearchConfig struct {
	APIKey          string                 `mapstructure:"api_key"`
	EngineID        string                 `mapstructure:"engine_id"`
	ResultsPerQuery int64                  `mapstructure:"results_per_query" validate:"gte=1,lte=10"`
	RateLimit       search.RateLimitConfig `mapstructure:",squash"`
}

type FetchConfig struct {
	Timeout        time.Duration `mapstructure:"timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
	Browser        bool          `mapstructure:"browser"`
	BrowserTimeout time.Duration `mapstructure:"browser_timeout"`
}

type CacheConfig struct {
	URL string        `mapstructure:"url"`
	TTL time.Duration `mapstructure:"ttl"`
}

// PipelineConfig bounds a single assessment run.
type PipelineConfig struct {
	RequestTimeout    time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	MaxRetries        int           `mapstructure:"max_retries" validate:"gte=0"`
	ScorerConcurrency int           `mapstructure:"scorer_concurrency" validate:"gte=1"`
	EnrichLimit       int           `mapstructure:"enrich_limit" validate:"gte=0"`
	EnrichConcurrency int           `mapstructure:"enrich_concurrency" validate:"gte=1"`
	Precedence        string        `mapstructure:"precedence" validate:"oneof=override garbage"`
}

type ProfileConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// AuthConfig controls bearer-token auth on the HTTP API.
type AuthConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	JWTSecret  string        `mapstructure:"jwt_secret"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	BcryptCost int           `mapstructure:"bcrypt_cost"`
	Pepper     string        `mapstructure:"pepper"`
	Clients    []Client      `mapstructure:"clients" validate:"dive"`
}

// Client is an API client allowed to exchange its secret for a token.
type Client struct {
	ID         string `mapstructure:"id" validate:"required"`
	SecretHash string `mapstructure:"secret_hash" validate:"required"`
}

type RateLimitConfig struct {
	Enabled           bool     `mapstructure:"enabled"`
	RequestsPerMinute int      `mapstructure:"requests_per_minute" validate:"gte=1"`
	Burst             int      `mapstructure:"burst" validate:"gte=1"`
	ExemptPaths       []string `mapstructure:"exempt_paths"`
}

// MinJWTSecretLength is enforced when auth is enabled
const MinJWTSecretLength = 32

// envAliases maps config keys to the conventional variable names accepted
// alongside FIT_AGENT_*.
var envAliases = map[string]string{
	"llm.api_key":      "GEMINI_API_KEY",
	"search.api_key":   "GOOGLE_SEARCH_API_KEY",
	"search.engine_id": "GOOGLE_SEARCH_CX",
	"auth.jwt_secret":  "JWT_SECRET",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "10m")
	v.SetDefault("server.idle_timeout", "60s")

	v.SetDefault("log.json", false)
	v.SetDefault("log.debug", false)

	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.max_concurrent", 8)
	v.SetDefault("llm.models.lite", "gemini-2.5-flash-lite")
	v.SetDefault("llm.models.standard", "gemini-2.5-flash")
	v.SetDefault("llm.models.advanced", "gemini-2.5-pro")
	v.SetDefault("llm.temperature", 0.1)

	v.SetDefault("search.api_key", "")
	v.SetDefault("search.engine_id", "")
	v.SetDefault("search.results_per_query", 5)
	v.SetDefault("search.requests_per_second", 5)
	v.SetDefault("search.burst", 5)

	v.SetDefault("fetch.timeout", "20s")
	v.SetDefault("fetch.user_agent", "Mozilla/5.0 (compatible; FitAgent/1.0)")
	v.SetDefault("fetch.browser", false)
	v.SetDefault("fetch.browser_timeout", "30s")

	v.SetDefault("cache.url", "memory://")
	v.SetDefault("cache.ttl", "168h")

	for name, cfg := range breaker.DefaultConfigs() {
		v.SetDefault("breakers."+name+".threshold", cfg.Threshold)
		v.SetDefault("breakers."+name+".reset_timeout", cfg.ResetTimeout.String())
	}

	v.SetDefault("pipeline.request_timeout", "3m")
	v.SetDefault("pipeline.max_retries", 3)
	v.SetDefault("pipeline.scorer_concurrency", 4)
	v.SetDefault("pipeline.enrich_limit", 5)
	v.SetDefault("pipeline.enrich_concurrency", 3)
	v.SetDefault("pipeline.precedence", "override")

	cal := calibration.DefaultPolicy()
	v.SetDefault("calibration.min_sources", cal.MinSources)
	v.SetDefault("calibration.min_requirements", cal.MinRequirements)
	v.SetDefault("calibration.min_tech_stack", cal.MinTechStack)
	v.SetDefault("calibration.max_delta", cal.MaxDelta)
	v.SetDefault("calibration.mismatch_score", cal.MismatchScore)
	v.SetDefault("calibration.mismatch_matched", cal.MismatchMatched)
	v.SetDefault("calibration.mismatch_penalty", cal.MismatchPenalty)
	v.SetDefault("calibration.low_confidence_flags", cal.LowConfidenceFlag)

	v.SetDefault("profile.path", "configs/profile.example.yaml")

	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("auth.bcrypt_cost", DefaultBcryptCost)
	v.SetDefault("auth.pepper", "")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_minute", 30)
	v.SetDefault("rate_limit.burst", 10)
	v.SetDefault("rate_limit.exempt_paths", []string{"/health"})
}

// New returns a viper instance with defaults and environment bindings.
// Callers may bind CLI flags onto it before passing it to Decode.
func New() (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, alias := range envAliases {
		envKey := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, alias); err != nil {
			return nil, fmt.Errorf("binding %s: %w", alias, err)
		}
	}
	return v, nil
}

// ReadFile reads path into v. An empty path looks for fit-agent.yaml in
// the working directory and tolerates its absence.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(DefaultName)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// Decode unmarshals and validates v.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads configuration from path, the environment and defaults.
func Load(path string) (*Config, error) {
	v, err := New()
	if err != nil {
		return nil, err
	}
	if err := ReadFile(v, path); err != nil {
		return nil, err
	}
	return Decode(v)
}

// Validate checks field ranges and cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	for name := range c.Breakers {
		switch name {
		case breaker.Search, breaker.LLM, breaker.Fetch:
		default:
			return fmt.Errorf("config error: unknown breaker %q", name)
		}
	}
	if c.Auth.Enabled {
		if len(c.Auth.JWTSecret) < MinJWTSecretLength {
			return fmt.Errorf("config error: auth.jwt_secret must be at least %d characters when auth is enabled", MinJWTSecretLength)
		}
		if c.Auth.TokenTTL < time.Minute {
			return fmt.Errorf("config error: auth.token_ttl must be at least 1m, got %s", c.Auth.TokenTTL)
		}
	}
	if c.Auth.BcryptCost < MinBcryptCost || c.Auth.BcryptCost > MaxBcryptCost {
		return fmt.Errorf("config error: auth.bcrypt_cost out of range: %d (must be %d-%d)", c.Auth.BcryptCost, MinBcryptCost, MaxBcryptCost)
	}
	return nil
}

// SearchEnabled reports whether Google search credentials are present.
func (c *Config) SearchEnabled() bool {
	return c.Search.APIKey != "" && c.Search.EngineID != ""
}
