package config

import (
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini    GeminiConfig    `yaml:"gemini" mapstructure:"gemini"`
	Market    MarketConfig    `yaml:"market" mapstructure:"market"`
	Search    SearchConfig    `yaml:"search" mapstructure:"search"`
	Analysis  AnalysisConfig  `yaml:"analysis" mapstructure:"analysis"`
	Scorer    ScorerConfig    `yaml:"scorer" mapstructure:"scorer"`
	Pricing   PricingConfig   `yaml:"pricing" mapstructure:"pricing"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// LLMConfig selects the language model backend used for extraction and narrative.
type LLMConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// GeminiConfig holds Google Gemini API settings.
type GeminiConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// MarketConfig configures the market data provider.
type MarketConfig struct {
	Provider          string  `yaml:"provider" mapstructure:"provider"`
	BaseURL           string  `yaml:"base_url" mapstructure:"base_url"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	CacheTTLMinutes   int     `yaml:"cache_ttl_minutes" mapstructure:"cache_ttl_minutes"`
	StaticFile        string  `yaml:"static_file" mapstructure:"static_file"`
	FailureThreshold  int     `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs  int     `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// SearchConfig configures the optional document search index.
type SearchConfig struct {
	Endpoint   string `yaml:"endpoint" mapstructure:"endpoint"`
	Key        string `yaml:"key" mapstructure:"key"`
	Index      string `yaml:"index" mapstructure:"index"`
	APIVersion string `yaml:"api_version" mapstructure:"api_version"`
	Top        int    `yaml:"top" mapstructure:"top"`
}

// Enabled reports whether enough settings are present to query the index.
func (s SearchConfig) Enabled() bool {
	return s.Endpoint != "" && s.Key != "" && s.Index != ""
}

// AnalysisConfig tunes the valuation pipeline.
type AnalysisConfig struct {
	ComparableLimit      int    `yaml:"comparable_limit" mapstructure:"comparable_limit"`
	MaxConcurrency       int    `yaml:"max_concurrency" mapstructure:"max_concurrency"`
	ExtractTimeoutSecs   int    `yaml:"extract_timeout_secs" mapstructure:"extract_timeout_secs"`
	EnrichTimeoutSecs    int    `yaml:"enrich_timeout_secs" mapstructure:"enrich_timeout_secs"`
	InsightsTimeoutSecs  int    `yaml:"insights_timeout_secs" mapstructure:"insights_timeout_secs"`
	NarrativeTimeoutSecs int    `yaml:"narrative_timeout_secs" mapstructure:"narrative_timeout_secs"`
	Jitter               bool   `yaml:"jitter" mapstructure:"jitter"`
	Seed                 uint64 `yaml:"seed" mapstructure:"seed"`
	UniverseFile         string `yaml:"universe_file" mapstructure:"universe_file"`
}

// ScorerConfig holds the comparable matching weights and threshold.
type ScorerConfig struct {
	IndustryExactWeight   float64 `yaml:"industry_exact_weight" mapstructure:"industry_exact_weight"`
	IndustryPartialWeight float64 `yaml:"industry_partial_weight" mapstructure:"industry_partial_weight"`
	SectorWeight          float64 `yaml:"sector_weight" mapstructure:"sector_weight"`
	RegionExactWeight     float64 `yaml:"region_exact_weight" mapstructure:"region_exact_weight"`
	RegionGlobalWeight    float64 `yaml:"region_global_weight" mapstructure:"region_global_weight"`
	RegionAliasWeight     float64 `yaml:"region_alias_weight" mapstructure:"region_alias_weight"`
	BusinessModelWeight   float64 `yaml:"business_model_weight" mapstructure:"business_model_weight"`
	MaxJitter             float64 `yaml:"max_jitter" mapstructure:"max_jitter"`
	MinScore              float64 `yaml:"min_score" mapstructure:"min_score"`
}

// PricingConfig holds per-model LLM pricing (USD per million tokens).
type PricingConfig struct {
	Anthropic map[string]ModelPricing `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini    map[string]ModelPricing `yaml:"gemini" mapstructure:"gemini"`
}

// ModelPricing holds per-model token pricing (USD per million tokens).
type ModelPricing struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

var (
	storeDrivers    = []string{"postgres", "sqlite", "memory"}
	llmProviders    = []string{"anthropic", "gemini"}
	marketProviders = []string{"yahoo", "static"}
)

// Load reads configuration from an optional .env file, config file and
// environment.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("VALUATION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.database_url", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("gemini.key", "")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("market.provider", "yahoo")
	v.SetDefault("market.base_url", "https://query2.finance.yahoo.com")
	v.SetDefault("market.requests_per_second", 4.0)
	v.SetDefault("market.cache_ttl_minutes", 15)
	v.SetDefault("market.static_file", "")
	v.SetDefault("market.failure_threshold", 5)
	v.SetDefault("market.reset_timeout_secs", 60)
	v.SetDefault("search.endpoint", "")
	v.SetDefault("search.key", "")
	v.SetDefault("search.index", "")
	v.SetDefault("search.api_version", "2023-11-01")
	v.SetDefault("search.top", 10)
	v.SetDefault("analysis.comparable_limit", 5)
	v.SetDefault("analysis.max_concurrency", 5)
	v.SetDefault("analysis.extract_timeout_secs", 60)
	v.SetDefault("analysis.enrich_timeout_secs", 15)
	v.SetDefault("analysis.insights_timeout_secs", 20)
	v.SetDefault("analysis.narrative_timeout_secs", 90)
	v.SetDefault("analysis.jitter", true)
	v.SetDefault("analysis.seed", 0)
	v.SetDefault("analysis.universe_file", "")
	v.SetDefault("scorer.industry_exact_weight", 100)
	v.SetDefault("scorer.industry_partial_weight", 70)
	v.SetDefault("scorer.sector_weight", 40)
	v.SetDefault("scorer.region_exact_weight", 30)
	v.SetDefault("scorer.region_global_weight", 25)
	v.SetDefault("scorer.region_alias_weight", 15)
	v.SetDefault("scorer.business_model_weight", 20)
	v.SetDefault("scorer.max_jitter", 5)
	v.SetDefault("scorer.min_score", 30)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command needs. Modes:
//   - "analysis": runs the full pipeline (store, LLM, market data)
//   - "serve": everything "analysis" needs plus a listen port
//   - "store": reads persisted analyses only
//   - "offline": no external calls
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "analysis", "serve":
		errs = append(errs, c.validateStore()...)
		errs = append(errs, c.validateAnalysis()...)
		if mode == "serve" && c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "store":
		errs = append(errs, c.validateStore()...)
	case "offline":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Scorer.MinScore < 0 || c.Scorer.MinScore >= 100 {
		errs = append(errs, "scorer.min_score must be in [0, 100)")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: invalid: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateStore() []string {
	var errs []string
	if !slices.Contains(storeDrivers, c.Store.Driver) {
		errs = append(errs, "store.driver must be one of "+strings.Join(storeDrivers, ", "))
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required for the postgres driver")
	}
	return errs
}

func (c *Config) validateAnalysis() []string {
	var errs []string
	switch c.LLM.Provider {
	case "anthropic":
		if c.Anthropic.Key == "" {
			errs = append(errs, "anthropic.key is required")
		}
	case "gemini":
		if c.Gemini.Key == "" {
			errs = append(errs, "gemini.key is required")
		}
	default:
		errs = append(errs, "llm.provider must be one of "+strings.Join(llmProviders, ", "))
	}
	if !slices.Contains(marketProviders, c.Market.Provider) {
		errs = append(errs, "market.provider must be one of "+strings.Join(marketProviders, ", "))
	}
	if c.Analysis.ComparableLimit <= 0 {
		errs = append(errs, "analysis.comparable_limit must be > 0")
	}
	if c.Analysis.MaxConcurrency < 1 || c.Analysis.MaxConcurrency > 50 {
		errs = append(errs, "analysis.max_concurrency must be between 1 and 50")
	}
	return errs
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
