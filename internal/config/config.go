package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Jina    JinaConfig    `yaml:"jina" mapstructure:"jina"`
	Scrape  ScrapeConfig  `yaml:"scrape" mapstructure:"scrape"`
	Analyze AnalyzeConfig `yaml:"analyze" mapstructure:"analyze"`
	MRP     MRPConfig     `yaml:"mrp" mapstructure:"mrp"`
	Trust   TrustConfig   `yaml:"trust" mapstructure:"trust"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the price history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// JinaConfig holds Jina AI Reader settings.
type JinaConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ScrapeConfig configures page rendering.
type ScrapeConfig struct {
	// Renderer lists renderers in fallback order: chrome, local_http, jina.
	Renderer     []string `yaml:"renderer" mapstructure:"renderer"`
	TimeoutSecs  int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	WaitMillis   int      `yaml:"wait_millis" mapstructure:"wait_millis"`
	ExcludePaths []string `yaml:"exclude_paths" mapstructure:"exclude_paths"`
	MaxRetries   int      `yaml:"max_retries" mapstructure:"max_retries"`
	UserAgent    string   `yaml:"user_agent" mapstructure:"user_agent"`
	ChromePath   string   `yaml:"chrome_path" mapstructure:"chrome_path"`
}

// AnalyzeConfig configures the analysis pipeline.
type AnalyzeConfig struct {
	RefreshDelaySecs   int `yaml:"refresh_delay_secs" mapstructure:"refresh_delay_secs"`
	RefreshTimeoutSecs int `yaml:"refresh_timeout_secs" mapstructure:"refresh_timeout_secs"`
}

// MRPConfig holds the MRP authenticity thresholds.
type MRPConfig struct {
	BenchmarkFraction float64 `yaml:"benchmark_fraction" mapstructure:"benchmark_fraction"`
	InflatedAbove     float64 `yaml:"inflated_above" mapstructure:"inflated_above"`
	HighAbove         float64 `yaml:"high_above" mapstructure:"high_above"`
}

// TrustConfig holds trust scoring weights.
type TrustConfig struct {
	Weights           TrustWeights    `yaml:"weights" mapstructure:"weights"`
	SeverityFactors   SeverityFactors `yaml:"severity_factors" mapstructure:"severity_factors"`
	PriceAnomalyRatio float64         `yaml:"price_anomaly_ratio" mapstructure:"price_anomaly_ratio"`
}

// TrustWeights is the base weight of each violation type.
type TrustWeights struct {
	Addon          float64 `yaml:"addon" mapstructure:"addon"`
	Timer          float64 `yaml:"timer" mapstructure:"timer"`
	DripPricing    float64 `yaml:"drip_pricing" mapstructure:"drip_pricing"`
	Scarcity       float64 `yaml:"scarcity" mapstructure:"scarcity"`
	ConfirmShaming float64 `yaml:"confirm_shaming" mapstructure:"confirm_shaming"`
	PriceAnomaly   float64 `yaml:"price_anomaly" mapstructure:"price_anomaly"`
}

// SeverityFactors multiply a violation's weight by its severity.
type SeverityFactors struct {
	High   float64 `yaml:"high" mapstructure:"high"`
	Medium float64 `yaml:"medium" mapstructure:"medium"`
	Low    float64 `yaml:"low" mapstructure:"low"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port               int      `yaml:"port" mapstructure:"port"`
	RateLimitPerMinute int      `yaml:"rate_limit_per_minute" mapstructure:"rate_limit_per_minute"`
	AllowedOrigins     []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TRUSTLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "trustlens.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit_per_minute", 5)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("scrape.renderer", []string{"chrome", "local_http", "jina"})
	v.SetDefault("scrape.timeout_secs", 30)
	v.SetDefault("scrape.wait_millis", 3000)
	v.SetDefault("scrape.exclude_paths", []string{"/cart/*", "/checkout/*", "/login/*", "/account/*"})
	v.SetDefault("scrape.max_retries", 2)
	v.SetDefault("scrape.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("analyze.refresh_delay_secs", 2)
	v.SetDefault("analyze.refresh_timeout_secs", 20)
	v.SetDefault("mrp.benchmark_fraction", 0.85)
	v.SetDefault("mrp.inflated_above", 1.3)
	v.SetDefault("mrp.high_above", 2.5)
	v.SetDefault("trust.weights.addon", 2)
	v.SetDefault("trust.weights.timer", 2)
	v.SetDefault("trust.weights.drip_pricing", 1)
	v.SetDefault("trust.weights.scarcity", 1)
	v.SetDefault("trust.weights.confirm_shaming", 1)
	v.SetDefault("trust.weights.price_anomaly", 1)
	v.SetDefault("trust.severity_factors.high", 1.5)
	v.SetDefault("trust.severity_factors.medium", 1.0)
	v.SetDefault("trust.severity_factors.low", 0.5)
	v.SetDefault("trust.price_anomaly_ratio", 1.4)

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

// Validate checks the settings a command mode depends on. Modes are
// "analyze", "history" and "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "analyze", "history", "serve":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}

	if mode != "history" {
		if c.Scrape.TimeoutSecs <= 0 {
			errs = append(errs, "scrape.timeout_secs must be > 0")
		}
		if c.Scrape.MaxRetries < 0 {
			errs = append(errs, "scrape.max_retries must be >= 0")
		}
		for _, r := range c.Scrape.Renderer {
			switch r {
			case "chrome", "local_http", "jina":
			default:
				errs = append(errs, fmt.Sprintf("scrape.renderer: unknown renderer %q", r))
			}
		}
		if c.Analyze.RefreshDelaySecs < 0 {
			errs = append(errs, "analyze.refresh_delay_secs must be >= 0")
		}
		if c.Analyze.RefreshTimeoutSecs < c.Analyze.RefreshDelaySecs {
			errs = append(errs, "analyze.refresh_timeout_secs must be >= refresh_delay_secs")
		}
		if c.MRP.BenchmarkFraction <= 0 || c.MRP.BenchmarkFraction > 1 {
			errs = append(errs, "mrp.benchmark_fraction must be in (0, 1]")
		}
		if c.MRP.InflatedAbove < 1 || c.MRP.HighAbove < c.MRP.InflatedAbove {
			errs = append(errs, "mrp thresholds must satisfy 1 <= inflated_above <= high_above")
		}
	}

	if mode == "serve" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		if c.Server.RateLimitPerMinute < 0 {
			errs = append(errs, "server.rate_limit_per_minute must be >= 0")
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
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
