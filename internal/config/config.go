package config

import (
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/securecheck/securecheck-cli/internal/catalogue"
	"github.com/securecheck/securecheck-cli/internal/normalize"
	"github.com/securecheck/securecheck-cli/internal/schema"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Ingest    IngestConfig    `yaml:"ingest" mapstructure:"ingest"`
	Catalogue CatalogueConfig `yaml:"catalogue" mapstructure:"catalogue"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Table       string `yaml:"table" mapstructure:"table"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`

	// ConnectAttempts bounds retries while the database is unreachable.
	ConnectAttempts int `yaml:"connect_attempts" mapstructure:"connect_attempts"`
}

// IngestConfig configures extract reading and loading.
type IngestConfig struct {
	Source          string   `yaml:"source" mapstructure:"source"`
	TempDir         string   `yaml:"temp_dir" mapstructure:"temp_dir"`
	BatchSize       int      `yaml:"batch_size" mapstructure:"batch_size"`
	Delimiter       string   `yaml:"delimiter" mapstructure:"delimiter"`
	Encoding        string   `yaml:"encoding" mapstructure:"encoding"`
	Sheet           string   `yaml:"sheet" mapstructure:"sheet"`
	DateLayouts     []string `yaml:"date_layouts" mapstructure:"date_layouts"`
	HTTPTimeoutSecs int      `yaml:"http_timeout_secs" mapstructure:"http_timeout_secs"`
}

// CatalogueConfig configures report execution.
type CatalogueConfig struct {
	Parallelism         int                  `yaml:"parallelism" mapstructure:"parallelism"`
	StopDurationMinutes []catalogue.Duration `yaml:"stop_duration_minutes" mapstructure:"stop_duration_minutes"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port               int      `yaml:"port" mapstructure:"port"`
	CORSOrigins        []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	RateLimitRequests  int      `yaml:"rate_limit_requests" mapstructure:"rate_limit_requests"`
	RateLimitWindowSec int      `yaml:"rate_limit_window_secs" mapstructure:"rate_limit_window_secs"`
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
	v.SetEnvPrefix("SECURECHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.table", schema.DefaultTable)
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("store.connect_attempts", 5)
	v.SetDefault("ingest.source", "")
	v.SetDefault("ingest.temp_dir", "/tmp/securecheck")
	v.SetDefault("ingest.batch_size", 5000)
	v.SetDefault("ingest.delimiter", ",")
	v.SetDefault("ingest.encoding", "")
	v.SetDefault("ingest.sheet", "")
	v.SetDefault("ingest.date_layouts", normalize.DefaultDateLayouts)
	v.SetDefault("ingest.http_timeout_secs", 60)
	v.SetDefault("catalogue.parallelism", 4)
	v.SetDefault("catalogue.stop_duration_minutes", durationDefaults())
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit_requests", 120)
	v.SetDefault("server.rate_limit_window_secs", 60)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// durationDefaults renders the default stop_duration lookup in the shape
// viper unmarshals from YAML.
func durationDefaults() []map[string]any {
	out := make([]map[string]any, len(catalogue.DefaultDurations))
	for i, d := range catalogue.DefaultDurations {
		out[i] = map[string]any{"label": d.Label, "minutes": d.Minutes}
	}
	return out
}

var drivers = map[string]bool{"postgres": true, "sqlite": true, "duckdb": true}

// Validate checks the settings a command needs. mode is one of "ingest",
// "reports" or "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	if !drivers[strings.ToLower(c.Store.Driver)] {
		errs = append(errs, "store.driver must be one of postgres, sqlite, duckdb")
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}
	if !schema.ValidTable(c.Store.Table) {
		errs = append(errs, "store.table must be a lowercase identifier, optionally schema-qualified")
	}

	switch mode {
	case "ingest":
		if c.Ingest.BatchSize < 1 {
			errs = append(errs, "ingest.batch_size must be > 0")
		}
		if utf8.RuneCountInString(c.Ingest.Delimiter) != 1 {
			errs = append(errs, "ingest.delimiter must be a single character")
		}
		if c.Ingest.HTTPTimeoutSecs < 1 {
			errs = append(errs, "ingest.http_timeout_secs must be > 0")
		}
	case "reports":
		errs = append(errs, c.validateCatalogue()...)
	case "serve":
		errs = append(errs, c.validateCatalogue()...)
		if c.Server.Port < 1 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		if c.Server.RateLimitRequests < 0 {
			errs = append(errs, "server.rate_limit_requests must be >= 0")
		}
		if c.Server.RateLimitRequests > 0 && c.Server.RateLimitWindowSec < 1 {
			errs = append(errs, "server.rate_limit_window_secs must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateCatalogue() []string {
	var errs []string
	if c.Catalogue.Parallelism < 1 || c.Catalogue.Parallelism > 32 {
		errs = append(errs, "catalogue.parallelism must be between 1 and 32")
	}
	for _, d := range c.Catalogue.StopDurationMinutes {
		if d.Label == "" || d.Minutes < 0 {
			errs = append(errs, "catalogue.stop_duration_minutes entries need a label and minutes >= 0")
			break
		}
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
