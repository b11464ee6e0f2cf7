package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ErrInvalid is returned by Validate for out-of-range settings.
var ErrInvalid = eris.New("config: invalid")

// Config holds the full application configuration.
type Config struct {
	Table   TableConfig   `yaml:"table" mapstructure:"table"`
	Extract ExtractConfig `yaml:"extract" mapstructure:"extract"`
	Fetch   FetchConfig   `yaml:"fetch" mapstructure:"fetch"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Notion  NotionConfig  `yaml:"notion" mapstructure:"notion"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// TableConfig locates the law-firm directory.
type TableConfig struct {
	Path        string `yaml:"path" mapstructure:"path"`
	SummaryPath string `yaml:"summary_path" mapstructure:"summary_path"`
}

// ExtractConfig controls batch selection and fan-out.
type ExtractConfig struct {
	BatchSize    int    `yaml:"batch_size" mapstructure:"batch_size"`
	Workers      int    `yaml:"workers" mapstructure:"workers"`
	CooldownDays int    `yaml:"cooldown_days" mapstructure:"cooldown_days"`
	RulesPath    string `yaml:"rules_path" mapstructure:"rules_path"`
}

// FetchConfig configures the page fetcher.
type FetchConfig struct {
	TimeoutSecs  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts  int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	RatePerHost  float64 `yaml:"rate_per_host" mapstructure:"rate_per_host"`
	Burst        int     `yaml:"burst" mapstructure:"burst"`
	UserAgent    string  `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64   `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// Timeout returns the per-page timeout.
func (f FetchConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSecs) * time.Second
}

// StoreConfig selects the run history backend: sqlite, postgres or none.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// NotionConfig configures the lead push.
type NotionConfig struct {
	Token  string `yaml:"token" mapstructure:"token"`
	LeadDB string `yaml:"lead_db" mapstructure:"lead_db"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from ./config.yaml (optional) and the
// environment. Every key can be set as LEADGEN_<SECTION>_<KEY>; batch size
// and worker count also honor the bare EXTRACT_BATCH_SIZE and
// EXTRACT_WORKERS variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("LEADGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, bare := range map[string]string{
		"extract.batch_size": "EXTRACT_BATCH_SIZE",
		"extract.workers":    "EXTRACT_WORKERS",
	} {
		envKey := "LEADGEN_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, bare); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", bare)
		}
	}

	v.SetDefault("table.path", "law-firms-directory.csv")
	v.SetDefault("table.summary_path", "")
	v.SetDefault("extract.batch_size", 100)
	v.SetDefault("extract.workers", 5)
	v.SetDefault("extract.cooldown_days", 30)
	v.SetDefault("extract.rules_path", "")
	v.SetDefault("fetch.timeout_secs", 8)
	v.SetDefault("fetch.max_attempts", 1)
	v.SetDefault("fetch.rate_per_host", 2.0)
	v.SetDefault("fetch.burst", 2)
	v.SetDefault("fetch.user_agent", "Mozilla/5.0 (compatible; LeadgenResearchBot/1.0)")
	v.SetDefault("fetch.max_body_bytes", 1<<20)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "leadgen.db")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 0)
	v.SetDefault("notion.token", "")
	v.SetDefault("notion.lead_db", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks the settings a command mode depends on: "extract",
// "runs", "export" or "push". All problems are reported together.
func (c *Config) Validate(mode string) error {
	var errs []string

	checkStore := func() {
		switch c.Store.Driver {
		case "sqlite", "postgres":
			if c.Store.DatabaseURL == "" {
				errs = append(errs, "store.database_url is required")
			}
		case "none":
		default:
			errs = append(errs, fmt.Sprintf("unknown store.driver %q", c.Store.Driver))
		}
	}
	checkTable := func() {
		if c.Table.Path == "" {
			errs = append(errs, "table.path is required")
		}
	}

	switch mode {
	case "extract":
		checkTable()
		checkStore()
		if c.Extract.BatchSize < 1 {
			errs = append(errs, "extract.batch_size must be > 0")
		}
		if c.Extract.Workers < 1 || c.Extract.Workers > 64 {
			errs = append(errs, "extract.workers must be between 1 and 64")
		}
		if c.Extract.CooldownDays < 0 {
			errs = append(errs, "extract.cooldown_days must be >= 0")
		}
		if c.Fetch.TimeoutSecs < 1 {
			errs = append(errs, "fetch.timeout_secs must be > 0")
		}
		if c.Fetch.RatePerHost < 0 {
			errs = append(errs, "fetch.rate_per_host must be >= 0")
		}
	case "runs":
		checkStore()
		if c.Store.Driver == "none" {
			errs = append(errs, "runs needs a store.driver other than none")
		}
	case "export":
		checkTable()
	case "push":
		checkTable()
		if c.Notion.Token == "" {
			errs = append(errs, "notion.token is required")
		}
		if c.Notion.LeadDB == "" {
			errs = append(errs, "notion.lead_db is required")
		}
	default:
		return eris.Wrapf(ErrInvalid, "config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Wrapf(ErrInvalid, "config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger. Output goes to stderr so
// stdout stays reserved for progress lines and the run summary.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.OutputPaths = []string{"stderr"}
	zapCfg.ErrorOutputPaths = []string{"stderr"}

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
