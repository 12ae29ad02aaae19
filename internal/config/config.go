package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/mailercloud-sync/internal/daterange"
	"github.com/sells-group/mailercloud-sync/internal/failure"
)

// Config holds the full application configuration.
type Config struct {
	Mailercloud MailercloudConfig `yaml:"mailercloud" mapstructure:"mailercloud"`
	Window      WindowConfig      `yaml:"window" mapstructure:"window"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Export      ExportConfig      `yaml:"export" mapstructure:"export"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// MailercloudConfig holds Mailercloud API settings.
type MailercloudConfig struct {
	APIKey      string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// Timeout returns the HTTP timeout as a duration.
func (c MailercloudConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// WindowConfig pins the date window. From/To default to a fixed literal
// window; CurrentMonth ignores them and queries the current calendar month.
type WindowConfig struct {
	From         string `yaml:"from" mapstructure:"from"`
	To           string `yaml:"to" mapstructure:"to"`
	CurrentMonth bool   `yaml:"current_month" mapstructure:"current_month"`
}

// Override converts the window into a daterange.Override.
func (c WindowConfig) Override() daterange.Override {
	if c.CurrentMonth {
		return daterange.Override{}
	}
	return daterange.Override{From: c.From, To: c.To}
}

// StoreConfig configures the document store sink.
type StoreConfig struct {
	Driver     string `yaml:"driver" mapstructure:"driver"`
	URI        string `yaml:"uri" mapstructure:"uri"`
	Database   string `yaml:"database" mapstructure:"database"`
	Collection string `yaml:"collection" mapstructure:"collection"`
}

// ExportConfig configures the tabular file sink.
type ExportConfig struct {
	Path   string `yaml:"path" mapstructure:"path"`
	Format string `yaml:"format" mapstructure:"format"`
	BOM    bool   `yaml:"bom" mapstructure:"bom"`
}

// ServerConfig configures the trigger server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Supported store drivers and export formats.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// LoadDotEnv loads KEY=VALUE pairs from the given files (default ".env")
// into the process environment. Variables already set are kept. A missing
// file is not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return eris.Wrapf(err, "config: load %s", p)
		}
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MCSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unprefixed legacy variable names are still honoured.
	if err := v.BindEnv("mailercloud.api_key", "MCSYNC_MAILERCLOUD_API_KEY", "MAILERCLOUD_API_KEY"); err != nil {
		return nil, eris.Wrap(err, "config: bind api key env")
	}
	if err := v.BindEnv("store.uri", "MCSYNC_STORE_URI", "MONGODB_URI"); err != nil {
		return nil, eris.Wrap(err, "config: bind store uri env")
	}

	// Defaults
	v.SetDefault("mailercloud.base_url", "https://cloudapi.mailercloud.com/v1")
	v.SetDefault("mailercloud.timeout_secs", 60)
	v.SetDefault("window.from", "2024-01-01")
	v.SetDefault("window.to", "2025-05-31")
	v.SetDefault("window.current_month", false)
	v.SetDefault("store.driver", DriverMongo)
	v.SetDefault("store.database", "mailercloudDB")
	v.SetDefault("store.collection", "campaigns")
	v.SetDefault("export.path", "mailercloud_campaigns.csv")
	v.SetDefault("export.format", FormatCSV)
	v.SetDefault("export.bom", false)
	v.SetDefault("server.port", 8080)
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

// RequireAPIKey fails with a ConfigurationError when no API key is set.
func (c *Config) RequireAPIKey() error {
	if strings.TrimSpace(c.Mailercloud.APIKey) == "" {
		return failure.NewConfigurationError("mailercloud.api_key",
			"not set (MAILERCLOUD_API_KEY or MCSYNC_MAILERCLOUD_API_KEY)")
	}
	return nil
}

// RequireStore fails with a ConfigurationError when the store settings are
// unusable.
func (c *Config) RequireStore() error {
	switch c.Store.Driver {
	case DriverMongo, DriverPostgres, DriverSQLite:
	default:
		return failure.NewConfigurationError("store.driver",
			"unsupported driver "+c.Store.Driver+" (mongo, postgres, sqlite)")
	}
	if strings.TrimSpace(c.Store.URI) == "" {
		return failure.NewConfigurationError("store.uri",
			"not set (MONGODB_URI or MCSYNC_STORE_URI)")
	}
	return nil
}

// RequireExport fails with a ConfigurationError when the export settings are
// unusable.
func (c *Config) RequireExport() error {
	switch c.Export.Format {
	case FormatCSV, FormatXLSX:
	default:
		return failure.NewConfigurationError("export.format",
			"unsupported format "+c.Export.Format+" (csv, xlsx)")
	}
	if strings.TrimSpace(c.Export.Path) == "" {
		return failure.NewConfigurationError("export.path", "not set")
	}
	return nil
}

// InitLogger replaces the global zap logger. Output goes to stderr; stdout is
// reserved for command output such as preview YAML.
func InitLogger(cfg LogConfig) error {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrapf(err, "config: log level %q", cfg.Level)
	}

	var zc zap.Config
	switch cfg.Format {
	case "console":
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	case "json", "":
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	default:
		return failure.NewConfigurationError("log.format",
			"unsupported format "+cfg.Format+" (json, console)")
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	zc.InitialFields = map[string]any{"app": "mailercloud-sync"}

	logger, err := zc.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)
	return nil
}
