package config

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"

	"github.com/angeloszaimis/string-search/internal/search"
)

const EnvPrefix = "STRINGSEARCH"

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

type ServerConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Environment    string `mapstructure:"environment"`
	MaxConnections int    `mapstructure:"max_connections"`
}

type RequestConfig struct {
	MaxPayload int `mapstructure:"max_payload"`
}

type DatasetConfig struct {
	Path          string `mapstructure:"path"`
	RereadOnQuery bool   `mapstructure:"reread_on_query"`
}

type SearchConfig struct {
	Algorithm string `mapstructure:"algorithm"`
}

type TLSConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Cert    string `mapstructure:"cert"`
	Key     string `mapstructure:"key"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
	Debug bool   `mapstructure:"debug"`
	File  string `mapstructure:"file"`
}

type MetricsConfig struct {
	ReportInterval string `mapstructure:"report_interval"`
}

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Request RequestConfig `mapstructure:"request"`
	Dataset DatasetConfig `mapstructure:"dataset"`
	Search  SearchConfig  `mapstructure:"search"`
	TLS     TLSConfig     `mapstructure:"tls"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// Load reads configuration from path, or from config.yaml in ./config or the
// working directory when path is empty. A missing default file is not an
// error. STRINGSEARCH_* environment variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Warn("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.environment", EnvDev)
	v.SetDefault("server.max_connections", 0)
	v.SetDefault("request.max_payload", 1024)
	v.SetDefault("dataset.path", "")
	v.SetDefault("dataset.reread_on_query", false)
	v.SetDefault("search.algorithm", search.Linear)
	v.SetDefault("tls.enabled", false)
	v.SetDefault("tls.cert", "")
	v.SetDefault("tls.key", "")
	v.SetDefault("logging.level", LogLevelInfo)
	v.SetDefault("logging.debug", false)
	v.SetDefault("logging.file", "")
	v.SetDefault("metrics.report_interval", "0s")
}

// ReportInterval returns the parsed metrics interval. Validate guarantees it
// parses.
func (c *Config) ReportInterval() time.Duration {
	d, _ := time.ParseDuration(c.Metrics.ReportInterval)
	return d
}

// LogLevel returns the effective level, honouring the debug switch.
func (c *Config) LogLevel() string {
	if c.Logging.Debug {
		return LogLevelDebug
	}
	return c.Logging.Level
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Host, is.Host),
					validation.Field(&sc.Port,
						validation.Required,
						validation.Min(1),
						validation.Max(65535),
					),
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.MaxConnections, validation.Min(0)),
				)
			}),
		),
		validation.Field(&c.Request,
			validation.By(func(value interface{}) error {
				rc, ok := value.(RequestConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a RequestConfig")
				}
				return validation.ValidateStruct(&rc,
					validation.Field(&rc.MaxPayload,
						validation.Required,
						validation.Min(1),
					),
				)
			}),
		),
		validation.Field(&c.Dataset,
			validation.By(func(value interface{}) error {
				dc, ok := value.(DatasetConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a DatasetConfig")
				}
				return validation.ValidateStruct(&dc,
					validation.Field(&dc.Path, validation.Required),
				)
			}),
		),
		validation.Field(&c.Search,
			validation.By(func(value interface{}) error {
				sc, ok := value.(SearchConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a SearchConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Algorithm,
						validation.Required,
						validation.By(validateAlgorithm),
					),
				)
			}),
		),
		validation.Field(&c.TLS,
			validation.By(func(value interface{}) error {
				tc, ok := value.(TLSConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a TLSConfig")
				}
				return validation.ValidateStruct(&tc,
					validation.Field(&tc.Cert, validation.When(tc.Enabled, validation.Required)),
					validation.Field(&tc.Key, validation.When(tc.Enabled, validation.Required)),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
		validation.Field(&c.Metrics,
			validation.By(func(value interface{}) error {
				mc, ok := value.(MetricsConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a MetricsConfig")
				}
				return validation.ValidateStruct(&mc,
					validation.Field(&mc.ReportInterval,
						validation.Required,
						validation.By(validateDuration),
					),
				)
			}),
		),
	)
}

func validateAlgorithm(value interface{}) error {
	name, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if _, err := search.New(name); err != nil {
		return validation.NewError("validation_invalid_algorithm",
			"must be one of: "+strings.Join(search.Names(), ", "))
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}
	if d < 0 {
		return validation.NewError("validation_negative_duration", "must not be negative")
	}

	return nil
}
