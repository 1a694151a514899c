package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"remedy/internal/bootstrap/logging"
	"remedy/internal/errs"
)

type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Log         LogConfig         `mapstructure:"log"`
	Remediation RemediationConfig `mapstructure:"remediation"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type RemediationConfig struct {
	// MaxBatchSize caps the ids accepted by one bulk call; 0 disables the cap.
	MaxBatchSize    int      `mapstructure:"max_batch_size"`
	SystemActors    []string `mapstructure:"system_actors"`
	DefaultPageSize int      `mapstructure:"default_page_size"`
	MaxPageSize     int      `mapstructure:"max_page_size"`
}

const envPrefix = "REMEDY"

func Load(ctx context.Context, configFile string) (Config, error) {
	if ctx == nil {
		return Config{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.config"))

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			logging.Warn(logCtx, "config file not found, fallback to defaults and env")
		} else {
			return Config{}, errs.Wrap(err, "read config")
		}
	} else {
		logging.Info(logCtx, "using config file", slog.String("path", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("database_driver", cfg.Database.Driver),
		slog.Int("max_batch_size", cfg.Remediation.MaxBatchSize),
	)

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database.dsn is required")
	}
	if c.Remediation.MaxBatchSize < 0 {
		return fmt.Errorf("remediation.max_batch_size must be >= 0, got %d", c.Remediation.MaxBatchSize)
	}
	if c.Remediation.DefaultPageSize <= 0 {
		return fmt.Errorf("remediation.default_page_size must be > 0, got %d", c.Remediation.DefaultPageSize)
	}
	if c.Remediation.MaxPageSize < c.Remediation.DefaultPageSize {
		return fmt.Errorf("remediation.max_page_size %d is below default_page_size %d", c.Remediation.MaxPageSize, c.Remediation.DefaultPageSize)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "remedy")
	v.SetDefault("app.env", "local")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", ".remedy/state/remedy.sqlite?_pragma=busy_timeout(5000)")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("remediation.max_batch_size", 1000)
	v.SetDefault("remediation.system_actors", []string{"system", "automation", "scheduler"})
	v.SetDefault("remediation.default_page_size", 50)
	v.SetDefault("remediation.max_page_size", 500)
}
