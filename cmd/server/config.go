package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/nickyhof/SheetDB/core"
	"github.com/nickyhof/SheetDB/db"
)

// Config holds every server setting. Values come from defaults, an optional
// sheetdb.yaml, SHEETDB_* environment variables and command line flags, in
// increasing order of precedence.
type Config struct {
	Port        int          `mapstructure:"port"`
	BaseDir     string       `mapstructure:"base_dir"`
	GitURL      string       `mapstructure:"git_url"`
	MetricsAddr string       `mapstructure:"metrics_addr"`
	Identity    IdentityConf `mapstructure:"identity"`
	Auth        AuthConfig   `mapstructure:"auth"`
	TLS         TLSConfig    `mapstructure:"tls"`
	Log         LogConfig    `mapstructure:"log"`
	S3          db.S3Config  `mapstructure:"s3"`
}

// IdentityConf is the commit author used when authentication is off.
type IdentityConf struct {
	Name  string `mapstructure:"name"`
	Email string `mapstructure:"email"`
}

func (c IdentityConf) identity() core.Identity {
	return core.Identity{Name: c.Name, Email: c.Email}
}

// TLSConfig enables TLS on the listener when both files are set.
type TLSConfig struct {
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

func (c TLSConfig) enabled() bool {
	return c.CertFile != "" && c.KeyFile != ""
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

var defaults = map[string]any{
	"port":             3306,
	"base_dir":         "",
	"git_url":          "",
	"metrics_addr":     "",
	"identity.name":    "SheetDB",
	"identity.email":   "sheetdb@localhost",
	"auth.enabled":     false,
	"auth.jwt_secret":  "",
	"auth.issuer":      "",
	"auth.audience":    "",
	"auth.name_claim":  "name",
	"auth.email_claim": "email",
	"tls.cert_file":    "",
	"tls.key_file":     "",
	"log.level":        "info",
	"log.format":       "text",
	"s3.access_key":    "",
	"s3.secret_key":    "",
	"s3.region":        "",
	"s3.endpoint":      "",
}

// LoadConfig reads configuration. configFile may be empty, in which case
// sheetdb.yaml is looked up in the working directory and /etc/sheetdb.
// Flags are bound by their long name with dashes mapped to underscores.
func LoadConfig(configFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix("SHEETDB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("sheetdb")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/sheetdb")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(flag *pflag.Flag) {
			if flag.Name == "config" || bindErr != nil {
				return
			}
			bindErr = v.BindPFlag(strings.ReplaceAll(flag.Name, "-", "_"), flag)
		})
		if bindErr != nil {
			return Config{}, fmt.Errorf("failed to bind flags: %w", bindErr)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Auth.Enabled && cfg.Auth.JWTSecret == "" {
		return Config{}, errors.New("auth.enabled requires auth.jwt_secret")
	}
	return cfg, nil
}

// NewLogger builds the process logger from the log section.
func NewLogger(cfg LogConfig, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.Format) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
