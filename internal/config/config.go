package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	EnvPrefix  = "ONEIRO"
	configName = "config"
	configType = "toml"
	dirName    = ".oneiro"

	DriverTOML   = "toml"
	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"

	// SecretsPass tries pass first and falls back to files under Dir.
	SecretsPass = "pass"
	SecretsFile = "file"
)

var storeExtensions = map[string]string{
	DriverTOML:   "toml",
	DriverSQLite: "db",
	DriverBolt:   "bolt",
}

type Config struct {
	// Dir holds config.toml, the default data files and the secrets fallback.
	Dir          string
	Store        StoreConfig
	ProfilesPath string
	Assistant    AssistantConfig
	Secrets      SecretsConfig
	Session      SessionConfig
	Log          LogConfig
	Server       ServerConfig
}

type StoreConfig struct {
	Driver string
	Path   string
}

type AssistantConfig struct {
	BaseURL        string
	AssistantID    string
	APIKey         string
	APIKeyRef      string
	RequestTimeout time.Duration
}

type SecretsConfig struct {
	Backend string
}

type SessionConfig struct {
	PollAttempts   int
	PollInterval   time.Duration
	RetryAttempts  int
	RetryBaseDelay time.Duration
	FallbackAfter  int
	IdleTTL        time.Duration
}

type LogConfig struct {
	Level string
}

type ServerConfig struct {
	Listen string
}

func setDefaults(v *viper.Viper, dir string) {
	v.SetDefault("store.driver", DriverTOML)
	v.SetDefault("store.path", "")
	v.SetDefault("profiles.path", filepath.Join(dir, "profiles.toml"))

	v.SetDefault("assistant.base_url", "https://api.openai.com/v1")
	v.SetDefault("assistant.assistant_id", "")
	v.SetDefault("assistant.api_key", "")
	v.SetDefault("assistant.api_key_ref", "openai/api_key")
	v.SetDefault("assistant.request_timeout", 30*time.Second)

	v.SetDefault("secrets.backend", SecretsPass)

	v.SetDefault("session.poll_attempts", 30)
	v.SetDefault("session.poll_interval", time.Second)
	v.SetDefault("session.retry_attempts", 2)
	v.SetDefault("session.retry_base_delay", 500*time.Millisecond)
	v.SetDefault("session.fallback_after", 2)
	v.SetDefault("session.idle_ttl", 30*time.Minute)

	v.SetDefault("log.level", "warn")
	v.SetDefault("server.listen", "127.0.0.1:8080")
}

// Load reads <dir>/config.toml when present, then ONEIRO_* environment
// variables, on top of the defaults. An explicit v.SetConfigFile wins over
// the default location.
func Load(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.New()
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("home", "")

	dir, err := resolveDir(v.GetString("home"))
	if err != nil {
		return Config{}, err
	}
	setDefaults(v, dir)

	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{
		Dir: dir,
		Store: StoreConfig{
			Driver: strings.ToLower(strings.TrimSpace(v.GetString("store.driver"))),
			Path:   v.GetString("store.path"),
		},
		ProfilesPath: v.GetString("profiles.path"),
		Assistant: AssistantConfig{
			BaseURL:        strings.TrimSpace(v.GetString("assistant.base_url")),
			AssistantID:    strings.TrimSpace(v.GetString("assistant.assistant_id")),
			APIKey:         strings.TrimSpace(v.GetString("assistant.api_key")),
			APIKeyRef:      strings.TrimSpace(v.GetString("assistant.api_key_ref")),
			RequestTimeout: v.GetDuration("assistant.request_timeout"),
		},
		Secrets: SecretsConfig{
			Backend: strings.ToLower(strings.TrimSpace(v.GetString("secrets.backend"))),
		},
		Session: SessionConfig{
			PollAttempts:   v.GetInt("session.poll_attempts"),
			PollInterval:   v.GetDuration("session.poll_interval"),
			RetryAttempts:  v.GetInt("session.retry_attempts"),
			RetryBaseDelay: v.GetDuration("session.retry_base_delay"),
			FallbackAfter:  v.GetInt("session.fallback_after"),
			IdleTTL:        v.GetDuration("session.idle_ttl"),
		},
		Log:    LogConfig{Level: v.GetString("log.level")},
		Server: ServerConfig{Listen: v.GetString("server.listen")},
	}
	if cfg.Store.Path == "" {
		if ext, ok := storeExtensions[cfg.Store.Driver]; ok {
			cfg.Store.Path = filepath.Join(dir, "dreams."+ext)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	if _, ok := storeExtensions[c.Store.Driver]; !ok {
		errs = append(errs, fmt.Errorf("store.driver %q is not one of toml, sqlite, bolt", c.Store.Driver))
	}
	if c.Secrets.Backend != SecretsPass && c.Secrets.Backend != SecretsFile {
		errs = append(errs, fmt.Errorf("secrets.backend %q is not one of pass, file", c.Secrets.Backend))
	}
	if c.Session.PollAttempts < 1 {
		errs = append(errs, fmt.Errorf("session.poll_attempts must be positive, got %d", c.Session.PollAttempts))
	}
	if c.Session.PollInterval < 0 {
		errs = append(errs, fmt.Errorf("session.poll_interval must not be negative, got %s", c.Session.PollInterval))
	}
	if c.Session.RetryAttempts < 1 {
		errs = append(errs, fmt.Errorf("session.retry_attempts must be positive, got %d", c.Session.RetryAttempts))
	}
	if c.Session.RetryBaseDelay < 0 {
		errs = append(errs, fmt.Errorf("session.retry_base_delay must not be negative, got %s", c.Session.RetryBaseDelay))
	}
	if c.Session.FallbackAfter < 1 {
		errs = append(errs, fmt.Errorf("session.fallback_after must be positive, got %d", c.Session.FallbackAfter))
	}
	if c.Session.IdleTTL < 0 {
		errs = append(errs, fmt.Errorf("session.idle_ttl must not be negative, got %s", c.Session.IdleTTL))
	}
	if c.Assistant.RequestTimeout < 0 {
		errs = append(errs, fmt.Errorf("assistant.request_timeout must not be negative, got %s", c.Assistant.RequestTimeout))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// HasAssistant reports whether enough is configured to reach the remote
// service once an API key has been resolved.
func (c AssistantConfig) HasAssistant() bool {
	return c.AssistantID != ""
}

func resolveDir(override string) (string, error) {
	if override != "" {
		return filepath.Clean(override), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(homeDir, dirName), nil
}
