package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	APIURL          string
	Contracts       []string
	PollInterval    time.Duration
	PageLimit       int
	MaxPages        int
	MaxRetries      int
	RetryBackoff    time.Duration
	RateLimit       float64
	RequestTimeout  time.Duration
	Resume          bool
	CursorFile      string
	Listen          string
	APIPrefix       string
	Metrics         bool
	Store           string
	PGDSN           string
	LogLevel        string
	ShutdownTimeout time.Duration
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := newViper()
	v.SetDefault("api-url", "https://api.hiro.so")
	v.SetDefault("poll-interval", 10*time.Second)
	v.SetDefault("page-limit", 50)
	v.SetDefault("max-pages", 10)
	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("rate-limit", 5.0)
	v.SetDefault("request-timeout", time.Duration(0))
	v.SetDefault("resume", true)
	v.SetDefault("cursor-file", "")
	v.SetDefault("listen", ":3000")
	v.SetDefault("api-prefix", "/api")
	v.SetDefault("metrics", true)
	v.SetDefault("store", StorePostgres)
	v.SetDefault("shutdown-timeout", 15*time.Second)

	if err := read(v, cfgFile, flags); err != nil {
		return Config{}, err
	}

	cfg := Config{
		APIURL:          strings.TrimRight(v.GetString("api-url"), "/"),
		Contracts:       getStringSlice(v, "contract"),
		PollInterval:    v.GetDuration("poll-interval"),
		PageLimit:       v.GetInt("page-limit"),
		MaxPages:        v.GetInt("max-pages"),
		MaxRetries:      v.GetInt("max-retries"),
		RetryBackoff:    v.GetDuration("retry-backoff"),
		RateLimit:       v.GetFloat64("rate-limit"),
		RequestTimeout:  v.GetDuration("request-timeout"),
		Resume:          v.GetBool("resume"),
		CursorFile:      v.GetString("cursor-file"),
		Listen:          v.GetString("listen"),
		APIPrefix:       v.GetString("api-prefix"),
		Metrics:         v.GetBool("metrics"),
		Store:           strings.ToLower(strings.TrimSpace(v.GetString("store"))),
		PGDSN:           v.GetString("pg-dsn"),
		LogLevel:        v.GetString("log-level"),
		ShutdownTimeout: v.GetDuration("shutdown-timeout"),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Store {
	case StorePostgres:
		if c.PGDSN == "" {
			return fmt.Errorf("pg-dsn is required when store is %q", StorePostgres)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll-interval must be positive")
	}
	if c.PageLimit <= 0 {
		return fmt.Errorf("page-limit must be positive")
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("INDEXER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault("log-level", "info")
	return v
}

func read(v *viper.Viper, cfgFile string, flags *pflag.FlagSet) error {
	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		return nil
	}

	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	return cleanStrings(strings.Split(input, ","))
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		// a single flag value may itself hold a comma separated list
		for _, part := range strings.Split(item, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			out = append(out, part)
		}
	}
	return out
}
