// Package config loads the tool's configuration in layers: built-in
// defaults, an optional YAML file, a .env file, MOCHI_* environment
// variables and finally command-line flags, each overriding the last.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	flag "github.com/spf13/pflag"
)

// Config holds all settings for one invocation.
type Config struct {
	API    APIConfig    `koanf:"api"`
	Store  StoreConfig  `koanf:"store"`
	Server ServerConfig `koanf:"server"`
	Review ReviewConfig `koanf:"review"`
}

// APIConfig configures the remote Mochi API. The key may be empty:
// local-only operations never need it and remote ones fail lazily.
type APIConfig struct {
	Key     string `koanf:"key"`
	BaseURL string `koanf:"base_url" validate:"required,url"`
}

// StoreConfig locates the local Mochi database.
type StoreConfig struct {
	Path string `koanf:"path" validate:"required"`
}

// ServerConfig configures the web review front-end.
type ServerConfig struct {
	Port        int           `koanf:"port" validate:"required,gt=0,lt=65536"`
	IdleTimeout time.Duration `koanf:"idle_timeout" validate:"required"`
	NoBrowser   bool          `koanf:"no_browser"`
}

// ReviewConfig scopes a review run.
type ReviewConfig struct {
	Deck     string `koanf:"deck"`
	DeckName string `koanf:"deck_name"`
	Limit    int    `koanf:"limit" validate:"gte=0"`
}

// envKeys maps MOCHI_* environment variables to config keys. Unmapped
// variables are ignored.
var envKeys = map[string]string{
	"api_key":      "api.key",
	"base_url":     "api.base_url",
	"db":           "store.path",
	"port":         "server.port",
	"idle_timeout": "server.idle_timeout",
}

// flagKeys maps command-line flag names to config keys. Flags outside
// the map (like review's --count) are command behavior, not config.
var flagKeys = map[string]string{
	"api-key":      "api.key",
	"base-url":     "api.base_url",
	"db":           "store.path",
	"port":         "server.port",
	"idle-timeout": "server.idle_timeout",
	"no-browser":   "server.no_browser",
	"deck":         "review.deck",
	"deck-name":    "review.deck_name",
	"limit":        "review.limit",
}

// Defaults returns the built-in configuration. defaultStorePath may be
// empty when the platform store location cannot be determined; it is
// then required from the environment or flags.
func Defaults(defaultStorePath string) *Config {
	return &Config{
		API:   APIConfig{BaseURL: "https://app.mochi.cards/api"},
		Store: StoreConfig{Path: defaultStorePath},
		Server: ServerConfig{
			Port:        5111,
			IdleTimeout: 5 * time.Minute,
		},
	}
}

// Load layers configuration on top of defaults and validates the
// result. flags may be nil for commands without flags; flag names must
// use the dotted config keys registered by the cmd package.
func Load(defaults *Config, flags *flag.FlagSet) (*Config, error) {
	// .env sits beside the binary's working directory; a missing file
	// is the normal case.
	_ = godotenv.Load()

	k := koanf.New(".")

	if path := os.Getenv("MOCHI_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("MOCHI_", ".", func(s string) string {
		return envKeys[strings.ToLower(strings.TrimPrefix(s, "MOCHI_"))]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if flags != nil {
		// A flag left at its default must not clobber a value set by
		// the file or environment layers; blanking the key skips it.
		provider := posflag.ProviderWithValue(flags, ".", k, func(name, value string) (string, any) {
			key, ok := flagKeys[name]
			if !ok {
				key = name
			}
			if !flags.Changed(name) && k.Exists(key) {
				return "", nil
			}
			return key, value
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	cfg := *defaults
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
