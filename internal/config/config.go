// Package config loads service settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every setting the server reads at startup.
type Config struct {
	Port        string `mapstructure:"PORT"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	RedisURL    string `mapstructure:"REDIS_URL"`
	BearerToken string `mapstructure:"BEARER_TOKEN"`

	OpenTripMapKey      string `mapstructure:"OPENTRIPMAP_API_KEY"`
	AmadeusClientID     string `mapstructure:"AMADEUS_CLIENT_ID"`
	AmadeusClientSecret string `mapstructure:"AMADEUS_CLIENT_SECRET"`
	AmadeusBaseURL      string `mapstructure:"AMADEUS_BASE_URL"`

	DefaultCurrency        string        `mapstructure:"DEFAULT_CURRENCY"`
	ProviderTimeout        time.Duration `mapstructure:"PROVIDER_TIMEOUT"`
	CacheTTL               time.Duration `mapstructure:"CACHE_TTL"`
	RateLimitPerMinute     int           `mapstructure:"RATE_LIMIT_PER_MINUTE"`
	AttractionRadiusMeters float64       `mapstructure:"ATTRACTION_RADIUS_METERS"`
	MigrationsEnabled      bool          `mapstructure:"MIGRATIONS_ENABLED"`
}

var defaults = map[string]any{
	"PORT":                     "8080",
	"DEFAULT_CURRENCY":         "BRL",
	"PROVIDER_TIMEOUT":         "8s",
	"CACHE_TTL":                "1h",
	"RATE_LIMIT_PER_MINUTE":    60,
	"ATTRACTION_RADIUS_METERS": 15000.0,
	"MIGRATIONS_ENABLED":       true,
}

// bound keys have no default, so they are bound explicitly for Unmarshal to see them.
var bound = []string{
	"DATABASE_URL",
	"REDIS_URL",
	"BEARER_TOKEN",
	"OPENTRIPMAP_API_KEY",
	"AMADEUS_CLIENT_ID",
	"AMADEUS_CLIENT_SECRET",
	"AMADEUS_BASE_URL",
}

// Load reads a .env file from path if one exists, then the environment,
// which takes precedence. Missing required keys are reported together.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	for _, k := range bound {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("binding %s: %w", k, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.DefaultCurrency = strings.ToUpper(cfg.DefaultCurrency)

	return &cfg, nil
}

func (c *Config) validate() error {
	var missing []string
	for k, val := range map[string]string{
		"DATABASE_URL": c.DatabaseURL,
		"REDIS_URL":    c.RedisURL,
		"BEARER_TOKEN": c.BearerToken,
	} {
		if strings.TrimSpace(val) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("required config not set: %s", strings.Join(missing, ", "))
	}
	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT must be positive, got %s", c.ProviderTimeout)
	}
	if c.AttractionRadiusMeters <= 0 {
		return fmt.Errorf("ATTRACTION_RADIUS_METERS must be positive, got %g", c.AttractionRadiusMeters)
	}
	return nil
}

// AmadeusEnabled reports whether live flight and hotel search is configured.
func (c *Config) AmadeusEnabled() bool {
	return c.AmadeusClientID != "" && c.AmadeusClientSecret != ""
}
