package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Hansol916/OSSFinal/internal/db"
	"github.com/Hansol916/OSSFinal/internal/grading"
)

type Config struct {
	HTTPAddr string

	DBDriver db.Driver
	DBDSN    string

	BlobBasePath string // archived grade sheets

	AuthSecret string
	TokenTTL   time.Duration

	CORSOrigins []string

	NATSURL string // empty disables publishing
	SiteID  string

	LogLevel  string
	LogFormat string // json|text

	// DefaultRelative grades relative subjects that never saved a table.
	DefaultRelative grading.RelativeConfig
}

// Keys double as environment variable names once upper-cased.
const (
	KeyHTTPAddr        = "http_addr"
	KeyDBDriver        = "db_driver"
	KeyDBDSN           = "db_dsn"
	KeyBlobBasePath    = "blob_base_path"
	KeyAuthSecret      = "auth_hmac_secret"
	KeyTokenTTL        = "auth_token_ttl"
	KeyCORSOrigins     = "cors_origins"
	KeyNATSURL         = "nats_url"
	KeySiteID          = "site_id"
	KeyLogLevel        = "log_level"
	KeyLogFormat       = "log_format"
	KeyDefaultRelative = "grading_default_relative"
)

// New returns a viper instance with defaults and environment lookup set up.
// Callers may bind flags to it before Load.
func New() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault(KeyHTTPAddr, ":8080")
	v.SetDefault(KeyDBDriver, string(db.DriverSQLite))
	v.SetDefault(KeyDBDSN, "")
	v.SetDefault(KeyBlobBasePath, "./data")
	v.SetDefault(KeyAuthSecret, "supersecret-dev-key")
	v.SetDefault(KeyTokenTTL, "8h")
	v.SetDefault(KeyCORSOrigins, "http://localhost:3000")
	v.SetDefault(KeyNATSURL, "")
	v.SetDefault(KeySiteID, "local")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "json")
	return v
}

// Load reads the optional YAML file, then resolves and validates every key.
// Environment variables win over the file.
func Load(v *viper.Viper, file string) (Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	driver, err := db.ParseDriver(v.GetString(KeyDBDriver))
	if err != nil {
		return Config{}, err
	}
	ttl := v.GetDuration(KeyTokenTTL)
	if ttl <= 0 {
		return Config{}, fmt.Errorf("%s must be a positive duration", KeyTokenTTL)
	}
	rel, err := defaultRelative(v)
	if err != nil {
		return Config{}, err
	}
	format := strings.ToLower(v.GetString(KeyLogFormat))
	if format != "json" && format != "text" {
		return Config{}, fmt.Errorf("%s must be json or text", KeyLogFormat)
	}

	return Config{
		HTTPAddr:        v.GetString(KeyHTTPAddr),
		DBDriver:        driver,
		DBDSN:           v.GetString(KeyDBDSN),
		BlobBasePath:    v.GetString(KeyBlobBasePath),
		AuthSecret:      v.GetString(KeyAuthSecret),
		TokenTTL:        ttl,
		CORSOrigins:     csv(v, KeyCORSOrigins),
		NATSURL:         v.GetString(KeyNATSURL),
		SiteID:          v.GetString(KeySiteID),
		LogLevel:        v.GetString(KeyLogLevel),
		LogFormat:       format,
		DefaultRelative: rel,
	}, nil
}

// defaultRelative accepts either the compact "A+:5,...,F:100" string (env)
// or a list of {grade, max_percent} maps (YAML).
func defaultRelative(v *viper.Viper) (grading.RelativeConfig, error) {
	var cfg grading.RelativeConfig
	switch raw := v.Get(KeyDefaultRelative).(type) {
	case nil:
		return grading.DefaultRelativeConfig, nil
	case string:
		if strings.TrimSpace(raw) == "" {
			return grading.DefaultRelativeConfig, nil
		}
		parsed, err := grading.ParseRelativeConfig(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", KeyDefaultRelative, err)
		}
		cfg = parsed
	default:
		if err := v.UnmarshalKey(KeyDefaultRelative, &cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", KeyDefaultRelative, err)
		}
	}
	if err := grading.ValidateRelativeConfig(cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", KeyDefaultRelative, err)
	}
	return cfg, nil
}

// csv splits a comma-separated value; YAML lists pass through.
func csv(v *viper.Viper, key string) []string {
	var parts []string
	switch raw := v.Get(key).(type) {
	case string:
		parts = strings.Split(raw, ",")
	default:
		parts = v.GetStringSlice(key)
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

var ErrInsecureSecret = errors.New("auth_hmac_secret is still the development default")

// CheckSecret reports whether the signing secret was left at its default.
func (c Config) CheckSecret() error {
	if c.AuthSecret == "supersecret-dev-key" {
		return ErrInsecureSecret
	}
	return nil
}
