package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PierreEmmanuelGoffi/dt-brewers/internal/provider"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the dashboard service
type Config struct {
	Server   ServerConfig
	Provider ProviderConfig
	Remote   RemoteConfig
	Session  SessionConfig
	JWT      JWTConfig
	Logging  LoggingConfig
	CORS     CORSConfig
}

// ServerConfig holds all server-related configuration
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// ProviderConfig selects the data source new sessions start with
type ProviderConfig struct {
	Default string
}

// RemoteConfig points at the brewing controller API
type RemoteConfig struct {
	BaseURL string
	Timeout time.Duration
}

// SessionConfig controls dashboard session lifetime
type SessionConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	SecretKey         string
	ExpirationMinutes int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// CORSConfig lists the browser origins allowed to call the API
type CORSConfig struct {
	AllowedOrigins []string
}

const defaultAllowedOrigins = "http://localhost:5173,http://localhost:3000,http://localhost:8050,http://127.0.0.1:5173,http://127.0.0.1:3000"

// LoadConfig loads the configuration from .env, an optional config file and
// environment variables, in increasing order of precedence.
func LoadConfig() (*Config, error) {
	// .env is optional; existing environment variables win
	if err := godotenv.Load(); err != nil {
		_ = godotenv.Load("../../.env")
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/dt-brewers")

	// Set defaults
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.readTimeout", "30s")
	v.SetDefault("server.writeTimeout", "30s")
	v.SetDefault("server.shutdownTimeout", "5s")

	v.SetDefault("provider.default", string(provider.VariantSynthetic))

	v.SetDefault("remote.baseURL", "http://tremblar.com:5000")
	v.SetDefault("remote.timeout", "10s")

	v.SetDefault("session.ttl", "12h")
	v.SetDefault("session.sweepInterval", "5m")

	v.SetDefault("jwt.expirationMinutes", 720)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("cors.allowedOrigins", defaultAllowedOrigins)

	// Map environment variables to config fields
	v.BindEnv("server.port", "DASHBOARD_PORT")
	v.BindEnv("provider.default", "DATA_SOURCE")
	v.BindEnv("remote.baseURL", "BREWING_API_URL")
	v.BindEnv("remote.timeout", "BREWING_API_TIMEOUT")
	v.BindEnv("jwt.secretKey", "JWT_SECRET_KEY")
	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("logging.format", "LOG_FORMAT")
	v.BindEnv("cors.allowedOrigins", "CORS_ALLOWED_ORIGINS")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config

	// Parse durations
	durations := map[string]*time.Duration{
		"server.readTimeout":     &cfg.Server.ReadTimeout,
		"server.writeTimeout":    &cfg.Server.WriteTimeout,
		"server.shutdownTimeout": &cfg.Server.ShutdownTimeout,
		"remote.timeout":         &cfg.Remote.Timeout,
		"session.ttl":            &cfg.Session.TTL,
		"session.sweepInterval":  &cfg.Session.SweepInterval,
	}

	for key, dst := range durations {
		d, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = d
	}

	cfg.Server.Port = v.GetString("server.port")
	cfg.Provider.Default = v.GetString("provider.default")
	cfg.Remote.BaseURL = v.GetString("remote.baseURL")

	cfg.JWT = JWTConfig{
		SecretKey:         v.GetString("jwt.secretKey"),
		ExpirationMinutes: v.GetInt("jwt.expirationMinutes"),
	}

	cfg.Logging = LoggingConfig{
		Level:  v.GetString("logging.level"),
		Format: v.GetString("logging.format"),
	}

	cfg.CORS.AllowedOrigins = originList(v.Get("cors.allowedOrigins"))

	return &cfg, nil
}

// originList accepts a comma separated string (env) or a YAML list
func originList(raw any) []string {
	var items []string
	switch val := raw.(type) {
	case string:
		items = strings.Split(val, ",")
	case []string:
		items = val
	case []any:
		for _, item := range val {
			items = append(items, fmt.Sprint(item))
		}
	}

	origins := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			origins = append(origins, item)
		}
	}
	return origins
}

// Validate checks the settings every command needs
func (c *Config) Validate() error {
	if _, err := provider.ParseVariant(c.Provider.Default); err != nil {
		return fmt.Errorf("invalid provider.default: %w", err)
	}

	u, err := url.Parse(c.Remote.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("remote.baseURL must be an absolute URL, got %q", c.Remote.BaseURL)
	}

	if c.Remote.Timeout <= 0 {
		return errors.New("remote.timeout must be positive")
	}

	return nil
}

// ValidateServe additionally checks what the HTTP server needs
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.Server.Port == "" {
		return errors.New("server port is required")
	}

	if c.JWT.SecretKey == "" {
		return errors.New("JWT secret key is required")
	}

	if c.JWT.ExpirationMinutes <= 0 {
		return errors.New("jwt.expirationMinutes must be positive")
	}

	if c.Session.TTL <= 0 || c.Session.SweepInterval <= 0 {
		return errors.New("session ttl and sweep interval must be positive")
	}

	return nil
}
