package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"spendwise/internal/log"
)

// DefaultFile is read from the working directory when SPENDWISE_CONFIG is unset.
const DefaultFile = "spendwise.toml"

type Config struct {
	// HTTP Server
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	TrustedProxies  []string

	// Storage
	DataBackend  string
	SQLiteDBPath string

	// AMQP change events; empty URL disables publishing
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Logging
	LogLevel  string
	LogFormat string

	// Client commands
	ServerURL string
}

// fileConfig mirrors the TOML layout. Zero values leave defaults untouched.
type fileConfig struct {
	Server struct {
		Port            string        `toml:"port"`
		ReadTimeout     time.Duration `toml:"read_timeout"`
		WriteTimeout    time.Duration `toml:"write_timeout"`
		IdleTimeout     time.Duration `toml:"idle_timeout"`
		ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
		TrustedProxies  []string      `toml:"trusted_proxies"`
	} `toml:"server"`
	Storage struct {
		Backend    string `toml:"backend"`
		SQLitePath string `toml:"sqlite_path"`
	} `toml:"storage"`
	AMQP struct {
		URL      string `toml:"url"`
		Exchange string `toml:"exchange"`
		Queue    string `toml:"queue"`
	} `toml:"amqp"`
	Log struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	} `toml:"log"`
	Client struct {
		Server string `toml:"server"`
	} `toml:"client"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:            "8081",
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,

		DataBackend:  "memory",
		SQLiteDBPath: ":memory:",

		AMQPExchange: "spendwise",
		AMQPQueue:    "spendwise_events",

		LogLevel:  "info",
		LogFormat: log.FormatText,

		ServerURL: "http://localhost:8081",
	}
}

// Load layers defaults, the optional TOML file and environment variables,
// in that order of increasing precedence.
func Load() (*Config, error) {
	cfg := Default()

	path := os.Getenv("SPENDWISE_CONFIG")
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := cfg.mergeFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// LoadFile reads only the TOML file on top of the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.mergeFile(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	var fc fileConfig
	meta, err := toml.DecodeFile(path, &fc)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config file %s: %w", path, os.ErrNotExist)
		}
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("config file %s: unknown keys %s", path, strings.Join(keys, ", "))
	}

	setString(&c.Port, fc.Server.Port)
	setDuration(&c.ReadTimeout, fc.Server.ReadTimeout)
	setDuration(&c.WriteTimeout, fc.Server.WriteTimeout)
	setDuration(&c.IdleTimeout, fc.Server.IdleTimeout)
	setDuration(&c.ShutdownTimeout, fc.Server.ShutdownTimeout)
	if len(fc.Server.TrustedProxies) > 0 {
		c.TrustedProxies = fc.Server.TrustedProxies
	}
	setString(&c.DataBackend, fc.Storage.Backend)
	setString(&c.SQLiteDBPath, fc.Storage.SQLitePath)
	setString(&c.AMQPURL, fc.AMQP.URL)
	setString(&c.AMQPExchange, fc.AMQP.Exchange)
	setString(&c.AMQPQueue, fc.AMQP.Queue)
	setString(&c.LogLevel, fc.Log.Level)
	setString(&c.LogFormat, fc.Log.Format)
	setString(&c.ServerURL, fc.Client.Server)
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.ReadTimeout = getEnvDuration("HTTP_READ_TIMEOUT", c.ReadTimeout)
	c.WriteTimeout = getEnvDuration("HTTP_WRITE_TIMEOUT", c.WriteTimeout)
	c.IdleTimeout = getEnvDuration("HTTP_IDLE_TIMEOUT", c.IdleTimeout)
	c.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", c.ShutdownTimeout)
	c.TrustedProxies = getEnvList("TRUSTED_PROXIES", c.TrustedProxies)

	c.DataBackend = getEnv("DATA_BACKEND", c.DataBackend)
	c.SQLiteDBPath = getEnv("SQLITE_DB_PATH", c.SQLiteDBPath)

	c.AMQPURL = getEnv("AMQP_URL", c.AMQPURL)
	c.AMQPExchange = getEnv("AMQP_EXCHANGE", c.AMQPExchange)
	c.AMQPQueue = getEnv("AMQP_QUEUE", c.AMQPQueue)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)

	c.ServerURL = getEnv("SPENDWISE_SERVER", c.ServerURL)
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" && c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}
	if c.LogFormat != log.FormatText && c.LogFormat != log.FormatJSON {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	timeouts := []struct {
		name string
		d    time.Duration
	}{
		{"read timeout", c.ReadTimeout},
		{"write timeout", c.WriteTimeout},
		{"idle timeout", c.IdleTimeout},
		{"shutdown timeout", c.ShutdownTimeout},
	}
	for _, t := range timeouts {
		if t.d <= 0 {
			errors = append(errors, fmt.Sprintf("invalid %s %v: must be positive", t.name, t.d))
		}
	}

	if parsedURL, err := url.Parse(c.ServerURL); err != nil || (parsedURL.Scheme != "http" && parsedURL.Scheme != "https") || parsedURL.Host == "" {
		errors = append(errors, fmt.Sprintf("invalid server URL '%s': must be an http(s) URL", c.ServerURL))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Addr is the listen address for the HTTP server
func (c *Config) Addr() string {
	return ":" + c.Port
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
