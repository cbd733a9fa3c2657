// Package config loads the avro-contract YAML configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-avrocontract/pkg/schema"
)

const envPrefix = "AVRO_CONTRACT_"

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	RequestIDHeader string        `yaml:"request_id_header"`
	Validate        *bool         `yaml:"validate"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type SchemasConfig struct {
	BaseDir     string        `yaml:"base_dir"`
	AllowHTTP   bool          `yaml:"allow_http"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`
	MaxBytes    int64         `yaml:"max_bytes"`
}

type PluginConfig struct {
	Name    string   `yaml:"name"`
	Version string   `yaml:"version"`
	Format  string   `yaml:"format"`
	Textual []string `yaml:"textual_formats"`
}

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Schemas SchemasConfig `yaml:"schemas"`
	Plugin  PluginConfig  `yaml:"plugin"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads path, applies defaults and environment overrides and validates
// the result. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		cfg := Default()
		applyEnvOverrides(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	// #nosec G304 -- path is provided by trusted config/flag.
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(b)
}

// Parse decodes a YAML document. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		cfg.Server.Addr = ":8787"
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout <= 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if strings.TrimSpace(cfg.Server.RequestIDHeader) == "" {
		cfg.Server.RequestIDHeader = "X-Request-Id"
	}
	if cfg.Server.Validate == nil {
		enabled := true
		cfg.Server.Validate = &enabled
	}
	if strings.TrimSpace(cfg.Logging.Level) == "" {
		cfg.Logging.Level = "info"
	}
	if strings.TrimSpace(cfg.Logging.Format) == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Schemas.HTTPTimeout <= 0 {
		cfg.Schemas.HTTPTimeout = 10 * time.Second
	}
	if cfg.Schemas.MaxBytes <= 0 {
		cfg.Schemas.MaxBytes = 4 << 20
	}
	if strings.TrimSpace(cfg.Plugin.Name) == "" {
		cfg.Plugin.Name = "avro"
	}
	if strings.TrimSpace(cfg.Plugin.Version) == "" {
		cfg.Plugin.Version = "0.0.0"
	}
	if strings.TrimSpace(cfg.Plugin.Format) == "" {
		cfg.Plugin.Format = "avro"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := env("ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := env("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := env("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := env("SCHEMA_DIR"); v != "" {
		cfg.Schemas.BaseDir = v
	}
	cfg.Schemas.AllowHTTP = envBool("ALLOW_HTTP", cfg.Schemas.AllowHTTP)
}

func env(name string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + name))
}

func envBool(name string, def bool) bool {
	v := env(name)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 {
		errs = append(errs, errors.New("server timeouts must not be negative"))
	}
	if _, err := parseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format))
	}
	if c.Schemas.MaxBytes < 0 {
		errs = append(errs, errors.New("schemas.max_bytes must not be negative"))
	}
	if strings.ContainsAny(c.Plugin.Format, "/; ") {
		errs = append(errs, fmt.Errorf("plugin.format %q must be a bare format name", c.Plugin.Format))
	}
	for _, f := range c.Plugin.Textual {
		if strings.TrimSpace(f) == "" {
			errs = append(errs, errors.New("plugin.textual_formats must not contain blanks"))
			break
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// LoaderOptions translates the schemas section into loader options.
func (c *Config) LoaderOptions() []schema.LoaderOption {
	opts := []schema.LoaderOption{schema.WithMaxDocumentBytes(c.Schemas.MaxBytes)}
	if c.Schemas.BaseDir != "" {
		opts = append(opts, schema.WithBaseDir(c.Schemas.BaseDir))
	}
	if c.Schemas.AllowHTTP {
		opts = append(opts, schema.WithHTTPFallback(c.Schemas.HTTPTimeout))
	}
	return opts
}

// NewLogger builds a slog logger writing to w using the logging section.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Logging.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Logging.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("logging.level %q is not a valid level", s)
	}
	return level, nil
}
