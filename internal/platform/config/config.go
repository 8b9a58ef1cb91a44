package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile          = ".env"
	defaultPort             = "8080"
	defaultReadTimeout      = 15 * time.Second
	defaultWriteTimeout     = 30 * time.Second
	defaultIdleTimeout      = 120 * time.Second
	defaultConverterTimeout = 45 * time.Second
	defaultStoragePath      = "./storage"
	defaultDownloadBaseURL  = "http://localhost:8080"
	defaultCanvasWidth      = 1123.0
	defaultCanvasHeight     = 794.0
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Converter ConverterConfig
	Storage   StorageConfig
	Editor    EditorConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig stores Postgres connection parameters. An empty URL selects
// the in-memory store, which is only suitable for local development.
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
}

// ConverterConfig points at the external document conversion service that
// turns rendered HTML into PDF/PNG/JPG artefacts.
type ConverterConfig struct {
	Endpoint string
	Timeout  time.Duration
}

// StorageConfig controls where generated artefacts are written and how
// download links are built.
type StorageConfig struct {
	Path            string
	DownloadBaseURL string
}

// EditorConfig carries the fixed logical canvas size used by the template
// editor and the preview renderer.
type EditorConfig struct {
	CanvasWidth  float64
	CanvasHeight float64
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values
// in the map take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the application configuration by combining defaults, .env
// overrides, and environment variables.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "API_SERVER_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "API_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "API_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "API_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Database: DatabaseConfig{
			URL:          stringWithDefault(lookup, "API_DATABASE_URL", ""),
			MaxOpenConns: intWithDefault(lookup, "API_DATABASE_MAX_OPEN_CONNS", 10),
		},
		Converter: ConverterConfig{
			Endpoint: stringWithDefault(lookup, "API_CONVERTER_ENDPOINT", ""),
			Timeout:  durationWithDefault(lookup, "API_CONVERTER_TIMEOUT", defaultConverterTimeout),
		},
		Storage: StorageConfig{
			Path:            stringWithDefault(lookup, "API_STORAGE_PATH", defaultStoragePath),
			DownloadBaseURL: stringWithDefault(lookup, "API_STORAGE_DOWNLOAD_BASE_URL", defaultDownloadBaseURL),
		},
		Editor: EditorConfig{
			CanvasWidth:  floatWithDefault(lookup, "API_EDITOR_CANVAS_WIDTH", defaultCanvasWidth),
			CanvasHeight: floatWithDefault(lookup, "API_EDITOR_CANVAS_HEIGHT", defaultCanvasHeight),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if strings.TrimSpace(cfg.Storage.Path) == "" {
		missing = append(missing, "Storage.Path")
	}
	if strings.TrimSpace(cfg.Storage.DownloadBaseURL) == "" {
		missing = append(missing, "Storage.DownloadBaseURL")
	}
	if cfg.Editor.CanvasWidth <= 0 {
		missing = append(missing, "Editor.CanvasWidth")
	}
	if cfg.Editor.CanvasHeight <= 0 {
		missing = append(missing, "Editor.CanvasHeight")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		value = strings.Trim(value, "\"'")
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func floatWithDefault(lookup func(string) (string, bool), key string, fallback float64) float64 {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}
