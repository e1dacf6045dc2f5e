// Package config provides hierarchical configuration management.
// Priority: defaults < system < user < project < --config file < env < flags
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	lverrors "github.com/logflow/logvar/pkg/errors"
	"github.com/logflow/logvar/pkg/loader"
	"github.com/logflow/logvar/pkg/source"
	"github.com/logflow/logvar/pkg/telemetry"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "LOGVAR_"

// Config holds all logvar configuration.
type Config struct {
	Version int `yaml:"version"`

	// Logs is the default set of logs analyzed when none are given on the
	// command line.
	Logs []LogEntry `yaml:"logs"`

	Loader    loader.Config    `yaml:"loader" envPrefix:"LOADER_"`
	Analysis  AnalysisConfig   `yaml:"analysis" envPrefix:"ANALYSIS_"`
	S3        source.S3Config  `yaml:"s3" envPrefix:"S3_"`
	Telemetry telemetry.Config `yaml:"telemetry" envPrefix:"TELEMETRY_"`
	Logging   LoggingConfig    `yaml:"logging" envPrefix:"LOGGING_"`
}

// LogEntry names one event log.
type LogEntry struct {
	Name   string `yaml:"name"`
	Path   string `yaml:"path"`
	Format string `yaml:"format,omitempty"`
}

// AnalysisConfig controls the driver.
type AnalysisConfig struct {
	// Workers is the number of logs analyzed concurrently.
	Workers int `yaml:"workers" env:"WORKERS"`

	// Progress shows a progress bar for the pairwise comparison.
	Progress bool `yaml:"progress" env:"PROGRESS"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`   // debug | info | warn | error
	Format string `yaml:"format" env:"FORMAT"` // text | json
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Version: 1,
		Loader:  loader.DefaultConfig(),
		Analysis: AnalysisConfig{
			Workers: 1,
		},
		S3: source.S3Config{
			Region:          "us-east-1",
			DownloadTimeout: 5 * time.Minute,
		},
		Telemetry: telemetry.DefaultConfig(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs lverrors.MultiError

	switch c.Loader.Engine {
	case loader.EngineNative, loader.EngineDuckDB:
	default:
		errs.Add(fmt.Errorf("loader.engine must be %q or %q, got %q",
			loader.EngineNative, loader.EngineDuckDB, c.Loader.Engine))
	}
	if c.Analysis.Workers < 1 {
		errs.Add(fmt.Errorf("analysis.workers must be at least 1, got %d", c.Analysis.Workers))
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs.Add(fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs.Add(fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format))
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs.Add(fmt.Errorf("telemetry.sample_rate must be within [0, 1], got %g", c.Telemetry.SampleRate))
	}
	for i, l := range c.Logs {
		if l.Path == "" {
			errs.Add(fmt.Errorf("logs[%d]: path is required", i))
		}
		if l.Format != "" && loader.ParseFormat(l.Format) == loader.FormatUnknown {
			errs.Add(fmt.Errorf("logs[%d]: unknown format %q", i, l.Format))
		}
	}

	if !errs.HasErrors() {
		return nil
	}
	return lverrors.Wrap(errs.Combined(), lverrors.CodeValidationFailed, "invalid configuration")
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Option configures a Manager.
type Option func(*Manager)

// WithFile adds an explicit config file, loaded after the search paths.
// Unlike search paths it must exist.
func WithFile(path string) Option {
	return func(m *Manager) { m.file = path }
}

// WithSearchPaths replaces the default system, user and project paths.
func WithSearchPaths(paths ...string) Option {
	return func(m *Manager) { m.search = paths }
}

// WithEnvFile sets the dotenv file read before the environment. Variables
// already set in the environment win.
func WithEnvFile(path string) Option {
	return func(m *Manager) { m.envFile = path }
}

// Manager handles configuration loading and merging.
type Manager struct {
	mu      sync.RWMutex
	config  *Config
	paths   []string // Paths that were loaded
	search  []string
	file    string
	envFile string
}

// NewManager creates a new configuration manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		config:  Default(),
		search:  defaultPaths(),
		envFile: ".env",
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load loads configuration from all sources in priority order.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg := Default()
	m.paths = nil

	// Later files override earlier ones key by key.
	for _, path := range m.search {
		err := loadFile(path, cfg)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return err
		}
		m.paths = append(m.paths, path)
	}
	if m.file != "" {
		if err := loadFile(m.file, cfg); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return lverrors.FileNotFound(m.file, err)
			}
			return err
		}
		m.paths = append(m.paths, m.file)
	}

	if m.envFile != "" {
		if err := godotenv.Load(m.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return lverrors.Wrap(err, lverrors.CodeParseFailed, "failed to read env file").
				WithContext("path", m.envFile)
		}
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return lverrors.Wrap(err, lverrors.CodeValidationFailed, "invalid environment configuration")
	}

	m.config = cfg
	return nil
}

// defaultPaths returns config file paths in priority order.
func defaultPaths() []string {
	var paths []string

	// System config
	if runtime.GOOS != "windows" {
		paths = append(paths, "/etc/logvar/config.yaml")
	}

	// User config
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".logvar", "config.yaml"))
	}

	// Project config (current directory)
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".logvar.yaml"))
	}

	return paths
}

// loadFile decodes a YAML file over cfg. Keys absent from the file keep
// their current values.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return lverrors.Wrap(err, lverrors.CodeParseFailed, "invalid config file").
			WithContext("path", path)
	}
	return nil
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// GetPaths returns the paths that were loaded.
func (m *Manager) GetPaths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paths
}

// Save writes the current config to path, creating parent directories.
// The file is readable by the owner only.
func (m *Manager) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := m.config.Marshal()
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// UserConfigPath returns the per-user config file location.
func UserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".logvar", "config.yaml"), nil
}
