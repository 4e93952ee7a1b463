// Package config loads the YAML configuration file.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"offlinetasks/backend"
	"offlinetasks/internal/utils"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var (
	configOnce   sync.Once
	globalConfig *Config
	globalErr    error

	customConfigPath string // Custom config path set via --config flag
)

//go:embed config.sample.yaml
var sampleConfig []byte

const (
	CONFIG_FILE_PATH = "config.yaml"
	CONFIG_DIR_PERM  = 0755
	CONFIG_FILE_PERM = 0600
)

// Config represents the application configuration.
type Config struct {
	Database     DatabaseConfig     `yaml:"database"`
	Remote       RemoteConfig       `yaml:"remote"`
	Sync         SyncConfig         `yaml:"sync"`
	Connectivity ConnectivityConfig `yaml:"connectivity"`
	Legacy       LegacyConfig       `yaml:"legacy"`
	Logging      LoggingConfig      `yaml:"logging"`
	Display      DisplayConfig      `yaml:"display"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// RemoteConfig points at the sync endpoint. The token is resolved through
// the credentials package, never stored here.
type RemoteConfig struct {
	URL     string        `yaml:"url" validate:"omitempty,url"`
	Timeout time.Duration `yaml:"timeout" validate:"min=0"`
}

type SyncConfig struct {
	Enabled    bool                `yaml:"enabled"`
	AutoSync   bool                `yaml:"auto_sync"`
	Interval   time.Duration       `yaml:"interval" validate:"min=0"`
	RunTimeout time.Duration       `yaml:"run_timeout" validate:"min=0"`
	Retry      backend.RetryPolicy `yaml:"retry"`
}

type ConnectivityConfig struct {
	ProbeAddr     string        `yaml:"probe_addr" validate:"omitempty,hostname_port"`
	ProbeInterval time.Duration `yaml:"probe_interval" validate:"min=0"`
	ProbeTimeout  time.Duration `yaml:"probe_timeout" validate:"min=0"`
	Debounce      time.Duration `yaml:"debounce" validate:"min=0"`
	OfflineMarker string        `yaml:"offline_marker"`
}

type LegacyConfig struct {
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Verbose              bool `yaml:"verbose"`
	utils.LogFileOptions `yaml:",inline"`
}

type DisplayConfig struct {
	DateFormat string `yaml:"date_format"`
	PageSize   int    `yaml:"page_size" validate:"min=0,max=1000"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	var cfg Config
	if err := yaml.Unmarshal(sampleConfig, &cfg); err != nil {
		panic(fmt.Sprintf("embedded sample config is invalid: %v", err))
	}
	return &cfg
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	if c.Sync.Enabled && c.Remote.URL == "" {
		return utils.ErrInvalidConfig("remote.url", "required when sync.enabled is true")
	}
	if c.Remote.URL != "" {
		u, err := url.Parse(c.Remote.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return utils.ErrInvalidConfig("remote.url", "must be an http or https URL")
		}
	}
	if c.Sync.Retry.MaxDelay > 0 && c.Sync.Retry.MaxDelay < c.Sync.Retry.BaseDelay {
		return utils.ErrInvalidConfig("sync.retry.max_delay", "must not be smaller than base_delay")
	}
	return nil
}

// formatValidationError converts validator errors to user-friendly messages
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return err
	}
	e := validationErrs[0]
	field := e.Namespace()
	switch e.Tag() {
	case "url":
		return utils.ErrInvalidConfig(field, "must be a valid URL")
	case "hostname_port":
		return utils.ErrInvalidConfig(field, "must be host:port")
	case "min":
		return utils.ErrInvalidConfig(field, "must be at least "+e.Param())
	case "max":
		return utils.ErrInvalidConfig(field, "must be at most "+e.Param())
	}
	return utils.ErrInvalidConfig(field, e.Error())
}

// DatabasePath returns the configured database path, expanded.
// Empty means the default location.
func (c *Config) DatabasePath() (string, error) {
	return utils.ExpandPath(c.Database.Path)
}

// LegacyPath returns the legacy snapshot path, defaulting to tasks.json in the data dir.
func (c *Config) LegacyPath() (string, error) {
	if c.Legacy.Path == "" {
		return filepath.Join(utils.GetDataDir(), "tasks.json"), nil
	}
	return utils.ExpandPath(c.Legacy.Path)
}

// MarkerPath returns the offline override file.
func (c *Config) MarkerPath() (string, error) {
	if c.Connectivity.OfflineMarker == "" {
		return filepath.Join(utils.GetStateDir(), "offline"), nil
	}
	return utils.ExpandPath(c.Connectivity.OfflineMarker)
}

// ProbeAddress returns the host:port the connectivity probe dials, derived
// from remote.url when not set explicitly. Empty when there is nothing to probe.
func (c *Config) ProbeAddress() string {
	if c.Connectivity.ProbeAddr != "" {
		return c.Connectivity.ProbeAddr
	}
	if c.Remote.URL == "" {
		return ""
	}
	u, err := url.Parse(c.Remote.URL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	port := u.Port()
	if port == "" {
		port = "443"
		if u.Scheme == "http" {
			port = "80"
		}
	}
	return net.JoinHostPort(u.Hostname(), port)
}

// LogFile returns the logging file options with the path expanded.
func (c *Config) LogFile() (utils.LogFileOptions, error) {
	opts := c.Logging.LogFileOptions
	path, err := utils.ExpandPath(opts.Path)
	if err != nil {
		return opts, err
	}
	opts.Path = path
	return opts, nil
}

// GetDateFormat returns the display date layout.
func (c *Config) GetDateFormat() string {
	if c.Display.DateFormat == "" {
		return "2006-01-02" // Default to yyyy-mm-dd
	}
	return c.Display.DateFormat
}

// SetCustomConfigPath sets a custom config path to use instead of the default user config directory.
// If path is a directory, it looks for "config.yaml" inside it.
// This must be called before GetConfig() is called for the first time.
func SetCustomConfigPath(path string) {
	if path == "" {
		customConfigPath = ""
		return
	}
	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		customConfigPath = filepath.Join(path, CONFIG_FILE_PATH)
	} else {
		customConfigPath = path
	}
}

// GetConfigPath returns the config file location.
func GetConfigPath() string {
	if customConfigPath != "" {
		return customConfigPath
	}
	return filepath.Join(utils.GetConfigDir(), CONFIG_FILE_PATH)
}

// GetConfig loads the configuration once per process.
func GetConfig() (*Config, error) {
	configOnce.Do(func() {
		globalConfig, globalErr = Load(GetConfigPath())
	})
	return globalConfig, globalErr
}

// Load reads and validates the file at path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		utils.Debugf("No config at %s, using defaults", path)
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse decodes YAML on top of the defaults, so omitted keys keep their
// default values.
func Parse(data []byte, path string) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML in config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WriteSample writes the embedded sample to path. An existing file is only
// replaced when force is set.
func WriteSample(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), CONFIG_DIR_PERM); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, sampleConfig, CONFIG_FILE_PERM)
}

// Marshal renders cfg as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return utils.MarshalYAML(c)
}
