// File: internal/config/config.go

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	appName   = "cliplog"
	envPrefix = "CLIPLOG_"

	DefaultMaxEntries        = 100
	DefaultPollingInterval   = 1000  // milliseconds
	DefaultHeartbeatInterval = 30000 // milliseconds
	DefaultCompressThreshold = 64 * 1024
	DefaultTimeFormat        = "2006-01-02 15:04:05"
)

// Clipboard backends
const (
	BackendAuto   = "auto"
	BackendNative = "native"
	BackendText   = "text"
)

// ConfigPaths holds all relevant paths for the application
type ConfigPaths struct {
	BaseDir    string // Base directory for config files
	ConfigFile string // Path to the config file
	DataDir    string // Directory for application data
	DBFile     string // Path to database file
	LogDir     string // Directory for log files
	RunDir     string // Directory for pid file
	SocketPath string // IPC socket
}

// Config holds all application configuration
type Config struct {
	DeviceID   string `yaml:"device_id" env:"DEVICE_ID"`
	DeviceName string `yaml:"device_name"`

	Log       LogConfig       `yaml:"log"`
	Storage   StorageConfig   `yaml:"storage"`
	Clipboard ClipboardConfig `yaml:"clipboard"`
	History   HistoryConfig   `yaml:"history"`
	IPC       IPCConfig       `yaml:"ipc"`

	// Resolved at load time, never persisted
	SystemPaths ConfigPaths `yaml:"-"`
}

// LogConfig holds logging-related configuration
type LogConfig struct {
	Level             string `yaml:"level" env:"LOG_LEVEL"`
	Format            string `yaml:"format" env:"LOG_FORMAT"` // "console" or "json"
	EnableFileLogging bool   `yaml:"enable_file_logging"`
}

// StorageConfig holds storage-related configuration
type StorageConfig struct {
	DBPath            string `yaml:"db_path" env:"DB_PATH"`
	MaxEntries        int    `yaml:"max_entries"`
	CompressThreshold int    `yaml:"compress_threshold"` // bytes
	OpenTimeout       int64  `yaml:"open_timeout"`       // milliseconds
}

// ClipboardConfig holds clipboard monitoring options
type ClipboardConfig struct {
	Backend           string `yaml:"backend" env:"BACKEND"`
	PollingInterval   int64  `yaml:"polling_interval" env:"POLLING_INTERVAL"` // milliseconds
	HeartbeatInterval int64  `yaml:"heartbeat_interval"`                      // milliseconds
	KeepBoth          bool   `yaml:"keep_both"`                               // keep image when text is also present
}

// HistoryConfig holds presentation options for history entries
type HistoryConfig struct {
	TimeFormat string `yaml:"time_format"`
	ExportDir  string `yaml:"export_dir"`
}

// IPCConfig holds the daemon socket location
type IPCConfig struct {
	SocketPath string `yaml:"socket_path" env:"SOCKET"`
}

// Overridable in tests
var (
	getConfigDir     = defaultConfigDir
	getDataDir       = defaultDataDir
	generateDeviceID = func() string { return uuid.NewString() }
)

// defaultConfigDir returns the platform-specific config directory
func defaultConfigDir() (string, error) {
	if dir := os.Getenv("CLIPLOG_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(configDir, "Cliplog"), nil
	case "darwin":
		return filepath.Join(configDir, "com.berrythewa.cliplog"), nil
	default: // Linux and others
		return filepath.Join(configDir, appName), nil
	}
}

// defaultDataDir returns the platform-specific data directory
func defaultDataDir() (string, error) {
	if dir := os.Getenv("CLIPLOG_DATA_DIR"); dir != "" {
		return dir, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	switch runtime.GOOS {
	case "windows":
		if appData, err := os.UserConfigDir(); err == nil {
			return filepath.Join(appData, "Cliplog", "Data"), nil
		}
		return filepath.Join(homeDir, "AppData", "Local", "Cliplog"), nil
	case "darwin":
		return filepath.Join(homeDir, "Library", "Application Support", "Cliplog"), nil
	default:
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			return filepath.Join(xdgDataHome, appName), nil
		}
		return filepath.Join(homeDir, ".local", "share", appName), nil
	}
}

// defaultSocketPath prefers XDG_RUNTIME_DIR, then the data dir
func defaultSocketPath(dataDir string) string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, appName+".sock")
	}
	return filepath.Join(dataDir, "run", appName+".sock")
}

// GetConfigPaths returns the platform-specific paths without creating them
func GetConfigPaths() (*ConfigPaths, error) {
	baseDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config dir: %w", err)
	}
	dataDir, err := getDataDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data dir: %w", err)
	}
	return pathsFor(baseDir, dataDir), nil
}

func pathsFor(baseDir, dataDir string) *ConfigPaths {
	return &ConfigPaths{
		BaseDir:    baseDir,
		ConfigFile: filepath.Join(baseDir, "config.yaml"),
		DataDir:    dataDir,
		DBFile:     filepath.Join(dataDir, appName+".db"),
		LogDir:     filepath.Join(dataDir, "logs"),
		RunDir:     filepath.Join(dataDir, "run"),
		SocketPath: defaultSocketPath(dataDir),
	}
}

// EnsureDirs creates the data, log and run directories
func (p *ConfigPaths) EnsureDirs() error {
	for _, dir := range []string{p.DataDir, p.LogDir, p.RunDir, filepath.Dir(p.SocketPath)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// DefaultConfig returns a new Config with default values
func DefaultConfig() *Config {
	hostname, _ := os.Hostname()

	return &Config{
		DeviceID:   generateDeviceID(),
		DeviceName: hostname,
		Log: LogConfig{
			Level:             "info",
			Format:            "console",
			EnableFileLogging: true,
		},
		Storage: StorageConfig{
			MaxEntries:        DefaultMaxEntries,
			CompressThreshold: DefaultCompressThreshold,
			OpenTimeout:       1000,
		},
		Clipboard: ClipboardConfig{
			Backend:           BackendAuto,
			PollingInterval:   DefaultPollingInterval,
			HeartbeatInterval: DefaultHeartbeatInterval,
		},
		History: HistoryConfig{
			TimeFormat: DefaultTimeFormat,
		},
	}
}

// Load loads the configuration from configPath, creating a default one if it
// does not exist. An empty configPath selects the platform default.
func Load(configPath string) (*Config, error) {
	paths, err := GetConfigPaths()
	if err != nil {
		return nil, err
	}
	if configPath == "" {
		configPath = paths.ConfigFile
	}
	paths.ConfigFile = configPath

	data, err := os.ReadFile(configPath)
	var cfg *Config
	switch {
	case errors.Is(err, os.ErrNotExist):
		cfg = DefaultConfig()
		if err := cfg.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		cfg = DefaultConfig()
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.SystemPaths = *paths
	if err := loadDotEnv(paths.BaseDir); err != nil {
		return nil, err
	}
	if err := overrideFromEnv(cfg); err != nil {
		return nil, err
	}
	cfg.resolvePaths()
	cfg.Validate()

	return cfg, nil
}

// Save saves the configuration to the specified file
func (c *Config) Save(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// resolvePaths lets explicit settings win over platform paths
func (c *Config) resolvePaths() {
	if c.Storage.DBPath != "" {
		c.SystemPaths.DBFile = c.Storage.DBPath
	}
	if c.IPC.SocketPath != "" {
		c.SystemPaths.SocketPath = c.IPC.SocketPath
	}
}

// Validate replaces out-of-range values with defaults
func (c *Config) Validate() {
	if c.Storage.MaxEntries <= 0 {
		c.Storage.MaxEntries = DefaultMaxEntries
	}
	if c.Storage.CompressThreshold <= 0 {
		c.Storage.CompressThreshold = DefaultCompressThreshold
	}
	if c.Storage.OpenTimeout <= 0 {
		c.Storage.OpenTimeout = 1000
	}
	if c.Clipboard.PollingInterval < 100 {
		c.Clipboard.PollingInterval = DefaultPollingInterval
	}
	if c.Clipboard.HeartbeatInterval <= 0 {
		c.Clipboard.HeartbeatInterval = DefaultHeartbeatInterval
	}
	switch c.Clipboard.Backend {
	case BackendAuto, BackendNative, BackendText:
	default:
		c.Clipboard.Backend = BackendAuto
	}
	if c.History.TimeFormat == "" {
		c.History.TimeFormat = DefaultTimeFormat
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// PollingInterval returns the polling interval as a duration
func (c *Config) PollingInterval() time.Duration {
	return time.Duration(c.Clipboard.PollingInterval) * time.Millisecond
}

// HeartbeatInterval returns the host heartbeat interval as a duration
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Clipboard.HeartbeatInterval) * time.Millisecond
}

// OpenTimeout returns the database lock timeout as a duration
func (c *Config) OpenTimeout() time.Duration {
	return time.Duration(c.Storage.OpenTimeout) * time.Millisecond
}

// loadDotEnv loads <config_dir>/cliplog.env if present. Variables already
// set in the environment are kept.
func loadDotEnv(baseDir string) error {
	path := filepath.Join(baseDir, appName+".env")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// overrideFromEnv overrides configuration values from CLIPLOG_* environment variables
func overrideFromEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: envPrefix}); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Clipboard.Backend = strings.ToLower(cfg.Clipboard.Backend)
	return nil
}
