package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	// Dir is the per-project configuration directory.
	Dir = ".nqs"
	// FileName is the configuration file inside Dir.
	FileName = "config.toml"
	// EnvPrefix prefixes environment overrides, e.g. NQS_NETLIST_PATH.
	EnvPrefix = "NQS"
	// EnvConfigPath names an explicit config file, bypassing root lookup.
	EnvConfigPath = "NQS_CONFIG_PATH"

	currentVersion = 1
)

// Config represents the complete nqs configuration
type Config struct {
	Version int `json:"version" toml:"version" mapstructure:"version"`

	Netlist  NetlistConfig  `json:"netlist" toml:"netlist" mapstructure:"netlist"`
	Resolver ResolverConfig `json:"resolver" toml:"resolver" mapstructure:"resolver"`
	Storage  StorageConfig  `json:"storage" toml:"storage" mapstructure:"storage"`
	Logging  LoggingConfig  `json:"logging" toml:"logging" mapstructure:"logging"`
}

// NetlistConfig selects the netlist to load
type NetlistConfig struct {
	Path    string `json:"path" toml:"path" mapstructure:"path"`
	TopCell string `json:"topCell" toml:"topCell" mapstructure:"topCell"`
}

// ResolverConfig bounds net resolution
type ResolverConfig struct {
	MaxBusExpansion int `json:"maxBusExpansion" toml:"maxBusExpansion" mapstructure:"maxBusExpansion"`
}

// StorageConfig tunes the indexed net store
type StorageConfig struct {
	MaxVarsPerQuery int `json:"maxVarsPerQuery" toml:"maxVarsPerQuery" mapstructure:"maxVarsPerQuery"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" toml:"format" mapstructure:"format"`
	Level  string `json:"level" toml:"level" mapstructure:"level"`

	// File, when set, receives a copy of every record. MaxSize ("10MB")
	// enables rotation keeping MaxBackups old files.
	File       string `json:"file,omitempty" toml:"file,omitempty" mapstructure:"file"`
	MaxSize    string `json:"maxSize,omitempty" toml:"maxSize,omitempty" mapstructure:"maxSize"`
	MaxBackups int    `json:"maxBackups,omitempty" toml:"maxBackups,omitempty" mapstructure:"maxBackups"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: currentVersion,
		Resolver: ResolverConfig{
			MaxBusExpansion: 10000,
		},
		Storage: StorageConfig{
			MaxVarsPerQuery: 900,
		},
		Logging: LoggingConfig{
			Format:     "human",
			Level:      "warn",
			MaxBackups: 3,
		},
	}
}

// Path returns the configuration file path under root.
func Path(root string) string {
	return filepath.Join(root, Dir, FileName)
}

// LoadConfig loads configuration from .nqs/config.toml under root, or from
// NQS_CONFIG_PATH when set, then applies NQS_* environment overrides.
// A missing file under root yields the defaults.
func LoadConfig(root string) (*Config, error) {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return LoadFile(path)
	}

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(filepath.Join(root, Dir))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}
	return unmarshal(v)
}

// LoadFile loads configuration from an explicit file path.
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	return unmarshal(v)
}

func newViper() *viper.Viper {
	v := viper.New()

	d := DefaultConfig()
	v.SetDefault("version", d.Version)
	v.SetDefault("netlist.path", d.Netlist.Path)
	v.SetDefault("netlist.topCell", d.Netlist.TopCell)
	v.SetDefault("resolver.maxBusExpansion", d.Resolver.MaxBusExpansion)
	v.SetDefault("storage.maxVarsPerQuery", d.Storage.MaxVarsPerQuery)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.maxSize", d.Logging.MaxSize)
	v.SetDefault("logging.maxBackups", d.Logging.MaxBackups)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the configuration to .nqs/config.toml under root.
func (c *Config) Save(root string) error {
	path := Path(root)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != currentVersion {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Resolver.MaxBusExpansion <= 0 {
		return &ConfigError{Field: "resolver.maxBusExpansion", Message: "must be positive"}
	}
	if c.Storage.MaxVarsPerQuery < 2 {
		return &ConfigError{Field: "storage.maxVarsPerQuery", Message: "must be at least 2"}
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &ConfigError{Field: "logging.level", Message: fmt.Sprintf("unknown level %q", c.Logging.Level)}
	}
	if c.Logging.MaxBackups < 0 {
		return &ConfigError{Field: "logging.maxBackups", Message: "must not be negative"}
	}
	switch c.Logging.Format {
	case "human", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: fmt.Sprintf("unknown format %q", c.Logging.Format)}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
