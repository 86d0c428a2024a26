// Package config handles configuration loading from YAML files and environment variables.
// Configuration precedence: environment variables > config file > defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Guliveer/hoststat/internal/collector"
)

// Duration is a wrapper around time.Duration that supports YAML unmarshaling
// from human-readable strings like "1s", "500ms".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		parsed, err := time.ParseDuration(value.Value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value.Value, err)
		}
		d.Duration = parsed
		return nil
	default:
		return fmt.Errorf("unsupported duration format: %v", value.Kind)
	}
}

// MarshalYAML implements the yaml.Marshaler interface for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Source names for CPU and memory counters.
const (
	SourceProcfs   = "procfs"
	SourceGopsutil = "gopsutil"
)

// Config holds all sampler configuration.
type Config struct {
	Collection CollectionConfig `yaml:"collection"`
	Disk       DiskConfig       `yaml:"disk"`
	Output     OutputConfig     `yaml:"output"`
	Privileges PrivilegesConfig `yaml:"privileges"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// CollectionConfig holds tick and data source settings.
type CollectionConfig struct {
	Interval Duration `yaml:"interval"`
	// Root is the directory under which proc/ and sys/ are read.
	Root string `yaml:"root"`
	// Source selects the CPU/memory reader: procfs or gopsutil.
	Source string `yaml:"source"`
}

// DiskConfig holds disk error tracking settings.
type DiskConfig struct {
	// PiDevice is the only device read on a Raspberry Pi.
	PiDevice string `yaml:"pi_device"`
	// ErrorSource is collector.ErrorSourceIOErr (device/ioerr_cnt) or
	// collector.ErrorSourceStatFields (ErrorFields).
	ErrorSource string `yaml:"error_source"`
	ErrorFields []int  `yaml:"error_fields"`
}

// OutputConfig holds table rendering settings.
type OutputConfig struct {
	Color bool `yaml:"color"`
}

// PrivilegesConfig controls dropping root before sampling.
type PrivilegesConfig struct {
	Drop bool `yaml:"drop"`
	UID  int  `yaml:"uid"`
	GID  int  `yaml:"gid"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Collection: CollectionConfig{
			Interval: Duration{time.Second},
			Root:     "/",
			Source:   SourceProcfs,
		},
		Disk: DiskConfig{
			PiDevice:    "mmcblk0",
			ErrorSource: collector.ErrorSourceIOErr,
		},
		Privileges: PrivilegesConfig{
			Drop: true,
			UID:  65534,
			GID:  65534,
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}

// LoadFromBytes parses YAML configuration from a byte slice and merges with defaults.
// Environment variables take highest precedence and override values from the byte slice.
func LoadFromBytes(data []byte) (*Config, error) {
	cfg := DefaultConfig()

	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config data: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load reads configuration from a YAML file and merges with defaults.
// An empty path triggers discovery via Locate; a missing file means
// defaults and environment variables only.
func Load(path string) (*Config, error) {
	if path == "" {
		path = Locate()
	}
	if path == "" {
		return LoadFromBytes(nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		return LoadFromBytes(nil)
	}

	return LoadFromBytes(data)
}

// Locate searches standard config file paths and returns the first one found.
// Returns empty string if no config file exists.
func Locate() string {
	for _, p := range configSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("HOSTSTAT_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("HOSTSTAT_INTERVAL: invalid duration %q: %w", v, err)
		}
		cfg.Collection.Interval.Duration = d
	}
	if root := os.Getenv("HOSTSTAT_ROOT"); root != "" {
		cfg.Collection.Root = root
	}
	if source := os.Getenv("HOSTSTAT_SOURCE"); source != "" {
		cfg.Collection.Source = source
	}
	if level := os.Getenv("HOSTSTAT_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Collection.Interval.Duration <= 0 {
		return fmt.Errorf("collection interval must be positive (got: %s)", c.Collection.Interval.Duration)
	}
	if c.Collection.Root == "" {
		return fmt.Errorf("collection root is required")
	}
	switch c.Collection.Source {
	case SourceProcfs, SourceGopsutil:
	default:
		return fmt.Errorf("unknown collection source %q (want %s or %s)",
			c.Collection.Source, SourceProcfs, SourceGopsutil)
	}
	if c.Disk.PiDevice == "" {
		return fmt.Errorf("disk pi_device is required")
	}
	switch c.Disk.ErrorSource {
	case collector.ErrorSourceIOErr:
	case collector.ErrorSourceStatFields:
		if len(c.Disk.ErrorFields) == 0 {
			return fmt.Errorf("disk error_fields must be set when error_source is stat")
		}
		for _, idx := range c.Disk.ErrorFields {
			if idx < 0 {
				return fmt.Errorf("disk error_fields: negative index %d", idx)
			}
		}
	default:
		return fmt.Errorf("unknown disk error_source %q (want %s or %s)",
			c.Disk.ErrorSource, collector.ErrorSourceIOErr, collector.ErrorSourceStatFields)
	}
	if c.Privileges.Drop && (c.Privileges.UID < 0 || c.Privileges.GID < 0) {
		return fmt.Errorf("privileges uid and gid must be non-negative")
	}
	return nil
}
