// Package config provides configuration for the colgroup command.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	cgerrors "github.com/arkilian/colgroup/internal/errors"
)

// Partition modes.
const (
	ModeEqual  = "equal"
	ModeCustom = "custom"
	ModeHeader = "header"
)

// Source formats.
const (
	FormatCSV    = "csv"
	FormatArrow  = "arrow"
	FormatSQLite = "sqlite"
)

// Config holds the configuration of one partitioning run.
type Config struct {
	// Source describes where records come from and how to decode them
	Source SourceConfig `json:"source" yaml:"source"`

	// Partition describes how columns are grouped
	Partition PartitionConfig `json:"partition" yaml:"partition"`

	// Storage configuration
	Storage StorageConfig `json:"storage" yaml:"storage"`

	// Log configuration
	Log LogConfig `json:"log" yaml:"log"`

	// Output configuration
	Output OutputConfig `json:"output" yaml:"output"`
}

// SourceConfig holds input configuration.
type SourceConfig struct {
	// Path is the object path, relative to the storage root or bucket
	Path string `json:"path" yaml:"path"`

	// Format is the input format: csv, arrow, sqlite
	Format string `json:"format" yaml:"format"`

	// Compression applies to csv only: none, snappy
	Compression string `json:"compression" yaml:"compression"`

	// Delimiter is the csv field separator
	Delimiter string `json:"delimiter" yaml:"delimiter"`

	// HasHeader marks the first csv record as a header row
	HasHeader bool `json:"has_header" yaml:"has_header"`

	// TrimSpace trims leading and trailing whitespace from csv fields
	// (default true)
	TrimSpace bool `json:"trim_space" yaml:"trim_space"`

	// Query is the SELECT statement run against a sqlite source
	Query string `json:"query" yaml:"query"`
}

// PartitionConfig holds grouping configuration.
type PartitionConfig struct {
	// Mode is how ranges are derived: equal, custom, header
	Mode string `json:"mode" yaml:"mode"`

	// Groups is the requested group count in equal mode
	Groups int `json:"groups" yaml:"groups"`

	// Ranges are the explicit ranges in custom mode
	Ranges []RangeConfig `json:"ranges" yaml:"ranges"`
}

// RangeConfig is one half-open column range [Lower, Upper).
type RangeConfig struct {
	Name  string `json:"name" yaml:"name"`
	Lower int    `json:"lower" yaml:"lower"`
	Upper int    `json:"upper" yaml:"upper"`
}

// StorageConfig holds storage configuration.
type StorageConfig struct {
	// Type is the storage type: local, s3
	Type string `json:"type" yaml:"type"`

	// Path is the local storage root (for local type)
	Path string `json:"path" yaml:"path"`

	// S3 configuration (for s3 type)
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 storage configuration.
type S3Config struct {
	// Bucket is the S3 bucket name
	Bucket string `json:"bucket" yaml:"bucket"`

	// Region is the AWS region
	Region string `json:"region" yaml:"region"`

	// Endpoint is the S3 endpoint (for S3-compatible storage)
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// UsePathStyle forces path-style addressing, needed by most S3 clones
	UsePathStyle bool `json:"use_path_style" yaml:"use_path_style"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	// Format is text or json
	Format string `json:"format" yaml:"format"`

	// Level is none, debug, info, warn or error
	Level string `json:"level" yaml:"level"`
}

// OutputConfig holds rendering configuration.
type OutputConfig struct {
	// Format is text or json
	Format string `json:"format" yaml:"format"`

	// MaxRows stops after this many data rows; 0 means no limit
	MaxRows int `json:"max_rows" yaml:"max_rows"`
}

// DefaultConfig returns the default configuration: a headed, comma
// separated CSV file split into two equal groups.
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Format:      FormatCSV,
			Compression: "none",
			Delimiter:   ",",
			HasHeader:   true,
			TrimSpace:   true,
		},
		Partition: PartitionConfig{
			Mode:   ModeEqual,
			Groups: 2,
		},
		Storage: StorageConfig{
			Type: "local",
			Path: "",
		},
		Log: LogConfig{
			Format: "text",
			Level:  "info",
		},
		Output: OutputConfig{
			Format: "text",
		},
	}
}

// Resolve fills values that depend on other values. A local source given
// as an absolute path is split into a storage root and an object path.
func (c *Config) Resolve() {
	if c.Storage.Type == "" {
		c.Storage.Type = "local"
	}
	if c.Storage.Type == "local" && c.Storage.Path == "" {
		if filepath.IsAbs(c.Source.Path) {
			c.Storage.Path = filepath.Dir(c.Source.Path)
			c.Source.Path = filepath.Base(c.Source.Path)
		} else {
			c.Storage.Path = "."
		}
	}
	if c.Source.Format == "" {
		c.Source.Format = FormatCSV
	}
	if c.Source.Compression == "" {
		c.Source.Compression = "none"
	}
	if c.Source.Delimiter == "" {
		c.Source.Delimiter = ","
	}
	if c.Partition.Mode == "" {
		if len(c.Partition.Ranges) > 0 {
			c.Partition.Mode = ModeCustom
		} else {
			c.Partition.Mode = ModeEqual
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Source.Path == "" {
		return cgerrors.NewConfigError("source.path is required")
	}

	switch c.Source.Format {
	case FormatCSV:
		if c.Source.Compression != "none" && c.Source.Compression != "snappy" {
			return cgerrors.NewConfigError(fmt.Sprintf("invalid compression: %s (must be none or snappy)", c.Source.Compression))
		}
		if len([]rune(c.Source.Delimiter)) != 1 {
			return cgerrors.NewConfigError(fmt.Sprintf("delimiter must be a single character, got %q", c.Source.Delimiter))
		}
	case FormatArrow:
	case FormatSQLite:
		if c.Source.Query == "" {
			return cgerrors.NewConfigError("source.query is required when format is sqlite")
		}
	default:
		return cgerrors.NewConfigError(fmt.Sprintf("invalid source format: %s (must be csv, arrow, or sqlite)", c.Source.Format))
	}

	switch c.Partition.Mode {
	case ModeEqual:
		if c.Partition.Groups <= 0 {
			return cgerrors.NewConfigError(fmt.Sprintf("partition.groups must be positive, got %d", c.Partition.Groups))
		}
	case ModeCustom:
		if len(c.Partition.Ranges) == 0 {
			return cgerrors.NewConfigError("partition.ranges is required when mode is custom")
		}
	case ModeHeader:
		if c.Source.Format == FormatCSV && !c.Source.HasHeader {
			return cgerrors.NewConfigError("header mode needs source.has_header")
		}
	default:
		return cgerrors.NewConfigError(fmt.Sprintf("invalid partition mode: %s (must be equal, custom, or header)", c.Partition.Mode))
	}

	if c.Storage.Type != "local" && c.Storage.Type != "s3" {
		return cgerrors.NewConfigError(fmt.Sprintf("invalid storage type: %s (must be local or s3)", c.Storage.Type))
	}

	if c.Storage.Type == "s3" && c.Storage.S3.Bucket == "" {
		return cgerrors.NewConfigError("s3.bucket is required when storage type is s3")
	}

	if c.Output.Format != "text" && c.Output.Format != "json" {
		return cgerrors.NewConfigError(fmt.Sprintf("invalid output format: %s (must be text or json)", c.Output.Format))
	}

	if c.Output.MaxRows < 0 {
		return cgerrors.NewConfigError(fmt.Sprintf("output.max_rows must not be negative, got %d", c.Output.MaxRows))
	}

	return nil
}

// Comma returns the csv delimiter as a rune.
func (c *Config) Comma() rune {
	for _, r := range c.Source.Delimiter {
		return r
	}
	return ','
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the COLGROUP_ prefix.
func LoadFromEnv(cfg *Config) {
	// Source configuration
	if v := os.Getenv("COLGROUP_SOURCE_PATH"); v != "" {
		cfg.Source.Path = v
	}
	if v := os.Getenv("COLGROUP_SOURCE_FORMAT"); v != "" {
		cfg.Source.Format = v
	}
	if v := os.Getenv("COLGROUP_SOURCE_COMPRESSION"); v != "" {
		cfg.Source.Compression = v
	}
	if v := os.Getenv("COLGROUP_SOURCE_DELIMITER"); v != "" {
		cfg.Source.Delimiter = v
	}
	if v := os.Getenv("COLGROUP_SOURCE_HAS_HEADER"); v != "" {
		cfg.Source.HasHeader = v == "true" || v == "1"
	}
	if v := os.Getenv("COLGROUP_SOURCE_TRIM_SPACE"); v != "" {
		cfg.Source.TrimSpace = v == "true" || v == "1"
	}
	if v := os.Getenv("COLGROUP_SOURCE_QUERY"); v != "" {
		cfg.Source.Query = v
	}

	// Partition configuration
	if v := os.Getenv("COLGROUP_PARTITION_MODE"); v != "" {
		cfg.Partition.Mode = v
	}
	if v := os.Getenv("COLGROUP_PARTITION_GROUPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Partition.Groups = n
		}
	}
	if v := os.Getenv("COLGROUP_PARTITION_RANGES"); v != "" {
		if ranges, err := ParseRanges(v); err == nil {
			cfg.Partition.Ranges = ranges
		}
	}

	// Storage configuration
	if v := os.Getenv("COLGROUP_STORAGE_TYPE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("COLGROUP_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("COLGROUP_S3_BUCKET"); v != "" {
		cfg.Storage.S3.Bucket = v
	}
	if v := os.Getenv("COLGROUP_S3_REGION"); v != "" {
		cfg.Storage.S3.Region = v
	}
	if v := os.Getenv("COLGROUP_S3_ENDPOINT"); v != "" {
		cfg.Storage.S3.Endpoint = v
	}
	if v := os.Getenv("COLGROUP_S3_USE_PATH_STYLE"); v != "" {
		cfg.Storage.S3.UsePathStyle = v == "true" || v == "1"
	}

	// Log and output configuration
	if v := os.Getenv("COLGROUP_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("COLGROUP_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("COLGROUP_OUTPUT_FORMAT"); v != "" {
		cfg.Output.Format = v
	}
	if v := os.Getenv("COLGROUP_OUTPUT_MAX_ROWS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Output.MaxRows = n
		}
	}
}

// ParseRanges parses a range list such as "verbs:0-3,adjectives:3-6". The
// name and colon are optional: "0-3,3-6" is accepted too.
func ParseRanges(s string) ([]RangeConfig, error) {
	var ranges []RangeConfig
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		var rc RangeConfig
		bounds := part
		if name, rest, ok := strings.Cut(part, ":"); ok {
			rc.Name = strings.TrimSpace(name)
			bounds = rest
		}

		lo, hi, ok := strings.Cut(bounds, "-")
		if !ok {
			return nil, cgerrors.NewConfigError(fmt.Sprintf("range %q must look like lower-upper", part))
		}
		var err error
		if rc.Lower, err = strconv.Atoi(strings.TrimSpace(lo)); err != nil {
			return nil, cgerrors.NewConfigError(fmt.Sprintf("range %q has a bad lower bound", part))
		}
		if rc.Upper, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil {
			return nil, cgerrors.NewConfigError(fmt.Sprintf("range %q has a bad upper bound", part))
		}
		ranges = append(ranges, rc)
	}

	if len(ranges) == 0 {
		return nil, cgerrors.NewConfigError("range list is empty")
	}
	return ranges, nil
}
