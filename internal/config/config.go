package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the project config looked up in the cleanup root
const FileName = ".tsclean.yaml"

type HistoryCfg struct {
	DatabasePath  string `yaml:"database_path" json:"database_path"`   // SQLite deletion history; empty disables
	RetentionDays int    `yaml:"retention_days" json:"retention_days"` // Records older than this are pruned after a run
}

type MetricsCfg struct {
	TextfilePath string `yaml:"textfile_path" json:"textfile_path"` // node_exporter textfile; empty disables
}

type LoggingCfg struct {
	File         string `yaml:"file" json:"file"`
	RotationDays int    `yaml:"rotation_days" json:"rotation_days"` // Days to keep logs before rotation
}

type Config struct {
	Recommended     []string   `yaml:"recommended" json:"recommended"` // targets added by --recommend
	Installed       []string   `yaml:"installed" json:"installed"`     // targets added by --installed
	Excludes        []string   `yaml:"excludes" json:"excludes"`
	SkipHidden      *bool      `yaml:"skip_hidden" json:"skip_hidden"`
	ContinueOnError bool       `yaml:"continue_on_error" json:"continue_on_error"`
	ConfineToRoot   *bool      `yaml:"confine_to_root" json:"confine_to_root"`
	ProtectedPaths  []string   `yaml:"protected_paths" json:"protected_paths"`
	Lock            *bool      `yaml:"lock" json:"lock"`
	History         HistoryCfg `yaml:"history" json:"history"`
	Metrics         MetricsCfg `yaml:"metrics" json:"metrics"`
	Logging         LoggingCfg `yaml:"logging" json:"logging"`
}

var (
	errNegativeRotation  = errors.New("logging.rotation_days cannot be negative")
	errNegativeRetention = errors.New("history.retention_days cannot be negative")
	errEmptyTarget       = errors.New("target list contains an empty entry")
)

// DefaultRecommended is what --recommend cleans when the config does not override it
var DefaultRecommended = []string{
	"*.tsbuildinfo",
	"lib",
	"dist",
	"yarn-error.log",
	"bin",
}

// DefaultInstalled is what --installed cleans when the config does not override it
var DefaultInstalled = []string{
	"node_modules",
	"/**/node_modules",
}

// Default returns a validated config with every default applied
func Default() *Config {
	cfg := &Config{}
	_ = cfg.validateAndDefault()
	return cfg
}

// Load reads and validates the config at path. The file must exist.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := decode(f)
	if err != nil {
		return nil, err
	}
	if err := cfg.validateAndDefault(); err != nil {
		return nil, err
	}
	cfg.resolveRelative(filepath.Dir(path))
	return cfg, nil
}

// LoadOptional loads root/.tsclean.yaml, falling back to Default when the file is absent
func LoadOptional(root string) (*Config, error) {
	path := filepath.Join(root, FileName)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("stat config: %w", err)
	}
	return Load(path)
}

func decode(r io.Reader) (*Config, error) {
	cfg := &Config{}
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			// empty file
			return cfg, nil
		}
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

func (c *Config) validateAndDefault() error {
	if c.Recommended == nil {
		c.Recommended = append([]string(nil), DefaultRecommended...)
	}
	if c.Installed == nil {
		c.Installed = append([]string(nil), DefaultInstalled...)
	}
	for _, list := range [][]string{c.Recommended, c.Installed} {
		for _, t := range list {
			if t == "" {
				return errEmptyTarget
			}
		}
	}

	// Hidden directories are skipped unless the config says otherwise
	if c.SkipHidden == nil {
		c.SkipHidden = boolPtr(true)
	}
	if c.ConfineToRoot == nil {
		c.ConfineToRoot = boolPtr(true)
	}
	if c.Lock == nil {
		c.Lock = boolPtr(true)
	}

	if c.Logging.RotationDays < 0 {
		return errNegativeRotation
	}
	if c.Logging.RotationDays == 0 {
		c.Logging.RotationDays = 30 // Default: keep logs for 30 days
	}

	if c.History.RetentionDays < 0 {
		return errNegativeRetention
	}

	return nil
}

// resolveRelative anchors relative file paths at the directory holding the config
func (c *Config) resolveRelative(dir string) {
	for _, p := range []*string{&c.History.DatabasePath, &c.Metrics.TextfilePath, &c.Logging.File} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

func boolPtr(b bool) *bool {
	return &b
}
