package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Tracking contains connection settings for the production tracking service.
type Tracking struct {
	BaseURL        string `toml:"base_url"`
	Script         string `toml:"script"`
	Key            string `toml:"key"`
	Project        string `toml:"project"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Paths contains directory configuration.
type Paths struct {
	CacheDir    string `toml:"cache_dir"`
	LogDir      string `toml:"log_dir"`
	PublishRoot string `toml:"publish_root"`
}

// Pipeline contains settings for the publish/validate pipeline surface.
type Pipeline struct {
	Host        string `toml:"host"`
	ReportWidth int    `toml:"report_width"`
}

// Templates contains the named path patterns used for context resolution
// and publish path generation.
type Templates struct {
	Patterns map[string]string `toml:"patterns"`
	// SceneTemplates are the patterns matched against the current scene
	// file path when resolving context from disk.
	SceneTemplates []string `toml:"scene_templates"`
}

// Config encapsulates all configuration values for stagehand.
type Config struct {
	LogLevel  string    `toml:"log_level"`
	LogFormat string    `toml:"log_format"`
	Tracking  Tracking  `toml:"tracking"`
	Paths     Paths     `toml:"paths"`
	Pipeline  Pipeline  `toml:"pipeline"`
	Templates Templates `toml:"templates"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/stagehand/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("stagehand.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	for _, entry := range []struct {
		name  string
		value *string
	}{
		{"cache_dir", &c.Paths.CacheDir},
		{"log_dir", &c.Paths.LogDir},
	} {
		if strings.TrimSpace(*entry.value) == "" {
			continue
		}
		expanded, err := expandPath(*entry.value)
		if err != nil {
			return fmt.Errorf("normalize %s: %w", entry.name, err)
		}
		*entry.value = expanded
	}

	c.Tracking.BaseURL = strings.TrimRight(strings.TrimSpace(c.Tracking.BaseURL), "/")
	c.Tracking.Script = strings.TrimSpace(c.Tracking.Script)
	c.Tracking.Project = strings.TrimSpace(c.Tracking.Project)
	if c.Tracking.RequestTimeout <= 0 {
		c.Tracking.RequestTimeout = defaultTrackingTimeout
	}
	if c.Pipeline.ReportWidth <= 0 {
		c.Pipeline.ReportWidth = defaultReportWidth
	}
	return nil
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.Tracking.BaseURL != "" && c.Tracking.Project == "" {
		return errors.New("config: tracking.project must be set when tracking.base_url is configured")
	}
	if len(c.Templates.Patterns) == 0 {
		return errors.New("config: templates.patterns must declare at least one pattern")
	}
	for name, pattern := range c.Templates.Patterns {
		if !strings.Contains(pattern, "{") {
			return fmt.Errorf("config: template %q has no fields", name)
		}
	}
	for _, name := range c.Templates.SceneTemplates {
		if _, ok := c.Templates.Patterns[name]; !ok {
			return fmt.Errorf("config: scene template %q is not declared in templates.patterns", name)
		}
	}
	switch strings.ToLower(strings.TrimSpace(c.LogFormat)) {
	case "", "console", "json":
	default:
		return fmt.Errorf("config: unsupported log_format %q", c.LogFormat)
	}
	return nil
}

// EnsureDirectories creates the directories stagehand writes to.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.CacheDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LedgerPath returns the location of the publish ledger database.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.CacheDir, "ledger.db")
}

// LookupCachePath returns the location of the tracking lookup cache.
func (c *Config) LookupCachePath() string {
	return filepath.Join(c.Paths.CacheDir, "lookup_cache.json")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
