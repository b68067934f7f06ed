// Package config loads litdraw.yaml.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the working directory.
const FileName = "litdraw.yaml"

type Config struct {
	// Extension selects the markdown files a directory run compiles
	Extension string `yaml:"extension"`
	// OutputExt replaces the markdown extension of compiled files
	OutputExt string `yaml:"output_ext"`
	// Backup keeps a copy of an existing output before overwriting it
	Backup bool `yaml:"backup"`
	// RequireOutputPragma fails files without an output pragma
	RequireOutputPragma bool `yaml:"require_output_pragma"`
	// Workers bounds concurrent compiles in a directory run
	Workers int `yaml:"workers"`
	// MaxFiles bounds the number of files in a directory run
	MaxFiles int `yaml:"max_files"`
	// KeepComments keeps html comments, which then fail compilation
	KeepComments bool   `yaml:"keep_comments"`
	LogLevel     string `yaml:"log_level"`

	// Path is the file the config was loaded from, empty for defaults
	Path string `yaml:"-"`
}

func Defaults() *Config {
	return &Config{
		Extension: ".draw.md",
		OutputExt: ".js",
		Backup:    true,
		Workers:   4,
		MaxFiles:  100,
		LogLevel:  "info",
	}
}

// Load reads configuration from a file with ENV interpolation.
// If configPath is empty, it searches default locations, and falls back to
// the defaults when there is no config file.
func Load(configPath string, getenv func(string) string) (*Config, error) {
	path, err := resolveConfigPath(configPath, getenv)
	if err != nil {
		return nil, err
	}
	if path == "" {
		slog.Debug("no config file found, using defaults")
		return Defaults(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	data = interpolateEnv(data, getenv)

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	cfg.Path = path

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	slog.Debug("loaded config", "path", cfg.Path)
	return cfg, nil
}

// resolveConfigPath finds the config file to use.
// Search order: explicit path > LITDRAW_CONFIG env > ./litdraw.yaml
func resolveConfigPath(explicit string, getenv func(string) string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	if envPath := getenv("LITDRAW_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("LITDRAW_CONFIG file not found: %s", envPath)
		}
		return envPath, nil
	}

	if _, err := os.Stat(FileName); err == nil {
		return FileName, nil
	}

	return "", nil
}

// envPattern matches ${VAR} or ${VAR:-default}
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// interpolateEnv replaces ${VAR} and ${VAR:-default} patterns with environment values.
func interpolateEnv(data []byte, getenv func(string) string) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		parts := envPattern.FindSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		value := getenv(string(parts[1]))
		if value == "" && len(parts) >= 3 && len(parts[2]) > 0 {
			value = string(parts[2])
		}
		return []byte(value)
	})
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []string

	if !strings.HasPrefix(c.Extension, ".") {
		errs = append(errs, fmt.Sprintf("invalid extension %q (must start with '.')", c.Extension))
	}
	if !strings.HasPrefix(c.OutputExt, ".") {
		errs = append(errs, fmt.Sprintf("invalid output_ext %q (must start with '.')", c.OutputExt))
	}
	if c.Extension == c.OutputExt {
		errs = append(errs, "extension and output_ext must differ")
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Sprintf("invalid workers: %d (must be at least 1)", c.Workers))
	}
	if c.MaxFiles < 1 {
		errs = append(errs, fmt.Sprintf("invalid max_files: %d (must be at least 1)", c.MaxFiles))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Level returns the slog level named by LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q (debug, info, warn or error)", c.LogLevel)
	}
	return level, nil
}
