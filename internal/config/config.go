// Package config manages skillctl configuration and project paths.
//
// Settings come from SKILLCTL_* environment variables. Every on-disk location
// (skills directory, state directory, base snapshot, ledger) is derived from
// the project root so the engine never consults the process working directory.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/danieljhkim/skillctl/internal/fsops"
)

// Config holds settings read from the environment.
type Config struct {
	// ProjectRoot overrides project discovery. It must be absolute.
	ProjectRoot string `env:"SKILLCTL_ROOT"`

	// SkillsDir holds one directory per skill, relative to the project root.
	SkillsDir string `env:"SKILLCTL_SKILLS_DIR" envDefault:".claude/skills"`

	// StateDir holds the ledger, base snapshot and lock, relative to the project root.
	StateDir string `env:"SKILLCTL_STATE_DIR" envDefault:".nanoclaw"`

	// BaseIncludes lists the project paths captured in the base snapshot.
	// Directories carry a trailing slash.
	BaseIncludes []string `env:"SKILLCTL_BASE_INCLUDES" envSeparator:"," envDefault:"src/,container/,package.json,.env.example"`

	// InstallCommand runs after package.json changes.
	InstallCommand string `env:"SKILLCTL_INSTALL_CMD" envDefault:"npm install --silent"`

	// InstallTimeout bounds InstallCommand.
	InstallTimeout time.Duration `env:"SKILLCTL_INSTALL_TIMEOUT" envDefault:"10m"`

	// GitTimeout bounds each git invocation.
	GitTimeout time.Duration `env:"SKILLCTL_GIT_TIMEOUT" envDefault:"30s"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"SKILLCTL_LOG_LEVEL" envDefault:"warn"`

	// LogFormat is text or json.
	LogFormat string `env:"SKILLCTL_LOG_FORMAT" envDefault:"text"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads and validates the configuration.
func Load() (*Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that paths stay inside the project and durations are usable.
func (c *Config) Validate() error {
	if c.ProjectRoot != "" && !filepath.IsAbs(c.ProjectRoot) {
		return fmt.Errorf("SKILLCTL_ROOT: %q is not an absolute path", c.ProjectRoot)
	}
	for name, p := range map[string]string{"SKILLCTL_SKILLS_DIR": c.SkillsDir, "SKILLCTL_STATE_DIR": c.StateDir} {
		if err := fsops.ValidateRelPath(p); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	includes := c.BaseIncludes[:0]
	for _, inc := range c.BaseIncludes {
		inc = strings.TrimSpace(inc)
		if inc == "" {
			continue
		}
		if err := fsops.ValidateRelPath(strings.TrimSuffix(inc, "/")); err != nil {
			return fmt.Errorf("SKILLCTL_BASE_INCLUDES: %w", err)
		}
		includes = append(includes, inc)
	}
	if len(includes) == 0 {
		return fmt.Errorf("SKILLCTL_BASE_INCLUDES: at least one path is required")
	}
	c.BaseIncludes = includes

	if strings.TrimSpace(c.InstallCommand) == "" {
		return fmt.Errorf("SKILLCTL_INSTALL_CMD: must not be empty")
	}
	if c.InstallTimeout <= 0 {
		return fmt.Errorf("SKILLCTL_INSTALL_TIMEOUT: must be positive")
	}
	if c.GitTimeout <= 0 {
		return fmt.Errorf("SKILLCTL_GIT_TIMEOUT: must be positive")
	}

	return nil
}
