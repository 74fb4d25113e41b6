package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/danieljhkim/skillctl/internal/clock"
	"github.com/danieljhkim/skillctl/internal/config"
	"github.com/danieljhkim/skillctl/internal/engine"
	"github.com/danieljhkim/skillctl/internal/fsops"
	"github.com/danieljhkim/skillctl/internal/gitx"
	"github.com/danieljhkim/skillctl/internal/hash"
	"github.com/danieljhkim/skillctl/internal/pkgmgr"
	"github.com/danieljhkim/skillctl/internal/state"
)

// newEngine creates a new engine with real implementations of all dependencies.
func newEngine() (*engine.Engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	logger, err := config.NewLogger(os.Stderr, cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	gitRepo := gitx.NewRealGitRepo(cfg.GitTimeout)
	root, err := projectRoot(cfg, gitRepo)
	if err != nil {
		return nil, err
	}
	paths := config.NewPaths(root, cfg)

	installer, err := pkgmgr.NewCommandInstaller(cfg.InstallCommand, cfg.InstallTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Create real implementations
	fs := fsops.NewRealFS()
	hasher := hash.NewSHA256Hasher()
	clk := &clock.RealClock{}
	stateStore := state.NewFileStateStore(fs, paths.StateFile)

	return engine.New(gitRepo, stateStore, fs, hasher, clk, installer, paths, logger), nil
}

// projectRoot returns SKILLCTL_ROOT, else the enclosing git repository, else
// the working directory.
func projectRoot(cfg *config.Config, gitRepo gitx.GitRepo) (string, error) {
	if cfg.ProjectRoot != "" {
		return cfg.ProjectRoot, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	root, err := gitRepo.Discover(cwd)
	if err != nil {
		if errors.Is(err, gitx.ErrNotGitRepo) {
			return cwd, nil
		}
		return "", err
	}
	return root, nil
}

// formatJSON formats a value as JSON.
func formatJSON(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// formatError formats an error for display.
func formatError(err error) string {
	return errorColor.Sprintf("Error: %v", err)
}

// FormatError formats a command error for the process's final message.
func FormatError(err error) string {
	return formatError(err)
}

// outputJSON outputs a value as JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
