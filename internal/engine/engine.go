// Package engine provides the core business logic for skillctl operations.
//
// The engine package acts as the orchestration layer between CLI commands and
// lower-level operations. It loads manifests, resolves batches, runs the
// planner's dry pass, writes files, and keeps the ledger and base snapshot in
// step with the project tree.
//
// Key components:
//   - Engine: Main orchestrator that coordinates all operations
//   - Init: Captures the base snapshot and starts an empty ledger
//   - Apply: Replays an ordered batch of skills onto the tree
//   - Clean: Reverses every applied skill from the base snapshot
//   - Status / Matrix / SetRemap: Reporting and path remap management
package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/danieljhkim/skillctl/internal/clock"
	"github.com/danieljhkim/skillctl/internal/config"
	"github.com/danieljhkim/skillctl/internal/fsops"
	"github.com/danieljhkim/skillctl/internal/gitx"
	"github.com/danieljhkim/skillctl/internal/hash"
	"github.com/danieljhkim/skillctl/internal/manifest"
	"github.com/danieljhkim/skillctl/internal/pathremap"
	"github.com/danieljhkim/skillctl/internal/pkgmgr"
	"github.com/danieljhkim/skillctl/internal/snapshot"
	"github.com/danieljhkim/skillctl/internal/state"
	"github.com/danieljhkim/skillctl/internal/structured"
)

// Engine orchestrates all skillctl operations for one project.
// It is the main API surface called by the CLI.
type Engine struct {
	gitRepo    gitx.GitRepo
	stateStore state.StateStore
	fs         fsops.FS
	hasher     hash.Hasher
	clock      clock.Clock
	installer  pkgmgr.Installer
	paths      *config.Paths
	logger     *slog.Logger

	base   *snapshot.Base
	merger *structured.Merger
}

// New creates a new Engine with the given dependencies.
func New(
	gitRepo gitx.GitRepo,
	stateStore state.StateStore,
	fs fsops.FS,
	hasher hash.Hasher,
	clk clock.Clock,
	installer pkgmgr.Installer,
	paths *config.Paths,
	logger *slog.Logger,
) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{
		gitRepo:    gitRepo,
		stateStore: stateStore,
		fs:         fs,
		hasher:     hasher,
		clock:      clk,
		installer:  installer,
		paths:      paths,
		logger:     logger,
		base:       snapshot.New(fs, paths.Base),
		merger:     structured.NewMerger(fs, installer),
	}
}

// Paths returns the project paths the engine operates on.
func (e *Engine) Paths() *config.Paths {
	return e.paths
}

// runLogger tags every log line of one operation with a fresh run id.
func (e *Engine) runLogger(op string) (*slog.Logger, string) {
	runID := uuid.NewString()
	return e.logger.With("run_id", runID, "op", op), runID
}

// discover loads every skill manifest under the skills directory.
func (e *Engine) discover() ([]*manifest.Manifest, error) {
	all, err := manifest.Discover(e.fs, e.paths.Skills)
	if err != nil {
		return nil, fmt.Errorf("failed to load skills: %w", err)
	}
	return all, nil
}

// lookup finds requested skills by directory name or skill id.
func lookup(all []*manifest.Manifest, names []string) ([]*manifest.Manifest, error) {
	out := make([]*manifest.Manifest, 0, len(names))
	for _, name := range names {
		var found *manifest.Manifest
		for _, m := range all {
			if m.Name == name {
				found = m
				break
			}
		}
		if found == nil {
			for _, m := range all {
				if m.Skill == name {
					found = m
					break
				}
			}
		}
		if found == nil {
			return nil, fmt.Errorf("%w: no skill named %q", ErrManifestNotFound, name)
		}
		out = append(out, found)
	}
	return out, nil
}

// readStateOrEmpty returns the ledger, or an empty one when none exists yet.
func (e *Engine) readStateOrEmpty() (*state.State, bool, error) {
	st, err := e.stateStore.ReadState()
	if err != nil {
		if errors.Is(err, state.ErrNoStateFound) {
			return state.NewState(e.coreVersion()), false, nil
		}
		return nil, false, err
	}
	return st, true, nil
}

// remapper builds the path remapper from the ledger's table.
func remapper(st *state.State) (*pathremap.Remapper, error) {
	r, err := pathremap.New(st.PathRemap)
	if err != nil {
		return nil, fmt.Errorf("%w: path_remap: %v", ErrStateCorrupt, err)
	}
	return r, nil
}

// coreVersion reads the project's own version from package.json, if any.
func (e *Engine) coreVersion() string {
	data, err := e.fs.ReadFile(filepath.Join(e.paths.Root, structured.PackageJSON))
	if err != nil {
		return ""
	}
	return gjson.GetBytes(data, "version").String()
}

// abs turns a slash-separated project path into an absolute path.
func (e *Engine) abs(rel string) string {
	return filepath.Join(e.paths.Root, filepath.FromSlash(rel))
}
