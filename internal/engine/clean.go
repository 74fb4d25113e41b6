package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/danieljhkim/skillctl/internal/gitx"
	"github.com/danieljhkim/skillctl/internal/manifest"
	"github.com/danieljhkim/skillctl/internal/pathremap"
	"github.com/danieljhkim/skillctl/internal/state"
	"github.com/danieljhkim/skillctl/internal/structured"
)

// Clean removes every applied skill and returns the tree to the base snapshot.
//
// Skills are undone newest first: added paths are deleted (or restored, when
// the base holds them) and modified paths are restored from the base.
// package.json and .env.example are restored last, reinstalling only when
// package.json changed. Per-path failures are collected as warnings and the
// ledger is reset regardless, so a failed restore never leaves skills recorded
// that are half gone.
func (e *Engine) Clean(ctx context.Context, req *CleanRequest) (*CleanResult, error) {
	log, _ := e.runLogger("clean")
	result := &CleanResult{
		Skills:   []string{},
		Deleted:  []string{},
		Restored: []string{},
		DryRun:   req.DryRun,
	}

	st, err := e.stateStore.ReadState()
	if err != nil {
		if errors.Is(err, state.ErrNoStateFound) {
			return result, nil
		}
		return nil, err
	}
	if len(st.AppliedSkills) == 0 {
		return result, nil
	}

	if !req.Force {
		if err := e.checkUncommitted(ctx, log, st); err != nil {
			return nil, err
		}
	}

	remap, err := remapper(st)
	if err != nil {
		return nil, err
	}

	index := map[string]*manifest.Manifest{}
	if all, err := e.discover(); err != nil {
		result.Warnings = append(result.Warnings, err)
	} else {
		index = manifest.Index(all)
	}

	// Structured files are restored once, after every skill is undone.
	done := map[string]bool{
		structured.PackageJSON: true,
		structured.EnvExample:  true,
	}

	for i := len(st.AppliedSkills) - 1; i >= 0; i-- {
		rec := st.AppliedSkills[i]
		result.Skills = append(result.Skills, rec.Skill)

		adds, modifies, err := e.recordPaths(rec, index, remap)
		if err != nil {
			result.Warnings = append(result.Warnings, err)
		}

		for _, rel := range adds {
			if done[rel] {
				continue
			}
			done[rel] = true
			inBase, err := e.base.Has(rel)
			if err != nil {
				result.Warnings = append(result.Warnings, &RestoreError{Skill: rec.Skill, Path: rel, Err: err})
				continue
			}
			if inBase {
				if err := e.restore(rel, req.DryRun); err != nil {
					result.Warnings = append(result.Warnings, &RestoreError{Skill: rec.Skill, Path: rel, Err: err})
					continue
				}
				result.Restored = append(result.Restored, rel)
				continue
			}
			if err := e.remove(rel, req.DryRun); err != nil {
				result.Warnings = append(result.Warnings, &RestoreError{Skill: rec.Skill, Path: rel, Err: err})
				continue
			}
			result.Deleted = append(result.Deleted, rel)
		}

		for _, rel := range modifies {
			if done[rel] {
				continue
			}
			done[rel] = true
			if err := e.restore(rel, req.DryRun); err != nil {
				result.Warnings = append(result.Warnings, &RestoreError{Skill: rec.Skill, Path: rel, Err: err})
				continue
			}
			result.Restored = append(result.Restored, rel)
		}
	}

	e.restoreStructured(ctx, result, req.DryRun)

	for _, w := range result.Warnings {
		log.Warn("clean warning", "error", w)
	}

	if req.DryRun {
		return result, nil
	}

	st.Reset()
	if err := e.stateStore.WriteState(st); err != nil {
		return result, fmt.Errorf("failed to reset state: %w", err)
	}

	log.Info("clean complete", "skills", len(result.Skills), "deleted", len(result.Deleted), "restored", len(result.Restored), "warnings", len(result.Warnings))
	return result, nil
}

// recordPaths returns the physical paths a ledger record added and modified.
// Without a manifest it falls back to the recorded hashes: paths the base
// knows are treated as modified, the rest as added.
func (e *Engine) recordPaths(rec state.AppliedSkill, index map[string]*manifest.Manifest, remap *pathremap.Remapper) (adds, modifies []string, err error) {
	if m, ok := index[rec.Skill]; ok {
		for _, p := range m.Adds {
			adds = append(adds, remap.Resolve(p))
		}
		for _, p := range m.Modifies {
			modifies = append(modifies, remap.Resolve(p))
		}
		return adds, modifies, nil
	}

	recorded := make([]string, 0, len(rec.FileHashes))
	for rel := range rec.FileHashes {
		recorded = append(recorded, rel)
	}
	sort.Strings(recorded)

	for _, rel := range recorded {
		inBase, herr := e.base.Has(rel)
		if herr == nil && inBase {
			modifies = append(modifies, rel)
		} else {
			adds = append(adds, rel)
		}
	}
	return adds, modifies, fmt.Errorf("%w: %s: cleaning its recorded files", ErrManifestNotFound, rec.Skill)
}

// restore writes the base copy of rel back into the project.
func (e *Engine) restore(rel string, dryRun bool) error {
	data, err := e.base.Read(rel)
	if err != nil {
		return err
	}
	if dryRun {
		return nil
	}

	perm := os.FileMode(0644)
	if fi, err := e.fs.Lstat(e.base.Path(rel)); err == nil {
		perm = fi.Mode().Perm()
	}
	return e.fs.AtomicWrite(e.abs(rel), data, perm)
}

// remove deletes an added path and any directories it leaves empty.
func (e *Engine) remove(rel string, dryRun bool) error {
	if dryRun {
		return nil
	}
	abs := e.abs(rel)
	if err := e.fs.Remove(abs); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return e.fs.PruneEmptyParents(abs, e.paths.Root)
}

// restoreStructured puts package.json and .env.example back to their base
// content. A structured file the base doesn't have was created by skills and
// is removed.
func (e *Engine) restoreStructured(ctx context.Context, result *CleanResult, dryRun bool) {
	for _, rel := range []string{structured.PackageJSON, structured.EnvExample} {
		inBase, err := e.base.Has(rel)
		if err != nil {
			result.Warnings = append(result.Warnings, &RestoreError{Path: rel, Err: err})
			continue
		}

		if !inBase {
			exists, err := e.fs.Exists(e.abs(rel))
			if err != nil || !exists {
				continue
			}
			if err := e.remove(rel, dryRun); err != nil {
				result.Warnings = append(result.Warnings, &RestoreError{Path: rel, Err: err})
				continue
			}
			result.Deleted = append(result.Deleted, rel)
			continue
		}

		data, err := e.base.Read(rel)
		if err != nil {
			result.Warnings = append(result.Warnings, &RestoreError{Path: rel, Err: err})
			continue
		}
		current, err := e.fs.ReadFile(e.abs(rel))
		if err == nil && bytes.Equal(current, data) {
			continue
		}
		result.Restored = append(result.Restored, rel)
		if dryRun {
			continue
		}

		if rel == structured.PackageJSON {
			reinstalled, err := e.merger.Restore(ctx, e.paths.Root, data)
			result.Reinstalled = reinstalled
			if err != nil {
				result.Warnings = append(result.Warnings, &RestoreError{Path: rel, Err: err})
			}
			continue
		}
		if err := e.restore(rel, false); err != nil {
			result.Warnings = append(result.Warnings, &RestoreError{Path: rel, Err: err})
		}
	}
}

// checkUncommitted refuses to clean over edits git reports in the tracked
// paths. Files still holding content the ledger recorded, and the structured
// files the merger owns, are expected to differ from HEAD.
func (e *Engine) checkUncommitted(ctx context.Context, log *slog.Logger, st *state.State) error {
	tracked := e.paths.TrackedPaths()

	dirty, err := e.gitRepo.HasUncommittedChanges(ctx, e.paths.Root, tracked)
	if err != nil {
		if errors.Is(err, gitx.ErrNotGitRepo) {
			log.Warn("not a git repository, skipping uncommitted changes check")
			return nil
		}
		return fmt.Errorf("failed to check for uncommitted changes: %w", err)
	}
	if !dirty {
		return nil
	}

	changed, err := e.gitRepo.ChangedFiles(ctx, e.paths.Root, tracked)
	if err != nil {
		return fmt.Errorf("failed to list uncommitted changes: %w", err)
	}

	var foreign []string
	for _, rel := range changed {
		if rel == structured.PackageJSON || rel == structured.EnvExample {
			continue
		}
		if e.ownedByLedger(st, rel) {
			continue
		}
		foreign = append(foreign, rel)
	}
	if len(foreign) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s (commit or stash them, or use --force)", ErrUncommittedChanges, strings.Join(foreign, ", "))
}

// ownedByLedger reports whether rel currently holds content a skill recorded.
func (e *Engine) ownedByLedger(st *state.State, rel string) bool {
	current, err := e.fs.ReadFile(e.abs(rel))
	if err != nil {
		return false
	}
	sum := e.hasher.HashBytes(current)
	for _, rec := range st.AppliedSkills {
		if rec.FileHashes[rel] == sum {
			return true
		}
	}
	return false
}
