package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/danieljhkim/skillctl/internal/manifest"
	"github.com/danieljhkim/skillctl/internal/planner"
	"github.com/danieljhkim/skillctl/internal/resolver"
	"github.com/danieljhkim/skillctl/internal/semrange"
	"github.com/danieljhkim/skillctl/internal/snapshot"
	"github.com/danieljhkim/skillctl/internal/state"
	"github.com/danieljhkim/skillctl/internal/structured"
)

// Apply replays the requested skills onto the project.
//
// The workflow is:
// 1. Load the requested manifests (and the installed-skills declaration)
// 2. Resolve order and exclusions against the batch and the ledger
// 3. Plan every file write and merge package dependencies (dry pass)
// 4. Capture the base snapshot and ledger if this is the first apply
// 5. Write skills one at a time, recording each in the ledger
// 6. Commit package.json / .env.example and run the installer
//
// When planning stops on a conflicting skill, the skills ahead of it are
// still written and recorded, and a *FileConflictError is returned alongside
// the result.
func (e *Engine) Apply(ctx context.Context, req *ApplyRequest) (*ApplyResult, error) {
	log, runID := e.runLogger("apply")
	result := &ApplyResult{RunID: runID, Applied: []AppliedSkillInfo{}}

	names := append([]string(nil), req.Skills...)
	if req.Installed {
		installed, err := e.readInstalled()
		if err != nil {
			return nil, err
		}
		names = append(names, installed...)
	}
	if len(names) == 0 {
		return nil, errors.New("no skills requested")
	}

	all, err := e.discover()
	if err != nil {
		return nil, err
	}
	requested, err := lookup(all, names)
	if err != nil {
		return nil, err
	}

	st, hasState, err := e.readStateOrEmpty()
	if err != nil {
		return nil, err
	}

	ordered, err := resolver.Resolve(requested, appliedManifests(st, all))
	if err != nil {
		return nil, err
	}
	for _, m := range ordered {
		result.Order = append(result.Order, m.Skill)
		checkCoreVersion(log, m, st.CoreVersion)
	}

	remap, err := remapper(st)
	if err != nil {
		return nil, err
	}

	var base *snapshot.Base
	if exists, err := e.base.Exists(); err != nil {
		return nil, fmt.Errorf("failed to check base snapshot: %w", err)
	} else if exists {
		base = e.base
	}

	plan, err := planner.BuildApplyPlan(ordered, st, e.paths.Root, base, remap, e.fs, e.hasher, req.Force)
	if err != nil {
		return nil, fmt.Errorf("failed to build plan: %w", err)
	}
	result.Plan = plan
	result.Skipped = plan.Skipped()

	pkgJSON, err := e.plannedContent(plan, structured.PackageJSON)
	if err != nil {
		return nil, err
	}
	merge, err := structured.Prepare(pkgJSON, mergeSources(plan))
	if err != nil {
		return result, err
	}
	result.Merge = merge

	if req.DryRun {
		return result, conflictError(plan)
	}

	// Nothing is captured or initialized until resolution and merge
	// preparation have passed. The tree is still untouched here.
	if result.BaseCaptured, err = e.ensureBase(log, st); err != nil {
		return result, err
	}
	if !hasState {
		if _, err = e.stateStore.InitState(e.baseCoreVersion()); err != nil {
			return result, fmt.Errorf("failed to initialize state: %w", err)
		}
	}

	for _, sp := range plan.Runnable() {
		info, hashes, err := e.writeSkill(log, sp)
		if err != nil {
			return result, err
		}
		if err := e.stateStore.RecordSkillApplication(sp.Skill, sp.Version, hashes, e.clock.Now()); err != nil {
			return result, fmt.Errorf("failed to record %s: %w", sp.Skill, err)
		}
		result.Applied = append(result.Applied, info)
		log.Info("skill applied", "skill", sp.Skill, "version", sp.Version, "written", info.Written, "unchanged", info.Unchanged)
	}

	committed, err := e.merger.Commit(ctx, e.paths.Root, merge)
	if err != nil {
		return result, fmt.Errorf("failed to merge package dependencies: %w", err)
	}
	result.Structured = committed
	if len(committed.Changes) > 0 || len(committed.EnvAdded) > 0 {
		log.Info("structured merge committed", "changes", len(committed.Changes), "env_added", len(committed.EnvAdded), "installed", committed.Installed)
	}

	var done []string
	for _, sp := range plan.Skills {
		if sp.Skill == plan.Blocked {
			break
		}
		done = append(done, sp.Skill)
	}
	if err := e.addInstalled(done); err != nil {
		log.Warn("failed to update installed skills", "error", err)
	}

	if err := conflictError(plan); err != nil {
		log.Warn("apply stopped on conflict", "skill", plan.Blocked, "conflicts", len(plan.Conflicts()))
		return result, err
	}
	return result, nil
}

// writeSkill performs one skill's operations and returns the ledger hashes
// of every path it owns.
func (e *Engine) writeSkill(log *slog.Logger, sp planner.SkillPlan) (AppliedSkillInfo, map[string]string, error) {
	info := AppliedSkillInfo{Skill: sp.Skill, Version: sp.Version}
	hashes := make(map[string]string, len(sp.Operations))

	for _, op := range sp.Operations {
		hashes[op.RelPath] = e.hasher.HashBytes(op.Content)
		if op.Noop {
			info.Unchanged++
			log.Debug("file unchanged", "skill", sp.Skill, "path", op.RelPath)
			continue
		}

		perm := os.FileMode(0644)
		if fi, err := e.fs.Lstat(op.SourcePath); err == nil {
			perm = fi.Mode().Perm()
		}
		if err := e.fs.AtomicWrite(op.DestPath, op.Content, perm); err != nil {
			return info, nil, fmt.Errorf("failed to write %s for %s: %w", op.RelPath, sp.Skill, err)
		}
		info.Written++
		log.Debug("file written", "skill", sp.Skill, "type", op.Type, "path", op.RelPath)
	}

	return info, hashes, nil
}

// plannedContent returns what rel will hold once the plan's files are
// written, or nil when it won't exist.
func (e *Engine) plannedContent(plan *planner.ApplyPlan, rel string) ([]byte, error) {
	if data, ok := plan.Content(rel); ok {
		return data, nil
	}
	data, err := e.fs.ReadFile(e.abs(rel))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", rel, err)
	}
	return data, nil
}

// mergeSources returns the skills whose package dependencies are folded in:
// every planned skill ahead of a conflict, skipped ones included so an
// interrupted run still gets its dependencies merged on retry.
func mergeSources(plan *planner.ApplyPlan) []*manifest.Manifest {
	var out []*manifest.Manifest
	for _, sp := range plan.Skills {
		if sp.Skill == plan.Blocked {
			break
		}
		out = append(out, sp.Manifest)
	}
	return out
}

// appliedManifests returns a manifest for every ledger record. Skills whose
// directory has since disappeared get a stub so they still satisfy depends.
func appliedManifests(st *state.State, all []*manifest.Manifest) []*manifest.Manifest {
	idx := manifest.Index(all)
	out := make([]*manifest.Manifest, 0, len(st.AppliedSkills))
	for _, rec := range st.AppliedSkills {
		if m, ok := idx[rec.Skill]; ok {
			out = append(out, m)
			continue
		}
		out = append(out, &manifest.Manifest{
			Skill:            rec.Skill,
			Version:          rec.Version,
			Adds:             []string{},
			Modifies:         []string{},
			Conflicts:        []string{},
			Depends:          []string{},
			IncompatibleWith: []string{},
		})
	}
	return out
}

// checkCoreVersion warns when a skill was authored against a newer core.
func checkCoreVersion(log *slog.Logger, m *manifest.Manifest, core string) {
	if m.CoreVersion == "" || core == "" {
		return
	}
	want, err := semrange.ParseVersion(m.CoreVersion)
	if err != nil {
		return
	}
	have, err := semrange.ParseVersion(core)
	if err != nil {
		return
	}
	if want.Compare(have) > 0 {
		log.Warn("skill targets a newer core", "skill", m.Skill, "core_version", m.CoreVersion, "project", core)
	}
}

// conflictError describes the plan's blocking skill, or returns nil.
func conflictError(plan *planner.ApplyPlan) error {
	if !plan.HasConflicts() {
		return nil
	}
	var paths []string
	for _, c := range plan.Conflicts() {
		paths = append(paths, c.Path)
	}
	sort.Strings(paths)
	return &FileConflictError{Skill: plan.Blocked, Paths: paths}
}
