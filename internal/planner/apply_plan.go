package planner

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/danieljhkim/skillctl/internal/fsops"
	"github.com/danieljhkim/skillctl/internal/hash"
	"github.com/danieljhkim/skillctl/internal/manifest"
	"github.com/danieljhkim/skillctl/internal/pathremap"
	"github.com/danieljhkim/skillctl/internal/snapshot"
	"github.com/danieljhkim/skillctl/internal/state"
)

// BuildApplyPlan generates a deterministic plan to apply ordered skills.
//
// ordered must already be dependency-sorted and exclusion-checked.
func BuildApplyPlan(
	ordered []*manifest.Manifest,
	ledger *state.State,
	projectRoot string,
	base *snapshot.Base,
	remap *pathremap.Remapper,
	fs fsops.FS,
	hasher hash.Hasher,
	force bool,
) (*ApplyPlan, error) {
	plan := NewApplyPlan()
	checker := NewConflictChecker(hasher, ledger, force)
	view := &treeView{fs: fs, root: projectRoot, base: base, plan: plan}

	for _, m := range ordered {
		sp := SkillPlan{
			Manifest:   m,
			Skill:      m.Skill,
			Version:    m.Version,
			Operations: []Operation{},
			Conflicts:  []Conflict{},
		}

		if ledger != nil && ledger.IsApplied(m.Skill, m.Version) {
			sp.Skipped = true
			plan.addSkill(sp)
			continue
		}

		for _, logical := range m.Adds {
			op, err := newOperation(fs, m, OpAdd, logical, projectRoot, remap)
			if err != nil {
				return nil, err
			}

			current, exists, err := view.current(op.RelPath)
			if errors.Is(err, errIsDir) {
				sp.Conflicts = append(sp.Conflicts, Conflict{Path: op.RelPath, Reason: "destination is a directory"})
				continue
			}
			if err != nil {
				return nil, err
			}
			noop, conflict := checker.CheckAdd(m.Skill, op.RelPath, current, exists, op.Content)
			if conflict != nil {
				sp.Conflicts = append(sp.Conflicts, *conflict)
				continue
			}
			op.Noop = noop
			sp.Operations = append(sp.Operations, op)
		}

		for _, logical := range m.Modifies {
			op, err := newOperation(fs, m, OpModify, logical, projectRoot, remap)
			if err != nil {
				return nil, err
			}

			current, exists, err := view.current(op.RelPath)
			if errors.Is(err, errIsDir) {
				sp.Conflicts = append(sp.Conflicts, Conflict{Path: op.RelPath, Reason: "destination is a directory"})
				continue
			}
			if err != nil {
				return nil, err
			}
			pre, hasPre, err := view.preImage(op.RelPath)
			if err != nil {
				return nil, err
			}
			noop, conflict := checker.CheckModify(op.RelPath, current, exists, pre, hasPre, op.Content)
			if conflict != nil {
				sp.Conflicts = append(sp.Conflicts, *conflict)
				continue
			}
			op.Noop = noop
			sp.Operations = append(sp.Operations, op)
		}

		plan.addSkill(sp)
		if plan.HasConflicts() {
			break
		}
	}

	return plan, nil
}

func newOperation(fs fsops.FS, m *manifest.Manifest, opType, logical, projectRoot string, remap *pathremap.Remapper) (Operation, error) {
	source := m.AddSource(logical)
	if opType == OpModify {
		source = m.ModifySource(logical)
	}

	content, err := fs.ReadFile(source)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Operation{}, fmt.Errorf("%w: %s: %s content for %s is missing", manifest.ErrManifestInvalid, m.Label(), opType, logical)
		}
		return Operation{}, fmt.Errorf("failed to read %s: %w", source, err)
	}

	rel := remap.Resolve(logical)
	if err := fs.ValidateRelPath(rel); err != nil {
		return Operation{}, fmt.Errorf("invalid destination for %s: %w", logical, err)
	}

	return Operation{
		Type:        opType,
		SourcePath:  source,
		DestPath:    filepath.Join(projectRoot, filepath.FromSlash(rel)),
		RelPath:     rel,
		LogicalPath: logical,
		Content:     content,
	}, nil
}

var errIsDir = errors.New("destination is a directory")

// treeView layers the writes planned so far over the project tree.
type treeView struct {
	fs   fsops.FS
	root string
	base *snapshot.Base
	plan *ApplyPlan
}

// current is what rel will hold when the next skill runs.
func (v *treeView) current(rel string) ([]byte, bool, error) {
	if data, ok := v.plan.Content(rel); ok {
		return data, true, nil
	}

	path := filepath.Join(v.root, filepath.FromSlash(rel))
	info, err := v.fs.Lstat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to stat %s: %w", rel, err)
	}
	if info.IsDir() {
		return nil, true, errIsDir
	}

	data, err := v.fs.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", rel, err)
	}
	return data, true, nil
}

// preImage is the content a modify replaces: an earlier skill's output in this
// run, else the base snapshot copy. Paths outside the snapshot, and every path
// when there is no snapshot yet (a dry run before the first apply), take the
// disk content as their pre-image.
func (v *treeView) preImage(rel string) ([]byte, bool, error) {
	if data, ok := v.plan.Content(rel); ok {
		return data, true, nil
	}
	if v.base != nil {
		data, err := v.base.Read(rel)
		if err == nil {
			return data, true, nil
		}
		if !errors.Is(err, snapshot.ErrNotInBase) {
			return nil, false, err
		}
	}

	data, exists, err := v.current(rel)
	if errors.Is(err, errIsDir) {
		return nil, false, nil
	}
	return data, exists, err
}
