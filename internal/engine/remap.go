package engine

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"

	"github.com/danieljhkim/skillctl/internal/pathremap"
	"github.com/danieljhkim/skillctl/internal/state"
)

// SetRemap records where a logical manifest path physically lives, or removes
// the entry. The table can only change while no skills are applied, since
// Clean resolves recorded paths through it.
func (e *Engine) SetRemap(req *RemapRequest) (map[string]string, error) {
	st, err := e.stateStore.ReadState()
	if err != nil {
		if !errors.Is(err, state.ErrNoStateFound) {
			return nil, err
		}
		st = state.NewState(e.coreVersion())
	}
	if len(st.AppliedSkills) > 0 {
		return nil, fmt.Errorf("%w: run clean before changing the path remap", ErrSkillsApplied)
	}

	logical := path.Clean(filepath.ToSlash(req.Logical))
	if err := e.fs.ValidateRelPath(logical); err != nil {
		return nil, fmt.Errorf("invalid logical path %q: %w", req.Logical, err)
	}

	table := make(map[string]string, len(st.PathRemap)+1)
	for k, v := range st.PathRemap {
		table[k] = v
	}

	if req.Remove {
		if _, ok := table[logical]; !ok {
			return nil, fmt.Errorf("no remap entry for %s", logical)
		}
		delete(table, logical)
	} else {
		physical, err := projectRelative(req.Physical, req.CWD, e.paths.Root, e.paths.State, e.paths.Skills)
		if err != nil {
			return nil, err
		}
		table[logical] = physical
	}

	if _, err := pathremap.New(table); err != nil {
		return nil, err
	}

	st.PathRemap = table
	if len(table) == 0 {
		st.PathRemap = nil
	}
	if err := e.stateStore.WriteState(st); err != nil {
		return nil, fmt.Errorf("failed to write state: %w", err)
	}

	e.logger.Info("path remap updated", "logical", logical, "physical", table[logical], "removed", req.Remove)
	return table, nil
}
