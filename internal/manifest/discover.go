package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/danieljhkim/skillctl/internal/fsops"
)

// Discover loads every skill under skillsDir in directory-name order.
// Directories without a manifest are skipped; a missing skillsDir yields no
// skills. Two directories declaring the same skill id is an error.
func Discover(fsys fsops.FS, skillsDir string) ([]*Manifest, error) {
	entries, err := fsys.ReadDir(skillsDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []*Manifest{}, nil
		}
		return nil, fmt.Errorf("failed to read skills directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var out []*Manifest
	bySkill := make(map[string]string)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(skillsDir, entry.Name())

		m, err := Load(fsys, dir)
		if err != nil {
			if errors.Is(err, ErrManifestNotFound) {
				continue
			}
			return nil, err
		}
		if other, dup := bySkill[m.Skill]; dup {
			return nil, &ValidationError{
				Dir:    dir,
				Field:  "skill",
				Reason: fmt.Sprintf("skill id %q is also declared in %s", m.Skill, other),
			}
		}
		bySkill[m.Skill] = dir
		out = append(out, m)
	}

	return out, nil
}

// Find locates a skill by directory name or by skill id.
func Find(fsys fsops.FS, skillsDir, name string) (*Manifest, error) {
	if err := fsys.ValidateIdentifier(name); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrManifestNotFound, name, err)
	}

	m, err := Load(fsys, filepath.Join(skillsDir, name))
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, ErrManifestNotFound) {
		return nil, err
	}

	all, err := Discover(fsys, skillsDir)
	if err != nil {
		return nil, err
	}
	for _, m := range all {
		if m.Skill == name {
			return m, nil
		}
	}

	return nil, fmt.Errorf("%w: no skill named %q under %s", ErrManifestNotFound, name, skillsDir)
}

// Index maps skill ids to manifests.
func Index(manifests []*Manifest) map[string]*Manifest {
	idx := make(map[string]*Manifest, len(manifests))
	for _, m := range manifests {
		idx[m.Skill] = m
	}
	return idx
}
