package planner

import (
	"bytes"

	"github.com/danieljhkim/skillctl/internal/hash"
	"github.com/danieljhkim/skillctl/internal/state"
)

// ConflictChecker decides whether existing content may be overwritten.
type ConflictChecker struct {
	hasher hash.Hasher
	owners map[string]map[string][]string // path -> content hash -> skill ids
	force  bool
}

// NewConflictChecker creates a new ConflictChecker. Content whose hash the
// ledger records for a path is treated as skillctl's own.
func NewConflictChecker(hasher hash.Hasher, ledger *state.State, force bool) *ConflictChecker {
	owners := make(map[string]map[string][]string)
	if ledger != nil {
		for _, rec := range ledger.AppliedSkills {
			for path, h := range rec.FileHashes {
				if owners[path] == nil {
					owners[path] = make(map[string][]string)
				}
				owners[path][h] = append(owners[path][h], rec.Skill)
			}
		}
	}
	return &ConflictChecker{hasher: hasher, owners: owners, force: force}
}

// IsOwned reports whether content at rel was written by any applied skill.
func (c *ConflictChecker) IsOwned(rel string, content []byte) bool {
	return len(c.owners[rel][c.hasher.HashBytes(content)]) > 0
}

// OwnedBy reports whether content at rel was written by the applied skill id.
func (c *ConflictChecker) OwnedBy(skill, rel string, content []byte) bool {
	for _, id := range c.owners[rel][c.hasher.HashBytes(content)] {
		if id == skill {
			return true
		}
	}
	return false
}

// CheckAdd checks an add destination for skill. current is the destination's
// content as seen by this run (nil, false when absent). Only the skill's own
// earlier output may be replaced, which lets a new version of a skill update
// its files while two skills adding the same path still conflict.
func (c *ConflictChecker) CheckAdd(skill, rel string, current []byte, exists bool, incoming []byte) (noop bool, conflict *Conflict) {
	if !exists {
		return false, nil
	}
	if bytes.Equal(current, incoming) {
		return true, nil
	}
	if c.force || c.OwnedBy(skill, rel, current) {
		return false, nil
	}
	return false, &Conflict{
		Path:   rel,
		Reason: "file already exists with different content",
	}
}

// CheckModify checks a modify destination. pre is the pre-image: the output of
// an earlier skill in this run, else the base snapshot copy. hasPre reports
// whether the pre-image exists at all. Modifies replace whole files in layers,
// so content written by any applied skill may be replaced.
func (c *ConflictChecker) CheckModify(rel string, current []byte, exists bool, pre []byte, hasPre bool, incoming []byte) (noop bool, conflict *Conflict) {
	switch {
	case exists && bytes.Equal(current, incoming):
		return true, nil
	case exists && hasPre && bytes.Equal(current, pre):
		return false, nil
	case !exists && !hasPre:
		return false, nil
	case c.force:
		return false, nil
	case exists && c.IsOwned(rel, current):
		return false, nil
	case !exists:
		return false, &Conflict{
			Path:   rel,
			Reason: "file is in the base snapshot but missing from the project",
		}
	case !hasPre:
		return false, &Conflict{
			Path:   rel,
			Reason: "file exists but has no base snapshot copy",
		}
	default:
		return false, &Conflict{
			Path:   rel,
			Reason: "file was changed outside skillctl since the base snapshot",
		}
	}
}
