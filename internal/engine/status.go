package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/danieljhkim/skillctl/internal/snapshot"
)

// Status returns the applied skills and whether their files have drifted
// from what the ledger recorded. Each file is compared with the newest
// record for its path.
func (e *Engine) Status(ctx context.Context) (*StatusResult, error) {
	st, err := e.stateStore.ReadState()
	if err != nil {
		return nil, err
	}

	result := &StatusResult{
		Root:        e.paths.Root,
		CoreVersion: st.CoreVersion,
		Skills:      []SkillStatus{},
		PathRemap:   st.PathRemap,
	}

	files, err := e.base.Files()
	if err != nil && !errors.Is(err, snapshot.ErrNoBase) {
		return nil, fmt.Errorf("failed to list base snapshot: %w", err)
	}
	result.BaseFiles = len(files)

	// A path modified by several skills should hold the newest record's content.
	latest := make(map[string]string)
	for _, rec := range st.AppliedSkills {
		for rel, sum := range rec.FileHashes {
			latest[rel] = sum
		}
	}

	for _, rec := range st.AppliedSkills {
		ss := SkillStatus{
			Skill:     rec.Skill,
			Version:   rec.Version,
			AppliedAt: rec.AppliedAt,
			Files:     []FileStatus{},
		}

		paths := make([]string, 0, len(rec.FileHashes))
		for rel := range rec.FileHashes {
			paths = append(paths, rel)
		}
		sort.Strings(paths)

		for _, rel := range paths {
			file := FileStatus{Path: rel, State: FileOK}
			sum, err := e.hasher.HashFile(e.abs(rel))
			switch {
			case errors.Is(err, os.ErrNotExist):
				file.State = FileMissing
			case err != nil:
				return nil, fmt.Errorf("failed to hash %s: %w", rel, err)
			case sum != latest[rel]:
				file.State = FileModified
			}
			ss.Files = append(ss.Files, file)
		}

		result.Skills = append(result.Skills, ss)
	}

	return result, nil
}
