package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danieljhkim/skillctl/internal/manifest"
	"github.com/danieljhkim/skillctl/internal/resolver"
	"github.com/danieljhkim/skillctl/internal/snapshot"
	"github.com/danieljhkim/skillctl/internal/state"
	"github.com/danieljhkim/skillctl/internal/structured"
)

var (
	// ErrFileConflict indicates a skill's destination holds foreign content.
	ErrFileConflict = errors.New("file conflict")

	// ErrRestoreFailed indicates clean could not restore a path.
	ErrRestoreFailed = errors.New("restore failed")

	// ErrUncommittedChanges indicates clean found edits it would discard.
	ErrUncommittedChanges = errors.New("uncommitted changes in tracked paths")

	// ErrSkillsApplied indicates an operation that needs a clean tree.
	ErrSkillsApplied = errors.New("skills are currently applied")

	// ErrNoInstalledSkills indicates the installed-skills declaration is missing.
	ErrNoInstalledSkills = errors.New("no installed-skills declaration")
)

// Errors raised by lower layers, re-exported so callers only import engine.
var (
	ErrManifestNotFound          = manifest.ErrManifestNotFound
	ErrManifestInvalid           = manifest.ErrManifestInvalid
	ErrCyclicDependency          = resolver.ErrCyclicDependency
	ErrMutualExclusion           = resolver.ErrMutualExclusion
	ErrMissingDependency         = resolver.ErrMissingDependency
	ErrDependencyVersionConflict = structured.ErrDependencyVersionConflict
	ErrNoStateFound              = state.ErrNoStateFound
	ErrStateCorrupt              = state.ErrStateCorrupt
	ErrNoBase                    = snapshot.ErrNoBase
)

// FileConflictError names the skill that stopped an apply and the paths it
// could not write. Skills ahead of it in the batch stay applied.
type FileConflictError struct {
	Skill string
	Paths []string
}

func (e *FileConflictError) Error() string {
	return fmt.Sprintf("%v: skill %s: %s", ErrFileConflict, e.Skill, strings.Join(e.Paths, ", "))
}

func (e *FileConflictError) Unwrap() error { return ErrFileConflict }

// RestoreError is one path clean could not put back.
type RestoreError struct {
	Skill string
	Path  string
	Err   error
}

func (e *RestoreError) Error() string {
	if e.Skill == "" {
		return fmt.Sprintf("%v: %s: %v", ErrRestoreFailed, e.Path, e.Err)
	}
	return fmt.Sprintf("%v: %s (%s): %v", ErrRestoreFailed, e.Path, e.Skill, e.Err)
}

func (e *RestoreError) Unwrap() []error { return []error{ErrRestoreFailed, e.Err} }
