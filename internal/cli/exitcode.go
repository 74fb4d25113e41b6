package cli

import (
	"errors"

	"github.com/danieljhkim/skillctl/internal/engine"
)

// Exit codes, one per error category.
const (
	ExitOK                 = 0
	ExitFailure            = 1
	ExitManifest           = 2
	ExitResolution         = 3
	ExitFileConflict       = 4
	ExitVersionConflict    = 5
	ExitState              = 6
	ExitUncommittedChanges = 7
	ExitRestoreFailed      = 8
	ExitLocked             = 9
)

var exitCodes = []struct {
	err  error
	code int
}{
	{engine.ErrManifestNotFound, ExitManifest},
	{engine.ErrManifestInvalid, ExitManifest},
	{engine.ErrCyclicDependency, ExitResolution},
	{engine.ErrMutualExclusion, ExitResolution},
	{engine.ErrMissingDependency, ExitResolution},
	{engine.ErrFileConflict, ExitFileConflict},
	{engine.ErrDependencyVersionConflict, ExitVersionConflict},
	{engine.ErrStateCorrupt, ExitState},
	{engine.ErrNoStateFound, ExitState},
	{engine.ErrNoBase, ExitState},
	{engine.ErrNoInstalledSkills, ExitState},
	{engine.ErrUncommittedChanges, ExitUncommittedChanges},
	{engine.ErrSkillsApplied, ExitUncommittedChanges},
	{engine.ErrRestoreFailed, ExitRestoreFailed},
	{ErrLocked, ExitLocked},
}

// ExitCode maps an error returned by Execute to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	for _, ec := range exitCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return ExitFailure
}
