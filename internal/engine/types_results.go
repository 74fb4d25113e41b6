package engine

import (
	"time"

	"github.com/danieljhkim/skillctl/internal/overlap"
	"github.com/danieljhkim/skillctl/internal/planner"
	"github.com/danieljhkim/skillctl/internal/structured"
)

// InitResult represents the result of capturing the base snapshot.
type InitResult struct {
	// Files lists the captured paths
	Files []string

	// Missing lists base includes that did not exist
	Missing []string

	// Ref is the git revision captured from, empty for the working tree
	Ref string

	// CoreVersion is the project version recorded in the ledger
	CoreVersion string
}

// ApplyResult represents the result of applying skills.
type ApplyResult struct {
	// RunID tags this run's log lines
	RunID string

	// Plan is the generated plan
	Plan *planner.ApplyPlan

	// Order is the resolved application order (skill ids)
	Order []string

	// Applied lists skills written and recorded by this run (empty if DryRun)
	Applied []AppliedSkillInfo

	// Skipped lists skills already applied at the requested version
	Skipped []string

	// Merge is the validated package.json / .env.example plan
	Merge *structured.Plan

	// Structured reports what the merge changed (nil if DryRun)
	Structured *structured.CommitResult

	// BaseCaptured is true when this run had to capture the base snapshot
	BaseCaptured bool
}

// AppliedSkillInfo summarizes one applied skill.
type AppliedSkillInfo struct {
	Skill   string
	Version string

	// Written counts files whose content changed
	Written int

	// Unchanged counts files that already held the skill's content
	Unchanged int
}

// CleanResult represents the result of a clean.
type CleanResult struct {
	// Skills lists the skill ids that were removed from the ledger
	Skills []string

	// Deleted lists added paths that were removed
	Deleted []string

	// Restored lists modified paths restored from the base snapshot
	Restored []string

	// Reinstalled is true when package.json changed and the installer ran
	Reinstalled bool

	// Warnings holds non-fatal failures (*RestoreError and others)
	Warnings []error

	// DryRun indicates nothing was changed
	DryRun bool
}

// StatusResult represents the current project status.
type StatusResult struct {
	// Root is the project root
	Root string

	// CoreVersion is the project version recorded at init
	CoreVersion string

	// BaseFiles counts the files in the base snapshot
	BaseFiles int

	// Skills lists applied skills in ledger order
	Skills []SkillStatus

	// PathRemap is the logical→physical path table
	PathRemap map[string]string
}

// SkillStatus describes one applied skill.
type SkillStatus struct {
	Skill     string
	Version   string
	AppliedAt time.Time

	// Files reports drift per recorded path
	Files []FileStatus
}

// FileStatus describes a recorded file's current state.
type FileStatus struct {
	Path  string
	State string
}

// File states reported by Status.
const (
	FileOK       = "ok"
	FileModified = "modified"
	FileMissing  = "missing"
)

// Drifted reports whether any recorded file no longer matches.
func (s SkillStatus) Drifted() bool {
	for _, f := range s.Files {
		if f.State != FileOK {
			return true
		}
	}
	return false
}

// MatrixResult is the CI overlap matrix.
type MatrixResult struct {
	// Skills lists every discovered skill id in discovery order
	Skills []string `json:"skills"`

	// Entries lists every overlapping pair
	Entries []overlap.Entry `json:"entries"`
}
