package config

import (
	"path/filepath"
)

// Paths contains all the filesystem paths used by skillctl for one project.
type Paths struct {
	// Root is the project root.
	Root string

	// Skills is the directory containing one directory per skill.
	Skills string

	// State is the skillctl state directory (default: <root>/.nanoclaw).
	State string

	// StateFile is the applied-skills ledger.
	StateFile string

	// Base is the base snapshot directory.
	Base string

	// Installed is the installed-skills declaration.
	Installed string

	// Lock is the process lock file held during apply and clean.
	Lock string

	// BaseIncludes lists the project paths captured in the base snapshot.
	BaseIncludes []string
}

// NewPaths derives every location from the project root.
func NewPaths(root string, cfg *Config) *Paths {
	state := filepath.Join(root, filepath.FromSlash(cfg.StateDir))

	return &Paths{
		Root:         root,
		Skills:       filepath.Join(root, filepath.FromSlash(cfg.SkillsDir)),
		State:        state,
		StateFile:    filepath.Join(state, "state.yaml"),
		Base:         filepath.Join(state, "base"),
		Installed:    filepath.Join(state, "installed-skills.yaml"),
		Lock:         filepath.Join(state, "lock"),
		BaseIncludes: append([]string(nil), cfg.BaseIncludes...),
	}
}

// TrackedPaths returns the base includes as git pathspecs, for the
// uncommitted-changes check.
func (p *Paths) TrackedPaths() []string {
	return append([]string(nil), p.BaseIncludes...)
}
