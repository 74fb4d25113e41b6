// Package manifest loads and validates skill manifests.
//
// A skill is a directory containing a manifest.yaml document plus the content
// it contributes:
//
//	<skill>/manifest.yaml     declarative description
//	<skill>/add/<path>        files the skill adds to the project
//	<skill>/modify/<path>     whole-file replacements for existing files
//
// Manifests are only ever returned fully validated. A document that is missing
// a required field or carries a malformed one yields a *ValidationError naming
// the field, never a partially populated Manifest.
package manifest

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
)

// FileName is the manifest document name inside a skill directory.
const FileName = "manifest.yaml"

var (
	// ErrManifestNotFound indicates the skill directory or its manifest is missing.
	ErrManifestNotFound = errors.New("manifest not found")

	// ErrManifestInvalid indicates a manifest failed validation.
	ErrManifestInvalid = errors.New("manifest invalid")
)

// Manifest is a validated skill manifest.
type Manifest struct {
	Skill            string      `yaml:"skill" json:"skill"`
	Version          string      `yaml:"version" json:"version"`
	Description      string      `yaml:"description,omitempty" json:"description,omitempty"`
	CoreVersion      string      `yaml:"core_version,omitempty" json:"core_version,omitempty"`
	Adds             []string    `yaml:"adds" json:"adds"`
	Modifies         []string    `yaml:"modifies" json:"modifies"`
	Conflicts        []string    `yaml:"conflicts" json:"conflicts"`
	Depends          []string    `yaml:"depends" json:"depends"`
	IncompatibleWith []string    `yaml:"incompatible_with" json:"incompatible_with"`
	Structured       *Structured `yaml:"structured,omitempty" json:"structured,omitempty"`

	// Dir is the absolute skill directory the manifest was loaded from.
	Dir string `yaml:"-" json:"-"`

	// Name is the skill directory's base name. It often differs from Skill
	// (e.g. directory "add-telegram" for skill "telegram").
	Name string `yaml:"-" json:"-"`
}

// Structured holds additions that are merged rather than written as files.
type Structured struct {
	NpmDependencies map[string]string `yaml:"npm_dependencies,omitempty" json:"npm_dependencies,omitempty"`
	EnvAdditions    []string          `yaml:"env_additions,omitempty" json:"env_additions,omitempty"`
}

// ValidationError reports the field that made a manifest invalid.
type ValidationError struct {
	Dir    string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: field %q: %s", ErrManifestInvalid, e.Dir, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrManifestInvalid
}

// AddSource returns the path of the content the skill adds at relPath.
func (m *Manifest) AddSource(relPath string) string {
	return filepath.Join(m.Dir, "add", filepath.FromSlash(relPath))
}

// ModifySource returns the path of the replacement content for relPath.
func (m *Manifest) ModifySource(relPath string) string {
	return filepath.Join(m.Dir, "modify", filepath.FromSlash(relPath))
}

// Footprint returns adds followed by modifies.
func (m *Manifest) Footprint() []string {
	out := make([]string, 0, len(m.Adds)+len(m.Modifies))
	out = append(out, m.Adds...)
	return append(out, m.Modifies...)
}

// NpmDependencies returns the declared package ranges, or nil.
func (m *Manifest) NpmDependencies() map[string]string {
	if m.Structured == nil {
		return nil
	}
	return m.Structured.NpmDependencies
}

// NpmPackageNames returns the declared package names sorted.
func (m *Manifest) NpmPackageNames() []string {
	deps := m.NpmDependencies()
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EnvAdditions returns the declared environment variable names, or nil.
func (m *Manifest) EnvAdditions() []string {
	if m.Structured == nil {
		return nil
	}
	return m.Structured.EnvAdditions
}

// Label is the name used in user-facing output: "telegram (add-telegram)".
func (m *Manifest) Label() string {
	if m.Name == "" || m.Name == m.Skill {
		return m.Skill
	}
	return fmt.Sprintf("%s (%s)", m.Skill, m.Name)
}
