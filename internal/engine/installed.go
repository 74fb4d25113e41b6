package engine

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// installedSkills is the installed-skills declaration document.
type installedSkills struct {
	Skills []string `yaml:"skills"`
}

// readInstalled returns the skills listed in the installed-skills declaration.
func (e *Engine) readInstalled() ([]string, error) {
	data, err := e.fs.ReadFile(e.paths.Installed)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoInstalledSkills, e.paths.Installed)
		}
		return nil, fmt.Errorf("failed to read installed skills: %w", err)
	}

	var doc installedSkills
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse installed skills %s: %w", e.paths.Installed, err)
	}
	for _, id := range doc.Skills {
		if err := e.fs.ValidateIdentifier(id); err != nil {
			return nil, fmt.Errorf("invalid entry %q in %s: %w", id, e.paths.Installed, err)
		}
	}
	return doc.Skills, nil
}

// addInstalled appends skill ids to the declaration, creating it if needed.
// Ids already listed keep their position.
func (e *Engine) addInstalled(ids []string) error {
	current, err := e.readInstalled()
	if err != nil && !errors.Is(err, ErrNoInstalledSkills) {
		return err
	}

	listed := make(map[string]bool, len(current))
	for _, id := range current {
		listed[id] = true
	}
	changed := err != nil
	for _, id := range ids {
		if !listed[id] {
			listed[id] = true
			current = append(current, id)
			changed = true
		}
	}
	if !changed {
		return nil
	}

	data, err := yaml.Marshal(&installedSkills{Skills: current})
	if err != nil {
		return fmt.Errorf("failed to marshal installed skills: %w", err)
	}
	if err := e.fs.AtomicWrite(e.paths.Installed, data, 0644); err != nil {
		return fmt.Errorf("failed to write installed skills: %w", err)
	}
	return nil
}
