package manifest

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/danieljhkim/skillctl/internal/fsops"
	"github.com/danieljhkim/skillctl/internal/semrange"
)

// Load reads and validates the manifest in dir.
func Load(fsys fsops.FS, dir string) (*Manifest, error) {
	data, err := fsys.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrManifestNotFound, dir)
		}
		return nil, fmt.Errorf("failed to read manifest in %s: %w", dir, err)
	}

	return Parse(data, dir)
}

// Parse validates a manifest document. dir is recorded on the result and used
// in error messages; it is not read.
func Parse(data []byte, dir string) (*Manifest, error) {
	invalid := func(field, format string, args ...any) error {
		return &ValidationError{Dir: dir, Field: field, Reason: fmt.Sprintf(format, args...)}
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, invalid("(document)", "malformed YAML: %v", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, invalid("(document)", "empty document")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, invalid("(document)", "expected a mapping at the top level")
	}

	fields := make(map[string]*yaml.Node, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i].Value
		if _, dup := fields[key]; dup {
			return nil, invalid(key, "declared more than once")
		}
		fields[key] = root.Content[i+1]
	}

	m := &Manifest{Dir: dir, Name: filepath.Base(dir)}
	var err error

	if m.Skill, err = scalarField(fields, "skill", true); err != nil {
		return nil, invalid("skill", "%v", err)
	}
	if err := fsops.ValidateIdentifier(m.Skill); err != nil {
		return nil, invalid("skill", "%v", err)
	}

	if m.Version, err = scalarField(fields, "version", true); err != nil {
		return nil, invalid("version", "%v", err)
	}
	if _, err := semrange.ParseVersion(m.Version); err != nil {
		return nil, invalid("version", "%v", err)
	}

	if m.Description, err = scalarField(fields, "description", false); err != nil {
		return nil, invalid("description", "%v", err)
	}
	if m.CoreVersion, err = scalarField(fields, "core_version", false); err != nil {
		return nil, invalid("core_version", "%v", err)
	}
	if m.CoreVersion != "" {
		if _, err := semrange.ParseVersion(m.CoreVersion); err != nil {
			return nil, invalid("core_version", "%v", err)
		}
	}

	for _, f := range []struct {
		name     string
		required bool
		dst      *[]string
	}{
		{"adds", true, &m.Adds},
		{"modifies", true, &m.Modifies},
		{"conflicts", false, &m.Conflicts},
		{"depends", false, &m.Depends},
		{"incompatible_with", false, &m.IncompatibleWith},
	} {
		if *f.dst, err = listField(fields, f.name, f.required); err != nil {
			return nil, invalid(f.name, "%v", err)
		}
	}

	for _, name := range []string{"adds", "modifies"} {
		paths := m.Adds
		if name == "modifies" {
			paths = m.Modifies
		}
		if err := validatePaths(paths); err != nil {
			return nil, invalid(name, "%v", err)
		}
	}
	inAdds := make(map[string]bool, len(m.Adds))
	for _, p := range m.Adds {
		inAdds[p] = true
	}
	for _, p := range m.Modifies {
		if inAdds[p] {
			return nil, invalid("modifies", "path %q is also listed under adds", p)
		}
	}

	for name, ids := range map[string][]string{
		"conflicts":         m.Conflicts,
		"depends":           m.Depends,
		"incompatible_with": m.IncompatibleWith,
	} {
		if err := validateIDs(ids); err != nil {
			return nil, invalid(name, "%v", err)
		}
	}
	for name, ids := range map[string][]string{"conflicts": m.Conflicts, "incompatible_with": m.IncompatibleWith} {
		for _, id := range ids {
			if id == m.Skill {
				return nil, invalid(name, "skill %q cannot exclude itself", id)
			}
		}
	}

	if node, ok := fields["structured"]; ok && !isNull(node) {
		var s Structured
		if node.Kind != yaml.MappingNode {
			return nil, invalid("structured", "expected a mapping")
		}
		if err := node.Decode(&s); err != nil {
			return nil, invalid("structured", "%v", err)
		}
		for pkg, spec := range s.NpmDependencies {
			r, err := semrange.ParseRange(spec)
			if err != nil {
				return nil, invalid("structured.npm_dependencies", "package %q: %v", pkg, err)
			}
			if r.IsEmpty() {
				return nil, invalid("structured.npm_dependencies", "package %q: range %q admits no version", pkg, spec)
			}
		}
		if err := validateIDs(s.EnvAdditions); err != nil {
			return nil, invalid("structured.env_additions", "%v", err)
		}
		m.Structured = &s
	}

	return m, nil
}

func isNull(node *yaml.Node) bool {
	return node.Kind == yaml.ScalarNode && node.Tag == "!!null"
}

func scalarField(fields map[string]*yaml.Node, name string, required bool) (string, error) {
	node, ok := fields[name]
	if !ok || isNull(node) {
		if required {
			return "", errors.New("required field is missing")
		}
		return "", nil
	}
	if node.Kind != yaml.ScalarNode {
		return "", errors.New("expected a string")
	}
	if required && node.Value == "" {
		return "", errors.New("must not be empty")
	}
	return node.Value, nil
}

// listField decodes a sequence of strings. Required lists may be empty but
// must be present; optional lists default to empty.
func listField(fields map[string]*yaml.Node, name string, required bool) ([]string, error) {
	node, ok := fields[name]
	if !ok || isNull(node) {
		if required {
			return nil, errors.New("required field is missing (use [] for none)")
		}
		return []string{}, nil
	}
	if node.Kind != yaml.SequenceNode {
		return nil, errors.New("expected a sequence")
	}

	out := make([]string, 0, len(node.Content))
	for _, item := range node.Content {
		if item.Kind != yaml.ScalarNode || isNull(item) {
			return nil, fmt.Errorf("item at line %d is not a string", item.Line)
		}
		out = append(out, item.Value)
	}
	return out, nil
}

func validatePaths(paths []string) error {
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		if err := fsops.ValidateRelPath(p); err != nil {
			return err
		}
		if path.Clean(p) != p {
			return fmt.Errorf("path %q is not in canonical form (want %q)", p, path.Clean(p))
		}
		if seen[p] {
			return fmt.Errorf("path %q listed more than once", p)
		}
		seen[p] = true
	}
	return nil
}

func validateIDs(ids []string) error {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if err := fsops.ValidateIdentifier(id); err != nil {
			return fmt.Errorf("%q: %w", id, err)
		}
		if seen[id] {
			return fmt.Errorf("%q listed more than once", id)
		}
		seen[id] = true
	}
	return nil
}
