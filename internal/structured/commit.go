package structured

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/danieljhkim/skillctl/internal/fsops"
	"github.com/danieljhkim/skillctl/internal/pkgmgr"
)

var prettyOptions = &pretty.Options{Indent: "  "}

// Merger writes merge plans to a project and runs the installer.
type Merger struct {
	fs        fsops.FS
	installer pkgmgr.Installer
}

// CommitResult reports what Commit changed.
type CommitResult struct {
	Changes   []Change
	EnvAdded  []string
	Installed bool
}

// NewMerger creates a new Merger.
func NewMerger(fs fsops.FS, installer pkgmgr.Installer) *Merger {
	return &Merger{fs: fs, installer: installer}
}

// Commit applies plan under projectRoot. The installer runs only when
// package.json changed.
func (m *Merger) Commit(ctx context.Context, projectRoot string, plan *Plan) (*CommitResult, error) {
	result := &CommitResult{}
	if plan.Empty() {
		return result, nil
	}

	if len(plan.Changes) > 0 {
		if err := m.writePackageJSON(projectRoot, plan.Changes); err != nil {
			return nil, err
		}
		result.Changes = plan.Changes
	}

	added, err := m.appendEnv(projectRoot, plan.EnvAdditions)
	if err != nil {
		return nil, err
	}
	result.EnvAdded = added

	if len(plan.Changes) > 0 {
		if err := m.installer.Install(ctx, projectRoot); err != nil {
			return result, err
		}
		result.Installed = true
	}

	return result, nil
}

// Restore puts package.json back to content and reinstalls if it differed.
func (m *Merger) Restore(ctx context.Context, projectRoot string, content []byte) (bool, error) {
	path := filepath.Join(projectRoot, PackageJSON)

	current, err := m.fs.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("failed to read %s: %w", PackageJSON, err)
	}
	if err == nil && bytes.Equal(current, content) {
		return false, nil
	}

	if err := m.fs.AtomicWrite(path, content, 0644); err != nil {
		return false, fmt.Errorf("failed to restore %s: %w", PackageJSON, err)
	}
	if err := m.installer.Install(ctx, projectRoot); err != nil {
		return true, err
	}
	return true, nil
}

func (m *Merger) writePackageJSON(projectRoot string, changes []Change) error {
	path := filepath.Join(projectRoot, PackageJSON)

	data, err := m.fs.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to read %s: %w", PackageJSON, err)
		}
		data = []byte("{}\n")
	}

	added := false
	for _, c := range changes {
		data, err = sjson.SetBytes(data, c.Section+"."+escapeKey(c.Package), c.To)
		if err != nil {
			return fmt.Errorf("failed to set %s in %s: %w", c.Package, PackageJSON, err)
		}
		if c.From == "" {
			added = true
		}
	}
	// New keys are appended inline; re-indent so the file stays readable.
	if added {
		data = pretty.PrettyOptions(data, prettyOptions)
	}

	if err := m.fs.AtomicWrite(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", PackageJSON, err)
	}
	return nil
}

// appendEnv adds NAME= lines for variables .env.example doesn't mention yet.
func (m *Merger) appendEnv(projectRoot string, names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}
	path := filepath.Join(projectRoot, EnvExample)

	data, err := m.fs.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read %s: %w", EnvExample, err)
	}

	present := make(map[string]bool)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if name, _, ok := strings.Cut(line, "="); ok {
			present[strings.TrimSpace(name)] = true
		}
	}

	var added []string
	var buf bytes.Buffer
	buf.Write(data)
	if len(data) > 0 && data[len(data)-1] != '\n' {
		buf.WriteByte('\n')
	}
	for _, name := range names {
		if present[name] {
			continue
		}
		present[name] = true
		added = append(added, name)
		buf.WriteString(name + "=\n")
	}
	if len(added) == 0 {
		return nil, nil
	}

	if err := m.fs.AtomicWrite(path, buf.Bytes(), 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", EnvExample, err)
	}
	return added, nil
}

// escapeKey escapes a package name for use as one gjson/sjson path component.
// Scoped names like @types/node and dotted names like socket.io need it.
func escapeKey(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
