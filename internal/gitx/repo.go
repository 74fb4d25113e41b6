package gitx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrNotGitRepo is returned when no enclosing git repository is found.
var ErrNotGitRepo = errors.New("not in a git repository")

// DefaultTimeout bounds every git invocation unless overridden.
const DefaultTimeout = 30 * time.Second

// GitRepo provides an abstraction for git repository operations.
type GitRepo interface {
	// Discover finds the git repository root starting from cwd.
	Discover(cwd string) (root string, err error)

	// RelPath computes the relative path from repo root to the given absolute path.
	RelPath(root, absPath string) (string, error)

	// HasUncommittedChanges reports whether any of paths differ from HEAD.
	HasUncommittedChanges(ctx context.Context, root string, paths []string) (bool, error)

	// ChangedFiles lists paths under paths whose working tree content differs
	// from HEAD, relative to the repository root.
	ChangedFiles(ctx context.Context, root string, paths []string) ([]string, error)

	// ListTree lists every file under path at ref, as slash-separated paths
	// relative to the repository root. A file path lists only itself.
	ListTree(ctx context.Context, root, ref, path string) ([]string, error)

	// Show returns the content of path at ref.
	Show(ctx context.Context, root, ref, path string) ([]byte, error)
}

// RealGitRepo implements GitRepo using actual git commands.
type RealGitRepo struct {
	timeout time.Duration
}

// NewRealGitRepo creates a new RealGitRepo. A non-positive timeout selects
// DefaultTimeout.
func NewRealGitRepo(timeout time.Duration) *RealGitRepo {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &RealGitRepo{timeout: timeout}
}

// Discover finds the git repository root by walking up from cwd looking for .git.
func (g *RealGitRepo) Discover(cwd string) (string, error) {
	absPath, err := filepath.Abs(cwd)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	current := absPath
	for {
		gitDir := filepath.Join(current, ".git")
		if info, err := os.Stat(gitDir); err == nil {
			// .git can be a directory or a file (for worktrees/submodules)
			if info.IsDir() || info.Mode().IsRegular() {
				return current, nil
			}
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", ErrNotGitRepo
		}
		current = parent
	}
}

// RelPath computes the relative path from repo root to the given absolute path.
func (g *RealGitRepo) RelPath(root, absPath string) (string, error) {
	return relPath(root, absPath)
}

// HasUncommittedChanges runs git diff --quiet HEAD against paths.
func (g *RealGitRepo) HasUncommittedChanges(ctx context.Context, root string, paths []string) (bool, error) {
	if err := g.checkWorkTree(ctx, root); err != nil {
		return false, err
	}

	args := append([]string{"diff", "--quiet", "HEAD", "--"}, paths...)

	_, err := g.run(ctx, root, args...)
	if err == nil {
		return false, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return true, nil
	}
	return false, err
}

// ChangedFiles runs git diff --name-only HEAD against paths.
func (g *RealGitRepo) ChangedFiles(ctx context.Context, root string, paths []string) ([]string, error) {
	if err := g.checkWorkTree(ctx, root); err != nil {
		return nil, err
	}

	args := append([]string{"diff", "--name-only", "HEAD", "--"}, paths...)

	out, err := g.run(ctx, root, args...)
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// ListTree runs git ls-tree -r --name-only at ref.
func (g *RealGitRepo) ListTree(ctx context.Context, root, ref, path string) ([]string, error) {
	out, err := g.run(ctx, root, "ls-tree", "-r", "--name-only", ref, "--", path)
	if err != nil {
		return nil, err
	}

	return splitLines(out), nil
}

// Show runs git show ref:path.
func (g *RealGitRepo) Show(ctx context.Context, root, ref, path string) ([]byte, error) {
	return g.run(ctx, root, "show", ref+":"+path)
}

// checkWorkTree returns ErrNotGitRepo unless root is inside a work tree.
// Outside one, git diff falls back to comparing paths on disk and exits with
// usage errors instead of failing cleanly.
func (g *RealGitRepo) checkWorkTree(ctx context.Context, root string) error {
	out, err := g.run(ctx, root, "rev-parse", "--is-inside-work-tree")
	if err != nil {
		return err
	}
	if strings.TrimSpace(string(out)) != "true" {
		return fmt.Errorf("git rev-parse: %w", ErrNotGitRepo)
	}
	return nil
}

func (g *RealGitRepo) run(ctx context.Context, root string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = root
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("git %s: %w", args[0], ctx.Err())
		}
		msg := strings.TrimSpace(stderr.String())
		if strings.Contains(strings.ToLower(msg), "not a git repository") {
			return nil, fmt.Errorf("git %s: %w", args[0], ErrNotGitRepo)
		}
		if msg != "" {
			return nil, fmt.Errorf("git %s: %s: %w", args[0], msg, err)
		}
		return nil, fmt.Errorf("git %s: %w", args[0], err)
	}

	return stdout.Bytes(), nil
}

func splitLines(out []byte) []string {
	var lines []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	sort.Strings(lines)
	return lines
}

func relPath(root, absPath string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute root: %w", err)
	}

	absTarget, err := filepath.Abs(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute target: %w", err)
	}

	rel, err := filepath.Rel(absRoot, absTarget)
	if err != nil {
		return "", fmt.Errorf("failed to compute relative path: %w", err)
	}

	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path is outside repository")
	}

	return rel, nil
}

// FakeGitRepo implements GitRepo with predetermined values for testing.
type FakeGitRepo struct {
	root    string
	changed []string
	refs    map[string]map[string][]byte
	err     error
}

// NewFakeGitRepo creates a new FakeGitRepo rooted at root.
func NewFakeGitRepo(root string) *FakeGitRepo {
	return &FakeGitRepo{
		root: root,
		refs: make(map[string]map[string][]byte),
	}
}

// SetError sets an error to be returned by all methods.
func (g *FakeGitRepo) SetError(err error) {
	g.err = err
}

// SetChanged sets the paths ChangedFiles reports. HasUncommittedChanges is
// true while the list is non-empty.
func (g *FakeGitRepo) SetChanged(paths ...string) {
	g.changed = paths
}

// SetFile registers content for path at ref.
func (g *FakeGitRepo) SetFile(ref, path string, content []byte) {
	if g.refs[ref] == nil {
		g.refs[ref] = make(map[string][]byte)
	}
	g.refs[ref][path] = content
}

// Discover returns the predetermined root.
func (g *FakeGitRepo) Discover(cwd string) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return g.root, nil
}

// RelPath computes the relative path (works like real implementation).
func (g *FakeGitRepo) RelPath(root, absPath string) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return relPath(root, absPath)
}

// HasUncommittedChanges reports whether SetChanged registered any path.
func (g *FakeGitRepo) HasUncommittedChanges(ctx context.Context, root string, paths []string) (bool, error) {
	if g.err != nil {
		return false, g.err
	}
	return len(g.changed) > 0, nil
}

// ChangedFiles returns the paths registered with SetChanged.
func (g *FakeGitRepo) ChangedFiles(ctx context.Context, root string, paths []string) ([]string, error) {
	if g.err != nil {
		return nil, g.err
	}
	return append([]string(nil), g.changed...), nil
}

// ListTree lists registered files at ref equal to or under path.
func (g *FakeGitRepo) ListTree(ctx context.Context, root, ref, path string) ([]string, error) {
	if g.err != nil {
		return nil, g.err
	}
	files, ok := g.refs[ref]
	if !ok {
		return nil, fmt.Errorf("git ls-tree: unknown revision %q", ref)
	}

	prefix := strings.TrimSuffix(path, "/") + "/"
	var out []string
	for p := range files {
		if p == path || strings.HasPrefix(p, prefix) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Show returns the registered content of path at ref.
func (g *FakeGitRepo) Show(ctx context.Context, root, ref, path string) ([]byte, error) {
	if g.err != nil {
		return nil, g.err
	}
	content, ok := g.refs[ref][path]
	if !ok {
		return nil, fmt.Errorf("git show: path %q does not exist in %q", path, ref)
	}
	return content, nil
}
