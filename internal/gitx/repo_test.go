package gitx

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"testing"
)

// setupGitRepo creates a temporary git repository for testing.
func setupGitRepo(t *testing.T) string {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	dir := t.TempDir()
	gitCmd(t, dir, "init", "-q")
	gitCmd(t, dir, "config", "user.email", "test@example.com")
	gitCmd(t, dir, "config", "user.name", "Test User")
	gitCmd(t, dir, "config", "commit.gpgsign", "false")

	return dir
}

func gitCmd(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v failed: %v\n%s", args, err, out)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// commitFixture commits src/index.ts, src/lib/util.ts and package.json.
func commitFixture(t *testing.T) string {
	t.Helper()
	dir := setupGitRepo(t)
	writeFile(t, filepath.Join(dir, "src", "index.ts"), "export {}\n")
	writeFile(t, filepath.Join(dir, "src", "lib", "util.ts"), "export const x = 1\n")
	writeFile(t, filepath.Join(dir, "package.json"), "{}\n")
	gitCmd(t, dir, "add", "-A")
	gitCmd(t, dir, "commit", "-q", "-m", "init")
	return dir
}

func TestRealGitRepo_Discover(t *testing.T) {
	repoDir := setupGitRepo(t)
	nested := filepath.Join(repoDir, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	g := NewRealGitRepo(0)

	root, err := g.Discover(nested)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	want, _ := filepath.EvalSymlinks(repoDir)
	got, _ := filepath.EvalSymlinks(root)
	if got != want {
		t.Errorf("Discover() = %q, want %q", got, want)
	}
}

func TestRealGitRepo_HasUncommittedChanges(t *testing.T) {
	dir := commitFixture(t)
	g := NewRealGitRepo(0)
	ctx := context.Background()

	dirty, err := g.HasUncommittedChanges(ctx, dir, []string{"src/"})
	if err != nil || dirty {
		t.Fatalf("clean tree: HasUncommittedChanges() = %v, %v", dirty, err)
	}

	writeFile(t, filepath.Join(dir, "src", "index.ts"), "changed\n")

	dirty, err = g.HasUncommittedChanges(ctx, dir, []string{"src/"})
	if err != nil || !dirty {
		t.Errorf("modified tree: HasUncommittedChanges() = %v, %v", dirty, err)
	}

	dirty, err = g.HasUncommittedChanges(ctx, dir, []string{"package.json"})
	if err != nil || dirty {
		t.Errorf("unrelated path: HasUncommittedChanges() = %v, %v", dirty, err)
	}

	changed, err := g.ChangedFiles(ctx, dir, []string{"src/", "package.json"})
	if err != nil || !reflect.DeepEqual(changed, []string{"src/index.ts"}) {
		t.Errorf("ChangedFiles() = %v, %v", changed, err)
	}
}

func TestRealGitRepo_NotARepository(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	dir := t.TempDir()
	t.Setenv("GIT_CEILING_DIRECTORIES", filepath.Dir(dir))

	g := NewRealGitRepo(0)
	ctx := context.Background()

	dirty, err := g.HasUncommittedChanges(ctx, dir, []string{"src/"})
	if !errors.Is(err, ErrNotGitRepo) {
		t.Errorf("HasUncommittedChanges() = %v, %v; want ErrNotGitRepo", dirty, err)
	}
	if _, err := g.ChangedFiles(ctx, dir, []string{"src/"}); !errors.Is(err, ErrNotGitRepo) {
		t.Errorf("ChangedFiles() error = %v, want ErrNotGitRepo", err)
	}
	if _, err := g.ListTree(ctx, dir, "HEAD", "src/"); !errors.Is(err, ErrNotGitRepo) {
		t.Errorf("ListTree() error = %v, want ErrNotGitRepo", err)
	}
}

func TestRealGitRepo_ListTreeAndShow(t *testing.T) {
	dir := commitFixture(t)
	g := NewRealGitRepo(0)
	ctx := context.Background()

	files, err := g.ListTree(ctx, dir, "HEAD", "src/")
	if err != nil {
		t.Fatalf("ListTree() error = %v", err)
	}
	if want := []string{"src/index.ts", "src/lib/util.ts"}; !reflect.DeepEqual(files, want) {
		t.Errorf("ListTree(src/) = %v, want %v", files, want)
	}

	files, err = g.ListTree(ctx, dir, "HEAD", "package.json")
	if err != nil || !reflect.DeepEqual(files, []string{"package.json"}) {
		t.Errorf("ListTree(package.json) = %v, %v", files, err)
	}

	content, err := g.Show(ctx, dir, "HEAD", "src/lib/util.ts")
	if err != nil {
		t.Fatalf("Show() error = %v", err)
	}
	if string(content) != "export const x = 1\n" {
		t.Errorf("Show() = %q", content)
	}

	if _, err := g.Show(ctx, dir, "no-such-ref", "src/index.ts"); err == nil {
		t.Error("Show() at an unknown ref should fail")
	}
}

func TestRelPath(t *testing.T) {
	g := NewRealGitRepo(0)

	rel, err := g.RelPath("/repo", "/repo/src/index.ts")
	if err != nil || rel != filepath.Join("src", "index.ts") {
		t.Errorf("RelPath() = %q, %v", rel, err)
	}
	if _, err := g.RelPath("/repo", "/other/file"); err == nil {
		t.Error("RelPath() outside the repository should fail")
	}
	if rel, err := g.RelPath("/repo", "/repo/..foo"); err != nil || rel != "..foo" {
		t.Errorf("RelPath(..foo) = %q, %v", rel, err)
	}
}

func TestFakeGitRepo(t *testing.T) {
	g := NewFakeGitRepo("/repo")
	ctx := context.Background()

	g.SetFile("upstream/main", "src/a.ts", []byte("a"))
	g.SetFile("upstream/main", "src/sub/b.ts", []byte("b"))
	g.SetFile("upstream/main", "srcx/c.ts", []byte("c"))

	files, err := g.ListTree(ctx, "/repo", "upstream/main", "src/")
	if err != nil || !reflect.DeepEqual(files, []string{"src/a.ts", "src/sub/b.ts"}) {
		t.Errorf("ListTree() = %v, %v", files, err)
	}
	if _, err := g.ListTree(ctx, "/repo", "missing", "src/"); err == nil {
		t.Error("ListTree() at an unregistered ref should fail")
	}

	g.SetChanged("src/index.ts")
	if dirty, _ := g.HasUncommittedChanges(ctx, "/repo", nil); !dirty {
		t.Error("SetChanged() not reflected")
	}
	if changed, _ := g.ChangedFiles(ctx, "/repo", nil); !reflect.DeepEqual(changed, []string{"src/index.ts"}) {
		t.Errorf("ChangedFiles() = %v", changed)
	}

	boom := errors.New("boom")
	g.SetError(boom)
	if _, err := g.Discover("/repo"); !errors.Is(err, boom) {
		t.Errorf("Discover() error = %v, want %v", err, boom)
	}
}
