package snapshot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/danieljhkim/skillctl/internal/fsops"
	"github.com/danieljhkim/skillctl/internal/gitx"
)

// setupProject creates a project tree with files under src/ and a package.json.
func setupProject(t *testing.T) (root string, base *Base) {
	t.Helper()

	root = t.TempDir()
	for rel, content := range map[string]string{
		"src/index.ts":      "main\n",
		"src/lib/config.ts": "config\n",
		"package.json":      "{}\n",
		"docs/readme.md":    "not captured\n",
	} {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	return root, New(fsops.NewRealFS(), filepath.Join(root, ".nanoclaw", "base"))
}

func TestCapture(t *testing.T) {
	root, base := setupProject(t)

	result, err := base.Capture(root, []string{"src/", "container/", "package.json"})
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}

	wantFiles := []string{"package.json", "src/index.ts", "src/lib/config.ts"}
	if !reflect.DeepEqual(result.Files, wantFiles) {
		t.Errorf("Files = %v, want %v", result.Files, wantFiles)
	}
	if !reflect.DeepEqual(result.Missing, []string{"container/"}) {
		t.Errorf("Missing = %v, want [container/]", result.Missing)
	}

	content, err := base.Read("src/lib/config.ts")
	if err != nil || string(content) != "config\n" {
		t.Errorf("Read() = %q, %v", content, err)
	}
	if has, _ := base.Has("docs/readme.md"); has {
		t.Error("docs/ should not be captured")
	}
	if _, err := base.Read("src/absent.ts"); !errors.Is(err, ErrNotInBase) {
		t.Errorf("Read(absent) error = %v, want ErrNotInBase", err)
	}
}

func TestCapture_ReplacesPreviousSnapshot(t *testing.T) {
	root, base := setupProject(t)

	if _, err := base.Capture(root, []string{"src/"}); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(root, "src", "index.ts")); err != nil {
		t.Fatal(err)
	}
	if _, err := base.Capture(root, []string{"src/"}); err != nil {
		t.Fatal(err)
	}

	if has, _ := base.Has("src/index.ts"); has {
		t.Error("re-capture should drop files no longer in the project")
	}
	if exists, _ := fsops.NewRealFS().Exists(base.Dir() + ".staging"); exists {
		t.Error("staging directory left behind")
	}
}

func TestCapture_InvalidIncludeKeepsOldSnapshot(t *testing.T) {
	root, base := setupProject(t)

	if _, err := base.Capture(root, []string{"src/"}); err != nil {
		t.Fatal(err)
	}
	if _, err := base.Capture(root, []string{"../outside"}); err == nil {
		t.Fatal("Capture() with an escaping include should fail")
	}

	if has, _ := base.Has("src/index.ts"); !has {
		t.Error("failed capture must leave the previous snapshot intact")
	}
}

func TestCaptureRef(t *testing.T) {
	root, base := setupProject(t)

	git := gitx.NewFakeGitRepo(root)
	git.SetFile("upstream/main", "src/index.ts", []byte("upstream main\n"))
	git.SetFile("upstream/main", "src/new.ts", []byte("new\n"))
	git.SetFile("upstream/main", "package.json", []byte(`{"name":"up"}`))

	result, err := base.CaptureRef(context.Background(), git, root, "upstream/main", []string{"src/", "package.json", "container/"})
	if err != nil {
		t.Fatalf("CaptureRef() error = %v", err)
	}

	if want := []string{"package.json", "src/index.ts", "src/new.ts"}; !reflect.DeepEqual(result.Files, want) {
		t.Errorf("Files = %v, want %v", result.Files, want)
	}
	content, _ := base.Read("src/index.ts")
	if string(content) != "upstream main\n" {
		t.Errorf("base src/index.ts = %q, want upstream content", content)
	}

	working, _ := os.ReadFile(filepath.Join(root, "src", "index.ts"))
	if string(working) != "main\n" {
		t.Error("CaptureRef() must not touch the working tree")
	}
}

func TestFiles_NoBase(t *testing.T) {
	base := New(fsops.NewRealFS(), filepath.Join(t.TempDir(), "base"))

	if _, err := base.Files(); !errors.Is(err, ErrNoBase) {
		t.Errorf("Files() error = %v, want ErrNoBase", err)
	}
}
