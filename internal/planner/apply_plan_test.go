package planner

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/danieljhkim/skillctl/internal/fsops"
	"github.com/danieljhkim/skillctl/internal/hash"
	"github.com/danieljhkim/skillctl/internal/manifest"
	"github.com/danieljhkim/skillctl/internal/pathremap"
	"github.com/danieljhkim/skillctl/internal/snapshot"
	"github.com/danieljhkim/skillctl/internal/state"
)

type fixture struct {
	root      string
	skillsDir string
	base      *snapshot.Base
	fs        fsops.FS
	hasher    hash.Hasher
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

// newFixture creates a project with src/config.ts and src/index.ts and
// captures the base snapshot.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	tmp := t.TempDir()
	f := &fixture{
		root:      filepath.Join(tmp, "project"),
		skillsDir: filepath.Join(tmp, "skills"),
		fs:        fsops.NewRealFS(),
		hasher:    hash.NewSHA256Hasher(),
	}
	writeFile(t, filepath.Join(f.root, "src", "config.ts"), "base config\n")
	writeFile(t, filepath.Join(f.root, "src", "index.ts"), "base index\n")

	f.base = snapshot.New(f.fs, filepath.Join(f.root, ".nanoclaw", "base"))
	if _, err := f.base.Capture(f.root, []string{"src/"}); err != nil {
		t.Fatal(err)
	}
	return f
}

// skill creates a skill directory whose add/modify content is the given map.
func (f *fixture) skill(t *testing.T, id string, adds, modifies map[string]string) *manifest.Manifest {
	t.Helper()
	m := &manifest.Manifest{
		Skill:   id,
		Version: "1.0.0",
		Dir:     filepath.Join(f.skillsDir, id),
		Name:    id,
	}
	for rel, content := range adds {
		m.Adds = append(m.Adds, rel)
		writeFile(t, m.AddSource(rel), content)
	}
	for rel, content := range modifies {
		m.Modifies = append(m.Modifies, rel)
		writeFile(t, m.ModifySource(rel), content)
	}
	return m
}

func (f *fixture) plan(t *testing.T, ordered []*manifest.Manifest, ledger *state.State, remap *pathremap.Remapper, force bool) *ApplyPlan {
	t.Helper()
	plan, err := BuildApplyPlan(ordered, ledger, f.root, f.base, remap, f.fs, f.hasher, force)
	if err != nil {
		t.Fatalf("BuildApplyPlan() error = %v", err)
	}
	return plan
}

func TestBuildApplyPlan_AddAndModify(t *testing.T) {
	f := newFixture(t)
	telegram := f.skill(t, "telegram",
		map[string]string{"src/channels/telegram.ts": "telegram\n"},
		map[string]string{"src/config.ts": "telegram config\n"},
	)

	plan := f.plan(t, []*manifest.Manifest{telegram}, state.NewState(""), nil, false)

	if plan.HasConflicts() {
		t.Fatalf("unexpected conflicts: %+v", plan.Conflicts())
	}
	runnable := plan.Runnable()
	if len(runnable) != 1 {
		t.Fatalf("Runnable() = %d skills, want 1", len(runnable))
	}

	ops := runnable[0].Operations
	if len(ops) != 2 {
		t.Fatalf("expected 2 operations, got %d", len(ops))
	}
	if ops[0].Type != OpAdd || ops[0].RelPath != "src/channels/telegram.ts" || ops[0].Noop {
		t.Errorf("add op = %+v", ops[0])
	}
	if ops[1].Type != OpModify || ops[1].DestPath != filepath.Join(f.root, "src", "config.ts") {
		t.Errorf("modify op = %+v", ops[1])
	}
	if content, ok := plan.Content("src/config.ts"); !ok || string(content) != "telegram config\n" {
		t.Errorf("Content(src/config.ts) = %q, %v", content, ok)
	}
}

func TestBuildApplyPlan_AddConflicts(t *testing.T) {
	tests := []struct {
		name         string
		existing     string
		wantNoop     bool
		wantConflict bool
	}{
		{name: "identical content is a no-op", existing: "telegram\n", wantNoop: true},
		{name: "different content conflicts", existing: "hand written\n", wantConflict: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			writeFile(t, filepath.Join(f.root, "src", "channels", "telegram.ts"), tt.existing)
			telegram := f.skill(t, "telegram", map[string]string{"src/channels/telegram.ts": "telegram\n"}, nil)

			plan := f.plan(t, []*manifest.Manifest{telegram}, state.NewState(""), nil, false)

			if plan.HasConflicts() != tt.wantConflict {
				t.Fatalf("HasConflicts() = %v, want %v", plan.HasConflicts(), tt.wantConflict)
			}
			if tt.wantConflict {
				if plan.Blocked != "telegram" || plan.Conflicts()[0].Path != "src/channels/telegram.ts" {
					t.Errorf("Blocked = %q, conflicts = %+v", plan.Blocked, plan.Conflicts())
				}
				return
			}
			if op := plan.Runnable()[0].Operations[0]; op.Noop != tt.wantNoop {
				t.Errorf("Noop = %v, want %v", op.Noop, tt.wantNoop)
			}
		})
	}
}

func TestBuildApplyPlan_StopsAtFirstConflictingSkill(t *testing.T) {
	f := newFixture(t)
	writeFile(t, filepath.Join(f.root, "src", "b.ts"), "user file\n")

	a := f.skill(t, "a", map[string]string{"src/a.ts": "a\n"}, nil)
	b := f.skill(t, "b", map[string]string{"src/b.ts": "b\n"}, nil)
	c := f.skill(t, "c", map[string]string{"src/c.ts": "c\n"}, nil)

	plan := f.plan(t, []*manifest.Manifest{a, b, c}, state.NewState(""), nil, false)

	if plan.Blocked != "b" {
		t.Fatalf("Blocked = %q, want b", plan.Blocked)
	}
	if len(plan.Skills) != 2 {
		t.Errorf("skills after the blocked one must not be planned, got %d", len(plan.Skills))
	}
	runnable := plan.Runnable()
	if len(runnable) != 1 || runnable[0].Skill != "a" {
		t.Errorf("Runnable() = %+v, want only a", runnable)
	}
	if _, ok := plan.Content("src/b.ts"); ok {
		t.Error("blocked skill writes must not enter the virtual tree")
	}
}

func TestBuildApplyPlan_ModifyPreImage(t *testing.T) {
	f := newFixture(t)
	ledger := state.NewState("")
	ledger.Record(state.AppliedSkill{
		Skill:      "discord",
		Version:    "1.0.0",
		FileHashes: map[string]string{"src/index.ts": f.hasher.HashBytes([]byte("discord index\n"))},
	})

	tests := []struct {
		name         string
		disk         string
		force        bool
		wantNoop     bool
		wantConflict bool
	}{
		{name: "disk matches base", disk: "base index\n"},
		{name: "disk already holds replacement", disk: "telegram index\n", wantNoop: true},
		{name: "disk holds an applied skill's output", disk: "discord index\n"},
		{name: "disk edited by hand", disk: "hand edit\n", wantConflict: true},
		{name: "disk edited by hand with force", disk: "hand edit\n", force: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writeFile(t, filepath.Join(f.root, "src", "index.ts"), tt.disk)
			telegram := f.skill(t, "telegram", nil, map[string]string{"src/index.ts": "telegram index\n"})

			plan := f.plan(t, []*manifest.Manifest{telegram}, ledger, nil, tt.force)

			if plan.HasConflicts() != tt.wantConflict {
				t.Fatalf("HasConflicts() = %v, want %v (%+v)", plan.HasConflicts(), tt.wantConflict, plan.Conflicts())
			}
			if !tt.wantConflict {
				if op := plan.Runnable()[0].Operations[0]; op.Noop != tt.wantNoop {
					t.Errorf("Noop = %v, want %v", op.Noop, tt.wantNoop)
				}
			}
		})
	}
}

func TestBuildApplyPlan_ChainedModifies(t *testing.T) {
	f := newFixture(t)
	first := f.skill(t, "first", nil, map[string]string{"src/config.ts": "first\n"})
	second := f.skill(t, "second", nil, map[string]string{"src/config.ts": "second\n"})

	plan := f.plan(t, []*manifest.Manifest{first, second}, state.NewState(""), nil, false)

	if plan.HasConflicts() {
		t.Fatalf("the second modify should take the first's output as its pre-image: %+v", plan.Conflicts())
	}
	if content, _ := plan.Content("src/config.ts"); string(content) != "second\n" {
		t.Errorf("final content = %q, want second", content)
	}
}

func TestBuildApplyPlan_SkipsAppliedVersion(t *testing.T) {
	f := newFixture(t)
	ledger := state.NewState("")
	ledger.Record(state.AppliedSkill{Skill: "telegram", Version: "1.0.0", AppliedAt: time.Now()})

	telegram := f.skill(t, "telegram", map[string]string{"src/t.ts": "t\n"}, nil)
	plan := f.plan(t, []*manifest.Manifest{telegram}, ledger, nil, false)

	if !reflect.DeepEqual(plan.Skipped(), []string{"telegram"}) || len(plan.Runnable()) != 0 {
		t.Errorf("Skipped() = %v, Runnable() = %v", plan.Skipped(), plan.Runnable())
	}

	telegram.Version = "1.1.0"
	plan = f.plan(t, []*manifest.Manifest{telegram}, ledger, nil, false)
	if len(plan.Skipped()) != 0 || len(plan.Runnable()) != 1 {
		t.Error("a different version must be planned again")
	}
}

func TestBuildApplyPlan_Remap(t *testing.T) {
	f := newFixture(t)
	writeFile(t, filepath.Join(f.root, "src", "main.ts"), "base main\n")
	if _, err := f.base.Capture(f.root, []string{"src/"}); err != nil {
		t.Fatal(err)
	}
	remap, err := pathremap.New(map[string]string{"src/index.ts": "src/main.ts"})
	if err != nil {
		t.Fatal(err)
	}

	telegram := f.skill(t, "telegram", nil, map[string]string{"src/index.ts": "telegram main\n"})
	plan := f.plan(t, []*manifest.Manifest{telegram}, state.NewState(""), remap, false)

	op := plan.Runnable()[0].Operations[0]
	if op.RelPath != "src/main.ts" || op.LogicalPath != "src/index.ts" {
		t.Errorf("op = %+v, want remapped destination", op)
	}
}

func TestBuildApplyPlan_MissingSourceContent(t *testing.T) {
	f := newFixture(t)
	broken := &manifest.Manifest{
		Skill:    "broken",
		Version:  "1.0.0",
		Dir:      filepath.Join(f.skillsDir, "broken"),
		Modifies: []string{"src/config.ts"},
	}

	_, err := BuildApplyPlan([]*manifest.Manifest{broken}, nil, f.root, f.base, nil, f.fs, f.hasher, false)
	if !errors.Is(err, manifest.ErrManifestInvalid) {
		t.Errorf("BuildApplyPlan() error = %v, want ErrManifestInvalid", err)
	}
}

func TestBuildApplyPlan_DestinationIsDirectory(t *testing.T) {
	f := newFixture(t)
	if err := os.MkdirAll(filepath.Join(f.root, "src", "channels"), 0755); err != nil {
		t.Fatal(err)
	}
	s := f.skill(t, "s", map[string]string{"src/channels": "oops\n"}, nil)

	plan := f.plan(t, []*manifest.Manifest{s}, nil, nil, false)
	if !plan.HasConflicts() {
		t.Error("writing over a directory should conflict")
	}
}

func TestBuildApplyPlan_ModifyOutsideBase(t *testing.T) {
	f := newFixture(t)
	writeFile(t, filepath.Join(f.root, "container", "Dockerfile"), "FROM node:20\n")
	chromium := f.skill(t, "chromium", nil, map[string]string{"container/Dockerfile": "FROM node:20\nRUN apt-get install chromium\n"})

	plan := f.plan(t, []*manifest.Manifest{chromium}, state.NewState(""), nil, false)

	if plan.HasConflicts() {
		t.Fatalf("a path the base doesn't hold should take the disk as its pre-image: %+v", plan.Conflicts())
	}
}
