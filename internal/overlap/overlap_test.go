package overlap

import (
	"reflect"
	"strings"
	"testing"

	"github.com/danieljhkim/skillctl/internal/manifest"
)

func m(id string, modifies []string, opts ...func(*manifest.Manifest)) *manifest.Manifest {
	mf := &manifest.Manifest{
		Skill:            id,
		Name:             "add-" + id,
		Version:          "1.0.0",
		Adds:             []string{},
		Modifies:         modifies,
		Conflicts:        []string{},
		Depends:          []string{},
		IncompatibleWith: []string{},
	}
	for _, opt := range opts {
		opt(mf)
	}
	return mf
}

func dependsOn(ids ...string) func(*manifest.Manifest) {
	return func(mf *manifest.Manifest) { mf.Depends = ids }
}

func npm(deps map[string]string) func(*manifest.Manifest) {
	return func(mf *manifest.Manifest) { mf.Structured = &manifest.Structured{NpmDependencies: deps} }
}

func TestCompute_SharedModifies(t *testing.T) {
	entries := Compute([]*manifest.Manifest{
		m("telegram", []string{"src/config.ts", "src/index.ts"}),
		m("discord", []string{"src/config.ts", "src/router.ts"}),
	})

	if len(entries) != 1 {
		t.Fatalf("Compute() = %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Skills != [2]string{"telegram", "discord"} || e.Dirs != [2]string{"add-telegram", "add-discord"} {
		t.Errorf("entry = %+v", e)
	}
	if e.Reason != "shared modifies: src/config.ts" {
		t.Errorf("Reason = %q", e.Reason)
	}
}

func TestCompute_NoOverlap(t *testing.T) {
	entries := Compute([]*manifest.Manifest{
		m("alpha", []string{"src/alpha-config.ts"}),
		m("beta", []string{"src/beta-config.ts"}),
	})
	if len(entries) != 0 {
		t.Errorf("Compute() = %+v, want none", entries)
	}
}

func TestCompute_DependencyFirst(t *testing.T) {
	entries := Compute([]*manifest.Manifest{
		m("dependent", []string{"src/index.ts"}, dependsOn("middle")),
		m("middle", []string{"src/other.ts"}, dependsOn("base")),
		m("base", []string{"src/index.ts"}),
	})

	if len(entries) != 1 {
		t.Fatalf("Compute() = %+v, want 1 entry", entries)
	}
	if entries[0].Skills != [2]string{"base", "dependent"} {
		t.Errorf("Skills = %v, want base before dependent", entries[0].Skills)
	}
}

func TestCompute_BothReasons(t *testing.T) {
	entries := Compute([]*manifest.Manifest{
		m("a", []string{"src/config.ts"}, npm(map[string]string{"zod": "^3.0.0", "pino": "^9.0.0"})),
		m("b", []string{"src/config.ts"}, npm(map[string]string{"zod": "^3.1.0"})),
	})

	if len(entries) != 1 {
		t.Fatalf("Compute() = %+v, want 1 entry", entries)
	}
	want := "shared modifies: src/config.ts; shared npm packages: zod"
	if entries[0].Reason != want {
		t.Errorf("Reason = %q, want %q", entries[0].Reason, want)
	}
}

func TestCompute_ExcludedPairsOmitted(t *testing.T) {
	excl := m("whatsapp", []string{"src/config.ts"}, func(mf *manifest.Manifest) {
		mf.IncompatibleWith = []string{"signal"}
	})
	entries := Compute([]*manifest.Manifest{
		excl,
		m("signal", []string{"src/config.ts"}),
		m("slack", []string{"src/config.ts"}),
	})

	var pairs []string
	for _, e := range entries {
		pairs = append(pairs, strings.Join(e.Skills[:], "+"))
	}
	want := []string{"whatsapp+slack", "signal+slack"}
	if !reflect.DeepEqual(pairs, want) {
		t.Errorf("pairs = %v, want %v", pairs, want)
	}
}
