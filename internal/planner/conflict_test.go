package planner

import (
	"testing"

	"github.com/danieljhkim/skillctl/internal/hash"
	"github.com/danieljhkim/skillctl/internal/state"
)

func TestConflictChecker_CheckModify(t *testing.T) {
	hasher := hash.NewFakeHasher()
	ledger := state.NewState("")
	ledger.Record(state.AppliedSkill{
		Skill:      "owner",
		Version:    "1.0.0",
		FileHashes: map[string]string{"a.ts": hasher.HashBytes([]byte("owned"))},
	})
	checker := NewConflictChecker(hasher, ledger, false)

	tests := []struct {
		name         string
		current      string
		exists       bool
		pre          string
		hasPre       bool
		wantNoop     bool
		wantConflict bool
	}{
		{name: "matches pre-image", current: "base", exists: true, pre: "base", hasPre: true},
		{name: "matches incoming", current: "new", exists: true, pre: "base", hasPre: true, wantNoop: true},
		{name: "new file", exists: false, hasPre: false},
		{name: "owned by ledger", current: "owned", exists: true, pre: "base", hasPre: true},
		{name: "deleted from project", exists: false, pre: "base", hasPre: true, wantConflict: true},
		{name: "untracked file", current: "x", exists: true, wantConflict: true},
		{name: "edited", current: "edited", exists: true, pre: "base", hasPre: true, wantConflict: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			noop, conflict := checker.CheckModify("a.ts", []byte(tt.current), tt.exists, []byte(tt.pre), tt.hasPre, []byte("new"))
			if (conflict != nil) != tt.wantConflict {
				t.Fatalf("conflict = %+v, want %v", conflict, tt.wantConflict)
			}
			if noop != tt.wantNoop {
				t.Errorf("noop = %v, want %v", noop, tt.wantNoop)
			}
		})
	}
}

func TestConflictChecker_Force(t *testing.T) {
	checker := NewConflictChecker(hash.NewFakeHasher(), nil, true)

	if _, conflict := checker.CheckAdd("s", "a.ts", []byte("mine"), true, []byte("theirs")); conflict != nil {
		t.Errorf("force should allow overwriting an add: %+v", conflict)
	}
	if _, conflict := checker.CheckModify("a.ts", []byte("mine"), true, []byte("base"), true, []byte("theirs")); conflict != nil {
		t.Errorf("force should allow overwriting a modify: %+v", conflict)
	}
}

func TestConflictChecker_IsOwned(t *testing.T) {
	hasher := hash.NewFakeHasher()
	ledger := state.NewState("")
	ledger.Record(state.AppliedSkill{Skill: "s", Version: "1.0.0", FileHashes: map[string]string{"a.ts": hasher.HashBytes([]byte("x"))}})
	checker := NewConflictChecker(hasher, ledger, false)

	if !checker.IsOwned("a.ts", []byte("x")) {
		t.Error("recorded content should be owned")
	}
	if checker.IsOwned("a.ts", []byte("y")) || checker.IsOwned("b.ts", []byte("x")) {
		t.Error("other content or paths must not be owned")
	}
}

func TestConflictChecker_CheckAddOwnership(t *testing.T) {
	hasher := hash.NewFakeHasher()
	ledger := state.NewState("")
	ledger.Record(state.AppliedSkill{
		Skill:      "one",
		Version:    "1.0.0",
		FileHashes: map[string]string{"src/shared.ts": hasher.HashBytes([]byte("ONE"))},
	})
	checker := NewConflictChecker(hasher, ledger, false)

	tests := []struct {
		name         string
		skill        string
		current      string
		wantConflict bool
	}{
		{name: "same skill upgrades its own file", skill: "one", current: "ONE"},
		{name: "other skill over a recorded add", skill: "two", current: "ONE", wantConflict: true},
		{name: "same skill over foreign content", skill: "one", current: "edited", wantConflict: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, conflict := checker.CheckAdd(tt.skill, "src/shared.ts", []byte(tt.current), true, []byte("TWO"))
			if (conflict != nil) != tt.wantConflict {
				t.Errorf("conflict = %+v, want %v", conflict, tt.wantConflict)
			}
		})
	}

	if !checker.OwnedBy("one", "src/shared.ts", []byte("ONE")) || checker.OwnedBy("two", "src/shared.ts", []byte("ONE")) {
		t.Error("OwnedBy should only match the recording skill")
	}
}
