package state

import (
	"fmt"
	"time"
)

// SystemVersion is stamped into every ledger this build writes.
const SystemVersion = "0.1.0"

// State is the persisted ledger of applied skills.
type State struct {
	// SkillsSystemVersion is the ledger format version.
	SkillsSystemVersion string `yaml:"skills_system_version"`

	// CoreVersion is the version of the base application the ledger was started on.
	CoreVersion string `yaml:"core_version,omitempty"`

	// AppliedSkills lists skills in the order they were applied. A skill id
	// appears at most once.
	AppliedSkills []AppliedSkill `yaml:"applied_skills"`

	// PathRemap overrides logical manifest paths with physical project paths.
	PathRemap map[string]string `yaml:"path_remap,omitempty"`
}

// AppliedSkill records one applied skill.
type AppliedSkill struct {
	// Skill is the skill id from the manifest.
	Skill string `yaml:"skill"`

	// Version is the manifest version that was applied.
	Version string `yaml:"version"`

	// AppliedAt is when the skill was recorded.
	AppliedAt time.Time `yaml:"applied_at"`

	// FileHashes maps each physical path the skill wrote to its content hash.
	FileHashes map[string]string `yaml:"file_hashes"`
}

// NewState creates an empty ledger.
func NewState(coreVersion string) *State {
	return &State{
		SkillsSystemVersion: SystemVersion,
		CoreVersion:         coreVersion,
		AppliedSkills:       []AppliedSkill{},
	}
}

// Record appends rec, or replaces the existing record for the same skill in place.
func (s *State) Record(rec AppliedSkill) {
	if rec.FileHashes == nil {
		rec.FileHashes = map[string]string{}
	}
	for i := range s.AppliedSkills {
		if s.AppliedSkills[i].Skill == rec.Skill {
			s.AppliedSkills[i] = rec
			return
		}
	}
	s.AppliedSkills = append(s.AppliedSkills, rec)
}

// Find returns the record for skill.
func (s *State) Find(skill string) (AppliedSkill, bool) {
	for _, rec := range s.AppliedSkills {
		if rec.Skill == skill {
			return rec, true
		}
	}
	return AppliedSkill{}, false
}

// IsApplied reports whether skill is recorded at exactly version.
func (s *State) IsApplied(skill, version string) bool {
	rec, ok := s.Find(skill)
	return ok && rec.Version == version
}

// SkillIDs returns the applied skill ids in ledger order.
func (s *State) SkillIDs() []string {
	ids := make([]string, len(s.AppliedSkills))
	for i, rec := range s.AppliedSkills {
		ids[i] = rec.Skill
	}
	return ids
}

// Reset clears every applied skill. The path remap table is kept: it
// describes the project layout, not skill state.
func (s *State) Reset() {
	s.AppliedSkills = []AppliedSkill{}
}

// Validate checks ledger invariants.
func (s *State) Validate() error {
	seen := make(map[string]bool, len(s.AppliedSkills))
	for i, rec := range s.AppliedSkills {
		if rec.Skill == "" {
			return fmt.Errorf("applied_skills[%d]: empty skill id", i)
		}
		if seen[rec.Skill] {
			return fmt.Errorf("applied_skills[%d]: skill %q recorded more than once", i, rec.Skill)
		}
		seen[rec.Skill] = true
	}
	return nil
}
