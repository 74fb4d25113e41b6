package planner

import "github.com/danieljhkim/skillctl/internal/manifest"

// ApplyPlan represents a plan to apply an ordered batch of skills.
type ApplyPlan struct {
	// Skills holds one entry per planned skill, in application order. Skills
	// after a blocked skill are not planned.
	Skills []SkillPlan

	// Blocked is the id of the first skill with conflicts, or empty.
	Blocked string

	// virtual is the content every written path will hold once the runnable
	// skills are applied, keyed by physical relative path.
	virtual map[string][]byte
}

// SkillPlan is the dry-pass outcome for a single skill.
type SkillPlan struct {
	Manifest *manifest.Manifest `json:"-"`

	// Skill and Version identify the manifest.
	Skill   string
	Version string

	// Skipped is true when the ledger already holds this skill at this version.
	Skipped bool

	// Operations is the ordered list of file writes (adds, then modifies).
	Operations []Operation

	// Conflicts is a list of detected conflicts (empty if no conflicts).
	Conflicts []Conflict
}

// Operation represents a single file write.
type Operation struct {
	// Type is the operation type: "add" or "modify".
	Type string

	// SourcePath is the content file inside the skill directory (absolute).
	SourcePath string

	// DestPath is the destination in the project (absolute).
	DestPath string

	// RelPath is the physical path relative to the project root, after remapping.
	RelPath string

	// LogicalPath is the path as the manifest declares it.
	LogicalPath string

	// Noop is true when the destination already holds Content.
	Noop bool

	// Content is what the destination will hold.
	Content []byte `json:"-"`
}

// Conflict represents a conflict detected during planning.
type Conflict struct {
	// Path is the physical relative path where the conflict was detected.
	Path string

	// Reason is a human-readable explanation of the conflict.
	Reason string
}

// Operation type constants
const (
	OpAdd    = "add"
	OpModify = "modify"
)

// NewApplyPlan creates a new empty ApplyPlan.
func NewApplyPlan() *ApplyPlan {
	return &ApplyPlan{
		Skills:  []SkillPlan{},
		virtual: make(map[string][]byte),
	}
}

// HasConflicts returns true if the plan stopped on a conflicting skill.
func (p *ApplyPlan) HasConflicts() bool {
	return p.Blocked != ""
}

// Conflicts returns the blocked skill's conflicts.
func (p *ApplyPlan) Conflicts() []Conflict {
	for _, sp := range p.Skills {
		if sp.Skill == p.Blocked {
			return sp.Conflicts
		}
	}
	return nil
}

// Runnable returns the skills to write: planned, not skipped, and ahead of
// any blocked skill.
func (p *ApplyPlan) Runnable() []SkillPlan {
	var out []SkillPlan
	for _, sp := range p.Skills {
		if sp.Skill == p.Blocked {
			break
		}
		if !sp.Skipped {
			out = append(out, sp)
		}
	}
	return out
}

// Skipped returns the ids of skills that are already applied.
func (p *ApplyPlan) Skipped() []string {
	var out []string
	for _, sp := range p.Skills {
		if sp.Skipped {
			out = append(out, sp.Skill)
		}
	}
	return out
}

// Content returns what rel will hold after the runnable skills are applied,
// if any of them writes it.
func (p *ApplyPlan) Content(rel string) ([]byte, bool) {
	data, ok := p.virtual[rel]
	return data, ok
}

// addSkill appends a skill plan and, if it is clean, folds its writes into the
// virtual tree. A skill with conflicts blocks the plan.
func (p *ApplyPlan) addSkill(sp SkillPlan) {
	p.Skills = append(p.Skills, sp)
	if len(sp.Conflicts) > 0 {
		p.Blocked = sp.Skill
		return
	}
	for _, op := range sp.Operations {
		p.virtual[op.RelPath] = op.Content
	}
}
