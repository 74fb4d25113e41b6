// Package structured folds skill-declared package dependencies and
// environment variables into the project's package.json and .env.example.
//
// Raw manifests are never overwritten wholesale: package.json is edited key
// by key so unrelated fields and their order survive a merge.
package structured

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/danieljhkim/skillctl/internal/manifest"
	"github.com/danieljhkim/skillctl/internal/semrange"
)

const (
	// PackageJSON is the project's package manifest, relative to the root.
	PackageJSON = "package.json"

	// EnvExample is the documented environment file, relative to the root.
	EnvExample = ".env.example"

	sectionDependencies    = "dependencies"
	sectionDevDependencies = "devDependencies"

	projectOrigin = "package.json"
)

// ErrDependencyVersionConflict is returned when no single version of a package
// satisfies every declared range.
var ErrDependencyVersionConflict = errors.New("dependency version conflict")

// Requirement is one declared range and where it came from: a skill id or
// package.json.
type Requirement struct {
	Origin string `json:"origin"`
	Range  string `json:"range"`
}

// VersionConflictError names the package and every range that was declared.
type VersionConflictError struct {
	Package      string
	Requirements []Requirement
	Reason       string
}

func (e *VersionConflictError) Error() string {
	parts := make([]string, len(e.Requirements))
	for i, r := range e.Requirements {
		parts[i] = fmt.Sprintf("%s wants %q", r.Origin, r.Range)
	}
	msg := fmt.Sprintf("%v: %s: %s", ErrDependencyVersionConflict, e.Package, strings.Join(parts, ", "))
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

func (e *VersionConflictError) Unwrap() error { return ErrDependencyVersionConflict }

// Change is one package.json edit. From is empty when the package is new.
type Change struct {
	Package string `json:"package"`
	Section string `json:"section"`
	From    string `json:"from,omitempty"`
	To      string `json:"to"`
}

// Plan is the validated outcome of merging a batch of skills.
type Plan struct {
	Changes      []Change `json:"changes"`
	EnvAdditions []string `json:"env_additions"`
}

// Empty reports whether committing the plan would do nothing.
func (p *Plan) Empty() bool {
	return p == nil || (len(p.Changes) == 0 && len(p.EnvAdditions) == 0)
}

// Prepare merges the dependencies declared by skills into the project's
// package.json content (nil when the file doesn't exist) without writing.
func Prepare(pkgJSON []byte, skills []*manifest.Manifest) (*Plan, error) {
	existing, err := declaredDependencies(pkgJSON)
	if err != nil {
		return nil, err
	}

	declared := make(map[string][]Requirement)
	plan := &Plan{Changes: []Change{}, EnvAdditions: []string{}}
	seenEnv := make(map[string]bool)
	for _, m := range skills {
		for _, name := range m.NpmPackageNames() {
			declared[name] = append(declared[name], Requirement{Origin: m.Skill, Range: m.NpmDependencies()[name]})
		}
		for _, env := range m.EnvAdditions() {
			if !seenEnv[env] {
				seenEnv[env] = true
				plan.EnvAdditions = append(plan.EnvAdditions, env)
			}
		}
	}

	names := make([]string, 0, len(declared))
	for name := range declared {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		reqs := declared[name]
		current, has := existing[name]
		if has {
			reqs = append([]Requirement{{Origin: projectOrigin, Range: current.text}}, reqs...)
		}

		merged, err := mergeRanges(name, reqs)
		if err != nil {
			return nil, err
		}
		if has && merged == current.text {
			continue
		}

		change := Change{Package: name, Section: sectionDependencies, To: merged}
		if has {
			change.Section = current.section
			change.From = current.text
		}
		plan.Changes = append(plan.Changes, change)
	}

	return plan, nil
}

// mergeRanges returns the text of the narrowest range satisfying every
// requirement. When that range is exactly one of the declared ranges the
// declared text is kept, so merges don't churn package.json.
func mergeRanges(pkg string, reqs []Requirement) (string, error) {
	same := true
	for _, r := range reqs[1:] {
		if r.Range != reqs[0].Range {
			same = false
			break
		}
	}
	if same {
		return reqs[0].Range, nil
	}

	parsed := make([]semrange.Range, len(reqs))
	merged := semrange.Any()
	for i, r := range reqs {
		rng, err := semrange.ParseRange(r.Range)
		if err != nil {
			return "", &VersionConflictError{Package: pkg, Requirements: reqs, Reason: err.Error()}
		}
		parsed[i] = rng
		merged = merged.Intersect(rng)
	}
	if merged.IsEmpty() {
		return "", &VersionConflictError{Package: pkg, Requirements: reqs, Reason: "no version satisfies every range"}
	}

	for i, rng := range parsed {
		if rng.Equal(merged) {
			return reqs[i].Range, nil
		}
	}
	return merged.String(), nil
}

type declaration struct {
	section string
	text    string
}

// declaredDependencies reads dependencies and devDependencies. A package listed
// in both is reported from dependencies.
func declaredDependencies(pkgJSON []byte) (map[string]declaration, error) {
	out := make(map[string]declaration)
	if len(pkgJSON) == 0 {
		return out, nil
	}
	if !gjson.ValidBytes(pkgJSON) {
		return nil, fmt.Errorf("%s is not valid JSON", PackageJSON)
	}

	for _, section := range []string{sectionDevDependencies, sectionDependencies} {
		gjson.GetBytes(pkgJSON, section).ForEach(func(key, value gjson.Result) bool {
			out[key.String()] = declaration{section: section, text: value.String()}
			return true
		})
	}
	return out, nil
}
