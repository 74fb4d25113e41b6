// Package overlap computes which pairs of skills touch the same files or
// packages and therefore need to be tested together in CI.
package overlap

import (
	"fmt"
	"sort"
	"strings"

	"github.com/danieljhkim/skillctl/internal/manifest"
	"github.com/danieljhkim/skillctl/internal/resolver"
)

// Entry is one pair of skills that overlap.
type Entry struct {
	// Skills holds the pair's skill ids; a dependency precedes its dependent.
	Skills [2]string `json:"skills"`

	// Dirs holds the matching skill directory names.
	Dirs [2]string `json:"dirs"`

	// Reason explains the overlap, e.g. "shared modifies: src/config.ts".
	Reason string `json:"reason"`
}

// Compute returns every overlapping, non-excluded pair of manifests. Pairs are
// emitted in discovery order (i before j for i < j).
func Compute(manifests []*manifest.Manifest) []Entry {
	index := manifest.Index(manifests)
	entries := []Entry{}

	for i := 0; i < len(manifests); i++ {
		for j := i + 1; j < len(manifests); j++ {
			a, b := manifests[i], manifests[j]
			if excluded, _ := resolver.Excluded(a, b); excluded {
				continue
			}

			var reasons []string
			if paths := intersect(a.Footprint(), b.Footprint()); len(paths) > 0 {
				reasons = append(reasons, "shared modifies: "+strings.Join(paths, ", "))
			}
			if pkgs := intersect(a.NpmPackageNames(), b.NpmPackageNames()); len(pkgs) > 0 {
				reasons = append(reasons, "shared npm packages: "+strings.Join(pkgs, ", "))
			}
			if len(reasons) == 0 {
				continue
			}

			if resolver.DependsOn(a.Skill, b.Skill, index) {
				a, b = b, a
			}
			entries = append(entries, Entry{
				Skills: [2]string{a.Skill, b.Skill},
				Dirs:   [2]string{a.Name, b.Name},
				Reason: strings.Join(reasons, "; "),
			})
		}
	}

	return entries
}

// String renders an entry as "a + b: reason".
func (e Entry) String() string {
	return fmt.Sprintf("%s + %s: %s", e.Skills[0], e.Skills[1], e.Reason)
}

func intersect(a, b []string) []string {
	inB := make(map[string]bool, len(b))
	for _, s := range b {
		inB[s] = true
	}
	seen := make(map[string]bool)
	var out []string
	for _, s := range a {
		if inB[s] && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
