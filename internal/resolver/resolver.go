// Package resolver orders a batch of skills so every dependency precedes its
// dependents, and rejects batches that pair mutually exclusive skills.
package resolver

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/danieljhkim/skillctl/internal/manifest"
)

var (
	// ErrCyclicDependency is returned when depends edges form a cycle.
	ErrCyclicDependency = errors.New("cyclic skill dependency")

	// ErrMutualExclusion is returned when two excluded skills meet in one batch.
	ErrMutualExclusion = errors.New("mutually exclusive skills")

	// ErrMissingDependency is returned when a dependency is neither requested
	// nor already applied.
	ErrMissingDependency = errors.New("missing skill dependency")
)

// ExclusionError names the excluded pair and which declaration excludes them.
type ExclusionError struct {
	A, B   string
	Reason string
}

func (e *ExclusionError) Error() string {
	return fmt.Sprintf("%v: %s and %s (%s)", ErrMutualExclusion, e.A, e.B, e.Reason)
}

func (e *ExclusionError) Unwrap() error { return ErrMutualExclusion }

// CycleError names every skill that sits on a dependency cycle.
type CycleError struct {
	Skills []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%v: %s", ErrCyclicDependency, strings.Join(e.Skills, ", "))
}

func (e *CycleError) Unwrap() error { return ErrCyclicDependency }

// MissingDependencyError names a skill and the dependency it lacks.
type MissingDependencyError struct {
	Skill      string
	Dependency string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("%v: %s depends on %s, which is neither requested nor applied", ErrMissingDependency, e.Skill, e.Dependency)
}

func (e *MissingDependencyError) Unwrap() error { return ErrMissingDependency }

// Excluded reports whether a and b may not be applied together. Either side
// declaring the other under conflicts or incompatible_with is enough.
func Excluded(a, b *manifest.Manifest) (bool, string) {
	switch {
	case contains(a.Conflicts, b.Skill):
		return true, fmt.Sprintf("%s conflicts with %s", a.Skill, b.Skill)
	case contains(b.Conflicts, a.Skill):
		return true, fmt.Sprintf("%s conflicts with %s", b.Skill, a.Skill)
	case contains(a.IncompatibleWith, b.Skill):
		return true, fmt.Sprintf("%s is incompatible with %s", a.Skill, b.Skill)
	case contains(b.IncompatibleWith, a.Skill):
		return true, fmt.Sprintf("%s is incompatible with %s", b.Skill, a.Skill)
	}
	return false, ""
}

// DependsOn reports whether a depends on b directly or transitively, following
// depends edges through index.
func DependsOn(a, b string, index map[string]*manifest.Manifest) bool {
	seen := map[string]bool{a: true}
	stack := []string{a}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		m, ok := index[cur]
		if !ok {
			continue
		}
		for _, dep := range m.Depends {
			if dep == b {
				return true
			}
			if !seen[dep] {
				seen[dep] = true
				stack = append(stack, dep)
			}
		}
	}
	return false
}

// Resolve validates batch and returns it in application order.
//
// applied lists skills already on the tree: they satisfy dependencies and take
// part in the exclusion check, but are not part of the returned order. A skill
// requested twice keeps its first position.
func Resolve(batch, applied []*manifest.Manifest) ([]*manifest.Manifest, error) {
	var nodes []*manifest.Manifest
	pos := make(map[string]int)
	for _, m := range batch {
		if _, dup := pos[m.Skill]; dup {
			continue
		}
		pos[m.Skill] = len(nodes)
		nodes = append(nodes, m)
	}

	if err := checkExclusions(nodes, applied, pos); err != nil {
		return nil, err
	}

	satisfied := make(map[string]bool, len(applied))
	for _, m := range applied {
		satisfied[m.Skill] = true
	}
	for _, m := range nodes {
		for _, dep := range m.Depends {
			if _, inBatch := pos[dep]; !inBatch && !satisfied[dep] {
				return nil, &MissingDependencyError{Skill: m.Skill, Dependency: dep}
			}
		}
	}

	return order(nodes, pos)
}

func checkExclusions(nodes, applied []*manifest.Manifest, pos map[string]int) error {
	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			if bad, reason := Excluded(nodes[i], nodes[j]); bad {
				return &ExclusionError{A: nodes[i].Skill, B: nodes[j].Skill, Reason: reason}
			}
		}
		for _, a := range applied {
			if _, requested := pos[a.Skill]; requested {
				continue
			}
			if bad, reason := Excluded(nodes[i], a); bad {
				return &ExclusionError{A: nodes[i].Skill, B: a.Skill, Reason: reason + " (already applied)"}
			}
		}
	}
	return nil
}

// order is Kahn's algorithm that always emits the ready skill requested
// earliest, so the result is deterministic.
func order(nodes []*manifest.Manifest, pos map[string]int) ([]*manifest.Manifest, error) {
	indegree := make([]int, len(nodes))
	dependents := make([][]int, len(nodes))
	for i, m := range nodes {
		for _, dep := range m.Depends {
			j, ok := pos[dep]
			if !ok {
				continue
			}
			indegree[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	var ready []int
	for i := range nodes {
		if indegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	out := make([]*manifest.Manifest, 0, len(nodes))
	for len(ready) > 0 {
		sort.Ints(ready)
		next := ready[0]
		ready = ready[1:]
		out = append(out, nodes[next])

		for _, d := range dependents[next] {
			indegree[d]--
			if indegree[d] == 0 {
				ready = append(ready, d)
			}
		}
	}

	if len(out) < len(nodes) {
		return nil, &CycleError{Skills: cycleMembers(nodes, pos)}
	}
	return out, nil
}

// cycleMembers returns, in request order, every skill inside a strongly
// connected component that forms a cycle (Tarjan).
func cycleMembers(nodes []*manifest.Manifest, pos map[string]int) []string {
	index := 0
	indices := make([]int, len(nodes))
	lowlink := make([]int, len(nodes))
	onStack := make([]bool, len(nodes))
	for i := range indices {
		indices[i] = -1
	}
	var stack []int
	var members []int

	var strongConnect func(v int)
	strongConnect = func(v int) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		selfLoop := false
		for _, dep := range nodes[v].Depends {
			w, ok := pos[dep]
			if !ok {
				continue
			}
			if w == v {
				selfLoop = true
			}
			if indices[w] < 0 {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] != indices[v] {
			return
		}
		var scc []int
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		if len(scc) > 1 || selfLoop {
			members = append(members, scc...)
		}
	}

	for v := range nodes {
		if indices[v] < 0 {
			strongConnect(v)
		}
	}

	sort.Ints(members)
	names := make([]string, len(members))
	for i, v := range members {
		names[i] = nodes[v].Skill
	}
	return names
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
