// Package pathremap translates the logical paths skills declare into the
// physical paths of a project whose layout has drifted from upstream.
package pathremap

import (
	"fmt"
	"path"
	"sort"

	"github.com/danieljhkim/skillctl/internal/fsops"
)

// Remapper maps logical paths to physical paths. The zero value and a nil
// *Remapper are the identity mapping.
type Remapper struct {
	table map[string]string
}

// New builds a Remapper from a logical→physical table. Keys and values are
// normalized with path.Clean.
func New(table map[string]string) (*Remapper, error) {
	r := &Remapper{table: make(map[string]string, len(table))}
	for logical, physical := range table {
		if err := fsops.ValidateRelPath(logical); err != nil {
			return nil, fmt.Errorf("invalid remap source %q: %w", logical, err)
		}
		if err := fsops.ValidateRelPath(physical); err != nil {
			return nil, fmt.Errorf("invalid remap target %q: %w", physical, err)
		}
		r.table[path.Clean(logical)] = path.Clean(physical)
	}
	return r, nil
}

// Resolve returns the physical path for logical, or logical unchanged.
func (r *Remapper) Resolve(logical string) string {
	if r == nil {
		return logical
	}
	if physical, ok := r.table[path.Clean(logical)]; ok {
		return physical
	}
	return logical
}

// Len returns the number of entries.
func (r *Remapper) Len() int {
	if r == nil {
		return 0
	}
	return len(r.table)
}

// Entries returns the logical paths that are remapped, sorted.
func (r *Remapper) Entries() []string {
	if r == nil {
		return nil
	}
	keys := make([]string, 0, len(r.table))
	for k := range r.table {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
