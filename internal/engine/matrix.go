package engine

import (
	"github.com/danieljhkim/skillctl/internal/overlap"
)

// Matrix lists every pair of discoverable skills that should be tested
// together.
func (e *Engine) Matrix() (*MatrixResult, error) {
	all, err := e.discover()
	if err != nil {
		return nil, err
	}

	result := &MatrixResult{
		Skills:  make([]string, 0, len(all)),
		Entries: overlap.Compute(all),
	}
	for _, m := range all {
		result.Skills = append(result.Skills, m.Skill)
	}
	if result.Entries == nil {
		result.Entries = []overlap.Entry{}
	}

	e.logger.Debug("matrix computed", "skills", len(all), "entries", len(result.Entries))
	return result, nil
}
