package state

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/danieljhkim/skillctl/internal/fsops"
)

var (
	// ErrNoStateFound is returned when the ledger file does not exist.
	ErrNoStateFound = errors.New("no skills state found")

	// ErrStateCorrupt is returned when the ledger cannot be decoded or breaks
	// its own invariants.
	ErrStateCorrupt = errors.New("skills state is corrupt")
)

// StateStore provides an interface for persisting the applied-skills ledger.
type StateStore interface {
	// ReadState loads the ledger. Returns ErrNoStateFound if it doesn't exist.
	ReadState() (*State, error)

	// WriteState saves the ledger atomically.
	WriteState(s *State) error

	// RecordSkillApplication adds or replaces one skill's record and saves.
	RecordSkillApplication(skill, version string, hashes map[string]string, at time.Time) error

	// InitState writes an empty ledger, replacing any existing one.
	InitState(coreVersion string) (*State, error)

	// Exists reports whether the ledger file exists.
	Exists() (bool, error)
}

// FileStateStore implements StateStore using a YAML file on disk.
type FileStateStore struct {
	fs   fsops.FS
	path string
}

// NewFileStateStore creates a new FileStateStore backed by path.
func NewFileStateStore(fs fsops.FS, path string) *FileStateStore {
	return &FileStateStore{fs: fs, path: path}
}

// Path returns the ledger file location.
func (s *FileStateStore) Path() string {
	return s.path
}

// ReadState loads the ledger.
func (s *FileStateStore) ReadState() (*State, error) {
	data, err := s.fs.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoStateFound, s.path)
		}
		return nil, fmt.Errorf("failed to read skills state: %w", err)
	}

	var st State
	if err := yaml.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrStateCorrupt, s.path, err)
	}
	if st.AppliedSkills == nil {
		st.AppliedSkills = []AppliedSkill{}
	}
	if err := st.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrStateCorrupt, s.path, err)
	}

	return &st, nil
}

// WriteState saves the ledger atomically.
func (s *FileStateStore) WriteState(st *State) error {
	if err := st.Validate(); err != nil {
		return fmt.Errorf("refusing to write skills state: %w", err)
	}

	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal skills state: %w", err)
	}

	if err := s.fs.AtomicWrite(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write skills state: %w", err)
	}

	return nil
}

// RecordSkillApplication adds or replaces one skill's record and saves.
func (s *FileStateStore) RecordSkillApplication(skill, version string, hashes map[string]string, at time.Time) error {
	st, err := s.ReadState()
	if err != nil {
		return err
	}

	st.Record(AppliedSkill{
		Skill:      skill,
		Version:    version,
		AppliedAt:  at,
		FileHashes: hashes,
	})

	return s.WriteState(st)
}

// InitState writes an empty ledger, keeping an existing path remap table.
func (s *FileStateStore) InitState(coreVersion string) (*State, error) {
	st := NewState(coreVersion)

	if prev, err := s.ReadState(); err == nil {
		st.PathRemap = prev.PathRemap
	} else if !errors.Is(err, ErrNoStateFound) {
		return nil, err
	}

	if err := s.WriteState(st); err != nil {
		return nil, err
	}
	return st, nil
}

// Exists reports whether the ledger file exists.
func (s *FileStateStore) Exists() (bool, error) {
	return s.fs.Exists(s.path)
}
