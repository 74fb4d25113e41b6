// Package state manages the applied-skills ledger.
//
// The ledger is the single source of truth for which skills are layered onto
// the base snapshot of a project. It is persisted as a YAML document (by
// default .nanoclaw/state.yaml) and always rewritten atomically.
//
// Lifecycle:
//   - InitState writes an empty ledger when a project is initialized
//   - RecordSkillApplication appends (or overwrites) one record per applied skill
//   - Clean resets the ledger to empty
//
// Key concepts:
//   - State: the ledger document, including the optional path remap table
//   - AppliedSkill: one skill's version and per-file content hashes
//   - StateStore: interface for reading and writing the ledger
package state
