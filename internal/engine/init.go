package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tidwall/gjson"

	"github.com/danieljhkim/skillctl/internal/snapshot"
	"github.com/danieljhkim/skillctl/internal/state"
	"github.com/danieljhkim/skillctl/internal/structured"
)

// Init captures the base snapshot and writes an empty ledger.
//
// The snapshot is taken from the working tree, or from a git revision when
// req.Ref is set. Init refuses to run while skills are applied, since the
// snapshot is what Clean restores from.
func (e *Engine) Init(ctx context.Context, req *InitRequest) (*InitResult, error) {
	log, _ := e.runLogger("init")

	st, _, err := e.readStateOrEmpty()
	if err != nil {
		return nil, err
	}
	if len(st.AppliedSkills) > 0 {
		return nil, fmt.Errorf("%w: run clean before re-capturing the base (applied: %v)", ErrSkillsApplied, st.SkillIDs())
	}

	var captured *snapshot.CaptureResult
	if req.Ref != "" {
		captured, err = e.base.CaptureRef(ctx, e.gitRepo, e.paths.Root, req.Ref, e.paths.BaseIncludes)
	} else {
		captured, err = e.base.Capture(e.paths.Root, e.paths.BaseIncludes)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to capture base snapshot: %w", err)
	}

	core := e.baseCoreVersion()
	if _, err := e.stateStore.InitState(core); err != nil {
		return nil, fmt.Errorf("failed to initialize state: %w", err)
	}

	for _, inc := range captured.Missing {
		log.Warn("base include does not exist", "include", inc)
	}
	log.Info("base captured", "files", len(captured.Files), "ref", req.Ref, "core_version", core)

	return &InitResult{
		Files:       captured.Files,
		Missing:     captured.Missing,
		Ref:         req.Ref,
		CoreVersion: core,
	}, nil
}

// ensureBase captures the base snapshot from the working tree if none exists.
// A tree that already carries applied skills is not a clean base.
func (e *Engine) ensureBase(log *slog.Logger, st *state.State) (bool, error) {
	exists, err := e.base.Exists()
	if err != nil {
		return false, fmt.Errorf("failed to check base snapshot: %w", err)
	}
	if exists {
		return false, nil
	}
	if len(st.AppliedSkills) > 0 {
		return false, fmt.Errorf("%w: skills are applied but the base snapshot is gone; run clean --force and init", ErrNoBase)
	}

	captured, err := e.base.Capture(e.paths.Root, e.paths.BaseIncludes)
	if err != nil {
		return false, fmt.Errorf("failed to capture base snapshot: %w", err)
	}
	log.Info("base captured", "files", len(captured.Files))
	return true, nil
}

// baseCoreVersion reads the version from the snapshot's package.json,
// falling back to the working tree.
func (e *Engine) baseCoreVersion() string {
	data, err := e.base.Read(structured.PackageJSON)
	if err != nil {
		return e.coreVersion()
	}
	return gjson.GetBytes(data, "version").String()
}
