// Package planner handles the dry pass of a skill apply.
//
// The planner walks an ordered batch of skills against a virtual view of the
// project tree (files written by earlier skills in the batch, then the base
// snapshot, then the disk) and decides, per file, whether the skill adds,
// replaces, or already matches it. Nothing is written here; the engine
// executes the plan.
//
// Key responsibilities:
//   - Generate an ApplyPlan with one SkillPlan per requested skill
//   - Skip skills the ledger already holds at the same version
//   - Detect file conflicts (foreign content at an add or modify destination)
//   - Stop at the first skill with conflicts so later skills never see a
//     half-applied pre-image
package planner
