package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/skillctl/internal/engine"
	"github.com/danieljhkim/skillctl/internal/planner"
	"github.com/danieljhkim/skillctl/internal/structured"
)

var (
	applyInstalled bool
	applyForce     bool
	applyDryRun    bool
)

var applyCmd = &cobra.Command{
	Use:   "apply [skill...]",
	Short: "Apply skills to the project",
	Long: `Apply one or more skills, given by directory name or skill id.

Skills are ordered by their dependencies and checked for exclusions, file
conflicts and npm version conflicts before anything is written. Skills already
applied at the same version are skipped. With --installed, every skill in the
installed-skills declaration is applied as well.

If a skill conflicts with the tree, the skills ahead of it stay applied and
the command stops at the conflicting one.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && !applyInstalled {
			return errors.New("name at least one skill, or use --installed")
		}

		eng, err := newEngine()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		if !applyDryRun {
			release, err := acquireLock(eng.Paths().Lock)
			if err != nil {
				return err
			}
			defer release()
		}

		result, err := eng.Apply(ctx, &engine.ApplyRequest{
			Skills:    args,
			Installed: applyInstalled,
			Force:     applyForce,
			DryRun:    applyDryRun,
		})

		if jsonOutput && result != nil {
			if jerr := outputJSON(result); jerr != nil {
				return jerr
			}
			return err
		}

		if result != nil {
			printApplyResult(result, applyDryRun)
		}
		if err != nil {
			if result != nil && result.Plan != nil && result.Plan.HasConflicts() {
				printConflicts(result.Plan)
			}
			var vc *structured.VersionConflictError
			if errors.As(err, &vc) {
				PrintSection("Version Conflict")
				for _, req := range vc.Requirements {
					PrintLabelValue(req.Origin, req.Range)
				}
			}
			return err
		}
		return nil
	},
}

func init() {
	applyCmd.Flags().BoolVar(&applyInstalled, "installed", false, "Also apply every skill in the installed-skills declaration")
	applyCmd.Flags().BoolVarP(&applyForce, "force", "f", false, "Overwrite files that were changed outside skillctl")
	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "Show what would be applied without applying")
}

func printApplyResult(result *engine.ApplyResult, dryRun bool) {
	if dryRun {
		PrintSection("Dry Run")
		if result.Plan != nil {
			for _, sp := range result.Plan.Runnable() {
				PrintSubsection(fmt.Sprintf("%s %s", sp.Skill, sp.Version))
				ops := make([]string, 0, len(sp.Operations))
				for _, op := range sp.Operations {
					if op.Noop {
						ops = append(ops, fmt.Sprintf("%s: %s (unchanged)", op.Type, op.RelPath))
						continue
					}
					ops = append(ops, fmt.Sprintf("%s: %s", op.Type, op.RelPath))
				}
				PrintList(ops, 2)
			}
		}
		printMerge(result.Merge)
	} else {
		for _, applied := range result.Applied {
			PrintSuccess(fmt.Sprintf("Applied %s %s (%s, %d unchanged)",
				applied.Skill, applied.Version,
				PrintCount(applied.Written, "file written", "files written"), applied.Unchanged))
		}
		if result.Structured != nil {
			for _, c := range result.Structured.Changes {
				PrintInfo(fmt.Sprintf("  %s %s", c.Package, changeText(c)))
			}
			if len(result.Structured.EnvAdded) > 0 {
				PrintInfo(fmt.Sprintf("  .env.example: added %s", PrintCount(len(result.Structured.EnvAdded), "variable", "variables")))
			}
			if result.Structured.Installed {
				PrintInfo("  Dependencies installed")
			}
		}
	}

	for _, id := range result.Skipped {
		PrintEmptyState(fmt.Sprintf("%s is already applied", id))
	}
	if result.BaseCaptured {
		PrintInfo("Base snapshot captured")
	}
}

func printMerge(merge *structured.Plan) {
	if merge.Empty() {
		return
	}
	PrintSubsection("Structured:")
	var items []string
	for _, c := range merge.Changes {
		items = append(items, fmt.Sprintf("%s %s", c.Package, changeText(c)))
	}
	for _, name := range merge.EnvAdditions {
		items = append(items, fmt.Sprintf(".env.example: %s", name))
	}
	PrintList(items, 2)
}

func changeText(c structured.Change) string {
	if c.From == "" {
		return fmt.Sprintf("%s (new in %s)", c.To, c.Section)
	}
	return fmt.Sprintf("%s -> %s", c.From, c.To)
}

func printConflicts(plan *planner.ApplyPlan) {
	PrintSection(fmt.Sprintf("Conflicts Detected (%s)", plan.Blocked))
	for _, conflict := range plan.Conflicts() {
		PrintError(fmt.Sprintf("%s: %s", conflict.Path, conflict.Reason))
	}
	fmt.Println()
	PrintWarning("Use --force to overwrite.")
}
