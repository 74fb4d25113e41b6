package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/skillctl/internal/engine"
)

var (
	cleanForce  bool
	cleanDryRun bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove every applied skill and restore the base",
	Long: `Remove every applied skill: added files are deleted, modified files and
package.json / .env.example are restored from the base snapshot, and the ledger
is emptied.

Clean refuses to run when git reports changes in the tracked paths that no
skill accounts for. Use --force to discard them.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		if !cleanDryRun {
			release, err := acquireLock(eng.Paths().Lock)
			if err != nil {
				return err
			}
			defer release()
		}

		result, err := eng.Clean(ctx, &engine.CleanRequest{Force: cleanForce, DryRun: cleanDryRun})
		if err != nil {
			return err
		}

		if jsonOutput {
			out := struct {
				*engine.CleanResult
				Warnings []string `json:"Warnings"`
			}{CleanResult: result, Warnings: []string{}}
			for _, w := range result.Warnings {
				out.Warnings = append(out.Warnings, w.Error())
			}
			if err := outputJSON(out); err != nil {
				return err
			}
		} else {
			printCleanResult(result)
		}

		if len(result.Warnings) > 0 {
			return fmt.Errorf("%w: clean finished with %s", engine.ErrRestoreFailed,
				PrintCount(len(result.Warnings), "warning", "warnings"))
		}
		return nil
	},
}

func init() {
	cleanCmd.Flags().BoolVarP(&cleanForce, "force", "f", false, "Clean even with uncommitted changes")
	cleanCmd.Flags().BoolVar(&cleanDryRun, "dry-run", false, "Show what would be removed without removing")
}

func printCleanResult(result *engine.CleanResult) {
	if len(result.Skills) == 0 {
		PrintEmptyState("No skills applied")
		return
	}

	verb := "Removed"
	if result.DryRun {
		verb = "Would remove"
	}
	PrintSuccess(fmt.Sprintf("%s %s", verb, PrintCount(len(result.Skills), "skill", "skills")))
	if len(result.Deleted) > 0 {
		PrintSubsection("Deleted:")
		PrintList(result.Deleted, 2)
	}
	if len(result.Restored) > 0 {
		PrintSubsection("Restored:")
		PrintList(result.Restored, 2)
	}
	if result.Reinstalled {
		PrintInfo("Dependencies reinstalled")
	}
	for _, w := range result.Warnings {
		PrintWarning(w.Error())
	}
}
