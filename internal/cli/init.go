package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/skillctl/internal/engine"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Capture the base snapshot and start an empty ledger",
	Long: `Capture the base snapshot from the working tree and write an empty
applied-skills ledger under the state directory (.nanoclaw by default).

The snapshot covers SKILLCTL_BASE_INCLUDES and is what clean restores from.
Run init on a tree with no skills applied.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit(cmd.Context(), "")
	},
}

var baseRef string

var baseCmd = &cobra.Command{
	Use:   "base",
	Short: "Manage the base snapshot",
}

var baseSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Re-capture the base snapshot, optionally from a git revision",
	Long: `Re-capture the base snapshot. With --ref the snapshot is read from a git
revision (for example upstream/main) and the working tree is left untouched.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit(cmd.Context(), baseRef)
	},
}

func init() {
	baseSetCmd.Flags().StringVar(&baseRef, "ref", "", "Git revision to capture the base from")
	baseCmd.AddCommand(baseSetCmd)
}

func runInit(ctx context.Context, ref string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	eng, err := newEngine()
	if err != nil {
		return err
	}

	release, err := acquireLock(eng.Paths().Lock)
	if err != nil {
		return err
	}
	defer release()

	result, err := eng.Init(ctx, &engine.InitRequest{Ref: ref})
	if err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(result)
	}

	source := "working tree"
	if result.Ref != "" {
		source = result.Ref
	}
	PrintSuccess(fmt.Sprintf("Captured %s from %s", PrintCount(len(result.Files), "file", "files"), source))
	if result.CoreVersion != "" {
		PrintLabelValue("Core version", result.CoreVersion)
	}
	for _, inc := range result.Missing {
		PrintWarning(fmt.Sprintf("Base include %s does not exist", inc))
	}
	return nil
}
