package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/skillctl/internal/engine"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied skills and file drift",
	Long: `Display the applied skills in ledger order and, for each recorded file,
whether it still holds the content the skill wrote.`,
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

		result, err := eng.Status(ctx)
		if err != nil {
			if errors.Is(err, engine.ErrNoStateFound) {
				return fmt.Errorf("%w: run 'skillctl init' or apply a skill first", err)
			}
			return err
		}

		if jsonOutput {
			return outputJSON(result)
		}

		PrintLabelValue("Project", result.Root)
		if result.CoreVersion != "" {
			PrintLabelValue("Core version", result.CoreVersion)
		}
		PrintLabelValue("Base snapshot", PrintCount(result.BaseFiles, "file", "files"))

		if len(result.PathRemap) > 0 {
			PrintSection("Path Remap")
			PrintMap(result.PathRemap)
		}

		PrintSection("Applied Skills")
		if len(result.Skills) == 0 {
			PrintEmptyState("No skills applied")
			return nil
		}
		for _, s := range result.Skills {
			PrintSkillStatus(s)
		}
		return nil
	},
}
