package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var matrixCmd = &cobra.Command{
	Use:   "matrix",
	Short: "List skill pairs that should be tested together",
	Long: `Compute the overlap matrix over every discoverable skill: pairs that touch
the same files or declare the same npm packages. Excluded pairs are omitted.
Use --json to feed a CI job generator.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}

		result, err := eng.Matrix()
		if err != nil {
			return err
		}

		if jsonOutput {
			return outputJSON(result)
		}

		PrintSection(fmt.Sprintf("Overlap Matrix (%s)", PrintCount(len(result.Skills), "skill", "skills")))
		if len(result.Entries) == 0 {
			PrintEmptyState("No overlapping skills")
			return nil
		}
		rows := make([][]string, 0, len(result.Entries))
		for _, e := range result.Entries {
			rows = append(rows, []string{e.Skills[0], e.Skills[1], e.Reason})
		}
		PrintTable([]string{"FIRST", "SECOND", "REASON"}, rows)
		return nil
	},
}
