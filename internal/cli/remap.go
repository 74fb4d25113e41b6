package cli

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/skillctl/internal/engine"
)

var remapRemove bool

var remapCmd = &cobra.Command{
	Use:   "remap <logical-path> [physical-path]",
	Short: "Map a manifest path to where the file lives in this project",
	Long: `Record that a path skills refer to (for example src/index.ts) lives
somewhere else in this project. The physical path is resolved against the
current directory. Use --remove to drop an entry.

The remap table can only change while no skills are applied.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := &engine.RemapRequest{Logical: args[0], Remove: remapRemove}
		if remapRemove {
			if len(args) != 1 {
				return errors.New("--remove takes only the logical path")
			}
		} else {
			if len(args) != 2 {
				return errors.New("physical path is required")
			}
			req.Physical = args[1]
		}

		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		req.CWD = cwd

		eng, err := newEngine()
		if err != nil {
			return err
		}

		release, err := acquireLock(eng.Paths().Lock)
		if err != nil {
			return err
		}
		defer release()

		table, err := eng.SetRemap(req)
		if err != nil {
			return err
		}

		if jsonOutput {
			return outputJSON(table)
		}

		if remapRemove {
			PrintSuccess(fmt.Sprintf("Removed remap for %s", req.Logical))
		} else {
			logical := path.Clean(filepath.ToSlash(req.Logical))
			PrintSuccess(fmt.Sprintf("Mapped %s -> %s", logical, table[logical]))
		}
		PrintMap(table)
		return nil
	},
}

func init() {
	remapCmd.Flags().BoolVar(&remapRemove, "remove", false, "Remove the entry for the logical path")
}
