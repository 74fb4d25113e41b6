package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	jsonOutput bool
	verbose    bool

	groupTitleColor   = color.New(color.FgCyan, color.Bold)
	sectionTitleColor = color.New(color.FgBlue, color.Bold)
)

// rootCmd is the root command for skillctl.
var rootCmd = &cobra.Command{
	Use:     "skillctl",
	Version: "dev",
	Short:   "Manifest-driven skill overlay engine",
	Long: `skillctl composes a base application with optional skills.

Each skill declares the files it adds and replaces, the skills it depends on or
excludes, and the npm packages it needs. skillctl applies skills in dependency
order against a recorded base snapshot, remembers what it applied, and can
remove every skill again.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

// SetVersion sets the version printed by --version and the version command.
func SetVersion(v string) {
	if v == "" {
		return
	}
	rootCmd.Version = v
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

// envHelp lists the settings shown under "Environment:" in root help.
var envHelp = [][2]string{
	{"SKILLCTL_ROOT", "project root (default: enclosing git repository)"},
	{"SKILLCTL_SKILLS_DIR", "skill directories (default: .claude/skills)"},
	{"SKILLCTL_STATE_DIR", "ledger, base snapshot and lock (default: .nanoclaw)"},
	{"SKILLCTL_BASE_INCLUDES", "comma-separated paths captured in the base"},
	{"SKILLCTL_INSTALL_CMD", "run when package.json changes (default: npm install --silent)"},
	{"SKILLCTL_LOG_LEVEL", "debug, info, warn or error (default: warn)"},
	{"SKILLCTL_LOG_FORMAT", "text or json (default: text)"},
}

// customHelpFunc renders help with colored group titles. Root help also
// lists the environment settings.
func customHelpFunc(cmd *cobra.Command, args []string) {
	var help strings.Builder

	if cmd.Long != "" {
		help.WriteString(cmd.Long)
		help.WriteString("\n\n")
	}

	help.WriteString(sectionTitleColor.Sprint("Usage:"))
	help.WriteString("\n")
	fmt.Fprintf(&help, "  %s\n\n", cmd.UseLine())

	writeCommands := func(title string, match func(c *cobra.Command) bool, clr *color.Color) {
		var lines []string
		for _, c := range cmd.Commands() {
			if match(c) && !c.Hidden {
				lines = append(lines, fmt.Sprintf("  %-11s %s\n", c.Name(), c.Short))
			}
		}
		if len(lines) == 0 {
			return
		}
		help.WriteString(clr.Sprint(title))
		help.WriteString("\n")
		for _, l := range lines {
			help.WriteString(l)
		}
		help.WriteString("\n")
	}
	for _, group := range cmd.Groups() {
		id := group.ID
		writeCommands(group.Title, func(c *cobra.Command) bool { return c.GroupID == id }, groupTitleColor)
	}
	writeCommands("Additional Commands:", func(c *cobra.Command) bool { return c.GroupID == "" }, sectionTitleColor)

	if cmd.HasAvailableLocalFlags() || cmd.HasAvailablePersistentFlags() {
		help.WriteString(sectionTitleColor.Sprint("Flags:"))
		help.WriteString("\n")
		help.WriteString(cmd.LocalFlags().FlagUsages())
		help.WriteString(cmd.InheritedFlags().FlagUsages())
		help.WriteString("\n")
	}

	if !cmd.HasParent() {
		help.WriteString(sectionTitleColor.Sprint("Environment:"))
		help.WriteString("\n")
		for _, e := range envHelp {
			fmt.Fprintf(&help, "  %-24s %s\n", e[0], e[1])
		}
		help.WriteString("\n")
	}

	fmt.Fprintf(&help, "Use \"%s [command] --help\" for more information about a command.\n", cmd.CommandPath())

	fmt.Fprint(cmd.OutOrStdout(), help.String())
}

// newCompletionCmd generates shell completion scripts.
func newCompletionCmd() *cobra.Command {
	completionCmd := &cobra.Command{
		Use:     "completion",
		Short:   "Generate the autocompletion script for the specified shell",
		GroupID: "cli-tooling",
		Long: `Generate the autocompletion script for skillctl for the specified shell.
See each sub-command's help for details on how to use the generated script.`,
	}

	shells := []struct {
		name string
		gen  func(w io.Writer) error
	}{
		{"bash", rootCmd.GenBashCompletion},
		{"zsh", rootCmd.GenZshCompletion},
		{"fish", func(w io.Writer) error { return rootCmd.GenFishCompletion(w, true) }},
		{"powershell", rootCmd.GenPowerShellCompletionWithDesc},
	}
	for _, sh := range shells {
		gen := sh.gen
		completionCmd.AddCommand(&cobra.Command{
			Use:                   sh.name,
			Short:                 "Generate the autocompletion script for " + sh.name,
			Args:                  cobra.NoArgs,
			DisableFlagsInUseLine: true,
			RunE: func(cmd *cobra.Command, args []string) error {
				return gen(cmd.OutOrStdout())
			},
		})
	}
	return completionCmd
}

func init() {
	rootCmd.SetHelpFunc(customHelpFunc)

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")

	groups := []struct {
		group    cobra.Group
		commands []*cobra.Command
	}{
		{cobra.Group{ID: "skill-lifecycle", Title: "Skill Lifecycle:"}, []*cobra.Command{applyCmd, cleanCmd, statusCmd}},
		{cobra.Group{ID: "project-setup", Title: "Project Setup:"}, []*cobra.Command{initCmd, baseCmd, remapCmd}},
		{cobra.Group{ID: "ci", Title: "CI:"}, []*cobra.Command{matrixCmd}},
		{cobra.Group{ID: "cli-tooling", Title: "CLI & Tooling:"}, nil},
	}
	for _, g := range groups {
		group := g.group
		rootCmd.AddGroup(&group)
		for _, c := range g.commands {
			c.GroupID = group.ID
			rootCmd.AddCommand(c)
		}
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:     "version",
		Short:   "Print the skillctl CLI version",
		Args:    cobra.NoArgs,
		GroupID: "cli-tooling",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), rootCmd.Version)
		},
	})

	rootCmd.SetHelpCommand(&cobra.Command{
		Use:     "help [command]",
		Short:   "Help about any command",
		GroupID: "cli-tooling",
		RunE: func(cmd *cobra.Command, args []string) error {
			target, _, err := rootCmd.Find(args)
			if err != nil {
				return err
			}
			return target.Help()
		},
	})

	rootCmd.AddCommand(newCompletionCmd())
}

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}
