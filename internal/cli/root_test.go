package cli

import (
	"bytes"
	"strings"
	"testing"
)

// execute runs the root command with args and returns its cobra output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	// cobra keeps parsed flag values between executions.
	for _, name := range []string{"help", "version"} {
		if f := rootCmd.Flags().Lookup(name); f != nil {
			_ = f.Value.Set("false")
		}
	}

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRootCommand_Help(t *testing.T) {
	output, err := execute(t, "--help")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	for _, want := range []string{
		"skillctl",
		"Skill Lifecycle:", "Project Setup:", "CI:", "CLI & Tooling:",
		"Environment:", "SKILLCTL_BASE_INCLUDES",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("help output missing %q", want)
		}
	}
}

func TestRootCommand_SubcommandHelpOmitsEnvironment(t *testing.T) {
	output, err := execute(t, "help", "clean")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(output, "--force") {
		t.Errorf("clean help should list --force:\n%s", output)
	}
	if strings.Contains(output, "Environment:") {
		t.Error("subcommand help should not list environment settings")
	}
}

func TestRootCommand_Version(t *testing.T) {
	SetVersion("1.2.3")
	t.Cleanup(func() { SetVersion("dev") })

	for _, args := range [][]string{{"--version"}, {"version"}} {
		output, err := execute(t, args...)
		if err != nil {
			t.Fatalf("Execute(%v) error = %v", args, err)
		}
		if strings.TrimSpace(output) != "1.2.3" {
			t.Errorf("Execute(%v) = %q, want 1.2.3", args, output)
		}
	}
}

func TestSetVersion_EmptyKeepsCurrent(t *testing.T) {
	SetVersion("0.4.0")
	SetVersion("")
	if rootCmd.Version != "0.4.0" {
		t.Errorf("Version = %q, want 0.4.0", rootCmd.Version)
	}
	SetVersion("dev")
}

func TestRootCommand_InvalidCommand(t *testing.T) {
	if _, err := execute(t, "invalid-command"); err == nil {
		t.Error("expected error for invalid command")
	}
}

func TestRootCommand_Subcommands(t *testing.T) {
	groups := map[string]string{
		"apply":      "skill-lifecycle",
		"clean":      "skill-lifecycle",
		"status":     "skill-lifecycle",
		"init":       "project-setup",
		"base":       "project-setup",
		"remap":      "project-setup",
		"matrix":     "ci",
		"version":    "cli-tooling",
		"completion": "cli-tooling",
	}

	for name, group := range groups {
		t.Run(name, func(t *testing.T) {
			cmd, _, err := rootCmd.Find([]string{name})
			if err != nil {
				t.Fatalf("Find(%q) error = %v", name, err)
			}
			if cmd.GroupID != group {
				t.Errorf("%s group = %q, want %q", name, cmd.GroupID, group)
			}
		})
	}
}

func TestBaseSetCommand_RefFlag(t *testing.T) {
	cmd, _, err := rootCmd.Find([]string{"base", "set"})
	if err != nil {
		t.Fatalf("Find(base set) error = %v", err)
	}
	if cmd.Flags().Lookup("ref") == nil {
		t.Error("base set should accept --ref")
	}
}

func TestCompletion_Bash(t *testing.T) {
	output, err := execute(t, "completion", "bash")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(output, "skillctl") {
		t.Error("bash completion should mention skillctl")
	}
}
