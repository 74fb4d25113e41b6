// Package pkgmgr runs the project's package manager after package.json changes.
package pkgmgr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds an install unless overridden.
const DefaultTimeout = 10 * time.Minute

// ErrInstallFailed wraps every installer failure, including timeouts.
var ErrInstallFailed = errors.New("dependency install failed")

// Installer installs the dependencies declared in a project directory.
type Installer interface {
	Install(ctx context.Context, dir string) error
}

// CommandInstaller runs an external command such as "npm install --silent".
type CommandInstaller struct {
	argv    []string
	timeout time.Duration
}

// NewCommandInstaller splits command on whitespace. A non-positive timeout
// selects DefaultTimeout.
func NewCommandInstaller(command string, timeout time.Duration) (*CommandInstaller, error) {
	argv := strings.Fields(command)
	if len(argv) == 0 {
		return nil, fmt.Errorf("install command is empty")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &CommandInstaller{argv: argv, timeout: timeout}, nil
}

// Command returns the command line that Install runs.
func (c *CommandInstaller) Command() string {
	return strings.Join(c.argv, " ")
}

// Install runs the command in dir and waits for it, up to the timeout.
func (c *CommandInstaller) Install(ctx context.Context, dir string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var output bytes.Buffer
	cmd := exec.CommandContext(ctx, c.argv[0], c.argv[1:]...)
	cmd.Dir = dir
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s timed out after %s", ErrInstallFailed, c.Command(), c.timeout)
		}
		return fmt.Errorf("%w: %s: %v%s", ErrInstallFailed, c.Command(), err, tail(output.String()))
	}

	return nil
}

// tail keeps the last few lines of installer output for error messages.
func tail(out string) string {
	out = strings.TrimSpace(out)
	if out == "" {
		return ""
	}
	lines := strings.Split(out, "\n")
	if len(lines) > 10 {
		lines = lines[len(lines)-10:]
	}
	return "\n" + strings.Join(lines, "\n")
}

// FakeInstaller records installs for testing.
type FakeInstaller struct {
	Dirs []string
	err  error
}

// NewFakeInstaller creates a new FakeInstaller.
func NewFakeInstaller() *FakeInstaller {
	return &FakeInstaller{}
}

// SetError sets an error to be returned by Install.
func (f *FakeInstaller) SetError(err error) {
	f.err = err
}

// Calls returns how many times Install ran.
func (f *FakeInstaller) Calls() int {
	return len(f.Dirs)
}

// Install records dir and returns the configured error.
func (f *FakeInstaller) Install(ctx context.Context, dir string) error {
	f.Dirs = append(f.Dirs, dir)
	if f.err != nil {
		return fmt.Errorf("%w: %v", ErrInstallFailed, f.err)
	}
	return nil
}
