package builder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/storage-plugins/tailscale-updater/internal/logger"
)

// Builder runs the external package build step.
type Builder struct {
	// dir is the packaging-tools directory the command runs in; the build
	// script resolves its inputs relative to it.
	dir string
	// command is the build command line.
	command []string
}

var (
	// ErrBuildFailed reports a nonzero exit from the build command.
	ErrBuildFailed = errors.New("package build failed")

	// errNoCommand is returned when the builder is constructed without a command.
	errNoCommand = errors.New("build command must be provided")
)

// New creates a builder for the provided directory and command line.
func New(dir string, command ...string) *Builder {
	return &Builder{
		dir:     dir,
		command: command,
	}
}

// Run invokes the build command and waits for it to finish. Standard output
// and standard error are captured in full and surfaced through the logger;
// a nonzero exit wraps ErrBuildFailed.
func (b *Builder) Run(ctx context.Context) error {
	if len(b.command) == 0 {
		return errNoCommand
	}

	logger.InfoKV(ctx, "Running package build",
		"command", strings.Join(b.command, " "), "dir", b.dir)

	//nolint:gosec // The build command comes from operator-controlled settings.
	cmd := exec.CommandContext(ctx, b.command[0], b.command[1:]...)
	cmd.Dir = b.dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	if out := strings.TrimSpace(stdout.String()); out != "" {
		logger.Infof(ctx, "Build output:\n%s", out)
	}

	if errOut := strings.TrimSpace(stderr.String()); errOut != "" {
		logger.Warnf(ctx, "Build errors:\n%s", errOut)
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%w: exit code %d", ErrBuildFailed, exitErr.ExitCode())
		}

		return fmt.Errorf("%w: %w", ErrBuildFailed, err)
	}

	return nil
}
