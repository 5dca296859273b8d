package infra

import (
	"context"
	"os/exec"

	"github.com/codeglyph/agentshim/internal/domain"
)

// RealCommandRunner executes real system commands.
type RealCommandRunner struct{}

// NewCommandRunner creates a command runner backed by os/exec.
func NewCommandRunner() domain.CommandRunner {
	return &RealCommandRunner{}
}

// Run executes a command and waits for it to complete.
func (r *RealCommandRunner) Run(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// Output executes a command and returns its stdout.
func (r *RealCommandRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Ensure RealCommandRunner implements domain.CommandRunner.
var _ domain.CommandRunner = (*RealCommandRunner)(nil)
