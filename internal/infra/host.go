package infra

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/codeglyph/agentshim/internal/domain"
)

// stderrTailLimit bounds how much captured stderr is folded into the
// failure diagnostic. The tail matters: runtime connectivity errors
// appear last.
const stderrTailLimit = 4096

// CLIHost runs the wrapped third-party CLI as the supervised host
// program. Subprocess creation goes through the injected executor, so
// the interception layer sees the spawn.
type CLIHost struct {
	executor   domain.CommandExecutor
	terminator domain.ProcessTerminator
	bin        string
	args       []string
	dir        string
	logger     *zap.Logger
}

// NewCLIHost creates the host program adapter. terminator is used to
// reap the host when the supervising context is canceled.
func NewCLIHost(
	executor domain.CommandExecutor,
	terminator domain.ProcessTerminator,
	bin string,
	args []string,
	dir string,
	logger *zap.Logger,
) *CLIHost {
	return &CLIHost{
		executor:   executor,
		terminator: terminator,
		bin:        bin,
		args:       args,
		dir:        dir,
		logger:     logger,
	}
}

// Run executes the host once, mirroring its output to the shim's own
// stdio, and blocks until it exits. A non-zero exit becomes an error
// carrying the stderr tail so the supervisor's classifier can see
// connectivity phrases that only exist as text.
func (h *CLIHost) Run(ctx context.Context) error {
	p, err := h.executor.Execute(ctx, domain.Command{
		Path: h.bin,
		Args: h.args,
		Dir:  h.dir,
		Env:  os.Environ(),
	})
	if err != nil {
		return fmt.Errorf("starting %s: %w", h.bin, err)
	}

	reaped := make(chan struct{})
	defer close(reaped)
	go func() {
		select {
		case <-ctx.Done():
			if kerr := h.terminator.KillProcess(p); kerr != nil {
				h.logger.Debug("host reap failed", zap.Error(kerr))
			}
		case <-reaped:
		}
	}()

	var stderrTail []byte
	for ev := range p.Output() {
		switch ev.Stream {
		case domain.StreamStdout:
			_, _ = os.Stdout.Write(ev.Data)
		case domain.StreamStderr:
			_, _ = os.Stderr.Write(ev.Data)
			stderrTail = append(stderrTail, ev.Data...)
			if len(stderrTail) > stderrTailLimit {
				stderrTail = stderrTail[len(stderrTail)-stderrTailLimit:]
			}
		}
	}

	status := <-p.Done()
	if status.Err == nil && status.Code == 0 {
		return nil
	}

	h.logger.Warn("host program exited abnormally",
		zap.Int("code", status.Code),
		zap.Error(status.Err))
	if len(stderrTail) > 0 {
		return fmt.Errorf("%s exited with code %d: %s", h.bin, status.Code, string(stderrTail))
	}
	if status.Err != nil {
		return fmt.Errorf("%s exited with code %d: %w", h.bin, status.Code, status.Err)
	}
	return fmt.Errorf("%s exited with code %d", h.bin, status.Code)
}

// Ensure CLIHost implements domain.HostProgram.
var _ domain.HostProgram = (*CLIHost)(nil)
