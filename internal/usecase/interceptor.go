package usecase

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/codeglyph/agentshim/internal/domain"
	"github.com/codeglyph/agentshim/internal/infra"
)

// Interceptor wraps the real command executor with the shim's
// subprocess-interception behavior: hook redirection, shell command
// validation, shell binary substitution, and lifecycle tracking.
type Interceptor struct {
	cfg       domain.Config
	real      domain.CommandExecutor
	validator domain.CommandValidator
	hooks     *HookHandler
	registry  domain.ProcessRegistry
	logger    *zap.Logger
}

// NewInterceptor creates the intercepting executor.
func NewInterceptor(
	cfg domain.Config,
	real domain.CommandExecutor,
	validator domain.CommandValidator,
	hooks *HookHandler,
	registry domain.ProcessRegistry,
	logger *zap.Logger,
) *Interceptor {
	return &Interceptor{
		cfg:       cfg,
		real:      real,
		validator: validator,
		hooks:     hooks,
		registry:  registry,
		logger:    logger,
	}
}

// Execute applies the interception decision sequence to one
// subprocess-creation request.
func (i *Interceptor) Execute(ctx context.Context, cmd domain.Command) (domain.Process, error) {
	reqID := uuid.NewString()[:8]

	// Reserved marker: route to the in-process permission hook handler
	// instead of spawning anything.
	if i.isHookRequest(cmd) {
		i.logger.Debug("hook request intercepted", zap.String("req", reqID))
		p := newHookProcess(os.Getpid(), i.hooks.Handle)
		defer p.start()
		return p, nil
	}

	// Unix shell invocations are validated and redirected to the real
	// shell binary.
	if cmd.Path == i.cfg.ShellPath && i.cfg.ShellTarget != "" {
		script := shellScript(cmd.Args)

		verdict := i.validator.Validate(script)
		if !verdict.Allowed {
			i.logger.Info("command blocked",
				zap.String("req", reqID),
				zap.String("reason", verdict.Reason))
			p := newBlockedProcess(verdict.Reason)
			defer p.start()
			return p, nil
		}

		cmd = i.redirectShell(cmd, script)
		i.logger.Debug("shell redirected",
			zap.String("req", reqID),
			zap.String("target", cmd.Path))
	}

	p, err := i.real.Execute(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return i.track(p, cmd, reqID), nil
}

// isHookRequest reports whether the request carries the reserved marker.
func (i *Interceptor) isHookRequest(cmd domain.Command) bool {
	if strings.Contains(cmd.Path, i.cfg.HookMarker) {
		return true
	}
	for _, a := range cmd.Args {
		if strings.Contains(a, i.cfg.HookMarker) {
			return true
		}
	}
	return false
}

// redirectShell substitutes the resolved shell binary and anchors the
// script in the POSIX translation of the requested working directory.
func (i *Interceptor) redirectShell(cmd domain.Command, script string) domain.Command {
	out := cmd
	out.Path = i.cfg.ShellTarget

	if cmd.Dir != "" && script != "" {
		anchored := fmt.Sprintf("cd '%s' && %s", infra.ToPosix(cmd.Dir), script)
		out.Args = replaceScript(cmd.Args, anchored)
	}
	return out
}

// track registers a real subprocess and arranges its removal on exit.
// Removal happens exactly once, driven by the subprocess's own exit
// notification, never eagerly.
func (i *Interceptor) track(p domain.Process, cmd domain.Command, reqID string) domain.Process {
	pid := p.PID()
	if pid == 0 {
		return p
	}

	i.registry.Add(domain.TrackedProcess{
		PID:       pid,
		RequestID: reqID,
		Path:      cmd.Path,
		StartedAt: time.Now(),
	})

	tp := &trackedProcess{Process: p, done: make(chan domain.ExitStatus, 1)}
	go func() {
		status, ok := <-p.Done()
		i.registry.Remove(pid)
		i.logger.Debug("subprocess exited",
			zap.String("req", reqID),
			zap.Int("pid", pid),
			zap.Int("code", status.Code))
		if ok {
			tp.done <- status
		}
		close(tp.done)
	}()
	return tp
}

// trackedProcess forwards the exit status after registry bookkeeping.
type trackedProcess struct {
	domain.Process
	done chan domain.ExitStatus
}

func (t *trackedProcess) Done() <-chan domain.ExitStatus { return t.done }

// shellScript extracts the command string following -c (or -lc).
func shellScript(args []string) string {
	for n, a := range args {
		switch a {
		case "-c", "-lc", "-ic":
			if n+1 < len(args) {
				return args[n+1]
			}
		}
	}
	return ""
}

// replaceScript swaps the -c argument for the anchored script.
func replaceScript(args []string, script string) []string {
	out := make([]string, len(args))
	copy(out, args)
	for n, a := range out {
		switch a {
		case "-c", "-lc", "-ic":
			if n+1 < len(out) {
				out[n+1] = script
				return out
			}
		}
	}
	return out
}

// Ensure Interceptor implements domain.CommandExecutor.
var _ domain.CommandExecutor = (*Interceptor)(nil)
