package usecase

import (
	"context"
	"errors"
	"os"
	"strings"
	"syscall"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/codeglyph/agentshim/internal/domain"
)

// ResilientTerminator wraps the raw termination primitives with the
// privilege-tolerant recovery the host program relies on:
//   - access-control failure: fall back to forceful tree termination,
//     swallowing its outcome (an already-dead target is a success);
//   - no-such-process: success;
//   - anything else: propagated unchanged.
//
// Success returns exactly what the wrapped primitive returns on success
// (nil), because the host's cancellation detection inspects that value.
type ResilientTerminator struct {
	raw        domain.ProcessTerminator
	treeKiller domain.TreeKiller
	logger     *zap.Logger
}

// NewResilientTerminator creates the wrapping terminator.
func NewResilientTerminator(raw domain.ProcessTerminator, tk domain.TreeKiller, logger *zap.Logger) *ResilientTerminator {
	return &ResilientTerminator{raw: raw, treeKiller: tk, logger: logger}
}

// Kill terminates a process by PID with fallback handling.
func (t *ResilientTerminator) Kill(pid int) error {
	return t.recover(pid, t.raw.Kill(pid))
}

// KillProcess terminates a subprocess via its handle with fallback
// handling.
func (t *ResilientTerminator) KillProcess(p domain.Process) error {
	return t.recover(p.PID(), t.raw.KillProcess(p))
}

func (t *ResilientTerminator) recover(pid int, err error) error {
	switch {
	case err == nil:
		return nil

	case isAccessDenied(err):
		t.logger.Debug("termination denied, falling back to tree kill",
			zap.Int("pid", pid))
		_ = t.treeKiller.KillTree(context.Background(), pid)
		return nil

	case isNoSuchProcess(err):
		return nil

	default:
		return err
	}
}

// isAccessDenied matches access-control failures across platforms.
func isAccessDenied(err error) bool {
	if errors.Is(err, os.ErrPermission) ||
		errors.Is(err, syscall.EPERM) ||
		errors.Is(err, syscall.EACCES) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "access is denied") ||
		strings.Contains(msg, "operation not permitted")
}

// isNoSuchProcess matches already-gone targets.
func isNoSuchProcess(err error) bool {
	if errors.Is(err, os.ErrProcessDone) ||
		errors.Is(err, syscall.ESRCH) ||
		errors.Is(err, process.ErrorProcessNotRunning) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such process") ||
		strings.Contains(msg, "process does not exist")
}

// Ensure ResilientTerminator implements domain.ProcessTerminator.
var _ domain.ProcessTerminator = (*ResilientTerminator)(nil)
