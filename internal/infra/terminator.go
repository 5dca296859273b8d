package infra

import (
	"context"
	"os"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/codeglyph/agentshim/internal/domain"
)

// treeKillTimeout bounds the forceful tree-termination command.
const treeKillTimeout = 10 * time.Second

// SystemTerminator implements the raw termination primitives using gopsutil.
// It performs no recovery; the resilient wrapper in usecase owns fallback
// behavior.
type SystemTerminator struct{}

// NewTerminator creates the raw process terminator.
func NewTerminator() domain.ProcessTerminator {
	return &SystemTerminator{}
}

// Kill terminates a process by PID.
func (t *SystemTerminator) Kill(pid int) error {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		// gopsutil reports unknown PIDs at construction time; surface the
		// condition as the conventional errno so callers can classify it.
		return syscall.ESRCH
	}
	return p.Kill()
}

// KillProcess terminates a subprocess via its handle.
func (t *SystemTerminator) KillProcess(p domain.Process) error {
	return p.Kill()
}

// IsRunning checks if a PID exists and is running.
func (t *SystemTerminator) IsRunning(pid int) bool {
	running, err := process.PidExists(int32(pid))
	return err == nil && running
}

// Ensure SystemTerminator implements domain.ProcessTerminator.
var _ domain.ProcessTerminator = (*SystemTerminator)(nil)

// TreeKillerImpl forcefully terminates whole process trees. On Windows it
// shells out to taskkill; elsewhere it walks the child tree via gopsutil.
// Failures are swallowed: an already-dead target is a success.
type TreeKillerImpl struct {
	runner domain.CommandRunner
	logger *zap.Logger
}

// NewTreeKiller creates a tree killer using the given runner for the
// OS-level termination command.
func NewTreeKiller(runner domain.CommandRunner, logger *zap.Logger) domain.TreeKiller {
	return &TreeKillerImpl{runner: runner, logger: logger}
}

// KillTree kills pid and all of its descendants, best effort.
func (k *TreeKillerImpl) KillTree(ctx context.Context, pid int) error {
	ctx, cancel := context.WithTimeout(ctx, treeKillTimeout)
	defer cancel()

	if runtime.GOOS == "windows" {
		if err := k.runner.Run(ctx, "taskkill", "/pid", strconv.Itoa(pid), "/t", "/f"); err != nil {
			k.logger.Debug("taskkill failed", zap.Int("pid", pid), zap.Error(err))
		}
		return nil
	}

	k.killTreeUnix(pid)
	return nil
}

func (k *TreeKillerImpl) killTreeUnix(pid int) {
	p, err := process.NewProcess(int32(pid))
	if err == nil {
		children, _ := p.Children()
		for _, child := range children {
			k.killTreeUnix(int(child.Pid))
		}
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return
	}
	if err := proc.Kill(); err != nil {
		k.logger.Debug("kill failed", zap.Int("pid", pid), zap.Error(err))
	}
}

// Ensure TreeKillerImpl implements domain.TreeKiller.
var _ domain.TreeKiller = (*TreeKillerImpl)(nil)
