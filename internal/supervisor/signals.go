package supervisor

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/codeglyph/agentshim/internal/domain"
)

// SignalController binds teardown behavior to the two external signals:
// interrupt tears everything down and stops the supervisor; the unfreeze
// signal kills tracked subprocesses but leaves the supervisor (and the
// host session) running. In-flight connectivity waits are not canceled
// by unfreeze.
type SignalController struct {
	registry   domain.ProcessRegistry
	treeKiller domain.TreeKiller
	grace      time.Duration
	stop       context.CancelFunc
	logger     *zap.Logger
}

// NewSignalController creates the controller. stop is invoked after the
// grace delay on the full-teardown path.
func NewSignalController(
	registry domain.ProcessRegistry,
	tk domain.TreeKiller,
	grace time.Duration,
	stop context.CancelFunc,
	logger *zap.Logger,
) *SignalController {
	return &SignalController{
		registry:   registry,
		treeKiller: tk,
		grace:      grace,
		stop:       stop,
		logger:     logger,
	}
}

// Listen installs the signal handlers and serves them until ctx is done
// or a full teardown fires.
func (c *SignalController) Listen(ctx context.Context) {
	full := make(chan os.Signal, 1)
	signal.Notify(full, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(full)

	partial := make(chan os.Signal, 1)
	signal.Notify(partial, syscall.SIGQUIT)
	defer signal.Stop(partial)

	for {
		select {
		case <-ctx.Done():
			return

		case <-full:
			c.FullTeardown(ctx)
			return

		case <-partial:
			c.Unfreeze(ctx)
		}
	}
}

// FullTeardown kills every tracked subprocess, waits the grace delay,
// then stops the supervisor.
func (c *SignalController) FullTeardown(ctx context.Context) {
	c.logger.Info("full teardown requested")
	c.killTracked(ctx)
	time.Sleep(c.grace)
	c.stop()
}

// Unfreeze kills every tracked subprocess but keeps the supervisor and
// the host session alive. Idempotent: an empty tracked set is a no-op
// beyond logging.
func (c *SignalController) Unfreeze(ctx context.Context) {
	c.logger.Info("unfreeze requested")
	c.killTracked(ctx)
}

func (c *SignalController) killTracked(ctx context.Context) {
	tracked := c.registry.Snapshot()
	c.logger.Info("killing tracked subprocesses", zap.Int("count", len(tracked)))

	for _, tp := range tracked {
		if err := c.treeKiller.KillTree(ctx, tp.PID); err != nil {
			c.logger.Debug("tree kill failed",
				zap.Int("pid", tp.PID),
				zap.Error(err))
		}
	}
}
