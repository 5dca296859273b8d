package supervisor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/codeglyph/agentshim/internal/domain"
)

// Supervisor is the auto-restart loop around the host program.
//
// State machine: RUNNING executes the host entry point. Failures
// classified as connectivity problems move to CRASHED_NETWORK, which
// retries probes under backoff without touching the generic crash
// budget. Other failures move to CRASHED_GENERIC, counted against a
// budget inside a sliding window. TERMINATED is absorbing.
type Supervisor struct {
	cfg    domain.Config
	host   domain.HostProgram
	prober domain.ConnectivityProber
	logger *zap.Logger

	state   domain.RestartState
	current domain.SupervisorState
}

// New creates a supervisor for host.
func New(cfg domain.Config, host domain.HostProgram, prober domain.ConnectivityProber, logger *zap.Logger) *Supervisor {
	return &Supervisor{
		cfg:     cfg,
		host:    host,
		prober:  prober,
		logger:  logger,
		current: domain.StateRunning,
	}
}

// Run drives the restart loop until the host completes cleanly, a
// budget is exhausted, or ctx is canceled. A nil return means clean
// completion; any error is the fatal diagnostic.
func (s *Supervisor) Run(ctx context.Context) error {
	for {
		s.current = domain.StateRunning
		err := s.host.Run(ctx)
		if err == nil {
			s.current = domain.StateTerminated
			s.logger.Info("host program completed")
			return nil
		}
		if ctx.Err() != nil {
			s.current = domain.StateTerminated
			return ctx.Err()
		}

		if IsNetworkError(err) {
			s.current = domain.StateCrashedNetwork
			s.logger.Warn("host program failed with network error", zap.Error(err))
			if rerr := s.awaitConnectivity(ctx); rerr != nil {
				s.current = domain.StateTerminated
				return rerr
			}
			// Only the network counter resets on reconnect; the crash
			// counter ages out through the time-window check instead.
			continue
		}

		s.current = domain.StateCrashedGeneric
		if !s.state.LastCrash.IsZero() && time.Since(s.state.LastCrash) > s.cfg.CrashWindow {
			s.state.CrashCount = 0
		}
		s.state.CrashCount++
		s.state.LastCrash = time.Now()

		if s.state.CrashCount >= s.cfg.MaxCrashes {
			s.current = domain.StateTerminated
			return fmt.Errorf("crash budget exhausted: %d crashes within %s, last error: %w",
				s.state.CrashCount, s.cfg.CrashWindow, err)
		}

		s.logger.Warn("host program crashed, restarting",
			zap.Int("crash_count", s.state.CrashCount),
			zap.Int("budget", s.cfg.MaxCrashes),
			zap.Error(err))
		if werr := sleepCtx(ctx, s.cfg.RestartDelay); werr != nil {
			s.current = domain.StateTerminated
			return werr
		}
	}
}

// awaitConnectivity probes until the network is back or the retry
// budget runs out. Probes are separated by exponentially increasing
// waits.
func (s *Supervisor) awaitConnectivity(ctx context.Context) error {
	for attempt := 1; attempt <= s.cfg.MaxNetworkRetries; attempt++ {
		s.state.NetworkRetries = attempt

		if err := s.prober.Probe(ctx); err == nil {
			s.state.NetworkRetries = 0
			s.logger.Info("connectivity restored", zap.Int("attempt", attempt))
			return nil
		}

		wait := Backoff(attempt, s.cfg.BackoffBase, s.cfg.BackoffCap)
		s.logger.Info("waiting for connectivity",
			zap.Int("attempt", attempt),
			zap.Int("budget", s.cfg.MaxNetworkRetries),
			zap.Duration("wait", wait))
		if err := sleepCtx(ctx, wait); err != nil {
			return err
		}
	}
	return fmt.Errorf("network retry budget exhausted after %d probes against %s",
		s.cfg.MaxNetworkRetries, s.cfg.ProbeHost)
}

// State returns the current state machine position.
func (s *Supervisor) State() domain.SupervisorState { return s.current }

// Restarts returns a copy of the restart accounting.
func (s *Supervisor) Restarts() domain.RestartState { return s.state }

// sleepCtx waits for d unless ctx is canceled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
