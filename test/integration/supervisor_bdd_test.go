//go:build integration

package integration

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/codeglyph/agentshim/internal/domain"
	"github.com/codeglyph/agentshim/internal/infra"
	"github.com/codeglyph/agentshim/internal/supervisor"
	"github.com/codeglyph/agentshim/internal/usecase"
)

var _ = Describe("Supervisor", func() {
	var (
		tmpDir string
		logger *zap.Logger
		cfg    domain.Config
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "agentshim-integration-*")
		Expect(err).NotTo(HaveOccurred())

		logger = zap.NewNop()
		cfg = domain.DefaultConfig()
		cfg.MaxCrashes = 2
		cfg.MaxNetworkRetries = 5
		cfg.BackoffBase = 10 * time.Millisecond
		cfg.BackoffCap = 50 * time.Millisecond
		cfg.RestartDelay = 10 * time.Millisecond
		cfg.ProbeHost = "localhost"
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	newHost := func(script string) *infra.CLIHost {
		runner := infra.NewCommandRunner()
		treeKiller := infra.NewTreeKiller(runner, logger)
		terminator := usecase.NewResilientTerminator(infra.NewTerminator(), treeKiller, logger)
		return infra.NewCLIHost(infra.NewExecutor(), terminator, "/bin/sh", []string{"-c", script}, tmpDir, logger)
	}

	Describe("Run", func() {
		Context("when the host exits cleanly", func() {
			It("should terminate successfully after one run", func() {
				host := newHost("exit 0")
				sup := supervisor.New(cfg, host, infra.NewProber(cfg.ProbeHost, cfg.ProbeTimeout), logger)

				err := sup.Run(context.Background())
				Expect(err).NotTo(HaveOccurred())
				Expect(sup.State()).To(Equal(domain.StateTerminated))
			})
		})

		Context("when the host keeps crashing", func() {
			It("should stop with a fatal diagnostic once the crash budget is spent", func() {
				host := newHost("echo boom >&2; exit 7")
				sup := supervisor.New(cfg, host, infra.NewProber(cfg.ProbeHost, cfg.ProbeTimeout), logger)

				err := sup.Run(context.Background())
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("crash budget exhausted"))
				Expect(sup.Restarts().CrashCount).To(Equal(cfg.MaxCrashes))
			})
		})

		Context("when the host fails once with a connectivity error", func() {
			It("should wait for connectivity and restart without spending the crash budget", func() {
				marker := filepath.Join(tmpDir, "recovered")
				script := "if [ -f '" + marker + "' ]; then exit 0; fi; " +
					"touch '" + marker + "'; " +
					"echo 'getaddrinfo ENOTFOUND api.anthropic.com' >&2; exit 1"

				host := newHost(script)
				sup := supervisor.New(cfg, host, infra.NewProber(cfg.ProbeHost, cfg.ProbeTimeout), logger)

				err := sup.Run(context.Background())
				Expect(err).NotTo(HaveOccurred())
				Expect(sup.Restarts().CrashCount).To(Equal(0))
				Expect(sup.Restarts().NetworkRetries).To(Equal(0))
			})
		})

		Context("when the run is canceled", func() {
			It("should return promptly with the context error", func() {
				host := newHost("sleep 30")
				sup := supervisor.New(cfg, host, infra.NewProber(cfg.ProbeHost, cfg.ProbeTimeout), logger)

				ctx, cancel := context.WithCancel(context.Background())
				done := make(chan error, 1)
				go func() { done <- sup.Run(ctx) }()

				time.Sleep(100 * time.Millisecond)
				cancel()

				Eventually(done, 5*time.Second).Should(Receive())
			})
		})
	})
})
