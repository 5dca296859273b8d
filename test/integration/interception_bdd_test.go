//go:build integration

package integration

import (
	"context"
	"os"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/codeglyph/agentshim/internal/domain"
	"github.com/codeglyph/agentshim/internal/infra"
	"github.com/codeglyph/agentshim/internal/policy"
	"github.com/codeglyph/agentshim/internal/usecase"
)

type silentNotifier struct{}

func (silentNotifier) Notify(ctx context.Context, n domain.Notification) error { return nil }

var _ = Describe("Subprocess Interception", func() {
	var (
		tmpDir      string
		registry    *infra.TrackedSet
		interceptor *usecase.Interceptor
		cfg         domain.Config
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "agentshim-intercept-*")
		Expect(err).NotTo(HaveOccurred())

		logger := zap.NewNop()
		cfg = domain.DefaultConfig()
		cfg.ShellPath = "/bin/bash"
		cfg.ShellTarget = "/bin/sh"

		registry = infra.NewTrackedSet()
		validator := policy.NewValidator(cfg.MaxPathLength)
		hooks := usecase.NewHookHandler(silentNotifier{}, logger)
		interceptor = usecase.NewInterceptor(cfg, infra.NewExecutor(), validator, hooks, registry, logger)
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	drain := func(p domain.Process) (stdout, stderr string, status domain.ExitStatus) {
		var out, errOut strings.Builder
		for ev := range p.Output() {
			switch ev.Stream {
			case domain.StreamStdout:
				out.Write(ev.Data)
			case domain.StreamStderr:
				errOut.Write(ev.Data)
			}
		}
		status = <-p.Done()
		return out.String(), errOut.String(), status
	}

	Context("when a shell command matches a blocking rule", func() {
		It("should fail synthetically with the reason on stderr, before any listener races", func() {
			p, err := interceptor.Execute(context.Background(), domain.Command{
				Path: cfg.ShellPath,
				Args: []string{"-c", `dir "C:\Users\me" /s`},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(p.PID()).To(Equal(0))

			stdout, stderr, status := drain(p)
			Expect(stdout).To(BeEmpty())
			Expect(stderr).NotTo(BeEmpty())
			Expect(status.Code).To(Equal(1))
			Expect(registry.Len()).To(Equal(0))
		})
	})

	Context("when a shell command is allowed", func() {
		It("should run it through the substituted shell in the right directory", func() {
			p, err := interceptor.Execute(context.Background(), domain.Command{
				Path: cfg.ShellPath,
				Args: []string{"-c", "pwd && echo done"},
				Dir:  tmpDir,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(p.PID()).NotTo(Equal(0))

			stdout, _, status := drain(p)
			Expect(status.Code).To(Equal(0))
			Expect(stdout).To(ContainSubstring("done"))
			Expect(stdout).To(ContainSubstring(infra.ToPosix(tmpDir)))
		})

		It("should drop the tracking entry once the subprocess exits", func() {
			p, err := interceptor.Execute(context.Background(), domain.Command{
				Path: cfg.ShellPath,
				Args: []string{"-c", "exit 0"},
				Dir:  tmpDir,
			})
			Expect(err).NotTo(HaveOccurred())

			_, _, _ = drain(p)
			Eventually(registry.Len).Should(Equal(0))
		})
	})

	Context("when the spawn request carries the hook marker", func() {
		It("should answer the permission request in process", func() {
			p, err := interceptor.Execute(context.Background(), domain.Command{
				Path: cfg.ShellPath,
				Args: []string{"-c", cfg.HookMarker},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(p.PID()).To(Equal(os.Getpid()))

			_, werr := p.Write([]byte(`{"tool_name":"Bash","cwd":"/tmp/proj"}`))
			Expect(werr).NotTo(HaveOccurred())

			stdout, _, status := drain(p)
			Expect(status.Code).To(Equal(0))
			Expect(stdout).To(ContainSubstring(`"decision":"approve"`))
		})
	})
})
