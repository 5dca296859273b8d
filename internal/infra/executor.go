package infra

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/codeglyph/agentshim/internal/domain"
)

// outputBuffer sizes the event channel of a real process. Large enough
// that short-lived commands never block their pump goroutines on a slow
// consumer.
const outputBuffer = 256

// RealExecutor spawns OS subprocesses via os/exec.
type RealExecutor struct{}

// NewExecutor creates the real command executor.
func NewExecutor() domain.CommandExecutor {
	return &RealExecutor{}
}

// Execute starts cmd and returns its handle. Output pumps start
// immediately; events buffer until the caller begins receiving.
func (e *RealExecutor) Execute(ctx context.Context, cmd domain.Command) (domain.Process, error) {
	c := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = cmd.Env

	stdin, err := c.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := c.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := c.StderrPipe()
	if err != nil {
		return nil, err
	}

	if err := c.Start(); err != nil {
		return nil, err
	}

	p := &realProcess{
		cmd:    c,
		stdin:  stdin,
		output: make(chan domain.OutputEvent, outputBuffer),
		done:   make(chan domain.ExitStatus, 1),
	}

	p.pumps.Add(2)
	go p.pump(domain.StreamStdout, stdout)
	go p.pump(domain.StreamStderr, stderr)
	go p.wait()

	return p, nil
}

// realProcess wraps a running exec.Cmd behind the domain.Process surface.
type realProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	output chan domain.OutputEvent
	done   chan domain.ExitStatus
	pumps  sync.WaitGroup
}

// PID returns the OS process id.
func (p *realProcess) PID() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Output streams stdout and stderr chunks.
func (p *realProcess) Output() <-chan domain.OutputEvent { return p.output }

// Done yields the exit status once the process and its pumps finish.
func (p *realProcess) Done() <-chan domain.ExitStatus { return p.done }

// Kill terminates the underlying OS process. Already-exited processes
// are not an error.
func (p *realProcess) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	err := p.cmd.Process.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

// Write sends data to the process stdin.
func (p *realProcess) Write(b []byte) (int, error) {
	return p.stdin.Write(b)
}

func (p *realProcess) pump(stream domain.Stream, r io.Reader) {
	defer p.pumps.Done()

	reader := bufio.NewReader(r)
	buf := make([]byte, 4096)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			p.output <- domain.OutputEvent{Stream: stream, Data: data}
		}
		if err != nil {
			return
		}
	}
}

func (p *realProcess) wait() {
	err := p.cmd.Wait()
	p.pumps.Wait()
	close(p.output)

	status := domain.ExitStatus{}
	if err != nil {
		status.Err = err
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			status.Code = exitErr.ExitCode()
		} else {
			status.Code = -1
		}
	}
	p.done <- status
	close(p.done)
}

// Ensure realProcess implements domain.Process.
var _ domain.Process = (*realProcess)(nil)
