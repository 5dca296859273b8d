// Package usecase contains application business logic: subprocess
// interception, permission hooks, and privilege-tolerant termination.
package usecase

import (
	"sync"

	"github.com/codeglyph/agentshim/internal/domain"
)

// blockedProcess is a synthetic stand-in for a denied shell command.
// It emits the denial reason on its stderr stream and closes with a
// failure status. PID is 0 since no OS process was created.
//
// Emission is gated: nothing is delivered until release() is called,
// which the interceptor does only after Execute has returned the handle
// to the caller. Combined with buffered channels this preserves the
// listeners-attach-first ordering guarantee.
type blockedProcess struct {
	reason  string
	output  chan domain.OutputEvent
	done    chan domain.ExitStatus
	gate    chan struct{}
	release sync.Once
}

func newBlockedProcess(reason string) *blockedProcess {
	p := &blockedProcess{
		reason: reason,
		output: make(chan domain.OutputEvent, 1),
		done:   make(chan domain.ExitStatus, 1),
		gate:   make(chan struct{}),
	}
	go p.emit()
	return p
}

func (p *blockedProcess) emit() {
	<-p.gate
	p.output <- domain.OutputEvent{Stream: domain.StreamStderr, Data: []byte(p.reason)}
	close(p.output)
	p.done <- domain.ExitStatus{Code: 1}
	close(p.done)
}

func (p *blockedProcess) start() {
	p.release.Do(func() { close(p.gate) })
}

func (p *blockedProcess) PID() int                           { return 0 }
func (p *blockedProcess) Output() <-chan domain.OutputEvent  { return p.output }
func (p *blockedProcess) Done() <-chan domain.ExitStatus     { return p.done }
func (p *blockedProcess) Kill() error                        { return nil }
func (p *blockedProcess) Write(b []byte) (int, error)        { return len(b), nil }

// hookProcess is a synthetic stand-in for an internally handled hook
// request. The host program writes the request JSON to its stdin; the
// bound handler's response is emitted on stdout before a clean close.
// PID reports the shim's own identity.
type hookProcess struct {
	pid     int
	handle  func(raw []byte) string
	output  chan domain.OutputEvent
	done    chan domain.ExitStatus
	gate    chan struct{}
	release sync.Once
	respond sync.Once
}

func newHookProcess(pid int, handle func(raw []byte) string) *hookProcess {
	return &hookProcess{
		pid:    pid,
		handle: handle,
		output: make(chan domain.OutputEvent, 1),
		done:   make(chan domain.ExitStatus, 1),
		gate:   make(chan struct{}),
	}
}

func (p *hookProcess) start() {
	p.release.Do(func() { close(p.gate) })
}

// Write receives the request payload. The first write triggers the
// handler; the response is delivered once the emission gate is open.
func (p *hookProcess) Write(b []byte) (int, error) {
	req := make([]byte, len(b))
	copy(req, b)
	p.respond.Do(func() { go p.emit(req) })
	return len(b), nil
}

func (p *hookProcess) emit(req []byte) {
	<-p.gate
	if resp := p.handle(req); resp != "" {
		p.output <- domain.OutputEvent{Stream: domain.StreamStdout, Data: []byte(resp)}
	}
	close(p.output)
	p.done <- domain.ExitStatus{Code: 0}
	close(p.done)
}

func (p *hookProcess) PID() int                          { return p.pid }
func (p *hookProcess) Output() <-chan domain.OutputEvent { return p.output }
func (p *hookProcess) Done() <-chan domain.ExitStatus    { return p.done }
func (p *hookProcess) Kill() error                       { return nil }

// Ensure both synthetic kinds implement domain.Process.
var (
	_ domain.Process = (*blockedProcess)(nil)
	_ domain.Process = (*hookProcess)(nil)
)
