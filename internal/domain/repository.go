package domain

import "context"

// Process is the observable surface of a spawned command.
// Real subprocesses and synthetic stand-ins expose the same contract:
// output events followed by exactly one exit status on Done.
// No event is delivered before the creating call has returned, so callers
// may always attach receivers after creation without losing events.
type Process interface {
	// PID returns the OS process identity. Synthetic processes report a
	// placeholder: 0 for blocked commands, the shim's own PID for
	// hook-handled requests.
	PID() int

	// Output streams data events. Closed after the last event.
	Output() <-chan OutputEvent

	// Done yields the exit status once and is then closed.
	Done() <-chan ExitStatus

	// Kill terminates the underlying process, if any.
	Kill() error

	// Write sends data to the process stdin. Synthetic processes discard it.
	Write(p []byte) (int, error)
}

// CommandExecutor creates subprocesses. The real implementation spawns
// OS processes; the intercepting implementation wraps it with redirection,
// validation, and synthetic handles.
type CommandExecutor interface {
	// Execute starts the command and returns its handle.
	Execute(ctx context.Context, cmd Command) (Process, error)
}

// ProcessTerminator wraps the two process-termination primitives.
type ProcessTerminator interface {
	// Kill terminates an arbitrary process by PID.
	Kill(pid int) error

	// KillProcess terminates a subprocess via its handle.
	KillProcess(p Process) error
}

// TreeKiller forcefully terminates a process and all of its descendants.
// Used as the privilege-tolerant fallback and for signal teardown.
type TreeKiller interface {
	// KillTree kills pid and its whole process tree, best effort.
	KillTree(ctx context.Context, pid int) error
}

// ProcessRegistry is the tracked set of live real subprocesses.
// Insertion is owned by the interception layer; iteration-and-kill during
// teardown is owned by the signal controller.
type ProcessRegistry interface {
	// Add records a live subprocess.
	Add(tp TrackedProcess)

	// Remove drops the entry for pid. Safe to call for unknown PIDs.
	Remove(pid int)

	// Snapshot returns the current entries.
	Snapshot() []TrackedProcess

	// Len returns the number of tracked subprocesses.
	Len() int
}

// ConnectivityProber checks whether the network is reachable.
// Implementation: a name-resolution query against a fixed external host.
type ConnectivityProber interface {
	// Probe returns nil when connectivity is available.
	Probe(ctx context.Context) error
}

// Notifier delivers user-facing notifications. Fire-and-forget: failures
// must never interrupt the primary control flow.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// FileReader reads files on behalf of the host program. The intercepting
// implementation rewrites reads of the host's settings file.
type FileReader interface {
	ReadFile(path string) ([]byte, error)
}

// CommandRunner abstracts one-shot command execution for testing.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) error
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// HostProgram is the wrapped third-party CLI entry point. Opaque: it is
// launched, may return an error, and issues subprocess requests through
// the injected CommandExecutor.
type HostProgram interface {
	// Run executes the host program once and blocks until it finishes.
	Run(ctx context.Context) error
}

// CommandValidator gates shell commands before subprocess creation.
type CommandValidator interface {
	Validate(command string) Verdict
}
