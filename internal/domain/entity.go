// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import "time"

// Config holds process-wide supervision settings.
// Constructed once at startup and read-only thereafter.
type Config struct {
	// MaxCrashes is the generic crash budget within CrashWindow.
	MaxCrashes int
	// CrashWindow is the sliding window for the crash budget.
	CrashWindow time.Duration
	// MaxNetworkRetries bounds the connectivity retry loop.
	MaxNetworkRetries int
	// BackoffBase is the first connectivity-retry wait.
	BackoffBase time.Duration
	// BackoffCap is the ceiling for connectivity-retry waits.
	BackoffCap time.Duration
	// RestartDelay is the fixed wait before restarting after a generic crash.
	RestartDelay time.Duration
	// GraceDelay is how long the full-teardown path waits before exiting.
	GraceDelay time.Duration
	// ProbeHost is the hostname resolved as a connectivity check.
	ProbeHost string
	// ProbeTimeout bounds a single connectivity probe.
	ProbeTimeout time.Duration

	// ShellPath is the Unix shell path the host program asks for.
	ShellPath string
	// ShellTarget is the resolved real shell binary substituted for ShellPath.
	// Empty disables shell redirection.
	ShellTarget string
	// SettingsPath is the host program's JSON settings file.
	SettingsPath string
	// HookMarker is the reserved token that routes a subprocess request
	// to the in-process permission hook handler.
	HookMarker string
	// MaxPathLength is the longest path accepted inside a shell command.
	MaxPathLength int

	// DebugLogPath receives verbose diagnostics when debug logging is on.
	DebugLogPath string
}

// DefaultConfig returns the supervision defaults.
func DefaultConfig() Config {
	return Config{
		MaxCrashes:        3,
		CrashWindow:       60 * time.Second,
		MaxNetworkRetries: 30,
		BackoffBase:       2 * time.Second,
		BackoffCap:        60 * time.Second,
		RestartDelay:      2 * time.Second,
		GraceDelay:        500 * time.Millisecond,
		ProbeHost:         "api.anthropic.com",
		ProbeTimeout:      5 * time.Second,
		ShellPath:         "/bin/bash",
		ShellTarget:       "",
		SettingsPath:      "",
		HookMarker:        "__agentshim_hook__",
		MaxPathLength:     260,
		DebugLogPath:      "",
	}
}

// SupervisorState identifies where the restart state machine is.
type SupervisorState int

const (
	StateRunning SupervisorState = iota
	StateCrashedNetwork
	StateCrashedGeneric
	StateTerminated
)

// String returns the state name for logging.
func (s SupervisorState) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateCrashedNetwork:
		return "crashed_network"
	case StateCrashedGeneric:
		return "crashed_generic"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// RestartState tracks restart accounting between host program runs.
// Mutated only by the supervisor's failure-handling branch.
type RestartState struct {
	CrashCount     int
	LastCrash      time.Time
	NetworkRetries int
}

// Stream identifies which output channel of a process an event came from.
type Stream int

const (
	StreamStdout Stream = iota
	StreamStderr
)

// String returns the stream name.
func (s Stream) String() string {
	switch s {
	case StreamStdout:
		return "stdout"
	case StreamStderr:
		return "stderr"
	default:
		return "unknown"
	}
}

// OutputEvent is a single chunk of data emitted by a process stream.
type OutputEvent struct {
	Stream Stream
	Data   []byte
}

// ExitStatus is the terminal outcome of a process.
type ExitStatus struct {
	Code int
	Err  error
}

// Command is a subprocess-creation request issued by the host program.
type Command struct {
	Path string
	Args []string
	Dir  string
	Env  []string
}

// Verdict is the outcome of validating a shell command.
type Verdict struct {
	Allowed bool
	Reason  string
}

// Allow is the verdict for commands that passed every rule.
func Allow() Verdict { return Verdict{Allowed: true} }

// Deny builds a denial verdict with a human-readable reason.
func Deny(reason string) Verdict { return Verdict{Allowed: false, Reason: reason} }

// TrackedProcess is the registry entry for a live real subprocess.
type TrackedProcess struct {
	PID       int
	RequestID string
	Path      string
	StartedAt time.Time
}

// HookRequest is an incoming tool-invocation permission request.
type HookRequest struct {
	ToolName string `json:"tool_name"`
	CWD      string `json:"cwd"`
}

// HookResponse is the structured allow decision returned for
// non-interactive tool categories.
type HookResponse struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason,omitempty"`
}

// Notification is a user-facing message delivered out of band.
type Notification struct {
	Title   string
	Message string
	Icon    string
	Sound   bool
}
