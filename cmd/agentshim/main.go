// Package main is the CLI entry point for agentshim.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/codeglyph/agentshim/internal/domain"
	"github.com/codeglyph/agentshim/internal/infra"
	"github.com/codeglyph/agentshim/internal/policy"
	"github.com/codeglyph/agentshim/internal/supervisor"
	"github.com/codeglyph/agentshim/internal/usecase"
)

var (
	// Version info (set via ldflags)
	Version   = "0.3.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "agentshim",
	Short: "Supervision shim for running a CLI agent on an unsupported OS",
	Long: `agentshim wraps a third-party CLI agent with an auto-restart
supervisor, a subprocess interception layer, and a bash-command
validation firewall, so the agent behaves correctly on a platform it
was not built for.

Network outages and crashes are handled with separate restart budgets;
shell commands that would crash or hang the emulated environment are
blocked before they reach a subprocess.`,
	Version: Version,
}

var runCmd = &cobra.Command{
	Use:   "run [-- host-args...]",
	Short: "Run the host CLI under supervision",
	Long: `Launches the host CLI and keeps it alive: connectivity failures
wait for the network to return (with exponential backoff), generic
crashes restart up to a budget within a sliding window. Ctrl+C kills
all tracked subprocesses and exits; SIGQUIT kills them but keeps the
session running (unfreeze).`,
	RunE: runRun,
}

var validateCmd = &cobra.Command{
	Use:   "validate <command>",
	Short: "Check a shell command against the validation rules",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

var hookCmd = &cobra.Command{
	Use:    "hook",
	Short:  "Handle one permission request from stdin",
	Hidden: true,
	RunE:   runHook,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run:   runVersion,
}

var (
	configPath  string
	debugMode   bool
	hostBin     string
	shellTarget string
	linkConfig  string
	jsonOutput  bool
)

func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "YAML config file")
	runCmd.Flags().BoolVar(&debugMode, "debug", false, "Verbose diagnostic logging to a local file")
	runCmd.Flags().StringVar(&hostBin, "host", "claude", "Host CLI binary to supervise")
	runCmd.Flags().StringVar(&shellTarget, "shell-target", "", "Real shell binary substituted for /bin/bash (auto-detected when empty)")
	runCmd.Flags().StringVar(&linkConfig, "link-config", "", "Legacy config directory to junction to the settings directory")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(hookCmd)
	rootCmd.AddCommand(versionCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	logger := createLogger(debugMode)
	defer func() { _ = logger.Sync() }()

	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	// Infrastructure
	runner := infra.NewCommandRunner()
	registry := infra.NewTrackedSet()
	treeKiller := infra.NewTreeKiller(runner, logger)
	terminator := usecase.NewResilientTerminator(infra.NewTerminator(), treeKiller, logger)
	notifier := infra.NewNotifier(runner, logger)
	prober := infra.NewProber(cfg.ProbeHost, cfg.ProbeTimeout)

	// Interception
	validator := policy.NewValidator(cfg.MaxPathLength)
	hooks := usecase.NewHookHandler(notifier, logger)
	interceptor := usecase.NewInterceptor(cfg, infra.NewExecutor(), validator, hooks, registry, logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Best-effort setup: settings hook registration, change watch,
	// legacy config junction. None of these may abort the run.
	settingsReader := usecase.NewSettingsInjector(infra.NewFileReader(), cfg.SettingsPath, cfg.HookMarker, logger)
	ensureSettings(settingsReader, cfg, logger)
	if cfg.SettingsPath != "" {
		watcher, werr := infra.NewSettingsWatcher(cfg.SettingsPath, func() {
			ensureSettings(settingsReader, cfg, logger)
		}, logger)
		if werr != nil {
			logger.Debug("settings watch unavailable", zap.Error(werr))
		} else {
			go watcher.Run(ctx)
		}
	}
	if linkConfig != "" && cfg.SettingsPath != "" {
		infra.EnsureJunction(ctx, runner, linkConfig, filepath.Dir(cfg.SettingsPath), logger)
	}

	host := infra.NewCLIHost(interceptor, terminator, hostBin, args, cwd, logger)
	sup := supervisor.New(cfg, host, prober, logger)

	controller := supervisor.NewSignalController(registry, treeKiller, cfg.GraceDelay, cancel, logger)
	go controller.Listen(ctx)

	if err := sup.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("supervisor stopped")
			return nil
		}
		fmt.Fprintf(os.Stderr, "agentshim: %v\n", err)
		return err
	}
	return nil
}

// ensureSettings makes the on-disk settings file carry the shim's hook
// registration. Best effort: a missing or unparsable file is left alone.
func ensureSettings(reader domain.FileReader, cfg domain.Config, logger *zap.Logger) {
	if cfg.SettingsPath == "" {
		return
	}

	injected, err := reader.ReadFile(cfg.SettingsPath)
	if err != nil {
		logger.Debug("settings not readable", zap.Error(err))
		return
	}
	current, err := os.ReadFile(cfg.SettingsPath)
	if err != nil || string(current) == string(injected) {
		return
	}
	if err := os.WriteFile(cfg.SettingsPath, injected, 0o644); err != nil {
		logger.Debug("settings write failed", zap.Error(err))
		return
	}
	logger.Info("hook registration written to settings", zap.String("path", cfg.SettingsPath))
}

func runValidate(cmd *cobra.Command, args []string) error {
	v := policy.NewValidator(0)
	verdict := v.Validate(args[0])

	if verdict.Allowed {
		fmt.Println("allowed")
		return nil
	}
	fmt.Printf("denied: %s\n", verdict.Reason)
	return nil
}

func runHook(cmd *cobra.Command, args []string) error {
	logger := createLogger(debugMode)
	defer func() { _ = logger.Sync() }()

	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		return err
	}

	runner := infra.NewCommandRunner()
	handler := usecase.NewHookHandler(infra.NewNotifier(runner, logger), logger)
	fmt.Print(handler.Handle(raw))
	return nil
}

// duration lets YAML carry "90s"-style values.
type duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = duration(parsed)
	return nil
}

// fileConfig is the YAML shape of the optional config file. Pointer
// fields distinguish "absent" from zero so file values only override
// what they set.
type fileConfig struct {
	MaxCrashes        *int      `yaml:"max_crashes"`
	CrashWindow       *duration `yaml:"crash_window"`
	MaxNetworkRetries *int      `yaml:"max_network_retries"`
	BackoffBase       *duration `yaml:"backoff_base"`
	BackoffCap        *duration `yaml:"backoff_cap"`
	RestartDelay      *duration `yaml:"restart_delay"`
	ProbeHost         *string   `yaml:"probe_host"`
	ShellPath         *string   `yaml:"shell_path"`
	ShellTarget       *string   `yaml:"shell_target"`
	SettingsPath      *string   `yaml:"settings_path"`
	MaxPathLength     *int      `yaml:"max_path_length"`
}

func buildConfig() (domain.Config, error) {
	cfg := domain.DefaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return cfg, fmt.Errorf("parsing config: %w", err)
		}
		applyFileConfig(&cfg, fc)
	}

	if shellTarget != "" {
		cfg.ShellTarget = shellTarget
	}
	if cfg.ShellTarget == "" {
		if found, err := exec.LookPath("bash"); err == nil {
			cfg.ShellTarget = found
		}
	}
	if cfg.SettingsPath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.SettingsPath = filepath.Join(home, ".claude", "settings.json")
		}
	}
	if debugMode && cfg.DebugLogPath == "" {
		cfg.DebugLogPath = filepath.Join(os.TempDir(), "agentshim-debug.log")
	}

	return cfg, nil
}

func applyFileConfig(cfg *domain.Config, fc fileConfig) {
	if fc.MaxCrashes != nil {
		cfg.MaxCrashes = *fc.MaxCrashes
	}
	if fc.CrashWindow != nil {
		cfg.CrashWindow = time.Duration(*fc.CrashWindow)
	}
	if fc.MaxNetworkRetries != nil {
		cfg.MaxNetworkRetries = *fc.MaxNetworkRetries
	}
	if fc.BackoffBase != nil {
		cfg.BackoffBase = time.Duration(*fc.BackoffBase)
	}
	if fc.BackoffCap != nil {
		cfg.BackoffCap = time.Duration(*fc.BackoffCap)
	}
	if fc.RestartDelay != nil {
		cfg.RestartDelay = time.Duration(*fc.RestartDelay)
	}
	if fc.ProbeHost != nil {
		cfg.ProbeHost = *fc.ProbeHost
	}
	if fc.ShellPath != nil {
		cfg.ShellPath = *fc.ShellPath
	}
	if fc.ShellTarget != nil {
		cfg.ShellTarget = *fc.ShellTarget
	}
	if fc.SettingsPath != nil {
		cfg.SettingsPath = *fc.SettingsPath
	}
	if fc.MaxPathLength != nil {
		cfg.MaxPathLength = *fc.MaxPathLength
	}
}

func createLogger(debug bool) *zap.Logger {
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{filepath.Join(os.TempDir(), "agentshim.log")}
	config.ErrorOutputPaths = []string{filepath.Join(os.TempDir(), "agentshim.error.log")}
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		config.OutputPaths = append(config.OutputPaths, filepath.Join(os.TempDir(), "agentshim-debug.log"))
	}

	logger, err := config.Build()
	if err != nil {
		// Fallback to stdout if file logging fails
		logger, _ = zap.NewProduction()
	}
	return logger
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("agentshim %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}
