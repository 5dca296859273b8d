package usecase

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/codeglyph/agentshim/internal/domain"
)

// hookEventName is the host settings event category the shim registers
// itself under.
const hookEventName = "PreToolUse"

// SettingsInjector decorates a file reader so that reads of the host
// program's settings file come back with the shim's hook registration
// present. The file on disk is never modified; only the bytes handed to
// the host change. Reads of any other path pass through untouched.
type SettingsInjector struct {
	inner        domain.FileReader
	settingsPath string
	marker       string
	logger       *zap.Logger
}

// NewSettingsInjector creates the decorating reader.
func NewSettingsInjector(inner domain.FileReader, settingsPath, marker string, logger *zap.Logger) *SettingsInjector {
	return &SettingsInjector{
		inner:        inner,
		settingsPath: settingsPath,
		marker:       marker,
		logger:       logger,
	}
}

// ReadFile reads path, injecting the hook registration when path is the
// configured settings file. A settings file that fails to parse is
// returned as-is: injection is best effort and must never break the
// host's own configuration loading.
func (s *SettingsInjector) ReadFile(path string) ([]byte, error) {
	data, err := s.inner.ReadFile(path)
	if err != nil || !s.isSettingsPath(path) {
		return data, err
	}

	injected, changed, ierr := InjectHookRegistration(data, s.marker)
	if ierr != nil {
		s.logger.Debug("settings not injectable", zap.Error(ierr))
		return data, nil
	}
	if changed {
		s.logger.Debug("hook registration injected", zap.String("path", path))
	}
	return injected, nil
}

func (s *SettingsInjector) isSettingsPath(path string) bool {
	if s.settingsPath == "" {
		return false
	}
	return strings.EqualFold(filepath.Clean(path), filepath.Clean(s.settingsPath))
}

// InjectHookRegistration ensures the parsed settings carry a PreToolUse
// hook whose command is the marker token. Returns the (possibly
// rewritten) bytes and whether an injection happened.
func InjectHookRegistration(data []byte, marker string) ([]byte, bool, error) {
	var settings map[string]any
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, false, err
	}
	if settings == nil {
		settings = map[string]any{}
	}

	hooks, _ := settings["hooks"].(map[string]any)
	if hooks == nil {
		hooks = map[string]any{}
		settings["hooks"] = hooks
	}

	pre, _ := hooks[hookEventName].([]any)
	if hasMarkerRegistration(pre, marker) {
		return data, false, nil
	}

	entry := map[string]any{
		"matcher": "*",
		"hooks": []any{
			map[string]any{"type": "command", "command": marker},
		},
	}
	hooks[hookEventName] = append(pre, entry)

	out, err := json.Marshal(settings)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

// hasMarkerRegistration walks the event's matcher entries looking for a
// command hook carrying the marker.
func hasMarkerRegistration(entries []any, marker string) bool {
	for _, e := range entries {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		inner, _ := m["hooks"].([]any)
		for _, h := range inner {
			hm, ok := h.(map[string]any)
			if !ok {
				continue
			}
			if cmd, _ := hm["command"].(string); strings.Contains(cmd, marker) {
				return true
			}
		}
	}
	return false
}

// Ensure SettingsInjector implements domain.FileReader.
var _ domain.FileReader = (*SettingsInjector)(nil)
