package usecase

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/codeglyph/agentshim/internal/domain"
)

// interactiveTools are the tool categories handed back to the host
// program's default interactive flow. Everything else is auto-approved.
var interactiveTools = map[string]struct{}{
	"AskUserQuestion": {},
	"ExitPlanMode":    {},
}

// HookHandler maps tool-invocation permission requests to decisions.
// Pure with respect to its return value; the notification side channel
// is fire-and-forget.
type HookHandler struct {
	notifier domain.Notifier
	logger   *zap.Logger
}

// NewHookHandler creates the permission hook handler.
func NewHookHandler(notifier domain.Notifier, logger *zap.Logger) *HookHandler {
	return &HookHandler{notifier: notifier, logger: logger}
}

// Handle parses one permission request and returns the response payload.
// Interactive categories return "" (passthrough to the host's own
// prompting) after dispatching a notification; everything else returns a
// structured allow decision. Malformed input fails open to allow: the
// host program must never be blocked by bad hook plumbing.
func (h *HookHandler) Handle(raw []byte) string {
	var req domain.HookRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		h.logger.Debug("malformed hook request, failing open", zap.Error(err))
		return h.allowResponse("malformed request")
	}

	if _, interactive := interactiveTools[req.ToolName]; interactive {
		h.notify(req)
		return ""
	}

	return h.allowResponse("pre-approved tool category")
}

// notify dispatches the pending-action notification without waiting for
// or inspecting the result.
func (h *HookHandler) notify(req domain.HookRequest) {
	project := projectName(req.CWD)
	title := "Claude is waiting for you"
	if project != "" {
		title = title + " - " + project
	}

	go func() {
		_ = h.notifier.Notify(context.Background(), domain.Notification{
			Title:   title,
			Message: req.ToolName + " needs your attention",
			Sound:   true,
		})
	}()
}

func (h *HookHandler) allowResponse(reason string) string {
	resp := domain.HookResponse{Decision: "approve", Reason: reason}
	out, err := json.Marshal(resp)
	if err != nil {
		// Marshal of a flat struct cannot realistically fail; keep the
		// fail-open contract anyway.
		return `{"decision":"approve"}`
	}
	return string(out)
}

// projectName extracts the last path segment of the working-directory
// hint, tolerating both separator styles.
func projectName(cwd string) string {
	if cwd == "" {
		return ""
	}
	cwd = strings.TrimRight(strings.ReplaceAll(cwd, "\\", "/"), "/")
	if n := strings.LastIndex(cwd, "/"); n >= 0 {
		return cwd[n+1:]
	}
	return cwd
}
