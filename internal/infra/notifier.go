package infra

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/codeglyph/agentshim/internal/domain"
)

// notifyTimeout bounds a single notification dispatch.
const notifyTimeout = 5 * time.Second

// ToastNotifier delivers desktop notifications through the platform's
// native mechanism. Dispatch is best effort: failures are logged at debug
// level and otherwise swallowed, since notifications must never interrupt
// the primary control flow.
type ToastNotifier struct {
	runner domain.CommandRunner
	logger *zap.Logger
}

// NewNotifier creates a platform notifier.
func NewNotifier(runner domain.CommandRunner, logger *zap.Logger) domain.Notifier {
	return &ToastNotifier{runner: runner, logger: logger}
}

// Notify shows the notification. The returned error is informational;
// callers are expected to ignore it.
func (n *ToastNotifier) Notify(ctx context.Context, note domain.Notification) error {
	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	var err error
	switch runtime.GOOS {
	case "windows":
		err = n.runner.Run(ctx, "powershell", "-NoProfile", "-Command", toastScript(note))
	case "darwin":
		script := fmt.Sprintf(`display notification %q with title %q`, note.Message, note.Title)
		err = n.runner.Run(ctx, "osascript", "-e", script)
	default:
		err = n.runner.Run(ctx, "notify-send", note.Title, note.Message)
	}

	if err != nil {
		n.logger.Debug("notification dispatch failed",
			zap.String("title", note.Title),
			zap.Error(err))
	}
	return err
}

// toastScript builds the BurntToast-free PowerShell snippet for a balloon
// notification.
func toastScript(note domain.Notification) string {
	return fmt.Sprintf(
		`[void][System.Reflection.Assembly]::LoadWithPartialName('System.Windows.Forms');`+
			`$n=New-Object System.Windows.Forms.NotifyIcon;`+
			`$n.Icon=[System.Drawing.SystemIcons]::Information;`+
			`$n.Visible=$true;`+
			`$n.ShowBalloonTip(5000,%q,%q,'Info')`,
		note.Title, note.Message)
}

// Ensure ToastNotifier implements domain.Notifier.
var _ domain.Notifier = (*ToastNotifier)(nil)
