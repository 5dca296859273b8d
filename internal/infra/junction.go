package infra

import (
	"context"
	"os"
	"runtime"

	"go.uber.org/zap"

	"github.com/codeglyph/agentshim/internal/domain"
)

// EnsureJunction creates a directory junction (Windows) or symlink from
// link to target for the setup path used by the installer. Best effort:
// every failure is swallowed after a debug log, and an existing link is a
// success.
func EnsureJunction(ctx context.Context, runner domain.CommandRunner, link, target string, logger *zap.Logger) {
	if _, err := os.Lstat(link); err == nil {
		return
	}

	var err error
	if runtime.GOOS == "windows" {
		err = runner.Run(ctx, "cmd", "/c", "mklink", "/J", link, target)
	} else {
		err = os.Symlink(target, link)
	}

	if err != nil {
		logger.Debug("junction creation failed",
			zap.String("link", link),
			zap.String("target", target),
			zap.Error(err))
	}
}
