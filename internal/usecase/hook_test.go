package usecase

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/codeglyph/agentshim/internal/domain"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
}

func (n *recordingNotifier) Notify(ctx context.Context, note domain.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, note)
	return nil
}

func (n *recordingNotifier) Sent() []domain.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.Notification(nil), n.sent...)
}

func TestHandle_NonInteractiveToolIsApproved(t *testing.T) {
	notifier := &recordingNotifier{}
	h := NewHookHandler(notifier, zap.NewNop())

	resp := h.Handle([]byte(`{"tool_name":"Bash","cwd":"/home/user/proj"}`))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(resp), &decoded))
	assert.Equal(t, "approve", decoded["decision"])
	assert.NotContains(t, decoded, "ok")
	assert.Empty(t, notifier.Sent())
}

func TestHandle_InteractiveToolPassesThroughWithNotification(t *testing.T) {
	notifier := &recordingNotifier{}
	h := NewHookHandler(notifier, zap.NewNop())

	resp := h.Handle([]byte(`{"tool_name":"AskUserQuestion","cwd":"C:\\work\\myproj"}`))

	assert.Empty(t, resp, "interactive tools defer to the host's own prompt")
	assert.Eventually(t, func() bool {
		return len(notifier.Sent()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Contains(t, notifier.Sent()[0].Title, "myproj")
}

func TestHandle_ExitPlanModeIsInteractive(t *testing.T) {
	notifier := &recordingNotifier{}
	h := NewHookHandler(notifier, zap.NewNop())

	resp := h.Handle([]byte(`{"tool_name":"ExitPlanMode"}`))
	assert.Empty(t, resp)
}

func TestHandle_MalformedRequestFailsOpen(t *testing.T) {
	h := NewHookHandler(&recordingNotifier{}, zap.NewNop())

	resp := h.Handle([]byte(`{not json`))

	var decoded domain.HookResponse
	require.NoError(t, json.Unmarshal([]byte(resp), &decoded))
	assert.Equal(t, "approve", decoded.Decision)
}

func TestProjectName(t *testing.T) {
	assert.Equal(t, "proj", projectName("/home/user/proj"))
	assert.Equal(t, "proj", projectName(`C:\work\proj`))
	assert.Equal(t, "proj", projectName("/home/user/proj/"))
	assert.Equal(t, "proj", projectName("proj"))
	assert.Equal(t, "", projectName(""))
}
