package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeglyph/agentshim/internal/domain"
)

func TestBlockedProcess_EmitsReasonThenFails(t *testing.T) {
	p := newBlockedProcess("command blocked: nested quotes")
	p.start()

	ev, ok := <-p.Output()
	require.True(t, ok)
	assert.Equal(t, domain.StreamStderr, ev.Stream)
	assert.Equal(t, "command blocked: nested quotes", string(ev.Data))

	_, ok = <-p.Output()
	assert.False(t, ok, "output closes after the single reason event")

	status := <-p.Done()
	assert.Equal(t, 1, status.Code)
	assert.NoError(t, status.Err)
}

func TestBlockedProcess_NothingDeliveredBeforeStart(t *testing.T) {
	p := newBlockedProcess("denied")

	select {
	case <-p.Done():
		t.Fatal("exit status delivered before release")
	case <-time.After(20 * time.Millisecond):
	}

	p.start()
	status := <-p.Done()
	assert.Equal(t, 1, status.Code)
}

func TestBlockedProcess_SyntheticIdentity(t *testing.T) {
	p := newBlockedProcess("denied")
	p.start()

	assert.Equal(t, 0, p.PID())
	assert.NoError(t, p.Kill())

	n, err := p.Write([]byte("ignored"))
	assert.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestHookProcess_RespondsToFirstWrite(t *testing.T) {
	p := newHookProcess(4242, func(raw []byte) string {
		assert.JSONEq(t, `{"tool_name":"Read"}`, string(raw))
		return `{"decision":"approve"}`
	})
	p.start()

	assert.Equal(t, 4242, p.PID())

	_, err := p.Write([]byte(`{"tool_name":"Read"}`))
	require.NoError(t, err)

	ev := <-p.Output()
	assert.Equal(t, domain.StreamStdout, ev.Stream)
	assert.Equal(t, `{"decision":"approve"}`, string(ev.Data))

	status := <-p.Done()
	assert.Equal(t, 0, status.Code)
}

func TestHookProcess_EmptyResponseStillClosesCleanly(t *testing.T) {
	p := newHookProcess(1, func(raw []byte) string { return "" })
	p.start()

	_, err := p.Write([]byte(`{"tool_name":"AskUserQuestion"}`))
	require.NoError(t, err)

	_, ok := <-p.Output()
	assert.False(t, ok, "no output event for a passthrough response")

	status := <-p.Done()
	assert.Equal(t, 0, status.Code)
}

func TestHookProcess_OnlyFirstWriteTriggersHandler(t *testing.T) {
	calls := 0
	p := newHookProcess(1, func(raw []byte) string {
		calls++
		return "resp"
	})
	p.start()

	_, _ = p.Write([]byte("first"))
	_, _ = p.Write([]byte("second"))

	<-p.Done()
	assert.Equal(t, 1, calls)
}
