package mcpserver

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termbridge/termbridge/internal/common/logger"
	"github.com/termbridge/termbridge/internal/history"
	"github.com/termbridge/termbridge/internal/shell"
)

type fakeManager struct {
	initiateCwd string
	initiateErr error
	result      shell.Result

	executed []string
	timeouts []time.Duration
	stopped  int
}

func (m *fakeManager) Initiate(context.Context) (string, error) {
	return m.initiateCwd, m.initiateErr
}

func (m *fakeManager) Execute(_ context.Context, command string, timeout time.Duration) shell.Result {
	m.executed = append(m.executed, command)
	m.timeouts = append(m.timeouts, timeout)
	return m.result
}

func (m *fakeManager) Stop() { m.stopped++ }

func quietLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(logger.LoggingConfig{Level: "error", Format: "json", OutputPath: "stderr"})
	require.NoError(t, err)
	return log
}

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

// decodeResult unmarshals the single text content of a tool result.
func decodeResult(t *testing.T, res *mcp.CallToolResult) map[string]any {
	t.Helper()
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(text.Text), &m))
	return m
}

func intPtr(v int) *int { return &v }

func TestExecuteCommand_Success(t *testing.T) {
	mgr := &fakeManager{result: shell.Result{
		OK:       true,
		Stdout:   "hello\n",
		ExitCode: intPtr(0),
	}}
	handler := executeCommandHandler(mgr, nil, 20*time.Second, quietLogger(t))

	res, err := handler(context.Background(), callRequest("execute_command", map[string]interface{}{
		"cmd": "echo hello",
	}))
	require.NoError(t, err)

	body := decodeResult(t, res)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "hello\n", body["stdout"])
	assert.Equal(t, float64(0), body["exit_code"])
	assert.Equal(t, "echo hello", body["cmd"])
	assert.Equal(t, []string{"echo hello"}, mgr.executed)
	assert.Equal(t, []time.Duration{20 * time.Second}, mgr.timeouts)
}

func TestExecuteCommand_BlankCommandNeverReachesManager(t *testing.T) {
	mgr := &fakeManager{}
	handler := executeCommandHandler(mgr, nil, 20*time.Second, quietLogger(t))

	for _, cmd := range []string{"", "   ", "\n\t"} {
		res, err := handler(context.Background(), callRequest("execute_command", map[string]interface{}{
			"cmd": cmd,
		}))
		require.NoError(t, err)

		body := decodeResult(t, res)
		assert.Equal(t, false, body["ok"])
		assert.Equal(t, "empty command", body["error"])
		assert.Equal(t, "", body["stdout"])
		assert.Nil(t, body["exit_code"])
		assert.Nil(t, body["cwd_after"])
	}
	assert.Empty(t, mgr.executed)
}

func TestExecuteCommand_NonPositiveTimeoutRejected(t *testing.T) {
	mgr := &fakeManager{}
	handler := executeCommandHandler(mgr, nil, 20*time.Second, quietLogger(t))

	for _, timeout := range []float64{0, -1.5} {
		res, err := handler(context.Background(), callRequest("execute_command", map[string]interface{}{
			"cmd":         "echo hi",
			"timeout_sec": timeout,
		}))
		require.NoError(t, err)

		body := decodeResult(t, res)
		assert.Equal(t, false, body["ok"])
		assert.Equal(t, "timeout_sec must be positive", body["error"])
	}
	assert.Empty(t, mgr.executed)
}

func TestExecuteCommand_CustomTimeoutForwarded(t *testing.T) {
	mgr := &fakeManager{result: shell.Result{OK: true, Stdout: "x\n", ExitCode: intPtr(0)}}
	handler := executeCommandHandler(mgr, nil, 20*time.Second, quietLogger(t))

	_, err := handler(context.Background(), callRequest("execute_command", map[string]interface{}{
		"cmd":         "sleep 1",
		"timeout_sec": 2.5,
	}))
	require.NoError(t, err)
	require.Len(t, mgr.timeouts, 1)
	assert.Equal(t, 2500*time.Millisecond, mgr.timeouts[0])
}

func TestExecuteCommand_EmptyOutputPlaceholder(t *testing.T) {
	mgr := &fakeManager{result: shell.Result{
		OK:       true,
		Stdout:   "",
		ExitCode: intPtr(0),
		CwdAfter: "/tmp",
	}}
	handler := executeCommandHandler(mgr, nil, 20*time.Second, quietLogger(t))

	res, err := handler(context.Background(), callRequest("execute_command", map[string]interface{}{
		"cmd": "cd /tmp",
	}))
	require.NoError(t, err)

	body := decodeResult(t, res)
	assert.Equal(t, emptyOutputPlaceholder, body["stdout"])
	assert.Equal(t, "/tmp", body["cwd_after"])
}

func TestExecuteCommand_NoPlaceholderOnFailure(t *testing.T) {
	mgr := &fakeManager{result: shell.Result{
		OK:       true,
		Stdout:   "",
		ExitCode: intPtr(1),
	}}
	handler := executeCommandHandler(mgr, nil, 20*time.Second, quietLogger(t))

	res, err := handler(context.Background(), callRequest("execute_command", map[string]interface{}{
		"cmd": "false",
	}))
	require.NoError(t, err)

	body := decodeResult(t, res)
	assert.Equal(t, "", body["stdout"])
	assert.Equal(t, float64(1), body["exit_code"])
}

func TestExecuteCommand_TimeoutResultShape(t *testing.T) {
	mgr := &fakeManager{result: shell.Result{
		OK:        false,
		Stdout:    "partial",
		Truncated: false,
		Err:       "timeout after 0.2s",
	}}
	handler := executeCommandHandler(mgr, nil, 20*time.Second, quietLogger(t))

	res, err := handler(context.Background(), callRequest("execute_command", map[string]interface{}{
		"cmd": "sleep 5",
	}))
	require.NoError(t, err)

	body := decodeResult(t, res)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "partial", body["stdout"])
	assert.Nil(t, body["exit_code"])
	assert.Equal(t, "timeout after 0.2s", body["error"])
}

func TestExecuteCommand_RecordsHistory(t *testing.T) {
	store, err := history.Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	mgr := &fakeManager{result: shell.Result{
		OK:       true,
		Stdout:   "hi\n",
		ExitCode: intPtr(0),
		CwdAfter: "/root",
	}}
	handler := executeCommandHandler(mgr, store, 20*time.Second, quietLogger(t))

	_, err = handler(context.Background(), callRequest("execute_command", map[string]interface{}{
		"cmd": "echo hi",
	}))
	require.NoError(t, err)

	recent, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "echo hi", recent[0].Command)
	assert.True(t, recent[0].OK)
	require.NotNil(t, recent[0].ExitCode)
	assert.Equal(t, int64(0), *recent[0].ExitCode)
}

func TestInitiateTerminal(t *testing.T) {
	mgr := &fakeManager{initiateCwd: "/home/user"}
	handler := initiateTerminalHandler(mgr)

	res, err := handler(context.Background(), callRequest("initiate_terminal", nil))
	require.NoError(t, err)

	body := decodeResult(t, res)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "terminal session initiated", body["message"])
	assert.Equal(t, "/home/user", body["cwd"])
}

func TestInitiateTerminal_SpawnFailure(t *testing.T) {
	mgr := &fakeManager{initiateErr: assert.AnError}
	handler := initiateTerminalHandler(mgr)

	res, err := handler(context.Background(), callRequest("initiate_terminal", nil))
	require.NoError(t, err)

	body := decodeResult(t, res)
	assert.Equal(t, false, body["ok"])
	assert.NotEmpty(t, body["error"])
}

func TestTerminateTerminal(t *testing.T) {
	mgr := &fakeManager{}
	handler := terminateTerminalHandler(mgr)

	res, err := handler(context.Background(), callRequest("terminate_terminal", nil))
	require.NoError(t, err)

	body := decodeResult(t, res)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "terminal session terminated", body["message"])
	assert.Equal(t, 1, mgr.stopped)
}
