package shell

import (
	"context"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/termbridge/termbridge/internal/common/logger"
)

// Config holds the shell session configuration.
type Config struct {
	// Path is the shell executable to launch (bash-compatible).
	Path string

	// MaxOutputChars caps the characters captured per command.
	MaxOutputChars int

	// MaxOutputLines caps the lines captured per command.
	MaxOutputLines int
}

// DefaultConfig returns the default shell configuration.
func DefaultConfig() Config {
	return Config{
		Path:           "/bin/bash",
		MaxOutputChars: 20000,
		MaxOutputLines: 800,
	}
}

// initiateTimeout bounds the diagnostic pwd command run by Initiate.
const initiateTimeout = 8 * time.Second

// stopGracePeriod is how long Stop waits after SIGTERM before force-killing.
const stopGracePeriod = 2 * time.Second

// Manager owns at most one live shell Session. A single mutex serializes all
// session-affecting operations (Initiate, Execute, Stop) so concurrent
// callers can never interleave commands into the same stdin stream or race a
// stop against an in-flight execution.
type Manager struct {
	cfg   Config
	log   *logger.Logger
	bcast *Broadcaster

	mu      sync.Mutex
	session *Session
}

// NewManager creates a Manager. No shell process is spawned until the first
// Execute or Initiate call.
func NewManager(cfg Config, log *logger.Logger) *Manager {
	return &Manager{
		cfg:   cfg,
		log:   log.WithComponent("shell"),
		bcast: NewBroadcaster(),
	}
}

// Broadcaster returns the raw-output broadcaster. It survives session
// restarts: every line read from any session's merged output is published.
func (m *Manager) Broadcaster() *Broadcaster {
	return m.bcast
}

// ensureLocked returns a live session, spawning a new one if none exists or
// the previous process has exited. Caller must hold m.mu.
func (m *Manager) ensureLocked() (*Session, error) {
	if m.session != nil && m.session.Alive() {
		return m.session, nil
	}

	sess, err := newSession(m.cfg.Path, m.bcast.Publish)
	if err != nil {
		return nil, err
	}

	// Blank the interactive prompt so prompt text never pollutes captured
	// output.
	if err := sess.send("export PS1=''\n"); err != nil {
		if sess.cmd.Process != nil {
			_ = sess.cmd.Process.Kill()
		}
		close(sess.quit)
		return nil, err
	}

	m.session = sess
	m.log.Info("shell session started",
		zap.String("shell", m.cfg.Path),
		zap.Int("pid", sess.Pid()))

	return sess, nil
}

// stopLocked terminates the current session, if any. Graceful SIGTERM first,
// force kill after the grace period. All errors are swallowed: the intent
// (no live session afterward) is always achieved. Caller must hold m.mu.
func (m *Manager) stopLocked() {
	sess := m.session
	m.session = nil
	if sess == nil {
		return
	}

	_ = sess.stdin.Close()
	if sess.cmd.Process != nil {
		_ = sess.cmd.Process.Signal(syscall.SIGTERM)
	}

	select {
	case <-sess.done:
	case <-time.After(stopGracePeriod):
		m.log.Warn("shell session stop timeout, force killing", zap.Int("pid", sess.Pid()))
		if sess.cmd.Process != nil {
			_ = sess.cmd.Process.Kill()
		}
	}

	close(sess.quit)
	m.log.Info("shell session stopped")
}

// Stop terminates the current session. Idempotent: stopping when no session
// exists is a no-op.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

// Initiate resets the session: any existing shell is stopped, a fresh one is
// spawned, and a diagnostic pwd reports the initial working directory.
func (m *Manager) Initiate(ctx context.Context) (string, error) {
	m.mu.Lock()
	m.stopLocked()
	_, err := m.ensureLocked()
	m.mu.Unlock()
	if err != nil {
		return "", err
	}

	res := m.Execute(ctx, "pwd", initiateTimeout)
	cwd := strings.TrimSpace(res.Stdout)
	if cwd == "" {
		cwd = res.CwdAfter
	}
	return cwd, nil
}

// Execute runs one command against the session and returns a bounded Result.
// Blank commands are rejected before any session interaction. The session is
// created on demand and transparently recreated if the previous process died.
// The serialization lock is held for the full duration of the command.
func (m *Manager) Execute(ctx context.Context, command string, timeout time.Duration) Result {
	if strings.TrimSpace(command) == "" {
		return Result{Err: "empty command"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sess, err := m.ensureLocked()
	if err != nil {
		return Result{Err: err.Error()}
	}

	tokens := newExecTokens()
	if err := sess.send(buildPayload(command, tokens)); err != nil {
		return Result{Err: err.Error()}
	}

	return m.readUntilDone(ctx, sess, tokens, timeout)
}
