// Package shell provides the persistent interactive shell session behind the
// terminal tools: a single shell child process with piped stdin and merged
// stdout+stderr, plus the marker-based execution protocol that turns the raw
// byte stream into bounded request/response results.
package shell

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// Session wraps one interactive shell child process. Its stderr is merged
// into stdout so the execution protocol observes a single ordered stream.
// At most one Session exists at a time; it is owned exclusively by Manager.
type Session struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser

	// lines carries the merged output stream, one newline-terminated line
	// per element. Closed by the reader goroutine when the stream ends.
	lines chan string

	// done is closed once the shell process has exited.
	done chan struct{}

	// quit releases the reader goroutine if it is blocked on a full lines
	// channel during shutdown.
	quit chan struct{}
}

const lineBufferSize = 256

// newSession spawns a shell process in non-interactive-profile mode with its
// working directory set to the user's home directory. publish, when non-nil,
// receives every raw output line in addition to the session's line channel.
func newSession(shellPath string, publish func(string)) (*Session, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "/"
	}

	cmd := exec.Command(shellPath, "--noprofile", "--norc")
	cmd.Dir = home

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open shell stdin: %w", err)
	}

	// Merge stdout and stderr into a single pipe so output ordering is
	// preserved across both streams.
	outR, outW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open shell output pipe: %w", err)
	}
	cmd.Stdout = outW
	cmd.Stderr = outW

	if err := cmd.Start(); err != nil {
		_ = outR.Close()
		_ = outW.Close()
		return nil, fmt.Errorf("failed to start shell %s: %w", shellPath, err)
	}
	// The child holds its own copy of the write end; closing ours makes the
	// reader observe EOF when the shell exits.
	_ = outW.Close()

	s := &Session{
		cmd:   cmd,
		stdin: stdin,
		lines: make(chan string, lineBufferSize),
		done:  make(chan struct{}),
		quit:  make(chan struct{}),
	}

	go s.readLines(outR, publish)
	go s.waitForExit()

	return s, nil
}

// Alive reports whether the shell process is still running.
func (s *Session) Alive() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Pid returns the shell process ID, or 0 if unknown.
func (s *Session) Pid() int {
	if s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// send writes payload to the shell's stdin.
func (s *Session) send(payload string) error {
	if _, err := io.WriteString(s.stdin, payload); err != nil {
		return fmt.Errorf("failed to write to shell stdin: %w", err)
	}
	return nil
}

// readLines splits the merged output stream into newline-terminated lines and
// delivers each one to the session's line channel and the publish callback.
// A final unterminated line (stream closed mid-line) is delivered as-is.
func (s *Session) readLines(r io.ReadCloser, publish func(string)) {
	defer close(s.lines)
	defer func() { _ = r.Close() }()

	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			if publish != nil {
				publish(line)
			}
			select {
			case s.lines <- line:
			case <-s.quit:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// waitForExit reaps the shell process and marks the session dead.
func (s *Session) waitForExit() {
	_ = s.cmd.Wait()
	close(s.done)
}
