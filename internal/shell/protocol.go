package shell

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Result is the outcome of one command execution.
type Result struct {
	// OK is true only when the done marker was observed.
	OK bool `json:"ok"`

	// Stdout is the captured merged stdout+stderr text, newline-preserving,
	// bounded by the configured caps.
	Stdout string `json:"stdout"`

	// ExitCode is the command's exit status, or nil when it could not be
	// determined (timeout, stream closure, unparsable marker).
	ExitCode *int `json:"exit_code"`

	// CwdAfter is the shell working directory observed immediately after
	// the command ran. Empty when the cwd marker was never seen.
	CwdAfter string `json:"cwd_after,omitempty"`

	// Truncated is true when output was cut short by the size caps.
	Truncated bool `json:"truncated"`

	// Err describes the failure. Populated only when OK is false.
	Err string `json:"error,omitempty"`
}

// execTokens are the single-use correlation markers for one execution. Each
// embeds a fresh random identifier so output from an earlier, abandoned
// command can never satisfy the current execution's marker search.
type execTokens struct {
	cwdMarker  string
	doneMarker string
}

func newExecTokens() execTokens {
	uid := strings.ReplaceAll(uuid.NewString(), "-", "")
	return execTokens{
		cwdMarker:  fmt.Sprintf("__MCP_CWD_%s__", uid),
		doneMarker: fmt.Sprintf("__MCP_DONE_%s__", uid),
	}
}

// buildPayload appends the protocol trailer to the caller's command: capture
// the exit status before anything can overwrite it, print the working
// directory behind the cwd marker, then print the captured status behind the
// done marker. The done marker is emitted last, so seeing it guarantees the
// command and both metadata lines have fully completed.
func buildPayload(command string, t execTokens) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(command, "\n"))
	b.WriteByte('\n')
	b.WriteString("__tb_ec=$?\n")
	fmt.Fprintf(&b, "printf '%s:%%s\\n' \"$PWD\"\n", t.cwdMarker)
	fmt.Fprintf(&b, "printf '%s:%%s\\n' \"$__tb_ec\"\n", t.doneMarker)
	return b.String()
}

// markerValue returns the text after the first ':' in a marker line. Splitting
// on the first colon only keeps working directories containing ':' intact.
func markerValue(line string) string {
	if i := strings.IndexByte(line, ':'); i >= 0 {
		return strings.TrimSpace(line[i+1:])
	}
	return ""
}

// readUntilDone consumes session output lines until the done marker appears,
// the timeout elapses, the context is cancelled, or the stream closes.
// Ordinary output is captured up to the configured caps; once either cap
// would be exceeded the line is dropped, the truncation flag is set, and
// reading continues until completion is detected. Partial output is always
// preserved on failure paths.
func (m *Manager) readUntilDone(ctx context.Context, sess *Session, t execTokens, timeout time.Duration) Result {
	var (
		captured    strings.Builder
		exitCode    *int
		cwdAfter    string
		storedChars int
		storedLines int
		truncated   bool
	)

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	fail := func(msg string) Result {
		return Result{
			Stdout:    captured.String(),
			ExitCode:  exitCode,
			CwdAfter:  cwdAfter,
			Truncated: truncated,
			Err:       msg,
		}
	}

	for {
		select {
		case <-ctx.Done():
			return fail(fmt.Sprintf("cancelled: %v", ctx.Err()))

		case <-deadline.C:
			return fail(fmt.Sprintf("timeout after %.1fs", timeout.Seconds()))

		case line, ok := <-sess.lines:
			if !ok {
				return fail("shell session ended unexpectedly")
			}

			if strings.HasPrefix(line, t.cwdMarker) {
				cwdAfter = markerValue(line)
				continue
			}

			if strings.HasPrefix(line, t.doneMarker) {
				if n, err := strconv.Atoi(markerValue(line)); err == nil {
					exitCode = &n
				}
				return Result{
					OK:        true,
					Stdout:    captured.String(),
					ExitCode:  exitCode,
					CwdAfter:  cwdAfter,
					Truncated: truncated,
				}
			}

			if !truncated && storedLines < m.cfg.MaxOutputLines && storedChars+len(line) <= m.cfg.MaxOutputChars {
				captured.WriteString(line)
				storedLines++
				storedChars += len(line)
			} else {
				truncated = true
			}
		}
	}
}
