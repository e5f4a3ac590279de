// Package testutil provides a scriptable fake shell and an ANSI escape
// sequence builder for exercising device/coordinator code without spawning
// a real PTY or process.
package testutil

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FakeShell behaves like a duplex byte stream a Device would wrap: writes
// are recorded as "input" (what a real shell would have received on
// stdin), and SendOutput queues bytes a Read call will return (what a real
// shell would have written to stdout).
type FakeShell struct {
	mu sync.Mutex

	outBuf bytes.Buffer
	cond   *sync.Cond

	input        strings.Builder
	inputHistory []string

	closed bool
}

// NewFakeShell creates a ready-to-use FakeShell.
func NewFakeShell() *FakeShell {
	s := &FakeShell{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Write records p as input sent to the shell. It fails once the shell is
// closed.
func (s *FakeShell) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, errors.New("testutil: write to closed fake shell")
	}
	s.input.Write(p)
	s.inputHistory = append(s.inputHistory, string(p))
	return len(p), nil
}

// Read returns previously queued output, blocking until output is
// available or the shell is closed (in which case it returns io.EOF).
func (s *FakeShell) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.outBuf.Len() == 0 && !s.closed {
		s.cond.Wait()
	}
	if s.outBuf.Len() == 0 && s.closed {
		return 0, io.EOF
	}
	return s.outBuf.Read(p)
}

// ReadWithTimeout behaves like Read but gives up after d, returning a
// timeout error.
func (s *FakeShell) ReadWithTimeout(p []byte, d time.Duration) (int, error) {
	type result struct {
		n   int
		err error
	}
	ch := make(chan result, 1)
	go func() {
		n, err := s.Read(p)
		ch <- result{n, err}
	}()
	select {
	case r := <-ch:
		return r.n, r.err
	case <-time.After(d):
		return 0, fmt.Errorf("testutil: read timed out after %s", d)
	}
}

// SendOutput queues out as output a Read call will return. It is a no-op
// once the shell is closed.
func (s *FakeShell) SendOutput(out string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.outBuf.WriteString(out)
	s.cond.Broadcast()
}

// SendOutputf is SendOutput with fmt.Sprintf formatting.
func (s *FakeShell) SendOutputf(format string, args ...any) {
	s.SendOutput(fmt.Sprintf(format, args...))
}

// GetInput returns everything written to the shell so far, concatenated.
func (s *FakeShell) GetInput() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input.String()
}

// GetInputHistory returns each Write call's payload, in order.
func (s *FakeShell) GetInputHistory() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.inputHistory))
	copy(out, s.inputHistory)
	return out
}

// ClearInput resets the recorded input and its history.
func (s *FakeShell) ClearInput() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input.Reset()
	s.inputHistory = nil
}

// Close marks the shell closed, unblocking any pending Read with io.EOF.
// It is idempotent and safe to call concurrently.
func (s *FakeShell) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.cond.Broadcast()
	return nil
}

// IsClosed reports whether Close has been called.
func (s *FakeShell) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// ErrorOutput formats a bash-style command error line.
func ErrorOutput(cmd, msg string) string {
	return fmt.Sprintf("bash: %s: %s\n", cmd, msg)
}

// CommandNotFound formats a bash-style "command not found" line.
func CommandNotFound(cmd string) string {
	return fmt.Sprintf("bash: %s: command not found\n", cmd)
}

// TabCompletionResponse formats a shell tab-completion candidate list.
func TabCompletionResponse(candidates []string) string {
	return strings.Join(candidates, "  ") + "\r\n"
}

// ShellPrompt formats a conventional "user@host:dir$ " prompt.
func ShellPrompt(user, host, dir string) string {
	return fmt.Sprintf("%s@%s:%s$ ", user, host, dir)
}

// ColoredLine formats text wrapped in an SGR foreground color code,
// terminated with a CRLF as a real terminal line would be.
func ColoredLine(fgCode int, text string) string {
	return fmt.Sprintf("\x1b[%dm%s\x1b[0m\r\n", fgCode, text)
}

// LSOutput formats an `ls`-like listing, coloring directory entries blue.
func LSOutput(names []string, isDir []bool) string {
	var parts []string
	for i, name := range names {
		if i < len(isDir) && isDir[i] {
			parts = append(parts, fmt.Sprintf("\x1b[34m%s\x1b[0m", name))
		} else {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "  ") + "\r\n"
}

// ProgressBar renders a simple `[####....] NN%` progress indicator.
func ProgressBar(percent, width int) string {
	filled := percent * width / 100
	if filled > width {
		filled = width
	}
	return fmt.Sprintf("[%s%s] %d%%", strings.Repeat("#", filled), strings.Repeat(".", width-filled), percent)
}

var spinnerFrames = []string{"|", "/", "-", "\\"}

// SpinnerFrame returns the spinner glyph for frame index i, cycling through
// the four classic ASCII spinner frames.
func SpinnerFrame(i int) string {
	return spinnerFrames[i%len(spinnerFrames)]
}

// CursorPositionResponse formats a CPR (cursor position report) reply.
func CursorPositionResponse(row, col int) string {
	return "\x1b[" + strconv.Itoa(row) + ";" + strconv.Itoa(col) + "R"
}

// TerminalSizeResponse formats an XTWINOPS text-area-size-in-chars reply.
func TerminalSizeResponse(rows, cols int) string {
	return fmt.Sprintf("\x1b[8;%d;%dt", rows, cols)
}
