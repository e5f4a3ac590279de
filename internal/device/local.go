package device

import (
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/x/xpty"
)

// LocalConfig configures a locally-spawned shell device.
type LocalConfig struct {
	// Shell overrides shell detection (detectShell order: config, $SHELL,
	// platform fallback list) when non-empty.
	Shell string
	// Env is appended to the spawned process's environment, after TERM and
	// COLORTERM are set from terminal capability detection.
	Env []string
	// Dir sets the spawned process's working directory; empty uses the
	// caller's current directory.
	Dir  string
	Size TerminalSize
}

var (
	termEnvOnce              sync.Once
	cachedTermType, cachedCT string
)

// detectShell mirrors the teacher's shell-resolution order: explicit
// override, then $SHELL, then a platform-appropriate fallback list.
func detectShell(override string) string {
	if override != "" {
		return override
	}
	if shell := os.Getenv("SHELL"); shell != "" {
		return shell
	}
	if runtime.GOOS == "windows" {
		for _, shell := range []string{"powershell.exe", "pwsh.exe", "cmd.exe"} {
			if _, err := exec.LookPath(shell); err == nil {
				return shell
			}
		}
		return "cmd.exe"
	}
	for _, shell := range []string{"/bin/bash", "/bin/zsh", "/bin/fish", "/bin/sh"} {
		if _, err := os.Stat(shell); err == nil {
			return shell
		}
	}
	return "/bin/sh"
}

// terminalEnv returns TERM/COLORTERM values detected once per process via
// colorprofile, honoring the real environment's own TERM when it already
// indicates truecolor support.
func terminalEnv() (termType, colorTerm string) {
	termEnvOnce.Do(func() {
		envTerm, envColorTerm := os.Getenv("TERM"), os.Getenv("COLORTERM")
		if envColorTerm == "truecolor" && envTerm != "" && envTerm != "dumb" {
			cachedTermType, cachedCT = envTerm, envColorTerm
			return
		}
		profile := colorprofile.Detect(os.Stdout, os.Environ())
		cachedTermType, cachedCT = profileToEnv(profile)
	})
	return cachedTermType, cachedCT
}

func profileToEnv(profile colorprofile.Profile) (termType, colorTerm string) {
	parentTerm := os.Getenv("TERM")
	switch profile {
	case colorprofile.TrueColor:
		if parentTerm != "" {
			termType = parentTerm
		} else {
			termType = "xterm-256color"
		}
		colorTerm = "truecolor"
	case colorprofile.ANSI256:
		switch {
		case strings.Contains(parentTerm, "256color"):
			termType = parentTerm
		case strings.HasPrefix(parentTerm, "screen"):
			termType = "screen-256color"
		case strings.HasPrefix(parentTerm, "tmux"):
			termType = "tmux-256color"
		default:
			termType = "xterm-256color"
		}
	case colorprofile.ANSI:
		if parentTerm != "" && parentTerm != "dumb" {
			termType = parentTerm
		} else {
			termType = "xterm"
		}
	default:
		termType = "dumb"
	}
	return termType, colorTerm
}

// Local is a Device backed by a locally-spawned shell process connected
// through a pseudo-terminal.
type Local struct {
	pty xpty.Pty
	cmd *exec.Cmd

	readerStarted atomic.Bool
	closed        atomic.Bool
	closeOnce     sync.Once
}

// NewLocal spawns a shell under a new PTY sized per cfg.Size.
func NewLocal(cfg LocalConfig) (*Local, error) {
	rows, cols := cfg.Size.Rows, cfg.Size.Cols
	if rows <= 0 {
		rows = 24
	}
	if cols <= 0 {
		cols = 80
	}

	shell := detectShell(cfg.Shell)
	cmd := exec.Command(shell) //nolint:gosec // shell selection is intentionally caller/env controlled

	termType, colorTerm := terminalEnv()
	env := append([]string{}, os.Environ()...)
	env = append(env, "TERM="+termType)
	if colorTerm != "" {
		env = append(env, "COLORTERM="+colorTerm)
	}
	env = append(env, cfg.Env...)
	cmd.Env = env
	cmd.Dir = cfg.Dir

	p, err := xpty.NewPty(cols, rows)
	if err != nil {
		return nil, err
	}
	if err := p.Start(cmd); err != nil {
		_ = p.Close()
		return nil, err
	}
	// Some PTY backends only accept a resize once the child is running.
	_ = p.Resize(cols, rows)

	return &Local{pty: p, cmd: cmd}, nil
}

// Write sends bytes to the shell's stdin.
func (l *Local) Write(p []byte) (int, error) {
	if l.closed.Load() {
		return 0, ErrClosed
	}
	return l.pty.Write(p)
}

// StartReader reads PTY output until EOF/error and delivers each chunk to
// sink. It may only be called once per Local.
func (l *Local) StartReader(sink func([]byte)) error {
	if !l.readerStarted.CompareAndSwap(false, true) {
		return ErrAttachRejected
	}
	buf := make([]byte, 32*1024)
	for {
		n, err := l.pty.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			sink(chunk)
		}
		if err != nil {
			return err
		}
	}
}

// Resize changes the PTY window size.
func (l *Local) Resize(size TerminalSize) error {
	if l.closed.Load() {
		return ErrClosed
	}
	return l.pty.Resize(size.Cols, size.Rows)
}

// Close terminates the PTY and the child process. It is idempotent.
func (l *Local) Close() error {
	var err error
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		err = l.pty.Close()
		if l.cmd.Process != nil {
			_ = l.cmd.Process.Kill()
		}
		_ = l.cmd.Wait()
	})
	return err
}

// ProcessID returns the spawned shell's PID, or 0 if it never started.
func (l *Local) ProcessID() int {
	if l.cmd.Process == nil {
		return 0
	}
	return l.cmd.Process.Pid
}

var _ Device = (*Local)(nil)
