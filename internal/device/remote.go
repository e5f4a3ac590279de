package device

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// RemoteConfig configures an SSH-backed shell device. Exactly one of
// Password, KeyPath, or UseAgent should be set; if more than one is
// present they are tried in the order UseAgent, KeyPath, Password.
type RemoteConfig struct {
	Addr string // host:port
	User string

	Password       string
	KeyPath        string
	KeyPassphrase  string
	UseAgent       bool

	Timeout    time.Duration
	HostKeyCallback ssh.HostKeyCallback

	Size TerminalSize
}

func (cfg RemoteConfig) authMethods() ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod
	if cfg.UseAgent {
		sock := os.Getenv("SSH_AUTH_SOCK")
		if sock == "" {
			return nil, errors.New("device: SSH_AUTH_SOCK not set, cannot use agent auth")
		}
		conn, err := net.Dial("unix", sock)
		if err != nil {
			return nil, fmt.Errorf("device: dial ssh agent: %w", err)
		}
		methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
	}
	if cfg.KeyPath != "" {
		key, err := os.ReadFile(cfg.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("device: read private key: %w", err)
		}
		var signer ssh.Signer
		if cfg.KeyPassphrase != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(key, []byte(cfg.KeyPassphrase))
		} else {
			signer, err = ssh.ParsePrivateKey(key)
		}
		if err != nil {
			return nil, fmt.Errorf("device: parse private key: %w", err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if cfg.Password != "" {
		methods = append(methods, ssh.Password(cfg.Password))
	}
	if len(methods) == 0 {
		return nil, errors.New("device: no SSH auth method configured")
	}
	return methods, nil
}

// Remote is a Device backed by a shell running on an SSH server, with a PTY
// requested over the session exactly as an interactive SSH client would.
type Remote struct {
	client  *ssh.Client
	session *ssh.Session
	stdin   io.WriteCloser
	stdout  io.Reader

	readerStarted atomic.Bool
	closed        atomic.Bool
	closeOnce     sync.Once
}

// NewRemote dials cfg.Addr, authenticates, opens a session, requests a PTY
// sized per cfg.Size, and starts the remote login shell.
func NewRemote(cfg RemoteConfig) (*Remote, error) {
	methods, err := cfg.authMethods()
	if err != nil {
		return nil, err
	}

	hostKeyCallback := cfg.HostKeyCallback
	if hostKeyCallback == nil {
		hostKeyCallback = ssh.InsecureIgnoreHostKey() //nolint:gosec // caller must supply a real callback for production use
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client, err := ssh.Dial("tcp", cfg.Addr, &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            methods,
		HostKeyCallback: hostKeyCallback,
		Timeout:         timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("device: ssh dial: %w", err)
	}

	session, err := client.NewSession()
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("device: ssh new session: %w", err)
	}

	rows, cols := cfg.Size.Rows, cfg.Size.Cols
	if rows <= 0 {
		rows = 24
	}
	if cols <= 0 {
		cols = 80
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := session.RequestPty("xterm-256color", rows, cols, modes); err != nil {
		_ = session.Close()
		_ = client.Close()
		return nil, fmt.Errorf("device: request pty: %w", err)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		_ = session.Close()
		_ = client.Close()
		return nil, fmt.Errorf("device: stdin pipe: %w", err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		_ = session.Close()
		_ = client.Close()
		return nil, fmt.Errorf("device: stdout pipe: %w", err)
	}

	if err := session.Shell(); err != nil {
		_ = session.Close()
		_ = client.Close()
		return nil, fmt.Errorf("device: start remote shell: %w", err)
	}

	return &Remote{client: client, session: session, stdin: stdin, stdout: stdout}, nil
}

// Write sends bytes to the remote shell's stdin.
func (r *Remote) Write(p []byte) (int, error) {
	if r.closed.Load() {
		return 0, ErrClosed
	}
	return r.stdin.Write(p)
}

// StartReader reads remote stdout until EOF/error and delivers each chunk
// to sink. It may only be called once per Remote.
func (r *Remote) StartReader(sink func([]byte)) error {
	if !r.readerStarted.CompareAndSwap(false, true) {
		return ErrAttachRejected
	}
	buf := make([]byte, 32*1024)
	for {
		n, err := r.stdout.Read(buf)
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

// Resize sends a window-change request over the existing SSH session.
func (r *Remote) Resize(size TerminalSize) error {
	if r.closed.Load() {
		return ErrClosed
	}
	return r.session.WindowChange(size.Rows, size.Cols)
}

// Close terminates the SSH session and its client connection. It is
// idempotent.
func (r *Remote) Close() error {
	var err error
	r.closeOnce.Do(func() {
		r.closed.Store(true)
		err = r.session.Close()
		_ = r.client.Close()
	})
	return err
}

// ProcessID is unsupported for a remote shell: the coordinator has no
// visibility into the remote process table.
func (r *Remote) ProcessID() int { return 0 }

var _ Device = (*Remote)(nil)
