// Package termcoord is the public entry point for embedding a terminal
// coordination session in another program.
//
// # Basic Usage
//
// Dial a local shell and pull snapshots to render:
//
//	session, err := termcoord.DialLocal(termcoord.WithSize(80, 24))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer session.Close()
//
//	for snap := range session.Snapshots() {
//		render(snap)
//	}
//
// # Remote Sessions
//
// Dial a shell over SSH instead:
//
//	session, err := termcoord.DialRemote(termcoord.RemoteOptions{
//		Addr:     "example.com:22",
//		User:     "alice",
//		UseAgent: true,
//	}, termcoord.WithSize(80, 24))
package termcoord

import (
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/termcoord/termcoord/internal/coordinator"
	"github.com/termcoord/termcoord/internal/device"
	"github.com/termcoord/termcoord/internal/facade"
	"github.com/termcoord/termcoord/internal/snapshot"
)

// Snapshot is the immutable, UI-facing view of a terminal grid at a point
// in time.
type Snapshot = snapshot.Snapshot

// Cell is a single styled grid cell within a Snapshot.
type Cell = snapshot.Cell

// Cursor describes the cursor's position and visibility within a Snapshot.
type Cursor = snapshot.Cursor

// SelectionRange marks a contiguous text selection within a Snapshot.
type SelectionRange = snapshot.SelectionRange

// Point is a (row, col) grid coordinate.
type Point = snapshot.Point

// Style carries the visual attributes of a single Cell.
type Style = snapshot.Style

// Bounds describes a Snapshot's visible grid dimensions.
type Bounds = snapshot.Bounds

// ErrNoDevice is returned from Write when no device is currently attached.
var ErrNoDevice = coordinator.ErrNoDevice

// Device is the duplex byte-stream interface a Session drives: a local
// PTY, an SSH shell, or a custom implementation (e.g. for testing).
type Device = device.Device

// TerminalSize is a device's/grid's row/column (and optional pixel)
// dimensions.
type TerminalSize = device.TerminalSize

// Options configures a Session.
type Options struct {
	Rows int
	Cols int
}

// Option is a functional option for configuring a Session.
type Option func(*Options)

// WithSize sets the initial grid and device size in rows/cols.
func WithSize(cols, rows int) Option {
	return func(o *Options) {
		o.Cols = cols
		o.Rows = rows
	}
}

// DefaultOptions returns the default Options (80x24).
func DefaultOptions() Options {
	return Options{Rows: 24, Cols: 80}
}

// Session is the public handle onto a running terminal coordination
// session. It wraps a Facade with device construction conveniences.
type Session struct {
	*facade.Facade
}

// DialLocal spawns a shell under a local pseudo-terminal and attaches it.
func DialLocal(opts ...Option) (*Session, error) {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	size := device.TerminalSize{Rows: options.Rows, Cols: options.Cols}
	dev, err := device.NewLocal(device.LocalConfig{Size: size})
	if err != nil {
		return nil, err
	}

	f := facade.New(size)
	f.Attach(dev)
	return &Session{Facade: f}, nil
}

// LocalOptions configures a DialLocalWith call beyond size.
type LocalOptions struct {
	Shell string
	Env   []string
	Dir   string
}

// DialLocalWith spawns a shell under a local pseudo-terminal with full
// control over the shell binary, environment, and working directory.
func DialLocalWith(local LocalOptions, opts ...Option) (*Session, error) {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	size := device.TerminalSize{Rows: options.Rows, Cols: options.Cols}
	dev, err := device.NewLocal(device.LocalConfig{
		Shell: local.Shell,
		Env:   local.Env,
		Dir:   local.Dir,
		Size:  size,
	})
	if err != nil {
		return nil, err
	}

	f := facade.New(size)
	f.Attach(dev)
	return &Session{Facade: f}, nil
}

// RemoteOptions configures a DialRemote call.
type RemoteOptions struct {
	Addr string
	User string

	Password      string
	KeyPath       string
	KeyPassphrase string
	UseAgent      bool

	Timeout         time.Duration
	HostKeyCallback ssh.HostKeyCallback
}

// DialRemote opens an SSH connection, requests a PTY, starts the remote
// login shell, and attaches it.
func DialRemote(remote RemoteOptions, opts ...Option) (*Session, error) {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	size := device.TerminalSize{Rows: options.Rows, Cols: options.Cols}
	dev, err := device.NewRemote(device.RemoteConfig{
		Addr:            remote.Addr,
		User:            remote.User,
		Password:        remote.Password,
		KeyPath:         remote.KeyPath,
		KeyPassphrase:   remote.KeyPassphrase,
		UseAgent:        remote.UseAgent,
		Timeout:         remote.Timeout,
		HostKeyCallback: remote.HostKeyCallback,
		Size:            size,
	})
	if err != nil {
		return nil, err
	}

	f := facade.New(size)
	f.Attach(dev)
	return &Session{Facade: f}, nil
}

// NewDetached creates a Session with a running coordinator but no attached
// device; call Attach with any device.Device implementation to drive it.
func NewDetached(opts ...Option) *Session {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	size := device.TerminalSize{Rows: options.Rows, Cols: options.Cols}
	return &Session{Facade: facade.New(size)}
}

// Close shuts down the session's coordinator and attached device.
func (s *Session) Close() error {
	s.Shutdown()
	return nil
}
