// Package device implements the duplex byte channel abstraction (local PTY
// or remote SSH shell) that the coordinator multiplexes with the grid.
package device

import (
	"errors"
	"io"
)

// TerminalSize describes a PTY/remote shell's window dimensions, including
// the optional pixel geometry some programs (e.g. Sixel-aware ones) use to
// compute cell size.
type TerminalSize struct {
	Rows        int
	Cols        int
	PixelWidth  int
	PixelHeight int
}

// Errors returned by Device implementations. Callers should use errors.Is
// against these sentinels rather than comparing strings.
var (
	// ErrClosed is returned by Write/Resize once the device has been
	// closed.
	ErrClosed = errors.New("device: closed")
	// ErrAttachRejected is returned by StartReader when called a second
	// time on the same device.
	ErrAttachRejected = errors.New("device: reader already attached")
	// ErrUnsupported is for operations a given variant can't perform.
	// Neither Local nor Remote returns it: both ignore the pixel fields of
	// TerminalSize on Resize, and Remote reports ProcessID 0.
	ErrUnsupported = errors.New("device: unsupported operation")
)

// Device is the duplex channel a Coordinator drives: bytes written go to the
// remote program's stdin, bytes read come from its stdout/stderr.
//
// Implementations must be safe for one writer and one reader to use
// concurrently (the coordinator never writes and reads concurrently with
// itself, but a Facade write can race a coordinator-owned read).
type Device interface {
	io.Writer

	// StartReader begins delivering output chunks to sink until the device
	// closes or ctx-independent Close is called. It must return
	// ErrAttachRejected if called more than once. StartReader runs the read
	// loop in the caller's goroutine and returns on close or read error; the
	// error returned is the terminal read error (io.EOF on ordinary process
	// exit).
	StartReader(sink func([]byte)) error

	// Resize changes the device's window dimensions.
	Resize(size TerminalSize) error

	// Close terminates the device and releases its resources. It is
	// idempotent: a second Close returns nil.
	Close() error

	// ProcessID returns the underlying process or session identifier, or 0
	// if the variant has none.
	ProcessID() int
}
