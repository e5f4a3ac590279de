// Package coordinator implements the single-task event loop that multiplexes
// device output and UI input commands into the grid and publishes
// resulting snapshots.
package coordinator

import (
	"errors"
	"io"
	"log"
	"sync"

	"github.com/termcoord/termcoord/internal/device"
	"github.com/termcoord/termcoord/internal/grid"
	"github.com/termcoord/termcoord/internal/snapshot"
)

// defaultLogger discards everything; callers opt into visibility with
// SetLogger, matching the teacher's sparing-logging style.
var defaultLogger = log.New(io.Discard, "", 0)

// commandKind tags an InputCommand's payload.
type commandKind int

const (
	cmdWrite commandKind = iota
	cmdResize
	cmdAttach
	cmdSetSelection
	cmdSync
	cmdShutdown
)

// InputCommand is the tagged union of operations the coordinator accepts on
// its input channel. Use the package-level constructors (Write, Resize, ...)
// rather than building one directly.
type InputCommand struct {
	kind      commandKind
	data      []byte
	size      device.TerminalSize
	dev       device.Device
	selection *snapshot.SelectionRange
	done      chan error
}

// WriteCommand sends raw bytes to the attached device's stdin.
func WriteCommand(p []byte) InputCommand { return InputCommand{kind: cmdWrite, data: p} }

// ResizeCommand resizes both the grid and the attached device.
func ResizeCommand(size device.TerminalSize) InputCommand {
	return InputCommand{kind: cmdResize, size: size}
}

// AttachCommand attaches (or replaces) the device the coordinator drives.
// dev's reader is started by the coordinator; a previously attached device
// is closed first.
func AttachCommand(dev device.Device) InputCommand {
	return InputCommand{kind: cmdAttach, dev: dev}
}

// SetSelectionCommand replaces (nil clears) the grid's selection range.
func SetSelectionCommand(sel *snapshot.SelectionRange) InputCommand {
	return InputCommand{kind: cmdSetSelection, selection: sel}
}

// SyncCommand forces an immediate snapshot publish with no grid mutation,
// useful for forcing a republish after a period of idle output.
func SyncCommand() InputCommand { return InputCommand{kind: cmdSync} }

// ShutdownCommand stops the coordinator's event loop and closes the
// attached device, if any.
func ShutdownCommand() InputCommand { return InputCommand{kind: cmdShutdown} }

// ErrNoDevice is returned by operations that require an attached device
// when none is currently attached.
var ErrNoDevice = errors.New("coordinator: no device attached")

// Coordinator owns the grid and the attached device, serializing all
// mutation through a single goroutine (Run). UI-facing state (the latest
// Snapshot, a Wakeup signal, and title changes) is published outward
// through channels rather than shared memory.
type Coordinator struct {
	mu  sync.Mutex // guards grid + dev; held only for the duration of one command
	g   *grid.Grid
	dev device.Device

	input    chan InputCommand
	snapshot chan snapshot.Snapshot
	wakeup   chan struct{}
	titles   chan string

	lastTitle string

	logger *log.Logger

	closed bool
}

// New creates a Coordinator with a grid of the given initial size. Run must
// be called to start processing commands.
func New(size device.TerminalSize) *Coordinator {
	rows, cols := size.Rows, size.Cols
	if rows <= 0 {
		rows = 24
	}
	if cols <= 0 {
		cols = 80
	}
	c := &Coordinator{
		g:        grid.New(rows, cols),
		input:    make(chan InputCommand, 64),
		snapshot: make(chan snapshot.Snapshot, 1),
		wakeup:   make(chan struct{}, 1),
		titles:   make(chan string, 1),
		logger:   defaultLogger,
	}
	// The responder only runs from inside c.g.Write, which Run calls with
	// c.mu already held, so it reads c.dev without locking again.
	c.g.SetResponder(func(b []byte) {
		if c.dev != nil {
			_, _ = c.dev.Write(b)
		}
	})
	return c
}

// SetLogger overrides the coordinator's logger; the default discards all
// output.
func (c *Coordinator) SetLogger(l *log.Logger) {
	if l == nil {
		l = defaultLogger
	}
	c.logger = l
}

// Input returns the channel used to submit InputCommands to the
// coordinator's event loop.
func (c *Coordinator) Input() chan<- InputCommand { return c.input }

// Snapshots returns the single-slot latest-snapshot channel: a receive
// always yields the most recently published Snapshot, never a backlog.
func (c *Coordinator) Snapshots() <-chan snapshot.Snapshot { return c.snapshot }

// Wakeup returns a channel that receives a value (non-blockingly, so it
// never backs up) every time a new Snapshot has been published.
func (c *Coordinator) Wakeup() <-chan struct{} { return c.wakeup }

// Titles returns a channel that receives the grid's window title every time
// an OSC title-change sequence updates it.
func (c *Coordinator) Titles() <-chan string { return c.titles }

// Run is the coordinator's single event-loop task. It must be run in its
// own goroutine; it returns once a ShutdownCommand is processed or the
// input channel is closed.
func (c *Coordinator) Run() {
	var outputCh chan []byte
	var readingDev device.Device

	for {
		c.mu.Lock()
		curDev := c.dev
		c.mu.Unlock()

		if curDev != readingDev {
			// The attached device changed (attach, replace, or detach-on-EOF
			// already cleared it): any channel from a previous reader is
			// abandoned here — its goroutine self-terminates once the old
			// device, already closed by apply(cmdAttach)/shutdown, returns
			// a read error.
			readingDev = curDev
			if curDev != nil {
				outputCh = make(chan []byte, 256)
				c.startReader(curDev, outputCh)
			} else {
				outputCh = nil
			}
		}

		select {
		case cmd, ok := <-c.input:
			if !ok {
				c.shutdown()
				return
			}
			if done := c.apply(cmd); done {
				return
			}

		case chunk, ok := <-outputCh:
			if !ok {
				// Device reader exited: detach, keep the final grid state,
				// publish once more so observers see the last frame.
				c.mu.Lock()
				if c.dev == readingDev {
					c.dev = nil
				}
				c.mu.Unlock()
				outputCh = nil
				readingDev = nil
				c.publish()
				continue
			}
			c.mu.Lock()
			_, _ = c.g.Write(chunk)
			c.mu.Unlock()
			c.maybePublishTitle()
			c.publish()
		}
	}
}

// startReader launches the device's reader goroutine, forwarding chunks to
// ch and closing ch when the reader returns (EOF or error). outputCh is
// nil'd by the select-loop branch above rather than here so the loop never
// races its own nil check against the close.
func (c *Coordinator) startReader(dev device.Device, ch chan []byte) {
	go func() {
		defer close(ch)
		_ = dev.StartReader(func(b []byte) {
			ch <- b
		})
	}()
}

// apply executes one InputCommand against the grid/device and returns true
// if the event loop should stop. The coordinator's mutex is held only while
// the grid or the dev field is touched; device calls and publish run
// outside it.
func (c *Coordinator) apply(cmd InputCommand) (stop bool) {
	switch cmd.kind {
	case cmdWrite:
		c.mu.Lock()
		dev := c.dev
		c.mu.Unlock()
		if dev != nil {
			if _, err := dev.Write(cmd.data); err != nil {
				c.logger.Printf("coordinator: device write error: %v", err)
			}
		}

	case cmdResize:
		c.mu.Lock()
		c.g.Resize(cmd.size.Rows, cmd.size.Cols)
		dev := c.dev
		c.mu.Unlock()
		if dev != nil {
			if err := dev.Resize(cmd.size); err != nil {
				c.logger.Printf("coordinator: device resize error: %v", err)
			}
		}
		c.publish()

	case cmdAttach:
		c.mu.Lock()
		old := c.dev
		c.dev = cmd.dev
		bounds := c.g.Bounds()
		c.mu.Unlock()
		if old != nil {
			_ = old.Close()
		}
		if cmd.dev != nil {
			if err := cmd.dev.Resize(device.TerminalSize{Rows: bounds.Rows, Cols: bounds.Cols}); err != nil {
				c.logger.Printf("coordinator: device resize on attach error: %v", err)
			}
		}
		c.publish()

	case cmdSetSelection:
		c.mu.Lock()
		c.g.SetSelection(cmd.selection)
		c.mu.Unlock()
		c.publish()

	case cmdSync:
		c.publish()

	case cmdShutdown:
		c.shutdown()
		if cmd.done != nil {
			close(cmd.done)
		}
		return true
	}
	return false
}

func (c *Coordinator) shutdown() {
	c.mu.Lock()
	dev := c.dev
	c.dev = nil
	c.closed = true
	c.mu.Unlock()
	if dev != nil {
		_ = dev.Close()
	}
	c.publish()
}

// publish builds a fresh Snapshot and replaces whatever is currently sitting
// in the single-slot channel, then pings Wakeup non-blockingly.
func (c *Coordinator) publish() {
	c.mu.Lock()
	snap := c.g.Snapshot()
	c.mu.Unlock()

	select {
	case <-c.snapshot:
	default:
	}
	c.snapshot <- snap

	select {
	case c.wakeup <- struct{}{}:
	default:
	}
}

func (c *Coordinator) maybePublishTitle() {
	c.mu.Lock()
	title := c.g.Title()
	c.mu.Unlock()
	if title == c.lastTitle {
		return
	}
	c.lastTitle = title
	select {
	case <-c.titles:
	default:
	}
	c.titles <- title
}
