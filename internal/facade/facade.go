// Package facade exposes the UI-facing handle onto a running Coordinator: a
// small, thread-safe surface a renderer can call into without knowing
// anything about the grid or device underneath.
package facade

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/termcoord/termcoord/internal/coordinator"
	"github.com/termcoord/termcoord/internal/device"
	"github.com/termcoord/termcoord/internal/snapshot"
)

// Facade is the public handle a UI layer holds onto a terminal session. All
// methods are safe for concurrent use.
type Facade struct {
	id    string
	coord *coordinator.Coordinator

	// writeMu serializes the hot-path write bypass against concurrent
	// Write calls from multiple UI goroutines; it does not contend with the
	// coordinator's own grid mutex since writes only touch the device.
	writeMu sync.Mutex
	dev     atomic.Pointer[device.Device]

	// sendMu guards sends on coord.Input() against a concurrent Shutdown
	// closing it: senders take RLock, Shutdown takes Lock before closing.
	sendMu   sync.RWMutex
	runOnce  sync.Once
	doneCh   chan struct{}
	shutdown atomic.Bool
}

// send submits cmd to the coordinator unless Shutdown has already closed
// its input channel.
func (f *Facade) send(cmd coordinator.InputCommand) {
	f.sendMu.RLock()
	defer f.sendMu.RUnlock()
	if f.shutdown.Load() {
		return
	}
	f.coord.Input() <- cmd
}

// New starts a Coordinator for a grid of the given size and returns a
// Facade handle onto it. The coordinator's event loop runs in its own
// goroutine for the lifetime of the Facade.
func New(size device.TerminalSize) *Facade {
	f := &Facade{
		id:     uuid.New().String(),
		coord:  coordinator.New(size),
		doneCh: make(chan struct{}),
	}
	go func() {
		f.coord.Run()
		close(f.doneCh)
	}()
	return f
}

// Attach connects dev as the facade's driven device, closing any
// previously attached device. The coordinator starts reading from dev
// immediately.
func (f *Facade) Attach(dev device.Device) {
	f.dev.Store(&dev)
	f.send(coordinator.AttachCommand(dev))
}

// Write sends p to the attached device's stdin. This is the hot-path write
// bypass: it writes directly to the device rather than routing through the
// coordinator's input channel, since a stdin write needs no grid mutation
// and must never queue behind pending output processing.
func (f *Facade) Write(p []byte) (int, error) {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	devPtr := f.dev.Load()
	if devPtr == nil || *devPtr == nil {
		return 0, coordinator.ErrNoDevice
	}
	return (*devPtr).Write(p)
}

// Resize resizes both the grid and the attached device (if any).
func (f *Facade) Resize(size device.TerminalSize) {
	f.send(coordinator.ResizeCommand(size))
}

// SetSelection replaces (nil clears) the current selection range.
func (f *Facade) SetSelection(sel *snapshot.SelectionRange) {
	f.send(coordinator.SetSelectionCommand(sel))
}

// Sync forces an immediate snapshot republish with no grid mutation.
func (f *Facade) Sync() {
	f.send(coordinator.SyncCommand())
}

// Snapshots returns the single-slot latest-snapshot channel: receiving from
// it always yields the most recent published Snapshot.
func (f *Facade) Snapshots() <-chan snapshot.Snapshot { return f.coord.Snapshots() }

// Wakeup returns a channel that receives a non-blocking ping every time a
// new Snapshot has been published.
func (f *Facade) Wakeup() <-chan struct{} { return f.coord.Wakeup() }

// Titles returns a channel that receives the grid's window title whenever
// an OSC title-change sequence updates it.
func (f *Facade) Titles() <-chan string { return f.coord.Titles() }

// CurrentSnapshot sends a Sync and then receives from the single-slot
// snapshot channel, blocking until a Snapshot is there. The value returned
// is whatever the slot holds at that moment, which can predate the Sync;
// the Sync's own publish refills the slot for other readers afterwards.
func (f *Facade) CurrentSnapshot() snapshot.Snapshot {
	f.Sync()
	return <-f.coord.Snapshots()
}

// Shutdown stops the coordinator's event loop and closes the attached
// device, if any. It is idempotent and blocks until the event loop has
// fully exited.
func (f *Facade) Shutdown() {
	f.runOnce.Do(func() {
		f.sendMu.Lock()
		f.shutdown.Store(true)
		close(f.coord.Input())
		f.sendMu.Unlock()
	})
	<-f.doneCh
}

// IsShutdown reports whether Shutdown has been called.
func (f *Facade) IsShutdown() bool { return f.shutdown.Load() }

// ID returns the facade's unique identifier, generated once at New and
// stable for the facade's lifetime. Useful for correlating log lines
// across multiple concurrently-driven sessions.
func (f *Facade) ID() string { return f.id }
