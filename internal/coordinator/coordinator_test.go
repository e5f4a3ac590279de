package coordinator_test

import (
	"testing"
	"time"

	"github.com/termcoord/termcoord/internal/coordinator"
	"github.com/termcoord/termcoord/internal/device"
	"github.com/termcoord/termcoord/internal/testutil"
)

// fakeDevice adapts a testutil.FakeShell to the device.Device interface so
// the coordinator can be driven without a real PTY or SSH connection.
type fakeDevice struct {
	shell  *testutil.FakeShell
	resize chan device.TerminalSize
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{shell: testutil.NewFakeShell(), resize: make(chan device.TerminalSize, 8)}
}

func (f *fakeDevice) Write(p []byte) (int, error) { return f.shell.Write(p) }

func (f *fakeDevice) StartReader(sink func([]byte)) error {
	buf := make([]byte, 4096)
	for {
		n, err := f.shell.Read(buf)
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

func (f *fakeDevice) Resize(size device.TerminalSize) error {
	select {
	case f.resize <- size:
	default:
	}
	return nil
}

func (f *fakeDevice) Close() error   { return f.shell.Close() }
func (f *fakeDevice) ProcessID() int { return 0 }

var _ device.Device = (*fakeDevice)(nil)

func waitSnapshot(t *testing.T, c *coordinator.Coordinator) {
	t.Helper()
	select {
	case <-c.Wakeup():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot publish")
	}
}

func TestCoordinatorEchoesDeviceOutput(t *testing.T) {
	c := coordinator.New(device.TerminalSize{Rows: 5, Cols: 20})
	go c.Run()

	dev := newFakeDevice()
	c.Input() <- coordinator.AttachCommand(dev)
	waitSnapshot(t, c)

	dev.shell.SendOutput("hello")
	waitSnapshot(t, c)

	snap := <-c.Snapshots()
	if got := snap.At(0, 0).Content; got != "h" {
		t.Errorf("cell(0,0) = %q, want h", got)
	}

	c.Input() <- coordinator.ShutdownCommand()
}

func TestCoordinatorResizePropagatesToDevice(t *testing.T) {
	c := coordinator.New(device.TerminalSize{Rows: 5, Cols: 20})
	go c.Run()

	dev := newFakeDevice()
	c.Input() <- coordinator.AttachCommand(dev)
	waitSnapshot(t, c)

	// Attaching sizes the device to the grid once; take that resize first
	// so the check below sees the one issued by ResizeCommand.
	select {
	case <-dev.resize:
	case <-time.After(2 * time.Second):
		t.Fatal("device was never sized on attach")
	}

	c.Input() <- coordinator.ResizeCommand(device.TerminalSize{Rows: 10, Cols: 40})
	waitSnapshot(t, c)

	select {
	case size := <-dev.resize:
		if size.Rows != 10 || size.Cols != 40 {
			t.Errorf("device resized to %+v, want 10x40", size)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("device was never resized")
	}

	snap := <-c.Snapshots()
	if snap.Bounds.Rows != 10 || snap.Bounds.Cols != 40 {
		t.Errorf("grid bounds = %+v, want 10x40", snap.Bounds)
	}

	c.Input() <- coordinator.ShutdownCommand()
}

func TestCoordinatorDetachOnDeviceEOF(t *testing.T) {
	c := coordinator.New(device.TerminalSize{Rows: 5, Cols: 20})
	go c.Run()

	dev := newFakeDevice()
	c.Input() <- coordinator.AttachCommand(dev)
	waitSnapshot(t, c)

	_ = dev.shell.Close() // triggers EOF in the reader goroutine
	waitSnapshot(t, c)

	// A write with no device attached should be silently dropped rather
	// than block or panic the event loop.
	c.Input() <- coordinator.WriteCommand([]byte("ignored"))
	c.Input() <- coordinator.SyncCommand()
	waitSnapshot(t, c)

	c.Input() <- coordinator.ShutdownCommand()
}

func TestCoordinatorAttachResizesDeviceToGridBounds(t *testing.T) {
	c := coordinator.New(device.TerminalSize{Rows: 5, Cols: 20})
	go c.Run()

	c.Input() <- coordinator.ResizeCommand(device.TerminalSize{Rows: 12, Cols: 33})
	waitSnapshot(t, c)

	dev := newFakeDevice()
	c.Input() <- coordinator.AttachCommand(dev)
	waitSnapshot(t, c)

	select {
	case size := <-dev.resize:
		if size.Rows != 12 || size.Cols != 33 {
			t.Errorf("device sized to %+v on attach, want 12x33", size)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("device was never resized on attach")
	}

	c.Input() <- coordinator.ShutdownCommand()
}

func TestCoordinatorAttachReplacesPreviousDevice(t *testing.T) {
	c := coordinator.New(device.TerminalSize{Rows: 5, Cols: 20})
	go c.Run()

	first := newFakeDevice()
	c.Input() <- coordinator.AttachCommand(first)
	waitSnapshot(t, c)

	second := newFakeDevice()
	c.Input() <- coordinator.AttachCommand(second)
	waitSnapshot(t, c)

	if !first.shell.IsClosed() {
		t.Error("expected the replaced device to be closed on re-attach")
	}

	second.shell.SendOutput("x")
	waitSnapshot(t, c)
	snap := <-c.Snapshots()
	if snap.At(0, 0).Content != "x" {
		t.Errorf("expected output from the newly attached device to reach the grid")
	}

	c.Input() <- coordinator.ShutdownCommand()
}
