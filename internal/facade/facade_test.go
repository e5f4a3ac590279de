package facade_test

import (
	"errors"
	"testing"
	"time"

	"github.com/termcoord/termcoord/internal/coordinator"
	"github.com/termcoord/termcoord/internal/device"
	"github.com/termcoord/termcoord/internal/facade"
	"github.com/termcoord/termcoord/internal/testutil"
)

type fakeDevice struct {
	shell *testutil.FakeShell
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{shell: testutil.NewFakeShell()}
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

func (f *fakeDevice) Resize(device.TerminalSize) error { return nil }
func (f *fakeDevice) Close() error                     { return f.shell.Close() }
func (f *fakeDevice) ProcessID() int                   { return 0 }

var _ device.Device = (*fakeDevice)(nil)

func TestFacadeWriteBypassesCoordinator(t *testing.T) {
	f := facade.New(device.TerminalSize{Rows: 5, Cols: 20})
	defer f.Shutdown()

	dev := newFakeDevice()
	f.Attach(dev)

	n, err := f.Write([]byte("ls\n"))
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if n != 3 {
		t.Fatalf("Write returned %d, want 3", n)
	}
	if got := dev.shell.GetInput(); got != "ls\n" {
		t.Errorf("device received %q, want %q", got, "ls\n")
	}
}

func TestFacadeWriteWithNoDeviceReturnsErrNoDevice(t *testing.T) {
	f := facade.New(device.TerminalSize{Rows: 5, Cols: 20})
	defer f.Shutdown()

	_, err := f.Write([]byte("x"))
	if !errors.Is(err, coordinator.ErrNoDevice) {
		t.Fatalf("Write with no device attached returned %v, want ErrNoDevice", err)
	}
}

func TestFacadeSnapshotReflectsDeviceOutput(t *testing.T) {
	f := facade.New(device.TerminalSize{Rows: 5, Cols: 20})
	defer f.Shutdown()

	dev := newFakeDevice()
	f.Attach(dev)

	// Attaching publishes a snapshot of its own; wait for it so the next
	// wakeup is the one for the device output.
	select {
	case <-f.Wakeup():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the attach publish")
	}

	dev.shell.SendOutput("hi")

	select {
	case <-f.Wakeup():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a snapshot publish")
	}

	snap := f.CurrentSnapshot()
	if snap.At(0, 0).Content != "h" {
		t.Errorf("cell(0,0) = %q, want h", snap.At(0, 0).Content)
	}
}

func TestFacadeShutdownIsIdempotentAndClosesDevice(t *testing.T) {
	f := facade.New(device.TerminalSize{Rows: 5, Cols: 20})
	dev := newFakeDevice()
	f.Attach(dev)

	f.Shutdown()
	f.Shutdown() // must not panic or block

	if !f.IsShutdown() {
		t.Error("expected IsShutdown to be true after Shutdown")
	}
	if !dev.shell.IsClosed() {
		t.Error("expected the attached device to be closed on Shutdown")
	}
}

func TestFacadeConcurrentSendsDuringShutdown(t *testing.T) {
	f := facade.New(device.TerminalSize{Rows: 5, Cols: 20})
	dev := newFakeDevice()
	f.Attach(dev)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			f.Resize(device.TerminalSize{Rows: 5, Cols: 20})
		}
	}()

	f.Shutdown() // racing the sends above must never panic
	<-done
}

func TestFacadeIDsAreUniquePerSession(t *testing.T) {
	f1 := facade.New(device.TerminalSize{Rows: 5, Cols: 20})
	f2 := facade.New(device.TerminalSize{Rows: 5, Cols: 20})
	defer f1.Shutdown()
	defer f2.Shutdown()

	if f1.ID() == "" || f2.ID() == "" {
		t.Fatal("expected non-empty facade IDs")
	}
	if f1.ID() == f2.ID() {
		t.Error("expected distinct facade IDs")
	}
}
