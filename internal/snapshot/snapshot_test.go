package snapshot

import "testing"

func buildSnapshot(rows, cols int) Snapshot {
	cells := make([]Cell, rows*cols)
	for i := range cells {
		cells[i] = Cell{Content: " ", Width: 1}
	}
	return Snapshot{Bounds: Bounds{Rows: rows, Cols: cols}, Cells: cells}
}

func TestAtOutOfBoundsReturnsZeroCell(t *testing.T) {
	snap := buildSnapshot(5, 10)
	if got := snap.At(-1, 0); got != (Cell{}) {
		t.Errorf("At(-1,0) = %+v, want zero Cell", got)
	}
	if got := snap.At(5, 0); got != (Cell{}) {
		t.Errorf("At(5,0) = %+v, want zero Cell", got)
	}
	if got := snap.At(0, 10); got != (Cell{}) {
		t.Errorf("At(0,10) = %+v, want zero Cell", got)
	}
}

func TestAtInBounds(t *testing.T) {
	snap := buildSnapshot(3, 3)
	snap.Cells[1*3+2] = Cell{Content: "x", Width: 1}
	if got := snap.At(1, 2).Content; got != "x" {
		t.Errorf("At(1,2) = %q, want x", got)
	}
}

func TestModeHas(t *testing.T) {
	m := ModeAltScreen | ModeCursorHidden
	if !m.Has(ModeAltScreen) {
		t.Error("expected Has(ModeAltScreen) to be true")
	}
	if m.Has(ModeMouseReporting) {
		t.Error("expected Has(ModeMouseReporting) to be false")
	}
	if !m.Has(ModeAltScreen | ModeCursorHidden) {
		t.Error("expected Has to succeed for a combined mask it fully contains")
	}
}

func TestScrolledToBottomAndTop(t *testing.T) {
	snap := Snapshot{ScrollbackLen: 100, DisplayOffset: 0}
	if !snap.ScrolledToBottom() {
		t.Error("expected ScrolledToBottom with DisplayOffset 0")
	}
	if snap.ScrolledToTop() {
		t.Error("expected not ScrolledToTop with DisplayOffset 0")
	}

	snap.DisplayOffset = 100
	if snap.ScrolledToBottom() {
		t.Error("expected not ScrolledToBottom once scrolled")
	}
	if !snap.ScrolledToTop() {
		t.Error("expected ScrolledToTop at max DisplayOffset")
	}
}
