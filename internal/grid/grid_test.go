package grid

import (
	"testing"

	"github.com/termcoord/termcoord/internal/snapshot"
)

func contentAt(snap snapshot.Snapshot, row, col int) string {
	return snap.At(row, col).Content
}

func TestWritePlainText(t *testing.T) {
	g := New(5, 20)
	_, _ = g.Write([]byte("hello"))

	snap := g.Snapshot()
	for i, want := range "hello" {
		if got := contentAt(snap, 0, i); got != string(want) {
			t.Errorf("col %d: got %q, want %q", i, got, string(want))
		}
	}
	if snap.Cursor.Col != 5 || snap.Cursor.Row != 0 {
		t.Errorf("cursor = (%d,%d), want (0,5)", snap.Cursor.Row, snap.Cursor.Col)
	}
}

func TestNewlineAdvancesRow(t *testing.T) {
	g := New(5, 20)
	_, _ = g.Write([]byte("a\r\nb"))
	snap := g.Snapshot()
	if contentAt(snap, 0, 0) != "a" {
		t.Errorf("row 0 col 0 = %q, want a", contentAt(snap, 0, 0))
	}
	if contentAt(snap, 1, 0) != "b" {
		t.Errorf("row 1 col 0 = %q, want b", contentAt(snap, 1, 0))
	}
	if snap.Cursor.Row != 1 || snap.Cursor.Col != 1 {
		t.Errorf("cursor = (%d,%d), want (1,1)", snap.Cursor.Row, snap.Cursor.Col)
	}
}

func TestAutowrapAtRightMargin(t *testing.T) {
	g := New(3, 4)
	_, _ = g.Write([]byte("abcd"))
	snap := g.Snapshot()
	if contentAt(snap, 0, 3) != "d" {
		t.Errorf("row0 col3 = %q, want d", contentAt(snap, 0, 3))
	}
	// the wrap is pending, not yet realized; writing one more char should land
	// on row 1.
	_, _ = g.Write([]byte("e"))
	snap = g.Snapshot()
	if contentAt(snap, 1, 0) != "e" {
		t.Errorf("row1 col0 = %q, want e", contentAt(snap, 1, 0))
	}
}

func TestWideGlyphOccupiesTwoCells(t *testing.T) {
	g := New(3, 10)
	_, _ = g.Write([]byte("中")) // CJK ideograph, width 2
	snap := g.Snapshot()
	first := snap.At(0, 0)
	second := snap.At(0, 1)
	if first.Width != 2 {
		t.Errorf("first cell width = %d, want 2", first.Width)
	}
	if second.Content != "" || second.Width != 0 {
		t.Errorf("continuation cell = %+v, want empty zero-width", second)
	}
	if snap.Cursor.Col != 2 {
		t.Errorf("cursor col = %d, want 2", snap.Cursor.Col)
	}
}

func TestCursorPositioningCSI(t *testing.T) {
	g := New(10, 10)
	_, _ = g.Write([]byte("\x1b[5;3H"))
	snap := g.Snapshot()
	if snap.Cursor.Row != 4 || snap.Cursor.Col != 2 {
		t.Errorf("cursor = (%d,%d), want (4,2)", snap.Cursor.Row, snap.Cursor.Col)
	}
}

func TestEraseInDisplayFull(t *testing.T) {
	g := New(3, 5)
	_, _ = g.Write([]byte("hello\r\nworld"))
	_, _ = g.Write([]byte("\x1b[2J"))
	snap := g.Snapshot()
	for row := 0; row < 3; row++ {
		for col := 0; col < 5; col++ {
			if contentAt(snap, row, col) != " " {
				t.Fatalf("cell (%d,%d) = %q, want blank after ED2", row, col, contentAt(snap, row, col))
			}
		}
	}
}

func TestScrollRegionPushesScrollback(t *testing.T) {
	g := New(2, 5)
	_, _ = g.Write([]byte("one\r\n"))
	_, _ = g.Write([]byte("two\r\n"))
	_, _ = g.Write([]byte("three"))

	snap := g.Snapshot()
	if snap.ScrollbackLen == 0 {
		t.Fatal("expected scrollback to have at least one line after scrolling past a 2-row viewport")
	}
}

func TestSGRColorsAndAttributes(t *testing.T) {
	g := New(3, 10)
	_, _ = g.Write([]byte("\x1b[1;31mred bold\x1b[0m"))
	snap := g.Snapshot()
	cell := snap.At(0, 0)
	if !cell.Style.Bold {
		t.Error("expected bold attribute")
	}
	if cell.Style.Fg == nil {
		t.Error("expected a foreground color to be set")
	}

	// after reset, further writes should carry no bold
	_, _ = g.Write([]byte(" plain"))
	snap2 := g.Snapshot()
	plainCell := snap2.At(0, len("red bold"))
	if plainCell.Style.Bold {
		t.Error("expected bold to be cleared after SGR reset")
	}
}

func TestAltScreenSwitch(t *testing.T) {
	g := New(3, 10)
	_, _ = g.Write([]byte("main screen"))
	_, _ = g.Write([]byte("\x1b[?1049h"))
	if !g.Snapshot().Mode.Has(snapshot.ModeAltScreen) {
		t.Fatal("expected alt screen mode after entering 1049")
	}
	altSnap := g.Snapshot()
	if contentAt(altSnap, 0, 0) != " " {
		t.Errorf("alt screen should start blank, got %q", contentAt(altSnap, 0, 0))
	}

	_, _ = g.Write([]byte("\x1b[?1049l"))
	mainSnap := g.Snapshot()
	if mainSnap.Mode.Has(snapshot.ModeAltScreen) {
		t.Fatal("expected main screen mode after leaving 1049")
	}
	if contentAt(mainSnap, 0, 0) != "m" {
		t.Errorf("main screen content should be preserved, got %q", contentAt(mainSnap, 0, 0))
	}
}

func TestCursorVisibilityMode(t *testing.T) {
	g := New(3, 10)
	_, _ = g.Write([]byte("\x1b[?25l"))
	if !g.Snapshot().Cursor.Hidden {
		t.Fatal("expected cursor hidden after ?25l")
	}
	_, _ = g.Write([]byte("\x1b[?25h"))
	if g.Snapshot().Cursor.Hidden {
		t.Fatal("expected cursor visible after ?25h")
	}
}

func TestResizePreservesContent(t *testing.T) {
	g := New(5, 10)
	_, _ = g.Write([]byte("hi"))
	g.Resize(8, 20)
	snap := g.Snapshot()
	if snap.Bounds.Rows != 8 || snap.Bounds.Cols != 20 {
		t.Fatalf("bounds = %+v, want 8x20", snap.Bounds)
	}
	if contentAt(snap, 0, 0) != "h" || contentAt(snap, 0, 1) != "i" {
		t.Errorf("expected preserved content after resize, got %q %q", contentAt(snap, 0, 0), contentAt(snap, 0, 1))
	}
}

func TestTitleFromOSC(t *testing.T) {
	g := New(3, 10)
	_, _ = g.Write([]byte("\x1b]0;my title\x07"))
	if g.Title() != "my title" {
		t.Errorf("title = %q, want %q", g.Title(), "my title")
	}
}

func TestCursorCharReflectsGlyphUnderCursor(t *testing.T) {
	g := New(3, 10)
	_, _ = g.Write([]byte("hi"))
	_, _ = g.Write([]byte("\x1b[1;1H")) // move cursor back onto the 'h'
	snap := g.Snapshot()
	if snap.CursorChar != "h" {
		t.Errorf("CursorChar = %q, want %q", snap.CursorChar, "h")
	}
}

func TestCursorPositionReportResponder(t *testing.T) {
	g := New(10, 10)
	var got []byte
	g.SetResponder(func(b []byte) { got = append(got, b...) })
	_, _ = g.Write([]byte("\x1b[3;4H\x1b[6n"))
	want := "\x1b[3;4R"
	if string(got) != want {
		t.Errorf("responder got %q, want %q", string(got), want)
	}
}

func TestDisplayOffsetScrollback(t *testing.T) {
	g := New(2, 5)
	_, _ = g.Write([]byte("one\r\ntwo\r\nthree"))
	snap := g.Snapshot()
	if snap.ScrollbackLen == 0 {
		t.Fatal("expected scrollback after 3 lines in a 2-row viewport")
	}
	g.SetDisplayOffset(snap.ScrollbackLen)
	scrolled := g.Snapshot()
	if scrolled.DisplayOffset != snap.ScrollbackLen {
		t.Errorf("display offset = %d, want %d", scrolled.DisplayOffset, snap.ScrollbackLen)
	}
	if !scrolled.ScrolledToTop() {
		t.Error("expected ScrolledToTop to be true at max display offset")
	}
}
