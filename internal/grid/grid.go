// Package grid implements the VT/grid component: a byte-stream terminal
// emulator that turns PTY/SSH output into an addressable cell buffer.
//
// The dispatch loop is built directly on github.com/charmbracelet/x/ansi's
// Parser/Handler primitive, the same low-level escape-sequence dispatcher
// the reference terminal-multiplexer implementation this package borrows its
// shape from drives its own emulator with. Grid carries no locking of its
// own: callers that share a Grid across goroutines (the coordinator) are
// expected to serialize access themselves.
package grid

import (
	"image/color"

	"github.com/charmbracelet/x/ansi"
	"github.com/charmbracelet/x/ansi/parser"
	"github.com/mattn/go-runewidth"

	"github.com/termcoord/termcoord/internal/snapshot"
)

// DefaultScrollbackLines is used when a Grid is created without an explicit
// scrollback limit.
const DefaultScrollbackLines = 10000

// pen is the SGR state applied to newly written cells.
type pen struct {
	fg, bg               color.Color
	bold, faint, italic  bool
	underline, blink     bool
	reverse, conceal     bool
	strikethrough        bool
}

func (p pen) style() snapshot.Style {
	return snapshot.Style{
		Fg: p.fg, Bg: p.bg,
		Bold: p.bold, Faint: p.faint, Italic: p.italic,
		Underline: p.underline, Blink: p.blink,
		Reverse: p.reverse, Conceal: p.conceal,
		Strikethrough: p.strikethrough,
	}
}

// screen is one of the two buffers (main or alternate) a Grid multiplexes.
type screen struct {
	rows, cols int
	cells      []snapshot.Cell
	cursorRow  int
	cursorCol  int
	savedRow   int
	savedCol   int
	savedPen   pen
	scrollTop  int // 0-based, inclusive
	scrollBot  int // 0-based, inclusive
}

func newScreen(rows, cols int) *screen {
	s := &screen{rows: rows, cols: cols, scrollBot: rows - 1}
	s.cells = make([]snapshot.Cell, rows*cols)
	s.clearAll()
	return s
}

func (s *screen) clearAll() {
	for i := range s.cells {
		s.cells[i] = snapshot.Cell{Content: " ", Width: 1}
	}
}

func (s *screen) at(row, col int) *snapshot.Cell {
	if row < 0 || row >= s.rows || col < 0 || col >= s.cols {
		return nil
	}
	return &s.cells[row*s.cols+col]
}

func (s *screen) clampCursor() {
	if s.cursorRow < 0 {
		s.cursorRow = 0
	}
	if s.cursorRow >= s.rows {
		s.cursorRow = s.rows - 1
	}
	if s.cursorCol < 0 {
		s.cursorCol = 0
	}
	if s.cursorCol >= s.cols {
		s.cursorCol = s.cols - 1
	}
}

// Grid is the in-memory VT state machine: cell buffer, cursor, modes, and
// scrollback, driven by feeding it raw bytes via Write.
type Grid struct {
	main *screen
	alt  *screen
	cur  *screen
	isAlt bool

	pen pen

	autowrap      bool
	pendingWrap   bool
	appCursor     bool
	cursorHidden  bool
	bracketPaste  bool
	mouseMode     int // 0=off, 1000/1002/1003 as in DEC private modes
	mouseSGR      bool

	title string

	selection *snapshot.SelectionRange

	scrollback    []snapshot.Cell // flattened ring, cols-wide rows
	scrollbackCols int
	scrollbackMax int
	scrollbackLen int
	scrollbackHead int
	displayOffset int

	parser *ansi.Parser

	lastRune rune
	hasLast  bool

	responder func([]byte)
}

// New creates a Grid with the given viewport size in rows and columns.
func New(rows, cols int) *Grid {
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	g := &Grid{
		main:          newScreen(rows, cols),
		alt:           newScreen(rows, cols),
		autowrap:      true,
		scrollbackMax: DefaultScrollbackLines,
		scrollbackCols: cols,
	}
	g.scrollback = make([]snapshot.Cell, 0, g.scrollbackMax*cols)
	g.cur = g.main
	g.parser = ansi.NewParser()
	g.parser.SetParamsSize(parser.MaxParamsSize)
	g.parser.SetDataSize(1024 * 1024)
	g.parser.SetHandler(ansi.Handler{
		Print:     g.handlePrint,
		Execute:   g.handleExecute,
		HandleCsi: g.handleCsi,
		HandleEsc: g.handleEsc,
		HandleDcs: g.handleDcs,
		HandleOsc: g.handleOsc,
		HandleApc: g.handleApc,
		HandlePm:  g.handlePm,
		HandleSos: g.handleSos,
	})
	return g
}

// Write feeds raw terminal output bytes into the state machine.
func (g *Grid) Write(p []byte) (int, error) {
	for i := range p {
		g.parser.Advance(p[i])
	}
	return len(p), nil
}

// Bounds returns the current viewport size.
func (g *Grid) Bounds() snapshot.Bounds {
	return snapshot.Bounds{Rows: g.cur.rows, Cols: g.cur.cols}
}

// Resize changes the viewport size, clamping the cursor and scroll region
// into the new bounds. Both screens are resized so a later screen swap
// keeps consistent dimensions.
func (g *Grid) Resize(rows, cols int) {
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	for _, s := range []*screen{g.main, g.alt} {
		resizeScreen(s, rows, cols)
	}
	g.scrollbackCols = cols
}

func resizeScreen(s *screen, rows, cols int) {
	newCells := make([]snapshot.Cell, rows*cols)
	for i := range newCells {
		newCells[i] = snapshot.Cell{Content: " ", Width: 1}
	}
	copyRows := min(rows, s.rows)
	copyCols := min(cols, s.cols)
	for r := 0; r < copyRows; r++ {
		for c := 0; c < copyCols; c++ {
			newCells[r*cols+c] = s.cells[r*s.cols+c]
		}
	}
	s.cells = newCells
	s.rows, s.cols = rows, cols
	s.scrollTop = 0
	s.scrollBot = rows - 1
	s.clampCursor()
}

// SetSelection replaces (or, with nil, clears) the current selection range.
func (g *Grid) SetSelection(sel *snapshot.SelectionRange) {
	g.selection = sel
}

// Title returns the most recently set OSC window title.
func (g *Grid) Title() string { return g.title }

// SetDisplayOffset sets how many scrollback lines above the live viewport
// to show. 0 means live (scrolled to bottom).
func (g *Grid) SetDisplayOffset(n int) {
	if n < 0 {
		n = 0
	}
	if n > g.scrollbackLen {
		n = g.scrollbackLen
	}
	g.displayOffset = n
}

// Snapshot produces an immutable, fully-copied view of the current grid
// state, honoring the current scrollback display offset.
func (g *Grid) Snapshot() snapshot.Snapshot {
	rows, cols := g.cur.rows, g.cur.cols
	cells := make([]snapshot.Cell, rows*cols)

	if g.displayOffset == 0 || g.isAlt {
		copy(cells, g.cur.cells)
	} else {
		// Compose the view from `displayOffset` scrollback lines followed
		// by as many live rows as remain.
		fromScrollback := min(g.displayOffset, rows)
		liveRows := rows - fromScrollback
		startLine := g.scrollbackLen - g.displayOffset
		for i := 0; i < fromScrollback; i++ {
			line := g.scrollbackLine(startLine + i)
			copy(cells[i*cols:(i+1)*cols], line)
		}
		for i := 0; i < liveRows; i++ {
			srcRow := i
			copy(cells[(fromScrollback+i)*cols:(fromScrollback+i+1)*cols],
				g.cur.cells[srcRow*cols:(srcRow+1)*cols])
		}
	}

	var cursorChar string
	if cr, cc := g.cur.cursorRow, g.cur.cursorCol; cr >= 0 && cr < rows && cc >= 0 && cc < cols {
		cursorChar = g.cur.cells[cr*cols+cc].Content
	}

	var mode snapshot.Mode
	if g.appCursor {
		mode |= snapshot.ModeApplicationCursor
	}
	if g.bracketPaste {
		mode |= snapshot.ModeBracketedPaste
	}
	if g.mouseMode != 0 {
		mode |= snapshot.ModeMouseReporting
	}
	if g.mouseSGR {
		mode |= snapshot.ModeMouseSGR
	}
	if g.isAlt {
		mode |= snapshot.ModeAltScreen
	}
	if g.cursorHidden {
		mode |= snapshot.ModeCursorHidden
	}
	if g.autowrap {
		mode |= snapshot.ModeAutoWrap
	}

	return snapshot.Snapshot{
		Bounds: snapshot.Bounds{Rows: rows, Cols: cols},
		Cells:  cells,
		Cursor: snapshot.Cursor{
			Row: g.cur.cursorRow, Col: g.cur.cursorCol, Hidden: g.cursorHidden,
		},
		CursorChar:    cursorChar,
		Mode:          mode,
		Title:         g.title,
		Selection:     g.selection,
		ScrollbackLen: g.scrollbackLen,
		DisplayOffset: g.displayOffset,
	}
}

func (g *Grid) scrollbackLine(index int) []snapshot.Cell {
	if index < 0 || index >= g.scrollbackLen {
		out := make([]snapshot.Cell, g.scrollbackCols)
		for i := range out {
			out[i] = snapshot.Cell{Content: " ", Width: 1}
		}
		return out
	}
	physical := (g.scrollbackHead + index) % g.scrollbackCapacityRows()
	start := physical * g.scrollbackCols
	return g.scrollback[start : start+g.scrollbackCols]
}

func (g *Grid) scrollbackCapacityRows() int {
	if g.scrollbackCols == 0 {
		return 0
	}
	return cap(g.scrollback) / g.scrollbackCols
}

func (g *Grid) pushScrollback(row []snapshot.Cell) {
	capRows := g.scrollbackMax
	if g.scrollbackCols == 0 {
		return
	}
	if len(g.scrollback) < capRows*g.scrollbackCols {
		g.scrollback = append(g.scrollback, row...)
		g.scrollbackLen++
		return
	}
	// Ring is full: overwrite the oldest row in place.
	start := g.scrollbackHead * g.scrollbackCols
	copy(g.scrollback[start:start+g.scrollbackCols], row)
	g.scrollbackHead = (g.scrollbackHead + 1) % capRows
}

// runeWidth returns the terminal display width of r (0, 1, or 2).
func runeWidth(r rune) int {
	return runewidth.RuneWidth(r)
}
