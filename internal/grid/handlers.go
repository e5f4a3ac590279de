package grid

import (
	"bytes"
	"fmt"
	"image/color"

	"github.com/charmbracelet/x/ansi"

	"github.com/termcoord/termcoord/internal/snapshot"
)

// SetResponder installs the callback used to send terminal replies (cursor
// position reports, device attribute answers) back up the device. A nil
// responder silently drops replies.
func (g *Grid) SetResponder(fn func([]byte)) { g.responder = fn }

func (g *Grid) reply(s string) {
	if g.responder != nil {
		g.responder([]byte(s))
	}
}

// handlePrint writes a single printable rune at the cursor, advancing it and
// handling autowrap and wide-glyph continuation cells.
func (g *Grid) handlePrint(r rune) {
	w := runeWidth(r)
	if w == 0 {
		// Combining mark: attach to the previous cell if possible.
		if g.hasLast {
			col := g.cur.cursorCol - 1
			if cell := g.cur.at(g.cur.cursorRow, col); cell != nil {
				cell.Content += string(r)
			}
		}
		return
	}

	if g.pendingWrap {
		g.newline()
		g.cur.cursorCol = 0
		g.pendingWrap = false
	}

	if g.cur.cursorCol+w > g.cur.cols {
		g.newline()
		g.cur.cursorCol = 0
	}

	cell := g.cur.at(g.cur.cursorRow, g.cur.cursorCol)
	if cell != nil {
		cell.Content = string(r)
		cell.Width = w
		cell.Style = g.pen.style()
	}
	for i := 1; i < w; i++ {
		if c := g.cur.at(g.cur.cursorRow, g.cur.cursorCol+i); c != nil {
			c.Content = ""
			c.Width = 0
			c.Style = g.pen.style()
		}
	}

	g.cur.cursorCol += w
	g.lastRune = r
	g.hasLast = true

	if g.cur.cursorCol >= g.cur.cols {
		g.cur.cursorCol = g.cur.cols - 1
		if g.autowrap {
			g.pendingWrap = true
		}
	}
}

func (g *Grid) handleExecute(b byte) {
	switch b {
	case '\n', '\v', '\f':
		g.newline()
		g.pendingWrap = false
	case '\r':
		g.cur.cursorCol = 0
		g.pendingWrap = false
	case '\b':
		if g.cur.cursorCol > 0 {
			g.cur.cursorCol--
		}
		g.pendingWrap = false
	case '\t':
		next := ((g.cur.cursorCol / 8) + 1) * 8
		if next >= g.cur.cols {
			next = g.cur.cols - 1
		}
		g.cur.cursorCol = next
	case 0x07: // BEL
	case 0x0e, 0x0f: // SO/SI, charset switch: not modeled.
	}
}

// newline moves the cursor down one row, scrolling the active region (or
// pushing the top row into scrollback for the main screen) when the cursor
// is already at the bottom margin.
func (g *Grid) newline() {
	if g.cur.cursorRow == g.cur.scrollBot {
		g.scrollUpRegion(1)
		return
	}
	if g.cur.cursorRow < g.cur.rows-1 {
		g.cur.cursorRow++
	}
}

// scrollUpRegion scrolls the active scroll region up by n rows. On the main
// screen, rows scrolled off the top of a region that starts at row 0 are
// pushed into scrollback.
func (g *Grid) scrollUpRegion(n int) {
	top, bot := g.cur.scrollTop, g.cur.scrollBot
	cols := g.cur.cols
	for i := 0; i < n; i++ {
		if !g.isAlt && top == 0 {
			g.pushScrollback(cloneRow(g.cur.cells[top*cols : (top+1)*cols]))
		}
		copy(g.cur.cells[top*cols:bot*cols], g.cur.cells[(top+1)*cols:(bot+1)*cols])
		blankRow(g.cur.cells[bot*cols : (bot+1)*cols])
	}
}

func (g *Grid) scrollDownRegion(n int) {
	top, bot := g.cur.scrollTop, g.cur.scrollBot
	cols := g.cur.cols
	for i := 0; i < n; i++ {
		copy(g.cur.cells[(top+1)*cols:(bot+1)*cols], g.cur.cells[top*cols:bot*cols])
		blankRow(g.cur.cells[top*cols : (top+1)*cols])
	}
}

func blankRow(row []snapshot.Cell) {
	for i := range row {
		row[i] = snapshot.Cell{Content: " ", Width: 1}
	}
}

func cloneRow(row []snapshot.Cell) []snapshot.Cell {
	out := make([]snapshot.Cell, len(row))
	copy(out, row)
	return out
}

func (g *Grid) eraseInDisplay(mode int) {
	cols, rows := g.cur.cols, g.cur.rows
	switch mode {
	case 0:
		g.eraseInLine(0)
		for r := g.cur.cursorRow + 1; r < rows; r++ {
			blankRow(g.cur.cells[r*cols : (r+1)*cols])
		}
	case 1:
		for r := 0; r < g.cur.cursorRow; r++ {
			blankRow(g.cur.cells[r*cols : (r+1)*cols])
		}
		g.eraseInLine(1)
	case 2, 3:
		for r := 0; r < rows; r++ {
			blankRow(g.cur.cells[r*cols : (r+1)*cols])
		}
	}
}

func (g *Grid) eraseInLine(mode int) {
	cols := g.cur.cols
	row := g.cur.cells[g.cur.cursorRow*cols : (g.cur.cursorRow+1)*cols]
	switch mode {
	case 0:
		for i := g.cur.cursorCol; i < cols; i++ {
			row[i] = snapshot.Cell{Content: " ", Width: 1}
		}
	case 1:
		for i := 0; i <= g.cur.cursorCol && i < cols; i++ {
			row[i] = snapshot.Cell{Content: " ", Width: 1}
		}
	case 2:
		blankRow(row)
	}
}

func csiParam(params ansi.Params, i, def int) int {
	if i >= len(params) {
		return def
	}
	v := params[i].Param(def)
	if v <= 0 && def > 0 {
		return def
	}
	return v
}

func (g *Grid) handleCsi(cmd ansi.Cmd, params ansi.Params) {
	marker := cmd.Prefix()
	final := cmd.Final()

	if marker == '?' {
		g.handlePrivateMode(final, params)
		g.cur.clampCursor()
		return
	}

	switch final {
	case 'A': // CUU
		g.cur.cursorRow -= csiParam(params, 0, 1)
	case 'B', 'e': // CUD / VPR
		g.cur.cursorRow += csiParam(params, 0, 1)
	case 'C', 'a': // CUF / HPR
		g.cur.cursorCol += csiParam(params, 0, 1)
	case 'D': // CUB
		g.cur.cursorCol -= csiParam(params, 0, 1)
	case 'E': // CNL
		g.cur.cursorRow += csiParam(params, 0, 1)
		g.cur.cursorCol = 0
	case 'F': // CPL
		g.cur.cursorRow -= csiParam(params, 0, 1)
		g.cur.cursorCol = 0
	case 'G', '`': // CHA / HPA
		g.cur.cursorCol = csiParam(params, 0, 1) - 1
	case 'd': // VPA
		g.cur.cursorRow = csiParam(params, 0, 1) - 1
	case 'H', 'f': // CUP / HVP
		g.cur.cursorRow = csiParam(params, 0, 1) - 1
		g.cur.cursorCol = csiParam(params, 1, 1) - 1
	case 'J': // ED
		g.eraseInDisplay(csiParam(params, 0, 0))
	case 'K': // EL
		g.eraseInLine(csiParam(params, 0, 0))
	case 'L': // IL
		g.insertLines(csiParam(params, 0, 1))
	case 'M': // DL
		g.deleteLines(csiParam(params, 0, 1))
	case 'P': // DCH
		g.deleteChars(csiParam(params, 0, 1))
	case '@': // ICH
		g.insertChars(csiParam(params, 0, 1))
	case 'X': // ECH
		g.eraseChars(csiParam(params, 0, 1))
	case 'S': // SU
		g.scrollUpRegion(csiParam(params, 0, 1))
	case 'T': // SD
		g.scrollDownRegion(csiParam(params, 0, 1))
	case 'r': // DECSTBM
		top := csiParam(params, 0, 1) - 1
		bot := csiParam(params, 1, g.cur.rows) - 1
		if top < 0 {
			top = 0
		}
		if bot >= g.cur.rows {
			bot = g.cur.rows - 1
		}
		if top < bot {
			g.cur.scrollTop, g.cur.scrollBot = top, bot
		} else {
			g.cur.scrollTop, g.cur.scrollBot = 0, g.cur.rows-1
		}
		g.cur.cursorRow, g.cur.cursorCol = 0, 0
	case 'm': // SGR
		g.handleSGR(params)
	case 's': // SCOSC (save cursor)
		g.cur.savedRow, g.cur.savedCol, g.cur.savedPen = g.cur.cursorRow, g.cur.cursorCol, g.pen
	case 'u': // SCORC (restore cursor)
		g.cur.cursorRow, g.cur.cursorCol, g.pen = g.cur.savedRow, g.cur.savedCol, g.cur.savedPen
	case 'h', 'l': // ANSI (non-private) mode set/reset: not modeled.
	case 'n': // DSR
		if csiParam(params, 0, 0) == 6 {
			g.reply(fmt.Sprintf("\x1b[%d;%dR", g.cur.cursorRow+1, g.cur.cursorCol+1))
		}
	case 'c': // DA
		g.reply("\x1b[?1;2c")
	case 't': // XTWINOPS: window/text-area size queries, not modeled.
	}

	g.cur.clampCursor()
}

func (g *Grid) handlePrivateMode(final byte, params ansi.Params) {
	set := final == 'h'
	if final != 'h' && final != 'l' {
		return
	}
	for _, p := range params {
		switch p.Param(0) {
		case 1: // DECCKM application cursor keys
			g.appCursor = set
		case 7: // DECAWM autowrap
			g.autowrap = set
		case 25: // DECTCEM cursor visibility
			g.cursorHidden = !set
		case 1000, 1001: // click/highlight tracking
			if set {
				g.mouseMode = 1000
			} else {
				g.mouseMode = 0
			}
		case 1002: // button-event tracking
			if set {
				g.mouseMode = 1002
			} else {
				g.mouseMode = 0
			}
		case 1003: // any-event tracking
			if set {
				g.mouseMode = 1003
			} else {
				g.mouseMode = 0
			}
		case 1006: // SGR extended mouse coordinates
			g.mouseSGR = set
		case 2004: // bracketed paste
			g.bracketPaste = set
		case 47, 1047: // alt screen (no cursor save)
			g.switchScreen(set)
		case 1049: // alt screen + cursor save/restore
			if set {
				g.main.savedRow, g.main.savedCol = g.main.cursorRow, g.main.cursorCol
				g.switchScreen(true)
				g.eraseInDisplay(2)
			} else {
				g.switchScreen(false)
				g.main.cursorRow, g.main.cursorCol = g.main.savedRow, g.main.savedCol
			}
		}
	}
}

func (g *Grid) switchScreen(alt bool) {
	if alt == g.isAlt {
		return
	}
	g.isAlt = alt
	if alt {
		g.cur = g.alt
	} else {
		g.cur = g.main
	}
}

func (g *Grid) insertLines(n int) {
	if g.cur.cursorRow < g.cur.scrollTop || g.cur.cursorRow > g.cur.scrollBot {
		return
	}
	top, bot := g.cur.cursorRow, g.cur.scrollBot
	cols := g.cur.cols
	for i := 0; i < n && top <= bot; i++ {
		copy(g.cur.cells[(top+1)*cols:(bot+1)*cols], g.cur.cells[top*cols:bot*cols])
		blankRow(g.cur.cells[top*cols : (top+1)*cols])
	}
}

func (g *Grid) deleteLines(n int) {
	if g.cur.cursorRow < g.cur.scrollTop || g.cur.cursorRow > g.cur.scrollBot {
		return
	}
	top, bot := g.cur.cursorRow, g.cur.scrollBot
	cols := g.cur.cols
	for i := 0; i < n && top <= bot; i++ {
		copy(g.cur.cells[top*cols:bot*cols], g.cur.cells[(top+1)*cols:(bot+1)*cols])
		blankRow(g.cur.cells[bot*cols : (bot+1)*cols])
	}
}

func (g *Grid) insertChars(n int) {
	cols := g.cur.cols
	row := g.cur.cells[g.cur.cursorRow*cols : (g.cur.cursorRow+1)*cols]
	col := g.cur.cursorCol
	if col+n > cols {
		n = cols - col
	}
	copy(row[col+n:], row[col:cols-n])
	for i := col; i < col+n; i++ {
		row[i] = snapshot.Cell{Content: " ", Width: 1}
	}
}

func (g *Grid) deleteChars(n int) {
	cols := g.cur.cols
	row := g.cur.cells[g.cur.cursorRow*cols : (g.cur.cursorRow+1)*cols]
	col := g.cur.cursorCol
	if col+n > cols {
		n = cols - col
	}
	copy(row[col:], row[col+n:])
	for i := cols - n; i < cols; i++ {
		row[i] = snapshot.Cell{Content: " ", Width: 1}
	}
}

func (g *Grid) eraseChars(n int) {
	cols := g.cur.cols
	row := g.cur.cells[g.cur.cursorRow*cols : (g.cur.cursorRow+1)*cols]
	for i := g.cur.cursorCol; i < g.cur.cursorCol+n && i < cols; i++ {
		row[i] = snapshot.Cell{Content: " ", Width: 1}
	}
}

func (g *Grid) handleSGR(params ansi.Params) {
	if len(params) == 0 {
		g.pen = pen{}
		return
	}
	for i := 0; i < len(params); i++ {
		v := params[i].Param(0)
		switch v {
		case 0:
			g.pen = pen{}
		case 1:
			g.pen.bold = true
		case 2:
			g.pen.faint = true
		case 3:
			g.pen.italic = true
		case 4:
			g.pen.underline = true
		case 5, 6:
			g.pen.blink = true
		case 7:
			g.pen.reverse = true
		case 8:
			g.pen.conceal = true
		case 9:
			g.pen.strikethrough = true
		case 22:
			g.pen.bold, g.pen.faint = false, false
		case 23:
			g.pen.italic = false
		case 24:
			g.pen.underline = false
		case 25:
			g.pen.blink = false
		case 27:
			g.pen.reverse = false
		case 28:
			g.pen.conceal = false
		case 29:
			g.pen.strikethrough = false
		case 30, 31, 32, 33, 34, 35, 36, 37:
			g.pen.fg = ansi.IndexedColor(uint8(v - 30))
		case 39:
			g.pen.fg = nil
		case 40, 41, 42, 43, 44, 45, 46, 47:
			g.pen.bg = ansi.IndexedColor(uint8(v - 40))
		case 49:
			g.pen.bg = nil
		case 90, 91, 92, 93, 94, 95, 96, 97:
			g.pen.fg = ansi.IndexedColor(uint8(v - 90 + 8))
		case 100, 101, 102, 103, 104, 105, 106, 107:
			g.pen.bg = ansi.IndexedColor(uint8(v - 100 + 8))
		case 38, 48:
			c, consumed := parseExtendedColor(params, i)
			if c != nil {
				if v == 38 {
					g.pen.fg = c
				} else {
					g.pen.bg = c
				}
			}
			i += consumed
		}
	}
}

// parseExtendedColor parses a 256-color (5;n) or truecolor (2;r;g;b) SGR
// sub-sequence starting at params[i+1]. It returns the color and how many
// extra parameter slots it consumed.
func parseExtendedColor(params ansi.Params, i int) (color.Color, int) {
	if i+1 >= len(params) {
		return nil, 0
	}
	switch params[i+1].Param(0) {
	case 5:
		if i+2 >= len(params) {
			return nil, 1
		}
		return ansi.IndexedColor(uint8(params[i+2].Param(0))), 2
	case 2:
		if i+4 >= len(params) {
			return nil, 1
		}
		r := uint8(params[i+2].Param(0))
		gg := uint8(params[i+3].Param(0))
		b := uint8(params[i+4].Param(0))
		return color.RGBA{R: r, G: gg, B: b, A: 0xff}, 4
	}
	return nil, 0
}

func (g *Grid) handleEsc(cmd ansi.Cmd) {
	switch cmd.Final() {
	case 'D': // IND
		g.newline()
	case 'E': // NEL
		g.newline()
		g.cur.cursorCol = 0
	case 'M': // RI (reverse index)
		if g.cur.cursorRow == g.cur.scrollTop {
			g.scrollDownRegion(1)
		} else if g.cur.cursorRow > 0 {
			g.cur.cursorRow--
		}
	case '7': // DECSC
		g.cur.savedRow, g.cur.savedCol, g.cur.savedPen = g.cur.cursorRow, g.cur.cursorCol, g.pen
	case '8': // DECRC
		g.cur.cursorRow, g.cur.cursorCol, g.pen = g.cur.savedRow, g.cur.savedCol, g.cur.savedPen
	case 'c': // RIS (full reset)
		g.reset()
	}
}

func (g *Grid) reset() {
	rows, cols := g.cur.rows, g.cur.cols
	g.main = newScreen(rows, cols)
	g.alt = newScreen(rows, cols)
	g.cur = g.main
	g.isAlt = false
	g.pen = pen{}
	g.autowrap = true
	g.pendingWrap = false
	g.appCursor = false
	g.cursorHidden = false
	g.bracketPaste = false
	g.mouseMode = 0
	g.mouseSGR = false
	g.title = ""
}

// handleDcs discards any DCS payload; the excluded Sixel passthrough feature
// routes through here and is dropped per scope.
func (g *Grid) handleDcs(cmd ansi.Cmd, params ansi.Params, data []byte) {}

func (g *Grid) handleOsc(cmd int, data []byte) {
	switch cmd {
	case 0, 1, 2:
		parts := bytes.SplitN(data, []byte{';'}, 2)
		if len(parts) == 2 {
			g.title = string(parts[1])
		}
	case 4, 10, 11, 12, 104, 110, 111, 112:
		// Palette/default-color queries and sets: not modeled, no-op.
	case 8, 52, 133:
		// Hyperlinks, clipboard, and shell-integration markers: excluded.
	}
}

// handleApc discards Kitty graphics and other APC payloads, which are
// excluded per scope.
func (g *Grid) handleApc(data []byte) {}

func (g *Grid) handlePm(data []byte) {}

func (g *Grid) handleSos(data []byte) {}
