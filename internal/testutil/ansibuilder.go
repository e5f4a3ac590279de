package testutil

import (
	"strconv"
	"strings"
)

// ANSIBuilder incrementally assembles a string of escape sequences and
// plain text, for feeding into FakeShell.SendOutput in tests.
type ANSIBuilder struct {
	b strings.Builder
}

// NewANSIBuilder returns an empty ANSIBuilder.
func NewANSIBuilder() *ANSIBuilder {
	return &ANSIBuilder{}
}

func (a *ANSIBuilder) csi(params string, final byte) *ANSIBuilder {
	a.b.WriteString("\x1b[")
	a.b.WriteString(params)
	a.b.WriteByte(final)
	return a
}

// countParam renders n as a CSI parameter, omitting it entirely when n is
// the default value of 1 (matching how real terminals emit these
// sequences).
func countParam(n int) string {
	if n == 1 {
		return ""
	}
	return strconv.Itoa(n)
}

// Text appends literal text verbatim.
func (a *ANSIBuilder) Text(s string) *ANSIBuilder {
	a.b.WriteString(s)
	return a
}

// Newline appends a CRLF.
func (a *ANSIBuilder) Newline() *ANSIBuilder {
	a.b.WriteString("\r\n")
	return a
}

// CursorHome moves the cursor to row 1, col 1.
func (a *ANSIBuilder) CursorHome() *ANSIBuilder {
	return a.csi("", 'H')
}

// CursorTo moves the cursor to the given 1-indexed row/col.
func (a *ANSIBuilder) CursorTo(row, col int) *ANSIBuilder {
	return a.csi(strconv.Itoa(row)+";"+strconv.Itoa(col), 'H')
}

// CursorUp moves the cursor up n rows.
func (a *ANSIBuilder) CursorUp(n int) *ANSIBuilder {
	return a.csi(countParam(n), 'A')
}

// CursorDown moves the cursor down n rows.
func (a *ANSIBuilder) CursorDown(n int) *ANSIBuilder {
	return a.csi(countParam(n), 'B')
}

// CursorForward moves the cursor forward n columns.
func (a *ANSIBuilder) CursorForward(n int) *ANSIBuilder {
	return a.csi(countParam(n), 'C')
}

// CursorBackward moves the cursor backward n columns.
func (a *ANSIBuilder) CursorBackward(n int) *ANSIBuilder {
	return a.csi(countParam(n), 'D')
}

// ClearScreen clears the entire screen (ED mode 2).
func (a *ANSIBuilder) ClearScreen() *ANSIBuilder {
	return a.csi("2", 'J')
}

// ClearToEndOfScreen clears from the cursor to the end of the screen
// (ED mode 0, the default).
func (a *ANSIBuilder) ClearToEndOfScreen() *ANSIBuilder {
	return a.csi("", 'J')
}

// ClearLine clears the entire current line (EL mode 2).
func (a *ANSIBuilder) ClearLine() *ANSIBuilder {
	return a.csi("2", 'K')
}

// ClearToEndOfLine clears from the cursor to the end of the line
// (EL mode 0, the default).
func (a *ANSIBuilder) ClearToEndOfLine() *ANSIBuilder {
	return a.csi("", 'K')
}

// Reset emits SGR 0, resetting all text attributes.
func (a *ANSIBuilder) Reset() *ANSIBuilder {
	return a.csi("0", 'm')
}

// Bold emits SGR 1.
func (a *ANSIBuilder) Bold() *ANSIBuilder {
	return a.csi("1", 'm')
}

// Italic emits SGR 3.
func (a *ANSIBuilder) Italic() *ANSIBuilder {
	return a.csi("3", 'm')
}

// Underline emits SGR 4.
func (a *ANSIBuilder) Underline() *ANSIBuilder {
	return a.csi("4", 'm')
}

// FgColor emits a raw SGR foreground code (e.g. 31 for red).
func (a *ANSIBuilder) FgColor(code int) *ANSIBuilder {
	return a.csi(strconv.Itoa(code), 'm')
}

// BgColor emits a raw SGR background code (e.g. 44 for blue).
func (a *ANSIBuilder) BgColor(code int) *ANSIBuilder {
	return a.csi(strconv.Itoa(code), 'm')
}

// Fg256 sets an indexed (256-color) foreground.
func (a *ANSIBuilder) Fg256(n int) *ANSIBuilder {
	return a.csi("38;5;"+strconv.Itoa(n), 'm')
}

// Bg256 sets an indexed (256-color) background.
func (a *ANSIBuilder) Bg256(n int) *ANSIBuilder {
	return a.csi("48;5;"+strconv.Itoa(n), 'm')
}

// FgRGB sets a truecolor foreground.
func (a *ANSIBuilder) FgRGB(r, g, b int) *ANSIBuilder {
	return a.csi("38;2;"+strconv.Itoa(r)+";"+strconv.Itoa(g)+";"+strconv.Itoa(b), 'm')
}

// BgRGB sets a truecolor background.
func (a *ANSIBuilder) BgRGB(r, g, b int) *ANSIBuilder {
	return a.csi("48;2;"+strconv.Itoa(r)+";"+strconv.Itoa(g)+";"+strconv.Itoa(b), 'm')
}

// AltScreen switches to the alternate screen buffer (DEC private mode 1049).
func (a *ANSIBuilder) AltScreen() *ANSIBuilder {
	return a.csi("?1049", 'h')
}

// MainScreen switches back to the main screen buffer.
func (a *ANSIBuilder) MainScreen() *ANSIBuilder {
	return a.csi("?1049", 'l')
}

// ShowCursor makes the cursor visible (DEC private mode 25).
func (a *ANSIBuilder) ShowCursor() *ANSIBuilder {
	return a.csi("?25", 'h')
}

// HideCursor makes the cursor invisible.
func (a *ANSIBuilder) HideCursor() *ANSIBuilder {
	return a.csi("?25", 'l')
}

// EnableBracketedPaste turns on bracketed paste mode (DEC private mode 2004).
func (a *ANSIBuilder) EnableBracketedPaste() *ANSIBuilder {
	return a.csi("?2004", 'h')
}

// DisableBracketedPaste turns off bracketed paste mode.
func (a *ANSIBuilder) DisableBracketedPaste() *ANSIBuilder {
	return a.csi("?2004", 'l')
}

// OSCTitle emits an OSC 0 window-title change, terminated with BEL.
func (a *ANSIBuilder) OSCTitle(title string) *ANSIBuilder {
	a.b.WriteString("\x1b]0;")
	a.b.WriteString(title)
	a.b.WriteString("\x07")
	return a
}

// ScrollRegion sets the scrolling region (DECSTBM) to rows top..bottom.
func (a *ANSIBuilder) ScrollRegion(top, bottom int) *ANSIBuilder {
	return a.csi(strconv.Itoa(top)+";"+strconv.Itoa(bottom), 'r')
}

// ScrollUp scrolls the scroll region up n lines (SU).
func (a *ANSIBuilder) ScrollUp(n int) *ANSIBuilder {
	return a.csi(countParam(n), 'S')
}

// ScrollDown scrolls the scroll region down n lines (SD).
func (a *ANSIBuilder) ScrollDown(n int) *ANSIBuilder {
	return a.csi(countParam(n), 'T')
}

// Clear discards everything built so far.
func (a *ANSIBuilder) Clear() *ANSIBuilder {
	a.b.Reset()
	return a
}

// String returns the accumulated sequence.
func (a *ANSIBuilder) String() string {
	return a.b.String()
}

// Bytes returns the accumulated sequence as a byte slice.
func (a *ANSIBuilder) Bytes() []byte {
	return []byte(a.b.String())
}
