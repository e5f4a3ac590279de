package main

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/termcoord/termcoord/pkg/termcoord"
)

func runLocal(shell string) error {
	cols, rows := termSize()
	session, err := termcoord.DialLocalWith(
		termcoord.LocalOptions{Shell: shell},
		termcoord.WithSize(cols, rows),
	)
	if err != nil {
		return fmt.Errorf("dial local: %w", err)
	}
	return drive(session)
}

func runSSH(addr, user, keyPath, password string, useAgent bool) error {
	cols, rows := termSize()
	session, err := termcoord.DialRemote(termcoord.RemoteOptions{
		Addr:     addr,
		User:     user,
		KeyPath:  keyPath,
		Password: password,
		UseAgent: useAgent,
	}, termcoord.WithSize(cols, rows))
	if err != nil {
		return fmt.Errorf("dial remote: %w", err)
	}
	return drive(session)
}

func termSize() (cols, rows int) {
	if w, h, err := term.GetSize(int(os.Stdin.Fd())); err == nil {
		return w, h
	}
	return 80, 24
}

// drive puts the controlling terminal into raw mode, relays stdin to the
// session, watches for SIGWINCH to propagate resizes, and repaints the
// terminal on every published snapshot. The repaint loop has no end
// condition: the Wakeup channel is never closed, so drive keeps waiting
// after the shell has exited.
func drive(session *termcoord.Session) error {
	defer session.Close()

	fd := int(os.Stdin.Fd())
	prevState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("enter raw mode: %w", err)
	}
	defer func() { _ = term.Restore(fd, prevState) }()

	winch := make(chan os.Signal, 1)
	signal.Notify(winch, syscall.SIGWINCH)
	defer signal.Stop(winch)

	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := os.Stdin.Read(buf)
			if n > 0 {
				_, _ = session.Write(buf[:n])
			}
			if err != nil {
				return
			}
		}
	}()

	go func() {
		for range winch {
			cols, rows := termSize()
			session.Resize(termcoord.TerminalSize{Rows: rows, Cols: cols})
		}
	}()

	for range session.Wakeup() {
		snap := session.CurrentSnapshot()
		render(os.Stdout, snap)
	}
	return nil
}

// render repaints the whole screen: it is a demo, not a production
// differential renderer, so it trades efficiency for a direct mapping
// from Snapshot to terminal output.
func render(w io.Writer, snap termcoord.Snapshot) {
	var b strings.Builder
	b.WriteString("\x1b[H")

	var lastStyle termcoord.Style
	first := true
	for row := 0; row < snap.Bounds.Rows; row++ {
		if row > 0 {
			b.WriteString("\r\n")
		}
		for col := 0; col < snap.Bounds.Cols; col++ {
			cell := snap.At(row, col)
			if first || cell.Style != lastStyle {
				writeSGR(&b, cell.Style)
				lastStyle = cell.Style
				first = false
			}
			if cell.Content == "" {
				b.WriteString(" ")
			} else {
				b.WriteString(cell.Content)
			}
		}
	}
	b.WriteString("\x1b[0m")

	if snap.Cursor.Hidden {
		b.WriteString("\x1b[?25l")
	} else {
		fmt.Fprintf(&b, "\x1b[%d;%dH\x1b[?25h", snap.Cursor.Row+1, snap.Cursor.Col+1)
	}

	_, _ = io.WriteString(w, b.String())
}

// writeSGR emits a full SGR reset-and-rebuild for st: simpler and less
// efficient than tracking diffs against the previous style, but a
// demo client repaints the whole frame anyway.
func writeSGR(b *strings.Builder, st termcoord.Style) {
	b.WriteString("\x1b[0")
	if st.Bold {
		b.WriteString(";1")
	}
	if st.Faint {
		b.WriteString(";2")
	}
	if st.Italic {
		b.WriteString(";3")
	}
	if st.Underline {
		b.WriteString(";4")
	}
	if st.Blink {
		b.WriteString(";5")
	}
	if st.Reverse {
		b.WriteString(";7")
	}
	if st.Conceal {
		b.WriteString(";8")
	}
	if st.Strikethrough {
		b.WriteString(";9")
	}
	if r, g, bl, ok := rgb(st.Fg); ok {
		fmt.Fprintf(b, ";38;2;%d;%d;%d", r, g, bl)
	}
	if r, g, bl, ok := rgb(st.Bg); ok {
		fmt.Fprintf(b, ";48;2;%d;%d;%d", r, g, bl)
	}
	b.WriteString("m")
}

func rgb(c color.Color) (r, g, b uint8, ok bool) {
	if c == nil {
		return 0, 0, 0, false
	}
	cr, cg, cb, _ := c.RGBA()
	return uint8(cr >> 8), uint8(cg >> 8), uint8(cb >> 8), true
}
