package lcd

import (
	"strings"
	"sync"
)

// Display is anything that can put characters at a position.
type Display interface {
	PrintWithPos(x, y uint8, s []byte) error
}

// Screen keeps what is on the display and scrolls a top line that does not
// fit. Rows are only rewritten when their content changes.
type Screen struct {
	d     Display
	width int

	mu     sync.Mutex
	top    string
	pos    int
	shown  [Height]string
	primed [Height]bool
}

func NewScreen(d Display, width int) *Screen {
	if width <= 0 {
		width = Width
	}
	return &Screen{d: d, width: width}
}

// Draw shows top and bottom. A top line longer than the width scrolls one
// character per call when scroll is set and is cut otherwise.
func (s *Screen) Draw(top, bottom string, scroll bool) error {
	top, bottom = ascii(top), ascii(bottom)
	s.mu.Lock()
	defer s.mu.Unlock()
	if top != s.top {
		s.top, s.pos = top, 0
	}

	var row string
	switch {
	case len(top) <= s.width:
		row = top
	case !scroll:
		row = top[:s.width]
	default:
		buf := top + "  " + top
		row = buf[s.pos : s.pos+s.width]
		s.pos++
		if s.pos >= len(top)+2 {
			s.pos = 0
		}
	}
	if err := s.put(0, row); err != nil {
		return err
	}
	return s.put(1, bottom)
}

// Rows returns what was last written.
func (s *Screen) Rows() [Height]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shown
}

func (s *Screen) put(y int, text string) error {
	text = fit(text, s.width)
	if s.primed[y] && s.shown[y] == text {
		return nil
	}
	if err := s.d.PrintWithPos(0, uint8(y), []byte(text)); err != nil {
		return err
	}
	s.shown[y], s.primed[y] = text, true
	return nil
}

func fit(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}

// ascii replaces what the character generator cannot show.
func ascii(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e {
			return '?'
		}
		return r
	}, s)
}
