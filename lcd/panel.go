package lcd

import (
	"time"

	"github.com/stianeikeland/go-rpio/v4"
)

// Panel is the reset and backlight wiring of the module. rpio must be open.
type Panel struct {
	reset     rpio.Pin
	backlight rpio.Pin
}

func NewPanel(resetPin, backlightPin int) *Panel {
	p := &Panel{reset: rpio.Pin(resetPin), backlight: rpio.Pin(backlightPin)}
	for _, pin := range []rpio.Pin{p.reset, p.backlight} {
		pin.Output()
		pin.Low()
	}
	return p
}

func (p *Panel) Reset() {
	p.reset.Low()
	time.Sleep(100 * time.Millisecond)
	p.reset.High()
}

func (p *Panel) Backlight(on bool) {
	if on {
		p.backlight.High()
	} else {
		p.backlight.Low()
	}
}
