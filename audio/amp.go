package audio

import "github.com/stianeikeland/go-rpio/v4"

// AmpPin is the enable line of the AF amplifier. rpio must be open.
type AmpPin struct {
	pin rpio.Pin
}

func NewAmpPin(bcm int) *AmpPin {
	p := rpio.Pin(bcm)
	p.Output()
	p.Low()
	return &AmpPin{pin: p}
}

func (a *AmpPin) Enable()  { a.pin.High() }
func (a *AmpPin) Disable() { a.pin.Low() }
