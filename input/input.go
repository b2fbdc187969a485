// Package input reads the two rotary encoders with push buttons and turns
// them into rotate and press events for the control core.
//
// Two backends exist: RPIO polls the pins through /dev/gpiomem the way the
// radio always has, Cdev takes edge events from the GPIO character device
// and leaves button debounce to the kernel.
package input

import (
	"context"
	"time"

	"github.com/sakaisatoru/go_dab_radio/fsm"
)

// Event is one input on a side: a rotation by Delta detents, or a press.
// Long marks a press held for the long press time.
type Event struct {
	Side  fsm.Side
	Delta int
	Press bool
	Long  bool
}

// Pins are BCM numbers (line offsets for Cdev) of one encoder.
type Pins struct {
	A      int `yaml:"a"`
	B      int `yaml:"b"`
	Button int `yaml:"button"`
}

type Options struct {
	PollInterval   time.Duration // RPIO only
	PressWidth     int           // polls a button must stay down, RPIO only
	Debounce       time.Duration // Cdev only
	LongPress      time.Duration // hold time of a long press
	StepsPerDetent int
}

const (
	DefaultPollInterval   = 5 * time.Millisecond
	DefaultPressWidth     = 5
	DefaultDebounce       = 20 * time.Millisecond
	DefaultLongPress      = 800 * time.Millisecond
	DefaultStepsPerDetent = 4
)

func (o *Options) defaults() {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.PressWidth <= 0 {
		o.PressWidth = DefaultPressWidth
	}
	if o.Debounce <= 0 {
		o.Debounce = DefaultDebounce
	}
	if o.LongPress <= 0 {
		o.LongPress = DefaultLongPress
	}
	if o.StepsPerDetent <= 0 {
		o.StepsPerDetent = DefaultStepsPerDetent
	}
}

// Source is an input backend. Run sends events to out until ctx is done.
type Source interface {
	Run(ctx context.Context, out chan<- Event) error
}

type Handler interface {
	Rotate(side fsm.Side, delta int)
	Press(side fsm.Side)
	LongPress(side fsm.Side)
}

// Dispatch hands events to h one at a time until ctx is done or events is
// closed.
func Dispatch(ctx context.Context, events <-chan Event, h Handler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch {
			case ev.Press && ev.Long:
				h.LongPress(ev.Side)
			case ev.Press:
				h.Press(ev.Side)
			case ev.Delta != 0:
				h.Rotate(ev.Side, ev.Delta)
			}
		}
	}
}

func send(ctx context.Context, out chan<- Event, ev Event) {
	select {
	case out <- ev:
	case <-ctx.Done():
	}
}
