package input

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/stianeikeland/go-rpio/v4"

	"github.com/sakaisatoru/go_dab_radio/fsm"
)

type rpioChannel struct {
	side   fsm.Side
	a, b   rpio.Pin
	btn    rpio.Pin
	dec    Decoder
	button Button
}

// RPIO polls both encoders. rpio.Open must have been called.
type RPIO struct {
	log      zerolog.Logger
	interval time.Duration
	channels []*rpioChannel
}

func NewRPIO(left, right Pins, opts Options, log zerolog.Logger) *RPIO {
	opts.defaults()
	r := &RPIO{
		log:      log.With().Str("component", "input").Str("driver", "rpio").Logger(),
		interval: opts.PollInterval,
	}
	for _, c := range []struct {
		side fsm.Side
		pins Pins
	}{{fsm.Left, left}, {fsm.Right, right}} {
		ch := &rpioChannel{
			side:   c.side,
			a:      rpio.Pin(c.pins.A),
			b:      rpio.Pin(c.pins.B),
			btn:    rpio.Pin(c.pins.Button),
			dec:    Decoder{PerDetent: opts.StepsPerDetent},
			button: Button{Width: opts.PressWidth, Long: int(opts.LongPress / opts.PollInterval)},
		}
		for _, p := range []rpio.Pin{ch.a, ch.b, ch.btn} {
			p.Input()
			p.PullUp()
		}
		r.channels = append(r.channels, ch)
	}
	return r
}

func (r *RPIO) Run(ctx context.Context, out chan<- Event) error {
	r.log.Info().Dur("interval", r.interval).Msg("input polling starts")
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
		for _, ch := range r.channels {
			if d := ch.dec.Update(ch.a.Read() == rpio.High, ch.b.Read() == rpio.High); d != 0 {
				send(ctx, out, Event{Side: ch.side, Delta: d})
			}
			// buttons pull the line low
			if p := ch.button.Update(ch.btn.Read() == rpio.Low); p != NoPress {
				r.log.Debug().Str("side", ch.side.String()).Bool("long", p == LongPress).Msg("press")
				send(ctx, out, Event{Side: ch.side, Press: true, Long: p == LongPress})
			}
		}
	}
}
