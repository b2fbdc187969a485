package input

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/warthog618/go-gpiocdev"

	"github.com/sakaisatoru/go_dab_radio/fsm"
)

// Cdev takes edge events from a GPIO chip.
type Cdev struct {
	chip  string
	left  Pins
	right Pins
	opts  Options
	log   zerolog.Logger
}

func NewCdev(chip string, left, right Pins, opts Options, log zerolog.Logger) *Cdev {
	opts.defaults()
	if chip == "" {
		chip = "gpiochip0"
	}
	return &Cdev{
		chip:  chip,
		left:  left,
		right: right,
		opts:  opts,
		log:   log.With().Str("component", "input").Str("driver", "cdev").Logger(),
	}
}

// cdevEncoder follows the A/B levels from the edges it is given.
type cdevEncoder struct {
	side fsm.Side
	emit func(Event)

	mu   sync.Mutex
	a, b bool
	dec  Decoder
}

func (e *cdevEncoder) prime(a, b bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.a, e.b = a, b
	e.dec.Update(a, b)
}

func (e *cdevEncoder) edge(onA bool, evt gpiocdev.LineEvent) {
	rising := evt.Type == gpiocdev.LineEventRisingEdge
	e.mu.Lock()
	if onA {
		e.a = rising
	} else {
		e.b = rising
	}
	d := e.dec.Update(e.a, e.b)
	e.mu.Unlock()
	if d != 0 {
		e.emit(Event{Side: e.side, Delta: d})
	}
}

// cdevButton times a button from its debounced edges.
type cdevButton struct {
	side fsm.Side
	long time.Duration
	emit func(Event)

	mu     sync.Mutex
	down   bool
	downAt time.Duration
}

func (b *cdevButton) edge(evt gpiocdev.LineEvent) {
	b.mu.Lock()
	// pressed pulls the line low
	if evt.Type == gpiocdev.LineEventFallingEdge {
		b.down, b.downAt = true, evt.Timestamp
		b.mu.Unlock()
		return
	}
	if !b.down {
		b.mu.Unlock()
		return
	}
	b.down = false
	long := evt.Timestamp-b.downAt >= b.long
	b.mu.Unlock()
	b.emit(Event{Side: b.side, Press: true, Long: long})
}

func (c *Cdev) Run(ctx context.Context, out chan<- Event) error {
	chip, err := gpiocdev.NewChip(c.chip)
	if err != nil {
		return fmt.Errorf("input: open %s: %w", c.chip, err)
	}
	defer chip.Close()

	emit := func(ev Event) { send(ctx, out, ev) }

	var lines []*gpiocdev.Line
	defer func() {
		for _, l := range lines {
			l.Close()
		}
	}()
	request := func(offset int, opts ...gpiocdev.LineReqOption) (*gpiocdev.Line, error) {
		opts = append([]gpiocdev.LineReqOption{gpiocdev.AsInput, gpiocdev.WithPullUp}, opts...)
		l, err := chip.RequestLine(offset, opts...)
		if err != nil {
			return nil, fmt.Errorf("input: request line %d: %w", offset, err)
		}
		lines = append(lines, l)
		return l, nil
	}

	for _, s := range []struct {
		side fsm.Side
		pins Pins
	}{{fsm.Left, c.left}, {fsm.Right, c.right}} {
		side := s.side
		enc := &cdevEncoder{side: side, emit: emit, dec: Decoder{PerDetent: c.opts.StepsPerDetent}}
		la, err := request(s.pins.A, gpiocdev.WithBothEdges,
			gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) { enc.edge(true, evt) }))
		if err != nil {
			return err
		}
		lb, err := request(s.pins.B, gpiocdev.WithBothEdges,
			gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) { enc.edge(false, evt) }))
		if err != nil {
			return err
		}
		va, errA := la.Value()
		vb, errB := lb.Value()
		if err := errors.Join(errA, errB); err != nil {
			return fmt.Errorf("input: read encoder: %w", err)
		}
		enc.prime(va == 1, vb == 1)

		btn := &cdevButton{side: side, long: c.opts.LongPress, emit: emit}
		if _, err := request(s.pins.Button, gpiocdev.WithBothEdges,
			gpiocdev.WithDebounce(c.opts.Debounce),
			gpiocdev.WithEventHandler(btn.edge)); err != nil {
			return err
		}
	}

	c.log.Info().Str("chip", c.chip).Msg("input events start")
	<-ctx.Done()
	return nil
}
