// Package lcd drives the AQM0802A 8x2 character LCD on the i2c bus and
// draws two text lines on it with the top line scrolling.
package lcd

import (
	"errors"
	"time"

	"github.com/davecheney/i2c"
	"github.com/rs/zerolog"
)

const (
	Width  = 8
	Height = 2

	DefaultAddr = 0x3e
)

// Bus is the i2c device the controller sits on.
type Bus interface {
	Write(b []byte) (int, error)
}

type AQM0802A struct {
	bus Bus
	log zerolog.Logger
}

// Open opens the controller on i2c bus number bus.
func Open(addr uint8, bus int, log zerolog.Logger) (*AQM0802A, func() error, error) {
	dev, err := i2c.New(addr, bus)
	if err != nil {
		return nil, nil, err
	}
	return New(dev, log), dev.Close, nil
}

func New(bus Bus, log zerolog.Logger) *AQM0802A {
	return &AQM0802A{bus: bus, log: log.With().Str("component", "lcd").Logger()}
}

func (d *AQM0802A) command(c byte) error {
	_, err := d.bus.Write([]byte{0x00, c})
	return err
}

func (d *AQM0802A) Configure() error {
	// power on 後の推奨待ち時間
	time.Sleep(40 * time.Millisecond)

	var errs []error
	for _, r := range []byte{0x38, 0x39, 0x14, 0x70, 0x56, 0x6c, 0x38, 0x01, 0x0c} {
		if err := d.command(r); err != nil {
			d.log.Error().Err(err).Hex("cmd", []byte{r}).Msg("init")
			errs = append(errs, err)
		}
		if r == 0x6c {
			// follower control
			time.Sleep(300 * time.Millisecond)
		} else {
			time.Sleep(27 * time.Microsecond)
		}
	}
	time.Sleep(2 * time.Millisecond)
	return errors.Join(errs...)
}

func (d *AQM0802A) Clear() error {
	err := d.command(0x01)
	time.Sleep(time.Millisecond)
	return errors.Join(err, d.command(0x02)) // return home
}

func (d *AQM0802A) DisplayOff() error { return d.command(0x08) }
func (d *AQM0802A) DisplayOn() error  { return d.command(0x0c) }

// PrintWithPos writes s at column x of row y.
func (d *AQM0802A) PrintWithPos(x, y uint8, s []byte) error {
	x &= 0x0f
	y &= 0x01
	if err := d.command(0x80 + y*0x40 + x); err != nil {
		return err
	}
	time.Sleep(30 * time.Microsecond)
	_, err := d.bus.Write(append([]byte{0x40}, s...))
	return err
}
