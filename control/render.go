package control

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sakaisatoru/go_dab_radio/fsm"
	"github.com/sakaisatoru/go_dab_radio/logparse"
)

// volumeShown is how long the bottom line shows the volume after a change.
const volumeShown = 2 * time.Second

var colonChar = [2]byte{' ', ':'}

// Screen is the two line character display.
type Screen interface {
	Draw(top, bottom string, scroll bool) error
}

// Poller hands out the metadata seen since the last call.
type Poller interface {
	Poll() logparse.Updates
}

// Frame is what one render pass puts on the screen.
type Frame struct {
	Top    string
	Bottom string
	Scroll bool
}

// Compose lays snap out on two lines. colon selects the blink phase of the
// clock.
func Compose(snap Snapshot, now time.Time, colon bool) Frame {
	switch snap.State {
	case fsm.ScanningForStations:
		return Frame{Top: snap.ScanMsg, Bottom: snap.ScanSub, Scroll: true}
	case fsm.LeftMenuActivated, fsm.RightMenuActivated, fsm.SelectingAMenu:
		return Frame{Top: snap.MenuItem, Bottom: menuLabel(snap.Side), Scroll: true}
	case fsm.SelectingAStation:
		// no scrolling while dialling
		return Frame{Top: snap.Station, Bottom: snap.Ensemble}
	}

	f := Frame{Scroll: true}
	switch {
	case snap.Mode == fsm.AirPlay:
		var parts []string
		for _, s := range []string{snap.Artist, snap.Track} {
			if s = strings.TrimSpace(s); s != "" {
				parts = append(parts, s)
			}
		}
		f.Top = strings.Join(parts, " - ")
		if f.Top == "" {
			f.Top = "AirPlay"
		}
	case !snap.StationEnabled && snap.PAD != "":
		f.Top = snap.PAD
	case snap.Message == ShowPAD && snap.PAD != "":
		f.Top = snap.PAD
	default:
		f.Top = snap.Station
	}

	if !snap.VolumeAt.IsZero() && now.Sub(snap.VolumeAt) < volumeShown {
		f.Bottom = fmt.Sprintf("Vol %3d", snap.Volume)
		return f
	}
	c := 0
	if colon {
		c = 1
	}
	f.Bottom = fmt.Sprintf("%s %02d%c%02d", tag(snap), now.Hour(), colonChar[c], now.Minute())
	return f
}

// tag is the two character source indicator left of the clock.
func tag(snap Snapshot) string {
	switch {
	case snap.Mode == fsm.AirPlay:
		return "AP"
	case !snap.HaveSignal:
		return "--"
	case snap.DABType == "DAB+":
		return "D+"
	case snap.DABType == "DAB":
		return "D "
	}
	return "  "
}

func menuLabel(side fsm.Side) string {
	if side == fsm.Right {
		return "  Menu >"
	}
	return "< Menu"
}

type RenderOptions struct {
	Frame       time.Duration
	MessageFlip time.Duration
}

// Renderer is the frame loop: every frame it folds new metadata into the
// runtime and draws a snapshot.
type Renderer struct {
	rt     *Runtime
	src    Poller
	screen Screen
	opts   RenderOptions
	log    zerolog.Logger
	now    func() time.Time

	colon   bool
	flipped time.Time
}

func NewRenderer(rt *Runtime, src Poller, screen Screen, opts RenderOptions, log zerolog.Logger) *Renderer {
	if opts.Frame <= 0 {
		opts.Frame = 500 * time.Millisecond
	}
	if opts.MessageFlip <= 0 {
		opts.MessageFlip = 10 * time.Second
	}
	return &Renderer{
		rt:     rt,
		src:    src,
		screen: screen,
		opts:   opts,
		log:    log.With().Str("component", "render").Logger(),
		now:    time.Now,
	}
}

// Frame renders once.
func (r *Renderer) Frame() error {
	now := r.now()
	if r.src != nil {
		r.rt.ApplyUpdates(r.src.Poll())
	}
	if r.flipped.IsZero() {
		r.flipped = now
	} else if now.Sub(r.flipped) >= r.opts.MessageFlip {
		r.rt.NextMessage()
		r.flipped = now
	}
	r.colon = !r.colon
	f := Compose(r.rt.Snapshot(), now, r.colon)
	if r.screen == nil {
		return nil
	}
	return r.screen.Draw(f.Top, f.Bottom, f.Scroll)
}

// Run renders a frame per tick until ctx is done.
func (r *Renderer) Run(ctx context.Context) error {
	tick := time.NewTicker(r.opts.Frame)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			if err := r.Frame(); err != nil {
				r.log.Warn().Err(err).Msg("draw")
			}
		}
	}
}
