package control

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/sakaisatoru/go_dab_radio/fsm"
	"github.com/sakaisatoru/go_dab_radio/player"
	"github.com/sakaisatoru/go_dab_radio/stations"
	"github.com/sakaisatoru/go_dab_radio/timer"
)

var ErrScanUnsupported = errors.New("control: source cannot scan")

// Sink is the audio output.
type Sink interface {
	VolumeUp(step int) int
	VolumeDown(step int) int
	SetVolume(v int) int
	SetVolumeDB(db float64) int
	Volume() int
	Pause() error
	Resume() error
}

// Scanner is a source that can search for stations.
type Scanner interface {
	Scan(ctx context.Context, progress func(msg, sub string)) error
}

// Remote is the AirPlay receiver's remote control.
type Remote interface {
	Play() error
	Pause() error
}

// Origin says who asked for a mode change.
type Origin int

const (
	FromUser Origin = iota
	FromNetwork
)

type Options struct {
	MenuTimeout    time.Duration
	StationConfirm time.Duration
	VolumeStep     int
}

func (o *Options) defaults() {
	if o.MenuTimeout <= 0 {
		o.MenuTimeout = 8 * time.Second
	}
	if o.StationConfirm <= 0 {
		o.StationConfirm = 4 * time.Second
	}
	if o.VolumeStep <= 0 {
		o.VolumeStep = 2
	}
}

// Dispatcher turns inputs into state changes.
type Dispatcher struct {
	rt     *Runtime
	src    player.Source
	sink   Sink
	list   *stations.List
	remote Remote
	opts   Options
	log    zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// menuMu serialises activate, select and exit.
	menuMu    sync.Mutex
	menuTimer atomic.Pointer[timer.PeriodicTask]

	// stationMu covers the whole read, decide, mutate of the station dial.
	stationMu    sync.Mutex
	stationTimer *timer.PeriodicTask
	steps        int
	base         int
	pending      stations.Station
}

// NewDispatcher wires the core to its collaborators. remote may be nil.
func NewDispatcher(rt *Runtime, src player.Source, sink Sink, list *stations.List, remote Remote, opts Options, log zerolog.Logger) *Dispatcher {
	opts.defaults()
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		rt:     rt,
		src:    src,
		sink:   sink,
		list:   list,
		remote: remote,
		opts:   opts,
		log:    log.With().Str("component", "dispatcher").Logger(),
		ctx:    ctx,
		cancel: cancel,
	}
	d.buildMenus()
	return d
}

// Start applies the restored volume and starts the restored station when
// in radio mode. An unknown station falls back to the first one.
func (d *Dispatcher) Start() error {
	var vol int
	d.rt.read(func(r *Runtime) { vol = r.volume })
	d.rt.setVolume(d.sink.SetVolume(vol))

	if d.rt.Machine.Mode() != fsm.Radio {
		return nil
	}
	name := d.rt.lastStationName()
	if _, err := d.list.Lookup(name); err != nil {
		st, err := d.list.Select(0)
		if err != nil {
			return err
		}
		d.log.Warn().Str("station", name).Str("instead", st.Name).Msg("saved station not found")
		name = st.Name
	}
	if err := d.src.Play(name); err != nil {
		return err
	}
	d.rt.setStation(d.src.Playing(), d.src.Ensemble())
	return nil
}

// Close stops the timers and waits for a scan in progress to give up.
func (d *Dispatcher) Close() {
	d.cancel()
	if t := d.menuTimer.Swap(nil); t != nil {
		t.Terminate()
	}
	d.stationMu.Lock()
	if d.stationTimer != nil {
		d.stationTimer.Terminate()
		d.stationTimer = nil
	}
	d.stationMu.Unlock()
	d.wg.Wait()
}

// Rotate handles delta detents on side.
func (d *Dispatcher) Rotate(side fsm.Side, delta int) {
	if delta == 0 {
		return
	}
	snap := d.rt.Machine.Snapshot()
	a := onRotate(snap.State, snap.Side, snap.Mode, side)
	d.log.Debug().Str("side", side.String()).Int("delta", delta).Str("action", a.String()).Msg("rotate")
	switch a {
	case dialStation:
		d.dialStation(delta)
	case dialVolume:
		d.dialVolume(delta)
	case navigateMenu:
		d.navigateMenu(side, delta)
	}
}

// Press handles a button press on side.
func (d *Dispatcher) Press(side fsm.Side) { d.press(side, onPress) }

// LongPress handles a held button on side.
func (d *Dispatcher) LongPress(side fsm.Side) { d.press(side, onLongPress) }

func (d *Dispatcher) press(side fsm.Side, table func(fsm.State, fsm.Side, fsm.Side) action) {
	d.menuMu.Lock()
	defer d.menuMu.Unlock()
	snap := d.rt.Machine.Snapshot()
	a := table(snap.State, snap.Side, side)
	d.log.Debug().Str("side", side.String()).Str("state", snap.State.String()).Str("action", a.String()).Msg("press")
	switch a {
	case activateMenu:
		d.activateMenuLocked(side)
	case selectMenu:
		d.selectMenuLocked(side)
	case exitMenu:
		d.exitMenuLocked(side)
	}
}

func (d *Dispatcher) dialVolume(delta int) {
	var v int
	if delta > 0 {
		v = d.sink.VolumeUp(d.opts.VolumeStep * delta)
	} else {
		v = d.sink.VolumeDown(d.opts.VolumeStep * -delta)
	}
	d.rt.setVolume(v)
}
