package control

import (
	"github.com/sakaisatoru/go_dab_radio/fsm"
	"github.com/sakaisatoru/go_dab_radio/menu"
	"github.com/sakaisatoru/go_dab_radio/timer"
)

func (d *Dispatcher) activateMenuLocked(side fsm.Side) {
	ev := fsm.ActivateLeftMenu
	if side == fsm.Right {
		ev = fsm.ActivateRightMenu
	}
	if ok, err := d.rt.Machine.FireIf(fsm.Playing, ev); !ok || err != nil {
		return
	}
	if it, ok := d.rt.menuFor(side).First(); ok {
		d.log.Info().Str("side", side.String()).Str("item", it.ID).Msg("menu activated")
	}

	var t *timer.PeriodicTask
	t = timer.New("menu_timer", d.opts.MenuTimeout, func() { d.exitIfCurrent(t, side) }, d.log)
	if old := d.menuTimer.Swap(t); old != nil {
		old.Terminate()
	}
	t.Run()
}

// exitIfCurrent is the menu timer expiry. A timer replaced while its
// callback waited for the lock does nothing.
func (d *Dispatcher) exitIfCurrent(t *timer.PeriodicTask, side fsm.Side) {
	d.menuMu.Lock()
	defer d.menuMu.Unlock()
	if d.menuTimer.Load() != t {
		return
	}
	d.exitMenuLocked(side)
}

// selectMenuLocked runs the item under the cursor and, from
// <side>_menu_activated, enters selecting_a_menu. The action runs first so
// it sees the state it was chosen in. Once selecting, the state stays.
func (d *Dispatcher) selectMenuLocked(side fsm.Side) {
	m := d.rt.menuFor(side)
	if it, ok := m.Current(); ok {
		if err := m.RunAction(it); err != nil {
			d.log.Warn().Err(err).Str("item", it.ID).Msg("menu action")
		}
	}
	ev, from := fsm.LeftMenuSelection, fsm.LeftMenuActivated
	if side == fsm.Right {
		ev, from = fsm.RightMenuSelection, fsm.RightMenuActivated
	}
	// an action may have moved the machine on (scan), then there is
	// nothing to select
	_, _ = d.rt.Machine.FireIf(from, ev)
	d.resetMenuTimer()
}

// ExitMenu leaves side's menu back to playing. It is what a long press and
// the inactivity timer do, and repeated calls once playing are no-ops.
func (d *Dispatcher) ExitMenu(side fsm.Side) {
	d.menuMu.Lock()
	defer d.menuMu.Unlock()
	d.exitMenuLocked(side)
}

func (d *Dispatcher) exitMenuLocked(side fsm.Side) {
	snap := d.rt.Machine.Snapshot()
	var ev fsm.Event
	switch {
	case snap.State == fsm.Playing:
		// bounce
		return
	case snap.State == fsm.LeftMenuActivated && side == fsm.Left:
		ev = fsm.LeftMenuTimeout
	case snap.State == fsm.RightMenuActivated && side == fsm.Right:
		ev = fsm.RightMenuTimeout
	case snap.State == fsm.SelectingAMenu && snap.Side == side:
		ev = fsm.ExitLeftMenu
		if side == fsm.Right {
			ev = fsm.ExitRightMenu
		}
	case snap.State == fsm.ScanningForStations:
		// the scan leaves the menu itself when done
		d.terminateMenuTimer()
		return
	default:
		d.log.Warn().Str("side", side.String()).Str("state", snap.State.String()).Msg("exit called in wrong state")
		return
	}
	d.terminateMenuTimer()
	if err := d.rt.Machine.Fire(ev); err != nil {
		return
	}
	d.log.Info().Str("side", side.String()).Msg("menu exited")
}

func (d *Dispatcher) navigateMenu(side fsm.Side, delta int) {
	m := d.rt.menuFor(side)
	step := m.Next
	if delta < 0 {
		step, delta = m.Previous, -delta
	}
	for i := 0; i < delta; i++ {
		step()
	}
	d.resetMenuTimer()
}

func (d *Dispatcher) resetMenuTimer() {
	if t := d.menuTimer.Load(); t != nil {
		t.Reset()
	}
}

func (d *Dispatcher) terminateMenuTimer() {
	if t := d.menuTimer.Swap(nil); t != nil {
		t.Terminate()
	}
}

// buildMenus fills the two menus. Left holds the display toggles, right the
// radio functions.
func (d *Dispatcher) buildMenus() {
	rt := d.rt
	flag := func(get func(r *Runtime) bool) func() string {
		return func() string {
			var b bool
			rt.read(func(r *Runtime) { b = get(r) })
			return menu.OnOff(b)
		}
	}
	toggle := func(set func(r *Runtime)) func() error {
		return func() error { rt.update(set); return nil }
	}
	visual := func(name string) func() error {
		return toggle(func(r *Runtime) { r.visualiser, r.visualiserEnabled = name, true })
	}
	showing := func(name string) func(r *Runtime) bool {
		return func(r *Runtime) bool { return r.visualiserEnabled && r.visualiser == name }
	}

	rt.Left.
		Add("visualiser", "Visualiser", "").
		Action(toggle(func(r *Runtime) { r.visualiserEnabled = !r.visualiserEnabled })).
		Refresh(flag(func(r *Runtime) bool { return r.visualiserEnabled })).
		Add("waveform", "Waveform", "").Action(visual(Waveform)).Refresh(flag(showing(Waveform))).
		Add("equaliser", "Equaliser", "").Action(visual(Equaliser)).Refresh(flag(showing(Equaliser))).
		Add("levels", "Levels", "").
		Action(toggle(func(r *Runtime) { r.levelsEnabled = !r.levelsEnabled })).
		Refresh(flag(func(r *Runtime) bool { return r.levelsEnabled })).
		Add("pulse_led", "Pulse LED", "").
		Action(toggle(func(r *Runtime) { r.pulseLeft = !r.pulseLeft })).
		Refresh(flag(func(r *Runtime) bool { return r.pulseLeft }))

	rt.Right.
		Add("scan", "Scan", "").Action(d.startScan).
		Add("mode", "Mode", "").
		Action(func() error {
			next := fsm.AirPlay
			if rt.Machine.Mode() == fsm.AirPlay {
				next = fsm.Radio
			}
			d.SwitchMode(next, FromUser)
			return nil
		}).
		Refresh(func() string {
			if rt.Machine.Mode() == fsm.AirPlay {
				return "AirPlay"
			}
			return "Radio"
		}).
		Add("station", "Station", "").
		Action(toggle(func(r *Runtime) { r.stationEnabled = !r.stationEnabled })).
		Refresh(flag(func(r *Runtime) bool { return r.stationEnabled }))
}

// SyncMenus recomputes the menu state texts, after Restore for one.
func (d *Dispatcher) SyncMenus() {
	d.rt.Left.Sync()
	d.rt.Right.Sync()
}
