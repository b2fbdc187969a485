package control

import (
	"github.com/sakaisatoru/go_dab_radio/fsm"
	"github.com/sakaisatoru/go_dab_radio/timer"
)

// dialStation moves the pending station. The first turn enters
// selecting_a_station and arms the confirm timer; every turn restarts it.
// The pending index is the steps turned since entering plus the index of
// the playing station, modulo the station count.
func (d *Dispatcher) dialStation(delta int) {
	d.stationMu.Lock()
	defer d.stationMu.Unlock()

	if ok, _ := d.rt.Machine.FireIf(fsm.Playing, fsm.ToggleSelectStation); ok {
		d.steps = 0
		d.base = d.list.Index(d.src.Playing())
		var t *timer.PeriodicTask
		t = timer.New("station_select_timer", d.opts.StationConfirm, func() { d.confirmStation(t) }, d.log)
		d.stationTimer = t
		t.Run()
		d.log.Info().Int("from", d.base).Msg("start changing station")
	}
	if !d.rt.Machine.Is(fsm.SelectingAStation) || d.stationTimer == nil {
		return
	}
	d.stationTimer.Reset()
	d.steps += delta
	st, err := d.list.Select(d.steps + d.base)
	if err != nil {
		d.log.Error().Err(err).Msg("select station")
		return
	}
	d.pending = st
	d.rt.setStation(st.Name, st.Ensemble)
	d.log.Info().Int("steps", d.steps).Int("base", d.base).Str("station", st.Name).Msg("station pending")
}

// confirmStation runs when the dial has been still for the confirm
// interval.
func (d *Dispatcher) confirmStation(t *timer.PeriodicTask) {
	d.stationMu.Lock()
	defer d.stationMu.Unlock()
	if d.stationTimer != t {
		return
	}
	t.Terminate()
	d.stationTimer = nil

	if ok, _ := d.rt.Machine.FireIf(fsm.SelectingAStation, fsm.ToggleSelectStation); !ok {
		return
	}
	pending := d.pending
	if d.rt.Machine.Mode() != fsm.Radio {
		d.log.Info().Str("station", pending.Name).Msg("not in radio mode, selection dropped")
		return
	}
	if pending.Name == d.src.Playing() {
		d.log.Info().Str("station", pending.Name).Msg("same station selected, ignored")
		return
	}
	d.changeStationLocked(pending.Name)
}

func (d *Dispatcher) changeStationLocked(name string) {
	d.log.Info().Str("station", name).Msg("changing station")
	if err := d.sink.Pause(); err != nil {
		d.log.Warn().Err(err).Msg("pause")
	}
	if err := d.src.Stop(); err != nil {
		d.log.Warn().Err(err).Msg("stop")
	}
	if err := d.src.Play(name); err != nil {
		d.log.Error().Err(err).Str("station", name).Msg("play")
	}
	if err := d.sink.Resume(); err != nil {
		d.log.Warn().Err(err).Msg("resume")
	}
	d.rt.clearStationMeta()
	d.rt.setStation(d.src.Playing(), d.src.Ensemble())
}
