package control

import (
	"github.com/sakaisatoru/go_dab_radio/fsm"
)

// SwitchMode moves between radio and AirPlay. AirPlay stops the station and
// remembers it, radio plays the remembered station again. The control
// state is not touched. A change asked for by the user is passed on to the
// AirPlay receiver.
func (d *Dispatcher) SwitchMode(mode fsm.Mode, origin Origin) {
	d.stationMu.Lock()
	defer d.stationMu.Unlock()
	if d.rt.Machine.Mode() == mode {
		return
	}
	switch mode {
	case fsm.AirPlay:
		// mid dial the display holds the pending station, not the playing one
		name := d.rt.rememberStation(d.src.Playing())
		d.log.Info().Str("station", name).Msg("AirPlay activated, radio stops")
		if err := d.src.Stop(); err != nil {
			d.log.Warn().Err(err).Msg("stop")
		}
		d.rt.Machine.SetMode(fsm.AirPlay)
		if origin == FromUser && d.remote != nil {
			if err := d.remote.Play(); err != nil {
				d.log.Warn().Err(err).Msg("AirPlay play")
			}
		}
	case fsm.Radio:
		if origin == FromUser && d.remote != nil {
			if err := d.remote.Pause(); err != nil {
				d.log.Warn().Err(err).Msg("AirPlay pause")
			}
		}
		d.rt.Machine.SetMode(fsm.Radio)
		name := d.rt.lastStationName()
		d.log.Info().Str("station", name).Msg("radio enabled")
		if err := d.src.Play(name); err != nil {
			d.log.Error().Err(err).Str("station", name).Msg("play")
		}
		d.rt.clearStationMeta()
		d.rt.setStation(name, d.src.Ensemble())
	}
}

// startScan is the Scan menu action. The scan runs in the background; when
// it is over the last station plays again and the right menu closes.
func (d *Dispatcher) startScan() error {
	sc, ok := d.src.(Scanner)
	if !ok {
		return ErrScanUnsupported
	}
	if d.rt.Machine.Mode() != fsm.Radio {
		return nil
	}
	if ok, err := d.rt.Machine.FireIf(fsm.RightMenuActivated, fsm.ToggleScan); !ok || err != nil {
		return err
	}
	was := d.src.Playing()
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := sc.Scan(d.ctx, d.rt.setScanMessage); err != nil {
			d.log.Error().Err(err).Msg("scan")
		}
		d.stationMu.Lock()
		name := was
		if _, err := d.list.Lookup(name); err != nil {
			if st, err := d.list.Select(0); err == nil {
				name = st.Name
			}
		}
		if d.ctx.Err() == nil && name != "" {
			if err := d.src.Play(name); err != nil {
				d.log.Error().Err(err).Str("station", name).Msg("play after scan")
			}
			d.rt.clearStationMeta()
			d.rt.setStation(d.src.Playing(), d.src.Ensemble())
		}
		d.stationMu.Unlock()

		d.rt.setScanMessage("", "")
		_, _ = d.rt.Machine.FireIf(fsm.ScanningForStations, fsm.ToggleScan)
		d.ExitMenu(fsm.Right)
	}()
	return nil
}

// The methods below receive the AirPlay session news from the network.

func (d *Dispatcher) ClientName(name string) {
	d.log.Info().Str("client", name).Msg("inbound AirPlay connection")
	d.rt.update(func(r *Runtime) { r.clientName = name })
}

func (d *Dispatcher) AirPlayPlaying(playing bool) {
	d.log.Info().Bool("playing", playing).Msg("AirPlay")
	if playing {
		d.SwitchMode(fsm.AirPlay, FromNetwork)
	}
}

func (d *Dispatcher) AirPlayStart() { d.SwitchMode(fsm.AirPlay, FromNetwork) }
func (d *Dispatcher) AirPlayEnd()   { d.SwitchMode(fsm.Radio, FromNetwork) }

func (d *Dispatcher) Album(s string) { d.rt.update(func(r *Runtime) { r.album = s }) }
func (d *Dispatcher) Genre(s string) { d.rt.update(func(r *Runtime) { r.genre = s }) }

func (d *Dispatcher) Track(s string) {
	d.rt.update(func(r *Runtime) { r.track, r.pad = s, s })
}

// Artist stands in for the station name while AirPlay plays.
func (d *Dispatcher) Artist(s string) {
	airplay := d.rt.Machine.Mode() == fsm.AirPlay
	d.rt.update(func(r *Runtime) {
		r.artist = s
		if airplay {
			r.station = s
		}
	})
}

func (d *Dispatcher) VolumeDB(db float64) {
	v := d.sink.SetVolumeDB(db)
	d.rt.setVolume(v)
	d.log.Info().Float64("db", db).Int("volume", v).Msg("AirPlay volume")
}
