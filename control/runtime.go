// Package control is the core of the radio: it owns the runtime state and
// decides what every knob turn, button press, timer expiry and network
// message does to it.
package control

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sakaisatoru/go_dab_radio/config"
	"github.com/sakaisatoru/go_dab_radio/fsm"
	"github.com/sakaisatoru/go_dab_radio/logparse"
	"github.com/sakaisatoru/go_dab_radio/menu"
)

// Message is what the top line shows while playing the radio.
type Message int

const (
	ShowStation Message = iota
	ShowPAD
)

// Visualiser names as persisted.
const (
	Waveform  = "waveform"
	Equaliser = "equaliser"
)

// Runtime is the shared state of the device. The state machine and the two
// menus carry their own locks; every other field is behind mu.
type Runtime struct {
	Machine *fsm.Machine
	Left    *menu.Menu
	Right   *menu.Menu

	log zerolog.Logger

	mu             sync.RWMutex
	station        string
	ensemble       string
	lastStation    string
	pad            string
	dabType        string
	audioFormat    string
	genre          string
	haveSignal     bool
	awaitingSignal bool
	message        Message

	volume   int
	volumeAt time.Time

	clientName string
	album      string
	track      string
	artist     string

	visualiserEnabled bool
	visualiser        string
	levelsEnabled     bool
	pulseLeft         bool
	pulseRight        bool
	stationEnabled    bool
	theme             string

	scanMsg string
	scanSub string
}

func NewRuntime(log zerolog.Logger) *Runtime {
	return &Runtime{
		Machine:        fsm.New(log),
		Left:           menu.New("left", log),
		Right:          menu.New("right", log),
		log:            log.With().Str("component", "runtime").Logger(),
		stationEnabled: true,
		visualiser:     Equaliser,
		awaitingSignal: true,
	}
}

// Restore injects the persisted state.
func (r *Runtime) Restore(st config.State) {
	mode, err := fsm.ParseMode(st.Mode)
	if err != nil {
		r.log.Warn().Err(err).Msg("persisted mode ignored")
	}
	r.Machine.SetMode(mode)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.station, r.lastStation, r.ensemble = st.StationName, st.StationName, st.Ensemble
	r.volume = st.Volume
	r.visualiserEnabled = st.EnableVisualiser
	r.visualiser = st.Visualiser
	r.levelsEnabled = st.EnableLevels
	r.pulseLeft = st.PulseLeftLEDEncoder
	r.pulseRight = st.PulseRightLEDEncoder
	r.stationEnabled = st.StationEnabled
	r.theme = st.Theme
}

// Persist captures the state to save. In AirPlay mode the station to come
// back to is saved rather than what is on the display.
func (r *Runtime) Persist() config.State {
	mode := r.Machine.Mode()
	r.mu.RLock()
	defer r.mu.RUnlock()
	name := r.station
	if mode == fsm.AirPlay {
		name = r.lastStation
	}
	return config.State{
		StationName:          name,
		Ensemble:             r.ensemble,
		Volume:               r.volume,
		PulseLeftLEDEncoder:  r.pulseLeft,
		PulseRightLEDEncoder: r.pulseRight,
		EnableVisualiser:     r.visualiserEnabled,
		Visualiser:           r.visualiser,
		EnableLevels:         r.levelsEnabled,
		StationEnabled:       r.stationEnabled,
		Mode:                 mode.String(),
		Theme:                r.theme,
	}
}

// ApplyUpdates folds the dirty decoder fields into the display state.
func (r *Runtime) ApplyUpdates(u logparse.Updates) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v := u.Take(logparse.DABType); v.Dirty {
		r.dabType = v.Value
		r.haveSignal, r.awaitingSignal = true, false
		r.log.Info().Str("dab_type", v.Value).Msg("signal")
	}
	if v := u.Take(logparse.PADLabel); v.Dirty {
		r.pad = v.Value
		r.awaitingSignal = false
		r.log.Info().Str("pad", v.Value).Msg("PAD message")
	}
	if v := u.Take(logparse.MediaFormat); v.Dirty {
		r.audioFormat = v.Value
		r.awaitingSignal = false
		r.log.Info().Str("format", v.Value).Msg("audio format")
	}
	if v := u.Take(logparse.ProgrammeType); v.Dirty {
		r.genre = v.Value
		r.awaitingSignal = false
		r.log.Info().Str("genre", v.Value).Msg("programme type")
	}
}

// NextMessage flips the top line between station and PAD, the latter only
// once a PAD message has arrived.
func (r *Runtime) NextMessage() {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case r.message == ShowStation && r.pad != "":
		r.message = ShowPAD
	case r.message == ShowPAD:
		r.message = ShowStation
	}
}

func (r *Runtime) setStation(name, ensemble string) {
	r.mu.Lock()
	r.station, r.ensemble = name, ensemble
	r.message = ShowStation
	r.mu.Unlock()
}

// rememberStation keeps the radio station to come back to after AirPlay.
// An empty name keeps the one already remembered.
func (r *Runtime) rememberStation(name string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if name != "" {
		r.lastStation = name
	}
	return r.lastStation
}

func (r *Runtime) lastStationName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastStation
}

// clearStationMeta drops what belonged to the previous station.
func (r *Runtime) clearStationMeta() {
	r.mu.Lock()
	r.pad, r.dabType, r.genre, r.track, r.audioFormat = "", "", "", "", ""
	r.haveSignal, r.awaitingSignal = false, true
	r.mu.Unlock()
}

func (r *Runtime) setVolume(v int) {
	r.mu.Lock()
	r.volume, r.volumeAt = v, time.Now()
	r.mu.Unlock()
}

func (r *Runtime) setScanMessage(msg, sub string) {
	r.mu.Lock()
	r.scanMsg, r.scanSub = msg, sub
	r.mu.Unlock()
}

// update runs fn with the lock held.
func (r *Runtime) update(fn func(r *Runtime)) {
	r.mu.Lock()
	fn(r)
	r.mu.Unlock()
}

// read runs fn with the read lock held.
func (r *Runtime) read(fn func(r *Runtime)) {
	r.mu.RLock()
	fn(r)
	r.mu.RUnlock()
}

func (r *Runtime) menuFor(side fsm.Side) *menu.Menu {
	if side == fsm.Right {
		return r.Right
	}
	return r.Left
}

// Snapshot is a copy of everything the render loop draws.
type Snapshot struct {
	fsm.Snapshot

	MenuItem string

	Station     string
	Ensemble    string
	PAD         string
	DABType     string
	AudioFormat string
	Genre       string
	HaveSignal  bool
	Awaiting    bool
	Message     Message

	Volume   int
	VolumeAt time.Time

	ClientName string
	Album      string
	Track      string
	Artist     string

	VisualiserEnabled bool
	Visualiser        string
	LevelsEnabled     bool
	PulseLeft         bool
	PulseRight        bool
	StationEnabled    bool

	ScanMsg string
	ScanSub string
}

func (r *Runtime) Snapshot() Snapshot {
	s := Snapshot{Snapshot: r.Machine.Snapshot()}
	switch s.State {
	case fsm.LeftMenuActivated, fsm.RightMenuActivated, fsm.SelectingAMenu:
		if it, ok := r.menuFor(s.Side).Current(); ok {
			s.MenuItem = it.Display()
		}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s.Station, s.Ensemble = r.station, r.ensemble
	s.PAD, s.DABType, s.AudioFormat, s.Genre = r.pad, r.dabType, r.audioFormat, r.genre
	s.HaveSignal, s.Awaiting, s.Message = r.haveSignal, r.awaitingSignal, r.message
	s.Volume, s.VolumeAt = r.volume, r.volumeAt
	s.ClientName, s.Album, s.Track, s.Artist = r.clientName, r.album, r.track, r.artist
	s.VisualiserEnabled, s.Visualiser, s.LevelsEnabled = r.visualiserEnabled, r.visualiser, r.levelsEnabled
	s.PulseLeft, s.PulseRight, s.StationEnabled = r.pulseLeft, r.pulseRight, r.stationEnabled
	s.ScanMsg, s.ScanSub = r.scanMsg, r.scanSub
	return s
}
