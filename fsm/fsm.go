// Package fsm is the control state machine of the radio: which interaction
// the device is in right now (playing, dialling a station, browsing a menu,
// scanning). The player mode (radio or AirPlay) is kept alongside but does
// not take part in transitions.
package fsm

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

type State int

const (
	Playing State = iota
	SelectingAStation
	LeftMenuActivated
	RightMenuActivated
	SelectingAMenu
	ScanningForStations
	numStates
)

var stateNames = [numStates]string{
	"playing",
	"selecting_a_station",
	"left_menu_activated",
	"right_menu_activated",
	"selecting_a_menu",
	"scanning_for_stations",
}

func (s State) String() string {
	if s < 0 || s >= numStates {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// States lists every state, initial first.
func States() []State {
	out := make([]State, numStates)
	for i := range out {
		out[i] = State(i)
	}
	return out
}

type Event int

const (
	ToggleSelectStation Event = iota
	ActivateLeftMenu
	LeftMenuSelection
	ExitLeftMenu
	LeftMenuTimeout
	ActivateRightMenu
	RightMenuSelection
	ExitRightMenu
	RightMenuTimeout
	ToggleScan
	numEvents
)

var eventNames = [numEvents]string{
	"toggle_select_station",
	"activate_left_menu",
	"left_menu_selection",
	"exit_left_menu",
	"left_menu_timeout",
	"activate_right_menu",
	"right_menu_selection",
	"exit_right_menu",
	"right_menu_timeout",
	"toggle_scan",
}

func (e Event) String() string {
	if e < 0 || e >= numEvents {
		return fmt.Sprintf("event(%d)", int(e))
	}
	return eventNames[e]
}

func Events() []Event {
	out := make([]Event, numEvents)
	for i := range out {
		out[i] = Event(i)
	}
	return out
}

// Side is one of the two logical input channels.
type Side int

const (
	NoSide Side = iota
	Left
	Right
)

func (s Side) String() string {
	switch s {
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return "none"
}

type Mode int

const (
	Radio Mode = iota
	AirPlay
)

func (m Mode) String() string {
	if m == AirPlay {
		return "airplay"
	}
	return "radio"
}

// ParseMode accepts the names used in the persisted state file.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "radio", "":
		return Radio, nil
	case "airplay":
		return AirPlay, nil
	}
	return Radio, fmt.Errorf("fsm: unknown mode %q", s)
}

var ErrTransitionNotAllowed = errors.New("transition not allowed")

type TransitionError struct {
	Event Event
	From  State
	Side  Side
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s from %s (side %s): %v", e.Event, e.From, e.Side, ErrTransitionNotAllowed)
}

func (e *TransitionError) Unwrap() error { return ErrTransitionNotAllowed }

// Transition is the transition table. side is the menu side currently
// tagged on the machine; it disambiguates the exits out of SelectingAMenu.
// It returns the target state and the side tag to carry into it.
func Transition(ev Event, from State, side Side) (State, Side, bool) {
	switch ev {
	case ToggleSelectStation:
		switch from {
		case Playing:
			return SelectingAStation, NoSide, true
		case SelectingAStation:
			return Playing, NoSide, true
		}
	case ActivateLeftMenu:
		if from == Playing {
			return LeftMenuActivated, Left, true
		}
	case ActivateRightMenu:
		if from == Playing {
			return RightMenuActivated, Right, true
		}
	case LeftMenuSelection:
		if from == LeftMenuActivated {
			return SelectingAMenu, Left, true
		}
	case RightMenuSelection:
		if from == RightMenuActivated {
			return SelectingAMenu, Right, true
		}
	case ExitLeftMenu:
		if from == SelectingAMenu && side == Left {
			return Playing, NoSide, true
		}
	case ExitRightMenu:
		if from == SelectingAMenu && side == Right {
			return Playing, NoSide, true
		}
	case LeftMenuTimeout:
		if from == LeftMenuActivated {
			return Playing, NoSide, true
		}
	case RightMenuTimeout:
		if from == RightMenuActivated {
			return Playing, NoSide, true
		}
	case ToggleScan:
		switch from {
		case RightMenuActivated:
			return ScanningForStations, Right, true
		case ScanningForStations:
			return RightMenuActivated, Right, true
		}
	}
	return from, side, false
}

// Snapshot is a consistent copy of the machine for the render loop.
type Snapshot struct {
	State    State
	Previous State
	Side     Side
	Mode     Mode
}

type Machine struct {
	log zerolog.Logger

	mu       sync.RWMutex
	current  State
	previous State
	side     Side
	mode     Mode
}

func New(log zerolog.Logger) *Machine {
	return &Machine{
		log:      log.With().Str("component", "fsm").Logger(),
		current:  Playing,
		previous: Playing,
	}
}

// Fire applies ev. From any state other than the event's source the state is
// left untouched and a *TransitionError is returned.
func (m *Machine) Fire(ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fireLocked(ev)
}

// FireIf applies ev only when the machine is in state from. It reports
// whether the transition happened; a mismatched state is not an error.
func (m *Machine) FireIf(from State, ev Event) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != from {
		return false, nil
	}
	if err := m.fireLocked(ev); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Machine) fireLocked(ev Event) error {
	to, side, ok := Transition(ev, m.current, m.side)
	if !ok {
		err := &TransitionError{Event: ev, From: m.current, Side: m.side}
		m.log.Warn().Err(err).Msg("transition rejected")
		return err
	}
	from := m.current
	m.previous = from
	m.current = to
	m.side = side
	m.log.Info().
		Str("event", ev.String()).
		Str("from", from.String()).
		Str("to", to.String()).
		Msg("transition")
	return nil
}

func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

func (m *Machine) Is(s State) bool { return m.Current() == s }

// Previous is the state active before the last transition. Diagnostic only.
func (m *Machine) Previous() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.previous
}

// MenuSide is the side whose menu is active, NoSide outside the menu states.
func (m *Machine) MenuSide() Side {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.side
}

func (m *Machine) Mode() Mode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mode
}

func (m *Machine) SetMode(mode Mode) {
	m.mu.Lock()
	old := m.mode
	m.mode = mode
	m.mu.Unlock()
	if old != mode {
		m.log.Info().Str("from", old.String()).Str("to", mode.String()).Msg("mode changed")
	}
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{State: m.current, Previous: m.previous, Side: m.side, Mode: m.mode}
}
