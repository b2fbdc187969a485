package fsm

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

type edge struct {
	ev   Event
	from State
	side Side
	to   State
}

const anySide Side = -1

// every legal edge; anything not listed here must be rejected
var legal = []edge{
	{ToggleSelectStation, Playing, anySide, SelectingAStation},
	{ToggleSelectStation, SelectingAStation, anySide, Playing},
	{ActivateLeftMenu, Playing, anySide, LeftMenuActivated},
	{LeftMenuSelection, LeftMenuActivated, anySide, SelectingAMenu},
	{ExitLeftMenu, SelectingAMenu, Left, Playing},
	{LeftMenuTimeout, LeftMenuActivated, anySide, Playing},
	{ActivateRightMenu, Playing, anySide, RightMenuActivated},
	{RightMenuSelection, RightMenuActivated, anySide, SelectingAMenu},
	{ExitRightMenu, SelectingAMenu, Right, Playing},
	{RightMenuTimeout, RightMenuActivated, anySide, Playing},
	{ToggleScan, RightMenuActivated, anySide, ScanningForStations},
	{ToggleScan, ScanningForStations, anySide, RightMenuActivated},
}

func TestTransitionTableIsExhaustive(t *testing.T) {
	isLegal := func(ev Event, from State, side Side) (State, bool) {
		for _, e := range legal {
			if e.ev == ev && e.from == from && (e.side == anySide || e.side == side) {
				return e.to, true
			}
		}
		return from, false
	}
	for _, ev := range Events() {
		for _, from := range States() {
			for _, side := range []Side{NoSide, Left, Right} {
				wantTo, wantOK := isLegal(ev, from, side)
				gotTo, _, gotOK := Transition(ev, from, side)
				if gotOK != wantOK {
					t.Errorf("%s from %s side %s: ok=%v, want %v", ev, from, side, gotOK, wantOK)
					continue
				}
				if gotOK && gotTo != wantTo {
					t.Errorf("%s from %s side %s: to=%s, want %s", ev, from, side, gotTo, wantTo)
				}
			}
		}
	}
}

func TestIllegalFireLeavesStateUnchanged(t *testing.T) {
	m := New(zerolog.Nop())
	err := m.Fire(LeftMenuSelection)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrTransitionNotAllowed) {
		t.Fatalf("error %v does not wrap ErrTransitionNotAllowed", err)
	}
	var te *TransitionError
	if !errors.As(err, &te) || te.Event != LeftMenuSelection || te.From != Playing {
		t.Fatalf("unexpected transition error %#v", te)
	}
	if m.Current() != Playing {
		t.Fatalf("state changed to %s", m.Current())
	}
}

func TestMenuRoundTripBothSides(t *testing.T) {
	cases := []struct {
		side                   Side
		activate, select_, out Event
	}{
		{Left, ActivateLeftMenu, LeftMenuSelection, ExitLeftMenu},
		{Right, ActivateRightMenu, RightMenuSelection, ExitRightMenu},
	}
	for _, c := range cases {
		t.Run(c.side.String(), func(t *testing.T) {
			m := New(zerolog.Nop())
			for _, ev := range []Event{c.activate, c.select_} {
				if err := m.Fire(ev); err != nil {
					t.Fatalf("%s: %v", ev, err)
				}
			}
			if m.Current() != SelectingAMenu || m.MenuSide() != c.side {
				t.Fatalf("got %s side %s", m.Current(), m.MenuSide())
			}
			if err := m.Fire(c.out); err != nil {
				t.Fatalf("%s: %v", c.out, err)
			}
			if m.Current() != Playing || m.MenuSide() != NoSide {
				t.Fatalf("got %s side %s after exit", m.Current(), m.MenuSide())
			}
			if ok, err := m.FireIf(SelectingAMenu, c.out); ok || err != nil {
				t.Fatalf("repeated exit: ok=%v err=%v", ok, err)
			}
		})
	}
}

func TestExitRejectedForOtherSide(t *testing.T) {
	m := New(zerolog.Nop())
	_ = m.Fire(ActivateLeftMenu)
	_ = m.Fire(LeftMenuSelection)
	if err := m.Fire(ExitRightMenu); err == nil {
		t.Fatal("right exit accepted while the left menu is selecting")
	}
	if m.Current() != SelectingAMenu {
		t.Fatalf("state changed to %s", m.Current())
	}
}

func TestPreviousAndMode(t *testing.T) {
	m := New(zerolog.Nop())
	_ = m.Fire(ActivateRightMenu)
	_ = m.Fire(ToggleScan)
	if m.Previous() != RightMenuActivated {
		t.Fatalf("previous = %s", m.Previous())
	}
	m.SetMode(AirPlay)
	snap := m.Snapshot()
	if snap.State != ScanningForStations || snap.Mode != AirPlay || snap.Side != Right {
		t.Fatalf("snapshot %+v", snap)
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"radio": Radio, "airplay": AirPlay, "": Radio} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseMode("cassette"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
