package control

import "github.com/sakaisatoru/go_dab_radio/fsm"

// action is what an input means in a given situation.
type action int

const (
	ignore action = iota
	dialStation
	dialVolume
	navigateMenu
	activateMenu
	selectMenu
	exitMenu
)

var actionNames = [...]string{"ignore", "dial_station", "dial_volume", "navigate_menu", "activate_menu", "select_menu", "exit_menu"}

func (a action) String() string { return actionNames[a] }

// menuOwns reports whether side's menu is the one taking input.
func menuOwns(state fsm.State, menuSide, side fsm.Side) bool {
	switch state {
	case fsm.LeftMenuActivated:
		return side == fsm.Left
	case fsm.RightMenuActivated:
		return side == fsm.Right
	case fsm.SelectingAMenu:
		return menuSide == side
	}
	return false
}

// onRotate is the rotation half of the dispatch table.
func onRotate(state fsm.State, menuSide fsm.Side, mode fsm.Mode, side fsm.Side) action {
	if menuOwns(state, menuSide, side) {
		return navigateMenu
	}
	switch side {
	case fsm.Left:
		if mode == fsm.Radio && (state == fsm.Playing || state == fsm.SelectingAStation) {
			return dialStation
		}
	case fsm.Right:
		return dialVolume
	}
	return ignore
}

// onPress is the button half of the dispatch table. Inside a menu a press
// runs the item under the cursor, again and again.
func onPress(state fsm.State, menuSide fsm.Side, side fsm.Side) action {
	switch {
	case side != fsm.Left && side != fsm.Right:
		return ignore
	case state == fsm.Playing:
		return activateMenu
	case menuOwns(state, menuSide, side):
		return selectMenu
	}
	return ignore
}

// onLongPress leaves the menu of its side; elsewhere it is a plain press.
func onLongPress(state fsm.State, menuSide fsm.Side, side fsm.Side) action {
	if menuOwns(state, menuSide, side) {
		return exitMenu
	}
	return onPress(state, menuSide, side)
}
