package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const DefaultStation = "Magic Radio"

// State is what survives a restart.
type State struct {
	StationName          string `json:"station_name"`
	Ensemble             string `json:"ensemble"`
	Volume               int    `json:"volume"`
	PulseLeftLEDEncoder  bool   `json:"pulse_left_led_encoder"`
	PulseRightLEDEncoder bool   `json:"pulse_right_led_encoder"`
	EnableVisualiser     bool   `json:"enable_visualiser"`
	Visualiser           string `json:"visualiser"`
	EnableLevels         bool   `json:"enable_levels"`
	StationEnabled       bool   `json:"station_enabled"`
	Mode                 string `json:"mode"`
	Theme                string `json:"theme"`
}

func DefaultState() State {
	return State{
		StationName:      DefaultStation,
		Volume:           40,
		EnableVisualiser: true,
		Visualiser:       "equaliser",
		EnableLevels:     true,
		StationEnabled:   true,
		Mode:             "radio",
		Theme:            "default",
	}
}

// LoadState reads path. A missing file gives DefaultState; keys absent from
// the file keep their defaults.
func LoadState(path string) (State, error) {
	st := DefaultState()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return st, err
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return DefaultState(), fmt.Errorf("config: state %s: %w", path, err)
	}
	return st, nil
}

// SaveState writes st next to path and renames it into place.
func SaveState(path string, st State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".state-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
