// Package player owns the audio source: the DAB decoder subprocess or mpv
// playing internet streams.
package player

import (
	"os"

	"github.com/sakaisatoru/go_dab_radio/logparse"
)

// Source is the station source the control core drives.
type Source interface {
	Play(name string) error
	Stop() error
	// Playing is the station most recently started, kept after Stop.
	Playing() string
	Ensemble() string
	// Poll returns the metadata fields seen since the last call.
	Poll() logparse.Updates
	Close() error
}

// expand substitutes $name / ${name} in a command template.
func expand(tmpl string, vars map[string]string) string {
	return os.Expand(tmpl, func(k string) string { return vars[k] })
}
