package audio

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/sakaisatoru/go_dab_radio/mpv"
)

// MPVMixer drives the volume and pause properties of an mpv instance.
type MPVMixer struct {
	Client *mpv.Client
}

func (m MPVMixer) SetVolume(percent int) error { return m.Client.SetVolume(percent) }
func (m MPVMixer) SetPause(paused bool) error  { return m.Client.SetPause(paused) }

// Amixer sets an ALSA simple control through the amixer command.
type Amixer struct {
	Card    string // empty for the default card
	Control string

	run func(name string, args ...string) error
}

func NewAmixer(card, control string) *Amixer {
	if control == "" {
		control = "PCM"
	}
	return &Amixer{Card: card, Control: control, run: runCommand}
}

func (a *Amixer) SetVolume(percent int) error {
	return a.sset(fmt.Sprintf("%d%%", clamp(percent)))
}

func (a *Amixer) SetPause(paused bool) error {
	if paused {
		return a.sset("mute")
	}
	return a.sset("unmute")
}

func (a *Amixer) sset(value string) error {
	args := []string{"-q"}
	if a.Card != "" {
		args = append(args, "-c", a.Card)
	}
	args = append(args, "sset", a.Control, value)
	return a.run("amixer", args...)
}

func runCommand(name string, args ...string) error {
	out, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}
