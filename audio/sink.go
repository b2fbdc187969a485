// Package audio is the output side of the radio: the volume the user dials
// in, the mixer that applies it and the amplifier that is muted while the
// source changes.
package audio

import (
	"sync"

	"github.com/rs/zerolog"
)

const (
	VolumeMin = 0
	VolumeMax = 100

	// AirPlay sends attenuation in dB from -30 up to 0, -144 for mute.
	airplayMinDB = -30.0
)

// Mixer applies a 0..100 volume and pauses the stream.
type Mixer interface {
	SetVolume(percent int) error
	SetPause(paused bool) error
}

// Amp switches the audio amplifier.
type Amp interface {
	Enable()
	Disable()
}

type Sink struct {
	log   zerolog.Logger
	mixer Mixer
	amp   Amp

	mu     sync.Mutex
	volume int
	paused bool
}

// NewSink applies the initial volume straight away. amp may be nil.
func NewSink(mixer Mixer, amp Amp, volume int, log zerolog.Logger) *Sink {
	s := &Sink{
		log:   log.With().Str("component", "audio").Logger(),
		mixer: mixer,
		amp:   amp,
	}
	s.SetVolume(volume)
	if amp != nil {
		amp.Enable()
	}
	return s
}

func (s *Sink) VolumeUp(step int) int   { return s.add(step) }
func (s *Sink) VolumeDown(step int) int { return s.add(-step) }

func (s *Sink) add(d int) int {
	s.mu.Lock()
	v := s.volume + d
	s.mu.Unlock()
	return s.SetVolume(v)
}

// SetVolume clamps v to 0..100, applies it and returns the new volume.
func (s *Sink) SetVolume(v int) int {
	v = clamp(v)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = v
	if err := s.mixer.SetVolume(v); err != nil {
		s.log.Error().Err(err).Int("volume", v).Msg("set volume")
	}
	return v
}

// SetVolumeDB maps an AirPlay attenuation onto the dial.
func (s *Sink) SetVolumeDB(db float64) int {
	return s.SetVolume(DBToPercent(db))
}

func DBToPercent(db float64) int {
	if db <= airplayMinDB {
		return VolumeMin
	}
	if db >= 0 {
		return VolumeMax
	}
	return int((db - airplayMinDB) / -airplayMinDB * VolumeMax)
}

func (s *Sink) Volume() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// Pause mutes the amplifier and pauses the mixer stream.
func (s *Sink) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused {
		return nil
	}
	if s.amp != nil {
		s.amp.Disable()
	}
	s.paused = true
	return s.mixer.SetPause(true)
}

func (s *Sink) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.paused {
		return nil
	}
	s.paused = false
	err := s.mixer.SetPause(false)
	if s.amp != nil {
		s.amp.Enable()
	}
	return err
}

func (s *Sink) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func clamp(v int) int {
	if v < VolumeMin {
		return VolumeMin
	}
	if v > VolumeMax {
		return VolumeMax
	}
	return v
}
