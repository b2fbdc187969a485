package netctl

import (
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
)

type recorder struct{ calls []string }

func (r *recorder) add(f string, a ...any) { r.calls = append(r.calls, fmt.Sprintf(f, a...)) }
func (r *recorder) ClientName(n string)    { r.add("client %s", n) }
func (r *recorder) AirPlayPlaying(p bool)  { r.add("playing %v", p) }
func (r *recorder) AirPlayStart()          { r.add("start") }
func (r *recorder) AirPlayEnd()            { r.add("end") }
func (r *recorder) Album(s string)         { r.add("album %s", s) }
func (r *recorder) Track(s string)         { r.add("track %s", s) }
func (r *recorder) Artist(s string)        { r.add("artist %s", s) }
func (r *recorder) Genre(s string)         { r.add("genre %s", s) }
func (r *recorder) VolumeDB(db float64)    { r.add("volume %.2f", db) }

func TestRoute(t *testing.T) {
	cases := []struct {
		topic, payload, want string
	}{
		{"dabble-radio/client_name", "iPhone", "client iPhone"},
		{"dabble-radio/playing", "1", "playing true"},
		{"dabble-radio/play_resume", "0", "playing false"},
		{"dabble-radio/active_start", "", "start"},
		{"dabble-radio/active_end", "", "end"},
		{"dabble-radio/album", "Blue", "album Blue"},
		{"dabble-radio/title", "So What", "track So What"},
		{"dabble-radio/track", "So What", "track So What"},
		{"dabble-radio/artist", "Miles Davis", "artist Miles Davis"},
		{"dabble-radio/genre", "Jazz", "genre Jazz"},
		{"dabble-radio/volume", "-12.50,50.00,-30.00,0.00", "volume -12.50"},
	}
	for _, c := range cases {
		r := &recorder{}
		if err := Route(r, c.topic, []byte(c.payload), zerolog.Nop()); err != nil {
			t.Errorf("%s: %v", c.topic, err)
			continue
		}
		if len(r.calls) != 1 || r.calls[0] != c.want {
			t.Errorf("%s: calls %q, want %q", c.topic, r.calls, c.want)
		}
	}
}

func TestRouteRejects(t *testing.T) {
	r := &recorder{}
	if err := Route(r, "dabble-radio", nil, zerolog.Nop()); !errors.Is(err, ErrBadTopic) {
		t.Errorf("short topic: %v", err)
	}
	if err := Route(r, "other/playing", []byte("1"), zerolog.Nop()); !errors.Is(err, ErrUnexpectedBase) {
		t.Errorf("other base: %v", err)
	}
	if err := Route(r, "dabble-radio/volume", []byte("loud"), zerolog.Nop()); err == nil {
		t.Error("bad volume accepted")
	}
	if err := Route(r, "dabble-radio/ssnc/prgr", []byte("x"), zerolog.Nop()); err != nil {
		t.Errorf("unhandled topic should be logged only: %v", err)
	}
	if len(r.calls) != 0 {
		t.Errorf("calls = %q", r.calls)
	}
}
