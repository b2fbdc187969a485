// Package netctl is the network side of the radio: AirPlay session news
// arriving over MQTT from shairport-sync, and shairport-sync remote control
// over D-Bus.
package netctl

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

const BaseTopic = "dabble-radio"

var (
	ErrBadTopic       = errors.New("netctl: cannot parse topic")
	ErrUnexpectedBase = errors.New("netctl: unexpected topic")
)

// Handler receives decoded control messages.
type Handler interface {
	ClientName(name string)
	AirPlayPlaying(playing bool)
	AirPlayStart()
	AirPlayEnd()
	Album(s string)
	Track(s string)
	Artist(s string)
	Genre(s string)
	VolumeDB(db float64)
}

// Route decodes one message on <base>/<cmd>[/...] and calls h.
func Route(h Handler, topic string, payload []byte, log zerolog.Logger) error {
	parts := strings.SplitN(topic, "/", 3)
	if len(parts) < 2 {
		return fmt.Errorf("%w: %q", ErrBadTopic, topic)
	}
	if parts[0] != BaseTopic {
		return fmt.Errorf("%w: %q", ErrUnexpectedBase, topic)
	}
	p := string(payload)
	switch cmd := parts[1]; cmd {
	case "client_name":
		h.ClientName(p)
	case "playing", "play_resume":
		h.AirPlayPlaying(p == "1")
	case "active_start":
		h.AirPlayStart()
	case "active_end":
		h.AirPlayEnd()
	case "album":
		h.Album(p)
	case "track", "title":
		h.Track(p)
	case "artist":
		h.Artist(p)
	case "genre":
		h.Genre(p)
	case "volume":
		// "<airplay dB>,<volume>,<lowest>,<highest>"
		s, _, _ := strings.Cut(p, ",")
		db, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("netctl: volume %q: %w", p, err)
		}
		h.VolumeDB(db)
	default:
		log.Info().Str("topic", topic).Str("payload", p).Msg("unhandled topic")
	}
	return nil
}
