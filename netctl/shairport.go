package netctl

import (
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog"
)

const (
	shairportDest  = "org.gnome.ShairportSync"
	shairportPath  = "/org/gnome/ShairportSync"
	shairportIface = "org.gnome.ShairportSync.RemoteControl"
)

// Shairport is the remote control interface of shairport-sync on the system
// bus.
type Shairport struct {
	conn *dbus.Conn
	obj  dbus.BusObject
	log  zerolog.Logger
}

func DialShairport(log zerolog.Logger) (*Shairport, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("netctl: system bus: %w", err)
	}
	return &Shairport{
		conn: conn,
		obj:  conn.Object(shairportDest, dbus.ObjectPath(shairportPath)),
		log:  log.With().Str("component", "shairport").Logger(),
	}, nil
}

func (s *Shairport) call(method string) error {
	s.log.Info().Str("method", method).Msg("remote control")
	if err := s.obj.Call(shairportIface+"."+method, 0).Err; err != nil {
		return fmt.Errorf("netctl: shairport %s: %w", method, err)
	}
	return nil
}

func (s *Shairport) Play() error  { return s.call("Play") }
func (s *Shairport) Pause() error { return s.call("Pause") }

func (s *Shairport) Close() error { return s.conn.Close() }
