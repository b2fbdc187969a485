package player

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/sakaisatoru/go_radio_raspi/netradio"

	"github.com/sakaisatoru/go_dab_radio/logparse"
	"github.com/sakaisatoru/go_dab_radio/mpv"
	"github.com/sakaisatoru/go_dab_radio/stations"
)

// MPV is the part of the mpv client the internet player uses.
type MPV interface {
	LoadFile(url string) error
	Stop() error
	Command(args ...any) error
	Recv(fn func(mpv.Reply)) error
}

const titleObserver = 1

// Internet plays m3u stations through mpv. The stream title stands in for
// the DAB dynamic label.
type Internet struct {
	mpv     MPV
	list    *stations.List
	log     zerolog.Logger
	resolve func(url string) (string, error)

	mu       sync.Mutex
	playing  string
	ensemble string
	updates  logparse.Updates
}

func NewInternet(m MPV, list *stations.List, log zerolog.Logger) *Internet {
	return &Internet{
		mpv:     m,
		list:    list,
		log:     log.With().Str("component", "internet").Logger(),
		resolve: Resolve,
	}
}

// Resolve turns plugin:afn.py/<id> and plugin:radiko.py/<id> into a stream
// url. Other urls are returned as they are.
func Resolve(url string) (string, error) {
	args := strings.Split(url, "/")
	if args[0] != "plugin:" || len(args) < 3 {
		return url, nil
	}
	switch args[1] {
	case "afn.py":
		return netradio.AFN_get_url_with_api(args[2])
	case "radiko.py":
		return netradio.Radiko_get_url(args[2])
	}
	return "", fmt.Errorf("internet: unknown plugin %q", args[1])
}

// Watch follows the stream title until mpv goes away.
func (n *Internet) Watch() error {
	if err := n.mpv.Command("observe_property", titleObserver, "media-title"); err != nil {
		return err
	}
	return n.mpv.Recv(n.reply)
}

func (n *Internet) reply(r mpv.Reply) {
	if r.Event != "property-change" || r.Name != "media-title" {
		return
	}
	var title string
	if err := json.Unmarshal(r.Data, &title); err != nil || title == "" {
		return
	}
	n.mu.Lock()
	changed := n.updates.Set(logparse.PADLabel, title)
	n.mu.Unlock()
	if changed {
		n.log.Debug().Str("title", title).Msg("stream title")
	}
}

func (n *Internet) Play(name string) error {
	st, err := n.list.Lookup(name)
	if err != nil {
		return err
	}
	url, err := n.resolve(st.URL)
	if err != nil {
		return fmt.Errorf("internet: resolve %s: %w", st.URL, err)
	}
	if err := n.mpv.LoadFile(url); err != nil {
		return err
	}
	n.mu.Lock()
	n.playing, n.ensemble = st.Name, st.Ensemble
	n.updates = logparse.Updates{}
	n.mu.Unlock()
	n.log.Info().Str("station", st.Name).Msg("playing")
	return nil
}

func (n *Internet) Stop() error { return n.mpv.Stop() }

func (n *Internet) Playing() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.playing
}

func (n *Internet) Ensemble() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ensemble
}

func (n *Internet) Poll() logparse.Updates {
	n.mu.Lock()
	defer n.mu.Unlock()
	u := n.updates
	for f := logparse.Field(0); f < logparse.NumFields; f++ {
		n.updates.Take(f)
	}
	return u
}

func (n *Internet) Close() error { return n.Stop() }
