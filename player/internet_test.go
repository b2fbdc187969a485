package player

import (
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"

	"github.com/sakaisatoru/go_dab_radio/logparse"
	"github.com/sakaisatoru/go_dab_radio/mpv"
	"github.com/sakaisatoru/go_dab_radio/stations"
)

type fakeMPV struct {
	loaded  []string
	stopped int
	replies []mpv.Reply
}

func (f *fakeMPV) LoadFile(u string) error { f.loaded = append(f.loaded, u); return nil }
func (f *fakeMPV) Stop() error             { f.stopped++; return nil }
func (f *fakeMPV) Command(...any) error    { return nil }
func (f *fakeMPV) Recv(fn func(mpv.Reply)) error {
	for _, r := range f.replies {
		fn(r)
	}
	return nil
}

func title(s string) mpv.Reply {
	b, _ := json.Marshal(s)
	return mpv.Reply{Event: "property-change", Name: "media-title", Data: b}
}

func TestInternetPlayAndTitle(t *testing.T) {
	m := &fakeMPV{replies: []mpv.Reply{
		{Event: "start-file"},
		title("Song A"),
		title("Song A"),
	}}
	list := stations.NewList(stations.Station{Name: "Jazz", URL: "http://example.invalid/jazz"})
	n := NewInternet(m, list, zerolog.Nop())

	if err := n.Play("Jazz"); err != nil {
		t.Fatal(err)
	}
	if len(m.loaded) != 1 || m.loaded[0] != "http://example.invalid/jazz" {
		t.Fatalf("loaded %v", m.loaded)
	}
	if err := n.Watch(); err != nil {
		t.Fatal(err)
	}
	u := n.Poll()
	if u[logparse.PADLabel].Value != "Song A" {
		t.Fatalf("pad = %+v", u[logparse.PADLabel])
	}
	if n.Poll()[logparse.PADLabel].Dirty {
		t.Fatal("poll must clear dirty")
	}
	_ = n.Stop()
	if m.stopped != 1 || n.Playing() != "Jazz" {
		t.Fatalf("stopped=%d playing=%q", m.stopped, n.Playing())
	}
}

func TestResolvePassesPlainURLs(t *testing.T) {
	u, err := Resolve("http://example.invalid/a")
	if err != nil || u != "http://example.invalid/a" {
		t.Fatalf("%q %v", u, err)
	}
	if _, err := Resolve("plugin:nope.py/x"); err == nil {
		t.Fatal("unknown plugin accepted")
	}
}
