package player

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sakaisatoru/go_dab_radio/logparse"
	"github.com/sakaisatoru/go_dab_radio/stations"
)

const fakeDablin = `#!/bin/sh
echo "FICDecoder: SId $2: audio service (SubChId 17, DAB+, primary)" >&2
echo "PADChangeDynamicLabel SId $2 Label:'Radio X - Get Into the Music'" >&2
exec sleep 30
`

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "decoder.sh")
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func radioX() *stations.List {
	return stations.NewList(
		stations.Station{Name: "Radio X", SID: "0xC4CD", Ensemble: "D1 National", Channel: "11D"},
		stations.Station{Name: "Magic Radio", SID: "0xC0B5", Ensemble: "Bauer London", Channel: "12A"},
	)
}

func TestDABPlayParsesDecoderLog(t *testing.T) {
	script := writeScript(t, fakeDablin)
	d := NewDAB(radioX(), DABOptions{
		PlayCommand: script + " $channel $sid",
		Parser:      logparse.Options{PollInterval: 5 * time.Millisecond},
	}, zerolog.Nop())
	defer d.Close()

	if err := d.Play("Radio X"); err != nil {
		t.Fatal(err)
	}
	if d.Playing() != "Radio X" || d.Ensemble() != "D1 National" {
		t.Fatalf("playing %q / %q", d.Playing(), d.Ensemble())
	}

	var got logparse.Updates
	deadline := time.After(3 * time.Second)
	for got[logparse.PADLabel].Value == "" {
		select {
		case <-deadline:
			t.Fatal("no dynamic label parsed")
		case <-time.After(10 * time.Millisecond):
		}
		u := d.Poll()
		for f := logparse.Field(0); f < logparse.NumFields; f++ {
			if u[f].Dirty {
				got[f] = u[f]
			}
		}
	}
	if got[logparse.PADLabel].Value != "Radio X - Get Into the Music" {
		t.Fatalf("pad = %q", got[logparse.PADLabel].Value)
	}

	start := time.Now()
	if err := d.Stop(); err != nil {
		t.Fatal(err)
	}
	if time.Since(start) > stopGrace {
		t.Fatal("decoder did not stop on SIGTERM")
	}
	if d.Playing() != "Radio X" {
		t.Fatal("stop forgot the last station")
	}
}

func TestDABPlayUnknownStation(t *testing.T) {
	d := NewDAB(radioX(), DABOptions{PlayCommand: "true"}, zerolog.Nop())
	if err := d.Play("Nope FM"); err == nil {
		t.Fatal("expected an error")
	}
}

func TestDABScanMergesEnsembles(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"ensemble-ch-11D.json": `{"ensemble":"D1 National","channel":"11D","stations":{"Radio X":"0xC4CD","Absolute Radio":"0xC1C0"}}`,
		"ensemble-ch-12A.json": `{"ensemble":"Bauer London","channel":"12A","stations":{"Radio X":"0xC4CE"}}`,
	}
	for n, b := range files {
		if err := os.WriteFile(filepath.Join(dir, n), []byte(b), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	list := stations.NewList()
	out := filepath.Join(dir, "station-list.json")
	d := NewDAB(list, DABOptions{
		ScanCommand:  "true $block $scantime",
		ScanTime:     1,
		Multiplexes:  []string{"12A", "11D", "5A"},
		ScanDir:      dir,
		StationsFile: out,
	}, zerolog.Nop())

	var msgs []string
	if err := d.Scan(context.Background(), func(m, _ string) { msgs = append(msgs, m) }); err != nil {
		t.Fatal(err)
	}
	want := []string{"Absolute Radio", "Radio X", "Radio X Bauer London"}
	got := list.Names()
	if len(got) != len(want) {
		t.Fatalf("names = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("names = %v, want %v", got, want)
		}
	}
	if msgs[len(msgs)-1] != "Found 3 stations" {
		t.Fatalf("last message %q", msgs[len(msgs)-1])
	}
	saved, err := stations.LoadJSON(out)
	if err != nil || saved.Len() != 3 {
		t.Fatalf("saved list: %v", err)
	}
}

func TestScanHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := NewDAB(stations.NewList(), DABOptions{ScanCommand: "true", Multiplexes: []string{"11D"}}, zerolog.Nop())
	if err := d.Scan(ctx, nil); err != context.Canceled {
		t.Fatalf("err = %v", err)
	}
}
