package mpv

import (
	"bufio"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestCurveClampsAndIsMonotonic(t *testing.T) {
	if Curve(-5) != 0 || Curve(0) != 0 {
		t.Fatalf("low end: %d %d", Curve(-5), Curve(0))
	}
	if Curve(100) != 100 || Curve(250) != 100 {
		t.Fatalf("high end: %d %d", Curve(100), Curve(250))
	}
	prev := 0
	for v := 0; v <= 100; v++ {
		c := Curve(v)
		if c < prev {
			t.Fatalf("curve decreases at %d: %d < %d", v, c, prev)
		}
		prev = c
	}
}

func TestCommandsOverSocket(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "mpv.sock")
	ln, err := net.Listen("unix", sock)
	if err != nil {
		t.Skipf("unix sockets unavailable: %v", err)
	}
	defer ln.Close()

	got := make(chan map[string][]any, 4)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		sc := bufio.NewScanner(conn)
		for sc.Scan() {
			var m map[string][]any
			if json.Unmarshal(sc.Bytes(), &m) == nil {
				got <- m
			}
		}
	}()

	c := New(sock, zerolog.Nop())
	if err := c.Dial(); err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if err := c.LoadFile("http://example.invalid/stream"); err != nil {
		t.Fatal(err)
	}
	if err := c.SetVolume(100); err != nil {
		t.Fatal(err)
	}

	for _, want := range [][]any{
		{"loadfile", "http://example.invalid/stream"},
		{"set_property", "volume", float64(100)},
	} {
		select {
		case m := <-got:
			cmd := m["command"]
			if len(cmd) != len(want) {
				t.Fatalf("command %v, want %v", cmd, want)
			}
			for i := range want {
				if cmd[i] != want[i] {
					t.Fatalf("command %v, want %v", cmd, want)
				}
			}
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for command")
		}
	}
}
