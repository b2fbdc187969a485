// Package mpv runs mpv as an idle audio player and drives it over its JSON
// IPC socket.
package mpv

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	Binary = "/usr/bin/mpv"

	dialRetries  = 60
	dialInterval = 200 * time.Millisecond
)

var defaultArgs = []string{
	"--idle",
	"--no-video",
	"--no-cache",
	"--stream-buffer-size=256KiB",
}

// mpv の音量は聴感に合わせてテーブルで変換する
var volconv = []int{0, 1, 2, 3, 4, 4, 5, 6, 6, 7, 7, 8, 8, 9, 9, 10, 10, 11, 11,
	11, 12, 12, 13, 13, 13, 14, 14, 14, 15, 15, 16, 16, 16, 17,
	17, 17, 18, 18, 18, 19, 19, 20, 20, 20, 21, 21, 22, 22, 23,
	23, 24, 24, 25, 25, 26, 26, 27, 27, 28, 28, 29, 30, 30, 31,
	32, 32, 33, 34, 35, 35, 36, 37, 38, 39, 40, 41, 42, 43, 45,
	46, 47, 49, 50, 52, 53, 55, 57, 59, 61, 63, 66, 68, 71, 74,
	78, 81, 85, 90, 95, 100}

const (
	VolumeMin = 0
	VolumeMax = 100
)

// Reply is one line received from mpv: a command reply or an event.
type Reply struct {
	Data      json.RawMessage `json:"data"`
	Name      string          `json:"name"`
	RequestID int             `json:"request_id"`
	Err       string          `json:"error"`
	Event     string          `json:"event"`
}

type Client struct {
	socket string
	log    zerolog.Logger

	mu   sync.Mutex
	proc *exec.Cmd
	conn net.Conn
}

func New(socket string, log zerolog.Logger) *Client {
	return &Client{socket: socket, log: log.With().Str("component", "mpv").Logger()}
}

// Start launches the mpv process and connects to its socket.
func (c *Client) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.proc = exec.Command(Binary, append(defaultArgs, "--input-ipc-server="+c.socket)...)
	if err := c.proc.Start(); err != nil {
		return fmt.Errorf("mpv: start: %w", err)
	}
	return c.dialLocked()
}

// Dial connects to an already running mpv.
func (c *Client) Dial() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dialLocked()
}

func (c *Client) dialLocked() error {
	var err error
	for i := 0; i <= dialRetries; i++ {
		c.conn, err = net.Dial("unix", c.socket)
		if err == nil {
			c.log.Info().Str("socket", c.socket).Msg("mpv connected")
			return nil
		}
		time.Sleep(dialInterval)
	}
	return fmt.Errorf("mpv: connect %s: %w", c.socket, err)
}

// Close disconnects and kills the process if this client started it.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	if c.conn != nil {
		errs = append(errs, c.conn.Close())
		c.conn = nil
	}
	if c.proc != nil && c.proc.Process != nil {
		errs = append(errs, c.proc.Process.Kill())
		_ = c.proc.Wait()
		c.proc = nil
		if err := os.Remove(c.socket); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Command sends {"command": args} terminated by a newline.
func (c *Client) Command(args ...any) error {
	b, err := json.Marshal(map[string]any{"command": args})
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return errors.New("mpv: not connected")
	}
	c.log.Debug().RawJSON("cmd", b).Msg("send")
	_, err = c.conn.Write(append(b, '\n'))
	return err
}

func (c *Client) LoadFile(url string) error { return c.Command("loadfile", url) }
func (c *Client) Stop() error               { return c.Command("stop") }
func (c *Client) SetPause(p bool) error     { return c.Command("set_property", "pause", p) }

// SetVolume takes a 0..100 dial value and applies it through the volume
// curve.
func (c *Client) SetVolume(v int) error {
	return c.Command("set_property", "volume", Curve(v))
}

func Curve(v int) int {
	if v < VolumeMin {
		v = VolumeMin
	} else if v > VolumeMax {
		v = VolumeMax
	}
	return volconv[v*(len(volconv)-1)/VolumeMax]
}

// Recv decodes replies until the connection closes, handing each to fn.
func (c *Client) Recv(fn func(Reply)) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.New("mpv: not connected")
	}
	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		var r Reply
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			c.log.Debug().Err(err).Msg("undecodable reply")
			continue
		}
		fn(r)
	}
	return sc.Err()
}
