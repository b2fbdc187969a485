// Package config holds the radio's settings file (YAML) and the state it
// persists between runs (JSON).
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sakaisatoru/go_dab_radio/input"
)

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	LogLevel   string `yaml:"log_level"`
	StateFile  string `yaml:"state_file"`
	VolumeStep int    `yaml:"volume_step"`

	Timing    TimingConfig    `yaml:"timing"`
	Input     InputConfig     `yaml:"input"`
	LCD       LCDConfig       `yaml:"lcd"`
	Player    PlayerConfig    `yaml:"player"`
	Audio     AudioConfig     `yaml:"audio"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Shairport ShairportConfig `yaml:"shairport"`
}

type TimingConfig struct {
	MenuTimeout    time.Duration `yaml:"menu_timeout"`
	StationConfirm time.Duration `yaml:"station_confirm"`
	Frame          time.Duration `yaml:"frame"`
	ParserPoll     time.Duration `yaml:"parser_poll"`
	MessageFlip    time.Duration `yaml:"message_flip"`
}

type InputConfig struct {
	Driver         string        `yaml:"driver"` // rpio or cdev
	Chip           string        `yaml:"chip"`
	Left           input.Pins    `yaml:"left"`
	Right          input.Pins    `yaml:"right"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	PressWidth     int           `yaml:"press_width"`
	Debounce       time.Duration `yaml:"debounce"`
	LongPress      time.Duration `yaml:"long_press"`
	StepsPerDetent int           `yaml:"steps_per_detent"`
}

func (c InputConfig) Options() input.Options {
	return input.Options{
		PollInterval:   c.PollInterval,
		PressWidth:     c.PressWidth,
		Debounce:       c.Debounce,
		LongPress:      c.LongPress,
		StepsPerDetent: c.StepsPerDetent,
	}
}

type LCDConfig struct {
	Enabled      bool  `yaml:"enabled"`
	Addr         uint8 `yaml:"addr"`
	Bus          int   `yaml:"bus"`
	ResetPin     int   `yaml:"reset_pin"`
	BacklightPin int   `yaml:"backlight_pin"`
}

type PlayerConfig struct {
	Backend     string   `yaml:"backend"` // dab or internet
	PlayCommand string   `yaml:"play_command"`
	ScanCommand string   `yaml:"scan_command"`
	ScanTime    int      `yaml:"scan_time"`
	Multiplexes []string `yaml:"multiplexes"`
	ScanDir     string   `yaml:"scan_dir"`
	Stations    string   `yaml:"stations"`
	Playlist    string   `yaml:"playlist"`
	MPVSocket   string   `yaml:"mpv_socket"`
}

type AudioConfig struct {
	Mixer   string `yaml:"mixer"` // mpv or amixer
	Card    string `yaml:"card"`
	Control string `yaml:"control"`
	AmpPin  int    `yaml:"amp_pin"` // 0 disables
}

type MQTTConfig struct {
	Broker         string        `yaml:"broker"` // empty runs local only
	Topic          string        `yaml:"topic"`
	ClientPrefix   string        `yaml:"client_prefix"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

type ShairportConfig struct {
	Enabled bool `yaml:"enabled"`
}

func Default() Config {
	return Config{
		LogLevel:   "info",
		StateFile:  "dabble_radio.json",
		VolumeStep: 2,
		Timing: TimingConfig{
			MenuTimeout:    8 * time.Second,
			StationConfirm: 4 * time.Second,
			Frame:          500 * time.Millisecond,
			ParserPoll:     100 * time.Millisecond,
			MessageFlip:    10 * time.Second,
		},
		Input: InputConfig{
			Driver:         "rpio",
			Chip:           "gpiochip0",
			Left:           input.Pins{A: 20, B: 21, Button: 16},
			Right:          input.Pins{A: 5, B: 6, Button: 13},
			PollInterval:   input.DefaultPollInterval,
			PressWidth:     input.DefaultPressWidth,
			Debounce:       input.DefaultDebounce,
			LongPress:      input.DefaultLongPress,
			StepsPerDetent: input.DefaultStepsPerDetent,
		},
		LCD: LCDConfig{
			Enabled:      true,
			Addr:         0x3e,
			Bus:          1,
			ResetPin:     17,
			BacklightPin: 4,
		},
		Player: PlayerConfig{
			Backend:     "dab",
			PlayCommand: "/usr/local/bin/dablin -D eti-cmdline -d eti-cmdline-rtlsdr -c $channel -s $sid -I",
			ScanCommand: "/usr/local/bin/eti-cmdline-rtlsdr -J -x -C $block -D $scantime",
			ScanTime:    8,
			Multiplexes: []string{"10B", "10C", "10D", "11A", "11B", "11C", "11D", "12A", "12B", "12C", "12D"},
			ScanDir:     ".",
			Stations:    "station-list.json",
			Playlist:    "radio.m3u",
			MPVSocket:   "/run/mpvsocket",
		},
		Audio: AudioConfig{
			Mixer:   "amixer",
			Control: "PCM",
			AmpPin:  12,
		},
		MQTT: MQTTConfig{
			Broker:         "tcp://localhost:1883",
			Topic:          "dabble-radio/#",
			ClientPrefix:   "dabble-radio",
			ConnectTimeout: 5 * time.Second,
		},
		Shairport: ShairportConfig{Enabled: true},
	}
}

// Load reads path over the defaults. An empty path gives the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
		}
	}
	t := c.Timing
	check(t.MenuTimeout > 0, "timing.menu_timeout must be positive")
	check(t.StationConfirm > 0, "timing.station_confirm must be positive")
	check(t.Frame > 0, "timing.frame must be positive")
	check(t.ParserPoll > 0, "timing.parser_poll must be positive")
	check(c.VolumeStep > 0 && c.VolumeStep <= 50, "volume_step %d out of 1..50", c.VolumeStep)
	check(c.Input.Driver == "rpio" || c.Input.Driver == "cdev", "input.driver %q is not rpio or cdev", c.Input.Driver)
	check(c.Player.Backend == "dab" || c.Player.Backend == "internet", "player.backend %q is not dab or internet", c.Player.Backend)
	check(c.Audio.Mixer == "mpv" || c.Audio.Mixer == "amixer", "audio.mixer %q is not mpv or amixer", c.Audio.Mixer)
	if c.Player.Backend == "dab" {
		check(c.Player.PlayCommand != "", "player.play_command is empty")
		check(c.Player.Stations != "", "player.stations is empty")
	} else {
		check(c.Player.Playlist != "", "player.playlist is empty")
	}
	if c.Audio.Mixer == "mpv" {
		check(c.Player.Backend == "internet", "audio.mixer mpv needs the internet backend")
	}
	check(c.StateFile != "", "state_file is empty")
	return errors.Join(errs...)
}
