// dabble-radio: a two knob DAB / internet radio with an AirPlay side door.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stianeikeland/go-rpio/v4"
	"golang.org/x/sync/errgroup"

	"github.com/sakaisatoru/go_dab_radio/audio"
	"github.com/sakaisatoru/go_dab_radio/config"
	"github.com/sakaisatoru/go_dab_radio/control"
	"github.com/sakaisatoru/go_dab_radio/fsm"
	"github.com/sakaisatoru/go_dab_radio/input"
	"github.com/sakaisatoru/go_dab_radio/lcd"
	"github.com/sakaisatoru/go_dab_radio/logparse"
	"github.com/sakaisatoru/go_dab_radio/mpv"
	"github.com/sakaisatoru/go_dab_radio/netctl"
	"github.com/sakaisatoru/go_dab_radio/player"
	"github.com/sakaisatoru/go_dab_radio/stations"
)

var configPath = flag.String("config", "", "settings file (yaml), defaults when empty")

func main() {
	flag.Parse()
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime}).
		With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Err(err).Msg("log level")
		lvl = zerolog.InfoLevel
	}
	log = log.Level(lvl)

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("radio")
	}
}

// openGPIO waits for /dev/gpiomem, which may show up late during boot.
func openGPIO(ctx context.Context, log zerolog.Logger) error {
	for {
		err := rpio.Open()
		if err == nil {
			return nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		log.Warn().Err(err).Msg("gpio not ready")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
		}
	}
}

func run(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	if cfg.Input.Driver == "rpio" || cfg.Audio.AmpPin != 0 || cfg.LCD.Enabled {
		if err := openGPIO(ctx, log); err != nil {
			return err
		}
		defer rpio.Close()
	}

	var (
		screen  control.Screen
		display *lcd.AQM0802A
		panel   *lcd.Panel
	)
	if cfg.LCD.Enabled {
		panel = lcd.NewPanel(cfg.LCD.ResetPin, cfg.LCD.BacklightPin)
		panel.Reset()
		panel.Backlight(true)
		d, closeBus, err := lcd.Open(cfg.LCD.Addr, cfg.LCD.Bus, log)
		if err != nil {
			return err
		}
		defer closeBus()
		if err := d.Configure(); err != nil {
			log.Error().Err(err).Msg("lcd configure")
		}
		display = d
		screen = lcd.NewScreen(d, lcd.Width)
		_ = screen.Draw("dabble", "radio", false)
	}
	progress := func(msg, sub string) {
		log.Info().Str("sub", sub).Msg(msg)
		if screen != nil {
			_ = screen.Draw(msg, sub, false)
		}
	}

	var (
		src    player.Source
		list   *stations.List
		client *mpv.Client
		watch  func() error
	)
	switch cfg.Player.Backend {
	case "internet":
		client = mpv.New(cfg.Player.MPVSocket, log)
		if err := client.Start(); err != nil {
			return err
		}
		defer client.Close()
		l, err := stations.LoadM3U(cfg.Player.Playlist)
		if err != nil {
			return err
		}
		list = l
		inet := player.NewInternet(client, list, log)
		src, watch = inet, inet.Watch
	default:
		l, err := stations.LoadJSON(cfg.Player.Stations)
		if err != nil {
			log.Warn().Err(err).Str("file", cfg.Player.Stations).Msg("no station list")
			l = stations.NewList()
		}
		list = l
		dab := player.NewDAB(list, player.DABOptions{
			PlayCommand:  cfg.Player.PlayCommand,
			ScanCommand:  cfg.Player.ScanCommand,
			ScanTime:     cfg.Player.ScanTime,
			Multiplexes:  cfg.Player.Multiplexes,
			ScanDir:      cfg.Player.ScanDir,
			StationsFile: cfg.Player.Stations,
			Parser:       logparse.Options{PollInterval: cfg.Timing.ParserPoll},
		}, log)
		src = dab
		if list.Len() == 0 {
			if err := dab.Scan(ctx, progress); err != nil {
				return err
			}
		}
	}

	var mixer audio.Mixer
	if cfg.Audio.Mixer == "mpv" {
		mixer = audio.MPVMixer{Client: client}
	} else {
		mixer = audio.NewAmixer(cfg.Audio.Card, cfg.Audio.Control)
	}
	var amp audio.Amp
	if cfg.Audio.AmpPin != 0 {
		amp = audio.NewAmpPin(cfg.Audio.AmpPin)
	}

	st, err := config.LoadState(cfg.StateFile)
	if err != nil {
		log.Warn().Err(err).Msg("state file unreadable, using defaults")
		st = config.DefaultState()
	}
	rt := control.NewRuntime(log)
	rt.Restore(st)
	sink := audio.NewSink(mixer, amp, st.Volume, log)

	var remote control.Remote
	if cfg.Shairport.Enabled {
		sp, err := netctl.DialShairport(log)
		if err != nil {
			log.Warn().Err(err).Msg("shairport-sync not reachable")
		} else {
			defer sp.Close()
			remote = sp
		}
	}

	d := control.NewDispatcher(rt, src, sink, list, remote, control.Options{
		MenuTimeout:    cfg.Timing.MenuTimeout,
		StationConfirm: cfg.Timing.StationConfirm,
		VolumeStep:     cfg.VolumeStep,
	}, log)
	d.SyncMenus()
	if err := d.Start(); err != nil {
		log.Error().Err(err).Msg("start")
	}

	if cfg.MQTT.Broker != "" {
		sub := netctl.NewSubscriber(netctl.Options{
			Broker:         cfg.MQTT.Broker,
			Topic:          cfg.MQTT.Topic,
			ClientPrefix:   cfg.MQTT.ClientPrefix,
			ConnectTimeout: cfg.MQTT.ConnectTimeout,
		}, d, log)
		if err := sub.Connect(); err != nil {
			log.Warn().Err(err).Msg("mqtt unavailable, local control only")
		}
		defer sub.Close()
	}

	if watch != nil {
		// returns when mpv is closed at shutdown
		go func() {
			if err := watch(); err != nil {
				log.Debug().Err(err).Msg("mpv watch ends")
			}
		}()
	}

	var in input.Source
	if cfg.Input.Driver == "cdev" {
		in = input.NewCdev(cfg.Input.Chip, cfg.Input.Left, cfg.Input.Right, cfg.Input.Options(), log)
	} else {
		in = input.NewRPIO(cfg.Input.Left, cfg.Input.Right, cfg.Input.Options(), log)
	}
	renderer := control.NewRenderer(rt, src, screen, control.RenderOptions{
		Frame:       cfg.Timing.Frame,
		MessageFlip: cfg.Timing.MessageFlip,
	}, log)

	events := make(chan input.Event, 16)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return in.Run(gctx, events) })
	g.Go(func() error { return input.Dispatch(gctx, events, d) })
	g.Go(func() error { return renderer.Run(gctx) })
	log.Info().Str("backend", cfg.Player.Backend).Int("stations", list.Len()).Msg("radio running")
	runErr := g.Wait()

	log.Info().Msg("shutting down")
	d.Close()
	saved := rt.Persist()
	if rt.Machine.Mode() == fsm.Radio && src.Playing() != "" {
		saved.StationName, saved.Ensemble = src.Playing(), src.Ensemble()
	}
	if err := src.Close(); err != nil {
		log.Warn().Err(err).Msg("stop player")
	}
	if err := config.SaveState(cfg.StateFile, saved); err != nil {
		log.Error().Err(err).Msg("save state")
	}
	if amp != nil {
		amp.Disable()
	}
	if display != nil {
		_ = display.Clear()
		_ = display.DisplayOff()
	}
	if panel != nil {
		panel.Backlight(false)
	}
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}
