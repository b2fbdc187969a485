package player

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/google/shlex"
	"github.com/rs/zerolog"

	"github.com/sakaisatoru/go_dab_radio/logparse"
	"github.com/sakaisatoru/go_dab_radio/stations"
)

const stopGrace = time.Second

type DABOptions struct {
	PlayCommand  string // $channel and $sid are substituted
	ScanCommand  string // $block and $scantime are substituted
	ScanTime     int
	Multiplexes  []string
	ScanDir      string // where the scanner leaves ensemble-ch-<block>.json
	StationsFile string
	Parser       logparse.Options
}

// DAB plays services through dablin and feeds its stderr to a log parser.
type DAB struct {
	opts DABOptions
	list *stations.List
	log  zerolog.Logger

	mu       sync.Mutex
	cmd      *exec.Cmd
	parser   *logparse.Parser
	done     chan struct{}
	playing  string
	ensemble string
}

func NewDAB(list *stations.List, opts DABOptions, log zerolog.Logger) *DAB {
	if opts.ScanDir == "" {
		opts.ScanDir = "."
	}
	return &DAB{opts: opts, list: list, log: log.With().Str("component", "dab").Logger()}
}

func (d *DAB) Play(name string) error {
	st, err := d.list.Lookup(name)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()

	line := expand(d.opts.PlayCommand, map[string]string{"channel": st.Channel, "sid": st.SID})
	args, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("dab: play command %q: %w", line, err)
	}
	if len(args) == 0 {
		return errors.New("dab: empty play command")
	}
	cmd := exec.Command(args[0], args[1:]...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("dab: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("dab: start %s: %w", args[0], err)
	}

	p := logparse.New(logparse.DablinPatterns(st.SID), d.opts.Parser, d.log)
	done := make(chan struct{})
	go p.Run()
	go func() {
		defer close(done)
		if err := p.Read(stderr); err != nil {
			d.log.Warn().Err(err).Msg("decoder log")
		}
		// Wait only after stderr is drained
		if err := cmd.Wait(); err != nil {
			d.log.Info().Err(err).Str("station", name).Msg("decoder exited")
		}
	}()

	d.cmd, d.parser, d.done = cmd, p, done
	d.playing, d.ensemble = st.Name, st.Ensemble
	d.log.Info().Str("station", st.Name).Str("channel", st.Channel).Str("sid", st.SID).Msg("playing")
	return nil
}

func (d *DAB) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	return nil
}

func (d *DAB) stopLocked() {
	if d.cmd == nil {
		return
	}
	d.parser.Stop()
	if d.cmd.Process != nil {
		_ = d.cmd.Process.Signal(syscall.SIGTERM)
	}
	select {
	case <-d.done:
	case <-time.After(stopGrace):
		d.log.Warn().Msg("decoder ignored SIGTERM, killing")
		_ = d.cmd.Process.Kill()
		<-d.done
	}
	d.cmd, d.done = nil, nil
	d.log.Info().Str("station", d.playing).Msg("stopped")
}

func (d *DAB) Playing() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.playing
}

func (d *DAB) Ensemble() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ensemble
}

func (d *DAB) Poll() logparse.Updates {
	d.mu.Lock()
	p := d.parser
	d.mu.Unlock()
	if p == nil {
		return logparse.Updates{}
	}
	return p.Poll()
}

// RecvErrors counts overflowing decoder lines of the current play.
func (d *DAB) RecvErrors() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.parser == nil {
		return 0
	}
	return d.parser.RecvErrors()
}

func (d *DAB) Close() error { return d.Stop() }

// ensembleFile is what the scanner writes per multiplex block.
type ensembleFile struct {
	Ensemble string            `json:"ensemble"`
	Channel  string            `json:"channel"`
	Stations map[string]string `json:"stations"`
}

// Scan stops playback, runs the scanner over every multiplex block and
// replaces the station list with what it found. progress gets a headline
// and a detail line as the scan goes. The caller restarts playback.
func (d *DAB) Scan(ctx context.Context, progress func(msg, sub string)) error {
	if progress == nil {
		progress = func(string, string) {}
	}
	progress("Starting Scan", "")
	// the tuner cannot scan while dablin holds it
	if err := d.Stop(); err != nil {
		return err
	}

	blocks := append([]string(nil), d.opts.Multiplexes...)
	sort.Strings(blocks)
	found := map[string]stations.Station{}
	for _, block := range blocks {
		if err := ctx.Err(); err != nil {
			return err
		}
		progress("Scanning "+block, "")
		if err := d.scanBlock(ctx, block); err != nil {
			d.log.Warn().Err(err).Str("block", block).Msg("scan")
		}
		ens, err := readEnsemble(filepath.Join(d.opts.ScanDir, "ensemble-ch-"+block+".json"))
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				d.log.Warn().Err(err).Str("block", block).Msg("ensemble file")
			}
			progress("No stations", "")
			continue
		}
		progress("Done", fmt.Sprintf("%s %d stations", ens.Ensemble, len(ens.Stations)))
		names := make([]string, 0, len(ens.Stations))
		for n := range ens.Stations {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			key := n
			if _, dup := found[key]; dup {
				key = n + " " + ens.Ensemble
			}
			found[key] = stations.Station{Name: key, SID: ens.Stations[n], Ensemble: ens.Ensemble, Channel: ens.Channel}
		}
	}

	progress("Storing Data", "")
	ss := make([]stations.Station, 0, len(found))
	for _, s := range found {
		ss = append(ss, s)
	}
	if err := stations.SaveJSON(d.opts.StationsFile, ss); err != nil {
		return fmt.Errorf("dab: save stations: %w", err)
	}
	d.list.Replace(ss)
	progress(fmt.Sprintf("Found %d stations", d.list.Len()), "")
	d.log.Info().Int("stations", d.list.Len()).Msg("scan complete")
	return nil
}

func (d *DAB) scanBlock(ctx context.Context, block string) error {
	line := expand(d.opts.ScanCommand, map[string]string{
		"block":    block,
		"scantime": strconv.Itoa(d.opts.ScanTime),
	})
	args, err := shlex.Split(line)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return errors.New("empty scan command")
	}
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = d.opts.ScanDir
	if out, err := cmd.CombinedOutput(); err != nil {
		d.log.Debug().Bytes("output", out).Msg("scanner output")
		return err
	}
	return nil
}

func readEnsemble(path string) (ensembleFile, error) {
	var e ensembleFile
	b, err := os.ReadFile(path)
	if err != nil {
		return e, err
	}
	if err := json.Unmarshal(b, &e); err != nil {
		return e, fmt.Errorf("%s: %w", path, err)
	}
	return e, nil
}
