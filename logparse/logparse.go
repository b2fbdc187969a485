// Package logparse turns the decoder's stderr into typed, dirty tracked
// fields.
//
// Two goroutines cooperate: Read copies lines from the stream onto a
// bounded queue and Run pops them, matches them against an ordered set of
// patterns and records the first match. The consumer (the render loop) reads
// the fields through Get or Poll, which clear the dirty flags.
package logparse

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

type Field int

const (
	DABType Field = iota
	ProgrammeType
	PADLabel
	MediaFormat
	NumFields
)

var fieldNames = [NumFields]string{"dab_type", "prog_type", "pad_label", "media_fmt"}

func (f Field) String() string {
	if f < 0 || f >= NumFields {
		return fmt.Sprintf("field(%d)", int(f))
	}
	return fieldNames[f]
}

// Update is the latest value of one field. Dirty is true iff the value
// changed since the consumer last read it.
type Update struct {
	Value string
	Dirty bool
}

// Updates holds one Update per Field.
type Updates [NumFields]Update

// Set records v for f. The dirty flag is set when v differs from the stored
// value and cleared when the same value is observed again.
func (u *Updates) Set(f Field, v string) bool {
	if f < 0 || f >= NumFields {
		return false
	}
	changed := u[f].Value != v
	u[f].Value = v
	u[f].Dirty = changed
	return changed
}

// Take returns f and clears its dirty flag.
func (u *Updates) Take(f Field) Update {
	if f < 0 || f >= NumFields {
		return Update{}
	}
	v := u[f]
	u[f].Dirty = false
	return v
}

func (u *Updates) IsDirty(f Field) bool {
	return f >= 0 && f < NumFields && u[f].Dirty
}

type Pattern struct {
	Field Field
	Re    *regexp.Regexp
}

// DablinPatterns are the dablin stderr lines of interest for service sid.
// Each pattern captures the value in the group named v.
//
//	FICDecoder: SId 0xC4CD: audio service (SubChId 17, DAB+, primary)
//	FICDecoder: SId 0xC4CD: programme type (static): 'Rock Music'
//	PADChangeDynamicLabel SId 0xC4CD Label:'Radio X - Get Into the Music'
//	EnsemblePlayer: format: HE-AAC v2, 48 kHz Stereo @ 64 kBit/s
func DablinPatterns(sid string) []Pattern {
	q := regexp.QuoteMeta(sid)
	return []Pattern{
		{DABType, regexp.MustCompile(`(?i)FICDecoder: SId ` + q + `: audio service \(SubChId\s+\d+, (?P<v>.*), primary\)`)},
		{ProgrammeType, regexp.MustCompile(`(?i)^FICDecoder: SId ` + q + `: programme type \(static\): '(?P<v>.*)'`)},
		{PADLabel, regexp.MustCompile(`(?i)^PADChangeDynamicLabel SId ` + q + ` Label:'(?P<v>.+)'`)},
		{MediaFormat, regexp.MustCompile(`(?i)^EnsemblePlayer: format: (?P<v>.*)`)},
	}
}

const (
	DefaultMaxLine      = 200
	DefaultQueueSize    = 256
	DefaultPollInterval = 100 * time.Millisecond
)

type Options struct {
	MaxLine      int
	QueueSize    int
	PollInterval time.Duration
}

func (o *Options) defaults() {
	if o.MaxLine <= 0 {
		o.MaxLine = DefaultMaxLine
	}
	if o.QueueSize <= 0 {
		o.QueueSize = DefaultQueueSize
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
}

type line struct {
	text     string
	overflow bool
}

type Parser struct {
	patterns []Pattern
	opts     Options
	log      zerolog.Logger

	q        chan line
	stop     chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	updates Updates

	lines      atomic.Uint64
	recvErrors atomic.Uint64
}

func New(patterns []Pattern, opts Options, log zerolog.Logger) *Parser {
	opts.defaults()
	return &Parser{
		patterns: patterns,
		opts:     opts,
		log:      log.With().Str("component", "logparse").Logger(),
		q:        make(chan line, opts.QueueSize),
		stop:     make(chan struct{}),
	}
}

// Read copies lines from r onto the queue until r is closed or fails.
// A line longer than MaxLine is cut to MaxLine bytes, the rest of it is
// dropped, and it is queued once flagged as a reception error. Once the
// parser is stopped lines are drained and discarded so the writer on the
// other end never blocks.
func (p *Parser) Read(r io.Reader) error {
	br := bufio.NewReaderSize(r, p.opts.MaxLine)
	p.log.Info().Msg("log reader starts")
	defer p.log.Info().Msg("log reader ends")
	for {
		text, n, err := p.readLine(br)
		if err == nil || n > 0 {
			p.push(line{text: text, overflow: n > p.opts.MaxLine})
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, os.ErrClosed) {
				return nil
			}
			return err
		}
	}
}

// readLine returns the next line cut to MaxLine bytes and its full length.
func (p *Parser) readLine(br *bufio.Reader) (string, int, error) {
	var (
		buf []byte
		n   int
	)
	for {
		chunk, isPrefix, err := br.ReadLine()
		n += len(chunk)
		if room := p.opts.MaxLine - len(buf); room > 0 {
			buf = append(buf, chunk[:min(room, len(chunk))]...)
		}
		if err != nil || !isPrefix {
			return string(buf), n, err
		}
	}
}

func (p *Parser) push(l line) {
	select {
	case p.q <- l:
	case <-p.stop:
	}
}

// Run is the parse loop. It returns once Stop is called, at the latest one
// poll interval later.
func (p *Parser) Run() {
	p.log.Info().Msg("log parser starts")
	defer p.log.Info().Msg("log parser ends")
	for {
		select {
		case <-p.stop:
			return
		default:
		}
		select {
		case l := <-p.q:
			p.handle(l)
		default:
			select {
			case <-p.stop:
				return
			case <-time.After(p.opts.PollInterval):
			}
		}
	}
}

func (p *Parser) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
}

// Stopped is closed when Stop has been called.
func (p *Parser) Stopped() <-chan struct{} { return p.stop }

func (p *Parser) handle(l line) {
	p.lines.Add(1)
	if l.overflow {
		p.recvErrors.Add(1)
		p.log.Error().Str("line", l.text).Msg("buffer overflowed, possible reception errors")
	}
	f, v, ok := p.match(l.text)
	if !ok {
		return
	}
	p.mu.Lock()
	changed := p.updates.Set(f, v)
	p.mu.Unlock()
	if changed {
		p.log.Debug().Str("field", f.String()).Str("value", v).Msg("field updated")
	}
}

func (p *Parser) match(s string) (Field, string, bool) {
	for _, pt := range p.patterns {
		m := pt.Re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		if i := pt.Re.SubexpIndex("v"); i > 0 && i < len(m) {
			return pt.Field, m[i], true
		}
		return pt.Field, "", true
	}
	return 0, "", false
}

// Get returns field f and clears its dirty flag.
func (p *Parser) Get(f Field) Update {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.updates.Take(f)
}

// Poll returns all fields at once and clears every dirty flag.
func (p *Parser) Poll() Updates {
	p.mu.Lock()
	defer p.mu.Unlock()
	u := p.updates
	for f := Field(0); f < NumFields; f++ {
		p.updates[f].Dirty = false
	}
	return u
}

func (p *Parser) Lines() uint64      { return p.lines.Load() }
func (p *Parser) RecvErrors() uint64 { return p.recvErrors.Load() }
