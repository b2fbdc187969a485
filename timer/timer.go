// Package timer provides PeriodicTask, the re-arming one-shot timer used for
// debounce and inactivity timeouts.
//
// A task fires its callback after Interval, then arms itself again with the
// same interval until Terminate is called. Every arm gets a new generation
// number; an expiry whose generation is stale is dropped, so a Reset racing
// an expiry never produces a second callback for the same interval.
package timer

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type PeriodicTask struct {
	name     string
	interval time.Duration
	callback func()
	log      zerolog.Logger

	mu         sync.Mutex
	t          *time.Timer
	gen        uint64
	started    bool
	terminated bool
	inFlight   bool
}

// New returns an unarmed task. Call Run to start it.
func New(name string, interval time.Duration, callback func(), log zerolog.Logger) *PeriodicTask {
	return &PeriodicTask{
		name:     name,
		interval: interval,
		callback: callback,
		log:      log.With().Str("timer", name).Logger(),
	}
}

func (p *PeriodicTask) Name() string            { return p.name }
func (p *PeriodicTask) Interval() time.Duration { return p.interval }

// Run arms the task. Only the first call has an effect.
func (p *PeriodicTask) Run() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.terminated {
		return
	}
	p.started = true
	p.armLocked()
}

// Reset restarts the countdown from zero without invoking the callback.
func (p *PeriodicTask) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started || p.terminated {
		return
	}
	p.stopLocked()
	p.armLocked()
}

// Terminate stops the task. The callback currently running, if any, is
// allowed to finish but the task will not fire again. It may be called from
// the task's own callback.
func (p *PeriodicTask) Terminate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.terminated {
		return
	}
	p.terminated = true
	p.stopLocked()
	p.gen++
	p.log.Debug().Msg("timer terminated")
}

// Running reports whether the task is armed or its callback is executing.
func (p *PeriodicTask) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started && (!p.terminated || p.inFlight)
}

func (p *PeriodicTask) armLocked() {
	p.gen++
	gen := p.gen
	p.t = time.AfterFunc(p.interval, func() { p.fire(gen) })
}

func (p *PeriodicTask) stopLocked() {
	if p.t != nil {
		p.t.Stop()
		p.t = nil
	}
}

func (p *PeriodicTask) fire(gen uint64) {
	p.mu.Lock()
	if gen != p.gen || p.terminated {
		p.mu.Unlock()
		return
	}
	p.inFlight = true
	p.t = nil
	p.mu.Unlock()

	p.log.Debug().Msg("timer callback firing")
	p.callback()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.inFlight = false
	switch {
	case p.terminated:
		p.log.Debug().Msg("timer ends")
	case gen != p.gen:
		// reset while the callback ran; already re-armed
	default:
		p.log.Debug().Dur("interval", p.interval).Msg("timer re-arming")
		p.armLocked()
	}
}
