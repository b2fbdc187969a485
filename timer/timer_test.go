package timer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestFiresAndRearms(t *testing.T) {
	var n atomic.Int32
	p := New("repeat", 20*time.Millisecond, func() { n.Add(1) }, zerolog.Nop())
	p.Run()
	defer p.Terminate()

	deadline := time.After(time.Second)
	for n.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 3 callbacks, got %d", n.Load())
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
}

func TestResetPostponesCallback(t *testing.T) {
	var n atomic.Int32
	p := New("reset", 150*time.Millisecond, func() { n.Add(1) }, zerolog.Nop())
	p.Run()
	defer p.Terminate()

	for i := 0; i < 5; i++ {
		time.Sleep(30 * time.Millisecond)
		p.Reset()
	}
	if got := n.Load(); got != 0 {
		t.Fatalf("callback fired %d times while being reset", got)
	}

	time.Sleep(300 * time.Millisecond)
	if got := n.Load(); got < 1 {
		t.Fatalf("callback did not fire after resets stopped")
	}
}

func TestTerminateStopsFurtherCallbacks(t *testing.T) {
	var n atomic.Int32
	p := New("term", 15*time.Millisecond, func() { n.Add(1) }, zerolog.Nop())
	p.Run()
	time.Sleep(40 * time.Millisecond)
	p.Terminate()
	after := n.Load()
	time.Sleep(60 * time.Millisecond)
	if got := n.Load(); got != after {
		t.Fatalf("callbacks after terminate: before=%d after=%d", after, got)
	}
	if p.Running() {
		t.Fatal("terminated task still reports running")
	}
}

func TestTerminateFromOwnCallback(t *testing.T) {
	var n atomic.Int32
	var p *PeriodicTask
	done := make(chan struct{})
	p = New("self", 10*time.Millisecond, func() {
		n.Add(1)
		p.Terminate()
		close(done)
	}, zerolog.Nop())
	p.Run()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("callback never ran")
	}
	time.Sleep(40 * time.Millisecond)
	if got := n.Load(); got != 1 {
		t.Fatalf("expected exactly one callback, got %d", got)
	}
}

func TestResetAndTerminateAreNoOpsWhenStopped(t *testing.T) {
	var n atomic.Int32
	p := New("noop", 10*time.Millisecond, func() { n.Add(1) }, zerolog.Nop())

	// never armed
	p.Reset()
	p.Terminate()
	p.Terminate()
	p.Reset()
	p.Run()

	time.Sleep(40 * time.Millisecond)
	if got := n.Load(); got != 0 {
		t.Fatalf("stopped task fired %d times", got)
	}
}

func TestResetRacingExpiryFiresOncePerInterval(t *testing.T) {
	var n atomic.Int32
	release := make(chan struct{})
	p := New("race", 10*time.Millisecond, func() {
		n.Add(1)
		<-release
	}, zerolog.Nop())
	p.Run()

	// wait for the first callback to be in flight, then reset under it
	deadline := time.After(time.Second)
	for n.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("callback never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	p.Reset()
	p.Reset()
	p.Terminate()
	close(release)

	time.Sleep(50 * time.Millisecond)
	if got := n.Load(); got != 1 {
		t.Fatalf("expected one callback, got %d", got)
	}
}
