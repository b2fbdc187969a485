package input

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sakaisatoru/go_dab_radio/fsm"
)

// gray code sequence for one clockwise cycle, as (a, b)
var cw = [][2]bool{{false, true}, {true, true}, {true, false}, {false, false}}

func TestDecoderDirections(t *testing.T) {
	d := Decoder{PerDetent: 1}
	d.Update(false, false)
	total := 0
	for _, s := range cw {
		total += d.Update(s[0], s[1])
	}
	if total != 4 {
		t.Fatalf("clockwise cycle = %d, want 4", total)
	}
	total = 0
	for i := len(cw) - 2; i >= 0; i-- {
		total += d.Update(cw[i][0], cw[i][1])
	}
	total += d.Update(false, false)
	if total != -4 {
		t.Fatalf("counter clockwise cycle = %d, want -4", total)
	}
}

func TestDecoderDetentsAndNoise(t *testing.T) {
	d := Decoder{PerDetent: 4}
	d.Update(false, false)
	var steps []int
	for i := 0; i < 2; i++ {
		for _, s := range cw {
			if n := d.Update(s[0], s[1]); n != 0 {
				steps = append(steps, n)
			}
		}
	}
	if len(steps) != 2 || steps[0] != 1 || steps[1] != 1 {
		t.Fatalf("steps = %v, want [1 1]", steps)
	}
	// repeated samples and an illegal jump move nothing
	if d.Update(false, false) != 0 || d.Update(true, true) != 0 {
		t.Fatal("noise moved the dial")
	}
}

func TestButtonPressWidth(t *testing.T) {
	cases := []struct {
		name string
		hold int
		want Press
	}{
		{"bounce", 2, NoPress},
		{"at width", 6, NoPress},
		{"press", 7, ShortPress},
		{"just short of long", 40, ShortPress},
		{"long", 41, LongPress},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			b := Button{Width: 5, Long: 40}
			for i := 0; i < c.hold; i++ {
				if b.Update(true) != NoPress {
					t.Fatal("fired while held")
				}
			}
			if got := b.Update(false); got != c.want {
				t.Fatalf("release = %v, want %v", got, c.want)
			}
			if b.Update(false) != NoPress {
				t.Fatal("fired twice")
			}
		})
	}
}

func TestCdevButtonTimesHold(t *testing.T) {
	var got []Event
	b := &cdevButton{side: fsm.Right, long: 800 * time.Millisecond, emit: func(ev Event) { got = append(got, ev) }}
	edge := func(rising bool, at time.Duration) {
		typ := gpiocdev.LineEventFallingEdge
		if rising {
			typ = gpiocdev.LineEventRisingEdge
		}
		b.edge(gpiocdev.LineEvent{Type: typ, Timestamp: at})
	}
	edge(true, 0) // release without a press
	edge(false, time.Second)
	edge(true, time.Second+100*time.Millisecond)
	edge(false, 2*time.Second)
	edge(true, 3*time.Second)

	want := []Event{
		{Side: fsm.Right, Press: true},
		{Side: fsm.Right, Press: true, Long: true},
	}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("events = %+v", got)
	}
}

func TestCdevEncoderFollowsEdges(t *testing.T) {
	var mu sync.Mutex
	var got []Event
	enc := &cdevEncoder{
		side: fsm.Left,
		emit: func(ev Event) { mu.Lock(); got = append(got, ev); mu.Unlock() },
		dec:  Decoder{PerDetent: 4},
	}
	enc.prime(false, false)
	edge := func(rising bool) gpiocdev.LineEvent {
		if rising {
			return gpiocdev.LineEvent{Type: gpiocdev.LineEventRisingEdge}
		}
		return gpiocdev.LineEvent{Type: gpiocdev.LineEventFallingEdge}
	}
	// clockwise: B rises, A rises, B falls, A falls
	enc.edge(false, edge(true))
	enc.edge(true, edge(true))
	enc.edge(false, edge(false))
	enc.edge(true, edge(false))

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != (Event{Side: fsm.Left, Delta: 1}) {
		t.Fatalf("events = %+v", got)
	}
}

type recorder struct {
	mu      sync.Mutex
	rotates []int
	presses []fsm.Side
	longs   []fsm.Side
}

func (r *recorder) Rotate(_ fsm.Side, d int) { r.mu.Lock(); r.rotates = append(r.rotates, d); r.mu.Unlock() }
func (r *recorder) Press(s fsm.Side)         { r.mu.Lock(); r.presses = append(r.presses, s); r.mu.Unlock() }
func (r *recorder) LongPress(s fsm.Side)     { r.mu.Lock(); r.longs = append(r.longs, s); r.mu.Unlock() }

func TestDispatch(t *testing.T) {
	ch := make(chan Event, 4)
	ch <- Event{Side: fsm.Right, Delta: -2}
	ch <- Event{Side: fsm.Left, Press: true}
	ch <- Event{Side: fsm.Right, Press: true, Long: true}
	ch <- Event{Side: fsm.Left}
	close(ch)

	r := &recorder{}
	done := make(chan error, 1)
	go func() { done <- Dispatch(context.Background(), ch, r) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(time.Second):
		t.Fatal("dispatch did not return on close")
	}
	if len(r.rotates) != 1 || r.rotates[0] != -2 {
		t.Errorf("rotates = %v", r.rotates)
	}
	if len(r.presses) != 1 || r.presses[0] != fsm.Left {
		t.Errorf("presses = %v", r.presses)
	}
	if len(r.longs) != 1 || r.longs[0] != fsm.Right {
		t.Errorf("long presses = %v", r.longs)
	}
}
