package menu

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func build(n int) *Menu {
	m := New("test", zerolog.Nop())
	for i := 0; i < n; i++ {
		id := string(rune('a' + i))
		m.Add(id, "", "")
	}
	return m
}

func TestCyclicNavigation(t *testing.T) {
	m := build(3)
	if it, _ := m.First(); it.ID != "a" {
		t.Fatalf("first = %s", it.ID)
	}
	if it, _ := m.Previous(); it.ID != "c" {
		t.Fatalf("previous from first = %s, want c", it.ID)
	}
	if it, _ := m.Next(); it.ID != "a" {
		t.Fatalf("next from last = %s, want a", it.ID)
	}
	m.Next()
	m.Next()
	if it, _ := m.Next(); it.ID != "a" {
		t.Fatalf("wrap forward = %s", it.ID)
	}
}

func TestRoundTripLaw(t *testing.T) {
	for size := 1; size <= 5; size++ {
		for n := 0; n <= 12; n++ {
			m := build(size)
			m.First()
			for i := 0; i < size/2; i++ {
				m.Next()
			}
			start, _ := m.Current()
			for i := 0; i < n; i++ {
				m.Next()
			}
			for i := 0; i < n; i++ {
				m.Previous()
			}
			if got, _ := m.Current(); got.ID != start.ID {
				t.Errorf("size %d n %d: next/previous ended on %s, want %s", size, n, got.ID, start.ID)
			}
			for i := 0; i < n; i++ {
				m.Previous()
			}
			for i := 0; i < n; i++ {
				m.Next()
			}
			if got, _ := m.Current(); got.ID != start.ID {
				t.Errorf("size %d n %d: previous/next ended on %s, want %s", size, n, got.ID, start.ID)
			}
		}
	}
}

func TestEmptyMenu(t *testing.T) {
	m := New("empty", zerolog.Nop())
	if _, ok := m.First(); ok {
		t.Fatal("first on empty menu")
	}
	if _, ok := m.Next(); ok {
		t.Fatal("next on empty menu")
	}
	if _, ok := m.Previous(); ok {
		t.Fatal("previous on empty menu")
	}
}

func TestDisplay(t *testing.T) {
	cases := []struct {
		it   Item
		want string
	}{
		{Item{Label: "Levels", State: "On"}, "Levels: On"},
		{Item{Label: "Scan"}, "Scan"},
	}
	for _, c := range cases {
		if got := c.it.Display(); got != c.want {
			t.Errorf("Display() = %q, want %q", got, c.want)
		}
	}
}

func TestAddKeepsInsertionOrderAndDefaultsLabel(t *testing.T) {
	m := New("order", zerolog.Nop())
	m.Add("z", "Zed", "").Add("a", "", "Off").Add("z", "ignored", "")
	items := m.Items()
	if len(items) != 2 || items[0].ID != "z" || items[1].ID != "a" {
		t.Fatalf("items = %+v", items)
	}
	if items[1].Label != "a" || items[1].Display() != "a: Off" {
		t.Fatalf("label default: %+v", items[1])
	}
}

func TestRunActionRefreshesSiblings(t *testing.T) {
	visualiser := "equaliser"
	levels := true
	m := New("left", zerolog.Nop())
	m.Add("waveform", "Waveform", "Off").
		Action(func() error { visualiser = "waveform"; return nil }).
		Refresh(func() string { return OnOff(visualiser == "waveform") })
	m.Add("equaliser", "Equaliser", "On").
		Action(func() error { visualiser = "equaliser"; return nil }).
		Refresh(func() string { return OnOff(visualiser == "equaliser") })
	m.Add("levels", "Levels", "On").
		Action(func() error { levels = !levels; return nil }).
		Refresh(func() string { return OnOff(levels) })

	first, _ := m.First()
	if err := m.RunAction(first); err != nil {
		t.Fatal(err)
	}
	items := m.Items()
	if items[0].State != "On" || items[1].State != "Off" {
		t.Fatalf("visualiser states not consistent: %+v", items)
	}

	if err := m.RunAction(items[2]); err != nil {
		t.Fatal(err)
	}
	if levels || m.Items()[2].State != "Off" {
		t.Fatalf("levels not toggled: %v %+v", levels, m.Items()[2])
	}
}

func TestRunActionWithoutRefreshReturnsError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	m := New("right", zerolog.Nop())
	m.Add("scan", "Scan", "").Action(func() error { calls++; return boom })
	m.Add("other", "Other", "x").Refresh(func() string { calls += 100; return "y" })

	it, _ := m.First()
	if err := m.RunAction(it); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if calls != 1 {
		t.Fatalf("refresh ran for an item without one: calls=%d", calls)
	}
	if err := m.RunAction(Item{ID: "missing"}); err != nil {
		t.Fatalf("missing item: %v", err)
	}
}

func TestActionRebinds(t *testing.T) {
	var got string
	m := New("test", zerolog.Nop())
	m.Add("mode", "Mode", "").Action(func() error { got = "first"; return nil })
	m.Add("mode", "", "").Action(func() error { got = "second"; return nil })
	it, _ := m.First()
	if err := m.RunAction(it); err != nil {
		t.Fatal(err)
	}
	if got != "second" || m.Len() != 1 {
		t.Fatalf("ran %q, items %d", got, m.Len())
	}
}
