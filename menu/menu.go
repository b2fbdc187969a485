// Package menu is a single level, cyclic menu of named actions.
// Nesting is not supported.
package menu

import (
	"sync"

	"github.com/rs/zerolog"
)

type Item struct {
	ID    string
	Label string
	State string // "On"/"Off", a value, or empty for plain actions
}

// Display is what the item should be drawn as: "label: state" or "label".
func (i Item) Display() string {
	if i.State != "" {
		return i.Label + ": " + i.State
	}
	return i.Label
}

type entry struct {
	item    Item
	action  func() error
	refresh func() string
}

type Menu struct {
	name string
	log  zerolog.Logger

	mu      sync.Mutex
	entries []*entry
	byID    map[string]*entry
	last    *entry
	index   int
}

func New(name string, log zerolog.Logger) *Menu {
	return &Menu{
		name: name,
		log:  log.With().Str("menu", name).Logger(),
		byID: make(map[string]*entry),
	}
}

func (m *Menu) Name() string { return m.name }

// Add appends an item. Adding an id that already exists only makes it the
// target of the next Action/Refresh call.
func (m *Menu) Add(id, label, initial string) *Menu {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.byID[id]; ok {
		m.last = e
		return m
	}
	if label == "" {
		label = id
	}
	e := &entry{item: Item{ID: id, Label: label, State: initial}}
	m.entries = append(m.entries, e)
	m.byID[id] = e
	m.last = e
	return m
}

// Action binds fn to the most recently added item, replacing an earlier
// binding.
func (m *Menu) Action(fn func() error) *Menu {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last == nil {
		m.log.Warn().Msg("action bound before any item")
		return m
	}
	if m.last.action != nil {
		m.log.Debug().Str("item", m.last.item.ID).Msg("action rebound")
	}
	m.last.action = fn
	return m
}

// Refresh binds a function recomputing the state text of the most recently
// added item.
func (m *Menu) Refresh(fn func() string) *Menu {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last != nil {
		m.last.refresh = fn
	}
	return m
}

func (m *Menu) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// First resets the cursor and returns the first item. ok is false for an
// empty menu.
func (m *Menu) First() (Item, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) == 0 {
		return Item{}, false
	}
	m.index = 0
	return m.entries[0].item, true
}

func (m *Menu) Current() (Item, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) == 0 {
		return Item{}, false
	}
	return m.entries[m.index].item, true
}

func (m *Menu) Next() (Item, bool)     { return m.step(1) }
func (m *Menu) Previous() (Item, bool) { return m.step(-1) }

func (m *Menu) step(d int) (Item, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.entries)
	if n == 0 {
		return Item{}, false
	}
	m.index = ((m.index+d)%n + n) % n
	it := m.entries[m.index].item
	m.log.Debug().Str("item", it.ID).Msg("menu selected")
	return it, true
}

// Index is the cursor position.
func (m *Menu) Index() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index
}

// Items returns a copy of all items in navigation order.
func (m *Menu) Items() []Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Item, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.item
	}
	return out
}

// RunAction runs the bound action of it. When the item has a refresh
// function, every item with one has its state recomputed.
// Actions and refresh functions run without the menu lock held.
func (m *Menu) RunAction(it Item) error {
	id := it.ID
	m.mu.Lock()
	e, ok := m.byID[id]
	if !ok {
		m.mu.Unlock()
		m.log.Warn().Str("item", id).Msg("no such menu item")
		return nil
	}
	action, hasRefresh := e.action, e.refresh != nil
	m.mu.Unlock()

	var err error
	if action != nil {
		m.log.Info().Str("item", id).Msg("running action")
		err = action()
	}
	if hasRefresh {
		m.refreshAll()
	}
	return err
}

func (m *Menu) refreshAll() {
	m.mu.Lock()
	type job struct {
		e  *entry
		fn func() string
	}
	var jobs []job
	for _, e := range m.entries {
		if e.refresh != nil {
			jobs = append(jobs, job{e, e.refresh})
		}
	}
	m.mu.Unlock()

	states := make([]string, len(jobs))
	for i, j := range jobs {
		states[i] = j.fn()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, j := range jobs {
		j.e.item.State = states[i]
		m.log.Debug().Str("item", j.e.item.ID).Str("state", states[i]).Msg("state updated")
	}
}

// Sync recomputes every bound state without running an action.
func (m *Menu) Sync() { m.refreshAll() }

// OnOff formats a flag the way menu items show it.
func OnOff(b bool) string {
	if b {
		return "On"
	}
	return "Off"
}
