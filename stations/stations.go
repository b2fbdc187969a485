// Package stations is the station directory: the list of tunable services,
// sorted by name, addressed by index for the station dial.
package stations

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
)

var (
	ErrNoStations     = errors.New("stations: no stations")
	ErrUnknownStation = errors.New("stations: unknown station")
)

// Station is one tunable service. DAB services carry Channel and SID,
// internet stations carry URL.
type Station struct {
	Name     string `json:"-"`
	SID      string `json:"sid,omitempty"`
	Ensemble string `json:"ensemble,omitempty"`
	Channel  string `json:"channel,omitempty"`
	URL      string `json:"url,omitempty"`
}

type List struct {
	mu       sync.RWMutex
	stations map[string]Station
	names    []string
	index    map[string]int
}

func NewList(ss ...Station) *List {
	l := &List{}
	l.Replace(ss)
	return l
}

// Replace swaps the whole directory.
func (l *List) Replace(ss []Station) {
	stations := make(map[string]Station, len(ss))
	for _, s := range ss {
		stations[s.Name] = s
	}
	names := make([]string, 0, len(stations))
	for n := range stations {
		names = append(names, n)
	}
	sort.Strings(names)
	index := make(map[string]int, len(names))
	for i, n := range names {
		index[n] = i
	}

	l.mu.Lock()
	l.stations, l.names, l.index = stations, names, index
	l.mu.Unlock()
}

func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.names)
}

func (l *List) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.names...)
}

// Index of name in sorted order, 0 when unknown.
func (l *List) Index(name string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.index[name]
}

// Select returns the station at i modulo the list length. Negative i counts
// back from the end.
func (l *List) Select(i int) (Station, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := len(l.names)
	if n == 0 {
		return Station{}, ErrNoStations
	}
	i = (i%n + n) % n
	return l.stations[l.names[i]], nil
}

func (l *List) Lookup(name string) (Station, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.stations[name]
	if !ok {
		return Station{}, fmt.Errorf("%w: %q", ErrUnknownStation, name)
	}
	return s, nil
}

// LoadJSON reads a station-list.json: an object keyed by station name.
func LoadJSON(path string) (*List, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	ss, err := DecodeJSON(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(ss) == 0 {
		return nil, ErrNoStations
	}
	return NewList(ss...), nil
}

func DecodeJSON(r io.Reader) ([]Station, error) {
	raw := map[string]Station{}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, err
	}
	ss := make([]Station, 0, len(raw))
	for name, s := range raw {
		s.Name = name
		ss = append(ss, s)
	}
	return ss, nil
}

// SaveJSON writes the directory in the station-list.json format.
func SaveJSON(path string, ss []Station) error {
	raw := make(map[string]Station, len(ss))
	for _, s := range ss {
		raw[s.Name] = s
	}
	b, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// LoadM3U reads an extended m3u playlist. The station name is the part of
// the #EXTINF title after the first "/".
func LoadM3U(path string) (*List, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	ss, err := DecodeM3U(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(ss) == 0 {
		return nil, ErrNoStations
	}
	return NewList(ss...), nil
}

func DecodeM3U(r io.Reader) ([]Station, error) {
	var (
		ss      []Station
		name    string
		pending bool
	)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		s := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(s, "#EXTINF:") {
			_, title, found := strings.Cut(s, "/")
			if !found {
				_, title, _ = strings.Cut(s, ",")
			}
			name = strings.TrimSpace(title)
			pending = true
			continue
		}
		if pending && s != "" && !strings.HasPrefix(s, "#") {
			ss = append(ss, Station{Name: name, URL: s})
			pending = false
		}
	}
	return ss, scanner.Err()
}
