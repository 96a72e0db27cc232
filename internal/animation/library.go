package animation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrAssetNotFound is returned when an animation file is missing.
var ErrAssetNotFound = errors.New("animation asset not found")

// Meta is the header of a Lottie JSON file.
type Meta struct {
	Name      string  `json:"nm"`
	Version   string  `json:"v"`
	FrameRate float64 `json:"fr"`
	InPoint   float64 `json:"ip"`
	OutPoint  float64 `json:"op"`
	Width     int     `json:"w"`
	Height    int     `json:"h"`
}

// Duration is the length of one play-through.
func (m Meta) Duration() time.Duration {
	if m.FrameRate <= 0 || m.OutPoint <= m.InPoint {
		return 0
	}
	return time.Duration((m.OutPoint - m.InPoint) / m.FrameRate * float64(time.Second))
}

// Library resolves animation ids to <dir>/<id>.json and caches their headers.
type Library struct {
	dir string

	mu    sync.Mutex
	cache map[string]Meta
}

// NewLibrary creates a library rooted at dir.
func NewLibrary(dir string) *Library {
	return &Library{dir: dir, cache: make(map[string]Meta)}
}

// Dir returns the library root.
func (l *Library) Dir() string { return l.dir }

// Path returns the file an animation id resolves to.
func (l *Library) Path(id string) string {
	return filepath.Join(l.dir, id+".json")
}

// Lookup returns the metadata of an animation, reading it on first use.
func (l *Library) Lookup(id string) (Meta, error) {
	if id == "" || filepath.Base(id) != id || strings.HasPrefix(id, ".") {
		return Meta{}, fmt.Errorf("invalid animation id %q", id)
	}

	l.mu.Lock()
	meta, ok := l.cache[id]
	l.mu.Unlock()
	if ok {
		return meta, nil
	}

	data, err := os.ReadFile(l.Path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return Meta{}, fmt.Errorf("%w: %s", ErrAssetNotFound, id)
	}
	if err != nil {
		return Meta{}, fmt.Errorf("read animation %s: %w", id, err)
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return Meta{}, fmt.Errorf("parse animation %s: %w", id, err)
	}
	if meta.Name == "" {
		meta.Name = id
	}

	l.mu.Lock()
	l.cache[id] = meta
	l.mu.Unlock()
	return meta, nil
}

// Invalidate drops cached metadata so files are re-read.
func (l *Library) Invalidate() {
	l.mu.Lock()
	l.cache = make(map[string]Meta)
	l.mu.Unlock()
}

// List returns the ids of all animations in the library, sorted.
func (l *Library) List() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

// Missing returns the animation ids referenced by sequences or the fallback
// table that have no file in the library.
func (l *Library) Missing(sequences map[string][]Step) []string {
	want := map[string]bool{}
	for _, steps := range sequences {
		for _, s := range steps {
			want[s.Animation] = true
		}
	}
	for _, a := range fallbackStates {
		want[a] = true
	}
	var missing []string
	for id := range want {
		if _, err := os.Stat(l.Path(id)); err != nil {
			missing = append(missing, id)
		}
	}
	sort.Strings(missing)
	return missing
}
