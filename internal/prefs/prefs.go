// Package prefs persists per-board view preferences (filters and zoom)
// through gdata.
package prefs

import (
	"fmt"
	"strings"

	"github.com/quasilyte/gdata/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"chosenoffset.com/tablemap/internal/grid"
	"chosenoffset.com/tablemap/internal/logging"
)

const viewObject = "views"

// View is the remembered view state of one board. A zero CellSizePx means
// the board's own cell size.
type View struct {
	ShowPlayers  bool    `yaml:"show_players"`
	ShowNPCs     bool    `yaml:"show_npcs"`
	ShowMonsters bool    `yaml:"show_monsters"`
	CellSizePx   float64 `yaml:"cell_size_px"`
}

// DefaultView shows every token type at the board's cell size.
func DefaultView() View {
	return View{ShowPlayers: true, ShowNPCs: true, ShowMonsters: true}
}

// Filters returns the view's toggles as engine filters.
func (v View) Filters() grid.Filters {
	return grid.Filters{ShowPlayers: v.ShowPlayers, ShowNPCs: v.ShowNPCs, ShowMonsters: v.ShowMonsters}
}

// WithFilters returns a copy of v with the toggles from f.
func (v View) WithFilters(f grid.Filters) View {
	v.ShowPlayers, v.ShowNPCs, v.ShowMonsters = f.ShowPlayers, f.ShowNPCs, f.ShowMonsters
	return v
}

// Manager loads and saves views. A nil gdata manager keeps everything in
// memory only.
type Manager struct {
	gd    *gdata.Manager
	log   *logrus.Entry
	cache map[string]View
}

// NewManager creates a preferences manager. gd may be nil.
func NewManager(gd *gdata.Manager, log *logrus.Entry) *Manager {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Manager{
		gd:    gd,
		log:   logging.Component(log, "prefs"),
		cache: make(map[string]View),
	}
}

// Open opens the gdata store for appName. On failure the manager falls
// back to memory-only mode and the error is logged.
func Open(appName string, log *logrus.Entry) *Manager {
	gd, err := gdata.Open(gdata.Config{AppName: appName})
	m := NewManager(nil, log)
	if err != nil {
		m.log.WithError(err).Warn("preferences storage unavailable, using memory only")
		return m
	}
	m.gd = gd
	return m
}

// Persistent reports whether views survive a restart.
func (m *Manager) Persistent() bool {
	return m.gd != nil
}

// Load returns the view of a board. Missing or unreadable data yields the
// default view; read failures are logged.
func (m *Manager) Load(board string) View {
	key := propKey(board)
	if v, ok := m.cache[key]; ok {
		return v
	}
	if m.gd == nil || !m.gd.ObjectPropExists(viewObject, key) {
		return DefaultView()
	}

	v, err := m.read(key)
	if err != nil {
		m.log.WithError(err).WithField("board", board).Warn("failed to load view preferences, using defaults")
		return DefaultView()
	}
	m.cache[key] = v
	return v
}

func (m *Manager) read(key string) (View, error) {
	data, err := m.gd.LoadObjectProp(viewObject, key)
	if err != nil {
		return View{}, fmt.Errorf("failed to load view: %w", err)
	}
	var v View
	if err := yaml.Unmarshal(data, &v); err != nil {
		return View{}, fmt.Errorf("failed to unmarshal view: %w", err)
	}
	return v, nil
}

// Save remembers the view of a board and writes it through when storage
// is available.
func (m *Manager) Save(board string, v View) error {
	key := propKey(board)
	m.cache[key] = v
	if m.gd == nil {
		return nil
	}

	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal view: %w", err)
	}
	if err := m.gd.SaveObjectProp(viewObject, key, data); err != nil {
		return fmt.Errorf("failed to save view: %w", err)
	}
	return nil
}

// propKey maps a board name onto a storage-safe key.
func propKey(board string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(board) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "default"
	}
	return b.String()
}
