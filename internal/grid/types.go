package grid

import (
	"image/color"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Defaults applied when a Config field is unset.
const (
	DefaultGridWidth        = 20
	DefaultGridHeight       = 20
	DefaultCellSizePx       = 40.0
	DefaultSquareSizeMeters = 1.5
)

// Config describes the board geometry. Only CellSizePx changes after
// construction (through Resize).
type Config struct {
	GridWidth          int     `yaml:"grid_width" json:"grid_width"`
	GridHeight         int     `yaml:"grid_height" json:"grid_height"`
	CellSizePx         float64 `yaml:"cell_size_px" json:"cell_size_px"`
	SquareSizeMeters   float64 `yaml:"square_size_meters" json:"square_size_meters"` // informational scale
	BackgroundImageURL string  `yaml:"background_image_url,omitempty" json:"background_image_url,omitempty"`
}

// WithDefaults returns a copy with unset or non-positive fields replaced by defaults.
func (c Config) WithDefaults() Config {
	if c.GridWidth <= 0 {
		c.GridWidth = DefaultGridWidth
	}
	if c.GridHeight <= 0 {
		c.GridHeight = DefaultGridHeight
	}
	if c.CellSizePx <= 0 {
		c.CellSizePx = DefaultCellSizePx
	}
	if c.SquareSizeMeters <= 0 {
		c.SquareSizeMeters = DefaultSquareSizeMeters
	}
	if c.BackgroundImageURL == "null" {
		c.BackgroundImageURL = ""
	}
	return c
}

// PixelSize returns the logical surface size for the config.
func (c Config) PixelSize() (width, height int) {
	return int(float64(c.GridWidth) * c.CellSizePx), int(float64(c.GridHeight) * c.CellSizePx)
}

// EntityType distinguishes tokens for rendering and filtering only.
type EntityType string

const (
	TypePlayer  EntityType = "player"
	TypeNPC     EntityType = "npc"
	TypeMonster EntityType = "monster"
)

// Glyph returns the one-letter mark drawn on a token.
func (t EntityType) Glyph() string {
	switch t {
	case TypePlayer:
		return "J"
	case TypeNPC:
		return "N"
	case TypeMonster:
		return "M"
	default:
		return "?"
	}
}

// Entity is a positioned token. Identity comes from the host; the board
// never generates ids.
type Entity struct {
	EntityID    string     `yaml:"entity_id" json:"entity_id"`
	EntityType  EntityType `yaml:"entity_type" json:"entity_type"`
	GridX       int        `yaml:"grid_x" json:"grid_x"`
	GridY       int        `yaml:"grid_y" json:"grid_y"`
	Visible     bool       `yaml:"visible" json:"visible"`
	TokenColor  string     `yaml:"token_color,omitempty" json:"token_color,omitempty"`
	DisplayName string     `yaml:"display_name,omitempty" json:"display_name,omitempty"`
	ArmorClass  int        `yaml:"armor_class,omitempty" json:"armor_class,omitempty"`
	CurrentHP   *int       `yaml:"current_hp,omitempty" json:"current_hp,omitempty"`
	MaxHP       int        `yaml:"max_hp,omitempty" json:"max_hp,omitempty"`
}

// Cell returns the entity's grid cell.
func (e Entity) Cell() Cell {
	return Cell{X: e.GridX, Y: e.GridY}
}

// Name is the tooltip title: the display name, or a label derived from the id.
func (e Entity) Name() string {
	if e.DisplayName != "" {
		return e.DisplayName
	}
	return e.ShortLabel()
}

// ShortLabel derives a compact label from conventional ids:
// "player_3" -> "J3", "monster_goblin_0" -> "goblin", "npc_bertoldo" -> "bertol".
func (e Entity) ShortLabel() string {
	parts := strings.Split(e.EntityID, "_")
	if len(parts) > 1 {
		switch parts[0] {
		case "player":
			return "J" + parts[1]
		case "npc", "monster":
			return truncate(parts[1], 6)
		}
	}
	return truncate(e.EntityID, 6)
}

// Color parses TokenColor, falling back to white.
func (e Entity) Color() color.Color {
	return parseColor(e.TokenColor, color.White)
}

func (e Entity) clone() Entity {
	if e.CurrentHP != nil {
		hp := *e.CurrentHP
		e.CurrentHP = &hp
	}
	return e
}

// EntityPatch carries the fields of a partial update. Nil fields are left untouched.
type EntityPatch struct {
	EntityType  *EntityType
	GridX       *int
	GridY       *int
	Visible     *bool
	TokenColor  *string
	DisplayName *string
	ArmorClass  *int
	CurrentHP   *int
	MaxHP       *int
}

func (p EntityPatch) apply(e *Entity) {
	if p.EntityType != nil {
		e.EntityType = *p.EntityType
	}
	if p.GridX != nil {
		e.GridX = *p.GridX
	}
	if p.GridY != nil {
		e.GridY = *p.GridY
	}
	if p.Visible != nil {
		e.Visible = *p.Visible
	}
	if p.TokenColor != nil {
		e.TokenColor = *p.TokenColor
	}
	if p.DisplayName != nil {
		e.DisplayName = *p.DisplayName
	}
	if p.ArmorClass != nil {
		e.ArmorClass = *p.ArmorClass
	}
	if p.CurrentHP != nil {
		hp := *p.CurrentHP
		e.CurrentHP = &hp
	}
	if p.MaxHP != nil {
		e.MaxHP = *p.MaxHP
	}
}

// Filter names a per-type visibility toggle.
type Filter string

const (
	ShowPlayers  Filter = "showPlayers"
	ShowNPCs     Filter = "showNPCs"
	ShowMonsters Filter = "showMonsters"
)

// Filters holds the three per-type toggles.
type Filters struct {
	ShowPlayers  bool `yaml:"show_players" json:"show_players"`
	ShowNPCs     bool `yaml:"show_npcs" json:"show_npcs"`
	ShowMonsters bool `yaml:"show_monsters" json:"show_monsters"`
}

// AllFilters has every type shown.
func AllFilters() Filters {
	return Filters{ShowPlayers: true, ShowNPCs: true, ShowMonsters: true}
}

// Get returns the toggle for name and whether the name is known.
func (f Filters) Get(name Filter) (value, ok bool) {
	switch name {
	case ShowPlayers:
		return f.ShowPlayers, true
	case ShowNPCs:
		return f.ShowNPCs, true
	case ShowMonsters:
		return f.ShowMonsters, true
	}
	return false, false
}

func (f *Filters) set(name Filter, value bool) bool {
	switch name {
	case ShowPlayers:
		f.ShowPlayers = value
	case ShowNPCs:
		f.ShowNPCs = value
	case ShowMonsters:
		f.ShowMonsters = value
	default:
		return false
	}
	return true
}

// allows reports whether an entity type passes the filters. Types
// without a filter are always allowed.
func (f Filters) allows(t EntityType) bool {
	switch t {
	case TypePlayer:
		return f.ShowPlayers
	case TypeNPC:
		return f.ShowNPCs
	case TypeMonster:
		return f.ShowMonsters
	default:
		return true
	}
}

// Cell is a grid coordinate.
type Cell struct {
	X, Y int
}

// Touch is one active touch point in pointer coordinates.
type Touch struct {
	ID   int
	X, Y float64
}

// State is the interaction state of the board.
type State int

const (
	StateIdle State = iota
	StateHovering
	StateDragging
)

func (s State) String() string {
	switch s {
	case StateHovering:
		return "hovering"
	case StateDragging:
		return "dragging"
	default:
		return "idle"
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func parseColor(s string, fallback color.Color) color.Color {
	if s == "" {
		return fallback
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return fallback
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}
