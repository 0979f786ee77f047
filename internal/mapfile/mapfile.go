// Package mapfile loads board definitions from YAML files.
package mapfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"chosenoffset.com/tablemap/internal/grid"
	"chosenoffset.com/tablemap/internal/render"
)

// Default token colours per entity type.
var defaultColors = map[grid.EntityType]string{
	grid.TypePlayer:  "#00ff00",
	grid.TypeNPC:     "#00ccff",
	grid.TypeMonster: "#ff0000",
}

// Board is a loaded board definition.
type Board struct {
	Name      string
	Grid      grid.Config
	Entities  []grid.Entity
	TurnOrder []string
	Path      string
}

// fileEntity mirrors grid.Entity but lets visible default to true.
type fileEntity struct {
	EntityID    string          `yaml:"entity_id"`
	EntityType  grid.EntityType `yaml:"entity_type"`
	GridX       int             `yaml:"grid_x"`
	GridY       int             `yaml:"grid_y"`
	Visible     *bool           `yaml:"visible"`
	TokenColor  string          `yaml:"token_color"`
	DisplayName string          `yaml:"display_name"`
	ArmorClass  int             `yaml:"armor_class"`
	CurrentHP   *int            `yaml:"current_hp"`
	MaxHP       int             `yaml:"max_hp"`
}

type boardFile struct {
	Name      string       `yaml:"name"`
	Grid      grid.Config  `yaml:"grid"`
	Entities  []fileEntity `yaml:"entities"`
	TurnOrder []string     `yaml:"turn_order"`
}

// Load reads and validates a board file. A relative background path is
// resolved against the file's directory.
func Load(path string) (*Board, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read board file %s: %w", path, err)
	}

	board, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid board file %s: %w", path, err)
	}
	board.Path = path

	bg := board.Grid.BackgroundImageURL
	if bg != "" && !render.IsRemote(bg) && !filepath.IsAbs(bg) {
		board.Grid.BackgroundImageURL = filepath.Join(filepath.Dir(path), bg)
	}
	if board.Name == "" {
		board.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return board, nil
}

// Parse decodes and validates board YAML.
func Parse(data []byte) (*Board, error) {
	var f boardFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse board: %w", err)
	}

	board := &Board{
		Name:      f.Name,
		Grid:      f.Grid.WithDefaults(),
		TurnOrder: f.TurnOrder,
	}
	for _, fe := range f.Entities {
		board.Entities = append(board.Entities, fe.toEntity())
	}

	if err := validate(board); err != nil {
		return nil, err
	}
	return board, nil
}

func (fe fileEntity) toEntity() grid.Entity {
	ent := grid.Entity{
		EntityID:    fe.EntityID,
		EntityType:  fe.EntityType,
		GridX:       fe.GridX,
		GridY:       fe.GridY,
		Visible:     fe.Visible == nil || *fe.Visible,
		TokenColor:  fe.TokenColor,
		DisplayName: fe.DisplayName,
		ArmorClass:  fe.ArmorClass,
		CurrentHP:   fe.CurrentHP,
		MaxHP:       fe.MaxHP,
	}
	if ent.TokenColor == "" {
		ent.TokenColor = defaultColors[ent.EntityType]
	}
	return ent
}

// validate checks ids and coordinates against the grid.
func validate(b *Board) error {
	seen := make(map[string]bool, len(b.Entities))
	for i, ent := range b.Entities {
		if ent.EntityID == "" {
			return fmt.Errorf("entity %d has no entity_id", i)
		}
		if seen[ent.EntityID] {
			return fmt.Errorf("duplicate entity_id %q", ent.EntityID)
		}
		seen[ent.EntityID] = true

		if ent.GridX < 0 || ent.GridX >= b.Grid.GridWidth || ent.GridY < 0 || ent.GridY >= b.Grid.GridHeight {
			return fmt.Errorf("entity %q at (%d, %d) is outside the %dx%d grid",
				ent.EntityID, ent.GridX, ent.GridY, b.Grid.GridWidth, b.Grid.GridHeight)
		}
	}

	for _, id := range b.TurnOrder {
		if !seen[id] {
			return fmt.Errorf("turn_order references unknown entity %q", id)
		}
	}
	return nil
}
