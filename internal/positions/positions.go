// Package positions defines persistence contracts for board geometry and
// token positions.
package positions

import (
	"context"
	"errors"

	"chosenoffset.com/tablemap/internal/grid"
)

var (
	// ErrNotFound indicates a requested board or token is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a token id is already placed on the board.
	ErrAlreadyExists = errors.New("record already exists")
)

// Appearance carries the optional fields of an appearance update. Empty
// fields are left untouched.
type Appearance struct {
	TokenColor  string
	DisplayName string
}

// Store persists one record per board and one per placed token. Tokens
// are returned in placement order.
type Store interface {
	SaveBoardConfig(ctx context.Context, board string, cfg grid.Config) error
	GetBoardConfig(ctx context.Context, board string) (grid.Config, error)

	PlaceInitial(ctx context.Context, board string, entities []grid.Entity) error
	AddEntity(ctx context.Context, board string, ent grid.Entity) error
	ListEntities(ctx context.Context, board string) ([]grid.Entity, error)
	GetEntity(ctx context.Context, board, entityID string) (grid.Entity, error)
	EntitiesAt(ctx context.Context, board string, x, y int) ([]grid.Entity, error)

	MoveEntity(ctx context.Context, board, entityID string, x, y int) (grid.Entity, error)
	SetVisibility(ctx context.Context, board, entityID string, visible bool) error
	ToggleVisibility(ctx context.Context, board, entityID string) (bool, error)
	UpdateAppearance(ctx context.Context, board, entityID string, a Appearance) (grid.Entity, error)

	RemoveEntity(ctx context.Context, board, entityID string) error
	ClearBoard(ctx context.Context, board string) (int, error)
}
