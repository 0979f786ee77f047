// Package sqlite provides a SQLite-backed position store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"chosenoffset.com/tablemap/internal/grid"
	"chosenoffset.com/tablemap/internal/positions"
	"chosenoffset.com/tablemap/internal/positions/sqlite/migrations"
)

const entityColumns = `entity_id, entity_type, grid_x, grid_y, visible, token_color,
       display_name, armor_class, current_hp, max_hp`

// Store persists board geometry and token positions in SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite position store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

func nowMillis() int64 {
	return time.Now().UTC().UnixMilli()
}

// SaveBoardConfig creates or replaces the geometry of a board.
func (s *Store) SaveBoardConfig(ctx context.Context, board string, cfg grid.Config) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	board = strings.TrimSpace(board)
	if board == "" {
		return fmt.Errorf("board id is required")
	}
	cfg = cfg.WithDefaults()

	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO boards (board_id, grid_width, grid_height, cell_size_px, square_size_meters, background_image_url, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (board_id) DO UPDATE SET
		   grid_width = excluded.grid_width,
		   grid_height = excluded.grid_height,
		   cell_size_px = excluded.cell_size_px,
		   square_size_meters = excluded.square_size_meters,
		   background_image_url = excluded.background_image_url,
		   updated_at = excluded.updated_at`,
		board, cfg.GridWidth, cfg.GridHeight, cfg.CellSizePx, cfg.SquareSizeMeters, cfg.BackgroundImageURL, nowMillis(),
	)
	if err != nil {
		return fmt.Errorf("save board config: %w", err)
	}
	return nil
}

// GetBoardConfig returns the stored geometry of a board.
func (s *Store) GetBoardConfig(ctx context.Context, board string) (grid.Config, error) {
	if err := s.ready(ctx); err != nil {
		return grid.Config{}, err
	}

	var cfg grid.Config
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT grid_width, grid_height, cell_size_px, square_size_meters, background_image_url
		   FROM boards
		  WHERE board_id = ?`,
		strings.TrimSpace(board),
	).Scan(&cfg.GridWidth, &cfg.GridHeight, &cfg.CellSizePx, &cfg.SquareSizeMeters, &cfg.BackgroundImageURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return grid.Config{}, positions.ErrNotFound
		}
		return grid.Config{}, fmt.Errorf("get board config: %w", err)
	}
	return cfg, nil
}

// PlaceInitial replaces every token of a board in one transaction.
func (s *Store) PlaceInitial(ctx context.Context, board string, entities []grid.Entity) error {
	if err := s.ready(ctx); err != nil {
		return err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin place initial: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM entity_positions WHERE board_id = ?`, board); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear board: %w", err)
	}
	for _, ent := range entities {
		if err := insertEntity(ctx, tx, board, ent); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit place initial: %w", err)
	}
	return nil
}

// AddEntity places one more token on a board.
func (s *Store) AddEntity(ctx context.Context, board string, ent grid.Entity) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return insertEntity(ctx, s.sqlDB, board, ent)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertEntity(ctx context.Context, db execer, board string, ent grid.Entity) error {
	id := strings.TrimSpace(ent.EntityID)
	if id == "" {
		return fmt.Errorf("entity id is required")
	}
	if ent.GridX < 0 || ent.GridY < 0 {
		return fmt.Errorf("entity %s: coordinates must be non-negative", id)
	}

	var hp sql.NullInt64
	if ent.CurrentHP != nil {
		hp = sql.NullInt64{Int64: int64(*ent.CurrentHP), Valid: true}
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO entity_positions (
		   board_id, entity_id, entity_type, grid_x, grid_y, visible, token_color,
		   display_name, armor_class, current_hp, max_hp, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		board, id, string(ent.EntityType), ent.GridX, ent.GridY, boolToInt(ent.Visible), ent.TokenColor,
		ent.DisplayName, ent.ArmorClass, hp, ent.MaxHP, nowMillis(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return positions.ErrAlreadyExists
		}
		return fmt.Errorf("insert entity %s: %w", id, err)
	}
	return nil
}

// ListEntities returns the tokens of a board in placement order.
func (s *Store) ListEntities(ctx context.Context, board string) ([]grid.Entity, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	return s.queryEntities(ctx,
		`SELECT `+entityColumns+` FROM entity_positions WHERE board_id = ? ORDER BY id`, board)
}

// EntitiesAt returns the tokens on one cell in placement order.
func (s *Store) EntitiesAt(ctx context.Context, board string, x, y int) ([]grid.Entity, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	return s.queryEntities(ctx,
		`SELECT `+entityColumns+` FROM entity_positions
		  WHERE board_id = ? AND grid_x = ? AND grid_y = ?
		  ORDER BY id`, board, x, y)
}

// GetEntity returns one token.
func (s *Store) GetEntity(ctx context.Context, board, entityID string) (grid.Entity, error) {
	if err := s.ready(ctx); err != nil {
		return grid.Entity{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT `+entityColumns+` FROM entity_positions WHERE board_id = ? AND entity_id = ?`,
		board, entityID)
	ent, err := scanEntity(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return grid.Entity{}, positions.ErrNotFound
		}
		return grid.Entity{}, fmt.Errorf("get entity: %w", err)
	}
	return ent, nil
}

// MoveEntity stores a new cell for a token and returns the updated record.
func (s *Store) MoveEntity(ctx context.Context, board, entityID string, x, y int) (grid.Entity, error) {
	if err := s.ready(ctx); err != nil {
		return grid.Entity{}, err
	}
	if x < 0 || y < 0 {
		return grid.Entity{}, fmt.Errorf("coordinates must be non-negative")
	}
	if err := s.updateOne(ctx, "move entity",
		`UPDATE entity_positions SET grid_x = ?, grid_y = ?, updated_at = ?
		  WHERE board_id = ? AND entity_id = ?`,
		x, y, nowMillis(), board, entityID); err != nil {
		return grid.Entity{}, err
	}
	return s.GetEntity(ctx, board, entityID)
}

// SetVisibility shows or hides a token.
func (s *Store) SetVisibility(ctx context.Context, board, entityID string, visible bool) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.updateOne(ctx, "set visibility",
		`UPDATE entity_positions SET visible = ?, updated_at = ?
		  WHERE board_id = ? AND entity_id = ?`,
		boolToInt(visible), nowMillis(), board, entityID)
}

// ToggleVisibility flips a token's visibility and returns the new value.
func (s *Store) ToggleVisibility(ctx context.Context, board, entityID string) (bool, error) {
	if err := s.ready(ctx); err != nil {
		return false, err
	}
	var visible int
	err := s.sqlDB.QueryRowContext(ctx,
		`UPDATE entity_positions
		    SET visible = CASE visible WHEN 0 THEN 1 ELSE 0 END, updated_at = ?
		  WHERE board_id = ? AND entity_id = ?
		  RETURNING visible`,
		nowMillis(), board, entityID,
	).Scan(&visible)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, positions.ErrNotFound
		}
		return false, fmt.Errorf("toggle visibility: %w", err)
	}
	return visible != 0, nil
}

// UpdateAppearance changes the colour and/or display name of a token.
func (s *Store) UpdateAppearance(ctx context.Context, board, entityID string, a positions.Appearance) (grid.Entity, error) {
	if err := s.ready(ctx); err != nil {
		return grid.Entity{}, err
	}
	if err := s.updateOne(ctx, "update appearance",
		`UPDATE entity_positions
		    SET token_color = COALESCE(NULLIF(?, ''), token_color),
		        display_name = COALESCE(NULLIF(?, ''), display_name),
		        updated_at = ?
		  WHERE board_id = ? AND entity_id = ?`,
		strings.TrimSpace(a.TokenColor), strings.TrimSpace(a.DisplayName), nowMillis(), board, entityID); err != nil {
		return grid.Entity{}, err
	}
	return s.GetEntity(ctx, board, entityID)
}

// RemoveEntity deletes one token.
func (s *Store) RemoveEntity(ctx context.Context, board, entityID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.updateOne(ctx, "remove entity",
		`DELETE FROM entity_positions WHERE board_id = ? AND entity_id = ?`, board, entityID)
}

// ClearBoard deletes every token of a board and returns how many were removed.
func (s *Store) ClearBoard(ctx context.Context, board string) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM entity_positions WHERE board_id = ?`, board)
	if err != nil {
		return 0, fmt.Errorf("clear board: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear board: %w", err)
	}
	return int(n), nil
}

// updateOne runs a statement that must touch exactly one token.
func (s *Store) updateOne(ctx context.Context, op, query string, args ...any) error {
	res, err := s.sqlDB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return positions.ErrNotFound
	}
	return nil
}

func (s *Store) queryEntities(ctx context.Context, query string, args ...any) ([]grid.Entity, error) {
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}
	defer rows.Close()

	var out []grid.Entity
	for rows.Next() {
		ent, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		out = append(out, ent)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entities: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntity(row scanner) (grid.Entity, error) {
	var (
		ent        grid.Entity
		entityType string
		visible    int
		hp         sql.NullInt64
	)
	if err := row.Scan(
		&ent.EntityID,
		&entityType,
		&ent.GridX,
		&ent.GridY,
		&visible,
		&ent.TokenColor,
		&ent.DisplayName,
		&ent.ArmorClass,
		&hp,
		&ent.MaxHP,
	); err != nil {
		return grid.Entity{}, err
	}
	ent.EntityType = grid.EntityType(entityType)
	ent.Visible = visible != 0
	if hp.Valid {
		v := int(hp.Int64)
		ent.CurrentHP = &v
	}
	return ent, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var _ positions.Store = (*Store)(nil)
