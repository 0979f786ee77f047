package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"chosenoffset.com/tablemap/internal/grid"
	"chosenoffset.com/tablemap/internal/positions"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "positions.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func hp(v int) *int { return &v }

func seed(t *testing.T, store *Store) {
	t.Helper()
	err := store.PlaceInitial(context.Background(), "cave", []grid.Entity{
		{EntityID: "player_1", EntityType: grid.TypePlayer, GridX: 1, GridY: 2, Visible: true, TokenColor: "#00ff00", CurrentHP: hp(12), MaxHP: 18},
		{EntityID: "monster_goblin_0", EntityType: grid.TypeMonster, GridX: 4, GridY: 4, Visible: true, TokenColor: "#ff0000", ArmorClass: 13},
		{EntityID: "npc_bertoldo", EntityType: grid.TypeNPC, GridX: 4, GridY: 4, Visible: false},
	})
	if err != nil {
		t.Fatalf("place initial: %v", err)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestOpenTwiceAppliesMigrationsOnce(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "positions.db")
	first, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	_ = first.Close()

	second, err := Open(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer second.Close()

	var count int
	if err := second.sqlDB.QueryRow(`SELECT COUNT(1) FROM schema_migrations`).Scan(&count); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if count != 1 {
		t.Fatalf("migrations = %d, want 1", count)
	}
}

func TestBoardConfigRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	if _, err := store.GetBoardConfig(ctx, "cave"); !errors.Is(err, positions.ErrNotFound) {
		t.Fatalf("get missing config err = %v, want ErrNotFound", err)
	}

	cfg := grid.Config{GridWidth: 12, GridHeight: 8, CellSizePx: 32, BackgroundImageURL: "maps/cave.png"}
	if err := store.SaveBoardConfig(ctx, "cave", cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}
	cfg.GridWidth = 16
	if err := store.SaveBoardConfig(ctx, "cave", cfg); err != nil {
		t.Fatalf("overwrite config: %v", err)
	}

	got, err := store.GetBoardConfig(ctx, "cave")
	if err != nil {
		t.Fatalf("get config: %v", err)
	}
	if got.GridWidth != 16 || got.GridHeight != 8 || got.CellSizePx != 32 {
		t.Fatalf("config = %+v, want 16x8 at 32px", got)
	}
	if got.SquareSizeMeters != grid.DefaultSquareSizeMeters {
		t.Fatalf("square size = %v, want default", got.SquareSizeMeters)
	}
	if got.BackgroundImageURL != "maps/cave.png" {
		t.Fatalf("background = %q, want %q", got.BackgroundImageURL, "maps/cave.png")
	}
}

func TestPlaceInitialReplacesBoard(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	seed(t, store)

	list, err := store.ListEntities(ctx, "cave")
	if err != nil {
		t.Fatalf("list entities: %v", err)
	}
	if len(list) != 3 || list[0].EntityID != "player_1" || list[2].EntityID != "npc_bertoldo" {
		t.Fatalf("entities = %v, want placement order", list)
	}
	if list[0].CurrentHP == nil || *list[0].CurrentHP != 12 || list[0].MaxHP != 18 {
		t.Fatalf("player hp = %v/%d, want 12/18", list[0].CurrentHP, list[0].MaxHP)
	}
	if list[1].CurrentHP != nil {
		t.Fatalf("goblin hp = %v, want nil", *list[1].CurrentHP)
	}
	if list[2].Visible {
		t.Fatal("npc visible = true, want false")
	}

	if err := store.PlaceInitial(ctx, "cave", []grid.Entity{{EntityID: "player_2", EntityType: grid.TypePlayer}}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	list, _ = store.ListEntities(ctx, "cave")
	if len(list) != 1 || list[0].EntityID != "player_2" {
		t.Fatalf("entities = %v, want only player_2", list)
	}
}

func TestPlaceInitialDuplicateRollsBack(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	seed(t, store)

	err := store.PlaceInitial(ctx, "cave", []grid.Entity{{EntityID: "a"}, {EntityID: "a"}})
	if !errors.Is(err, positions.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
	list, _ := store.ListEntities(ctx, "cave")
	if len(list) != 3 {
		t.Fatalf("entities = %d, want the original 3", len(list))
	}
}

func TestAddEntityDuplicate(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	seed(t, store)

	if err := store.AddEntity(ctx, "cave", grid.Entity{EntityID: "player_1"}); !errors.Is(err, positions.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
	if err := store.AddEntity(ctx, "other", grid.Entity{EntityID: "player_1"}); err != nil {
		t.Fatalf("same id on another board: %v", err)
	}
	if err := store.AddEntity(ctx, "cave", grid.Entity{EntityID: "x", GridX: -1}); err == nil {
		t.Fatal("expected negative coordinate error")
	}
}

func TestMoveEntity(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	seed(t, store)

	got, err := store.MoveEntity(ctx, "cave", "player_1", 9, 9)
	if err != nil {
		t.Fatalf("move entity: %v", err)
	}
	if got.GridX != 9 || got.GridY != 9 {
		t.Fatalf("position = (%d,%d), want (9,9)", got.GridX, got.GridY)
	}

	if _, err := store.MoveEntity(ctx, "cave", "missing", 1, 1); !errors.Is(err, positions.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if _, err := store.MoveEntity(ctx, "other", "player_1", 1, 1); !errors.Is(err, positions.ErrNotFound) {
		t.Fatalf("move on wrong board err = %v, want ErrNotFound", err)
	}
}

func TestVisibility(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	seed(t, store)

	visible, err := store.ToggleVisibility(ctx, "cave", "npc_bertoldo")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !visible {
		t.Fatal("visible = false, want true after toggle")
	}
	if err := store.SetVisibility(ctx, "cave", "npc_bertoldo", false); err != nil {
		t.Fatalf("set visibility: %v", err)
	}
	ent, _ := store.GetEntity(ctx, "cave", "npc_bertoldo")
	if ent.Visible {
		t.Fatal("visible = true, want false")
	}

	if _, err := store.ToggleVisibility(ctx, "cave", "missing"); !errors.Is(err, positions.ErrNotFound) {
		t.Fatalf("toggle missing err = %v, want ErrNotFound", err)
	}
	if err := store.SetVisibility(ctx, "cave", "missing", true); !errors.Is(err, positions.ErrNotFound) {
		t.Fatalf("set missing err = %v, want ErrNotFound", err)
	}
}

func TestUpdateAppearanceKeepsEmptyFields(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	seed(t, store)

	got, err := store.UpdateAppearance(ctx, "cave", "monster_goblin_0", positions.Appearance{DisplayName: "Grub"})
	if err != nil {
		t.Fatalf("update appearance: %v", err)
	}
	if got.DisplayName != "Grub" || got.TokenColor != "#ff0000" {
		t.Fatalf("appearance = %q %q, want Grub #ff0000", got.DisplayName, got.TokenColor)
	}

	got, _ = store.UpdateAppearance(ctx, "cave", "monster_goblin_0", positions.Appearance{TokenColor: "#123456"})
	if got.DisplayName != "Grub" || got.TokenColor != "#123456" {
		t.Fatalf("appearance = %q %q, want Grub #123456", got.DisplayName, got.TokenColor)
	}
}

func TestEntitiesAtAndRemove(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	seed(t, store)

	at, err := store.EntitiesAt(ctx, "cave", 4, 4)
	if err != nil {
		t.Fatalf("entities at: %v", err)
	}
	if len(at) != 2 || at[0].EntityID != "monster_goblin_0" {
		t.Fatalf("entities at (4,4) = %v, want goblin then npc", at)
	}

	if err := store.RemoveEntity(ctx, "cave", "monster_goblin_0"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := store.RemoveEntity(ctx, "cave", "monster_goblin_0"); !errors.Is(err, positions.ErrNotFound) {
		t.Fatalf("second remove err = %v, want ErrNotFound", err)
	}
	if _, err := store.GetEntity(ctx, "cave", "monster_goblin_0"); !errors.Is(err, positions.ErrNotFound) {
		t.Fatalf("get removed err = %v, want ErrNotFound", err)
	}

	n, err := store.ClearBoard(ctx, "cave")
	if err != nil {
		t.Fatalf("clear board: %v", err)
	}
	if n != 2 {
		t.Fatalf("cleared = %d, want 2", n)
	}
}

func TestCanceledContext(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.ListEntities(ctx, "cave"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
