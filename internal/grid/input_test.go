package grid

import (
	"image"
	"testing"

	"chosenoffset.com/tablemap/internal/render"
	"chosenoffset.com/tablemap/internal/render/headless"
)

func TestDragMovesAndReportsOnce(t *testing.T) {
	e, _ := newBoard(t, Options{})
	e.LoadEntities([]Entity{player("player_1", 2, 2)})

	var selected []string
	var moved []Entity
	e.OnEntitySelected = func(ent Entity) { selected = append(selected, ent.EntityID) }
	e.OnEntityMoved = func(ent Entity) { moved = append(moved, ent) }

	e.PointerDown(100, 100)
	if e.State() != StateDragging {
		t.Fatalf("Expected dragging after press, got %s", e.State())
	}
	e.PointerMove(380, 380)
	e.PointerUp()

	if len(selected) != 1 || selected[0] != "player_1" {
		t.Errorf("Expected one selection of player_1, got %v", selected)
	}
	if len(moved) != 1 {
		t.Fatalf("Expected moved to fire once, got %d", len(moved))
	}
	if moved[0].GridX != 9 || moved[0].GridY != 9 {
		t.Errorf("Expected final position (9,9), got (%d,%d)", moved[0].GridX, moved[0].GridY)
	}
	if e.State() == StateDragging {
		t.Error("Expected drag to end on release")
	}

	e.PointerUp()
	if len(moved) != 1 {
		t.Error("Expected a second release to report nothing")
	}
}

func TestDragClampsToBoard(t *testing.T) {
	e, _ := newBoard(t, Options{})
	e.LoadEntities([]Entity{player("player_1", 0, 0)})

	e.PointerDown(10, 10)
	e.PointerMove(-500, 9000)
	e.PointerUp()

	ent, _ := e.Entity("player_1")
	if ent.GridX != 0 || ent.GridY != 9 {
		t.Errorf("Expected (0,9), got (%d,%d)", ent.GridX, ent.GridY)
	}
}

func TestDragKeepsGrabOffset(t *testing.T) {
	e, _ := newBoard(t, Options{})
	e.LoadEntities([]Entity{player("player_1", 3, 3)})

	e.PointerDown(130, 130)
	e.PointerMove(170, 130)
	e.PointerUp()

	ent, _ := e.Entity("player_1")
	if ent.GridX != 4 || ent.GridY != 3 {
		t.Errorf("Expected (4,3), got (%d,%d)", ent.GridX, ent.GridY)
	}
}

func TestPressOnEmptyCellDoesNothing(t *testing.T) {
	e, _ := newBoard(t, Options{})
	e.LoadEntities([]Entity{player("player_1", 2, 2)})
	fired := false
	e.OnEntitySelected = func(Entity) { fired = true }

	e.PointerDown(300, 300)

	if fired {
		t.Error("Expected no selection on an empty cell")
	}
	if e.State() != StateIdle {
		t.Errorf("Expected idle, got %s", e.State())
	}
}

func TestHitTestPicksTopmost(t *testing.T) {
	e, _ := newBoard(t, Options{})
	e.LoadEntities([]Entity{
		player("player_1", 4, 4),
		{EntityID: "monster_orc_0", EntityType: TypeMonster, GridX: 4, GridY: 4, Visible: true},
	})

	ent, ok := e.EntityAtPoint(170, 170)
	if !ok || ent.EntityID != "monster_orc_0" {
		t.Errorf("Expected the last inserted token, got %v", ent)
	}

	e.SetFilter(ShowMonsters, false)
	ent, ok = e.EntityAtPoint(170, 170)
	if !ok || ent.EntityID != "player_1" {
		t.Errorf("Expected filtered token to be skipped, got %v", ent)
	}
}

func TestPointToCellScaling(t *testing.T) {
	s := headless.NewSurface(2)
	e := New(s, Config{GridWidth: 10, GridHeight: 10, CellSizePx: 40}, Options{})

	if c := e.PointToCell(100, 100); c != (Cell{X: 2, Y: 2}) {
		t.Errorf("Expected (2,2) at device scale 2, got %v", c)
	}

	// Presented at half size, offset by 50px.
	s.SetDisplayRect(image.Rect(50, 50, 250, 250))
	if c := e.PointToCell(50+190, 50+10); c != (Cell{X: 9, Y: 0}) {
		t.Errorf("Expected (9,0) on a shrunken display, got %v", c)
	}
}

func TestHoverUpdatesCursorOnChangeOnly(t *testing.T) {
	e, s := newBoard(t, Options{})
	e.LoadEntities([]Entity{player("player_1", 2, 2)})

	frames := s.Frames()
	e.PointerMove(100, 100)
	if e.State() != StateHovering {
		t.Fatalf("Expected hovering, got %s", e.State())
	}
	if s.Cursor() != render.CursorPointer {
		t.Error("Expected pointer cursor")
	}

	e.PointerMove(105, 105)
	if s.Frames() != frames+1 {
		t.Errorf("Expected one redraw for an unchanged hover target, got %d", s.Frames()-frames)
	}
	if s.CursorChanges() != 1 {
		t.Errorf("Expected one cursor change, got %d", s.CursorChanges())
	}

	e.PointerMove(300, 300)
	if s.Cursor() != render.CursorDefault {
		t.Error("Expected default cursor off the token")
	}
}

func TestLeaveAbandonsDragWithoutRevert(t *testing.T) {
	e, s := newBoard(t, Options{})
	e.LoadEntities([]Entity{player("player_1", 2, 2)})
	moved := 0
	e.OnEntityMoved = func(Entity) { moved++ }

	e.PointerDown(100, 100)
	e.PointerMove(220, 100)
	e.PointerLeave()

	if moved != 0 {
		t.Error("Expected no move report when leaving mid-drag")
	}
	if e.State() != StateIdle {
		t.Errorf("Expected idle after leave, got %s", e.State())
	}
	ent, _ := e.Entity("player_1")
	if ent.GridX != 5 {
		t.Errorf("Expected the token to stay at its dragged cell 5, got %d", ent.GridX)
	}
	if s.Cursor() != render.CursorDefault {
		t.Error("Expected default cursor after leave")
	}
}

func TestSecondPressWhileDraggingIsIgnored(t *testing.T) {
	e, _ := newBoard(t, Options{})
	e.LoadEntities([]Entity{player("player_1", 2, 2), player("player_2", 6, 6)})
	var selected []string
	e.OnEntitySelected = func(ent Entity) { selected = append(selected, ent.EntityID) }

	e.PointerDown(100, 100)
	e.PointerDown(260, 260)

	if len(selected) != 1 {
		t.Errorf("Expected one selection, got %v", selected)
	}
}

func TestTouchTracksFirstTouch(t *testing.T) {
	e, _ := newBoard(t, Options{})
	e.LoadEntities([]Entity{player("player_1", 2, 2)})
	var moved []Entity
	e.OnEntityMoved = func(ent Entity) { moved = append(moved, ent) }

	e.TouchStart([]Touch{{ID: 7, X: 100, Y: 100}, {ID: 8, X: 300, Y: 300}})
	e.TouchStart([]Touch{{ID: 9, X: 10, Y: 10}})
	e.TouchMove([]Touch{{ID: 8, X: 10, Y: 10}})
	e.TouchMove([]Touch{{ID: 8, X: 10, Y: 10}, {ID: 7, X: 340, Y: 60}})
	e.TouchEnd(8)
	if len(moved) != 0 {
		t.Fatal("Expected release of an untracked touch to be ignored")
	}
	e.TouchEnd(7)

	if len(moved) != 1 {
		t.Fatalf("Expected one move, got %d", len(moved))
	}
	if moved[0].GridX != 8 || moved[0].GridY != 1 {
		t.Errorf("Expected (8,1), got (%d,%d)", moved[0].GridX, moved[0].GridY)
	}
}
