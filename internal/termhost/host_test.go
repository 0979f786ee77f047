package termhost

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"chosenoffset.com/tablemap/internal/grid"
	"chosenoffset.com/tablemap/internal/mapfile"
	"chosenoffset.com/tablemap/internal/render"
	"chosenoffset.com/tablemap/internal/render/term"
	"chosenoffset.com/tablemap/internal/table"
)

func newHost(t *testing.T) (*Host, tcell.SimulationScreen) {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("Failed to init screen: %v", err)
	}
	screen.SetSize(120, 40)
	t.Cleanup(screen.Fini)

	board := &mapfile.Board{
		Name: "cave",
		Grid: grid.Config{GridWidth: 10, GridHeight: 10, CellSizePx: 20},
		Entities: []grid.Entity{
			{EntityID: "player_1", EntityType: grid.TypePlayer, GridX: 1, GridY: 2, Visible: true},
			{EntityID: "monster_goblin_0", EntityType: grid.TypeMonster, GridX: 6, GridY: 6, Visible: true},
		},
		TurnOrder: []string{"player_1", "monster_goblin_0"},
	}
	queue := render.NewFrameQueue()
	surface := term.NewSurface(image.Pt(0, 1))
	tbl, err := table.New(context.Background(), surface, board, table.Options{Scheduler: queue})
	if err != nil {
		t.Fatalf("Failed to open table: %v", err)
	}
	t.Cleanup(tbl.Close)
	return New(screen, tbl, surface, queue), screen
}

func mouse(col, row int, buttons tcell.ButtonMask) *tcell.EventMouse {
	return tcell.NewEventMouse(col, row, buttons, tcell.ModNone)
}

func TestMouseDrag(t *testing.T) {
	h, _ := newHost(t)
	eng := h.table.Engine()

	// player_1 at cell (1,2) covers screen column 6, row 6.
	h.HandleEvent(mouse(6, 6, tcell.Button1))
	if eng.State() != grid.StateDragging {
		t.Fatalf("Expected dragging, got %s", eng.State())
	}
	h.HandleEvent(mouse(18, 10, tcell.Button1))
	h.HandleEvent(mouse(18, 10, tcell.ButtonNone))

	ent, _ := eng.Entity("player_1")
	if ent.GridX != 4 || ent.GridY != 4 {
		t.Errorf("Expected player_1 at (4,4), got (%d,%d)", ent.GridX, ent.GridY)
	}
	if eng.State() == grid.StateDragging {
		t.Error("Expected the drag to end on release")
	}
}

func TestMouseLeavingBoard(t *testing.T) {
	h, _ := newHost(t)
	eng := h.table.Engine()

	h.HandleEvent(mouse(6, 6, tcell.ButtonNone))
	if _, ok := eng.Hovered(); !ok {
		t.Fatal("Expected a hovered token")
	}

	// Row 0 is the status line.
	h.HandleEvent(mouse(6, 0, tcell.ButtonNone))
	if _, ok := eng.Hovered(); ok {
		t.Error("Expected hover cleared on the status line")
	}
}

func TestKeys(t *testing.T) {
	h, _ := newHost(t)

	if err := h.HandleEvent(tcell.NewEventKey(tcell.KeyRune, ' ', tcell.ModNone)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := h.table.Engine().ActiveParticipant(); got != "monster_goblin_0" {
		t.Errorf("Expected monster_goblin_0 active, got %q", got)
	}
	if h.message != "Round 1: goblin" {
		t.Errorf("Expected turn notice, got %q", h.message)
	}

	h.HandleEvent(tcell.NewEventKey(tcell.KeyRune, 'm', tcell.ModNone))
	if h.table.Engine().Filters().ShowMonsters {
		t.Error("Expected monsters hidden after m")
	}

	h.HandleEvent(tcell.NewEventKey(tcell.KeyRune, 'r', tcell.ModNone))
	if h.message != "Board reset" {
		t.Errorf("Expected reset notice, got %q", h.message)
	}
	if got := h.table.Engine().ActiveParticipant(); got != "player_1" {
		t.Errorf("Expected player_1 active after reset, got %q", got)
	}

	if err := h.HandleEvent(tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)); !errors.Is(err, table.ErrQuit) {
		t.Errorf("Expected ErrQuit for q, got %v", err)
	}
	if err := h.HandleEvent(tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModCtrl)); !errors.Is(err, table.ErrQuit) {
		t.Errorf("Expected ErrQuit for ctrl-c, got %v", err)
	}
}

func TestDrawStatusAndMessage(t *testing.T) {
	h, screen := newHost(t)
	now := time.Unix(100, 0)
	h.clock = func() time.Time { return now }

	h.ShowMessage("hello")
	h.Draw()

	if r, _, _, _ := screen.GetContent(0, 0); r != 'c' {
		t.Errorf("Expected status line starting with the board name, got %q", r)
	}
	// Board is 41x21 cells below the status line; the message goes under it.
	if r, _, _, _ := screen.GetContent(0, 22); r != 'h' {
		t.Errorf("Expected message below the board, got %q", r)
	}

	now = now.Add(messageTTL)
	h.Draw()
	if r, _, _, _ := screen.GetContent(0, 22); r == 'h' {
		t.Error("Expected the message to expire")
	}
}

func TestRunQuits(t *testing.T) {
	h, screen := newHost(t)

	done := make(chan error, 1)
	go func() { done <- h.Run(context.Background()) }()
	screen.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected clean exit, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after q")
	}
}
