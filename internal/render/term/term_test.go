package term

import (
	"image"
	"image/color"
	"testing"

	"github.com/gdamore/tcell/v2"

	"chosenoffset.com/tablemap/internal/grid"
)

func newBoard(t *testing.T) (*grid.Engine, *Surface) {
	t.Helper()
	s := NewSurface(image.Pt(2, 1))
	e := grid.New(s, grid.Config{GridWidth: 10, GridHeight: 10, CellSizePx: 40}, grid.Options{})
	e.LoadEntities([]grid.Entity{{
		EntityID: "player_1", EntityType: grid.TypePlayer, GridX: 2, GridY: 2, Visible: true, TokenColor: "#00ff00",
	}})
	return e, s
}

func TestSurfaceSizing(t *testing.T) {
	_, s := newBoard(t)

	cols, rows := s.Cells()
	if cols != 81 || rows != 41 {
		t.Errorf("Expected 81x41 cells, got %dx%d", cols, rows)
	}
}

func TestGridLinesCross(t *testing.T) {
	_, s := newBoard(t)

	if r := s.Rune(0, 0); r != '┼' {
		t.Errorf("Expected crossing at the corner, got %q", r)
	}
	if r := s.Rune(0, 5); r != '│' {
		t.Errorf("Expected vertical line, got %q", r)
	}
	if r := s.Rune(5, 0); r != '─' {
		t.Errorf("Expected horizontal line, got %q", r)
	}
}

func TestTokenIsFilledWithGlyph(t *testing.T) {
	_, s := newBoard(t)

	if bg := s.Background(20, 10); bg != tcell.FromImageColor(color.RGBA{0, 255, 0, 255}) {
		t.Errorf("Expected green token background, got %v", bg)
	}
	if r := s.Rune(20, 10); r != 'J' {
		t.Errorf("Expected glyph J at the token centre, got %q", r)
	}
}

func TestPresentWritesAtOrigin(t *testing.T) {
	_, s := newBoard(t)
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("Failed to init screen: %v", err)
	}
	defer screen.Fini()
	screen.SetSize(100, 50)

	s.Present(screen)
	screen.Show()

	mainc, _, _, _ := screen.GetContent(2+20, 1+10)
	if mainc != 'J' {
		t.Errorf("Expected J on screen, got %q", mainc)
	}
	mainc, _, _, _ = screen.GetContent(2, 1)
	if mainc != '┼' {
		t.Errorf("Expected grid corner on screen, got %q", mainc)
	}
}

func TestPointFromCell(t *testing.T) {
	e, s := newBoard(t)

	x, y, ok := s.PointFromCell(2+20, 1+10)
	if !ok {
		t.Fatal("Expected cell inside the board")
	}
	if c := e.PointToCell(x, y); c != (grid.Cell{X: 2, Y: 2}) {
		t.Errorf("Expected grid cell (2,2), got %v", c)
	}
	if _, _, ok := s.PointFromCell(0, 0); ok {
		t.Error("Expected cell left of the origin to be outside")
	}
	if _, _, ok := s.PointFromCell(2+80, 1); ok {
		t.Error("Expected the closing line column to be outside")
	}
}

func TestBlendUsesAlpha(t *testing.T) {
	got := blend(tcell.ColorBlack, color.NRGBA{255, 255, 255, 77})
	r, g, b := got.RGB()
	if r < 75 || r > 79 || r != g || g != b {
		t.Errorf("Expected grey around 77, got %d,%d,%d", r, g, b)
	}
	if blend(tcell.ColorRed, color.NRGBA{}) != tcell.ColorRed {
		t.Error("Expected a transparent colour to leave the background untouched")
	}
}
