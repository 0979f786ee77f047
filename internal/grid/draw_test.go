package grid

import (
	"image/color"
	"math"
	"testing"
	"time"

	"chosenoffset.com/tablemap/internal/render/headless"
)

func intPtr(v int) *int { return &v }

func TestRenderDrawsGridAndTokens(t *testing.T) {
	e, s := newBoard(t, Options{})
	e.LoadEntities([]Entity{
		player("player_1", 2, 3),
		{EntityID: "ghost", EntityType: TypeMonster, GridX: 5, GridY: 5, Visible: false},
	})

	lines := s.OpsOfKind("line")
	if len(lines) != 22 {
		t.Fatalf("Expected 22 grid lines, got %d", len(lines))
	}
	if lines[0].X != 0.5 || lines[0].Y1 != 400 {
		t.Errorf("Expected first line at x=0.5 spanning the board, got %+v", lines[0])
	}

	fills := s.OpsOfKind("fill_circle")
	if len(fills) != 1 {
		t.Fatalf("Expected one token drawn, got %d", len(fills))
	}
	if fills[0].X != 100 || fills[0].Y != 140 || fills[0].Radius != 14 {
		t.Errorf("Expected token at (100,140) r=14, got %+v", fills[0])
	}
	r, g, b, _ := fills[0].Color.RGBA()
	if r != 0 || g != 0xffff || b != 0 {
		t.Errorf("Expected green token, got %v", fills[0].Color)
	}

	texts := s.Texts()
	if len(texts) != 2 || texts[0] != "J" || texts[1] != "J1" {
		t.Errorf("Expected glyph and label, got %v", texts)
	}
}

func TestRenderSelectionAndActiveRings(t *testing.T) {
	clock := func() time.Time { return time.Unix(0, 500_000_000) }
	e, s := newBoard(t, Options{Clock: clock})
	e.LoadEntities([]Entity{player("player_1", 1, 1), player("player_2", 6, 6)})

	e.PointerDown(60, 60)
	e.PointerUp()
	e.SetActiveParticipant("player_2")

	rings := s.OpsOfKind("stroke_circle")
	// two token borders, selection, active, pulse
	if len(rings) != 5 {
		t.Fatalf("Expected 5 stroked circles, got %d", len(rings))
	}
	if rings[2].Color != selectedRing || rings[2].Radius != 16 || rings[2].Stroke != 3 {
		t.Errorf("Expected yellow selection ring, got %+v", rings[2])
	}
	if rings[3].Color != activeRing || rings[3].X != 260 {
		t.Errorf("Expected green active ring on player_2, got %+v", rings[3])
	}
	want := 16 + math.Sin(1.5)*5
	if math.Abs(rings[4].Radius-want) > 1e-9 {
		t.Errorf("Expected pulse radius %v, got %v", want, rings[4].Radius)
	}

	// The active ring is skipped when the active token is selected.
	e.SetActiveParticipant("player_1")
	if got := len(s.OpsOfKind("stroke_circle")); got != 3 {
		t.Errorf("Expected only borders and selection ring, got %d", got)
	}
}

func TestTooltipContentAndPlacement(t *testing.T) {
	e, s := newBoard(t, Options{})
	e.LoadEntities([]Entity{{
		EntityID: "monster_goblin_0", EntityType: TypeMonster, GridX: 0, GridY: 0, Visible: true,
		DisplayName: "Goblin", ArmorClass: 13, CurrentHP: intPtr(5), MaxHP: 7,
	}})

	e.PointerMove(20, 20)

	texts := s.Texts()
	tail := texts[len(texts)-3:]
	if tail[0] != "Goblin" || tail[1] != "AC: 13" || tail[2] != "HP: 5/7" {
		t.Errorf("Expected name, AC and HP lines, got %v", tail)
	}

	boxes := s.OpsOfKind("fill_rect")
	if len(boxes) != 1 {
		t.Fatalf("Expected one tooltip box, got %d", len(boxes))
	}
	// Flipped below the token and clamped to the left edge.
	if boxes[0].X != 0 || boxes[0].Y != 49 {
		t.Errorf("Expected box at (0,49), got (%v,%v)", boxes[0].X, boxes[0].Y)
	}
	if boxes[0].H != 3*14+12 {
		t.Errorf("Expected box height 54, got %v", boxes[0].H)
	}
	if boxes[0].Color != (color.NRGBA{0, 0, 0, 217}) {
		t.Errorf("Expected translucent black box, got %v", boxes[0].Color)
	}
}

func TestTooltipHPFallsBackToCurrent(t *testing.T) {
	lines := tooltipLines(&Entity{EntityID: "npc_bertoldo", CurrentHP: intPtr(4)})
	if len(lines) != 2 || lines[0] != "bertol" || lines[1] != "HP: 4/4" {
		t.Errorf("Expected [bertol HP: 4/4], got %v", lines)
	}
}

func TestTooltipClampsRightEdge(t *testing.T) {
	e, s := newBoard(t, Options{})
	e.LoadEntities([]Entity{{EntityID: "npc_x", EntityType: TypeNPC, GridX: 9, GridY: 5, Visible: true, DisplayName: "A very long innkeeper name"}})

	e.PointerMove(390, 220)

	box := s.OpsOfKind("fill_rect")[0]
	if math.Abs(box.X+box.W-400) > 1e-9 {
		t.Errorf("Expected box flush with the right edge, got x=%v w=%v", box.X, box.W)
	}
	if box.Y >= 220 {
		t.Errorf("Expected box above the token, got y=%v", box.Y)
	}
}

func TestShortLabels(t *testing.T) {
	cases := map[string]string{
		"player_3":         "J3",
		"monster_goblin_0": "goblin",
		"npc_bertoldo":     "bertol",
		"dragon-king":      "dragon",
		"x":                "x",
	}
	for id, want := range cases {
		if got := (Entity{EntityID: id}).ShortLabel(); got != want {
			t.Errorf("ShortLabel(%q) = %q, want %q", id, got, want)
		}
	}
}

func TestInvalidColorFallsBackToWhite(t *testing.T) {
	ent := Entity{TokenColor: "not-a-colour"}
	if ent.Color() != color.White {
		t.Errorf("Expected white, got %v", ent.Color())
	}
}

func TestGridLinesOffsetByDeviceScale(t *testing.T) {
	s := headless.NewSurface(2)
	New(s, Config{GridWidth: 2, GridHeight: 2, CellSizePx: 40}, Options{})

	lines := s.OpsOfKind("line")
	if lines[1].X != 40.25 {
		t.Errorf("Expected second line at 40.25, got %v", lines[1].X)
	}
}
