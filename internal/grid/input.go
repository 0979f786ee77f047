package grid

import (
	"math"

	"chosenoffset.com/tablemap/internal/render"
)

// PointToCell converts a pointer position to a grid cell. The position is
// made relative to the displayed surface, scaled to backing pixels (which
// covers both device density and any stretching by the host) and divided
// by the cell size in backing pixels.
func (e *Engine) PointToCell(px, py float64) Cell {
	if e.inert {
		return Cell{}
	}
	rect := e.surface.DisplayRect()
	bw, bh := e.surface.BackingSize()
	scaleX, scaleY := 1.0, 1.0
	if rect.Dx() > 0 {
		scaleX = float64(bw) / float64(rect.Dx())
	}
	if rect.Dy() > 0 {
		scaleY = float64(bh) / float64(rect.Dy())
	}
	cell := e.cfg.CellSizePx * e.deviceScale()

	return Cell{
		X: int(math.Floor((px - float64(rect.Min.X)) * scaleX / cell)),
		Y: int(math.Floor((py - float64(rect.Min.Y)) * scaleY / cell)),
	}
}

// EntityAtPoint returns the topmost eligible token on the cell under the
// pointer. Later tokens are drawn on top, so the scan runs in reverse.
func (e *Engine) EntityAtPoint(px, py float64) (Entity, bool) {
	ent := e.hit(px, py)
	if ent == nil {
		return Entity{}, false
	}
	return ent.clone(), true
}

func (e *Engine) hit(px, py float64) *Entity {
	if e.inert {
		return nil
	}
	c := e.PointToCell(px, py)
	for i := len(e.entities) - 1; i >= 0; i-- {
		ent := e.entities[i]
		if ent.GridX == c.X && ent.GridY == c.Y && e.eligible(ent) {
			return ent
		}
	}
	return nil
}

// eligible reports whether a token is drawn and hit-testable.
func (e *Engine) eligible(ent *Entity) bool {
	return ent != nil && ent.Visible && e.filters.allows(ent.EntityType)
}

func (e *Engine) deviceScale() float64 {
	s := e.surface.DeviceScale()
	if s <= 0 {
		return 1
	}
	return s
}

// PointerDown handles a press. A press on a token selects it and starts a
// drag; a press while already dragging is ignored.
func (e *Engine) PointerDown(px, py float64) {
	if !e.live() || e.dragging {
		return
	}
	ent := e.hit(px, py)
	if ent == nil {
		return
	}

	e.selected = ent
	e.dragging = true
	c := e.PointToCell(px, py)
	e.dragOffset = Cell{X: ent.GridX - c.X, Y: ent.GridY - c.Y}

	if e.OnEntitySelected != nil {
		e.OnEntitySelected(ent.clone())
	}
	e.Render()
}

// PointerMove moves the dragged token live, or updates the hover target.
func (e *Engine) PointerMove(px, py float64) {
	if !e.live() {
		return
	}
	if e.dragging && e.selected != nil {
		c := e.PointToCell(px, py)
		e.selected.GridX = clamp(c.X+e.dragOffset.X, 0, e.cfg.GridWidth-1)
		e.selected.GridY = clamp(c.Y+e.dragOffset.Y, 0, e.cfg.GridHeight-1)
		e.Render()
		return
	}

	ent := e.hit(px, py)
	if ent == e.hovered {
		return
	}
	e.hovered = ent
	if ent != nil {
		e.setCursor(render.CursorPointer)
	} else {
		e.setCursor(render.CursorDefault)
	}
	e.Render()
}

// PointerUp ends a drag and reports the final position.
func (e *Engine) PointerUp() {
	if !e.live() || !e.dragging || e.selected == nil {
		return
	}
	e.endDrag()
	if e.OnEntityMoved != nil {
		e.OnEntityMoved(e.selected.clone())
	}
}

// PointerLeave handles the pointer leaving the surface. A drag in progress
// is abandoned without reporting a move; the token stays where it was
// last dragged to.
func (e *Engine) PointerLeave() {
	if !e.live() {
		return
	}
	if e.dragging {
		e.log.WithField("entity_id", idOf(e.selected)).Debug("drag abandoned at surface edge")
		e.endDrag()
	}
	e.hovered = nil
	e.setCursor(render.CursorDefault)
	e.Render()
}

// TouchStart maps a new touch onto PointerDown. Only the first touch
// drives the board; touches landing while one is tracked are ignored.
func (e *Engine) TouchStart(touches []Touch) {
	if !e.live() || len(touches) == 0 || e.touching {
		return
	}
	t := touches[0]
	e.PointerDown(t.X, t.Y)
	if e.dragging {
		e.touching = true
		e.touchID = t.ID
	}
}

// TouchMove maps movement of the tracked touch onto PointerMove. Without a
// tracked touch the first touch updates the hover target.
func (e *Engine) TouchMove(touches []Touch) {
	if !e.live() || len(touches) == 0 {
		return
	}
	if !e.touching {
		e.PointerMove(touches[0].X, touches[0].Y)
		return
	}
	for _, t := range touches {
		if t.ID == e.touchID {
			e.PointerMove(t.X, t.Y)
			return
		}
	}
}

// TouchEnd maps the release of the tracked touch onto PointerUp.
func (e *Engine) TouchEnd(id int) {
	if !e.live() || !e.touching || id != e.touchID {
		return
	}
	e.PointerUp()
}

func (e *Engine) setCursor(shape render.CursorShape) {
	if e.cursor == shape {
		return
	}
	e.cursor = shape
	e.surface.SetCursor(shape)
}
