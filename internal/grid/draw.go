package grid

import (
	"fmt"
	"image/color"
	"math"

	"chosenoffset.com/tablemap/internal/render"
)

// Colours and proportions of the board layers.
var (
	gridLineColor  = color.NRGBA{255, 255, 255, 77}
	tokenBorder    = color.Black
	glyphColor     = color.Black
	labelColor     = color.White
	selectedRing   = color.RGBA{255, 255, 0, 255}
	activeRing     = color.RGBA{0, 255, 0, 255}
	pulseRing      = color.NRGBA{0, 255, 0, 128}
	hoverRing      = color.White
	tooltipFill    = color.NRGBA{0, 0, 0, 217}
	tooltipBorder  = color.White
	tooltipText    = color.White
	glyphStyle     = render.TextStyle{Size: 16, Bold: true, Align: render.AlignCenter, Baseline: render.BaselineMiddle}
	labelStyle     = render.TextStyle{Size: 10, Align: render.AlignCenter, Baseline: render.BaselineMiddle}
	tooltipStyle   = render.TextStyle{Size: 12, Align: render.AlignLeft, Baseline: render.BaselineTop}
	tokenRatio     = 0.35
	highlightRatio = 0.4
)

const (
	tooltipPadding    = 6.0
	tooltipLineHeight = 14.0
	pulseAmplitude    = 5.0
	pulseSpeed        = 3.0
)

// Render redraws the whole board. It runs after every mutation; hosts may
// also call it directly, e.g. after the surface was lost.
func (e *Engine) Render() {
	if !e.live() {
		return
	}
	s := e.surface
	s.Clear()

	w, h := e.cfg.PixelSize()
	if e.background != nil {
		s.DrawImage(e.background, 0, 0, float64(w), float64(h))
	}

	e.drawGrid(float64(w), float64(h))

	for _, ent := range e.entities {
		if e.eligible(ent) {
			e.drawEntity(ent)
		}
	}

	if e.selected != nil && e.eligible(e.selected) {
		e.drawHighlight(e.selected, selectedRing, 3)
	}

	if e.activeID != "" {
		active := e.find(e.activeID)
		if active != nil && e.eligible(active) && active != e.selected {
			e.drawHighlight(active, activeRing, 3)
			e.drawPulse(active)
		}
	}

	if e.hovered != nil && e.hovered != e.selected && e.eligible(e.hovered) {
		e.drawHighlight(e.hovered, hoverRing, 2)
	}

	if e.hovered != nil && e.eligible(e.hovered) {
		e.drawTooltip(e.hovered)
	}

	e.schedulePulse()
}

func (e *Engine) drawGrid(width, height float64) {
	cell := e.cfg.CellSizePx
	half := 0.5 / e.deviceScale()

	for x := 0; x <= e.cfg.GridWidth; x++ {
		pos := math.Floor(float64(x)*cell) + half
		e.surface.StrokeLine(pos, 0, pos, height, 1, gridLineColor)
	}
	for y := 0; y <= e.cfg.GridHeight; y++ {
		pos := math.Floor(float64(y)*cell) + half
		e.surface.StrokeLine(0, pos, width, pos, 1, gridLineColor)
	}
}

func (e *Engine) center(ent *Entity) (float64, float64) {
	cell := e.cfg.CellSizePx
	return float64(ent.GridX)*cell + cell/2, float64(ent.GridY)*cell + cell/2
}

func (e *Engine) drawEntity(ent *Entity) {
	cx, cy := e.center(ent)
	radius := e.cfg.CellSizePx * tokenRatio

	e.surface.FillCircle(cx, cy, radius, ent.Color())
	e.surface.StrokeCircle(cx, cy, radius, 2, tokenBorder)
	e.surface.DrawText(ent.EntityType.Glyph(), cx, cy, glyphStyle, glyphColor)
	e.surface.DrawText(ent.ShortLabel(), cx, cy+radius+12, labelStyle, labelColor)
}

func (e *Engine) drawHighlight(ent *Entity, clr color.Color, width float32) {
	cx, cy := e.center(ent)
	e.surface.StrokeCircle(cx, cy, e.cfg.CellSizePx*highlightRatio, width, clr)
}

// pulseRadius oscillates around the highlight radius as a function of
// wall-clock time, so the loop looks the same at any frame rate.
func (e *Engine) pulseRadius() float64 {
	t := float64(e.clock().UnixNano()) / float64(1e9)
	return e.cfg.CellSizePx*highlightRatio + math.Sin(t*pulseSpeed)*pulseAmplitude
}

func (e *Engine) drawPulse(ent *Entity) {
	cx, cy := e.center(ent)
	e.surface.StrokeCircle(cx, cy, e.pulseRadius(), 2, pulseRing)
}

// schedulePulse keeps one frame request in flight while a participant is
// active. The request is only made while the id is set, so clearing it
// ends the loop after the frame already in flight.
func (e *Engine) schedulePulse() {
	if e.sched == nil || e.activeID == "" || e.framePending {
		return
	}
	e.framePending = true
	e.sched.RequestFrame(func() {
		e.framePending = false
		if !e.live() {
			return
		}
		e.Render()
	})
}

// tooltipLines returns the name plus the optional AC and HP lines.
func tooltipLines(ent *Entity) []string {
	lines := []string{ent.Name()}
	if ent.ArmorClass != 0 {
		lines = append(lines, fmt.Sprintf("AC: %d", ent.ArmorClass))
	}
	if ent.CurrentHP != nil {
		maxHP := ent.MaxHP
		if maxHP == 0 {
			maxHP = *ent.CurrentHP
		}
		lines = append(lines, fmt.Sprintf("HP: %d/%d", *ent.CurrentHP, maxHP))
	}
	return lines
}

// tooltipBox places the tooltip above the token, flips it below when it
// would clip the top edge and clamps it horizontally inside the surface.
func (e *Engine) tooltipBox(ent *Entity, lines []string) (x, y, width, height float64) {
	maxWidth := 0.0
	for _, line := range lines {
		if w := e.surface.MeasureText(line, tooltipStyle); w > maxWidth {
			maxWidth = w
		}
	}
	width = maxWidth + tooltipPadding*2
	height = float64(len(lines))*tooltipLineHeight + tooltipPadding*2

	cx, cy := e.center(ent)
	cell := e.cfg.CellSizePx
	x = cx - width/2
	y = cy - cell*0.6 - height - 5

	if y < 0 {
		y = cy + cell*0.6 + 5
	}
	surfaceW, _ := e.cfg.PixelSize()
	if x+width > float64(surfaceW) {
		x = float64(surfaceW) - width
	}
	if x < 0 {
		x = 0
	}
	return x, y, width, height
}

func (e *Engine) drawTooltip(ent *Entity) {
	lines := tooltipLines(ent)
	x, y, w, h := e.tooltipBox(ent, lines)

	e.surface.FillRect(x, y, w, h, tooltipFill)
	e.surface.StrokeRect(x, y, w, h, 1, tooltipBorder)
	for i, line := range lines {
		e.surface.DrawText(line, x+tooltipPadding, y+tooltipPadding+float64(i)*tooltipLineHeight, tooltipStyle, tooltipText)
	}
}
