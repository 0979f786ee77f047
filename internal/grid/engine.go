// Package grid implements the tactical map board: a cell grid of positioned
// tokens with drag placement, hover and selection highlighting, a pulsing
// active-turn ring and tooltips. The host owns combat state and drives the
// board through its mutation methods; the board reports selections and
// completed moves back through callbacks.
package grid

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"chosenoffset.com/tablemap/internal/logging"
	"chosenoffset.com/tablemap/internal/render"
)

// Options carries the collaborators of an Engine. Every field is optional.
type Options struct {
	Loader    render.ImageLoader
	Scheduler render.Scheduler
	Logger    *logrus.Entry
	Clock     func() time.Time
}

// Engine is one board instance. It is not safe for concurrent use: every
// method must be called from the UI loop that owns the surface.
type Engine struct {
	surface render.Surface
	loader  render.ImageLoader
	sched   render.Scheduler
	log     *logrus.Entry
	clock   func() time.Time

	cfg        Config
	entities   []*Entity
	filters    Filters
	background render.Image

	selected   *Entity
	hovered    *Entity
	dragging   bool
	dragOffset Cell
	touchID    int
	touching   bool
	activeID   string
	cursor     render.CursorShape

	framePending bool
	inert        bool
	closed       bool

	// OnEntitySelected fires synchronously when a press lands on a token.
	OnEntitySelected func(Entity)
	// OnEntityMoved fires once when a drag is released, with the final position.
	OnEntityMoved func(Entity)
}

// New creates a board on surface. A nil surface yields an inert engine
// whose methods do nothing.
func New(surface render.Surface, cfg Config, opts Options) *Engine {
	e := &Engine{
		surface: surface,
		loader:  opts.Loader,
		sched:   opts.Scheduler,
		log:     opts.Logger,
		clock:   opts.Clock,
		cfg:     cfg.WithDefaults(),
		filters: AllFilters(),
	}
	if e.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		e.log = logrus.NewEntry(l)
	}
	e.log = logging.Component(e.log, "grid")
	if e.clock == nil {
		e.clock = time.Now
	}

	if surface == nil {
		e.log.Error("drawing surface not found, board left inert")
		e.inert = true
		return e
	}

	e.applySize()

	if e.cfg.BackgroundImageURL != "" {
		e.loadBackground(e.cfg.BackgroundImageURL)
	}

	e.Render()
	return e
}

// applySize sizes the surface from the grid dimensions.
func (e *Engine) applySize() {
	w, h := e.cfg.PixelSize()
	e.surface.Resize(w, h)
}

// loadBackground loads the background off the UI loop and hands the
// result back through the scheduler. Without a scheduler there is no way
// back onto the loop, so the load happens inline.
func (e *Engine) loadBackground(url string) {
	if e.loader == nil {
		e.log.WithField("url", url).Warn("no image loader configured, background skipped")
		return
	}
	loader := e.loader
	if e.sched == nil {
		img, err := loader.LoadImage(url)
		e.finishBackground(url, img, err, false)
		return
	}
	sched := e.sched
	go func() {
		img, err := loader.LoadImage(url)
		sched.Post(func() { e.finishBackground(url, img, err, true) })
	}()
}

// finishBackground stores the result of a background load. A failed load
// leaves the board without a background.
func (e *Engine) finishBackground(url string, img render.Image, err error, redraw bool) {
	if e.closed {
		return
	}
	if err != nil {
		e.log.WithError(err).WithField("url", url).Warn("failed to load background image")
		e.background = nil
		return
	}
	e.background = img
	if redraw {
		e.Render()
	}
}

func (e *Engine) live() bool {
	return !e.inert && !e.closed
}

// Close stops the board. Pending frame callbacks and background loads
// become no-ops and further calls do nothing.
func (e *Engine) Close() {
	e.closed = true
	e.activeID = ""
}

// Inert reports whether the engine was built without a surface.
func (e *Engine) Inert() bool {
	return e.inert
}

// LoadEntities replaces the whole collection. The selection survives when
// its id is still present.
func (e *Engine) LoadEntities(list []Entity) {
	if !e.live() {
		return
	}
	selectedID, hoveredID := idOf(e.selected), idOf(e.hovered)

	e.entities = make([]*Entity, 0, len(list))
	for _, ent := range list {
		c := ent.clone()
		e.clampEntity(&c)
		e.entities = append(e.entities, &c)
	}

	e.selected = e.find(selectedID)
	e.hovered = e.find(hoveredID)
	if e.selected == nil {
		e.endDrag()
	}
	e.Render()
}

// AddEntity appends a token. Ids are not deduplicated.
func (e *Engine) AddEntity(ent Entity) {
	if !e.live() {
		return
	}
	c := ent.clone()
	e.clampEntity(&c)
	e.entities = append(e.entities, &c)
	e.Render()
}

// UpdateEntity merges patch into the first token with id. Unknown ids are ignored.
func (e *Engine) UpdateEntity(id string, patch EntityPatch) {
	if !e.live() {
		return
	}
	ent := e.find(id)
	if ent == nil {
		return
	}
	patch.apply(ent)
	e.clampEntity(ent)
	e.Render()
}

// RemoveEntity drops every token with id and clears any interaction state
// that pointed at it.
func (e *Engine) RemoveEntity(id string) {
	if !e.live() {
		return
	}
	kept := e.entities[:0]
	for _, ent := range e.entities {
		if ent.EntityID != id {
			kept = append(kept, ent)
		}
	}
	for i := len(kept); i < len(e.entities); i++ {
		e.entities[i] = nil
	}
	e.entities = kept

	if e.selected != nil && e.selected.EntityID == id {
		e.selected = nil
		e.endDrag()
	}
	if e.hovered != nil && e.hovered.EntityID == id {
		e.hovered = nil
		e.setCursor(render.CursorDefault)
	}
	e.Render()
}

// SetFilter updates one per-type toggle. Unknown names are ignored.
func (e *Engine) SetFilter(name Filter, value bool) {
	if !e.live() {
		return
	}
	if !e.filters.set(name, value) {
		return
	}
	e.Render()
}

// SetFilters replaces all toggles at once.
func (e *Engine) SetFilters(f Filters) {
	if !e.live() {
		return
	}
	e.filters = f
	e.Render()
}

// SetActiveParticipant sets the token whose turn is current. An empty id
// clears it, which also ends the pulse loop.
func (e *Engine) SetActiveParticipant(id string) {
	if !e.live() {
		return
	}
	e.activeID = id
	e.Render()
}

// ClearSelection drops the selected token.
func (e *Engine) ClearSelection() {
	if !e.live() {
		return
	}
	e.selected = nil
	e.endDrag()
	e.Render()
}

// Resize changes the pixel size of a cell. Token coordinates are untouched.
func (e *Engine) Resize(cellSizePx float64) {
	if !e.live() || cellSizePx <= 0 {
		return
	}
	e.cfg.CellSizePx = cellSizePx
	e.applySize()
	e.Render()
}

// EntitiesAt returns every eligible token on a cell, in insertion order.
func (e *Engine) EntitiesAt(x, y int) []Entity {
	var out []Entity
	for _, ent := range e.entities {
		if ent.GridX == x && ent.GridY == y && e.eligible(ent) {
			out = append(out, ent.clone())
		}
	}
	return out
}

// Entities returns a copy of the collection in insertion order.
func (e *Engine) Entities() []Entity {
	out := make([]Entity, 0, len(e.entities))
	for _, ent := range e.entities {
		out = append(out, ent.clone())
	}
	return out
}

// Entity returns the first token with id.
func (e *Engine) Entity(id string) (Entity, bool) {
	ent := e.find(id)
	if ent == nil {
		return Entity{}, false
	}
	return ent.clone(), true
}

// Selected returns the selected token, if any.
func (e *Engine) Selected() (Entity, bool) {
	if e.selected == nil {
		return Entity{}, false
	}
	return e.selected.clone(), true
}

// Hovered returns the token under the pointer, if any.
func (e *Engine) Hovered() (Entity, bool) {
	if e.hovered == nil {
		return Entity{}, false
	}
	return e.hovered.clone(), true
}

// ActiveParticipant returns the id of the current-turn token.
func (e *Engine) ActiveParticipant() string {
	return e.activeID
}

// State returns the interaction state.
func (e *Engine) State() State {
	switch {
	case e.dragging:
		return StateDragging
	case e.hovered != nil:
		return StateHovering
	default:
		return StateIdle
	}
}

// Filters returns the current per-type toggles.
func (e *Engine) Filters() Filters {
	return e.filters
}

// Config returns the current geometry.
func (e *Engine) Config() Config {
	return e.cfg
}

// SurfaceSize returns the logical size of the board in pixels.
func (e *Engine) SurfaceSize() (width, height int) {
	return e.cfg.PixelSize()
}

func (e *Engine) find(id string) *Entity {
	if id == "" {
		return nil
	}
	for _, ent := range e.entities {
		if ent.EntityID == id {
			return ent
		}
	}
	return nil
}

func (e *Engine) clampEntity(ent *Entity) {
	ent.GridX = clamp(ent.GridX, 0, e.cfg.GridWidth-1)
	ent.GridY = clamp(ent.GridY, 0, e.cfg.GridHeight-1)
}

func (e *Engine) endDrag() {
	e.dragging = false
	e.touching = false
}

func idOf(ent *Entity) string {
	if ent == nil {
		return ""
	}
	return ent.EntityID
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
