// Package table wires one board file to a grid engine, the position store,
// view preferences, the turn order and audio cues. Hosts drive a Table
// from their UI loop.
package table

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"chosenoffset.com/tablemap/internal/grid"
	"chosenoffset.com/tablemap/internal/logging"
	"chosenoffset.com/tablemap/internal/mapfile"
	"chosenoffset.com/tablemap/internal/positions"
	"chosenoffset.com/tablemap/internal/prefs"
	"chosenoffset.com/tablemap/internal/render"
	"chosenoffset.com/tablemap/internal/turn"
)

// storeTimeout bounds a single store call made from the UI loop.
const storeTimeout = 2 * time.Second

// ErrQuit is returned when the user asks to leave.
var ErrQuit = errors.New("quit requested")

// Cues plays feedback sounds.
type Cues interface {
	Select()
	Drop()
	Turn()
}

// ZoomLimits bounds the cell size reachable through Zoom.
type ZoomLimits struct {
	Min, Max, Step float64
}

// Options carries the collaborators of a Table. Every field is optional.
type Options struct {
	Store     positions.Store
	Prefs     *prefs.Manager
	Cues      Cues
	Loader    render.ImageLoader
	Scheduler render.Scheduler
	Logger    *logrus.Entry
	Clock     func() time.Time
	Zoom      ZoomLimits
}

// Table is one open board.
type Table struct {
	name   string
	board  *mapfile.Board
	engine *grid.Engine
	store  positions.Store
	prefs  *prefs.Manager
	view   prefs.View
	order  *turn.Order
	cues   Cues
	log    *logrus.Entry
	zoom   ZoomLimits

	// OnMessage receives short notices for on-screen display.
	OnMessage func(text string)
}

type silentCues struct{}

func (silentCues) Select() {}
func (silentCues) Drop()   {}
func (silentCues) Turn()   {}

// New opens board on surface. Positions saved for the board take
// precedence over the file's initial placement; a board seen for the
// first time has its initial placement persisted.
func New(ctx context.Context, surface render.Surface, board *mapfile.Board, opts Options) (*Table, error) {
	if board == nil {
		return nil, fmt.Errorf("board is required")
	}

	t := &Table{
		name:  board.Name,
		board: board,
		store: opts.Store,
		prefs: opts.Prefs,
		cues:  opts.Cues,
		log:   opts.Logger,
		zoom:  opts.Zoom,
	}
	if t.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		t.log = logrus.NewEntry(l)
	}
	t.log = logging.Component(t.log, "table").WithField("board", board.Name)
	if t.cues == nil {
		t.cues = silentCues{}
	}
	if t.prefs == nil {
		t.prefs = prefs.NewManager(nil, t.log)
	}
	if t.zoom.Step <= 0 {
		t.zoom = ZoomLimits{Min: 16, Max: 96, Step: 8}
	}

	t.view = t.prefs.Load(board.Name)
	cfg := board.Grid
	if t.view.CellSizePx > 0 {
		cfg.CellSizePx = t.clampCell(t.view.CellSizePx)
	}

	entities, err := t.restore(ctx, board, cfg)
	if err != nil {
		return nil, err
	}

	t.engine = grid.New(surface, cfg, grid.Options{
		Loader:    opts.Loader,
		Scheduler: opts.Scheduler,
		Logger:    t.log,
		Clock:     opts.Clock,
	})
	t.engine.OnEntitySelected = t.entitySelected
	t.engine.OnEntityMoved = t.entityMoved
	t.engine.SetFilters(t.view.Filters())
	t.engine.LoadEntities(entities)

	t.order = t.newOrder(entities)

	t.log.WithFields(logrus.Fields{
		"entities":     len(entities),
		"participants": len(t.order.Participants()),
	}).Info("board opened")
	return t, nil
}

// restore returns the tokens to show. A board with no saved config is
// opened for the first time and gets the file's placement; otherwise the
// saved tokens win, even when none are left.
func (t *Table) restore(ctx context.Context, board *mapfile.Board, cfg grid.Config) ([]grid.Entity, error) {
	if t.store == nil {
		return board.Entities, nil
	}

	_, err := t.store.GetBoardConfig(ctx, board.Name)
	firstOpen := errors.Is(err, positions.ErrNotFound)
	if err != nil && !firstOpen {
		return nil, fmt.Errorf("failed to read board config: %w", err)
	}
	if err := t.store.SaveBoardConfig(ctx, board.Name, cfg); err != nil {
		return nil, fmt.Errorf("failed to save board config: %w", err)
	}

	if firstOpen {
		if err := t.store.PlaceInitial(ctx, board.Name, board.Entities); err != nil {
			return nil, fmt.Errorf("failed to place initial entities: %w", err)
		}
		t.log.WithField("entities", len(board.Entities)).Info("placed initial entities")
		return board.Entities, nil
	}

	saved, err := t.store.ListEntities(ctx, board.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to restore positions: %w", err)
	}
	t.log.WithField("entities", len(saved)).Debug("restored saved positions")
	return t.syncAppearance(ctx, board.Entities, saved), nil
}

// syncAppearance carries colour and name edits made to the board file over
// to saved tokens. Positions and visibility stay as saved.
func (t *Table) syncAppearance(ctx context.Context, file, saved []grid.Entity) []grid.Entity {
	byID := make(map[string]grid.Entity, len(file))
	for _, ent := range file {
		byID[ent.EntityID] = ent
	}
	for i, ent := range saved {
		src, ok := byID[ent.EntityID]
		if !ok {
			continue
		}
		var a positions.Appearance
		if src.TokenColor != "" && src.TokenColor != ent.TokenColor {
			a.TokenColor = src.TokenColor
		}
		if src.DisplayName != "" && src.DisplayName != ent.DisplayName {
			a.DisplayName = src.DisplayName
		}
		if a == (positions.Appearance{}) {
			continue
		}
		updated, err := t.store.UpdateAppearance(ctx, t.name, ent.EntityID, a)
		if err != nil {
			t.log.WithField("entity_id", ent.EntityID).WithError(err).Warn("failed to update appearance")
			continue
		}
		saved[i] = updated
	}
	return saved
}

// newOrder builds the turn order from the board file, skipping participants
// without a token.
func (t *Table) newOrder(entities []grid.Entity) *turn.Order {
	present := make(map[string]bool, len(entities))
	for _, ent := range entities {
		present[ent.EntityID] = true
	}
	ids := make([]string, 0, len(t.board.TurnOrder))
	for _, id := range t.board.TurnOrder {
		if !present[id] {
			t.log.WithField("entity_id", id).Debug("skipping participant without a token")
			continue
		}
		ids = append(ids, id)
	}

	order := turn.NewOrder(ids)
	order.OnTurnStart = t.turnStarted
	t.engine.SetActiveParticipant(order.Current())
	return order
}

// Engine returns the board engine.
func (t *Table) Engine() *grid.Engine {
	return t.engine
}

// Name returns the board name.
func (t *Table) Name() string {
	return t.name
}

// Order returns the turn order.
func (t *Table) Order() *turn.Order {
	return t.order
}

// View returns the current view preferences.
func (t *Table) View() prefs.View {
	return t.view
}

// Close stops the engine.
func (t *Table) Close() {
	t.engine.Close()
}

func (t *Table) entitySelected(ent grid.Entity) {
	t.log.WithField("entity_id", ent.EntityID).Debug("entity selected")
	t.cues.Select()
}

func (t *Table) entityMoved(ent grid.Entity) {
	t.cues.Drop()
	fields := logrus.Fields{"entity_id": ent.EntityID, "x": ent.GridX, "y": ent.GridY}
	if t.store == nil {
		t.log.WithFields(fields).Info("entity moved")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if _, err := t.store.MoveEntity(ctx, t.name, ent.EntityID, ent.GridX, ent.GridY); err != nil {
		t.log.WithFields(fields).WithError(err).Error("failed to persist move")
		return
	}
	t.log.WithFields(fields).Info("entity moved")

	stack, err := t.store.EntitiesAt(ctx, t.name, ent.GridX, ent.GridY)
	if err != nil {
		t.log.WithFields(fields).WithError(err).Warn("failed to list shared cell")
		return
	}
	var names []string
	for _, other := range stack {
		// Hidden tokens stay secret from the table.
		if other.Visible {
			names = append(names, other.Name())
		}
	}
	if len(names) > 1 {
		t.notify("Sharing a cell: " + strings.Join(names, ", "))
	}
}

func (t *Table) turnStarted(id string, round int) {
	t.engine.SetActiveParticipant(id)
	t.cues.Turn()
	t.log.WithFields(logrus.Fields{"entity_id": id, "round": round}).Info("turn started")
	name := id
	if ent, ok := t.engine.Entity(id); ok {
		name = ent.Name()
	}
	t.notify(fmt.Sprintf("Round %d: %s", round, name))
}

func (t *Table) notify(text string) {
	if t.OnMessage != nil {
		t.OnMessage(text)
	}
}

// ToggleFilter flips one per-type filter and remembers the result.
func (t *Table) ToggleFilter(name grid.Filter) bool {
	v, ok := t.engine.Filters().Get(name)
	if !ok {
		return false
	}
	t.engine.SetFilter(name, !v)
	t.view = t.view.WithFilters(t.engine.Filters())
	t.saveView()
	t.notify(fmt.Sprintf("%s %s", filterLabel(name), onOff(!v)))
	return !v
}

// Zoom changes the cell size by steps zoom steps, within the limits.
func (t *Table) Zoom(steps int) float64 {
	current := t.engine.Config().CellSizePx
	size := t.clampCell(current + float64(steps)*t.zoom.Step)
	if size == current {
		return current
	}
	t.engine.Resize(size)
	t.view.CellSizePx = size
	t.saveView()
	return size
}

func (t *Table) clampCell(size float64) float64 {
	if t.zoom.Min > 0 {
		size = math.Max(size, t.zoom.Min)
	}
	if t.zoom.Max > 0 {
		size = math.Min(size, t.zoom.Max)
	}
	return size
}

func (t *Table) saveView() {
	if err := t.prefs.Save(t.name, t.view); err != nil {
		t.log.WithError(err).Warn("failed to save view preferences")
	}
}

// NextTurn advances the turn order and returns the new active participant.
func (t *Table) NextTurn() string {
	return t.order.Next()
}

// ToggleVisibility hides or shows the selected token. Hidden tokens cannot
// be selected, so with nothing selected every hidden token is revealed.
func (t *Table) ToggleVisibility() {
	sel, ok := t.engine.Selected()
	if !ok {
		t.revealAll()
		return
	}
	visible := !sel.Visible
	if t.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		v, err := t.store.ToggleVisibility(ctx, t.name, sel.EntityID)
		if err != nil {
			t.log.WithField("entity_id", sel.EntityID).WithError(err).Error("failed to persist visibility")
		} else {
			visible = v
		}
	}
	t.engine.UpdateEntity(sel.EntityID, grid.EntityPatch{Visible: &visible})
	if !visible {
		t.engine.ClearSelection()
	}
}

func (t *Table) revealAll() {
	for _, ent := range t.engine.Entities() {
		if !ent.Visible {
			t.setVisible(ent.EntityID, true)
		}
	}
}

func (t *Table) setVisible(id string, visible bool) {
	t.engine.UpdateEntity(id, grid.EntityPatch{Visible: &visible})
	if t.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := t.store.SetVisibility(ctx, t.name, id, visible); err != nil {
		t.log.WithField("entity_id", id).WithError(err).Error("failed to persist visibility")
	}
}

// RemoveSelected removes the selected token from the board, the store and
// the turn order.
func (t *Table) RemoveSelected() bool {
	sel, ok := t.engine.Selected()
	if !ok {
		return false
	}
	t.RemoveEntity(sel.EntityID)
	return true
}

// RemoveEntity removes a token from the board, the store and the turn order.
func (t *Table) RemoveEntity(id string) {
	wasCurrent := t.order.Current() == id
	t.engine.RemoveEntity(id)
	if t.order.Remove(id) && wasCurrent {
		t.engine.SetActiveParticipant(t.order.Current())
	}

	if t.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if err := t.store.RemoveEntity(ctx, t.name, id); err != nil && !errors.Is(err, positions.ErrNotFound) {
			t.log.WithField("entity_id", id).WithError(err).Error("failed to remove entity from store")
		}
	}
	t.log.WithField("entity_id", id).Info("entity removed")
	t.notify("Removed " + id)
}

// ResetBoard puts every token back where the board file places it and
// restarts the turn order.
func (t *Table) ResetBoard() {
	entities := t.board.Entities
	if t.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		n, err := t.store.ClearBoard(ctx, t.name)
		if err != nil {
			t.log.WithError(err).Error("failed to clear board")
			return
		}
		t.log.WithField("removed", n).Debug("board cleared")
		for _, ent := range entities {
			if err := t.store.AddEntity(ctx, t.name, ent); err != nil {
				t.log.WithField("entity_id", ent.EntityID).WithError(err).Error("failed to place entity")
			}
		}
	}

	t.engine.ClearSelection()
	t.engine.LoadEntities(entities)
	t.order = t.newOrder(entities)
	t.log.Info("board reset")
	t.notify("Board reset")
}

// ClearSelection drops the selected token.
func (t *Table) ClearSelection() {
	t.engine.ClearSelection()
}

// HandleKey runs the action bound to key. It returns ErrQuit for the quit key.
func (t *Table) HandleKey(key render.Key) error {
	switch key {
	case render.KeyP:
		t.ToggleFilter(grid.ShowPlayers)
	case render.KeyN:
		t.ToggleFilter(grid.ShowNPCs)
	case render.KeyM:
		t.ToggleFilter(grid.ShowMonsters)
	case render.KeyH:
		t.ToggleVisibility()
	case render.KeySpace:
		t.NextTurn()
	case render.KeyEscape:
		t.ClearSelection()
	case render.KeyDelete:
		t.RemoveSelected()
	case render.KeyEqual:
		t.Zoom(1)
	case render.KeyMinus:
		t.Zoom(-1)
	case render.KeyR:
		t.ResetBoard()
	case render.KeyQ:
		return ErrQuit
	}
	return nil
}

// Keys lists every key HandleKey responds to.
var Keys = []render.Key{
	render.KeyP, render.KeyN, render.KeyM, render.KeyH, render.KeySpace,
	render.KeyEscape, render.KeyDelete, render.KeyEqual, render.KeyMinus, render.KeyR, render.KeyQ,
}

// Status returns a one-line summary of the turn and filter state.
func (t *Table) Status() string {
	f := t.engine.Filters()
	active := "none"
	if id := t.order.Current(); id != "" {
		active = id
		if ent, ok := t.engine.Entity(id); ok {
			active = ent.Name()
		}
	}
	return fmt.Sprintf("%s  round %d  turn: %s  [P]%s [N]%s [M]%s",
		t.name, t.order.Round(), active, onOff(f.ShowPlayers), onOff(f.ShowNPCs), onOff(f.ShowMonsters))
}

func filterLabel(name grid.Filter) string {
	switch name {
	case grid.ShowPlayers:
		return "Players"
	case grid.ShowNPCs:
		return "NPCs"
	default:
		return "Monsters"
	}
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
