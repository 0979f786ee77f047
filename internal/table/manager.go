package table

import (
	"image"
	"image/color"

	"chosenoffset.com/tablemap/internal/grid"
	"chosenoffset.com/tablemap/internal/render"
)

// hudHeight is the height of the status bar above the board, in logical units.
const hudHeight = 24

// BoardSurface is an offscreen surface the Manager presents onto the screen.
type BoardSurface interface {
	render.Surface
	render.Image
	SetDisplayRect(r image.Rectangle)
}

// Message represents an on-screen message that fades over time.
type Message struct {
	Text     string
	TimeLeft float64 // Seconds remaining
	MaxTime  float64 // Initial duration
}

// Manager implements render.Game for a single open table. It drains the
// frame queue, feeds pointer, touch and key input to the table and
// presents the board below a status bar.
type Manager struct {
	ScreenWidth  int
	ScreenHeight int
	Scale        float64
	Table        *Table
	Board        BoardSurface
	Queue        *render.FrameQueue
	InputMgr     render.InputManager
	Messages     []Message

	inside       bool
	lastX, lastY int
	touchPos     map[int]image.Point
}

// NewManager creates a manager presenting t, which must have been built on board.
func NewManager(t *Table, board BoardSurface, queue *render.FrameQueue, input render.InputManager, scale float64) *Manager {
	if scale <= 0 {
		scale = 1
	}
	m := &Manager{
		Scale:    scale,
		Table:    t,
		Board:    board,
		Queue:    queue,
		InputMgr: input,
		touchPos: make(map[int]image.Point),
	}
	t.OnMessage = m.ShowMessage
	return m
}

// Update handles one tick.
func (m *Manager) Update() error {
	// Delta time for timers (assuming 60 FPS)
	dt := 1.0 / 60.0
	m.updateMessages(dt)

	m.Queue.RunPosted()

	for _, key := range Keys {
		if !m.InputMgr.IsKeyJustPressed(key) {
			continue
		}
		if err := m.Table.HandleKey(key); err != nil {
			return err
		}
	}

	m.updatePointer()
	m.updateTouches()
	return nil
}

func (m *Manager) updatePointer() {
	eng := m.Table.Engine()
	x, y := m.InputMgr.GetCursorPosition()
	moved := x != m.lastX || y != m.lastY
	m.lastX, m.lastY = x, y

	if !image.Pt(x, y).In(m.Board.DisplayRect()) {
		if m.inside {
			eng.PointerLeave()
		}
		m.inside = false
		return
	}

	if moved || !m.inside {
		eng.PointerMove(float64(x), float64(y))
	}
	m.inside = true

	if m.InputMgr.IsMouseButtonJustPressed(render.MouseButtonLeft) {
		eng.PointerDown(float64(x), float64(y))
	}
	if m.InputMgr.IsMouseButtonJustReleased(render.MouseButtonLeft) {
		eng.PointerUp()
	}
}

func (m *Manager) updateTouches() {
	eng := m.Table.Engine()
	active := m.InputMgr.Touches()
	touches := make([]grid.Touch, 0, len(active))
	moved := false
	seen := make(map[int]image.Point, len(active))
	for _, tp := range active {
		touches = append(touches, grid.Touch{ID: tp.ID, X: float64(tp.X), Y: float64(tp.Y)})
		pt := image.Pt(tp.X, tp.Y)
		if prev, ok := m.touchPos[tp.ID]; ok && prev != pt {
			moved = true
		}
		seen[tp.ID] = pt
	}
	m.touchPos = seen

	if len(m.InputMgr.JustPressedTouchIDs()) > 0 {
		eng.TouchStart(touches)
	} else if moved {
		eng.TouchMove(touches)
	}
	for _, id := range m.InputMgr.JustReleasedTouchIDs() {
		eng.TouchEnd(id)
	}
}

func (m *Manager) updateMessages(dt float64) {
	var active []Message
	for _, msg := range m.Messages {
		msg.TimeLeft -= dt
		if msg.TimeLeft > 0 {
			active = append(active, msg)
		}
	}
	m.Messages = active
}

// ShowMessage adds a new message to be displayed on screen.
func (m *Manager) ShowMessage(text string) {
	m.Messages = append(m.Messages, Message{
		Text:     text,
		TimeLeft: 3.0,
		MaxTime:  3.0,
	})
}

// Draw runs pending frame callbacks and presents the board.
func (m *Manager) Draw(screen render.Surface) {
	m.Queue.RunFrame()

	w, h := float64(m.ScreenWidth), float64(m.ScreenHeight)
	screen.FillRect(0, 0, w, h, color.RGBA{20, 20, 28, 255})

	bw, bh := m.Board.BackingSize()
	top := int(hudHeight * m.Scale)
	ox := max((m.ScreenWidth-bw)/2, 0)
	m.Board.SetDisplayRect(image.Rect(ox, top, ox+bw, top+bh))
	screen.DrawImage(m.Board, float64(ox), float64(top), float64(bw), float64(bh))

	m.drawStatus(screen)
	m.drawMessages(screen)
}

func (m *Manager) drawStatus(screen render.Surface) {
	style := render.TextStyle{Size: 12 * m.Scale, Baseline: render.BaselineMiddle}
	screen.DrawText(m.Table.Status(), 8*m.Scale, hudHeight*m.Scale/2, style, color.White)
}

func (m *Manager) drawMessages(screen render.Surface) {
	style := render.TextStyle{Size: 12 * m.Scale}
	y := float64(m.ScreenHeight) - 20*m.Scale*float64(len(m.Messages)) - 8*m.Scale
	for _, msg := range m.Messages {
		alpha := uint8(255 * (msg.TimeLeft / msg.MaxTime))
		screen.DrawText(msg.Text, 20*m.Scale, y, style, color.NRGBA{255, 255, 255, alpha})
		y += 20 * m.Scale
	}
}

// Layout reports a screen in device pixels so the board is drawn 1:1.
func (m *Manager) Layout(outsideWidth, outsideHeight int) (int, int) {
	m.ScreenWidth = int(float64(outsideWidth) * m.Scale)
	m.ScreenHeight = int(float64(outsideHeight) * m.Scale)
	return m.ScreenWidth, m.ScreenHeight
}

var _ render.Game = (*Manager)(nil)
