// Package termhost runs a table inside a terminal. Input arrives as tcell
// events; frames are paced by a ticker and by work posted to the queue.
package termhost

import (
	"context"
	"errors"
	"time"

	"github.com/gdamore/tcell/v2"

	"chosenoffset.com/tablemap/internal/render"
	"chosenoffset.com/tablemap/internal/render/term"
	"chosenoffset.com/tablemap/internal/table"
)

// FrameInterval paces pulse frames.
const FrameInterval = 50 * time.Millisecond

// messageTTL is how long a notice stays on the status line.
const messageTTL = 3 * time.Second

var (
	statusStyle  = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorSilver)
	messageStyle = tcell.StyleDefault.Foreground(tcell.ColorYellow)
)

// Host couples a table, its terminal surface and a tcell screen.
type Host struct {
	screen  tcell.Screen
	table   *table.Table
	surface *term.Surface
	queue   *render.FrameQueue
	clock   func() time.Time

	inside   bool
	pressed  bool
	lastCell [2]int

	message   string
	messageAt time.Time
}

// New creates a host. The surface origin must leave row 0 free for the
// status line.
func New(screen tcell.Screen, t *table.Table, surface *term.Surface, queue *render.FrameQueue) *Host {
	h := &Host{
		screen:   screen,
		table:    t,
		surface:  surface,
		queue:    queue,
		clock:    time.Now,
		lastCell: [2]int{-1, -1},
	}
	t.OnMessage = h.ShowMessage
	return h
}

// ShowMessage puts a notice on the status line for a few seconds.
func (h *Host) ShowMessage(text string) {
	h.message = text
	h.messageAt = h.clock()
}

// Run drives the host until the user quits or ctx ends.
func (h *Host) Run(ctx context.Context) error {
	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := h.screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	ticker := time.NewTicker(FrameInterval)
	defer ticker.Stop()

	h.Draw()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			if err := h.HandleEvent(ev); err != nil {
				if errors.Is(err, table.ErrQuit) {
					return nil
				}
				return err
			}
		case <-h.queue.Wake():
			h.queue.RunPosted()
		case <-ticker.C:
			h.queue.RunPosted()
			h.queue.RunFrame()
		}
		h.Draw()
	}
}

// HandleEvent applies one tcell event. It returns table.ErrQuit when the
// user asks to leave.
func (h *Host) HandleEvent(ev tcell.Event) error {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyCtrlC {
			return table.ErrQuit
		}
		if key, ok := mapKey(ev); ok {
			return h.table.HandleKey(key)
		}
	case *tcell.EventMouse:
		col, row := ev.Position()
		h.handleMouse(col, row, ev.Buttons()&tcell.Button1 != 0)
	case *tcell.EventResize:
		h.screen.Sync()
	}
	return nil
}

func (h *Host) handleMouse(col, row int, down bool) {
	eng := h.table.Engine()
	x, y, ok := h.surface.PointFromCell(col, row)
	if !ok {
		if h.inside {
			eng.PointerLeave()
		}
		h.inside = false
		h.pressed = down
		return
	}

	moved := h.lastCell != [2]int{col, row}
	h.lastCell = [2]int{col, row}
	if moved || !h.inside {
		eng.PointerMove(x, y)
	}
	h.inside = true

	switch {
	case down && !h.pressed:
		eng.PointerDown(x, y)
	case !down && h.pressed:
		eng.PointerUp()
	}
	h.pressed = down
}

func mapKey(ev *tcell.EventKey) (render.Key, bool) {
	switch ev.Key() {
	case tcell.KeyEscape:
		return render.KeyEscape, true
	case tcell.KeyDelete, tcell.KeyBackspace, tcell.KeyBackspace2:
		return render.KeyDelete, true
	case tcell.KeyRune:
	default:
		return 0, false
	}
	switch ev.Rune() {
	case 'p', 'P':
		return render.KeyP, true
	case 'n', 'N':
		return render.KeyN, true
	case 'm', 'M':
		return render.KeyM, true
	case 'h', 'H':
		return render.KeyH, true
	case ' ':
		return render.KeySpace, true
	case '+', '=':
		return render.KeyEqual, true
	case '-', '_':
		return render.KeyMinus, true
	case 'r', 'R':
		return render.KeyR, true
	case 'q', 'Q':
		return render.KeyQ, true
	}
	return 0, false
}

// Draw presents the board and the status line.
func (h *Host) Draw() {
	h.screen.Clear()
	h.surface.Present(h.screen)

	width, _ := h.screen.Size()
	status := []rune(h.table.Status())
	for col := 0; col < width; col++ {
		r := ' '
		if col < len(status) {
			r = status[col]
		}
		h.screen.SetContent(col, 0, r, nil, statusStyle)
	}

	if h.message != "" && h.clock().Sub(h.messageAt) < messageTTL {
		_, rows := h.surface.Cells()
		row := h.surface.Origin().Y + rows
		for i, r := range []rune(h.message) {
			h.screen.SetContent(i, row, r, nil, messageStyle)
		}
	}
	h.screen.Show()
}
