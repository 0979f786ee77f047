// Package headless provides a render.Surface that records drawing calls
// instead of rasterizing them. It backs tests and server-side snapshots.
package headless

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"chosenoffset.com/tablemap/internal/render"
)

// Op is one recorded drawing call.
type Op struct {
	Kind   string
	X, Y   float64
	X1, Y1 float64
	W, H   float64
	Radius float64
	Stroke float32
	Text   string
	Style  render.TextStyle
	Color  color.Color
	Image  render.Image
}

// Surface records the operations of the most recent frame. A Clear starts
// a new frame.
type Surface struct {
	width, height int
	scale         float64
	display       image.Rectangle
	displaySet    bool
	cursor        render.CursorShape

	ops     []Op
	frames  int
	resizes int
	cursors int
}

// NewSurface creates a surface with the given device scale.
func NewSurface(scale float64) *Surface {
	if scale <= 0 {
		scale = 1
	}
	return &Surface{scale: scale}
}

// Resize implements render.Surface.
func (s *Surface) Resize(width, height int) {
	s.width, s.height = width, height
	s.resizes++
}

// Size returns the logical size, so a Surface is also a render.Image.
func (s *Surface) Size() (int, int) {
	return s.width, s.height
}

// DeviceScale implements render.Surface.
func (s *Surface) DeviceScale() float64 {
	return s.scale
}

// BackingSize implements render.Surface.
func (s *Surface) BackingSize() (int, int) {
	return int(float64(s.width) * s.scale), int(float64(s.height) * s.scale)
}

// SetDisplayRect overrides where the surface is presented. By default it
// is displayed at the origin at its logical size.
func (s *Surface) SetDisplayRect(r image.Rectangle) {
	s.display = r
	s.displaySet = true
}

// DisplayRect implements render.Surface.
func (s *Surface) DisplayRect() image.Rectangle {
	if s.displaySet {
		return s.display
	}
	return image.Rect(0, 0, s.width, s.height)
}

// Clear implements render.Surface.
func (s *Surface) Clear() {
	s.ops = s.ops[:0]
	s.frames++
}

func (s *Surface) DrawImage(img render.Image, x, y, width, height float64) {
	s.ops = append(s.ops, Op{Kind: "image", Image: img, X: x, Y: y, W: width, H: height})
}

func (s *Surface) StrokeLine(x0, y0, x1, y1 float64, strokeWidth float32, clr color.Color) {
	s.ops = append(s.ops, Op{Kind: "line", X: x0, Y: y0, X1: x1, Y1: y1, Stroke: strokeWidth, Color: clr})
}

func (s *Surface) FillCircle(x, y, radius float64, clr color.Color) {
	s.ops = append(s.ops, Op{Kind: "fill_circle", X: x, Y: y, Radius: radius, Color: clr})
}

func (s *Surface) StrokeCircle(x, y, radius float64, strokeWidth float32, clr color.Color) {
	s.ops = append(s.ops, Op{Kind: "stroke_circle", X: x, Y: y, Radius: radius, Stroke: strokeWidth, Color: clr})
}

func (s *Surface) FillRect(x, y, width, height float64, clr color.Color) {
	s.ops = append(s.ops, Op{Kind: "fill_rect", X: x, Y: y, W: width, H: height, Color: clr})
}

func (s *Surface) StrokeRect(x, y, width, height float64, strokeWidth float32, clr color.Color) {
	s.ops = append(s.ops, Op{Kind: "stroke_rect", X: x, Y: y, W: width, H: height, Stroke: strokeWidth, Color: clr})
}

func (s *Surface) DrawText(text string, x, y float64, style render.TextStyle, clr color.Color) {
	s.ops = append(s.ops, Op{Kind: "text", Text: text, X: x, Y: y, Style: style, Color: clr})
}

// MeasureText approximates a monospace face: each rune is 0.6 em wide.
func (s *Surface) MeasureText(text string, style render.TextStyle) float64 {
	return float64(len([]rune(text))) * style.Size * 0.6
}

// SetCursor implements render.Surface.
func (s *Surface) SetCursor(shape render.CursorShape) {
	s.cursor = shape
	s.cursors++
}

// Ops returns the operations of the current frame.
func (s *Surface) Ops() []Op {
	out := make([]Op, len(s.ops))
	copy(out, s.ops)
	return out
}

// OpsOfKind returns the operations of the current frame with the given kind.
func (s *Surface) OpsOfKind(kind string) []Op {
	var out []Op
	for _, op := range s.ops {
		if op.Kind == kind {
			out = append(out, op)
		}
	}
	return out
}

// Texts returns the strings drawn in the current frame.
func (s *Surface) Texts() []string {
	var out []string
	for _, op := range s.ops {
		if op.Kind == "text" {
			out = append(out, op.Text)
		}
	}
	return out
}

// Frames counts how many frames were started.
func (s *Surface) Frames() int {
	return s.frames
}

// Resizes counts Resize calls.
func (s *Surface) Resizes() int {
	return s.resizes
}

// Cursor returns the last cursor shape set.
func (s *Surface) Cursor() render.CursorShape {
	return s.cursor
}

// CursorChanges counts SetCursor calls.
func (s *Surface) CursorChanges() int {
	return s.cursors
}

// Image is a stand-in raster of a fixed size.
type Image struct {
	Name          string
	Width, Height int
}

// Size implements render.Image.
func (i *Image) Size() (int, int) {
	return i.Width, i.Height
}

// Loader serves images from a fixed table. Unknown paths fail.
type Loader struct {
	mu     sync.Mutex
	images map[string]render.Image
	calls  []string
}

// NewLoader creates a loader serving images.
func NewLoader(images map[string]render.Image) *Loader {
	if images == nil {
		images = map[string]render.Image{}
	}
	return &Loader{images: images}
}

// LoadImage implements render.ImageLoader. It is safe for concurrent use.
func (l *Loader) LoadImage(path string) (render.Image, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, path)
	img, ok := l.images[path]
	if !ok {
		return nil, fmt.Errorf("image %q not found", path)
	}
	return img, nil
}

// Calls returns the paths requested so far.
func (l *Loader) Calls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.calls))
	copy(out, l.calls)
	return out
}

var (
	_ render.Surface     = (*Surface)(nil)
	_ render.Image       = (*Surface)(nil)
	_ render.ImageLoader = (*Loader)(nil)
)
