// Package term renders a board into a character grid presented through
// tcell. Drawing calls are rasterized by testing terminal cell centres
// against the shapes, so the board stays recognisable at any zoom level.
package term

import (
	"image"
	"image/color"
	"math"
	"net/http"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"

	"chosenoffset.com/tablemap/internal/render"
)

// Logical pixels covered by one terminal cell. Terminal cells are about
// twice as tall as they are wide.
const (
	ColWidthPx  = 5.0
	RowHeightPx = 10.0
)

type cell struct {
	r      rune
	fg, bg tcell.Color
	bold   bool
	filled bool
}

// Surface implements render.Surface on a character buffer. Present copies
// the buffer onto a tcell screen at the surface origin.
type Surface struct {
	width, height int
	cols, rows    int
	buf           []cell
	origin        image.Point
	cursor        render.CursorShape
}

// NewSurface creates a surface whose top-left cell sits at origin on screen.
func NewSurface(origin image.Point) *Surface {
	return &Surface{origin: origin}
}

// Resize reallocates the character buffer. One extra row and column hold
// the closing grid lines.
func (s *Surface) Resize(width, height int) {
	s.width, s.height = width, height
	s.cols = int(math.Ceil(float64(width)/ColWidthPx)) + 1
	s.rows = int(math.Ceil(float64(height)/RowHeightPx)) + 1
	s.buf = make([]cell, s.cols*s.rows)
	s.Clear()
}

// Size returns the logical size.
func (s *Surface) Size() (int, int) {
	return s.width, s.height
}

// Cells returns the buffer size in terminal cells.
func (s *Surface) Cells() (cols, rows int) {
	return s.cols, s.rows
}

// DeviceScale is always 1; the cell metrics do the scaling.
func (s *Surface) DeviceScale() float64 {
	return 1
}

// BackingSize implements render.Surface.
func (s *Surface) BackingSize() (int, int) {
	return s.width, s.height
}

// DisplayRect implements render.Surface. Pointer positions are handed to
// the board in logical pixels, see PointFromCell.
func (s *Surface) DisplayRect() image.Rectangle {
	return image.Rect(0, 0, s.width, s.height)
}

// Origin returns the screen cell of the top-left corner.
func (s *Surface) Origin() image.Point {
	return s.origin
}

// PointFromCell converts a screen cell to the logical pixel at its centre.
// ok is false when the cell lies outside the board.
func (s *Surface) PointFromCell(col, row int) (x, y float64, ok bool) {
	c, r := col-s.origin.X, row-s.origin.Y
	if c < 0 || r < 0 || c >= s.cols || r >= s.rows {
		return 0, 0, false
	}
	x = float64(c)*ColWidthPx + ColWidthPx/2
	y = float64(r)*RowHeightPx + RowHeightPx/2
	if x >= float64(s.width) || y >= float64(s.height) {
		return 0, 0, false
	}
	return x, y, true
}

// Clear resets every cell to a blank on the default background.
func (s *Surface) Clear() {
	for i := range s.buf {
		s.buf[i] = cell{r: ' ', fg: tcell.ColorWhite, bg: tcell.ColorBlack}
	}
}

func (s *Surface) at(col, row int) *cell {
	if col < 0 || row < 0 || col >= s.cols || row >= s.rows {
		return nil
	}
	return &s.buf[row*s.cols+col]
}

func colOf(x float64) int { return int(math.Floor(x / ColWidthPx)) }
func rowOf(y float64) int { return int(math.Floor(y / RowHeightPx)) }

func centreOf(col, row int) (float64, float64) {
	return float64(col)*ColWidthPx + ColWidthPx/2, float64(row)*RowHeightPx + RowHeightPx/2
}

// DrawImage paints the background of covered cells with the image pixel
// under each cell centre. Only images from this package's Loader carry
// pixels; anything else is ignored.
func (s *Surface) DrawImage(img render.Image, x, y, width, height float64) {
	src, ok := img.(*Image)
	if !ok || width <= 0 || height <= 0 {
		return
	}
	b := src.img.Bounds()
	for row := rowOf(y); row <= rowOf(y+height-1); row++ {
		for col := colOf(x); col <= colOf(x+width-1); col++ {
			c := s.at(col, row)
			if c == nil {
				continue
			}
			cx, cy := centreOf(col, row)
			px := b.Min.X + int((cx-x)/width*float64(b.Dx()))
			py := b.Min.Y + int((cy-y)/height*float64(b.Dy()))
			c.bg = blend(c.bg, src.img.At(px, py))
		}
	}
}

// StrokeLine draws axis-aligned lines with box-drawing runes and merges
// crossings. Other lines are stepped with dots.
func (s *Surface) StrokeLine(x0, y0, x1, y1 float64, _ float32, clr color.Color) {
	switch {
	case colOf(x0) == colOf(x1):
		col := colOf(x0)
		for row := rowOf(math.Min(y0, y1)); row <= rowOf(math.Max(y0, y1)-1); row++ {
			s.lineCell(col, row, '│', '─', clr)
		}
	case rowOf(y0) == rowOf(y1):
		row := rowOf(y0)
		for col := colOf(math.Min(x0, x1)); col <= colOf(math.Max(x0, x1)-1); col++ {
			s.lineCell(col, row, '─', '│', clr)
		}
	default:
		steps := int(math.Max(math.Abs(x1-x0)/ColWidthPx, math.Abs(y1-y0)/RowHeightPx)) + 1
		for i := 0; i <= steps; i++ {
			t := float64(i) / float64(steps)
			if c := s.at(colOf(x0+(x1-x0)*t), rowOf(y0+(y1-y0)*t)); c != nil {
				c.r = '·'
				c.fg = blend(c.bg, clr)
			}
		}
	}
}

func (s *Surface) lineCell(col, row int, r, cross rune, clr color.Color) {
	c := s.at(col, row)
	if c == nil || c.filled {
		return
	}
	if c.r == cross || c.r == '┼' {
		c.r = '┼'
	} else {
		c.r = r
	}
	c.fg = blend(c.bg, clr)
}

// FillCircle paints the background of every cell whose centre lies inside
// the circle and marks those cells as filled.
func (s *Surface) FillCircle(x, y, radius float64, clr color.Color) {
	s.eachCell(x-radius, y-radius, x+radius, y+radius, func(c *cell, cx, cy float64) {
		if math.Hypot(cx-x, cy-y) <= radius {
			c.bg = blend(c.bg, clr)
			c.r = ' '
			c.filled = true
		}
	})
}

// StrokeCircle colours the unfilled cells around a circle, so rings show
// as a halo next to the token they surround.
func (s *Surface) StrokeCircle(x, y, radius float64, strokeWidth float32, clr color.Color) {
	band := math.Max(float64(strokeWidth)/2, ColWidthPx)
	outer := radius + band
	s.eachCell(x-outer, y-outer, x+outer, y+outer, func(c *cell, cx, cy float64) {
		if c.filled {
			return
		}
		if math.Abs(math.Hypot(cx-x, cy-y)-radius) <= band {
			c.bg = blend(c.bg, clr)
		}
	})
}

// FillRect paints the background of covered cells and blanks their runes.
func (s *Surface) FillRect(x, y, width, height float64, clr color.Color) {
	for row := rowOf(y); row <= rowOf(y+height-1); row++ {
		for col := colOf(x); col <= colOf(x+width-1); col++ {
			if c := s.at(col, row); c != nil {
				c.bg = blend(c.bg, clr)
				c.r = ' '
			}
		}
	}
}

// StrokeRect outlines the covered cells with box-drawing runes.
func (s *Surface) StrokeRect(x, y, width, height float64, _ float32, clr color.Color) {
	c0, r0 := colOf(x), rowOf(y)
	c1, r1 := colOf(x+width-1), rowOf(y+height-1)
	set := func(col, row int, r rune) {
		if c := s.at(col, row); c != nil {
			c.r = r
			c.fg = blend(c.bg, clr)
		}
	}
	for col := c0 + 1; col < c1; col++ {
		set(col, r0, '─')
		set(col, r1, '─')
	}
	for row := r0 + 1; row < r1; row++ {
		set(c0, row, '│')
		set(c1, row, '│')
	}
	set(c0, r0, '┌')
	set(c1, r0, '┐')
	set(c0, r1, '└')
	set(c1, r1, '┘')
}

// DrawText writes one rune per cell. The font size is ignored; alignment
// is applied in whole cells.
func (s *Surface) DrawText(text string, x, y float64, style render.TextStyle, clr color.Color) {
	runes := []rune(text)
	col := colOf(x)
	switch style.Align {
	case render.AlignCenter:
		col -= len(runes) / 2
	case render.AlignRight:
		col -= len(runes)
	}
	row := rowOf(y)
	for i, r := range runes {
		if c := s.at(col+i, row); c != nil {
			c.r = r
			c.fg = blend(c.bg, clr)
			c.bold = style.Bold
		}
	}
}

// MeasureText returns the width of text in logical pixels.
func (s *Surface) MeasureText(text string, _ render.TextStyle) float64 {
	return float64(len([]rune(text))) * ColWidthPx
}

// SetCursor records the shape; terminals have no pointer shapes.
func (s *Surface) SetCursor(shape render.CursorShape) {
	s.cursor = shape
}

// Cursor returns the last recorded cursor shape.
func (s *Surface) Cursor() render.CursorShape {
	return s.cursor
}

// Present copies the buffer onto screen. The caller calls Show.
func (s *Surface) Present(screen tcell.Screen) {
	for row := 0; row < s.rows; row++ {
		for col := 0; col < s.cols; col++ {
			c := s.buf[row*s.cols+col]
			style := tcell.StyleDefault.Foreground(c.fg).Background(c.bg).Bold(c.bold)
			screen.SetContent(s.origin.X+col, s.origin.Y+row, c.r, nil, style)
		}
	}
}

// Rune returns the rune at a buffer cell.
func (s *Surface) Rune(col, row int) rune {
	if c := s.at(col, row); c != nil {
		return c.r
	}
	return 0
}

// Background returns the background colour at a buffer cell.
func (s *Surface) Background(col, row int) tcell.Color {
	if c := s.at(col, row); c != nil {
		return c.bg
	}
	return tcell.ColorDefault
}

func (s *Surface) eachCell(x0, y0, x1, y1 float64, fn func(c *cell, cx, cy float64)) {
	for row := rowOf(y0); row <= rowOf(y1); row++ {
		for col := colOf(x0); col <= colOf(x1); col++ {
			if c := s.at(col, row); c != nil {
				cx, cy := centreOf(col, row)
				fn(c, cx, cy)
			}
		}
	}
}

// blend composites src over dst using src's alpha.
func blend(dst tcell.Color, src color.Color) tcell.Color {
	nrgba := color.NRGBAModel.Convert(src).(color.NRGBA)
	if nrgba.A == 0 {
		return dst
	}
	top := colorful.Color{R: float64(nrgba.R) / 255, G: float64(nrgba.G) / 255, B: float64(nrgba.B) / 255}
	if nrgba.A == 255 {
		return tcell.FromImageColor(top)
	}
	r, g, b := dst.RGB()
	if r < 0 {
		r, g, b = 0, 0, 0
	}
	base := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	return tcell.FromImageColor(base.BlendRgb(top, float64(nrgba.A)/255).Clamped())
}

// Image holds decoded pixels for DrawImage.
type Image struct {
	img image.Image
}

// Size implements render.Image.
func (i *Image) Size() (int, int) {
	b := i.img.Bounds()
	return b.Dx(), b.Dy()
}

// Loader implements render.ImageLoader for terminal surfaces.
type Loader struct {
	client *http.Client
}

// NewLoader creates a loader whose HTTP fetches time out after timeout.
func NewLoader(timeout time.Duration) *Loader {
	return &Loader{client: &http.Client{Timeout: timeout}}
}

// LoadImage decodes a PNG or JPEG from disk or over HTTP.
func (l *Loader) LoadImage(path string) (render.Image, error) {
	img, err := render.DecodeImage(l.client, path)
	if err != nil {
		return nil, err
	}
	return &Image{img: img}, nil
}

var (
	_ render.Surface     = (*Surface)(nil)
	_ render.ImageLoader = (*Loader)(nil)
)
