package ebiten

import (
	"image"
	"image/color"
	"net/http"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/basicfont"

	"chosenoffset.com/tablemap/internal/render"
)

// basicfont glyphs are 13px tall; text sizes scale relative to that.
const faceSize = 13.0

var face = text.NewGoXFace(basicfont.Face7x13)

// DeviceScale returns the scale factor of the current monitor.
func DeviceScale() float64 {
	if m := ebiten.Monitor(); m != nil {
		if s := m.DeviceScaleFactor(); s > 0 {
			return s
		}
	}
	return 1
}

// Surface implements render.Surface on top of an ebiten.Image. An
// offscreen surface owns its image and reallocates it on Resize; a
// screen surface wraps the frame handed to Draw.
type Surface struct {
	img           *ebiten.Image
	width, height int
	scale         float64
	display       image.Rectangle
	displaySet    bool
	screen        bool
}

// NewSurface creates an offscreen surface with the given device scale.
func NewSurface(scale float64) *Surface {
	if scale <= 0 {
		scale = 1
	}
	return &Surface{scale: scale}
}

// WrapScreen wraps a frame passed to Draw. Its coordinates are device pixels.
func WrapScreen(screen *ebiten.Image) *Surface {
	b := screen.Bounds()
	return &Surface{img: screen, width: b.Dx(), height: b.Dy(), scale: 1, screen: true}
}

// Resize reallocates the backing image at width*scale by height*scale.
func (s *Surface) Resize(width, height int) {
	if s.screen {
		return
	}
	s.width, s.height = width, height
	bw, bh := s.BackingSize()
	if bw <= 0 || bh <= 0 {
		return
	}
	if s.img != nil {
		if b := s.img.Bounds(); b.Dx() == bw && b.Dy() == bh {
			return
		}
		s.img.Deallocate()
	}
	s.img = ebiten.NewImage(bw, bh)
}

// Size returns the logical size, so a surface can be drawn onto another.
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

// SetDisplayRect records where the host presents this surface on screen.
func (s *Surface) SetDisplayRect(r image.Rectangle) {
	s.display = r
	s.displaySet = true
}

// DisplayRect implements render.Surface.
func (s *Surface) DisplayRect() image.Rectangle {
	if s.displaySet {
		return s.display
	}
	bw, bh := s.BackingSize()
	return image.Rect(0, 0, bw, bh)
}

// Ebiten returns the backing image.
func (s *Surface) Ebiten() *ebiten.Image {
	return s.img
}

// Clear clears the surface to transparent.
func (s *Surface) Clear() {
	if s.img != nil {
		s.img.Clear()
	}
}

// DrawImage stretches img over the given logical rectangle.
func (s *Surface) DrawImage(img render.Image, x, y, width, height float64) {
	src := unwrap(img)
	if s.img == nil || src == nil {
		return
	}
	b := src.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return
	}
	opts := &ebiten.DrawImageOptions{Filter: ebiten.FilterLinear}
	opts.GeoM.Scale(width*s.scale/float64(b.Dx()), height*s.scale/float64(b.Dy()))
	opts.GeoM.Translate(x*s.scale, y*s.scale)
	s.img.DrawImage(src, opts)
}

// StrokeLine draws a line segment.
func (s *Surface) StrokeLine(x0, y0, x1, y1 float64, strokeWidth float32, clr color.Color) {
	if s.img == nil {
		return
	}
	k := float32(s.scale)
	vector.StrokeLine(s.img, float32(x0)*k, float32(y0)*k, float32(x1)*k, float32(y1)*k, strokeWidth*k, clr, true)
}

// FillCircle draws a filled circle.
func (s *Surface) FillCircle(x, y, radius float64, clr color.Color) {
	if s.img == nil {
		return
	}
	k := float32(s.scale)
	vector.DrawFilledCircle(s.img, float32(x)*k, float32(y)*k, float32(radius)*k, clr, true)
}

// StrokeCircle draws a circle outline.
func (s *Surface) StrokeCircle(x, y, radius float64, strokeWidth float32, clr color.Color) {
	if s.img == nil {
		return
	}
	k := float32(s.scale)
	vector.StrokeCircle(s.img, float32(x)*k, float32(y)*k, float32(radius)*k, strokeWidth*k, clr, true)
}

// FillRect draws a filled rectangle.
func (s *Surface) FillRect(x, y, width, height float64, clr color.Color) {
	if s.img == nil {
		return
	}
	k := float32(s.scale)
	vector.DrawFilledRect(s.img, float32(x)*k, float32(y)*k, float32(width)*k, float32(height)*k, clr, true)
}

// StrokeRect draws a rectangle outline.
func (s *Surface) StrokeRect(x, y, width, height float64, strokeWidth float32, clr color.Color) {
	if s.img == nil {
		return
	}
	k := float32(s.scale)
	vector.StrokeRect(s.img, float32(x)*k, float32(y)*k, float32(width)*k, float32(height)*k, strokeWidth*k, clr, true)
}

// DrawText draws str anchored at (x, y). Bold text is emulated by drawing
// the run twice, one device pixel apart.
func (s *Surface) DrawText(str string, x, y float64, style render.TextStyle, clr color.Color) {
	if s.img == nil || str == "" {
		return
	}
	passes := 1
	if style.Bold {
		passes = 2
	}
	for i := 0; i < passes; i++ {
		opts := &text.DrawOptions{}
		opts.PrimaryAlign = primaryAlign(style.Align)
		opts.SecondaryAlign = secondaryAlign(style.Baseline)
		opts.GeoM.Scale(style.Size/faceSize*s.scale, style.Size/faceSize*s.scale)
		opts.GeoM.Translate(x*s.scale+float64(i), y*s.scale)
		opts.ColorScale.ScaleWithColor(clr)
		text.Draw(s.img, str, face, opts)
	}
}

// MeasureText returns the advance of str in logical units.
func (s *Surface) MeasureText(str string, style render.TextStyle) float64 {
	return text.Advance(str, face) * style.Size / faceSize
}

// SetCursor changes the system cursor.
func (s *Surface) SetCursor(shape render.CursorShape) {
	switch shape {
	case render.CursorPointer:
		ebiten.SetCursorShape(ebiten.CursorShapePointer)
	default:
		ebiten.SetCursorShape(ebiten.CursorShapeDefault)
	}
}

func primaryAlign(a render.TextAlign) text.Align {
	switch a {
	case render.AlignCenter:
		return text.AlignCenter
	case render.AlignRight:
		return text.AlignEnd
	default:
		return text.AlignStart
	}
}

func secondaryAlign(b render.TextBaseline) text.Align {
	if b == render.BaselineMiddle {
		return text.AlignCenter
	}
	return text.AlignStart
}

// Image wraps a loaded ebiten.Image to implement render.Image.
type Image struct {
	img *ebiten.Image
}

// Size returns the width and height of the image.
func (i *Image) Size() (int, int) {
	return i.img.Bounds().Dx(), i.img.Bounds().Dy()
}

// Ebiten returns the underlying ebiten.Image.
func (i *Image) Ebiten() *ebiten.Image {
	return i.img
}

func unwrap(img render.Image) *ebiten.Image {
	switch v := img.(type) {
	case *Image:
		return v.img
	case *Surface:
		return v.img
	default:
		return nil
	}
}

// Loader implements render.ImageLoader. Paths starting with http:// or
// https:// are fetched; anything else is read from disk.
type Loader struct {
	client *http.Client
}

// NewLoader creates a loader whose HTTP fetches time out after timeout.
func NewLoader(timeout time.Duration) *Loader {
	return &Loader{client: &http.Client{Timeout: timeout}}
}

// LoadImage loads an image from the specified file path or URL.
func (l *Loader) LoadImage(path string) (render.Image, error) {
	if !render.IsRemote(path) {
		img, _, err := ebitenutil.NewImageFromFile(path)
		if err != nil {
			return nil, err
		}
		return &Image{img: img}, nil
	}
	decoded, err := render.DecodeImage(l.client, path)
	if err != nil {
		return nil, err
	}
	return &Image{img: ebiten.NewImageFromImage(decoded)}, nil
}

// InputManager implements render.InputManager using Ebiten.
type InputManager struct {
	touchIDs []ebiten.TouchID
}

// NewInputManager creates a new Ebiten-based input manager.
func NewInputManager() *InputManager {
	return &InputManager{}
}

// IsKeyJustPressed returns whether the specified key was just pressed this frame.
func (m *InputManager) IsKeyJustPressed(key render.Key) bool {
	for _, k := range keyToEbitenKeys(key) {
		if inpututil.IsKeyJustPressed(k) {
			return true
		}
	}
	return false
}

// GetCursorPosition returns the current cursor position.
func (m *InputManager) GetCursorPosition() (x, y int) {
	return ebiten.CursorPosition()
}

// IsMouseButtonJustPressed reports a press during the current tick.
func (m *InputManager) IsMouseButtonJustPressed(button render.MouseButton) bool {
	return inpututil.IsMouseButtonJustPressed(mouseButtonToEbiten(button))
}

// IsMouseButtonJustReleased reports a release during the current tick.
func (m *InputManager) IsMouseButtonJustReleased(button render.MouseButton) bool {
	return inpututil.IsMouseButtonJustReleased(mouseButtonToEbiten(button))
}

// IsMouseButtonPressed returns whether the specified mouse button is currently pressed.
func (m *InputManager) IsMouseButtonPressed(button render.MouseButton) bool {
	return ebiten.IsMouseButtonPressed(mouseButtonToEbiten(button))
}

// Touches returns all active touches.
func (m *InputManager) Touches() []render.TouchPoint {
	m.touchIDs = ebiten.AppendTouchIDs(m.touchIDs[:0])
	out := make([]render.TouchPoint, 0, len(m.touchIDs))
	for _, id := range m.touchIDs {
		x, y := ebiten.TouchPosition(id)
		out = append(out, render.TouchPoint{ID: int(id), X: x, Y: y})
	}
	return out
}

// JustPressedTouchIDs returns touches that began this tick.
func (m *InputManager) JustPressedTouchIDs() []int {
	return touchIDsToInts(inpututil.AppendJustPressedTouchIDs(nil))
}

// JustReleasedTouchIDs returns touches that ended this tick.
func (m *InputManager) JustReleasedTouchIDs() []int {
	return touchIDsToInts(inpututil.AppendJustReleasedTouchIDs(nil))
}

func touchIDsToInts(ids []ebiten.TouchID) []int {
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = int(id)
	}
	return out
}

// keyToEbitenKeys converts a render.Key to the ebiten keys that trigger it.
func keyToEbitenKeys(key render.Key) []ebiten.Key {
	switch key {
	case render.KeyP:
		return []ebiten.Key{ebiten.KeyP}
	case render.KeyN:
		return []ebiten.Key{ebiten.KeyN}
	case render.KeyM:
		return []ebiten.Key{ebiten.KeyM}
	case render.KeyH:
		return []ebiten.Key{ebiten.KeyH}
	case render.KeySpace:
		return []ebiten.Key{ebiten.KeySpace}
	case render.KeyEscape:
		return []ebiten.Key{ebiten.KeyEscape}
	case render.KeyDelete:
		return []ebiten.Key{ebiten.KeyDelete, ebiten.KeyBackspace}
	case render.KeyEqual:
		return []ebiten.Key{ebiten.KeyEqual, ebiten.KeyNumpadAdd}
	case render.KeyMinus:
		return []ebiten.Key{ebiten.KeyMinus, ebiten.KeyNumpadSubtract}
	case render.KeyR:
		return []ebiten.Key{ebiten.KeyR}
	case render.KeyQ:
		return []ebiten.Key{ebiten.KeyQ}
	default:
		return nil
	}
}

// mouseButtonToEbiten converts a render.MouseButton to an ebiten.MouseButton.
func mouseButtonToEbiten(button render.MouseButton) ebiten.MouseButton {
	switch button {
	case render.MouseButtonLeft:
		return ebiten.MouseButtonLeft
	case render.MouseButtonRight:
		return ebiten.MouseButtonRight
	case render.MouseButtonMiddle:
		return ebiten.MouseButtonMiddle
	default:
		return ebiten.MouseButtonLeft
	}
}

// Engine implements render.Engine using Ebiten.
type Engine struct{}

// NewEngine creates a new Ebiten-based engine.
func NewEngine() *Engine {
	return &Engine{}
}

// SetWindowSize sets the window size in pixels.
func (e *Engine) SetWindowSize(width, height int) {
	ebiten.SetWindowSize(width, height)
}

// SetWindowTitle sets the window title.
func (e *Engine) SetWindowTitle(title string) {
	ebiten.SetWindowTitle(title)
}

// SetWindowResizable enables or disables window resizing.
func (e *Engine) SetWindowResizable(resizable bool) {
	if resizable {
		ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	} else {
		ebiten.SetWindowResizingMode(ebiten.WindowResizingModeDisabled)
	}
}

// RunGame runs the loop with the provided game.
func (e *Engine) RunGame(game render.Game) error {
	return ebiten.RunGame(&gameAdapter{game: game})
}

// gameAdapter adapts a render.Game to ebiten.Game interface.
type gameAdapter struct {
	game render.Game
}

// Update implements ebiten.Game.
func (a *gameAdapter) Update() error {
	return a.game.Update()
}

// Draw implements ebiten.Game.
func (a *gameAdapter) Draw(screen *ebiten.Image) {
	a.game.Draw(WrapScreen(screen))
}

// Layout implements ebiten.Game.
func (a *gameAdapter) Layout(outsideWidth, outsideHeight int) (int, int) {
	return a.game.Layout(outsideWidth, outsideHeight)
}

var (
	_ render.Surface      = (*Surface)(nil)
	_ render.Image        = (*Surface)(nil)
	_ render.Image        = (*Image)(nil)
	_ render.ImageLoader  = (*Loader)(nil)
	_ render.InputManager = (*InputManager)(nil)
	_ render.Engine       = (*Engine)(nil)
)
