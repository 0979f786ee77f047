package render

import (
	"image"
	"image/color"
)

// Surface is the drawing target of a board. It abstracts the underlying
// graphics backend so board logic can run against a window, a terminal or
// a headless recorder without changes.
//
// All drawing coordinates are logical units. A backend applies its own
// device scale when it rasterizes.
type Surface interface {
	// Resize sets the logical size. The backing buffer becomes
	// width*DeviceScale by height*DeviceScale.
	Resize(width, height int)

	// DeviceScale is the ratio of device pixels to logical units.
	DeviceScale() float64

	// BackingSize returns the size of the backing buffer in device pixels.
	BackingSize() (width, height int)

	// DisplayRect is where the surface is presented, in the same
	// coordinate space pointer events are reported in.
	DisplayRect() image.Rectangle

	// Drawing operations
	Clear()
	DrawImage(img Image, x, y, width, height float64)
	StrokeLine(x0, y0, x1, y1 float64, strokeWidth float32, clr color.Color)
	FillCircle(x, y, radius float64, clr color.Color)
	StrokeCircle(x, y, radius float64, strokeWidth float32, clr color.Color)
	FillRect(x, y, width, height float64, clr color.Color)
	StrokeRect(x, y, width, height float64, strokeWidth float32, clr color.Color)

	// Text operations
	DrawText(text string, x, y float64, style TextStyle, clr color.Color)
	MeasureText(text string, style TextStyle) float64

	// SetCursor changes the pointer affordance over the surface.
	SetCursor(shape CursorShape)
}

// Image is a raster resource that can be drawn onto a Surface.
type Image interface {
	Size() (width, height int)
}

// ImageLoader loads raster images by path or URL.
type ImageLoader interface {
	LoadImage(path string) (Image, error)
}

// TextAlign is the horizontal anchor of a text run.
type TextAlign int

const (
	AlignLeft TextAlign = iota
	AlignCenter
	AlignRight
)

// TextBaseline is the vertical anchor of a text run.
type TextBaseline int

const (
	BaselineTop TextBaseline = iota
	BaselineMiddle
)

// TextStyle describes how a text run is laid out.
type TextStyle struct {
	Size     float64 // font size in logical units
	Bold     bool
	Align    TextAlign
	Baseline TextBaseline
}

// CursorShape is a pointer affordance.
type CursorShape int

const (
	CursorDefault CursorShape = iota
	CursorPointer
)

// InputManager handles input from the user (keyboard, mouse, touch).
type InputManager interface {
	IsKeyJustPressed(key Key) bool
	GetCursorPosition() (x, y int)
	IsMouseButtonJustPressed(button MouseButton) bool
	IsMouseButtonJustReleased(button MouseButton) bool
	IsMouseButtonPressed(button MouseButton) bool

	// Touches returns all active touches. JustPressedTouchIDs and
	// JustReleasedTouchIDs report transitions during the current tick.
	Touches() []TouchPoint
	JustPressedTouchIDs() []int
	JustReleasedTouchIDs() []int
}

// TouchPoint is one active touch in pointer coordinates.
type TouchPoint struct {
	ID   int
	X, Y int
}

// Key represents a keyboard key.
type Key int

// Key constants for the board shortcuts
const (
	KeyP      Key = iota // toggle players
	KeyN                 // toggle NPCs
	KeyM                 // toggle monsters
	KeyH                 // toggle visibility of the selected token
	KeySpace             // next turn
	KeyEscape            // clear selection
	KeyDelete            // remove selected token
	KeyEqual             // zoom in
	KeyMinus             // zoom out
	KeyR                 // reset the board to its file placement
	KeyQ                 // quit
)

// MouseButton represents a mouse button.
type MouseButton int

// Mouse button constants
const (
	MouseButtonLeft MouseButton = iota
	MouseButtonRight
	MouseButtonMiddle
)

// Game represents the game interface that the engine will call.
type Game interface {
	// Update updates the board logic. It is called every tick.
	Update() error

	// Draw presents the current frame.
	Draw(screen Surface)

	// Layout accepts the outside size (e.g., window size) and returns the logical screen size.
	Layout(outsideWidth, outsideHeight int) (screenWidth, screenHeight int)
}

// Engine represents the game engine that manages the loop and window.
type Engine interface {
	SetWindowSize(width, height int)
	SetWindowTitle(title string)
	SetWindowResizable(resizable bool)

	// RunGame runs the loop with the provided game.
	// This is a blocking call that runs until the game ends.
	RunGame(game Game) error
}
