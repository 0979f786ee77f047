// Package placeholders draws procedural battle-map backgrounds for boards
// that have no artwork yet.
package placeholders

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/lucasb-eyer/go-colorful"
)

// DefaultTileSize matches the default board cell size.
const DefaultTileSize = 40

// Theme is the palette of one background style.
type Theme struct {
	Name   string
	Floor  [2]color.RGBA // blended per tile
	Wall   color.RGBA
	Debris color.RGBA

	// Chance of a debris speck per floor tile
	DebrisRate float64
}

// Themes are the built-in styles.
var Themes = []Theme{
	{
		Name:       "cave",
		Floor:      [2]color.RGBA{{70, 65, 60, 255}, {55, 50, 45, 255}}, // dark stone
		Wall:       color.RGBA{130, 125, 115, 255},
		Debris:     color.RGBA{180, 175, 165, 255}, // bone
		DebrisRate: 0.25,
	},
	{
		Name:       "crypt",
		Floor:      [2]color.RGBA{{60, 58, 70, 255}, {45, 42, 55, 255}},
		Wall:       color.RGBA{110, 100, 90, 255}, // brick
		Debris:     color.RGBA{80, 60, 140, 255},
		DebrisRate: 0.1,
	},
	{
		Name:       "forest",
		Floor:      [2]color.RGBA{{52, 84, 40, 255}, {70, 100, 48, 255}},
		Wall:       color.RGBA{40, 60, 30, 255}, // undergrowth
		Debris:     color.RGBA{140, 100, 60, 255},
		DebrisRate: 0.4,
	},
}

// ThemeByName looks up a built-in theme.
func ThemeByName(name string) (Theme, bool) {
	for _, t := range Themes {
		if t.Name == name {
			return t, true
		}
	}
	return Theme{}, false
}

// Options controls background generation.
type Options struct {
	Cols, Rows int
	TileSize   int
	Seed       int64
}

// Background draws a cols x rows map with a one-tile wall border. The same
// seed always yields the same image.
func Background(theme Theme, opts Options) (*image.RGBA, error) {
	if opts.Cols <= 2 || opts.Rows <= 2 {
		return nil, fmt.Errorf("map must be at least 3x3 tiles, got %dx%d", opts.Cols, opts.Rows)
	}
	if opts.TileSize <= 0 {
		opts.TileSize = DefaultTileSize
	}
	rng := rand.New(rand.NewSource(opts.Seed))
	ts := opts.TileSize

	img := image.NewRGBA(image.Rect(0, 0, opts.Cols*ts, opts.Rows*ts))
	for row := 0; row < opts.Rows; row++ {
		for col := 0; col < opts.Cols; col++ {
			rect := image.Rect(col*ts, row*ts, (col+1)*ts, (row+1)*ts)
			if col == 0 || row == 0 || col == opts.Cols-1 || row == opts.Rows-1 {
				drawWall(img, rect, theme.Wall)
				continue
			}
			draw.Draw(img, rect, &image.Uniform{FloorShade(theme, rng.Float64())}, image.Point{}, draw.Src)
			if rng.Float64() < theme.DebrisRate {
				drawSpeck(img, rect, theme.Debris, rng)
			}
		}
	}
	return img, nil
}

// FloorShade blends the theme's two floor colours in Lab space; t is 0..1.
func FloorShade(theme Theme, t float64) color.RGBA {
	a, _ := colorful.MakeColor(theme.Floor[0])
	b, _ := colorful.MakeColor(theme.Floor[1])
	r, g, bl := a.BlendLab(b, t).Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: bl, A: 255}
}

func drawWall(img *image.RGBA, rect image.Rectangle, c color.RGBA) {
	draw.Draw(img, rect, &image.Uniform{c}, image.Point{}, draw.Src)
	mortar := Darken(c, 0.7)
	// Brick courses every quarter tile
	step := max(rect.Dy()/4, 1)
	for y := rect.Min.Y; y < rect.Max.Y; y += step {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			img.Set(x, y, mortar)
		}
	}
}

func drawSpeck(img *image.RGBA, rect image.Rectangle, c color.RGBA, rng *rand.Rand) {
	size := max(rect.Dx()/10, 2)
	x := rect.Min.X + rng.Intn(rect.Dx()-size)
	y := rect.Min.Y + rng.Intn(rect.Dy()-size)
	draw.Draw(img, image.Rect(x, y, x+size, y+size), &image.Uniform{Lighten(c, 0.1)}, image.Point{}, draw.Src)
}

// SavePNG saves an image to a PNG file, creating parent directories.
func SavePNG(img image.Image, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return nil
}

// Generate writes one background per theme into dir and returns the paths.
func Generate(dir string, opts Options) ([]string, error) {
	var paths []string
	for _, theme := range Themes {
		img, err := Background(theme, opts)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(dir, theme.Name+".png")
		if err := SavePNG(img, path); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// Darken returns a darker version of a color
func Darken(c color.RGBA, factor float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * factor),
		G: uint8(float64(c.G) * factor),
		B: uint8(float64(c.B) * factor),
		A: c.A,
	}
}

// Lighten returns a lighter version of a color
func Lighten(c color.RGBA, factor float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) + (255-float64(c.R))*factor),
		G: uint8(float64(c.G) + (255-float64(c.G))*factor),
		B: uint8(float64(c.B) + (255-float64(c.B))*factor),
		A: c.A,
	}
}
