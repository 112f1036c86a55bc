package renderer

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"strconv"
	"strings"

	"github.com/ByLCY/namecard/layout"
)

// ErrUnsupported is returned by a Surface asked to draw something its backend cannot
// represent, for example a PDF page on a raster surface.
var ErrUnsupported = errors.New("renderer: unsupported operation")

// Surface is a drawing target with a top-left origin and y growing downward.
// Backends with a bottom-up page space normalize internally.
type Surface interface {
	Size() (width, height float64)
	FillRect(r layout.Rect, fill Color) error
	StrokeRect(r layout.Rect, stroke Color, width float64) error
	FillCircle(center layout.Point, radius float64, fill Color) error
	// DrawText draws a single line centered horizontally and vertically on at.
	DrawText(text string, at layout.Point, style TextStyle) error
	// DrawImage places d so that it covers dst.
	DrawImage(d Drawable, dst layout.Rect) error
}

// TextMeasurer returns the advance width of text in surface units. It must use the
// same font metrics the matching Surface draws with.
type TextMeasurer interface {
	MeasureText(text string, size float64, font FontKey) float64
}

// Backend creates surfaces and measures text for them.
type Backend interface {
	TextMeasurer
	Name() string
	NewSurface(width, height float64) (Surface, error)
}

// Release frees resources held by s when its backend allocates any.
func Release(s Surface) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Exporter serializes a finished surface into a downloadable artifact.
type Exporter interface {
	Serialize(s Surface) ([]byte, error)
	MimeType() string
	Extension() string
}

// FontKey selects a registered font family and weight.
type FontKey struct {
	Family string `json:"family"`
	Bold   bool   `json:"bold,omitempty"`
}

func (k FontKey) String() string {
	if k.Bold {
		return k.Family + "/bold"
	}
	return k.Family
}

// TextStyle describes how a line of text is drawn.
type TextStyle struct {
	Font  FontKey `json:"font"`
	Size  float64 `json:"size"`
	Color Color   `json:"color"`
}

// Drawable is content a Surface can place: a decoded image or a single PDF page.
type Drawable struct {
	Image image.Image
	PDF   []byte
}

// IsPDF reports whether the drawable is a PDF page rather than a raster image.
func (d Drawable) IsPDF() bool { return len(d.PDF) > 0 }

// Color is an RGB color with an opacity in [0,1].
type Color struct {
	R     uint8   `json:"r"`
	G     uint8   `json:"g"`
	B     uint8   `json:"b"`
	Alpha float64 `json:"alpha"`
}

// Opaque returns c with full opacity.
func Opaque(r, g, b uint8) Color { return Color{R: r, G: g, B: b, Alpha: 1} }

// WithAlpha returns c with the given opacity.
func (c Color) WithAlpha(a float64) Color {
	c.Alpha = a
	return c
}

// RGBA converts to a premultiplied color.RGBA.
func (c Color) RGBA() color.RGBA {
	a := c.Alpha
	if a < 0 {
		a = 0
	}
	if a > 1 {
		a = 1
	}
	return color.RGBA{
		R: uint8(float64(c.R)*a + 0.5),
		G: uint8(float64(c.G)*a + 0.5),
		B: uint8(float64(c.B)*a + 0.5),
		A: uint8(a*255 + 0.5),
	}
}

// ParseColor accepts #rgb, #rrggbb and #rrggbbaa.
func ParseColor(value string) (Color, error) {
	v := strings.TrimPrefix(strings.TrimSpace(value), "#")
	switch len(v) {
	case 3:
		v = string([]byte{v[0], v[0], v[1], v[1], v[2], v[2]})
	case 6, 8:
	default:
		return Color{}, fmt.Errorf("color %q: expected #rgb, #rrggbb or #rrggbbaa", value)
	}
	n, err := strconv.ParseUint(v, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("color %q: %w", value, err)
	}
	if len(v) == 8 {
		return Color{R: uint8(n >> 24), G: uint8(n >> 16), B: uint8(n >> 8), Alpha: float64(uint8(n)) / 255}, nil
	}
	return Opaque(uint8(n>>16), uint8(n>>8), uint8(n)), nil
}

// MustColor is ParseColor for package-level defaults.
func MustColor(value string) Color {
	c, err := ParseColor(value)
	if err != nil {
		panic(err)
	}
	return c
}
