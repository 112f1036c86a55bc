package layout

// Point is a position on a surface, origin top-left, y grows downward.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned box in surface units.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the midpoint of the rectangle.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.Width }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Within reports whether r lies inside [0,width] x [0,height].
func (r Rect) Within(width, height float64) bool {
	return r.X >= 0 && r.Y >= 0 && r.Right() <= width && r.Bottom() <= height
}

// MeasureFunc returns the advance width of text rendered at size, in surface units.
type MeasureFunc func(text string, size float64) float64

// Request is the input of ComputeLayout.
//
// Zero values of the optional fields pick the defaults below unless Explicit
// is set, in which case a zero SubtitleOffset or DecorationMargin is kept. A
// negative SubtitleOffset is honoured and places the subtitle above the name.
type Request struct {
	Text     string `json:"text"`
	Subtitle string `json:"subtitle,omitempty"`

	SurfaceWidth  float64 `json:"surfaceWidth"`
	SurfaceHeight float64 `json:"surfaceHeight"`

	AnchorX          float64 `json:"anchorX"`
	AnchorY          float64 `json:"anchorY"`
	FontSizeFraction float64 `json:"fontSizeFraction"`
	Padding          float64 `json:"padding"`

	SubtitleOffset   float64 `json:"subtitleOffset,omitempty"`   // multiple of the font size, default 0.8
	DecorationMargin float64 `json:"decorationMargin,omitempty"` // gap between box edge and mark, default 20
	MinFontSize      float64 `json:"minFontSize,omitempty"`      // default 8
	Explicit         bool    `json:"explicit,omitempty"`

	Measure MeasureFunc `json:"-"`
}

// Result is the geometry of one name overlay.
type Result struct {
	FontSize       float64 `json:"fontSize"`
	TextWidth      float64 `json:"textWidth"`
	TextCenter     Point   `json:"textCenter"`
	BackgroundBox  Rect    `json:"backgroundBox"`
	SubtitleCenter Point   `json:"subtitleCenter"`
	Decorations    []Point `json:"decorations"`

	// Shrunk is set when the font size was reduced to keep the box inside the surface.
	Shrunk bool `json:"shrunk,omitempty"`
	// Shifted is set when the box was moved off its anchor to stay inside the surface.
	Shifted bool `json:"shifted,omitempty"`
}
