package compose

import (
	"github.com/ByLCY/namecard/layout"
	"github.com/ByLCY/namecard/renderer"
	"github.com/ByLCY/namecard/template"
)

// Mode selects how the card background is produced.
type Mode string

const (
	// ModeScratch synthesizes the whole background.
	ModeScratch Mode = "scratch"
	// ModeOverlay draws on top of a loaded template.
	ModeOverlay Mode = "overlay"
)

// TemplateConfig holds every constant of one card design. Coordinates of design
// elements are absolute surface units; name placement uses fractions of the surface.
type TemplateConfig struct {
	Name string `json:"name"`
	Mode Mode   `json:"mode"`

	// Scratch surface size.
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`

	// Overlay defaults.
	Template template.Source `json:"-"`
	Fallback string          `json:"fallback,omitempty"`
	FileName string          `json:"fileName,omitempty"`

	AnchorX          float64 `json:"anchorX"`
	AnchorY          float64 `json:"anchorY"`
	FontSizeFraction float64 `json:"fontSizeFraction"`
	Padding          float64 `json:"padding"`
	SubtitleOffset   float64 `json:"subtitleOffset,omitempty"`
	SubtitleScale    float64 `json:"subtitleScale,omitempty"`
	DecorationMargin float64 `json:"decorationMargin,omitempty"`
	DecorationScale  float64 `json:"decorationScale,omitempty"`
	MinFontSize      float64 `json:"minFontSize,omitempty"`

	Subtitle   string `json:"subtitle,omitempty"`
	Decoration string `json:"decoration,omitempty"`

	Font            renderer.FontKey `json:"font"`
	SubtitleFont    renderer.FontKey `json:"subtitleFont"`
	TextColor       renderer.Color   `json:"textColor"`
	SubtitleColor   renderer.Color   `json:"subtitleColor"`
	DecorationColor renderer.Color   `json:"decorationColor"`
	BoxFill         renderer.Color   `json:"boxFill"`
	BoxStroke       renderer.Color   `json:"boxStroke"`
	BoxStrokeWidth  float64          `json:"boxStrokeWidth,omitempty"`

	// Scratch background, painted top to bottom.
	Background    []GradientStop `json:"background,omitempty"`
	GradientBands int            `json:"gradientBands,omitempty"`
	Elements      []Element      `json:"elements,omitempty"`
}

// GradientStop is a color at a vertical offset in [0,1].
type GradientStop struct {
	Offset float64        `json:"offset"`
	Color  renderer.Color `json:"color"`
}

// ElementKind names a scratch design primitive.
type ElementKind string

const (
	ElementText  ElementKind = "text"
	ElementRect  ElementKind = "rect"
	ElementFrame ElementKind = "frame"
	ElementDots  ElementKind = "dots"
	ElementQR    ElementKind = "qr"
)

// Element is one fixed piece of a scratch design.
//
//	text:  Text centered on At, Size, Color, Bold
//	rect:  Box filled with Color
//	frame: a border of Width along every edge of the surface
//	dots:  Count circles of radius Size from At, Step apart horizontally
//	qr:    QR code of Text, Size wide, centered on At
type Element struct {
	Kind  ElementKind    `json:"kind"`
	Text  string         `json:"text,omitempty"`
	At    layout.Point   `json:"at"`
	Box   layout.Rect    `json:"box"`
	Size  float64        `json:"size,omitempty"`
	Width float64        `json:"width,omitempty"`
	Step  float64        `json:"step,omitempty"`
	Count int            `json:"count,omitempty"`
	Bold  bool           `json:"bold,omitempty"`
	Font  string         `json:"font,omitempty"`
	Color renderer.Color `json:"color"`
}

const (
	DefaultSubtitleScale   = 0.5
	DefaultDecorationScale = 0.5
	DefaultGradientBands   = 48
	defaultBoxStrokeWidth  = 3
)

// Defaults returns the values shared by every built-in design: green on a
// translucent white box, subtitle under the name, stars on both sides.
func Defaults() TemplateConfig {
	green := renderer.MustColor("#0f5132")
	return TemplateConfig{
		Mode:             ModeOverlay,
		AnchorX:          0.5,
		AnchorY:          0.65,
		FontSizeFraction: 0.06,
		Padding:          25,
		SubtitleOffset:   layout.DefaultSubtitleOffset,
		SubtitleScale:    DefaultSubtitleScale,
		DecorationMargin: layout.DefaultDecorationMargin,
		DecorationScale:  DefaultDecorationScale,
		Subtitle:         "كل عام وأنت بخير",
		Decoration:       "★",
		Font:             renderer.FontKey{Family: "Body", Bold: true},
		SubtitleFont:     renderer.FontKey{Family: "Body"},
		TextColor:        green,
		SubtitleColor:    green,
		DecorationColor:  renderer.MustColor("#FFD700"),
		BoxFill:          renderer.Opaque(255, 255, 255).WithAlpha(0.95),
		BoxStroke:        green,
		BoxStrokeWidth:   defaultBoxStrokeWidth,
		FileName:         "بطاقة_تهنئة_${name}_اليوم_الوطني",
	}
}
