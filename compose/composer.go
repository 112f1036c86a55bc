package compose

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/skip2/go-qrcode"

	"github.com/ByLCY/namecard/binding"
	"github.com/ByLCY/namecard/layout"
	"github.com/ByLCY/namecard/renderer"
	"github.com/ByLCY/namecard/template"
)

// ComposedSurface is a finished card ready for an Exporter.
type ComposedSurface struct {
	Surface renderer.Surface
	Width   float64
	Height  float64
	Layout  layout.Result
	Mode    Mode
	Preset  string
}

// Composer paints cards on surfaces created by one backend.
// Errors from the surface are returned as they are so callers can pick a fallback.
type Composer struct {
	backend renderer.Backend
	logger  *slog.Logger
}

// Option configures a Composer.
type Option func(*Composer)

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(c *Composer) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Composer drawing with backend.
func New(backend renderer.Backend, opts ...Option) *Composer {
	c := &Composer{backend: backend, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Backend returns the backend the composer draws with.
func (c *Composer) Backend() renderer.Backend { return c.backend }

// ComposeFromScratch synthesizes a full card of cfg.Width x cfg.Height.
func (c *Composer) ComposeFromScratch(cfg TemplateConfig, name string) (*ComposedSurface, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: preset %q has no scratch size", layout.ErrInvalidInput, cfg.Name)
	}
	name = strings.TrimSpace(name)
	geo, err := c.computeLayout(cfg, name, cfg.Width, cfg.Height)
	if err != nil {
		return nil, err
	}
	s, err := c.backend.NewSurface(cfg.Width, cfg.Height)
	if err != nil {
		return nil, err
	}
	vars := binding.CardVars(name, cfg.Name)
	if err := paintScratch(s, cfg, geo, name, vars); err != nil {
		_ = renderer.Release(s)
		return nil, err
	}
	return &ComposedSurface{Surface: s, Width: cfg.Width, Height: cfg.Height, Layout: geo, Mode: ModeScratch, Preset: cfg.Name}, nil
}

// ComposeOverlay draws the name on top of tpl at the template's native size.
func (c *Composer) ComposeOverlay(cfg TemplateConfig, tpl *template.Loaded, name string) (*ComposedSurface, error) {
	if tpl == nil {
		return nil, fmt.Errorf("%w: no template", layout.ErrInvalidInput)
	}
	name = strings.TrimSpace(name)
	geo, err := c.computeLayout(cfg, name, tpl.Width, tpl.Height)
	if err != nil {
		return nil, err
	}
	s, err := c.backend.NewSurface(tpl.Width, tpl.Height)
	if err != nil {
		return nil, err
	}
	err = s.DrawImage(tpl.Drawable, layout.Rect{Width: tpl.Width, Height: tpl.Height})
	if err == nil {
		err = paintName(s, cfg, geo, name, binding.CardVars(name, cfg.Name))
	}
	if err != nil {
		_ = renderer.Release(s)
		return nil, err
	}
	return &ComposedSurface{Surface: s, Width: tpl.Width, Height: tpl.Height, Layout: geo, Mode: ModeOverlay, Preset: cfg.Name}, nil
}

func (c *Composer) computeLayout(cfg TemplateConfig, name string, width, height float64) (layout.Result, error) {
	font := cfg.Font
	geo, err := layout.ComputeLayout(layout.Request{
		Text:             name,
		Subtitle:         cfg.Subtitle,
		SurfaceWidth:     width,
		SurfaceHeight:    height,
		AnchorX:          cfg.AnchorX,
		AnchorY:          cfg.AnchorY,
		FontSizeFraction: cfg.FontSizeFraction,
		Padding:          cfg.Padding,
		SubtitleOffset:   cfg.SubtitleOffset,
		DecorationMargin: cfg.DecorationMargin,
		MinFontSize:      cfg.MinFontSize,
		Explicit:         true,
		Measure: func(text string, size float64) float64 {
			return c.backend.MeasureText(text, size, font)
		},
	})
	if err != nil {
		return layout.Result{}, err
	}
	c.logger.Debug("card layout",
		slog.String("preset", cfg.Name),
		slog.String("backend", c.backend.Name()),
		slog.Float64("font_size", geo.FontSize),
		slog.Bool("shrunk", geo.Shrunk),
		slog.Bool("shifted", geo.Shifted),
	)
	return geo, nil
}

func paintScratch(s renderer.Surface, cfg TemplateConfig, geo layout.Result, name string, vars map[string]any) error {
	if err := paintBackground(s, cfg); err != nil {
		return err
	}
	if err := paintElements(s, cfg, vars); err != nil {
		return err
	}
	return paintName(s, cfg, geo, name, vars)
}

// paintName draws, in order: box fill, box border, name, subtitle, marks.
func paintName(s renderer.Surface, cfg TemplateConfig, geo layout.Result, name string, vars map[string]any) error {
	if err := s.FillRect(geo.BackgroundBox, cfg.BoxFill); err != nil {
		return err
	}
	if cfg.BoxStrokeWidth > 0 {
		if err := s.StrokeRect(geo.BackgroundBox, cfg.BoxStroke, cfg.BoxStrokeWidth); err != nil {
			return err
		}
	}
	if err := s.DrawText(name, geo.TextCenter, renderer.TextStyle{Font: cfg.Font, Size: geo.FontSize, Color: cfg.TextColor}); err != nil {
		return err
	}
	if subtitle := binding.Interpolate(cfg.Subtitle, vars); subtitle != "" {
		style := renderer.TextStyle{Font: cfg.SubtitleFont, Size: geo.FontSize * scaleOr(cfg.SubtitleScale, DefaultSubtitleScale), Color: cfg.SubtitleColor}
		if err := s.DrawText(subtitle, geo.SubtitleCenter, style); err != nil {
			return err
		}
	}
	if cfg.Decoration != "" {
		style := renderer.TextStyle{Font: cfg.SubtitleFont, Size: geo.FontSize * scaleOr(cfg.DecorationScale, DefaultDecorationScale), Color: cfg.DecorationColor}
		for _, p := range geo.Decorations {
			if err := s.DrawText(cfg.Decoration, p, style); err != nil {
				return err
			}
		}
	}
	return nil
}

// paintBackground fills the surface with a vertical gradient drawn as flat bands.
func paintBackground(s renderer.Surface, cfg TemplateConfig) error {
	w, h := s.Size()
	switch len(cfg.Background) {
	case 0:
		return nil
	case 1:
		return s.FillRect(layout.Rect{Width: w, Height: h}, cfg.Background[0].Color)
	}
	bands := cfg.GradientBands
	if bands <= 0 {
		bands = DefaultGradientBands
	}
	step := h / float64(bands)
	for i := 0; i < bands; i++ {
		y := float64(i) * step
		// bands overlap by one unit so antialiased edges leave no seams
		band := layout.Rect{Y: y, Width: w, Height: math.Min(step+1, h-y)}
		if err := s.FillRect(band, gradientAt(cfg.Background, (float64(i)+0.5)/float64(bands))); err != nil {
			return err
		}
	}
	return nil
}

func paintElements(s renderer.Surface, cfg TemplateConfig, vars map[string]any) error {
	w, h := s.Size()
	for i, el := range cfg.Elements {
		var err error
		switch el.Kind {
		case ElementText:
			family := el.Font
			if family == "" {
				family = cfg.SubtitleFont.Family
			}
			style := renderer.TextStyle{Font: renderer.FontKey{Family: family, Bold: el.Bold}, Size: el.Size, Color: el.Color}
			err = s.DrawText(binding.Interpolate(el.Text, vars), el.At, style)
		case ElementRect:
			err = s.FillRect(el.Box, el.Color)
		case ElementFrame:
			err = paintFrame(s, w, h, el.Width, el.Color)
		case ElementDots:
			for n := 0; n < el.Count && err == nil; n++ {
				err = s.FillCircle(layout.Point{X: el.At.X + float64(n)*el.Step, Y: el.At.Y}, el.Size, el.Color)
			}
		case ElementQR:
			err = paintQR(s, el, vars)
		default:
			err = fmt.Errorf("element %d: unknown kind %q", i, el.Kind)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func paintFrame(s renderer.Surface, w, h, width float64, col renderer.Color) error {
	if width <= 0 {
		return nil
	}
	edges := []layout.Rect{
		{X: 0, Y: 0, Width: w, Height: width},
		{X: 0, Y: h - width, Width: w, Height: width},
		{X: 0, Y: 0, Width: width, Height: h},
		{X: w - width, Y: 0, Width: width, Height: h},
	}
	for _, r := range edges {
		if err := s.FillRect(r, col); err != nil {
			return err
		}
	}
	return nil
}

func paintQR(s renderer.Surface, el Element, vars map[string]any) error {
	content := binding.Interpolate(el.Text, vars)
	if content == "" || el.Size <= 0 {
		return fmt.Errorf("qr element needs text and size")
	}
	code, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return fmt.Errorf("qr %q: %w", content, err)
	}
	code.BackgroundColor = renderer.Opaque(255, 255, 255).RGBA()
	code.ForegroundColor = el.Color.RGBA()
	px := int(math.Ceil(el.Size))
	dst := layout.Rect{X: el.At.X - el.Size/2, Y: el.At.Y - el.Size/2, Width: el.Size, Height: el.Size}
	return s.DrawImage(renderer.Drawable{Image: code.Image(px)}, dst)
}

// gradientAt interpolates linearly between the stops around t.
func gradientAt(stops []GradientStop, t float64) renderer.Color {
	if t <= stops[0].Offset {
		return stops[0].Color
	}
	for i := 1; i < len(stops); i++ {
		a, b := stops[i-1], stops[i]
		if t > b.Offset {
			continue
		}
		span := b.Offset - a.Offset
		if span <= 0 {
			return b.Color
		}
		f := (t - a.Offset) / span
		return renderer.Color{
			R:     lerp8(a.Color.R, b.Color.R, f),
			G:     lerp8(a.Color.G, b.Color.G, f),
			B:     lerp8(a.Color.B, b.Color.B, f),
			Alpha: a.Color.Alpha + (b.Color.Alpha-a.Color.Alpha)*f,
		}
	}
	return stops[len(stops)-1].Color
}

func lerp8(a, b uint8, f float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*f))
}

func scaleOr(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}
