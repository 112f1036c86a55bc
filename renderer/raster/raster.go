// Package rasterrenderer draws cards into pixel buffers with github.com/gogpu/gg
// and encodes them as PNG or JPEG.
package rasterrenderer

import (
	"bytes"
	"fmt"
	"math"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"

	"github.com/ByLCY/namecard/fonts"
	"github.com/ByLCY/namecard/layout"
	"github.com/ByLCY/namecard/renderer"
)

// Backend creates gg surfaces. One surface unit is one pixel.
type Backend struct {
	fonts *fonts.Registry

	fontMu  sync.Mutex
	sources map[renderer.FontKey]*text.FontSource
}

var (
	_ renderer.Backend  = (*Backend)(nil)
	_ renderer.Surface  = (*Surface)(nil)
	_ renderer.Exporter = PNGExporter{}
	_ renderer.Exporter = JPEGExporter{}
)

// NewBackend creates a raster backend. A nil registry uses the embedded Go fonts.
func NewBackend(reg *fonts.Registry) *Backend {
	if reg == nil {
		reg = fonts.NewRegistry("")
	}
	return &Backend{fonts: reg, sources: map[renderer.FontKey]*text.FontSource{}}
}

func (b *Backend) Name() string { return "raster" }

// MeasureText returns the advance width in pixels, or 0 when the font cannot be loaded.
func (b *Backend) MeasureText(s string, size float64, font renderer.FontKey) float64 {
	src, err := b.source(font)
	if err != nil {
		return 0
	}
	return src.Face(size).Advance(s)
}

// NewSurface allocates a width x height pixel buffer, rounded up to whole pixels.
func (b *Backend) NewSurface(width, height float64) (renderer.Surface, error) {
	w, h := int(math.Ceil(width)), int(math.Ceil(height))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("raster: invalid size %gx%g", width, height)
	}
	return &Surface{backend: b, width: width, height: height, dc: gg.NewContext(w, h)}, nil
}

func (b *Backend) source(key renderer.FontKey) (*text.FontSource, error) {
	b.fontMu.Lock()
	defer b.fontMu.Unlock()
	if src, ok := b.sources[key]; ok {
		return src, nil
	}
	data, err := b.fonts.Bytes(key)
	if err != nil {
		return nil, err
	}
	src, err := text.NewFontSource(data)
	if err != nil {
		return nil, fmt.Errorf("load font %s: %w", key, err)
	}
	b.sources[key] = src
	return src, nil
}

// Surface is one raster card being drawn.
type Surface struct {
	backend       *Backend
	width, height float64
	dc            *gg.Context
}

func (s *Surface) Size() (float64, float64) { return s.width, s.height }

func (s *Surface) setColor(c renderer.Color) {
	s.dc.SetRGBA(float64(c.R)/255, float64(c.G)/255, float64(c.B)/255, c.Alpha)
}

func (s *Surface) FillRect(r layout.Rect, fill renderer.Color) error {
	s.setColor(fill)
	s.dc.DrawRectangle(r.X, r.Y, r.Width, r.Height)
	return s.dc.Fill()
}

func (s *Surface) StrokeRect(r layout.Rect, stroke renderer.Color, width float64) error {
	if width <= 0 {
		return fmt.Errorf("raster: stroke width %g", width)
	}
	s.setColor(stroke)
	s.dc.SetLineWidth(width)
	s.dc.DrawRectangle(r.X, r.Y, r.Width, r.Height)
	return s.dc.Stroke()
}

func (s *Surface) FillCircle(center layout.Point, radius float64, fill renderer.Color) error {
	s.setColor(fill)
	s.dc.DrawCircle(center.X, center.Y, radius)
	return s.dc.Fill()
}

func (s *Surface) DrawText(str string, at layout.Point, style renderer.TextStyle) error {
	src, err := s.backend.source(style.Font)
	if err != nil {
		return err
	}
	face := src.Face(style.Size)
	m := face.Metrics()
	s.dc.SetFont(face)
	s.setColor(style.Color)
	s.dc.DrawString(str, at.X-face.Advance(str)/2, at.Y+(m.Ascent-m.Descent)/2)
	return nil
}

func (s *Surface) DrawImage(d renderer.Drawable, dst layout.Rect) error {
	if d.IsPDF() {
		return fmt.Errorf("%w: raster surface cannot draw PDF pages", renderer.ErrUnsupported)
	}
	if d.Image == nil {
		return fmt.Errorf("raster: empty drawable")
	}
	s.dc.DrawImageEx(gg.ImageBufFromImage(d.Image), gg.DrawImageOptions{
		X:         dst.X,
		Y:         dst.Y,
		DstWidth:  dst.Width,
		DstHeight: dst.Height,
		Opacity:   1,
	})
	return nil
}

// Close releases the drawing context.
func (s *Surface) Close() error { return s.dc.Close() }

// PNGExporter encodes a raster Surface as PNG.
type PNGExporter struct{}

func (PNGExporter) MimeType() string  { return "image/png" }
func (PNGExporter) Extension() string { return ".png" }

func (PNGExporter) Serialize(rs renderer.Surface) ([]byte, error) {
	s, err := rasterSurface(rs)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := s.dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// JPEGExporter encodes a raster Surface as JPEG.
type JPEGExporter struct {
	Quality int // 1-100, default 92
}

func (JPEGExporter) MimeType() string  { return "image/jpeg" }
func (JPEGExporter) Extension() string { return ".jpg" }

func (e JPEGExporter) Serialize(rs renderer.Surface) ([]byte, error) {
	s, err := rasterSurface(rs)
	if err != nil {
		return nil, err
	}
	q := e.Quality
	if q <= 0 || q > 100 {
		q = 92
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, s.dc.Image(), imaging.JPEG, imaging.JPEGQuality(q)); err != nil {
		return nil, fmt.Errorf("encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

func rasterSurface(rs renderer.Surface) (*Surface, error) {
	s, ok := rs.(*Surface)
	if !ok {
		return nil, fmt.Errorf("%w: raster export needs a raster surface, got %T", renderer.ErrUnsupported, rs)
	}
	return s, nil
}
