package canvasrenderer

import (
	"bytes"
	"fmt"
	"image/color"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/ByLCY/namecard/fonts"
	"github.com/ByLCY/namecard/layout"
	"github.com/ByLCY/namecard/renderer"
)

// Backend draws cards via github.com/tdewolff/canvas. Surface units are points;
// canvas itself works in millimeters, so every coordinate is converted at the boundary.
type Backend struct {
	fonts *fonts.Registry
	info  DocumentInfo

	fontMu       sync.Mutex
	fontFamilies map[renderer.FontKey]*fontFamilyEntry
}

var (
	_ renderer.Backend  = (*Backend)(nil)
	_ renderer.Surface  = (*Surface)(nil)
	_ renderer.Exporter = (*PDFExporter)(nil)
)

type fontFamilyEntry struct {
	family *canvas.FontFamily
	style  canvas.FontStyle
}

// DocumentInfo is written into the PDF info dictionary.
type DocumentInfo struct {
	Title    string
	Subject  string
	Keywords string
	Author   string
	Creator  string
}

// Options configures the canvas backend.
type Options struct {
	Fonts *fonts.Registry
	Info  DocumentInfo
}

// NewBackend creates a canvas backend. A nil registry uses the embedded Go fonts.
func NewBackend(opts Options) *Backend {
	reg := opts.Fonts
	if reg == nil {
		reg = fonts.NewRegistry("")
	}
	info := opts.Info
	if info.Creator == "" {
		info.Creator = "namecard"
	}
	return &Backend{
		fonts:        reg,
		info:         info,
		fontFamilies: map[renderer.FontKey]*fontFamilyEntry{},
	}
}

func (b *Backend) Name() string { return "canvas" }

// MeasureText returns the advance width in points, or 0 when the font cannot be loaded.
func (b *Backend) MeasureText(text string, size float64, font renderer.FontKey) float64 {
	face, err := b.fontFace(font, size, renderer.Opaque(0, 0, 0))
	if err != nil {
		return 0
	}
	return toPt(face.TextWidth(text))
}

// NewSurface allocates a page of width x height points.
func (b *Backend) NewSurface(width, height float64) (renderer.Surface, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("canvas: invalid page size %gx%g", width, height)
	}
	c := canvas.New(toMm(width), toMm(height))
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV) // top-left origin, y down
	return &Surface{backend: b, width: width, height: height, canvas: c, ctx: ctx}, nil
}

// Surface is one page being drawn.
type Surface struct {
	backend       *Backend
	width, height float64
	canvas        *canvas.Canvas
	ctx           *canvas.Context

	// base is a PDF template page the drawing is stamped onto at export.
	base []byte
}

func (s *Surface) Size() (float64, float64) { return s.width, s.height }

func (s *Surface) FillRect(r layout.Rect, fill renderer.Color) error {
	s.ctx.SetFillColor(fill.RGBA())
	s.ctx.SetStrokeColor(color.RGBA{0, 0, 0, 0})
	s.ctx.DrawPath(toMm(r.X), toMm(r.Y), canvas.Rectangle(toMm(r.Width), toMm(r.Height)))
	return nil
}

func (s *Surface) StrokeRect(r layout.Rect, stroke renderer.Color, width float64) error {
	if width <= 0 {
		return fmt.Errorf("canvas: stroke width %g", width)
	}
	s.ctx.SetFillColor(color.RGBA{0, 0, 0, 0})
	s.ctx.SetStrokeColor(stroke.RGBA())
	s.ctx.SetStrokeWidth(toMm(width))
	s.ctx.DrawPath(toMm(r.X), toMm(r.Y), canvas.Rectangle(toMm(r.Width), toMm(r.Height)))
	return nil
}

func (s *Surface) FillCircle(center layout.Point, radius float64, fill renderer.Color) error {
	s.ctx.SetFillColor(fill.RGBA())
	s.ctx.SetStrokeColor(color.RGBA{0, 0, 0, 0})
	// canvas.Circle is centered on the path origin
	s.ctx.DrawPath(toMm(center.X), toMm(center.Y), canvas.Circle(toMm(radius)))
	return nil
}

func (s *Surface) DrawText(text string, at layout.Point, style renderer.TextStyle) error {
	face, err := s.backend.fontFace(style.Font, style.Size, style.Color)
	if err != nil {
		return err
	}
	metrics := face.Metrics()
	// baseline so that the ascent..descent span is centered on at.Y
	baseline := toMm(at.Y) + (metrics.Ascent-metrics.Descent)/2
	s.ctx.DrawText(toMm(at.X), baseline, canvas.NewTextLine(face, text, canvas.Center))
	return nil
}

// DrawImage places a raster image, or records a PDF page as the base layer. A PDF page
// is only accepted once and only at the page origin.
func (s *Surface) DrawImage(d renderer.Drawable, dst layout.Rect) error {
	if d.IsPDF() {
		if s.base != nil || dst.X != 0 || dst.Y != 0 {
			return fmt.Errorf("%w: PDF page must be the single base layer at (0,0)", renderer.ErrUnsupported)
		}
		s.base = d.PDF
		return nil
	}
	if d.Image == nil {
		return fmt.Errorf("canvas: empty drawable")
	}
	px := d.Image.Bounds().Dx()
	if px <= 0 || dst.Width <= 0 {
		return fmt.Errorf("canvas: cannot place %dpx image into width %g", px, dst.Width)
	}
	dpmm := float64(px) / toMm(dst.Width)
	s.ctx.DrawImage(toMm(dst.X), toMm(dst.Y), d.Image, canvas.DPMM(dpmm))
	return nil
}

// PDFExporter writes a canvas Surface as a single page PDF.
type PDFExporter struct{}

func (PDFExporter) MimeType() string  { return "application/pdf" }
func (PDFExporter) Extension() string { return ".pdf" }

func (PDFExporter) Serialize(rs renderer.Surface) ([]byte, error) {
	s, ok := rs.(*Surface)
	if !ok {
		return nil, fmt.Errorf("%w: PDF export needs a canvas surface, got %T", renderer.ErrUnsupported, rs)
	}
	var buf bytes.Buffer
	writer := pdf.New(&buf, toMm(s.width), toMm(s.height), nil)
	info := s.backend.info
	writer.SetInfo(info.Title, info.Subject, info.Keywords, info.Author, info.Creator)
	s.canvas.RenderTo(writer)
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("write PDF: %w", err)
	}
	if s.base == nil {
		return buf.Bytes(), nil
	}
	return Stamp(s.base, buf.Bytes())
}

func (b *Backend) fontFace(key renderer.FontKey, sizePt float64, col renderer.Color) (*canvas.FontFace, error) {
	entry, err := b.ensureFontFamily(key)
	if err != nil {
		return nil, err
	}
	return entry.family.Face(sizePt, col.RGBA(), entry.style, canvas.FontNormal), nil
}

func (b *Backend) ensureFontFamily(key renderer.FontKey) (*fontFamilyEntry, error) {
	b.fontMu.Lock()
	defer b.fontMu.Unlock()

	if entry, ok := b.fontFamilies[key]; ok {
		return entry, nil
	}
	data, err := b.fonts.Bytes(key)
	if err != nil {
		return nil, err
	}
	style := canvas.FontRegular
	if key.Bold {
		style = canvas.FontBold
	}
	family := canvas.NewFontFamily(key.String())
	if err := family.LoadFont(data, 0, style); err != nil {
		return nil, fmt.Errorf("load font %s: %w", key, err)
	}
	entry := &fontFamilyEntry{family: family, style: style}
	b.fontFamilies[key] = entry
	return entry, nil
}

// toPt converts millimeters to points.
func toPt(mm float64) float64 { return mm * layout.MmToPt }

// toMm converts points to millimeters.
func toMm(pt float64) float64 { return pt * layout.PtToMm }
