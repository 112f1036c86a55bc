// Package card turns a name and a preset into a finished, downloadable card.
package card

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ByLCY/namecard/binding"
	"github.com/ByLCY/namecard/compose"
	"github.com/ByLCY/namecard/fonts"
	"github.com/ByLCY/namecard/layout"
	"github.com/ByLCY/namecard/renderer"
	canvasrenderer "github.com/ByLCY/namecard/renderer/canvas"
	rasterrenderer "github.com/ByLCY/namecard/renderer/raster"
	"github.com/ByLCY/namecard/template"
)

var (
	// ErrUnsupportedFormat is returned for output formats other than png, jpeg and pdf.
	ErrUnsupportedFormat = errors.New("card: unsupported format")
	// ErrTemplateRequired is returned when an overlay preset without a fallback gets no template.
	ErrTemplateRequired = errors.New("card: template required")
)

// DefaultPreset is used when a request names no preset.
const DefaultPreset = "final"

// Format is an output encoding.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatPDF  Format = "pdf"
)

// ParseFormat accepts png, jpeg (or jpg) and pdf; empty means png.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "pdf":
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// Presets resolves preset names.
type Presets interface {
	Get(name string) (compose.TemplateConfig, error)
}

// TemplateLoader fetches and decodes templates.
type TemplateLoader interface {
	Load(ctx context.Context, src template.Source) (*template.Loaded, error)
}

// Request describes one card.
type Request struct {
	Name   string
	Preset string
	Format string
	// Template overrides the preset's template when set.
	Template template.Source
}

// Artifact is an encoded card.
type Artifact struct {
	Data     []byte
	MimeType string
	FileName string
	Mode     compose.Mode
	// Preset is the preset actually drawn, which differs from the requested one after a fallback.
	Preset string
	Layout layout.Result
}

// Options configures a Generator.
type Options struct {
	Presets     Presets
	Loader      TemplateLoader
	Fonts       *fonts.Registry
	Info        canvasrenderer.DocumentInfo
	JPEGQuality int
	Logger      *slog.Logger
}

type output struct {
	backend  renderer.Backend
	exporter renderer.Exporter
}

// Generator renders cards. It is safe for concurrent use.
type Generator struct {
	presets Presets
	loader  TemplateLoader
	outputs map[Format]output
	logger  *slog.Logger
}

// New wires a raster backend for png/jpeg and a vector backend for pdf.
func New(opts Options) (*Generator, error) {
	if opts.Presets == nil {
		return nil, fmt.Errorf("card: no presets")
	}
	loader := opts.Loader
	if loader == nil {
		loader = template.NewLoader("")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	raster := rasterrenderer.NewBackend(opts.Fonts)
	vector := canvasrenderer.NewBackend(canvasrenderer.Options{Fonts: opts.Fonts, Info: opts.Info})
	return &Generator{
		presets: opts.Presets,
		loader:  loader,
		logger:  logger,
		outputs: map[Format]output{
			FormatPNG:  {backend: raster, exporter: rasterrenderer.PNGExporter{}},
			FormatJPEG: {backend: raster, exporter: rasterrenderer.JPEGExporter{Quality: opts.JPEGQuality}},
			FormatPDF:  {backend: vector, exporter: canvasrenderer.PDFExporter{}},
		},
	}, nil
}

// Generate draws req and encodes it. Overlay presets fall back to their scratch
// preset when the template cannot be loaded or drawn; a refused template URL
// is returned as is.
func (g *Generator) Generate(ctx context.Context, req Request) (*Artifact, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is empty", layout.ErrInvalidInput)
	}
	presetName := req.Preset
	if presetName == "" {
		presetName = DefaultPreset
	}
	cfg, err := g.presets.Get(presetName)
	if err != nil {
		return nil, err
	}
	format, err := ParseFormat(req.Format)
	if err != nil {
		return nil, err
	}
	out, ok := g.outputs[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	composer := compose.New(out.backend, compose.WithLogger(g.logger))
	cs, err := g.compose(ctx, composer, cfg, req.Template, name)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := renderer.Release(cs.Surface); err != nil {
			g.logger.Warn("release surface", slog.Any("error", err))
		}
	}()

	data, err := out.exporter.Serialize(cs.Surface)
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", format, err)
	}
	g.logger.Info("card generated",
		slog.String("preset", cs.Preset),
		slog.String("mode", string(cs.Mode)),
		slog.String("format", string(format)),
		slog.Int("bytes", len(data)),
	)
	return &Artifact{
		Data:     data,
		MimeType: out.exporter.MimeType(),
		FileName: binding.FileName(cfg.FileName, binding.CardVars(name, cfg.Name), out.exporter.Extension()),
		Mode:     cs.Mode,
		Preset:   cs.Preset,
		Layout:   cs.Layout,
	}, nil
}

func (g *Generator) compose(ctx context.Context, c *compose.Composer, cfg compose.TemplateConfig, override template.Source, name string) (*compose.ComposedSurface, error) {
	if cfg.Mode == compose.ModeScratch {
		return c.ComposeFromScratch(cfg, name)
	}

	src := override
	if src.IsZero() {
		src = cfg.Template
	}
	cause := ErrTemplateRequired
	if !src.IsZero() {
		tpl, err := g.loader.Load(ctx, src)
		if err == nil {
			var cs *compose.ComposedSurface
			cs, err = c.ComposeOverlay(cfg, tpl, name)
			if err == nil {
				return cs, nil
			}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, layout.ErrInvalidInput) || errors.Is(err, template.ErrForbiddenURL) {
			return nil, err
		}
		cause = err
	}

	if cfg.Fallback == "" {
		return nil, cause
	}
	fb, err := g.presets.Get(cfg.Fallback)
	if err != nil {
		return nil, fmt.Errorf("fallback for %s: %w", cfg.Name, err)
	}
	g.logger.Warn("template unavailable, drawing from scratch",
		slog.String("preset", cfg.Name),
		slog.String("fallback", fb.Name),
		slog.String("template", src.String()),
		slog.Any("error", cause),
	)
	return c.ComposeFromScratch(fb, name)
}
