package preset

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ByLCY/namecard/compose"
	"github.com/ByLCY/namecard/dsl"
	"github.com/ByLCY/namecard/fonts"
	"github.com/ByLCY/namecard/renderer"
	canvasrenderer "github.com/ByLCY/namecard/renderer/canvas"
)

// ErrUnknownPreset is returned when a preset name is not defined.
var ErrUnknownPreset = errors.New("unknown preset")

//go:embed default.cardpreset
var defaultSource string

// Set is a parsed preset file.
type Set struct {
	Name    string
	Version string
	// BaseDir resolves relative template and font paths.
	BaseDir string
	Info    canvasrenderer.DocumentInfo
	Fonts   map[string]fonts.Family
	Colors  map[string]renderer.Color

	presets map[string]compose.TemplateConfig
	order   []string
}

// Default returns the built-in presets.
func Default() (*Set, error) {
	return ParseString(defaultSource)
}

// LoadFile parses a preset file; relative paths inside it resolve against its directory.
func LoadFile(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open preset file %s: %w", path, err)
	}
	defer f.Close()
	set, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	set.BaseDir = filepath.Dir(path)
	return set, nil
}

// Parse reads a preset document from r.
func Parse(r io.Reader) (*Set, error) {
	doc, err := dsl.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}
	return FromDocument(doc)
}

// ParseString reads a preset document held in a string.
func ParseString(input string) (*Set, error) {
	doc, err := dsl.ParseString(input)
	if err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}
	return FromDocument(doc)
}

// FromDocument converts a parsed document. Presets may extend presets defined
// earlier in the same document.
func FromDocument(doc *dsl.Document) (*Set, error) {
	if doc == nil {
		return nil, fmt.Errorf("parse presets: empty document")
	}
	set := &Set{
		Name:    doc.Name,
		Version: doc.Version,
		Info:    collectMeta(doc),
		presets: map[string]compose.TemplateConfig{},
	}
	var err error
	set.Fonts, set.Colors, err = collectResources(doc)
	if err != nil {
		return nil, err
	}
	for _, section := range doc.Sections {
		if section.Preset == nil {
			continue
		}
		p := section.Preset
		if _, dup := set.presets[p.Name]; dup {
			return nil, fmt.Errorf("preset %s (%s): defined twice", p.Name, p.Pos)
		}
		cfg, err := set.buildPreset(p)
		if err != nil {
			return nil, fmt.Errorf("preset %s (%s): %w", p.Name, p.Pos, err)
		}
		set.presets[p.Name] = cfg
		set.order = append(set.order, p.Name)
	}
	if len(set.order) == 0 {
		return nil, fmt.Errorf("presets %s: no preset defined", doc.Name)
	}
	for _, name := range set.order {
		fb := set.presets[name].Fallback
		if fb == "" {
			continue
		}
		target, ok := set.presets[fb]
		if !ok {
			return nil, fmt.Errorf("preset %s: fallback %q: %w", name, fb, ErrUnknownPreset)
		}
		if target.Mode != compose.ModeScratch {
			return nil, fmt.Errorf("preset %s: fallback %q is not a scratch preset", name, fb)
		}
	}
	return set, nil
}

// Get returns the preset called name.
func (s *Set) Get(name string) (compose.TemplateConfig, error) {
	cfg, ok := s.presets[name]
	if !ok {
		return compose.TemplateConfig{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return cfg, nil
}

// Names lists presets in file order.
func (s *Set) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// RegisterFonts adds the document's font families to reg.
func (s *Set) RegisterFonts(reg *fonts.Registry) {
	names := make([]string, 0, len(s.Fonts))
	for name := range s.Fonts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		reg.Register(name, s.Fonts[name])
	}
}

func (s *Set) buildPreset(p *dsl.PresetSection) (compose.TemplateConfig, error) {
	cfg, err := s.header(p.Name, p.Params)
	if err != nil {
		return cfg, err
	}
	if p.Block == nil {
		return cfg, nil
	}
	opacity := -1.0
	for _, stmt := range p.Block.Statements {
		switch {
		case stmt.Assignment != nil:
			if strings.ToLower(stmt.Assignment.Key) == "box-opacity" {
				v, err := number(valueToString(stmt.Assignment.Value))
				if err != nil {
					return cfg, fmt.Errorf("box-opacity: %w", err)
				}
				opacity = v
				continue
			}
			if err := s.assign(&cfg, stmt.Assignment); err != nil {
				return cfg, err
			}
		case stmt.Command != nil && stmt.Command.Name == "design":
			if stmt.Command.Block == nil {
				continue
			}
			if err := s.design(&cfg, stmt.Command.Block); err != nil {
				return cfg, err
			}
		case stmt.Command != nil:
			return cfg, fmt.Errorf("%s: unknown command %q", stmt.Command.Pos, stmt.Command.Name)
		case stmt.Text != nil:
			return cfg, fmt.Errorf("%s: unexpected string %q", stmt.Text.Pos, string(stmt.Text.Value))
		}
	}
	if opacity >= 0 {
		cfg.BoxFill = cfg.BoxFill.WithAlpha(opacity)
	}
	if cfg.Mode == compose.ModeScratch && (cfg.Width <= 0 || cfg.Height <= 0) {
		return cfg, fmt.Errorf("scratch preset needs a width and a height")
	}
	return cfg, nil
}

// header reads `<mode> [width height] [extends <preset>]`.
func (s *Set) header(name string, params []*dsl.Lexeme) (compose.TemplateConfig, error) {
	cfg := compose.Defaults()
	var rest []string
	for i := 0; i < len(params); i++ {
		if params[i].Value == "extends" {
			if i+1 >= len(params) {
				return cfg, fmt.Errorf("extends needs a preset name")
			}
			base, ok := s.presets[params[i+1].Value]
			if !ok {
				return cfg, fmt.Errorf("extends %q: %w", params[i+1].Value, ErrUnknownPreset)
			}
			cfg = base
			cfg.Background = append([]compose.GradientStop(nil), base.Background...)
			cfg.Elements = append([]compose.Element(nil), base.Elements...)
			i++
			continue
		}
		rest = append(rest, params[i].Value)
	}
	cfg.Name = name
	if len(rest) > 0 {
		switch compose.Mode(rest[0]) {
		case compose.ModeScratch, compose.ModeOverlay:
			cfg.Mode = compose.Mode(rest[0])
		default:
			return cfg, fmt.Errorf("unknown mode %q", rest[0])
		}
		rest = rest[1:]
	}
	switch len(rest) {
	case 0:
	case 2:
		w, err := length(rest[0])
		if err != nil {
			return cfg, fmt.Errorf("width: %w", err)
		}
		h, err := length(rest[1])
		if err != nil {
			return cfg, fmt.Errorf("height: %w", err)
		}
		cfg.Width, cfg.Height = w, h
	default:
		return cfg, fmt.Errorf("expected width and height, got %q", strings.Join(rest, " "))
	}
	return cfg, nil
}
