package preset

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ByLCY/namecard/compose"
	"github.com/ByLCY/namecard/dsl"
	"github.com/ByLCY/namecard/layout"
	"github.com/ByLCY/namecard/renderer"
	"github.com/ByLCY/namecard/template"
)

func (s *Set) assign(cfg *compose.TemplateConfig, a *dsl.Assignment) error {
	key := strings.ToLower(a.Key)
	raw := valueToString(a.Value)
	var err error
	switch key {
	case "anchor":
		parts := valueToStringSlice(a.Value)
		if len(parts) != 2 {
			return fmt.Errorf("anchor: expected [x, y], got %d values", len(parts))
		}
		if cfg.AnchorX, err = number(parts[0]); err != nil {
			break
		}
		cfg.AnchorY, err = number(parts[1])
	case "font-size":
		cfg.FontSizeFraction, err = number(raw)
	case "padding":
		cfg.Padding, err = length(raw)
	case "subtitle":
		cfg.Subtitle = raw
	case "subtitle-offset":
		cfg.SubtitleOffset, err = number(raw)
	case "subtitle-scale":
		cfg.SubtitleScale, err = number(raw)
	case "decoration":
		cfg.Decoration = raw
	case "decoration-margin":
		cfg.DecorationMargin, err = length(raw)
		if err == nil && cfg.DecorationMargin < 0 {
			err = fmt.Errorf("decoration-margin must not be negative")
		}
	case "decoration-scale":
		cfg.DecorationScale, err = number(raw)
	case "min-font-size":
		cfg.MinFontSize, err = length(raw)
	case "font":
		cfg.Font = fontKey(raw)
	case "subtitle-font":
		cfg.SubtitleFont = fontKey(raw)
	case "text-color":
		cfg.TextColor, err = s.color(raw)
	case "subtitle-color":
		cfg.SubtitleColor, err = s.color(raw)
	case "decoration-color":
		cfg.DecorationColor, err = s.color(raw)
	case "box-fill":
		cfg.BoxFill, err = s.color(raw)
	case "box-stroke":
		cfg.BoxStroke, err = s.color(raw)
	case "box-stroke-width":
		cfg.BoxStrokeWidth, err = length(raw)
	case "template":
		cfg.Template = templateSource(raw)
	case "fallback":
		if raw == "none" {
			raw = ""
		}
		cfg.Fallback = raw
	case "filename":
		cfg.FileName = raw
	default:
		return fmt.Errorf("unknown property %q", a.Key)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", a.Key, err)
	}
	return nil
}

// design reads the scratch background commands:
//
//	gradient #fff 0 #e8f5e8 0.3 #fff 1
//	bands 20
//	frame 30 color green
//	text "..." at 400 120 size 48 bold color green font Body
//	rect 320 220 160 100 color green
//	dots 7 at 100 1050 step 100 size 8 color gold
//	qr "${name}" at 700 1100 size 80 color green
func (s *Set) design(cfg *compose.TemplateConfig, block *dsl.Block) error {
	for _, stmt := range block.Statements {
		switch {
		case stmt.Assignment != nil:
			return fmt.Errorf("%s: design expects commands, got %q", stmt.Assignment.Pos, stmt.Assignment.Key)
		case stmt.Text != nil:
			return fmt.Errorf("%s: unexpected string %q", stmt.Text.Pos, string(stmt.Text.Value))
		}
		cmd := stmt.Command
		if err := s.designCommand(cfg, cmd); err != nil {
			return fmt.Errorf("%s: %s: %w", cmd.Pos, cmd.Name, err)
		}
	}
	return nil
}

func (s *Set) designCommand(cfg *compose.TemplateConfig, cmd *dsl.Command) error {
	switch cmd.Name {
	case "gradient":
		if len(cmd.Args) < 2 || len(cmd.Args)%2 != 0 {
			return fmt.Errorf("expected color/offset pairs")
		}
		stops := make([]compose.GradientStop, 0, len(cmd.Args)/2)
		for i := 0; i < len(cmd.Args); i += 2 {
			c, err := s.color(cmd.Args[i].Value)
			if err != nil {
				return err
			}
			off, err := number(cmd.Args[i+1].Value)
			if err != nil {
				return err
			}
			if off < 0 || off > 1 || (len(stops) > 0 && off < stops[len(stops)-1].Offset) {
				return fmt.Errorf("offsets must rise within [0,1], got %g", off)
			}
			stops = append(stops, compose.GradientStop{Offset: off, Color: c})
		}
		cfg.Background = stops
		return nil
	case "bands":
		if len(cmd.Args) != 1 {
			return fmt.Errorf("expected a band count")
		}
		n, err := strconv.Atoi(cmd.Args[0].Value)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid band count %q", cmd.Args[0].Value)
		}
		cfg.GradientBands = n
		return nil
	}

	pos, opts, err := parseArgs(cmd.Args)
	if err != nil {
		return err
	}
	el := compose.Element{Kind: compose.ElementKind(cmd.Name)}
	if c, ok := opts["color"]; ok {
		if el.Color, err = s.color(c[0]); err != nil {
			return err
		}
	} else {
		el.Color = cfg.TextColor
	}
	if at, ok := opts["at"]; ok {
		if el.At.X, err = length(at[0]); err != nil {
			return err
		}
		if el.At.Y, err = length(at[1]); err != nil {
			return err
		}
	}
	if v, ok := opts["size"]; ok {
		if el.Size, err = length(v[0]); err != nil {
			return err
		}
	}
	if v, ok := opts["step"]; ok {
		if el.Step, err = length(v[0]); err != nil {
			return err
		}
	}
	if v, ok := opts["font"]; ok {
		el.Font = v[0]
	}
	_, el.Bold = opts["bold"]

	switch el.Kind {
	case compose.ElementText, compose.ElementQR:
		if len(pos) != 1 {
			return fmt.Errorf("expected one quoted text")
		}
		el.Text = pos[0]
		if el.Size <= 0 {
			return fmt.Errorf("size is required")
		}
	case compose.ElementRect:
		if len(pos) != 4 {
			return fmt.Errorf("expected x y width height")
		}
		var box [4]float64
		for i, v := range pos {
			if box[i], err = length(v); err != nil {
				return err
			}
		}
		el.Box = layout.Rect{X: box[0], Y: box[1], Width: box[2], Height: box[3]}
	case compose.ElementFrame:
		if len(pos) != 1 {
			return fmt.Errorf("expected a frame width")
		}
		if el.Width, err = length(pos[0]); err != nil {
			return err
		}
	case compose.ElementDots:
		if len(pos) != 1 {
			return fmt.Errorf("expected a dot count")
		}
		if el.Count, err = strconv.Atoi(pos[0]); err != nil {
			return fmt.Errorf("dot count: %w", err)
		}
	default:
		return fmt.Errorf("unknown design element")
	}
	cfg.Elements = append(cfg.Elements, el)
	return nil
}

// optionArity is the number of values each design option takes.
var optionArity = map[string]int{
	"at":    2,
	"size":  1,
	"step":  1,
	"color": 1,
	"font":  1,
	"bold":  0,
}

// parseArgs splits leading positional values from trailing keyword options.
func parseArgs(args []*dsl.Lexeme) ([]string, map[string][]string, error) {
	var positional []string
	opts := map[string][]string{}
	cursor := 0
	for cursor < len(args) {
		if _, isOpt := optionArity[args[cursor].Value]; isOpt && args[cursor].Type == "Ident" {
			break
		}
		positional = append(positional, args[cursor].Value)
		cursor++
	}
	for cursor < len(args) {
		key := args[cursor].Value
		n, ok := optionArity[key]
		if !ok {
			return nil, nil, fmt.Errorf("unknown option %q", key)
		}
		if cursor+n >= len(args) {
			return nil, nil, fmt.Errorf("option %s needs %d value(s)", key, n)
		}
		values := make([]string, 0, n)
		for i := 1; i <= n; i++ {
			values = append(values, args[cursor+i].Value)
		}
		opts[key] = values
		cursor += n + 1
	}
	return positional, opts, nil
}

// fontKey reads "Family" or "Family bold".
func fontKey(raw string) renderer.FontKey {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return renderer.FontKey{}
	}
	key := renderer.FontKey{Family: fields[0]}
	for _, f := range fields[1:] {
		if f == "bold" {
			key.Bold = true
		}
	}
	return key
}

func templateSource(raw string) template.Source {
	if raw == "" || raw == "none" {
		return template.Source{}
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return template.URLSource(raw)
	}
	return template.FileSource(raw)
}

func number(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", raw)
	}
	return v, nil
}

func length(raw string) (float64, error) {
	l, err := layout.ParseLength(raw)
	if err != nil {
		return 0, err
	}
	return l.Points(), nil
}
