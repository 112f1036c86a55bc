package preset

import (
	"fmt"
	"strings"

	"github.com/ByLCY/namecard/dsl"
	"github.com/ByLCY/namecard/fonts"
	"github.com/ByLCY/namecard/renderer"
	canvasrenderer "github.com/ByLCY/namecard/renderer/canvas"
)

func collectResources(doc *dsl.Document) (map[string]fonts.Family, map[string]renderer.Color, error) {
	families := map[string]fonts.Family{}
	colors := map[string]renderer.Color{}

	for _, section := range doc.Sections {
		if section.Resources == nil || section.Resources.Block == nil {
			continue
		}
		for _, stmt := range section.Resources.Block.Statements {
			if stmt.Command == nil {
				continue
			}
			switch stmt.Command.Name {
			case "font":
				name, fam, err := parseFontResource(stmt.Command)
				if err != nil {
					return nil, nil, err
				}
				families[name] = fam
			case "color":
				name, value := parseColorResource(stmt.Command)
				if name == "" || value == "" {
					return nil, nil, fmt.Errorf("%s: color needs a name and a value", stmt.Command.Pos)
				}
				c, err := renderer.ParseColor(value)
				if err != nil {
					return nil, nil, fmt.Errorf("%s: %w", stmt.Command.Pos, err)
				}
				colors[name] = c
			default:
				return nil, nil, fmt.Errorf("%s: unknown resource %q", stmt.Command.Pos, stmt.Command.Name)
			}
		}
	}
	return families, colors, nil
}

func collectMeta(doc *dsl.Document) canvasrenderer.DocumentInfo {
	meta := canvasrenderer.DocumentInfo{
		Creator: "namecard",
	}
	for _, section := range doc.Sections {
		if section.Meta == nil || section.Meta.Block == nil {
			continue
		}
		for _, stmt := range section.Meta.Block.Statements {
			if stmt.Assignment == nil {
				continue
			}
			switch strings.ToLower(stmt.Assignment.Key) {
			case "title":
				meta.Title = valueToString(stmt.Assignment.Value)
			case "author":
				meta.Author = valueToString(stmt.Assignment.Value)
			case "subject":
				meta.Subject = valueToString(stmt.Assignment.Value)
			case "creator":
				meta.Creator = valueToString(stmt.Assignment.Value)
			case "keywords":
				meta.Keywords = strings.Join(valueToStringSlice(stmt.Assignment.Value), ", ")
			}
		}
	}
	return meta
}

// parseFontResource reads
//
//	font Arabic {
//	  regular: "fonts/Amiri-Regular.ttf"
//	  bold: "fonts/Amiri-Bold.ttf"
//	}
func parseFontResource(cmd *dsl.Command) (string, fonts.Family, error) {
	if len(cmd.Args) == 0 {
		return "", fonts.Family{}, fmt.Errorf("%s: font needs a name", cmd.Pos)
	}
	name := cmd.Args[0].Value
	var fam fonts.Family
	if cmd.Block != nil {
		for _, stmt := range cmd.Block.Statements {
			if stmt.Assignment == nil {
				continue
			}
			switch stmt.Assignment.Key {
			case "regular", "src":
				fam.Regular = valueToString(stmt.Assignment.Value)
			case "bold":
				fam.Bold = valueToString(stmt.Assignment.Value)
			}
		}
	}
	if fam.Regular == "" {
		return "", fonts.Family{}, fmt.Errorf("%s: font %s has no regular source", cmd.Pos, name)
	}
	return name, fam, nil
}

// parseColorResource accepts `color green = #0f5132` and `color green #0f5132`.
func parseColorResource(cmd *dsl.Command) (string, string) {
	if len(cmd.Args) == 0 {
		return "", ""
	}
	name := cmd.Args[0].Value
	value := ""
	if len(cmd.Args) > 1 {
		value = cmd.Args[len(cmd.Args)-1].Value
	}
	return name, value
}

// color resolves a literal or a named color resource.
func (s *Set) color(value string) (renderer.Color, error) {
	if c, ok := s.Colors[value]; ok {
		return c, nil
	}
	if strings.HasPrefix(value, "#") {
		return renderer.ParseColor(value)
	}
	return renderer.Color{}, fmt.Errorf("unknown color %q", value)
}

func valueToString(val *dsl.Value) string {
	if val == nil {
		return ""
	}
	switch {
	case val.String != nil:
		return string(*val.String)
	case val.Number != nil:
		return *val.Number
	case val.Color != nil:
		return *val.Color
	case val.Expr != nil:
		parts := make([]string, 0, len(val.Expr.Parts))
		for _, part := range val.Expr.Parts {
			parts = append(parts, part.Value)
		}
		return strings.Join(parts, " ")
	default:
		return ""
	}
}

func valueToStringSlice(val *dsl.Value) []string {
	if val == nil {
		return nil
	}
	if val.Array != nil {
		out := make([]string, 0, len(val.Array.Values))
		for _, item := range val.Array.Values {
			if s := valueToString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if s := valueToString(val); s != "" {
		return []string{s}
	}
	return nil
}
