package preset

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ByLCY/namecard/compose"
	"github.com/ByLCY/namecard/fonts"
	"github.com/ByLCY/namecard/layout"
	"github.com/ByLCY/namecard/renderer"
)

func TestDefaultPresets(t *testing.T) {
	set, err := Default()
	if err != nil {
		t.Fatalf("default presets: %v", err)
	}
	want := []string{"canvas", "fixed", "final", "direct", "image", "simple-image", "upload-once", "simple", "enhanced"}
	if diff := cmp.Diff(want, set.Names()); diff != "" {
		t.Fatalf("preset names mismatch (-want +got):\n%s", diff)
	}
	if set.Info.Title == "" || set.Info.Creator != "namecard" {
		t.Fatalf("unexpected document info %+v", set.Info)
	}
	if _, err := set.Get("final"); err != nil {
		t.Fatalf("default preset missing: %v", err)
	}
}

func TestCanvasPreset(t *testing.T) {
	set, err := Default()
	if err != nil {
		t.Fatalf("default presets: %v", err)
	}
	cfg, err := set.Get("canvas")
	if err != nil {
		t.Fatalf("get canvas: %v", err)
	}
	if cfg.Mode != compose.ModeScratch || cfg.Width != 800 || cfg.Height != 1200 {
		t.Fatalf("unexpected canvas surface %s %gx%g", cfg.Mode, cfg.Width, cfg.Height)
	}
	if cfg.FontSizeFraction != 0.07 || cfg.Padding != 60 || cfg.BoxStrokeWidth != 4 {
		t.Fatalf("unexpected canvas name values %+v", cfg)
	}
	if cfg.BoxFill != renderer.MustColor("#e8f5e8") {
		t.Fatalf("expected mint box fill, got %+v", cfg.BoxFill)
	}
	if len(cfg.Background) != 4 || cfg.Background[1].Offset != 0.3 {
		t.Fatalf("unexpected gradient %+v", cfg.Background)
	}

	counts := map[compose.ElementKind]int{}
	for _, el := range cfg.Elements {
		counts[el.Kind]++
	}
	if counts[compose.ElementFrame] != 1 || counts[compose.ElementRect] != 2 || counts[compose.ElementDots] != 1 {
		t.Fatalf("unexpected element kinds %v", counts)
	}
	var dots compose.Element
	for _, el := range cfg.Elements {
		if el.Kind == compose.ElementDots {
			dots = el
		}
	}
	want := compose.Element{
		Kind:  compose.ElementDots,
		At:    layout.Point{X: 100, Y: 1050},
		Size:  8,
		Step:  100,
		Count: 7,
		Color: renderer.MustColor("#FFD700"),
	}
	if diff := cmp.Diff(want, dots); diff != "" {
		t.Fatalf("dots mismatch (-want +got):\n%s", diff)
	}
	title := cfg.Elements[1]
	if title.Kind != compose.ElementText || !title.Bold || title.Size != 48 || title.At != (layout.Point{X: 400, Y: 104}) {
		t.Fatalf("unexpected title element %+v", title)
	}
}

func TestOverlayPresets(t *testing.T) {
	set, err := Default()
	if err != nil {
		t.Fatalf("default presets: %v", err)
	}
	final, _ := set.Get("final")
	if final.Mode != compose.ModeOverlay || final.Template.Path != "card.png" || final.Fallback != "canvas" {
		t.Fatalf("unexpected final preset %+v", final)
	}
	if final.AnchorY != 0.65 || final.FontSizeFraction != 0.06 || final.Padding != 25 {
		t.Fatalf("final should keep the shared defaults, got %+v", final)
	}

	direct, _ := set.Get("direct")
	if direct.Name != "direct" || direct.Template.Path != "card.png" || direct.Fallback != "" {
		t.Fatalf("direct should extend final without fallback, got %+v", direct)
	}

	image, _ := set.Get("simple-image")
	if image.BoxFill.Alpha != 0.9 || image.SubtitleOffset != 0.7 || image.SubtitleScale != 0.4 {
		t.Fatalf("unexpected simple-image values %+v", image)
	}

	upload, _ := set.Get("upload-once")
	if !upload.Template.IsZero() || upload.DecorationMargin != 15 {
		t.Fatalf("upload-once should have no template, got %+v", upload)
	}

	enhanced, _ := set.Get("enhanced")
	if enhanced.Template.Path != "card.pdf" || enhanced.Fallback != "fixed" || enhanced.AnchorY != 0.7 || enhanced.BoxStrokeWidth != 2 {
		t.Fatalf("unexpected enhanced preset %+v", enhanced)
	}
}

func TestUnknownPreset(t *testing.T) {
	set, err := Default()
	if err != nil {
		t.Fatalf("default presets: %v", err)
	}
	if _, err := set.Get("nope"); !errors.Is(err, ErrUnknownPreset) {
		t.Fatalf("expected ErrUnknownPreset, got %v", err)
	}
}

func TestExtendsDoesNotShareElements(t *testing.T) {
	set, err := ParseString(`
presets T v1 {
  preset base scratch 100 100 {
    design {
      frame 5 color #000
    }
  }
  preset child extends base {
    design {
      dots 2 at 10 10 step 10 size 2 color #fff
    }
  }
}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	base, _ := set.Get("base")
	child, _ := set.Get("child")
	if len(base.Elements) != 1 || len(child.Elements) != 2 {
		t.Fatalf("unexpected elements base=%d child=%d", len(base.Elements), len(child.Elements))
	}
	if child.Mode != compose.ModeScratch || child.Width != 100 {
		t.Fatalf("child should inherit the scratch surface, got %+v", child)
	}
}

func TestPresetErrors(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "fallback to overlay",
			input: `presets T v1 { preset a overlay { fallback: b } preset b overlay { } }`,
			want:  "not a scratch preset",
		},
		{
			name:  "missing fallback",
			input: `presets T v1 { preset a overlay { fallback: gone } }`,
			want:  "unknown preset",
		},
		{
			name:  "unknown property",
			input: `presets T v1 { preset a overlay { colour: #fff } }`,
			want:  "unknown property",
		},
		{
			name:  "scratch without size",
			input: `presets T v1 { preset a scratch { } }`,
			want:  "width and a height",
		},
		{
			name:  "unknown color",
			input: `presets T v1 { preset a overlay { text-color: teal } }`,
			want:  "unknown color",
		},
		{
			name:  "stray string",
			input: "presets T v1 {\n  preset a overlay {\n    \"hello\"\n  }\n}",
			want:  "3:5: unexpected string \"hello\"",
		},
		{
			name:  "assignment in design",
			input: `presets T v1 { preset a scratch 10 10 { design { frame: 3 } } }`,
			want:  "design expects commands",
		},
		{
			name:  "negative decoration margin",
			input: `presets T v1 { preset a overlay { decoration-margin: -5 } }`,
			want:  "must not be negative",
		},
		{
			name:  "duplicate",
			input: `presets T v1 { preset a overlay { } preset a overlay { } }`,
			want:  "defined twice",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseString(tc.input)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestRegisterFonts(t *testing.T) {
	set, err := ParseString(`
presets T v1 {
  resources {
    font Title {
      regular: "embed:go-bold"
    }
  }
  preset a overlay {
    font: Title bold
  }
}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg, _ := set.Get("a")
	if cfg.Font != (renderer.FontKey{Family: "Title", Bold: true}) {
		t.Fatalf("unexpected font key %+v", cfg.Font)
	}
	reg := fonts.NewRegistry("")
	set.RegisterFonts(reg)
	data, err := reg.Bytes(cfg.Font)
	if err != nil || len(data) == 0 {
		t.Fatalf("registered font not resolvable: %v", err)
	}
}
