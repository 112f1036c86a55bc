package rasterrenderer

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"testing"

	"github.com/ByLCY/namecard/layout"
	"github.com/ByLCY/namecard/renderer"
)

func TestMeasureText(t *testing.T) {
	b := NewBackend(nil)
	font := renderer.FontKey{Family: "Body", Bold: true}
	w := b.MeasureText("Fahad", 56, font)
	if w <= 0 {
		t.Fatalf("expected positive width, got %g", w)
	}
	if w2 := b.MeasureText("Fahad Fahad", 56, font); w2 <= w {
		t.Fatalf("expected longer text to be wider: %g vs %g", w2, w)
	}
}

func TestFillRectPaintsPixels(t *testing.T) {
	b := NewBackend(nil)
	s, err := b.NewSurface(40, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.FillRect(layout.Rect{X: 0, Y: 0, Width: 40, Height: 30}, renderer.MustColor("#0f5132")); err != nil {
		t.Fatalf("fill: %v", err)
	}
	out, err := PNGExporter{}.Serialize(s)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := img.Bounds().Size(); got != image.Pt(40, 30) {
		t.Fatalf("expected 40x30, got %v", got)
	}
	r, g, bl, a := img.At(20, 15).RGBA()
	if r>>8 != 0x0f || g>>8 != 0x51 || bl>>8 != 0x32 || a>>8 != 0xff {
		t.Fatalf("expected green pixel, got %d %d %d %d", r>>8, g>>8, bl>>8, a>>8)
	}
}

func TestDrawTextAndImage(t *testing.T) {
	b := NewBackend(nil)
	s, _ := b.NewSurface(200, 100)
	src := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			src.Set(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	if err := s.DrawImage(renderer.Drawable{Image: src}, layout.Rect{Width: 200, Height: 100}); err != nil {
		t.Fatalf("image: %v", err)
	}
	if err := s.DrawText("Reem", layout.Point{X: 100, Y: 50}, renderer.TextStyle{Size: 32, Color: renderer.Opaque(0, 0, 0)}); err != nil {
		t.Fatalf("text: %v", err)
	}
	out, err := JPEGExporter{Quality: 80}.Serialize(s)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	img, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 200 {
		t.Fatalf("expected width 200, got %d", img.Bounds().Dx())
	}
}

func TestDrawImageRejectsPDF(t *testing.T) {
	s, _ := NewBackend(nil).NewSurface(10, 10)
	err := s.DrawImage(renderer.Drawable{PDF: []byte("%PDF")}, layout.Rect{Width: 10, Height: 10})
	if !errors.Is(err, renderer.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestNewSurfaceRejectsEmptySize(t *testing.T) {
	if _, err := NewBackend(nil).NewSurface(0, 10); err == nil {
		t.Fatalf("expected error for zero width")
	}
}
