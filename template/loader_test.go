package template

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/disintegration/imaging"

	canvasrenderer "github.com/ByLCY/namecard/renderer/canvas"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 15, G: 81, B: 50, A: 255})
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestLoadImageFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "card.png"), pngBytes(t, 120, 180), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tpl, err := NewLoader(dir).Load(context.Background(), FileSource("card.png"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tpl.Kind != KindImage || tpl.Width != 120 || tpl.Height != 180 {
		t.Fatalf("unexpected template %+v", tpl)
	}
	if tpl.Drawable.Image == nil || tpl.Drawable.IsPDF() {
		t.Fatalf("expected an image drawable")
	}
	if tpl.Origin != "card.png" {
		t.Fatalf("expected origin card.png, got %q", tpl.Origin)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := NewLoader(t.TempDir()).Load(context.Background(), FileSource("card.png"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadGarbage(t *testing.T) {
	_, err := NewLoader("").Load(context.Background(), BytesSource("upload.png", []byte("definitely not an image")))
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestLoadDownsizesLargeImages(t *testing.T) {
	l := NewLoader("")
	l.MaxSide = 50
	tpl, err := l.Load(context.Background(), BytesSource("big.png", pngBytes(t, 200, 100)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tpl.Width != 50 || tpl.Height != 25 {
		t.Fatalf("expected 50x25, got %gx%g", tpl.Width, tpl.Height)
	}
}

func TestLoadURL(t *testing.T) {
	body := pngBytes(t, 64, 32)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/card.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(body)
	}))
	defer srv.Close()

	l := NewLoader("")
	l.Client = srv.Client()
	tpl, err := l.Load(context.Background(), URLSource(srv.URL+"/card.png"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tpl.Width != 64 || tpl.Height != 32 {
		t.Fatalf("expected 64x32, got %gx%g", tpl.Width, tpl.Height)
	}

	_, err = l.Load(context.Background(), URLSource(srv.URL+"/missing.png"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadURLRejectsNonPublicHosts(t *testing.T) {
	var hit atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit.Store(true)
	}))
	defer srv.Close()

	l := NewLoader("")
	for _, raw := range []string{
		srv.URL + "/card.png",
		"http://169.254.169.254/latest/meta-data/",
		"ftp://example.com/card.png",
		"file:///etc/passwd",
		"card.png",
	} {
		if _, err := l.Load(context.Background(), URLSource(raw)); !errors.Is(err, ErrForbiddenURL) {
			t.Fatalf("%s: expected ErrForbiddenURL, got %v", raw, err)
		}
	}
	if hit.Load() {
		t.Fatalf("loopback server should not have been contacted")
	}
}

func TestIsPublicAddr(t *testing.T) {
	cases := map[string]bool{
		"8.8.8.8":          true,
		"2606:4700::1111":  true,
		"127.0.0.1":        false,
		"::1":              false,
		"10.1.2.3":         false,
		"172.16.0.1":       false,
		"192.168.1.1":      false,
		"169.254.169.254":  false,
		"100.64.0.1":       false,
		"0.0.0.0":          false,
		"fd00::1":          false,
		"fe80::1":          false,
		"::ffff:127.0.0.1": false,
	}
	for in, want := range cases {
		if got := isPublicAddr(netip.MustParseAddr(in)); got != want {
			t.Fatalf("isPublicAddr(%s) = %v, want %v", in, got, want)
		}
	}
}

func TestLoadPDF(t *testing.T) {
	b := canvasrenderer.NewBackend(canvasrenderer.Options{})
	s, err := b.NewSurface(595, 842)
	if err != nil {
		t.Fatalf("surface: %v", err)
	}
	doc, err := canvasrenderer.PDFExporter{}.Serialize(s)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	tpl, err := NewLoader("").Load(context.Background(), BytesSource("card.pdf", doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tpl.Kind != KindPDF || !tpl.Drawable.IsPDF() {
		t.Fatalf("expected a PDF template, got %+v", tpl.Kind)
	}
	if tpl.Width < 594 || tpl.Width > 596 || tpl.Height < 841 || tpl.Height > 843 {
		t.Fatalf("expected A4 page, got %gx%g", tpl.Width, tpl.Height)
	}
}

func TestEmptySource(t *testing.T) {
	if !(Source{}).IsZero() {
		t.Fatalf("expected zero source")
	}
	_, err := NewLoader("").Load(context.Background(), Source{})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
