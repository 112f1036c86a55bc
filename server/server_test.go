package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/ByLCY/namecard/card"
	"github.com/ByLCY/namecard/compose"
	"github.com/ByLCY/namecard/layout"
	"github.com/ByLCY/namecard/preset"
	"github.com/ByLCY/namecard/template"
)

type fakeGenerator struct {
	err  error
	last card.Request
}

func (g *fakeGenerator) Generate(_ context.Context, req card.Request) (*card.Artifact, error) {
	g.last = req
	if g.err != nil {
		return nil, g.err
	}
	return &card.Artifact{
		Data:     []byte("png-bytes"),
		MimeType: "image/png",
		FileName: "card_" + req.Name + ".png",
		Mode:     compose.ModeOverlay,
		Preset:   req.Preset,
	}, nil
}

func newTestServer(t *testing.T, gen Generator) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	set, err := preset.Default()
	if err != nil {
		t.Fatalf("default presets: %v", err)
	}
	return New(gen, set, nil).Engine()
}

func TestHealth(t *testing.T) {
	r := newTestServer(t, &fakeGenerator{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Fatalf("unexpected health response %d %s", w.Code, w.Body.String())
	}
}

func TestListPresets(t *testing.T) {
	r := newTestServer(t, &fakeGenerator{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/presets", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", w.Code)
	}
	var body struct {
		Count   int          `json:"count"`
		Presets []presetInfo `json:"presets"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != len(body.Presets) || body.Count < 2 {
		t.Fatalf("unexpected preset list %+v", body)
	}
	if body.Presets[0].Name != "canvas" || body.Presets[0].Mode != compose.ModeScratch || body.Presets[0].Width != 800 {
		t.Fatalf("unexpected first preset %+v", body.Presets[0])
	}
}

func TestCreateCardWithUpload(t *testing.T) {
	gen := &fakeGenerator{}
	r := newTestServer(t, gen)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("name", "Reem")
	_ = mw.WriteField("preset", "upload-once")
	part, err := mw.CreateFormFile("template", "mine.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write([]byte("fake image"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/cards", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Content-Type"); got != "image/png" {
		t.Fatalf("unexpected content type %s", got)
	}
	if got := w.Header().Get("Content-Disposition"); !strings.Contains(got, "attachment") || !strings.Contains(got, "card_Reem.png") {
		t.Fatalf("unexpected content disposition %s", got)
	}
	if got := w.Header().Get("X-Card-Mode"); got != "overlay" {
		t.Fatalf("unexpected mode header %s", got)
	}
	if w.Body.String() != "png-bytes" {
		t.Fatalf("unexpected body %q", w.Body.String())
	}
	if gen.last.Template.Name != "mine.png" || string(gen.last.Template.Data) != "fake image" {
		t.Fatalf("upload not passed through: %+v", gen.last.Template)
	}
}

func TestCreateCardWithTemplateURL(t *testing.T) {
	gen := &fakeGenerator{}
	r := newTestServer(t, gen)

	form := url.Values{"name": {"Reem"}, "format": {"pdf"}, "template_url": {"https://example.com/card.png"}}
	req := httptest.NewRequest(http.MethodPost, "/api/cards", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", w.Code, w.Body.String())
	}
	if gen.last.Template.URL != "https://example.com/card.png" || gen.last.Format != "pdf" {
		t.Fatalf("unexpected request %+v", gen.last)
	}
}

func TestCreateCardErrors(t *testing.T) {
	cases := []struct {
		name string
		form url.Values
		err  error
		want int
	}{
		{"missing name", url.Values{}, nil, http.StatusBadRequest},
		{"invalid name", url.Values{"name": {" "}}, fmt.Errorf("%w: name is empty", layout.ErrInvalidInput), http.StatusBadRequest},
		{"unknown preset", url.Values{"name": {"Reem"}}, fmt.Errorf("%w: \"x\"", preset.ErrUnknownPreset), http.StatusNotFound},
		{"template required", url.Values{"name": {"Reem"}}, card.ErrTemplateRequired, http.StatusBadRequest},
		{"bad template", url.Values{"name": {"Reem"}}, fmt.Errorf("upload: %w", template.ErrDecode), http.StatusUnprocessableEntity},
		{"forbidden url", url.Values{"name": {"Reem"}}, fmt.Errorf("download: %w", template.ErrForbiddenURL), http.StatusBadRequest},
		{"internal", url.Values{"name": {"Reem"}}, errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestServer(t, &fakeGenerator{err: tc.err})
			req := httptest.NewRequest(http.MethodPost, "/api/cards", strings.NewReader(tc.form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, w.Code, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), `"error"`) {
				t.Fatalf("expected a JSON error body, got %s", w.Body.String())
			}
		})
	}
}

func TestCreateCardRejectsNonPublicTemplateURL(t *testing.T) {
	var hit atomic.Bool
	internal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit.Store(true)
	}))
	defer internal.Close()

	set, err := preset.Default()
	if err != nil {
		t.Fatalf("default presets: %v", err)
	}
	gen, err := card.New(card.Options{Presets: set, Loader: template.NewLoader(set.BaseDir)})
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	r := newTestServer(t, gen)

	for _, raw := range []string{
		internal.URL + "/card.png",
		"http://127.0.0.1:1/card.png",
		"http://169.254.169.254/latest/meta-data/",
		"gopher://example.com/card.png",
	} {
		form := url.Values{"name": {"Reem"}, "template_url": {raw}}
		req := httptest.NewRequest(http.MethodPost, "/api/cards", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d: %s", raw, w.Code, w.Body.String())
		}
	}
	if hit.Load() {
		t.Fatalf("internal server should not have been contacted")
	}
}
