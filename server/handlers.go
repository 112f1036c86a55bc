package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ByLCY/namecard/card"
	"github.com/ByLCY/namecard/compose"
	"github.com/ByLCY/namecard/layout"
	"github.com/ByLCY/namecard/preset"
	"github.com/ByLCY/namecard/template"
)

func health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type presetInfo struct {
	Name     string       `json:"name"`
	Mode     compose.Mode `json:"mode"`
	Width    float64      `json:"width,omitempty"`
	Height   float64      `json:"height,omitempty"`
	Template string       `json:"template,omitempty"`
	Fallback string       `json:"fallback,omitempty"`
}

func (s *Server) listPresets(c *gin.Context) {
	names := s.presets.Names()
	out := make([]presetInfo, 0, len(names))
	for _, name := range names {
		cfg, err := s.presets.Get(name)
		if err != nil {
			continue
		}
		info := presetInfo{Name: name, Mode: cfg.Mode, Width: cfg.Width, Height: cfg.Height, Fallback: cfg.Fallback}
		if !cfg.Template.IsZero() {
			info.Template = cfg.Template.String()
		}
		out = append(out, info)
	}
	c.JSON(http.StatusOK, gin.H{"count": len(out), "presets": out})
}

// createCard reads the form fields name, preset, format and an optional
// template upload or template_url.
func (s *Server) createCard(c *gin.Context) {
	req := card.Request{
		Name:   c.PostForm("name"),
		Preset: c.PostForm("preset"),
		Format: c.PostForm("format"),
	}
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	src, err := s.templateSource(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.Template = src

	art, err := s.cards.Generate(c.Request.Context(), req)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("generate card", slog.String("preset", req.Preset), slog.Any("error", err))
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": art.FileName}))
	c.Header("X-Card-Mode", string(art.Mode))
	c.Header("X-Card-Preset", art.Preset)
	c.Data(http.StatusOK, art.MimeType, art.Data)
}

func (s *Server) templateSource(c *gin.Context) (template.Source, error) {
	fh, err := c.FormFile("template")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		if url := c.PostForm("template_url"); url != "" {
			return template.URLSource(url), nil
		}
		return template.Source{}, nil
	case err != nil:
		return template.Source{}, fmt.Errorf("read upload: %w", err)
	}
	if fh.Size > s.MaxUpload {
		return template.Source{}, fmt.Errorf("template larger than %d bytes", s.MaxUpload)
	}
	f, err := fh.Open()
	if err != nil {
		return template.Source{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, s.MaxUpload))
	if err != nil {
		return template.Source{}, fmt.Errorf("read upload: %w", err)
	}
	return template.BytesSource(fh.Filename, data), nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, layout.ErrInvalidInput),
		errors.Is(err, card.ErrUnsupportedFormat),
		errors.Is(err, card.ErrTemplateRequired),
		errors.Is(err, template.ErrForbiddenURL):
		return http.StatusBadRequest
	case errors.Is(err, preset.ErrUnknownPreset),
		errors.Is(err, template.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, template.ErrDecode),
		errors.Is(err, layout.ErrSurfaceOverflow),
		errors.Is(err, layout.ErrInvalidMeasurement):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
