package canvasrenderer

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// stampDescription places the layer unscaled, centered on the page, fully opaque.
const stampDescription = "scalefactor:1 abs, rotation:0, opacity:1"

// Stamp draws the first page of layer on top of the first page of base and returns
// the combined document. Both pages are expected to have the same size.
func Stamp(base, layer []byte) ([]byte, error) {
	dir, err := os.MkdirTemp("", "namecard-layer-*")
	if err != nil {
		return nil, fmt.Errorf("stamp: %w", err)
	}
	defer os.RemoveAll(dir)

	// pdfcpu reads PDF watermarks from a file
	layerPath := filepath.Join(dir, "layer.pdf")
	if err := os.WriteFile(layerPath, layer, 0o600); err != nil {
		return nil, fmt.Errorf("stamp: %w", err)
	}
	wm, err := api.PDFWatermark(layerPath, stampDescription, true, false, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("stamp: build overlay: %w", err)
	}

	var out bytes.Buffer
	if err := api.AddWatermarks(bytes.NewReader(base), &out, []string{"1"}, wm, model.NewDefaultConfiguration()); err != nil {
		return nil, fmt.Errorf("stamp: apply overlay: %w", err)
	}
	return out.Bytes(), nil
}
