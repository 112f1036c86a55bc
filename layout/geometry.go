package layout

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrInvalidInput reports a request that violates a precondition, such as an empty name.
	ErrInvalidInput = errors.New("layout: invalid input")
	// ErrInvalidMeasurement reports a measurer that returned a non-positive width.
	ErrInvalidMeasurement = errors.New("layout: invalid text measurement")
	// ErrSurfaceOverflow reports a background box that cannot be kept inside the surface.
	ErrSurfaceOverflow = errors.New("layout: background box overflows surface")
)

const (
	DefaultSubtitleOffset   = 0.8
	DefaultDecorationMargin = 20.0
	DefaultMinFontSize      = 8.0

	// exact-fit passes after the proportional shrink; each one lands just inside the surface
	maxFitPasses = 4
	fitSlack     = 0.999
)

// ComputeLayout places one centered name, its background box, a subtitle and two
// flanking marks on a surface. It is pure: the same request always yields the same result.
//
// When the measured name plus padding is wider than the surface the font size is scaled
// by (W-2p)/(w+2p), floored at MinFontSize, and measured again. Should the box still not
// fit, the floor is given up and the size is fitted to the remaining width, so the box
// never leaves the surface whatever the length of the text.
func ComputeLayout(req Request) (Result, error) {
	if err := validate(req); err != nil {
		return Result{}, err
	}
	req = withDefaults(req)

	w, h, p := req.SurfaceWidth, req.SurfaceHeight, req.Padding
	if w-2*p <= 0 || h-p <= 0 {
		return Result{}, fmt.Errorf("%w: padding %g leaves no room on a %gx%g surface", ErrSurfaceOverflow, p, w, h)
	}

	fontSize := req.FontSizeFraction * math.Min(w, h)
	textWidth, err := measure(req, fontSize)
	if err != nil {
		return Result{}, err
	}

	shrunk := false
	if textWidth+2*p > w {
		shrunk = true
		fontSize = math.Max(fontSize*(w-2*p)/(textWidth+2*p), req.MinFontSize)
		if textWidth, err = measure(req, fontSize); err != nil {
			return Result{}, err
		}
		for i := 0; i < maxFitPasses && textWidth+2*p > w; i++ {
			fontSize *= (w - 2*p) / textWidth * fitSlack
			if textWidth, err = measure(req, fontSize); err != nil {
				return Result{}, err
			}
		}
	}
	if fontSize+p > h {
		shrunk = true
		fontSize = h - p
		if textWidth, err = measure(req, fontSize); err != nil {
			return Result{}, err
		}
	}
	if textWidth+2*p > w {
		return Result{}, fmt.Errorf("%w: %q is %g wide at size %g on a %g wide surface", ErrSurfaceOverflow, req.Text, textWidth, fontSize, w)
	}

	anchor := Point{X: req.AnchorX * w, Y: req.AnchorY * h}
	boxW, boxH := textWidth+2*p, fontSize+p
	box := Rect{X: anchor.X - boxW/2, Y: anchor.Y - boxH/2, Width: boxW, Height: boxH}

	center := anchor
	shifted := false
	if x := clampOffset(box.X, boxW, w); x != box.X {
		box.X = x
		center.X = x + boxW/2
		shifted = true
	}
	if y := clampOffset(box.Y, boxH, h); y != box.Y {
		box.Y = y
		center.Y = y + boxH/2
		shifted = true
	}
	if !box.Within(w, h) {
		return Result{}, fmt.Errorf("%w: box %+v on a %gx%g surface", ErrSurfaceOverflow, box, w, h)
	}

	return Result{
		FontSize:       fontSize,
		TextWidth:      textWidth,
		TextCenter:     center,
		BackgroundBox:  box,
		SubtitleCenter: Point{X: center.X, Y: center.Y + fontSize*req.SubtitleOffset},
		Decorations: []Point{
			{X: box.X - req.DecorationMargin, Y: center.Y},
			{X: box.Right() + req.DecorationMargin, Y: center.Y},
		},
		Shrunk:  shrunk,
		Shifted: shifted,
	}, nil
}

// clampOffset shifts a span of the given size so that it starts at or after 0
// and ends at or before limit.
func clampOffset(start, size, limit float64) float64 {
	if start < 0 {
		return 0
	}
	if start+size > limit {
		return limit - size
	}
	return start
}

func measure(req Request, size float64) (float64, error) {
	width := req.Measure(req.Text, size)
	if math.IsNaN(width) || math.IsInf(width, 0) || width <= 0 {
		return 0, fmt.Errorf("%w: width %g for %q at size %g", ErrInvalidMeasurement, width, req.Text, size)
	}
	return width, nil
}

func validate(req Request) error {
	switch {
	case strings.TrimSpace(req.Text) == "":
		return fmt.Errorf("%w: text is empty", ErrInvalidInput)
	case req.Measure == nil:
		return fmt.Errorf("%w: no text measurer", ErrInvalidInput)
	case !positive(req.SurfaceWidth) || !positive(req.SurfaceHeight):
		return fmt.Errorf("%w: surface %gx%g", ErrInvalidInput, req.SurfaceWidth, req.SurfaceHeight)
	case !unit(req.AnchorX) || !unit(req.AnchorY):
		return fmt.Errorf("%w: anchor (%g, %g) outside [0,1]", ErrInvalidInput, req.AnchorX, req.AnchorY)
	case !positive(req.FontSizeFraction) || req.FontSizeFraction > 1:
		return fmt.Errorf("%w: font size fraction %g outside (0,1]", ErrInvalidInput, req.FontSizeFraction)
	case req.Padding < 0 || math.IsNaN(req.Padding):
		return fmt.Errorf("%w: padding %g", ErrInvalidInput, req.Padding)
	}
	return nil
}

func withDefaults(req Request) Request {
	if req.SubtitleOffset == 0 && !req.Explicit {
		req.SubtitleOffset = DefaultSubtitleOffset
	}
	if req.DecorationMargin < 0 || (req.DecorationMargin == 0 && !req.Explicit) {
		req.DecorationMargin = DefaultDecorationMargin
	}
	if req.MinFontSize <= 0 {
		req.MinFontSize = DefaultMinFontSize
	}
	return req
}

func positive(v float64) bool { return v > 0 && !math.IsInf(v, 0) }

func unit(v float64) bool { return v >= 0 && v <= 1 }
