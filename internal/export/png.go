// Copyright (c) 2025 tpaschkow
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/tpaschkow/VelPRO-Mermaid/internal/document"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/render"
)

// =============================================================================
// PNG EXPORTER
// =============================================================================

// PNGExporter rasterizes the SVG graphic into a PNG image.
type PNGExporter struct {
	// Scale multiplies the SVG's intrinsic size. 2 gives a crisp image
	// on high-DPI displays.
	Scale float64
}

// NewPNGExporter creates a PNG exporter with the given scale factor.
func NewPNGExporter(scale float64) *PNGExporter {
	if scale <= 0 {
		scale = 2
	}
	return &PNGExporter{Scale: scale}
}

// Export rasterizes the graphic and encodes it as PNG.
func (e *PNGExporter) Export(doc document.Document, graphic *render.Graphic) ([]byte, error) {
	if graphic == nil || graphic.SVG == "" {
		return nil, ErrNoGraphic
	}

	icon, err := oksvg.ReadIconStream(strings.NewReader(graphic.SVG))
	if err != nil {
		return nil, fmt.Errorf("parse svg: %w", err)
	}

	w := int(icon.ViewBox.W * e.Scale)
	h := int(icon.ViewBox.H * e.Scale)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("svg has no usable dimensions (%dx%d)", w, h)
	}

	icon.SetTarget(0, 0, float64(w), float64(h))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1.0)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// FileExtension returns ".png".
func (e *PNGExporter) FileExtension() string { return ".png" }

// MimeType returns the PNG MIME type.
func (e *PNGExporter) MimeType() string { return "image/png" }
