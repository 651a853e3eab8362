// Copyright (c) 2025 tpaschkow
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"

	"github.com/tpaschkow/VelPRO-Mermaid/internal/document"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/render"
)

// ErrNoGraphic is returned when an exporter needs a rendered graphic and
// none is available, e.g. the flow has never rendered successfully.
var ErrNoGraphic = errors.New("no rendered graphic to export")

// =============================================================================
// SVG EXPORTER
// =============================================================================

// SVGExporter writes the rendered graphic verbatim.
type SVGExporter struct{}

// NewSVGExporter creates an SVG exporter.
func NewSVGExporter() *SVGExporter {
	return &SVGExporter{}
}

// Export returns the SVG markup of the rendered graphic.
func (e *SVGExporter) Export(doc document.Document, graphic *render.Graphic) ([]byte, error) {
	if graphic == nil || graphic.SVG == "" {
		return nil, ErrNoGraphic
	}
	return []byte(graphic.SVG), nil
}

// FileExtension returns ".svg".
func (e *SVGExporter) FileExtension() string { return ".svg" }

// MimeType returns the SVG MIME type.
func (e *SVGExporter) MimeType() string { return "image/svg+xml" }

// =============================================================================
// SOURCE EXPORTER
// =============================================================================

// SourceExporter writes the raw Mermaid text.
type SourceExporter struct{}

// NewSourceExporter creates a Mermaid source exporter.
func NewSourceExporter() *SourceExporter {
	return &SourceExporter{}
}

// Export returns the flow's Mermaid text.
func (e *SourceExporter) Export(doc document.Document, _ *render.Graphic) ([]byte, error) {
	return []byte(doc.Text), nil
}

// FileExtension returns ".mmd".
func (e *SourceExporter) FileExtension() string { return ".mmd" }

// MimeType returns a plain text MIME type.
func (e *SourceExporter) MimeType() string { return "text/plain" }
