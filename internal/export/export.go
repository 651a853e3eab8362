// Copyright (c) 2025 tpaschkow
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes rendered diagrams to files in various formats
// with sensible names derived from the flow title.
package export

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/tpaschkow/VelPRO-Mermaid/internal/document"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/render"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter defines the interface for diagram exporters.
type Exporter interface {
	// Export converts the flow and its rendered graphic to the target
	// format. Exporters that need the graphic return an error when it
	// is nil.
	Export(doc document.Document, graphic *render.Graphic) ([]byte, error)

	// FileExtension returns the appropriate file extension (e.g. ".svg").
	FileExtension() string

	// MimeType returns the MIME type for the exported format.
	MimeType() string
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is the directory where files will be saved.
	// Default: current working directory
	OutputDir string

	// OpenAfterExport opens the file in the default application.
	OpenAfterExport bool

	// Scale multiplies the raster size for PNG export.
	// Default: 2
	Scale float64

	// Theme for HTML export ("light" or "dark").
	// Default: "light"
	Theme string
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:       ".",
		OpenAfterExport: false,
		Scale:           2,
		Theme:           "light",
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ExportToFile exports a flow to a file using the specified exporter.
// Returns the output file path or an error.
func ExportToFile(doc document.Document, graphic *render.Graphic, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	content, err := exporter.Export(doc, graphic)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	ext := exporter.FileExtension()
	filename := util.ExportFilename(doc.Name, ext[1:])
	outputPath := filepath.Join(opts.OutputDir, filename)
	if err := os.WriteFile(outputPath, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	if opts.OpenAfterExport {
		if err := openFile(outputPath); err != nil {
			// Non-fatal, the file was still created.
			fmt.Printf("Warning: Could not open file: %v\n", err)
		}
	}

	return outputPath, nil
}

// ExportSVG exports the rendered graphic as an SVG file.
func ExportSVG(doc document.Document, graphic *render.Graphic, opts *Options) (string, error) {
	return ExportToFile(doc, graphic, NewSVGExporter(), opts)
}

// ExportPNG rasterizes the graphic and exports it as a PNG file.
func ExportPNG(doc document.Document, graphic *render.Graphic, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	return ExportToFile(doc, graphic, NewPNGExporter(opts.Scale), opts)
}

// ExportHTML exports a standalone HTML page with the diagram and its
// highlighted source.
func ExportHTML(doc document.Document, graphic *render.Graphic, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	return ExportToFile(doc, graphic, NewHTMLExporter(opts.Theme), opts)
}

// ExportSource exports the raw Mermaid text as a .mmd file.
func ExportSource(doc document.Document, opts *Options) (string, error) {
	return ExportToFile(doc, nil, NewSourceExporter(), opts)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// openFile opens a file in the default application for the OS.
func openFile(path string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", `""`, path)
	case "darwin":
		cmd = exec.Command("open", path)
	case "linux":
		cmd = exec.Command("xdg-open", path)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
