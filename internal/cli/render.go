// Copyright (c) 2025 tpaschkow
// SPDX-License-Identifier: AGPL-3.0-or-later

// render.go - One-shot render/export and flow listing for the velpro CLI.
//
// Examples:
//
//	velpro render flow.mmd                          SVG next to the terminal's cwd
//	velpro render flow.mmd --format png --scale 3   High-DPI PNG
//	velpro render flow.mmd --format html --open     Standalone page, opened when done
//	velpro list                                     Saved flows, oldest first

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tpaschkow/VelPRO-Mermaid/internal/config"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/document"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/export"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/library"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/render"
)

// MaxRenderFileSize caps the input file size (256KB). Kroki rejects
// oversized payloads anyway; failing early gives a clearer message.
const MaxRenderFileSize = 256 * 1024

// HandleRenderCommand handles the "render" command.
func HandleRenderCommand(parser *ArgParser) error {
	path := parser.Positional(1)
	if path == "" {
		return fmt.Errorf("no input file. Usage: velpro render FILE [--format svg|png|html|mmd]")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	doc, err := loadFlowFile(path, parser.Flag("name"))
	if err != nil {
		return err
	}

	scale := cfg.Export.PNGScale
	if n := parser.FlagIntOrDefault("scale", 0); n > 0 {
		scale = float64(n)
	}

	format := strings.ToLower(parser.FlagOrDefault("format", "svg"))
	opts := &export.Options{
		OutputDir:       parser.FlagOrDefault("out", cfg.Export.OutputDir),
		OpenAfterExport: parser.BoolFlag("open") || cfg.Export.OpenAfterExport,
		Scale:           scale,
		Theme:           cfg.Export.HTMLTheme,
	}

	// Source export needs no rendering round trip.
	if format == "mmd" || format == "source" {
		out, err := export.ExportSource(*doc, opts)
		if err != nil {
			return err
		}
		fmt.Printf("%s wrote %s\n", commandStyle.Render("[OK]"), out)
		return nil
	}

	graphic, err := renderGraphic(cfg, doc.Text)
	if err != nil {
		return err
	}

	var out string
	switch format {
	case "svg":
		out, err = export.ExportSVG(*doc, graphic, opts)
	case "png":
		out, err = export.ExportPNG(*doc, graphic, opts)
	case "html":
		out, err = export.ExportHTML(*doc, graphic, opts)
	default:
		return fmt.Errorf("unknown format: %s (want svg, png, html, or mmd)", format)
	}
	if err != nil {
		return err
	}

	fmt.Printf("%s wrote %s\n", commandStyle.Render("[OK]"), out)
	return nil
}

// loadFlowFile reads a Mermaid source file into a document. The flow
// name defaults to the file's base name without extension.
func loadFlowFile(path, name string) (*document.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", path)
		}
		return nil, fmt.Errorf("cannot access file: %w", err)
	}
	if info.Size() > MaxRenderFileSize {
		return nil, fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), MaxRenderFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, fmt.Errorf("%s is empty", path)
	}

	if name == "" {
		base := filepath.Base(path)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	doc := document.NewDocument(document.KindMacro)
	doc.Name = name
	doc.Text = text
	return doc, nil
}

// renderGraphic sends the source through the configured Kroki server.
func renderGraphic(cfg *config.Config, text string) (*render.Graphic, error) {
	renderer := render.NewKrokiRenderer(&render.KrokiConfig{
		BaseURL: cfg.Render.KrokiURL,
		Theme:   cfg.Render.Theme,
		Timeout: cfg.RenderTimeout(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RenderTimeout())
	defer cancel()

	fmt.Fprintf(os.Stderr, "%s rendering via %s\n",
		infoStyle.Render("[render]"), cfg.Render.KrokiURL)

	graphic, err := renderer.Render(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("render failed: %w", err)
	}
	return graphic, nil
}

// =============================================================================
// LIST COMMAND
// =============================================================================

// HandleListCommand handles the "list" command.
func HandleListCommand(parser *ArgParser) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	var lib *library.Library
	if cfg.Library.Dir != "" {
		lib, err = library.NewLibraryWithDir(cfg.Library.Dir)
	} else {
		lib, err = library.NewLibrary()
	}
	if err != nil {
		return fmt.Errorf("opening flow library: %w", err)
	}
	defer lib.Close()

	docs, err := lib.LoadAll()
	if err != nil {
		return fmt.Errorf("loading flows: %w", err)
	}

	if len(docs) == 0 {
		fmt.Println(infoStyle.Render("No saved flows yet. Run velpro to create one."))
		return nil
	}

	fmt.Println()
	fmt.Println(headerStyle.Render("Saved Flows"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 25)))
	for _, d := range docs {
		fmt.Printf("  %s  %s %s\n",
			commandStyle.Render(fmt.Sprintf("%-30s", d.Name)),
			infoStyle.Render(fmt.Sprintf("%-11s", d.Kind.DisplayName())),
			mutedStyle.Render(d.UpdatedAt.Format(time.DateTime)))
	}
	fmt.Println()
	fmt.Printf("%s %d flows in %s\n",
		infoStyle.Render("Total:"), len(docs), lib.BaseDir)
	return nil
}
