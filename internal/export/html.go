// Copyright (c) 2025 tpaschkow
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"html"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"

	"github.com/tpaschkow/VelPRO-Mermaid/internal/document"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/render"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter writes a standalone page with the diagram, the flow's
// metadata, and the highlighted Mermaid source.
type HTMLExporter struct {
	// Theme is "light" or "dark".
	Theme string
}

// NewHTMLExporter creates an HTML exporter.
func NewHTMLExporter(theme string) *HTMLExporter {
	if theme != "dark" {
		theme = "light"
	}
	return &HTMLExporter{Theme: theme}
}

// Export builds the page. The graphic is optional; without one the page
// carries only the source listing.
func (e *HTMLExporter) Export(doc document.Document, graphic *render.Graphic) ([]byte, error) {
	var sb strings.Builder

	bg, fg := "#ffffff", "#1a1a2e"
	if e.Theme == "dark" {
		bg, fg = "#16161e", "#c0caf5"
	}

	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	sb.WriteString("<meta charset=\"utf-8\">\n")
	sb.WriteString("<title>" + html.EscapeString(doc.Name) + "</title>\n")
	sb.WriteString("<style>\n")
	sb.WriteString("body { font-family: system-ui, sans-serif; max-width: 960px; margin: 2rem auto; padding: 0 1rem; background: " + bg + "; color: " + fg + "; }\n")
	sb.WriteString(".diagram { border: 1px solid #8884; border-radius: 8px; padding: 1rem; overflow-x: auto; }\n")
	sb.WriteString(".diagram svg { max-width: 100%; height: auto; }\n")
	sb.WriteString("pre { border: 1px solid #8884; border-radius: 8px; padding: 1rem; overflow-x: auto; }\n")
	sb.WriteString(".meta { color: #888; font-size: 0.85rem; }\n")
	sb.WriteString("</style>\n</head>\n<body>\n")

	sb.WriteString("<h1>" + html.EscapeString(doc.Name) + "</h1>\n")
	sb.WriteString("<p class=\"meta\">" + html.EscapeString(doc.Kind.DisplayName()) +
		" &middot; exported " + time.Now().Format("2006-01-02 15:04") + "</p>\n")

	if graphic != nil && graphic.SVG != "" {
		// Rendered SVG is trusted markup from the render service.
		sb.WriteString("<div class=\"diagram\">\n" + graphic.SVG + "\n</div>\n")
	}

	sb.WriteString("<h2>Source</h2>\n")
	sb.WriteString(highlightHTML(doc.Text))

	sb.WriteString("</body>\n</html>\n")
	return []byte(sb.String()), nil
}

// FileExtension returns ".html".
func (e *HTMLExporter) FileExtension() string { return ".html" }

// MimeType returns the HTML MIME type.
func (e *HTMLExporter) MimeType() string { return "text/html" }

// =============================================================================
// SYNTAX HIGHLIGHTING (Chroma-based)
// =============================================================================

// highlightHTML renders Mermaid source as highlighted HTML. Falls back
// to an escaped <pre> block if highlighting fails.
func highlightHTML(code string) string {
	lexer := lexers.Get("mermaid")
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("github")
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := formatters.Get("html")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "<pre>" + html.EscapeString(code) + "</pre>\n"
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return "<pre>" + html.EscapeString(code) + "</pre>\n"
	}
	return buf.String()
}
