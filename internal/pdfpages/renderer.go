// Package pdfpages converts PDF documents into ordered page images, with an
// optional embedded text layer per page.
package pdfpages

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"

	fitz "github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog/log"

	"taxrecon/internal/config"
	"taxrecon/internal/port"
)

// ErrNoPages is returned for a PDF without any pages.
var ErrNoPages = errors.New("pdf has no pages")

const defaultDPI = 150

// Renderer rasterizes PDF pages to PNG with MuPDF. It implements port.PageRenderer.
type Renderer struct {
	dpi      float64
	withText bool
}

// NewRenderer creates a Renderer from PDF settings.
func NewRenderer(cfg config.PDFConfig) *Renderer {
	dpi := cfg.DPI
	if dpi <= 0 {
		dpi = defaultDPI
	}
	return &Renderer{dpi: dpi, withText: cfg.IncludeTextLayer}
}

// RenderPages renders up to maxPages pages (all pages when maxPages <= 0).
func (r *Renderer) RenderPages(content []byte, maxPages int) ([]port.PageImage, error) {
	doc, err := fitz.NewFromMemory(content)
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}
	defer func() { _ = doc.Close() }()

	total := doc.NumPage()
	if total == 0 {
		return nil, ErrNoPages
	}
	limit := total
	if maxPages > 0 && total > maxPages {
		log.Warn().Int("pages", total).Int("max_pages", maxPages).
			Msg("pdfpages.RenderPages: truncating document to page limit")
		limit = maxPages
	}

	var texts []string
	if r.withText {
		texts = TextLayer(content, limit)
	}

	pages := make([]port.PageImage, 0, limit)
	for i := 0; i < limit; i++ {
		img, err := doc.ImageDPI(i, r.dpi)
		if err != nil {
			return nil, fmt.Errorf("rendering page %d: %w", i+1, err)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encoding page %d: %w", i+1, err)
		}
		page := port.PageImage{Number: i + 1, MimeType: "image/png", Data: buf.Bytes()}
		if i < len(texts) {
			page.Text = texts[i]
		}
		pages = append(pages, page)
	}
	return pages, nil
}
