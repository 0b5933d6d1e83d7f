package analysis

import (
	"fmt"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"

	"taxrecon/internal/domain"
	"taxrecon/internal/port"
)

// ResolveContentType normalizes a declared content type. Missing or generic
// types are sniffed from the content. Types outside the accepted set return
// domain.ErrUnsupportedContentType.
func ResolveContentType(declared string, content []byte) (string, error) {
	ct := strings.ToLower(strings.TrimSpace(declared))
	if ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err == nil {
			ct = mt
		}
	}
	if ct == "image/jpg" {
		ct = domain.ContentTypeJPEG
	}
	if ct == "" || ct == "application/octet-stream" {
		ct = mimetype.Detect(content).String()
		if mt, _, err := mime.ParseMediaType(ct); err == nil {
			ct = mt
		}
	}
	if !domain.AllowedContentTypes[ct] {
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedContentType, ct)
	}
	return ct, nil
}

// PrepareParts turns a document into the ordered parts submitted with the
// prompt. Paginated content is rendered page by page when a renderer is set.
func PrepareParts(renderer port.PageRenderer, req *domain.AnalysisRequest, contentType string, maxPages int, withText bool) ([]port.ContentPart, error) {
	if !domain.IsPaginated(contentType) || renderer == nil {
		return []port.ContentPart{{MimeType: contentType, Data: req.Content}}, nil
	}

	pages, err := renderer.RenderPages(req.Content, maxPages)
	if err != nil {
		return nil, fmt.Errorf("rendering pages of %s: %w", req.Name, err)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: %s has no pages", domain.ErrEmptyContent, req.Name)
	}

	parts := make([]port.ContentPart, 0, len(pages)*2)
	for _, p := range pages {
		parts = append(parts, port.ContentPart{MimeType: p.MimeType, Data: p.Data})
		if withText && strings.TrimSpace(p.Text) != "" {
			parts = append(parts, port.ContentPart{
				Text: fmt.Sprintf("Text layer of page %d:\n%s", p.Number, strings.TrimSpace(p.Text)),
			})
		}
	}
	log.Debug().Str("doc", req.Name).Int("pages", len(pages)).Int("parts", len(parts)).
		Msg("analysis.PrepareParts: rendered document pages")
	return parts, nil
}

func requestBytes(parts []port.ContentPart) int {
	n := 0
	for _, p := range parts {
		n += len(p.Data) + len(p.Text)
	}
	return n
}
