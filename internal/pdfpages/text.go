package pdfpages

import (
	"bytes"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"
)

// TextLayer extracts the embedded plain text of the first limit pages. The
// result is indexed by page (0-based); pages without text yield "". Scanned
// documents usually have no text layer, so failures only log.
func TextLayer(content []byte, limit int) []string {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		log.Debug().Err(err).Msg("pdfpages.TextLayer: no readable text layer")
		return nil
	}

	n := reader.NumPage()
	if limit > 0 && n > limit {
		n = limit
	}
	texts := make([]string, n)
	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			log.Debug().Err(err).Int("page", i).Msg("pdfpages.TextLayer: skipping page")
			continue
		}
		texts[i-1] = strings.TrimSpace(text)
	}
	return texts
}
