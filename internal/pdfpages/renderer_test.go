package pdfpages_test

import (
	"bytes"
	"fmt"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxrecon/internal/config"
	"taxrecon/internal/pdfpages"
)

// buildPDF assembles a minimal PDF with one text line per page and a valid
// cross-reference table.
func buildPDF(lines ...string) []byte {
	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	n := len(lines)
	kids := ""
	for i := 0; i < n; i++ {
		kids += fmt.Sprintf("%d 0 R ", 4+2*i)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, n))
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")
	for i, line := range lines {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 200 200] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i))
		stream := fmt.Sprintf("BT /F1 12 Tf 20 100 Td (%s) Tj ET", line)
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func TestRenderer_RenderPages(t *testing.T) {
	doc := buildPDF("Box 1 100.00", "Box 2 50.00")
	r := pdfpages.NewRenderer(config.PDFConfig{DPI: 72, IncludeTextLayer: true})

	pages, err := r.RenderPages(doc, 0)

	require.NoError(t, err)
	require.Len(t, pages, 2)
	for i, p := range pages {
		assert.Equal(t, i+1, p.Number)
		assert.Equal(t, "image/png", p.MimeType)
		_, err := png.Decode(bytes.NewReader(p.Data))
		assert.NoError(t, err)
	}
	assert.Contains(t, pages[0].Text, "Box 1")
	assert.Contains(t, pages[1].Text, "Box 2")
}

func TestRenderer_TruncatesToMaxPages(t *testing.T) {
	doc := buildPDF("one", "two", "three")
	r := pdfpages.NewRenderer(config.PDFConfig{DPI: 36})

	pages, err := r.RenderPages(doc, 2)

	require.NoError(t, err)
	assert.Len(t, pages, 2)
	assert.Empty(t, pages[0].Text, "text layer disabled")
}

func TestRenderer_RejectsGarbage(t *testing.T) {
	r := pdfpages.NewRenderer(config.PDFConfig{})

	_, err := r.RenderPages([]byte("definitely not a pdf"), 0)

	assert.Error(t, err)
}

func TestTextLayer_UnreadableContent(t *testing.T) {
	assert.Nil(t, pdfpages.TextLayer([]byte("nope"), 5))
}
