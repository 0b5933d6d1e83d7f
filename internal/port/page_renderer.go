package port

// PageImage is one rendered page of a paginated document.
type PageImage struct {
	Number   int
	MimeType string
	Data     []byte
	Text     string // embedded text layer, if extracted
}

// PageRenderer converts a paginated document into ordered page images.
type PageRenderer interface {
	RenderPages(content []byte, maxPages int) ([]PageImage, error)
}
