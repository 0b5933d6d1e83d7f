package handler

import (
	"fmt"
	"io"
	"mime/multipart"

	"taxrecon/internal/domain"
)

// readUpload loads a multipart file into an AnalysisRequest, enforcing maxBytes.
func readUpload(fh *multipart.FileHeader, maxBytes int64) (domain.AnalysisRequest, error) {
	if maxBytes > 0 && fh.Size > maxBytes {
		return domain.AnalysisRequest{}, fmt.Errorf("%w: %s is %d bytes", domain.ErrFileTooLarge, fh.Filename, fh.Size)
	}
	f, err := fh.Open()
	if err != nil {
		return domain.AnalysisRequest{}, fmt.Errorf("opening %s: %w", fh.Filename, err)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if maxBytes > 0 {
		r = io.LimitReader(f, maxBytes+1)
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return domain.AnalysisRequest{}, fmt.Errorf("reading %s: %w", fh.Filename, err)
	}
	if maxBytes > 0 && int64(len(content)) > maxBytes {
		return domain.AnalysisRequest{}, fmt.Errorf("%w: %s", domain.ErrFileTooLarge, fh.Filename)
	}
	if len(content) == 0 {
		return domain.AnalysisRequest{}, fmt.Errorf("%w: %s", domain.ErrEmptyContent, fh.Filename)
	}
	return domain.AnalysisRequest{
		Content:     content,
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
	}, nil
}
