package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"taxrecon/internal/domain"
)

// readDocument loads path as an analysis request. The content type comes from
// the extension; unknown extensions are left for content sniffing.
func readDocument(path, instructions string, maxBytes int64) (domain.AnalysisRequest, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.AnalysisRequest{}, err
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return domain.AnalysisRequest{}, fmt.Errorf("%s: %w", path, domain.ErrFileTooLarge)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return domain.AnalysisRequest{}, err
	}
	return domain.AnalysisRequest{
		Name:               filepath.Base(path),
		Content:            content,
		ContentType:        contentTypeFor(path),
		CustomInstructions: instructions,
	}, nil
}

func contentTypeFor(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case "":
		return ""
	case ".jpg", ".jpeg":
		return domain.ContentTypeJPEG
	case ".tif", ".tiff":
		return domain.ContentTypeTIFF
	}
	return mime.TypeByExtension(ext)
}
