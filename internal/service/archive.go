package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"taxrecon/internal/config"
	"taxrecon/internal/domain"
	"taxrecon/internal/export"
	"taxrecon/internal/port"
)

const defaultArchivePrefix = "results"

// ResultArchive stores analysis results as JSON objects.
type ResultArchive struct {
	storage port.ObjectStorage
	bucket  string
	prefix  string
	now     func() time.Time
}

// NewResultArchive creates an archive writing to bucket under prefix.
func NewResultArchive(storage port.ObjectStorage, cfg *config.S3Config) *ResultArchive {
	prefix := strings.Trim(cfg.ArchivePrefix, "/")
	if prefix == "" {
		prefix = defaultArchivePrefix
	}
	return &ResultArchive{storage: storage, bucket: cfg.Bucket, prefix: prefix, now: time.Now}
}

// Key returns "<prefix>/<yyyy>/<mm>/<dd>/<id>-<name>.json".
func (a *ResultArchive) Key(id uuid.UUID, documentName string) string {
	day := a.now().UTC().Format("2006/01/02")
	return path.Join(a.prefix, day, fmt.Sprintf("%s-%s.json", id, export.SanitizeFilename(documentName)))
}

// Store uploads res and returns the object key.
func (a *ResultArchive) Store(ctx context.Context, documentName string, res *domain.StructuredResult) (string, error) {
	body, err := json.Marshal(res)
	if err != nil {
		return "", fmt.Errorf("resultArchive.Store marshal: %w", err)
	}
	key := a.Key(uuid.New(), documentName)
	_, err = a.storage.Upload(ctx, port.UploadInput{
		Bucket:      a.bucket,
		Key:         key,
		Body:        bytes.NewReader(body),
		ContentType: "application/json",
		Size:        int64(len(body)),
		Metadata: map[string]string{
			"document": export.SanitizeFilename(documentName),
			"category": res.DocumentCategory,
		},
	})
	if err != nil {
		return "", fmt.Errorf("resultArchive.Store: %w", err)
	}
	return key, nil
}

// Check reports whether the archive bucket is reachable.
func (a *ResultArchive) Check(ctx context.Context) error {
	return a.storage.CheckBucket(ctx, a.bucket)
}

// Load reads an archived result back.
func (a *ResultArchive) Load(ctx context.Context, key string) (*domain.StructuredResult, error) {
	data, err := a.storage.Download(ctx, a.bucket, key)
	if err != nil {
		return nil, fmt.Errorf("resultArchive.Load: %w", err)
	}
	var res domain.StructuredResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("resultArchive.Load decode %s: %w", key, err)
	}
	return &res, nil
}
