package port

import (
	"context"
	"io"
)

// UploadInput describes one object write. Metadata is stored as user-defined
// object metadata.
type UploadInput struct {
	Bucket      string
	Key         string
	Body        io.Reader
	ContentType string
	Size        int64
	Metadata    map[string]string
}

// UploadOutput identifies the written object.
type UploadOutput struct {
	Location string
	ETag     string
}

// ObjectStorage is the blob store behind the result archive.
type ObjectStorage interface {
	Upload(ctx context.Context, input UploadInput) (*UploadOutput, error)
	Download(ctx context.Context, bucket, key string) ([]byte, error)
	CheckBucket(ctx context.Context, bucket string) error
}
