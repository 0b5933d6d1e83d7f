package s3_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxrecon/internal/config"
	"taxrecon/internal/port"
	"taxrecon/internal/storage/s3"
)

// fakeS3 is a tiny path-style object store good enough for PUT, GET and HEAD.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	meta    map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := strings.TrimPrefix(r.URL.Path, "/")
	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[key] = body
		f.meta[key] = r.Header.Get("X-Amz-Meta-Document")
		w.Header().Set("ETag", `"etag-1"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		body, ok := f.objects[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`<Error><Code>NoSuchKey</Code></Error>`))
			return
		}
		_, _ = w.Write(body)
	case http.MethodHead:
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestClient(t *testing.T) (*s3.Client, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: map[string][]byte{}, meta: map[string]string{}}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	client, err := s3.NewClient(context.Background(), &config.S3Config{
		Region: "us-east-1", Endpoint: server.URL, AccessKey: "test", SecretKey: "test",
	})
	require.NoError(t, err)
	return client, fake
}

func TestClient_UploadDownload(t *testing.T) {
	client, fake := newTestClient(t)
	ctx := context.Background()

	out, err := client.Upload(ctx, port.UploadInput{
		Bucket: "archive", Key: "results/a.json",
		Body: strings.NewReader(`{"a":"1"}`), ContentType: "application/json", Size: 9,
		Metadata: map[string]string{"document": "w2"},
	})
	require.NoError(t, err)
	assert.Equal(t, `"etag-1"`, out.ETag)
	assert.Equal(t, `{"a":"1"}`, string(fake.objects["archive/results/a.json"]))
	assert.Equal(t, "w2", fake.meta["archive/results/a.json"])

	data, err := client.Download(ctx, "archive", "results/a.json")
	require.NoError(t, err)
	assert.Equal(t, `{"a":"1"}`, string(data))
}

func TestClient_DownloadMissing(t *testing.T) {
	client, _ := newTestClient(t)
	_, err := client.Download(context.Background(), "archive", "missing.json")
	assert.Error(t, err)
}

func TestClient_CheckBucket(t *testing.T) {
	client, _ := newTestClient(t)
	assert.NoError(t, client.CheckBucket(context.Background(), "archive"))
}
