package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 1x1 transparent PNG.
var pngPixel = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

func TestFileStoreRoundTripOverHTTP(t *testing.T) {
	fs, err := NewFileStore(t.TempDir(), "")
	require.NoError(t, err)
	srv := httptest.NewServer(Handler(fs, nil))
	defer srv.Close()
	fs.baseURL = srv.URL

	ctx := context.Background()
	require.NoError(t, fs.Put(ctx, "image/abc", bytes.NewReader(pngPixel)))

	addr, err := fs.ResolveAddress(ctx, "image/abc")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/blobs/image/abc", addr)

	resp, err := resty.New().R().Get(addr)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, "image/png", resp.Header().Get("Content-Type"))
	assert.Equal(t, pngPixel, resp.Body())

	resp, err = resty.New().R().Get(srv.URL + "/blobs/image/missing")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
}

func TestFileStoreResolveMissing(t *testing.T) {
	fs, err := NewFileStore(t.TempDir(), "http://localhost")
	require.NoError(t, err)
	_, err = fs.ResolveAddress(context.Background(), "image/nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

type failingReader struct{ n int }

func (f *failingReader) Read(p []byte) (int, error) {
	if f.n > 0 {
		f.n--
		return copy(p, "partial"), nil
	}
	return 0, errors.New("connection reset")
}

// An interrupted upload leaves nothing resolvable under the key.
func TestFileStoreInterruptedPut(t *testing.T) {
	fs, err := NewFileStore(t.TempDir(), "http://localhost")
	require.NoError(t, err)
	ctx := context.Background()

	err = fs.Put(ctx, "image/broken", &failingReader{n: 2})
	require.Error(t, err)

	_, err = fs.ResolveAddress(ctx, "image/broken")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInvalidKeys(t *testing.T) {
	fs, err := NewFileStore(t.TempDir(), "http://localhost")
	require.NoError(t, err)
	for _, key := range []string{"", "/abs", "../escape", `a\b`} {
		assert.Error(t, fs.Put(context.Background(), key, strings.NewReader("x")), key)
	}
}

// fakeS3 accepts path-style PutObject requests and records them.
type fakeS3 struct {
	mu    sync.Mutex
	puts  map[string][]byte
	ctype map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.puts[r.URL.Path] = body
	f.ctype[r.URL.Path] = r.Header.Get("Content-Type")
	f.mu.Unlock()
	w.Header().Set("ETag", `"etag"`)
	w.WriteHeader(http.StatusOK)
}

func newTestS3(t *testing.T, endpoint string) *S3Store {
	t.Helper()
	s, err := NewS3Store(context.Background(), S3Options{
		Region:    "us-east-1",
		Endpoint:  endpoint,
		Bucket:    "media",
		AccessKey: "minio",
		SecretKey: "minio-secret",
	})
	require.NoError(t, err)
	return s
}

func TestS3PutUploadsObject(t *testing.T) {
	fake := &fakeS3{puts: map[string][]byte{}, ctype: map[string]string{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	s := newTestS3(t, srv.URL)
	require.NoError(t, s.Put(context.Background(), "image/abc", bytes.NewReader(pngPixel)))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, pngPixel, fake.puts["/media/image/abc"])
	assert.Equal(t, "image/png", fake.ctype["/media/image/abc"])
}

func TestS3PutRejectsOversized(t *testing.T) {
	s := newTestS3(t, "http://127.0.0.1:1")
	s.opts.MaxSize = 4
	err := s.Put(context.Background(), "image/big", strings.NewReader("too large"))
	assert.ErrorContains(t, err, "exceeds")
}

func TestS3ResolveAddressPresigns(t *testing.T) {
	s := newTestS3(t, "http://127.0.0.1:9000")
	addr, err := s.ResolveAddress(context.Background(), "image/abc")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(addr, "http://127.0.0.1:9000/media/image/abc?"), addr)
	assert.Contains(t, addr, "X-Amz-Signature=")
}

func TestNewS3StoreNeedsBucket(t *testing.T) {
	_, err := NewS3Store(context.Background(), S3Options{Region: "us-east-1"})
	assert.Error(t, err)
}
