package blob

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/scriptorium/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKey(t *testing.T) {
	a := NewKey("Report.PDF")
	b := NewKey("Report.PDF")

	assert.True(t, strings.HasPrefix(a, "uploads/"))
	assert.True(t, strings.HasSuffix(a, ".pdf"))
	assert.NotEqual(t, a, b)
	assert.False(t, strings.Contains(NewKey("noext"), "."))
}

func TestCleanRef(t *testing.T) {
	for _, bad := range []string{"", ".", "../etc/passwd", "a/../../b", "/abs/path", `..\win`} {
		_, err := cleanRef(bad)
		assert.ErrorIs(t, err, storage.ErrInvalidBlobRef, "ref %q", bad)
	}
	got, err := cleanRef("uploads//x.txt")
	require.NoError(t, err)
	assert.Equal(t, "uploads/x.txt", got)
}

func exerciseStore(t *testing.T, s storage.BlobStore) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "uploads/missing.txt")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.Put(ctx, "uploads/a.txt", []byte("first"), "text/plain"))
	require.NoError(t, s.Put(ctx, "uploads/a.txt", []byte("second"), "text/plain"))

	data, err := s.Get(ctx, "uploads/a.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), data)

	assert.ErrorIs(t, s.Put(ctx, "../escape", []byte("x"), ""), storage.ErrInvalidBlobRef)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	exerciseStore(t, s)
	assert.Equal(t, "text/plain", s.ContentType("uploads/a.txt"))

	// returned slices are copies
	data, err := s.Get(context.Background(), "uploads/a.txt")
	require.NoError(t, err)
	data[0] = 'X'
	again, _ := s.Get(context.Background(), "uploads/a.txt")
	assert.Equal(t, []byte("second"), again)
}

func TestFSStore(t *testing.T) {
	root := t.TempDir()
	s, err := NewFSStore(root)
	require.NoError(t, err)
	exerciseStore(t, s)

	onDisk, err := os.ReadFile(filepath.Join(root, "uploads", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), onDisk)
}

func TestMinIOStoreRequiresConfig(t *testing.T) {
	_, err := NewMinIOStore(context.Background(), MinIOConfig{})
	assert.Error(t, err)
}

func TestS3StoreRequiresConfig(t *testing.T) {
	_, err := NewS3Store(context.Background(), S3Config{Region: "us-east-1"})
	assert.Error(t, err)
	_, err = NewS3Store(context.Background(), S3Config{Bucket: "b"})
	assert.Error(t, err)
}

func TestS3StoreBuildsClient(t *testing.T) {
	s, err := NewS3Store(context.Background(), S3Config{
		Region: "us-east-1", Bucket: "docs", AccessKey: "AKID", SecretKey: "secret",
		Endpoint: "http://127.0.0.1:9000",
	})
	require.NoError(t, err)
	assert.Equal(t, "docs", s.bucket)
	assert.Equal(t, "us-east-1", s.client.Options().Region)
	assert.True(t, s.client.Options().UsePathStyle)
}
