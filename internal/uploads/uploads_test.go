package uploads

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowedFile(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"photo.JPG", true},
		{"photo.jpeg", true},
		{"a.b.png", true},
		{"anim.Gif", true},
		{"photo.EXE", false},
		{"png", false},
		{"photo.", false},
		{"photo.jpg.exe", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AllowedFile(tt.name))
		})
	}
}

func TestSecureFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"My cool movie.mov", "My_cool_movie.mov"},
		{"../../../etc/passwd", "etc_passwd"},
		{"café crème.jpg", "cafe_creme.jpg"},
		{"  .hidden.png ", "hidden.png"},
		{"صورة.jpg", "jpg"},
		{"...", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SecureFilename(tt.in))
		})
	}
}

func TestStoredName(t *testing.T) {
	now := time.Date(2026, 5, 4, 13, 2, 1, 0, time.FixedZone("WEST", 3600))

	name := StoredName(7, now, "photo.JPG")
	assert.Regexp(t, regexp.MustCompile(`^7_20260504120201_[0-9a-f]{8}_photo\.JPG$`), name)
	assert.NotEqual(t, name, StoredName(7, now, "photo.JPG"))

	arabic := StoredName(7, now, "صورة.jpg")
	assert.Regexp(t, regexp.MustCompile(`^7_20260504120201_[0-9a-f]{8}\.jpg$`), arabic)
}

func newFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	fw, err := mw.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/add_item", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["image"][0]
}

func TestSaveImageToDisk(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	store, err := NewDiskStorage(dir)
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("Rejected Extension", func(t *testing.T) {
		name, err := SaveImage(ctx, store, 1, newFileHeader(t, "photo.EXE", []byte("MZ")), time.Now())
		require.NoError(t, err)
		assert.Empty(t, name)
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("No File", func(t *testing.T) {
		name, err := SaveImage(ctx, store, 1, nil, time.Now())
		require.NoError(t, err)
		assert.Empty(t, name)
	})

	t.Run("Accepted Extension", func(t *testing.T) {
		name, err := SaveImage(ctx, store, 1, newFileHeader(t, "photo.JPG", []byte("jpeg bytes")), time.Now())
		require.NoError(t, err)
		require.NotEmpty(t, name)
		assert.NotEqual(t, "photo.JPG", name)
		assert.True(t, strings.HasSuffix(name, "_photo.JPG"))

		rc, err := store.Open(ctx, name)
		require.NoError(t, err)
		defer rc.Close()
		got, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "jpeg bytes", string(got))
	})
}

type failingReader struct{ n int }

func (r *failingReader) Read(p []byte) (int, error) {
	if r.n == 0 {
		return 0, errors.New("connection reset")
	}
	n := copy(p, bytes.Repeat([]byte("x"), r.n))
	r.n -= n
	return n, nil
}

func TestDiskStorageFailedSaveLeavesNothing(t *testing.T) {
	ctx := context.Background()
	store, err := NewDiskStorage(t.TempDir())
	require.NoError(t, err)

	err = store.Save(ctx, "1_photo.png", &failingReader{n: 16}, "image/png")
	require.Error(t, err)
	_, err = os.Stat(filepath.Join(store.Dir, "1_photo.png"))
	assert.True(t, os.IsNotExist(err), "partial file should be removed")

	require.NoError(t, store.Save(ctx, "1_photo.png", strings.NewReader("png"), "image/png"))
}

func TestDiskStorageDelete(t *testing.T) {
	ctx := context.Background()
	store, err := NewDiskStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, "2_rug.gif", strings.NewReader("gif"), "image/gif"))
	require.NoError(t, store.Delete(ctx, "2_rug.gif"))
	_, err = store.Open(ctx, "2_rug.gif")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, store.Delete(ctx, "2_rug.gif"), "missing names are not an error")
	assert.Error(t, store.Delete(ctx, "../escape.gif"))
}

func TestDiskStorageOpenRejectsUnsafeNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "secret.txt"), []byte("x"), 0o644))
	store, err := NewDiskStorage(filepath.Join(dir, "uploads"))
	require.NoError(t, err)

	for _, name := range []string{"", "../secret.txt", "..", "a/b.jpg", `a\b.jpg`, "missing.jpg"} {
		_, err := store.Open(context.Background(), name)
		assert.ErrorIs(t, err, ErrNotFound, name)
	}
}

// fakeS3 serves path-style PutObject and GetObject for a single bucket.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = body
		f.types[r.URL.Path] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		body, ok := f.objects[r.URL.Path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			return
		}
		w.Header().Set("Content-Type", f.types[r.URL.Path])
		_, _ = w.Write(body)
	case http.MethodDelete:
		delete(f.objects, r.URL.Path)
		delete(f.types, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestS3Storage(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	ctx := context.Background()
	store, err := NewS3Storage(ctx, S3Config{
		Bucket:    "souk",
		Region:    "us-east-1",
		Endpoint:  srv.URL,
		AccessKey: "test",
		SecretKey: "test",
	})
	require.NoError(t, err)

	name, err := SaveImage(ctx, store, 3, newFileHeader(t, "rug.png", []byte("png bytes")), time.Now())
	require.NoError(t, err)
	require.NotEmpty(t, name)

	fake.mu.Lock()
	assert.Equal(t, []byte("png bytes"), fake.objects["/souk/"+name])
	assert.Equal(t, "image/png", fake.types["/souk/"+name])
	fake.mu.Unlock()

	rc, err := store.Open(ctx, name)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "png bytes", string(got))

	_, err = store.Open(ctx, "missing.png")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Open(ctx, "../etc.png")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Delete(ctx, name))
	_, err = store.Open(ctx, name)
	assert.ErrorIs(t, err, ErrNotFound)
}
