// Package uploads validates image uploads and stores them on disk or in an
// S3 bucket.
package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"
)

// ErrNotFound is returned by Open for unknown or unsafe names.
var ErrNotFound = errors.New("upload not found")

// Storage persists uploaded files under flat names.
type Storage interface {
	Save(ctx context.Context, name string, r io.Reader, contentType string) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Delete removes name. Deleting a missing name is not an error.
	Delete(ctx context.Context, name string) error
}

// SaveImage stores an uploaded image for sellerID and returns its stored
// name. A missing file or a disallowed extension returns "" and no error.
func SaveImage(ctx context.Context, store Storage, sellerID int64, fh *multipart.FileHeader, now time.Time) (string, error) {
	if fh == nil || fh.Filename == "" || !AllowedFile(fh.Filename) {
		return "", nil
	}
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	name := StoredName(sellerID, now, fh.Filename)
	if err := store.Save(ctx, name, f, ContentType(name)); err != nil {
		return "", fmt.Errorf("store upload: %w", err)
	}
	return name, nil
}

// ContentType guesses the MIME type of a stored name from its extension.
func ContentType(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// DiskStorage keeps uploads in a local directory.
type DiskStorage struct {
	Dir string
}

func NewDiskStorage(dir string) (*DiskStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStorage{Dir: dir}, nil
}

func (d *DiskStorage) Save(_ context.Context, name string, r io.Reader, _ string) error {
	if !validName(name) {
		return fmt.Errorf("invalid upload name %q", name)
	}
	path := filepath.Join(d.Dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	_, err = io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

func (d *DiskStorage) Open(_ context.Context, name string) (io.ReadCloser, error) {
	if !validName(name) {
		return nil, ErrNotFound
	}
	f, err := os.Open(filepath.Join(d.Dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

func (d *DiskStorage) Delete(_ context.Context, name string) error {
	if !validName(name) {
		return fmt.Errorf("invalid upload name %q", name)
	}
	err := os.Remove(filepath.Join(d.Dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
