package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"unicode"

	"github.com/oklog/ulid/v2"
)

// Keys carry a ULID, so an object never changes once written.
const immutableCacheControl = "public, max-age=31536000, immutable"

// ErrDisabled is returned by the disabled backend for every upload.
var ErrDisabled = errors.New("object storage is not configured")

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	// Put uploads an object and returns the URL clients can fetch it from.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// File is an uploaded file held in memory.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Object identifies a stored file.
type Object struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Storage wraps an ObjectStorage backend with a stable API.
type Storage struct {
	backend ObjectStorage
}

// NewStorage constructs a Storage wrapper for the provided backend.
func NewStorage(backend ObjectStorage) *Storage {
	return &Storage{backend: backend}
}

// EnsureBucket ensures the configured bucket exists.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

// Upload stores file under folder with a unique key.
func (s *Storage) Upload(ctx context.Context, folder string, file File) (Object, error) {
	key := ObjectKey(folder, file.Name)
	url, err := s.backend.Put(ctx, key, bytes.NewReader(file.Data), int64(len(file.Data)), file.ContentType)
	if err != nil {
		return Object{}, err
	}
	return Object{Key: key, URL: url}, nil
}

// Delete removes an object from the configured bucket.
func (s *Storage) Delete(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, key)
}

// Bucket returns the configured bucket name.
func (s *Storage) Bucket() string {
	return s.backend.Bucket()
}

// ObjectKey builds a collision-free key of the form folder/<ulid>-<name>.
func ObjectKey(folder, filename string) string {
	name := sanitizeName(path.Base(strings.ReplaceAll(filename, "\\", "/")))
	id := strings.ToLower(ulid.Make().String())
	if name == "" {
		name = "file"
	}
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return id + "-" + name
	}
	return folder + "/" + id + "-" + name
}

func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-.")
}

// Disabled is the backend used when no object storage is configured.
type Disabled struct{}

func (Disabled) EnsureBucket(context.Context) error { return nil }

func (Disabled) Put(context.Context, string, io.Reader, int64, string) (string, error) {
	return "", ErrDisabled
}

func (Disabled) Delete(context.Context, string) error { return nil }

func (Disabled) Bucket() string { return "" }
