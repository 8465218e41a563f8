package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBackend struct {
	keys         []string
	contentTypes []string
	bodies       []string
	deleted      []string
}

func (b *recordingBackend) EnsureBucket(context.Context) error { return nil }

func (b *recordingBackend) Put(_ context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if int64(len(data)) != size {
		return "", io.ErrShortBuffer
	}
	b.keys = append(b.keys, key)
	b.contentTypes = append(b.contentTypes, contentType)
	b.bodies = append(b.bodies, string(data))
	return "https://cdn.example/" + key, nil
}

func (b *recordingBackend) Delete(_ context.Context, key string) error {
	b.deleted = append(b.deleted, key)
	return nil
}

func (b *recordingBackend) Bucket() string { return "test" }

func TestUploadBuildsKeyAndURL(t *testing.T) {
	backend := &recordingBackend{}
	store := NewStorage(backend)

	obj, err := store.Upload(context.Background(), "avatars", File{
		Name:        "My Photo.PNG",
		ContentType: "image/png",
		Data:        []byte("png-bytes"),
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(obj.Key, "avatars/"))
	assert.True(t, strings.HasSuffix(obj.Key, "-my-photo.png"))
	assert.Equal(t, "https://cdn.example/"+obj.Key, obj.URL)
	assert.Equal(t, []string{"image/png"}, backend.contentTypes)
	assert.Equal(t, []string{"png-bytes"}, backend.bodies)

	require.NoError(t, store.Delete(context.Background(), obj.Key))
	assert.Equal(t, []string{obj.Key}, backend.deleted)
}

func TestObjectKeyIsUnique(t *testing.T) {
	first := ObjectKey("resumes", "cv.pdf")
	second := ObjectKey("resumes", "cv.pdf")
	assert.NotEqual(t, first, second)
}

func TestObjectKeyStripsPaths(t *testing.T) {
	key := ObjectKey("/logos/", `C:\Users\me\..\logo.svg`)
	assert.True(t, strings.HasPrefix(key, "logos/"))
	assert.True(t, strings.HasSuffix(key, "-logo.svg"))
	assert.NotContains(t, strings.TrimPrefix(key, "logos/"), "/")

	assert.True(t, strings.HasSuffix(ObjectKey("", "???"), "-file"))
}

func TestDisabledRejectsUploads(t *testing.T) {
	_, err := NewStorage(Disabled{}).Upload(context.Background(), "avatars", File{Name: "a.png", Data: []byte("x")})
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestCloudinaryAsset(t *testing.T) {
	id, kind := cloudinaryAsset("avatars/01-me.png", "image/png")
	assert.Equal(t, "avatars/01-me", id)
	assert.Equal(t, "image", kind)

	id, kind = cloudinaryAsset("resumes/01-cv.pdf", "application/pdf")
	assert.Equal(t, "resumes/01-cv.pdf", id)
	assert.Equal(t, "raw", kind)

	id, kind = cloudinaryAsset("logos/01-logo.jpg", "")
	assert.Equal(t, "logos/01-logo", id)
	assert.Equal(t, "image", kind)
}

func TestPublicReadPolicy(t *testing.T) {
	policy := publicReadPolicy("uploads")
	assert.Contains(t, policy, `"arn:aws:s3:::uploads/*"`)
	assert.Contains(t, policy, `"s3:GetObject"`)
}
