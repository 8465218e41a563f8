package storage

import (
	"context"
	"errors"
	"io"
	"mime"
	"path"
	"strings"

	cld "github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/jobfinder/apiserver/config"
)

// CloudinaryClient stores objects as Cloudinary assets. Images are
// uploaded as image resources and everything else (resumes) as raw files.
type CloudinaryClient struct {
	cld       *cld.Cloudinary
	cloudName string
}

// NewCloudinaryClient constructs a Cloudinary client from config, preferring
// CLOUDINARY_URL when set.
func NewCloudinaryClient(cfg config.CloudinaryConfig) (*CloudinaryClient, error) {
	var (
		client *cld.Cloudinary
		err    error
	)
	switch {
	case strings.TrimSpace(cfg.URL) != "":
		client, err = cld.NewFromURL(cfg.URL)
	case cfg.CloudName != "" && cfg.APIKey != "" && cfg.APISecret != "":
		client, err = cld.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	default:
		return nil, errors.New("cloudinary url or cloud name, api key and api secret are required")
	}
	if err != nil {
		return nil, err
	}
	return &CloudinaryClient{cld: client, cloudName: client.Config.Cloud.CloudName}, nil
}

// EnsureBucket verifies the credentials. Cloudinary has no buckets.
func (c *CloudinaryClient) EnsureBucket(ctx context.Context) error {
	_, err := c.cld.Admin.Ping(ctx)
	return err
}

// Put uploads r under key and returns the asset's secure URL.
func (c *CloudinaryClient) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	publicID, resourceType := cloudinaryAsset(key, contentType)
	overwrite := true
	res, err := c.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		PublicID:     publicID,
		ResourceType: resourceType,
		Overwrite:    &overwrite,
	})
	if err != nil {
		return "", err
	}
	if res.Error.Message != "" {
		return "", errors.New(res.Error.Message)
	}
	return res.SecureURL, nil
}

// Delete destroys the asset stored under key.
func (c *CloudinaryClient) Delete(ctx context.Context, key string) error {
	publicID, resourceType := cloudinaryAsset(key, "")
	res, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: resourceType,
	})
	if err != nil {
		return err
	}
	if res.Error.Message != "" {
		return errors.New(res.Error.Message)
	}
	return nil
}

// Bucket returns the cloud name.
func (c *CloudinaryClient) Bucket() string {
	return c.cloudName
}

// cloudinaryAsset maps an object key to a public ID and resource type.
// Image public IDs drop the extension since Cloudinary appends the format.
func cloudinaryAsset(key, contentType string) (publicID, resourceType string) {
	ext := path.Ext(key)
	if contentType == "" {
		contentType = mime.TypeByExtension(ext)
	}
	if strings.HasPrefix(contentType, "image/") {
		return strings.TrimSuffix(key, ext), "image"
	}
	return key, "raw"
}
