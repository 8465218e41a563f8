package services

import (
	"context"
	"log/slog"

	"github.com/jobfinder/apiserver/internal/logging"
	"github.com/jobfinder/apiserver/internal/storage"
	"github.com/samber/oops"
)

// Storage folders.
const (
	FolderAvatars = "avatars"
	FolderCovers  = "covers"
	FolderResumes = "resumes"
	FolderLogos   = "logos"
)

// Uploader stores user-supplied files.
type Uploader interface {
	Upload(ctx context.Context, folder string, file storage.File) (storage.Object, error)
	Delete(ctx context.Context, key string) error
}

// upload stores file and returns an UploadError on failure.
func upload(ctx context.Context, files Uploader, folder string, file *storage.File) (storage.Object, error) {
	obj, err := files.Upload(ctx, folder, *file)
	if err != nil {
		return storage.Object{}, wrapError(ErrUpload, "Error uploading file",
			oops.Code("upload_failed").
				With("folder", folder).
				With("filename", file.Name).
				Wrap(err))
	}
	return obj, nil
}

// discard removes objects uploaded for a write that did not complete.
func discard(ctx context.Context, files Uploader, logger *slog.Logger, objects ...storage.Object) {
	for _, obj := range objects {
		if obj.Key == "" {
			continue
		}
		if err := files.Delete(context.WithoutCancel(ctx), obj.Key); err != nil {
			logging.LogError(logger, "discard upload failed", err, "key", obj.Key)
		}
	}
}
