package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// ErrDisabled is returned when no storage backend is configured.
var ErrDisabled = errors.New("file storage is not configured")

// StoredFile identifies an uploaded asset.
type StoredFile struct {
	PublicID string
	URL      string
}

// StorageService uploads and removes user assets such as company logos.
type StorageService interface {
	Upload(ctx context.Context, file io.Reader, publicID string) (*StoredFile, error)
	Delete(ctx context.Context, publicID string) error
}

type CloudinaryStorage struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinaryStorage builds a Cloudinary-backed StorageService that keeps
// every asset under folder.
func NewCloudinaryStorage(cloudName, apiKey, apiSecret, folder string) (*CloudinaryStorage, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	return &CloudinaryStorage{cld: cld, folder: folder}, nil
}

func (s *CloudinaryStorage) Upload(ctx context.Context, file io.Reader, publicID string) (*StoredFile, error) {
	result, err := s.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:       s.folder,
		PublicID:     publicID,
		ResourceType: "image",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}
	if result.Error.Message != "" {
		return nil, fmt.Errorf("failed to upload file: %s", result.Error.Message)
	}
	if result.PublicID == "" {
		return nil, errors.New("failed to upload file: no public ID returned")
	}
	return &StoredFile{PublicID: result.PublicID, URL: result.SecureURL}, nil
}

func (s *CloudinaryStorage) Delete(ctx context.Context, publicID string) error {
	result, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	if result.Error.Message != "" {
		return fmt.Errorf("failed to delete file: %s", result.Error.Message)
	}
	return nil
}

// Disabled rejects every call. Used when Cloudinary credentials are absent.
type Disabled struct{}

func (Disabled) Upload(context.Context, io.Reader, string) (*StoredFile, error) { return nil, ErrDisabled }
func (Disabled) Delete(context.Context, string) error                          { return ErrDisabled }
