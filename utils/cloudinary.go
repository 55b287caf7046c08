package utils

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/phillip/club-events-go/config"
)

const posterFolder = "event-posters"

var versionSegment = regexp.MustCompile(`^v\d+$`)

// MediaUploader stores event posters in Cloudinary.
type MediaUploader struct {
	cld *cloudinary.Cloudinary
}

func NewMediaUploader(cfg *config.Config) (*MediaUploader, error) {
	cld, err := cloudinary.NewFromParams(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary config error: %w", err)
	}
	return &MediaUploader{cld: cld}, nil
}

// UploadPoster returns the secure URL of the uploaded image.
func (m *MediaUploader) UploadPoster(ctx context.Context, file multipart.File) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	resp, err := m.cld.Upload.Upload(ctx, file, uploader.UploadParams{Folder: posterFolder})
	if err != nil {
		return "", fmt.Errorf("upload error: %w", err)
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("upload error: %s", resp.Error.Message)
	}
	return resp.SecureURL, nil
}

// DeletePoster removes an image previously returned by UploadPoster.
func (m *MediaUploader) DeletePoster(ctx context.Context, imageURL string) error {
	publicID, err := extractPublicID(imageURL)
	if err != nil {
		return fmt.Errorf("could not extract public ID: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := m.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID}); err != nil {
		return fmt.Errorf("delete error: %w", err)
	}
	return nil
}

// extractPublicID turns
// https://res.cloudinary.com/demo/image/upload/v1234567890/event-posters/abc123.jpg
// into event-posters/abc123.
func extractPublicID(imageURL string) (string, error) {
	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return "", err
	}

	parts := strings.Split(strings.Trim(parsedURL.Path, "/"), "/")
	idx := -1
	for i, p := range parts {
		if p == "upload" {
			idx = i
			break
		}
	}
	if idx < 0 || idx == len(parts)-1 {
		return "", fmt.Errorf("invalid cloudinary URL format")
	}

	rest := parts[idx+1:]
	if len(rest) > 1 && versionSegment.MatchString(rest[0]) {
		rest = rest[1:]
	}

	last := rest[len(rest)-1]
	rest[len(rest)-1] = strings.TrimSuffix(last, path.Ext(last))
	return path.Join(rest...), nil
}
