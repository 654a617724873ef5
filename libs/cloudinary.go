package libs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"go.uber.org/zap"

	"storefront/config"
	"storefront/models"
)

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

type uploadAPI interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

// CloudinaryStore keeps product images on Cloudinary.
type CloudinaryStore struct {
	api     uploadAPI
	folder  string
	maxSize int64
	logger  *zap.Logger
	now     func() time.Time
}

// NewCloudinaryStore prefers CLOUDINARY_URL and falls back to the separate
// cloud name, key and secret.
func NewCloudinaryStore(cfg config.CloudinaryConfig, maxSize int64, logger *zap.Logger) (*CloudinaryStore, error) {
	var (
		cld *cloudinary.Cloudinary
		err error
	)
	switch {
	case cfg.URL != "":
		cld, err = cloudinary.NewFromURL(cfg.URL)
	case cfg.CloudName != "" && cfg.APIKey != "" && cfg.APISecret != "":
		cld, err = cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	default:
		return nil, errors.New("cloudinary credentials not configured")
	}
	if err != nil {
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}
	return newCloudinaryStore(&cld.Upload, cfg.Folder, maxSize, logger), nil
}

func newCloudinaryStore(api uploadAPI, folder string, maxSize int64, logger *zap.Logger) *CloudinaryStore {
	if folder == "" {
		folder = "products"
	}
	if maxSize <= 0 {
		maxSize = 5 * 1024 * 1024
	}
	return &CloudinaryStore{api: api, folder: folder, maxSize: maxSize, logger: logger.Named("cloudinary"), now: time.Now}
}

func (s *CloudinaryStore) Validate(filename string, size int64) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedImageExts[ext] {
		return errors.New("unsupported image format, use jpg, jpeg, png, gif or webp")
	}
	if size > s.maxSize {
		return fmt.Errorf("image too large (max %d bytes)", s.maxSize)
	}
	return nil
}

func (s *CloudinaryStore) Upload(ctx context.Context, img models.ImageUpload) (string, string, error) {
	base := strings.TrimSuffix(filepath.Base(img.Filename), filepath.Ext(img.Filename))
	publicID := fmt.Sprintf("%d_%s", s.now().UnixNano(), strings.ReplaceAll(base, " ", "_"))

	resp, err := s.api.Upload(ctx, img.File, uploader.UploadParams{
		PublicID:       publicID,
		Folder:         s.folder,
		ResourceType:   "image",
		Transformation: "q_auto,f_auto",
	})
	if err != nil {
		return "", "", fmt.Errorf("cloudinary upload: %w", err)
	}
	if resp == nil {
		return "", "", errors.New("cloudinary upload: empty response")
	}
	if resp.Error.Message != "" {
		return "", "", fmt.Errorf("cloudinary upload: %s", resp.Error.Message)
	}

	url := resp.SecureURL
	if url == "" {
		url = resp.URL
	}
	if url == "" {
		return "", "", errors.New("cloudinary upload: no url returned")
	}

	s.logger.Debug("image uploaded", zap.String("public_id", resp.PublicID))
	return url, resp.PublicID, nil
}

func (s *CloudinaryStore) Delete(ctx context.Context, publicID string) error {
	if publicID == "" {
		return nil
	}
	resp, err := s.api.Destroy(ctx, uploader.DestroyParams{PublicID: publicID, ResourceType: "image"})
	if err != nil {
		return fmt.Errorf("cloudinary delete: %w", err)
	}
	if resp != nil && resp.Result != "ok" && resp.Result != "not found" {
		return fmt.Errorf("cloudinary delete %s: %s", publicID, resp.Result)
	}
	return nil
}
