package attachments

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"time"

	"bloomdesk/internal/constants"
	"bloomdesk/internal/models"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var (
	ErrTooManyFiles = fmt.Errorf("too many attachments, maximum is %d", constants.DefaultMaxAttachmentFiles)
	ErrFileTooLarge = fmt.Errorf("attachment exceeds the maximum size of %dMB", constants.DefaultMaxAttachmentSizeMB)
)

var whitespacePattern = regexp.MustCompile(`\s+`)

// Storage wraps the object store holding visitor-uploaded garden photos.
type Storage struct {
	client       *minio.Client
	bucket       string
	region       string
	maxFiles     int
	maxSizeBytes int64
}

// New creates an object storage client from config.
func New(cfg models.AttachmentsConfig) (*Storage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	maxFiles := cfg.MaxFiles
	if maxFiles <= 0 {
		maxFiles = constants.DefaultMaxAttachmentFiles
	}
	maxSizeMB := cfg.MaxSizeMB
	if maxSizeMB <= 0 {
		maxSizeMB = constants.DefaultMaxAttachmentSizeMB
	}

	return &Storage{
		client:       client,
		bucket:       cfg.Bucket,
		region:       cfg.Region,
		maxFiles:     maxFiles,
		maxSizeBytes: int64(maxSizeMB) * 1024 * 1024,
	}, nil
}

// EnsureBucket makes sure the photo bucket exists before use.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("make bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

// MaxFiles returns the per-submission attachment limit.
func (s *Storage) MaxFiles() int {
	return s.maxFiles
}

// CheckLimits validates attachment limits before any bytes move. The count
// limit applies to the whole submission, the size limit to a single file.
func (s *Storage) CheckLimits(fileCount int, sizeBytes int64) error {
	if fileCount > s.maxFiles {
		return ErrTooManyFiles
	}
	if sizeBytes > s.maxSizeBytes {
		return ErrFileTooLarge
	}
	return nil
}

// UploadPhoto stores one garden photo under the submitting customer's prefix
// and returns the object key.
func (s *Storage) UploadPhoto(ctx context.Context, customerID, fileName string, reader io.Reader, size int64, contentType string) (string, error) {
	if err := s.CheckLimits(1, size); err != nil {
		return "", err
	}

	objectKey := ObjectKey(customerID, fileName, time.Now())
	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := s.client.PutObject(ctx, s.bucket, objectKey, reader, size, opts); err != nil {
		return "", fmt.Errorf("upload photo: %w", err)
	}
	return objectKey, nil
}

// ObjectKey builds the storage key for an uploaded photo. Whitespace in file
// names is collapsed to underscores, matching what the site always did.
func ObjectKey(customerID, fileName string, now time.Time) string {
	safe := whitespacePattern.ReplaceAllString(fileName, "_")
	return fmt.Sprintf("%s/%d_%s", customerID, now.UnixMilli(), safe)
}
