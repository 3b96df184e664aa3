// Package media stores uploaded images in an S3-compatible bucket.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/prperemyshlev/media-identity/internal/config"
	"go.uber.org/zap"
)

// sniffLen is the number of bytes http.DetectContentType looks at
const sniffLen = 512

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store uploads local temp files to a bucket and removes them afterwards
type S3Store struct {
	client objectPutter
	cfg    config.MediaConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewS3Store creates a store backed by an S3 client. A non-empty Endpoint
// points the client at an S3-compatible server such as MinIO.
func NewS3Store(ctx context.Context, cfg config.MediaConfig, logger *zap.Logger) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return newStore(client, cfg, logger), nil
}

func newStore(client objectPutter, cfg config.MediaConfig, logger *zap.Logger) *S3Store {
	return &S3Store{
		client: client,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Store uploads the file at localPath and returns its public URL.
// The local file is removed whether or not the upload succeeds.
func (s *S3Store) Store(ctx context.Context, localPath string) (string, error) {
	defer s.Discard(localPath)

	if localPath == "" {
		return "", errors.New("no file to upload")
	}

	file, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat upload: %w", err)
	}

	contentType, err := detectContentType(file, localPath)
	if err != nil {
		return "", err
	}

	key := s.objectKey(localPath)

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(key),
		Body:          file,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(info.Size()),
	})
	if err != nil {
		s.logger.Error("media upload failed",
			zap.String("bucket", s.cfg.Bucket),
			zap.String("key", key),
			zap.Error(err),
		)
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	s.logger.Debug("media uploaded", zap.String("key", key), zap.Int64("size", info.Size()))

	return s.cfg.ObjectURL(key), nil
}

// Discard removes a local temp file; a missing file is not an error
func (s *S3Store) Discard(localPath string) {
	if localPath == "" {
		return
	}
	if err := os.Remove(localPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("failed to remove temp upload", zap.String("path", localPath), zap.Error(err))
	}
}

// objectKey returns uploads/YYYY/MM/DD/<uuid><ext>
func (s *S3Store) objectKey(localPath string) string {
	return fmt.Sprintf("uploads/%s/%s%s",
		s.now().UTC().Format("2006/01/02"),
		uuid.New().String(),
		strings.ToLower(filepath.Ext(localPath)),
	)
}

// detectContentType sniffs the leading bytes and rewinds the file.
// Unrecognized content falls back to the extension's registered type.
func detectContentType(file *os.File, name string) (string, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to rewind upload: %w", err)
	}

	contentType := http.DetectContentType(head[:n])
	if contentType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); byExt != "" {
			contentType = byExt
		}
	}

	return contentType, nil
}
