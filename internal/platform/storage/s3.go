package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	infrahttp "github.com/Nachitrix/Book-reader/internal/platform/http"
	"github.com/Nachitrix/Book-reader/internal/shared/apperr"
)

// s3API はS3Storeが使うS3クライアントの操作だけを切り出したインターフェースです。
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	CopyObject(ctx context.Context, in *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Store stores artifacts in an S3-compatible bucket (AWS S3, MinIO).
// Promoteはサーバーサイドコピーで最終キーを作成するため、最終キーにはコピー完了後の内容だけが現れます。
type S3Store struct {
	client s3API
	bucket string
}

var _ Store = (*S3Store)(nil)

// NewS3Store は静的クレデンシャルとエンドポイント設定からS3Storeを生成します。
func NewS3Store(ctx context.Context, cfg Config) (*S3Store, error) {
	if cfg.S3Bucket == "" {
		return nil, apperr.E(apperr.ErrConfiguration, "S3_BUCKET", "S3_BUCKET is required for the s3 storage driver")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithHTTPClient(infrahttp.NewHTTPClient(cfg.S3Timeout)),
	}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
		}
		o.UsePathStyle = cfg.S3UsePathStyle
	})

	return newS3Store(client, cfg.S3Bucket), nil
}

func newS3Store(client s3API, bucket string) *S3Store {
	return &S3Store{client: client, bucket: bucket}
}

// WriteTemp はアップロードをローカルの一時ファイルに退避してサイズを確定させてから、
// tmp/配下のキーとしてアップロードします。
func (s *S3Store) WriteTemp(ctx context.Context, r io.Reader) (string, int64, error) {
	spool, err := os.CreateTemp("", "bookreader-upload-*")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create spool file: %w", err)
	}
	defer func() {
		_ = spool.Close()
		_ = os.Remove(spool.Name())
	}()

	n, err := io.Copy(spool, r)
	if err != nil {
		return "", 0, fmt.Errorf("failed to spool upload: %w", err)
	}
	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		return "", 0, fmt.Errorf("failed to rewind spool file: %w", err)
	}

	key := tempPrefix + "/" + uuid.NewString()
	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          spool,
		ContentLength: aws.Int64(n),
	}); err != nil {
		return "", 0, fmt.Errorf("failed to put temp object: %w", err)
	}
	return key, n, nil
}

func (s *S3Store) Promote(ctx context.Context, tempKey, finalKey string) error {
	if _, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		CopySource: aws.String(s.bucket + "/" + tempKey),
		Key:        aws.String(finalKey),
	}); err != nil {
		return fmt.Errorf("failed to promote %s: %w", tempKey, err)
	}
	// 一時オブジェクトの削除失敗は致命的ではない
	if err := s.Delete(ctx, tempKey); err != nil {
		slog.Warn("failed to remove temp object", "key", tempKey, "error", err)
	}
	return nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		if isS3NotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	if _, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		if isS3NotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to head %s: %w", key, err)
	}
	return true, nil
}

func isS3NotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}
