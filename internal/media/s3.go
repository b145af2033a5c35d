package media

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/magabrotheeeer/character-matters/internal/config"
)

// S3Store хранит файлы в бакете S3 или совместимом хранилище.
type S3Store struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

// NewS3Store создаёт клиент S3 по статическим ключам из конфига.
func NewS3Store(ctx context.Context, cfg config.S3) (*S3Store, error) {
	const op = "media.NewS3Store"

	if !cfg.Enabled() {
		return nil, fmt.Errorf("%s: bucket and credentials must be set", op)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: load aws config: %w", op, err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3Store{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: objectBaseURL(cfg),
	}, nil
}

func objectBaseURL(cfg config.S3) string {
	if cfg.Endpoint != "" {
		return strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
}

// Put загружает объект в бакет.
func (s *S3Store) Put(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	const op = "media.S3Store.Put"

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return s.publicURL + "/" + key, nil
}

// NewStore выбирает S3, если оно настроено, иначе локальный диск.
func NewStore(ctx context.Context, cfg config.Media) (Store, error) {
	if cfg.S3.Enabled() {
		return NewS3Store(ctx, cfg.S3)
	}
	return NewDiskStore(cfg.UploadDir, cfg.PublicBaseURL)
}
