package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/dputra/mailroom/internal/common"
)

// Seams for testing the AWS SDK wiring without a live endpoint.
var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	headObject = func(c *s3.Client, ctx context.Context, in *s3.HeadObjectInput) (*s3.HeadObjectOutput, error) {
		return c.HeadObject(ctx, in)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// S3Config carries the settings of the S3-compatible evidence bucket.
type S3Config struct {
	RootUser     string
	RootPassword string
	Bucket       string
	Region       string
	BaseEndpoint string
}

// S3Store implements Store against an S3-compatible backend.
type S3Store struct {
	cfg S3Config
}

// NewS3Store builds a store for the given bucket configuration.
func NewS3Store(cfg S3Config) *S3Store {
	return &S3Store{cfg: cfg}
}

func (s *S3Store) getClient(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.cfg.RootUser,     // MINIO_ROOT_USER
			s.cfg.RootPassword, // MINIO_ROOT_PASSWORD
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.cfg.BaseEndpoint)
		o.UsePathStyle = true
	})

	return client, nil
}

// Upload stores data under name, rejecting duplicate names. The existence
// probe and the write are two calls, so the caller must still guarantee
// unique naming; the probe only catches accidental reuse early.
func (s *S3Store) Upload(ctx context.Context, name string, data []byte, contentType string) error {
	client, err := s.getClient(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrorStorage, err)
	}

	bucket := s.cfg.Bucket

	_, err = headObject(client, ctx, &s3.HeadObjectInput{
		Bucket: &bucket,
		Key:    &name,
	})
	if err == nil {
		return common.ErrorAlreadyExists
	}
	var notFound *types.NotFound
	if !errors.As(err, &notFound) {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", common.ErrorTimeout, ctx.Err())
		}
		return fmt.Errorf("%w: head object: %w", common.ErrorStorage, err)
	}

	_, err = putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &name,
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
	})
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", common.ErrorTimeout, ctx.Err())
		}
		return fmt.Errorf("%w: put object: %w", common.ErrorStorage, err)
	}
	return nil
}

// SignedURL returns a presigned GET URL for the object.
func (s *S3Store) SignedURL(ctx context.Context, name string, ttl time.Duration) (string, error) {
	client, err := s.getClient(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrorStorage, err)
	}

	bucket := s.cfg.Bucket

	_, err = headObject(client, ctx, &s3.HeadObjectInput{
		Bucket: &bucket,
		Key:    &name,
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return "", common.ErrorNotFound
		}
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %w", common.ErrorTimeout, ctx.Err())
		}
		return "", fmt.Errorf("%w: head object: %w", common.ErrorStorage, err)
	}

	req, err := presignGetObject(newS3PresignClient(client), ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &name,
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("%w: presign: %w", common.ErrorStorage, err)
	}

	return req.URL, nil
}
