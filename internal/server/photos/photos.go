// Package photos issues presigned S3 URLs for candidate photos. Candidates
// store either an absolute URL, returned unchanged, or an object key that is
// presigned for reading on every view.
package photos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/ingenieros-gt/evote/internal/common"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// Store resolves photo references and hands out upload targets.
type Store interface {
	PresignUpload(ctx context.Context, candidateID int64) (key string, url string, err error)
	URL(ctx context.Context, ref string) (string, error)
}

// Config holds the S3-compatible backend settings.
type Config struct {
	User         string
	Password     string
	Bucket       string
	Region       string
	BaseEndpoint string
	URLValidity  time.Duration
}

// Enabled reports whether a bucket is configured.
func (c Config) Enabled() bool { return c.Bucket != "" }

type S3Store struct {
	cfg Config
	now func() time.Time
}

func NewS3Store(cfg Config) *S3Store {
	if cfg.URLValidity <= 0 {
		cfg.URLValidity = 15 * time.Minute
	}
	return &S3Store{cfg: cfg, now: time.Now}
}

// New returns an S3 store when a bucket is configured and a pass-through
// store otherwise.
func New(cfg Config) Store {
	if !cfg.Enabled() {
		return Passthrough{}
	}
	return NewS3Store(cfg)
}

// StorageKey builds a unique object key for a candidate photo.
func StorageKey(candidateID int64, d time.Time) string {
	return fmt.Sprintf("candidates/%d/%d/%d/%d/%v", candidateID, d.Year(), d.Month(), d.Day(), uuid.New())
}

// IsAbsolute reports whether ref is already a URL.
func IsAbsolute(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

func (s *S3Store) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.cfg.User,
			s.cfg.Password,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if s.cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(s.cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return newS3PresignClient(client), nil
}

func (s *S3Store) PresignUpload(ctx context.Context, candidateID int64) (string, string, error) {
	presignClient, err := s.getPresignClient(ctx)
	if err != nil {
		return "", "", err
	}

	bucket := s.cfg.Bucket
	key := StorageKey(candidateID, s.now())

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(s.cfg.URLValidity))
	if err != nil {
		return "", "", err
	}

	return key, req.URL, nil
}

func (s *S3Store) URL(ctx context.Context, ref string) (string, error) {
	if ref == "" || IsAbsolute(ref) {
		return ref, nil
	}

	presignClient, err := s.getPresignClient(ctx)
	if err != nil {
		return "", err
	}

	bucket := s.cfg.Bucket
	req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &ref,
	}, s3.WithPresignExpires(s.cfg.URLValidity))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}

// Passthrough is used when no bucket is configured: references are returned
// as stored and uploads are refused.
type Passthrough struct{}

func (Passthrough) PresignUpload(context.Context, int64) (string, string, error) {
	return "", "", common.NewError(common.ErrorBadRequest, "photo storage is not configured")
}

func (Passthrough) URL(_ context.Context, ref string) (string, error) {
	return ref, nil
}
