// Package photos resolves car photo object keys to short-lived URLs in an
// S3-compatible bucket (Cloudflare R2 in production).
package photos

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/garyellow/rentcar-bot/internal/config"
	domerrors "github.com/garyellow/rentcar-bot/internal/errors"
)

// ErrNotFound is returned when a photo does not exist or photos are disabled.
var ErrNotFound = fmt.Errorf("photos: object not found: %w", domerrors.ErrNotFound)

// Resolver turns an object key into a URL the chat transport can fetch.
type Resolver interface {
	URL(ctx context.Context, key string) (string, error)
}

// Config holds bucket settings.
type Config struct {
	Endpoint    string // e.g. https://<account>.r2.cloudflarestorage.com
	Region      string
	AccessKeyID string
	SecretKey   string
	Bucket      string
	URLExpiry   time.Duration
}

type cachedURL struct {
	url     string
	expires time.Time
}

// Store presigns GET URLs for existing objects and caches them for half
// their lifetime.
type Store struct {
	s3      *s3.Client
	presign *s3.PresignClient
	bucket  string
	expiry  time.Duration
	now     func() time.Time

	mu    sync.Mutex
	cache map[string]cachedURL
}

// New creates a store from static credentials.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.AccessKeyID == "" || cfg.SecretKey == "" || cfg.Bucket == "" {
		return nil, errors.New("photos: access key, secret and bucket are required")
	}
	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, "")),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("photos: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	})
	return newStore(client, cfg.Bucket, cfg.URLExpiry), nil
}

func newStore(client *s3.Client, bucket string, expiry time.Duration) *Store {
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &Store{
		s3:      client,
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
		expiry:  expiry,
		now:     time.Now,
		cache:   make(map[string]cachedURL),
	}
}

// URL returns a presigned GET URL for key. Missing objects yield ErrNotFound
// so callers can fall back to a text rendering.
func (s *Store) URL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrNotFound
	}
	now := s.now()

	s.mu.Lock()
	if c, ok := s.cache[key]; ok && now.Before(c.expires) {
		s.mu.Unlock()
		return c.url, nil
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, config.PhotoLookup)
	defer cancel()

	if _, err := s.s3.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		if isNotFound(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("photos: head %q: %w", key, err)
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", fmt.Errorf("photos: presign %q: %w", key, err)
	}

	s.mu.Lock()
	s.cache[key] = cachedURL{url: req.URL, expires: now.Add(s.expiry / 2)}
	s.mu.Unlock()
	return req.URL, nil
}

// Disabled is the Resolver used when no bucket is configured.
type Disabled struct{}

func (Disabled) URL(context.Context, string) (string, error) {
	return "", ErrNotFound
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "404":
			return true
		}
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 404 {
		return true
	}
	return false
}
