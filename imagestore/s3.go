// Package imagestore keeps profile pictures in an S3 compatible bucket.
package imagestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/gabriel-vasile/mimetype"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const keyCharset = "abcdefghijklmnopqrstuvwxyz0123456789"

// API is the subset of the S3 client used by S3Store.
type API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// Options configures an S3Store.
type Options struct {
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string

	// Endpoint overrides the AWS endpoint, e.g. for R2 or MinIO.
	Endpoint     string
	UsePathStyle bool

	// PublicBaseURL prefixes object keys to build the URL stored on the user.
	PublicBaseURL string
	KeyPrefix     string
}

// S3Store implements goAccount.ImageStore.
type S3Store struct {
	client  API
	bucket  *string
	baseURL string
	prefix  string
}

var _ goAccount.ImageStore = (*S3Store)(nil)

// New builds an S3 client from opts and checks that the bucket exists.
func New(ctx context.Context, opts Options) (*S3Store, error) {
	if opts.Bucket == "" {
		return nil, errors.New("imagestore: bucket is required")
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKeyID,
			opts.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Region != "" {
			o.Region = opts.Region
		}
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.UsePathStyle
	})

	_, err = client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(opts.Bucket),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound" {
			return nil, fmt.Errorf("bucket '%s' does not exist", opts.Bucket)
		}
		return nil, fmt.Errorf("failed to check if bucket exists, %w", err)
	}

	return NewWithClient(client, opts), nil
}

// NewWithClient wraps an existing client without contacting the bucket.
func NewWithClient(client API, opts Options) *S3Store {
	base := strings.TrimRight(opts.PublicBaseURL, "/")
	if base == "" {
		base = fmt.Sprintf("https://%s.s3.amazonaws.com", opts.Bucket)
	}
	return &S3Store{
		client:  client,
		bucket:  aws.String(opts.Bucket),
		baseURL: base,
		prefix:  strings.Trim(opts.KeyPrefix, "/"),
	}
}

// Upload stores data under a fresh random key. The original file name is only
// kept as object metadata.
func (s *S3Store) Upload(ctx context.Context, name, contentType string, data []byte) (goAccount.Image, error) {
	mt := mimetype.Detect(data)
	if contentType == "" {
		contentType = mt.String()
	}

	id, err := gonanoid.Generate(keyCharset, 20)
	if err != nil {
		return goAccount.Image{}, err
	}
	key := id + mt.Extension()
	if s.prefix != "" {
		key = s.prefix + "/" + key
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        s.bucket,
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
		Metadata:      map[string]string{"original-name": sanitizeName(name)},
	})
	if err != nil {
		return goAccount.Image{}, fmt.Errorf("failed to upload image: %w", err)
	}

	return goAccount.Image{
		URL:       s.baseURL + "/" + key,
		StorageID: key,
	}, nil
}

// Delete removes the object. A missing object is not an error.
func (s *S3Store) Delete(ctx context.Context, storageID string) error {
	if storageID == "" {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: s.bucket,
		Key:    aws.String(storageID),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NoSuchKey" || apiErr.ErrorCode() == "NotFound") {
			return nil
		}
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

// sanitizeName keeps metadata values within printable ASCII.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r >= 0x20 && r < 0x7f {
			b.WriteRune(r)
		}
	}
	if b.Len() > 128 {
		return b.String()[:128]
	}
	return b.String()
}
