package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/matheus3301/apurimac/internal/backend"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// S3Options configures an S3-compatible bucket (AWS or MinIO).
type S3Options struct {
	Region     string
	Endpoint   string
	Bucket     string
	AccessKey  string
	SecretKey  string
	PresignTTL time.Duration
	MaxSize    int64
}

// S3Store keeps blobs in a bucket and resolves presigned GET addresses.
type S3Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	opts    S3Options
}

var _ backend.BlobStore = (*S3Store)(nil)

// NewS3Store builds the S3 client from static credentials.
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	if opts.Bucket == "" {
		return nil, errors.New("s3: bucket not configured")
	}
	if opts.PresignTTL <= 0 {
		opts.PresignTTL = 7 * 24 * time.Hour
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = 32 << 20
	}

	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(opts.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKey,
			opts.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Store{client: client, presign: s3.NewPresignClient(client), opts: opts}, nil
}

// Put uploads r. The body is buffered so the request is replayable and its
// content type can be sniffed; PutObject returns only after the object is
// committed.
func (s *S3Store) Put(ctx context.Context, key string, r io.Reader) error {
	if err := validKey(key); err != nil {
		return err
	}
	body, err := io.ReadAll(io.LimitReader(r, s.opts.MaxSize+1))
	if err != nil {
		return fmt.Errorf("read blob %q: %w", key, err)
	}
	if int64(len(body)) > s.opts.MaxSize {
		return fmt.Errorf("blob %q exceeds %d bytes", key, s.opts.MaxSize)
	}

	head := body
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.opts.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String(contentType(head)),
	})
	if err != nil {
		return fmt.Errorf("put object %q: %w", key, err)
	}
	return nil
}

// ResolveAddress presigns a GET for key.
func (s *S3Store) ResolveAddress(ctx context.Context, key string) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}
	req, err := presignGetObject(s.presign, ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.opts.PresignTTL))
	if err != nil {
		return "", fmt.Errorf("presign %q: %w", key, err)
	}
	return req.URL, nil
}
