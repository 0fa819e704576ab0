package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/dreamcanvas-ai/dreamcanvas-backend/internal/designs/domain"
)

// S3Store is the alternate object-store backend. Download URLs are plain
// virtual-hosted-style object URLs (the bucket is expected to allow
// public reads on the designs/ prefix), or publicBase + path when a CDN
// domain is configured.
type S3Store struct {
	client     *s3.Client
	bucket     string
	region     string
	publicBase string
}

func NewS3Store(client *s3.Client, bucket, region, publicBase string) *S3Store {
	return &S3Store{
		client:     client,
		bucket:     bucket,
		region:     region,
		publicBase: strings.TrimRight(publicBase, "/"),
	}
}

func (s *S3Store) Put(ctx context.Context, path string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(path),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return wrapS3Err("put object", err)
	}
	return nil
}

func (s *S3Store) DownloadURL(ctx context.Context, path string) (string, error) {
	if s.publicBase != "" {
		return s.publicBase + "/" + path, nil
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, path), nil
}

func (s *S3Store) Delete(ctx context.Context, path string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return wrapS3Err("delete object", err)
	}
	return nil
}

// PathFromURL strips the bucket host (or the configured public base) off a
// download URL, leaving the object key.
func (s *S3Store) PathFromURL(rawURL string) (string, error) {
	if s.publicBase != "" && strings.HasPrefix(rawURL, s.publicBase+"/") {
		return strings.TrimPrefix(rawURL, s.publicBase+"/"), nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse download url: %w", err)
	}

	path := strings.TrimPrefix(u.Path, "/")
	// Path-style URLs carry the bucket as the first path segment.
	if !strings.HasPrefix(u.Host, s.bucket+".") {
		path = strings.TrimPrefix(path, s.bucket+"/")
	}
	if path == "" {
		return "", fmt.Errorf("not an object url for bucket %s: %s", s.bucket, rawURL)
	}
	return path, nil
}

func (s *S3Store) ListPrefix(ctx context.Context, prefix string) ([]string, error) {
	var paths []string

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, wrapS3Err("list objects", err)
		}
		for _, obj := range page.Contents {
			paths = append(paths, aws.ToString(obj.Key))
		}
	}
	return paths, nil
}

func wrapS3Err(op string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return fmt.Errorf("%s: %v: %w", op, err, domain.ErrStorageUnauthorized)
		}
	}
	return fmt.Errorf("%s: %v: %w", op, err, domain.ErrStorage)
}
