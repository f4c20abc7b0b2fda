package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Options describes an S3-compatible endpoint.
type S3Options struct {
	URL    string
	Region string
	Key    string
	Secret string
}

// ObjectPutter is the part of *s3.Client the archive needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewS3Client creates a path-style client for an S3-compatible endpoint.
// An empty URL falls back to the AWS default endpoint resolution.
func NewS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.Key != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.Key, opts.Secret, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.URL != "" {
			o.BaseEndpoint = aws.String(opts.URL)
			o.UsePathStyle = true
		}
	}), nil
}

// SnapshotArchive uploads raw fetched pages to a bucket.
type SnapshotArchive struct {
	Client  ObjectPutter
	Bucket  string
	BaseURL string
	Now     func() time.Time
}

// NewSnapshotArchive creates an archive writing to bucket.
func NewSnapshotArchive(client ObjectPutter, bucket, baseURL string) *SnapshotArchive {
	return &SnapshotArchive{Client: client, Bucket: bucket, BaseURL: baseURL, Now: time.Now}
}

// SnapshotKey returns the object key for a page fetched at t.
func SnapshotKey(t time.Time) string {
	return "snapshots/" + t.UTC().Format("2006-01-02T15-04-05.000Z") + ".html"
}

// Store uploads body and returns a link to the stored object.
func (a *SnapshotArchive) Store(ctx context.Context, body []byte) (string, error) {
	key := SnapshotKey(a.Now())
	_, err := a.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("text/html; charset=utf-8"),
	})
	if err != nil {
		return "", fmt.Errorf("upload snapshot %s: %w", key, err)
	}
	if a.BaseURL == "" {
		return fmt.Sprintf("s3://%s/%s", a.Bucket, key), nil
	}
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(a.BaseURL, "/"), a.Bucket, key), nil
}
