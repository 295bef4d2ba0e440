// Package s3 implements the object storage port on AWS S3 or any
// S3-compatible endpoint (MinIO in local stacks).
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"stocklib/internal/config"
	"stocklib/internal/observability"
	"stocklib/internal/storage"
)

// Client implements storage.ObjectStorage on S3.
type Client struct {
	api     *s3.Client
	bucket  string
	logger  observability.Logger
	metrics observability.Metrics
}

// New creates an S3 store and verifies the configured bucket is
// reachable, creating it when missing.
func New(cfg config.S3Config, logger observability.Logger, metrics observability.Metrics) (*Client, error) {
	awsCfg, err := buildAWSConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("build aws config: %w", err)
	}

	api := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// Path-style addressing keeps MinIO and other S3-compatible
		// endpoints working.
		o.UsePathStyle = true
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	c := &Client{
		api:     api,
		bucket:  cfg.Bucket,
		logger:  logger.WithFields(observability.Fields{"adapter": "s3", "bucket": cfg.Bucket}),
		metrics: metrics,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("verify bucket: %w", err)
	}
	return c, nil
}

// Put stores an object.
func (c *Client) Put(ctx context.Context, key string, reader io.Reader, metadata storage.ObjectMetadata) error {
	start := time.Now()
	c.metrics.StartOperation("storage_put")
	defer c.metrics.EndOperation("storage_put")

	var buf bytes.Buffer
	written, err := io.Copy(&buf, reader)
	if err != nil {
		c.metrics.RecordError("storage_put", "read")
		return fmt.Errorf("read content: %w", err)
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(buf.Bytes()),
	}
	if metadata.ContentType != "" {
		input.ContentType = aws.String(metadata.ContentType)
	}
	if len(metadata.UserMetadata) > 0 {
		input.Metadata = metadata.UserMetadata
	}

	if _, err := c.api.PutObject(ctx, input); err != nil {
		c.metrics.RecordError("storage_put", "s3")
		return fmt.Errorf("put object: %w", err)
	}

	c.logger.Info(ctx, "Object stored", observability.Fields{
		"key":         key,
		"bytes":       written,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	c.metrics.RecordSuccess("storage_put")
	c.metrics.RecordFileSize("archive", written)
	return nil
}

// Get retrieves an object.
func (c *Client) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	result, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			c.metrics.RecordError("storage_get", "not_found")
			return nil, storage.ErrObjectNotFound
		}
		c.metrics.RecordError("storage_get", "s3")
		return nil, fmt.Errorf("get object: %w", err)
	}
	c.metrics.RecordSuccess("storage_get")
	return result.Body, nil
}

// Delete removes an object.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		c.metrics.RecordError("storage_delete", "s3")
		return fmt.Errorf("delete object: %w", err)
	}
	c.metrics.RecordSuccess("storage_delete")
	return nil
}

// Exists reports whether an object is stored under key.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		c.metrics.RecordError("storage_exists", "s3")
		return false, fmt.Errorf("head object: %w", err)
	}
	return true, nil
}

// List returns stored objects whose keys start with prefix.
func (c *Client) List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	input := &s3.ListObjectsV2Input{Bucket: aws.String(c.bucket)}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	var objects []storage.ObjectInfo
	paginator := s3.NewListObjectsV2Paginator(c.api, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			c.metrics.RecordError("storage_list", "s3")
			return nil, fmt.Errorf("list objects: %w", err)
		}
		for _, obj := range page.Contents {
			objects = append(objects, storage.ObjectInfo{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}
	c.metrics.RecordSuccess("storage_list")
	return objects, nil
}

func (c *Client) ensureBucket(ctx context.Context) error {
	_, err := c.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)})
	if err == nil {
		return nil
	}

	var notFound *s3types.NotFound
	if !errors.As(err, &notFound) {
		return fmt.Errorf("head bucket: %w", err)
	}

	c.logger.Info(ctx, "Bucket missing, creating", nil)
	_, err = c.api.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(c.bucket)})
	if err != nil {
		var owned *s3types.BucketAlreadyOwnedByYou
		var exists *s3types.BucketAlreadyExists
		if errors.As(err, &owned) || errors.As(err, &exists) {
			return nil
		}
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

func buildAWSConfig(cfg config.S3Config) (aws.Config, error) {
	var optFns []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	return awsconfig.LoadDefaultConfig(context.Background(), optFns...)
}

func isNotFound(err error) bool {
	var noSuchKey *s3types.NoSuchKey
	var notFound *s3types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}
