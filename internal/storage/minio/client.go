// Package minio implements the persistent cache tier on an S3-compatible
// object store. Every cached record is one object; expiry is kept in the
// object's user metadata and checked on read.
package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dtroode/dirsync/internal/model"
)

const (
	expiresAtMeta = "Expires-At"
	contentType   = "application/json"
)

// Internal adapter interface to enable mocking without a real MinIO server.
type minioAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

// Wrapper to adapt *minio.Client to minioAPI.
type minioClientWrapper struct{ c *minio.Client }

func (w minioClientWrapper) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	return w.c.BucketExists(ctx, bucketName)
}
func (w minioClientWrapper) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	return w.c.MakeBucket(ctx, bucketName, opts)
}
func (w minioClientWrapper) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return w.c.PutObject(ctx, bucketName, objectName, reader, objectSize, opts)
}
func (w minioClientWrapper) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	obj, err := w.c.GetObject(ctx, bucketName, objectName, opts)
	if err != nil {
		return nil, err
	}
	return obj, nil
}
func (w minioClientWrapper) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	return w.c.RemoveObject(ctx, bucketName, objectName, opts)
}
func (w minioClientWrapper) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	return w.c.StatObject(ctx, bucketName, objectName, opts)
}
func (w minioClientWrapper) ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	return w.c.ListObjects(ctx, bucketName, opts)
}

var _ model.KVStore = (*Client)(nil)

// Options holds connection parameters of the object store.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Prefix    string
}

type Client struct {
	api    minioAPI
	bucket string
	prefix string
	now    func() time.Time
}

// NewClient connects to the object store described by opts.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return NewClientWithAPI(ctx, minioClientWrapper{c: client}, opts.Bucket, opts.Prefix)
}

// NewClientWithAPI allows injecting a mockable API (used in tests).
func NewClientWithAPI(ctx context.Context, api minioAPI, bucket, prefix string) (*Client, error) {
	c := &Client{
		api:    api,
		bucket: bucket,
		prefix: prefix,
		now:    time.Now,
	}

	// Ensure bucket exists
	err := c.ensureBucketExists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	return c, nil
}

// ensureBucketExists creates the bucket if it doesn't exist
func (c *Client) ensureBucketExists(ctx context.Context) error {
	exists, err := c.api.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = c.api.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// Get reads an object. Missing and expired objects are misses; an expired
// object is removed on the way.
func (c *Client) Get(ctx context.Context, key string) ([]byte, bool, error) {
	info, err := c.api.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to stat object: %w", err)
	}

	if c.expired(info.UserMetadata) {
		_ = c.api.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{})
		return nil, false, nil
	}

	obj, err := c.api.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, false, fmt.Errorf("failed to get object: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read object: %w", err)
	}
	return data, true, nil
}

// Set uploads value. A non-positive ttl stores it without expiry.
func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	opts := minio.PutObjectOptions{ContentType: contentType}
	if ttl > 0 {
		opts.UserMetadata = map[string]string{
			expiresAtMeta: strconv.FormatInt(c.now().Add(ttl).Unix(), 10),
		}
	}

	_, err := c.api.PutObject(ctx, c.bucket, key, bytes.NewReader(value), int64(len(value)), opts)
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}
	return nil
}

// Delete deletes object from MinIO
func (c *Client) Delete(ctx context.Context, key string) error {
	err := c.api.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// Clear removes every object under the prefix.
func (c *Client) Clear(ctx context.Context) error {
	objects := c.api.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{Prefix: c.prefix, Recursive: true})
	for obj := range objects {
		if obj.Err != nil {
			return fmt.Errorf("failed to list objects: %w", obj.Err)
		}
		if err := c.api.RemoveObject(ctx, c.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("failed to delete object %s: %w", obj.Key, err)
		}
	}
	return nil
}

func (c *Client) expired(meta map[string]string) bool {
	for k, v := range meta {
		if !strings.EqualFold(k, expiresAtMeta) && !strings.EqualFold(k, "X-Amz-Meta-"+expiresAtMeta) {
			continue
		}
		expiresAt, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return false
		}
		return c.now().Unix() >= expiresAt
	}
	return false
}

func isNotFound(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
