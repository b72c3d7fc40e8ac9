// Package cachestore adapts an S3-compatible object store for build-cache
// and job-result storage. Cache entries live under <segment>/caches/<key>,
// general objects under <segment>/<key>. The adapter is stateless: the store
// owns all object state and arbitrates between concurrent callers.
package cachestore

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
)

// Client is the slice of the S3 API the adapter consumes. *s3.Client
// satisfies it.
type Client interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	CopyObject(ctx context.Context, in *s3.CopyObjectInput, opts ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, opts ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Uploader performs streaming multipart uploads. *manager.Uploader
// satisfies it.
type Uploader interface {
	Upload(ctx context.Context, in *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Options fixes the adapter's bucket and key namespace. Immutable after New.
type Options struct {
	Bucket  string
	Segment string

	// Logger receives failure events the adapter cannot return, such as
	// stream errors seen after a download has been handed to the caller.
	// Defaults to the logrus standard logger.
	Logger logrus.FieldLogger
}

// Store is the cache-storage adapter. Safe for concurrent use; it holds no
// mutable state beyond its configuration.
type Store struct {
	client   Client
	uploader Uploader
	log      logrus.FieldLogger
	bucket   string
	segment  string
}

// New returns a Store bound to the given client and uploader.
func New(client Client, uploader Uploader, opts Options) *Store {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Store{
		client:   client,
		uploader: uploader,
		log:      log,
		bucket:   opts.Bucket,
		segment:  opts.Segment,
	}
}
