package cachestore

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// RefreshLastModified copies the cache entry for key onto itself so the
// store stamps a fresh last-modified time, extending its lifetime under
// age-based lifecycle rules without touching content. The storage class
// carries over; objects reporting none get STANDARD. A failed metadata
// lookup aborts before the copy is attempted.
func (s *Store) RefreshLastModified(ctx context.Context, key string) error {
	path := s.ResolveCachePath(key)
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return &MetadataError{Path: path, Err: err}
	}
	class := head.StorageClass
	if class == "" {
		class = types.StorageClassStandard
	}
	// An identity copy must replace something; refreshing the stored
	// timestamp satisfies that.
	_, err = s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:            aws.String(s.bucket),
		Key:               aws.String(path),
		CopySource:        aws.String(copySource(s.bucket, path)),
		StorageClass:      class,
		MetadataDirective: types.MetadataDirectiveReplace,
		Metadata:          map[string]string{storedMetaKey: time.Now().Format(time.RFC1123)},
	})
	if err != nil {
		return &TransferError{Path: path, Err: err}
	}
	return nil
}

// InvalidateCache deletes every object under the cache path for prefix. One
// listing page is deleted per cycle; the same prefix is then re-listed
// until the store reports nothing beyond the page just removed. A prefix
// matching no objects is a no-op success. Any failure aborts the loop, so
// partial progress is never reported as success. Objects created under the
// prefix while invalidation runs may or may not be deleted.
func (s *Store) InvalidateCache(ctx context.Context, prefix string) error {
	path := s.ResolveCachePath(prefix)
	for {
		page, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket: aws.String(s.bucket),
			Prefix: aws.String(path),
		})
		if err != nil {
			return &DeleteError{Path: path, Err: err}
		}
		if len(page.Contents) == 0 {
			return nil
		}
		ids := make([]types.ObjectIdentifier, 0, len(page.Contents))
		for _, obj := range page.Contents {
			ids = append(ids, types.ObjectIdentifier{Key: obj.Key})
		}
		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return &DeleteError{Path: path, Err: err}
		}
		// The batch call reports per-key failures in the body with a nil
		// top-level error. Treating those as success would leave objects
		// under the prefix, or spin forever on a truncated page.
		if len(out.Errors) > 0 {
			first := out.Errors[0]
			return &DeleteError{Path: path, Err: fmt.Errorf(
				"%d of %d keys failed, first %q: %s: %s",
				len(out.Errors), len(ids),
				aws.ToString(first.Key), aws.ToString(first.Code), aws.ToString(first.Message),
			)}
		}
		if page.IsTruncated == nil || !*page.IsTruncated {
			return nil
		}
	}
}

// copySource escapes each path segment of bucket/path. The SDK sends the
// copy source verbatim as a header, so keys with spaces or non-ASCII bytes
// must arrive pre-encoded.
func copySource(bucket, path string) string {
	segs := strings.Split(bucket+"/"+path, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return strings.Join(segs, "/")
}

// Entry describes one stored object in a listing.
type Entry struct {
	Key          string
	Size         int64
	LastModified time.Time
	StorageClass string
}

// List returns every object under prefix within the segment, following
// truncated pages via continuation tokens.
func (s *Store) List(ctx context.Context, prefix string) ([]Entry, error) {
	path := s.ResolveObjectPath(prefix)
	var entries []Entry
	var token *string
	for {
		page, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(path),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, &FetchError{Path: path, StatusCode: statusCode(err), Err: err}
		}
		for _, obj := range page.Contents {
			e := Entry{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				StorageClass: string(obj.StorageClass),
			}
			if obj.LastModified != nil {
				e.LastModified = *obj.LastModified
			}
			entries = append(entries, e)
		}
		if page.IsTruncated == nil || !*page.IsTruncated {
			return entries, nil
		}
		token = page.NextContinuationToken
	}
}
