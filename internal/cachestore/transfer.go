package cachestore

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
)

const (
	contentTypeStream = "application/octet-stream"
	contentTypeJSON   = "application/json"

	// storedMetaKey carries the human-readable upload timestamp on
	// objects written through UploadObject and RefreshLastModified.
	storedMetaKey = "stored"
)

// UploadStream pipes r into a multipart upload at the cache path for key.
// Parts are read from r only as fast as the store accepts them; the payload
// is never buffered whole. The object becomes visible only once the upload
// completes. The Expires stamp is advisory metadata, not enforced deletion.
func (s *Store) UploadStream(ctx context.Context, r io.Reader, key string) error {
	path := s.ResolveCachePath(key)
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(path),
		Body:        r,
		ContentType: aws.String(contentTypeStream),
		Expires:     aws.Time(time.Now()),
	})
	if err != nil {
		return &TransferError{Path: path, Err: err}
	}
	return nil
}

// UploadObject stores v as JSON at the object path for key. Encoding
// happens before any network call.
func (s *Store) UploadObject(ctx context.Context, v any, key string) error {
	data, err := json.Marshal(v)
	if err != nil {
		return &SerializationError{Key: key, Err: err}
	}
	path := s.ResolveObjectPath(key)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(path),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentTypeJSON),
		Metadata:    map[string]string{storedMetaKey: time.Now().Format(time.RFC1123)},
	})
	if err != nil {
		return &TransferError{Path: path, Err: err}
	}
	return nil
}

// DownloadStream opens a streaming read of the cache entry for key. A store
// refusal surfaces as *FetchError carrying the HTTP status; no stream is
// returned in that case. On success the caller owns the returned body and
// must close it. Read failures after hand-over come back from Read and are
// also logged, since the operation itself has already succeeded.
func (s *Store) DownloadStream(ctx context.Context, key string) (io.ReadCloser, error) {
	path := s.ResolveCachePath(key)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return nil, &FetchError{Path: path, StatusCode: statusCode(err), Err: err}
	}
	return &loggedBody{body: out.Body, path: path, log: s.log}, nil
}

// GetObject reads the object at key and decodes its JSON body into out.
// Store refusal yields *FetchError with the HTTP status; an unparseable
// body yields *FetchError without one.
func (s *Store) GetObject(ctx context.Context, key string, out any) error {
	path := s.ResolveObjectPath(key)
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return &FetchError{Path: path, StatusCode: statusCode(err), Err: err}
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &FetchError{Path: path, StatusCode: statusCode(err), Err: err}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &FetchError{Path: path, Err: err}
	}
	return nil
}

// DeleteObject removes the object at key.
func (s *Store) DeleteObject(ctx context.Context, key string) error {
	path := s.ResolveObjectPath(key)
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return &DeleteError{Path: path, Err: err}
	}
	return nil
}

// loggedBody wraps a download stream so errors seen after the download has
// resolved still reach the logger. The caller observes the same error from
// Read.
type loggedBody struct {
	body io.ReadCloser
	path string
	log  logrus.FieldLogger
}

func (b *loggedBody) Read(p []byte) (int, error) {
	n, err := b.body.Read(p)
	if err != nil && err != io.EOF {
		b.log.WithFields(logrus.Fields{"path": b.path}).WithError(err).Error("cache download stream failed")
	}
	return n, err
}

func (b *loggedBody) Close() error { return b.body.Close() }
