package cachestore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// fakeObject is one stored object in the fake store.
type fakeObject struct {
	data         []byte
	contentType  string
	metadata     map[string]string
	storageClass types.StorageClass
	lastModified time.Time
}

// fakeClient is an in-memory stand-in for the S3 API slice the store uses.
// Listing returns keys in sorted order, pageSize per page.
type fakeClient struct {
	objects  map[string]*fakeObject
	pageSize int

	headErr   error
	copyErr   error
	getErr    error
	putErr    error
	deleteErr error
	listErr   error

	// undeletable keys survive batch deletes and come back as per-key
	// errors in the response body, the way S3 reports them.
	undeletable map[string]bool

	putCalls       int
	copyCalls      int
	listCalls      int
	deleteCalls    int
	lastCopySource string
}

func newFakeClient() *fakeClient {
	return &fakeClient{objects: map[string]*fakeObject{}, pageSize: 1000}
}

func (f *fakeClient) put(key string, obj *fakeObject) {
	if obj.lastModified.IsZero() {
		obj.lastModified = time.Now()
	}
	f.objects[key] = obj
}

func (f *fakeClient) sortedKeys(prefix string) []string {
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func (f *fakeClient) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, httpStatusErr(http.StatusNotFound)
	}
	return &s3.HeadObjectOutput{
		StorageClass:  obj.storageClass,
		LastModified:  aws.Time(obj.lastModified),
		ContentType:   aws.String(obj.contentType),
		ContentLength: aws.Int64(int64(len(obj.data))),
		Metadata:      obj.metadata,
	}, nil
}

func (f *fakeClient) CopyObject(_ context.Context, in *s3.CopyObjectInput, _ ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
	f.copyCalls++
	f.lastCopySource = aws.ToString(in.CopySource)
	if f.copyErr != nil {
		return nil, f.copyErr
	}
	src, err := url.PathUnescape(f.lastCopySource)
	if err != nil {
		return nil, err
	}
	src = strings.TrimPrefix(src, aws.ToString(in.Bucket)+"/")
	obj, ok := f.objects[src]
	if !ok {
		return nil, httpStatusErr(http.StatusNotFound)
	}
	cp := *obj
	cp.storageClass = in.StorageClass
	cp.metadata = in.Metadata
	cp.lastModified = time.Now()
	f.objects[aws.ToString(in.Key)] = &cp
	return &s3.CopyObjectOutput{}, nil
}

func (f *fakeClient) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, httpStatusErr(http.StatusNotFound)
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(obj.data)),
		ContentType:   aws.String(obj.contentType),
		ContentLength: aws.Int64(int64(len(obj.data))),
	}, nil
}

func (f *fakeClient) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.putCalls++
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.put(aws.ToString(in.Key), &fakeObject{
		data:        data,
		contentType: aws.ToString(in.ContentType),
		metadata:    in.Metadata,
	})
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeClient) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deleteCalls++
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeClient) DeleteObjects(_ context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	f.deleteCalls++
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	out := &s3.DeleteObjectsOutput{}
	for _, id := range in.Delete.Objects {
		key := aws.ToString(id.Key)
		if f.undeletable[key] {
			out.Errors = append(out.Errors, types.Error{
				Key:     id.Key,
				Code:    aws.String("AccessDenied"),
				Message: aws.String("Access Denied"),
			})
			continue
		}
		delete(f.objects, key)
	}
	return out, nil
}

func (f *fakeClient) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	keys := f.sortedKeys(aws.ToString(in.Prefix))
	start := 0
	if in.ContinuationToken != nil {
		start = sort.SearchStrings(keys, aws.ToString(in.ContinuationToken))
	}
	end := start + f.pageSize
	truncated := end < len(keys)
	if !truncated {
		end = len(keys)
	}
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(truncated)}
	for _, k := range keys[start:end] {
		obj := f.objects[k]
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(k),
			Size:         aws.Int64(int64(len(obj.data))),
			LastModified: aws.Time(obj.lastModified),
			StorageClass: types.ObjectStorageClass(obj.storageClass),
		})
	}
	if truncated {
		out.NextContinuationToken = aws.String(keys[end])
	}
	return out, nil
}

// fakeUploader buffers the body and hands it to the fake client. Buffering
// is fine here; streaming behavior is the SDK manager's concern.
type fakeUploader struct {
	client *fakeClient
	err    error

	uploads int
}

func (u *fakeUploader) Upload(ctx context.Context, in *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	u.uploads++
	if u.err != nil {
		return nil, u.err
	}
	if _, err := u.client.PutObject(ctx, in); err != nil {
		return nil, err
	}
	return &manager.UploadOutput{}, nil
}

// httpStatusErr builds the transport error the SDK surfaces for an HTTP
// failure status.
func httpStatusErr(code int) error {
	return &awshttp.ResponseError{
		ResponseError: &smithyhttp.ResponseError{
			Response: &smithyhttp.Response{Response: &http.Response{StatusCode: code}},
			Err:      errors.New(http.StatusText(code)),
		},
	}
}
