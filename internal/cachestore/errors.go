package cachestore

import (
	"errors"
	"fmt"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
)

// SerializationError reports a payload that could not be encoded. Raised
// before any network call; retrying the same payload cannot succeed.
type SerializationError struct {
	Key string
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialize object %q: %v", e.Key, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// TransferError reports an upload or copy the store rejected. The whole
// operation may be retried.
type TransferError struct {
	Path string
	Err  error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer %q: %v", e.Path, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// FetchError reports a failed read. StatusCode is the store's HTTP status
// when the store refused the request; zero means the store answered but the
// body could not be read or decoded.
type FetchError struct {
	Path       string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %q: status %d: %v", e.Path, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %q: %v", e.Path, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DeleteError reports a rejected single or batch delete.
type DeleteError struct {
	Path string
	Err  error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("delete %q: %v", e.Path, e.Err)
}

func (e *DeleteError) Unwrap() error { return e.Err }

// MetadataError reports a failed metadata lookup, typically a missing
// object.
type MetadataError struct {
	Path string
	Err  error
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("metadata %q: %v", e.Path, e.Err)
}

func (e *MetadataError) Unwrap() error { return e.Err }

// statusCode pulls the HTTP status off an SDK error chain, 0 when absent.
func statusCode(err error) int {
	var re *awshttp.ResponseError
	if errors.As(err, &re) {
		return re.HTTPStatusCode()
	}
	return 0
}
