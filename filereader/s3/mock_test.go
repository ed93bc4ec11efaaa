package s3

import (
	"bytes"
	"cmp"
	"context"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// -----------------------------------------------------------------------------
// Mock S3 Client
// -----------------------------------------------------------------------------

// mockObject is an object held by MockS3Client.
type mockObject struct {
	data        []byte
	contentType string
	modTime     time.Time
}

// MockS3Client is an in-memory API. Like S3, it types untyped objects as
// binary/octet-stream and answers HEAD misses with a bare NotFound.
type MockS3Client struct {
	mu      sync.Mutex
	objects map[string]mockObject

	PutObjectCalls  int
	GetObjectCalls  int
	HeadObjectCalls int
	ListCalls       int

	// PageSize limits keys per ListObjectsV2 page. Zero returns one page.
	PageSize int

	// GetObjectErr, when set, is returned by every GetObject call.
	GetObjectErr error
}

func NewMockS3Client() *MockS3Client {
	return &MockS3Client{objects: make(map[string]mockObject)}
}

// replace swaps the body of key in place, as a writer outside the store would.
func (m *MockS3Client) replace(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj := m.objects[key]
	obj.data = data
	obj.modTime = obj.modTime.Add(time.Second)
	m.objects[key] = obj
}

func (m *MockS3Client) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	key := aws.ToString(params.Key)
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.PutObjectCalls++

	if _, exists := m.objects[key]; exists && aws.ToString(params.IfNoneMatch) == "*" {
		return nil, &smithyAPIError{code: "PreconditionFailed", message: "object already exists"}
	}
	m.objects[key] = mockObject{
		data:        data,
		contentType: cmp.Or(aws.ToString(params.ContentType), unsetContentType),
		modTime:     time.Now().UTC().Truncate(time.Second),
	}
	return &s3.PutObjectOutput{}, nil
}

func (m *MockS3Client) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	m.GetObjectCalls++
	obj, exists := m.objects[aws.ToString(params.Key)]
	injected := m.GetObjectErr
	m.mu.Unlock()

	switch {
	case injected != nil:
		return nil, injected
	case !exists:
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(obj.data)),
		ContentLength: aws.Int64(int64(len(obj.data))),
		ContentType:   aws.String(obj.contentType),
		LastModified:  aws.Time(obj.modTime),
	}, nil
}

func (m *MockS3Client) HeadObject(_ context.Context, params *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	m.mu.Lock()
	m.HeadObjectCalls++
	obj, exists := m.objects[aws.ToString(params.Key)]
	m.mu.Unlock()

	if !exists {
		return nil, &smithyAPIError{code: "NotFound", message: "not found"}
	}
	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(obj.data))),
		ContentType:   aws.String(obj.contentType),
		LastModified:  aws.Time(obj.modTime),
	}, nil
}

// ListObjectsV2 uses the last key of a page as its continuation token.
func (m *MockS3Client) ListObjectsV2(_ context.Context, params *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	prefix := aws.ToString(params.Prefix)
	after := aws.ToString(params.ContinuationToken)

	m.mu.Lock()
	m.ListCalls++
	var keys []string
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) && key > after {
			keys = append(keys, key)
		}
	}
	pageSize := m.PageSize
	m.mu.Unlock()

	slices.Sort(keys)
	truncated := pageSize > 0 && len(keys) > pageSize
	if truncated {
		keys = keys[:pageSize]
	}

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(truncated)}
	for _, key := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(key)})
	}
	if truncated {
		out.NextContinuationToken = aws.String(keys[len(keys)-1])
	}
	return out, nil
}

// smithyAPIError is a bare API error carrying only a code.
type smithyAPIError struct {
	code    string
	message string
}

func (e *smithyAPIError) Error() string                 { return e.code + ": " + e.message }
func (e *smithyAPIError) ErrorCode() string             { return e.code }
func (e *smithyAPIError) ErrorMessage() string          { return e.message }
func (e *smithyAPIError) ErrorFault() smithy.ErrorFault { return smithy.FaultUnknown }
