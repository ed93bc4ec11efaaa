// Package s3 stores blobs in an S3-compatible bucket.
//
// It works with AWS S3, MinIO, LocalStack, Cloudflare R2 and other
// services that speak the S3 API. Objects are write-once: Put sends
// If-None-Match so a second write to a key fails with
// filereader.ErrPathExists instead of replacing the object.
//
// A blob over an object is built with filereader.NewStoreBlob. Its size and
// type come from HeadObject, and each read streams a fresh GetObject whose
// metadata is checked against the blob.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/justapithecus/filereader/filereader"
)

// maxPutSize is the largest object a single PutObject accepts.
const maxPutSize = 5 << 30

// unsetContentType is what S3 reports for objects written without a type.
const unsetContentType = "binary/octet-stream"

// API is the part of *s3.Client the store calls.
type API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Config selects where in S3 the store keeps its objects.
type Config struct {
	// Bucket is the S3 bucket name. Required.
	Bucket string

	// Prefix, if set, is prepended to every key as a directory.
	Prefix string
}

// Store is a filereader.Store over one bucket and key prefix.
type Store struct {
	client API
	bucket string
	prefix string

	// spool holds non-seekable Put bodies so they can be sized and retried.
	spool func() (*os.File, error)
}

var _ filereader.Store = (*Store)(nil)

// New returns a Store that reads and writes through client.
//
//	client, err := s3store.NewClient(ctx, s3store.LocalStackConfig())
//	store, err := s3store.New(client, s3store.Config{Bucket: "uploads"})
//	blob, err := filereader.NewStoreBlob(ctx, store, "avatars/42.png")
func New(client API, cfg Config) (*Store, error) {
	if client == nil {
		return nil, errors.New("s3: client is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}
	prefix, err := filereader.CleanPrefix(cfg.Prefix)
	if err != nil {
		return nil, fmt.Errorf("s3: prefix %q: %w", cfg.Prefix, err)
	}
	if prefix != "" {
		prefix += "/"
	}
	return &Store{
		client: client,
		bucket: cfg.Bucket,
		prefix: prefix,
		spool:  func() (*os.File, error) { return os.CreateTemp("", "filereader-s3-*") },
	}, nil
}

func (s *Store) key(p string) (string, error) {
	name, err := filereader.CleanPath(p)
	if err != nil {
		return "", err
	}
	return s.prefix + name, nil
}

// Put uploads r to path with contentType. Seekable readers are sent as-is;
// anything else is spooled to a temp file first. Uploads over 5GB are
// rejected.
func (s *Store) Put(ctx context.Context, path string, r io.Reader, contentType string) error {
	key, err := s.key(path)
	if err != nil {
		return err
	}

	body, size, release, err := s.seekable(r)
	if err != nil {
		return err
	}
	defer release()
	if size > maxPutSize {
		return fmt.Errorf("s3: %s is %d bytes, over the %d byte put limit", path, size, int64(maxPutSize))
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		IfNoneMatch:   aws.String("*"),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	_, err = s.client.PutObject(ctx, input)
	switch {
	case err == nil:
		return nil
	case hasCode(err, "PreconditionFailed", "412"):
		return filereader.ErrPathExists
	default:
		return fmt.Errorf("s3: put %s: %w", path, err)
	}
}

// seekable returns r as a sized ReadSeeker positioned where r was.
func (s *Store) seekable(r io.Reader) (io.ReadSeeker, int64, func(), error) {
	if rs, ok := r.(io.ReadSeeker); ok {
		start, err := rs.Seek(0, io.SeekCurrent)
		if err == nil {
			var end int64
			if end, err = rs.Seek(0, io.SeekEnd); err == nil {
				_, err = rs.Seek(start, io.SeekStart)
			}
			if err == nil {
				return rs, end - start, func() {}, nil
			}
		}
	}

	f, err := s.spool()
	if err != nil {
		return nil, 0, nil, fmt.Errorf("s3: spool: %w", err)
	}
	release := func() {
		_ = f.Close()
		_ = os.Remove(f.Name())
	}
	size, err := io.Copy(f, r)
	if err == nil {
		_, err = f.Seek(0, io.SeekStart)
	}
	if err != nil {
		release()
		return nil, 0, nil, fmt.Errorf("s3: spool: %w", err)
	}
	return f, size, release, nil
}

// Get streams the object at path with the metadata S3 returned for it.
func (s *Store) Get(ctx context.Context, path string) (io.ReadCloser, filereader.ObjectInfo, error) {
	key, err := s.key(path)
	if err != nil {
		return nil, filereader.ObjectInfo{}, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, filereader.ObjectInfo{}, mapErr("get", path, err)
	}
	return out.Body, objectInfo(out.ContentLength, out.ContentType, out.LastModified), nil
}

// Stat describes the object at path using HeadObject.
func (s *Store) Stat(ctx context.Context, path string) (filereader.ObjectInfo, error) {
	key, err := s.key(path)
	if err != nil {
		return filereader.ObjectInfo{}, err
	}
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return filereader.ObjectInfo{}, mapErr("head", path, err)
	}
	return objectInfo(out.ContentLength, out.ContentType, out.LastModified), nil
}

// List returns the paths under prefix, following continuation tokens.
// Like the other stores it matches whole path elements.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	dir, err := filereader.CleanPrefix(prefix)
	if err != nil {
		return nil, err
	}
	full := s.prefix
	if dir != "" {
		full += dir + "/"
	}

	var paths []string
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(full),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3: list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			paths = append(paths, strings.TrimPrefix(aws.ToString(obj.Key), s.prefix))
		}
	}
	return paths, nil
}

// objectInfo builds ObjectInfo from S3 response headers. S3's placeholder
// type for untyped objects is reported as no type.
func objectInfo(length *int64, contentType *string, modTime *time.Time) filereader.ObjectInfo {
	typ := aws.ToString(contentType)
	if typ == unsetContentType {
		typ = ""
	}
	return filereader.ObjectInfo{
		Size:        aws.ToInt64(length),
		ContentType: typ,
		ModTime:     aws.ToTime(modTime),
	}
}

// mapErr turns S3 not-found responses into filereader.ErrNotFound.
func mapErr(op, path string, err error) error {
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noKey) || errors.As(err, &notFound) || hasCode(err, "NoSuchKey", "NotFound", "404") {
		return filereader.ErrNotFound
	}
	return fmt.Errorf("s3: %s %s: %w", op, path, err)
}

// hasCode reports whether err is an API error with one of codes.
func hasCode(err error, codes ...string) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	code := apiErr.ErrorCode()
	for _, c := range codes {
		if code == c {
			return true
		}
	}
	return false
}
