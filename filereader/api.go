// Package filereader reads blobs in one of four modes and hands the outcome
// back as a deferred result.
//
// A read is validated up front (blob, mode, options) and then dispatched to a
// per-call host reader that runs on its own goroutine. The caller receives a
// *Pending immediately and may wait on it, poll it, or select on Done.
//
// Filereader focuses on the adaptation layer. It does not stream, report
// progress, retry, or cancel reads that are already in flight.
package filereader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// -----------------------------------------------------------------------------
// Blob interfaces
// -----------------------------------------------------------------------------

// Blob is an immutable source of binary or text data with a known size.
//
// The caller owns the blob. A read borrows it for the duration of that read
// only; the blob must outlive the read.
type Blob interface {
	// Size returns the number of bytes the blob holds.
	// A negative size marks the blob as unusable.
	Size() int64

	// Type returns the blob's MIME type, or "" when unknown.
	Type() string

	// Open returns a reader over the blob's bytes.
	Open(ctx context.Context) (io.ReadCloser, error)
}

// File is a Blob with a name and a modification time.
type File interface {
	Blob

	// Name returns the base name of the file.
	Name() string

	// LastModified returns the modification time observed when the File
	// was created.
	LastModified() time.Time
}

// -----------------------------------------------------------------------------
// Store interface
// -----------------------------------------------------------------------------

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	// Size is the object size in bytes.
	Size int64

	// ContentType is the MIME type recorded when the object was written,
	// or "" when none was.
	ContentType string

	// ModTime is the last modification time, when the backend reports one.
	ModTime time.Time
}

// Store is the object storage a store-backed blob reads from.
//
// Objects are write-once. Paths are relative and slash-separated, and may
// not escape the store (ErrInvalidPath). Missing objects report ErrNotFound.
type Store interface {
	// Put writes r to path and records contentType with it. An empty
	// contentType records none. Returns ErrPathExists if path is taken.
	Put(ctx context.Context, path string, r io.Reader, contentType string) error

	// Get opens the object at path along with the metadata of the object
	// actually opened.
	Get(ctx context.Context, path string) (io.ReadCloser, ObjectInfo, error)

	// Stat returns the metadata of the object at path.
	Stat(ctx context.Context, path string) (ObjectInfo, error)

	// List returns the paths under prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// -----------------------------------------------------------------------------
// Decompressor interface
// -----------------------------------------------------------------------------

// Decompressor undoes the content encoding of a stored blob.
type Decompressor interface {
	// Name identifies the encoding ("gzip", "zstd", "identity").
	Name() string

	// Extension is the file suffix the encoding is stored under, or "".
	Extension() string

	// Decompress wraps r with a decoding reader.
	Decompress(r io.Reader) (io.ReadCloser, error)
}

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

// Error sentinel values for common conditions.
var (
	// ErrInvalidBlob indicates the value passed as a blob cannot be read.
	ErrInvalidBlob = errInvalidBlob{}

	// ErrInvalidReadMode indicates a selector that resolves to no read mode.
	ErrInvalidReadMode = errInvalidReadMode{}

	// ErrNotReadable indicates the blob's content changed or vanished
	// between creation and read.
	ErrNotReadable = errNotReadable{}

	// ErrUnknownEncoding indicates a text encoding label with no decoder.
	ErrUnknownEncoding = errUnknownEncoding{}

	// ErrPending is returned by TryResult while a read is still in flight.
	ErrPending = errPending{}

	// ErrNotFound indicates a requested object does not exist.
	ErrNotFound = errNotFound{}

	// ErrPathExists indicates an attempt to write to an existing path.
	ErrPathExists = errPathExists{}
)

type errInvalidBlob struct{}

func (errInvalidBlob) Error() string { return "invalid blob provided" }

type errInvalidReadMode struct{}

func (errInvalidReadMode) Error() string { return "invalid read mode provided" }

type errNotReadable struct{}

func (errNotReadable) Error() string { return "blob not readable" }

type errUnknownEncoding struct{}

func (errUnknownEncoding) Error() string { return "unknown text encoding" }

type errPending struct{}

func (errPending) Error() string { return "read pending" }

type errNotFound struct{}

func (errNotFound) Error() string { return "not found" }

type errPathExists struct{}

func (errPathExists) Error() string { return "path exists" }

// ReadError reports a failure raised by the blob while it was being read.
//
// The blob's error is carried unchanged; errors.Is and errors.As see through
// ReadError to it.
type ReadError struct {
	// Mode is the mode the read was dispatched with.
	Mode Mode

	// Event describes the failed read.
	Event Event

	// Err is the error the blob reported.
	Err error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("filereader: read as %s: %v", e.Mode, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// FailureKind classifies the error a read settles with.
type FailureKind int

const (
	// KindNone is reported for a nil error.
	KindNone FailureKind = iota

	// KindInvalidBlob is a blob rejected before dispatch.
	KindInvalidBlob

	// KindInvalidReadMode is a selector rejected before dispatch.
	KindInvalidReadMode

	// KindInvalidOption is a per-read option rejected before dispatch.
	KindInvalidOption

	// KindPlatform is a failure reported by the blob during the read.
	KindPlatform
)

func (k FailureKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindInvalidBlob:
		return "invalid-blob"
	case KindInvalidReadMode:
		return "invalid-read-mode"
	case KindInvalidOption:
		return "invalid-option"
	case KindPlatform:
		return "platform"
	default:
		return fmt.Sprintf("FailureKind(%d)", int(k))
	}
}

// KindOf classifies an error returned from a read.
// Errors that did not come from a read are reported as KindPlatform.
func KindOf(err error) FailureKind {
	var readErr *ReadError
	switch {
	case err == nil:
		return KindNone
	case errors.As(err, &readErr):
		return KindPlatform
	case errors.Is(err, ErrInvalidBlob):
		return KindInvalidBlob
	case errors.Is(err, ErrInvalidReadMode):
		return KindInvalidReadMode
	case errors.Is(err, ErrOptionNotValidForRead), errors.Is(err, ErrUnknownEncoding):
		return KindInvalidOption
	default:
		return KindPlatform
	}
}
