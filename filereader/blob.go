package filereader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// -----------------------------------------------------------------------------
// Byte Blob
// -----------------------------------------------------------------------------

// bytesBlob implements Blob over an in-memory byte slice.
type bytesBlob struct {
	data []byte
	typ  string
}

// NewBlob creates a Blob holding a copy of data.
//
// mimeType is normalized: it is lower-cased, and discarded if it contains
// characters outside printable ASCII.
func NewBlob(data []byte, mimeType string) Blob {
	return &bytesBlob{
		data: bytes.Clone(data),
		typ:  normalizeType(mimeType),
	}
}

func (b *bytesBlob) Size() int64  { return int64(len(b.data)) }
func (b *bytesBlob) Type() string { return b.typ }

func (b *bytesBlob) Open(context.Context) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b.data)), nil
}

// -----------------------------------------------------------------------------
// File Blob
// -----------------------------------------------------------------------------

// fileBlob implements File over a local file.
type fileBlob struct {
	path    string
	name    string
	size    int64
	modTime time.Time
	typ     string
}

// NewFile creates a File for the local file at path.
//
// Size and modification time are captured now. A later read fails with
// ErrNotReadable if either has changed or the file is gone.
func NewFile(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("filereader: %s is a directory: %w", path, ErrInvalidBlob)
	}
	return &fileBlob{
		path:    path,
		name:    filepath.Base(path),
		size:    info.Size(),
		modTime: info.ModTime(),
		typ:     TypeByExtension(path),
	}, nil
}

func (f *fileBlob) Size() int64             { return f.size }
func (f *fileBlob) Type() string            { return f.typ }
func (f *fileBlob) Name() string            { return f.name }
func (f *fileBlob) LastModified() time.Time { return f.modTime }

func (f *fileBlob) Open(context.Context) (io.ReadCloser, error) {
	file, err := os.Open(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s removed", ErrNotReadable, f.name)
		}
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		closer(file)()
		return nil, err
	}
	if info.Size() != f.size || !info.ModTime().Equal(f.modTime) {
		closer(file)()
		return nil, fmt.Errorf("%w: %s modified", ErrNotReadable, f.name)
	}
	return file, nil
}

// -----------------------------------------------------------------------------
// Store Blob
// -----------------------------------------------------------------------------

// storeBlob implements Blob over an object in a Store.
type storeBlob struct {
	store   Store
	path    string
	size    int64
	typ     string
	modTime time.Time
}

// NewStoreBlob creates a Blob for the object at path in store.
//
// Size and type come from Store.Stat; an object stored without a content
// type gets one from its extension. Returns ErrNotFound for missing objects.
// Reading the blob fails with ErrNotReadable if the object is gone or no
// longer matches what Stat reported.
func NewStoreBlob(ctx context.Context, store Store, path string) (Blob, error) {
	if store == nil {
		return nil, errors.New("filereader: store is required")
	}
	info, err := store.Stat(ctx, path)
	if err != nil {
		return nil, err
	}
	typ := info.ContentType
	if typ == "" {
		typ = TypeByExtension(path)
	}
	return &storeBlob{
		store:   store,
		path:    path,
		size:    info.Size,
		typ:     normalizeType(typ),
		modTime: info.ModTime,
	}, nil
}

func (s *storeBlob) Size() int64  { return s.size }
func (s *storeBlob) Type() string { return s.typ }

func (s *storeBlob) Open(ctx context.Context) (io.ReadCloser, error) {
	rc, info, err := s.store.Get(ctx, s.path)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: %s removed", ErrNotReadable, s.path)
	}
	if err != nil {
		return nil, err
	}
	if info.Size != s.size || (!s.modTime.IsZero() && !info.ModTime.Equal(s.modTime)) {
		closer(rc)()
		return nil, fmt.Errorf("%w: %s replaced", ErrNotReadable, s.path)
	}
	return rc, nil
}

// -----------------------------------------------------------------------------
// Decompressed Blob
// -----------------------------------------------------------------------------

// decompressedBlob implements Blob over the decompressed content of another blob.
type decompressedBlob struct {
	src  Blob
	d    Decompressor
	size int64
	typ  string
}

// NewDecompressedBlob creates a Blob whose content is src decoded with d.
//
// The decoded size is measured by decoding src once. The type is src's
// type, or derived from the name with d's extension removed when src is a
// File.
func NewDecompressedBlob(ctx context.Context, src Blob, d Decompressor) (Blob, error) {
	if !validBlob(src) {
		return nil, fmt.Errorf("filereader: %w", ErrInvalidBlob)
	}
	if d == nil {
		return nil, errors.New("filereader: decompressor is required")
	}

	blob := &decompressedBlob{src: src, d: d, typ: src.Type()}
	if f, ok := src.(File); ok {
		blob.typ = TypeByExtension(strings.TrimSuffix(f.Name(), d.Extension()))
	}

	rc, err := blob.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("filereader: decompress %s: %w", d.Name(), err)
	}
	defer closer(rc)()
	n, err := io.Copy(io.Discard, rc)
	if err != nil {
		return nil, fmt.Errorf("filereader: decompress %s: %w", d.Name(), err)
	}
	blob.size = n
	return blob, nil
}

func (d *decompressedBlob) Size() int64  { return d.size }
func (d *decompressedBlob) Type() string { return d.typ }

func (d *decompressedBlob) Open(ctx context.Context) (io.ReadCloser, error) {
	raw, err := d.src.Open(ctx)
	if err != nil {
		return nil, err
	}
	dec, err := d.d.Decompress(raw)
	if err != nil {
		closer(raw)()
		return nil, err
	}
	return &stackedReadCloser{ReadCloser: dec, under: raw}, nil
}

// stackedReadCloser closes a decompressor and the stream beneath it.
type stackedReadCloser struct {
	io.ReadCloser
	under io.Closer
}

func (s *stackedReadCloser) Close() error {
	return errors.Join(s.ReadCloser.Close(), s.under.Close())
}

// -----------------------------------------------------------------------------
// MIME types
// -----------------------------------------------------------------------------

// TypeByExtension returns the MIME type registered for the extension of
// name, or "" when none is known.
func TypeByExtension(name string) string {
	ext := strings.ToLower(path.Ext(filepath.ToSlash(name)))
	if ext == "" {
		return ""
	}
	return normalizeType(mime.TypeByExtension(ext))
}

// normalizeType lower-cases a MIME type and drops it entirely if it holds
// characters outside U+0020..U+007E.
func normalizeType(t string) string {
	for i := 0; i < len(t); i++ {
		if t[i] < 0x20 || t[i] > 0x7E {
			return ""
		}
	}
	return strings.ToLower(t)
}
