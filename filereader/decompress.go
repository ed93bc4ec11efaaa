package filereader

import (
	"compress/gzip"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// decompressor is a Decompressor described by its name, suffix and opener.
type decompressor struct {
	name string
	ext  string
	open func(io.Reader) (io.ReadCloser, error)
}

func (d *decompressor) Name() string      { return d.name }
func (d *decompressor) Extension() string { return d.ext }

func (d *decompressor) Decompress(r io.Reader) (io.ReadCloser, error) {
	return d.open(r)
}

var (
	gzipDecompressor = &decompressor{name: "gzip", ext: ".gz", open: openGzip}
	zstdDecompressor = &decompressor{name: "zstd", ext: ".zst", open: openZstd}
	identity         = &decompressor{name: "identity", open: openIdentity}

	decompressors = []*decompressor{gzipDecompressor, zstdDecompressor, identity}
)

// Gzip decodes gzip streams.
func Gzip() Decompressor { return gzipDecompressor }

// Zstd decodes zstd streams.
func Zstd() Decompressor { return zstdDecompressor }

// Identity passes content through unchanged.
func Identity() Decompressor { return identity }

// DecompressorForPath picks a Decompressor from the suffix of name.
// Unrecognized suffixes get Identity.
func DecompressorForPath(name string) Decompressor {
	ext := strings.ToLower(path.Ext(filepath.ToSlash(name)))
	for _, d := range decompressors {
		if d.ext != "" && d.ext == ext {
			return d
		}
	}
	return identity
}

// DecompressorForEncoding looks up a Decompressor by content-coding name,
// as carried in a Content-Encoding header. It reports false for codings it
// cannot decode.
func DecompressorForEncoding(coding string) (Decompressor, bool) {
	coding = strings.ToLower(strings.TrimSpace(coding))
	switch coding {
	case "", "identity":
		return identity, true
	case "x-gzip":
		return gzipDecompressor, true
	}
	for _, d := range decompressors {
		if d.name == coding {
			return d, true
		}
	}
	return nil, false
}

func openGzip(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

func openZstd(r io.Reader) (io.ReadCloser, error) {
	// One goroutine per stream: each blob read already runs on its own.
	dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1), zstd.WithDecoderLowmem(true))
	if err != nil {
		return nil, err
	}
	return dec.IOReadCloser(), nil
}

func openIdentity(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(r), nil
}
