package filereader

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
)

// -----------------------------------------------------------------------------
// Reader
// -----------------------------------------------------------------------------

// Reader dispatches blob reads and adapts their outcome to a Pending.
//
// A Reader holds configuration only. Reads share no mutable state, so any
// number of them may be in flight at once and they settle in whatever order
// their blobs deliver.
type Reader struct {
	logger *slog.Logger
	cfg    readConfig
}

var defaultReader = &Reader{logger: slog.New(slog.DiscardHandler)}

// NewReader creates a Reader with documented defaults.
//
// Defaults:
//   - Logger: discard
//   - Encoding: none (BOM, then the blob's charset, then UTF-8)
//   - Content sniffing: off
func NewReader(opts ...Option) (*Reader, error) {
	cfg := &readerConfig{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyReader(cfg); err != nil {
			return nil, fmt.Errorf("filereader: %w", err)
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Reader{
		logger: logger,
		cfg: readConfig{
			encoding: cfg.encoding,
			sniff:    cfg.sniff,
		},
	}, nil
}

// Read reads blob in the mode named by selector and returns immediately.
//
// The selector is resolved with ResolveMode. The blob is checked before the
// selector, and both are checked before any I/O: a bad blob settles the
// Pending with ErrInvalidBlob, a bad selector with ErrInvalidReadMode.
// Failures raised by the blob during the read settle it with a *ReadError.
//
// ctx is passed to the blob's Open with its cancellation removed. Once
// dispatched, a read runs to completion; use Pending.Wait with a deadline to
// stop waiting for it.
func (r *Reader) Read(ctx context.Context, blob Blob, selector any, opts ...Option) *Pending {
	if ctx == nil {
		ctx = context.Background()
	}
	log := r.logger

	if !validBlob(blob) {
		log.DebugContext(ctx, "read rejected", "reason", "invalid blob")
		return rejected(fmt.Errorf("filereader: %w", ErrInvalidBlob))
	}

	mode, err := ResolveMode(selector)
	if err != nil {
		log.DebugContext(ctx, "read rejected", "reason", "invalid read mode", "selector", selector)
		return rejected(fmt.Errorf("filereader: %w", err))
	}

	cfg := r.cfg
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyRead(&cfg); err != nil {
			log.DebugContext(ctx, "read rejected", "reason", "invalid option", "error", err)
			return rejected(fmt.Errorf("filereader: %w", err))
		}
	}

	p := newPending()
	host := &hostReader{cfg: cfg}
	host.onLoad = func(res *Result) {
		if !p.resolve(res) {
			log.DebugContext(ctx, "duplicate settlement ignored", "mode", mode, "event", EventLoad)
			return
		}
		log.DebugContext(ctx, "read loaded",
			"mode", mode,
			"bytes", res.Event.Loaded,
			"duration", res.Event.Duration(),
		)
	}
	host.onError = func(readErr *ReadError) {
		if !p.reject(readErr) {
			log.DebugContext(ctx, "duplicate settlement ignored", "mode", mode, "event", EventError)
			return
		}
		log.WarnContext(ctx, "read failed",
			"mode", mode,
			"bytes", readErr.Event.Loaded,
			"error", readErr.Err,
		)
	}

	log.DebugContext(ctx, "read dispatched", "mode", mode)

	dispatchCtx := context.WithoutCancel(ctx)
	switch mode {
	case ModeArrayBuffer:
		host.readAsArrayBuffer(dispatchCtx, blob)
	case ModeText:
		host.readAsText(dispatchCtx, blob)
	case ModeBinaryString:
		host.readAsBinaryString(dispatchCtx, blob)
	case ModeDataURL:
		host.readAsDataURL(dispatchCtx, blob)
	}
	return p
}

// ReadAsArrayBuffer reads blob as raw bytes.
func (r *Reader) ReadAsArrayBuffer(ctx context.Context, blob Blob, opts ...Option) *Pending {
	return r.Read(ctx, blob, ModeArrayBuffer, opts...)
}

// ReadAsText reads blob as decoded text.
func (r *Reader) ReadAsText(ctx context.Context, blob Blob, opts ...Option) *Pending {
	return r.Read(ctx, blob, ModeText, opts...)
}

// ReadAsBinaryString reads blob as a string of byte-valued code points.
func (r *Reader) ReadAsBinaryString(ctx context.Context, blob Blob, opts ...Option) *Pending {
	return r.Read(ctx, blob, ModeBinaryString, opts...)
}

// ReadAsDataURL reads blob as a base64 data URL.
func (r *Reader) ReadAsDataURL(ctx context.Context, blob Blob, opts ...Option) *Pending {
	return r.Read(ctx, blob, ModeDataURL, opts...)
}

// -----------------------------------------------------------------------------
// Package-level reads
// -----------------------------------------------------------------------------

// Read reads blob with a default Reader. See Reader.Read.
func Read(ctx context.Context, blob Blob, selector any, opts ...Option) *Pending {
	return defaultReader.Read(ctx, blob, selector, opts...)
}

// ReadAsArrayBuffer reads blob as raw bytes with a default Reader.
func ReadAsArrayBuffer(ctx context.Context, blob Blob, opts ...Option) *Pending {
	return defaultReader.Read(ctx, blob, ModeArrayBuffer, opts...)
}

// ReadAsText reads blob as decoded text with a default Reader.
func ReadAsText(ctx context.Context, blob Blob, opts ...Option) *Pending {
	return defaultReader.Read(ctx, blob, ModeText, opts...)
}

// ReadAsBinaryString reads blob as a binary string with a default Reader.
func ReadAsBinaryString(ctx context.Context, blob Blob, opts ...Option) *Pending {
	return defaultReader.Read(ctx, blob, ModeBinaryString, opts...)
}

// ReadAsDataURL reads blob as a data URL with a default Reader.
func ReadAsDataURL(ctx context.Context, blob Blob, opts ...Option) *Pending {
	return defaultReader.Read(ctx, blob, ModeDataURL, opts...)
}

// validBlob rejects nil blobs, typed nil pointers, and negative sizes.
func validBlob(blob Blob) (ok bool) {
	if blob == nil {
		return false
	}
	// A blob whose Size panics is not a usable blob.
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	switch v := reflect.ValueOf(blob); v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		if v.IsNil() {
			return false
		}
	}
	return blob.Size() >= 0
}
