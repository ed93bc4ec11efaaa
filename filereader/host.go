package filereader

import (
	"context"
	"fmt"
	"io"
	"math"
	"sync/atomic"
	"time"
)

// hostReader performs a single read of a single blob on its own goroutine and
// reports the outcome through exactly one of onLoad or onError.
//
// A hostReader is created per Read call and never reused.
type hostReader struct {
	cfg readConfig

	onLoad  func(*Result)
	onError func(*ReadError)

	busy atomic.Bool
}

func (h *hostReader) readAsArrayBuffer(ctx context.Context, blob Blob) bool {
	return h.start(ctx, blob, ModeArrayBuffer)
}

func (h *hostReader) readAsText(ctx context.Context, blob Blob) bool {
	return h.start(ctx, blob, ModeText)
}

func (h *hostReader) readAsBinaryString(ctx context.Context, blob Blob) bool {
	return h.start(ctx, blob, ModeBinaryString)
}

func (h *hostReader) readAsDataURL(ctx context.Context, blob Blob) bool {
	return h.start(ctx, blob, ModeDataURL)
}

// start launches the read. It reports false if a read was already started.
func (h *hostReader) start(ctx context.Context, blob Blob, mode Mode) bool {
	if !h.busy.CompareAndSwap(false, true) {
		return false
	}
	go h.run(ctx, blob, mode)
	return true
}

func (h *hostReader) run(ctx context.Context, blob Blob, mode Mode) {
	ev := Event{Started: time.Now()}

	fail := func(err error) {
		ev.Type = EventError
		ev.Finished = time.Now()
		h.onError(&ReadError{Mode: mode, Event: ev, Err: err})
	}

	// Every blob call below runs under this recover.
	defer func() {
		if v := recover(); v != nil {
			fail(fmt.Errorf("blob panicked: %v", v))
		}
	}()

	ev.Total = blob.Size()
	ev.LengthComputable = true

	data, err := readBlob(ctx, blob)
	ev.Loaded = int64(len(data))
	if err != nil {
		fail(err)
		return
	}

	res, err := decode(mode, data, blob.Type(), h.cfg)
	if err != nil {
		fail(err)
		return
	}

	ev.Type = EventLoad
	ev.Finished = time.Now()
	res.Event = ev
	h.onLoad(res)
}

// readBlob reads the whole blob and checks the byte count against Size.
func readBlob(ctx context.Context, blob Blob) ([]byte, error) {
	rc, err := blob.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer closer(rc)()

	size := blob.Size()
	limit := size
	if limit < math.MaxInt64 {
		limit++
	}

	data, err := io.ReadAll(io.LimitReader(rc, limit))
	if err != nil {
		return data, err
	}
	if int64(len(data)) != size {
		return data, fmt.Errorf("%w: read %d bytes, expected %d", ErrNotReadable, len(data), size)
	}
	return data, nil
}
