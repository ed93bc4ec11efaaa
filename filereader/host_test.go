package filereader

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

// newTestHost returns a host reader whose outcomes are delivered on channels.
func newTestHost() (*hostReader, chan *Result, chan *ReadError) {
	loads := make(chan *Result, 2)
	errs := make(chan *ReadError, 2)
	h := &hostReader{
		onLoad:  func(r *Result) { loads <- r },
		onError: func(e *ReadError) { errs <- e },
	}
	return h, loads, errs
}

func TestHostReader_RefusesSecondRead(t *testing.T) {
	h, loads, _ := newTestHost()
	blob := NewBlob([]byte("once"), "")

	if !h.readAsText(t.Context(), blob) {
		t.Fatal("first read refused")
	}
	if h.readAsArrayBuffer(t.Context(), blob) {
		t.Error("second read on the same host reader was started")
	}

	select {
	case res := <-loads:
		if res.Mode != ModeText {
			t.Errorf("expected the first read to win, got %v", res.Mode)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("read did not complete")
	}
}

func TestHostReader_PanickingBlobReportsError(t *testing.T) {
	h, loads, errs := newTestHost()

	h.readAsDataURL(t.Context(), panicBlob{})

	select {
	case e := <-errs:
		if !strings.Contains(e.Err.Error(), "blob panicked") {
			t.Errorf("unexpected error: %v", e.Err)
		}
		if e.Event.Type != EventError {
			t.Errorf("expected error event, got %q", e.Event.Type)
		}
	case <-loads:
		t.Fatal("panicking blob reported success")
	case <-time.After(5 * time.Second):
		t.Fatal("read did not complete")
	}
}

type panicBlob struct{}

func (panicBlob) Size() int64  { return 1 }
func (panicBlob) Type() string { return "" }
func (panicBlob) Open(context.Context) (io.ReadCloser, error) {
	panic("device unplugged")
}

func TestHostReader_DoubleCallbackSettlesOnce(t *testing.T) {
	// A misbehaving host that fires both handlers must not settle twice.
	p := newPending()
	h := &hostReader{}
	h.onLoad = func(res *Result) { p.resolve(res) }
	h.onError = func(e *ReadError) { p.reject(e) }

	h.onLoad(&Result{Mode: ModeText, Text: "winner"})
	h.onError(&ReadError{Mode: ModeText, Err: errInjectedRead})

	res, err := p.Wait(t.Context())
	if err != nil {
		t.Fatalf("expected the load to win, got %v", err)
	}
	if res.Text != "winner" {
		t.Errorf("expected winner, got %q", res.Text)
	}
}

func TestReadBlob_DetectsShortAndLongContent(t *testing.T) {
	short := newFaultBlob(NewBlob([]byte("abc"), ""))
	short.SetSizeDelta(1)
	if _, err := readBlob(t.Context(), short); !errors.Is(err, ErrNotReadable) {
		t.Errorf("short content: expected ErrNotReadable, got %v", err)
	}

	long := newFaultBlob(NewBlob([]byte("abcdef"), ""))
	long.SetSizeDelta(-2)
	data, err := readBlob(t.Context(), long)
	if !errors.Is(err, ErrNotReadable) {
		t.Errorf("long content: expected ErrNotReadable, got %v", err)
	}
	if len(data) != 5 {
		t.Errorf("expected read to stop one byte past the size, got %d bytes", len(data))
	}
}
