package filereader

import (
	"context"
	"errors"
	"io"
	"sync"
)

// -----------------------------------------------------------------------------
// Fault-Injection Blob (test-only)
// -----------------------------------------------------------------------------
//
// faultBlob wraps a Blob and enables deterministic fault injection for testing
// read failure paths. It provides:
//   - Error injection on Open and mid-read
//   - Open call counting, to prove that no I/O happened
//   - A blocking point, to hold a read in flight

// faultBlob wraps a Blob with fault injection capabilities.
type faultBlob struct {
	inner Blob

	mu sync.Mutex

	openErr error
	readErr error // returned after failAfter bytes have been delivered

	failAfter int
	sizeDelta int64 // added to the inner size, to simulate a blob that changed

	openBlock chan struct{} // if non-nil, Open blocks until closed

	openCalls int
}

// newFaultBlob creates a fault-injection wrapper around the given blob.
func newFaultBlob(inner Blob) *faultBlob {
	return &faultBlob{inner: inner}
}

// SetOpenError sets an error to be returned by Open.
func (f *faultBlob) SetOpenError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openErr = err
}

// SetReadError makes the reader fail with err after n bytes.
func (f *faultBlob) SetReadError(err error, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readErr = err
	f.failAfter = n
}

// SetSizeDelta skews the reported size by delta.
func (f *faultBlob) SetSizeDelta(delta int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sizeDelta = delta
}

// SetOpenBlock sets a channel that Open will block on before proceeding.
// Close the channel to unblock.
func (f *faultBlob) SetOpenBlock(ch chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openBlock = ch
}

// OpenCalls returns the number of Open calls.
func (f *faultBlob) OpenCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.openCalls
}

func (f *faultBlob) Size() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inner.Size() + f.sizeDelta
}

func (f *faultBlob) Type() string { return f.inner.Type() }

func (f *faultBlob) Open(ctx context.Context) (io.ReadCloser, error) {
	f.mu.Lock()
	f.openCalls++
	openErr := f.openErr
	readErr := f.readErr
	failAfter := f.failAfter
	block := f.openBlock
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if openErr != nil {
		return nil, openErr
	}

	rc, err := f.inner.Open(ctx)
	if err != nil {
		return nil, err
	}
	if readErr == nil {
		return rc, nil
	}
	return &failingReader{ReadCloser: rc, err: readErr, remaining: failAfter}, nil
}

// failingReader delivers remaining bytes and then fails with err.
type failingReader struct {
	io.ReadCloser
	err       error
	remaining int
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.remaining <= 0 {
		return 0, r.err
	}
	if len(p) > r.remaining {
		p = p[:r.remaining]
	}
	n, err := r.ReadCloser.Read(p)
	r.remaining -= n
	return n, err
}

// -----------------------------------------------------------------------------
// Fault-Injection Store (test-only)
// -----------------------------------------------------------------------------

// faultStore wraps a Store with error injection on Get and Stat and
// records the paths passed to Get.
type faultStore struct {
	inner Store

	mu       sync.Mutex
	getErr   error
	statErr  error
	getCalls []string
}

func newFaultStore(inner Store) *faultStore {
	return &faultStore{inner: inner}
}

// SetGetError sets an error to be returned by Get calls.
func (f *faultStore) SetGetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getErr = err
}

// SetStatError sets an error to be returned by Stat calls.
func (f *faultStore) SetStatError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statErr = err
}

// GetCalls returns paths passed to Get.
func (f *faultStore) GetCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.getCalls...)
}

func (f *faultStore) Put(ctx context.Context, path string, r io.Reader, contentType string) error {
	return f.inner.Put(ctx, path, r, contentType)
}

func (f *faultStore) Get(ctx context.Context, path string) (io.ReadCloser, ObjectInfo, error) {
	f.mu.Lock()
	injectedErr := f.getErr
	f.getCalls = append(f.getCalls, path)
	f.mu.Unlock()

	if injectedErr != nil {
		return nil, ObjectInfo{}, injectedErr
	}
	return f.inner.Get(ctx, path)
}

func (f *faultStore) Stat(ctx context.Context, path string) (ObjectInfo, error) {
	f.mu.Lock()
	injectedErr := f.statErr
	f.mu.Unlock()

	if injectedErr != nil {
		return ObjectInfo{}, injectedErr
	}
	return f.inner.Stat(ctx, path)
}

func (f *faultStore) List(ctx context.Context, prefix string) ([]string, error) {
	return f.inner.List(ctx, prefix)
}

// --- Sentinel errors for injection ---

var (
	errInjectedOpen = errors.New("injected: open error")
	errInjectedRead = errors.New("injected: read error")
	errInjectedGet  = errors.New("injected: get error")
)
