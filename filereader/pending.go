package filereader

import (
	"context"
	"sync"
)

// Pending is the deferred outcome of a read.
//
// It settles exactly once, either with a Result or with an error, and stays
// settled. Pending is safe for concurrent use by multiple goroutines.
type Pending struct {
	once sync.Once
	done chan struct{}

	result *Result
	err    error
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

// rejected returns a Pending already settled with err.
func rejected(err error) *Pending {
	p := newPending()
	p.reject(err)
	return p
}

// resolve settles p with res. It reports false if p had already settled.
func (p *Pending) resolve(res *Result) bool {
	return p.settle(res, nil)
}

// reject settles p with err. It reports false if p had already settled.
func (p *Pending) reject(err error) bool {
	return p.settle(nil, err)
}

func (p *Pending) settle(res *Result, err error) bool {
	settled := false
	p.once.Do(func() {
		p.result, p.err = res, err
		close(p.done)
		settled = true
	})
	return settled
}

// Done returns a channel that is closed once the read has settled.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Settled reports whether the read has settled.
func (p *Pending) Settled() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the read settles or ctx is done. A nil ctx waits
// without a deadline.
//
// Returning because ctx is done does not stop the read; the Pending still
// settles later and can be waited on again.
func (p *Pending) Wait(ctx context.Context) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-p.done:
		return p.result, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryResult returns the outcome without blocking.
// It returns ErrPending while the read is in flight.
func (p *Pending) TryResult() (*Result, error) {
	select {
	case <-p.done:
		return p.result, p.err
	default:
		return nil, ErrPending
	}
}
