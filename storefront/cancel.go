package storefront

import (
	"context"
	"sync"

	errs "github.com/ArnaudHalvick/storefront-go/pkg/errors"
)

// cancelBroker owns the shared cancellation handle covering all non-exempt
// in-flight requests. Cancelling it aborts those requests and immediately
// issues a fresh handle, so requests started afterwards are unaffected.
type cancelBroker struct {
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelCauseFunc
}

func newCancelBroker() *cancelBroker {
	b := &cancelBroker{}
	b.ctx, b.cancel = context.WithCancelCause(context.Background())
	return b
}

// CancelAll aborts every request linked to the current handle with a typed
// cancellation error carrying reason, then installs a fresh handle.
func (b *cancelBroker) CancelAll(reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cancel(errs.Cancelled(reason))
	b.ctx, b.cancel = context.WithCancelCause(context.Background())
}

// link derives a context from parent that is additionally cancelled when the
// broker's current handle is cancelled. The returned stop function releases
// the link and must be called when the request settles.
func (b *cancelBroker) link(parent context.Context) (context.Context, context.CancelFunc) {
	b.mu.Lock()
	handle := b.ctx
	b.mu.Unlock()

	ctx, cancel := context.WithCancelCause(parent)
	stop := context.AfterFunc(handle, func() {
		cancel(context.Cause(handle))
	})
	// The handle may already be cancelled if CancelAll raced this link.
	if err := handle.Err(); err != nil {
		cancel(context.Cause(handle))
	}
	return ctx, func() {
		stop()
		cancel(nil)
	}
}
