package storefront

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	errs "github.com/ArnaudHalvick/storefront-go/pkg/errors"
	"github.com/ArnaudHalvick/storefront-go/session"
)

// refreshResult settles a queued waiter: either the renewed token or the
// error that terminated the refresh.
type refreshResult struct {
	token string
	err   error
}

// refreshCoordinator guarantees at most one token refresh is in flight at
// any time. Requests that hit an auth failure while a refresh is running are
// queued as waiters and settled strictly in arrival order once the refresh
// resolves. The coordinator is owned by a Client instance; independent
// clients never share refresh state.
//
// State machine: idle (inFlight == false, no waiters) or refreshing
// (inFlight == true, zero or more waiters). The waiter queue is always empty
// in the idle state.
type refreshCoordinator struct {
	mu       sync.Mutex
	inFlight bool
	waiters  []chan refreshResult

	// perform executes the actual refresh call against the backend and
	// returns the renewed access token.
	perform  func(ctx context.Context) (string, error)
	sessions session.Store
	notifier Notifier
	logger   *slog.Logger
}

func newRefreshCoordinator(
	perform func(ctx context.Context) (string, error),
	sessions session.Store,
	notifier Notifier,
	logger *slog.Logger,
) *refreshCoordinator {
	return &refreshCoordinator{
		perform:  perform,
		sessions: sessions,
		notifier: notifier,
		logger:   logger,
	}
}

// Await returns a renewed access token, joining an in-flight refresh when
// one exists and leading a new one otherwise. On terminal failure the
// session is cleared, a session-expired notification fires once, and every
// caller (leader and waiters alike) receives the same error.
func (rc *refreshCoordinator) Await(ctx context.Context) (string, error) {
	rc.mu.Lock()
	if rc.inFlight {
		ch := make(chan refreshResult, 1)
		rc.waiters = append(rc.waiters, ch)
		rc.mu.Unlock()

		refreshWaiters.Inc()
		defer refreshWaiters.Dec()

		select {
		case res := <-ch:
			return res.token, res.err
		case <-ctx.Done():
			return "", errs.Classify(context.Cause(ctx))
		}
	}
	rc.inFlight = true
	rc.mu.Unlock()

	token, err := rc.run(ctx)

	rc.mu.Lock()
	waiters := rc.waiters
	rc.waiters = nil
	rc.inFlight = false
	rc.mu.Unlock()

	// Settle waiters in arrival order. Buffered channels make the sends
	// non-blocking even for waiters that already gave up on their ctx.
	for _, ch := range waiters {
		ch <- refreshResult{token: token, err: err}
	}

	return token, err
}

// run performs one refresh and updates session state. The refresh itself is
// detached from the triggering request's cancellation: a user abandoning one
// request must not fail every queued waiter.
func (rc *refreshCoordinator) run(ctx context.Context) (string, error) {
	ctx = context.WithoutCancel(ctx)

	token, err := rc.perform(ctx)
	if err != nil {
		tokenRefreshTotal.WithLabelValues("failure").Inc()
		rc.logger.WarnContext(ctx, "token refresh failed, clearing session",
			slog.String("error", err.Error()),
		)

		if clearErr := rc.sessions.Clear(ctx); clearErr != nil {
			rc.logger.ErrorContext(ctx, "failed to clear session after refresh failure",
				slog.String("error", clearErr.Error()),
			)
		}
		rc.notifier.TokenRefreshFailed(err)

		expired := errs.SessionExpired()
		expired.Err = fmt.Errorf("%w: %w", errs.ErrSessionExpired, err)
		return "", expired
	}

	if saveErr := rc.sessions.SetToken(ctx, token); saveErr != nil {
		tokenRefreshTotal.WithLabelValues("failure").Inc()
		return "", fmt.Errorf("persist refreshed token: %w", saveErr)
	}

	tokenRefreshTotal.WithLabelValues("success").Inc()
	rc.logger.DebugContext(ctx, "access token refreshed")
	return token, nil
}
