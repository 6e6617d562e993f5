package cart

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	errs "github.com/ArnaudHalvick/storefront-go/pkg/errors"
	"github.com/ArnaudHalvick/storefront-go/pkg/validator"
	"github.com/ArnaudHalvick/storefront-go/session"
)

// Tracker is the single writer of local cart state. Every mutation applies a
// speculative local edit first, records a pending marker, issues the server
// call, and reconciles with the authoritative payload on success. Failed
// mutations surface an error but leave the optimistic state in place; the
// next successful fetch or mutation corrects it.
type Tracker struct {
	mu      sync.Mutex
	lines   map[Key]Line
	pending map[pendingKey]int

	totalItems int
	totalPrice int64

	gateway  Gateway
	sessions session.Store
	logger   *slog.Logger
}

// NewTracker creates an empty tracker backed by gateway and gated on the
// session store.
func NewTracker(gateway Gateway, sessions session.Store, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		lines:    make(map[Key]Line),
		pending:  make(map[pendingKey]int),
		gateway:  gateway,
		sessions: sessions,
		logger:   logger,
	}
}

// AddItemInput is a request to add quantity of a product variant.
type AddItemInput struct {
	ProductID string `validate:"required"`
	Size      string `validate:"required"`
	Quantity  int    `validate:"required,gte=1"`
}

// UpdateItemInput sets a line's quantity directly. Zero is not a valid
// target; use RemoveAllItem to drop a line.
type UpdateItemInput struct {
	ProductID string `validate:"required"`
	Size      string `validate:"required"`
	Quantity  int    `validate:"required,gte=1"`
}

// RemoveItemInput decrements a line's quantity.
type RemoveItemInput struct {
	ProductID string `validate:"required"`
	Size      string `validate:"required"`
	Quantity  int    `validate:"required,gte=1"`
}

// AddItem increments the line's local quantity immediately and issues the
// server mutation. When the key has no local line yet, no speculative line
// is created (the server is authoritative for line creation) but the
// operation is still tracked as pending.
func (t *Tracker) AddItem(ctx context.Context, in AddItemInput) Result {
	if res, authed := t.requireAuth(ctx); !authed {
		return res
	}
	if res := validateCartInput(in); !res.Success {
		return res
	}

	key := Key{ProductID: in.ProductID, Size: in.Size}
	t.mu.Lock()
	if line, exists := t.lines[key]; exists {
		line.Quantity += in.Quantity
		t.lines[key] = line
		t.recomputeTotalsLocked()
	}
	t.mu.Unlock()

	return t.dispatch(ctx, pendingKey{Key: key, Kind: OpAdd}, func(ctx context.Context) (*Payload, error) {
		return t.gateway.AddItem(ctx, in.ProductID, in.Size, in.Quantity)
	})
}

// UpdateQuantity sets the line's local quantity to the target immediately.
func (t *Tracker) UpdateQuantity(ctx context.Context, in UpdateItemInput) Result {
	if res, authed := t.requireAuth(ctx); !authed {
		return res
	}
	if res := validateCartInput(in); !res.Success {
		return res
	}

	key := Key{ProductID: in.ProductID, Size: in.Size}
	t.mu.Lock()
	if line, exists := t.lines[key]; exists {
		line.Quantity = in.Quantity
		t.lines[key] = line
		t.recomputeTotalsLocked()
	}
	t.mu.Unlock()

	return t.dispatch(ctx, pendingKey{Key: key, Kind: OpUpdate}, func(ctx context.Context) (*Payload, error) {
		return t.gateway.UpdateItem(ctx, in.ProductID, in.Size, in.Quantity)
	})
}

// RemoveItem decrements the line's local quantity, floored at zero. A line
// reaching zero stays in local state until the server confirms its removal.
func (t *Tracker) RemoveItem(ctx context.Context, in RemoveItemInput) Result {
	if res, authed := t.requireAuth(ctx); !authed {
		return res
	}
	if res := validateCartInput(in); !res.Success {
		return res
	}

	key := Key{ProductID: in.ProductID, Size: in.Size}
	t.mu.Lock()
	if line, exists := t.lines[key]; exists {
		line.Quantity -= in.Quantity
		if line.Quantity < 0 {
			line.Quantity = 0
		}
		t.lines[key] = line
		t.recomputeTotalsLocked()
	}
	t.mu.Unlock()

	return t.dispatch(ctx, pendingKey{Key: key, Kind: OpRemove}, func(ctx context.Context) (*Payload, error) {
		return t.gateway.RemoveItem(ctx, in.ProductID, in.Size, in.Quantity)
	})
}

// RemoveAllItem deletes the line from local state immediately.
func (t *Tracker) RemoveAllItem(ctx context.Context, productID, size string) Result {
	if res, authed := t.requireAuth(ctx); !authed {
		return res
	}
	if productID == "" || size == "" {
		return Result{Message: "Product and size are required.", Err: errs.ErrValidation}
	}

	key := Key{ProductID: productID, Size: size}
	t.mu.Lock()
	delete(t.lines, key)
	t.recomputeTotalsLocked()
	t.mu.Unlock()

	return t.dispatch(ctx, pendingKey{Key: key, Kind: OpRemoveAll}, func(ctx context.Context) (*Payload, error) {
		return t.gateway.RemoveAllItem(ctx, productID, size)
	})
}

// Clear empties the local cart immediately and asks the server to do the
// same.
func (t *Tracker) Clear(ctx context.Context) Result {
	if res, authed := t.requireAuth(ctx); !authed {
		return res
	}

	t.mu.Lock()
	t.lines = make(map[Key]Line)
	t.recomputeTotalsLocked()
	t.mu.Unlock()

	return t.dispatch(ctx, pendingKey{Kind: OpClear}, func(ctx context.Context) (*Payload, error) {
		return t.gateway.ClearCart(ctx)
	})
}

// Refresh pulls the authoritative cart from the server. Lines with an
// outstanding mutation keep their optimistic quantity so a stale snapshot
// cannot undo an in-flight edit.
func (t *Tracker) Refresh(ctx context.Context) Result {
	if res, authed := t.requireAuth(ctx); !authed {
		return res
	}

	payload, err := t.gateway.FetchCart(ctx)
	if err != nil {
		return resultFromError(err)
	}
	t.reconcile(payload)
	return ok()
}

// dispatch tracks the pending marker around the server call and reconciles
// the response. The marker is removed when the call settles regardless of
// outcome.
func (t *Tracker) dispatch(ctx context.Context, pk pendingKey, call func(ctx context.Context) (*Payload, error)) Result {
	t.mu.Lock()
	t.pending[pk]++
	t.mu.Unlock()

	payload, err := call(ctx)

	t.mu.Lock()
	t.pending[pk]--
	if t.pending[pk] <= 0 {
		delete(t.pending, pk)
	}
	t.mu.Unlock()

	if err != nil {
		// No rollback: the optimistic state stays visible and the
		// next authoritative payload corrects it.
		t.logger.Warn("cart mutation failed, keeping optimistic state",
			slog.String("product_id", pk.ProductID),
			slog.String("size", pk.Size),
			slog.String("op", string(pk.Kind)),
			slog.String("error", err.Error()),
		)
		return resultFromError(err)
	}
	t.reconcile(payload)
	return ok()
}

// reconcile overwrites local state with the server payload. A nil payload
// (success with no usable cart body) keeps the current optimistic state: an
// empty overwrite is a worse failure than a stale-but-plausible cart. Lines
// with another mutation still in flight keep their optimistic quantity.
func (t *Tracker) reconcile(payload *Payload) {
	if payload == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	fresh := make(map[Key]Line, len(payload.Lines))
	for _, line := range payload.Lines {
		if line.Quantity <= 0 {
			continue
		}
		fresh[Key{ProductID: line.ProductID, Size: line.Size}] = line
	}

	for pk := range t.pending {
		if pk.Kind == OpClear {
			continue
		}
		local, exists := t.lines[pk.Key]
		if !exists {
			delete(fresh, pk.Key)
			continue
		}
		if serverLine, inFresh := fresh[pk.Key]; inFresh {
			serverLine.Quantity = local.Quantity
			fresh[pk.Key] = serverLine
		} else {
			fresh[pk.Key] = local
		}
	}

	t.lines = fresh
	t.recomputeTotalsLocked()
}

// recomputeTotalsLocked derives totals from the local line set. Caller holds
// t.mu.
func (t *Tracker) recomputeTotalsLocked() {
	var items int
	var price int64
	for _, line := range t.lines {
		items += line.Quantity
		price += int64(line.Quantity) * line.UnitPrice
	}
	t.totalItems = items
	t.totalPrice = price
}

// requireAuth short-circuits mutations while the session is logged out or
// has no token. No local state is touched and no network call is issued.
func (t *Tracker) requireAuth(ctx context.Context) (Result, bool) {
	loggedOut, err := t.sessions.LoggedOut(ctx)
	if err != nil {
		return Result{Message: "Authentication required", Err: err}, false
	}
	token, err := t.sessions.Token(ctx)
	if err != nil {
		return Result{Message: "Authentication required", Err: err}, false
	}
	if loggedOut || token == "" {
		return Result{Message: "Authentication required", Err: errs.ErrLoggedOut}, false
	}
	return Result{}, true
}

// Lines returns a copy of the current local lines, zero-quantity entries
// excluded.
func (t *Tracker) Lines() []Line {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Line, 0, len(t.lines))
	for _, line := range t.lines {
		if line.Quantity > 0 {
			out = append(out, line)
		}
	}
	return out
}

// Quantity returns the current local quantity for a line, zero when absent.
func (t *Tracker) Quantity(productID, size string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lines[Key{ProductID: productID, Size: size}].Quantity
}

// ItemCount is the sum of all local line quantities.
func (t *Tracker) ItemCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalItems
}

// TotalPrice is the price of the local cart in cents, computed from the
// optimistic lines rather than the last server snapshot.
func (t *Tracker) TotalPrice() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalPrice
}

// IsEmpty reports whether no line has a positive quantity.
func (t *Tracker) IsEmpty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, line := range t.lines {
		if line.Quantity > 0 {
			return false
		}
	}
	return true
}

// PendingCount reports how many mutations are currently in flight.
func (t *Tracker) PendingCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	var n int
	for _, count := range t.pending {
		n += count
	}
	return n
}

// validateCartInput maps struct validation failures into a Result.
func validateCartInput(in any) Result {
	err := validator.Validate(in)
	if err == nil {
		return ok()
	}
	var vErr *validator.ValidationError
	if errors.As(err, &vErr) {
		return Result{
			Message:     "Some fields are invalid.",
			FieldErrors: vErr.Fields(),
			Err:         errs.ErrValidation,
		}
	}
	return Result{Message: "Invalid input.", Err: err}
}

// resultFromError translates a taxonomy error into the Result shape the UI
// consumes.
func resultFromError(err error) Result {
	var apiErr *errs.APIError
	if errors.As(err, &apiErr) {
		return Result{
			Message:     apiErr.Message,
			FieldErrors: apiErr.FieldErrors,
			Err:         err,
		}
	}
	return Result{Message: "Something went wrong.", Err: err}
}
