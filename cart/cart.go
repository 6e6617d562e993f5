// Package cart maintains the client's view of the shopping cart. Mutations
// are applied optimistically so the UI reflects the intended result
// immediately, tracked as pending while the server call is in flight, and
// reconciled against the server's authoritative payload when it arrives.
package cart

import "context"

// Line is one cart entry. At most one line exists per (productID, size)
// pair. Prices are integer cents.
type Line struct {
	ProductID string `json:"productId"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
}

// Payload is the server's authoritative cart representation.
type Payload struct {
	Lines      []Line `json:"lines"`
	TotalItems int    `json:"totalItems"`
	TotalPrice int64  `json:"totalPrice"`
}

// OpKind identifies the kind of cart mutation a pending marker tracks.
type OpKind string

const (
	OpAdd       OpKind = "add"
	OpRemove    OpKind = "remove"
	OpRemoveAll OpKind = "removeAll"
	OpUpdate    OpKind = "update"
	OpClear     OpKind = "clear"
)

// Key identifies a cart line.
type Key struct {
	ProductID string
	Size      string
}

// pendingKey identifies one outstanding mutation. Distinct kinds on the same
// line are tracked independently.
type pendingKey struct {
	Key
	Kind OpKind
}

// Gateway performs the cart mutations against the backend. A nil Payload
// with a nil error means the server accepted the mutation but returned no
// usable cart body; the tracker then keeps its optimistic state.
type Gateway interface {
	FetchCart(ctx context.Context) (*Payload, error)
	AddItem(ctx context.Context, productID, size string, quantity int) (*Payload, error)
	UpdateItem(ctx context.Context, productID, size string, quantity int) (*Payload, error)
	RemoveItem(ctx context.Context, productID, size string, quantity int) (*Payload, error)
	RemoveAllItem(ctx context.Context, productID, size string) (*Payload, error)
	ClearCart(ctx context.Context) (*Payload, error)
}

// Result is the outcome handed to the UI layer. Expected failures (auth
// gate, validation, server rejection) arrive here rather than as errors;
// only Err carries the underlying cause for diagnostics.
type Result struct {
	Success     bool
	Message     string
	FieldErrors map[string]string
	Err         error
}

func ok() Result {
	return Result{Success: true}
}
