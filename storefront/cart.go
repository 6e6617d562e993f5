package storefront

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ArnaudHalvick/storefront-go/cart"
)

// cartResponse is the wire shape cart mutation endpoints return.
type cartResponse struct {
	Success bool          `json:"success"`
	Cart    *cart.Payload `json:"cart"`
}

// payload extracts the authoritative cart body. A response without a usable
// lines collection yields nil, which tells the tracker to keep its
// optimistic state.
func (r *cartResponse) payload() *cart.Payload {
	if r.Cart == nil || r.Cart.Lines == nil {
		return nil
	}
	return r.Cart
}

// CartGateway returns the client's implementation of cart.Gateway, suitable
// for backing a cart.Tracker.
func (c *Client) CartGateway() cart.Gateway {
	return cartGateway{client: c}
}

// NewCartTracker builds a cart tracker wired to this client's gateway and
// session store.
func (c *Client) NewCartTracker() *cart.Tracker {
	return cart.NewTracker(c.CartGateway(), c.sessions, c.logger)
}

type cartGateway struct {
	client *Client
}

func (g cartGateway) FetchCart(ctx context.Context) (*cart.Payload, error) {
	var out cartResponse
	if err := g.client.Get(ctx, CartPath, &out); err != nil {
		return nil, err
	}
	return out.payload(), nil
}

func (g cartGateway) AddItem(ctx context.Context, productID, size string, quantity int) (*cart.Payload, error) {
	body := struct {
		ProductID string `json:"productId"`
		Size      string `json:"size"`
		Quantity  int    `json:"quantity"`
	}{ProductID: productID, Size: size, Quantity: quantity}

	var out cartResponse
	if err := g.client.Post(ctx, CartItemsPath, body, &out); err != nil {
		return nil, err
	}
	return out.payload(), nil
}

func (g cartGateway) UpdateItem(ctx context.Context, productID, size string, quantity int) (*cart.Payload, error) {
	body := struct {
		Size     string `json:"size"`
		Quantity int    `json:"quantity"`
	}{Size: size, Quantity: quantity}

	var out cartResponse
	if err := g.client.Put(ctx, CartItemsPath+"/"+url.PathEscape(productID), body, &out); err != nil {
		return nil, err
	}
	return out.payload(), nil
}

func (g cartGateway) RemoveItem(ctx context.Context, productID, size string, quantity int) (*cart.Payload, error) {
	query := url.Values{}
	query.Set("size", size)
	query.Set("quantity", strconv.Itoa(quantity))

	var out cartResponse
	if err := g.client.Delete(ctx, CartItemsPath+"/"+url.PathEscape(productID), query, &out); err != nil {
		return nil, err
	}
	return out.payload(), nil
}

func (g cartGateway) RemoveAllItem(ctx context.Context, productID, size string) (*cart.Payload, error) {
	query := url.Values{}
	query.Set("size", size)

	var out cartResponse
	if err := g.client.Delete(ctx, CartItemsPath+"/"+url.PathEscape(productID), query, &out); err != nil {
		return nil, err
	}
	return out.payload(), nil
}

func (g cartGateway) ClearCart(ctx context.Context) (*cart.Payload, error) {
	var out cartResponse
	if err := g.client.Execute(ctx, Request{Method: http.MethodDelete, Path: CartPath}, &out); err != nil {
		return nil, err
	}
	return out.payload(), nil
}
