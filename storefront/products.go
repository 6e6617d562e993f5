package storefront

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// Product is a catalog entry. The catalog is public; listing works while
// logged out.
type Product struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Slug     string   `json:"slug"`
	Price    int64    `json:"price"`
	Sizes    []string `json:"sizes"`
	ImageURL string   `json:"imageUrl"`
}

// ProductList is a page of catalog results.
type ProductList struct {
	Success  bool      `json:"success"`
	Products []Product `json:"products"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
}

// ListProducts fetches a catalog page. Page numbering starts at 1; zero
// values fall back to server defaults.
func (c *Client) ListProducts(ctx context.Context, page, pageSize int) (*ProductList, error) {
	query := url.Values{}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		query.Set("pageSize", strconv.Itoa(pageSize))
	}

	var out ProductList
	err := c.Execute(ctx, Request{Method: http.MethodGet, Path: ProductsPath, Query: query}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
