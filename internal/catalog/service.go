// Package catalog wraps the remote products resource.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/inventra/inventra/internal/apiclient"
	"github.com/inventra/inventra/internal/shared"
)

const basePath = "/api/products"

// ErrNotFound is returned by Find when no product carries the id.
var ErrNotFound = errors.New("catalog: product not found")

// SortableFields lists the columns the server is known to sort on.
var SortableFields = []string{"id", "name", "sku", "cost", "price", "stock"}

// FilterableFields lists the text columns forwarded as search filters.
var FilterableFields = []string{"name", "sku"}

// IsFilterable reports whether column may be forwarded as a filter.
func IsFilterable(column string) bool {
	for _, f := range FilterableFields {
		if f == column {
			return true
		}
	}
	return false
}

// IsSortable reports whether field may be forwarded as a sort key.
func IsSortable(field string) bool {
	for _, f := range SortableFields {
		if f == field {
			return true
		}
	}
	return false
}

// Service exposes list, search and write operations over products.
type Service struct {
	client *apiclient.Client
	group  *singleflight.Group
}

// NewService constructs a Service on top of client.
func NewService(client *apiclient.Client) *Service {
	return &Service{client: client, group: &singleflight.Group{}}
}

// For returns a Service whose calls carry creds.
func (s *Service) For(creds apiclient.Credentials) *Service {
	return &Service{client: s.client.WithCredentials(creds), group: s.group}
}

// List fetches the full, unpaginated catalog.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	wires, err := apiclient.GetList[productWire](ctx, s.client, basePath, nil, "products.list")
	if err != nil {
		return nil, err
	}
	out := make([]Product, len(wires))
	for i, w := range wires {
		out[i] = w.product()
	}
	return out, nil
}

// ListPaginated fetches one page. The 1-based page is sent to the server as
// a 0-based index and sort becomes a single "field,direction" parameter.
func (s *Service) ListPaginated(ctx context.Context, req PageRequest) (Page, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Size < 1 {
		req.Size = 10
	}
	wire, err := apiclient.Get[pageWire](ctx, s.client, basePath+"/search", SearchQuery(req), "products.search")
	if err != nil {
		return Page{}, err
	}

	page := Page{Data: make([]Product, len(wire.Content)), Total: *wire.TotalElements}
	for i, w := range wire.Content {
		page.Data[i] = w.product()
	}
	if wire.TotalPages != nil {
		page.TotalPages = *wire.TotalPages
	} else {
		page.TotalPages = shared.NewPagination(req.Page, req.Size, page.Total).TotalPages
	}
	return page, nil
}

// SearchQuery builds the query string sent to the search endpoint.
func SearchQuery(req PageRequest) url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(req.Page-1))
	q.Set("size", strconv.Itoa(req.Size))
	if IsSortable(req.Sort) {
		order := strings.ToLower(req.Order)
		if order != "desc" {
			order = "asc"
		}
		q.Set("sort", req.Sort+","+order)
	}
	for column, value := range req.Filters {
		if value == "" || !IsFilterable(column) {
			continue
		}
		q.Set(column, value)
	}
	return q
}

// Create posts a new product without an id and returns the stored record.
func (s *Service) Create(ctx context.Context, in ProductInput) (Product, error) {
	w, err := apiclient.Send[productWire](ctx, s.client, http.MethodPost, basePath, in, "products.create")
	if err != nil {
		return Product{}, err
	}
	return w.product(), nil
}

// Update replaces the product stored under id.
func (s *Service) Update(ctx context.Context, id int64, p Product) (Product, error) {
	w, err := apiclient.Send[productWire](ctx, s.client, http.MethodPut, productPath(id), p, "products.update")
	if err != nil {
		return Product{}, err
	}
	return w.product(), nil
}

// Delete removes the product. The server replies without a body.
func (s *Service) Delete(ctx context.Context, id int64) error {
	_, err := s.client.Do(ctx, apiclient.Request{Method: http.MethodDelete, Path: productPath(id), Endpoint: "products.delete"})
	return err
}

// Find resolves a single product through the full list, since the API has
// no item endpoint. Concurrent lookups for the same caller share one fetch.
// The shared fetch ignores caller cancellation. Each caller stops waiting
// when its own ctx ends.
func (s *Service) Find(ctx context.Context, key string, id int64) (Product, error) {
	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		return s.List(detached)
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return Product{}, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return Product{}, res.Err
	}
	for _, p := range res.Val.([]Product) {
		if p.ID == id {
			return p, nil
		}
	}
	return Product{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
}

func productPath(id int64) string {
	return basePath + "/" + strconv.FormatInt(id, 10)
}
