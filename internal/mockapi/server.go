// Package mockapi serves an in-memory stand-in for the remote inventory API.
// It backs local development (cmd/inventra-mockapi) and handler tests.
package mockapi

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/inventra/inventra/internal/platform/httpx"
)

// DefaultLowStockThreshold marks products reported as low stock.
const DefaultLowStockThreshold = 10

// Product mirrors the remote product record.
type Product struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	SKU         string  `json:"sku"`
	Cost        float64 `json:"cost"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	Category    string  `json:"category"`
	Supplier    string  `json:"supplier"`
	Description string  `json:"description"`
}

// BestSeller is one row of the sales report.
type BestSeller struct {
	ProductName string `json:"productName"`
	TotalSold   int    `json:"totalSold"`
}

// SalesReport is the fixture returned by GET /api/reports/sales.
type SalesReport struct {
	TotalRevenue        float64      `json:"totalRevenue"`
	TransactionCount    int          `json:"transactionCount"`
	BestSellingProducts []BestSeller `json:"bestSellingProducts"`
}

// Recorded captures what the server saw for one request.
type Recorded struct {
	Method        string
	Path          string
	Query         string
	Authorization string
}

type override struct {
	status int
	body   []byte
}

// Server is the fake API. The zero value is not usable; call New.
type Server struct {
	mu          sync.Mutex
	products    map[int64]Product
	nextID      int64
	users       map[string]string
	tokens      map[string]string
	sales       SalesReport
	overrides   map[string]override
	requests    []Recorded
	requireAuth bool
	lowStock    int
}

// New returns a server with no products and auth enforcement enabled.
func New() *Server {
	return &Server{
		products:    make(map[int64]Product),
		nextID:      1,
		users:       make(map[string]string),
		tokens:      make(map[string]string),
		overrides:   make(map[string]override),
		requireAuth: true,
		lowStock:    DefaultLowStockThreshold,
	}
}

// AddUser registers credentials accepted by the login endpoint.
func (s *Server) AddUser(username, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = password
}

// TokenFor returns the bearer token issued to username.
func (s *Server) TokenFor(username string) string {
	return "tok-" + username
}

// IssueToken registers a token for username as if it had logged in.
func (s *Server) IssueToken(username string) string {
	token := s.TokenFor(username)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = username
	return token
}

// SetRequireAuth toggles bearer enforcement on data endpoints.
func (s *Server) SetRequireAuth(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requireAuth = v
}

// Seed stores products, assigning ids to records without one.
func (s *Server) Seed(products ...Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range products {
		if p.ID == 0 {
			p.ID = s.nextID
		}
		if p.ID >= s.nextID {
			s.nextID = p.ID + 1
		}
		s.products[p.ID] = p
	}
}

// SetSales replaces the sales report fixture.
func (s *Server) SetSales(report SalesReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sales = report
}

// Override forces the reply for method and path, bypassing the store.
func (s *Server) Override(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[method+" "+path] = override{status: status, body: []byte(body)}
}

// ClearOverrides drops all forced replies.
func (s *Server) ClearOverrides() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides = make(map[string]override)
}

// Requests returns a copy of the request log.
func (s *Server) Requests() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Recorded, len(s.requests))
	copy(out, s.requests)
	return out
}

// LastRequest returns the most recent request matching path.
func (s *Server) LastRequest(path string) (Recorded, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.requests) - 1; i >= 0; i-- {
		if s.requests[i].Path == path {
			return s.requests[i], true
		}
	}
	return Recorded{}, false
}

// Products returns the stored products ordered by id.
func (s *Server) Products() []Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked()
}

// Handler exposes the API routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record, s.forced)
	r.Post("/api/auth/login", s.login)
	r.Group(func(r chi.Router) {
		r.Use(s.authorize)
		r.Get("/api/products", s.listProducts)
		r.Get("/api/products/search", s.searchProducts)
		r.Post("/api/products", s.createProduct)
		r.Put("/api/products/{id}", s.updateProduct)
		r.Delete("/api/products/{id}", s.deleteProduct)
		r.Get("/api/reports/sales", s.salesReport)
		r.Get("/api/reports/inventory", s.inventoryReport)
	})
	return r
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Recorded{
			Method:        r.Method,
			Path:          r.URL.Path,
			Query:         r.URL.RawQuery,
			Authorization: r.Header.Get("Authorization"),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) forced(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		o, ok := s.overrides[r.Method+" "+r.URL.Path]
		s.mu.Unlock()
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		if len(o.body) == 0 {
			w.WriteHeader(o.status)
			return
		}
		httpx.Raw(w, o.status, o.body)
	})
}

func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		required := s.requireAuth
		_, known := s.tokens[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")]
		s.mu.Unlock()
		if required && !known {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	s.mu.Lock()
	password, ok := s.users[req.Username]
	if ok && password == req.Password {
		s.tokens[s.TokenFor(req.Username)] = req.Username
	}
	s.mu.Unlock()
	if !ok || password != req.Password {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"token": s.TokenFor(req.Username)})
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, s.Products())
}

type searchPage struct {
	Content       []Product `json:"content"`
	TotalElements int       `json:"totalElements"`
	TotalPages    int       `json:"totalPages"`
	Number        int       `json:"number"`
	Size          int       `json:"size"`
}

var sortable = map[string]func(a, b Product) int{
	"id":    func(a, b Product) int { return cmpInt64(a.ID, b.ID) },
	"name":  func(a, b Product) int { return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)) },
	"sku":   func(a, b Product) int { return strings.Compare(a.SKU, b.SKU) },
	"cost":  func(a, b Product) int { return cmpFloat(a.Cost, b.Cost) },
	"price": func(a, b Product) int { return cmpFloat(a.Price, b.Price) },
	"stock": func(a, b Product) int { return cmpInt64(int64(a.Stock), int64(b.Stock)) },
}

func (s *Server) searchProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page < 0 {
		page = 0
	}
	size, err := strconv.Atoi(q.Get("size"))
	if err != nil || size <= 0 {
		size = 10
	}

	items := s.Products()
	if name := strings.ToLower(q.Get("name")); name != "" {
		filtered := items[:0]
		for _, p := range items {
			if strings.Contains(strings.ToLower(p.Name), name) {
				filtered = append(filtered, p)
			}
		}
		items = filtered
	}
	if sku := strings.ToLower(q.Get("sku")); sku != "" {
		filtered := items[:0]
		for _, p := range items {
			if strings.Contains(strings.ToLower(p.SKU), sku) {
				filtered = append(filtered, p)
			}
		}
		items = filtered
	}
	field, dir, _ := strings.Cut(q.Get("sort"), ",")
	if cmp, known := sortable[field]; known {
		sort.SliceStable(items, func(i, j int) bool {
			if dir == "desc" {
				return cmp(items[j], items[i]) < 0
			}
			return cmp(items[i], items[j]) < 0
		})
	}

	total := len(items)
	start := page * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	httpx.JSON(w, http.StatusOK, searchPage{
		Content:       items[start:end],
		TotalElements: total,
		TotalPages:    int(math.Ceil(float64(total) / float64(size))),
		Number:        page,
		Size:          size,
	})
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	var p Product
	if err := httpx.DecodeJSON(r, &p); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	s.mu.Lock()
	p.ID = s.nextID
	s.nextID++
	s.products[p.ID] = p
	s.mu.Unlock()
	httpx.JSON(w, http.StatusCreated, p)
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	var p Product
	if err := httpx.DecodeJSON(r, &p); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	s.mu.Lock()
	_, ok := s.products[id]
	if ok {
		p.ID = id
		s.products[id] = p
	}
	s.mu.Unlock()
	if !ok {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	s.mu.Lock()
	_, ok := s.products[id]
	delete(s.products, id)
	s.mu.Unlock()
	if !ok {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) salesReport(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	report := s.sales
	s.mu.Unlock()
	if report.BestSellingProducts == nil {
		report.BestSellingProducts = []BestSeller{}
	}
	httpx.JSON(w, http.StatusOK, report)
}

type lowStockItem struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Stock int    `json:"stock"`
}

type inventoryReport struct {
	LowStockProducts           []lowStockItem `json:"lowStockProducts"`
	TotalInventoryValueByCost  float64        `json:"totalInventoryValueByCost"`
	TotalInventoryValueByPrice float64        `json:"totalInventoryValueByPrice"`
}

func (s *Server) inventoryReport(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	threshold := s.lowStock
	items := s.sortedLocked()
	s.mu.Unlock()

	report := inventoryReport{LowStockProducts: []lowStockItem{}}
	for _, p := range items {
		report.TotalInventoryValueByCost += p.Cost * float64(p.Stock)
		report.TotalInventoryValueByPrice += p.Price * float64(p.Stock)
		if p.Stock < threshold {
			report.LowStockProducts = append(report.LowStockProducts, lowStockItem{ID: p.ID, Name: p.Name, Stock: p.Stock})
		}
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (s *Server) sortedLocked() []Product {
	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
