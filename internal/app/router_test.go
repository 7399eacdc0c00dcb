package app_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inventra/inventra/internal/apiclient"
	"github.com/inventra/inventra/internal/app"
	"github.com/inventra/inventra/internal/auth"
	"github.com/inventra/inventra/internal/catalog"
	"github.com/inventra/inventra/internal/dashboard"
	"github.com/inventra/inventra/internal/mockapi"
	"github.com/inventra/inventra/internal/mockapi/mockapitest"
	"github.com/inventra/inventra/internal/observability"
	"github.com/inventra/inventra/internal/pdf"
	"github.com/inventra/inventra/internal/products"
	"github.com/inventra/inventra/internal/reports"
	"github.com/inventra/inventra/internal/shared"
	"github.com/inventra/inventra/internal/view"
	_ "github.com/inventra/inventra/testing"
)

var csrfPattern = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

type harness struct {
	t       *testing.T
	api     *mockapi.Server
	server  *httptest.Server
	client  *http.Client
	retired *retiredSessions
}

type retiredSessions struct {
	mu  sync.Mutex
	ids []string
}

func (r *retiredSessions) add(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
}

func (r *retiredSessions) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	api := mockapi.New()
	api.AddUser("admin", "admin123")
	api.Seed(
		mockapi.Product{Name: "Kopi Bubuk", SKU: "KPI-200", Cost: 21000, Price: 28000, Stock: 3, Category: "Minuman", Supplier: "Kopi Nusantara"},
		mockapi.Product{Name: "Beras Premium", SKU: "BRS-005", Cost: 62000, Price: 75000, Stock: 40, Category: "Sembako", Supplier: "PT Padi Makmur"},
		mockapi.Product{Name: "Teh Celup", SKU: "TEH-025", Cost: 6500, Price: 9000, Stock: 70, Category: "Minuman", Supplier: "PT Daun Hijau"},
	)
	api.SetSales(mockapi.SalesReport{
		TotalRevenue:        1500000,
		TransactionCount:    12,
		BestSellingProducts: []mockapi.BestSeller{{ProductName: "Teh Celup", TotalSold: 9}},
	})
	apiSrv := mockapitest.Start(t, api)

	gotenberg := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.7 test"))
	}))
	t.Cleanup(gotenberg.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &app.Config{AppEnv: "test", AppRequestTimeout: 5 * time.Second, RateLimitPerMinute: 1000, TablePageSize: 10}
	templates, err := view.NewEngine()
	require.NoError(t, err)

	sessions := shared.NewSessionManager(rdb, "inventra_session", "session-secret", time.Hour, false)
	csrf := shared.NewCSRFManager("csrf-secret")
	metrics := observability.NewMetrics()
	client := apiclient.New(apiSrv.URL, 2*time.Second, apiclient.WithObserver(metrics))
	reportsSvc := reports.NewService(client, reports.NewCache(rdb, time.Minute, logger))

	authHandler := auth.NewHandler(logger, auth.NewService(client), templates, sessions, csrf)
	productsHandler := products.NewHandler(logger, catalog.NewService(client), reportsSvc, templates, csrf, cfg.TablePageSize)
	retired := &retiredSessions{}
	authHandler.OnSessionRetired(productsHandler.ForgetSession)
	authHandler.OnSessionRetired(retired.add)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Templates:        templates,
		SessionManager:   sessions,
		CSRFManager:      csrf,
		AuthHandler:      authHandler,
		ProductsHandler:  productsHandler,
		DashboardHandler: dashboard.NewHandler(logger, reportsSvc, pdf.NewClient(gotenberg.URL, 2*time.Second), templates, csrf),
		Metrics:          metrics,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &harness{
		t:       t,
		api:     api,
		server:  srv,
		retired: retired,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (h *harness) do(req *http.Request) (*http.Response, string) {
	h.t.Helper()
	res, err := h.client.Do(req)
	require.NoError(h.t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(h.t, err)
	return res, string(body)
}

func (h *harness) get(path string) (*http.Response, string) {
	h.t.Helper()
	req, err := http.NewRequest(http.MethodGet, h.server.URL+path, nil)
	require.NoError(h.t, err)
	return h.do(req)
}

func (h *harness) datastar(path string) (*http.Response, string) {
	h.t.Helper()
	req, err := http.NewRequest(http.MethodGet, h.server.URL+path, nil)
	require.NoError(h.t, err)
	req.Header.Set("Datastar-Request", "true")
	return h.do(req)
}

func (h *harness) post(path string, form url.Values) (*http.Response, string) {
	h.t.Helper()
	req, err := http.NewRequest(http.MethodPost, h.server.URL+path, strings.NewReader(form.Encode()))
	require.NoError(h.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return h.do(req)
}

// token reads the CSRF token from a rendered page.
func (h *harness) token(path string) string {
	h.t.Helper()
	_, body := h.get(path)
	m := csrfPattern.FindStringSubmatch(body)
	require.Len(h.t, m, 2, "csrf token missing on %s", path)
	return m[1]
}

func (h *harness) login() {
	h.t.Helper()
	res, _ := h.post("/login", url.Values{
		"csrf_token": {h.token("/login")},
		"username":   {"admin"},
		"password":   {"admin123"},
	})
	require.Equal(h.t, http.StatusSeeOther, res.StatusCode)
	require.Equal(h.t, "/", res.Header.Get("Location"))
}

// sessionID reads the session id from the signed cookie.
func (h *harness) sessionID() string {
	h.t.Helper()
	u, err := url.Parse(h.server.URL)
	require.NoError(h.t, err)
	for _, c := range h.client.Jar.Cookies(u) {
		if c.Name == "inventra_session" {
			id, _, _ := strings.Cut(c.Value, ".")
			return id
		}
	}
	h.t.Fatal("session cookie missing")
	return ""
}

func (h *harness) lastSearch() url.Values {
	h.t.Helper()
	rec, ok := h.api.LastRequest("/api/products/search")
	require.True(h.t, ok, "no search request recorded")
	q, err := url.ParseQuery(rec.Query)
	require.NoError(h.t, err)
	return q
}

func assertOrder(t *testing.T, body string, names ...string) {
	t.Helper()
	last := -1
	for _, name := range names {
		idx := strings.Index(body, name)
		require.NotEqual(t, -1, idx, "%q missing", name)
		assert.Greater(t, idx, last, "%q out of order", name)
		last = idx
	}
}

func TestHealthz(t *testing.T) {
	h := newHarness(t)
	res, body := h.get("/healthz")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, body)
}

func TestStaticAssetsAreCached(t *testing.T) {
	h := newHarness(t)
	res, _ := h.get("/static/css/app.css")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "public, max-age=3600", res.Header.Get("Cache-Control"))
}

func TestProtectedPagesRedirectToLogin(t *testing.T) {
	h := newHarness(t)
	for _, path := range []string{"/", "/products", "/products/new"} {
		res, _ := h.get(path)
		assert.Equal(t, http.StatusSeeOther, res.StatusCode, path)
		assert.Equal(t, "/login", res.Header.Get("Location"), path)
	}
	_, body := h.get("/login")
	assert.Contains(t, body, "Silakan masuk terlebih dahulu.")
}

func TestProtectedDatastarRequestNavigatesToLogin(t *testing.T) {
	h := newHarness(t)
	res, body := h.datastar("/products/table?page=1&size=10")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Header.Get("Content-Type"), "text/event-stream")
	assert.Contains(t, body, "window.location.assign('/login')")
}

func TestPostWithoutCSRFTokenIsForbidden(t *testing.T) {
	h := newHarness(t)
	h.get("/login")
	res, _ := h.post("/login", url.Values{"username": {"admin"}, "password": {"admin123"}})
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
}

func TestLoginValidationAndFailure(t *testing.T) {
	h := newHarness(t)

	res, body := h.post("/login", url.Values{"csrf_token": {h.token("/login")}})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Contains(t, body, "Username wajib diisi.")
	assert.Contains(t, body, "Password wajib diisi.")

	res, body = h.post("/login", url.Values{
		"csrf_token": {h.token("/login")},
		"username":   {"admin"},
		"password":   {"salah"},
	})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Contains(t, body, "Login gagal! Cek kembali username dan password Anda.")
	assert.Contains(t, body, `value="admin"`)

	res, _ = h.get("/")
	assert.Equal(t, http.StatusSeeOther, res.StatusCode)
}

func TestLoginShowsDashboard(t *testing.T) {
	h := newHarness(t)
	h.login()

	res, body := h.get("/")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "Login berhasil! Selamat datang kembali.")
	assert.Contains(t, body, "Rp 1.500.000")
	assert.Contains(t, body, "Teh Celup")
	// Kopi Bubuk is the only product under the low-stock threshold.
	assert.Contains(t, body, "Kopi Bubuk")
	assert.NotContains(t, body, "Beras Premium")

	rec, ok := h.api.LastRequest("/api/reports/sales")
	require.True(t, ok)
	assert.Equal(t, "Bearer tok-admin", rec.Authorization)

	res, _ = h.get("/login")
	assert.Equal(t, http.StatusSeeOther, res.StatusCode)
}

func TestDashboardReportsLoadFailure(t *testing.T) {
	h := newHarness(t)
	h.login()
	h.api.Override(http.MethodGet, "/api/reports/sales", http.StatusInternalServerError, "")

	res, body := h.get("/")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "Gagal memuat data laporan. Coba lagi nanti.")
	assert.NotContains(t, body, "Unduh PDF")
}

func TestDashboardRendersNullTotalsAsZero(t *testing.T) {
	h := newHarness(t)
	h.login()
	h.api.Override(http.MethodGet, "/api/reports/sales", http.StatusOK,
		`{"totalRevenue":null,"transactionCount":null,"bestSellingProducts":[]}`)

	res, body := h.get("/")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.NotContains(t, body, "Gagal memuat data laporan. Coba lagi nanti.")
	assert.Contains(t, body, `<p class="metric">Rp 0</p>`)
	assert.Contains(t, body, `<p class="metric">0</p>`)
}

func TestInventoryPDF(t *testing.T) {
	h := newHarness(t)
	h.login()

	res, body := h.get("/reports/inventory.pdf")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "application/pdf", res.Header.Get("Content-Type"))
	assert.Contains(t, res.Header.Get("Content-Disposition"), "laporan-")
	assert.True(t, strings.HasPrefix(body, "%PDF"))
}

func TestProductsListSortsOnServer(t *testing.T) {
	h := newHarness(t)
	h.login()

	res, body := h.get("/products?page=1&size=10&sort=name&order=asc")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assertOrder(t, body, "Beras Premium", "Kopi Bubuk", "Teh Celup")
	assert.Contains(t, body, "Halaman 1 dari 1")

	q := h.lastSearch()
	assert.Equal(t, "0", q.Get("page"))
	assert.Equal(t, "10", q.Get("size"))
	assert.Equal(t, "name,asc", q.Get("sort"))
}

func TestProductsTableStreamsPatch(t *testing.T) {
	h := newHarness(t)
	h.login()
	h.get("/products")

	res, body := h.datastar("/products/table?page=1&size=10&sort=price&order=desc")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Header.Get("Content-Type"), "text/event-stream")
	assert.Contains(t, body, "datastar-patch-elements")
	assert.Contains(t, body, `id="product-table"`)
	assert.Contains(t, body, "replaceState")
	assertOrder(t, body, "Beras Premium", "Kopi Bubuk", "Teh Celup")
	assert.Equal(t, "price,desc", h.lastSearch().Get("sort"))
}

func TestProductsTableFilterReadsSignals(t *testing.T) {
	h := newHarness(t)
	h.login()
	h.get("/products")

	signals := url.QueryEscape(`{"filtername":"kopi"}`)
	res, body := h.datastar("/products/table?page=1&size=10&op=filter&datastar=" + signals)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "Kopi Bubuk")
	assert.NotContains(t, body, "Beras Premium")
	assert.Equal(t, "kopi", h.lastSearch().Get("name"))
}

func TestProductsTableSelectionDoesNotRefetch(t *testing.T) {
	h := newHarness(t)
	h.login()
	h.get("/products")
	before := len(h.api.Requests())

	res, body := h.datastar("/products/table?page=1&size=10&op=select&row=2")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "1 dari 3 baris dipilih.")
	assert.Equal(t, before, len(h.api.Requests()))
}

func TestCreateProduct(t *testing.T) {
	h := newHarness(t)
	h.login()

	res, body := h.post("/products?page=1&size=10", url.Values{"csrf_token": {h.token("/products/new")}})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Contains(t, body, "Nama wajib diisi.")
	assert.Contains(t, body, "Harga Jual wajib diisi.")
	assert.Len(t, h.api.Products(), 3)

	res, _ = h.post("/products?page=1&size=10", url.Values{
		"csrf_token": {h.token("/products/new")},
		"name":       {"Gula Pasir"},
		"sku":        {"GLA-001"},
		"cost":       {"14500"},
		"price":      {"17000"},
		"stock":      {"55"},
		"category":   {"Sembako"},
		"supplier":   {"PT Manis Abadi"},
	})
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, "/products?page=1&size=10", res.Header.Get("Location"))
	assert.Len(t, h.api.Products(), 4)

	_, body = h.get(res.Header.Get("Location"))
	assert.Contains(t, body, "Produk baru berhasil ditambahkan!")
	assert.Contains(t, body, "Gula Pasir")
}

func TestEditProduct(t *testing.T) {
	h := newHarness(t)
	h.login()

	res, body := h.get("/products/2/edit?page=1&size=10")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, `value="Beras Premium"`)

	res, _ = h.post("/products/2/edit?page=1&size=10", url.Values{
		"csrf_token": {h.token("/products/2/edit")},
		"name":       {"Beras Pandan"},
		"sku":        {"BRS-005"},
		"cost":       {"62000"},
		"price":      {"78000"},
		"stock":      {"40"},
		"category":   {"Sembako"},
		"supplier":   {"PT Padi Makmur"},
	})
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	for _, p := range h.api.Products() {
		if p.ID == 2 {
			assert.Equal(t, "Beras Pandan", p.Name)
			assert.Equal(t, 78000.0, p.Price)
		}
	}

	res, _ = h.get("/products/99/edit")
	assert.Equal(t, http.StatusSeeOther, res.StatusCode)
	_, body = h.get(res.Header.Get("Location"))
	assert.Contains(t, body, "Produk tidak ditemukan.")
}

func TestDeleteProduct(t *testing.T) {
	h := newHarness(t)
	h.login()

	_, body := h.get("/products/1/delete")
	assert.Contains(t, body, "Kopi Bubuk")

	res, _ := h.post("/products/1/delete", url.Values{"csrf_token": {h.token("/products/1/delete")}})
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Len(t, h.api.Products(), 2)

	_, body = h.get(res.Header.Get("Location"))
	assert.Contains(t, body, "Produk berhasil dihapus!")
	assert.NotContains(t, body, "Kopi Bubuk")
}

func TestExportCSV(t *testing.T) {
	h := newHarness(t)
	h.login()

	res, body := h.get("/products/export.csv")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Header.Get("Content-Type"), "text/csv")
	assert.Contains(t, res.Header.Get("Content-Disposition"), "produk.csv")
	assert.True(t, strings.HasPrefix(body, "ID,Nama,SKU"))
	assert.Contains(t, body, "Kopi Bubuk")
}

func TestRejectedTokenLogsOut(t *testing.T) {
	h := newHarness(t)
	h.login()
	h.api.Override(http.MethodGet, "/api/products/search", http.StatusUnauthorized, "")

	res, _ := h.get("/products")
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, "/login", res.Header.Get("Location"))

	res, _ = h.get("/")
	assert.Equal(t, http.StatusSeeOther, res.StatusCode)
	_, body := h.get("/login")
	assert.Contains(t, body, "Sesi Anda telah berakhir. Silakan masuk kembali.")
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	h.login()

	res, _ := h.post("/logout", url.Values{"csrf_token": {h.token("/products")}})
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, "/login", res.Header.Get("Location"))

	_, body := h.get("/login")
	assert.Contains(t, body, "Anda telah keluar.")
	res, _ = h.get("/")
	assert.Equal(t, http.StatusSeeOther, res.StatusCode)
}

func TestLoginAndLogoutRetireSessions(t *testing.T) {
	h := newHarness(t)
	_, _ = h.get("/login")
	before := h.sessionID()

	h.login()
	active := h.sessionID()
	assert.NotEqual(t, before, active)
	assert.Equal(t, []string{before}, h.retired.list())

	_, _ = h.get("/products")
	res, _ := h.post("/logout", url.Values{"csrf_token": {h.token("/products")}})
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, []string{before, active}, h.retired.list())
	assert.NotEqual(t, active, h.sessionID())
}

func TestMetricsRecordAPICalls(t *testing.T) {
	h := newHarness(t)
	h.login()

	_, body := h.get("/metrics")
	assert.Contains(t, body, `inventra_api_requests_total{endpoint="auth.login",outcome="ok"} 1`)
}
