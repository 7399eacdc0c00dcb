// Package products serves the product management page: the server-driven
// table, the add/edit dialog and delete confirmation.
package products

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/inventra/inventra/internal/auth"
	"github.com/inventra/inventra/internal/catalog"
	"github.com/inventra/inventra/internal/datatable"
	"github.com/inventra/inventra/internal/export"
	"github.com/inventra/inventra/internal/reports"
	"github.com/inventra/inventra/internal/shared"
	"github.com/inventra/inventra/internal/view"
)

const (
	msgCreated      = "Produk baru berhasil ditambahkan!"
	msgUpdated      = "Produk berhasil diperbarui!"
	msgDeleted      = "Produk berhasil dihapus!"
	msgSaveFailed   = "Gagal menyimpan produk."
	msgDeleteFailed = "Gagal menghapus produk."
	msgLoadFailed   = "Gagal memuat data produk."
	msgExportFailed = "Gagal mengekspor data produk."
	msgNotFound     = "Produk tidak ditemukan."
	msgInvalidID    = "ID produk tidak valid."

	tableIdle = 30 * time.Minute
)

// Handler menangani endpoint HTTP untuk pengelolaan produk.
type Handler struct {
	logger    *slog.Logger
	catalog   *catalog.Service
	reports   *reports.Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	schema    datatable.Schema
	tables    *datatable.Registry[catalog.Product]
	validator *validator.Validate
}

// NewHandler constructs the products handler. pageSize is the table's
// default page size.
func NewHandler(logger *slog.Logger, catalogSvc *catalog.Service, reportsSvc *reports.Service, templates *view.Engine, csrf *shared.CSRFManager, pageSize int) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		catalog:   catalogSvc,
		reports:   reportsSvc,
		templates: templates,
		csrf:      csrf,
		schema: datatable.Schema{
			DefaultPageSize: pageSize,
			Sortable:        catalog.SortableFields,
			Filterable:      catalog.FilterableFields,
		},
		tables:    datatable.NewRegistry[catalog.Product](tableIdle),
		validator: validator.New(),
	}
}

// ForgetSession membuang state tabel milik sessionID.
func (h *Handler) ForgetSession(sessionID string) {
	h.tables.Forget(sessionID)
}

// MountRoutes registers product routes. Callers mount it under /products
// behind auth.RequireAuth.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/table", h.table)
	r.Get("/export.csv", h.exportCSV)
	r.Get("/export.xlsx", h.exportXLSX)
	r.Get("/new", h.showCreate)
	r.Get("/{id}/edit", h.showEdit)
	r.Post("/{id}/edit", h.update)
	r.Get("/{id}/delete", h.showDelete)
	r.Post("/{id}/delete", h.delete)
}

type listPageData struct {
	Table tableView
}

type deletePageData struct {
	Product    catalog.Product
	Action     string
	CancelHref string
}

// list renders the full page. A page load always refetches, so returning
// here after a write shows the server's current state.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ctrl := h.controller(r)
	target := datatable.FromQuery(r.URL.Query(), h.schema)

	snap, err := ctrl.Reset(r.Context(), h.fetcher(r), target)
	loadErr := ""
	switch {
	case errors.Is(err, datatable.ErrStale):
		snap = ctrl.Snapshot()
	case err != nil:
		if h.expired(w, r, err) {
			return
		}
		h.logger.Error("load products", slog.Any("error", err))
		snap.Result = datatable.Result[catalog.Product]{}
		loadErr = msgLoadFailed
	}

	var flash *shared.FlashMessage
	if loadErr != "" {
		flash = &shared.FlashMessage{Kind: shared.FlashError, Message: loadErr}
	}
	h.render(w, r, "pages/products.html", "Produk", listPageData{Table: buildTableView(snap, loadErr)}, flash, http.StatusOK)
}

func (h *Handler) showCreate(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, h.createPage(r, productForm{}, map[string]string{}), nil, http.StatusOK)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := formFromRequest(r)
	input, errs := h.validate(form)
	if len(errs) > 0 {
		h.renderForm(w, r, h.createPage(r, form, errs), nil, http.StatusBadRequest)
		return
	}

	created, err := h.service(r).Create(r.Context(), input)
	if err != nil {
		if h.expired(w, r, err) {
			return
		}
		h.logger.Error("create product", slog.Any("error", err))
		failure := &shared.FlashMessage{Kind: shared.FlashError, Message: msgSaveFailed}
		h.renderForm(w, r, h.createPage(r, form, map[string]string{}), failure, http.StatusBadGateway)
		return
	}
	h.logger.Info("product created", slog.Int64("id", created.ID), slog.String("sku", created.SKU))
	h.afterWrite(w, r, msgCreated)
}

func (h *Handler) showEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}
	product, ok := h.find(w, r, id)
	if !ok {
		return
	}
	h.renderForm(w, r, h.editPage(r, id, formFromProduct(product), map[string]string{}), nil, http.StatusOK)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := formFromRequest(r)
	input, errs := h.validate(form)
	if len(errs) > 0 {
		h.renderForm(w, r, h.editPage(r, id, form, errs), nil, http.StatusBadRequest)
		return
	}

	if _, err := h.service(r).Update(r.Context(), id, input.WithID(id)); err != nil {
		if h.expired(w, r, err) {
			return
		}
		h.logger.Error("update product", slog.Int64("id", id), slog.Any("error", err))
		failure := &shared.FlashMessage{Kind: shared.FlashError, Message: msgSaveFailed}
		h.renderForm(w, r, h.editPage(r, id, form, map[string]string{}), failure, http.StatusBadGateway)
		return
	}
	h.logger.Info("product updated", slog.Int64("id", id))
	h.afterWrite(w, r, msgUpdated)
}

func (h *Handler) showDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}
	product, ok := h.find(w, r, id)
	if !ok {
		return
	}
	query := h.returnQuery(r)
	data := deletePageData{
		Product:    product,
		Action:     "/products/" + strconv.FormatInt(id, 10) + "/delete?" + query,
		CancelHref: "/products?" + query,
	}
	h.render(w, r, "pages/product_delete.html", "Hapus Produk", data, nil, http.StatusOK)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}
	if err := h.service(r).Delete(r.Context(), id); err != nil {
		if h.expired(w, r, err) {
			return
		}
		h.logger.Error("delete product", slog.Int64("id", id), slog.Any("error", err))
		h.redirectWithFlash(w, r, h.listHref(r), shared.FlashError, msgDeleteFailed)
		return
	}
	h.logger.Info("product deleted", slog.Int64("id", id))
	h.afterWrite(w, r, msgDeleted)
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	products, ok := h.exportRows(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := export.WriteProductsCSV(&buf, products); err != nil {
		h.logger.Error("export csv", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.download(w, "text/csv; charset=utf-8", "produk.csv", buf.Bytes())
}

func (h *Handler) exportXLSX(w http.ResponseWriter, r *http.Request) {
	products, ok := h.exportRows(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := export.WriteProductsXLSX(&buf, products); err != nil {
		h.logger.Error("export xlsx", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.download(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "produk.xlsx", buf.Bytes())
}

func (h *Handler) exportRows(w http.ResponseWriter, r *http.Request) ([]catalog.Product, bool) {
	products, err := h.service(r).List(r.Context())
	if err != nil {
		if h.expired(w, r, err) {
			return nil, false
		}
		h.logger.Error("export products", slog.Any("error", err))
		h.redirectWithFlash(w, r, h.listHref(r), shared.FlashError, msgExportFailed)
		return nil, false
	}
	return products, true
}

func (h *Handler) download(w http.ResponseWriter, contentType, filename string, payload []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

// afterWrite drops cached reports and returns to the list, which refetches.
func (h *Handler) afterWrite(w http.ResponseWriter, r *http.Request, message string) {
	if h.reports != nil {
		if err := h.reports.Invalidate(r.Context()); err != nil {
			h.logger.Warn("invalidate report cache", slog.Any("error", err))
		}
	}
	h.redirectWithFlash(w, r, h.listHref(r), shared.FlashSuccess, message)
}

func (h *Handler) find(w http.ResponseWriter, r *http.Request, id int64) (catalog.Product, bool) {
	product, err := h.service(r).Find(r.Context(), "find:"+sessionKey(r), id)
	if err == nil {
		return product, true
	}
	if errors.Is(err, catalog.ErrNotFound) {
		h.redirectWithFlash(w, r, h.listHref(r), shared.FlashError, msgNotFound)
		return catalog.Product{}, false
	}
	if !h.expired(w, r, err) {
		h.logger.Error("find product", slog.Int64("id", id), slog.Any("error", err))
		h.redirectWithFlash(w, r, h.listHref(r), shared.FlashError, msgLoadFailed)
	}
	return catalog.Product{}, false
}

func (h *Handler) expired(w http.ResponseWriter, r *http.Request, err error) bool {
	if !auth.RejectExpired(w, r, err) {
		return false
	}
	h.tables.Forget(sessionKey(r))
	h.logger.Info("api token rejected, logged out", slog.String("path", r.URL.Path))
	return true
}

func (h *Handler) productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, msgInvalidID, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *Handler) service(r *http.Request) *catalog.Service {
	return h.catalog.For(auth.FromContext(r.Context()))
}

func (h *Handler) fetcher(r *http.Request) datatable.FetchFunc[catalog.Product] {
	svc := h.service(r)
	return func(ctx context.Context, p datatable.FetchParams) (datatable.Result[catalog.Product], error) {
		page, err := svc.ListPaginated(ctx, catalog.PageRequest{
			Page:    p.Page,
			Size:    p.Size,
			Sort:    p.Sort,
			Order:   p.Order,
			Filters: p.Filters,
		})
		if err != nil {
			return datatable.Result[catalog.Product]{}, err
		}
		return datatable.Result[catalog.Product]{Rows: page.Data, Total: page.Total, TotalPages: page.TotalPages}, nil
	}
}

func (h *Handler) controller(r *http.Request) *datatable.Controller[catalog.Product] {
	return h.tables.Get(sessionKey(r), func() datatable.State { return datatable.New(h.schema) })
}

// returnQuery is the table query carried through dialogs, normalised so
// only known parameters survive.
func (h *Handler) returnQuery(r *http.Request) string {
	return datatable.FromQuery(r.URL.Query(), h.schema).Query().Encode()
}

func (h *Handler) listHref(r *http.Request) string {
	return "/products?" + h.returnQuery(r)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, tpl, title string, data any, flash *shared.FlashMessage, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	if flash == nil {
		flash = shared.PopFlash(r)
	}
	viewData := view.TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: "/products",
		Data:        data,
	}
	if sess != nil {
		viewData.User = sess.User()
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Execute(w, tpl, viewData); err != nil {
		h.logger.Error("render template", slog.String("template", tpl), slog.Any("error", err))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	shared.AddFlash(r, kind, message)
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func sessionKey(r *http.Request) string {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		return sess.ID
	}
	return "anonymous"
}
