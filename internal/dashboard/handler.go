// Package dashboard renders the report overview and its PDF export.
package dashboard

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/inventra/inventra/internal/auth"
	"github.com/inventra/inventra/internal/pdf"
	"github.com/inventra/inventra/internal/platform/httpx"
	"github.com/inventra/inventra/internal/reports"
	"github.com/inventra/inventra/internal/shared"
	"github.com/inventra/inventra/internal/view"
)

const (
	msgLoaded     = "Data laporan berhasil dimuat."
	msgLoadFailed = "Gagal memuat data laporan. Coba lagi nanti."
	msgPDFFailed  = "Gagal membuat PDF laporan."
)

// Handler menangani halaman dashboard dan ekspor PDF laporan.
type Handler struct {
	logger    *slog.Logger
	reports   *reports.Service
	pdf       *pdf.Client
	templates *view.Engine
	csrf      *shared.CSRFManager
	now       func() time.Time
}

// NewHandler membuat handler dashboard baru. pdfClient boleh nil; ekspor PDF
// lalu menjawab 503.
func NewHandler(logger *slog.Logger, reportsSvc *reports.Service, pdfClient *pdf.Client, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		reports:   reportsSvc,
		pdf:       pdfClient,
		templates: templates,
		csrf:      csrf,
		now:       time.Now,
	}
}

// MountRoutes mendaftarkan rute dashboard di belakang auth.RequireAuth.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.show)
	r.Get("/reports/inventory.pdf", h.inventoryPDF)
	r.Get("/reports/pdf/ping", h.pingPDF)
}

type pageData struct {
	Loaded      bool
	Sales       reports.SalesReport
	Inventory   reports.InventoryReport
	GeneratedAt time.Time
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	flash := shared.PopFlash(r)
	data := pageData{GeneratedAt: h.now()}

	snap, err := h.reports.For(auth.FromContext(r.Context())).Snapshot(r.Context())
	switch {
	case err == nil:
		data.Loaded = true
		data.Sales = snap.Sales
		data.Inventory = snap.Inventory
		if flash == nil {
			flash = &shared.FlashMessage{Kind: shared.FlashSuccess, Message: msgLoaded}
		}
	case auth.RejectExpired(w, r, err):
		return
	default:
		h.logger.Error("load reports", slog.Any("error", err))
		flash = &shared.FlashMessage{Kind: shared.FlashError, Message: msgLoadFailed}
	}

	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	viewData := view.TemplateData{
		Title:       "Dashboard",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if sess != nil {
		viewData.User = sess.User()
	}
	if err := h.templates.Render(w, "pages/dashboard.html", viewData); err != nil {
		h.logger.Error("render dashboard", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) inventoryPDF(w http.ResponseWriter, r *http.Request) {
	snap, err := h.reports.For(auth.FromContext(r.Context())).Snapshot(r.Context())
	if err != nil {
		if auth.RejectExpired(w, r, err) {
			return
		}
		h.logger.Error("load reports for pdf", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/", shared.FlashError, msgLoadFailed)
		return
	}

	html, err := h.templates.String("pages/report_pdf.html", pageData{
		Loaded:      true,
		Sales:       snap.Sales,
		Inventory:   snap.Inventory,
		GeneratedAt: h.now(),
	})
	if err != nil {
		h.logger.Error("render report html", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	doc, err := h.pdf.RenderHTML(r.Context(), html)
	if err != nil {
		if errors.Is(err, pdf.ErrNotConfigured) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}
		h.logger.Error("render report pdf", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/", shared.FlashError, msgPDFFailed)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="laporan-`+h.now().Format("20060102")+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

func (h *Handler) pingPDF(w http.ResponseWriter, r *http.Request) {
	if err := h.pdf.Ping(r.Context()); err != nil {
		h.logger.Warn("gotenberg ping failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "PDF service unavailable", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	shared.AddFlash(r, kind, message)
	http.Redirect(w, r, location, http.StatusSeeOther)
}
