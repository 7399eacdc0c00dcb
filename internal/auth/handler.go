package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/inventra/inventra/internal/shared"
	"github.com/inventra/inventra/internal/view"
)

const (
	msgLoginFailed  = "Login gagal! Cek kembali username dan password Anda."
	msgLoginSuccess = "Login berhasil! Selamat datang kembali."
	msgLoggedOut    = "Anda telah keluar."

	msgLoginRequired  = "Silakan masuk terlebih dahulu."
	msgSessionExpired = "Sesi Anda telah berakhir. Silakan masuk kembali."
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	templates      *view.Engine
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	validator      *validator.Validate
	retired        []func(sessionID string)
}

// NewHandler membuat handler autentikasi baru.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		templates:      templates,
		sessionManager: sessions,
		csrfManager:    csrf,
		validator:      validator.New(),
	}
}

// OnSessionRetired registers fn to run with the old session id whenever
// login or logout moves the user to a fresh session.
func (h *Handler) OnSessionRetired(fn func(sessionID string)) {
	h.retired = append(h.retired, fn)
}

func (h *Handler) retire(sessionID string) {
	for _, fn := range h.retired {
		fn(sessionID)
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
}

type loginForm struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

type loginPageData struct {
	Form   loginForm
	Errors map[string]string
}

var loginFieldMessages = map[string]string{
	"Username": "Username wajib diisi.",
	"Password": "Password wajib diisi.",
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	if FromContext(r.Context()).IsAuthenticated() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.render(w, r, loginPageData{Errors: map[string]string{}}, shared.PopFlash(r), http.StatusOK)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	form := loginForm{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Password: r.PostFormValue("password"),
	}
	errs := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fieldErr := range verrs {
				errs[fieldErr.Field()] = loginFieldMessages[fieldErr.Field()]
			}
		}
	}
	form.Password = ""
	if len(errs) > 0 {
		h.render(w, r, loginPageData{Form: form, Errors: errs}, nil, http.StatusBadRequest)
		return
	}

	token, err := h.service.Login(r.Context(), form.Username, r.PostFormValue("password"))
	if err != nil {
		h.logger.Warn("login failed", slog.String("username", form.Username), slog.Any("error", err))
		failure := &shared.FlashMessage{Kind: shared.FlashError, Message: msgLoginFailed}
		h.render(w, r, loginPageData{Form: form, Errors: map[string]string{}}, failure, http.StatusBadRequest)
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	retiredID := sess.ID
	h.sessionManager.Renew(sess)
	h.csrfManager.Rotate(sess)
	h.retire(retiredID)

	ac := FromContext(r.Context())
	ac.Store().SetToken(token)
	ac.Login()
	sess.SetUser(form.Username)
	sess.AddFlash(shared.FlashMessage{Kind: shared.FlashSuccess, Message: msgLoginSuccess})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	FromContext(r.Context()).Logout()
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.SetUser("")
		retiredID := sess.ID
		h.sessionManager.Renew(sess)
		h.csrfManager.Rotate(sess)
		h.retire(retiredID)
		sess.AddFlash(shared.FlashMessage{Kind: shared.FlashInfo, Message: msgLoggedOut})
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, data loginPageData, flash *shared.FlashMessage, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrfManager.EnsureToken(r.Context(), sess)
	viewData := view.TemplateData{
		Title:       "Login",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, "pages/login.html", viewData); err != nil {
		h.logger.Error("render login", slog.Any("error", err))
	}
}
