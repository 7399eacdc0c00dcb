package products

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/inventra/inventra/internal/apiclient"
	"github.com/inventra/inventra/internal/auth"
	"github.com/inventra/inventra/internal/catalog"
	"github.com/inventra/inventra/internal/mockapi"
	"github.com/inventra/inventra/internal/mockapi/mockapitest"
	"github.com/inventra/inventra/internal/shared"
)

func signedInRequest(sessionID string) *http.Request {
	sess := &shared.Session{ID: sessionID}
	sess.Set(auth.TokenKey, "tok-admin")
	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	ctx := shared.ContextWithSession(req.Context(), sess)
	ctx = auth.WithContext(ctx, auth.NewContext(auth.NewSessionStore(sess)))
	return req.WithContext(ctx)
}

func TestForgetSessionDropsTableState(t *testing.T) {
	h := NewHandler(nil, nil, nil, nil, nil, 10)
	req := signedInRequest("sess-a")
	other := signedInRequest("sess-b")
	before := h.controller(req)
	kept := h.controller(other)

	h.ForgetSession("sess-a")
	assert.NotSame(t, before, h.controller(req))
	assert.Same(t, kept, h.controller(other))
}

func TestRejectedTokenDropsTableState(t *testing.T) {
	api := mockapi.New()
	api.Override(http.MethodGet, "/api/products/search", http.StatusUnauthorized, "")
	srv := mockapitest.Start(t, api)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, catalog.NewService(apiclient.New(srv.URL, time.Second)), nil, nil, nil, 10)

	req := signedInRequest("sess-a")
	before := h.controller(req)
	res := httptest.NewRecorder()
	h.list(res, req)

	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/login", res.Header().Get("Location"))
	assert.False(t, auth.FromContext(req.Context()).IsAuthenticated())
	assert.NotSame(t, before, h.controller(req))
}
