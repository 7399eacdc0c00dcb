package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inventra/inventra/internal/apiclient"
	"github.com/inventra/inventra/internal/mockapi"
	"github.com/inventra/inventra/internal/mockapi/mockapitest"
	"github.com/inventra/inventra/internal/shared"
)

func TestContextDerivesStateFromStore(t *testing.T) {
	store := &MemoryStore{}
	ac := NewContext(store)
	assert.False(t, ac.IsAuthenticated())
	assert.Empty(t, ac.Authorization())

	store.SetToken("abc")
	ac.Login()
	assert.True(t, ac.IsAuthenticated())
	assert.Equal(t, "Bearer abc", ac.Authorization())

	restored := NewContext(store)
	assert.True(t, restored.IsAuthenticated())

	restored.Logout()
	assert.False(t, restored.IsAuthenticated())
	assert.Empty(t, restored.Authorization())
	assert.Empty(t, store.Token())
}

func TestSessionStoreUsesTokenKey(t *testing.T) {
	sess := &shared.Session{}
	store := NewSessionStore(sess)
	store.SetToken("xyz")
	assert.Equal(t, "xyz", sess.Get(TokenKey))
	store.ClearToken()
	assert.Empty(t, sess.Get(TokenKey))

	empty := NewSessionStore(nil)
	empty.SetToken("ignored")
	assert.Empty(t, empty.Token())
}

func TestFromContextDefaultsToAnonymous(t *testing.T) {
	ac := FromContext(context.Background())
	require.NotNil(t, ac)
	assert.False(t, ac.IsAuthenticated())
}

func newService(t *testing.T) (*Service, *mockapi.Server) {
	t.Helper()
	api := mockapi.New()
	api.AddUser("admin", "admin123")
	srv := mockapitest.Start(t, api)
	return NewService(apiclient.New(srv.URL, time.Second)), api
}

func TestServiceLogin(t *testing.T) {
	svc, api := newService(t)

	token, err := svc.Login(context.Background(), "admin", "admin123")
	require.NoError(t, err)
	assert.Equal(t, api.TokenFor("admin"), token)

	rec, ok := api.LastRequest("/api/auth/login")
	require.True(t, ok)
	assert.Empty(t, rec.Authorization)
}

func TestServiceLoginRejected(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Login(context.Background(), "admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestServiceLoginRejectsMissingToken(t *testing.T) {
	svc, api := newService(t)
	api.Override(http.MethodPost, "/api/auth/login", http.StatusOK, `{"user":"admin"}`)

	_, err := svc.Login(context.Background(), "admin", "admin123")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidCredentials))
	var schemaErr *apiclient.SchemaError
	assert.ErrorAs(t, err, &schemaErr)
}

func withAuth(token string) *http.Request {
	sess := &shared.Session{}
	if token != "" {
		sess.Set(TokenKey, token)
	}
	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	ctx := shared.ContextWithSession(req.Context(), sess)
	ctx = WithContext(ctx, NewContext(NewSessionStore(sess)))
	return req.WithContext(ctx)
}

func TestRequireAuth(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	res := httptest.NewRecorder()
	RequireAuth(next).ServeHTTP(res, withAuth("abc"))
	assert.Equal(t, http.StatusNoContent, res.Code)

	res = httptest.NewRecorder()
	req := withAuth("")
	RequireAuth(next).ServeHTTP(res, req)
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/login", res.Header().Get("Location"))
	flash := shared.PopFlash(req)
	require.NotNil(t, flash)
	assert.Equal(t, msgLoginRequired, flash.Message)
}

func TestRequireAuthDatastarRequest(t *testing.T) {
	req := withAuth("")
	req.Header.Set("Datastar-Request", "true")
	res := httptest.NewRecorder()
	RequireAuth(http.NotFoundHandler()).ServeHTTP(res, req)

	assert.Contains(t, res.Header().Get("Content-Type"), "text/event-stream")
	assert.Contains(t, res.Body.String(), "window.location.assign('/login')")
}

func TestRejectExpired(t *testing.T) {
	req := withAuth("abc")
	res := httptest.NewRecorder()

	assert.False(t, RejectExpired(res, req, errors.New("boom")))
	assert.False(t, RejectExpired(res, req, &apiclient.StatusError{StatusCode: http.StatusInternalServerError}))
	assert.True(t, FromContext(req.Context()).IsAuthenticated())

	assert.True(t, RejectExpired(res, req, &apiclient.StatusError{StatusCode: http.StatusUnauthorized}))
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.False(t, FromContext(req.Context()).IsAuthenticated())
	sess := shared.SessionFromContext(req.Context())
	assert.Empty(t, sess.Get(TokenKey))
	flash := sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, msgSessionExpired, flash.Message)
}
