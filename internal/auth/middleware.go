package auth

import (
	"context"
	"net/http"

	"github.com/starfederation/datastar-go/datastar"

	"github.com/inventra/inventra/internal/apiclient"
	"github.com/inventra/inventra/internal/shared"
)

type contextKey struct{}

// WithContext stores the auth context on ctx.
func WithContext(ctx context.Context, ac *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

// FromContext returns the auth context of the request. A request that did
// not pass through Middleware gets an unauthenticated context.
func FromContext(ctx context.Context) *Context {
	if ac, ok := ctx.Value(contextKey{}).(*Context); ok && ac != nil {
		return ac
	}
	return NewContext(&MemoryStore{})
}

// Middleware builds the auth context from the session token.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		ac := NewContext(NewSessionStore(sess))
		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), ac)))
	})
}

// RequireAuth sends unauthenticated requests to the login page. Datastar
// requests receive a script event that navigates the browser instead.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if FromContext(r.Context()).IsAuthenticated() {
			next.ServeHTTP(w, r)
			return
		}
		shared.AddFlash(r, shared.FlashInfo, msgLoginRequired)
		if r.Header.Get("Datastar-Request") == "true" {
			sse := datastar.NewSSE(w, r)
			_ = sse.ExecuteScript("window.location.assign('/login')")
			return
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	})
}

// RejectExpired handles a 401 from the API: the stored token is no longer
// valid, so the user is logged out and sent to the login page. It reports
// whether the response was written.
func RejectExpired(w http.ResponseWriter, r *http.Request, err error) bool {
	if apiclient.StatusCode(err) != http.StatusUnauthorized {
		return false
	}
	FromContext(r.Context()).Logout()
	shared.AddFlash(r, shared.FlashInfo, msgSessionExpired)
	if r.Header.Get("Datastar-Request") == "true" {
		_ = datastar.NewSSE(w, r).ExecuteScript("window.location.assign('/login')")
		return true
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
	return true
}
