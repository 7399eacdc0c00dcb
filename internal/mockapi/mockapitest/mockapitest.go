// Package mockapitest serves mockapi.Server from tests.
package mockapitest

import (
	"net/http/httptest"
	"testing"

	"github.com/inventra/inventra/internal/mockapi"
)

// Start serves s on an httptest server closed with the test.
func Start(t testing.TB, s *mockapi.Server) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}
