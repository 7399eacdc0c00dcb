// Package reports fetches the read-only sales and inventory reports.
package reports

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/inventra/inventra/internal/apiclient"
)

// Service membungkus endpoint laporan penjualan dan inventaris.
type Service struct {
	client *apiclient.Client
	cache  *Cache
	scope  string
}

// NewService membuat Service baru. cache boleh nil.
func NewService(client *apiclient.Client, cache *Cache) *Service {
	return &Service{client: client, cache: cache, scope: "anonymous"}
}

// For returns a Service whose calls carry creds. Cached snapshots are
// partitioned by credential so users never read each other's entries.
func (s *Service) For(creds apiclient.Credentials) *Service {
	scope := "anonymous"
	if creds != nil {
		if auth := creds.Authorization(); auth != "" {
			sum := sha256.Sum256([]byte(auth))
			scope = hex.EncodeToString(sum[:8])
		}
	}
	return &Service{client: s.client.WithCredentials(creds), cache: s.cache, scope: scope}
}

// Sales fetches GET /api/reports/sales.
func (s *Service) Sales(ctx context.Context) (SalesReport, error) {
	w, err := apiclient.Get[salesWire](ctx, s.client, "/api/reports/sales", nil, "reports.sales")
	if err != nil {
		return SalesReport{}, err
	}
	return w.report(), nil
}

// Inventory fetches GET /api/reports/inventory.
func (s *Service) Inventory(ctx context.Context) (InventoryReport, error) {
	w, err := apiclient.Get[inventoryWire](ctx, s.client, "/api/reports/inventory", nil, "reports.inventory")
	if err != nil {
		return InventoryReport{}, err
	}
	return w.report(), nil
}

// Snapshot fetches both reports concurrently. The first failure cancels the
// other call and is returned.
func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	key, err := s.cache.BuildKey(ctx, "reports", "snapshot", s.scope)
	if err != nil {
		s.cache.logger.Warn("reports cache: version lookup failed", slog.Any("error", err))
		key = ""
	}
	var snap Snapshot
	err = s.cache.FetchJSON(ctx, key, &snap, func(ctx context.Context) (any, error) {
		return s.fetchSnapshot(ctx)
	})
	return snap, err
}

func (s *Service) fetchSnapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sales, err := s.Sales(gctx)
		if err != nil {
			return err
		}
		snap.Sales = sales
		return nil
	})
	g.Go(func() error {
		inv, err := s.Inventory(gctx)
		if err != nil {
			return err
		}
		snap.Inventory = inv
		return nil
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Invalidate membuang snapshot tersimpan setelah katalog berubah.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}
