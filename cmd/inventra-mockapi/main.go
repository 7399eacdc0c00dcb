// Command inventra-mockapi serves the in-memory inventory API with demo
// data for local development.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/inventra/inventra/internal/app"
	"github.com/inventra/inventra/internal/mockapi"
)

type config struct {
	Addr     string `envconfig:"MOCKAPI_ADDR" default:":8080"`
	Username string `envconfig:"MOCKAPI_USERNAME" default:"admin"`
	Password string `envconfig:"MOCKAPI_PASSWORD" default:"admin123"`
}

func demoProducts() []mockapi.Product {
	return []mockapi.Product{
		{Name: "Beras Premium 5kg", SKU: "BRS-005", Cost: 62000, Price: 75000, Stock: 40, Category: "Sembako", Supplier: "PT Padi Makmur", Description: "Beras pulen kemasan 5kg"},
		{Name: "Minyak Goreng 2L", SKU: "MYK-002", Cost: 30000, Price: 36500, Stock: 8, Category: "Sembako", Supplier: "CV Sawit Jaya"},
		{Name: "Gula Pasir 1kg", SKU: "GLA-001", Cost: 14500, Price: 17000, Stock: 55, Category: "Sembako", Supplier: "PT Manis Abadi"},
		{Name: "Kopi Bubuk 200g", SKU: "KPI-200", Cost: 21000, Price: 28000, Stock: 3, Category: "Minuman", Supplier: "Kopi Nusantara"},
		{Name: "Teh Celup isi 25", SKU: "TEH-025", Cost: 6500, Price: 9000, Stock: 70, Category: "Minuman", Supplier: "PT Daun Hijau"},
		{Name: "Sabun Mandi 90g", SKU: "SBN-090", Cost: 3200, Price: 4500, Stock: 120, Category: "Kebersihan", Supplier: "CV Bersih Selalu"},
		{Name: "Deterjen 800g", SKU: "DTJ-800", Cost: 17500, Price: 22000, Stock: 6, Category: "Kebersihan", Supplier: "CV Bersih Selalu"},
		{Name: "Mi Instan Goreng", SKU: "MIE-001", Cost: 2600, Price: 3500, Stock: 300, Category: "Makanan", Supplier: "PT Mie Sedap"},
		{Name: "Susu UHT 1L", SKU: "SSU-1000", Cost: 15000, Price: 19500, Stock: 24, Category: "Minuman", Supplier: "PT Sapi Perah"},
		{Name: "Telur Ayam 1kg", SKU: "TLR-001", Cost: 26000, Price: 30000, Stock: 15, Category: "Sembako", Supplier: "Peternakan Sejahtera"},
		{Name: "Kecap Manis 520ml", SKU: "KCP-520", Cost: 19000, Price: 23500, Stock: 9, Category: "Bumbu", Supplier: "PT Kedelai Hitam"},
		{Name: "Garam Dapur 250g", SKU: "GRM-250", Cost: 2000, Price: 3000, Stock: 80, Category: "Bumbu", Supplier: "CV Laut Biru"},
	}
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping mock api startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cfg config
	if err := envconfig.Process("", &cfg); err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	api := mockapi.New()
	api.AddUser(cfg.Username, cfg.Password)
	api.Seed(demoProducts()...)
	api.SetSales(mockapi.SalesReport{
		TotalRevenue:     12750000,
		TransactionCount: 184,
		BestSellingProducts: []mockapi.BestSeller{
			{ProductName: "Mi Instan Goreng", TotalSold: 420},
			{ProductName: "Beras Premium 5kg", TotalSold: 96},
			{ProductName: "Gula Pasir 1kg", TotalSold: 75},
		},
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting mock api", slog.String("addr", cfg.Addr), slog.String("user", cfg.Username))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("mock api", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
