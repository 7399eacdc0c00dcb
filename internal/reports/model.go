package reports

// SalesReport is a read-only snapshot of sales totals.
type SalesReport struct {
	TotalRevenue        float64      `json:"totalRevenue"`
	TransactionCount    int          `json:"transactionCount"`
	BestSellingProducts []BestSeller `json:"bestSellingProducts"`
}

// BestSeller pairs a product name with units sold, in server order.
type BestSeller struct {
	ProductName string `json:"productName"`
	TotalSold   int    `json:"totalSold"`
}

// InventoryReport lists low-stock items and aggregate stock value. The
// low-stock threshold is decided by the server.
type InventoryReport struct {
	LowStockProducts           []LowStockItem `json:"lowStockProducts"`
	TotalInventoryValueByCost  float64        `json:"totalInventoryValueByCost"`
	TotalInventoryValueByPrice float64        `json:"totalInventoryValueByPrice"`
}

// LowStockItem is one entry of the low-stock list.
type LowStockItem struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Stock int    `json:"stock"`
}

// Snapshot bundles both reports for the dashboard.
type Snapshot struct {
	Sales     SalesReport     `json:"sales"`
	Inventory InventoryReport `json:"inventory"`
}

// Aggregate totals may be null when nothing has been recorded yet.
type salesWire struct {
	TotalRevenue        *float64         `json:"totalRevenue"`
	TransactionCount    *int             `json:"transactionCount"`
	BestSellingProducts []bestSellerWire `json:"bestSellingProducts" validate:"required,dive"`
}

type bestSellerWire struct {
	ProductName *string `json:"productName" validate:"required"`
	TotalSold   *int    `json:"totalSold" validate:"required"`
}

func (w salesWire) report() SalesReport {
	out := SalesReport{
		TotalRevenue:        orZero(w.TotalRevenue),
		TransactionCount:    orZero(w.TransactionCount),
		BestSellingProducts: make([]BestSeller, len(w.BestSellingProducts)),
	}
	for i, b := range w.BestSellingProducts {
		out.BestSellingProducts[i] = BestSeller{ProductName: *b.ProductName, TotalSold: *b.TotalSold}
	}
	return out
}

type inventoryWire struct {
	LowStockProducts           []lowStockWire `json:"lowStockProducts" validate:"required,dive"`
	TotalInventoryValueByCost  *float64       `json:"totalInventoryValueByCost"`
	TotalInventoryValueByPrice *float64       `json:"totalInventoryValueByPrice"`
}

type lowStockWire struct {
	ID    *int64  `json:"id" validate:"required"`
	Name  *string `json:"name" validate:"required"`
	Stock *int    `json:"stock" validate:"required"`
}

func (w inventoryWire) report() InventoryReport {
	out := InventoryReport{
		LowStockProducts:           make([]LowStockItem, len(w.LowStockProducts)),
		TotalInventoryValueByCost:  orZero(w.TotalInventoryValueByCost),
		TotalInventoryValueByPrice: orZero(w.TotalInventoryValueByPrice),
	}
	for i, item := range w.LowStockProducts {
		out.LowStockProducts[i] = LowStockItem{ID: *item.ID, Name: *item.Name, Stock: *item.Stock}
	}
	return out
}

func orZero[T int | int64 | float64](v *T) T {
	if v == nil {
		return 0
	}
	return *v
}
