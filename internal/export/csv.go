// Package export serialises the product catalog for download.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/inventra/inventra/internal/catalog"
)

// ProductHeader adalah urutan kolom untuk semua format ekspor.
var ProductHeader = []string{"ID", "Nama", "SKU", "Harga Beli", "Harga Jual", "Stok", "Kategori", "Pemasok", "Deskripsi"}

// WriteProductsCSV menulis katalog sebagai CSV beserta baris header.
func WriteProductsCSV(w io.Writer, products []catalog.Product) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(ProductHeader); err != nil {
		return err
	}
	for _, p := range products {
		if err := writer.Write([]string{
			strconv.FormatInt(p.ID, 10),
			p.Name,
			p.SKU,
			formatFloat(p.Cost),
			formatFloat(p.Price),
			strconv.Itoa(p.Stock),
			p.Category,
			p.Supplier,
			p.Description,
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
