package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/inventra/inventra/internal/catalog"
)

// ProductSheet names the worksheet holding the catalog.
const ProductSheet = "Produk"

// WriteProductsXLSX menulis katalog sebagai workbook dengan satu sheet.
func WriteProductsXLSX(w io.Writer, products []catalog.Product) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", ProductSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(ProductHeader))
	for i, h := range ProductHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(ProductSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(ProductSheet, 1, 1, bold); err != nil {
		return err
	}

	for i, p := range products {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{p.ID, p.Name, p.SKU, p.Cost, p.Price, p.Stock, p.Category, p.Supplier, p.Description}
		if err := f.SetSheetRow(ProductSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := f.SetColWidth(ProductSheet, "B", "B", 32); err != nil {
		return err
	}
	return f.Write(w)
}
