package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/inventra/inventra/internal/catalog"
)

var sample = []catalog.Product{
	{ID: 1, Name: "Kopi Arabika", SKU: "KP-001", Cost: 45000, Price: 60000, Stock: 12, Category: "Minuman", Supplier: "PT Kopi", Description: "250g"},
	{ID: 2, Name: "Teh, Melati", SKU: "TH-002", Cost: 8000.5, Price: 12000, Stock: 3, Category: "Minuman", Supplier: "CV Teh"},
}

func TestWriteProductsCSV(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := WriteProductsCSV(buf, sample); err != nil {
		t.Fatalf("csv error: %v", err)
	}
	records, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	if err != nil {
		t.Fatalf("csv read error: %v", err)
	}
	require.Len(t, records, 3)
	require.Equal(t, ProductHeader, records[0])
	require.Equal(t, []string{"2", "Teh, Melati", "TH-002", "8000.50", "12000.00", "3", "Minuman", "CV Teh", ""}, records[2])
}

func TestWriteProductsCSVEmpty(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, WriteProductsCSV(buf, nil))
	records, err := csv.NewReader(buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestWriteProductsXLSX(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, WriteProductsXLSX(buf, sample))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, []string{ProductSheet}, f.GetSheetList())
	rows, err := f.GetRows(ProductSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, ProductHeader, rows[0])
	require.Equal(t, "Kopi Arabika", rows[1][1])
	require.Equal(t, "KP-001", rows[1][2])
	require.Equal(t, "12", rows[1][5])
}
