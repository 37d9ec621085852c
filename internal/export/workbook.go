package export

import (
	"fmt"
	"io"
	"iter"

	"github.com/fjod/go_cart/bakery-pos/internal/domain"
	"github.com/xuri/excelize/v2"
)

const SheetName = "Ventes"

var header = []interface{}{"Date", "Produit", "Quantité", "Prix unitaire", "Total"}

// WriteWorkbook streams the sale lines into an XLSX workbook and returns
// the number of lines written.
func WriteWorkbook(w io.Writer, lines iter.Seq2[domain.SaleLine, error]) (int, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return 0, fmt.Errorf("rename sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return 0, fmt.Errorf("create stream writer: %w", err)
	}
	if err := sw.SetRow("A1", header); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	row := 1
	for line, err := range lines {
		if err != nil {
			return 0, fmt.Errorf("read sale lines: %w", err)
		}
		row++
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return 0, err
		}
		values := []interface{}{
			line.Timestamp,
			line.ProductName,
			line.Quantity,
			line.UnitPrice.InexactFloat64(),
			line.Total.InexactFloat64(),
		}
		if err := sw.SetRow(cell, values); err != nil {
			return 0, fmt.Errorf("write row %d: %w", row, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return 0, fmt.Errorf("flush sheet: %w", err)
	}
	if err := f.Write(w); err != nil {
		return 0, fmt.Errorf("write workbook: %w", err)
	}
	return row - 1, nil
}
