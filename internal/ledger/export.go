package ledger

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const inventorySheet = "Inventario"

var inventoryHeader = []string{"Código", "Producto", "Unidad", "Existencias"}

// WriteInventoryXLSX writes one row per stock level after a header row.
func WriteInventoryXLSX(w io.Writer, levels []StockLevel) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", inventorySheet); err != nil {
		return err
	}

	for i, h := range inventoryHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(inventorySheet, cell, h); err != nil {
			return err
		}
	}

	for r, l := range levels {
		row := r + 2
		values := []any{l.Code, l.Name, l.Unit, l.Stock}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(inventorySheet, cell, v); err != nil {
				return fmt.Errorf("fila %d: %w", row, err)
			}
		}
	}

	_, err := f.WriteTo(w)
	return err
}
