package export

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// OrdersFilename is the download name of the orders sheet.
const OrdersFilename = "pedidos_filtrados.xlsx"

const ordersSheet = "Pedidos"

// OrderHeaders are the column titles of the orders sheet.
var OrderHeaders = []string{
	"ID", "Fecha", "Mesero", "Estado", "Producto",
	"Cantidad", "Comentario", "Precio Unitario", "Subtotal",
}

// OrderRow is one order line in the export.
type OrderRow struct {
	Numero         int64
	Fecha          time.Time
	Mesero         string
	Estado         string
	Producto       string
	Cantidad       int32
	Comentario     string
	PrecioUnitario decimal.Decimal
}

// WriteOrdersXLSX writes rows as a workbook with a header, one row per
// line and a closing TOTAL row summing the Subtotal column.
func WriteOrdersXLSX(w io.Writer, rows []OrderRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ordersSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Border: thinBorder(),
		Fill:   excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"D9D9D9"}},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	body, err := f.NewStyle(&excelize.Style{Border: thinBorder()})
	if err != nil {
		return fmt.Errorf("body style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{Border: thinBorder(), NumFmt: 2})
	if err != nil {
		return fmt.Errorf("money style: %w", err)
	}
	total, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, Border: thinBorder(), NumFmt: 2})
	if err != nil {
		return fmt.Errorf("total style: %w", err)
	}

	for i, h := range OrderHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(ordersSheet, cell, h); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(ordersSheet, "A1", "I1", bold); err != nil {
		return err
	}

	for i, r := range rows {
		n := i + 2
		price, _ := r.PrecioUnitario.Float64()
		values := []interface{}{
			r.Numero,
			r.Fecha.Format("2006-01-02 15:04:05"),
			r.Mesero,
			r.Estado,
			r.Producto,
			r.Cantidad,
			r.Comentario,
			price,
		}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, n)
			if err := f.SetCellValue(ordersSheet, cell, v); err != nil {
				return err
			}
		}
		if err := f.SetCellFormula(ordersSheet, fmt.Sprintf("I%d", n), fmt.Sprintf("F%d*H%d", n, n)); err != nil {
			return err
		}
		if err := f.SetCellStyle(ordersSheet, fmt.Sprintf("A%d", n), fmt.Sprintf("G%d", n), body); err != nil {
			return err
		}
		if err := f.SetCellStyle(ordersSheet, fmt.Sprintf("H%d", n), fmt.Sprintf("I%d", n), money); err != nil {
			return err
		}
	}

	last := len(rows) + 2
	if err := f.SetCellValue(ordersSheet, fmt.Sprintf("H%d", last), "TOTAL"); err != nil {
		return err
	}
	formula := "0"
	if len(rows) > 0 {
		formula = fmt.Sprintf("SUM(I2:I%d)", last-1)
	}
	if err := f.SetCellFormula(ordersSheet, fmt.Sprintf("I%d", last), formula); err != nil {
		return err
	}
	if err := f.SetCellStyle(ordersSheet, fmt.Sprintf("H%d", last), fmt.Sprintf("I%d", last), total); err != nil {
		return err
	}

	widths := map[string]float64{"A": 8, "B": 20, "C": 20, "D": 16, "E": 24, "F": 10, "G": 30, "H": 16, "I": 14}
	for col, wd := range widths {
		if err := f.SetColWidth(ordersSheet, col, col, wd); err != nil {
			return err
		}
	}

	return f.Write(w)
}

func thinBorder() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
}
