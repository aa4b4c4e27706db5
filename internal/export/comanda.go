// Package export renders orders as PDF comandas and xlsx sheets.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/phpdave11/gofpdf"
	"github.com/shopspring/decimal"
)

// ComandaLine is one printed order line.
type ComandaLine struct {
	Cantidad       int32
	Producto       string
	Comentario     string
	PrecioUnitario decimal.Decimal
}

// Subtotal is quantity times unit price.
func (l ComandaLine) Subtotal() decimal.Decimal {
	return l.PrecioUnitario.Mul(decimal.NewFromInt32(l.Cantidad))
}

// Comanda is the printable ticket of one order.
type Comanda struct {
	Numero int64
	Fecha  time.Time
	Mesero string
	Estado string
	Lines  []ComandaLine
}

// Total sums the line subtotals.
func (c Comanda) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Filename is the download name used in Content-Disposition.
func (c Comanda) Filename() string {
	return fmt.Sprintf("comanda_pedido_%d.pdf", c.Numero)
}

// column widths in mm; A4 portrait leaves 190mm between default margins
var comandaCols = []struct {
	title string
	width float64
	align string
}{
	{"Cant.", 15, "C"},
	{"Producto", 55, "L"},
	{"Comentario", 60, "L"},
	{"P. Unit.", 30, "R"},
	{"Subtotal", 30, "R"},
}

// WriteComanda renders c as an A4 PDF to w.
func WriteComanda(w io.Writer, c Comanda) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(fmt.Sprintf("Comanda pedido #%d", c.Numero), true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, tr(fmt.Sprintf("Comanda - Pedido #%d", c.Numero)), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 11)
	pdf.Cell(0, 7, tr("Fecha: "+c.Fecha.Format("02/01/2006 15:04")))
	pdf.Ln(7)
	pdf.Cell(0, 7, tr("Mesero: "+c.Mesero))
	pdf.Ln(7)
	pdf.Cell(0, 7, tr("Estado: "+c.Estado))
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for _, col := range comandaCols {
		pdf.CellFormat(col.width, 8, tr(col.title), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	for _, l := range c.Lines {
		cells := []string{
			fmt.Sprintf("%d", l.Cantidad),
			l.Producto,
			l.Comentario,
			"Bs " + l.PrecioUnitario.StringFixed(2),
			"Bs " + l.Subtotal().StringFixed(2),
		}
		for i, col := range comandaCols {
			pdf.CellFormat(col.width, 7, tr(truncate(cells[i], col.width)), "1", 0, col.align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(160, 8, "TOTAL", "1", 0, "R", false, 0, "")
	pdf.CellFormat(30, 8, "Bs "+c.Total().StringFixed(2), "1", 1, "R", false, 0, "")

	return pdf.Output(w)
}

// truncate keeps a cell on one line, roughly two characters per mm at 10pt.
func truncate(s string, width float64) string {
	max := int(width / 2)
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
