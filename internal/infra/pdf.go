package infra

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/DebkantaDey/inventory-management-system/internal/model"
	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// GeneratePurchaseOrderPDF renders the A4 document sent to the supplier and
// writes it to storagePath/po_{id}.pdf. Returns the file path.
func GeneratePurchaseOrderPDF(po *model.PurchaseOrder, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0o755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}
	filePath := filepath.Join(storagePath, fmt.Sprintf("po_%s.pdf", po.ID))

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 9, "Purchase Order", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, "Number: "+po.ID.String(), "", 1, "L", false, 0, "")
	if po.SentAt != nil {
		pdf.CellFormat(contentW, 5, "Date: "+po.SentAt.Format("2006-01-02"), "", 1, "L", false, 0, "")
	}
	if po.Supplier != nil {
		pdf.CellFormat(contentW, 5, "Supplier: "+po.Supplier.Name, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	colSKU := contentW * 0.40
	colQty := contentW * 0.15
	colPrice := contentW * 0.20
	colTotal := contentW * 0.25

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(colSKU, 6, "SKU", "B", 0, "L", false, 0, "")
	pdf.CellFormat(colQty, 6, "Qty", "B", 0, "R", false, 0, "")
	pdf.CellFormat(colPrice, 6, "Unit price", "B", 0, "R", false, 0, "")
	pdf.CellFormat(colTotal, 6, "Line total", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	total := decimal.Zero
	for _, it := range po.Items {
		line := it.UnitPrice.Mul(decimal.NewFromInt(int64(it.OrderedQty)))
		total = total.Add(line)
		pdf.CellFormat(colSKU, 6, it.SKU, "", 0, "L", false, 0, "")
		pdf.CellFormat(colQty, 6, fmt.Sprintf("%d", it.OrderedQty), "", 0, "R", false, 0, "")
		pdf.CellFormat(colPrice, 6, it.UnitPrice.StringFixed(2), "", 0, "R", false, 0, "")
		pdf.CellFormat(colTotal, 6, line.StringFixed(2), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.Line(15, pdf.GetY(), pageW-15, pdf.GetY())
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(colSKU+colQty+colPrice, 7, "Total", "", 0, "L", false, 0, "")
	pdf.CellFormat(colTotal, 7, total.StringFixed(2), "", 1, "R", false, 0, "")

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return filePath, nil
}
