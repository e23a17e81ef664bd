package receipt

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	receiptsSheet = "Receipts"
	itemsSheet    = "Items"
)

// writeWorkbook renders receipts into an XLSX workbook with one sheet of
// receipts and one sheet of their items.
func writeWorkbook(receipts []*Receipt) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer f.Close()

	// NewFile starts with "Sheet1"
	if err := f.SetSheetName("Sheet1", receiptsSheet); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}
	if _, err := f.NewSheet(itemsSheet); err != nil {
		return nil, fmt.Errorf("creating sheet: %w", err)
	}

	receiptRows := [][]any{{
		"Purchase Date", "Store", "Invoice Number", "Total", "Items", "Items Total", "Return By", "Receipt ID",
	}}
	itemRows := [][]any{{
		"Receipt ID", "Store", "Code", "Name", "Quantity", "Price",
	}}

	for _, r := range receipts {
		itemsTotal, _ := r.ItemsTotal().Float64()
		receiptRows = append(receiptRows, []any{
			formatDate(r.PurchaseDate),
			r.StoreName,
			r.InvoiceNumber,
			formatTotal(r),
			len(r.Items),
			itemsTotal,
			formatDate(r.ReturnDeadline),
			r.ID,
		})
		for _, item := range r.Items {
			price, _ := item.Price.Float64()
			itemRows = append(itemRows, []any{
				r.ID, r.StoreName, item.Code, item.Name, item.Quantity, price,
			})
		}
	}

	if err := writeRows(f, receiptsSheet, receiptRows); err != nil {
		return nil, err
	}
	if err := writeRows(f, itemsSheet, itemRows); err != nil {
		return nil, err
	}

	_ = f.SetColWidth(receiptsSheet, "A", "A", 14)
	_ = f.SetColWidth(receiptsSheet, "B", "C", 28)
	_ = f.SetColWidth(receiptsSheet, "D", "G", 12)
	_ = f.SetColWidth(receiptsSheet, "H", "H", 38)
	_ = f.SetColWidth(itemsSheet, "A", "A", 38)
	_ = f.SetColWidth(itemsSheet, "B", "D", 24)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing xlsx: %w", err)
	}

	slog.Info("Exported receipts",
		"receipts", len(receipts),
		"items", len(itemRows)-1,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("resolving cell: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

// formatTotal writes the total as a number, or blank when unknown
func formatTotal(r *Receipt) any {
	if r.Total == nil {
		return ""
	}
	v, _ := r.Total.Float64()
	return v
}
