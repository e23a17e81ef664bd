package extraction

import (
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"
)

// defaultEngine is built from DefaultTable at init; a broken built-in table
// panics here instead of degrading at request time.
var defaultEngine = MustCompile(DefaultTable())

// DefaultEngine returns the engine compiled from DefaultTable
func DefaultEngine() *Engine {
	return defaultEngine
}

// Extract runs the default engine over lines
func Extract(lines []string) Record {
	return defaultEngine.Extract(lines)
}

// Extract runs every field extractor over one OCR line sequence and
// assembles the record. Fields that cannot be recovered are left empty;
// Extract never fails.
func (e *Engine) Extract(lines []string) Record {
	record := Record{
		RawText: strings.Join(lines, "\n"),
		Items:   []LineItem{},
	}
	text := record.RawText

	// Each extractor writes a distinct field and only reads lines and text.
	// Extractors report absence through the record and never return errors,
	// so Wait only joins them.
	var g errgroup.Group
	g.Go(func() error {
		record.InvoiceNumber = e.invoiceNumber(text)
		return nil
	})
	g.Go(func() error {
		record.TotalAmount = e.totalAmount(lines, text)
		return nil
	})
	g.Go(func() error {
		record.PurchaseDate = e.purchaseDate(lines, text)
		return nil
	})
	g.Go(func() error {
		record.MerchantName = e.merchantName(lines)
		return nil
	})
	g.Go(func() error {
		record.Items = e.lineItems(lines)
		return nil
	})
	_ = g.Wait()

	slog.Debug("Extracted receipt fields",
		"lines", len(lines),
		"merchant", record.MerchantName != "",
		"invoice", record.InvoiceNumber != "",
		"date", record.PurchaseDate != nil,
		"total", record.TotalAmount != nil,
		"items", len(record.Items),
	)
	return record
}
