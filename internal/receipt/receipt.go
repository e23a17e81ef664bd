package receipt

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/zombor/receipt-buddy/internal/extraction"
)

// Receipt is a stored purchase with the fields read from its image
type Receipt struct {
	ID             string           `json:"id"`
	StoreName      string           `json:"store_name"`
	InvoiceNumber  string           `json:"invoice_number,omitempty"`
	PurchaseDate   *time.Time       `json:"purchase_date,omitempty"`
	Total          *decimal.Decimal `json:"total,omitempty"`
	RawText        string           `json:"raw_text"`
	Items          []Item           `json:"items"`
	Filename       string           `json:"filename,omitempty"`
	ContentType    string           `json:"content_type,omitempty"`
	ReturnDeadline *time.Time       `json:"return_deadline,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// Item is one purchased line of a receipt
type Item struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Code     string          `json:"code,omitempty"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// ItemMatch is an item found by an item search, with the receipt it came from
type ItemMatch struct {
	Item         Item       `json:"item"`
	ReceiptID    string     `json:"receipt_id"`
	StoreName    string     `json:"store_name"`
	PurchaseDate *time.Time `json:"purchase_date,omitempty"`
}

// fromRecord builds an unsaved receipt from an extracted record
func fromRecord(record *extraction.Record) *Receipt {
	items := make([]Item, 0, len(record.Items))
	for _, li := range record.Items {
		items = append(items, Item{
			Name:     li.Name,
			Code:     li.Code,
			Quantity: li.Quantity,
			Price:    li.Price,
		})
	}
	return &Receipt{
		StoreName:     record.MerchantName,
		InvoiceNumber: record.InvoiceNumber,
		PurchaseDate:  record.PurchaseDate,
		Total:         record.TotalAmount,
		RawText:       record.RawText,
		Items:         items,
	}
}

// ItemsTotal sums quantity times price over every item
func (r *Receipt) ItemsTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range r.Items {
		sum = sum.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return sum
}

// Returnable reports whether the return deadline has not passed on day.
// Receipts without a deadline are never returnable.
func (r *Receipt) Returnable(day time.Time) bool {
	if r.ReturnDeadline == nil {
		return false
	}
	today := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return !today.After(*r.ReturnDeadline)
}
