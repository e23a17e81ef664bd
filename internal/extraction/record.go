package extraction

import (
	"time"

	"github.com/shopspring/decimal"
)

// Record is the structured result of running the engine over one OCR pass.
// Empty strings and nil pointers mean the field was not found.
type Record struct {
	MerchantName  string           `json:"merchant_name,omitempty"`
	InvoiceNumber string           `json:"invoice_number,omitempty"`
	PurchaseDate  *time.Time       `json:"purchase_date,omitempty"`
	TotalAmount   *decimal.Decimal `json:"total_amount,omitempty"`
	RawText       string           `json:"raw_text"`
	Items         []LineItem       `json:"items"`
}

// LineItem is a single purchased line recovered from the receipt text
type LineItem struct {
	Name     string          `json:"name"`
	Code     string          `json:"code,omitempty"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}
