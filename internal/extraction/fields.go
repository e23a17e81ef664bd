package extraction

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// invoiceNumber returns the token after the first invoice label in text.
// Tokens without a digit ("Invoice Date: ...") are skipped.
func (e *Engine) invoiceNumber(text string) string {
	for _, m := range e.invoice.FindAllStringSubmatch(text, -1) {
		if token := strings.TrimSpace(m[1]); strings.ContainsAny(token, "0123456789") {
			return token
		}
	}
	return ""
}

// totalAmount prefers a labeled amount in the trailing lines and otherwise
// falls back to the largest amount anywhere in the text.
func (e *Engine) totalAmount(lines []string, text string) *decimal.Decimal {
	start := len(lines) - min(e.totalWindow, len(lines))
	bottom := strings.Join(lines[start:], "\n")
	for _, m := range e.total.FindAllStringSubmatch(bottom, -1) {
		if amount, err := ParseAmount(m[1]); err == nil {
			return &amount
		}
	}

	var largest *decimal.Decimal
	for _, m := range e.amount.FindAllStringSubmatch(text, -1) {
		amount, err := ParseAmount(m[1])
		if err != nil {
			continue
		}
		if largest == nil || amount.GreaterThan(*largest) {
			largest = &amount
		}
	}
	return largest
}

// purchaseDate reads the date from the first labeled line, falling back to
// the first parseable date shape anywhere in the text.
func (e *Engine) purchaseDate(lines []string, text string) *time.Time {
	for _, line := range lines {
		if !e.dateLabel.MatchString(line) {
			continue
		}
		if d := e.firstDate(line); d != nil {
			return d
		}
		break
	}
	return e.firstDate(text)
}

func (e *Engine) firstDate(s string) *time.Time {
	for _, candidate := range e.dateShape.FindAllString(s, -1) {
		if d, err := e.dates.Parse(candidate); err == nil {
			return &d
		}
	}
	return nil
}

// merchantName picks the first plausible store line near the top, or the
// first non-empty line when nothing near the top qualifies.
func (e *Engine) merchantName(lines []string) string {
	for _, line := range lines[:min(e.merchantWindow, len(lines))] {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if e.LooksLikeDate(trimmed) || e.LooksLikeAmount(trimmed) || e.LooksLikeLabel(trimmed) {
			continue
		}
		if e.merchantUpper.MatchString(trimmed) || e.merchantAlpha.MatchString(trimmed) {
			return trimmed
		}
	}

	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// lineItems runs every item rule over every line, in line order
func (e *Engine) lineItems(lines []string) []LineItem {
	items := make([]LineItem, 0)
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		for _, matcher := range e.items {
			m := matcher.re.FindStringSubmatch(trimmed)
			if m == nil {
				continue
			}
			if item, ok := buildItem(matcher.rule, m); ok {
				items = append(items, item)
			}
		}
	}
	return items
}

func buildItem(rule ItemRule, m []string) (LineItem, bool) {
	item := LineItem{
		Name:     strings.TrimSpace(m[rule.NameAt]),
		Quantity: 1,
		Price:    decimal.Zero,
	}
	if item.Name == "" {
		return LineItem{}, false
	}
	if rule.CodeAt > 0 {
		item.Code = m[rule.CodeAt]
	}
	if rule.QtyAt > 0 {
		if qty, err := strconv.Atoi(m[rule.QtyAt]); err == nil && qty >= 1 {
			item.Quantity = qty
		}
	}
	if rule.PriceAt > 0 && m[rule.PriceAt] != "" {
		if price, err := ParseAmount(m[rule.PriceAt]); err == nil {
			item.Price = price
		}
	}
	return item, true
}
