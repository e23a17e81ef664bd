package receipt

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrInvalidQuery is returned for malformed search parameters
var ErrInvalidQuery = errors.New("invalid query")

// Filter narrows a receipt search. Zero-valued fields do not filter.
// Bounds are inclusive; a receipt without a date or total never satisfies
// a bound on that field.
type Filter struct {
	From     *time.Time
	To       *time.Time
	MinTotal *decimal.Decimal
	MaxTotal *decimal.Decimal
	// Store, ItemName and ItemCode match as substrings, ignoring case and
	// diacritics.
	Store    string
	ItemName string
	ItemCode string
	// ReturnableOn keeps receipts whose return deadline has not passed on
	// that day.
	ReturnableOn *time.Time
}

// SortOption orders search results
type SortOption string

const (
	SortDateDesc SortOption = "date_desc"
	SortDateAsc  SortOption = "date_asc"
	SortStoreAZ  SortOption = "store_az"
	SortStoreZA  SortOption = "store_za"
)

// ParseSortOption validates a sort name; empty means SortDateDesc
func ParseSortOption(s string) (SortOption, error) {
	switch opt := SortOption(strings.ToLower(strings.TrimSpace(s))); opt {
	case "":
		return SortDateDesc, nil
	case SortDateDesc, SortDateAsc, SortStoreAZ, SortStoreZA:
		return opt, nil
	default:
		return "", fmt.Errorf("%w: unknown sort %q", ErrInvalidQuery, s)
	}
}

// matcher is a Filter with its text needles folded once
type matcher struct {
	Filter
	from, to                  *time.Time
	store, itemName, itemCode string
}

func newMatcher(f Filter) *matcher {
	m := &matcher{
		Filter:   f,
		store:    fold(f.Store),
		itemName: fold(f.ItemName),
		itemCode: fold(f.ItemCode),
	}
	if f.From != nil {
		d := dateOnly(*f.From)
		m.from = &d
	}
	if f.To != nil {
		d := dateOnly(*f.To)
		m.to = &d
	}
	return m
}

func (m *matcher) match(r *Receipt) bool {
	if m.from != nil || m.to != nil {
		if r.PurchaseDate == nil {
			return false
		}
		day := dateOnly(*r.PurchaseDate)
		if m.from != nil && day.Before(*m.from) {
			return false
		}
		if m.to != nil && day.After(*m.to) {
			return false
		}
	}

	if m.MinTotal != nil || m.MaxTotal != nil {
		if r.Total == nil {
			return false
		}
		if m.MinTotal != nil && r.Total.LessThan(*m.MinTotal) {
			return false
		}
		if m.MaxTotal != nil && r.Total.GreaterThan(*m.MaxTotal) {
			return false
		}
	}

	if m.ReturnableOn != nil && !r.Returnable(*m.ReturnableOn) {
		return false
	}

	if m.store != "" && !strings.Contains(fold(r.StoreName), m.store) {
		return false
	}
	if m.itemName != "" && !slices.ContainsFunc(r.Items, func(it Item) bool {
		return strings.Contains(fold(it.Name), m.itemName)
	}) {
		return false
	}
	if m.itemCode != "" && !slices.ContainsFunc(r.Items, func(it Item) bool {
		return strings.Contains(fold(it.Code), m.itemCode)
	}) {
		return false
	}
	return true
}

// sortReceipts orders receipts in place. Receipts without a date sort last
// in both date orders; ties fall back to newest created first.
func sortReceipts(receipts []*Receipt, opt SortOption) {
	// Collators are stateful, so each sort gets its own
	collator := collate.New(language.Und, collate.IgnoreCase)

	byCreated := func(a, b *Receipt) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	}
	byDate := func(a, b *Receipt, desc bool) int {
		switch {
		case a.PurchaseDate == nil && b.PurchaseDate == nil:
			return 0
		case a.PurchaseDate == nil:
			return 1
		case b.PurchaseDate == nil:
			return -1
		}
		c := a.PurchaseDate.Compare(*b.PurchaseDate)
		if desc {
			return -c
		}
		return c
	}

	slices.SortStableFunc(receipts, func(a, b *Receipt) int {
		var c int
		switch opt {
		case SortDateAsc:
			c = byDate(a, b, false)
		case SortStoreAZ:
			c = collator.CompareString(a.StoreName, b.StoreName)
		case SortStoreZA:
			c = collator.CompareString(b.StoreName, a.StoreName)
		default:
			c = byDate(a, b, true)
		}
		if c != 0 {
			return c
		}
		return byCreated(a, b)
	})
}

// fold lowercases s and strips combining marks so "Café" matches "cafe"
func fold(s string) string {
	if s == "" {
		return ""
	}
	stripped, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		stripped = s
	}
	return cases.Fold().String(stripped)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
