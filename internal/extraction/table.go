package extraction

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// ErrMalformedPattern is returned by Compile when a Table entry is invalid
var ErrMalformedPattern = errors.New("malformed pattern")

// LabeledRule describes a field recognized by a label, an optional
// separator run, and a captured value.
type LabeledRule struct {
	// Labels are matched case-insensitively. Spaces inside a label match any
	// run of whitespace, and labels that start or end with a letter or digit
	// only match on a word boundary.
	Labels []string
	// Separator is a pattern fragment allowed between label and value.
	Separator string
	// Value is a pattern fragment for the captured value.
	Value string
}

// ItemRule describes a whole-line item pattern. The indexes point at the
// capture groups of Pattern; zero means the rule has no such group.
type ItemRule struct {
	Name    string
	Pattern string
	NameAt  int
	CodeAt  int
	QtyAt   int
	PriceAt int
}

// Table is the full set of shapes and vocabularies the engine runs with
type Table struct {
	Invoice LabeledRule
	Total   LabeledRule
	// TotalWindow is how many trailing lines the labeled total search sees.
	TotalWindow int

	// AmountShape captures an unlabeled amount in group 1.
	AmountShape string
	// DateShape matches a date-shaped substring.
	DateShape string
	// DateLabels mark the line preferred for the purchase date (substring match).
	DateLabels  []string
	DateLayouts []string
	DateLocales []DateLocale

	// MerchantWindow is how many leading lines are considered for the merchant.
	MerchantWindow int
	MerchantUpper  string
	MerchantAlpha  string
	// FieldLabels is the jargon that disqualifies a line from being a
	// merchant name (substring match).
	FieldLabels []string

	Items []ItemRule
}

// DefaultTable returns the built-in rules. Each call returns a fresh copy
// that callers may adjust before passing to Compile.
func DefaultTable() Table {
	return Table{
		Invoice: LabeledRule{
			Labels: []string{
				"invoice number", "invoice no.", "invoice no", "invoice #", "invoice#", "invoice",
				"inv no.", "inv no", "inv.", "inv", "#",
			},
			Separator: `[\s:#\-]*`,
			Value:     `[A-Za-z0-9][A-Za-z0-9\-/_.]{0,39}`,
		},
		Total: LabeledRule{
			Labels:    []string{"total", "amount due", "balance due", "grand total", "amount"},
			Separator: `\s*[:\-]?\s*(?:[$€£¥₹]\s*)?`,
			Value:     `\d+(?:[,.]\d{3})*(?:[.,]\d{2})?`,
		},
		TotalWindow: 12,

		AmountShape: `(?:[$€£¥₹]\s*)?(\d+(?:[,.]\d{3})*[.,]\d{2})\b`,
		DateShape: `\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4}` +
			`|\d{4}[/\-.]\d{1,2}[/\-.]\d{1,2}` +
			`|[A-Za-z]{3,9}\s+\d{1,2},?\s+\d{2,4}` +
			`|\d{1,2}\s+[A-Za-z]{3,9},?\s+\d{2,4}`,
		DateLabels:  []string{"date", "purchase", "trans", "txn"},
		DateLayouts: slices.Clone(DefaultDateLayouts),
		DateLocales: slices.Clone(DefaultDateLocales),

		MerchantWindow: 8,
		MerchantUpper:  `^[A-Z0-9 '&.\-]{3,40}$`,
		MerchantAlpha:  `[A-Za-z]{3,}`,
		FieldLabels:    []string{"invoice", "inv", "total", "amount", "tax", "qty", "item"},

		Items: []ItemRule{
			{
				Name:    "quantity",
				Pattern: `^(.{1,60}?)[ \t]+(\d{1,3})[ \t]*[xX@][ \t]*(\d+\.\d{2})[ \t]*$`,
				NameAt:  1,
				QtyAt:   2,
				PriceAt: 3,
			},
			{
				Name:    "coded",
				Pattern: `^(\d{3,12})[ \t]+(.{2,40}?)(?:[ \t]+[$€£¥₹]?(\d+[.,]\d{2}))?[ \t]*$`,
				NameAt:  2,
				CodeAt:  1,
				PriceAt: 3,
			},
		},
	}
}

type itemMatcher struct {
	rule ItemRule
	re   *regexp.Regexp
}

// Engine is a compiled Table. It holds no mutable state and is safe for
// concurrent use.
type Engine struct {
	invoice        *regexp.Regexp
	total          *regexp.Regexp
	totalWindow    int
	amount         *regexp.Regexp
	dateShape      *regexp.Regexp
	dateLabel      *regexp.Regexp
	dates          *DateParser
	merchantWindow int
	merchantUpper  *regexp.Regexp
	merchantAlpha  *regexp.Regexp
	fieldLabel     *regexp.Regexp
	items          []itemMatcher
}

// Compile validates a Table and builds an Engine from it
func Compile(t Table) (*Engine, error) {
	var (
		e   = &Engine{totalWindow: t.TotalWindow, merchantWindow: t.MerchantWindow}
		err error
	)

	if t.TotalWindow <= 0 || t.MerchantWindow <= 0 {
		return nil, fmt.Errorf("%w: line windows must be positive", ErrMalformedPattern)
	}
	if len(t.DateLayouts) == 0 || len(t.DateLocales) == 0 {
		return nil, fmt.Errorf("%w: date parser needs layouts and locales", ErrMalformedPattern)
	}
	e.dates = NewDateParser(t.DateLayouts, t.DateLocales)

	if e.invoice, err = compileLabeled(t.Invoice); err != nil {
		return nil, fmt.Errorf("invoice rule: %w", err)
	}
	if e.total, err = compileLabeled(t.Total); err != nil {
		return nil, fmt.Errorf("total rule: %w", err)
	}
	if e.amount, err = compile("amount shape", t.AmountShape, 1); err != nil {
		return nil, err
	}
	if e.dateShape, err = compile("date shape", t.DateShape, 0); err != nil {
		return nil, err
	}
	if e.merchantUpper, err = compile("merchant uppercase shape", t.MerchantUpper, 0); err != nil {
		return nil, err
	}
	if e.merchantAlpha, err = compile("merchant alphabetic shape", t.MerchantAlpha, 0); err != nil {
		return nil, err
	}

	dateLabels, err := alternation(t.DateLabels, false)
	if err != nil {
		return nil, fmt.Errorf("date labels: %w", err)
	}
	if e.dateLabel, err = compile("date labels", "(?i)"+dateLabels, 0); err != nil {
		return nil, err
	}
	fieldLabels, err := alternation(t.FieldLabels, false)
	if err != nil {
		return nil, fmt.Errorf("field labels: %w", err)
	}
	if e.fieldLabel, err = compile("field labels", "(?i)"+fieldLabels, 0); err != nil {
		return nil, err
	}

	for _, rule := range t.Items {
		re, err := compile("item rule "+rule.Name, rule.Pattern, 0)
		if err != nil {
			return nil, err
		}
		if rule.NameAt <= 0 {
			return nil, fmt.Errorf("%w: item rule %s has no name group", ErrMalformedPattern, rule.Name)
		}
		for _, at := range []int{rule.NameAt, rule.CodeAt, rule.QtyAt, rule.PriceAt} {
			if at > re.NumSubexp() {
				return nil, fmt.Errorf("%w: item rule %s refers to group %d of %d", ErrMalformedPattern, rule.Name, at, re.NumSubexp())
			}
		}
		e.items = append(e.items, itemMatcher{rule: rule, re: re})
	}

	return e, nil
}

// MustCompile is like Compile but panics on a malformed Table
func MustCompile(t Table) *Engine {
	e, err := Compile(t)
	if err != nil {
		panic(err)
	}
	return e
}

// compile builds a regexp and checks it has at least minGroups capture groups
func compile(what, pattern string, minGroups int) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, fmt.Errorf("%w: %s is empty", ErrMalformedPattern, what)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedPattern, what, err)
	}
	if re.NumSubexp() < minGroups {
		return nil, fmt.Errorf("%w: %s needs %d capture group(s)", ErrMalformedPattern, what, minGroups)
	}
	return re, nil
}

func compileLabeled(rule LabeledRule) (*regexp.Regexp, error) {
	labels, err := alternation(rule.Labels, true)
	if err != nil {
		return nil, err
	}
	if rule.Value == "" {
		return nil, fmt.Errorf("%w: empty value shape", ErrMalformedPattern)
	}
	return compile("labeled rule", "(?i)"+labels+rule.Separator+"("+rule.Value+")", 1)
}

// alternation turns a label vocabulary into a non-capturing alternation,
// preserving the vocabulary order.
func alternation(labels []string, wordBounded bool) (string, error) {
	if len(labels) == 0 {
		return "", fmt.Errorf("%w: empty label vocabulary", ErrMalformedPattern)
	}
	alts := make([]string, 0, len(labels))
	for _, label := range labels {
		words := strings.Fields(label)
		if len(words) == 0 {
			return "", fmt.Errorf("%w: blank label", ErrMalformedPattern)
		}
		for i, w := range words {
			words[i] = regexp.QuoteMeta(w)
		}
		alt := strings.Join(words, `\s+`)
		if wordBounded {
			trimmed := strings.TrimSpace(label)
			if isWordByte(trimmed[0]) {
				alt = `\b` + alt
			}
			if isWordByte(trimmed[len(trimmed)-1]) {
				alt += `\b`
			}
		}
		alts = append(alts, alt)
	}
	return "(?:" + strings.Join(alts, "|") + ")", nil
}

func isWordByte(b byte) bool {
	return b == '_' || ('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}
