package receipt

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/receipt-buddy/internal/extraction"
	"github.com/zombor/receipt-buddy/internal/scanning"
)

// ErrInvalidReceipt is returned when a receipt fails validation
var ErrInvalidReceipt = errors.New("invalid receipt")

// IDGenerator generates unique IDs for receipts and items
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles receipt operations
type Service struct {
	db           DB
	scanner      scanning.Scanner
	storage      Storage
	engine       *extraction.Engine
	idGenerator  IDGenerator
	timeSource   TimeSource
	returnWindow int
}

// Option configures a Service
type Option func(*Service)

// WithReturnWindow sets how many days after purchase a receipt can be
// returned. Zero leaves the deadline unset.
func WithReturnWindow(days int) Option {
	return func(s *Service) {
		s.returnWindow = days
	}
}

// WithEngine sets the engine used by ExtractText
func WithEngine(engine *extraction.Engine) Option {
	return func(s *Service) {
		s.engine = engine
	}
}

// NewService creates a new Service with a UUID generator and the wall clock
func NewService(db DB, scanner scanning.Scanner, storage Storage, opts ...Option) *Service {
	s := &Service{
		db:          db,
		scanner:     scanner,
		storage:     storage,
		engine:      extraction.DefaultEngine(),
		idGenerator: &uuidGenerator{},
		timeSource:  &defaultTimeSource{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, scanner scanning.Scanner, storage Storage, idGen IDGenerator, timeSrc TimeSource, opts ...Option) *Service {
	s := NewService(db, scanner, storage, opts...)
	s.idGenerator = idGen
	s.timeSource = timeSrc
	return s
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	whitespaceRun       = regexp.MustCompile(`\s+`)
)

// sanitizeFilename strips special characters from phone-generated names
// and caps the base at 50 characters.
func sanitizeFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if unsafeFilenameChars.MatchString(strings.TrimPrefix(ext, ".")) {
		ext = ""
	}
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	base = unsafeFilenameChars.ReplaceAllString(base, "")
	base = strings.TrimSpace(whitespaceRun.ReplaceAllString(base, " "))

	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "receipt"
	}
	return base + ext
}

// ScanReceipt stores an uploaded image and reads it into an unsaved draft.
// The draft carries its ID and stored filename so CreateReceipt can commit
// it after the user reviews the fields.
func (s *Service) ScanReceipt(filename string, data []byte, contentType string) (*Receipt, error) {
	id := s.idGenerator.Generate()

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	record, err := s.scanner.ScanReceipt(data, contentType)
	if err != nil {
		slog.Error("Failed to scan receipt",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		if delErr := s.storage.Delete(savedPath); delErr != nil {
			slog.Warn("Failed to clean up file", "filename", savedPath, "error", delErr)
		}
		return nil, fmt.Errorf("scanning receipt: %w", err)
	}

	draft := fromRecord(record)
	draft.ID = id
	draft.Filename = savedPath
	draft.ContentType = contentType
	draft.ReturnDeadline = s.returnDeadline(draft.PurchaseDate)

	slog.Info("Scanned receipt",
		"id", id,
		"store", draft.StoreName,
		"items", len(draft.Items),
	)
	return draft, nil
}

// CreateReceipt validates and saves a receipt, usually a reviewed draft from
// ScanReceipt. Missing IDs are assigned and the return deadline is derived
// from the purchase date unless one was given.
func (s *Service) CreateReceipt(receipt *Receipt) error {
	if err := validate(receipt); err != nil {
		return err
	}

	now := s.timeSource.Now()
	if receipt.ID == "" {
		receipt.ID = s.idGenerator.Generate()
	}
	receipt.StoreName = strings.TrimSpace(receipt.StoreName)
	receipt.InvoiceNumber = strings.TrimSpace(receipt.InvoiceNumber)
	if receipt.Items == nil {
		receipt.Items = []Item{}
	}
	for i := range receipt.Items {
		receipt.Items[i].Name = strings.TrimSpace(receipt.Items[i].Name)
		if receipt.Items[i].ID == "" {
			receipt.Items[i].ID = s.idGenerator.Generate()
		}
	}
	if receipt.PurchaseDate != nil {
		d := dateOnly(*receipt.PurchaseDate)
		receipt.PurchaseDate = &d
	}
	if receipt.ReturnDeadline == nil {
		receipt.ReturnDeadline = s.returnDeadline(receipt.PurchaseDate)
	}
	receipt.CreatedAt = now
	receipt.UpdatedAt = now

	if err := s.db.SaveReceipt(receipt); err != nil {
		return fmt.Errorf("saving receipt to database: %w", err)
	}
	return nil
}

func validate(r *Receipt) error {
	if r == nil {
		return fmt.Errorf("%w: missing receipt", ErrInvalidReceipt)
	}
	if r.Total != nil && r.Total.IsNegative() {
		return fmt.Errorf("%w: total cannot be negative", ErrInvalidReceipt)
	}
	for i, item := range r.Items {
		switch {
		case strings.TrimSpace(item.Name) == "":
			return fmt.Errorf("%w: item %d has no name", ErrInvalidReceipt, i+1)
		case item.Quantity < 1:
			return fmt.Errorf("%w: item %d quantity must be at least 1", ErrInvalidReceipt, i+1)
		case item.Price.IsNegative():
			return fmt.Errorf("%w: item %d price cannot be negative", ErrInvalidReceipt, i+1)
		}
	}
	return nil
}

func (s *Service) returnDeadline(purchased *time.Time) *time.Time {
	if purchased == nil || s.returnWindow <= 0 {
		return nil
	}
	d := dateOnly(*purchased).AddDate(0, 0, s.returnWindow)
	return &d
}

// GetReceipt retrieves a receipt by ID
func (s *Service) GetReceipt(id string) (*Receipt, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	return receipt, nil
}

// SearchReceipts returns the receipts matching filter in the given order
func (s *Service) SearchReceipts(filter Filter, sort SortOption) ([]*Receipt, error) {
	all, err := s.db.ListReceipts()
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}

	m := newMatcher(filter)
	matched := make([]*Receipt, 0, len(all))
	for _, r := range all {
		if m.match(r) {
			matched = append(matched, r)
		}
	}
	sortReceipts(matched, sort)
	return matched, nil
}

// SearchItems finds items whose name or code contains query, newest
// receipts first.
func (s *Service) SearchItems(query string) ([]ItemMatch, error) {
	needle := fold(strings.TrimSpace(query))
	if needle == "" {
		return nil, fmt.Errorf("%w: empty item query", ErrInvalidQuery)
	}

	receipts, err := s.SearchReceipts(Filter{}, SortDateDesc)
	if err != nil {
		return nil, err
	}

	matches := make([]ItemMatch, 0)
	for _, r := range receipts {
		for _, item := range r.Items {
			if strings.Contains(fold(item.Name), needle) || strings.Contains(fold(item.Code), needle) {
				matches = append(matches, ItemMatch{
					Item:         item,
					ReceiptID:    r.ID,
					StoreName:    r.StoreName,
					PurchaseDate: r.PurchaseDate,
				})
			}
		}
	}
	return matches, nil
}

// DeleteReceipt removes a receipt and its file
func (s *Service) DeleteReceipt(id string) error {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return fmt.Errorf("getting receipt for deletion: %w", err)
	}

	if receipt.Filename != "" {
		if err := s.storage.Delete(receipt.Filename); err != nil {
			// The row still goes; an orphaned file is harmless
			slog.Warn("Failed to delete file", "filename", receipt.Filename, "error", err)
		}
	}

	if err := s.db.DeleteReceipt(id); err != nil {
		return fmt.Errorf("deleting receipt from database: %w", err)
	}
	return nil
}

// GetReceiptFile retrieves the stored image for a receipt
func (s *Service) GetReceiptFile(id string) ([]byte, string, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt: %w", err)
	}
	if receipt.Filename == "" {
		return nil, "", fmt.Errorf("receipt %s has no file: %w", id, ErrNotFound)
	}

	data, err := s.storage.Get(receipt.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt file: %w", err)
	}
	return data, receipt.ContentType, nil
}

// ExtractText runs the extraction engine over OCR lines without storing anything
func (s *Service) ExtractText(lines []string) extraction.Record {
	return s.engine.Extract(lines)
}

// ExportXLSX renders the receipts matching filter as a spreadsheet
func (s *Service) ExportXLSX(filter Filter, sort SortOption) ([]byte, error) {
	receipts, err := s.SearchReceipts(filter, sort)
	if err != nil {
		return nil, err
	}
	data, err := writeWorkbook(receipts)
	if err != nil {
		return nil, fmt.Errorf("exporting receipts: %w", err)
	}
	return data, nil
}
