package scanning

import (
	"fmt"
	"log/slog"

	"github.com/zombor/receipt-buddy/internal/extraction"
)

// Recognizer turns a receipt image into its text lines, top to bottom
type Recognizer interface {
	// Recognize reads the text of an image or PDF. Lines keep their order
	// and empty lines between content are preserved.
	Recognize(imageData []byte, contentType string) ([]string, error)
	// Close releases any resources held by the recognizer
	Close() error
}

// Scanner defines the interface for receipt scanning operations
type Scanner interface {
	// ScanReceipt reads a receipt image/PDF and extracts its fields
	ScanReceipt(imageData []byte, contentType string) (*extraction.Record, error)
	// Close closes the scanner and releases resources
	Close() error
}

// OCRScanner reads text with a Recognizer and hands it to an extraction engine
type OCRScanner struct {
	recognizer Recognizer
	engine     *extraction.Engine
}

// NewOCRScanner creates a Scanner. A nil engine uses extraction.DefaultEngine().
func NewOCRScanner(recognizer Recognizer, engine *extraction.Engine) *OCRScanner {
	if engine == nil {
		engine = extraction.DefaultEngine()
	}
	return &OCRScanner{
		recognizer: recognizer,
		engine:     engine,
	}
}

// ScanReceipt recognizes the text of a receipt and extracts a record from it.
// A receipt with no readable text yields an empty record, not an error.
func (s *OCRScanner) ScanReceipt(imageData []byte, contentType string) (*extraction.Record, error) {
	lines, err := s.recognizer.Recognize(imageData, contentType)
	if err != nil {
		return nil, fmt.Errorf("recognizing text: %w", err)
	}
	if len(lines) == 0 {
		slog.Warn("No text recognized on receipt", "content_type", contentType)
	}

	record := s.engine.Extract(lines)
	return &record, nil
}

// Close closes the underlying recognizer
func (s *OCRScanner) Close() error {
	return s.recognizer.Close()
}
