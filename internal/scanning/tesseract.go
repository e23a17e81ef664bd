package scanning

import (
	"fmt"
	"log/slog"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract implements the Recognizer interface using a local Tesseract install
type Tesseract struct {
	languages []string
}

// NewTesseract creates a Tesseract recognizer for the given traineddata
// languages, defaulting to English.
func NewTesseract(languages ...string) *Tesseract {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &Tesseract{languages: languages}
}

// Recognize runs OCR over an image. A client is created per call since
// gosseract clients are not safe for concurrent use.
func (t *Tesseract) Recognize(imageData []byte, contentType string) ([]string, error) {
	pngData, err := toPNG(imageData, contentType)
	if err != nil {
		return nil, err
	}

	enhanced, err := enhanceForOCR(pngData)
	if err != nil {
		slog.Warn("Image enhancement failed, using original", "error", err)
		enhanced = pngData
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.languages...); err != nil {
		return nil, fmt.Errorf("setting tesseract languages: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_COLUMN); err != nil {
		return nil, fmt.Errorf("setting page segmentation: %w", err)
	}
	if err := client.SetImageFromBytes(enhanced); err != nil {
		return nil, fmt.Errorf("setting image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("tesseract OCR failed: %w", err)
	}

	lines := parseTranscript(text)
	slog.Debug("Tesseract recognized text", "lines", len(lines), "languages", t.languages)
	return lines, nil
}

// Close is a no-op; clients live only for a single Recognize call
func (t *Tesseract) Close() error {
	return nil
}
