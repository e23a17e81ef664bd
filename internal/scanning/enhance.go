package scanning

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

// ocrMinHeight is the height small photos are scaled up to before OCR
const ocrMinHeight = 1200

// enhanceForOCR converts a PNG to grayscale, scales small images up and
// boosts contrast so Tesseract sees crisper glyphs.
func enhanceForOCR(pngData []byte) ([]byte, error) {
	src, err := imaging.Decode(bytes.NewReader(pngData))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	img := imaging.Grayscale(src)
	if img.Bounds().Dy() < ocrMinHeight {
		img = imaging.Resize(img, 0, ocrMinHeight, imaging.Lanczos)
	}
	img = imaging.AdjustContrast(img, 20)
	img = imaging.Sharpen(img, 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encoding image: %w", err)
	}
	return buf.Bytes(), nil
}
