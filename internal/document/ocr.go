package document

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// Recognizer turns an encoded image into text.
type Recognizer interface {
	Recognize(ctx context.Context, img []byte) (string, error)
}

// Tesseract recognizes text with a local Tesseract installation. A client is
// created per call since gosseract clients are not safe for concurrent use.
type Tesseract struct {
	Language string
}

// Recognize runs OCR over a PNG, JPEG or other Leptonica-readable image.
func (t *Tesseract) Recognize(ctx context.Context, img []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if t.Language != "" {
		if err := client.SetLanguage(t.Language); err != nil {
			return "", fmt.Errorf("setting OCR language: %w", err)
		}
	}
	if err := client.SetImageFromBytes(img); err != nil {
		return "", fmt.Errorf("loading image for OCR: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("recognizing text: %w", err)
	}
	return text, nil
}
