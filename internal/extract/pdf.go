package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDF extracts plain text from PDF bytes using the pure-Go pdf reader.
// Pages that fail to decode are skipped; the extractor only errors when no
// text at all could be recovered, in which case the Router falls back to the
// simulated extractor.
type PDF struct{}

// NewPDF returns the PDF text extractor.
func NewPDF() *PDF {
	return &PDF{}
}

// Extract concatenates the plain text of every readable page.
func (p *PDF) Extract(_ context.Context, data []byte, _ string) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip problematic pages instead of failing entirely.
			continue
		}
		if sb.Len() > 0 && text != "" {
			sb.WriteString("\n")
		}
		sb.WriteString(text)
	}

	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", fmt.Errorf("no text extracted from pdf")
	}
	return out, nil
}
