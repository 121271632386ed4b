// Package textextract turns uploaded files into plain text for analysis.
package textextract

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/terminal-bench/civicsim/internal/apperr"
)

// ImagePlaceholder stands in for image content until OCR is available.
const ImagePlaceholder = "[IMAGE CONTENT - OCR PROCESSING NEEDED]"

// Extract returns the text of data according to its content type.
func Extract(data []byte, contentType string) (string, error) {
	switch mediaType(contentType) {
	case "application/pdf":
		return extractPDF(data)
	case "text/plain":
		if !utf8.Valid(data) {
			return strings.ToValidUTF8(string(data), ""), nil
		}
		return string(data), nil
	case "image/jpeg", "image/png":
		return ImagePlaceholder, nil
	}
	return "", fmt.Errorf("%w: %s", apperr.ErrUnsupportedType, contentType)
}

func extractPDF(data []byte) (text string, err error) {
	// The PDF parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("unable to extract text from PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("unable to extract text from PDF: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("unable to read PDF page %d: %w", i, err)
		}
		if content != "" {
			sb.WriteString(content)
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

// ReadLimited reads at most max bytes from r and fails with
// apperr.ErrFileTooLarge when more remain.
func ReadLimited(r io.Reader, max int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > max {
		return nil, apperr.ErrFileTooLarge
	}
	return data, nil
}

func mediaType(contentType string) string {
	ct, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(ct))
}
