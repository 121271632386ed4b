package utils

import (
	"path/filepath"
	"strings"
	"unicode"
)

const maxFilenameLen = 255

// SanitizeFilename strips directories and control characters from an
// uploaded file name. An empty result becomes "document".
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)

	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsControl(r):
			return -1
		case strings.ContainsRune(`<>:"|?*`, r):
			return '_'
		}
		return r
	}, name)
	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.Trim(cleaned, ".")

	if cleaned == "" || cleaned == "/" {
		return "document"
	}
	if len(cleaned) > maxFilenameLen {
		ext := GetExtension(cleaned)
		if len(ext) > 16 {
			ext = ""
		}
		cleaned = cleaned[:maxFilenameLen-len(ext)] + ext
	}
	return cleaned
}

// GetExtension returns the lower-cased file extension including the dot.
func GetExtension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// GetMimeType returns the MIME type for the document extensions the service
// accepts, or application/octet-stream.
func GetMimeType(filename string) string {
	switch GetExtension(filename) {
	case ".pdf":
		return "application/pdf"
	case ".txt":
		return "text/plain"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	}
	return "application/octet-stream"
}
