// Package extract turns uploaded files into plain text ready for ingestion.
// It validates size and format up front so bad input is rejected before any
// provider or store call is made.
package extract

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/mbertholdt/docrag/helper"
)

// MaxFileSize is the maximum accepted input size in bytes.
const MaxFileSize = 10 * 1024 * 1024

// SupportedExtensions lists the file extensions the extractor handles.
var SupportedExtensions = []string{".pdf", ".docx", ".doc", ".txt"}

// Validate rejects files that are empty, too large, or of an unsupported
// format. It must be called (and is called by Text) before any extraction.
func Validate(content []byte, filename string) error {
	if len(content) == 0 {
		return helper.NewValidationError("validate file", fmt.Errorf("file is empty"))
	}
	if len(content) > MaxFileSize {
		return helper.NewValidationError("validate file", fmt.Errorf("file too large: %d bytes (max: %d)", len(content), MaxFileSize))
	}

	ext := strings.ToLower(filepath.Ext(filename))
	for _, supported := range SupportedExtensions {
		if ext == supported {
			return nil
		}
	}
	return helper.NewUnsupportedFormatError("validate file", fmt.Errorf("unsupported file type: %q", ext))
}

// Text validates the file and extracts its plain text content based on the
// filename extension. The returned text is whitespace normalized.
func Text(content []byte, filename string) (string, error) {
	if err := Validate(content, filename); err != nil {
		return "", err
	}

	var text string
	var err error
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		text, err = pdfText(content)
	case ".docx", ".doc":
		text, err = docxText(content)
	case ".txt":
		text, err = txtText(content)
	}
	if err != nil {
		return "", err
	}

	return CleanText(text), nil
}

var (
	horizontalWhitespace = regexp.MustCompile(`[ \t]+`)
	excessiveNewlines    = regexp.MustCompile(`\n{3,}`)
)

// CleanText normalizes whitespace: line endings become \n, runs of spaces and
// tabs collapse to one space, and runs of blank lines collapse to a single
// blank line. Paragraph breaks survive so the chunker can split on them.
func CleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = horizontalWhitespace.ReplaceAllString(text, " ")
	text = excessiveNewlines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// txtText decodes plain text, falling back to Latin-1 when the bytes are not
// valid UTF-8.
func txtText(content []byte) (string, error) {
	if utf8.Valid(content) {
		return string(content), nil
	}

	// Latin-1 maps every byte to the code point of the same value.
	runes := make([]rune, len(content))
	for i, b := range content {
		runes[i] = rune(b)
	}
	return string(runes), nil
}

// FormatFileSize formats a byte count in human readable form.
func FormatFileSize(sizeBytes int64) string {
	if sizeBytes == 0 {
		return "0 B"
	}

	sizeNames := []string{"B", "KB", "MB", "GB"}
	size := float64(sizeBytes)
	i := 0
	for size >= 1024 && i < len(sizeNames)-1 {
		size /= 1024
		i++
	}

	return fmt.Sprintf("%.1f %s", size, sizeNames[i])
}
