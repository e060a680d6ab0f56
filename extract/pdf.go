package extract

import (
	"bytes"

	"github.com/ledongthuc/pdf"

	"github.com/mbertholdt/docrag/helper"
)

// pdfText extracts the plain text of every page of a PDF.
func pdfText(content []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", helper.NewValidationError("open pdf", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", helper.NewValidationError("extract pdf text", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", helper.NewValidationError("read pdf text", err)
	}

	return buf.String(), nil
}
