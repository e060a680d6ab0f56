package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbertholdt/docrag/helper"
)

func TestValidate(t *testing.T) {
	t.Run("accepts supported extensions", func(t *testing.T) {
		for _, name := range []string{"a.txt", "b.pdf", "c.docx", "d.doc", "E.TXT"} {
			assert.NoError(t, Validate([]byte("content"), name), name)
		}
	})

	t.Run("rejects empty file", func(t *testing.T) {
		err := Validate([]byte{}, "a.txt")
		require.Error(t, err)
		assert.True(t, errors.Is(err, helper.ErrValidation))
	})

	t.Run("rejects oversized file", func(t *testing.T) {
		err := Validate(make([]byte, MaxFileSize+1), "a.txt")
		require.Error(t, err)
		assert.True(t, errors.Is(err, helper.ErrValidation))
	})

	t.Run("rejects unsupported extension", func(t *testing.T) {
		err := Validate([]byte("content"), "a.exe")
		require.Error(t, err)
		assert.True(t, errors.Is(err, helper.ErrUnsupportedFormat))
	})

	t.Run("rejects missing extension", func(t *testing.T) {
		err := Validate([]byte("content"), "README")
		require.Error(t, err)
		assert.True(t, errors.Is(err, helper.ErrUnsupportedFormat))
	})
}

func TestTextTxt(t *testing.T) {
	t.Run("utf8 passthrough", func(t *testing.T) {
		text, err := Text([]byte("Hello wörld"), "a.txt")
		require.NoError(t, err)
		assert.Equal(t, "Hello wörld", text)
	})

	t.Run("latin1 fallback", func(t *testing.T) {
		// 0xE9 is é in Latin-1 but invalid as standalone UTF-8.
		text, err := Text([]byte{'c', 'a', 'f', 0xE9}, "a.txt")
		require.NoError(t, err)
		assert.Equal(t, "café", text)
	})

	t.Run("normalizes whitespace", func(t *testing.T) {
		text, err := Text([]byte("one\t two\r\n\r\n\r\n\r\nthree   four"), "a.txt")
		require.NoError(t, err)
		assert.Equal(t, "one two\n\nthree four", text)
	})
}

func TestTextDocx(t *testing.T) {
	t.Run("extracts paragraph text", func(t *testing.T) {
		content := buildDocx(t, `<?xml version="1.0"?>
<document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
	<body>
		<p><r><t>First paragraph.</t></r></p>
		<p><r><t>Second </t></r><r><t>paragraph.</t></r></p>
	</body>
</document>`)

		text, err := Text(content, "a.docx")
		require.NoError(t, err)
		assert.Equal(t, "First paragraph.\nSecond paragraph.", text)
	})

	t.Run("rejects non zip content", func(t *testing.T) {
		_, err := Text([]byte("not a zip archive"), "a.docx")
		require.Error(t, err)
		assert.True(t, errors.Is(err, helper.ErrValidation))
	})

	t.Run("rejects archive without document xml", func(t *testing.T) {
		var buf bytes.Buffer
		writer := zip.NewWriter(&buf)
		entry, err := writer.Create("other.xml")
		require.NoError(t, err)
		_, err = entry.Write([]byte("<x/>"))
		require.NoError(t, err)
		require.NoError(t, writer.Close())

		_, err = Text(buf.Bytes(), "a.docx")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "word/document.xml not found")
	})
}

func TestCleanText(t *testing.T) {
	t.Run("keeps paragraph breaks", func(t *testing.T) {
		assert.Equal(t, "a\n\nb", CleanText("a\n\n\n\n\nb"))
	})

	t.Run("collapses horizontal whitespace", func(t *testing.T) {
		assert.Equal(t, "a b c", CleanText("a \t  b\t\tc"))
	})

	t.Run("trims surrounding whitespace", func(t *testing.T) {
		assert.Equal(t, "a", CleanText("  \n a \n  "))
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Equal(t, "", CleanText("   \n\t "))
	})
}

func TestFormatFileSize(t *testing.T) {
	assert.Equal(t, "0 B", FormatFileSize(0))
	assert.Equal(t, "512.0 B", FormatFileSize(512))
	assert.Equal(t, "1.0 KB", FormatFileSize(1024))
	assert.Equal(t, "1.5 MB", FormatFileSize(1536*1024))
	assert.Equal(t, "2.0 GB", FormatFileSize(2*1024*1024*1024))
}

// buildDocx wraps the given document.xml payload in a minimal DOCX container.
func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	entry, err := writer.Create("word/document.xml")
	require.NoError(t, err)
	_, err = entry.Write([]byte(strings.TrimSpace(documentXML)))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return buf.Bytes()
}
