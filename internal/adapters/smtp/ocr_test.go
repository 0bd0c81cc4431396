package smtp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractText_PlainTextIsDecodedDirectly(t *testing.T) {
	got := extractText("text/plain; charset=utf-8", []byte("  hello world  "))
	assert.Equal(t, "hello world", got)
}

func TestExtractText_UnsupportedContentTypeYieldsEmpty(t *testing.T) {
	got := extractText("image/png", []byte{0x89, 'P', 'N', 'G'})
	assert.Empty(t, got)
}

func TestExtractText_PDFDelegatesToLiteralScan(t *testing.T) {
	payload := []byte(`BT (Hello) Tj ET`)
	got := extractText("application/pdf", payload)
	assert.Equal(t, "Hello", got)
}

func TestExtractPDFLiterals_ScansMultipleShowOperators(t *testing.T) {
	payload := []byte(`BT (First line) Tj (Second line) TJ ET`)
	got := extractPDFLiterals(payload)
	assert.Equal(t, "First line Second line", got)
}

func TestExtractPDFLiterals_UnescapesParens(t *testing.T) {
	payload := []byte(`(escaped \(parens\)) Tj`)
	got := extractPDFLiterals(payload)
	assert.Equal(t, "escaped (parens)", got)
}

func TestExtractPDFLiterals_NoOperatorsYieldsEmpty(t *testing.T) {
	got := extractPDFLiterals([]byte("no text operators here"))
	assert.Empty(t, got)
}
