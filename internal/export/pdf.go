package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/openarchive/archive/internal/application"
)

// RenderPDF renders a single-page-per-message-header PDF with a
// Bates-style id stamp and the message body as body text, mirroring
// original_source/core/exports.py's generate_pdf. pdfcpu's public API
// is a PDF *manipulation* surface (merge/split/watermark/extract) with
// no from-scratch content generation entry point, so rendering builds a
// minimal single-stream PDF by hand rather than pull in a second,
// generation-oriented PDF library just for this one export format.
func RenderPDF(msg application.RetrievedMessage, batesNumber string) ([]byte, error) {
	lines := []string{
		fmt.Sprintf("Bates: %s", batesNumber),
		"",
		fmt.Sprintf("From: %s", msg.Message.From),
		fmt.Sprintf("To: %s", msg.Message.To),
		fmt.Sprintf("Date: %s", msg.Message.Date),
		fmt.Sprintf("Subject: %s", msg.Message.Subject),
		"",
	}
	lines = append(lines, strings.Split(msg.TextBody, "\n")...)

	return buildSimplePDF(lines), nil
}

// buildSimplePDF writes a minimal single-page PDF: one content stream
// of Tj text-show operators, Courier at 10pt with 12pt leading. Every
// line goes on that one page; lines past the bottom edge are not
// carried onto further pages.
func buildSimplePDF(lines []string) []byte {
	var content bytes.Buffer
	content.WriteString("BT /F1 10 Tf 12 TL 50 780 Td\n")
	for _, line := range lines {
		content.WriteString("(")
		content.WriteString(escapePDFString(line))
		content.WriteString(") Tj T*\n")
	}
	content.WriteString("ET\n")

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, 0, 5)
	writeObj := func(s string) {
		offsets = append(offsets, buf.Len())
		buf.WriteString(s)
	}

	writeObj("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	writeObj("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")
	writeObj("3 0 obj\n<< /Type /Page /Parent 2 0 R /Resources << /Font << /F1 4 0 R >> >> /MediaBox [0 0 612 792] /Contents 5 0 R >>\nendobj\n")
	writeObj("4 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Courier >>\nendobj\n")
	writeObj(fmt.Sprintf("5 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", content.Len(), content.String()))

	xrefStart := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF", len(offsets)+1, xrefStart)

	return buf.Bytes()
}

func escapePDFString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `(`, `\(`)
	s = strings.ReplaceAll(s, `)`, `\)`)
	return s
}
