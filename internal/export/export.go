// Package export assembles retrieved messages into the export pipeline's
// three target formats: per-message EML/PDF files zipped together, or an
// mbox file zipped as a single entry, grounded on
// original_source/core/exports.py's create_export_job.
package export

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/openarchive/archive/internal/application"
	"github.com/openarchive/archive/internal/mime"
)

// Format selects the export archive's content shape.
type Format string

const (
	FormatNative Format = "native"
	FormatPDF    Format = "pdf"
	FormatMbox   Format = "mbox"
)

// chunkSize batches message-id fetches (§4.10).
const chunkSize = 100

// Assemble fetches every id, re-hydrates it in export mode, optionally
// redacts, and writes the result into a ZIP archive. Partial failures
// add a `<id>_error.txt` entry instead of aborting the whole export.
func Assemble(ctx context.Context, retrieval *application.RetrievalService, callerOrgID int64, ids []uuid.UUID, format Format, redact bool) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	var mboxBuf bytes.Buffer

	for start := 0; start < len(ids); start += chunkSize {
		end := start + chunkSize
		if end > len(ids) {
			end = len(ids)
		}

		for _, id := range ids[start:end] {
			retrieved, err := retrieval.Fetch(ctx, id, callerOrgID, true)
			if err != nil {
				writeErrorEntry(zw, id.String(), err)
				continue
			}

			raw := retrieved.RawMIME
			if redact {
				raw = redactRawMIME(raw)
			}

			switch format {
			case FormatPDF:
				if redact {
					retrieved.TextBody = mime.Redact(retrieved.TextBody)
					retrieved.Message.From = mime.Redact(retrieved.Message.From)
					retrieved.Message.To = mime.Redact(retrieved.Message.To)
					retrieved.Message.Subject = mime.Redact(retrieved.Message.Subject)
				}
				pdfBytes, err := RenderPDF(retrieved, id.String())
				if err != nil {
					writeErrorEntry(zw, id.String(), err)
					continue
				}
				writeEntry(zw, id.String()+".pdf", pdfBytes)
			case FormatMbox:
				writeMboxMessage(&mboxBuf, raw)
			default: // native
				writeEntry(zw, id.String()+".eml", raw)
			}
		}
	}

	if format == FormatMbox && mboxBuf.Len() > 0 {
		writeEntry(zw, "archive.mbox", mboxBuf.Bytes())
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}

func redactRawMIME(raw []byte) []byte {
	return []byte(mime.Redact(string(raw)))
}

func writeEntry(zw *zip.Writer, name string, data []byte) {
	w, err := zw.Create(name)
	if err != nil {
		return
	}
	io.Copy(w, bytes.NewReader(data))
}

func writeErrorEntry(zw *zip.Writer, id string, cause error) {
	writeEntry(zw, id+"_error.txt", []byte(cause.Error()))
}

// writeMboxMessage appends one message to an accumulating mbox buffer
// using the classic "From " envelope separator line.
func writeMboxMessage(buf *bytes.Buffer, raw []byte) {
	fmt.Fprintf(buf, "From MAILER-DAEMON %s\n", time.Now().Format("Mon Jan 02 15:04:05 2006"))
	buf.Write(raw)
	if len(raw) == 0 || raw[len(raw)-1] != '\n' {
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
}
