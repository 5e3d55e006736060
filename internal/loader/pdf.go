// Package loader turns uploaded document bytes into page-level text.
package loader

import (
	"bytes"
	"context"
	"fmt"
	"log"

	"github.com/cloo-solutions/guardian/internal/domain"
	"github.com/ledongthuc/pdf"
)

// PDFLoader extracts plain text from PDF documents, one record per page.
type PDFLoader struct{}

// NewPDFLoader creates a PDFLoader.
func NewPDFLoader() *PDFLoader {
	return &PDFLoader{}
}

// Load parses data as a PDF. Page numbers start at 1 and follow the physical
// page order; pages without a content dictionary yield empty text.
func (l *PDFLoader) Load(ctx context.Context, data []byte) (pages []domain.Page, err error) {
	if len(data) == 0 {
		return nil, domain.ErrEmptyDocument
	}

	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = invalidDocument(fmt.Errorf("%v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, invalidDocument(err)
	}

	count := reader.NumPage()
	pages = make([]domain.Page, 0, count)
	for i := 1; i <= count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, domain.Page{Number: i})
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			log.Printf("loader: failed to extract text from page %d: %v", i, err)
			pages = append(pages, domain.Page{Number: i})
			continue
		}

		pages = append(pages, domain.Page{Number: i, Text: text})
	}

	return pages, nil
}

func invalidDocument(cause error) error {
	return domain.NewDomainErrorWithCause(domain.ErrInvalidDocument.Code, domain.ErrInvalidDocument.Message, cause)
}
