package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"

	"pdf-chat/internal/models"
)

// Extractor turns an uploaded document into plain text.
type Extractor interface {
	ExtractText(data []byte) (string, error)
}

// Upload is a named uploaded file.
type Upload struct {
	Name string
	Data []byte
}

// PDFExtractor extracts text from PDF byte streams.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// ExtractText returns the plain text of every page in page order, joined by
// newlines. Malformed input fails with models.ErrDocumentParse.
func (PDFExtractor) ExtractText(data []byte) (text string, err error) {
	// the pdf reader panics on some malformed streams
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: %v", models.ErrDocumentParse, r)
		}
	}()

	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty document", models.ErrDocumentParse)
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrDocumentParse, err)
	}

	numPages := reader.NumPage()
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("%w: page %d: %v", models.ErrDocumentParse, i, err)
		}
		pages = append(pages, pageText)
	}
	return strings.Join(pages, "\n"), nil
}

// ExtractTexts processes every upload independently and returns the texts of
// the ones that parsed, in upload order. Failed uploads are logged and
// reported by name.
func ExtractTexts(extractor Extractor, uploads []Upload) ([]string, []string) {
	var texts, failed []string
	for _, u := range uploads {
		text, err := extractor.ExtractText(u.Data)
		if err != nil {
			log.Error().Err(err).Str("file", u.Name).Msg("Skipping document")
			failed = append(failed, u.Name)
			continue
		}
		texts = append(texts, text)
	}
	return texts, failed
}
