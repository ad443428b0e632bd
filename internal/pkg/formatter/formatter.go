package formatter

import (
	"fmt"

	"github.com/futig/advisor-backend/internal/entity"
)

// Section is a headed block of an exported document
type Section struct {
	Heading string
	Body    string
}

// Document is the format-neutral content of an export
type Document struct {
	Title    string
	Sections []Section
}

type Formatter interface {
	Format(doc Document) ([]byte, error)
	ContentType() string
	FileExtension() string
}

type Factory struct {
	pdfFontPath string
}

// NewFactory creates formatters; pdfFontPath points to a TTF font with
// Hangul glyphs and may be empty
func NewFactory(pdfFontPath string) *Factory {
	return &Factory{pdfFontPath: pdfFontPath}
}

func (f *Factory) Create(format entity.ResultFormat) (Formatter, error) {
	switch format {
	case entity.FormatMarkdown:
		return NewMarkdownFormatter(), nil
	case entity.FormatDOCX:
		return NewDOCXFormatter(), nil
	case entity.FormatPDF:
		return NewPDFFormatter(f.pdfFontPath), nil
	default:
		return nil, fmt.Errorf("%w: %s", entity.ErrUnsupportedFormat, format)
	}
}
