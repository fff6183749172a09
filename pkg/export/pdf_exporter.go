package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// Field is a label and value printed in the identity or summary block.
type Field struct {
	Label string
	Value string
}

// Signature is a signing line under a document.
type Signature struct {
	Name string
	Role string
}

// Document is one printable page group: a centred header, an identity
// block, a grade table, a summary and signature lines.
type Document struct {
	Header     []string
	Title      string
	Fields     []Field
	Table      Dataset
	Widths     []float64
	Summary    []Field
	Signatures []Signature
}

// PDFExporter renders documents on A4 portrait pages.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

const contentWidth = 190.0

// Render writes every document on its own page into a single PDF.
func (e *PDFExporter) Render(docs ...Document) ([]byte, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("pdf requires at least one document")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, doc := range docs {
		if len(doc.Table.Headers) == 0 {
			return nil, fmt.Errorf("pdf document %q has no table headers", doc.Title)
		}
		pdf.AddPage()
		writeHeader(pdf, tr, doc)
		writeFields(pdf, tr, doc.Fields)
		writeTable(pdf, tr, doc)
		writeFields(pdf, tr, doc.Summary)
		writeSignatures(pdf, tr, doc.Signatures)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writeHeader(pdf *gofpdf.Fpdf, tr func(string) string, doc Document) {
	for i, line := range doc.Header {
		if i == 0 {
			pdf.SetFont("Arial", "B", 13)
		} else {
			pdf.SetFont("Arial", "", 10)
		}
		pdf.CellFormat(0, 6, tr(line), "", 1, "C", false, 0, "")
	}
	if doc.Title != "" {
		pdf.Ln(3)
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, tr(strings.ToUpper(doc.Title)), "", 1, "C", false, 0, "")
	}
	pdf.Ln(3)
}

func writeFields(pdf *gofpdf.Fpdf, tr func(string) string, fields []Field) {
	if len(fields) == 0 {
		return
	}
	half := contentWidth / 2
	for i, f := range fields {
		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(30, 6, tr(f.Label+":"), "", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		value := f.Value
		if value == "" {
			value = Placeholder
		}
		ln := 0
		if i%2 == 1 || i == len(fields)-1 {
			ln = 1
		}
		pdf.CellFormat(half-30, 6, tr(value), "", ln, "", false, 0, "")
	}
	pdf.Ln(3)
}

func writeTable(pdf *gofpdf.Fpdf, tr func(string) string, doc Document) {
	widths := doc.Widths
	if len(widths) != len(doc.Table.Headers) {
		widths = make([]float64, len(doc.Table.Headers))
		for i := range widths {
			widths[i] = contentWidth / float64(len(widths))
		}
	}
	pdf.SetFont("Arial", "B", 9)
	for i, header := range doc.Table.Headers {
		pdf.CellFormat(widths[i], 8, tr(header), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range doc.Table.Rows {
		for i := range doc.Table.Headers {
			value := Placeholder
			if i < len(row) && row[i] != "" {
				value = row[i]
			}
			align := "C"
			if i == 0 {
				align = "L"
			}
			pdf.CellFormat(widths[i], 7, tr(value), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)
}

func writeSignatures(pdf *gofpdf.Fpdf, tr func(string) string, signatures []Signature) {
	if len(signatures) == 0 {
		return
	}
	pdf.Ln(12)
	width := contentWidth / float64(len(signatures))
	pdf.SetFont("Arial", "B", 9)
	for _, s := range signatures {
		name := s.Name
		if name == "" {
			name = "________________________"
		}
		pdf.CellFormat(width, 6, tr(name), "B", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 8)
	for _, s := range signatures {
		pdf.CellFormat(width, 5, tr(s.Role), "", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
}
