package shoppinglist

import (
	_ "embed"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/go-pdf/fpdf"
)

// DejaVu Sans Condensed, as shipped in the fpdf font directory. Covers Latin
// and Cyrillic.
//
//go:embed fonts/DejaVuSansCondensed.ttf
var defaultFont []byte

const fontFamily = "listfont"

// PDFRenderer lays rendered lines out on A4 pages in a UTF-8 TrueType font.
type PDFRenderer struct {
	// FontPath overrides the embedded font with a TTF on disk.
	FontPath string
	// CreatedAt pins the document creation date; zero means now.
	CreatedAt time.Time
}

const (
	headerSize = 24
	lineSize   = 16
	lineHeight = 25
	leftMargin = 75
	topMargin  = 42
)

func (r PDFRenderer) Render(w io.Writer, lines []string) error {
	pdf, err := r.build(lines)
	if err != nil {
		return err
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func (r PDFRenderer) build(lines []string) (*fpdf.Fpdf, error) {
	fontDir := ""
	if r.FontPath != "" {
		fontDir = filepath.Dir(r.FontPath)
	}
	pdf := fpdf.New("P", "pt", "A4", fontDir)
	pdf.SetMargins(leftMargin, topMargin, leftMargin)
	pdf.SetAutoPageBreak(true, 2*lineHeight)
	if !r.CreatedAt.IsZero() {
		pdf.SetCreationDate(r.CreatedAt)
	}

	if r.FontPath != "" {
		pdf.AddUTF8Font(fontFamily, "", filepath.Base(r.FontPath))
	} else {
		pdf.AddUTF8FontFromBytes(fontFamily, "", defaultFont)
	}
	if pdf.Err() {
		return nil, fmt.Errorf("load font %q: %w", r.FontPath, pdf.Error())
	}

	pdf.AddPage()
	if len(lines) > 0 {
		pdf.SetFont(fontFamily, "", headerSize)
		pdf.CellFormat(0, headerSize*2, lines[0], "", 1, "C", false, 0, "")
	}
	pdf.SetFont(fontFamily, "", lineSize)
	for _, l := range lines[min(1, len(lines)):] {
		pdf.CellFormat(0, lineHeight, l, "", 1, "L", false, 0, "")
	}

	if pdf.Err() {
		return nil, fmt.Errorf("layout pdf: %w", pdf.Error())
	}
	return pdf, nil
}
