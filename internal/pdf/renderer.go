// Package pdf renders report documents as A4 PDF files.
package pdf

import (
	"bytes"
	_ "embed"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"

	"pills-bot/internal/report"
)

const (
	pageSize = "A4"
	unit     = "pt"

	marginSide   = 72.0
	marginTop    = 72.0
	marginBottom = 18.0

	titleSize   = 16.0
	headingSize = 14.0
	normalSize  = 10.0

	fontFamily = "DejaVuSans"

	// BuiltinFont names the font bundled into the binary.
	BuiltinFont = "builtin:DejaVuSansCondensed"

	bullet = "• "
)

// DefaultFontPaths is searched in order; the first readable file wins.
var DefaultFontPaths = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/TTF/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/Library/Fonts/DejaVuSans.ttf",
	"C:/Windows/Fonts/DejaVuSans.ttf",
	"C:/Windows/Fonts/arial.ttf",
}

// Used when no candidate path is readable, so Cyrillic text never degrades.
var (
	//go:embed fonts/DejaVuSansCondensed.ttf
	builtinRegular []byte
	//go:embed fonts/DejaVuSansCondensed-Bold.ttf
	builtinBold []byte
)

type font struct {
	source  string
	regular []byte
	bold    []byte
}

// Renderer turns a report.Document into PDF bytes. It is safe for concurrent use:
// fonts are read once and every Render builds its own fpdf instance.
type Renderer struct {
	font *font
}

// NewRenderer loads the first usable TTF from paths. When none is found the
// renderer uses the bundled DejaVuSansCondensed.
func NewRenderer(paths []string) *Renderer {
	for _, p := range paths {
		regular, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		if err := probeFont(regular); err != nil {
			log.Printf("⚠️ Skipping font %s: %v", p, err)
			continue
		}
		f := &font{source: p, regular: regular}
		if bold, err := os.ReadFile(boldVariant(p)); err == nil && probeFont(bold) == nil {
			f.bold = bold
		}
		log.Printf("📄 PDF font: %s", p)
		return &Renderer{font: f}
	}
	log.Printf("⚠️ No TTF font found in %d candidates, using %s", len(paths), BuiltinFont)
	return &Renderer{font: &font{source: BuiltinFont, regular: builtinRegular, bold: builtinBold}}
}

// FontSource returns the path of the loaded font or BuiltinFont.
func (r *Renderer) FontSource() string { return r.font.source }

func probeFont(data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse font: %v", r)
		}
	}()
	pdf := fpdf.New("P", unit, pageSize, "")
	pdf.AddUTF8FontFromBytes(fontFamily, "", data)
	return pdf.Error()
}

// boldVariant maps DejaVuSans.ttf to DejaVuSans-Bold.ttf.
func boldVariant(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "-Bold" + ext
}

// Render lays out doc. Output is byte-for-byte stable for equal documents.
func (r *Renderer) Render(doc report.Document) ([]byte, error) {
	pdf := fpdf.New("P", unit, pageSize, "")
	pdf.SetMargins(marginSide, marginTop, marginSide)
	pdf.SetAutoPageBreak(true, marginBottom)
	pdf.SetCreationDate(doc.GeneratedAt)
	pdf.SetModificationDate(doc.GeneratedAt)
	pdf.SetCatalogSort(true)
	pdf.SetTitle(doc.Title, true)
	pdf.SetCreator("pills-bot", true)

	family, boldStyle := r.setupFont(pdf)

	pdf.AddPage()
	width, _ := pdf.GetPageSize()
	lineWidth := width - 2*marginSide

	pdf.SetFont(family, boldStyle, titleSize)
	pdf.MultiCell(lineWidth, titleSize*1.3, doc.Title, "", "C", false)
	pdf.Ln(30 + 12)

	for _, sec := range doc.Sections {
		pdf.Ln(20)
		pdf.SetFont(family, boldStyle, headingSize)
		pdf.MultiCell(lineWidth, headingSize*1.3, sec.Label, "", "L", false)
		pdf.Ln(12)

		pdf.SetFont(family, "", normalSize)
		for _, sub := range []*report.Subsection{sec.Doses, sec.Notes} {
			if sub == nil {
				continue
			}
			pdf.MultiCell(lineWidth, normalSize*1.4, sub.Heading, "", "L", false)
			pdf.Ln(6)
			for _, line := range sub.Lines {
				pdf.MultiCell(lineWidth, normalSize*1.4, bullet+line, "", "L", false)
				pdf.Ln(6)
			}
			pdf.Ln(6)
		}
		pdf.Ln(12)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// setupFont registers the loaded font and returns the family and the style to
// use for headings. Without a bold face headings stay regular.
func (r *Renderer) setupFont(pdf *fpdf.Fpdf) (string, string) {
	pdf.AddUTF8FontFromBytes(fontFamily, "", r.font.regular)
	if r.font.bold == nil {
		return fontFamily, ""
	}
	pdf.AddUTF8FontFromBytes(fontFamily, "B", r.font.bold)
	return fontFamily, "B"
}
