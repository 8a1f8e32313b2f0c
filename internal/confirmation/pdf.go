package confirmation

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
)

const (
	pdfMarginMM     = 10.0
	pdfImageWidthMM = 190.0
	pdfImageName    = "confirmation"
)

// RenderPDF places the rasterized card on A4 pages, adding pages while the
// image is taller than what has been shown so far.
func RenderPDF(c *Card) ([]byte, error) {
	pdf, err := buildPDF(c)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func buildPDF(c *Card) (*fpdf.Fpdf, error) {
	img := Rasterize(c)
	jpg, err := encodeJPEG(img)
	if err != nil {
		return nil, err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	_, pageHeight := pdf.GetPageSize()

	opts := fpdf.ImageOptions{ImageType: "JPG"}
	pdf.RegisterImageOptionsReader(pdfImageName, opts, bytes.NewReader(jpg))

	b := img.Bounds()
	imgHeight := float64(b.Dy()) * pdfImageWidthMM / float64(b.Dx())
	heightLeft := imgHeight
	position := pdfMarginMM

	pdf.AddPage()
	pdf.ImageOptions(pdfImageName, pdfMarginMM, position, pdfImageWidthMM, imgHeight, false, opts, 0, "")
	heightLeft -= pageHeight

	for heightLeft >= 0 {
		position = heightLeft - imgHeight
		pdf.AddPage()
		pdf.ImageOptions(pdfImageName, pdfMarginMM, position, pdfImageWidthMM, imgHeight, false, opts, 0, "")
		heightLeft -= pageHeight
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("failed to build pdf: %w", err)
	}
	return pdf, nil
}
