package export

import (
	"bytes"
	"image/png"
	"io"

	"github.com/phpdave11/gofpdf"

	"cpq-console/internal/common/errors"
	"cpq-console/internal/wizard"
)

// A4 portrait geometry in millimetres.
const (
	PageWidth  = 210.0
	PageHeight = 297.0
	Margin     = 10.0

	// ContentHeight is the slice of the image placed on each page.
	ContentHeight = PageHeight - 2*Margin
)

// Paginate returns the vertical offset of the image on each page. The first
// page shows it at 0; another page follows, shifted up by one more page
// height, for as long as the remaining height is still >= 0.
func Paginate(imageHeight, pageHeight float64) []float64 {
	offsets := []float64{0}
	if pageHeight <= 0 {
		return offsets
	}
	remaining := imageHeight - pageHeight
	for remaining >= 0 {
		offsets = append(offsets, remaining-imageHeight)
		remaining -= pageHeight
	}
	return offsets
}

// SummaryPDF rasterizes s and writes it as a multi-page A4 PDF with 10mm
// margins.
func SummaryPDF(w io.Writer, s wizard.Summary) error {
	img := Rasterize(s)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return errors.NewExportFailedError("pdf", err)
	}

	imgWidth := PageWidth - 2*Margin
	imgHeight := float64(img.Bounds().Dy()) * imgWidth / float64(img.Bounds().Dx())

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(Margin, Margin, Margin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(s.Title, true)

	opts := gofpdf.ImageOptions{ImageType: "PNG", AllowNegativePosition: true}
	pdf.RegisterImageOptionsReader("summary", opts, &buf)

	for _, offset := range Paginate(imgHeight, ContentHeight) {
		pdf.AddPage()
		pdf.ImageOptions("summary", Margin, Margin+offset, imgWidth, imgHeight, false, opts, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return errors.NewExportFailedError("pdf", err)
	}
	return nil
}

// PageCount is the number of pages SummaryPDF produces for s.
func PageCount(s wizard.Summary) int {
	b := Rasterize(s).Bounds()
	imgHeight := float64(b.Dy()) * (PageWidth - 2*Margin) / float64(b.Dx())
	return len(Paginate(imgHeight, ContentHeight))
}
