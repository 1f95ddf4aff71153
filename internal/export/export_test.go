package export

import (
	"bytes"
	"fmt"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpq-console/internal/wizard"
)

func TestPaginate(t *testing.T) {
	tests := []struct {
		name        string
		imageHeight float64
		pageHeight  float64
		want        []float64
	}{
		{"shorter than a page", 100, 277, []float64{0}},
		{"exactly one page still adds one", 277, 277, []float64{0, -277}},
		{"two and a half pages", 700, 277, []float64{0, -277, -554}},
		{"bad page height", 700, 0, []float64{0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Paginate(tt.imageHeight, tt.pageHeight))
		})
	}
}

func TestPaginate_OffsetsAreCumulative(t *testing.T) {
	offsets := Paginate(2000, 277)
	for i, off := range offsets {
		assert.InDelta(t, -277*float64(i), off, 1e-9)
	}
}

func summary(rows int) wizard.Summary {
	sec := wizard.Section{Heading: "Line item 1"}
	for i := 0; i < rows; i++ {
		sec.Rows = append(sec.Rows, wizard.Row{Label: fmt.Sprintf("Row %d", i), Value: "value"})
	}
	return wizard.Summary{Title: "Fibre rollout", Sections: []wizard.Section{sec}}
}

func TestRasterize(t *testing.T) {
	img := Rasterize(summary(3))
	assert.Equal(t, RasterWidth, img.Bounds().Dx())

	taller := Rasterize(summary(30))
	assert.Greater(t, taller.Bounds().Dy(), img.Bounds().Dy())

	assert.Equal(t, color.RGBA{0xff, 0xff, 0xff, 0xff}, img.RGBAAt(1, 1))
	dark := false
	for x := rasterPadding; x < RasterWidth/2 && !dark; x++ {
		for y := rasterPadding; y < rasterPadding+lineHeight; y++ {
			if c := img.RGBAAt(x, y); c.R < 0x80 {
				dark = true
				break
			}
		}
	}
	assert.True(t, dark, "title text is drawn")
}

func TestWrap(t *testing.T) {
	assert.Equal(t, []string{"short"}, wrap("short", 10))
	assert.Equal(t, []string{"one two", "three"}, wrap("one two three", 8))
	assert.Equal(t, []string{"abcd", "efgh", "ij"}, wrap("abcdefghij", 4))
}

func TestSummaryPDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SummaryPDF(&buf, summary(3)))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Equal(t, 1, PageCount(summary(3)))

	long := summary(400)
	assert.Greater(t, PageCount(long), 1)
	buf.Reset()
	require.NoError(t, SummaryPDF(&buf, long))
	assert.Equal(t, PageCount(long), bytes.Count(buf.Bytes(), []byte("/Type /Page\n")))
}
