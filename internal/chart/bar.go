// Package chart renders the income bar chart served by /api/plot.
package chart

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"majorincome/internal/core"
)

// ErrNoRecords is returned when there is nothing to draw.
var ErrNoRecords = errors.New("chart: no records")

// Options controls the chart layout.
type Options struct {
	Title      string
	Width      int
	BarHeight  int
	LabelChars int
}

// DefaultOptions returns the layout used by the API.
func DefaultOptions() Options {
	return Options{
		Title:      "College Majors by Income",
		Width:      1200,
		BarHeight:  16,
		LabelChars: 40,
	}
}

var (
	background = color.RGBA{0xff, 0xff, 0xff, 0xff}
	barColor   = color.RGBA{0x46, 0x82, 0xb4, 0xff}
	gridColor  = color.RGBA{0xdd, 0xdd, 0xdd, 0xff}
	textColor  = color.RGBA{0x22, 0x22, 0x22, 0xff}
)

const (
	glyphWidth  = 7
	lineHeight  = 13
	marginTop   = 40
	marginRight = 90
	marginBot   = 40
	barGap      = 3
)

// FormatCurrency renders whole dollars with thousands separators ("$75,000").
func FormatCurrency(v int64) string {
	return message.NewPrinter(language.English).Sprintf("$%d", v)
}

// RenderBarChart draws one horizontal bar per record, highest income at the
// top, and returns the PNG encoding.
func RenderBarChart(records []core.AggregatedRecord, opts Options) ([]byte, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}
	def := DefaultOptions()
	if opts.Width <= 0 {
		opts.Width = def.Width
	}
	if opts.BarHeight <= 0 {
		opts.BarHeight = def.BarHeight
	}
	if opts.LabelChars <= 0 {
		opts.LabelChars = def.LabelChars
	}

	sorted := core.SortByIncomeDesc(records)
	maxIncome := sorted[0].Income
	step, top := axisScale(maxIncome)

	labelWidth := 0
	for _, r := range sorted {
		labelWidth = max(labelWidth, len([]rune(truncate(r.Major, opts.LabelChars))))
	}
	marginLeft := labelWidth*glyphWidth + 16
	plotWidth := opts.Width - marginLeft - marginRight
	if plotWidth < 100 {
		return nil, fmt.Errorf("chart: width %d too small for labels", opts.Width)
	}

	row := opts.BarHeight + barGap
	height := marginTop + len(sorted)*row + marginBot
	img := image.NewRGBA(image.Rect(0, 0, opts.Width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{background}, image.Point{}, draw.Src)

	plotBottom := marginTop + len(sorted)*row
	scale := func(v int64) int {
		return int(math.Round(float64(v) / float64(top) * float64(plotWidth)))
	}

	// Vertical grid lines and axis labels.
	for tick := int64(0); tick <= top; tick += step {
		x := marginLeft + scale(tick)
		fill(img, image.Rect(x, marginTop-4, x+1, plotBottom), gridColor)
		label := FormatCurrency(tick)
		drawText(img, x-len(label)*glyphWidth/2, plotBottom+lineHeight+4, label)
	}

	for i, r := range sorted {
		y := marginTop + i*row
		w := max(scale(r.Income), 1)
		fill(img, image.Rect(marginLeft, y, marginLeft+w, y+opts.BarHeight), barColor)

		label := truncate(r.Major, opts.LabelChars)
		textY := y + opts.BarHeight/2 + lineHeight/2 - 2
		drawText(img, marginLeft-8-len([]rune(label))*glyphWidth, textY, label)
		drawText(img, marginLeft+w+4, textY, FormatCurrency(r.Income))
	}

	title := opts.Title
	if title == "" {
		title = def.Title
	}
	drawText(img, (opts.Width-len(title)*glyphWidth)/2, marginTop/2+lineHeight/2, title)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURI wraps PNG bytes as a data:image/png;base64 URI.
func DataURI(pngData []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngData)
}

// axisScale picks a 1/2/5 tick step giving about five ticks and the axis
// end it implies.
func axisScale(maxValue int64) (step, top int64) {
	if maxValue <= 0 {
		return 1, 1
	}
	raw := float64(maxValue) / 5
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	switch norm := raw / mag; {
	case norm <= 1:
		step = int64(mag)
	case norm <= 2:
		step = int64(2 * mag)
	case norm <= 5:
		step = int64(5 * mag)
	default:
		step = int64(10 * mag)
	}
	step = max(step, 1)
	top = ((maxValue + step - 1) / step) * step
	return step, top
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "~"
}

func fill(img *image.RGBA, r image.Rectangle, c color.Color) {
	draw.Draw(img, r.Intersect(img.Bounds()), &image.Uniform{c}, image.Point{}, draw.Src)
}

func drawText(img *image.RGBA, x, y int, s string) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(textColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}
