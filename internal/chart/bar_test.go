package chart

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"strings"
	"testing"

	"majorincome/internal/core"
)

func TestFormatCurrency(t *testing.T) {
	cases := map[int64]string{
		0:       "$0",
		950:     "$950",
		75000:   "$75,000",
		1234567: "$1,234,567",
	}
	for in, want := range cases {
		if got := FormatCurrency(in); got != want {
			t.Errorf("FormatCurrency(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestAxisScale(t *testing.T) {
	tests := []struct {
		max       int64
		step, top int64
	}{
		{110000, 50000, 150000},
		{85000, 20000, 100000},
		{48000, 10000, 50000},
		{7, 2, 8},
		{0, 1, 1},
	}
	for _, tt := range tests {
		step, top := axisScale(tt.max)
		if step != tt.step || top != tt.top {
			t.Errorf("axisScale(%d) = %d, %d; want %d, %d", tt.max, step, top, tt.step, tt.top)
		}
	}
}

func TestRenderBarChart(t *testing.T) {
	records := []core.AggregatedRecord{
		{Major: "ART", Income: 30000, SourceCount: 1},
		{Major: "PETROLEUM ENGINEERING", Income: 110000, SourceCount: 2},
		{Major: "NURSING", Income: 48000, SourceCount: 1},
	}

	data, err := RenderBarChart(records, DefaultOptions())
	if err != nil {
		t.Fatalf("RenderBarChart() error = %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	opts := DefaultOptions()
	wantHeight := marginTop + len(records)*(opts.BarHeight+barGap) + marginBot
	if b := img.Bounds(); b.Dx() != opts.Width || b.Dy() != wantHeight {
		t.Errorf("bounds = %v, want %dx%d", b, opts.Width, wantHeight)
	}

	// The first bar is the widest one: it reaches further right than the last.
	firstRow := marginTop + opts.BarHeight/2
	lastRow := marginTop + 2*(opts.BarHeight+barGap) + opts.BarHeight/2
	if barEnd(img, firstRow) <= barEnd(img, lastRow) {
		t.Error("expected highest income at the top")
	}

	uri := DataURI(data)
	if !strings.HasPrefix(uri, "data:image/png;base64,") {
		t.Errorf("DataURI prefix = %q", uri[:30])
	}
}

func TestRenderBarChartEmpty(t *testing.T) {
	if _, err := RenderBarChart(nil, DefaultOptions()); !errors.Is(err, ErrNoRecords) {
		t.Fatalf("error = %v, want ErrNoRecords", err)
	}
}

// barEnd returns the last x at row y painted in the bar colour.
func barEnd(img image.Image, y int) int {
	end := -1
	br, bg, bb, _ := barColor.RGBA()
	for x := img.Bounds().Min.X; x < img.Bounds().Max.X; x++ {
		r, g, b, _ := img.At(x, y).RGBA()
		if r == br && g == bg && b == bb {
			end = x
		}
	}
	return end
}
