package render

import (
	"math"
	"strings"

	"github.com/jwulff/sensorviz/internal/histogram"
	"github.com/jwulff/sensorviz/internal/lttb"
)

// Preview layout.
const (
	PreviewWidth  = 64
	PreviewHeight = 48

	titleY       = 0
	trendY       = 7
	trendHeight  = 18
	histY        = 29
	histHeight   = 18
	chartMarginX = 1
)

// PreviewData is everything drawn in one preview frame.
type PreviewData struct {
	Title string
	Trend []lttb.Point
	Bins  []histogram.Bin
}

// ComposePreview draws a title, a line chart of the trend and the histogram.
func ComposePreview(data PreviewData) *Frame {
	frame := NewFrame(PreviewWidth, PreviewHeight)
	frame.Fill(ColorBg)

	title := FitTinyText(data.Title, PreviewWidth)
	DrawTinyText(frame, title, (PreviewWidth-MeasureTinyText(title))/2, titleY, ColorTitle)

	trend := NewChartConfig(chartMarginX, trendY, PreviewWidth-chartMarginX, trendHeight)
	RenderAxes(frame, trend)
	if len(data.Trend) == 0 {
		DrawTinyText(frame, "NO DATA", trend.X+2, trend.Y+trend.Height/2-2, ColorLabel)
	}
	RenderLineChart(frame, data.Trend, trend)

	hist := NewChartConfig(chartMarginX, histY, PreviewWidth-chartMarginX, histHeight-1)
	RenderAxes(frame, hist)
	RenderHistogram(frame, data.Bins, hist)

	return frame
}

// shades orders characters from dark to bright.
const shades = " .:-=+*#%@"

// ASCII renders the frame as text, one character per pixel, shaded by
// luminance.
func ASCII(frame *Frame) string {
	var b strings.Builder
	b.Grow((frame.Width + 1) * frame.Height)
	for y := 0; y < frame.Height; y++ {
		for x := 0; x < frame.Width; x++ {
			c, _ := frame.GetPixel(x, y)
			idx := min(int(math.Round(c.Luminance()*float64(len(shades)-1))), len(shades)-1)
			if idx == 0 && (c.R|c.G|c.B) != 0 {
				idx = 1
			}
			b.WriteByte(shades[idx])
		}
		b.WriteByte('\n')
	}
	return b.String()
}
