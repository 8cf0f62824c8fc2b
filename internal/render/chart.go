package render

import (
	"math"

	"github.com/jwulff/sensorviz/internal/histogram"
	"github.com/jwulff/sensorviz/internal/lttb"
)

// ChartConfig places a chart inside a frame.
type ChartConfig struct {
	X      int
	Y      int
	Width  int
	Height int
	// Padding is the share of the value range added above and below the data.
	Padding float64
}

// NewChartConfig creates a chart config with sensible defaults.
func NewChartConfig(x, y, width, height int) ChartConfig {
	return ChartConfig{X: x, Y: y, Width: width, Height: height, Padding: 0.05}
}

// ApplyDefaults applies default values to zero fields.
func (c *ChartConfig) ApplyDefaults() {
	if c.Padding <= 0 {
		c.Padding = 0.05
	}
}

// valueRange returns the padded vertical range of ys. A flat series gets a
// unit range centred on its value.
func valueRange(ys []float64, padding float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, y := range ys {
		lo = math.Min(lo, y)
		hi = math.Max(hi, y)
	}
	if hi-lo == 0 {
		return lo - 0.5, hi + 0.5
	}
	pad := (hi - lo) * padding
	return lo - pad, hi + pad
}

// scale maps v from [lo, hi] onto [0, pixels-1].
func scale(v, lo, hi float64, pixels int) int {
	if hi == lo || pixels <= 1 {
		return 0
	}
	return int(math.Round((v - lo) / (hi - lo) * float64(pixels-1)))
}

// RenderLineChart draws points as a connected line. X positions are scaled
// to the points' own x range; colors shade with height.
func RenderLineChart(frame *Frame, points []lttb.Point, cfg ChartConfig) {
	cfg.ApplyDefaults()
	if len(points) == 0 || cfg.Width <= 0 || cfg.Height <= 0 {
		return
	}

	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i], ys[i] = p.X, p.Y
	}
	xLo, xHi := xs[0], xs[0]
	for _, x := range xs {
		xLo = math.Min(xLo, x)
		xHi = math.Max(xHi, x)
	}
	yLo, yHi := valueRange(ys, cfg.Padding)

	bottom := cfg.Y + cfg.Height - 1
	colorAt := func(_, y int) RGB {
		t := 0.0
		if cfg.Height > 1 {
			t = float64(bottom-y) / float64(cfg.Height-1)
		}
		return LerpColor(ColorLow, ColorHigh, t)
	}

	var prevX, prevY int
	for i, p := range points {
		px := cfg.X + scale(p.X, xLo, xHi, cfg.Width)
		py := bottom - scale(p.Y, yLo, yHi, cfg.Height)
		if i == 0 {
			frame.SetPixel(px, py, colorAt(px, py))
		} else {
			frame.DrawLine(prevX, prevY, px, py, colorAt)
		}
		prevX, prevY = px, py
	}
}

// RenderHistogram draws one bar per bin, spread across the chart width.
func RenderHistogram(frame *Frame, bins []histogram.Bin, cfg ChartConfig) {
	cfg.ApplyDefaults()
	if len(bins) == 0 || cfg.Width <= 0 || cfg.Height <= 0 {
		return
	}
	maxCount := 0
	for _, b := range bins {
		maxCount = max(maxCount, b.Count)
	}
	if maxCount == 0 {
		return
	}

	bottom := cfg.Y + cfg.Height
	for i, b := range bins {
		x0 := cfg.X + i*cfg.Width/len(bins)
		x1 := cfg.X + (i+1)*cfg.Width/len(bins)
		if x1 == x0 {
			x1 = x0 + 1
		}
		h := int(math.Ceil(float64(b.Count) / float64(maxCount) * float64(cfg.Height)))
		frame.FillRect(x0, bottom-h, x1-x0, h, ColorBar)
	}
}

// RenderAxes draws the left and bottom edges of a chart area.
func RenderAxes(frame *Frame, cfg ChartConfig) {
	for y := cfg.Y; y < cfg.Y+cfg.Height; y++ {
		frame.SetPixel(cfg.X-1, y, ColorAxis)
	}
	for x := cfg.X - 1; x < cfg.X+cfg.Width; x++ {
		frame.SetPixel(x, cfg.Y+cfg.Height, ColorAxis)
	}
}
