// Package render draws chart-ready series into a small pixel frame and prints
// it as ASCII shades, for quick previews in a terminal.
package render

import "fmt"

// BytesPerPixel is the number of bytes per pixel (RGB).
const BytesPerPixel = 3

// RGB represents an RGB color with 8-bit channels.
type RGB struct {
	R, G, B uint8
}

// NewRGB creates a new RGB color.
func NewRGB(r, g, b uint8) RGB {
	return RGB{R: r, G: g, B: b}
}

// String returns a string representation of the RGB color.
func (c RGB) String() string {
	return fmt.Sprintf("RGB(%d, %d, %d)", c.R, c.G, c.B)
}

// Luminance is the perceived brightness of c in [0, 1].
func (c RGB) Luminance() float64 {
	return (0.2126*float64(c.R) + 0.7152*float64(c.G) + 0.0722*float64(c.B)) / 255
}

// Frame is a grid of pixels stored row-major as flat RGB triples.
type Frame struct {
	Width  int
	Height int
	Pixels []byte
}

// NewFrame creates a frame filled with black.
func NewFrame(width, height int) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Pixels: make([]byte, width*height*BytesPerPixel),
	}
}

// SetPixel sets a single pixel. Out of bounds coordinates are ignored.
func (f *Frame) SetPixel(x, y int, color RGB) {
	if x < 0 || x >= f.Width || y < 0 || y >= f.Height {
		return
	}
	offset := (y*f.Width + x) * BytesPerPixel
	f.Pixels[offset] = color.R
	f.Pixels[offset+1] = color.G
	f.Pixels[offset+2] = color.B
}

// GetPixel returns the color at x, y, or false when out of bounds.
func (f *Frame) GetPixel(x, y int) (RGB, bool) {
	if x < 0 || x >= f.Width || y < 0 || y >= f.Height {
		return RGB{}, false
	}
	offset := (y*f.Width + x) * BytesPerPixel
	return RGB{R: f.Pixels[offset], G: f.Pixels[offset+1], B: f.Pixels[offset+2]}, true
}

// Fill paints the whole frame.
func (f *Frame) Fill(color RGB) {
	f.FillRect(0, 0, f.Width, f.Height, color)
}

// FillRect fills a rectangular area, clipped to the frame.
func (f *Frame) FillRect(x, y, width, height int, color RGB) {
	for dy := 0; dy < height; dy++ {
		for dx := 0; dx < width; dx++ {
			f.SetPixel(x+dx, y+dy, color)
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm. colorAt picks the color
// of each plotted pixel.
func (f *Frame) DrawLine(x0, y0, x1, y1 int, colorAt func(x, y int) RGB) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := 1
	if x0 >= x1 {
		sx = -1
	}
	sy := 1
	if y0 >= y1 {
		sy = -1
	}
	err := dx + dy

	for {
		f.SetPixel(x0, y0, colorAt(x0, y0))
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
