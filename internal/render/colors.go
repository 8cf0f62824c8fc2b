package render

// Preview palette.
var (
	ColorBg    = NewRGB(0, 0, 0)
	ColorTitle = NewRGB(255, 255, 255)
	ColorLabel = NewRGB(150, 150, 150)
	ColorAxis  = DimColor(ColorLabel, 0.5)

	// Line charts shade from ColorLow at the bottom of the range to ColorHigh
	// at the top.
	ColorLow  = NewRGB(40, 110, 255)
	ColorHigh = NewRGB(255, 230, 60)

	ColorBar = NewRGB(90, 220, 120)
)

// LerpColor linearly interpolates between two colors.
func LerpColor(a, b RGB, t float64) RGB {
	if t <= 0 {
		return a
	}
	if t >= 1 {
		return b
	}
	return NewRGB(
		uint8(float64(a.R)+t*float64(int(b.R)-int(a.R))),
		uint8(float64(a.G)+t*float64(int(b.G)-int(a.G))),
		uint8(float64(a.B)+t*float64(int(b.B)-int(a.B))),
	)
}

// DimColor reduces the brightness of a color by a factor in [0, 1].
func DimColor(c RGB, factor float64) RGB {
	if factor <= 0 {
		return ColorBg
	}
	if factor >= 1 {
		return c
	}
	return NewRGB(
		uint8(float64(c.R)*factor),
		uint8(float64(c.G)*factor),
		uint8(float64(c.B)*factor),
	)
}
