package callgraph

import (
	"fmt"
	"image/color"
	"math"
)

// HSV converts a hue in degrees with saturation and value in [0, 1] to RGB.
// From https://en.wikipedia.org/wiki/HSL_and_HSV#HSV_to_RGB_alternative
func HSV(h, s, v float64) color.RGBA {
	f := func(n int) uint8 {
		k := math.Mod(float64(n)+h/60.0, 6.0)
		c := v - v*s*max(0.0, min(k, 4.0-k, 1.0))
		return uint8(math.Round(c * 255))
	}

	return color.RGBA{
		R: f(5),
		G: f(3),
		B: f(1),
		A: 0xff,
	}
}

// HeatColor maps a share of total time in [0, 1] to a colour going from a
// pale blue for cold nodes to saturated red for the hottest ones.
func HeatColor(share float64) color.RGBA {
	share = max(0, min(share, 1))
	return HSV(240*(1-share), 0.2+0.72*share, 1)
}

func hexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
