package chatimage

import (
	"image/color"

	"github.com/pithecene-io/replaycast/types"
)

// Background fills the image behind all text.
var Background = color.RGBA{R: 0, G: 0, B: 0, A: 255}

// Fallback is the neutral color used for the header, placeholder lines and
// any color name missing from the palette.
var Fallback = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// palette holds colors lightened for legibility on black.
var palette = map[types.Color]color.RGBA{
	types.ColorBlue:   {R: 85, G: 85, B: 255, A: 255},
	types.ColorRed:    {R: 255, G: 85, B: 85, A: 255},
	types.ColorGreen:  {R: 85, G: 255, B: 85, A: 255},
	types.ColorYellow: {R: 255, G: 255, B: 85, A: 255},
	types.ColorTeal:   {R: 85, G: 255, B: 255, A: 255},
	types.ColorPurple: {R: 255, G: 85, B: 255, A: 255},
	types.ColorGray:   {R: 170, G: 170, B: 170, A: 255},
	types.ColorOrange: {R: 255, G: 165, B: 0, A: 255},
}

// RGB resolves a color name. Unknown names, including types.ColorUnknown
// and types.ColorWhite, resolve to Fallback.
func RGB(c types.Color) color.RGBA {
	if rgb, ok := palette[c]; ok {
		return rgb
	}
	return Fallback
}
