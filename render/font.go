// Package render draws debug overlays and watermarks on video frames.
package render

import (
	"image/color"

	"gocv.io/x/gocv"
)

// Font defines the parameters for rendering text on an image
type Font struct {
	Face      gocv.HersheyFont
	Scale     float64
	Color     color.RGBA
	Thickness int
	LineType  gocv.LineType
}

// DefaultFont returns default font settings for overlay labels
func DefaultFont() Font {
	return Font{
		Face:      gocv.FontHersheySimplex,
		Scale:     0.6,
		Color:     white,
		Thickness: 2,
		LineType:  gocv.LineAA,
	}
}

var (
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	black = color.RGBA{A: 255}
	green = color.RGBA{G: 255, A: 255}
	red   = color.RGBA{R: 255, A: 255}
)

// boxColors is the palette cycled through when drawing per track overlays
var boxColors = []color.RGBA{
	{R: 0, G: 255, B: 0, A: 255},
	{R: 255, G: 128, B: 0, A: 255},
	{R: 0, G: 128, B: 255, A: 255},
	{R: 255, G: 0, B: 255, A: 255},
	{R: 255, G: 255, B: 0, A: 255},
	{R: 0, G: 255, B: 255, A: 255},
}
