package reframe

import (
	"math"
)

// Point is an (x, y) coordinate in source frame pixels
type Point struct {
	X float64
	Y float64
}

// DistanceTo returns the euclidean distance to another point
func (p Point) DistanceTo(other Point) float64 {
	return math.Hypot(p.X-other.X, p.Y-other.Y)
}

// Rect is an axis aligned rectangle in source frame pixel coordinates
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// NewRect creates a new Rect with the given coordinates
func NewRect(x, y, width, height float64) Rect {
	return Rect{X: x, Y: y, Width: width, Height: height}
}

// Center returns the center point of the rectangle
func (r Rect) Center() Point {
	return Point{
		X: r.X + r.Width/2,
		Y: r.Y + r.Height/2,
	}
}

// Area returns the area of the rectangle
func (r Rect) Area() float64 {
	return r.Width * r.Height
}

// IsValid reports whether all coordinates are finite and the rectangle has
// positive width and height
func (r Rect) IsValid() bool {
	for _, v := range [4]float64{r.X, r.Y, r.Width, r.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}

	return r.Width > 0 && r.Height > 0
}

// IoU calculates the Intersection over Union with another rectangle
func (r Rect) IoU(other Rect) float64 {

	iw := math.Min(r.X+r.Width, other.X+other.Width) - math.Max(r.X, other.X)

	if iw <= 0 {
		return 0
	}

	ih := math.Min(r.Y+r.Height, other.Y+other.Height) - math.Max(r.Y, other.Y)

	if ih <= 0 {
		return 0
	}

	union := r.Area() + other.Area() - iw*ih

	if union <= 0 {
		return 0
	}

	return iw * ih / union
}

// Window is a crop window in source frame pixel coordinates.  A valid Window
// has positive dimensions and lies fully within the source frame.
type Window struct {
	X      int
	Y      int
	Width  int
	Height int
}

// NewWindow creates a new Window with the given coordinates
func NewWindow(x, y, width, height int) Window {
	return Window{X: x, Y: y, Width: width, Height: height}
}

// Valid reports whether the window has positive dimensions and lies fully
// within a frame of the given size
func (w Window) Valid(frameWidth, frameHeight int) bool {

	if w.Width <= 0 || w.Height <= 0 {
		return false
	}

	if w.X < 0 || w.Y < 0 {
		return false
	}

	return w.X+w.Width <= frameWidth && w.Y+w.Height <= frameHeight
}

// Center returns the center point of the window
func (w Window) Center() Point {
	return Point{
		X: float64(w.X) + float64(w.Width)/2,
		Y: float64(w.Y) + float64(w.Height)/2,
	}
}
