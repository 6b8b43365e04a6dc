package crop

import (
	"math"

	"github.com/IORoot/reframer"
	"gonum.org/v1/gonum/stat"
)

// WindowSmoother applies a second, independent temporal smoothing pass over
// the full dense crop window sequence.  Each window is replaced by a centered
// moving average over WindowSize frames and then blended with its smoothed
// predecessor, with separate inertia for position and size so zoom changes
// settle more slowly than pans.
type WindowSmoother struct {
	// WindowSize is the number of frames in the moving average window
	WindowSize int
	// PositionInertia is how strongly x and y stick to the previous frame
	PositionInertia float64
	// SizeInertia is how strongly width and height stick to the previous
	// frame
	SizeInertia float64
}

// NewWindowSmoother creates a smoother with the given window size and
// inertia parameters
func NewWindowSmoother(windowSize int, positionInertia, sizeInertia float64) *WindowSmoother {
	return &WindowSmoother{
		WindowSize:      max(1, windowSize),
		PositionInertia: positionInertia,
		SizeInertia:     sizeInertia,
	}
}

// Smooth returns the smoothed sequence.  Windows are re-clamped to the frame
// bounds afterwards so the containment invariant survives the pass.  The
// input slice is not modified.
func (s *WindowSmoother) Smooth(windows []reframe.Window,
	frameWidth, frameHeight int) []reframe.Window {

	if len(windows) == 0 {
		return nil
	}

	smoothed := make([]reframe.Window, len(windows))

	half := s.WindowSize / 2

	xs := make([]float64, 0, s.WindowSize)
	ys := make([]float64, 0, s.WindowSize)
	ws := make([]float64, 0, s.WindowSize)
	hs := make([]float64, 0, s.WindowSize)

	prevX, prevY := float64(windows[0].X), float64(windows[0].Y)
	prevW, prevH := float64(windows[0].Width), float64(windows[0].Height)

	for i := range windows {

		lo := max(0, i-half)
		hi := min(len(windows), i+half+1)

		xs, ys, ws, hs = xs[:0], ys[:0], ws[:0], hs[:0]

		for j := lo; j < hi; j++ {
			xs = append(xs, float64(windows[j].X))
			ys = append(ys, float64(windows[j].Y))
			ws = append(ws, float64(windows[j].Width))
			hs = append(hs, float64(windows[j].Height))
		}

		avgX := stat.Mean(xs, nil)
		avgY := stat.Mean(ys, nil)
		avgW := stat.Mean(ws, nil)
		avgH := stat.Mean(hs, nil)

		if i > 0 {
			avgX = prevX*s.PositionInertia + avgX*(1-s.PositionInertia)
			avgY = prevY*s.PositionInertia + avgY*(1-s.PositionInertia)
			avgW = prevW*s.SizeInertia + avgW*(1-s.SizeInertia)
			avgH = prevH*s.SizeInertia + avgH*(1-s.SizeInertia)
		}

		prevX, prevY, prevW, prevH = avgX, avgY, avgW, avgH

		smoothed[i] = clampWindow(reframe.NewWindow(
			int(math.Round(avgX)),
			int(math.Round(avgY)),
			int(math.Round(avgW)),
			int(math.Round(avgH)),
		), frameWidth, frameHeight)
	}

	return smoothed
}

// clampWindow forces a window back inside the frame without changing its
// size, shrinking only when the window is larger than the frame itself
func clampWindow(w reframe.Window, frameWidth, frameHeight int) reframe.Window {

	w.Width = max(1, min(w.Width, frameWidth))
	w.Height = max(1, min(w.Height, frameHeight))

	w.X = max(0, min(w.X, frameWidth-w.Width))
	w.Y = max(0, min(w.Y, frameHeight-w.Height))

	return w
}
