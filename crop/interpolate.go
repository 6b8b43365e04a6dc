package crop

import (
	"math"
	"sort"

	"github.com/IORoot/reframer"
)

// Interpolate reconstructs a dense crop window sequence over
// [0, totalFrames) from the sparse keyframe results.
//
// Non keyframe indices between two keyframes are linearly interpolated,
// indices before the first keyframe copy the first keyframe's window and
// indices after the last copy the last.  Indices no keyframe can serve are
// filled with the fallback window, so the result never contains an absent
// entry.
func Interpolate(sparse map[int]reframe.Window, totalFrames int,
	fallback reframe.Window) []reframe.Window {

	if totalFrames <= 0 {
		return nil
	}

	dense := make([]reframe.Window, totalFrames)

	// keyframe indices in ascending order, ignoring any outside the
	// output range
	keys := make([]int, 0, len(sparse))

	for idx := range sparse {
		if idx >= 0 && idx < totalFrames {
			keys = append(keys, idx)
		}
	}

	sort.Ints(keys)

	if len(keys) == 0 {
		for i := range dense {
			dense[i] = fallback
		}
		return dense
	}

	for _, idx := range keys {
		dense[idx] = sparse[idx]
	}

	// pos tracks the nearest keyframe at or below i
	pos := -1

	for i := 0; i < totalFrames; i++ {
		if pos+1 < len(keys) && keys[pos+1] == i {
			pos++
			continue
		}

		switch {
		case pos < 0:
			// before the first keyframe
			dense[i] = sparse[keys[0]]

		case pos == len(keys)-1:
			// after the last keyframe
			dense[i] = sparse[keys[pos]]

		default:
			prev, next := keys[pos], keys[pos+1]
			alpha := float64(i-prev) / float64(next-prev)
			dense[i] = lerpWindow(sparse[prev], sparse[next], alpha)
		}
	}

	return dense
}

// lerpWindow linearly interpolates each field of two windows, rounding to
// integers
func lerpWindow(a, b reframe.Window, alpha float64) reframe.Window {

	lerp := func(from, to int) int {
		return int(math.Round(float64(from)*(1-alpha) + float64(to)*alpha))
	}

	return reframe.NewWindow(
		lerp(a.X, b.X),
		lerp(a.Y, b.Y),
		lerp(a.Width, b.Width),
		lerp(a.Height, b.Height),
	)
}
